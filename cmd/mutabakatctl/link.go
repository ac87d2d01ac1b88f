package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/reconlink"

	"github.com/spf13/cobra"
)

func linkCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Issue and inspect reconciliation links",
	}
	cmd.AddCommand(linkIssueCmd(g))
	cmd.AddCommand(linkShowCmd(g))
	return cmd
}

func linkIssueCmd(g *globals) *cobra.Command {
	var (
		ttl  time.Duration
		send bool
	)

	cmd := &cobra.Command{
		Use:   "issue [record-id]",
		Short: "Create a single-use link for a counterparty record",
		Long: `Create a single-use link for a counterparty record and print its URL.

The URL carries the only credential for the link; treat the output as secret.

Examples:
  mutabakatctl link issue 0f9c2d7e-3b1a-4c55-9d0e-6a2b7c8d9e10
  mutabakatctl link issue row-42 --ttl 720h --send`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.service()
			if err != nil {
				return err
			}

			iss, err := svc.IssueLink(cmd.Context(), reconlink.IssueInput{RecordID: args[0], TTL: ttl})
			if err != nil {
				return fmt.Errorf("issue: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "link_id:    %s\n", iss.Link.ID)
			fmt.Fprintf(out, "url:        %s\n", iss.URL)
			fmt.Fprintf(out, "expires_at: %s\n", iss.Link.ExpiresAt.Format(time.RFC3339))

			if send {
				if err := svc.DispatchLink(cmd.Context(), iss); err != nil {
					return fmt.Errorf("send: %w", err)
				}
				fmt.Fprintf(out, "sent_to:    %s\n", reconlink.MaskEmail(iss.Record.RecipientEmail))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "link lifetime (default MUTABAKAT_LINK_TTL)")
	cmd.Flags().BoolVar(&send, "send", false, "email the link to the counterparty")
	return cmd
}

func linkShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show [reference-code]",
		Short: "Print the counterparty view of a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.service()
			if err != nil {
				return err
			}

			v, err := svc.GetPublicView(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
}
