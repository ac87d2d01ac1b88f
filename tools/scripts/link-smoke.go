// Package main provides a CI-friendly smoke test for the public link API.
//
// Run it against a server started with MUTABAKAT_DEV_SEED=true and pass one of the
// logged link URLs. It validates:
//   - the view reports the pending challenge and hides the letter
//   - a wrong tax answer is counted
//   - the right tax answer verifies the link (policies without OTP)
//   - the letter appears once verified
//   - a dispute is recorded and a second answer is refused
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type view struct {
	State             string `json:"state"`
	IsVerified        bool   `json:"is_verified"`
	AttemptsRemaining *int   `json:"attempts_remaining"`
	ResponseStatus    *string `json:"response_status"`
	Letter            *struct {
		Body string `json:"body"`
	} `json:"letter"`
}

type apiError struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	AttemptsRemaining *int   `json:"attemptsRemaining"`
}

func main() {
	var (
		linkURL = flag.String("link", "", "link URL printed by the dev seed, e.g. http://127.0.0.1:8080/mutabakat/<code>")
		apiBase = flag.String("api", "", "API base URL (default: scheme and host of -link)")
		last4   = flag.String("last4", "7890", "correct last four digits of the tax number")
		timeout = flag.Duration("timeout", 5*time.Second, "per-request timeout")
		verbose = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	code, base, err := splitLink(*linkURL)
	if err != nil {
		fatalf("invalid -link: %v", err)
	}
	if *apiBase != "" {
		base = strings.TrimRight(*apiBase, "/")
	}
	endpoint := base + "/api/links/" + url.PathEscape(code)
	client := &http.Client{Timeout: *timeout}

	step := func(format string, args ...any) {
		if *verbose {
			fmt.Printf("-> "+format+"\n", args...)
		}
	}

	var v view
	mustDo(client, http.MethodGet, endpoint, nil, http.StatusOK, &v)
	step("initial state %s", v.State)

	switch v.State {
	case "TAX_PENDING":
		if v.Letter != nil {
			fatalf("letter must be hidden before verification")
		}
		var failed apiError
		mustDo(client, http.MethodPost, endpoint+"/verify-tax", map[string]string{"tax_number_last4": wrongDigits(*last4)}, http.StatusBadRequest, &failed)
		if failed.AttemptsRemaining == nil {
			fatalf("wrong tax answer should report attemptsRemaining")
		}
		step("wrong answer counted, %d attempts left", *failed.AttemptsRemaining)

		var ok struct {
			Verified bool `json:"verified"`
		}
		mustDo(client, http.MethodPost, endpoint+"/verify-tax", map[string]string{"tax_number_last4": *last4}, http.StatusOK, &ok)
		if !ok.Verified {
			fatalf("link also requires OTP; use a link whose policy is tax-only or open")
		}
		step("tax verified")
	case "VERIFIED":
	default:
		fatalf("unsupported starting state %q; use a fresh open or tax-only link", v.State)
	}

	mustDo(client, http.MethodGet, endpoint, nil, http.StatusOK, &v)
	if v.State != "VERIFIED" || v.Letter == nil || v.Letter.Body == "" {
		fatalf("verified view must include the letter (state=%s)", v.State)
	}
	step("letter visible")

	dispute := map[string]any{
		"response_status":   "dispute",
		"response_note":     "smoke test",
		"disputed_amount":   "1.00",
		"disputed_currency": "TRY",
	}
	mustDo(client, http.MethodPost, endpoint+"/response", dispute, http.StatusOK, nil)
	step("dispute recorded")

	var refused apiError
	mustDo(client, http.MethodPost, endpoint+"/response", map[string]any{"response_status": "agree"}, http.StatusConflict, &refused)
	step("second answer refused with %s", refused.Code)

	fmt.Println("link smoke: ok")
}

func splitLink(raw string) (code, base string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", errors.New("scheme must be http or https")
	}
	path := strings.TrimRight(u.Path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 || i == len(path)-1 {
		return "", "", errors.New("missing reference code")
	}
	code, err = url.PathUnescape(path[i+1:])
	if err != nil {
		return "", "", err
	}
	return code, u.Scheme + "://" + u.Host, nil
}

func wrongDigits(s string) string {
	if s == "0000" {
		return "1111"
	}
	return "0000"
}

func mustDo(client *http.Client, method, target string, body any, wantStatus int, out any) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, target, rd)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s %s: read: %v", method, target, err)
	}
	if resp.StatusCode != wantStatus {
		fatalf("%s %s: status %d want %d: %s", method, target, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fatalf("%s %s: decode: %v", method, target, err)
		}
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "link smoke: "+format+"\n", args...)
	os.Exit(1)
}
