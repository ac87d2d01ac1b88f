package app

import (
	"context"
	"fmt"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/letter"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/reconlink"

	"github.com/shopspring/decimal"
)

// DevSeedTaxNumber is the tax number of every seeded counterparty; its last four digits
// answer the tax challenge.
const DevSeedTaxNumber = "1234567890"

var devTemplate = letter.Template{
	Subject: "%DÖNEM% dönemi cari hesap mutabakatı",
	Body: "Sayın %CARİUNVAN%,\n\n%DÖNEM% dönemi sonu itibarıyla kayıtlarımızda " +
		"%TUTAR% %PARABİRİMİ% %BORÇALACAK% bakiyesi görünmektedir.\n\n%FİRMAUNVAN%",
	Notes: "Mutabık değilseniz lütfen itiraz ederek kendi kayıtlarınızdaki bakiyeyi bildiriniz.",
}

// seedDev creates one company per policy combination, each with one record and one
// issued link, and logs the link URLs.
func seedDev(ctx context.Context, mem *reconlink.MemoryStore, svc *reconlink.Service, log Logger) error {
	combos := []struct {
		name   string
		policy reconlink.Policy
	}{
		{"open", reconlink.Policy{}},
		{"tax", reconlink.Policy{RequireTax: true}},
		{"otp", reconlink.Policy{RequireOTP: true}},
		{"tax-otp", reconlink.Policy{RequireTax: true, RequireOTP: true}},
	}

	for i, c := range combos {
		companyID := "cmp-dev-" + c.name
		reconID := "rec-dev-" + c.name
		recordID := "row-dev-" + c.name

		mem.PutCompany(reconlink.Company{
			ID:      companyID,
			Name:    "Örnek Ticaret A.Ş.",
			Address: "Levent, İstanbul",
			Phone:   "+90 212 000 00 00",
			Email:   "muhasebe@example.com",
		}, c.policy)
		mem.PutReconciliation(companyID, reconlink.Reconciliation{
			ID:       reconID,
			Period:   "2025/12",
			Template: devTemplate,
		})
		side := letter.SideDebit
		if i%2 == 1 {
			side = letter.SideCredit
		}
		mem.PutRecord(reconID, recordID, reconlink.Counterparty{
			Name:        fmt.Sprintf("Cari %d Ltd. Şti.", i+1),
			Email:       fmt.Sprintf("cari+%s@example.com", c.name),
			TaxNumber:   DevSeedTaxNumber,
			Amount:      decimal.New(int64(125000+i*37550), -2),
			Currency:    "TRY",
			BalanceType: side,
		})

		iss, err := svc.IssueLink(ctx, reconlink.IssueInput{RecordID: recordID})
		if err != nil {
			return fmt.Errorf("dev seed %s: %w", c.name, err)
		}
		log.Info("dev.seed.link",
			"policy", c.name,
			"url", iss.URL,
			"tax_last4", DevSeedTaxNumber[len(DevSeedTaxNumber)-4:],
		)
	}
	return nil
}
