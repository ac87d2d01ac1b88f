// Package letter resolves the placeholders of reconciliation letter templates.
//
// The placeholder set is closed: anything not listed below is left verbatim.
// Resolution is a pure function of the record, reconciliation and company data.
package letter

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder is a named slot in a letter template.
type Placeholder string

const (
	// PlaceholderPeriod is the reconciliation period label, e.g. "2025/12".
	PlaceholderPeriod Placeholder = "%DÖNEM%"
	// PlaceholderAmount is the balance amount with Turkish grouping, e.g. "2.550,00".
	PlaceholderAmount Placeholder = "%TUTAR%"
	// PlaceholderSide is the balance side, "BORÇ" or "ALACAK".
	PlaceholderSide Placeholder = "%BORÇALACAK%"
	// PlaceholderCurrency is the ISO currency code of the balance.
	PlaceholderCurrency Placeholder = "%PARABİRİMİ%"
	// PlaceholderRecipient is the counterparty's title.
	PlaceholderRecipient Placeholder = "%CARİUNVAN%"
	// PlaceholderCompany is the issuing company's title.
	PlaceholderCompany Placeholder = "%FİRMAUNVAN%"
)

// Placeholders lists every supported placeholder in resolution order.
var Placeholders = []Placeholder{
	PlaceholderPeriod,
	PlaceholderAmount,
	PlaceholderSide,
	PlaceholderCurrency,
	PlaceholderRecipient,
	PlaceholderCompany,
}

// Side is the balance side of a counterparty record.
type Side string

const (
	// SideDebit means the counterparty owes the company (borç).
	SideDebit Side = "borc"
	// SideCredit means the company owes the counterparty (alacak).
	SideCredit Side = "alacak"
)

// ParseSide accepts the stored spelling with or without Turkish characters.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "borc", "borç":
		return SideDebit, true
	case "alacak":
		return SideCredit, true
	default:
		return "", false
	}
}

// upperTR builds a fresh caser per call; a cases.Caser must not be shared between goroutines.
func upperTR(s string) string {
	return cases.Upper(language.Turkish).String(s)
}

// Label returns the upper-cased Turkish label used in letters.
func (s Side) Label() string {
	switch s {
	case SideDebit:
		return upperTR("borç")
	case SideCredit:
		return upperTR("alacak")
	default:
		return ""
	}
}

// Fields is the data a template is resolved against.
type Fields struct {
	Period        string
	Amount        decimal.Decimal
	Currency      string
	Side          Side
	RecipientName string
	CompanyName   string
}

// Template is the externally supplied letter text.
type Template struct {
	Subject string
	Body    string
	Notes   string
}

// Content is a template with every placeholder resolved.
type Content struct {
	Subject string
	Body    string
	Notes   string
}

// Values maps each placeholder to its resolved text.
func Values(f Fields) map[Placeholder]string {
	return map[Placeholder]string{
		PlaceholderPeriod:    strings.TrimSpace(f.Period),
		PlaceholderAmount:    FormatAmount(f.Amount),
		PlaceholderSide:      f.Side.Label(),
		PlaceholderCurrency:  strings.ToUpper(strings.TrimSpace(f.Currency)),
		PlaceholderRecipient: upperTR(strings.TrimSpace(f.RecipientName)),
		PlaceholderCompany:   upperTR(strings.TrimSpace(f.CompanyName)),
	}
}

// Resolve substitutes every known placeholder in tmpl.
func Resolve(tmpl string, f Fields) string {
	if tmpl == "" {
		return ""
	}
	vals := Values(f)
	pairs := make([]string, 0, len(Placeholders)*2)
	for _, p := range Placeholders {
		pairs = append(pairs, string(p), vals[p])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Render resolves all parts of a template.
func Render(t Template, f Fields) Content {
	return Content{
		Subject: Resolve(t.Subject, f),
		Body:    Resolve(t.Body, f),
		Notes:   Resolve(t.Notes, f),
	}
}

// FormatAmount renders d with two decimals, "." thousands separators and a "," decimal mark.
func FormatAmount(d decimal.Decimal) string {
	s := d.Round(2).StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
