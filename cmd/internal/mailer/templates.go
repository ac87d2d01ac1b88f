package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var istanbul = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		return time.FixedZone("TRT", 3*60*60)
	}
	return loc
}()

var otpHTML = template.Must(template.New("otp").Parse(`<!doctype html>
<html lang="tr"><body style="font-family:Arial,sans-serif;color:#1f2937">
<p>Sayın {{.Name}},</p>
<p>Mutabakat mektubunu görüntülemek için doğrulama kodunuz:</p>
<p style="font-size:28px;font-weight:bold;letter-spacing:6px">{{.Code}}</p>
<p>Bu kod {{.Minutes}} dakika geçerlidir. Kodu kimseyle paylaşmayınız.</p>
</body></html>`))

var linkHTML = template.Must(template.New("link").Parse(`<!doctype html>
<html lang="tr"><body style="font-family:Arial,sans-serif;color:#1f2937">
<p>Sayın {{.Name}},</p>
<p>{{.Company}} tarafından size bir cari hesap mutabakatı gönderilmiştir.</p>
<p><a href="{{.URL}}">Mutabakatı görüntüle ve yanıtla</a></p>
<p>Bağlantı {{.Expires}} tarihine kadar geçerlidir ve yalnızca bir kez yanıtlanabilir.</p>
</body></html>`))

type otpData struct {
	Name    string
	Code    string
	Minutes int
}

type linkData struct {
	Name    string
	Company string
	URL     string
	Expires string
}

func ttlMinutes(ttl time.Duration) int {
	m := int((ttl + time.Minute - 1) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

func formatExpiry(t time.Time) string {
	return t.In(istanbul).Format("02.01.2006 15:04")
}

func renderOtp(name, code string, ttl time.Duration) (subject, plain, html string, err error) {
	d := otpData{Name: displayName(name), Code: code, Minutes: ttlMinutes(ttl)}
	var buf bytes.Buffer
	if err := otpHTML.Execute(&buf, d); err != nil {
		return "", "", "", err
	}
	subject = "Mutabakat doğrulama kodu"
	plain = fmt.Sprintf("Sayın %s,\n\nDoğrulama kodunuz: %s\nBu kod %d dakika geçerlidir.\n", d.Name, d.Code, d.Minutes)
	return subject, plain, buf.String(), nil
}

func renderLink(name, company, url string, expiresAt time.Time) (subject, plain, html string, err error) {
	d := linkData{Name: displayName(name), Company: company, URL: url, Expires: formatExpiry(expiresAt)}
	var buf bytes.Buffer
	if err := linkHTML.Execute(&buf, d); err != nil {
		return "", "", "", err
	}
	subject = company + " - Cari hesap mutabakatı"
	plain = fmt.Sprintf("Sayın %s,\n\n%s tarafından size bir mutabakat gönderilmiştir.\n%s\n\nBağlantı %s tarihine kadar geçerlidir.\n",
		d.Name, d.Company, d.URL, d.Expires)
	return subject, plain, buf.String(), nil
}

func displayName(name string) string {
	if name == "" {
		return "Yetkili"
	}
	return name
}
