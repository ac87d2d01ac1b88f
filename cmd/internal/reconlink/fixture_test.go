package reconlink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/letter"

	"github.com/shopspring/decimal"
)

var testEpoch = time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentOtp struct {
	to   string
	name string
	code string
}

type stubMailer struct {
	mu   sync.Mutex
	sent []sentOtp
	fail error
}

func (m *stubMailer) SendOtpEmail(_ context.Context, to, name, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentOtp{to: to, name: name, code: code})
	return nil
}

func (m *stubMailer) last(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected an OTP email")
	}
	return m.sent[len(m.sent)-1].code
}

type countingMetrics struct {
	mu  sync.Mutex
	ops map[string]int
}

func (m *countingMetrics) ObserveOperation(op, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops == nil {
		m.ops = make(map[string]int)
	}
	m.ops[op+"/"+outcome]++
}

func (m *countingMetrics) ObserveDelivery(string, string) {}

func (m *countingMetrics) count(op, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops[op+"/"+outcome]
}

type fixture struct {
	store   *MemoryStore
	svc     *Service
	clock   *testClock
	mailer  *stubMailer
	metrics *countingMetrics
	ref     string
	linkID  string
}

const (
	testCompanyID = "cmp-1"
	testReconID   = "rec-2025-03"
	testRecordID  = "row-1"
	testEmail     = "ali.veli@example.com"
)

func newFixture(t *testing.T, pol Policy) *fixture {
	t.Helper()

	f := &fixture{
		store:   NewMemoryStore(),
		clock:   &testClock{now: testEpoch},
		mailer:  &stubMailer{},
		metrics: &countingMetrics{},
	}
	f.store.PutCompany(Company{ID: testCompanyID, Name: "Acme A.Ş.", Email: "finans@acme.test"}, pol)
	f.store.PutReconciliation(testCompanyID, Reconciliation{
		ID:     testReconID,
		Period: "2025-03",
		Template: letter.Template{
			Subject: "%DÖNEM% mutabakatı",
			Body:    "Sayın %CARİUNVAN%, %DÖNEM% itibarıyla %TUTAR% %PARABİRİMİ% %BORÇALACAK% bakiyeniz bulunmaktadır. %FİRMAUNVAN%",
		},
	})
	f.store.PutRecord(testReconID, testRecordID, Counterparty{
		Name:        "Veli Ticaret",
		Email:       testEmail,
		TaxNumber:   "1234567890",
		Amount:      decimal.RequireFromString("15000.50"),
		Currency:    "TRY",
		BalanceType: letter.SideDebit,
	})

	codes := []string{"111111", "222222", "333333", "444444", "555555"}
	var codeMu sync.Mutex
	next := 0
	gen := func() (string, error) {
		codeMu.Lock()
		defer codeMu.Unlock()
		c := codes[next%len(codes)]
		next++
		return c, nil
	}

	svc, err := NewService(f.store, f.store,
		WithClock(f.clock.Now),
		WithMailer(f.mailer),
		WithMetrics(f.metrics),
		WithCodeGenerator(gen),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc

	iss, err := svc.IssueLink(context.Background(), IssueInput{RecordID: testRecordID})
	if err != nil {
		t.Fatalf("issue link: %v", err)
	}
	f.ref = iss.Link.ReferenceCode
	f.linkID = iss.Link.ID
	return f
}

func (f *fixture) link(t *testing.T) Link {
	t.Helper()
	rec, err := f.store.GetByReference(context.Background(), f.ref)
	if err != nil {
		t.Fatalf("get link: %v", err)
	}
	return rec.Link
}

func (f *fixture) eventKinds() []string {
	evs := f.store.Events(f.linkID)
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Kind)
	}
	return out
}

func mustBeError(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
