package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pacioli/internal/core"
	"pacioli/internal/ledger"
	"pacioli/internal/memoranda"
)

type fakeLedgerStore struct {
	entries  []core.LedgerEntry
	journals map[int64]ledger.JournalEntryDetail
	elements []core.Element
}

func (f *fakeLedgerStore) FindEntries(_ context.Context, filter ledger.EntryFilter, _ ledger.EntryOrder) ([]core.LedgerEntry, error) {
	var out []core.LedgerEntry
	for _, e := range f.entries {
		if filter.Ledger != "" && e.Ledger != filter.Ledger {
			continue
		}
		if filter.Currency != "" && e.Currency != filter.Currency {
			continue
		}
		if !filter.DateTo.IsZero() && e.Date.After(filter.DateTo.Time) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeLedgerStore) AggregateByPeriod(_ context.Context, filter ledger.EntryFilter, g ledger.Granularity, side core.Side) ([]core.PeriodTotal, error) {
	sums := map[core.Date]int64{}
	for _, e := range f.entries {
		if e.Ledger != filter.Ledger || e.Side != side {
			continue
		}
		if filter.Currency != "" && e.Currency != filter.Currency {
			continue
		}
		period := e.Date
		if g == ledger.ByMonth {
			period = period.FirstOfMonth()
		}
		sums[period] += e.Amount.Cents
	}
	var out []core.PeriodTotal
	for p, total := range sums {
		out = append(out, core.PeriodTotal{Period: p, Total: core.Money{Cents: total}})
	}
	return out, nil
}

func (f *fakeLedgerStore) ListEntryAccounts(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	for _, e := range f.entries {
		if !seen[e.Ledger] {
			seen[e.Ledger] = true
			names = append(names, e.Ledger)
		}
	}
	return names, nil
}

func (f *fakeLedgerStore) FindJournalEntry(_ context.Context, id int64) (ledger.JournalEntryDetail, error) {
	d, ok := f.journals[id]
	if !ok {
		return ledger.JournalEntryDetail{}, ledger.ErrNotFound
	}
	return d, nil
}

func (f *fakeLedgerStore) FindAccountHierarchy(context.Context) ([]core.Element, error) {
	return f.elements, nil
}

type fakeMemoStore struct {
	memos    []memoranda.MemorandumSummary
	txs      map[string][]core.MemorandaTransaction
	nextTxID int64
	deleted  []string
}

func (f *fakeMemoStore) SaveMemorandum(_ context.Context, m core.Memorandum, txs []core.MemorandaTransaction) error {
	f.memos = append(f.memos, memoranda.MemorandumSummary{Memorandum: m, Transactions: len(txs)})
	if f.txs == nil {
		f.txs = map[string][]core.MemorandaTransaction{}
	}
	for _, tx := range txs {
		f.nextTxID++
		tx.ID = f.nextTxID
		f.txs[m.ID] = append(f.txs[m.ID], tx)
	}
	return nil
}

func (f *fakeMemoStore) ListMemoranda(context.Context) ([]memoranda.MemorandumSummary, error) {
	return f.memos, nil
}

func (f *fakeMemoStore) ListTransactions(_ context.Context, id string) ([]core.MemorandaTransaction, error) {
	txs, ok := f.txs[id]
	if !ok {
		return nil, memoranda.ErrNotFound
	}
	return txs, nil
}

func (f *fakeMemoStore) SaveJournalEntry(_ context.Context, transactionID int64, _ core.JournalEntry) (int64, error) {
	for id, txs := range f.txs {
		for i, tx := range txs {
			if tx.ID == transactionID {
				f.txs[id][i].JournalEntryID = transactionID
			}
		}
	}
	return transactionID, nil
}

func (f *fakeMemoStore) DeleteMemorandumCascade(_ context.Context, id string) error {
	if _, ok := f.txs[id]; !ok {
		return memoranda.ErrNotFound
	}
	delete(f.txs, id)
	f.deleted = append(f.deleted, id)
	for i, m := range f.memos {
		if m.ID == id {
			f.memos = append(f.memos[:i], f.memos[i+1:]...)
			break
		}
	}
	return nil
}

func newTestServer(ls *fakeLedgerStore, ms *fakeMemoStore) *Server {
	if ls == nil {
		ls = &fakeLedgerStore{}
	}
	if ms == nil {
		ms = &fakeMemoStore{txs: map[string][]core.MemorandaTransaction{}}
	}
	return NewServer("127.0.0.1:0",
		ledger.NewService(ls),
		memoranda.NewService(ms, nil),
		1<<20, nil)
}

func doRequest(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func cashEntries() []core.LedgerEntry {
	return []core.LedgerEntry{
		{ID: 1, JournalEntryID: 1, Ledger: "Cash", Date: core.NewDate(2024, 1, 5), Side: core.Debit, Amount: core.Money{Cents: 100}, Currency: "USD", Type: "standard"},
		{ID: 2, JournalEntryID: 2, Ledger: "Cash", Date: core.NewDate(2024, 2, 5), Side: core.Credit, Amount: core.Money{Cents: 40}, Currency: "USD", Type: "standard"},
	}
}

func TestHandleLedgerAll(t *testing.T) {
	s := newTestServer(&fakeLedgerStore{entries: cashEntries()}, nil)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/ledgers/Cash?groupby=All", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	view := decodeBody[ledgerViewJSON](t, rec)
	if view.Account.TotalDebit != 100 || view.Account.TotalCredit != 40 {
		t.Errorf("totals = %+v", view.Account)
	}
	if view.Account.DebitBalance != 60 || view.Account.CreditBalance != 0 {
		t.Errorf("balance = %+v", view.Account)
	}
	if len(view.Entries) != 2 || len(view.Buckets) != 0 {
		t.Errorf("expected entries only, got %d entries %d buckets", len(view.Entries), len(view.Buckets))
	}
}

func TestHandleLedgerMonthly(t *testing.T) {
	s := newTestServer(&fakeLedgerStore{entries: cashEntries()}, nil)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/ledgers/Cash?groupby=Monthly", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	view := decodeBody[ledgerViewJSON](t, rec)
	if len(view.Buckets) != 2 || len(view.Entries) != 0 {
		t.Fatalf("expected buckets only, got %d buckets %d entries", len(view.Buckets), len(view.Entries))
	}
	// January is debit-only; its credit side must stay absent.
	jan := view.Buckets[0]
	if jan.Period != "2024-01-01" || jan.DebitCents == nil || *jan.DebitCents != 100 || jan.CreditCents != nil {
		t.Errorf("january bucket = %+v", jan)
	}
}

func TestHandleLedgerBadGroupBy(t *testing.T) {
	s := newTestServer(nil, nil)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/ledgers/Cash?groupby=weekly", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleBalance(t *testing.T) {
	s := newTestServer(&fakeLedgerStore{entries: cashEntries()}, nil)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/ledgers/Cash/balance?date=2024-01-31", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	b := decodeBody[balanceJSON](t, rec)
	if b.DebitBalance != 100 || b.CreditBalance != 0 {
		t.Errorf("balance = %+v", b)
	}

	rec = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/ledgers/Cash/balance?date=not-a-date", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unparseable date status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/ledgers/Cash/balance", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing date status = %d, want 400", rec.Code)
	}
}

func TestHandleGeneralLedger(t *testing.T) {
	entries := cashEntries()
	entries = append(entries, core.LedgerEntry{
		ID: 3, JournalEntryID: 2, Ledger: "Revenue", Date: core.NewDate(2024, 2, 5),
		Side: core.Debit, Amount: core.Money{Cents: 40}, Currency: "USD", Type: "standard",
	})
	s := newTestServer(&fakeLedgerStore{entries: entries}, nil)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/ledgers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	accounts := decodeBody[[]footedAccountJSON](t, rec)
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
}

func TestHandleJournalEntry(t *testing.T) {
	store := &fakeLedgerStore{journals: map[int64]ledger.JournalEntryDetail{
		7: {
			Entry:       core.JournalEntry{ID: 7, TransactionID: 3, Entries: cashEntries()},
			Transaction: core.MemorandaTransaction{ID: 3, Details: `{"description":"sale"}`},
			Memorandum:  core.Memorandum{ID: "memo-1", FileName: "bank.csv", UploadedAt: core.NewDate(2024, 3, 1)},
		},
	}}
	s := newTestServer(store, nil)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/journal/7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	detail := decodeBody[journalDetailJSON](t, rec)
	if detail.ID != 7 || detail.MemorandumID != "memo-1" || len(detail.Entries) != 2 {
		t.Errorf("detail = %+v", detail)
	}

	rec = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/journal/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/journal/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", rec.Code)
	}
}

func TestHandleChart(t *testing.T) {
	store := &fakeLedgerStore{elements: []core.Element{
		{Name: "Assets", Classifications: []core.Classification{
			{Name: "Current Assets", Parent: "Assets", Accounts: []core.Account{
				{Name: "Cash", Parent: "Current Assets", SubAccounts: []core.SubAccount{
					{Name: "Petty Cash", Parent: "Cash"},
				}},
			}},
		}},
		{Name: "Revenues"},
	}}
	s := newTestServer(store, nil)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/chart", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	elements := decodeBody[[]elementJSON](t, rec)
	if len(elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(elements))
	}
	assets := elements[0]
	if assets.Name != "Assets" || len(assets.Classifications) != 1 {
		t.Fatalf("assets = %+v", assets)
	}
	cash := assets.Classifications[0].Accounts[0]
	if cash.Name != "Cash" || len(cash.SubAccounts) != 1 || cash.SubAccounts[0] != "Petty Cash" {
		t.Errorf("cash account = %+v", cash)
	}
}

func TestHandleUploadMemorandum(t *testing.T) {
	ms := &fakeMemoStore{txs: map[string][]core.MemorandaTransaction{}}
	s := newTestServer(nil, ms)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("memorandum", "bank.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("date,description,amount,currency,debit_account,credit_account\n" +
		"2024-01-05,office chair,125.50,USD,Office Equipment,Cash\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/memoranda", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(t, s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	m := decodeBody[memorandumJSON](t, rec)
	if m.ID == "" || m.FileName != "bank.csv" {
		t.Errorf("memorandum = %+v", m)
	}

	// With no queue configured the upload posts inline.
	txs := ms.txs[m.ID]
	if len(txs) != 1 || txs[0].JournalEntryID == 0 {
		t.Errorf("transactions not posted inline: %+v", txs)
	}
}

func TestHandleUploadMemorandumMalformed(t *testing.T) {
	s := newTestServer(nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("memorandum", "bad.csv")
	_, _ = fw.Write([]byte("2024-01-05,desc,not-a-number,USD,Cash,Revenue\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/memoranda", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(t, s, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleUploadMemorandumMissingFile(t *testing.T) {
	s := newTestServer(nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/memoranda", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(t, s, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDeleteMemorandum(t *testing.T) {
	ms := &fakeMemoStore{
		memos: []memoranda.MemorandumSummary{
			{Memorandum: core.Memorandum{ID: "memo-1", FileName: "bank.csv", UploadedAt: core.NewDate(2024, 3, 1)}, Transactions: 1},
		},
		txs: map[string][]core.MemorandaTransaction{"memo-1": {{ID: 1, MemorandumID: "memo-1"}}},
	}
	s := newTestServer(nil, ms)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodDelete, "/memoranda/memo-1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(ms.deleted) != 1 || ms.deleted[0] != "memo-1" {
		t.Errorf("deleted = %v", ms.deleted)
	}

	rec = doRequest(t, s, httptest.NewRequest(http.MethodDelete, "/memoranda/memo-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleListMemoranda(t *testing.T) {
	ms := &fakeMemoStore{
		memos: []memoranda.MemorandumSummary{
			{Memorandum: core.Memorandum{ID: "memo-1", FileName: "bank.csv", UploadedAt: core.NewDate(2024, 3, 1)}, Transactions: 2},
		},
		txs: map[string][]core.MemorandaTransaction{},
	}
	s := newTestServer(nil, ms)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/memoranda", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	memos := decodeBody[[]memorandumJSON](t, rec)
	if len(memos) != 1 || memos[0].Transactions != 2 {
		t.Errorf("memos = %+v", memos)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(nil, nil)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health body = %q", rec.Body.String())
	}
}
