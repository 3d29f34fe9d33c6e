package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"pacioli/internal/core"
	"pacioli/internal/ledger"
	"pacioli/internal/log"
	"pacioli/internal/memoranda"
)

type footedAccountJSON struct {
	Account       string `json:"account"`
	TotalDebit    int64  `json:"total_debit_cents"`
	TotalCredit   int64  `json:"total_credit_cents"`
	DebitBalance  int64  `json:"debit_balance_cents"`
	CreditBalance int64  `json:"credit_balance_cents"`
}

type entryJSON struct {
	ID             int64  `json:"id"`
	JournalEntryID int64  `json:"journal_entry_id"`
	Ledger         string `json:"ledger"`
	Date           string `json:"date"`
	Side           string `json:"side"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Type           string `json:"type"`
}

type bucketJSON struct {
	Period      string `json:"period"`
	DebitCents  *int64 `json:"debit_cents,omitempty"`
	CreditCents *int64 `json:"credit_cents,omitempty"`
}

type ledgerViewJSON struct {
	Account footedAccountJSON `json:"account"`
	GroupBy string            `json:"groupby"`
	Entries []entryJSON       `json:"entries,omitempty"`
	Buckets []bucketJSON      `json:"buckets,omitempty"`
}

type balanceJSON struct {
	Account       string `json:"account"`
	DebitBalance  int64  `json:"debit_balance_cents"`
	CreditBalance int64  `json:"credit_balance_cents"`
}

type journalDetailJSON struct {
	ID            int64       `json:"id"`
	TransactionID int64       `json:"transaction_id"`
	Entries       []entryJSON `json:"entries"`
	Details       string      `json:"transaction_details"`
	MemorandumID  string      `json:"memorandum_id"`
	FileName      string      `json:"memorandum_file"`
	UploadedAt    string      `json:"memorandum_uploaded_at"`
}

type memorandumJSON struct {
	ID           string `json:"id"`
	FileName     string `json:"file_name"`
	UploadedAt   string `json:"uploaded_at"`
	Transactions int    `json:"transactions,omitempty"`
}

type transactionJSON struct {
	ID             int64           `json:"id"`
	JournalEntryID int64           `json:"journal_entry_id,omitempty"`
	Details        json.RawMessage `json:"details"`
}

type accountJSON struct {
	Name        string   `json:"name"`
	SubAccounts []string `json:"sub_accounts,omitempty"`
}

type classificationJSON struct {
	Name     string        `json:"name"`
	Accounts []accountJSON `json:"accounts,omitempty"`
}

type elementJSON struct {
	Name            string               `json:"name"`
	Classifications []classificationJSON `json:"classifications,omitempty"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func toFootedAccountJSON(a core.FootedAccount) footedAccountJSON {
	return footedAccountJSON{
		Account:       a.AccountName,
		TotalDebit:    a.TotalDebit.Cents,
		TotalCredit:   a.TotalCredit.Cents,
		DebitBalance:  a.DebitBalance.Cents,
		CreditBalance: a.CreditBalance.Cents,
	}
}

func toEntryJSON(e core.LedgerEntry) entryJSON {
	return entryJSON{
		ID:             e.ID,
		JournalEntryID: e.JournalEntryID,
		Ledger:         e.Ledger,
		Date:           e.Date.String(),
		Side:           string(e.Side),
		AmountCents:    e.Amount.Cents,
		Currency:       e.Currency,
		Type:           e.Type,
	}
}

func toEntriesJSON(entries []core.LedgerEntry) []entryJSON {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = toEntryJSON(e)
	}
	return out
}

func toBucketsJSON(buckets []core.PeriodBucket) []bucketJSON {
	out := make([]bucketJSON, len(buckets))
	for i, b := range buckets {
		bj := bucketJSON{Period: b.Period.String()}
		if b.HasDebit {
			d := b.Debit.Cents
			bj.DebitCents = &d
		}
		if b.HasCredit {
			c := b.Credit.Cents
			bj.CreditCents = &c
		}
		out[i] = bj
	}
	return out
}

func (s *Server) handleGeneralLedger(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledgers.GeneralLedger(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]footedAccountJSON, len(accounts))
	for i, a := range accounts {
		out[i] = toFootedAccountJSON(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	groupBy, err := core.ParseGroupBy(r.URL.Query().Get("groupby"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.ledgers.QueryEntries(r.Context(), account, groupBy, r.URL.Query().Get("currency"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := ledgerViewJSON{
		Account: toFootedAccountJSON(view.Account),
		GroupBy: groupBy.String(),
	}
	switch view.Mode {
	case core.Detail:
		out.Entries = toEntriesJSON(view.Entries)
	case core.Summary:
		out.Buckets = toBucketsJSON(view.Buckets)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	queryDate := r.URL.Query().Get("date")
	if queryDate == "" {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "date query parameter is required"})
		return
	}

	balance, err := s.ledgers.Balance(r.Context(), account, queryDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceJSON{
		Account:       balance.AccountName,
		DebitBalance:  balance.DebitBalance.Cents,
		CreditBalance: balance.CreditBalance.Cents,
	})
}

func (s *Server) handleGeneralJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledgers.GeneralJournal(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntriesJSON(entries))
}

func (s *Server) handleJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "journal entry id must be an integer"})
		return
	}

	detail, err := s.ledgers.JournalEntry(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, journalDetailJSON{
		ID:            detail.Entry.ID,
		TransactionID: detail.Entry.TransactionID,
		Entries:       toEntriesJSON(detail.Entry.Entries),
		Details:       detail.Transaction.Details,
		MemorandumID:  detail.Memorandum.ID,
		FileName:      detail.Memorandum.FileName,
		UploadedAt:    detail.Memorandum.UploadedAt.String(),
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	elements, err := s.ledgers.Chart(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]elementJSON, len(elements))
	for i, el := range elements {
		ej := elementJSON{Name: el.Name}
		for _, cl := range el.Classifications {
			cj := classificationJSON{Name: cl.Name}
			for _, a := range cl.Accounts {
				aj := accountJSON{Name: a.Name}
				for _, sub := range a.SubAccounts {
					aj.SubAccounts = append(aj.SubAccounts, sub.Name)
				}
				cj.Accounts = append(cj.Accounts, aj)
			}
			ej.Classifications = append(ej.Classifications, cj)
		}
		out[i] = ej
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListMemoranda(w http.ResponseWriter, r *http.Request) {
	memos, err := s.memos.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]memorandumJSON, len(memos))
	for i, m := range memos {
		out[i] = memorandumJSON{
			ID:           m.ID,
			FileName:     m.FileName,
			UploadedAt:   m.UploadedAt.String(),
			Transactions: m.Transactions,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUploadMemorandum(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "malformed multipart upload"})
		return
	}
	file, header, err := r.FormFile("memorandum")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "memorandum file is required"})
		return
	}
	defer file.Close()

	m, err := s.memos.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, memorandumJSON{
		ID:         m.ID,
		FileName:   m.FileName,
		UploadedAt: m.UploadedAt.String(),
	})
}

func (s *Server) handleMemorandumTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.memos.Transactions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]transactionJSON, len(txs))
	for i, tx := range txs {
		out[i] = transactionJSON{
			ID:             tx.ID,
			JournalEntryID: tx.JournalEntryID,
			Details:        json.RawMessage(tx.Details),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteMemorandum(w http.ResponseWriter, r *http.Request) {
	if err := s.memos.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps domain errors onto status codes. Validation and parse
// failures are the client's fault; missing records are 404; everything
// else is a 500 whose detail stays in the logs.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidGroupBy),
		errors.Is(err, core.ErrUnparseableDate),
		errors.Is(err, memoranda.ErrEmptyMemorandum),
		errors.Is(err, memoranda.ErrMalformedRecord):
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, memoranda.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorJSON{Error: err.Error()})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			"path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
