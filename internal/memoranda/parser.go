// Package memoranda is the write side of the books: it ingests
// uploaded memoranda, derives balanced journal entries from their
// transactions and posts the resulting ledger entries.
package memoranda

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"pacioli/internal/core"
)

var (
	ErrEmptyMemorandum = errors.New("memorandum has no transactions")
	ErrMalformedRecord = errors.New("malformed memorandum record")
)

// TransactionDetails is the parsed payload of one memorandum line. It
// is serialized verbatim into the transaction's detail column so the
// journal entry's provenance stays inspectable.
type TransactionDetails struct {
	Date          string `json:"date"`
	Description   string `json:"description"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
}

// ParseMemorandum reads a CSV memorandum. Each record is
//
//	date,description,amount,currency,debit_account,credit_account
//
// with amount as a positive decimal in major units. A leading header
// row is tolerated. Any malformed record fails the whole parse; a
// partially ingested memorandum would be worse than a rejected one.
func ParseMemorandum(r io.Reader) ([]TransactionDetails, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6
	reader.TrimLeadingSpace = true

	var details []TransactionDetails
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read memorandum: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(record[0], "date") {
			continue
		}

		d, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		details = append(details, d)
	}
	if len(details) == 0 {
		return nil, ErrEmptyMemorandum
	}
	return details, nil
}

func parseRecord(record []string) (TransactionDetails, error) {
	date, err := core.ParseQueryDate(strings.TrimSpace(record[0]))
	if err != nil {
		return TransactionDetails{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	cents, err := core.ParseDecimalToCents(record[2])
	if err != nil {
		return TransactionDetails{}, fmt.Errorf("%w: amount %q", ErrMalformedRecord, record[2])
	}

	d := TransactionDetails{
		Date:          date.String(),
		Description:   strings.TrimSpace(record[1]),
		AmountCents:   cents,
		Currency:      strings.TrimSpace(record[3]),
		DebitAccount:  strings.TrimSpace(record[4]),
		CreditAccount: strings.TrimSpace(record[5]),
	}
	if d.Currency == "" || d.DebitAccount == "" || d.CreditAccount == "" {
		return TransactionDetails{}, fmt.Errorf("%w: missing currency or account", ErrMalformedRecord)
	}
	return d, nil
}

// journalEntryFrom fans one transaction out into its balanced ledger
// entry pair: a debit against one account and an equal credit against
// the other.
func journalEntryFrom(transactionID int64, d TransactionDetails) (core.JournalEntry, error) {
	date, err := core.ParseQueryDate(d.Date)
	if err != nil {
		return core.JournalEntry{}, fmt.Errorf("transaction %d: %w", transactionID, err)
	}

	je := core.JournalEntry{
		TransactionID: transactionID,
		Entries: []core.LedgerEntry{
			{
				Ledger:   d.DebitAccount,
				Date:     date,
				Side:     core.Debit,
				Amount:   core.Money{Cents: d.AmountCents},
				Currency: d.Currency,
				Type:     "standard",
			},
			{
				Ledger:   d.CreditAccount,
				Date:     date,
				Side:     core.Credit,
				Amount:   core.Money{Cents: d.AmountCents},
				Currency: d.Currency,
				Type:     "standard",
			},
		},
	}
	if err := je.Validate(); err != nil {
		return core.JournalEntry{}, fmt.Errorf("transaction %d: %w", transactionID, err)
	}
	return je, nil
}
