package memoranda

import (
	"errors"
	"strings"
	"testing"

	"pacioli/internal/core"
)

func TestParseMemorandum(t *testing.T) {
	input := `date,description,amount,currency,debit_account,credit_account
2024-01-01,Opening deposit,100.00,USD,Cash,Equity
2024-01-02,Office chair,49.99,USD,Furniture,Cash
`
	details, err := ParseMemorandum(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseMemorandum: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(details))
	}

	first := details[0]
	if first.Date != "2024-01-01" || first.AmountCents != 10000 {
		t.Errorf("first record = %+v", first)
	}
	if first.DebitAccount != "Cash" || first.CreditAccount != "Equity" {
		t.Errorf("first record accounts = %q/%q", first.DebitAccount, first.CreditAccount)
	}
	if details[1].AmountCents != 4999 {
		t.Errorf("second amount = %d, want 4999", details[1].AmountCents)
	}
}

func TestParseMemorandumNoHeader(t *testing.T) {
	input := "2024-01-01,Deposit,10.00,USD,Cash,Equity\n"
	details, err := ParseMemorandum(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseMemorandum: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(details))
	}
}

func TestParseMemorandumRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad date", "not-a-date,Deposit,10.00,USD,Cash,Equity\n"},
		{"bad amount", "2024-01-01,Deposit,-5,USD,Cash,Equity\n"},
		{"missing currency", "2024-01-01,Deposit,10.00,,Cash,Equity\n"},
		{"missing account", "2024-01-01,Deposit,10.00,USD,,Equity\n"},
		{"wrong field count", "2024-01-01,Deposit,10.00,USD,Cash\n"},
		{"empty file", ""},
		{"header only", "date,description,amount,currency,debit_account,credit_account\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMemorandum(strings.NewReader(tt.input)); err == nil {
				t.Errorf("expected error for %q", tt.input)
			}
		})
	}
}

func TestParseMemorandumBadLineFailsWholeParse(t *testing.T) {
	input := "2024-01-01,Deposit,10.00,USD,Cash,Equity\nbad-date,Oops,1.00,USD,Cash,Equity\n"
	_, err := ParseMemorandum(strings.NewReader(input))
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestJournalEntryFromBalances(t *testing.T) {
	je, err := journalEntryFrom(7, TransactionDetails{
		Date:          "2024-03-01",
		Description:   "Sale",
		AmountCents:   2500,
		Currency:      "USD",
		DebitAccount:  "Cash",
		CreditAccount: "Revenue",
	})
	if err != nil {
		t.Fatalf("journalEntryFrom: %v", err)
	}
	if je.TransactionID != 7 {
		t.Errorf("TransactionID = %d", je.TransactionID)
	}
	if len(je.Entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(je.Entries))
	}
	if err := je.Validate(); err != nil {
		t.Errorf("derived journal entry must balance: %v", err)
	}
	if net := je.Net()["USD"]; net != 0 {
		t.Errorf("net = %d, want 0", net)
	}
	if je.Entries[0].Side != core.Debit || je.Entries[0].Ledger != "Cash" {
		t.Errorf("debit leg = %+v", je.Entries[0])
	}
	if je.Entries[1].Side != core.Credit || je.Entries[1].Ledger != "Revenue" {
		t.Errorf("credit leg = %+v", je.Entries[1])
	}
}

func TestJournalEntryFromRejectsBadDetails(t *testing.T) {
	_, err := journalEntryFrom(1, TransactionDetails{
		Date:          "garbage",
		AmountCents:   100,
		Currency:      "USD",
		DebitAccount:  "Cash",
		CreditAccount: "Revenue",
	})
	if !errors.Is(err, core.ErrUnparseableDate) {
		t.Errorf("expected ErrUnparseableDate, got %v", err)
	}
}
