package core

import (
	"errors"
	"testing"
)

func validDebit() LedgerEntry {
	return LedgerEntry{
		Ledger:   "Cash",
		Date:     NewDate(2024, 1, 1),
		Side:     Debit,
		Amount:   Money{Cents: 100},
		Currency: "USD",
		Type:     "standard",
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LedgerEntry)
		want   error
	}{
		{"valid", func(e *LedgerEntry) {}, nil},
		{"zero date", func(e *LedgerEntry) { e.Date = Date{} }, ErrInvalidDate},
		{"empty ledger", func(e *LedgerEntry) { e.Ledger = "  " }, ErrEmptyLedger},
		{"bad side", func(e *LedgerEntry) { e.Side = "withdrawal" }, ErrInvalidSide},
		{"negative amount", func(e *LedgerEntry) { e.Amount.Cents = -5 }, ErrInvalidAmount},
		{"empty currency", func(e *LedgerEntry) { e.Currency = "" }, ErrEmptyCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validDebit()
			tt.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLedgerEntrySigned(t *testing.T) {
	d := validDebit()
	if d.Signed() != 100 {
		t.Errorf("debit Signed() = %d, want 100", d.Signed())
	}
	c := validDebit()
	c.Side = Credit
	if c.Signed() != -100 {
		t.Errorf("credit Signed() = %d, want -100", c.Signed())
	}
}

func TestJournalEntryValidate(t *testing.T) {
	debit := validDebit()
	credit := validDebit()
	credit.Ledger = "Revenue"
	credit.Side = Credit

	balanced := JournalEntry{Entries: []LedgerEntry{debit, credit}}
	if err := balanced.Validate(); err != nil {
		t.Fatalf("balanced journal entry should validate, got %v", err)
	}

	t.Run("too few entries", func(t *testing.T) {
		je := JournalEntry{Entries: []LedgerEntry{debit}}
		if !errors.Is(je.Validate(), ErrUnbalancedJournal) {
			t.Error("expected ErrUnbalancedJournal")
		}
	})

	t.Run("same side only", func(t *testing.T) {
		je := JournalEntry{Entries: []LedgerEntry{debit, debit}}
		if !errors.Is(je.Validate(), ErrUnbalancedJournal) {
			t.Error("expected ErrUnbalancedJournal")
		}
	})

	t.Run("non-zero net", func(t *testing.T) {
		short := credit
		short.Amount.Cents = 90
		je := JournalEntry{Entries: []LedgerEntry{debit, short}}
		if !errors.Is(je.Validate(), ErrUnbalancedJournal) {
			t.Error("expected ErrUnbalancedJournal")
		}
	})

	t.Run("balances per currency", func(t *testing.T) {
		eurDebit := validDebit()
		eurDebit.Currency = "EUR"
		eurCredit := credit
		eurCredit.Currency = "EUR"
		je := JournalEntry{Entries: []LedgerEntry{debit, credit, eurDebit, eurCredit}}
		if err := je.Validate(); err != nil {
			t.Errorf("per-currency balanced entry should validate, got %v", err)
		}

		// USD debit offset by EUR credit must not count as balanced.
		mixed := JournalEntry{Entries: []LedgerEntry{debit, eurCredit}}
		if !errors.Is(mixed.Validate(), ErrUnbalancedJournal) {
			t.Error("cross-currency offset should not balance")
		}
	})

	t.Run("invalid constituent entry", func(t *testing.T) {
		bad := credit
		bad.Currency = ""
		je := JournalEntry{Entries: []LedgerEntry{debit, bad}}
		if !errors.Is(je.Validate(), ErrEmptyCurrency) {
			t.Error("expected constituent validation error")
		}
	})
}
