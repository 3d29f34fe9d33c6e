package core

import (
	"errors"
	"strings"
)

// Side is the transaction side of a ledger entry.
type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

func (s Side) Validate() error {
	switch s {
	case Debit, Credit:
		return nil
	default:
		return ErrInvalidSide
	}
}

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidSide       = errors.New("invalid transaction side")
	ErrEmptyLedger       = errors.New("empty ledger account name")
	ErrEmptyCurrency     = errors.New("empty currency")
	ErrUnparseableDate   = errors.New("unparseable date")
	ErrUnbalancedJournal = errors.New("journal entry does not balance")
)

// LedgerEntry is one signed posting against one account. Once posted it
// is immutable; it only goes away when its memorandum is deleted.
type LedgerEntry struct {
	ID             int64
	JournalEntryID int64
	Ledger         string // leaf account name in the chart of accounts
	Date           Date
	Side           Side
	Amount         Money // non-negative magnitude, Side carries direction
	Currency       string
	Type           string
}

func (e LedgerEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Ledger) == "" {
		return ErrEmptyLedger
	}
	if err := e.Side.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Currency) == "" {
		return ErrEmptyCurrency
	}
	return nil
}

// Signed returns the amount with the debit-positive sign convention.
func (e LedgerEntry) Signed() int64 {
	if e.Side == Credit {
		return -e.Amount.Cents
	}
	return e.Amount.Cents
}

// JournalEntry groups the ledger entries recording one business event.
// It owns no computed state.
type JournalEntry struct {
	ID            int64
	TransactionID int64
	Entries       []LedgerEntry
}

// Net returns the per-currency signed sum of the entries. A balanced
// journal entry nets to zero in every currency it touches.
func (j JournalEntry) Net() map[string]int64 {
	net := make(map[string]int64)
	for _, e := range j.Entries {
		net[e.Currency] += e.Signed()
	}
	return net
}

// Validate enforces the double-entry balance law: at least one debit
// and one credit, every entry valid, zero net effect per currency.
func (j JournalEntry) Validate() error {
	if len(j.Entries) < 2 {
		return ErrUnbalancedJournal
	}
	var debits, credits int
	for _, e := range j.Entries {
		if err := e.Validate(); err != nil {
			return err
		}
		switch e.Side {
		case Debit:
			debits++
		case Credit:
			credits++
		}
	}
	if debits == 0 || credits == 0 {
		return ErrUnbalancedJournal
	}
	for _, net := range j.Net() {
		if net != 0 {
			return ErrUnbalancedJournal
		}
	}
	return nil
}

// MemorandaTransaction is one parsed record of an uploaded memorandum.
// Details holds the serialized source payload the journal entry was
// derived from.
type MemorandaTransaction struct {
	ID             int64
	MemorandumID   string
	JournalEntryID int64
	Details        string
}

// Memorandum is an uploaded source document. Its transactions, their
// journal entries and the resulting ledger entries are owned by it and
// deleted together.
type Memorandum struct {
	ID         string
	FileName   string
	UploadedAt Date
}
