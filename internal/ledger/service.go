// Package ledger is the read side of the books: it turns persisted
// ledger entries into footed ledgers, journals and balances.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pacioli/internal/core"
)

// ErrNotFound is returned by the store for lookups of journal entries
// that do not exist.
var ErrNotFound = errors.New("journal entry not found")

// EntryOrder fixes the display ordering of an entry listing.
type EntryOrder int

const (
	OrderNone EntryOrder = iota
	// OrderDateDescSideDesc puts newest entries first, debits before
	// credits on equal dates. Ledger view contract.
	OrderDateDescSideDesc
	// OrderDateDescTypeDesc is the general journal ordering.
	OrderDateDescTypeDesc
)

// EntryFilter narrows an entry query. Zero values mean "no filter" for
// every field except Ledger, which the callers always set.
type EntryFilter struct {
	Ledger   string
	Currency string
	Side     core.Side
	DateTo   core.Date // inclusive cutoff
}

// Granularity selects the period key of a store-side aggregation.
type Granularity int

const (
	ByDay Granularity = iota
	ByMonth
)

// JournalEntryDetail is a journal entry with its provenance: the
// memoranda transaction it was derived from and the memorandum that
// transaction came in with.
type JournalEntryDetail struct {
	Entry       core.JournalEntry
	Transaction core.MemorandaTransaction
	Memorandum  core.Memorandum
}

// Store is the data access the read side consumes. The persistence
// layer implements it; the service never sees SQL.
type Store interface {
	FindEntries(ctx context.Context, f EntryFilter, order EntryOrder) ([]core.LedgerEntry, error)
	AggregateByPeriod(ctx context.Context, f EntryFilter, g Granularity, side core.Side) ([]core.PeriodTotal, error)
	ListEntryAccounts(ctx context.Context) ([]string, error)
	FindJournalEntry(ctx context.Context, id int64) (JournalEntryDetail, error)
	FindAccountHierarchy(ctx context.Context) ([]core.Element, error)
}

// LedgerView is the two-part query result: the footed summary plus the
// collection it was footed from. Mode tells the consumer which of
// Entries/Buckets is populated.
type LedgerView struct {
	Account core.FootedAccount
	Mode    core.FootingMode
	Entries []core.LedgerEntry
	Buckets []core.PeriodBucket
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// QueryEntries retrieves one account's ledger for a currency, shaped by
// the grouping mode. Unknown accounts or currencies yield an empty view
// with zero totals, not an error.
func (s *Service) QueryEntries(ctx context.Context, accountName string, groupBy core.GroupBy, currency string) (LedgerView, error) {
	filter := EntryFilter{Ledger: accountName, Currency: currency}

	switch groupBy {
	case core.GroupAll:
		entries, err := s.store.FindEntries(ctx, filter, OrderDateDescSideDesc)
		if err != nil {
			return LedgerView{}, fmt.Errorf("find entries for %q: %w", accountName, err)
		}
		return LedgerView{
			Account: core.FootEntries(accountName, entries),
			Mode:    core.Detail,
			Entries: entries,
		}, nil

	case core.GroupDaily, core.GroupMonthly:
		granularity := ByDay
		if groupBy == core.GroupMonthly {
			granularity = ByMonth
		}
		buckets, err := s.aggregate(ctx, filter, granularity)
		if err != nil {
			return LedgerView{}, err
		}
		return LedgerView{
			Account: core.FootBuckets(accountName, buckets),
			Mode:    core.Summary,
			Buckets: buckets,
		}, nil

	default:
		return LedgerView{}, fmt.Errorf("query entries for %q: %w", accountName, core.ErrInvalidGroupBy)
	}
}

// aggregate sums each side independently in the store, then merges the
// per-period sub-sums into ascending buckets.
func (s *Service) aggregate(ctx context.Context, f EntryFilter, g Granularity) ([]core.PeriodBucket, error) {
	debits, err := s.store.AggregateByPeriod(ctx, f, g, core.Debit)
	if err != nil {
		return nil, fmt.Errorf("aggregate debits for %q: %w", f.Ledger, err)
	}
	credits, err := s.store.AggregateByPeriod(ctx, f, g, core.Credit)
	if err != nil {
		return nil, fmt.Errorf("aggregate credits for %q: %w", f.Ledger, err)
	}
	return core.MergePeriodTotals(debits, credits), nil
}

// BalanceAsOf computes the account's signed balance over every entry
// dated on or before the cutoff.
func (s *Service) BalanceAsOf(ctx context.Context, accountName string, at core.Date) (core.Balance, error) {
	entries, err := s.store.FindEntries(ctx, EntryFilter{Ledger: accountName, DateTo: at}, OrderNone)
	if err != nil {
		return core.Balance{}, fmt.Errorf("find entries for balance of %q: %w", accountName, err)
	}
	return core.SumBalance(accountName, entries), nil
}

// Balance is the string-cutoff variant. The date is normalized exactly
// once, here at the boundary; anything unparseable is the caller's
// problem to report.
func (s *Service) Balance(ctx context.Context, accountName, queryDate string) (core.Balance, error) {
	at, err := core.ParseQueryDate(queryDate)
	if err != nil {
		return core.Balance{}, err
	}
	return s.BalanceAsOf(ctx, accountName, at)
}

// GeneralLedger foots every account that has postings.
func (s *Service) GeneralLedger(ctx context.Context) ([]core.FootedAccount, error) {
	names, err := s.store.ListEntryAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entry accounts: %w", err)
	}

	accounts := make([]core.FootedAccount, 0, len(names))
	for _, name := range names {
		entries, err := s.store.FindEntries(ctx, EntryFilter{Ledger: name}, OrderDateDescSideDesc)
		if err != nil {
			return nil, fmt.Errorf("find entries for %q: %w", name, err)
		}
		accounts = append(accounts, core.FootEntries(name, entries))
	}
	slog.DebugContext(ctx, "Footed general ledger", "accounts", len(accounts))
	return accounts, nil
}

// GeneralJournal lists every posted entry, newest first, debits grouped
// ahead of credits by entry type.
func (s *Service) GeneralJournal(ctx context.Context) ([]core.LedgerEntry, error) {
	entries, err := s.store.FindEntries(ctx, EntryFilter{}, OrderDateDescTypeDesc)
	if err != nil {
		return nil, fmt.Errorf("find journal entries: %w", err)
	}
	return entries, nil
}

// JournalEntry loads one journal entry with its provenance.
func (s *Service) JournalEntry(ctx context.Context, id int64) (JournalEntryDetail, error) {
	detail, err := s.store.FindJournalEntry(ctx, id)
	if err != nil {
		return JournalEntryDetail{}, fmt.Errorf("find journal entry %d: %w", id, err)
	}
	return detail, nil
}

// Chart returns the Element → Classification → Account hierarchy.
func (s *Service) Chart(ctx context.Context) ([]core.Element, error) {
	elements, err := s.store.FindAccountHierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("find account hierarchy: %w", err)
	}
	return elements, nil
}
