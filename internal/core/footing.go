package core

import (
	"errors"
	"sort"
)

// GroupBy selects how a ledger query shapes its result set.
type GroupBy int

const (
	GroupAll GroupBy = iota
	GroupDaily
	GroupMonthly
)

var ErrInvalidGroupBy = errors.New("invalid groupby")

// ParseGroupBy maps the external representation to the closed enum.
// Unknown values are an error rather than a fall-through.
func ParseGroupBy(s string) (GroupBy, error) {
	switch s {
	case "All", "":
		return GroupAll, nil
	case "Daily":
		return GroupDaily, nil
	case "Monthly":
		return GroupMonthly, nil
	default:
		return GroupAll, ErrInvalidGroupBy
	}
}

func (g GroupBy) String() string {
	switch g {
	case GroupDaily:
		return "Daily"
	case GroupMonthly:
		return "Monthly"
	default:
		return "All"
	}
}

// FootingMode tells report consumers which shape the query produced:
// raw entries (Detail) or per-period buckets (Summary).
type FootingMode int

const (
	Detail FootingMode = iota
	Summary
)

// FootedAccount is the computed totals row for one account. It is
// request-scoped and never persisted.
type FootedAccount struct {
	AccountName   string
	TotalDebit    Money
	TotalCredit   Money
	DebitBalance  Money
	CreditBalance Money
}

// PeriodTotal is one side's aggregated amount for one period, as
// produced by the data store's summation.
type PeriodTotal struct {
	Period Date
	Total  Money
}

// PeriodBucket merges the debit and credit sub-sums for one period.
// A side a period never touched stays absent rather than zero, so
// displays can distinguish "no postings" from "netted to nothing".
type PeriodBucket struct {
	Period    Date
	Debit     Money
	Credit    Money
	HasDebit  bool
	HasCredit bool
}

// FootEntries foots raw ledger entries (Detail mode). Entries are
// re-checked against the account name even when the caller already
// filtered; a query path returning mixed-account entries must not
// poison the totals.
func FootEntries(accountName string, entries []LedgerEntry) FootedAccount {
	acct := FootedAccount{AccountName: accountName}
	for _, e := range entries {
		if e.Ledger != accountName {
			continue
		}
		switch e.Side {
		case Debit:
			acct.TotalDebit.Cents += e.Amount.Cents
		case Credit:
			acct.TotalCredit.Cents += e.Amount.Cents
		}
	}
	return settle(acct)
}

// FootBuckets foots pre-aggregated period buckets (Summary mode).
// Absent sides count as zero.
func FootBuckets(accountName string, buckets []PeriodBucket) FootedAccount {
	acct := FootedAccount{AccountName: accountName}
	for _, b := range buckets {
		if b.HasDebit {
			acct.TotalDebit.Cents += b.Debit.Cents
		}
		if b.HasCredit {
			acct.TotalCredit.Cents += b.Credit.Cents
		}
	}
	return settle(acct)
}

// settle assigns |totalDebit - totalCredit| to the side with the larger
// total. Exactly one of the balances is non-zero; equal totals leave
// both at zero.
func settle(acct FootedAccount) FootedAccount {
	switch {
	case acct.TotalDebit.Cents > acct.TotalCredit.Cents:
		acct.DebitBalance.Cents = acct.TotalDebit.Cents - acct.TotalCredit.Cents
	case acct.TotalDebit.Cents < acct.TotalCredit.Cents:
		acct.CreditBalance.Cents = acct.TotalCredit.Cents - acct.TotalDebit.Cents
	}
	return acct
}

// MergePeriodTotals combines per-side period sums into buckets. The
// construction pass and the ordering pass are separate on purpose: the
// map is built first, then sorted by period ascending. Note the
// asymmetry with the All-mode entry ordering, which is date descending.
func MergePeriodTotals(debits, credits []PeriodTotal) []PeriodBucket {
	byPeriod := make(map[Date]PeriodBucket)
	for _, d := range debits {
		b := byPeriod[d.Period]
		b.Period = d.Period
		b.Debit = d.Total
		b.HasDebit = true
		byPeriod[d.Period] = b
	}
	for _, c := range credits {
		b := byPeriod[c.Period]
		b.Period = c.Period
		b.Credit = c.Total
		b.HasCredit = true
		byPeriod[c.Period] = b
	}

	buckets := make([]PeriodBucket, 0, len(byPeriod))
	for _, b := range byPeriod {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Period.Before(buckets[j].Period.Time)
	})
	return buckets
}
