package core

// The chart of accounts is a three-level hierarchy: Element (Assets,
// Liabilities, ...) → Classification → Account, with optional
// sub-accounts under an account. Ledger entries reference leaves by
// name; names are opaque and matched case-sensitively.

type Element struct {
	Name            string
	Classifications []Classification
}

type Classification struct {
	Name     string
	Parent   string // element name
	Accounts []Account
}

type Account struct {
	Name        string
	Parent      string // classification name
	SubAccounts []SubAccount
}

type SubAccount struct {
	Name   string
	Parent string // account name
}
