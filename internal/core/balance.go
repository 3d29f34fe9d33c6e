package core

// Balance is a point-in-time account balance. Like FootedAccount it is
// a view entity, computed and discarded per request.
type Balance struct {
	AccountName   string
	DebitBalance  Money
	CreditBalance Money
}

// SumBalance runs the signed balance over an account's entries: debits
// add, credits subtract. Pure summation over integer minor units, so
// the result is independent of entry order. The final sign picks which
// single balance field is non-zero; a net of zero leaves both at zero.
func SumBalance(accountName string, entries []LedgerEntry) Balance {
	var balance int64
	for _, e := range entries {
		balance += e.Signed()
	}
	b := Balance{AccountName: accountName}
	switch {
	case balance > 0:
		b.DebitBalance.Cents = balance
	case balance < 0:
		b.CreditBalance.Cents = -balance
	}
	return b
}
