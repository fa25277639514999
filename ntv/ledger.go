package ntv

import (
	"math/big"
	"sort"

	"github.com/six-thirty/ntvnet/account"
)

// Ledger records value owed to accounts: outbid refunds and swept auction
// proceeds. It only decides who is owed how much; actually moving value is
// the surrounding system's job, which settles against Claimable and drains
// the balance through the registry's Settle once a transfer is done.
//
// The ledger is not internally synchronized; the owning Registry serializes
// access to it.
type Ledger struct {
	balances map[account.Address]*big.Int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[account.Address]*big.Int)}
}

// Credit adds amount to the account's claimable balance. Zero and nil
// amounts are ignored.
func (l *Ledger) Credit(acct account.Address, amount *big.Int) {
	if acct.IsZero() || amount == nil || amount.Sign() <= 0 {
		return
	}
	bal, ok := l.balances[acct]
	if !ok {
		bal = new(big.Int)
		l.balances[acct] = bal
	}
	bal.Add(bal, amount)
}

// Claimable returns the account's current claimable balance. Never nil.
func (l *Ledger) Claimable(acct account.Address) *big.Int {
	if bal, ok := l.balances[acct]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Drain zeroes the account's balance and returns what it held. The caller
// is expected to have settled the transfer externally.
func (l *Ledger) Drain(acct account.Address) *big.Int {
	bal, ok := l.balances[acct]
	if !ok {
		return new(big.Int)
	}
	delete(l.balances, acct)
	return bal
}

// Accounts lists every account with a non-zero balance, sorted for
// deterministic iteration.
func (l *Ledger) Accounts() []account.Address {
	accts := make([]account.Address, 0, len(l.balances))
	for a := range l.balances {
		accts = append(accts, a)
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i] < accts[j] })
	return accts
}
