package testutil

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/ntv"
)

// Fixed accounts used across test fixtures.
var (
	Admin       = account.Address("0x00000000000000000000000000000000000000ad")
	Beneficiary = account.Address("0x000000000000000000000000000000000000005a")
	Alice       = account.Address("0x0000000000000000000000000000000000000a11")
	Bob         = account.Address("0x0000000000000000000000000000000000000b0b")
)

// Origin is the online time used by fixtures; the first slot's display
// window starts here.
var Origin = time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC)

// Ether converts whole ether to wei.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// Clock is a settable time source for tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// =====================================
// Registry Fixtures
// =====================================

// RegistryOption customizes a fixture registry.
type RegistryOption func(*fixture)

type fixture struct {
	cfg   ntv.Config
	slots int
	bids  []fixtureBid
}

type fixtureBid struct {
	slot    int
	account account.Address
	amount  *big.Int
}

// WithConfig replaces the fixture's registry configuration.
func WithConfig(cfg ntv.Config) RegistryOption {
	return func(f *fixture) { f.cfg = cfg }
}

// WithSlots creates count slots after start.
func WithSlots(count int) RegistryOption {
	return func(f *fixture) { f.slots = count }
}

// WithBid places a bid on slot during its bidding window.
func WithBid(slot int, acct account.Address, amount *big.Int) RegistryOption {
	return func(f *fixture) {
		f.bids = append(f.bids, fixtureBid{slot: slot, account: acct, amount: amount})
	}
}

// NewRegistry builds a started registry with Origin as its online time,
// applying the given options. It panics on fixture errors so tests fail
// loudly at setup.
func NewRegistry(opts ...RegistryOption) *ntv.Registry {
	f := &fixture{cfg: ntv.DefaultConfig(Admin)}
	for _, opt := range opts {
		opt(f)
	}

	r, err := ntv.New(f.cfg)
	if err != nil {
		panic(fmt.Sprintf("fixture registry: %v", err))
	}
	before := Origin.AddDate(0, 0, -3)
	if err := r.Start(before, Origin, Beneficiary, f.cfg.Admin); err != nil {
		panic(fmt.Sprintf("fixture start: %v", err))
	}
	for i := 0; i < f.slots; i++ {
		if _, err := r.CreateSlot(f.cfg.Admin); err != nil {
			panic(fmt.Sprintf("fixture slot %d: %v", i, err))
		}
	}
	for _, b := range f.bids {
		slot, ok := r.Slot(b.slot)
		if !ok {
			panic(fmt.Sprintf("fixture bid: no slot %d", b.slot))
		}
		// Bid just inside the slot's own window.
		at := slot.Window().BidEnd.Add(-time.Hour)
		if err := r.Bid(at, b.slot, b.account, b.amount); err != nil {
			panic(fmt.Sprintf("fixture bid on slot %d: %v", b.slot, err))
		}
	}
	return r
}
