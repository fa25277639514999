package ntv

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/schedule"
)

// Status is the registry's derived, read-only lifecycle state.
type Status int

const (
	// StatusPending: Start has not been called.
	StatusPending Status = iota
	// StatusAwaitingOnline: started, but now is before the online time.
	StatusAwaitingOnline
	// StatusOnlineEmpty: online, but no slot has ever been created.
	StatusOnlineEmpty
	// StatusPlaying: a slot's display window contains now.
	StatusPlaying
	// StatusOnlineGap: online with slots, but none currently displaying.
	StatusOnlineGap
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAwaitingOnline:
		return "awaiting-online"
	case StatusOnlineEmpty:
		return "online-empty"
	case StatusPlaying:
		return "playing"
	case StatusOnlineGap:
		return "online-gap"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Registry owns the ordered slot sequence, the schedule origin, the
// claimable-balance ledger, and the treasury sweeps. One registry exists
// per deployment.
type Registry struct {
	cfg Config

	mu          sync.RWMutex
	started     bool
	policy      *schedule.Policy
	beneficiary account.Address
	slots       []*Slot
	ledger      *Ledger
	generalPool *big.Int
}

// New creates a registry with the given deployment configuration.
func New(cfg Config) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Registry{
		cfg:         cfg,
		ledger:      NewLedger(),
		generalPool: new(big.Int),
	}, nil
}

func (r *Registry) requireAdmin(caller account.Address) error {
	if caller != r.cfg.Admin {
		return fmt.Errorf("caller %s is not the administrator: %w", caller, ErrNotAuthorized)
	}
	return nil
}

// Start fixes the schedule origin and the treasury beneficiary. Only the
// administrator may call it, exactly once; onlineTime must be
// midnight-aligned and strictly in the future.
func (r *Registry) Start(now, onlineTime time.Time, beneficiary account.Address, caller account.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if r.started {
		return fmt.Errorf("registry %w", ErrAlreadyStarted)
	}
	if beneficiary.IsZero() {
		return fmt.Errorf("beneficiary account is required: %w", ErrInvalidArgument)
	}
	if !onlineTime.After(now) {
		return fmt.Errorf("online time %s is not in the future: %w", onlineTime, ErrInvalidArgument)
	}
	policy, err := schedule.NewPolicy(onlineTime)
	if err != nil {
		return fmt.Errorf("%s: %w", err, ErrInvalidArgument)
	}

	r.policy = policy
	r.beneficiary = beneficiary
	r.started = true
	return nil
}

// Started reports whether Start has succeeded.
func (r *Registry) Started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

// OnlineTime returns the fixed schedule origin; ok is false before Start.
func (r *Registry) OnlineTime() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.started {
		return time.Time{}, false
	}
	return r.policy.Origin(), true
}

// Beneficiary returns the treasury beneficiary, account.None before Start.
func (r *Registry) Beneficiary() account.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.beneficiary
}

// DayFor maps a timestamp to its broadcast day; 0 before Start.
func (r *Registry) DayFor(t time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.started {
		return 0
	}
	return r.policy.DayFor(t)
}

// NumberFor maps a timestamp to its daily slot number; 0 before Start.
func (r *Registry) NumberFor(t time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.started {
		return 0
	}
	return r.policy.NumberFor(t)
}

// CreateSlot appends the next slot. The schedule window is derived from the
// current slot count; symbols are sequential FOTnn. Administrator only;
// fails once the capacity bound is reached.
func (r *Registry) CreateSlot(caller account.Address) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(caller); err != nil {
		return nil, err
	}
	if !r.started {
		return nil, fmt.Errorf("registry not started: %w", ErrInvalidState)
	}
	if len(r.slots) >= r.cfg.MaxSlots {
		return nil, fmt.Errorf("registry holds %d slots: %w", len(r.slots), ErrCapacityExceeded)
	}

	ordinal := len(r.slots)
	s := newSlot(ordinal, r.policy.WindowAt(ordinal), r.cfg)
	r.slots = append(r.slots, s)
	return s, nil
}

// Slot returns the slot at index, or false if out of range.
func (r *Registry) Slot(index int) (*Slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.slots) {
		return nil, false
	}
	return r.slots[index], true
}

// Query returns up to limit slots starting at offset, clamped to the
// available range. Out-of-range offsets and non-positive limits yield an
// empty result; Query never fails.
func (r *Registry) Query(offset, limit int) []*Slot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset < 0 || offset >= len(r.slots) || limit <= 0 {
		return nil
	}
	end := offset + limit
	if end > len(r.slots) {
		end = len(r.slots)
	}
	out := make([]*Slot, end-offset)
	copy(out, r.slots[offset:end])
	return out
}

// Bid places a bid on the slot at index. On an accepted outbid, the
// previous leader's stake is credited to the claimable ledger.
func (r *Registry) Bid(now time.Time, index int, bidder account.Address, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.slotLocked(index)
	if err != nil {
		return err
	}
	refund, err := s.Bid(now, bidder, amount)
	if err != nil {
		return err
	}
	if refund != nil {
		r.ledger.Credit(refund.Account, refund.Amount)
	}
	return nil
}

// Receive treats a direct value transfer to the slot at index as an
// implicit bid from the sender.
func (r *Registry) Receive(now time.Time, index int, from account.Address, amount *big.Int) error {
	return r.Bid(now, index, from, amount)
}

// Deposit accrues a direct, unattributed transfer to the registry itself
// into the general pool swept by SweepGeneral.
func (r *Registry) Deposit(amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("deposit amount must be positive: %w", ErrInvalidArgument)
	}
	r.generalPool.Add(r.generalPool, amount)
	return nil
}

// End finalizes the auction of the slot at index. Any caller may trigger
// it once the bidding window has closed.
func (r *Registry) End(now time.Time, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.slotLocked(index)
	if err != nil {
		return err
	}
	return s.End(now)
}

// SetText stores the winner's display text on the slot at index.
func (r *Registry) SetText(index int, caller account.Address, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.slotLocked(index)
	if err != nil {
		return err
	}
	return s.SetText(caller, text)
}

// Audit moderates the text of the slot at index. Administrator only.
func (r *Registry) Audit(now time.Time, index int, status AuditStatus, overrideText string, caller account.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	s, err := r.slotLocked(index)
	if err != nil {
		return err
	}
	return s.Audit(now, status, overrideText)
}

func (r *Registry) slotLocked(index int) (*Slot, error) {
	if index < 0 || index >= len(r.slots) {
		return nil, fmt.Errorf("slot index %d out of range: %w", index, ErrInvalidArgument)
	}
	return r.slots[index], nil
}

// PlayingAt returns the slot whose display window contains now. Windows
// are non-overlapping by construction, so at most one matches.
func (r *Registry) PlayingAt(now time.Time) (*Slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playingLocked(now)
}

func (r *Registry) playingLocked(now time.Time) (*Slot, bool) {
	for _, s := range r.slots {
		if s.Playing(now) {
			return s, true
		}
	}
	return nil, false
}

// DisplayTextAt returns the text on air at now: the playing slot's
// published text, or the deployment default when nothing is playing.
func (r *Registry) DisplayTextAt(now time.Time) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.playingLocked(now); ok {
		return s.DisplayText()
	}
	return r.cfg.DefaultText
}

// StatusAt derives the registry's lifecycle state for now.
func (r *Registry) StatusAt(now time.Time) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case !r.started:
		return StatusPending
	case now.Before(r.policy.Origin()):
		return StatusAwaitingOnline
	case len(r.slots) == 0:
		return StatusOnlineEmpty
	default:
		if _, ok := r.playingLocked(now); ok {
			return StatusPlaying
		}
		return StatusOnlineGap
	}
}

// TotalSlots returns the number of slots ever created.
func (r *Registry) TotalSlots() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// TotalBidders counts the distinct accounts that ever held the leading bid
// on any slot.
func (r *Registry) TotalBidders() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	distinct := make(map[account.Address]struct{})
	for _, s := range r.slots {
		for a := range s.bidders {
			distinct[a] = struct{}{}
		}
	}
	return len(distinct)
}

// TotalBids sums accepted bid calls across all slots.
func (r *Registry) TotalBids() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, s := range r.slots {
		total += s.bidCount
	}
	return total
}

// TotalBidValue sums the current highest bid of every slot.
func (r *Registry) TotalBidValue() *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := new(big.Int)
	for _, s := range r.slots {
		total.Add(total, s.maxBidValue)
	}
	return total
}

// MaxBidValue returns the highest bid across all slots.
func (r *Registry) MaxBidValue() *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	max := new(big.Int)
	for _, s := range r.slots {
		if s.maxBidValue.Cmp(max) > 0 {
			max.Set(s.maxBidValue)
		}
	}
	return max
}

// Claimable returns the account's claimable ledger balance.
func (r *Registry) Claimable(acct account.Address) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.Claimable(acct)
}

// Settle drains the account's claimable balance and returns the settled
// amount, which may be zero. The administrator calls it after paying the
// owed value out through whatever external channel the deployment uses;
// the registry itself never moves value.
func (r *Registry) Settle(acct, caller account.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(caller); err != nil {
		return nil, err
	}
	if acct.IsZero() {
		return nil, fmt.Errorf("settle account is required: %w", ErrInvalidArgument)
	}
	return r.ledger.Drain(acct), nil
}

// SweepGeneral credits the general pool (direct registry deposits) to the
// beneficiary's claimable balance. Administrator only. Returns the swept
// amount, which may be zero.
func (r *Registry) SweepGeneral(caller account.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(caller); err != nil {
		return nil, err
	}
	if !r.started {
		return nil, fmt.Errorf("registry not started: %w", ErrInvalidState)
	}

	swept := new(big.Int).Set(r.generalPool)
	r.generalPool.SetInt64(0)
	r.ledger.Credit(r.beneficiary, swept)
	return swept, nil
}

// SweepSlot credits the winning amount of the ended slot at index to the
// beneficiary's claimable balance, exactly once. Administrator only.
func (r *Registry) SweepSlot(index int, caller account.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(caller); err != nil {
		return nil, err
	}
	s, err := r.slotLocked(index)
	if err != nil {
		return nil, err
	}
	if !s.auctionEnded {
		return nil, fmt.Errorf("%s: auction not ended: %w", s.symbol, ErrInvalidState)
	}
	if s.swept {
		return nil, fmt.Errorf("%s: proceeds %w", s.symbol, ErrAlreadySet)
	}
	if s.maxBidAccount.IsZero() {
		return nil, fmt.Errorf("%s: no proceeds to sweep: %w", s.symbol, ErrInvalidState)
	}

	s.swept = true
	swept := new(big.Int).Set(s.maxBidValue)
	r.ledger.Credit(r.beneficiary, swept)
	return swept, nil
}
