package ntv

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/schedule"
)

// Snapshots carry the registry's persisted state across restarts. Schedule
// windows are not persisted: they are a pure function of the online time
// and a slot's ordinal, and are re-derived on restore.

// SlotSnapshot is the durable state of one slot.
type SlotSnapshot struct {
	Ordinal       int
	Symbol        string
	IsPrivate     bool
	MaxBidValue   *big.Int
	MaxBidAccount account.Address
	BidCount      int
	Bidders       []account.Address
	AuctionEnded  bool
	Swept         bool
	Text          string
	TextSet       bool
	AuditStatus   AuditStatus
	OverrideText  string
}

// Balance is one claimable-ledger entry.
type Balance struct {
	Account account.Address
	Amount  *big.Int
}

// RegistrySnapshot is the durable state of the registry, excluding slots.
type RegistrySnapshot struct {
	Started     bool
	OnlineTime  time.Time
	Beneficiary account.Address
	GeneralPool *big.Int
	Balances    []Balance
}

// Snapshot captures the slot's durable state.
func (s *Slot) Snapshot(ordinal int) SlotSnapshot {
	bidders := make([]account.Address, 0, len(s.bidders))
	for a := range s.bidders {
		bidders = append(bidders, a)
	}
	sort.Slice(bidders, func(i, j int) bool { return bidders[i] < bidders[j] })

	return SlotSnapshot{
		Ordinal:       ordinal,
		Symbol:        s.symbol,
		IsPrivate:     s.isPrivate,
		MaxBidValue:   new(big.Int).Set(s.maxBidValue),
		MaxBidAccount: s.maxBidAccount,
		BidCount:      s.bidCount,
		Bidders:       bidders,
		AuctionEnded:  s.auctionEnded,
		Swept:         s.swept,
		Text:          s.text,
		TextSet:       s.textSet,
		AuditStatus:   s.auditStatus,
		OverrideText:  s.overrideTxt,
	}
}

// Snapshot captures the registry's durable state and that of every slot.
func (r *Registry) Snapshot() (RegistrySnapshot, []SlotSnapshot) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg := RegistrySnapshot{
		Started:     r.started,
		Beneficiary: r.beneficiary,
		GeneralPool: new(big.Int).Set(r.generalPool),
	}
	if r.started {
		reg.OnlineTime = r.policy.Origin()
	}
	for _, acct := range r.ledger.Accounts() {
		reg.Balances = append(reg.Balances, Balance{Account: acct, Amount: r.ledger.Claimable(acct)})
	}

	slots := make([]SlotSnapshot, len(r.slots))
	for i, s := range r.slots {
		slots[i] = s.Snapshot(i)
	}
	return reg, slots
}

// SlotSnapshotAt captures the durable state of one slot by index.
func (r *Registry) SlotSnapshotAt(index int) (SlotSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.slotLocked(index)
	if err != nil {
		return SlotSnapshot{}, err
	}
	return s.Snapshot(index), nil
}

// Restore rebuilds a registry from persisted state. Slot windows and
// symbols are re-derived from each slot's ordinal, so snapshots taken
// under the same configuration restore byte-for-byte equivalent behavior.
func Restore(cfg Config, reg RegistrySnapshot, slots []SlotSnapshot) (*Registry, error) {
	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if !reg.Started {
		if len(slots) > 0 {
			return nil, fmt.Errorf("snapshot has slots but no online time")
		}
		return r, nil
	}

	if len(slots) > cfg.MaxSlots {
		return nil, fmt.Errorf("snapshot holds %d slots, capacity is %d: %w", len(slots), cfg.MaxSlots, ErrCapacityExceeded)
	}
	policy, err := schedule.NewPolicy(reg.OnlineTime)
	if err != nil {
		return nil, fmt.Errorf("restoring schedule policy: %w", err)
	}
	r.started = true
	r.policy = policy
	r.beneficiary = reg.Beneficiary
	if reg.GeneralPool != nil {
		r.generalPool.Set(reg.GeneralPool)
	}
	for _, b := range reg.Balances {
		r.ledger.Credit(b.Account, b.Amount)
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Ordinal < slots[j].Ordinal })
	for i, snap := range slots {
		if snap.Ordinal != i {
			return nil, fmt.Errorf("slot snapshots are not contiguous: want ordinal %d, got %d", i, snap.Ordinal)
		}
		s := newSlot(i, policy.WindowAt(i), cfg)
		if snap.MaxBidValue != nil {
			s.maxBidValue.Set(snap.MaxBidValue)
		}
		s.maxBidAccount = snap.MaxBidAccount
		s.bidCount = snap.BidCount
		for _, a := range snap.Bidders {
			s.bidders[a] = struct{}{}
		}
		s.auctionEnded = snap.AuctionEnded
		s.swept = snap.Swept
		s.text = snap.Text
		s.textSet = snap.TextSet
		s.auditStatus = snap.AuditStatus
		s.overrideTxt = snap.OverrideText
		r.slots = append(r.slots, s)
	}
	return r, nil
}
