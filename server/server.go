package server

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/metrics"
	"github.com/six-thirty/ntvnet/ntv"
	"github.com/six-thirty/ntvnet/store"
)

// Service coordinates the auction registry, the snapshot store, and the
// operation counters. HTTP handlers call into it; it owns no transport
// concerns.
//
// Persistence is best-effort: registry state is authoritative in memory and
// every save writes a full snapshot, so a failed write is repaired by the
// next successful one. Failures are logged, not returned.
type Service struct {
	registry *ntv.Registry
	store    store.Store
	log      *slog.Logger
	clock    func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// NewService creates a service around the given registry. st may be nil, in
// which case nothing is persisted.
func NewService(registry *ntv.Registry, st store.Store, log *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		store:    st,
		log:      log,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the underlying registry for read-only queries.
func (s *Service) Registry() *ntv.Registry { return s.registry }

// Now returns the service's current time.
func (s *Service) Now() time.Time { return s.clock() }

func (s *Service) persistRegistry(ctx context.Context) {
	if s.store == nil {
		return
	}
	reg, _ := s.registry.Snapshot()
	if err := s.store.SaveRegistry(ctx, reg); err != nil {
		s.log.Error("Failed to persist registry snapshot", "err", err)
	}
}

func (s *Service) persistSlot(ctx context.Context, index int) {
	if s.store == nil {
		return
	}
	snap, err := s.registry.SlotSnapshotAt(index)
	if err != nil {
		s.log.Error("Failed to snapshot slot", "slot", index, "err", err)
		return
	}
	if err := s.store.SaveSlot(ctx, snap); err != nil {
		s.log.Error("Failed to persist slot snapshot", "slot", index, "err", err)
	}
}

// Start brings the registry online at onlineTime with the given treasury
// beneficiary. Administrator only.
func (s *Service) Start(ctx context.Context, onlineTime time.Time, beneficiary, caller account.Address) error {
	if err := s.registry.Start(s.clock(), onlineTime, beneficiary, caller); err != nil {
		return err
	}
	s.log.Info("Registry started", "onlineTime", onlineTime, "beneficiary", beneficiary)
	s.persistRegistry(ctx)
	return nil
}

// CreateSlot appends the next auction slot. Administrator only.
func (s *Service) CreateSlot(ctx context.Context, caller account.Address) (ntv.Info, error) {
	slot, err := s.registry.CreateSlot(caller)
	if err != nil {
		return ntv.Info{}, err
	}
	metrics.SlotsCreated.Inc()
	info := slot.Info()
	s.log.Info("Slot created", "symbol", info.Symbol, "useStart", info.TVUseStart)
	s.persistSlot(ctx, s.registry.TotalSlots()-1)
	return info, nil
}

// Bid places a bid on the slot at index.
func (s *Service) Bid(ctx context.Context, index int, bidder account.Address, amount *big.Int) error {
	if err := s.registry.Bid(s.clock(), index, bidder, amount); err != nil {
		metrics.BidsRejected.Inc()
		return err
	}
	metrics.BidsAccepted.Inc()
	s.log.Info("Bid accepted", "slot", index, "bidder", bidder, "amount", amount)
	s.persistSlot(ctx, index)
	s.persistRegistry(ctx)
	return nil
}

// Receive treats a direct value transfer to the slot at index as an implicit
// bid from the sender.
func (s *Service) Receive(ctx context.Context, index int, from account.Address, amount *big.Int) error {
	if err := s.registry.Receive(s.clock(), index, from, amount); err != nil {
		metrics.BidsRejected.Inc()
		return err
	}
	metrics.BidsAccepted.Inc()
	s.log.Info("Transfer accepted as bid", "slot", index, "from", from, "amount", amount)
	s.persistSlot(ctx, index)
	s.persistRegistry(ctx)
	return nil
}

// Deposit accrues an unattributed transfer to the registry's general pool.
func (s *Service) Deposit(ctx context.Context, amount *big.Int) error {
	if err := s.registry.Deposit(amount); err != nil {
		return err
	}
	s.persistRegistry(ctx)
	return nil
}

// End finalizes the auction of the slot at index.
func (s *Service) End(ctx context.Context, index int) error {
	if err := s.registry.End(s.clock(), index); err != nil {
		return err
	}
	metrics.AuctionsEnded.Inc()
	s.log.Info("Auction ended", "slot", index)
	s.persistSlot(ctx, index)
	return nil
}

// SetText stores the winner's display text on the slot at index.
func (s *Service) SetText(ctx context.Context, index int, caller account.Address, text string) error {
	if err := s.registry.SetText(index, caller, text); err != nil {
		return err
	}
	metrics.TextsSet.Inc()
	s.log.Info("Slot text set", "slot", index, "bytes", len(text))
	s.persistSlot(ctx, index)
	return nil
}

// Audit moderates the text of the slot at index. Administrator only.
func (s *Service) Audit(ctx context.Context, index int, status ntv.AuditStatus, overrideText string, caller account.Address) error {
	if err := s.registry.Audit(s.clock(), index, status, overrideText, caller); err != nil {
		return err
	}
	metrics.Audits.Inc()
	s.log.Info("Slot audited", "slot", index, "status", status.String())
	s.persistSlot(ctx, index)
	return nil
}

// SweepSlot credits an ended slot's proceeds to the beneficiary's claimable
// balance. Administrator only.
func (s *Service) SweepSlot(ctx context.Context, index int, caller account.Address) (*big.Int, error) {
	swept, err := s.registry.SweepSlot(index, caller)
	if err != nil {
		return nil, err
	}
	metrics.Sweeps.Inc()
	s.log.Info("Slot proceeds swept", "slot", index, "amount", swept)
	s.persistSlot(ctx, index)
	s.persistRegistry(ctx)
	return swept, nil
}

// Settle drains an account's claimable balance once the owed value has been
// paid out externally. Administrator only.
func (s *Service) Settle(ctx context.Context, acct, caller account.Address) (*big.Int, error) {
	settled, err := s.registry.Settle(acct, caller)
	if err != nil {
		return nil, err
	}
	metrics.Settlements.Inc()
	s.log.Info("Claimable balance settled", "account", acct, "amount", settled)
	s.persistRegistry(ctx)
	return settled, nil
}

// SweepGeneral credits the general pool to the beneficiary's claimable
// balance. Administrator only.
func (s *Service) SweepGeneral(ctx context.Context, caller account.Address) (*big.Int, error) {
	swept, err := s.registry.SweepGeneral(caller)
	if err != nil {
		return nil, err
	}
	metrics.Sweeps.Inc()
	s.log.Info("General pool swept", "amount", swept)
	s.persistRegistry(ctx)
	return swept, nil
}
