package ntv

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/six-thirty/ntvnet/account"
)

// beforeStart is a "now" from which testOrigin is still in the future.
var beforeStart = testOrigin.AddDate(0, 0, -3)

func newStartedRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(DefaultConfig(admin))
	require.NoError(t, err)
	require.NoError(t, r.Start(beforeStart, testOrigin, saver, admin))
	return r
}

func TestRegistryStart(t *testing.T) {
	r, err := New(DefaultConfig(admin))
	require.NoError(t, err)
	require.False(t, r.Started())

	require.NoError(t, r.Start(beforeStart, testOrigin, saver, admin))
	require.True(t, r.Started())

	online, ok := r.OnlineTime()
	require.True(t, ok)
	assert.Equal(t, testOrigin, online)
	assert.Equal(t, saver, r.Beneficiary())

	// Exactly once.
	err = r.Start(beforeStart, testOrigin.AddDate(0, 0, 1), saver, admin)
	require.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestRegistryStartValidation(t *testing.T) {
	newReg := func() *Registry {
		r, err := New(DefaultConfig(admin))
		require.NoError(t, err)
		return r
	}

	// Administrator only.
	err := newReg().Start(beforeStart, testOrigin, saver, alice)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Midnight-aligned.
	err = newReg().Start(beforeStart, testOrigin.Add(12*time.Hour+11*time.Minute), saver, admin)
	require.ErrorIs(t, err, ErrInvalidArgument)

	// Strictly in the future.
	err = newReg().Start(testOrigin, testOrigin, saver, admin)
	require.ErrorIs(t, err, ErrInvalidArgument)
	err = newReg().Start(testOrigin.AddDate(2, 0, 0), testOrigin, saver, admin)
	require.ErrorIs(t, err, ErrInvalidArgument)

	// Beneficiary required.
	err = newReg().Start(beforeStart, testOrigin, account.None, admin)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistryCreateSlotWindows(t *testing.T) {
	r := newStartedRegistry(t)

	type window struct {
		symbol             string
		bidStart, bidEnd   time.Time
		useStart, useEnd   time.Time
	}
	day1Open := testOrigin.AddDate(0, 0, -2).Add(18*time.Hour + 30*time.Minute)
	day1Close := testOrigin.AddDate(0, 0, -1).Add(22 * time.Hour)
	day2Open := testOrigin.Add(18*time.Hour + 30*time.Minute)
	day2Close := testOrigin.Add(22 * time.Hour)
	day2 := testOrigin.AddDate(0, 0, 1)

	want := []window{
		{"FOT01", day1Open, day1Close, testOrigin, testOrigin.Add(2 * time.Hour)},
		{"FOT02", day1Open, day1Close, testOrigin.Add(10 * time.Hour), testOrigin.Add(12 * time.Hour)},
		{"FOT03", day1Open, day1Close, testOrigin.Add(12 * time.Hour), testOrigin.Add(14 * time.Hour)},
		{"FOT04", day1Open, day1Close, testOrigin.Add(18 * time.Hour), testOrigin.Add(20 * time.Hour)},
		{"FOT05", day1Open, day1Close, testOrigin.Add(20 * time.Hour), testOrigin.Add(22 * time.Hour)},
		{"FOT06", day1Open, day1Close, testOrigin.Add(22 * time.Hour), day2},
		{"FOT07", day2Open, day2Close, day2, day2.Add(2 * time.Hour)},
		{"FOT08", day2Open, day2Close, day2.Add(10 * time.Hour), day2.Add(12 * time.Hour)},
		{"FOT09", day2Open, day2Close, day2.Add(12 * time.Hour), day2.Add(14 * time.Hour)},
	}

	for i, w := range want {
		s, err := r.CreateSlot(admin)
		require.NoError(t, err, "slot %d", i)
		assert.Equal(t, w.symbol, s.Symbol())
		assert.Equal(t, w.bidStart, s.Window().BidStart, "%s bid start", w.symbol)
		assert.Equal(t, w.bidEnd, s.Window().BidEnd, "%s bid end", w.symbol)
		assert.Equal(t, w.useStart, s.Window().UseStart, "%s use start", w.symbol)
		assert.Equal(t, w.useEnd, s.Window().UseEnd, "%s use end", w.symbol)
		assert.False(t, s.IsPrivate())
		assert.Zero(t, s.BidStartValue().Cmp(DefaultBidStartValue))
	}
	assert.Equal(t, len(want), r.TotalSlots())
}

func TestRegistryCreateSlotAuthorization(t *testing.T) {
	r := newStartedRegistry(t)
	_, err := r.CreateSlot(alice)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Not before start.
	fresh, err := New(DefaultConfig(admin))
	require.NoError(t, err)
	_, err = fresh.CreateSlot(admin)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRegistryCapacity(t *testing.T) {
	r := newStartedRegistry(t)

	for i := 0; i < DefaultMaxSlots; i++ {
		_, err := r.CreateSlot(admin)
		require.NoError(t, err, "slot %d", i)
	}
	require.Equal(t, DefaultMaxSlots, r.TotalSlots())

	_, err := r.CreateSlot(admin)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, DefaultMaxSlots, r.TotalSlots())
}

func TestRegistryQuery(t *testing.T) {
	r := newStartedRegistry(t)

	assert.Empty(t, r.Query(0, 0))
	assert.Empty(t, r.Query(1, 0))
	assert.Empty(t, r.Query(100, 0))
	assert.Empty(t, r.Query(0, 1), "no slots yet")

	for i := 0; i < 2; i++ {
		_, err := r.CreateSlot(admin)
		require.NoError(t, err)
	}

	assert.Len(t, r.Query(0, 1), 1)
	assert.Len(t, r.Query(0, 2), 2)
	assert.Len(t, r.Query(0, 3), 2, "limit clamps to available")
	assert.Len(t, r.Query(1, 3), 1)
	assert.Empty(t, r.Query(2, 3))
	assert.Empty(t, r.Query(-1, 3))
	assert.Equal(t, "FOT02", r.Query(1, 1)[0].Symbol())
}

func TestRegistryDayNumberBeforeStart(t *testing.T) {
	r, err := New(DefaultConfig(admin))
	require.NoError(t, err)
	assert.Zero(t, r.DayFor(testOrigin))
	assert.Zero(t, r.NumberFor(testOrigin))
}

func TestRegistryBidCreditsRefund(t *testing.T) {
	r := newStartedRegistry(t)
	_, err := r.CreateSlot(admin)
	require.NoError(t, err)

	require.NoError(t, r.Bid(inBidWindow, 0, alice, ether(10)))
	assert.Zero(t, r.Claimable(alice).Sign(), "leading bid is not refundable")

	require.NoError(t, r.Bid(inBidWindow, 0, bob, ether(15)))
	assert.Zero(t, r.Claimable(alice).Cmp(ether(10)), "outbid stake becomes claimable")
	assert.Zero(t, r.Claimable(bob).Sign())

	// Out-of-range slot index.
	err = r.Bid(inBidWindow, 5, alice, ether(20))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistryAggregates(t *testing.T) {
	r := newStartedRegistry(t)
	for i := 0; i < 2; i++ {
		_, err := r.CreateSlot(admin)
		require.NoError(t, err)
	}

	require.NoError(t, r.Bid(inBidWindow, 0, alice, ether(10)))
	require.NoError(t, r.Bid(inBidWindow, 0, bob, ether(15)))
	require.NoError(t, r.Bid(inBidWindow, 1, alice, ether(3)))

	assert.Equal(t, 2, r.TotalSlots())
	assert.Equal(t, 2, r.TotalBidders(), "alice counts once across slots")
	assert.Equal(t, 3, r.TotalBids())
	assert.Zero(t, r.TotalBidValue().Cmp(ether(18)), "sum of current maxima")
	assert.Zero(t, r.MaxBidValue().Cmp(ether(15)))
}

func TestRegistryPlayingResolver(t *testing.T) {
	r := newStartedRegistry(t)
	for i := 0; i < 3; i++ {
		_, err := r.CreateSlot(admin)
		require.NoError(t, err)
	}

	// Inside FOT01's 00:00-02:00 window.
	s, ok := r.PlayingAt(testOrigin.Add(21 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, "FOT01", s.Symbol())

	s, ok = r.PlayingAt(testOrigin)
	require.True(t, ok)
	assert.Equal(t, "FOT01", s.Symbol())

	// The boundary itself belongs to no window.
	_, ok = r.PlayingAt(testOrigin.Add(2 * time.Hour))
	require.False(t, ok)

	// Inside FOT02's 10:00-12:00 window.
	s, ok = r.PlayingAt(testOrigin.Add(11 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, "FOT02", s.Symbol())

	// Before go-live and in a daily gap.
	_, ok = r.PlayingAt(testOrigin.AddDate(0, 0, -1).Add(-time.Second))
	require.False(t, ok)
	_, ok = r.PlayingAt(testOrigin.Add(5 * time.Hour).Add(-time.Second))
	require.False(t, ok)
}

func TestRegistryStatus(t *testing.T) {
	r, err := New(DefaultConfig(admin))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.StatusAt(beforeStart))

	require.NoError(t, r.Start(beforeStart, testOrigin, saver, admin))
	assert.Equal(t, StatusAwaitingOnline, r.StatusAt(beforeStart))
	assert.Equal(t, StatusOnlineEmpty, r.StatusAt(testOrigin.Add(8*time.Hour)))

	_, err = r.CreateSlot(admin)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, r.StatusAt(testOrigin.Add(time.Hour)))
	assert.Equal(t, StatusOnlineGap, r.StatusAt(testOrigin.Add(4*time.Hour)))
}

func TestRegistryDisplayText(t *testing.T) {
	r := newStartedRegistry(t)
	_, err := r.CreateSlot(admin)
	require.NoError(t, err)

	require.NoError(t, r.Bid(inBidWindow, 0, alice, ether(10)))
	require.NoError(t, r.End(afterBidWindow, 0))
	require.NoError(t, r.SetText(0, alice, "Hello World!"))

	onAir := testOrigin.Add(time.Minute)

	// Unaudited: the default text plays.
	assert.Equal(t, DefaultText, r.DisplayTextAt(onAir))

	require.NoError(t, r.Audit(auditWindow, 0, AuditPass, "", admin))
	assert.Equal(t, "Hello World!", r.DisplayTextAt(onAir))

	// Off air: default again.
	assert.Equal(t, DefaultText, r.DisplayTextAt(testOrigin.Add(5*time.Hour)))
}

func TestRegistryAuditRejectAcrossSlots(t *testing.T) {
	r := newStartedRegistry(t)
	for i := 0; i < 3; i++ {
		_, err := r.CreateSlot(admin)
		require.NoError(t, err)
	}

	// FOT02 plays 10:00-12:00, FOT03 12:00-14:00; audit each in the gap
	// before its own display window.
	require.NoError(t, r.Audit(testOrigin.Add(9*time.Hour+36*time.Minute), 1, AuditReject, "Not pass 02", admin))
	require.NoError(t, r.Audit(testOrigin.Add(11*time.Hour+36*time.Minute), 2, AuditReject, "Not pass 03", admin))

	s, ok := r.PlayingAt(testOrigin.Add(11 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, "FOT02", s.Symbol())
	assert.Equal(t, "Not pass 02", r.DisplayTextAt(testOrigin.Add(11*time.Hour)))
	assert.Equal(t, "Not pass 03", r.DisplayTextAt(testOrigin.Add(12*time.Hour+40*time.Minute)))
}

func TestRegistryAuditAuthorization(t *testing.T) {
	r := newStartedRegistry(t)
	_, err := r.CreateSlot(admin)
	require.NoError(t, err)

	err = r.Audit(auditWindow, 0, AuditPass, "", alice)
	require.ErrorIs(t, err, ErrNotAuthorized)

	err = r.Audit(auditWindow, 9, AuditPass, "", admin)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistrySweepSlot(t *testing.T) {
	r := newStartedRegistry(t)
	_, err := r.CreateSlot(admin)
	require.NoError(t, err)
	require.NoError(t, r.Bid(inBidWindow, 0, alice, ether(10)))

	// Not before the auction ends.
	_, err = r.SweepSlot(0, admin)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, r.End(afterBidWindow, 0))

	swept, err := r.SweepSlot(0, admin)
	require.NoError(t, err)
	assert.Zero(t, swept.Cmp(ether(10)))
	assert.Zero(t, r.Claimable(saver).Cmp(ether(10)))

	// Exactly once.
	_, err = r.SweepSlot(0, admin)
	require.ErrorIs(t, err, ErrAlreadySet)

	// Administrator only.
	_, err = r.SweepSlot(0, alice)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRegistrySweepSlotNoBids(t *testing.T) {
	r := newStartedRegistry(t)
	_, err := r.CreateSlot(admin)
	require.NoError(t, err)
	require.NoError(t, r.End(afterBidWindow, 0))

	_, err = r.SweepSlot(0, admin)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRegistrySweepGeneral(t *testing.T) {
	r := newStartedRegistry(t)
	require.NoError(t, r.Deposit(ether(1)))

	_, err := r.SweepGeneral(alice)
	require.ErrorIs(t, err, ErrNotAuthorized)

	swept, err := r.SweepGeneral(admin)
	require.NoError(t, err)
	assert.Zero(t, swept.Cmp(ether(1)))
	assert.Zero(t, r.Claimable(saver).Cmp(ether(1)))

	// A second sweep finds nothing but still succeeds.
	swept, err = r.SweepGeneral(admin)
	require.NoError(t, err)
	assert.Zero(t, swept.Sign())
}

func TestRegistrySettle(t *testing.T) {
	r := newStartedRegistry(t)
	_, err := r.CreateSlot(admin)
	require.NoError(t, err)
	require.NoError(t, r.Bid(inBidWindow, 0, alice, ether(1)))
	require.NoError(t, r.Bid(inBidWindow, 0, bob, ether(2)))

	_, err = r.Settle(alice, alice)
	require.ErrorIs(t, err, ErrNotAuthorized)
	_, err = r.Settle(account.None, admin)
	require.ErrorIs(t, err, ErrInvalidArgument)

	settled, err := r.Settle(alice, admin)
	require.NoError(t, err)
	assert.Zero(t, settled.Cmp(ether(1)))
	assert.Zero(t, r.Claimable(alice).Sign())

	// Settling an already-settled account yields zero without error.
	settled, err = r.Settle(alice, admin)
	require.NoError(t, err)
	assert.Zero(t, settled.Sign())
}

func TestRegistryDepositValidation(t *testing.T) {
	r := newStartedRegistry(t)
	require.ErrorIs(t, r.Deposit(nil), ErrInvalidArgument)
	require.ErrorIs(t, r.Deposit(big.NewInt(0)), ErrInvalidArgument)
	require.ErrorIs(t, r.Deposit(big.NewInt(-5)), ErrInvalidArgument)
}

func TestRegistrySnapshotRestore(t *testing.T) {
	r := newStartedRegistry(t)
	for i := 0; i < 2; i++ {
		_, err := r.CreateSlot(admin)
		require.NoError(t, err)
	}
	require.NoError(t, r.Bid(inBidWindow, 0, alice, ether(10)))
	require.NoError(t, r.Bid(inBidWindow, 0, bob, ether(15)))
	require.NoError(t, r.End(afterBidWindow, 0))
	require.NoError(t, r.SetText(0, bob, "Hello World!"))
	require.NoError(t, r.Audit(auditWindow, 0, AuditPass, "", admin))
	require.NoError(t, r.Deposit(ether(1)))

	regSnap, slotSnaps := r.Snapshot()
	restored, err := Restore(DefaultConfig(admin), regSnap, slotSnaps)
	require.NoError(t, err)

	assert.True(t, restored.Started())
	online, _ := restored.OnlineTime()
	assert.Equal(t, testOrigin, online)
	assert.Equal(t, saver, restored.Beneficiary())
	assert.Equal(t, 2, restored.TotalSlots())
	assert.Equal(t, 2, restored.TotalBidders())
	assert.Zero(t, restored.Claimable(alice).Cmp(ether(10)))

	s, ok := restored.Slot(0)
	require.True(t, ok)
	assert.Equal(t, "FOT01", s.Symbol())
	assert.Equal(t, bob, s.MaxBidAccount())
	assert.True(t, s.Ended())
	assert.Equal(t, "Hello World!", s.DisplayText())
	assert.Equal(t, testOrigin, s.Window().UseStart, "windows re-derive from the ordinal")

	// Restored registries keep enforcing the one-way flags.
	err = restored.End(afterBidWindow, 0)
	require.ErrorIs(t, err, ErrAlreadyEnded)
	err = restored.SetText(0, bob, "again")
	require.ErrorIs(t, err, ErrAlreadySet)
}

func TestRestoreRespectsCapacity(t *testing.T) {
	r := newStartedRegistry(t)
	for i := 0; i < 2; i++ {
		_, err := r.CreateSlot(admin)
		require.NoError(t, err)
	}

	regSnap, slotSnaps := r.Snapshot()
	cfg := DefaultConfig(admin)
	cfg.MaxSlots = 1
	_, err := Restore(cfg, regSnap, slotSnaps)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestRestoreEmptySnapshot(t *testing.T) {
	restored, err := Restore(DefaultConfig(admin), RegistrySnapshot{}, nil)
	require.NoError(t, err)
	assert.False(t, restored.Started())

	_, err = Restore(DefaultConfig(admin), RegistrySnapshot{}, []SlotSnapshot{{Ordinal: 0}})
	require.Error(t, err)
}
