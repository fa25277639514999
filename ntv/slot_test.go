package ntv

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/schedule"
)

var (
	testOrigin = time.Date(2024, time.March, 29, 0, 0, 0, 0, time.UTC)
	admin      = account.Address("0xadadadadadadadadadadadadadadadadadadadad")
	saver      = account.Address("0x5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a")
	alice      = account.Address("0xa11cea11cea11cea11cea11cea11cea11cea11ce")
	bob        = account.Address("0xb0bb0bb0bb0bb0bb0bb0bb0bb0bb0bb0bb0bb0bb")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newTestSlot(t *testing.T, ordinal int) *Slot {
	t.Helper()
	policy, err := schedule.NewPolicy(testOrigin)
	require.NoError(t, err)
	return newSlot(ordinal, policy.WindowAt(ordinal), DefaultConfig(admin))
}

// inBidWindow is a time inside the first day's bidding window.
var inBidWindow = testOrigin.Add(-16 * time.Hour) // 08:00 the day before go-live

// afterBidWindow is just past the close of the first day's auctions.
var afterBidWindow = testOrigin.Add(-2*time.Hour + time.Minute) // 22:01 the day before

func TestSlotSymbols(t *testing.T) {
	require.Equal(t, "FOT01", newTestSlot(t, 0).Symbol())
	require.Equal(t, "FOT01", newTestSlot(t, 0).Name())
	require.Equal(t, "FOT09", newTestSlot(t, 8).Symbol())
	require.Equal(t, "FOT66", newTestSlot(t, 65).Symbol())
}

func TestSlotBid(t *testing.T) {
	s := newTestSlot(t, 0)

	refund, err := s.Bid(inBidWindow, alice, ether(10))
	require.NoError(t, err)
	require.Nil(t, refund, "first accepted bid has nothing to refund")
	assert.Equal(t, alice, s.MaxBidAccount())
	assert.Zero(t, s.MaxBidValue().Cmp(ether(10)))
	assert.Equal(t, 1, s.BidCount())

	// Equal bid fails, leaving the leader untouched.
	_, err = s.Bid(inBidWindow, bob, ether(10))
	require.ErrorIs(t, err, ErrBidTooLow)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, alice, s.MaxBidAccount())

	// Lower bid fails.
	_, err = s.Bid(inBidWindow, bob, ether(5))
	require.ErrorIs(t, err, ErrBidTooLow)

	// Higher bid succeeds and makes the previous leader refundable.
	refund, err = s.Bid(inBidWindow, bob, ether(15))
	require.NoError(t, err)
	require.NotNil(t, refund)
	assert.Equal(t, alice, refund.Account)
	assert.Zero(t, refund.Amount.Cmp(ether(10)))
	assert.Equal(t, bob, s.MaxBidAccount())
	assert.Equal(t, 2, s.BidCount())
}

func TestSlotBidBelowOpeningValue(t *testing.T) {
	s := newTestSlot(t, 0)

	// Opening value is 0.1 ether; a bid at or below it is rejected.
	_, err := s.Bid(inBidWindow, alice, DefaultBidStartValue)
	require.ErrorIs(t, err, ErrBidTooLow)

	_, err = s.Bid(inBidWindow, alice, big.NewInt(1))
	require.ErrorIs(t, err, ErrBidTooLow)
}

func TestSlotBidValidation(t *testing.T) {
	s := newTestSlot(t, 0)

	_, err := s.Bid(inBidWindow, account.None, ether(10))
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Bid(inBidWindow, alice, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Bid(inBidWindow, alice, big.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSlotBidOutsideWindow(t *testing.T) {
	s := newTestSlot(t, 0)

	_, err := s.Bid(s.Window().BidStart.Add(-time.Minute), alice, ether(10))
	require.ErrorIs(t, err, ErrWindowClosed)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Bid(s.Window().BidEnd, alice, ether(10))
	require.ErrorIs(t, err, ErrWindowClosed)
}

func TestSlotReceiveActsAsBid(t *testing.T) {
	s := newTestSlot(t, 0)

	refund, err := s.Receive(inBidWindow, alice, ether(10))
	require.NoError(t, err)
	require.Nil(t, refund)
	assert.Equal(t, alice, s.MaxBidAccount())
}

func TestSlotEnd(t *testing.T) {
	s := newTestSlot(t, 0)
	_, err := s.Bid(inBidWindow, alice, ether(10))
	require.NoError(t, err)

	// Too early: the window is still open.
	err = s.End(inBidWindow)
	require.ErrorIs(t, err, ErrInvalidState)
	require.False(t, s.Ended())

	require.NoError(t, s.End(afterBidWindow))
	require.True(t, s.Ended())

	// Ending twice fails.
	err = s.End(afterBidWindow)
	require.ErrorIs(t, err, ErrAlreadyEnded)

	// No more bids once ended.
	_, err = s.Bid(afterBidWindow, bob, ether(20))
	require.ErrorIs(t, err, ErrAlreadyEnded)
}

func endedSlotWithWinner(t *testing.T) *Slot {
	t.Helper()
	s := newTestSlot(t, 0)
	_, err := s.Bid(inBidWindow, alice, ether(10))
	require.NoError(t, err)
	require.NoError(t, s.End(afterBidWindow))
	return s
}

func TestSlotSetText(t *testing.T) {
	s := endedSlotWithWinner(t)

	require.NoError(t, s.SetText(alice, "Hello World!"))
	assert.Equal(t, "Hello World!", s.Text())

	// Only once.
	err := s.SetText(alice, "again")
	require.ErrorIs(t, err, ErrAlreadySet)
}

func TestSlotSetTextAuthorization(t *testing.T) {
	s := endedSlotWithWinner(t)

	err := s.SetText(bob, "not the winner")
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Before the auction ends, nobody can set text.
	open := newTestSlot(t, 0)
	_, err = open.Bid(inBidWindow, alice, ether(10))
	require.NoError(t, err)
	err = open.SetText(alice, "too early")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSlotSetTextBounds(t *testing.T) {
	s := endedSlotWithWinner(t)

	err := s.SetText(alice, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	// 30 three-byte runes encode to 90 bytes: at the limit.
	ok := strings.Repeat("你", 30)
	require.Len(t, ok, 90)
	require.NoError(t, s.SetText(alice, ok))

	// 31 runes encode to 93 bytes: over.
	s2 := endedSlotWithWinner(t)
	over := strings.Repeat("你", 31)
	require.Len(t, over, 93)
	err = s2.SetText(alice, over)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSlotTextBytes96(t *testing.T) {
	s := endedSlotWithWinner(t)
	require.NoError(t, s.SetText(alice, "Hello World!"))

	segs, n := s.TextBytes96()
	assert.Equal(t, 12, n)
	assert.Equal(t, "Hello World!", string(segs[0][:12]))
	assert.Equal(t, [32]byte{}, segs[1])
	assert.Equal(t, [32]byte{}, segs[2])
}

func TestSlotTextBytes96ThreeSegments(t *testing.T) {
	// 10 CJK runes + "!!" is exactly 32 bytes; two of those plus 9 ASCII
	// bytes span all three segments.
	part1 := strings.Repeat("你", 10) + "!!"
	part2 := strings.Repeat("好", 10) + "!!"
	part3 := "123456789"
	words := part1 + part2 + part3
	require.Len(t, words, 73)

	s := endedSlotWithWinner(t)
	require.NoError(t, s.SetText(alice, words))

	segs, n := s.TextBytes96()
	assert.Equal(t, 73, n)
	assert.Equal(t, part1, string(segs[0][:]))
	assert.Equal(t, part2, string(segs[1][:]))
	assert.Equal(t, part3, string(segs[2][:9]))
	assert.Equal(t, make([]byte, 23), segs[2][9:])
}

// auditWindow is between the first slot's bid close and display start.
var auditWindow = testOrigin.Add(-29 * time.Minute) // 23:31 the day before

func TestSlotAuditPassPublishesText(t *testing.T) {
	s := endedSlotWithWinner(t)
	require.NoError(t, s.SetText(alice, "Hello World!"))

	// Unaudited text stays off the air.
	assert.Equal(t, DefaultText, s.DisplayText())

	require.NoError(t, s.Audit(auditWindow, AuditPass, ""))
	assert.Equal(t, AuditPass, s.AuditStatus())
	assert.Equal(t, "Hello World!", s.DisplayText())
}

func TestSlotAuditRejectOverrides(t *testing.T) {
	s := endedSlotWithWinner(t)
	require.NoError(t, s.SetText(alice, "Hello World!"))

	// The override bypasses the winner-only and length rules.
	long := strings.Repeat("x", 120)
	require.NoError(t, s.Audit(auditWindow, AuditReject, long))
	assert.Equal(t, AuditReject, s.AuditStatus())
	assert.Equal(t, long, s.DisplayText())

	// The winner's raw text is still inspectable.
	assert.Equal(t, "Hello World!", s.Text())
}

func TestSlotAuditWindow(t *testing.T) {
	s := endedSlotWithWinner(t)
	require.NoError(t, s.SetText(alice, "Hello World!"))

	// Before bid close.
	err := s.Audit(inBidWindow, AuditPass, "")
	require.ErrorIs(t, err, ErrWindowClosed)

	// At and after display start.
	err = s.Audit(testOrigin, AuditPass, "")
	require.ErrorIs(t, err, ErrWindowClosed)
	err = s.Audit(testOrigin.Add(time.Minute), AuditPass, "")
	require.ErrorIs(t, err, ErrWindowClosed)

	// Unknown status.
	err = s.Audit(auditWindow, AuditStatus(9), "")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSlotDisplayTextDefaults(t *testing.T) {
	s := newTestSlot(t, 0)
	assert.Equal(t, DefaultText, s.DisplayText())

	// A pass with no text set still falls back to the default.
	s2 := endedSlotWithWinner(t)
	require.NoError(t, s2.Audit(auditWindow, AuditPass, ""))
	assert.Equal(t, DefaultText, s2.DisplayText())
}

func TestSlotInfo(t *testing.T) {
	s := endedSlotWithWinner(t)
	require.NoError(t, s.SetText(alice, "Hello World!"))

	info := s.Info()
	assert.Equal(t, "FOT01", info.Symbol)
	assert.Equal(t, "FOT01", info.Name)
	assert.False(t, info.IsPrivate)
	assert.Zero(t, info.BidStartValue.Cmp(DefaultBidStartValue))
	assert.Equal(t, testOrigin, info.TVUseStart)
	assert.Equal(t, testOrigin.Add(2*time.Hour), info.TVUseEnd)
	assert.Equal(t, alice, info.MaxBidAccount)
	assert.True(t, info.AuctionEnded)
	assert.Equal(t, "Hello World!", info.Text)
	assert.Equal(t, 1, info.Number)
}
