package ntv

import (
	"fmt"
	"math/big"
	"time"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/schedule"
)

// AuditStatus is the moderation state of a slot's display text.
type AuditStatus int

const (
	// AuditNone means no audit has happened; the slot displays the default text.
	AuditNone AuditStatus = iota
	// AuditPass publishes the winner-set text as-is.
	AuditPass
	// AuditReject substitutes administrator override text for display.
	AuditReject
)

func (s AuditStatus) String() string {
	switch s {
	case AuditNone:
		return "none"
	case AuditPass:
		return "pass"
	case AuditReject:
		return "reject"
	default:
		return fmt.Sprintf("audit-status(%d)", int(s))
	}
}

func (s AuditStatus) valid() bool {
	return s == AuditPass || s == AuditReject
}

// Slot is one auctionable broadcast unit: an English auction over a fixed
// bidding window, followed by text moderation, followed by a display
// window. Slots are created by the Registry and never destroyed.
//
// Slot methods are not internally synchronized; the owning Registry
// serializes all access.
type Slot struct {
	symbol        string
	bidStartValue *big.Int
	window        schedule.Window
	isPrivate     bool

	maxBidValue   *big.Int
	maxBidAccount account.Address
	bidCount      int
	bidders       map[account.Address]struct{}

	auctionEnded bool
	swept        bool

	text        string
	textSet     bool
	auditStatus AuditStatus
	overrideTxt string

	maxTextBytes int
	defaultText  string
}

// Refund identifies value owed to an outbid account.
type Refund struct {
	Account account.Address
	Amount  *big.Int
}

func newSlot(ordinal int, w schedule.Window, cfg Config) *Slot {
	return &Slot{
		symbol:        fmt.Sprintf("FOT%02d", ordinal+1),
		bidStartValue: new(big.Int).Set(cfg.BidStartValue),
		window:        w,
		isPrivate:     false, // every observed slot is public; kept for parity
		maxBidValue:   new(big.Int),
		bidders:       make(map[account.Address]struct{}),
		maxTextBytes:  cfg.MaxTextBytes,
		defaultText:   cfg.DefaultText,
	}
}

// Symbol returns the sequential FOTnn identifier.
func (s *Slot) Symbol() string { return s.symbol }

// Name is an alias of Symbol, kept as a separate accessor for parity with
// the original interface.
func (s *Slot) Name() string { return s.symbol }

// Window returns the slot's schedule assignment.
func (s *Slot) Window() schedule.Window { return s.window }

// Number returns the slot's 1..6 position within its broadcast day.
func (s *Slot) Number() int { return s.window.Number }

// IsPrivate reports the classification flag assigned at creation.
func (s *Slot) IsPrivate() bool { return s.isPrivate }

// BidStartValue returns the minimum opening bid in wei.
func (s *Slot) BidStartValue() *big.Int { return new(big.Int).Set(s.bidStartValue) }

// MaxBidValue returns the current highest bid in wei, zero if none.
func (s *Slot) MaxBidValue() *big.Int { return new(big.Int).Set(s.maxBidValue) }

// MaxBidAccount returns the current highest bidder, or account.None.
func (s *Slot) MaxBidAccount() account.Address { return s.maxBidAccount }

// BidCount returns the number of accepted bids.
func (s *Slot) BidCount() int { return s.bidCount }

// Ended reports whether the auction has been finalized.
func (s *Slot) Ended() bool { return s.auctionEnded }

// AuditStatus returns the moderation state of the slot's text.
func (s *Slot) AuditStatus() AuditStatus { return s.auditStatus }

// Text returns the winner-set text, which may differ from what is displayed.
func (s *Slot) Text() string { return s.text }

// Bid places amount on the slot for bidder. It is accepted only while the
// auction is open, the current time is inside the bidding window, and the
// amount strictly exceeds both the opening value and the running maximum.
// On success the previous leader's stake becomes refundable; the returned
// Refund is nil for the first accepted bid.
func (s *Slot) Bid(now time.Time, bidder account.Address, amount *big.Int) (*Refund, error) {
	if bidder.IsZero() {
		return nil, fmt.Errorf("%s: bidder account is required: %w", s.symbol, ErrInvalidArgument)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s: bid amount must be positive: %w", s.symbol, ErrInvalidArgument)
	}
	if s.auctionEnded {
		return nil, fmt.Errorf("%s: %w", s.symbol, ErrAlreadyEnded)
	}
	if !s.window.BidOpen(now) {
		return nil, fmt.Errorf("%s: bidding %w", s.symbol, ErrWindowClosed)
	}

	floor := s.maxBidValue
	if s.bidStartValue.Cmp(floor) > 0 {
		floor = s.bidStartValue
	}
	if amount.Cmp(floor) <= 0 {
		return nil, fmt.Errorf("%s: %s does not exceed %s: %w",
			s.symbol, amount, floor, ErrBidTooLow)
	}

	var refund *Refund
	if !s.maxBidAccount.IsZero() {
		refund = &Refund{Account: s.maxBidAccount, Amount: new(big.Int).Set(s.maxBidValue)}
	}

	s.maxBidValue = new(big.Int).Set(amount)
	s.maxBidAccount = bidder
	s.bidCount++
	s.bidders[bidder] = struct{}{}
	return refund, nil
}

// Receive treats a direct, unattributed value transfer to the slot as an
// implicit bid from the sender.
func (s *Slot) Receive(now time.Time, from account.Address, amount *big.Int) (*Refund, error) {
	return s.Bid(now, from, amount)
}

// End finalizes the auction. Any caller may trigger it, but only after the
// bidding window has closed and only once. The winning amount becomes
// claimable toward the beneficiary via the registry's slot sweep.
func (s *Slot) End(now time.Time) error {
	if s.auctionEnded {
		return fmt.Errorf("%s: %w", s.symbol, ErrAlreadyEnded)
	}
	if now.Before(s.window.BidEnd) {
		return fmt.Errorf("%s: bidding window still open: %w", s.symbol, ErrInvalidState)
	}
	s.auctionEnded = true
	return nil
}

// SetText stores the winner's display text. Only the winning bidder may
// call it, only after the auction ended, only once, and the text must be
// 1..maxTextBytes encoded bytes. The text is not displayed until an audit
// publishes it.
func (s *Slot) SetText(caller account.Address, text string) error {
	if !s.auctionEnded {
		return fmt.Errorf("%s: auction not ended: %w", s.symbol, ErrInvalidState)
	}
	if s.maxBidAccount.IsZero() || caller != s.maxBidAccount {
		return fmt.Errorf("%s: only the auction winner may set text: %w", s.symbol, ErrNotAuthorized)
	}
	if s.textSet {
		return fmt.Errorf("%s: text %w", s.symbol, ErrAlreadySet)
	}
	if text == "" {
		return fmt.Errorf("%s: text must not be empty: %w", s.symbol, ErrInvalidArgument)
	}
	if len(text) > s.maxTextBytes {
		return fmt.Errorf("%s: text is %d bytes, limit %d: %w",
			s.symbol, len(text), s.maxTextBytes, ErrInvalidArgument)
	}
	s.text = text
	s.textSet = true
	return nil
}

// Audit moderates the slot's display text. It is only permitted between
// the close of bidding and the start of the display window. A passing
// audit publishes the winner text as-is; a rejecting audit publishes
// overrideText instead, bypassing the winner-only and length rules that
// apply to SetText. The administrator check lives in the Registry.
func (s *Slot) Audit(now time.Time, status AuditStatus, overrideText string) error {
	if !status.valid() {
		return fmt.Errorf("%s: unknown audit status %d: %w", s.symbol, int(status), ErrInvalidArgument)
	}
	if now.Before(s.window.BidEnd) || !now.Before(s.window.UseStart) {
		return fmt.Errorf("%s: audit %w", s.symbol, ErrWindowClosed)
	}
	s.auditStatus = status
	if status == AuditReject {
		s.overrideTxt = overrideText
	}
	return nil
}

// DisplayText returns what the slot shows on air: the winner text once an
// audit passed it, the override text after a rejecting audit, and the
// deployment default otherwise. Never empty.
func (s *Slot) DisplayText() string {
	switch s.auditStatus {
	case AuditPass:
		if s.text != "" {
			return s.text
		}
	case AuditReject:
		if s.overrideTxt != "" {
			return s.overrideTxt
		}
	}
	return s.defaultText
}

// TextBytes96 returns the winner text split across three 32-byte segments
// plus its total encoded length. Segments beyond the used length are zero.
func (s *Slot) TextBytes96() ([3][32]byte, int) {
	return packText(s.text)
}

// Playing reports whether the slot's display window contains now.
func (s *Slot) Playing(now time.Time) bool {
	return s.window.Contains(now)
}

// Info is a point-in-time snapshot of a slot's externally visible fields.
type Info struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	BidStartValue *big.Int        `json:"bid_start_value"`
	BidStartTime  time.Time       `json:"bid_start_time"`
	BidEndTime    time.Time       `json:"bid_end_time"`
	TVUseStart    time.Time       `json:"tv_use_start_time"`
	TVUseEnd      time.Time       `json:"tv_use_end_time"`
	IsPrivate     bool            `json:"is_private"`
	MaxBidValue   *big.Int        `json:"max_bid_value"`
	MaxBidAccount account.Address `json:"max_bid_account,omitempty"`
	BidCount      int             `json:"bid_count"`
	AuctionEnded  bool            `json:"auction_ended"`
	Text          string          `json:"text,omitempty"`
	AuditStatus   AuditStatus     `json:"audit_status"`
	Number        int             `json:"number"`
}

// Info returns the slot's externally visible state.
func (s *Slot) Info() Info {
	return Info{
		Symbol:        s.symbol,
		Name:          s.symbol,
		BidStartValue: s.BidStartValue(),
		BidStartTime:  s.window.BidStart,
		BidEndTime:    s.window.BidEnd,
		TVUseStart:    s.window.UseStart,
		TVUseEnd:      s.window.UseEnd,
		IsPrivate:     s.isPrivate,
		MaxBidValue:   s.MaxBidValue(),
		MaxBidAccount: s.maxBidAccount,
		BidCount:      s.bidCount,
		AuctionEnded:  s.auctionEnded,
		Text:          s.text,
		AuditStatus:   s.auditStatus,
		Number:        s.window.Number,
	}
}
