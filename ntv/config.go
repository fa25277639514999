package ntv

import (
	"fmt"
	"math/big"

	"github.com/six-thirty/ntvnet/account"
)

// DefaultText is shown for any slot whose text was never published by an
// audit. Display never falls back to an empty string.
const DefaultText = "浪花有意千里雪，桃花无言一队春。"

// DefaultMaxSlots bounds the registry: eleven broadcast days, six slots each.
const DefaultMaxSlots = 66

// DefaultMaxTextBytes is the encoded-length cap for winner-set text. The
// three-segment storage holds 96 bytes; the published cap is tighter.
const DefaultMaxTextBytes = 90

// DefaultBidStartValue is the minimum opening bid, 0.1 ether in wei.
var DefaultBidStartValue = new(big.Int).Mul(big.NewInt(100), big.NewInt(1e15))

// Config is the deployment-wide configuration injected at registry
// construction. Admin is the only account allowed to start the registry,
// create slots, audit text, and sweep funds.
type Config struct {
	Admin         account.Address
	BidStartValue *big.Int // minimum opening bid in wei
	MaxSlots      int
	MaxTextBytes  int
	DefaultText   string
}

// DefaultConfig returns the production defaults for the given administrator.
func DefaultConfig(admin account.Address) Config {
	return Config{
		Admin:         admin,
		BidStartValue: new(big.Int).Set(DefaultBidStartValue),
		MaxSlots:      DefaultMaxSlots,
		MaxTextBytes:  DefaultMaxTextBytes,
		DefaultText:   DefaultText,
	}
}

func (c *Config) validate() error {
	if c.Admin.IsZero() {
		return fmt.Errorf("config: admin account is required")
	}
	if c.BidStartValue == nil || c.BidStartValue.Sign() <= 0 {
		return fmt.Errorf("config: bid start value must be positive")
	}
	if c.MaxSlots <= 0 {
		return fmt.Errorf("config: max slots must be positive")
	}
	if c.MaxTextBytes <= 0 || c.MaxTextBytes > textCapacity {
		return fmt.Errorf("config: max text bytes must be in (0, %d]", textCapacity)
	}
	if c.DefaultText == "" {
		return fmt.Errorf("config: default text is required")
	}
	return nil
}
