// Package testutil provides shared fixtures for registry tests: fixed
// accounts, a settable clock, and option-based builders for started
// registries with slots and bids in place.
package testutil
