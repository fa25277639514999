// Package schedule maps wall-clock time onto the fixed daily broadcast
// template and derives the auction and display windows each slot is
// assigned at creation.
//
// The policy is stateless: given a midnight-aligned go-live origin it
// answers three questions, all as pure functions of their inputs:
//
//   - DayFor: which 1-based broadcast day a timestamp belongs to
//   - NumberFor: which of the six daily display windows contains a timestamp
//   - WindowAt: the complete bid/display window pair for the n-th slot
//     ever created
//
// Keeping the derivation here, away from slot lifecycle, lets the mapping
// be unit-tested against the published schedule table in isolation.
package schedule
