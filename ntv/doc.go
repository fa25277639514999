/*
Package ntv implements the core state machine of the NTV slot auction: the
registry of auctionable broadcast slots, the per-slot English auction and
text moderation lifecycle, and the claimable-balance ledger the treasury
settles against.

# Model

A Registry owns an append-only, capacity-bounded sequence of Slots. Each
slot is created with the next window of the fixed daily schedule (see the
schedule package) and moves through a one-way lifecycle:

	created -> bidding open -> ended -> text set / audited -> on air

Bids must strictly exceed the running maximum; an outbid account's funds
become claimable in the ledger rather than being pushed back, which keeps
the auction state machine decoupled from whatever transfer mechanism the
surrounding system uses. Auction proceeds become claimable by the
configured beneficiary once an administrator sweeps the ended slot.

Display text is moderated: the winner may set it once after the auction
ends, but it only goes on air after an administrator audit passes it (a
rejecting audit substitutes override text). Slots with no published text
fall back to the deployment default string, never to empty.

# Execution model

All operations execute atomically under the registry's mutex; time is an
explicit input to every time-dependent operation rather than something the
core reads from a clock. Reads never fail and never block writers for long:
they degrade to zero/none/default results.
*/
package ntv
