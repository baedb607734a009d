// Package feed defines the domain model for ledger state-change
// notifications and their outbound wire representation.
//
// A producer (typically a validator plugin hook) observes four kinds of
// facts and hands them to the broadcaster as immutable Update values:
//
//   - SlotUpdate: a slot moved to a new commitment status
//   - AccountUpdate: an account was written at a slot
//   - TransactionUpdate: a transaction was processed at a slot
//   - BlockUpdate: a block was finalized with its metadata
//
// Update is a closed union: the four concrete types above are the only
// implementations, and the dispatch path is exhaustive over them. Adding a
// new notification kind means adding a variant and extending the two
// conversion points (NewEnvelope and Envelope.Update); nothing else changes.
//
// # Immutability
//
// An Update is immutable once constructed. During one dispatch pass the same
// Update value is shared, read-only, by every subscriber it matches; neither
// the broadcaster nor any subscriber may mutate it or the byte slices it
// references.
//
// # Wire Representation
//
// Envelope is the message delivered to subscribers: the names of the filter
// groups that matched, plus exactly one Update payload. Conversion via
// NewEnvelope is pure, allocation-cheap, and performed lazily, only for
// subscribers whose filter matched:
//
//	env := feed.NewEnvelope([]string{"wallets"}, &feed.AccountUpdate{
//	    Pubkey:   pubkey,
//	    Lamports: 1_000_000,
//	    Owner:    owner,
//	    Slot:     42,
//	})
//	data, err := json.Marshal(env)
//
// Byte fields (public keys, signatures, payloads) travel as base64 strings,
// encoding/json's native representation for []byte. Numeric fields are
// carried verbatim; no recomputation or precision loss occurs on the wire.
package feed
