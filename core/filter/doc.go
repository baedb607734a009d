// Package filter compiles subscription interest declarations into matchers
// evaluated against every broadcast update.
//
// A subscriber declares interest once, at subscription time, as a Request:
// named groups per update kind, each with optional sub-criteria. Compile
// validates the request against server-imposed Limits and resolves address
// lists into byte-keyed sets. The resulting Filter is immutable and its
// Match method is the only code that runs on the dispatch path:
//
//	f, err := filter.Compile(filter.Request{
//	    Accounts: map[string]filter.AccountCriteria{
//	        "wallets": {Accounts: []string{base64Pubkey}},
//	    },
//	    Slots: map[string]filter.SlotCriteria{"slots": {}},
//	}, filter.DefaultLimits())
//	if err != nil {
//	    // invalid-argument: reject the subscription, allocate nothing
//	}
//
//	names := f.Match(update) // names of the groups that matched; nil = skip
//
// Compilation cost (base64 decoding, set construction, validation) is paid
// exactly once per subscription, never per event. Match performs set lookups
// and flag comparisons only.
//
// # Matching Semantics
//
//   - Account groups match when the update's pubkey is in the group's
//     account set or its owner is in the owner set; a group with neither
//     list matches every account update.
//   - Slot and block groups have no sub-criteria; declaring one expresses
//     interest in every update of that kind.
//   - Transaction groups gate on vote inclusion and failure status when set,
//     and on account references: with a non-empty AccountInclude list, at
//     least one referenced account must be in it.
//
// Group names are subscriber-chosen labels; Match returns them sorted so a
// request's result for a given update is deterministic.
//
// Matching is linear over a subscriber's groups and re-evaluated for every
// (event, subscriber) pair; results are never cached across events.
package filter
