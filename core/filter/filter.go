package filter

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/dmitrymomot/chainstream/core/feed"
)

// Request declares a subscriber's interest as named groups per update kind.
// Group names are subscriber-chosen labels echoed back on every matching
// envelope. The zero value matches nothing.
type Request struct {
	Accounts     map[string]AccountCriteria     `json:"accounts,omitempty"`
	Slots        map[string]SlotCriteria        `json:"slots,omitempty"`
	Transactions map[string]TransactionCriteria `json:"transactions,omitempty"`
	Blocks       map[string]BlockCriteria       `json:"blocks,omitempty"`
}

// AccountCriteria narrows an account group to specific addresses. Addresses
// are base64-encoded. A group with neither list matches every account update.
type AccountCriteria struct {
	Accounts []string `json:"accounts,omitempty"`
	Owners   []string `json:"owners,omitempty"`
}

// SlotCriteria carries no sub-criteria; declaring a slot group expresses
// interest in every slot update.
type SlotCriteria struct{}

// TransactionCriteria narrows a transaction group. A nil Vote or Failed
// accepts either value; an empty AccountInclude imposes no account
// requirement.
type TransactionCriteria struct {
	Vote           *bool    `json:"vote,omitempty"`
	Failed         *bool    `json:"failed,omitempty"`
	AccountInclude []string `json:"account_include,omitempty"`
}

// BlockCriteria carries no sub-criteria; declaring a block group expresses
// interest in every block update.
type BlockCriteria struct{}

// Filter is the compiled form of a Request. It is immutable after Compile
// and safe for concurrent use by any number of goroutines.
type Filter struct {
	accounts     []accountGroup
	slots        []string
	transactions []transactionGroup
	blocks       []string
}

type accountGroup struct {
	name     string
	accounts map[string]struct{}
	owners   map[string]struct{}
}

type transactionGroup struct {
	name    string
	vote    *bool
	failed  *bool
	include map[string]struct{}
}

// Compile validates req against limits and resolves it into a Filter.
// Base64 address lists are decoded into byte-keyed sets here, once; the
// returned Filter performs lookups and flag comparisons only. Errors wrap
// the sentinel for the violated rule and name the offending group.
func Compile(req Request, limits Limits) (*Filter, error) {
	total := len(req.Accounts) + len(req.Slots) + len(req.Transactions) + len(req.Blocks)
	if total > limits.MaxGroups {
		return nil, fmt.Errorf("%w: %d declared, limit %d", ErrTooManyGroups, total, limits.MaxGroups)
	}

	f := &Filter{}

	for name, c := range req.Accounts {
		if name == "" {
			return nil, ErrEmptyGroupName
		}
		if len(c.Accounts) > limits.MaxAccounts {
			return nil, fmt.Errorf("%w %q: %d declared, limit %d", ErrTooManyAccounts, name, len(c.Accounts), limits.MaxAccounts)
		}
		if len(c.Owners) > limits.MaxOwners {
			return nil, fmt.Errorf("%w %q: %d declared, limit %d", ErrTooManyOwners, name, len(c.Owners), limits.MaxOwners)
		}
		accounts, err := decodeSet(c.Accounts)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidAddress, name, err)
		}
		owners, err := decodeSet(c.Owners)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidAddress, name, err)
		}
		f.accounts = append(f.accounts, accountGroup{name: name, accounts: accounts, owners: owners})
	}
	sort.Slice(f.accounts, func(i, j int) bool { return f.accounts[i].name < f.accounts[j].name })

	for name := range req.Slots {
		if name == "" {
			return nil, ErrEmptyGroupName
		}
		f.slots = append(f.slots, name)
	}
	sort.Strings(f.slots)

	for name, c := range req.Transactions {
		if name == "" {
			return nil, ErrEmptyGroupName
		}
		if len(c.AccountInclude) > limits.MaxAccountInclude {
			return nil, fmt.Errorf("%w %q: %d declared, limit %d", ErrTooManyAccountInclude, name, len(c.AccountInclude), limits.MaxAccountInclude)
		}
		include, err := decodeSet(c.AccountInclude)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidAddress, name, err)
		}
		f.transactions = append(f.transactions, transactionGroup{
			name:    name,
			vote:    c.Vote,
			failed:  c.Failed,
			include: include,
		})
	}
	sort.Slice(f.transactions, func(i, j int) bool { return f.transactions[i].name < f.transactions[j].name })

	for name := range req.Blocks {
		if name == "" {
			return nil, ErrEmptyGroupName
		}
		f.blocks = append(f.blocks, name)
	}
	sort.Strings(f.blocks)

	return f, nil
}

// Match reports which of the filter's groups the update satisfies. It
// returns the matching group names in sorted order, or nil when the filter
// has no interest in the update.
func (f *Filter) Match(u feed.Update) []string {
	switch u := u.(type) {
	case *feed.SlotUpdate:
		return copyNames(f.slots)
	case *feed.AccountUpdate:
		var names []string
		for _, g := range f.accounts {
			if g.matches(u) {
				names = append(names, g.name)
			}
		}
		return names
	case *feed.TransactionUpdate:
		var names []string
		for _, g := range f.transactions {
			if g.matches(u) {
				names = append(names, g.name)
			}
		}
		return names
	case *feed.BlockUpdate:
		return copyNames(f.blocks)
	default:
		return nil
	}
}

func (g accountGroup) matches(u *feed.AccountUpdate) bool {
	if len(g.accounts) == 0 && len(g.owners) == 0 {
		return true
	}
	if _, ok := g.accounts[string(u.Pubkey)]; ok {
		return true
	}
	if _, ok := g.owners[string(u.Owner)]; ok {
		return true
	}
	return false
}

func (g transactionGroup) matches(u *feed.TransactionUpdate) bool {
	if g.vote != nil && *g.vote != u.IsVote {
		return false
	}
	if g.failed != nil && *g.failed != u.Meta.Failed() {
		return false
	}
	if len(g.include) > 0 {
		for _, key := range u.AccountKeys {
			if _, ok := g.include[string(key)]; ok {
				return true
			}
		}
		return false
	}
	return true
}

func decodeSet(addrs []string) (map[string]struct{}, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		raw, err := base64.StdEncoding.DecodeString(a)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", a, err)
		}
		set[string(raw)] = struct{}{}
	}
	return set, nil
}

func copyNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}
