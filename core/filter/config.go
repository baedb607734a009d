package filter

// Limits caps the complexity a single subscription request may declare.
// Compile rejects requests that exceed any limit before allocating the
// compiled filter, so oversized requests cost nothing on the dispatch path.
//
// Limits is loaded from the environment via config.Load, or constructed
// directly; DefaultLimits returns the same values the env defaults encode.
type Limits struct {
	// MaxGroups bounds the total number of groups across all kinds.
	MaxGroups int `env:"FILTER_MAX_GROUPS" envDefault:"16"`
	// MaxAccounts bounds the account address list of one account group.
	MaxAccounts int `env:"FILTER_MAX_ACCOUNTS" envDefault:"1024"`
	// MaxOwners bounds the owner address list of one account group.
	MaxOwners int `env:"FILTER_MAX_OWNERS" envDefault:"64"`
	// MaxAccountInclude bounds the account_include list of one
	// transaction group.
	MaxAccountInclude int `env:"FILTER_MAX_ACCOUNT_INCLUDE" envDefault:"1024"`
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		MaxGroups:         16,
		MaxAccounts:       1024,
		MaxOwners:         64,
		MaxAccountInclude: 1024,
	}
}
