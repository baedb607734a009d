package filter

import "errors"

var (
	// ErrEmptyGroupName is returned when a filter group is declared under
	// an empty name.
	ErrEmptyGroupName = errors.New("filter group name is empty")

	// ErrTooManyGroups is returned when a request declares more filter
	// groups than the server allows.
	ErrTooManyGroups = errors.New("too many filter groups")

	// ErrTooManyAccounts is returned when an account group lists more
	// account addresses than the server allows.
	ErrTooManyAccounts = errors.New("too many accounts in filter group")

	// ErrTooManyOwners is returned when an account group lists more owner
	// addresses than the server allows.
	ErrTooManyOwners = errors.New("too many owners in filter group")

	// ErrTooManyAccountInclude is returned when a transaction group lists
	// more referenced accounts than the server allows.
	ErrTooManyAccountInclude = errors.New("too many account_include entries in filter group")

	// ErrInvalidAddress is returned when an address in a filter group is
	// not valid base64.
	ErrInvalidAddress = errors.New("invalid address in filter group")
)
