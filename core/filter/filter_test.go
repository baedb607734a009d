package filter_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/chainstream/core/feed"
	"github.com/dmitrymomot/chainstream/core/filter"
)

func b64(raw string) string {
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func boolPtr(v bool) *bool { return &v }

func TestCompile(t *testing.T) {
	t.Parallel()

	t.Run("empty request compiles and matches nothing", func(t *testing.T) {
		t.Parallel()

		f, err := filter.Compile(filter.Request{}, filter.DefaultLimits())
		require.NoError(t, err)

		assert.Nil(t, f.Match(&feed.SlotUpdate{Slot: 1}))
		assert.Nil(t, f.Match(&feed.AccountUpdate{Pubkey: []byte("acc"), Slot: 1}))
		assert.Nil(t, f.Match(&feed.TransactionUpdate{Signature: []byte("sig"), Slot: 1}))
		assert.Nil(t, f.Match(&feed.BlockUpdate{Slot: 1}))
	})

	t.Run("too many groups", func(t *testing.T) {
		t.Parallel()

		limits := filter.DefaultLimits()
		limits.MaxGroups = 1

		_, err := filter.Compile(filter.Request{
			Slots:  map[string]filter.SlotCriteria{"slots": {}},
			Blocks: map[string]filter.BlockCriteria{"blocks": {}},
		}, limits)
		require.ErrorIs(t, err, filter.ErrTooManyGroups)
	})

	t.Run("too many accounts", func(t *testing.T) {
		t.Parallel()

		limits := filter.DefaultLimits()
		limits.MaxAccounts = 1

		_, err := filter.Compile(filter.Request{
			Accounts: map[string]filter.AccountCriteria{
				"wallets": {Accounts: []string{b64("a"), b64("b")}},
			},
		}, limits)
		require.ErrorIs(t, err, filter.ErrTooManyAccounts)
		assert.Contains(t, err.Error(), "wallets")
	})

	t.Run("too many owners", func(t *testing.T) {
		t.Parallel()

		limits := filter.DefaultLimits()
		limits.MaxOwners = 1

		_, err := filter.Compile(filter.Request{
			Accounts: map[string]filter.AccountCriteria{
				"programs": {Owners: []string{b64("a"), b64("b")}},
			},
		}, limits)
		require.ErrorIs(t, err, filter.ErrTooManyOwners)
	})

	t.Run("too many account_include", func(t *testing.T) {
		t.Parallel()

		limits := filter.DefaultLimits()
		limits.MaxAccountInclude = 1

		_, err := filter.Compile(filter.Request{
			Transactions: map[string]filter.TransactionCriteria{
				"txs": {AccountInclude: []string{b64("a"), b64("b")}},
			},
		}, limits)
		require.ErrorIs(t, err, filter.ErrTooManyAccountInclude)
	})

	t.Run("empty group name", func(t *testing.T) {
		t.Parallel()

		_, err := filter.Compile(filter.Request{
			Slots: map[string]filter.SlotCriteria{"": {}},
		}, filter.DefaultLimits())
		require.ErrorIs(t, err, filter.ErrEmptyGroupName)
	})

	t.Run("invalid base64 address", func(t *testing.T) {
		t.Parallel()

		_, err := filter.Compile(filter.Request{
			Accounts: map[string]filter.AccountCriteria{
				"wallets": {Accounts: []string{"not/base64!!!"}},
			},
		}, filter.DefaultLimits())
		require.ErrorIs(t, err, filter.ErrInvalidAddress)
		assert.Contains(t, err.Error(), "wallets")
	})
}

func TestFilterMatchSlots(t *testing.T) {
	t.Parallel()

	f, err := filter.Compile(filter.Request{
		Slots: map[string]filter.SlotCriteria{"b": {}, "a": {}},
	}, filter.DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, f.Match(&feed.SlotUpdate{Slot: 42, Status: feed.StatusProcessed}))
	assert.Nil(t, f.Match(&feed.BlockUpdate{Slot: 42}))
}

func TestFilterMatchBlocks(t *testing.T) {
	t.Parallel()

	f, err := filter.Compile(filter.Request{
		Blocks: map[string]filter.BlockCriteria{"blocks": {}},
	}, filter.DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"blocks"}, f.Match(&feed.BlockUpdate{Slot: 7, Blockhash: "hash"}))
	assert.Nil(t, f.Match(&feed.SlotUpdate{Slot: 7}))
}

func TestFilterMatchAccounts(t *testing.T) {
	t.Parallel()

	f, err := filter.Compile(filter.Request{
		Accounts: map[string]filter.AccountCriteria{
			"all":     {},
			"wallets": {Accounts: []string{b64("wallet-1"), b64("wallet-2")}},
			"tokens":  {Owners: []string{b64("token-program")}},
		},
	}, filter.DefaultLimits())
	require.NoError(t, err)

	t.Run("matches by pubkey", func(t *testing.T) {
		t.Parallel()

		names := f.Match(&feed.AccountUpdate{
			Pubkey: []byte("wallet-1"),
			Owner:  []byte("system-program"),
			Slot:   1,
		})
		assert.Equal(t, []string{"all", "wallets"}, names)
	})

	t.Run("matches by owner", func(t *testing.T) {
		t.Parallel()

		names := f.Match(&feed.AccountUpdate{
			Pubkey: []byte("mint-account"),
			Owner:  []byte("token-program"),
			Slot:   1,
		})
		assert.Equal(t, []string{"all", "tokens"}, names)
	})

	t.Run("empty criteria match every account", func(t *testing.T) {
		t.Parallel()

		names := f.Match(&feed.AccountUpdate{
			Pubkey: []byte("unmatched"),
			Owner:  []byte("unmatched"),
			Slot:   1,
		})
		assert.Equal(t, []string{"all"}, names)
	})
}

func TestFilterMatchTransactions(t *testing.T) {
	t.Parallel()

	f, err := filter.Compile(filter.Request{
		Transactions: map[string]filter.TransactionCriteria{
			"all":      {},
			"no-votes": {Vote: boolPtr(false)},
			"failed":   {Failed: boolPtr(true)},
			"wallet": {
				Vote:           boolPtr(false),
				AccountInclude: []string{b64("wallet-1")},
			},
		},
	}, filter.DefaultLimits())
	require.NoError(t, err)

	t.Run("vote transaction", func(t *testing.T) {
		t.Parallel()

		names := f.Match(&feed.TransactionUpdate{
			Signature: []byte("sig-1"),
			IsVote:    true,
			Slot:      1,
		})
		assert.Equal(t, []string{"all"}, names)
	})

	t.Run("failed transaction referencing the wallet", func(t *testing.T) {
		t.Parallel()

		names := f.Match(&feed.TransactionUpdate{
			Signature:   []byte("sig-2"),
			AccountKeys: [][]byte{[]byte("wallet-1"), []byte("other")},
			Meta:        feed.TransactionMeta{Err: "custom program error"},
			Slot:        1,
		})
		assert.Equal(t, []string{"all", "failed", "no-votes", "wallet"}, names)
	})

	t.Run("account include misses", func(t *testing.T) {
		t.Parallel()

		names := f.Match(&feed.TransactionUpdate{
			Signature:   []byte("sig-3"),
			AccountKeys: [][]byte{[]byte("other")},
			Slot:        1,
		})
		assert.Equal(t, []string{"all", "no-votes"}, names)
	})
}

func TestFilterMatchIsRepeatable(t *testing.T) {
	t.Parallel()

	f, err := filter.Compile(filter.Request{
		Slots: map[string]filter.SlotCriteria{"slots": {}},
	}, filter.DefaultLimits())
	require.NoError(t, err)

	u := &feed.SlotUpdate{Slot: 9}
	first := f.Match(u)
	second := f.Match(u)
	assert.Equal(t, first, second)

	first[0] = "mutated"
	assert.Equal(t, []string{"slots"}, f.Match(u))
}
