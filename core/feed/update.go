package feed

import (
	"encoding/json"
	"fmt"
)

// Kind names a notification variant for logging and metrics labels.
type Kind string

const (
	KindSlot        Kind = "slot"
	KindAccount     Kind = "account"
	KindTransaction Kind = "transaction"
	KindBlock       Kind = "block"
)

// Update is the closed union of ledger state-change notifications.
// The four concrete types in this package are its only implementations.
type Update interface {
	// Kind identifies the variant.
	Kind() Kind

	sealed()
}

// SlotStatus is the commitment level reported by a SlotUpdate.
type SlotStatus uint8

const (
	StatusProcessed SlotStatus = iota
	StatusConfirmed
	StatusRooted
)

// String implements fmt.Stringer.
func (s SlotStatus) String() string {
	switch s {
	case StatusProcessed:
		return "processed"
	case StatusConfirmed:
		return "confirmed"
	case StatusRooted:
		return "rooted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// MarshalJSON encodes the status as its lowercase name.
func (s SlotStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status from its lowercase name.
func (s *SlotStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "processed":
		*s = StatusProcessed
	case "confirmed":
		*s = StatusConfirmed
	case "rooted":
		*s = StatusRooted
	default:
		return fmt.Errorf("unknown slot status %q", name)
	}
	return nil
}

// SlotUpdate reports a slot transitioning to a new commitment status.
type SlotUpdate struct {
	Slot   uint64     `json:"slot"`
	Parent *uint64    `json:"parent,omitempty"`
	Status SlotStatus `json:"status"`
}

func (*SlotUpdate) Kind() Kind { return KindSlot }
func (*SlotUpdate) sealed()    {}

// AccountUpdate reports a single account write observed at a slot.
// Data is the raw account payload and is passed through untransformed.
type AccountUpdate struct {
	Pubkey       []byte `json:"pubkey"`
	Lamports     uint64 `json:"lamports"`
	Owner        []byte `json:"owner"`
	Executable   bool   `json:"executable"`
	RentEpoch    uint64 `json:"rent_epoch"`
	Data         []byte `json:"data,omitempty"`
	WriteVersion uint64 `json:"write_version"`
	Slot         uint64 `json:"slot"`
	IsStartup    bool   `json:"is_startup"`
}

func (*AccountUpdate) Kind() Kind { return KindAccount }
func (*AccountUpdate) sealed()    {}

// TransactionMeta carries the execution outcome of a transaction.
// An empty Err means the transaction succeeded.
type TransactionMeta struct {
	Err          string `json:"err,omitempty"`
	Fee          uint64 `json:"fee"`
	ComputeUnits uint64 `json:"compute_units,omitempty"`
}

// Failed reports whether the transaction errored during execution.
func (m TransactionMeta) Failed() bool { return m.Err != "" }

// TransactionUpdate reports a processed transaction. Payload is the
// serialized transaction exactly as received from the producer; AccountKeys
// lists every account address the transaction references.
type TransactionUpdate struct {
	Signature   []byte          `json:"signature"`
	IsVote      bool            `json:"is_vote"`
	AccountKeys [][]byte        `json:"account_keys,omitempty"`
	Payload     []byte          `json:"payload,omitempty"`
	Meta        TransactionMeta `json:"meta"`
	Slot        uint64          `json:"slot"`
}

func (*TransactionUpdate) Kind() Kind { return KindTransaction }
func (*TransactionUpdate) sealed()    {}

// Reward is one entry of a block's reward list, in ledger order.
type Reward struct {
	Pubkey      []byte `json:"pubkey"`
	Lamports    int64  `json:"lamports"`
	PostBalance uint64 `json:"post_balance"`
	RewardType  string `json:"reward_type,omitempty"`
	Commission  *uint8 `json:"commission,omitempty"`
}

// BlockUpdate reports a completed block and its metadata.
type BlockUpdate struct {
	Slot        uint64   `json:"slot"`
	Blockhash   string   `json:"blockhash"`
	Rewards     []Reward `json:"rewards,omitempty"`
	BlockTime   *int64   `json:"block_time,omitempty"`
	BlockHeight *uint64  `json:"block_height,omitempty"`
}

func (*BlockUpdate) Kind() Kind { return KindBlock }
func (*BlockUpdate) sealed()    {}
