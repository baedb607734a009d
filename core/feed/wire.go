package feed

// Envelope is the wire message delivered to one subscriber: the filter group
// names that matched this update for that subscriber, plus exactly one
// payload. Zero or several set payloads only appear on malformed input from
// an external producer; Update reports that as nil.
type Envelope struct {
	Filters     []string           `json:"filters,omitempty"`
	Slot        *SlotUpdate        `json:"slot,omitempty"`
	Account     *AccountUpdate     `json:"account,omitempty"`
	Transaction *TransactionUpdate `json:"transaction,omitempty"`
	Block       *BlockUpdate       `json:"block,omitempty"`
}

// NewEnvelope wraps an update for delivery, tagged with the matched filter
// names. The update is referenced, not copied: envelopes built from the same
// update during one dispatch pass share its payload read-only.
func NewEnvelope(filters []string, u Update) *Envelope {
	e := &Envelope{Filters: filters}
	switch u := u.(type) {
	case *SlotUpdate:
		e.Slot = u
	case *AccountUpdate:
		e.Account = u
	case *TransactionUpdate:
		e.Transaction = u
	case *BlockUpdate:
		e.Block = u
	}
	return e
}

// Update returns the single payload carried by the envelope, or nil when the
// envelope does not carry exactly one payload.
func (e *Envelope) Update() Update {
	var u Update
	n := 0
	if e.Slot != nil {
		u, n = e.Slot, n+1
	}
	if e.Account != nil {
		u, n = e.Account, n+1
	}
	if e.Transaction != nil {
		u, n = e.Transaction, n+1
	}
	if e.Block != nil {
		u, n = e.Block, n+1
	}
	if n != 1 {
		return nil
	}
	return u
}

// Kind names the payload variant, or the empty Kind for a malformed envelope.
func (e *Envelope) Kind() Kind {
	if u := e.Update(); u != nil {
		return u.Kind()
	}
	return ""
}
