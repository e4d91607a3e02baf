package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/cocosci/fishchain/internal/model"
)

// Chain is one transmission chain as stored by the assignment service
type Chain struct {
	ID        string         `json:"_id"`
	Condition ConditionID    `json:"condition,omitempty"`
	Busy      bool           `json:"busy"`
	Reads     int            `json:"reads,omitempty"`
	Messages  []ChainMessage `json:"messages"`
}

// LastMessage returns the most recent message, which is the one a new
// participant reads
func (c *Chain) LastMessage() (ChainMessage, bool) {
	if c == nil || len(c.Messages) == 0 {
		return ChainMessage{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Clone returns a deep copy
func (c *Chain) Clone() *Chain {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = make([]ChainMessage, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.clone()
	}
	return &out
}

// ConditionID accepts the message condition as either a JSON string or number
type ConditionID string

func (id *ConditionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ConditionID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("condition: %w", err)
	}
	*id = ConditionID(n.String())
	return nil
}

// ChainMessage is either free text written by a participant or a belief
// message composed with the count widget
type ChainMessage struct {
	Text   string
	Belief model.Message
}

// TextMessage wraps free text
func TextMessage(text string) ChainMessage {
	return ChainMessage{Text: text}
}

// BeliefMessage wraps a composed belief
func BeliefMessage(msg model.Message) ChainMessage {
	return ChainMessage{Belief: msg}
}

// IsBelief reports whether the message carries a composed belief
func (m ChainMessage) IsBelief() bool {
	return m.Belief != nil
}

func (m ChainMessage) clone() ChainMessage {
	if m.Belief == nil {
		return m
	}
	belief := make(model.Message, len(m.Belief))
	for k, v := range m.Belief {
		belief[k] = v
	}
	return ChainMessage{Text: m.Text, Belief: belief}
}

func (m ChainMessage) MarshalJSON() ([]byte, error) {
	if m.IsBelief() {
		return json.Marshal(m.Belief)
	}
	return json.Marshal(m.Text)
}

func (m *ChainMessage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*m = ChainMessage{}
		return nil
	case data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*m = ChainMessage{Text: text}
		return nil
	case data[0] == '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		belief := make(model.Message, len(raw))
		for key, value := range raw {
			v, err := parseNumber(value)
			if err != nil {
				return fmt.Errorf("message value %q: %w", key, err)
			}
			belief[key] = v
		}
		*m = ChainMessage{Belief: belief}
		return nil
	default:
		return fmt.Errorf("unsupported message encoding: %s", data)
	}
}

// parseNumber accepts numbers and numeric strings; form inputs arrive as strings
func parseNumber(data json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		return v, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

// Holder owns the chain assigned to the current participant. It replaces the
// page-global holder the task callbacks used to share.
type Holder struct {
	mu    sync.Mutex
	chain *Chain
}

// Set records the assigned chain
func (h *Holder) Set(c *Chain) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chain = c.Clone()
}

// Get returns a copy of the assigned chain, or nil while assignment is pending
func (h *Holder) Get() *Chain {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.chain.Clone()
}
