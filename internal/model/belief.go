package model

import "time"

// Mode selects how category values are entered
type Mode string

const (
	ModeFraction Mode = "fraction" // Values are probabilities that always sum to 1
	ModeCount    Mode = "count"    // Values are independent integer counts
)

// InformationKey is the message key that carries the confidence slot
const InformationKey = "information"

// Slot is a single numeric input that may be unset
type Slot struct {
	Value float64 `json:"value"`
	Set   bool    `json:"set"`
}

// BeliefState is the live state of an elicitation widget.
// Revealed has one entry per category plus a trailing entry for confidence.
type BeliefState struct {
	Mode       Mode   `json:"mode"`
	Values     []Slot `json:"values"`
	Confidence Slot   `json:"confidence"`
	Revealed   []bool `json:"revealed"`
}

// ConfidenceRevealed reports whether the confidence slot is disclosed
func (s BeliefState) ConfidenceRevealed() bool {
	if len(s.Revealed) == 0 {
		return true
	}
	return s.Revealed[len(s.Revealed)-1]
}

// IsRevealed reports whether category slot i is disclosed
func (s BeliefState) IsRevealed(i int) bool {
	if len(s.Revealed) == 0 {
		return true
	}
	return s.Revealed[i]
}

// Clone returns a deep copy
func (s BeliefState) Clone() BeliefState {
	out := s
	out.Values = append([]Slot(nil), s.Values...)
	out.Revealed = append([]bool(nil), s.Revealed...)
	return out
}

// FinalizedResponse is the immutable record produced by a successful submit.
// Values only holds revealed categories; a missing key means hidden, not zero.
type FinalizedResponse struct {
	ID          string             `json:"id"`
	ConditionID string             `json:"condition_id"`
	Mode        Mode               `json:"mode"`
	Values      map[string]float64 `json:"values"`
	Confidence  *float64           `json:"confidence,omitempty"`
	ElapsedMs   int64              `json:"elapsed_ms"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Message is a belief disclosed to the next participant in a chain
type Message map[string]float64

// CredibleInterval is a posterior interval in [0,1]
type CredibleInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether p lies inside the interval (inclusive)
func (ci CredibleInterval) Contains(p float64) bool {
	return p >= ci.Lower && p <= ci.Upper
}

// Width returns Upper - Lower
func (ci CredibleInterval) Width() float64 {
	return ci.Upper - ci.Lower
}
