package elicit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cocosci/fishchain/internal/condition"
	"github.com/cocosci/fishchain/internal/model"
	"github.com/google/uuid"
)

// Phase is the lifecycle state of a Collector
type Phase int

const (
	PhaseEditing   Phase = iota
	PhaseBlocked         // A submit failed; the participant is shown the reason
	PhaseFinalized       // Terminal
	PhaseDiscarded       // Terminal
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseBlocked:
		return "blocked"
	case PhaseFinalized:
		return "finalized"
	case PhaseDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// DefaultStatus is shown before the first submit attempt
const DefaultStatus = "Press 'Send' to send this message."

// Collector owns the belief state of one elicitation widget. It is driven by a
// single participant and is not safe for concurrent use.
type Collector struct {
	cond     model.Condition
	cfg      Config
	state    model.BeliefState
	phase    Phase
	warned   bool
	status   string
	started  time.Time
	now      func() time.Time
	onSubmit func(model.FinalizedResponse)
	initial  *model.BeliefState
}

// Option configures a Collector
type Option func(*Collector)

// WithInitialState starts the widget from a previous belief, such as a received message
func WithInitialState(s model.BeliefState) Option {
	return func(c *Collector) {
		clone := s.Clone()
		c.initial = &clone
	}
}

// WithClock overrides time.Now for elapsed-time measurement
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithOnSubmit registers a callback invoked exactly once on successful submit
func WithOnSubmit(fn func(model.FinalizedResponse)) Option {
	return func(c *Collector) {
		c.onSubmit = fn
	}
}

// New creates a collector for cond
func New(cond model.Condition, cfg Config, opts ...Option) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid widget config: %w", err)
	}
	if err := condition.Validate(cond); err != nil {
		return nil, fmt.Errorf("invalid condition: %w", err)
	}

	c := &Collector{
		cond:   cond.Clone(),
		cfg:    cfg,
		status: DefaultStatus,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.initial != nil {
		if err := c.adopt(*c.initial); err != nil {
			return nil, err
		}
		c.initial = nil
	} else {
		c.state = c.freshState()
	}

	c.started = c.now()
	return c, nil
}

func (c *Collector) freshState() model.BeliefState {
	n := len(c.cond.Categories)
	state := model.BeliefState{
		Mode:     c.cfg.Mode,
		Values:   make([]model.Slot, n),
		Revealed: make([]bool, n+1),
	}

	if c.cfg.Mode == model.ModeFraction {
		for i := range state.Values {
			state.Values[i] = model.Slot{Value: 1 / float64(n), Set: true}
		}
		state.Confidence = model.Slot{Value: c.cfg.ConfidenceMin, Set: true}
	}

	reveal := c.cfg.RevealLimit == 0 || c.cfg.RevealByDefault
	for i := range state.Revealed {
		state.Revealed[i] = reveal
	}
	return state
}

func (c *Collector) adopt(s model.BeliefState) error {
	n := len(c.cond.Categories)
	if len(s.Values) != n {
		return fmt.Errorf("initial state has %d values, condition has %d categories", len(s.Values), n)
	}
	if len(s.Revealed) != 0 && len(s.Revealed) != n+1 {
		return fmt.Errorf("initial state has %d reveal flags, want %d", len(s.Revealed), n+1)
	}

	s.Mode = c.cfg.Mode
	if len(s.Revealed) == 0 || c.cfg.RevealLimit == 0 {
		s.Revealed = make([]bool, n+1)
		for i := range s.Revealed {
			s.Revealed[i] = true
		}
	}
	if s.Mode == model.ModeFraction {
		for i := range s.Values {
			s.Values[i] = model.Slot{Value: clamp(s.Values[i].Value, c.cfg.Min, c.cfg.Max), Set: true}
		}
		normalize(s.Values)
		if !s.Confidence.Set {
			s.Confidence = model.Slot{Value: c.cfg.ConfidenceMin, Set: true}
		}
	}

	c.state = s
	return nil
}

// State returns a copy of the current belief state
func (c *Collector) State() model.BeliefState {
	return c.state.Clone()
}

// Phase returns the lifecycle phase
func (c *Collector) Phase() Phase {
	return c.phase
}

// Status returns the inline text for the participant
func (c *Collector) Status() string {
	return c.status
}

// Condition returns the condition the widget elicits beliefs about
func (c *Collector) Condition() model.Condition {
	return c.cond.Clone()
}

// Config returns the widget configuration
func (c *Collector) Config() Config {
	return c.cfg
}

// RevealedCount returns the number of revealed slots, confidence included
func (c *Collector) RevealedCount() int {
	n := 0
	for _, r := range c.state.Revealed {
		if r {
			n++
		}
	}
	return n
}

func (c *Collector) editable() error {
	if c.phase == PhaseFinalized || c.phase == PhaseDiscarded {
		return ErrClosed
	}
	return nil
}

func (c *Collector) touch() {
	if c.phase == PhaseBlocked {
		c.phase = PhaseEditing
	}
}

func (c *Collector) parse(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if c.cfg.Mode == model.ModeCount {
			return 0, false, nil
		}
		return 0, false, ErrNotANumber
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false, fmt.Errorf("%w: %q", ErrNotANumber, raw)
	}
	if c.cfg.Mode == model.ModeCount {
		v = math.Trunc(v)
	}
	return v, true, nil
}

// SetCategoryValue updates the slot for label from raw participant input.
// Values outside the bounds are clamped. In fraction mode every edit is
// followed by renormalization; in count mode an empty input clears the slot.
func (c *Collector) SetCategoryValue(label, raw string) error {
	if err := c.editable(); err != nil {
		return err
	}
	i := c.cond.IndexOf(label)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, label)
	}

	v, set, err := c.parse(raw)
	if err != nil {
		return err
	}
	c.touch()

	if !set {
		c.state.Values[i] = model.Slot{}
		return nil
	}

	v = clamp(v, c.cfg.Min, c.cfg.Max)
	if c.cfg.Mode == model.ModeCount {
		c.state.Values[i] = model.Slot{Value: v, Set: true}
		return nil
	}

	prev := c.state.Values[i].Value
	if prev >= 1 && v < prev {
		// Every other slot is 0; lift them so the decrease has somewhere to go
		for j := range c.state.Values {
			c.state.Values[j].Value += c.cfg.Epsilon
		}
	}
	c.state.Values[i] = model.Slot{Value: v, Set: true}
	normalize(c.state.Values)
	return nil
}

// SetConfidence updates the confidence slot, clamped to its bounds
func (c *Collector) SetConfidence(raw string) error {
	if err := c.editable(); err != nil {
		return err
	}

	v, set, err := c.parse(raw)
	if err != nil {
		return err
	}
	c.touch()

	if !set {
		c.state.Confidence = model.Slot{}
		return nil
	}
	if c.cfg.Mode == model.ModeFraction {
		v = math.Trunc(v)
	}
	c.state.Confidence = model.Slot{Value: clamp(v, c.cfg.ConfidenceMin, c.cfg.ConfidenceMax), Set: true}
	return nil
}

// ToggleReveal flips the reveal flag of a category, or of confidence when label
// is model.InformationKey. The reveal limit is only enforced on submit.
func (c *Collector) ToggleReveal(label string) error {
	if err := c.editable(); err != nil {
		return err
	}
	if c.cfg.RevealLimit == 0 {
		return ErrRevealDisabled
	}

	i := len(c.cond.Categories)
	if label != model.InformationKey {
		i = c.cond.IndexOf(label)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, label)
		}
	}

	c.touch()
	c.state.Revealed[i] = !c.state.Revealed[i]
	return nil
}

// Submit validates the state and, on success, finalizes the widget.
// A *ValidationError is returned for participant-correctable failures; the
// below-floor warning fires once per widget, after which submit proceeds.
func (c *Collector) Submit() (model.FinalizedResponse, error) {
	if err := c.editable(); err != nil {
		return model.FinalizedResponse{}, err
	}

	if verr := c.validate(); verr != nil {
		c.phase = PhaseBlocked
		c.status = verr.Message
		return model.FinalizedResponse{}, verr
	}

	now := c.now()
	resp := model.FinalizedResponse{
		ID:          uuid.NewString(),
		ConditionID: c.cond.ID,
		Mode:        c.cfg.Mode,
		Values:      make(map[string]float64),
		ElapsedMs:   now.Sub(c.started).Milliseconds(),
		SubmittedAt: now,
	}
	for i, cat := range c.cond.Categories {
		if c.state.Revealed[i] && c.state.Values[i].Set {
			resp.Values[cat.Label] = c.state.Values[i].Value
		}
	}
	if c.state.ConfidenceRevealed() && c.state.Confidence.Set {
		conf := c.state.Confidence.Value
		resp.Confidence = &conf
	}

	c.phase = PhaseFinalized
	c.status = ""
	if c.onSubmit != nil {
		c.onSubmit(resp)
	}
	return resp, nil
}

func (c *Collector) validate() *ValidationError {
	for i, slot := range c.state.Values {
		if c.state.Revealed[i] && !slot.Set {
			return validationError(KindIncomplete, "Please fill in all of the values before submitting.")
		}
	}
	confRevealed := c.state.ConfidenceRevealed()
	if (confRevealed || c.cfg.ConfidenceRequired) && !c.state.Confidence.Set {
		return validationError(KindIncomplete, "Please fill in all of the values before submitting.")
	}
	if c.cfg.ConfidenceRequired && !confRevealed {
		return validationError(KindIncomplete, "Please include your confidence before submitting.")
	}

	if c.cfg.Mode == model.ModeCount {
		for i, slot := range c.state.Values {
			if c.state.Revealed[i] && (slot.Value < c.cfg.Min || slot.Value > c.cfg.Max) {
				return validationError(KindRange, "Please enter a number between %s and %s for each fish.",
					formatBound(c.cfg.Min), formatBound(c.cfg.Max))
			}
		}
		conf := c.state.Confidence
		if confRevealed && (conf.Value < c.cfg.ConfidenceMin || conf.Value > c.cfg.ConfidenceMax) {
			return validationError(KindRange, "Please enter a number between %s and %s for the information.",
				formatBound(c.cfg.ConfidenceMin), formatBound(c.cfg.ConfidenceMax))
		}

		if c.cfg.FixedTotal > 0 {
			sum := 0.0
			for i, slot := range c.state.Values {
				if c.state.Revealed[i] {
					sum += slot.Value
				}
			}
			if sum != c.cfg.FixedTotal {
				return validationError(KindSumMismatch, "The values must add up to %s (currently %s).",
					formatBound(c.cfg.FixedTotal), formatBound(sum))
			}
		}
	}

	if c.cfg.RevealLimit > 0 {
		revealed := c.RevealedCount()
		if revealed > c.cfg.RevealLimit {
			return validationError(KindTooManyRevealed,
				"Too many values are revealed! You must hide more values before you can send the message.")
		}
		if revealed < c.cfg.RevealLimit && !c.warned {
			c.warned = true
			return validationError(KindBelowFloor,
				"You have revealed fewer values than you are allowed to. You can still send this message, "+
					"but please double-check that this is the message you want to send. "+
					"Press 'Send' again if you are sure you want to send it.")
		}
	}
	return nil
}

// Discard abandons the widget without producing a response
func (c *Collector) Discard() {
	if c.phase != PhaseFinalized {
		c.phase = PhaseDiscarded
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// normalize rescales slot values to sum to 1; an all-zero vector becomes uniform
func normalize(values []model.Slot) {
	sum := 0.0
	for _, s := range values {
		sum += s.Value
	}
	if sum <= 0 {
		for i := range values {
			values[i] = model.Slot{Value: 1 / float64(len(values)), Set: true}
		}
		return
	}
	for i := range values {
		values[i] = model.Slot{Value: values[i].Value / sum, Set: true}
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
