package condition

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/cocosci/fishchain/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCondition is returned by Lookup for ids missing from the table
var ErrUnknownCondition = errors.New("unknown condition")

// probabilityTolerance bounds the drift allowed in a probability vector sum
const probabilityTolerance = 1e-6

// Swatches maps fish labels to display colors
var Swatches = map[string]string{
	"cyan":       "#66ccee",
	"light grey": "#bbbbbb",
	"dark grey":  "#666666",
	"blue":       "#4477aa",
	"yellow":     "#ccbb44",
	"purple":     "#aa3377",
	"green":      "#228833",
	"white":      "#FFFFFF",
	"red":        "#ee6677",
	"black":      "#222222",
}

// Table is a read-only set of conditions keyed by condition id
type Table struct {
	Conditions    map[string]model.Condition `yaml:"conditions"`
	MessageLimits map[string]int             `yaml:"message_limits,omitempty"` // Reveal limit per message condition
}

// DefaultTable returns the built-in lakes
func DefaultTable() *Table {
	lake := func(id, name string, trials int, labels []string, probs []float64, obs ...string) model.Condition {
		cats := make([]model.Category, len(labels))
		for i, l := range labels {
			cats[i] = model.Category{Label: l, Color: Swatches[l], TrueProbability: probs[i]}
		}
		return model.Condition{ID: id, Name: name, Categories: cats, Observations: obs, Trials: trials}
	}

	return &Table{
		Conditions: map[string]model.Condition{
			"0": lake("0", "Kuolmo Pond", 3,
				[]string{"purple", "dark grey", "yellow", "cyan"}, []float64{0.5, 0.2, 0.1, 0.2},
				"purple", "purple", "purple", "purple", "dark grey", "cyan"),
			"1": lake("1", "Onki Pond", 3,
				[]string{"red", "black", "cyan", "light grey"}, []float64{0.1, 0.5, 0.3, 0.1},
				"cyan", "cyan", "black", "black", "black"),
			"2": lake("2", "Pihla Pond", 3,
				[]string{"yellow", "light grey", "green", "purple"}, []float64{0.4, 0.4, 0.1, 0.1},
				"yellow", "yellow", "green", "light grey", "light grey"),
			"3": lake("3", "Jonu Pond", 3,
				[]string{"black", "cyan", "green", "red"}, []float64{0.1, 0.2, 0.4, 0.3},
				"green", "green", "green", "cyan", "red", "red"),
			"-1": lake("-1", "Lake Ori", 0,
				[]string{"cyan", "red", "black"}, []float64{0.26, 0.52, 0.22}),
			"-2": lake("-2", "Lake Teli", 0,
				[]string{"blue", "white", "dark grey"}, []float64{0.63, 0.1, 0.27}),
			"-3": lake("-3", "Lake Lumm", 0,
				[]string{"purple", "light grey", "yellow"}, []float64{0.19, 0.43, 0.38}),
		},
		MessageLimits: map[string]int{
			"0": 1,
			"1": 2,
			"2": 3,
			"3": 10,
		},
	}
}

// LoadFile reads a YAML condition table and validates every entry
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read condition table: %w", err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse condition table: %w", err)
	}

	for id, c := range t.Conditions {
		if c.ID == "" {
			c.ID = id
		}
		for i := range c.Categories {
			if c.Categories[i].Color == "" {
				c.Categories[i].Color = Swatches[c.Categories[i].Label]
			}
		}
		t.Conditions[id] = c
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks every condition in the table
func (t *Table) Validate() error {
	if len(t.Conditions) == 0 {
		return errors.New("condition table is empty")
	}
	for _, id := range t.IDs() {
		if err := Validate(t.Conditions[id]); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns a copy of the condition with the given id
func (t *Table) Lookup(id string) (model.Condition, error) {
	c, ok := t.Conditions[id]
	if !ok {
		return model.Condition{}, fmt.Errorf("%w: %q", ErrUnknownCondition, id)
	}
	return c.Clone(), nil
}

// MessageLimit returns the reveal limit for a message condition, or 0 when none is configured
func (t *Table) MessageLimit(messageCondition string) int {
	return t.MessageLimits[messageCondition]
}

// IDs returns condition ids in a stable order
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.Conditions))
	for id := range t.Conditions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate fails on configurations that no widget can be built from
func Validate(c model.Condition) error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("condition %q: empty category list", c.ID)
	}

	seen := make(map[string]bool, len(c.Categories))
	sum := 0.0
	for _, cat := range c.Categories {
		if cat.Label == "" {
			return fmt.Errorf("condition %q: category with empty label", c.ID)
		}
		if cat.Label == model.InformationKey {
			return fmt.Errorf("condition %q: label %q is reserved", c.ID, cat.Label)
		}
		if seen[cat.Label] {
			return fmt.Errorf("condition %q: duplicate category %q", c.ID, cat.Label)
		}
		seen[cat.Label] = true

		if cat.TrueProbability < 0 || math.IsNaN(cat.TrueProbability) {
			return fmt.Errorf("condition %q: invalid probability %v for %q", c.ID, cat.TrueProbability, cat.Label)
		}
		sum += cat.TrueProbability
	}

	if math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("condition %q: probabilities sum to %v, want 1", c.ID, sum)
	}
	return nil
}
