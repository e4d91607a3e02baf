package model

// Category is one fish color that can be caught at a lake
type Category struct {
	Label           string  `json:"label" yaml:"label"`                       // Display name (e.g., "dark grey")
	Color           string  `json:"color,omitempty" yaml:"color,omitempty"`   // Swatch hex code
	TrueProbability float64 `json:"true_probability" yaml:"true_probability"` // Hidden generative probability, scoring only
}

// Condition describes one lake: its categories and how participants meet it
type Condition struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"name,omitempty" yaml:"name,omitempty"`                 // Lake name shown in block headers
	Categories   []Category `json:"categories" yaml:"categories"`                         // Ordered category list
	Observations []string   `json:"observations,omitempty" yaml:"observations,omitempty"` // Fixed catches shown before elicitation
	Trials       int        `json:"trials,omitempty" yaml:"trials,omitempty"`             // Learning trials per block
}

// Labels returns the ordered category labels
func (c Condition) Labels() []string {
	labels := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		labels[i] = cat.Label
	}
	return labels
}

// Probabilities returns the ordered true probabilities
func (c Condition) Probabilities() []float64 {
	probs := make([]float64, len(c.Categories))
	for i, cat := range c.Categories {
		probs[i] = cat.TrueProbability
	}
	return probs
}

// IndexOf returns the slot index of label, or -1
func (c Condition) IndexOf(label string) int {
	for i, cat := range c.Categories {
		if cat.Label == label {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers cannot mutate a shared table entry
func (c Condition) Clone() Condition {
	out := c
	out.Categories = append([]Category(nil), c.Categories...)
	out.Observations = append([]string(nil), c.Observations...)
	return out
}
