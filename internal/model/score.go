package model

// Score is the post-hoc assessment of a finalized response
type Score struct {
	ResponseID    string             `json:"response_id,omitempty"`
	ConditionID   string             `json:"condition_id"`
	Policy        string             `json:"policy"`         // Interval policy used for coverage
	Categories    []CategoryCoverage `json:"categories"`     // Per-category coverage, in condition order
	AllCovered    bool               `json:"all_covered"`    // Every category inside its interval
	EffectiveSize float64            `json:"effective_size"` // Pseudo-count fed into the interval policy
	Tier          BonusTier          `json:"tier"`
	Signals       []Signal           `json:"signals"`
}

// CategoryCoverage records whether a category's true probability fell inside the reported interval
type CategoryCoverage struct {
	Label    string           `json:"label"`
	Reported *float64         `json:"reported,omitempty"` // Reported proportion; nil when hidden
	True     float64          `json:"true"`
	Interval CredibleInterval `json:"interval"`
	Covered  bool             `json:"covered"`
}

// BonusTier is a discrete reward level
type BonusTier string

const (
	TierNone   BonusTier = "none"
	TierSmall  BonusTier = "small"
	TierMedium BonusTier = "medium"
	TierLarge  BonusTier = "large"
)

// Rank orders tiers from none (0) to large (3)
func (t BonusTier) Rank() int {
	switch t {
	case TierSmall:
		return 1
	case TierMedium:
		return 2
	case TierLarge:
		return 3
	default:
		return 0
	}
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formulas and inputs
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalCoverage   SignalType = "coverage"    // True proportions inside reported intervals
	SignalHidden     SignalType = "hidden"      // Categories the participant chose not to disclose
	SignalBonusTier  SignalType = "bonus_tier"  // Effective size to tier mapping
	SignalNoEvidence SignalType = "no_evidence" // Confidence withheld, default size used
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
