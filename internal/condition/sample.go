package condition

import (
	"math/rand/v2"

	"github.com/cocosci/fishchain/internal/model"
)

// SampleCategory draws a category label with the condition's true probabilities.
// The last category absorbs any rounding shortfall.
func SampleCategory(rng *rand.Rand, c model.Condition) string {
	r := rng.Float64()
	sum := 0.0
	for _, cat := range c.Categories {
		sum += cat.TrueProbability
		if r < sum {
			return cat.Label
		}
	}
	return c.Categories[len(c.Categories)-1].Label
}

// SampleTrials draws the hidden correct category for n learning trials
func SampleTrials(rng *rand.Rand, c model.Condition, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = SampleCategory(rng, c)
	}
	return out
}

// Shuffle permutes items in place (Fisher-Yates)
func Shuffle[T any](rng *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
