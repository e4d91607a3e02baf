package elicit

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/cocosci/fishchain/internal/estimate"
	"github.com/cocosci/fishchain/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lake(labels ...string) model.Condition {
	cond := model.Condition{ID: "test"}
	for _, l := range labels {
		cond.Categories = append(cond.Categories, model.Category{
			Label:           l,
			TrueProbability: 1 / float64(len(labels)),
		})
	}
	return cond
}

func fourLake() model.Condition {
	return lake("red", "green", "blue", "yellow")
}

func sum(slots []model.Slot) float64 {
	total := 0.0
	for _, s := range slots {
		total += s.Value
	}
	return total
}

func TestNew_Defaults(t *testing.T) {
	frac, err := New(fourLake(), FractionConfig(4))
	require.NoError(t, err)
	state := frac.State()
	for _, s := range state.Values {
		assert.True(t, s.Set)
		assert.InDelta(t, 0.25, s.Value, 1e-12)
	}
	assert.Equal(t, model.Slot{Value: 4, Set: true}, state.Confidence)
	assert.Equal(t, PhaseEditing, frac.Phase())
	assert.Equal(t, DefaultStatus, frac.Status())

	count, err := New(fourLake(), MessageConfig(2))
	require.NoError(t, err)
	state = count.State()
	for _, s := range state.Values {
		assert.False(t, s.Set)
	}
	assert.Equal(t, 5, count.RevealedCount())
}

func TestNew_FailsFast(t *testing.T) {
	_, err := New(model.Condition{ID: "empty"}, MessageConfig(0))
	assert.Error(t, err)

	bad := MessageConfig(0)
	bad.Min, bad.Max = 5, 1
	_, err = New(fourLake(), bad)
	assert.Error(t, err)

	_, err = New(fourLake(), Config{Mode: "slider", Min: 0, Max: 1})
	assert.Error(t, err)

	_, err = New(fourLake(), MessageConfig(0), WithInitialState(model.BeliefState{Values: make([]model.Slot, 2)}))
	assert.Error(t, err)
}

func TestNew_RejectsMalformedCondition(t *testing.T) {
	tests := []struct {
		name       string
		categories []model.Category
	}{
		{"sum below one", []model.Category{{Label: "red", TrueProbability: 0.4}, {Label: "blue", TrueProbability: 0.3}}},
		{"duplicate label", []model.Category{{Label: "red", TrueProbability: 0.5}, {Label: "red", TrueProbability: 0.5}}},
		{"reserved label", []model.Category{{Label: "red", TrueProbability: 0.9}, {Label: model.InformationKey, TrueProbability: 0.1}}},
		{"duplicate and reserved", []model.Category{
			{Label: "red", TrueProbability: 0.3},
			{Label: "red", TrueProbability: 0.3},
			{Label: model.InformationKey, TrueProbability: 0.1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(model.Condition{ID: "bad", Categories: tt.categories}, MessageConfig(0))
			assert.Error(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestFractionMode_NormalizationInvariant(t *testing.T) {
	cond := fourLake()
	c, err := New(cond, FractionConfig(4))
	require.NoError(t, err)

	inputs := []string{"0", "1", "0.5", "0.01", "0.999", "1.7", "-2", "0.3333", "1e-9", "0.25"}
	rng := rand.New(rand.NewPCG(7, 11))

	for step := 0; step < 2000; step++ {
		label := cond.Categories[rng.IntN(len(cond.Categories))].Label
		raw := inputs[rng.IntN(len(inputs))]
		require.NoError(t, c.SetCategoryValue(label, raw))

		state := c.State()
		require.InDelta(t, 1.0, sum(state.Values), 1e-9, "step %d", step)
		for _, s := range state.Values {
			require.GreaterOrEqual(t, s.Value, 0.0)
			require.LessOrEqual(t, s.Value, 1.0)
		}
	}
}

func TestFractionMode_EpsilonWhenLoweringMaxedSlot(t *testing.T) {
	c, err := New(lake("red", "blue"), FractionConfig(2))
	require.NoError(t, err)

	require.NoError(t, c.SetCategoryValue("blue", "0"))
	state := c.State()
	assert.Equal(t, 1.0, state.Values[0].Value)
	assert.Equal(t, 0.0, state.Values[1].Value)

	require.NoError(t, c.SetCategoryValue("red", "0"))
	state = c.State()
	assert.Greater(t, state.Values[1].Value, 0.0)
	assert.InDelta(t, 1.0, sum(state.Values), 1e-9)
	assert.Equal(t, 0.0, state.Values[0].Value)
	assert.Equal(t, 1.0, state.Values[1].Value)
}

func TestFractionMode_EpsilonLiftsZeroedSlots(t *testing.T) {
	c, err := New(lake("red", "blue", "green"), FractionConfig(3))
	require.NoError(t, err)

	require.NoError(t, c.SetCategoryValue("blue", "0"))
	require.NoError(t, c.SetCategoryValue("green", "0"))
	require.Equal(t, 1.0, c.State().Values[0].Value)

	require.NoError(t, c.SetCategoryValue("red", "0.5"))
	state := c.State()
	assert.Greater(t, state.Values[1].Value, 0.0)
	assert.Greater(t, state.Values[2].Value, 0.0)
	assert.InDelta(t, state.Values[1].Value, state.Values[2].Value, 1e-15)
	assert.InDelta(t, 1.0, sum(state.Values), 1e-9)
}

func TestCountMode_ClampInvariant(t *testing.T) {
	cond := fourLake()
	cfg := MessageConfig(0)
	c, err := New(cond, cfg)
	require.NoError(t, err)

	inputs := []string{"25", "-4", "0", "1", "20", "7.9", "1e6", "", "-Inf", "+Inf", " 12 "}
	for _, raw := range inputs {
		for _, cat := range cond.Categories {
			require.NoError(t, c.SetCategoryValue(cat.Label, raw))
		}
		require.NoError(t, c.SetConfidence(raw))

		state := c.State()
		for _, s := range state.Values {
			if s.Set {
				assert.GreaterOrEqual(t, s.Value, cfg.Min, raw)
				assert.LessOrEqual(t, s.Value, cfg.Max, raw)
				assert.Equal(t, math.Trunc(s.Value), s.Value, raw)
			}
		}
		if state.Confidence.Set {
			assert.GreaterOrEqual(t, state.Confidence.Value, cfg.ConfidenceMin, raw)
			assert.LessOrEqual(t, state.Confidence.Value, cfg.ConfidenceMax, raw)
		}
	}
}

func TestSetCategoryValue_Clamped(t *testing.T) {
	c, err := New(fourLake(), MessageConfig(0))
	require.NoError(t, err)

	require.NoError(t, c.SetCategoryValue("red", "25"))
	assert.Equal(t, model.Slot{Value: 20, Set: true}, c.State().Values[0])

	require.NoError(t, c.SetCategoryValue("red", "7.8"))
	assert.Equal(t, 7.0, c.State().Values[0].Value)

	require.NoError(t, c.SetCategoryValue("red", ""))
	assert.False(t, c.State().Values[0].Set)
}

func TestSetCategoryValue_Errors(t *testing.T) {
	c, err := New(fourLake(), MessageConfig(0))
	require.NoError(t, err)
	require.NoError(t, c.SetCategoryValue("red", "4"))
	before := c.State()

	err = c.SetCategoryValue("red", "four")
	assert.ErrorIs(t, err, ErrNotANumber)
	err = c.SetCategoryValue("red", "NaN")
	assert.ErrorIs(t, err, ErrNotANumber)
	err = c.SetCategoryValue("purple", "4")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	err = c.SetConfidence("lots")
	assert.ErrorIs(t, err, ErrNotANumber)

	assert.Equal(t, before, c.State())

	frac, err := New(fourLake(), FractionConfig(4))
	require.NoError(t, err)
	assert.ErrorIs(t, frac.SetCategoryValue("red", ""), ErrNotANumber)
}

func TestToggleReveal(t *testing.T) {
	c, err := New(fourLake(), MessageConfig(0))
	require.NoError(t, err)
	assert.ErrorIs(t, c.ToggleReveal("red"), ErrRevealDisabled)

	c, err = New(fourLake(), MessageConfig(2))
	require.NoError(t, err)
	require.NoError(t, c.ToggleReveal("green"))
	require.NoError(t, c.ToggleReveal(model.InformationKey))
	state := c.State()
	assert.Equal(t, []bool{true, false, true, true, false}, state.Revealed)
	assert.False(t, state.ConfidenceRevealed())
	assert.ErrorIs(t, c.ToggleReveal("purple"), ErrUnknownCategory)
}

// One revealed slot within a reveal limit of one submits just that slot.
func TestSubmit_SingleRevealedSlot(t *testing.T) {
	cfg := MessageConfig(1)
	cfg.RevealByDefault = false
	c, err := New(fourLake(), cfg)
	require.NoError(t, err)

	require.NoError(t, c.SetCategoryValue("blue", "10"))
	require.NoError(t, c.ToggleReveal("blue"))

	resp, err := c.Submit()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"blue": 10}, resp.Values)
	assert.Nil(t, resp.Confidence)
	assert.Equal(t, PhaseFinalized, c.Phase())
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "test", resp.ConditionID)
}

func TestSubmit_BelowFloorWarnsOnce(t *testing.T) {
	cfg := MessageConfig(1)
	cfg.RevealByDefault = false
	c, err := New(fourLake(), cfg)
	require.NoError(t, err)

	_, err = c.Submit()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Warning())
	assert.ErrorIs(t, err, ErrBelowFloor)
	assert.Equal(t, PhaseBlocked, c.Phase())
	assert.Equal(t, verr.Message, c.Status())

	resp, err := c.Submit()
	require.NoError(t, err)
	assert.Empty(t, resp.Values)
	assert.Nil(t, resp.Confidence)
}

func TestSubmit_SumMismatch(t *testing.T) {
	cfg := MessageConfig(0)
	cfg.FixedTotal = 10
	c, err := New(lake("red", "green", "blue"), cfg)
	require.NoError(t, err)

	for _, l := range []string{"red", "green", "blue"} {
		require.NoError(t, c.SetCategoryValue(l, "3"))
	}
	require.NoError(t, c.SetConfidence("5"))

	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrSumMismatch)
	assert.Contains(t, c.Status(), "currently 9")
}

func TestSubmit_FixedTotalAndInterval(t *testing.T) {
	cfg := MessageConfig(0)
	cfg.FixedTotal = 10
	cond := lake("red", "green", "blue")
	c, err := New(cond, cfg)
	require.NoError(t, err)

	require.NoError(t, c.SetCategoryValue("red", "4"))
	require.NoError(t, c.SetCategoryValue("green", "3"))
	require.NoError(t, c.SetCategoryValue("blue", "3"))
	require.NoError(t, c.SetConfidence("5"))

	resp, err := c.Submit()
	require.NoError(t, err)
	require.NotNil(t, resp.Confidence)
	assert.Equal(t, 5.0, *resp.Confidence)

	p := resp.Values["red"] / 10
	ci := estimate.Tails95.Interval(p, *resp.Confidence)
	assert.Less(t, ci.Lower, 0.4)
	assert.Greater(t, ci.Upper, 0.4)
}

func TestSubmit_Incomplete(t *testing.T) {
	c, err := New(fourLake(), MessageConfig(0))
	require.NoError(t, err)
	require.NoError(t, c.SetCategoryValue("red", "3"))

	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, PhaseBlocked, c.Phase())

	require.NoError(t, c.SetCategoryValue("green", "3"))
	assert.Equal(t, PhaseEditing, c.Phase())
}

func TestSubmit_ConfidenceRequired(t *testing.T) {
	cfg := MessageConfig(5)
	cfg.ConfidenceRequired = true
	c, err := New(lake("red"), cfg)
	require.NoError(t, err)
	require.NoError(t, c.SetCategoryValue("red", "3"))
	require.NoError(t, c.SetConfidence("4"))
	require.NoError(t, c.ToggleReveal(model.InformationKey))

	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestSubmit_OutOfRangeFromInitialState(t *testing.T) {
	initial := model.BeliefState{
		Values: []model.Slot{
			{Value: 30, Set: true},
			{Value: 2, Set: true},
			{Value: 2, Set: true},
			{Value: 2, Set: true},
		},
		Confidence: model.Slot{Value: 3, Set: true},
	}
	c, err := New(fourLake(), MessageConfig(0), WithInitialState(initial))
	require.NoError(t, err)

	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.False(t, errors.Is(err, ErrIncomplete))
}

func TestSubmit_TooManyRevealed(t *testing.T) {
	c, err := New(fourLake(), MessageConfig(1))
	require.NoError(t, err)
	for _, l := range []string{"red", "green", "blue", "yellow"} {
		require.NoError(t, c.SetCategoryValue(l, "2"))
	}
	require.NoError(t, c.SetConfidence("2"))

	for i := 0; i < 2; i++ {
		_, err = c.Submit()
		assert.ErrorIs(t, err, ErrTooManyRevealed)
	}
}

func TestSubmit_RevealExclusivity(t *testing.T) {
	c, err := New(fourLake(), MessageConfig(3))
	require.NoError(t, err)
	for _, l := range []string{"red", "green", "blue", "yellow"} {
		require.NoError(t, c.SetCategoryValue(l, "6"))
	}
	require.NoError(t, c.SetConfidence("9"))
	require.NoError(t, c.ToggleReveal("green"))
	require.NoError(t, c.ToggleReveal("yellow"))

	resp, err := c.Submit()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"red": 6, "blue": 6}, resp.Values)
	_, hasGreen := resp.Values["green"]
	assert.False(t, hasGreen)
	require.NotNil(t, resp.Confidence)
	assert.Equal(t, 9.0, *resp.Confidence)
}

func TestSubmit_OnSubmitOnceAndElapsed(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{t0, t0.Add(1500 * time.Millisecond)}
	clock := func() time.Time {
		now := times[0]
		if len(times) > 1 {
			times = times[1:]
		}
		return now
	}

	calls := 0
	c, err := New(lake("red", "blue"), FractionConfig(2),
		WithClock(clock),
		WithOnSubmit(func(model.FinalizedResponse) { calls++ }))
	require.NoError(t, err)

	resp, err := c.Submit()
	require.NoError(t, err)
	assert.Equal(t, int64(1500), resp.ElapsedMs)
	assert.Equal(t, t0.Add(1500*time.Millisecond), resp.SubmittedAt)

	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.SetConfidence("3"), ErrClosed)
	assert.Equal(t, 1, calls)
}

func TestDiscard(t *testing.T) {
	calls := 0
	c, err := New(fourLake(), MessageConfig(0), WithOnSubmit(func(model.FinalizedResponse) { calls++ }))
	require.NoError(t, err)
	require.NoError(t, c.SetCategoryValue("red", "3"))

	c.Discard()
	assert.Equal(t, PhaseDiscarded, c.Phase())
	assert.ErrorIs(t, c.SetCategoryValue("red", "4"), ErrClosed)
	assert.ErrorIs(t, c.ToggleReveal("red"), ErrClosed)
	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, calls)
}

func TestConfigFromModel(t *testing.T) {
	mc := model.DefaultConfig().Elicitation
	cfg := ConfigFromModel(mc)
	assert.Equal(t, MessageConfig(0), cfg)
	require.NoError(t, cfg.Validate())

	mc.Mode = model.ModeFraction
	cfg = ConfigFromModel(mc)
	assert.Equal(t, 0.0, cfg.Min)
	assert.Equal(t, 1.0, cfg.Max)
	require.NoError(t, cfg.Validate())
}
