package fuzzy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineScenarios(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		service float64
		price   float64
		want    float64
		output  Suitability
	}{
		{"good and cheap", StandardProfile(), 95, 24000, 100, VerySuitable},
		{"average service average price", StandardProfile(), 55, 42000, 55, Adequate},
		{"poor and expensive", StandardProfile(), 5, 60000, 10, VeryUnsuitable},
		{"alternate good and cheap", AlternateProfile(), 95, 26000, 90, VerySuitable},
		{"alternate average", AlternateProfile(), 55, 42000, 50, Adequate},
		{"alternate poor and expensive", AlternateProfile(), 5, 60000, 20, VeryUnsuitable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewEngine(tt.profile).Evaluate(tt.service, tt.price)
			assert.Equal(t, tt.want, ev.Score)
			require.Len(t, ev.Output, 1)
			_, ok := ev.Output[tt.output]
			assert.True(t, ok)
			assert.False(t, ev.Degenerate())
		})
	}
}

func TestEngineStandardCheapRamp(t *testing.T) {
	// cheap(26000) = 0.9 is the only active price category
	ev := NewEngine(StandardProfile()).Evaluate(95, 26000)
	assert.Equal(t, Aggregate{VerySuitable: 0.9}, ev.Output)
	assert.Equal(t, 100.0, ev.Score)
}

func TestEngineMixedScore(t *testing.T) {
	ev := NewEngine(StandardProfile()).Evaluate(70, 32000)
	// service medium 0.5, high 1/3; price cheap 0.3, medium 0.2
	assert.InDelta(t, 0.3, ev.Output[Suitable], 1e-12)
	assert.InDelta(t, 0.3, ev.Output[VerySuitable], 1e-12)
	assert.InDelta(t, 0.2, ev.Output[Adequate], 1e-12)
	assert.InDelta(t, (0.3*75+0.3*100+0.2*55)/0.8, ev.Score, 1e-9)
}

func TestEngineDegenerateInput(t *testing.T) {
	ev := NewEngine(StandardProfile()).Evaluate(math.NaN(), 30000)
	assert.True(t, ev.Degenerate())
	assert.Equal(t, 0.0, ev.Score)
}

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileStandard, p.Name)

	p, err = LookupProfile(ProfileAlternate)
	require.NoError(t, err)
	assert.Equal(t, 90.0, p.Anchors.VerySuitable)

	_, err = LookupProfile("experimental")
	assert.ErrorContains(t, err, "unknown profile")

	assert.Equal(t, []string{"alternate", "standard"}, ProfileNames())
}

func TestProfilesAreCopies(t *testing.T) {
	p := StandardProfile()
	p.Anchors.VerySuitable = 1
	p.Rules[2][0] = VeryUnsuitable

	fresh := StandardProfile()
	assert.Equal(t, 100.0, fresh.Anchors.VerySuitable)
	assert.Equal(t, VerySuitable, fresh.Rules[2][0])
}

type countingEvaluator struct {
	calls int
	inner Evaluator
}

func (c *countingEvaluator) Evaluate(service, price float64) Evaluation {
	c.calls++
	return c.inner.Evaluate(service, price)
}

func TestCachedEvaluator(t *testing.T) {
	counter := &countingEvaluator{inner: NewEngine(StandardProfile())}
	cached, err := NewCachedEvaluator(counter, 8)
	require.NoError(t, err)

	first := cached.Evaluate(55, 42000)
	second := cached.Evaluate(55, 42000)
	cached.Evaluate(95, 24000)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, 2, counter.calls)
	hits, misses := cached.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestCachedEvaluatorRejectsBadSize(t *testing.T) {
	_, err := NewCachedEvaluator(NewEngine(StandardProfile()), 0)
	assert.Error(t, err)
}
