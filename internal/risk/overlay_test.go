package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
)

func riskConfig() config.RiskConfig {
	return config.RiskConfig{
		TargetVol:         0.06,
		VolWindow:         20,
		LeverageCap:       2.7,
		ThrottleDrawdown:  0.05,
		ThrottleFloor:     0.30,
		CrashDrawdown:     0.12,
		CooldownDays:      5,
		TransactionCostBp: 10,
	}
}

var defensiveBook = []float64{0, 0, 0.7, 0.3}

func grossOf(ws []float64) float64 {
	g := 0.0
	for _, w := range ws {
		g += math.Abs(w)
	}
	return g
}

// seedReturns fills the state's trailing return buffer with a constant daily
// magnitude so realized vol is deterministic
func seedReturns(st *State, n int, magnitude float64) {
	for i := 0; i < n; i++ {
		r := magnitude
		if i%2 == 1 {
			r = -magnitude
		}
		st.preReturns = append(st.preReturns, r)
	}
}

func TestApply_NormalPassThrough(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()

	blended := []float64{0.3, -0.2, 0.4, 0.1}
	out := o.Apply(st, blended)

	assert.Equal(t, Normal, st.Mode)
	assert.Equal(t, blended, out, "no vol history and no drawdown leaves weights untouched")
}

func TestApply_VolTargetScalesDown(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	seedReturns(st, 20, 0.02) // Realized vol far above the 6% target

	realized := 0.02 * math.Sqrt(252)
	wantScale := 0.06 / realized

	out := o.Apply(st, []float64{0.5, -0.5, 0, 0})
	assert.InDelta(t, 0.5*wantScale, out[0], 1e-12)
	assert.InDelta(t, -0.5*wantScale, out[1], 1e-12)
	assert.Equal(t, Normal, st.Mode)
}

func TestApply_VolTargetScalesUpUnderCap(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	seedReturns(st, 20, 0.003) // Realized vol below target

	realized := 0.003 * math.Sqrt(252)
	wantScale := 0.06 / realized
	require.Greater(t, wantScale, 1.0)

	out := o.Apply(st, []float64{0.4, -0.4, 0, 0})
	assert.InDelta(t, 0.4*wantScale, out[0], 1e-12)
	assert.LessOrEqual(t, grossOf(out), 2.7+1e-12)
}

func TestApply_LeverageCapIsHard(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	seedReturns(st, 20, 0.0005) // Tiny realized vol forces a huge upscale

	out := o.Apply(st, []float64{1.0, -1.0, 0.5, 0.5})
	assert.InDelta(t, 2.7, grossOf(out), 1e-9, "gross exposure pins at the cap")

	// Direction is preserved under the cap
	assert.Greater(t, out[0], 0.0)
	assert.Less(t, out[1], 0.0)
	assert.InDelta(t, out[0], -out[1], 1e-12)
}

func TestThrottleFactor_Interpolation(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)

	assert.Equal(t, 1.0, o.throttleFactor(0))
	assert.Equal(t, 1.0, o.throttleFactor(-0.05), "throttle starts past the threshold")
	mid := o.throttleFactor(-0.085) // Halfway between 5% and 12%
	assert.InDelta(t, 0.65, mid, 1e-12)
	assert.InDelta(t, 0.30, o.throttleFactor(-0.12), 1e-12)
	assert.InDelta(t, 0.30, o.throttleFactor(-0.20), 1e-12, "floor holds beyond the crash level")
}

func TestApply_ThrottledMode(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	st.Drawdown = -0.085

	out := o.Apply(st, []float64{1.0, 0, 0, 0})
	assert.Equal(t, Throttled, st.Mode)
	assert.InDelta(t, 0.65, out[0], 1e-12)
}

func TestApply_CrashTriggersCooldown(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	st.Drawdown = -0.13

	out := o.Apply(st, []float64{1.0, -0.5, 0, 0})
	assert.Equal(t, Cooldown, st.Mode)
	assert.Equal(t, 5, st.CooldownRemaining)
	assert.Equal(t, defensiveBook, out, "cooldown forces the defensive book")
}

func TestCooldown_RunsFiveDaysThenClears(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	st.Equity = 0.87
	st.Peak = 1.0
	st.Drawdown = -0.13

	// Day of the trigger
	out := o.Apply(st, []float64{1.0, 0, 0, 0})
	assert.Equal(t, defensiveBook, out)
	require.Equal(t, 5, st.CooldownRemaining)

	// Equity recovers above the crash line so the timer is not re-armed
	recovery := []float64{0.90, 0.92, 0.94, 0.95, 0.96}
	for i, eq := range recovery {
		st.RecordDay(0.001, eq, 20)
		if i < len(recovery)-1 {
			out = o.Apply(st, []float64{1.0, 0, 0, 0})
			assert.Equal(t, Cooldown, st.Mode, "timer still running on day %d", i)
			assert.Equal(t, defensiveBook, out)
		}
	}

	assert.Equal(t, 0, st.CooldownRemaining)
	assert.Equal(t, Normal, st.Mode)

	out = o.Apply(st, []float64{1.0, 0, 0, 0})
	assert.NotEqual(t, defensiveBook, out, "book is released after the timer expires")
}

func TestCooldown_ReArmsWhileBreachPersists(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	st.Peak = 1.0
	st.Drawdown = -0.13

	o.Apply(st, []float64{1.0, 0, 0, 0})
	require.Equal(t, 5, st.CooldownRemaining)

	// Two days pass with equity still below the crash line
	st.RecordDay(0, 0.86, 20)
	assert.Equal(t, 4, st.CooldownRemaining)
	o.Apply(st, []float64{1.0, 0, 0, 0})
	assert.Equal(t, 5, st.CooldownRemaining, "persistent breach re-arms the full timer")
}

func TestRecordDay_TracksPeakAndDrawdown(t *testing.T) {
	st := NewState()

	st.RecordDay(0.01, 1.05, 20)
	assert.Equal(t, 1.05, st.Peak)
	assert.InDelta(t, 0.0, st.Drawdown, 1e-12)

	st.RecordDay(-0.03, 0.99, 20)
	assert.Equal(t, 1.05, st.Peak, "peak never falls")
	assert.InDelta(t, 0.99/1.05-1.0, st.Drawdown, 1e-12)
}

func TestRecordDay_BoundsReturnBuffer(t *testing.T) {
	st := NewState()
	for i := 0; i < 50; i++ {
		st.RecordDay(0.001, 1.0, 20)
	}
	assert.Len(t, st.preReturns, 20)
}

func TestVolTarget_SkipsOnShortHistory(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	seedReturns(st, 10, 0.02) // Below the 20-day window

	blended := []float64{0.5, -0.5, 0, 0}
	out := o.volTarget(st, blended)
	assert.Equal(t, blended, out)
}

func TestVolTarget_SkipsOnZeroVol(t *testing.T) {
	o := NewOverlay(riskConfig(), defensiveBook)
	st := NewState()
	seedReturns(st, 20, 0)

	blended := []float64{0.5, -0.5, 0, 0}
	out := o.volTarget(st, blended)
	assert.Equal(t, blended, out)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "normal", Normal.String())
	assert.Equal(t, "throttled", Throttled.String())
	assert.Equal(t, "cooldown", Cooldown.String())
}
