package vbt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	reps := []RepIngest{
		{RepNumber: 1, MeanVelocity: 0.80, PeakVelocity: 1.20},
		{RepNumber: 2, MeanVelocity: 0.75, PeakVelocity: 1.10},
		{RepNumber: 3, MeanVelocity: 0.60, PeakVelocity: 0.95},
	}

	stats := summarize(reps)
	assert.Equal(t, 3, stats.repCount)
	assert.InDelta(t, (0.80+0.75+0.60)/3, stats.avgVelocity, 1e-9)
	assert.InDelta(t, 1.20, stats.peakVelocity, 1e-9)
	require.NotNil(t, stats.velocityLoss)
	assert.InDelta(t, (0.80-0.60)/0.80*100, *stats.velocityLoss, 1e-9)
	assert.False(t, stats.flagged)
	assert.Nil(t, stats.flagReason)
}

func TestSummarize_SingleRep(t *testing.T) {
	stats := summarize([]RepIngest{
		{RepNumber: 1, MeanVelocity: 0.5, PeakVelocity: 0.9},
	})
	assert.Equal(t, 1, stats.repCount)
	assert.Nil(t, stats.velocityLoss)
}

func TestSummarize_Empty(t *testing.T) {
	stats := summarize(nil)
	assert.Zero(t, stats.repCount)
	assert.Zero(t, stats.avgVelocity)
	assert.Zero(t, stats.peakVelocity)
	assert.Nil(t, stats.velocityLoss)
	assert.False(t, stats.flagged)
}

func TestSummarize_FlagPropagates(t *testing.T) {
	stats := summarize([]RepIngest{
		{RepNumber: 1, MeanVelocity: 0.8, PeakVelocity: 1.1},
		{RepNumber: 2, MeanVelocity: 4.2, PeakVelocity: 4.5},
	})
	assert.True(t, stats.flagged)
	require.NotNil(t, stats.flagReason)
	assert.Equal(t, "implausible mean velocity", *stats.flagReason)
}

func TestFlagRep(t *testing.T) {
	for name, tc := range map[string]struct {
		rep    RepIngest
		flag   bool
		reason string
	}{
		"clean": {
			rep: RepIngest{MeanVelocity: 0.8, PeakVelocity: 1.2},
		},
		"at lower bound": {
			rep: RepIngest{MeanVelocity: 0.05, PeakVelocity: 0.1},
		},
		"at upper bound": {
			rep: RepIngest{MeanVelocity: 3.0, PeakVelocity: 3.5},
		},
		"too slow": {
			rep:    RepIngest{MeanVelocity: 0.01, PeakVelocity: 0.2},
			flag:   true,
			reason: "implausible mean velocity",
		},
		"too fast": {
			rep:    RepIngest{MeanVelocity: 3.5, PeakVelocity: 4.0},
			flag:   true,
			reason: "implausible mean velocity",
		},
		"peak below mean": {
			rep:    RepIngest{MeanVelocity: 0.9, PeakVelocity: 0.7},
			flag:   true,
			reason: "peak velocity below mean velocity",
		},
	} {
		t.Run(name, func(t *testing.T) {
			flagged, reason := flagRep(tc.rep)
			assert.Equal(t, tc.flag, flagged)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestVelocityLossPerRep(t *testing.T) {
	reps := []RepIngest{
		{RepNumber: 1, MeanVelocity: 0.80},
		{RepNumber: 2, MeanVelocity: 0.70},
		// a late faster rep resets the baseline
		{RepNumber: 3, MeanVelocity: 0.90},
		{RepNumber: 4, MeanVelocity: 0.45},
	}

	losses := velocityLossPerRep(reps)
	require.Len(t, losses, 4)

	assert.Nil(t, losses[0])
	require.NotNil(t, losses[1])
	assert.InDelta(t, (0.80-0.70)/0.80*100, *losses[1], 1e-9)
	require.NotNil(t, losses[2])
	assert.InDelta(t, 0, *losses[2], 1e-9)
	require.NotNil(t, losses[3])
	assert.InDelta(t, (0.90-0.45)/0.90*100, *losses[3], 1e-9)
}
