package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorfusion/internal/linalg"
)

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	recs := []Record{
		{
			Time:       1,
			Truth:      linalg.Vec2{X: 0, Y: 0},
			Fused:      linalg.Vec2{X: 3, Y: 4}, // error 5
			GPS:        linalg.Vec2{X: 1, Y: 0},
			HasGPS:     true,
			FusedVel:   linalg.Vec2{X: 1},
			Covariance: linalg.Identity4(),
		},
		{
			Time:       2,
			Truth:      linalg.Vec2{X: 1, Y: 1},
			Fused:      linalg.Vec2{X: 1, Y: 2}, // error 1
			FusedVel:   linalg.Vec2{X: 1},
			Covariance: linalg.Diag4(linalg.Vec4{0.09, 0.16, 1, 1}),
		},
	}

	s, err := Summarize(recs)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 1, s.Fixes)
	assert.InDelta(t, 1.0, s.Duration, 1e-12)
	assert.InDelta(t, math.Sqrt((25.0+1.0)/2), s.RMSPosition, 1e-12)
	assert.InDelta(t, 3.0, s.MeanPos, 1e-12)
	assert.InDelta(t, 5.0, s.MaxPosition, 1e-12)
	assert.InDelta(t, 1.0, s.RMSVelocity, 1e-12)
	assert.InDelta(t, 1.0, s.RMSGPS, 1e-12)
	assert.InDelta(t, 0.5, s.FinalSigma, 1e-12)
}

func TestSummarize_NoFixes(t *testing.T) {
	t.Parallel()
	s, err := Summarize([]Record{{Covariance: linalg.Identity4()}})
	require.NoError(t, err)
	assert.Zero(t, s.Fixes)
	assert.True(t, math.IsNaN(s.RMSGPS))
}

func TestRecord_PositionSigmaIgnoresRoundOff(t *testing.T) {
	t.Parallel()
	r := Record{Covariance: linalg.Diag4(linalg.Vec4{-1e-15, 4, 1, 1})}
	assert.InDelta(t, 2.0, r.PositionSigma(), 1e-12)
	assert.True(t, math.IsNaN(r.GPSError()))
}
