package workouts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Contains(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: end}

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(end))
	assert.True(t, w.Contains(start.Add(36*time.Hour)))
	assert.False(t, w.Contains(start.Add(-time.Second)))
	assert.False(t, w.Contains(end.Add(time.Second)))
}

func TestWindow_NoUpperBound(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	w := Window{Start: start}

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(start.AddDate(3, 0, 0)))
	assert.False(t, w.Contains(start.Add(-time.Nanosecond)))
}

func TestAssignment_EffectiveWindow(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	fallback := Window{Start: createdAt}

	a := Assignment{CreatedAt: createdAt}
	assert.Equal(t, fallback, a.EffectiveWindow(fallback))

	startAt := createdAt.AddDate(0, 0, 3)
	dueAt := createdAt.AddDate(0, 0, 10)

	a.StartAt = &startAt
	w := a.EffectiveWindow(fallback)
	assert.Equal(t, startAt, w.Start)
	assert.True(t, w.End.IsZero())

	a.DueAt = &dueAt
	w = a.EffectiveWindow(fallback)
	assert.Equal(t, startAt, w.Start)
	assert.Equal(t, dueAt, w.End)
}
