package difficulty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRecorder struct{ calls int }

func (f *failingRecorder) Record(context.Context, Event) error {
	f.calls++
	return errors.New("analytics down")
}

func TestLadder(t *testing.T) {
	tests := []struct {
		level    Level
		up, down Level
	}{
		{Beginner, Intermediate, Beginner},
		{Intermediate, Advanced, Beginner},
		{Advanced, Advanced, Intermediate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.up, tt.level.Up(), "Up(%s)", tt.level)
		assert.Equal(t, tt.down, tt.level.Down(), "Down(%s)", tt.level)
	}
}

func TestPointer_MissingIsBeginner(t *testing.T) {
	p := Pointer{}
	assert.Equal(t, Beginner, p.Get("anything"))
	p["bad"] = Level("expert")
	assert.Equal(t, Beginner, p.Get("bad"))
}

func TestPromote_NeverSkipsLevels(t *testing.T) {
	p := Pointer{}
	tr := Promote(p, "x")
	require.NotNil(t, tr)
	assert.Equal(t, Beginner, tr.From)
	assert.Equal(t, Intermediate, tr.To)

	tr = Promote(p, "x")
	require.NotNil(t, tr)
	assert.Equal(t, Intermediate, tr.From)
	assert.Equal(t, Advanced, tr.To)

	assert.Nil(t, Promote(p, "x"), "promote at advanced must be a no-op")
	assert.Equal(t, Advanced, p.Get("x"))
}

func TestDemote_NoOpAtBeginner(t *testing.T) {
	p := Pointer{"x": Advanced}
	tr := Demote(p, "x")
	require.NotNil(t, tr)
	assert.Equal(t, Intermediate, tr.To)
	Demote(p, "x")
	assert.Nil(t, Demote(p, "x"))
	assert.Equal(t, Beginner, p.Get("x"))
}

func TestShouldPromote(t *testing.T) {
	c := NewController(DefaultConfig(), nil, nil)
	tests := []struct {
		streak     int
		aggressive bool
		want       bool
	}{
		{0, false, false},
		{1, false, false},
		{2, false, false},
		{3, false, true},
		{4, false, false},
		{6, false, true},
		{2, true, true},
		{3, true, false},
		{4, true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.ShouldPromote(tt.streak, tt.aggressive),
			"ShouldPromote(%d, aggressive=%v)", tt.streak, tt.aggressive)
	}
}

func TestShouldDemote_RequiresTwoFailures(t *testing.T) {
	c := NewController(Config{StreakToPromote: 3, FailuresToDemote: 1}, nil, nil)
	assert.False(t, c.ShouldDemote(1), "a single miss must never demote")
	assert.True(t, c.ShouldDemote(2))
}

func TestStreakReachingThreshold_PromotesOneLevel(t *testing.T) {
	ctx := context.Background()
	c := NewController(DefaultConfig(), nil, nil)

	for _, start := range Levels() {
		p := Pointer{"x": start}
		for streak := 1; streak <= c.Threshold(false); streak++ {
			if c.ShouldPromote(streak, false) {
				c.Promote(ctx, "run", p, "x", streak)
			}
		}
		assert.Equal(t, start.Up(), p.Get("x"), "start %s", start)
		assert.LessOrEqual(t, p.Get("x").Rank()-start.Rank(), 1)
	}
}

func TestController_RecordsEvents(t *testing.T) {
	ctx := context.Background()
	counter := NewCounter()
	c := NewController(DefaultConfig(), counter, nil)
	p := Pointer{}

	c.Promote(ctx, "run", p, "x", 3)
	c.Promote(ctx, "run", p, "x", 6)
	c.Promote(ctx, "run", p, "x", 9) // no-op at advanced, not recorded
	c.Demote(ctx, "run", p, "x", 2)
	c.RecordRemediation(ctx, "run", "x", 1)

	assert.Equal(t, 2, counter.Count(EventPromotion))
	assert.Equal(t, 1, counter.Count(EventDemotion))
	assert.Equal(t, 1, counter.Count(EventRemediation))
}

func TestController_RecorderFailureDoesNotBlock(t *testing.T) {
	rec := &failingRecorder{}
	c := NewController(DefaultConfig(), rec, nil)
	p := Pointer{}

	tr := c.Promote(context.Background(), "run", p, "x", 3)
	require.NotNil(t, tr)
	assert.Equal(t, Intermediate, p.Get("x"))
	assert.Equal(t, 1, rec.calls)
}

func TestDecay(t *testing.T) {
	ctx := context.Background()
	counter := NewCounter()
	c := NewController(DefaultConfig(), counter, nil)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	got, ok := c.Decay(ctx, "run", 8, now.Add(-30*time.Hour), now)
	assert.True(t, ok)
	assert.Equal(t, 4, got)

	got, ok = c.Decay(ctx, "run", 7, now.Add(-25*time.Hour), now)
	assert.True(t, ok)
	assert.Equal(t, 3, got)

	got, ok = c.Decay(ctx, "run", 8, now.Add(-2*time.Hour), now)
	assert.False(t, ok)
	assert.Equal(t, 8, got)

	got, ok = c.Decay(ctx, "run", 0, now.Add(-72*time.Hour), now)
	assert.False(t, ok)
	assert.Equal(t, 0, got)

	assert.Equal(t, 2, counter.Count(EventDecay))
}

func TestRecorders_FanOut(t *testing.T) {
	a, b := NewCounter(), NewCounter()
	f := &failingRecorder{}
	err := Recorders{a, f, nil, b}.Record(context.Background(), Event{Kind: EventDecay})
	require.Error(t, err)
	assert.Equal(t, 1, a.Count(EventDecay))
	assert.Equal(t, 1, b.Count(EventDecay))
}
