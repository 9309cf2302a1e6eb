package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock steps time manually
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreakerOpensAtThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	b := New(WithThreshold(5), WithCooldown(60*time.Second), WithClock(clock.now))

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.True(t, b.AllowCall(), "breaker must stay closed below the threshold")
	}

	b.RecordFailure()
	assert.True(t, b.Open())
	assert.False(t, b.AllowCall())
}

func TestBreakerClosesAfterCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	b := New(WithThreshold(2), WithCooldown(60*time.Second), WithClock(clock.now))

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.AllowCall())

	clock.advance(59 * time.Second)
	assert.False(t, b.AllowCall())

	clock.advance(2 * time.Second)
	assert.True(t, b.AllowCall())
	assert.Zero(t, b.Failures(), "reopening must zero the counter")
	assert.False(t, b.Open())
}

func TestSuccessResetsCounter(t *testing.T) {
	b := New(WithThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.Zero(t, b.Failures())

	// The streak must now start over
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.AllowCall())
	b.RecordFailure()
	assert.False(t, b.AllowCall())
}

func TestDefaults(t *testing.T) {
	b := New()
	assert.Equal(t, DefaultThreshold, b.threshold)
	assert.Equal(t, DefaultCooldown, b.cooldown)
}
