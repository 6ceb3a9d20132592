// FILE: ./internal/browser/humanoid/keyboard_test.go
package humanoid

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/panelkeeper/internal/config"
	"github.com/xkilldash9x/panelkeeper/internal/login"
)

func TestKeyDelay_Distribution(t *testing.T) {
	k := NewKeyboard(config.TypingConfig{KeyDelay: 50 * time.Millisecond, KeyJitter: 20 * time.Millisecond}, rand.New(rand.NewSource(12345)))

	var total time.Duration
	const n = 500
	for i := 0; i < n; i++ {
		d := k.KeyDelay()
		assert.GreaterOrEqual(t, d, 50*time.Millisecond/4, "pauses never drop below the floor")
		total += d
		if i%20 == 19 {
			k.Rest()
		}
	}
	avg := total / n
	assert.InDelta(t, float64(55*time.Millisecond), float64(avg), float64(10*time.Millisecond))
}

func TestKeyDelay_Fatigue(t *testing.T) {
	cfg := config.TypingConfig{KeyDelay: 40 * time.Millisecond}
	k := NewKeyboard(cfg, rand.New(rand.NewSource(1)))

	first := k.KeyDelay()
	for i := 0; i < 100; i++ {
		k.KeyDelay()
	}
	tired := k.KeyDelay()
	assert.Equal(t, 40*time.Millisecond, first, "no jitter and no fatigue on the first key")
	assert.InDelta(t, float64(40*time.Millisecond)*(1+maxFatigue*fatigueFactor), float64(tired), float64(time.Microsecond))

	k.Rest()
	assert.Equal(t, 40*time.Millisecond, k.KeyDelay())
}

func TestKeyDelay_Disabled(t *testing.T) {
	k := NewKeyboard(config.TypingConfig{}, nil)
	assert.Zero(t, k.KeyDelay())
}

func TestKeyboard_RestsBetweenLoginFields(t *testing.T) {
	var pacer login.Pacer = NewKeyboard(config.TypingConfig{KeyDelay: 40 * time.Millisecond}, rand.New(rand.NewSource(1)))
	rester, ok := pacer.(login.Rester)
	require.True(t, ok, "the injector resets keyboard fatigue before each field")

	for i := 0; i < 30; i++ {
		pacer.KeyDelay()
	}
	rester.Rest()
	assert.Equal(t, 40*time.Millisecond, pacer.KeyDelay())
}
