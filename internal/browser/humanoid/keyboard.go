// internal/browser/humanoid/keyboard.go
package humanoid

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/xkilldash9x/panelkeeper/internal/config"
)

const (
	// fatigueStep is added per keystroke; long values type slightly slower toward the end.
	fatigueStep = 0.02
	maxFatigue  = 0.5
	// fatigueFactor scales the mean pause at full fatigue.
	fatigueFactor = 0.3
)

// Keyboard produces human-like inter-key pauses drawn from a normal distribution around
// the configured delay.
type Keyboard struct {
	mu      sync.Mutex
	rng     *rand.Rand
	mean    float64
	stdDev  float64
	min     float64
	fatigue float64
}

// NewKeyboard creates a keyboard from the typing config. A nil rng is seeded from the clock.
func NewKeyboard(cfg config.TypingConfig, rng *rand.Rand) *Keyboard {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	mean := float64(cfg.KeyDelay)
	return &Keyboard{
		rng:    rng,
		mean:   mean,
		stdDev: float64(cfg.KeyJitter),
		min:    mean / 4,
	}
}

// KeyDelay returns the pause before the next keystroke.
func (k *Keyboard) KeyDelay() time.Duration {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.mean <= 0 {
		return 0
	}
	mean := k.mean * (1 + k.fatigue*fatigueFactor)
	k.fatigue = math.Min(maxFatigue, k.fatigue+fatigueStep)

	d := k.rng.NormFloat64()*k.stdDev + mean
	return time.Duration(math.Max(k.min, d))
}

// Rest clears accumulated fatigue, as between two fields.
func (k *Keyboard) Rest() {
	k.mu.Lock()
	k.fatigue = 0
	k.mu.Unlock()
}
