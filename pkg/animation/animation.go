// Package animation resolves symbolic movement tokens emitted by the model
// into concrete robot animation paths.
//
// A token may carry a variant-count suffix: "Gestures/Hey_(7)" means seven
// numbered greeting animations exist and the robot should perform one at
// random. Resolution substitutes the suffix with a uniformly drawn 1-based
// index and prepends the animation root.
package animation

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
)

// Prefix is the namespace every resolved animation path lives under.
const Prefix = "animations/Stand/"

var variantRe = regexp.MustCompile(`_\((\d+)\)$`)

// Resolver picks animation variants using an injectable random source,
// so tests can make the draw deterministic.
type Resolver struct {
	rng *rand.Rand
}

// NewResolver creates a Resolver seeded from src. A nil src falls back to
// the shared global source.
func NewResolver(src rand.Source) *Resolver {
	if src == nil {
		return &Resolver{}
	}
	return &Resolver{rng: rand.New(src)}
}

// Resolve maps a movement token to a concrete animation path. Tokens ending
// in "_(N)" with N >= 1 have the suffix replaced by "_R" for a random R in
// [1, N]; anything else (including malformed suffixes) passes through
// unchanged. The input is never mutated and resolution never fails.
func (r *Resolver) Resolve(token string) string {
	m := variantRe.FindStringSubmatch(token)
	if m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 {
			pick := r.intn(n) + 1
			token = variantRe.ReplaceAllString(token, fmt.Sprintf("_%d", pick))
		}
	}
	return Prefix + token
}

func (r *Resolver) intn(n int) int {
	if r.rng != nil {
		return r.rng.Intn(n)
	}
	return rand.Intn(n)
}
