// Package dice provides the dice primitives used by the match turn protocol.
//
// Rolls are deterministic with respect to the provided random source, which
// keeps turn replay and tests reproducible. Seeding is the caller's concern;
// see platform/random.
package dice

import "math/rand"

// Sides is the number of faces on a backgammon die.
const Sides = 6

// Pair is one two-die roll.
type Pair struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

// IsDouble reports whether both dice show the same value.
func (p Pair) IsDouble() bool {
	return p.First == p.Second
}

// Values returns the usable die values: two for a normal roll, four for a
// double.
func (p Pair) Values() []int {
	if p.IsDouble() {
		return []int{p.First, p.First, p.First, p.First}
	}
	return []int{p.First, p.Second}
}

// RollDie rolls a single die using the provided random source.
func RollDie(rng *rand.Rand) int {
	return rng.Intn(Sides) + 1
}

// Roll rolls a pair of dice using the provided random source.
func Roll(rng *rand.Rand) Pair {
	return Pair{First: RollDie(rng), Second: RollDie(rng)}
}

// OpeningDraw rolls one die per side until the draw is decisive. The turn
// protocol requires a winner, so ties are redrawn rather than surfaced.
func OpeningDraw(rng *rand.Rand) (white, black int) {
	for {
		white = RollDie(rng)
		black = RollDie(rng)
		if white != black {
			return white, black
		}
	}
}
