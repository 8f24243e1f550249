package board

// Sequence is an ordered list of moves played within one turn.
type Sequence []Move

// Equal reports whether two sequences contain the same moves in order.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// EnumerateSequences returns every maximal legal move sequence for the given
// dice and color. A double grants four uses of its die value.
//
// A sequence is recorded when no legal continuation exists after its prefix,
// which covers forced partial turns. When no move is legal at all the result
// contains exactly one empty sequence, so the slice is never empty.
func EnumerateSequences(b Board, die1, die2 int, c Color) []Sequence {
	dice := []int{die1, die2}
	if die1 == die2 {
		dice = []int{die1, die1, die1, die1}
	}

	var out []Sequence
	var walk func(b Board, remaining []int, prefix Sequence)
	walk = func(b Board, remaining []int, prefix Sequence) {
		extended := false
		tried := make(map[int]bool, 2)
		for i, die := range remaining {
			if tried[die] {
				continue
			}
			tried[die] = true
			for _, mv := range movesForDie(b, die, c) {
				next, err := b.Apply(mv, c)
				if err != nil {
					continue
				}
				rest := make([]int, 0, len(remaining)-1)
				rest = append(rest, remaining[:i]...)
				rest = append(rest, remaining[i+1:]...)
				// Copy the prefix so sibling branches never share backing arrays.
				branch := make(Sequence, len(prefix), len(prefix)+1)
				copy(branch, prefix)
				walk(next, rest, append(branch, mv))
				extended = true
			}
		}
		if !extended {
			recorded := make(Sequence, len(prefix))
			copy(recorded, prefix)
			out = append(out, recorded)
		}
	}
	walk(b, dice, nil)
	return out
}

// movesForDie lists the candidate moves for one die value. Bar entry is the
// only candidate while checkers sit on the bar. Candidates are not guaranteed
// legal; Apply is the single source of legality.
func movesForDie(b Board, die int, c Color) []Move {
	if b.Bar(c) > 0 {
		return []Move{{From: Bar, To: EntryPoint(die, c), Die: die}}
	}

	var moves []Move
	for i := 0; i < NumPoints; i++ {
		if b.Checkers(i, c) == 0 {
			continue
		}
		moves = append(moves, Move{From: i, To: Destination(i, die, c), Die: die})
	}
	return moves
}
