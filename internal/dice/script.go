package dice

import "fmt"

// ScriptSource replays a fixed list of die faces, one per Intn call.
// It exists so tests and replays can force exact rolls.
type ScriptSource struct {
	faces []int
	next  int
}

// Script builds a Roller that yields the given faces in order.
func Script(faces ...int) *Roller {
	return NewRoller(NewScriptSource(faces...))
}

// NewScriptSource copies faces into a new source.
func NewScriptSource(faces ...int) *ScriptSource {
	return &ScriptSource{faces: append([]int(nil), faces...)}
}

// Intn returns the next scripted face minus one. It panics when the script is exhausted
// or a face does not fit the die being rolled.
func (s *ScriptSource) Intn(n int) int {
	if s.next >= len(s.faces) {
		panic(fmt.Sprintf("dice: script exhausted after %d faces", len(s.faces)))
	}
	face := s.faces[s.next]
	s.next++
	if face < 1 || face > n {
		panic(fmt.Sprintf("dice: scripted face %d outside 1..%d", face, n))
	}
	return face - 1
}

// Remaining reports how many scripted faces have not been consumed.
func (s *ScriptSource) Remaining() int {
	return len(s.faces) - s.next
}

// Pair splits 2d6 totals into faces so tests can script totals rather than faces.
func Pair(totals ...int) []int {
	faces := make([]int, 0, len(totals)*2)
	for _, total := range totals {
		switch {
		case total <= 2:
			faces = append(faces, 1, 1)
		case total >= 12:
			faces = append(faces, 6, 6)
		case total <= 7:
			faces = append(faces, 1, total-1)
		default:
			faces = append(faces, 6, total-6)
		}
	}
	return faces
}
