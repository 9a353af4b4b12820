// Package dice implements the dice primitives used by combat resolution.
package dice

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Source is the randomness provider behind every roll.
type Source interface {
	// Intn returns a non-negative int in [0, n). n is always positive.
	Intn(n int) int
}

// Roll captures the individual faces of a single dice throw.
type Roll struct {
	Faces []int
}

// Total returns the sum of all faces.
func (r Roll) Total() int {
	total := 0
	for _, face := range r.Faces {
		total += face
	}
	return total
}

// String renders the roll as "7 (3+4)".
func (r Roll) String() string {
	if len(r.Faces) == 0 {
		return "0"
	}
	parts := make([]string, len(r.Faces))
	for i, face := range r.Faces {
		parts[i] = strconv.Itoa(face)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return fmt.Sprintf("%d (%s)", r.Total(), strings.Join(parts, "+"))
}

// Roller throws six-sided dice from a Source and counts how many dice were thrown.
//
// A Roller is owned by exactly one battle; it is not safe for concurrent use.
type Roller struct {
	src   Source
	count uint64
}

// NewRoller wraps the provided source.
func NewRoller(src Source) *Roller {
	return &Roller{src: src}
}

// NewSeeded returns a Roller whose sequence is fully determined by seed.
func NewSeeded(seed int64) *Roller {
	return NewRoller(rand.New(rand.NewSource(seed)))
}

// D6 rolls a single six-sided die.
func (r *Roller) D6() int {
	r.count++
	return r.src.Intn(6) + 1
}

// Roll2D6 rolls two six-sided dice and keeps both faces.
func (r *Roller) Roll2D6() Roll {
	return r.RollD6(2)
}

// RollD6 rolls n six-sided dice.
func (r *Roller) RollD6(n int) Roll {
	faces := make([]int, n)
	for i := range faces {
		faces[i] = r.D6()
	}
	return Roll{Faces: faces}
}

// Count reports how many dice have been thrown so far.
func (r *Roller) Count() uint64 {
	return r.count
}
