// Package callconv places call-site operands into argument registers.
//
// The problem is a parallel move: slot i must receive srcs[i] in a<i>, every
// slot is written exactly once, and a value may be read by several slots. The
// dependency graph therefore has in-degree at most one, so each connected
// component holds at most one cycle and a single scratch register suffices.
package callconv

import (
	"fabr/internal/isa"
)

// Move copies Src into Dst.
type Move struct {
	Dst isa.Reg
	Src isa.Reg
}

func (m Move) String() string {
	return isa.Mv(m.Dst, m.Src)
}

type slotState uint8

const (
	unprocessed slotState = iota
	inProgress
	done
)

type spill struct {
	slot int
	src  isa.Reg
}

type solver struct {
	srcs     []isa.Reg
	state    []slotState
	redirect []spill
	moves    []Move
}

// Assign returns the moves that load srcs[i] into argument register i.
// Self-moves are elided and isa.Scratch is touched only to break a cycle.
// len(srcs) must not exceed isa.MaxArgs and no source may be isa.Scratch.
func Assign(srcs []isa.Reg) []Move {
	s := &solver{
		srcs:  srcs,
		state: make([]slotState, len(srcs)),
		moves: make([]Move, 0, len(srcs)+1),
	}
	for i := range srcs {
		s.resolve(i)
	}
	return s.moves
}

func (s *solver) resolve(i int) {
	dst := isa.Arg(i)
	switch {
	case s.state[i] == done:
		return
	case s.srcs[i] == dst:
		s.state[i] = done
		return
	case s.state[i] == inProgress:
		// cycle closes here: park the value before it gets overwritten
		s.moves = append(s.moves, Move{Dst: isa.Scratch, Src: s.srcs[i]})
		s.redirect = append(s.redirect, spill{slot: i, src: s.srcs[i]})
		s.state[i] = done
		return
	}

	s.state[i] = inProgress
	for j := range s.srcs {
		if j != i && s.state[j] != done && s.srcs[j] == dst {
			s.resolve(j)
		}
	}

	src := s.srcs[i]
	if n := len(s.redirect); n > 0 && s.redirect[n-1].src == src {
		if s.redirect[n-1].slot == i {
			s.redirect = s.redirect[:n-1]
		}
		src = isa.Scratch
	}
	s.moves = append(s.moves, Move{Dst: dst, Src: src})
	s.state[i] = done
}

// Lines renders moves as instructions.
func Lines(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

// UsesScratch reports whether any move writes the scratch register.
func UsesScratch(moves []Move) bool {
	for _, m := range moves {
		if m.Dst == isa.Scratch {
			return true
		}
	}
	return false
}
