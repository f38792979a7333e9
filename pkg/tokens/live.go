package tokens

import (
	"regexp/syntax"
	"unicode/utf8"
)

// liveness runs a compiled token program over a buffer without captures and
// reports threads that are still consuming input when the buffer runs out.
// Such a thread means more input could still produce a match, or a different
// one, starting where the thread started.
type liveness struct {
	prog *syntax.Prog
}

func newLiveness(pattern string) (*liveness, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, err
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, err
	}
	return &liveness{prog: prog}, nil
}

type thread struct {
	pc    uint32
	start int
}

// threadSet is a sparse set of program counters. Insertion order is thread
// priority, so the first start recorded for a pc is the earliest.
type threadSet struct {
	sparse []uint32
	dense  []thread
}

func newThreadSet(n int) *threadSet {
	return &threadSet{sparse: make([]uint32, n), dense: make([]thread, 0, n)}
}

func (s *threadSet) contains(pc uint32) bool {
	i := s.sparse[pc]
	return int(i) < len(s.dense) && s.dense[i].pc == pc
}

func (s *threadSet) insert(pc uint32, start int) {
	s.sparse[pc] = uint32(len(s.dense))
	s.dense = append(s.dense, thread{pc: pc, start: start})
}

func (s *threadSet) clear() {
	s.dense = s.dense[:0]
}

// earliest returns the smallest position s in [from, limit] such that a
// thread started at s is still alive after consuming all of text.
func (l *liveness) earliest(text []byte, from, limit int) (int, bool) {
	n := len(l.prog.Inst)
	cur, next := newThreadSet(n), newThreadSet(n)

	r, size := decodeAt(text, 0)
	if from <= 0 {
		l.closure(cur, uint32(l.prog.Start), 0, syntax.EmptyOpContext(-1, r), len(text) == 0)
	}

	for pos := 0; pos < len(text); {
		npos := pos + size
		nr, nsize := decodeAt(text, npos)
		flag := syntax.EmptyOpContext(r, nr)
		atEnd := npos == len(text)

		next.clear()
		for _, th := range cur.dense {
			inst := &l.prog.Inst[th.pc]
			if consumes(inst, r) {
				l.closure(next, inst.Out, th.start, flag, atEnd)
			}
		}
		if npos >= from && npos <= limit {
			l.closure(next, uint32(l.prog.Start), npos, flag, atEnd)
		}

		cur, next = next, cur
		pos, r, size = npos, nr, nsize
		if len(cur.dense) == 0 && pos > limit {
			return 0, false
		}
	}

	best, alive := 0, false
	for _, th := range cur.dense {
		switch l.prog.Inst[th.pc].Op {
		case syntax.InstRune, syntax.InstRune1, syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
			if !alive || th.start < best {
				best, alive = th.start, true
			}
		}
	}
	return best, alive
}

// closure adds pc and everything reachable from it without consuming input.
// At the end of the buffer the next rune is unknown, so every empty-width
// assertion is treated as satisfiable.
func (l *liveness) closure(set *threadSet, pc uint32, start int, flag syntax.EmptyOp, atEnd bool) {
	if set.contains(pc) {
		return
	}
	set.insert(pc, start)

	inst := &l.prog.Inst[pc]
	switch inst.Op {
	case syntax.InstAlt, syntax.InstAltMatch:
		l.closure(set, inst.Out, start, flag, atEnd)
		l.closure(set, inst.Arg, start, flag, atEnd)
	case syntax.InstCapture, syntax.InstNop:
		l.closure(set, inst.Out, start, flag, atEnd)
	case syntax.InstEmptyWidth:
		if atEnd || syntax.EmptyOp(inst.Arg)&^flag == 0 {
			l.closure(set, inst.Out, start, flag, atEnd)
		}
	}
}

func consumes(inst *syntax.Inst, r rune) bool {
	switch inst.Op {
	case syntax.InstRune:
		return inst.MatchRune(r)
	case syntax.InstRune1:
		return r == inst.Rune[0]
	case syntax.InstRuneAny:
		return true
	case syntax.InstRuneAnyNotNL:
		return r != '\n'
	}
	return false
}

func decodeAt(text []byte, i int) (rune, int) {
	if i >= len(text) {
		return -1, 0
	}
	return utf8.DecodeRune(text[i:])
}
