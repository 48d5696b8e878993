package datalog

import "iter"

// variant is one semi-naive rewriting of a rule: the view every relation
// literal reads for one round.
type variant struct {
	rule  *compiledRule
	views []View // per body position; unused for non-relation literals
	delta int    // body position read as Delta, or -1
}

// variantsFor lists the variants of r to evaluate in the given round of its
// component. Variant k reads Delta at the k-th recursive atom, Total at the
// recursive atoms before it and Full at the ones after it. Rules without
// recursive atoms only run in round 0.
func variantsFor(r *compiledRule, recursive bool, round int) []variant {
	base := func() []View {
		views := make([]View, len(r.body))
		for i, l := range r.body {
			views[i] = ViewFull
			if l.kind == KindNot {
				views[i] = ViewAll
			}
		}
		return views
	}
	if !recursive || len(r.recursive) == 0 {
		if round > 0 {
			return nil
		}
		return []variant{{rule: r, views: base(), delta: -1}}
	}
	out := make([]variant, 0, len(r.recursive))
	for k, pos := range r.recursive {
		views := base()
		for j, other := range r.recursive {
			switch {
			case j < k:
				views[other] = ViewTotal
			case j == k:
				views[other] = ViewDelta
			}
		}
		out = append(out, variant{rule: r, views: views, delta: pos})
	}
	return out
}

type colSlot struct{ col, slot int }

// step is one literal of a planned variant, with everything the executor
// needs resolved up front.
type step struct {
	lit  *compiledLiteral
	rel  *Relation
	view View
	idx  *Index
	key  []slotArg // values for the index columns, in column order

	binds  []colSlot // columns that bind a slot
	checks []colSlot // columns that must equal a slot bound in the same atom

	outFresh []bool // per Match/Let output: true binds, false compares
}

// planVariant orders the body literals of v greedily. Filters whose inputs
// are bound go first, in body order. Otherwise the next atom is the one with
// a bound column and the smallest view, falling back to the smallest view.
// Required indexes are created here, so execution never mutates relations.
func planVariant(v variant, rels []*Relation) []step {
	r := v.rule
	bound := make([]bool, len(r.slotNames))
	done := make([]bool, len(r.body))
	steps := make([]step, 0, len(r.body))

	isBound := func(a slotArg) bool { return a.kind == argConst || (a.kind == argVar && bound[a.slot]) }
	ready := func(l *compiledLiteral) bool {
		switch l.kind {
		case KindNot:
			for _, a := range l.args {
				if a.kind == argVar && !bound[a.slot] {
					return false
				}
			}
			return true
		case KindMatch, KindLet, KindGuard:
			for _, s := range l.ins {
				if !bound[s] {
					return false
				}
			}
			return true
		}
		return false
	}

	for len(steps) < len(r.body) {
		pick := -1
		for i := range r.body {
			if !done[i] && r.body[i].kind != KindAtom && ready(&r.body[i]) {
				pick = i
				break
			}
		}
		if pick < 0 {
			bestKeyed, bestSize := false, 0
			for i := range r.body {
				l := &r.body[i]
				if done[i] || l.kind != KindAtom {
					continue
				}
				keyed := false
				for _, a := range l.args {
					if isBound(a) {
						keyed = true
						break
					}
				}
				size := rels[l.rel].Size(v.views[i])
				if pick < 0 || (keyed && !bestKeyed) || (keyed == bestKeyed && size < bestSize) {
					pick, bestKeyed, bestSize = i, keyed, size
				}
			}
		}
		if pick < 0 {
			// unreachable for plans that passed checkSafety
			panic("datalog: no literal of rule " + r.name + " is ready")
		}
		done[pick] = true

		l := &r.body[pick]
		st := step{lit: l, view: v.views[pick]}
		switch l.kind {
		case KindAtom, KindNot:
			st.rel = rels[l.rel]
			var cols []int
			seen := make(map[int]bool)
			for col, a := range l.args {
				switch {
				case a.kind == argWild:
				case isBound(a):
					cols = append(cols, col)
					st.key = append(st.key, a)
				case seen[a.slot]:
					st.checks = append(st.checks, colSlot{col, a.slot})
				default:
					seen[a.slot] = true
					st.binds = append(st.binds, colSlot{col, a.slot})
				}
			}
			if len(cols) > 0 {
				st.idx = st.rel.Index(cols...)
			}
			for _, b := range st.binds {
				bound[b.slot] = true
			}
		case KindMatch, KindLet:
			st.outFresh = make([]bool, len(l.outs))
			for i, s := range l.outs {
				if s >= 0 && !bound[s] {
					st.outFresh[i] = true
					bound[s] = true
				}
			}
		}
		steps = append(steps, st)
	}
	return steps
}

// executor runs one planned variant and hands every derived head tuple to
// emit. Evaluation stops as soon as emit returns false.
type executor struct {
	rule    *compiledRule
	steps   []step
	env     []Value
	emit    func(Tuple) bool
	stopped bool
}

func newExecutor(r *compiledRule, steps []step, emit func(Tuple) bool) *executor {
	return &executor{rule: r, steps: steps, env: make([]Value, len(r.slotNames)), emit: emit}
}

// run evaluates the variant and reports whether it ran to completion.
func (e *executor) run() bool {
	e.step(0)
	return !e.stopped
}

func (e *executor) step(i int) {
	if e.stopped {
		return
	}
	if i == len(e.steps) {
		e.emitHead()
		return
	}
	st := &e.steps[i]
	switch st.lit.kind {
	case KindAtom:
		for t := range e.rows(st) {
			for _, b := range st.binds {
				e.env[b.slot] = t[b.col]
			}
			if e.consistent(st, t) {
				e.step(i + 1)
			}
			if e.stopped {
				break
			}
		}
		for _, b := range st.binds {
			e.env[b.slot] = nil
		}
	case KindNot:
		if !e.present(st) {
			e.step(i + 1)
		}
	case KindGuard:
		if st.lit.guard(e.values(st.lit.ins)) {
			e.step(i + 1)
		}
	case KindLet:
		v := st.lit.let(e.values(st.lit.ins))
		if v != nil && e.assign(st, []Value{v}) {
			e.step(i + 1)
		}
		e.release(st)
	case KindMatch:
		parts, ok := st.lit.match(e.env[st.lit.ins[0]])
		if ok && len(parts) == len(st.lit.outs) && e.assign(st, parts) {
			e.step(i + 1)
		}
		e.release(st)
	}
}

func (e *executor) rows(st *step) iter.Seq[Tuple] {
	if st.idx == nil {
		return st.rel.Scan(st.view)
	}
	return st.rel.Lookup(st.view, st.idx, e.key(st))
}

func (e *executor) present(st *step) bool {
	if st.idx == nil {
		return st.rel.Size(st.view) > 0
	}
	return st.rel.Has(st.view, st.idx, e.key(st))
}

func (e *executor) key(st *step) Tuple {
	key := make(Tuple, len(st.key))
	for i, a := range st.key {
		if a.kind == argConst {
			key[i] = a.val
		} else {
			key[i] = e.env[a.slot]
		}
	}
	return key
}

func (e *executor) consistent(st *step, t Tuple) bool {
	for _, c := range st.checks {
		if !t[c.col].Equal(e.env[c.slot]) {
			return false
		}
	}
	return true
}

// assign binds or compares the outputs of a Match or Let.
func (e *executor) assign(st *step, vals []Value) bool {
	for i, s := range st.lit.outs {
		switch {
		case s < 0:
		case st.outFresh[i]:
			e.env[s] = vals[i]
		case !e.env[s].Equal(vals[i]):
			return false
		}
	}
	return true
}

func (e *executor) release(st *step) {
	for i, s := range st.lit.outs {
		if s >= 0 && st.outFresh[i] {
			e.env[s] = nil
		}
	}
}

func (e *executor) values(slots []int) []Value {
	out := make([]Value, len(slots))
	for i, s := range slots {
		out[i] = e.env[s]
	}
	return out
}

func (e *executor) emitHead() {
	h := e.rule.head
	t := make(Tuple, len(h.args))
	for i, a := range h.args {
		if a.kind == argConst {
			t[i] = a.val
		} else {
			t[i] = e.env[a.slot]
		}
	}
	if !e.emit(t) {
		e.stopped = true
	}
}
