package rhocalc

import (
	"github.com/gitrdm/rhokando/pkg/datalog"
	"github.com/gitrdm/rhokando/pkg/nominal"
	"github.com/gitrdm/rhokando/pkg/rho"
)

type values = []datalog.Value

func matchPar(in datalog.Value) (values, bool) {
	p, ok := in.(*rho.PPar)
	if !ok {
		return nil, false
	}
	return values{p.Left(), p.Right()}, true
}

func matchOutput(in datalog.Value) (values, bool) {
	p, ok := in.(*rho.POutput)
	if !ok {
		return nil, false
	}
	return values{p.Chan(), p.Payload()}, true
}

func matchDrop(in datalog.Value) (values, bool) {
	p, ok := in.(*rho.PDrop)
	if !ok {
		return nil, false
	}
	return values{p.Name()}, true
}

func matchQuote(in datalog.Value) (values, bool) {
	n, ok := in.(*rho.NQuote)
	if !ok {
		return nil, false
	}
	return values{n.Proc()}, true
}

// matchInput opens an input's scope and yields the channel, the opened body
// and the opening variable as a name. The opener memoises openings, so the
// same input always opens with the same variable within a run.
func matchInput(open *nominal.Opener) datalog.MatchFunc {
	return func(in datalog.Value) (values, bool) {
		p, ok := in.(*rho.PInput)
		if !ok {
			return nil, false
		}
		b, body := p.Scope().Unbind(open)
		return values{p.Chan(), body, rho.NewNVar(b.Var())}, true
	}
}

func letPar(ins values) datalog.Value {
	return rho.NewPPar(ins[0].(rho.Proc), ins[1].(rho.Proc))
}

func letOutput(ins values) datalog.Value {
	return rho.NewPOutput(ins[0].(rho.Name), ins[1].(rho.Proc))
}

// letInput rebinds the opening variable ins[1] over the body ins[2].
func letInput(ins values) datalog.Value {
	x := ins[1].(*rho.NVar).Var()
	return rho.NewPInputBind(ins[0].(rho.Name), x, ins[2].(rho.Proc))
}

func letDrop(ins values) datalog.Value {
	return rho.NewPDrop(ins[0].(rho.Name))
}

func letQuote(ins values) datalog.Value {
	return rho.NewNQuote(ins[0].(rho.Proc))
}

// letComm substitutes the quoted payload for the received name.
func letComm(ins values) datalog.Value {
	body := ins[0].(rho.Proc)
	x := ins[1].(*rho.NVar).Var()
	q := ins[2].(rho.Proc)
	return body.SubstName(x, rho.NewNQuote(q))
}

// freshIn holds when the opening variable ins[0] is not free in ins[1].
func freshIn(ins values) bool {
	x := ins[0].(*rho.NVar).Var()
	return !rho.IsFreeIn(x, ins[1].(rho.Term))
}
