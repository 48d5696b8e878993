package rho

import (
	"strings"

	"github.com/gitrdm/rhokando/pkg/nominal"
)

// Print renders t in the concrete syntax accepted by ParseProc/ParseName:
//
//	0   *n   n!(p)   for(n->x){p}   p|q   @(p)
//
// Binder names are chosen so that re-parsing the output yields an
// alpha-equivalent term: a binder never reuses the display name of a free
// variable of its body or of an enclosing binder.
func Print(t Term) string {
	pr := &printer{}
	switch x := t.(type) {
	case Proc:
		pr.proc(x, false)
	case Name:
		pr.name(x)
	}
	return pr.sb.String()
}

type printer struct {
	sb      strings.Builder
	binders []string
}

func (pr *printer) proc(p Proc, nested bool) {
	switch x := p.(type) {
	case *PZero:
		pr.sb.WriteString("0")
	case *PVar:
		pr.variable(x.v)
	case *PDrop:
		pr.sb.WriteString("*")
		pr.name(x.n)
	case *POutput:
		pr.name(x.n)
		pr.sb.WriteString("!(")
		pr.proc(x.p, false)
		pr.sb.WriteString(")")
	case *PInput:
		pr.sb.WriteString("for(")
		pr.name(x.n)
		pr.sb.WriteString("->")
		label := pr.binderName(x.s)
		pr.sb.WriteString(label)
		pr.sb.WriteString("){")
		pr.binders = append(pr.binders, label)
		pr.proc(x.s.Body(), false)
		pr.binders = pr.binders[:len(pr.binders)-1]
		pr.sb.WriteString("}")
	case *PPar:
		if nested {
			pr.sb.WriteString("(")
		}
		pr.proc(x.l, false)
		pr.sb.WriteString(" | ")
		pr.proc(x.r, true)
		if nested {
			pr.sb.WriteString(")")
		}
	}
}

func (pr *printer) name(n Name) {
	switch x := n.(type) {
	case *NVar:
		pr.variable(x.v)
	case *NQuote:
		pr.sb.WriteString("@(")
		pr.proc(x.p, false)
		pr.sb.WriteString(")")
	}
}

func (pr *printer) variable(v nominal.Var) {
	if v.IsBound() {
		if i := len(pr.binders) - 1 - v.Index(); i >= 0 {
			pr.sb.WriteString(pr.binders[i])
			return
		}
	}
	pr.sb.WriteString(v.String())
}

// binderName picks the label printed for a scope's binder.
func (pr *printer) binderName(s Scope) string {
	label := s.Hint()
	if label == "" || label == "for" {
		label = "x"
	}
	free := nominal.NewVarSet()
	s.FreeVarsInto(free)
	for free.HasName(label) || pr.shadows(label) {
		label += "'"
	}
	return label
}

func (pr *printer) shadows(label string) bool {
	for _, b := range pr.binders {
		if b == label {
			return true
		}
	}
	return false
}
