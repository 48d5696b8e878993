package rho

import (
	"github.com/hashicorp/go-hclog"

	"github.com/gitrdm/rhokando/pkg/nominal"
)

// Option configures the parser and the generator. Options that only make
// sense for one of them are ignored by the other.
type Option func(*options)

type options struct {
	alloc    *nominal.Allocator
	env      []nominal.Var
	procVars []nominal.Var
	logger   hclog.Logger
}

// WithAllocator draws fresh variables from a. Terms that will be combined
// with terms from elsewhere in the same run must share one allocator.
func WithAllocator(a *nominal.Allocator) Option {
	return func(o *options) { o.alloc = a }
}

// WithProcVars gives the generator a pool of process variables to use as
// depth-0 processes next to 0.
func WithProcVars(vars ...nominal.Var) Option {
	return func(o *options) { o.procVars = append(o.procVars, vars...) }
}

// WithLogger sets the logger used for generator warnings.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.alloc == nil {
		o.alloc = nominal.NewAllocator()
	}
	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}
	o.alloc.Reserve(o.env...)
	o.alloc.Reserve(o.procVars...)
	return o
}
