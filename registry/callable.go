package registry

import (
	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/vlrerr"
)

// CallableRegistry keeps the global callable-program index assigned
// to every direct/continuation-callable program group, and the set
// of pipelines it must be mirrored into. Per the design note on
// globally shared callable-program indices, a callable created after
// a pipeline's Link call can no longer be registered against that
// pipeline, so RegisterPipeline and RegisterCallable must be called
// in the order: create every pipeline first, register every
// callable, then Link each pipeline.
type CallableRegistry struct {
	pipelines []rtx.Pipeline
	callables []registeredCallable
	linked    bool
}

type registeredCallable struct {
	module            rtx.Module
	directEntry       string
	continuationEntry string
	groups            []rtx.ProgramGroup // parallel to pipelines
}

func newCallableRegistry() *CallableRegistry {
	return &CallableRegistry{}
}

// RegisterPipeline adds p to the set every future callable is
// registered into, and retroactively registers every
// already-registered callable into p so its index stays in sync with
// the other pipelines.
func (r *CallableRegistry) RegisterPipeline(p rtx.Pipeline) error {
	for i := range r.callables {
		c := &r.callables[i]
		g, err := p.NewCallableProgramGroup(c.module, c.directEntry, c.continuationEntry)
		if err != nil {
			return err
		}
		c.groups = append(c.groups, g)
	}
	r.pipelines = append(r.pipelines, p)
	return nil
}

// RegisterCallable creates a new callable program group with entry
// points directEntry/continuationEntry (either may be empty) in
// module, against every registered pipeline, and returns its global
// index. It must not be called after Link.
func (r *CallableRegistry) RegisterCallable(module rtx.Module, directEntry, continuationEntry string) (int, error) {
	if r.linked {
		return 0, vlrerr.New(vlrerr.InvalidArgument, "registry: cannot register a callable program after pipeline linking has begun")
	}
	c := registeredCallable{module: module, directEntry: directEntry, continuationEntry: continuationEntry}
	for _, p := range r.pipelines {
		g, err := p.NewCallableProgramGroup(module, directEntry, continuationEntry)
		if err != nil {
			return 0, err
		}
		c.groups = append(c.groups, g)
	}
	index := len(r.callables)
	r.callables = append(r.callables, c)
	return index, nil
}

// Link marks the registry as linked: every pipeline has had its
// callable-program list finalized and no further callable may be
// registered.
func (r *CallableRegistry) Link() { r.linked = true }

// ProgramGroup returns the program group for callable index at
// pipeline index pipelineIdx (the order pipelines were registered
// in), used when assembling an SBT record that invokes a callable.
func (r *CallableRegistry) ProgramGroup(index, pipelineIdx int) rtx.ProgramGroup {
	return r.callables[index].groups[pipelineIdx]
}
