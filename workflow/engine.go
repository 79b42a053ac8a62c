package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/resilience"
)

type stepResult[S any] struct {
	step  string
	patch Patch[S]
}

// Run executes the graph for data and returns the final state, or a
// *RunError carrying the first recorded error.
//
// Steps run in waves. A step is ready when every predecessor has completed
// and every incoming edge guard passes. Ready steps run concurrently and
// their patches are applied in completion order once the whole wave has
// finished. Once an error is recorded no further step starts.
//
// The run is bounded by the graph's run timeout. When it passes, Run
// returns promptly with a Timeout error even if a step ignores
// cancellation.
func (g *Graph[S]) Run(ctx context.Context, correlationID string, data S) (*State[S], error) {
	st := &State[S]{CorrelationID: correlationID, Data: data}
	ctx = observe.WithCorrelationID(ctx, correlationID)

	timeout := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: g.opts.runTimeout})
	err := timeout.Execute(ctx, func(ctx context.Context) error {
		return g.walk(ctx, st)
	})
	if err == nil {
		return st, nil
	}

	var runErr *RunError
	if errors.As(err, &runErr) {
		return nil, runErr
	}
	if errors.Is(err, resilience.ErrTimeout) {
		err = fmt.Errorf("%w: %s exceeded %s", resilience.ErrTimeout, g.name, g.opts.runTimeout)
	}
	return nil, &RunError{Workflow: g.name, CorrelationID: correlationID, Err: err}
}

func (g *Graph[S]) walk(ctx context.Context, st *State[S]) error {
	done := make(map[string]bool, len(g.order))
	started := make(map[string]bool, len(g.order))

	wave := []string{g.entry}
	for len(wave) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, name := range wave {
			started[name] = true
		}

		for _, r := range g.runWave(ctx, st, wave) {
			r.patch.applyTo(st, r.step)
			done[r.step] = true
			st.Completed = append(st.Completed, r.step)
		}
		if st.Err != nil {
			return &RunError{
				Workflow:      g.name,
				CorrelationID: st.CorrelationID,
				Step:          st.FailedStep,
				Completed:     slices.Clone(st.Completed),
				Err:           st.Err,
			}
		}
		wave = g.ready(st, done, started)
	}

	if len(done) != len(g.order) {
		return &RunError{
			Workflow:      g.name,
			CorrelationID: st.CorrelationID,
			Completed:     slices.Clone(st.Completed),
			Err:           ErrIncomplete,
		}
	}
	return nil
}

// ready returns the not-yet-started steps whose predecessors are all done
// and whose incoming guards pass, in declaration order.
func (g *Graph[S]) ready(st *State[S], done, started map[string]bool) []string {
	var next []string
	for _, name := range g.order {
		if started[name] {
			continue
		}
		ins := g.in[name]
		ok := len(ins) > 0
		for _, in := range ins {
			for _, from := range in.from {
				if !done[from] {
					ok = false
				}
			}
			if !in.edge.guard(st.Err) {
				ok = false
			}
		}
		if ok {
			next = append(next, name)
		}
	}
	return next
}

// runWave runs the steps concurrently and returns their results in
// completion order. A failing step does not cancel its siblings.
func (g *Graph[S]) runWave(ctx context.Context, st *State[S], wave []string) []stepResult[S] {
	results := make(chan stepResult[S], len(wave))
	var wg sync.WaitGroup
	for _, name := range wave {
		wg.Go(func() {
			results <- stepResult[S]{step: name, patch: g.runStep(ctx, st, name)}
		})
	}
	wg.Wait()
	close(results)

	out := make([]stepResult[S], 0, len(wave))
	for r := range results {
		out = append(out, r)
	}
	return out
}

func (g *Graph[S]) runStep(ctx context.Context, st *State[S], name string) Patch[S] {
	var p Patch[S]
	_ = g.opts.middleware.Run(ctx, observe.WorkflowStep(g.name, name), func(ctx context.Context) error {
		p = g.call(ctx, st, name)
		return p.err
	})
	return p
}

func (g *Graph[S]) call(ctx context.Context, st *State[S], name string) (p Patch[S]) {
	defer func() {
		if r := recover(); r != nil {
			p = Fail[S](fmt.Errorf("%w: %s: %v", ErrStepPanic, name, r))
		}
	}()
	return g.steps[name](ctx, st)
}
