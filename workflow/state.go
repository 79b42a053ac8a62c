package workflow

import "context"

// State is the state of one run. S holds the request parameters and one
// slot per step output.
//
// A State is owned by a single run. Steps of a wave only read it; the engine
// applies their patches serially after the wave.
type State[S any] struct {
	// CorrelationID identifies the run across services and logs.
	CorrelationID string

	// Data is the typed request and step output slots.
	Data S

	// Err is the first error recorded by a step.
	Err error

	// FailedStep names the step that recorded Err.
	FailedStep string

	// Completed lists finished steps in completion order.
	Completed []string
}

// Step computes a patch from the current state.
type Step[S any] func(ctx context.Context, st *State[S]) Patch[S]

// Patch is the result of a step: either an update of named slots of S or an
// error.
type Patch[S any] struct {
	apply func(*S)
	err   error
}

// Set returns a patch applying fn to the state data.
func Set[S any](fn func(*S)) Patch[S] {
	return Patch[S]{apply: fn}
}

// Fail returns a patch recording err.
func Fail[S any](err error) Patch[S] {
	return Patch[S]{err: err}
}

// Err returns the error carried by the patch.
func (p Patch[S]) Err() error {
	return p.err
}

func (p Patch[S]) applyTo(st *State[S], step string) {
	if p.err != nil {
		if st.Err == nil {
			st.Err = p.err
			st.FailedStep = step
		}
		return
	}
	if p.apply != nil {
		p.apply(&st.Data)
	}
}
