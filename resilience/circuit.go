package resilience

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/toolgate/store"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through freely.
	StateClosed State = iota
	// StateOpen means calls are rejected until the cool-down elapses.
	StateOpen
	// StateHalfOpen means a single trial call decides recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ParseState parses the output of State.String.
func ParseState(s string) (State, error) {
	switch s {
	case "closed":
		return StateClosed, nil
	case "open":
		return StateOpen, nil
	case "half_open":
		return StateHalfOpen, nil
	default:
		return StateClosed, fmt.Errorf("resilience: unknown breaker state %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BreakerConfig configures the distributed circuit breaker.
type BreakerConfig struct {
	// FailThreshold is the number of failures within Window that opens the
	// circuit.
	// Default: 5
	FailThreshold int

	// Window bounds how long failures are counted.
	// Default: 60 seconds
	Window time.Duration

	// OpenDuration is how long the circuit rejects calls after opening.
	// Default: 60 seconds
	OpenDuration time.Duration

	// TrialTimeout is how long a half-open trial claim is held. A trial that
	// never reports an outcome frees the claim after this long. Trials run
	// by an Invoker hold the claim for at least their call timeout.
	// Default: OpenDuration
	TrialTimeout time.Duration

	// KeyPrefix namespaces breaker keys in the store.
	// Default: "cb:"
	KeyPrefix string

	// Now is the clock.
	// Default: time.Now
	Now func() time.Time

	// OnStateChange is called on every transition this process performs.
	OnStateChange func(dependency string, from, to State)

	// OnStoreError is called when bookkeeping against the store fails. The
	// breaker keeps permitting traffic in that case.
	OnStoreError func(dependency, op string, err error)
}

// Decision is the result of Breaker.Allow.
type Decision struct {
	// Permitted reports whether the call may proceed.
	Permitted bool

	// State is the state observed while deciding.
	State State

	// Trial is set for the single call admitted in half-open.
	Trial bool

	// Degraded is set when the store failed and the call was permitted
	// without consulting breaker state.
	Degraded bool

	// Err is the store error behind a degraded decision.
	Err error
}

// Snapshot is a read-only view of a breaker record.
type Snapshot struct {
	Dependency string    `json:"dependency"`
	State      State     `json:"state"`
	OpenUntil  time.Time `json:"open_until,omitzero"`
}

// Breaker is a per-dependency circuit breaker whose state lives in a shared
// store, so every orchestrator replica observes the same circuit.
//
// Record layout per dependency:
//
//	{prefix}{dep}:state        "open|<openUntilMs>|<epoch>" or "half_open|..."; absent means closed
//	{prefix}{dep}:fail_count   failure counter, expires after Window
//	{prefix}{dep}:trial:<epoch> trial claim, at most one holder per open epoch
//
// The trial is claimed with SetIfAbsent, so among concurrent callers that
// observe an expired open circuit exactly one is admitted.
type Breaker struct {
	config BreakerConfig
	store  store.Store
}

// NewBreaker creates a breaker on s.
func NewBreaker(s store.Store, config BreakerConfig) *Breaker {
	if config.FailThreshold <= 0 {
		config.FailThreshold = 5
	}
	if config.Window <= 0 {
		config.Window = 60 * time.Second
	}
	if config.OpenDuration <= 0 {
		config.OpenDuration = 60 * time.Second
	}
	if config.TrialTimeout <= 0 {
		config.TrialTimeout = config.OpenDuration
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "cb:"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Breaker{config: config, store: s}
}

// Config returns the breaker configuration.
func (b *Breaker) Config() BreakerConfig {
	return b.config
}

type record struct {
	state     State
	openUntil int64 // unix milliseconds
	epoch     int64
}

func (r record) encode() string {
	return r.state.String() + "|" + strconv.FormatInt(r.openUntil, 10) + "|" + strconv.FormatInt(r.epoch, 10)
}

var errCorruptRecord = errors.New("resilience: corrupt breaker record")

func decodeRecord(v string) (record, error) {
	parts := strings.Split(v, "|")
	if len(parts) != 3 {
		return record{}, fmt.Errorf("%w: %q", errCorruptRecord, v)
	}
	state, err := ParseState(parts[0])
	if err != nil || state == StateClosed {
		return record{}, fmt.Errorf("%w: %q", errCorruptRecord, v)
	}
	until, err1 := strconv.ParseInt(parts[1], 10, 64)
	epoch, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		return record{}, fmt.Errorf("%w: %q", errCorruptRecord, v)
	}
	return record{state: state, openUntil: until, epoch: epoch}, nil
}

func (b *Breaker) stateKey(dep string) string {
	return b.config.KeyPrefix + dep + ":state"
}

func (b *Breaker) failKey(dep string) string {
	return b.config.KeyPrefix + dep + ":fail_count"
}

func (b *Breaker) trialKey(dep string, epoch int64) string {
	return b.config.KeyPrefix + dep + ":trial:" + strconv.FormatInt(epoch, 10)
}

func (b *Breaker) load(ctx context.Context, dep string) (record, error) {
	v, ok, err := b.store.Get(ctx, b.stateKey(dep))
	if err != nil {
		return record{}, err
	}
	if !ok {
		return record{state: StateClosed}, nil
	}
	return decodeRecord(v)
}

func (b *Breaker) storeError(dep, op string, err error) {
	if b.config.OnStoreError != nil {
		b.config.OnStoreError(dep, op, err)
	}
}

func (b *Breaker) changed(dep string, from, to State) {
	if from != to && b.config.OnStateChange != nil {
		b.config.OnStateChange(dep, from, to)
	}
}

// Allow decides whether a call to dep may proceed. It never fails: when the
// store cannot be read the call is permitted and the decision is marked
// Degraded.
func (b *Breaker) Allow(ctx context.Context, dep string) Decision {
	return b.allow(ctx, dep, 0)
}

// allow is Allow with the trial claim held for at least hold, so a trial
// call bounded by hold reports before another trial can be claimed.
func (b *Breaker) allow(ctx context.Context, dep string, hold time.Duration) Decision {
	rec, err := b.load(ctx, dep)
	if err != nil {
		b.storeError(dep, "allow", err)
		return Decision{Permitted: true, State: StateClosed, Degraded: true, Err: err}
	}

	switch rec.state {
	case StateOpen:
		if b.config.Now().UnixMilli() < rec.openUntil {
			return Decision{State: StateOpen}
		}
		return b.claimTrial(ctx, dep, rec, hold)
	case StateHalfOpen:
		return b.claimTrial(ctx, dep, rec, hold)
	default:
		return Decision{Permitted: true, State: StateClosed}
	}
}

func (b *Breaker) claimTrial(ctx context.Context, dep string, rec record, hold time.Duration) Decision {
	ttl := max(b.config.TrialTimeout, hold)
	won, err := b.store.SetIfAbsent(ctx, b.trialKey(dep, rec.epoch), "1", ttl)
	if err != nil {
		b.storeError(dep, "claim_trial", err)
		return Decision{Permitted: true, State: rec.state, Degraded: true, Err: err}
	}
	if !won {
		return Decision{State: StateHalfOpen}
	}

	if rec.state == StateOpen {
		half := record{state: StateHalfOpen, openUntil: rec.openUntil, epoch: rec.epoch}
		if err := b.store.Set(ctx, b.stateKey(dep), half.encode(), 0); err != nil {
			b.storeError(dep, "half_open", err)
		} else {
			b.changed(dep, StateOpen, StateHalfOpen)
		}
	}
	return Decision{Permitted: true, State: StateHalfOpen, Trial: true}
}

// OnSuccess records a successful call and closes the circuit.
func (b *Breaker) OnSuccess(ctx context.Context, dep string) State {
	prev := StateClosed
	if rec, err := b.load(ctx, dep); err == nil {
		prev = rec.state
	}

	if err := b.store.Delete(ctx, b.stateKey(dep), b.failKey(dep)); err != nil {
		b.storeError(dep, "success", err)
		return prev
	}
	b.changed(dep, prev, StateClosed)
	return StateClosed
}

// OnFailure records a failed call and returns the resulting state. A failed
// half-open trial reopens the circuit immediately. Failures reported while
// the circuit is already open leave it untouched.
func (b *Breaker) OnFailure(ctx context.Context, dep string) State {
	rec, err := b.load(ctx, dep)
	if err != nil {
		b.storeError(dep, "failure", err)
		return StateClosed
	}

	switch rec.state {
	case StateHalfOpen:
		return b.trip(ctx, dep, StateHalfOpen)
	case StateOpen:
		return StateOpen
	}

	n, err := b.store.IncrWithExpiry(ctx, b.failKey(dep), b.config.Window)
	if err != nil {
		b.storeError(dep, "failure", err)
		return StateClosed
	}
	if n >= int64(b.config.FailThreshold) {
		return b.trip(ctx, dep, StateClosed)
	}
	return StateClosed
}

// trip opens the circuit with a fresh epoch.
func (b *Breaker) trip(ctx context.Context, dep string, from State) State {
	now := b.config.Now()
	rec := record{
		state:     StateOpen,
		openUntil: now.Add(b.config.OpenDuration).UnixMilli(),
		epoch:     now.UnixNano(),
	}
	if err := b.store.Set(ctx, b.stateKey(dep), rec.encode(), 0); err != nil {
		b.storeError(dep, "open", err)
		return from
	}
	if err := b.store.Delete(ctx, b.failKey(dep)); err != nil {
		b.storeError(dep, "open", err)
	}
	b.changed(dep, from, StateOpen)
	return StateOpen
}

// State returns the stored state of dep.
func (b *Breaker) State(ctx context.Context, dep string) (State, error) {
	rec, err := b.load(ctx, dep)
	if err != nil {
		return StateClosed, err
	}
	return rec.state, nil
}

// Inspect returns a snapshot of dep.
func (b *Breaker) Inspect(ctx context.Context, dep string) (Snapshot, error) {
	rec, err := b.load(ctx, dep)
	if err != nil {
		return Snapshot{Dependency: dep}, err
	}
	snap := Snapshot{Dependency: dep, State: rec.state}
	if rec.state != StateClosed {
		snap.OpenUntil = time.UnixMilli(rec.openUntil)
	}
	return snap, nil
}

// Reset forces dep closed.
func (b *Breaker) Reset(ctx context.Context, dep string) error {
	prev, _ := b.State(ctx, dep)
	if err := b.store.Delete(ctx, b.stateKey(dep), b.failKey(dep)); err != nil {
		return err
	}
	b.changed(dep, prev, StateClosed)
	return nil
}
