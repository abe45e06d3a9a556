// Package resource holds a stateful value whose creation may fail and
// must be retried, serializing re-creation so that at most one creator
// runs at any instant while concurrent callers wait for its result.
package resource

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/issac1998/go-kafka/internal/errors"
	"github.com/issac1998/go-kafka/internal/logging"
)

// Decision is the error handler's verdict on a failed operation.
type Decision int

const (
	// Ignore returns without action; the caller retries on the same value.
	Ignore Decision = iota
	// Recreate builds a successor; disposing of the current value is
	// left to the handler.
	Recreate
	// Escalate refuses recovery; the error surfaces to the caller.
	Escalate
)

// State machine values for the st field.
const (
	stateIdle int32 = iota
	stateCreating
)

// Creator builds a new value of the resource.
type Creator[R any] func(ctx context.Context) (R, error)

// Handler inspects an operation failure against the current value and
// decides the follow-up. The handler's decision is authoritative; the
// resource does not classify errors itself.
type Handler[R any] func(value R, err error) Decision

// HeartbeatFunc supervises a created value until it returns a decision.
type HeartbeatFunc[R any] func(ctx context.Context, value R) Decision

// Resource supervises one recoverable value.
type Resource[R any] struct {
	creator   Creator[R]
	handler   Handler[R]
	heartbeat HeartbeatFunc[R]
	logger    *logging.Logger

	st atomic.Int32

	mu         sync.Mutex
	value      R
	generation uint64
	lastErr    error
	notify     chan struct{}
}

// Option configures a Resource.
type Option[R any] func(*Resource[R])

// WithHeartbeat starts fn against each created value. A Recreate
// decision builds a successor, Escalate is logged, Ignore does nothing.
func WithHeartbeat[R any](fn HeartbeatFunc[R]) Option[R] {
	return func(r *Resource[R]) { r.heartbeat = fn }
}

// WithLogger routes recovery events to the given logger.
func WithLogger[R any](logger *logging.Logger) Option[R] {
	return func(r *Resource[R]) { r.logger = logger }
}

// New builds a resource; no value exists until the first Create.
func New[R any](creator Creator[R], handler Handler[R], opts ...Option[R]) *Resource[R] {
	r := &Resource[R]{
		creator: creator,
		handler: handler,
		notify:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.GetLogger().WithComponent("resource")
	}
	return r
}

// Create builds a successor value. The CAS winner runs the creator and
// publishes the result; losers suspend until the winner's one-shot
// notification and then re-read the published value.
//
// The notification channel must be captured before the CAS attempt,
// and the winner must return the state machine to idle inside the
// publish section. A loser that captured after the publish would hold
// the successor channel, which the finished winner never closes.
func (r *Resource[R]) Create(ctx context.Context) (R, error) {
	r.mu.Lock()
	notify := r.notify
	before := r.generation
	r.mu.Unlock()

	if r.st.CompareAndSwap(stateIdle, stateCreating) {
		value, err := r.creator(ctx)

		r.mu.Lock()
		if err == nil {
			r.value = value
			r.generation++
			r.lastErr = nil
		} else {
			r.lastErr = err
		}
		won := r.notify
		r.notify = make(chan struct{})
		r.st.Store(stateIdle)
		r.mu.Unlock()

		close(won)

		if err != nil {
			var zero R
			return zero, err
		}
		if r.heartbeat != nil {
			go r.superviseValue(value)
		}
		return value, nil
	}

	// A creation is already in flight; wait for its publication. The
	// captured channel predates that creation's publish, so the winner
	// is guaranteed to close it.
	select {
	case <-notify:
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation > before {
		return r.value, nil
	}
	var zero R
	if r.lastErr != nil {
		return zero, r.lastErr
	}
	return r.value, nil
}

// Current returns the published value, creating it if none exists yet.
func (r *Resource[R]) Current(ctx context.Context) (R, error) {
	r.mu.Lock()
	if r.generation > 0 {
		value := r.value
		r.mu.Unlock()
		return value, nil
	}
	r.mu.Unlock()
	return r.Create(ctx)
}

// Generation reports how many values have been published.
func (r *Resource[R]) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Recover applies the handler's decision for err.
func (r *Resource[R]) Recover(ctx context.Context, err error) error {
	r.mu.Lock()
	value := r.value
	r.mu.Unlock()

	switch r.handler(value, err) {
	case Ignore:
		return nil
	case Recreate:
		if _, cerr := r.Create(ctx); cerr != nil {
			return cerr
		}
		return nil
	default:
		return errors.NewTypedError(errors.EscalatedError, errors.RecoveryEscalatedMsg, err)
	}
}

func (r *Resource[R]) superviseValue(value R) {
	decision := r.heartbeat(context.Background(), value)
	switch decision {
	case Recreate:
		r.logger.Info("Heartbeat requested recreation")
		if _, err := r.Create(context.Background()); err != nil {
			r.logger.ErrorContext("Heartbeat recreation failed", err)
		}
	case Escalate:
		r.logger.Warn("Heartbeat escalated; resource left as-is until next operation")
	}
}

// Peek returns the published value without triggering creation.
func (r *Resource[R]) Peek() (R, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.generation > 0
}

// Inject wraps op so that each call reads the current value, invokes
// op, and on error consults Recover before retrying from the re-read
// value. Retries are unbounded; termination relies on the handler
// eventually returning Escalate.
func Inject[R, A, B any](r *Resource[R], op func(ctx context.Context, value R, arg A) (B, error)) func(context.Context, A) (B, error) {
	return func(ctx context.Context, arg A) (B, error) {
		var zero B
		for {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			value, err := r.Current(ctx)
			if err != nil {
				if rerr := r.Recover(ctx, err); rerr != nil {
					return zero, rerr
				}
				continue
			}
			out, err := op(ctx, value, arg)
			if err == nil {
				return out, nil
			}
			if rerr := r.Recover(ctx, err); rerr != nil {
				return zero, rerr
			}
		}
	}
}
