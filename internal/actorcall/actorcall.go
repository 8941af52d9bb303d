// Package actorcall implements the inter-actor call discipline: every
// cross-actor operation is a fallible asynchronous request, decoded into a
// Result[T, ErrorKind], with no implicit retry inside the wrapper itself.
// Idempotent operations may be retried freely by the caller; non-idempotent
// operations carry a deterministic sequence token so the receiver can detect
// and discard duplicates. A bounded outbound work queue replaces
// fire-and-forget goroutines for operations the caller does not wait on.
package actorcall

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorKind is the taxonomy every actor operation's Result is tagged with.
type ErrorKind int

const (
	Other ErrorKind = iota
	InvalidRequest
	NotYourTurn
	IllegalBet
	InsufficientFunds
	PlayerNotFound
	UserAlreadyInGame
	GameFull
	SeatTaken
	StateConflict
	CanisterCallError
	LedgerError
	LockError
)

func (k ErrorKind) String() string {
	names := map[ErrorKind]string{
		Other:              "Other",
		InvalidRequest:     "InvalidRequest",
		NotYourTurn:        "NotYourTurn",
		IllegalBet:         "IllegalBet",
		InsufficientFunds:  "InsufficientFunds",
		PlayerNotFound:     "PlayerNotFound",
		UserAlreadyInGame:  "UserAlreadyInGame",
		GameFull:           "GameFull",
		SeatTaken:          "SeatTaken",
		StateConflict:      "StateConflict",
		CanisterCallError:  "CanisterCallError",
		LedgerError:        "LedgerError",
		LockError:          "LockError",
	}
	if s, ok := names[k]; ok {
		return s
	}
	return "Unknown"
}

// Retryable reports whether the caller's own retry policy may resend an
// operation that failed with this kind. Game-rule and validation errors are
// never retryable; transport, ledger, and lock contention are.
func (k ErrorKind) Retryable() bool {
	switch k {
	case CanisterCallError, LedgerError, LockError:
		return true
	default:
		return false
	}
}

// ActorError is the application-level error half of a Result[T, ErrorKind].
type ActorError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ActorError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewError constructs an ActorError.
func NewError(kind ErrorKind, detail string) *ActorError {
	return &ActorError{Kind: kind, Detail: detail}
}

// AsActorError unwraps err into an ActorError, if it is one.
func AsActorError(err error) (*ActorError, bool) {
	var ae *ActorError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Call invokes fn and decodes its outcome into (T, error). Transport-level
// failures (fn returning a plain, non-ActorError error, or ctx expiring) are
// wrapped as CanisterCallError; application errors from fn are returned
// as-is. Call never retries on its own — the caller owns retry policy.
func Call[T any](ctx context.Context, log *logrus.Entry, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, NewError(CanisterCallError, fmt.Sprintf("%s: context done before dispatch: %v", op, ctx.Err()))
	default:
	}

	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	if ae, ok := AsActorError(err); ok {
		log.WithFields(logrus.Fields{"op": op, "kind": ae.Kind.String()}).Debug("actor call returned application error")
		return zero, ae
	}

	log.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Warn("actor call transport failure")
	return zero, NewError(CanisterCallError, err.Error())
}

// SequenceGuard deduplicates non-idempotent operations (deposit_to_table,
// join_table) by deterministic sequence token. The zero value is ready to
// use; Seen is safe for concurrent use.
type SequenceGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// Seen records token for the given operation and reports whether it was
// already recorded (a duplicate delivery that should be silently ignored).
func (g *SequenceGuard) Seen(op, token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = make(map[string]struct{})
	}
	key := op + ":" + token
	if _, ok := g.seen[key]; ok {
		return true
	}
	g.seen[key] = struct{}{}
	return false
}

// RetryPolicy governs caller-owned retry of a Retryable ActorError.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultBalancerRetry matches spec's leave_table_for_table_balancing: up to
// 5 attempts to join the destination table.
var DefaultBalancerRetry = RetryPolicy{MaxAttempts: 5, Backoff: 50 * time.Millisecond}

// WithRetry retries fn while it returns a Retryable ActorError, up to
// policy.MaxAttempts. Non-retryable errors and success both return
// immediately. Sleeps are skipped if ctx is cancelled.
func WithRetry[T any](ctx context.Context, log *logrus.Entry, op string, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		ae, ok := AsActorError(err)
		if !ok || !ae.Kind.Retryable() {
			return zero, err
		}
		log.WithFields(logrus.Fields{"op": op, "attempt": attempt, "kind": ae.Kind.String()}).Warn("retryable actor call failed, retrying")
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, NewError(CanisterCallError, fmt.Sprintf("%s: context done during retry: %v", op, ctx.Err()))
		case <-time.After(policy.Backoff):
		}
	}
	return zero, lastErr
}

// WorkItem is one entry in the bounded outbound work queue: a call the
// caller does not wait on, but that must still run with bounded concurrency
// and observable failure instead of a bare `go func(){}()`.
type WorkItem struct {
	Op string
	Do func(context.Context) error
}

// WorkQueue replaces fire-and-forget goroutines with a bounded channel
// drained by a small pool of workers, so an actor cannot accumulate
// unbounded outstanding outbound calls under load.
type WorkQueue struct {
	items  chan WorkItem
	log    *logrus.Entry
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorkQueue starts a work queue with the given channel capacity and
// worker count.
func NewWorkQueue(ctx context.Context, log *logrus.Entry, capacity, workers int) *WorkQueue {
	ctx, cancel := context.WithCancel(ctx)
	q := &WorkQueue{
		items:  make(chan WorkItem, capacity),
		log:    log,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.drain(ctx)
	}
	return q
}

func (q *WorkQueue) drain(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-q.items:
			if !ok {
				return
			}
			if err := item.Do(ctx); err != nil {
				q.log.WithFields(logrus.Fields{"op": item.Op, "error": err.Error()}).Error("deferred outbound call failed")
			}
		}
	}
}

// Enqueue submits work without blocking the caller on its completion.
// Reports false if the queue is full, in which case the caller must decide
// whether to run the work inline or drop it.
func (q *WorkQueue) Enqueue(item WorkItem) bool {
	select {
	case q.items <- item:
		return true
	default:
		return false
	}
}

// Close stops accepting new work and waits for in-flight items to drain.
func (q *WorkQueue) Close() {
	q.cancel()
	close(q.items)
	q.wg.Wait()
}
