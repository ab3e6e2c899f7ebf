// Package retry runs remote calls with a bounded number of attempts and
// pure exponential backoff between them.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	DefaultMaxAttempts = 2
	DefaultBaseDelay   = 1 * time.Second
)

// Policy holds retry settings.
// MaxAttempts counts every invocation, the first one included. The wait
// before attempt i+1 is BaseDelay * 2^(i-1) with no jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	IsRetryable func(error) bool
	// OnRetry is called before each backoff wait
	OnRetry func(op string, attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns the policy used for every remote call of the actor
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		IsRetryable: IsRetryable,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.IsRetryable == nil {
		p.IsRetryable = IsRetryable
	}
	return p
}

// Executor applies a Policy to operations
type Executor struct {
	policy Policy
	logger *zap.Logger
}

// NewExecutor creates a new Executor
func NewExecutor(policy Policy, logger *zap.Logger) *Executor {
	if policy.MaxAttempts <= 0 {
		logger.Info("Using default max attempts", zap.Int("maxAttempts", DefaultMaxAttempts))
	}
	if policy.BaseDelay <= 0 {
		logger.Info("Using default base delay", zap.Duration("baseDelay", DefaultBaseDelay))
	}
	return &Executor{
		policy: policy.withDefaults(),
		logger: logger,
	}
}

// Policy returns the effective policy
func (e *Executor) Policy() Policy {
	return e.policy
}

// Run is Do for operations without a result
func (e *Executor) Run(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := Do(ctx, e, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do invokes fn until it succeeds, the attempts are exhausted, the error is
// not retryable or ctx is done. Errors from a deadline fn derives on its own
// are retried while ctx is alive. It returns the last error seen. A
// cancellation during the backoff wait returns the context's error.
func Do[T any](ctx context.Context, e *Executor, op string, fn func(context.Context) (T, error)) (T, error) {
	p := e.policy
	attempt := 0

	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil || !p.IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(newBackOff(p.BaseDelay)),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			e.logger.Warn("Retrying after error",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", p.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err))
			if p.OnRetry != nil {
				p.OnRetry(op, attempt, delay, err)
			}
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		e.logger.Debug("Giving up",
			zap.String("op", op),
			zap.Int("attempts", attempt),
			zap.Error(err))
	}
	return result, err
}

// newBackOff builds a jitter-free doubling schedule starting at base
func newBackOff(base time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64 / 4),
	}
	b.Reset()
	return b
}

// Delay returns the wait before attempt+1 for a failed attempt (1-based)
func Delay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return base << (attempt - 1)
}

// errPermanent marks errors that must not be retried
type errPermanent struct{ err error }

func (e *errPermanent) Error() string { return e.err.Error() }
func (e *errPermanent) Unwrap() error { return e.err }

// Permanent wraps err so the executor returns it without further attempts
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &errPermanent{err: err}
}

// IsRetryable classifies errors of remote calls. Errors marked Permanent and
// gRPC statuses that describe a bad request are final; everything else is
// worth another attempt. A per-call timeout is retryable: Do stops on
// context errors only once its own ctx is done.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var p *errPermanent
	if errors.As(err, &p) {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch s.Code() {
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated, codes.NotFound, codes.Unimplemented, codes.Canceled:
		return false
	default:
		return true
	}
}
