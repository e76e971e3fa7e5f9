package calendar

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/teemow/tailortalk/internal/schedule"
)

// RateLimited throttles calls to the wrapped backend. Waiting for a token
// honours the caller's deadline.
type RateLimited struct {
	next    Backend
	limiter *rate.Limiter
}

// WithRateLimit allows perSecond calls per second with the given burst.
// A non-positive perSecond disables limiting and returns next unchanged.
func WithRateLimit(next Backend, perSecond float64, burst int) Backend {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// The limiter refuses waits that would outlast the deadline.
		return fmt.Errorf("calendar rate limit: %w", context.DeadlineExceeded)
	}
	return nil
}

// GetBusy implements Backend.
func (r *RateLimited) GetBusy(ctx context.Context, window schedule.TimeRange) ([]schedule.BusyInterval, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.GetBusy(ctx, window)
}

// CreateEvent implements Backend.
func (r *RateLimited) CreateEvent(ctx context.Context, req schedule.BookingRequest) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.next.CreateEvent(ctx, req)
}

// ListEvents implements Backend.
func (r *RateLimited) ListEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.ListEvents(ctx, q)
}
