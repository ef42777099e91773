package authservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/usersvc"
)

type Middleware func(Service) Service

// LoggingMiddleware never logs passwords or tokens.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Signup(ctx context.Context, email, password string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Signup", "email", email, "user_id", s.UserID, "err", err)
	}()
	return mw.next.Signup(ctx, email, password)
}

func (mw loggingMiddleware) Signin(ctx context.Context, email, password string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Signin", "email", email, "user_id", s.UserID, "err", err)
	}()
	return mw.next.Signin(ctx, email, password)
}

func (mw loggingMiddleware) Authenticate(ctx context.Context, token string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Authenticate", "user_id", u.ID, "err", err)
	}()
	return mw.next.Authenticate(ctx, token)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) Signup(ctx context.Context, email, password string) (authsvc.Session, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "signup").Add(1)
		mw.requestLatency.With("method", "signup").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Signup(ctx, email, password)
}

func (mw instrumentingMiddleware) Signin(ctx context.Context, email, password string) (authsvc.Session, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "signin").Add(1)
		mw.requestLatency.With("method", "signin").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Signin(ctx, email, password)
}

func (mw instrumentingMiddleware) Authenticate(ctx context.Context, token string) (usersvc.User, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "authenticate").Add(1)
		mw.requestLatency.With("method", "authenticate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Authenticate(ctx, token)
}
