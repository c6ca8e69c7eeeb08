package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewprep/ai/internal/metrics"
	"interviewprep/ai/internal/models"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 60 * time.Second

// FailureKind classifies why a gateway call produced no text.
type FailureKind string

const (
	FailureTimeout    FailureKind = "timeout"
	FailureConnection FailureKind = "connection_error"
	FailureProvider   FailureKind = "provider_error"
)

// Failure is returned by Gateway.Call instead of text. Model failures are never encoded as
// text content.
type Failure struct {
	Kind   FailureKind
	Stage  models.Stage
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", f.Stage, f.Kind, f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Gateway makes one bounded model call per stage. It does not retry.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewGateway(provider Provider, timeout time.Duration, logger *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{provider: provider, timeout: timeout, logger: logger}
}

// ProviderName reports the configured provider.
func (g *Gateway) ProviderName() string {
	return g.provider.GetProviderName()
}

type callResult struct {
	resp *models.GenerationResponse
	err  error
}

// Call sends prompt to the provider and returns its text, which may be empty. On failure the
// error is a *Failure, unless ctx itself was cancelled, in which case ctx.Err() is returned.
func (g *Gateway) Call(ctx context.Context, stage models.Stage, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	requestID := uuid.NewString()
	start := time.Now()

	// the provider runs in its own goroutine so a client that ignores ctx cannot hold the
	// caller past the timeout
	done := make(chan callResult, 1)
	go func() {
		resp, err := g.provider.GenerateContent(callCtx, prompt, requestID)
		done <- callResult{resp: resp, err: err}
	}()

	var result callResult
	select {
	case result = <-done:
	case <-callCtx.Done():
		result = callResult{err: callCtx.Err()}
	}
	elapsed := time.Since(start)

	if result.err == nil && result.resp == nil {
		result.err = &ProviderError{Provider: g.provider.GetProviderName(), Code: ErrCodeInvalidInput, Message: "no response returned"}
	}

	if result.err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		failure := classify(stage, result.err)
		metrics.ObserveModelCall(string(stage), string(failure.Kind), elapsed)
		g.logger.Warn("Model call failed",
			zap.String("stage", string(stage)),
			zap.String("request_id", requestID),
			zap.String("provider", g.provider.GetProviderName()),
			zap.String("kind", string(failure.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(result.err),
		)
		return "", failure
	}

	metrics.ObserveModelCall(string(stage), "ok", elapsed)
	g.logger.Debug("Model call completed",
		zap.String("stage", string(stage)),
		zap.String("request_id", requestID),
		zap.Int("chars", len(result.resp.Content)),
		zap.Duration("elapsed", elapsed),
	)
	return result.resp.Content, nil
}

func classify(stage models.Stage, err error) *Failure {
	failure := &Failure{Kind: FailureProvider, Stage: stage, Detail: err.Error(), Err: err}

	var provErr *ProviderError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		failure.Kind = FailureTimeout
		failure.Detail = "model call timed out"
	case errors.As(err, &provErr) && provErr.Code == ErrCodeTimeout:
		failure.Kind = FailureTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			failure.Kind = FailureTimeout
		} else {
			failure.Kind = FailureConnection
		}
	case errors.As(err, &provErr) && provErr.Code == ErrCodeConnection:
		failure.Kind = FailureConnection
	}
	return failure
}
