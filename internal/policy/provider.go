package policy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/insightdb-cli/internal/schema"
)

// Provider produces a validation policy for a set of schemas.
type Provider interface {
	Provide(ctx context.Context, schemas map[string]*schema.TableSchema) (Policy, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, schemas map[string]*schema.TableSchema) (Policy, error)

func (f ProviderFunc) Provide(ctx context.Context, schemas map[string]*schema.TableSchema) (Policy, error) {
	return f(ctx, schemas)
}

// Static always returns p.
func Static(p Policy) Provider {
	return ProviderFunc(func(context.Context, map[string]*schema.TableSchema) (Policy, error) {
		return p, nil
	})
}

// Resolve asks p for a policy, bounded by timeout when positive. Any error,
// timeout or nil provider yields an empty policy; it never fails.
func Resolve(ctx context.Context, p Provider, schemas map[string]*schema.TableSchema, timeout time.Duration, logger *zap.Logger) Policy {
	if p == nil {
		return Empty()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("policy")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		p   Policy
		err error
	}
	done := make(chan result, 1)
	go func() {
		pol, err := p.Provide(ctx, schemas)
		done <- result{pol, err}
	}()

	select {
	case <-ctx.Done():
		logger.Warn("policy provider timed out, using empty policy", zap.Error(ctx.Err()))
		return Empty()
	case r := <-done:
		if r.err != nil {
			logger.Warn("policy provider failed, using empty policy", zap.Error(r.err))
			return Empty()
		}
		if r.p == nil {
			return Empty()
		}
		logger.Debug("policy resolved", zap.Int("tables", len(r.p)), zap.Int("rules", r.p.RuleCount()))
		return r.p
	}
}
