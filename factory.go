package hyni

import (
	"context"

	"github.com/hynigo/hyni/internal/session"
	"github.com/hynigo/hyni/schema"
)

// Factory creates Contexts from a shared Registry, including a scoped
// lookup that stands in for this design's thread-local Context: Go has no
// stable per-goroutine identity to key off, so the caller supplies an
// explicit scope token (see internal/session) carried on a context.Context,
// typically one per worker goroutine.
type Factory struct {
	registry *schema.Registry
	config   ContextConfig
	scoped   *session.Store[*Context]
	creds    CredentialSource
}

// NewFactory creates a Factory over registry, applying config to every
// Context it creates.
func NewFactory(registry *schema.Registry, config ContextConfig) *Factory {
	return &Factory{
		registry: registry,
		config:   config,
		scoped:   session.NewStore[*Context](),
	}
}

// WithCredentialSource attaches a credential store that CreateContext and
// GetScopedContext consult, by provider name, whenever a freshly constructed
// Context has no API key set (see Context.ResolveCredential). It returns f
// so it can be chained onto NewFactory. Passing nil disables resolution.
func (f *Factory) WithCredentialSource(store CredentialSource) *Factory {
	f.creds = store
	return f
}

// CreateContext asks the Registry for provider's SchemaDoc and returns a
// freshly constructed Context. Ownership passes entirely to the caller;
// the Factory retains no reference to it. If a credential source is
// attached (see WithCredentialSource) and the Context has no API key set,
// CreateContext looks up a credential named provider and applies it.
func (f *Factory) CreateContext(provider string) (*Context, error) {
	doc, err := f.registry.Load(provider)
	if err != nil {
		return nil, err
	}
	ctx, err := NewContext(doc, f.config)
	if err != nil {
		return nil, err
	}
	if f.creds != nil {
		if err := ctx.ResolveCredential(f.creds, provider); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// GetScopedContext returns the Context cached for the scope token carried
// on ctx (see session.WithScope) and provider, creating one on first
// access for that (scope, provider) pair. Every call with the same scope
// token and provider observes the same *Context — the Go-idiomatic
// equivalent of "the same thread always observes the same Context object
// for the same provider name". Callers must not share the returned
// pointer across goroutines without external synchronization; it remains
// exclusively owned by whatever logical scope the token represents.
func (f *Factory) GetScopedContext(ctx context.Context, provider string) (*Context, error) {
	token, ok := session.ScopeFromContext(ctx)
	if !ok {
		return nil, newValidationError("scope", "context carries no scope token; call session.WithScope first")
	}
	key := token + "\x00" + provider

	var createErr error
	c, ok := f.scoped.GetOrCreate(key, func() (*Context, bool) {
		created, err := f.CreateContext(provider)
		if err != nil {
			createErr = err
			return nil, false
		}
		return created, true
	})
	if !ok {
		return nil, createErr
	}
	return c, nil
}

// Release discards the scoped Context cached for ctx's scope token and
// provider, if any — the equivalent of "destroyed at thread exit" for an
// explicitly-scoped caller rather than an OS thread.
func (f *Factory) Release(ctx context.Context, provider string) bool {
	token, ok := session.ScopeFromContext(ctx)
	if !ok {
		return false
	}
	return f.scoped.Release(token + "\x00" + provider)
}

// Close discards every scoped Context the Factory is holding — the
// equivalent of "destroyed when the Factory is destroyed".
func (f *Factory) Close() {
	f.scoped.CloseAll(nil)
}
