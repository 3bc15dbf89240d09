package hyni

import (
	"context"
	"strings"
	"testing"

	"github.com/hynigo/hyni/internal/credstore"
	"github.com/hynigo/hyni/internal/session"
	"github.com/hynigo/hyni/schema"
)

func TestFactory_CreateContext(t *testing.T) {
	f := NewFactory(schema.NewRegistry(), NewContextConfig())
	ctx, err := f.CreateContext("openai")
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	if ctx.Schema().Name() != "openai" {
		t.Errorf("got provider %q", ctx.Schema().Name())
	}
}

func TestFactory_CreateContext_UnknownProvider(t *testing.T) {
	f := NewFactory(schema.NewRegistry(), NewContextConfig())
	if _, err := f.CreateContext("not-a-provider"); err == nil {
		t.Fatal("expected an error for an unregistered provider")
	}
}

func TestFactory_GetScopedContext_RequiresScope(t *testing.T) {
	f := NewFactory(schema.NewRegistry(), NewContextConfig())
	if _, err := f.GetScopedContext(context.Background(), "openai"); err == nil {
		t.Fatal("expected an error when ctx carries no scope token")
	}
}

func TestFactory_GetScopedContext_SameTokenReturnsSamePointer(t *testing.T) {
	f := NewFactory(schema.NewRegistry(), NewContextConfig())
	ctx := session.WithScope(context.Background(), "worker-1")

	a, err := f.GetScopedContext(ctx, "openai")
	if err != nil {
		t.Fatalf("GetScopedContext: %v", err)
	}
	b, err := f.GetScopedContext(ctx, "openai")
	if err != nil {
		t.Fatalf("GetScopedContext: %v", err)
	}
	if a != b {
		t.Error("expected the same scope token and provider to return the same *Context")
	}
}

func TestFactory_GetScopedContext_DifferentTokensGetDifferentContexts(t *testing.T) {
	f := NewFactory(schema.NewRegistry(), NewContextConfig())
	ctx1 := session.WithScope(context.Background(), "worker-1")
	ctx2 := session.WithScope(context.Background(), "worker-2")

	a, _ := f.GetScopedContext(ctx1, "openai")
	b, _ := f.GetScopedContext(ctx2, "openai")
	if a == b {
		t.Error("expected distinct scope tokens to get distinct *Context instances")
	}
}

func TestFactory_Release(t *testing.T) {
	f := NewFactory(schema.NewRegistry(), NewContextConfig())
	ctx := session.WithScope(context.Background(), "worker-1")

	first, _ := f.GetScopedContext(ctx, "openai")
	if !f.Release(ctx, "openai") {
		t.Fatal("expected Release to report that a context was discarded")
	}
	second, _ := f.GetScopedContext(ctx, "openai")
	if first == second {
		t.Error("expected a fresh *Context to be created after Release")
	}
}

func TestFactory_GetScopedContext_DoesNotCacheFailureAndRetries(t *testing.T) {
	f := NewFactory(schema.NewRegistry(), NewContextConfig())
	scoped := session.WithScope(context.Background(), "worker-1")

	if _, err := f.GetScopedContext(scoped, "not-a-provider"); err == nil {
		t.Fatal("expected an error for an unregistered provider")
	}
	// A second call for the same scope+provider must replay the error, not
	// return a cached nil Context with a nil error.
	ctx, err := f.GetScopedContext(scoped, "not-a-provider")
	if err == nil {
		t.Fatal("expected the second call to also report an error")
	}
	if ctx != nil {
		t.Fatal("expected a nil Context alongside the error")
	}
}

func TestFactory_CreateContext_ResolvesCredential(t *testing.T) {
	store := credstore.NewStore()
	if _, err := store.Put("openai", "openai", "sk-test-key", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	f := NewFactory(schema.NewRegistry(), NewContextConfig()).WithCredentialSource(store)
	ctx, err := f.CreateContext("openai")
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	if !ctx.HasAPIKey() {
		t.Fatal("expected the credential store's key to be applied")
	}
}

func TestFactory_CreateContext_ExplicitAPIKeyWinsOverCredentialSource(t *testing.T) {
	store := credstore.NewStore()
	if _, err := store.Put("openai", "openai", "sk-from-store", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	f := NewFactory(schema.NewRegistry(), NewContextConfig()).WithCredentialSource(store)
	ctx, err := f.CreateContext("openai")
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	ctx.SetAPIKey("sk-explicit")
	if err := ctx.ResolveCredential(store, "openai"); err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	headers, err := ctx.BuildHeaders()
	if err != nil {
		t.Fatalf("BuildHeaders: %v", err)
	}
	for _, v := range headers {
		if strings.Contains(v, "sk-from-store") {
			t.Fatal("explicit SetAPIKey should not be overwritten by the credential store")
		}
	}
}

func TestFactory_CreateContext_CredentialProviderMismatch(t *testing.T) {
	store := credstore.NewStore()
	if _, err := store.Put("openai", "anthropic", "sk-wrong-provider", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	f := NewFactory(schema.NewRegistry(), NewContextConfig()).WithCredentialSource(store)
	if _, err := f.CreateContext("openai"); err == nil {
		t.Fatal("expected an error when the stored credential's provider does not match")
	}
}

func TestFactory_Close_DiscardsAllScopedContexts(t *testing.T) {
	f := NewFactory(schema.NewRegistry(), NewContextConfig())
	ctx := session.WithScope(context.Background(), "worker-1")
	f.GetScopedContext(ctx, "openai")

	f.Close()

	if f.Release(ctx, "openai") {
		t.Error("expected nothing left to release after Close")
	}
}
