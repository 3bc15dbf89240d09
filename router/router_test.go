package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hynigo/hyni"
	"github.com/hynigo/hyni/schema"
	"github.com/hynigo/hyni/transport"
)

// newTestChat builds a Chat bound to an openai schema pointed at srv, with
// the given reply body served for every request.
func newTestChat(t *testing.T, srv *httptest.Server) *hyni.Chat {
	t.Helper()
	doc, err := schema.NewRegistry().Load("openai")
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}
	doc.API.Endpoint = srv.URL
	ctx, err := hyni.NewContext(doc, hyni.NewContextConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	ctx.SetAPIKey("sk-test")
	sink := transport.NewHTTPSink(2 * time.Second)
	return hyni.NewChat(ctx, sink)
}

func replyServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
}

func failServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
}

const okReplyBody = `{"choices":[{"message":{"content":"ok"}}],"usage":{"prompt_tokens":1,"completion_tokens":1}}`
