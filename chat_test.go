package hyni

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hynigo/hyni/internal/pricing"
	"github.com/hynigo/hyni/schema"
	"github.com/hynigo/hyni/transport"
)

func newChatForTest(t *testing.T, provider, endpoint string) (*Chat, *Context) {
	t.Helper()
	doc, err := schema.NewRegistry().Load(provider)
	if err != nil {
		t.Fatalf("loading %q: %v", provider, err)
	}
	doc.API.Endpoint = endpoint
	ctx, err := NewContext(doc, NewContextConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	sink := transport.NewHTTPSink(5 * time.Second)
	return NewChat(ctx, sink), ctx
}

func TestChat_Send_OpenAIShapedSingleTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi there!"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	chat, ctx := newChatForTest(t, "openai", srv.URL)
	chat.Context().SetAPIKey("sk-test")

	reply, err := chat.Send(context.Background(), "Hello", "", "", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "Hi there!" {
		t.Errorf("got reply %q", reply)
	}
	msgs := ctx.Messages()
	if len(msgs) != 2 || msgs[1].Role != "assistant" || msgs[1].Text() != "Hi there!" {
		t.Errorf("got messages %+v", msgs)
	}
}

func TestChat_Send_AnthropicSystemFieldAndContentBlocks(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Understood."}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":4}}`))
	}))
	defer srv.Close()

	chat, _ := newChatForTest(t, "anthropic", srv.URL)
	chat.Context().SetSystemMessage("You are terse.")
	chat.Context().SetAPIKey("sk-ant-test")

	reply, err := chat.Send(context.Background(), "Ping", "", "", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "Understood." {
		t.Errorf("got reply %q", reply)
	}
	if !strings.Contains(gotBody, `"system":"You are terse."`) {
		t.Errorf("expected a top-level system field in the request body, got %s", gotBody)
	}
}

func TestChat_Send_MultimodalRequestReachesServer(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"A cat."}],"usage":{"input_tokens":20,"output_tokens":2}}`))
	}))
	defer srv.Close()

	chat, _ := newChatForTest(t, "anthropic", srv.URL)
	chat.Context().SetAPIKey("sk-ant-test")

	reply, err := chat.Send(context.Background(), "What is this?", "image/png", "aW1hZ2ViYXNlNjQ=", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "A cat." {
		t.Errorf("got reply %q", reply)
	}
	if !strings.Contains(gotBody, `"media_type":"image/png"`) || !strings.Contains(gotBody, `"data":"aW1hZ2ViYXNlNjQ="`) {
		t.Errorf("expected the image content block in the request body, got %s", gotBody)
	}
}

func TestChat_Send_NonSuccessStatusSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	chat, ctx := newChatForTest(t, "openai", srv.URL)
	chat.Context().SetAPIKey("sk-test")

	_, err := chat.Send(context.Background(), "hi", "", "", nil)
	if err == nil {
		t.Fatal("expected an error for a 429 response")
	}
	terr, ok := err.(*TransportError)
	if !ok {
		t.Fatalf("got error type %T, want *TransportError", err)
	}
	if terr.ProviderError != "rate limited" {
		t.Errorf("got ProviderError %q, want the extracted provider message", terr.ProviderError)
	}
	if len(ctx.Messages()) != 1 {
		t.Error("expected no assistant message appended after a failed send")
	}
}

func TestChat_Send_CancelPredicateAborts(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	chat, _ := newChatForTest(t, "openai", srv.URL)
	chat.Context().SetAPIKey("sk-test")

	var cancelled bool
	var mu sync.Mutex
	cancel := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return cancelled
	}
	go func() {
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		cancelled = true
		mu.Unlock()
	}()

	_, err := chat.Send(context.Background(), "hi", "", "", cancel)
	if err == nil {
		t.Fatal("expected an error when the cancel predicate fires mid-request")
	}
	terr, ok := err.(*TransportError)
	if !ok || !terr.Cancelled {
		t.Fatalf("got %#v, want a cancelled *TransportError", err)
	}
}

func TestChat_SendAsync_Waits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"async reply"}}],"usage":{}}`))
	}))
	defer srv.Close()

	chat, _ := newChatForTest(t, "openai", srv.URL)
	chat.Context().SetAPIKey("sk-test")

	future := chat.SendAsync(context.Background(), "hi", "", "", nil)
	reply, err := future.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if reply != "async reply" {
		t.Errorf("got reply %q", reply)
	}
}

func TestChat_SendStreaming_ConcatenatesDeltasAndStopsAtDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, line := range []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}` + "\n",
			`data: {"choices":[{"delta":{"content":"lo, "}}]}` + "\n",
			`data: {"choices":[{"delta":{"content":"world"}}]}` + "\n",
			`data: [DONE]` + "\n",
		} {
			_, _ = w.Write([]byte(line))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer srv.Close()

	chat, _ := newChatForTest(t, "openai", srv.URL)
	chat.Context().SetAPIKey("sk-test")

	var chunks []string
	done := make(chan struct{})
	var final string
	var finalErr error

	err := chat.SendStreaming(context.Background(), "hi", "", "",
		func(delta string) bool {
			chunks = append(chunks, delta)
			return true
		},
		func(text string, e error) {
			final = text
			finalErr = e
			close(done)
		},
		nil,
	)
	if err != nil {
		t.Fatalf("SendStreaming: %v", err)
	}
	<-done
	if finalErr != nil {
		t.Fatalf("onComplete error: %v", finalErr)
	}
	if final != "Hello, world" {
		t.Errorf("got final text %q, want %q", final, "Hello, world")
	}
	if strings.Join(chunks, "") != "Hello, world" {
		t.Errorf("got concatenated chunks %q", strings.Join(chunks, ""))
	}
}

func TestChat_SendStreaming_RejectsWhenProviderLacksStreaming(t *testing.T) {
	doc, err := schema.NewRegistry().Load("openai")
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}
	doc.Features.Streaming = false
	ctx, _ := NewContext(doc, NewContextConfig())
	chat := NewChat(ctx, transport.NewHTTPSink(time.Second))

	err = chat.SendStreaming(context.Background(), "hi", "", "", nil, func(string, error) {}, nil)
	if err == nil {
		t.Fatal("expected an error streaming against a non-streaming schema")
	}
}

func TestContext_SetParameter_RejectsTypeMismatch(t *testing.T) {
	doc, err := schema.NewRegistry().Load("openai")
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}
	ctx, _ := NewContext(doc, NewContextConfig())
	if _, err := ctx.SetParameter("temperature", "not-a-number"); err == nil {
		t.Fatal("expected a type-mismatch validation error")
	}
}

func TestHook_BeforeSendCanAbortSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("the sink must not be reached once BeforeSend rejects the send")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	doc, err := schema.NewRegistry().Load("openai")
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}
	doc.API.Endpoint = srv.URL
	ctx, _ := NewContext(doc, NewContextConfig())

	abortHook := &blockingHook{}
	chat := NewChat(ctx, transport.NewHTTPSink(time.Second), abortHook)

	_, err = chat.Send(context.Background(), "hi", "", "", nil)
	if err == nil {
		t.Fatal("expected BeforeSend's error to abort the send")
	}
}

func TestChat_Send_WithPricingObservesNoPanicOnKnownModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}],"usage":{"prompt_tokens":1000,"completion_tokens":500}}`))
	}))
	defer srv.Close()

	catalog, err := pricing.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	chat, _ := newChatForTest(t, "openai", srv.URL)
	chat.WithPricing(catalog)
	chat.Context().SetModel("gpt-4o-mini")
	chat.Context().SetAPIKey("sk-test")

	if _, err := chat.Send(context.Background(), "hi", "", "", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

type blockingHook struct{ NopHook }

func (blockingHook) BeforeSend(context.Context, *HookEvent) error {
	return newValidationError("hook", "blocked by test hook")
}
