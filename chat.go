package hyni

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hynigo/hyni/internal/logging"
	"github.com/hynigo/hyni/internal/metrics"
	"github.com/hynigo/hyni/internal/pricing"
	"github.com/hynigo/hyni/schema"
	"github.com/hynigo/hyni/transport"
	"github.com/tidwall/gjson"
)

// maxConsecutiveMalformedFrames bounds how many back-to-back unparsable
// SSE frames a streaming send tolerates before giving up with
// ResponseShapeError.
const maxConsecutiveMalformedFrames = 16

// Chat is a thin orchestrator combining a Context with a transport.Sink: it
// adds the user turn, synthesizes the request, calls the sink, parses the
// response, and appends the assistant turn on success. A Chat is bound to
// one Context and is no more safe for concurrent use than the Context it
// wraps.
type Chat struct {
	ctx     *Context
	sink    transport.Sink
	hooks   hookChain
	catalog *pricing.Catalog
}

// NewChat creates a Chat wrapping ctx and sink, running hooks (in order)
// around every send.
func NewChat(ctx *Context, sink transport.Sink, hooks ...Hook) *Chat {
	return &Chat{ctx: ctx, sink: sink, hooks: hooks}
}

// WithPricing attaches a price catalog so a successful send observes
// hyni_request_cost_usd when the response's usage_path resolves and the
// catalog has an entry for "provider/model". Without one, cost is simply
// not reported.
func (c *Chat) WithPricing(catalog *pricing.Catalog) *Chat {
	c.catalog = catalog
	return c
}

// Context returns the underlying Context.
func (c *Chat) Context() *Context { return c.ctx }

// Send appends a user message (text, plus an optional image), synthesizes
// and posts the request, and returns the extracted assistant text. On any
// error, the Context's messages equal their pre-call value plus at most
// the user turn this call appended — no assistant turn is appended on
// failure.
func (c *Chat) Send(ctx context.Context, text, mediaType, mediaData string, cancel transport.CancelPredicate) (string, error) {
	if _, err := c.ctx.AddUserMessage(text, mediaType, mediaData); err != nil {
		return "", err
	}
	return c.sendBuilt(ctx, cancel)
}

// SendMessage is like Send but for an arbitrary schema-declared role,
// matching add_message's flexibility (e.g. seeding a prior assistant turn
// before the next send).
func (c *Chat) SendMessage(ctx context.Context, role, text, mediaType, mediaData string, cancel transport.CancelPredicate) (string, error) {
	if _, err := c.ctx.AddMessage(role, text, mediaType, mediaData); err != nil {
		return "", err
	}
	return c.sendBuilt(ctx, cancel)
}

func (c *Chat) sendBuilt(ctx context.Context, cancel transport.CancelPredicate) (string, error) {
	provider := c.ctx.Schema().Name()
	model := c.ctx.Model()
	ctx = logging.WithSendID(ctx, logging.NewSendID())
	log := logging.FromContext(ctx)
	start := time.Now()

	reqBody, err := c.ctx.BuildRequest(false)
	if err != nil {
		return "", err
	}
	headers, err := c.ctx.BuildHeaders()
	if err != nil {
		return "", err
	}

	ev := &HookEvent{Provider: provider, Model: model, Request: reqBody}
	if err := c.hooks.beforeSend(ctx, ev); err != nil {
		metrics.SendsTotal.WithLabelValues(provider, model, "error").Inc()
		return "", err
	}

	resp, err := c.sink.Post(ctx, c.ctx.Schema().API.Endpoint, headers, reqBody, cancel)
	metrics.SendDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())

	if err != nil {
		terr := classifyTransportErr(err)
		ev.Err = terr
		c.hooks.onError(ctx, ev)
		metrics.SendsTotal.WithLabelValues(provider, model, statusLabel(terr)).Inc()
		log.Warn("send failed", "provider", provider, "error", terr)
		return "", terr
	}

	if !resp.Success {
		terr := &TransportError{StatusCode: resp.StatusCode, ProviderError: c.ctx.ExtractError(resp.Body), RawBody: resp.Body}
		ev.Err = terr
		c.hooks.onError(ctx, ev)
		metrics.SendsTotal.WithLabelValues(provider, model, "error").Inc()
		metrics.ProviderErrors.WithLabelValues(provider, "transport").Inc()
		log.Warn("non-2xx response", "provider", provider, "status", resp.StatusCode)
		return "", terr
	}

	text, err := c.ctx.ExtractTextResponse(resp.Body)
	if err != nil {
		ev.Err = err
		c.hooks.onError(ctx, ev)
		metrics.SendsTotal.WithLabelValues(provider, model, "error").Inc()
		metrics.ProviderErrors.WithLabelValues(provider, "response_shape").Inc()
		return "", err
	}

	if _, err := c.ctx.AddAssistantMessage(text); err != nil {
		return "", err
	}

	c.recordUsage(provider, model, resp.Body)
	ev.Response = resp.Body
	c.hooks.afterSend(ctx, ev)
	metrics.SendsTotal.WithLabelValues(provider, model, "success").Inc()
	log.Info("send succeeded", "provider", provider, "chars", len(text))
	return text, nil
}

// Future is returned by SendAsync; Wait blocks until the send completes.
type Future struct {
	done chan struct{}
	text string
	err  error
}

// Wait blocks until the async send completes and returns its result.
func (f *Future) Wait() (string, error) {
	<-f.done
	return f.text, f.err
}

// SendAsync runs Send on a new goroutine and returns a Future. Cancellation
// flows through the same cancel predicate as a blocking send.
func (c *Chat) SendAsync(ctx context.Context, text, mediaType, mediaData string, cancel transport.CancelPredicate) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		f.text, f.err = c.Send(ctx, text, mediaType, mediaData, cancel)
		close(f.done)
	}()
	return f
}

// OnChunk receives each non-empty streamed delta; returning false requests
// early termination of the stream.
type OnChunk func(delta string) bool

// SendStreaming requires the bound schema to advertise streaming support
// and the Context's ContextConfig to have EnableStreamingSupport set.
// It appends the user turn, posts with stream=true, and invokes onChunk
// for each non-empty delta as frames arrive. Once the stream ends (either
// naturally, via onChunk returning false, or via the [DONE] sentinel) the
// accumulated text is appended as the assistant turn and onComplete fires
// with the final text, or with an error if the stream failed. A run of
// more than maxConsecutiveMalformedFrames unparsable frames aborts the
// stream with ResponseShapeError.
func (c *Chat) SendStreaming(ctx context.Context, text, mediaType, mediaData string, onChunk OnChunk, onComplete func(string, error), cancel transport.CancelPredicate) error {
	if !c.ctx.Schema().Features.Streaming {
		return newValidationError("streaming", fmt.Sprintf("provider %q does not advertise streaming support", c.ctx.Schema().Name()))
	}
	if !c.ctx.config.EnableStreamingSupport {
		return newValidationError("streaming", "streaming support is disabled in this Context's ContextConfig")
	}
	if _, err := c.ctx.AddUserMessage(text, mediaType, mediaData); err != nil {
		return err
	}

	provider := c.ctx.Schema().Name()
	model := c.ctx.Model()

	reqBody, err := c.ctx.BuildRequest(true)
	if err != nil {
		return err
	}
	headers, err := c.ctx.BuildHeaders()
	if err != nil {
		return err
	}

	ev := &HookEvent{Provider: provider, Model: model, Request: reqBody}
	if err := c.hooks.beforeSend(ctx, ev); err != nil {
		return err
	}

	parser := &sseParser{doc: c.ctx.Schema(), provider: provider}

	err = c.sink.PostStream(ctx, c.ctx.Schema().API.Endpoint, headers, reqBody,
		func(chunk []byte) bool {
			return parser.feed(chunk, onChunk)
		},
		func(resp *transport.Response, streamErr error) {
			c.finishStreaming(ctx, provider, model, resp, streamErr, parser, onComplete, ev)
		},
		cancel,
	)
	if err != nil {
		return classifyTransportErr(err)
	}
	return parser.abortErr
}

func (c *Chat) finishStreaming(ctx context.Context, provider, model string, resp *transport.Response, streamErr error, parser *sseParser, onComplete func(string, error), ev *HookEvent) {
	fail := func(err error) {
		ev.Err = err
		c.hooks.onError(ctx, ev)
		metrics.SendsTotal.WithLabelValues(provider, model, "error").Inc()
		if onComplete != nil {
			onComplete("", err)
		}
	}

	if streamErr != nil {
		fail(classifyTransportErr(streamErr))
		return
	}
	if parser.abortErr != nil {
		fail(parser.abortErr)
		return
	}
	if resp != nil && !resp.Success {
		fail(&TransportError{StatusCode: resp.StatusCode, RawBody: resp.Body})
		return
	}

	final := parser.accumulated.String()
	if _, err := c.ctx.AddAssistantMessage(final); err != nil {
		fail(err)
		return
	}
	ev.Response = []byte(final)
	c.hooks.afterSend(ctx, ev)
	metrics.SendsTotal.WithLabelValues(provider, model, "success").Inc()
	if onComplete != nil {
		onComplete(final, nil)
	}
}

// sseParser buffers raw streamed bytes across Sink chunk callbacks, splits
// them into lines, and extracts deltas via the schema's
// content_delta_path.
type sseParser struct {
	doc      *schema.SchemaDoc
	provider string

	buf            bytes.Buffer
	accumulated    strings.Builder
	consecutiveBad int
	abortErr       error
	sawDone        bool
}

// feed appends chunk to the internal buffer, processes every complete
// line, and invokes onChunk for each non-empty delta. It returns whether
// the Sink should keep streaming: false once the [DONE] sentinel is seen,
// the malformed-frame budget is exhausted, or onChunk itself returns
// false.
func (p *sseParser) feed(chunk []byte, onChunk OnChunk) bool {
	if p.sawDone || p.abortErr != nil {
		return false
	}
	p.buf.Write(chunk)
	for {
		line, err := p.buf.ReadString('\n')
		if err != nil {
			// Incomplete line; push it back for the next chunk.
			p.buf.Reset()
			p.buf.WriteString(line)
			return true
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		payload, ok := stripDataPrefix(line)
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "[DONE]" {
			p.sawDone = true
			return false
		}

		if !json.Valid([]byte(payload)) {
			p.consecutiveBad++
			if p.consecutiveBad > maxConsecutiveMalformedFrames {
				p.abortErr = newResponseShapeError(nil, "too many consecutive malformed streaming frames")
				return false
			}
			continue
		}
		p.consecutiveBad = 0

		delta, ok := p.doc.ExtractStreamDelta([]byte(payload))
		if !ok || delta == "" {
			continue
		}
		p.accumulated.WriteString(delta)
		metrics.StreamChunks.WithLabelValues(p.provider).Inc()
		if onChunk != nil && !onChunk(delta) {
			return false
		}
	}
}

func stripDataPrefix(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "data: "):
		return line[len("data: "):], true
	case strings.HasPrefix(line, "data:"):
		return line[len("data:"):], true
	default:
		return "", false
	}
}

func classifyTransportErr(err error) *TransportError {
	var cancelled *transport.CancelledError
	if errors.As(err, &cancelled) {
		return &TransportError{Cancelled: true, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Timeout: true, Err: err}
	}
	return &TransportError{Err: err}
}

func statusLabel(terr *TransportError) string {
	if terr.Cancelled {
		return "cancelled"
	}
	return "error"
}

// recordUsage reads the provider's usage_path object, if present, and
// reports whichever of the common prompt/completion token field names it
// finds. Providers disagree on field names (prompt_tokens/input_tokens,
// completion_tokens/output_tokens); this only reports counts the
// provider already computed, it never counts tokens itself. When a price
// catalog is attached, it also observes hyni_request_cost_usd.
func (c *Chat) recordUsage(provider, model string, body []byte) {
	res, ok := c.ctx.Schema().ResponseFormat.Success.UsagePath.Walk(body)
	if !ok {
		return
	}
	promptTokens := int(firstNumber(res, "prompt_tokens", "input_tokens"))
	completionTokens := int(firstNumber(res, "completion_tokens", "output_tokens"))
	if promptTokens > 0 {
		metrics.TokensInput.WithLabelValues(provider, model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		metrics.TokensOutput.WithLabelValues(provider, model).Add(float64(completionTokens))
	}

	if c.catalog == nil {
		return
	}
	if cost, ok := pricing.Cost(c.catalog, provider+"/"+model, pricing.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}); ok {
		metrics.RequestCostUSD.WithLabelValues(provider, model).Observe(cost)
	}
}

func firstNumber(res gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		v := res.Get(k)
		if v.Exists() {
			return v.Float()
		}
	}
	return 0
}
