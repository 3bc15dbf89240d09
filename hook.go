package hyni

import "context"

// HookEvent carries the data available to a Hook at one lifecycle stage of
// a Chat.Send call. Fields not yet populated at a given stage are zero:
// Response/Err are unset at BeforeSend, Err is unset at AfterSend.
type HookEvent struct {
	Provider string
	Model    string
	Request  []byte
	Response []byte
	Err      error
}

// Hook observes or intervenes in a Chat send. BeforeSend may return an
// error to abort the send before it reaches the Sink — Chat surfaces it to
// the caller in place of a transport call. AfterSend and OnError are
// observational; their returned error, if any, is discarded and does not
// replace the original outcome.
type Hook interface {
	BeforeSend(ctx context.Context, ev *HookEvent) error
	AfterSend(ctx context.Context, ev *HookEvent) error
	OnError(ctx context.Context, ev *HookEvent) error
}

// NopHook implements Hook with no-op stages; embed it to implement only
// the stages a concrete hook cares about.
type NopHook struct{}

func (NopHook) BeforeSend(context.Context, *HookEvent) error { return nil }
func (NopHook) AfterSend(context.Context, *HookEvent) error  { return nil }
func (NopHook) OnError(context.Context, *HookEvent) error    { return nil }

// hookChain runs a list of Hooks in order, for one stage each.
type hookChain []Hook

func (h hookChain) beforeSend(ctx context.Context, ev *HookEvent) error {
	for _, hook := range h {
		if err := hook.BeforeSend(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (h hookChain) afterSend(ctx context.Context, ev *HookEvent) {
	for _, hook := range h {
		_ = hook.AfterSend(ctx, ev)
	}
}

func (h hookChain) onError(ctx context.Context, ev *HookEvent) {
	for _, hook := range h {
		_ = hook.OnError(ctx, ev)
	}
}
