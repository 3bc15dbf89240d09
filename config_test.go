package hyni

import "testing"

func TestNewContextConfig_DefaultsEnabled(t *testing.T) {
	cfg := NewContextConfig()
	if !cfg.EnableValidation {
		t.Error("expected EnableValidation true")
	}
	if !cfg.EnableStreamingSupport {
		t.Error("expected EnableStreamingSupport true")
	}
}

func TestContextConfig_ZeroValueDisablesEverything(t *testing.T) {
	var cfg ContextConfig
	if cfg.EnableValidation || cfg.EnableStreamingSupport {
		t.Error("zero-value ContextConfig should leave both flags off")
	}
}
