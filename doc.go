// Package hyni is a provider-agnostic client for chat-style LLM HTTP APIs.
//
// A single schema-driven [Context] holds multi-turn conversation state —
// text and inline images — against heterogeneous backends (OpenAI-style,
// Anthropic-style, DeepSeek, Mistral, or any future provider expressible as
// a declarative [schema.SchemaDoc]) through one uniform interface. [Chat]
// wraps a Context and a [transport.Sink] to send, stream, or cancel
// requests; [Factory] creates Contexts, including a thread-local-equivalent
// scoped lookup for reuse across worker goroutines.
//
// The core of this package is the schema interpreter inside Context: it
// synthesizes request bodies and headers from a SchemaDoc's declarative
// template, and extracts assistant text, usage, and errors from arbitrarily
// shaped responses by walking the SchemaDoc's extraction paths.
package hyni
