package schema

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed builtin/*.json
var builtinFS embed.FS

var builtinNames = []string{"openai", "anthropic", "deepseek", "mistral"}

// Registry loads, validates, and caches SchemaDoc instances by provider
// name. A zero Registry is not usable; construct one with NewRegistry.
//
// All methods are safe for concurrent use. Load reads and parses outside
// the lock, so concurrent first loads of the same provider name may each
// parse the file; the first result cached wins and every caller receives
// that same *SchemaDoc. Published SchemaDocs are immutable.
type Registry struct {
	mu            sync.Mutex
	dir           string
	registrations map[string]string // provider name -> explicit file path
	cache         map[string]*SchemaDoc
	skipBuiltins  bool
}

// Option configures a new Registry.
type Option func(*Registry)

// NoBuiltins disables automatic registration of the bundled OpenAI,
// Anthropic, DeepSeek, and Mistral schemas.
func NoBuiltins() Option {
	return func(r *Registry) { r.skipBuiltins = true }
}

// NewRegistry creates an empty Registry. Unless NoBuiltins is passed, the
// four bundled provider schemas are available for Load immediately, before
// any directory or explicit registration is configured.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		registrations: make(map[string]string),
		cache:         make(map[string]*SchemaDoc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetDirectory sets the fallback lookup directory for Load and
// ListProviders. A trailing separator is appended if absent.
func (r *Registry) SetDirectory(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path != "" && !strings.HasSuffix(path, string(filepath.Separator)) {
		path += string(filepath.Separator)
	}
	r.dir = path
}

// Register associates an explicit schema file with a provider name,
// overriding directory lookup and any bundled default for that name.
func (r *Registry) Register(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[name] = path
}

// ListProviders returns the union of registered names (whose file exists),
// directory entries with a .json/.yaml/.yml suffix, and — unless
// NoBuiltins was set — the bundled provider names, each appearing at most
// once.
func (r *Registry) ListProviders() []string {
	r.mu.Lock()
	dir := r.dir
	regs := make(map[string]string, len(r.registrations))
	for k, v := range r.registrations {
		regs[k] = v
	}
	skipBuiltins := r.skipBuiltins
	r.mu.Unlock()

	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}

	if !skipBuiltins {
		for _, n := range builtinNames {
			add(n)
		}
	}
	for name, path := range regs {
		if _, err := os.Stat(path); err == nil {
			add(name)
		}
	}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				ext := extOf(e.Name())
				if ext != "json" && ext != "yaml" && ext != "yml" {
					continue
				}
				add(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
			}
		}
	}
	return names
}

// IsAvailable reports whether name resolves to an existing schema file, an
// explicit registration, or a bundled default.
func (r *Registry) IsAvailable(name string) bool {
	path, isBuiltin, ok := r.resolve(name)
	if isBuiltin {
		return ok
	}
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// resolve returns the file path for name (registration first, else
// <dir>/<name>.json, .yaml, then .yml), or reports that name is a bundled
// builtin.
func (r *Registry) resolve(name string) (path string, isBuiltin, builtinOK bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.registrations[name]; ok {
		return p, false, false
	}
	if r.dir != "" {
		candidate := filepath.Join(r.dir, name+".json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, false, false
		}
		candidate = filepath.Join(r.dir, name+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, false, false
		}
		candidate = filepath.Join(r.dir, name+".yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, false, false
		}
	}
	if !r.skipBuiltins {
		for _, n := range builtinNames {
			if n == name {
				return "", true, true
			}
		}
	}
	return "", false, false
}

// Load resolves name to a schema file (or bundled default), reads it,
// parses it, validates it, caches it, and returns the cached immutable
// handle. Subsequent calls for the same name return the same *SchemaDoc.
func (r *Registry) Load(name string) (*SchemaDoc, error) {
	r.mu.Lock()
	if doc, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return doc, nil
	}
	r.mu.Unlock()

	path, isBuiltin, _ := r.resolve(name)

	var data []byte
	var ext string
	var err error
	switch {
	case isBuiltin:
		data, err = builtinFS.ReadFile("builtin/" + name + ".json")
		ext = "json"
	case path != "":
		data, err = os.ReadFile(path) //nolint:gosec
		ext = extOf(path)
	default:
		return nil, newSchemaErr(name, "schema not found", nil)
	}
	if err != nil {
		return nil, newSchemaErr(name, fmt.Sprintf("reading schema file: %s", err), err)
	}

	doc, err := Parse(data, ext)
	if err != nil {
		return nil, err
	}
	if doc.Provider.Name != "" && doc.Provider.Name != name {
		// Registered under a different key than the document's own name is
		// allowed (aliasing); the document's own identity still governs
		// export/import snapshot compatibility checks.
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}
	r.cache[name] = doc
	return doc, nil
}
