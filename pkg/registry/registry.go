// Package registry derives a read-mostly index of every OpenAPI operation
// in a document. The registry is rebuilt wholesale on every document load or
// handler reload — entries are never patched in place, so a registry value
// can be shared freely once built.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/websublime/vite-open-api-server-sub004/pkg/security"
)

// Entry describes one (method, path) operation pair.
type Entry struct {
	// OperationID is the document's operationId, or "METHOD path" when the
	// document omits one.
	OperationID string `json:"operationId"`

	// Method is the uppercase HTTP method.
	Method string `json:"method"`

	// Path is the path template verbatim from the document.
	Path string `json:"path"`

	// HasHandler reports whether a custom handler is bound to the
	// operation.
	HasHandler bool `json:"hasHandler"`

	// Security lists the operation's security requirements (operation
	// level, falling back to the document default).
	Security []security.Requirement `json:"security,omitempty"`

	// Summary and Description carry the operation metadata for display.
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
}

// Key returns the composite registry key for an entry.
func (e *Entry) Key() string {
	return e.Method + " " + e.Path
}

// Stats aggregates registry-wide counts, computed at build time.
type Stats struct {
	// Total is the number of operations in the document.
	Total int `json:"total"`

	// ByMethod counts operations per HTTP method.
	ByMethod map[string]int `json:"byMethod"`

	// WithHandlers counts operations with a custom handler bound.
	WithHandlers int `json:"withHandlers"`
}

// Registry is the immutable operation index for one document generation.
type Registry struct {
	entries []*Entry
	byKey   map[string]*Entry
	byOp    map[string]*Entry
	stats   Stats
}

// Build constructs a registry from a dereferenced document. hasHandler
// reports whether a custom handler is registered for an operation id; nil
// means no handlers.
func Build(doc *openapi3.T, hasHandler func(operationID string) bool) (*Registry, error) {
	if doc == nil || doc.Paths == nil {
		return nil, fmt.Errorf("document has no paths")
	}
	if hasHandler == nil {
		hasHandler = func(string) bool { return false }
	}

	r := &Registry{
		byKey: make(map[string]*Entry),
		byOp:  make(map[string]*Entry),
		stats: Stats{ByMethod: make(map[string]int)},
	}

	paths := doc.Paths.Map()
	pathNames := make([]string, 0, len(paths))
	for p := range paths {
		pathNames = append(pathNames, p)
	}
	sort.Strings(pathNames)

	for _, path := range pathNames {
		item := paths[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := ops[method]
			entry := &Entry{
				OperationID: op.OperationID,
				Method:      method,
				Path:        path,
				Summary:     op.Summary,
				Description: op.Description,
				Security:    securityOf(doc, op),
			}
			if entry.OperationID == "" {
				entry.OperationID = method + " " + path
			}
			entry.HasHandler = hasHandler(entry.OperationID)

			key := entry.Key()
			if _, dup := r.byKey[key]; dup {
				return nil, fmt.Errorf("duplicate operation %s", key)
			}
			r.byKey[key] = entry
			r.byOp[entry.OperationID] = entry
			r.entries = append(r.entries, entry)

			r.stats.Total++
			r.stats.ByMethod[method]++
			if entry.HasHandler {
				r.stats.WithHandlers++
			}
		}
	}

	return r, nil
}

// Entries returns all entries in deterministic (path, method) order.
func (r *Registry) Entries() []*Entry {
	return r.entries
}

// Lookup finds the entry for a method and path template.
func (r *Registry) Lookup(method, path string) *Entry {
	return r.byKey[method+" "+path]
}

// ByOperationID finds the entry for an operation id.
func (r *Registry) ByOperationID(opID string) *Entry {
	return r.byOp[opID]
}

// Stats returns the aggregate counts computed at build time.
func (r *Registry) Stats() Stats {
	return r.stats
}

// securityOf resolves an operation's security requirements, falling back to
// the document-level default when the operation declares none.
func securityOf(doc *openapi3.T, op *openapi3.Operation) []security.Requirement {
	reqs := doc.Security
	if op.Security != nil {
		reqs = *op.Security
	}
	var out []security.Requirement
	for _, req := range reqs {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, security.Requirement{Scheme: name, Scopes: req[name]})
		}
	}
	return out
}

// LoadDocument loads, validates, and dereferences an OpenAPI 3.x document
// from a file. External refs are followed; the result behaves as a
// normalized 3.1-style document object.
func LoadDocument(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load spec %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid spec %s: %w", path, err)
	}
	return doc, nil
}

// LoadDocumentFromData loads a document from in-memory YAML or JSON bytes.
func LoadDocumentFromData(ctx context.Context, data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid spec: %w", err)
	}
	return doc, nil
}
