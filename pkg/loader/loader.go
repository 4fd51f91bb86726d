// Package loader discovers and loads user-supplied JavaScript modules that
// customize the mock server: handler modules (*.handler.js) export a mapping
// of operationId to handler function, and seed modules (*.seed.js) export a
// mapping of schema name to either a record array or a factory function.
//
// Loading is all-or-nothing per file: a module that fails to parse or whose
// export has the wrong shape is skipped and reported, never partially
// applied. The loaded set is swapped atomically so in-flight requests keep a
// consistent view during reloads.
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dop251/goja"

	"github.com/websublime/vite-open-api-server-sub004/pkg/executor"
	"github.com/websublime/vite-open-api-server-sub004/pkg/faker"
	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
	"github.com/websublime/vite-open-api-server-sub004/pkg/store"
)

// HandlerPattern and SeedPattern are the glob suffixes matched under each
// configured directory.
const (
	HandlerPattern = "**/*.handler.js"
	SeedPattern    = "**/*.seed.js"
)

// LoadError describes one module file that could not be loaded. Other files
// in the same scan are unaffected.
type LoadError struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// SeedFunc produces the seed records for one schema. Factory exports receive
// the faker; static array exports ignore it.
type SeedFunc func(f *faker.Faker) ([]store.Record, error)

// Result is one immutable generation of loaded modules.
type Result struct {
	// Handlers maps operationId to the bound handler.
	Handlers map[string]executor.HandlerFunc

	// Seeds maps schema name to its seed producer.
	Seeds map[string]SeedFunc

	// HandlerFiles and SeedFiles list the files that loaded cleanly, in
	// load order.
	HandlerFiles []string
	SeedFiles    []string

	// Errors lists the files that were skipped.
	Errors []LoadError
}

// HasHandler reports whether a handler is bound for an operation.
func (r *Result) HasHandler(operationID string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Handlers[operationID]
	return ok
}

// Loader scans configured directories and keeps the current module set.
type Loader struct {
	handlerDirs []string
	seedDirs    []string
	log         *slog.Logger

	current atomic.Pointer[Result]
}

// New creates a loader over the given handler and seed directories.
// Directories that do not exist are simply empty.
func New(handlerDirs, seedDirs []string, log *slog.Logger) *Loader {
	if log == nil {
		log = logging.Nop()
	}
	l := &Loader{
		handlerDirs: handlerDirs,
		seedDirs:    seedDirs,
		log:         log,
	}
	l.current.Store(&Result{
		Handlers: map[string]executor.HandlerFunc{},
		Seeds:    map[string]SeedFunc{},
	})
	return l
}

// Current returns the active generation. Never nil.
func (l *Loader) Current() *Result {
	return l.current.Load()
}

// Load scans all directories, loads every module, and atomically publishes
// the new generation. Files that fail are reported in Result.Errors; the
// rest of the scan proceeds.
func (l *Loader) Load() *Result {
	res := &Result{
		Handlers: map[string]executor.HandlerFunc{},
		Seeds:    map[string]SeedFunc{},
	}

	for _, file := range scan(l.handlerDirs, HandlerPattern) {
		handlers, err := loadHandlerFile(file, l.log)
		if err != nil {
			l.log.Warn("handler module skipped", "file", file, "error", err)
			res.Errors = append(res.Errors, LoadError{File: file, Reason: err.Error()})
			continue
		}
		for opID, fn := range handlers {
			if _, dup := res.Handlers[opID]; dup {
				l.log.Warn("handler overridden by later module", "operationId", opID, "file", file)
			}
			res.Handlers[opID] = fn
		}
		res.HandlerFiles = append(res.HandlerFiles, file)
	}

	for _, file := range scan(l.seedDirs, SeedPattern) {
		seeds, err := loadSeedFile(file)
		if err != nil {
			l.log.Warn("seed module skipped", "file", file, "error", err)
			res.Errors = append(res.Errors, LoadError{File: file, Reason: err.Error()})
			continue
		}
		for schema, fn := range seeds {
			if _, dup := res.Seeds[schema]; dup {
				l.log.Warn("seed overridden by later module", "schema", schema, "file", file)
			}
			res.Seeds[schema] = fn
		}
		res.SeedFiles = append(res.SeedFiles, file)
	}

	l.current.Store(res)
	l.log.Info("modules loaded",
		"handlers", len(res.Handlers),
		"seeds", len(res.Seeds),
		"errors", len(res.Errors))
	return res
}

// scan resolves the glob under each directory and returns matches sorted
// within each directory, so load order (and last-wins override order) is
// stable.
func scan(dirs []string, pattern string) []string {
	var files []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files
}

// evalModule runs a CommonJS-style module and returns its exports object.
// Both `module.exports = {...}` and `exports.name = ...` styles work.
func evalModule(path string) (*goja.Runtime, *goja.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}

	vm := goja.New()
	exports := vm.NewObject()
	module := vm.NewObject()
	_ = module.Set("exports", exports)
	_ = vm.Set("module", module)
	_ = vm.Set("exports", exports)

	if _, err := vm.RunString(string(data)); err != nil {
		return nil, nil, fmt.Errorf("execute: %w", err)
	}

	if v := module.Get("exports"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		obj, ok := v.(*goja.Object)
		if !ok {
			return nil, nil, fmt.Errorf("module.exports must be an object")
		}
		exports = obj
	}
	return vm, exports, nil
}

// vmLock serializes access to one module's runtime. goja runtimes are not
// safe for concurrent use, and every export of a file shares one runtime.
type vmLock struct {
	mu sync.Mutex
	vm *goja.Runtime
}
