package loader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/websublime/vite-open-api-server-sub004/pkg/executor"
	"github.com/websublime/vite-open-api-server-sub004/pkg/faker"
	"github.com/websublime/vite-open-api-server-sub004/pkg/store"
)

// loadHandlerFile evaluates one *.handler.js module and binds every exported
// function as an operation handler. The export must be an object mapping
// operationId to function; anything else rejects the whole file.
func loadHandlerFile(path string, log *slog.Logger) (map[string]executor.HandlerFunc, error) {
	vm, exports, err := evalModule(path)
	if err != nil {
		return nil, err
	}

	keys := exports.Keys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("module exports nothing")
	}

	lock := &vmLock{vm: vm}
	handlers := make(map[string]executor.HandlerFunc, len(keys))
	for _, opID := range keys {
		v := exports.Get(opID)
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return nil, fmt.Errorf("export %q is not a function", opID)
		}
		handlers[opID] = bindHandler(lock, fn)
	}
	return handlers, nil
}

// bindHandler wraps a JS function as a HandlerFunc. Calls into the shared
// runtime are serialized; a thrown JS error surfaces as a Go error and is
// contained by the executor.
func bindHandler(lock *vmLock, fn goja.Callable) executor.HandlerFunc {
	return func(hctx *executor.Context) (*executor.Result, error) {
		lock.mu.Lock()
		defer lock.mu.Unlock()

		ctxVal := lock.vm.ToValue(handlerScope(hctx))
		ret, err := fn(goja.Undefined(), ctxVal)
		if err != nil {
			return nil, err
		}
		return toResult(ret.Export()), nil
	}
}

// handlerScope builds the JS-visible context: request data, store
// operations, the faker, security info, a logger, and response stub setters.
func handlerScope(hctx *executor.Context) map[string]any {
	s := hctx.Store
	log := hctx.Log
	if log == nil {
		log = slog.Default()
	}
	fk := hctx.Faker
	if fk == nil {
		fk = faker.New()
	}

	scope := map[string]any{
		"request": map[string]any{
			"method":  hctx.Request.Method,
			"path":    hctx.Request.Path,
			"params":  hctx.Request.PathParams,
			"query":   hctx.Request.Query,
			"headers": hctx.Request.Headers,
			"body":    hctx.Request.Body,
		},
		"store": map[string]any{
			"list": func(schema string) []store.Record {
				return s.List(schema)
			},
			"get": func(schema string, id any) store.Record {
				rec, _ := s.Get(schema, id)
				return rec
			},
			"create": func(schema string, rec map[string]any) (store.Record, error) {
				return s.Create(schema, rec)
			},
			"update": func(schema string, id any, patch map[string]any) (store.Record, error) {
				return s.Update(schema, id, patch)
			},
			"delete": func(schema string, id any) bool {
				return s.Delete(schema, id)
			},
			"clear": func(schema string) {
				s.Clear(schema)
			},
			"count": func(schema string) int {
				return s.Count(schema)
			},
			"schemas": func() []string {
				return s.Schemas()
			},
		},
		"faker": fakerScope(fk),
		"log": map[string]any{
			"debug": func(args ...any) { log.Debug(sprint(args)) },
			"info":  func(args ...any) { log.Info(sprint(args)) },
			"warn":  func(args ...any) { log.Warn(sprint(args)) },
			"error": func(args ...any) { log.Error(sprint(args)) },
		},
		"response": map[string]any{
			"status": func(code int) {
				hctx.Response.Status = code
			},
			"header": func(name, value string) {
				if hctx.Response.Headers == nil {
					hctx.Response.Headers = map[string]string{}
				}
				hctx.Response.Headers[name] = value
			},
		},
	}

	if hctx.Security != nil {
		scope["security"] = map[string]any{
			"token":  hctx.Security.BearerToken,
			"claims": map[string]any(hctx.Security.Claims),
		}
	}
	return scope
}

func sprint(args []any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}

// toResult maps a JS return value onto a handler result. An object whose
// keys are a subset of {status, data, body, headers} with a numeric status
// is treated as a structured return; everything else is a raw body.
func toResult(v any) *executor.Result {
	m, ok := v.(map[string]any)
	if !ok {
		return executor.Raw(v)
	}
	status, hasStatus := asInt(m["status"])
	if !hasStatus || !structuredShape(m) {
		return executor.Raw(v)
	}

	data, hasData := m["data"]
	if !hasData {
		data = m["body"]
	}
	if rawHeaders, ok := m["headers"].(map[string]any); ok {
		headers := make(map[string]string, len(rawHeaders))
		for k, hv := range rawHeaders {
			headers[k] = fmt.Sprint(hv)
		}
		return executor.Full(status, data, headers)
	}
	return executor.WithStatus(status, data)
}

// structuredShape reports whether every key belongs to the structured-return
// contract, so an arbitrary payload that merely contains "status" is not
// misread.
func structuredShape(m map[string]any) bool {
	for k := range m {
		switch k {
		case "status", "data", "body", "headers":
		default:
			return false
		}
	}
	return true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
