// Package server assembles spec instances into a running mock API server.
//
// Each instance owns the full state for one OpenAPI document: store,
// registry, simulations, timeline, and loaded JS modules. The HTTP pipeline
// per request is: simulation match, then custom handler, then a generated
// default response. Every state transition is mirrored to inspector clients
// through the shared WebSocket hub.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/websublime/vite-open-api-server-sub004/internal/id"
	"github.com/websublime/vite-open-api-server-sub004/pkg/command"
	"github.com/websublime/vite-open-api-server-sub004/pkg/config"
	"github.com/websublime/vite-open-api-server-sub004/pkg/executor"
	"github.com/websublime/vite-open-api-server-sub004/pkg/faker"
	"github.com/websublime/vite-open-api-server-sub004/pkg/hub"
	"github.com/websublime/vite-open-api-server-sub004/pkg/loader"
	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
	"github.com/websublime/vite-open-api-server-sub004/pkg/registry"
	"github.com/websublime/vite-open-api-server-sub004/pkg/security"
	"github.com/websublime/vite-open-api-server-sub004/pkg/simulation"
	"github.com/websublime/vite-open-api-server-sub004/pkg/store"
	"github.com/websublime/vite-open-api-server-sub004/pkg/timeline"
)

// EventTimeline is broadcast after every completed request, carrying the
// appended entry.
const EventTimeline = "timeline"

// Instance is one running spec: an OpenAPI document plus all its live state.
type Instance struct {
	cfg config.SpecConfig
	doc *openapi3.T

	router  routers.Router
	store   *store.Store
	sims    *simulation.Manager
	tl      *timeline.Timeline
	modules *loader.Loader
	fake    *faker.Faker
	log     *slog.Logger

	reg       atomic.Pointer[registry.Registry]
	broadcast atomic.Pointer[command.Broadcaster]
}

// NewInstance loads the spec document, loads JS modules, builds the
// registry, and seeds the store.
func NewInstance(ctx context.Context, cfg config.SpecConfig, timelineCapacity int, log *slog.Logger) (*Instance, error) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("spec", cfg.ID)

	doc, err := registry.LoadDocument(ctx, cfg.File)
	if err != nil {
		return nil, err
	}
	// Route matching is purely path-based; document server URLs would
	// otherwise have to prefix every request.
	doc.Servers = nil

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		cfg:     cfg,
		doc:     doc,
		router:  router,
		store:   store.New(storeConfigs(cfg)),
		sims:    simulation.NewManager(),
		tl:      timeline.New(timelineCapacity),
		modules: loader.New(dirList(cfg.HandlersDir), dirList(cfg.SeedsDir), log),
		fake:    faker.New(),
		log:     log,
	}

	inst.store.AddObserver(inst.storeMirror())

	mods := inst.modules.Load()
	if err := inst.rebuildRegistry(mods); err != nil {
		return nil, err
	}
	if _, err := inst.Seed(); err != nil {
		log.Warn("initial seed failed", "error", err)
	}

	log.Info("spec mounted",
		"title", docTitle(doc),
		"operations", inst.Registry().Stats().Total,
		"handlers", len(mods.Handlers))
	return inst, nil
}

// ID returns the instance identifier.
func (i *Instance) ID() string {
	return i.cfg.ID
}

// Info describes the instance for the connected greeting.
func (i *Instance) Info() (title, version, proxyPath string) {
	return docTitle(i.doc), docVersion(i.doc), i.cfg.ProxyPath
}

// Registry returns the current registry generation.
func (i *Instance) Registry() *registry.Registry {
	return i.reg.Load()
}

// SetBroadcaster wires the instance's outbound event path. Before this is
// called, state changes are simply not mirrored.
func (i *Instance) SetBroadcaster(b command.Broadcaster) {
	i.broadcast.Store(&b)
}

// CommandDeps exposes the instance to a command dispatcher.
func (i *Instance) CommandDeps() command.Deps {
	return command.Deps{
		Store:       i.store,
		Registry:    func() *registry.Registry { return i.Registry() },
		Simulations: i.sims,
		Timeline:    i.tl,
		Reseed:      i.Reseed,
		Log:         i.log,
	}
}

// Reload rescans JS modules and rebuilds the registry so handler coverage
// stays accurate. The store, simulations, and timeline survive reloads.
func (i *Instance) Reload() error {
	mods := i.modules.Load()
	if err := i.rebuildRegistry(mods); err != nil {
		return err
	}
	i.log.Info("modules reloaded", "handlers", len(mods.Handlers), "seeds", len(mods.Seeds))
	return nil
}

// Seed inserts every seed definition's records into the store, in schema
// name order. Insert failures are logged and skipped.
func (i *Instance) Seed() ([]string, error) {
	mods := i.modules.Current()
	schemas := make([]string, 0, len(mods.Seeds))
	for schema := range mods.Seeds {
		schemas = append(schemas, schema)
	}
	sort.Strings(schemas)

	seeded := make([]string, 0, len(schemas))
	for _, schema := range schemas {
		records, err := mods.Seeds[schema](i.fake)
		if err != nil {
			i.log.Warn("seed produced an error, skipping schema", "schema", schema, "error", err)
			continue
		}
		for n, rec := range records {
			if _, err := i.store.Create(schema, rec); err != nil {
				i.log.Warn("seed insert failed, skipping record", "schema", schema, "index", n, "error", err)
			}
		}
		seeded = append(seeded, schema)
	}
	return seeded, nil
}

// Reseed clears the whole store and replays every seed definition. The
// reseeded event is the only announcement, so the store mirror stays quiet
// for the intermediate clears and inserts.
func (i *Instance) Reseed() (schemas []string, err error) {
	i.store.Bulk(func() {
		i.store.ClearAll()
		schemas, err = i.Seed()
	})
	return schemas, err
}

func (i *Instance) rebuildRegistry(mods *loader.Result) error {
	reg, err := registry.Build(i.doc, mods.HasHandler)
	if err != nil {
		return err
	}
	i.reg.Store(reg)
	return nil
}

// ServeHTTP dispatches one request through the pipeline.
func (i *Instance) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if i.cfg.ProxyPath != "" {
		r = stripPrefix(r, i.cfg.ProxyPath)
	}

	route, pathParams, err := i.router.FindRoute(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, nil, map[string]any{
			"error": "Not found",
			"path":  r.URL.Path,
		})
		return
	}

	opID := operationID(route)

	// Simulations intercept before any handler runs.
	if sim := i.sims.Match(requestInfo(r)); sim != nil {
		i.serveSimulated(w, r, sim, opID, start)
		return
	}

	hctx := i.handlerContext(r, route, pathParams)
	var resp *executor.Response
	if fn, ok := i.modules.Current().Handlers[opID]; ok {
		resp = executor.Execute(hctx, opID, fn)
	} else {
		resp = i.defaultResponse(r, route)
	}

	writeJSON(w, resp.Status, resp.Headers, resp.Data)
	i.record(r, opID, resp.Status, resp.Data, hctx.Request.Body, start, false)
}

// serveSimulated answers with the simulation's synthetic response.
func (i *Instance) serveSimulated(w http.ResponseWriter, r *http.Request, sim *simulation.Simulation, opID string, start time.Time) {
	if err := simulation.ApplyDelay(r.Context(), sim); err != nil {
		// Client went away mid-delay.
		return
	}

	body := sim.Body
	if body == nil {
		body = map[string]any{
			"error":     http.StatusText(sim.Status),
			"simulated": true,
		}
	}
	writeJSON(w, sim.Status, sim.Headers, body)
	i.record(r, opID, sim.Status, body, nil, start, true)
}

// defaultResponse synthesizes a response from the operation's declared
// success response schema.
func (i *Instance) defaultResponse(r *http.Request, route *routers.Route) *executor.Response {
	status, ref := successResponse(route.Operation)

	var data any
	if ref != nil {
		data = i.fake.FromSchema(ref)
	}
	if data == nil && status != http.StatusNoContent {
		data = map[string]any{}
	}
	return &executor.Response{Status: status, Data: data}
}

// handlerContext assembles the capability surface a custom handler sees.
func (i *Instance) handlerContext(r *http.Request, route *routers.Route, pathParams map[string]string) *executor.Context {
	var body any
	if r.Body != nil && r.ContentLength != 0 {
		var decoded any
		if err := json.NewDecoder(r.Body).Decode(&decoded); err == nil {
			body = decoded
		}
	}

	query := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	var sec *security.Context
	if entry := i.Registry().Lookup(r.Method, route.Path); entry != nil && len(entry.Security) > 0 {
		sec = security.FromAuthorization(r.Header.Get("Authorization"), entry.Security)
	}

	return &executor.Context{
		Ctx: r.Context(),
		Request: &executor.Request{
			Method:     r.Method,
			Path:       r.URL.Path,
			PathParams: pathParams,
			Query:      query,
			Headers:    headers,
			Body:       body,
		},
		Store:    i.store,
		Faker:    i.fake,
		Security: sec,
		Log:      i.log,
	}
}

// record appends a timeline entry and mirrors it to inspector clients.
func (i *Instance) record(r *http.Request, opID string, status int, respBody, reqBody any, start time.Time, simulated bool) {
	entry := &timeline.Entry{
		ID:           id.Short(),
		Timestamp:    start.UTC(),
		Method:       r.Method,
		Path:         r.URL.Path,
		OperationID:  opID,
		Status:       status,
		DurationMs:   time.Since(start).Milliseconds(),
		RequestBody:  snippet(reqBody),
		ResponseBody: snippet(respBody),
		Simulated:    simulated,
	}
	i.tl.Append(entry)

	if b := i.broadcast.Load(); b != nil {
		(*b).Broadcast(&hub.ServerEvent{Type: EventTimeline, Data: map[string]any{
			"entry": entry,
		}})
	}
}

// storeMirror broadcasts handler-driven store mutations so inspector
// clients stay current without polling. Observers run outside the store
// lock.
func (i *Instance) storeMirror() store.Observer {
	emit := func(schema, action string) {
		if b := i.broadcast.Load(); b != nil {
			(*b).Broadcast(&hub.ServerEvent{Type: command.EventStoreUpdated, Data: map[string]any{
				"schema": schema,
				"action": action,
				"count":  i.store.Count(schema),
			}})
		}
	}
	return &store.FuncObserver{
		Create: func(schema string, _ store.Record) { emit(schema, "create") },
		Update: func(schema string, _ store.Record) { emit(schema, "update") },
		Delete: func(schema string, _ any) { emit(schema, "delete") },
		Clear:  func(schema string) { emit(schema, "clear") },
	}
}

func requestInfo(r *http.Request) simulation.RequestInfo {
	query := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	return simulation.RequestInfo{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   query,
		Headers: headers,
	}
}

// successResponse picks the lowest declared 2xx response and its JSON
// schema. Operations without a declared success default to 200.
func successResponse(op *openapi3.Operation) (int, *openapi3.SchemaRef) {
	if op == nil || op.Responses == nil {
		return http.StatusOK, nil
	}

	best := 0
	var ref *openapi3.SchemaRef
	for code, respRef := range op.Responses.Map() {
		n, err := strconv.Atoi(code)
		if err != nil || n < 200 || n > 299 {
			continue
		}
		if best != 0 && n >= best {
			continue
		}
		best = n
		ref = jsonSchema(respRef)
	}
	if best == 0 {
		return http.StatusOK, nil
	}
	return best, ref
}

func jsonSchema(respRef *openapi3.ResponseRef) *openapi3.SchemaRef {
	if respRef == nil || respRef.Value == nil {
		return nil
	}
	media := respRef.Value.Content.Get("application/json")
	if media == nil {
		return nil
	}
	return media.Schema
}

func operationID(route *routers.Route) string {
	if route.Operation != nil && route.Operation.OperationID != "" {
		return route.Operation.OperationID
	}
	return route.Method + " " + route.Path
}

func stripPrefix(r *http.Request, prefix string) *http.Request {
	stripped := strings.TrimPrefix(r.URL.Path, prefix)
	if stripped == "" {
		stripped = "/"
	}
	r2 := r.Clone(r.Context())
	r2.URL.Path = stripped
	return r2
}

func writeJSON(w http.ResponseWriter, status int, headers map[string]string, body any) {
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// snippet renders a compact JSON snippet of a payload for the timeline.
func snippet(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func storeConfigs(cfg config.SpecConfig) map[string]store.SchemaConfig {
	if len(cfg.Schemas) == 0 {
		return nil
	}
	out := make(map[string]store.SchemaConfig, len(cfg.Schemas))
	for name, sc := range cfg.Schemas {
		out[name] = store.SchemaConfig{IDField: sc.IDField, AutoID: sc.AutoID}
	}
	return out
}

func dirList(dir string) []string {
	if dir == "" {
		return nil
	}
	return []string{dir}
}

func docTitle(doc *openapi3.T) string {
	if doc.Info != nil {
		return doc.Info.Title
	}
	return ""
}

func docVersion(doc *openapi3.T) string {
	if doc.Info != nil {
		return doc.Info.Version
	}
	return ""
}
