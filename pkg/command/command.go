// Package command maps inbound inspector commands onto store, registry,
// simulation, and timeline operations, and emits the matching server events.
//
// Dispatch is a pure table over the command type string. Every command
// either answers the requester directly (unicast) or mutates state and then
// both broadcasts the change and acknowledges the requester. Dispatch never
// propagates errors outward: unknown types are logged and ignored, and
// per-item failures inside a batch are skipped without aborting the rest.
package command

import (
	"log/slog"

	"github.com/websublime/vite-open-api-server-sub004/pkg/hub"
	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
	"github.com/websublime/vite-open-api-server-sub004/pkg/registry"
	"github.com/websublime/vite-open-api-server-sub004/pkg/simulation"
	"github.com/websublime/vite-open-api-server-sub004/pkg/store"
	"github.com/websublime/vite-open-api-server-sub004/pkg/timeline"
)

// Command type strings accepted from clients.
const (
	CmdGetRegistry     = "get:registry"
	CmdGetTimeline     = "get:timeline"
	CmdGetStore        = "get:store"
	CmdGetSimulations  = "get:simulations"
	CmdSetStore        = "set:store"
	CmdClearStore      = "clear:store"
	CmdSetSimulation   = "set:simulation"
	CmdClearSimulation = "clear:simulation"
	CmdClearTimeline   = "clear:timeline"
	CmdReseed          = "reseed"
)

// Event type strings emitted to clients.
const (
	EventRegistry          = "registry"
	EventTimeline          = "timeline"
	EventStore             = "store"
	EventStoreUpdated      = "store:updated"
	EventStoreSet          = "store:set"
	EventStoreCleared      = "store:cleared"
	EventSimulationActive  = "simulation:active"
	EventSimulationAdded   = "simulation:added"
	EventSimulationSet     = "simulation:set"
	EventSimulationRemoved = "simulation:removed"
	EventSimulationCleared = "simulation:cleared"
	EventTimelineCleared   = "timeline:cleared"
	EventReseeded          = "reseeded"
)

// DefaultTimelineLimit is used when a get:timeline command carries no limit.
const DefaultTimelineLimit = 50

// Sender delivers an event to a single client. *hub.Client satisfies it.
type Sender interface {
	Send(event *hub.ServerEvent) error
}

// Broadcaster delivers an event to every connected client. *hub.Hub
// satisfies it.
type Broadcaster interface {
	Broadcast(event *hub.ServerEvent)
}

// Deps are the collaborators one spec instance exposes to its dispatcher.
// Registry is a getter because the registry is rebuilt wholesale on reload.
type Deps struct {
	Store       *store.Store
	Registry    func() *registry.Registry
	Simulations *simulation.Manager
	Timeline    *timeline.Timeline

	// Reseed clears the store and replays every seed definition, returning
	// the schema names that were reseeded.
	Reseed func() ([]string, error)

	Log *slog.Logger
}

// Handler dispatches client commands for one spec instance.
type Handler struct {
	deps Deps
	log  *slog.Logger
}

// New creates a dispatcher.
func New(deps Deps) *Handler {
	log := deps.Log
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{deps: deps, log: log}
}

// Bind adapts the dispatcher to the hub's command handler signature with a
// fixed broadcaster.
func (h *Handler) Bind(b Broadcaster) hub.CommandFunc {
	return func(client *hub.Client, cmd *hub.ClientCommand) {
		h.Handle(client, b, cmd)
	}
}

// Handle dispatches one command. Unknown types are logged and produce no
// response.
func (h *Handler) Handle(client Sender, bcast Broadcaster, cmd *hub.ClientCommand) {
	switch cmd.Type {
	case CmdGetRegistry:
		h.getRegistry(client)
	case CmdGetTimeline:
		h.getTimeline(client, cmd.Data)
	case CmdGetStore:
		h.getStore(client, cmd.Data)
	case CmdGetSimulations:
		h.sendActiveSimulations(client)
	case CmdSetStore:
		h.setStore(client, bcast, cmd.Data)
	case CmdClearStore:
		h.clearStore(client, bcast, cmd.Data)
	case CmdSetSimulation:
		h.setSimulation(client, bcast, cmd.Data)
	case CmdClearSimulation:
		h.clearSimulation(client, bcast, cmd.Data)
	case CmdClearTimeline:
		h.clearTimeline(client, bcast)
	case CmdReseed:
		h.reseed(client, bcast)
	default:
		h.log.Warn("unhandled command type", "type", cmd.Type)
	}
}

func (h *Handler) getRegistry(client Sender) {
	reg := h.deps.Registry()
	data := map[string]any{
		"endpoints": []*registry.Entry{},
		"stats":     registry.Stats{ByMethod: map[string]int{}},
	}
	if reg != nil {
		data["endpoints"] = reg.Entries()
		data["stats"] = reg.Stats()
	}
	h.send(client, &hub.ServerEvent{Type: EventRegistry, Data: data})

	// The registry view and the active simulations are always refreshed
	// together so the inspector never shows stale fault markers.
	h.sendActiveSimulations(client)
}

func (h *Handler) sendActiveSimulations(client Sender) {
	h.send(client, &hub.ServerEvent{Type: EventSimulationActive, Data: map[string]any{
		"simulations": h.deps.Simulations.List(),
	}})
}

func (h *Handler) getTimeline(client Sender, data map[string]any) {
	limit := intField(data, "limit", DefaultTimelineLimit)
	entries := h.deps.Timeline.Slice(limit)
	h.send(client, &hub.ServerEvent{Type: EventTimeline, Data: map[string]any{
		"entries": entries,
		"count":   len(entries),
		"total":   h.deps.Timeline.Total(),
	}})
}

func (h *Handler) getStore(client Sender, data map[string]any) {
	schema := stringField(data, "schema")
	items := h.deps.Store.List(schema)
	h.send(client, &hub.ServerEvent{Type: EventStore, Data: map[string]any{
		"schema": schema,
		"items":  items,
		"count":  len(items),
	}})
}

func (h *Handler) setStore(client Sender, bcast Broadcaster, data map[string]any) {
	schema := stringField(data, "schema")
	items, _ := data["items"].([]any)

	// The replacement announces itself as one aggregate event below, so
	// per-record observer notifications stay suppressed.
	inserted := 0
	h.deps.Store.Bulk(func() {
		h.deps.Store.Clear(schema)
		for i, item := range items {
			rec, ok := item.(map[string]any)
			if !ok {
				h.log.Warn("set:store item is not an object, skipping", "schema", schema, "index", i)
				continue
			}
			if _, err := h.deps.Store.Create(schema, rec); err != nil {
				h.log.Warn("set:store insert failed, skipping", "schema", schema, "index", i, "error", err)
				continue
			}
			inserted++
		}
	})

	h.broadcast(bcast, &hub.ServerEvent{Type: EventStoreUpdated, Data: map[string]any{
		"schema": schema,
		"action": "bulk",
		"count":  inserted,
	}})
	h.send(client, &hub.ServerEvent{Type: EventStoreSet, Data: map[string]any{
		"success": true,
		"schema":  schema,
		"count":   inserted,
	}})
}

func (h *Handler) clearStore(client Sender, bcast Broadcaster, data map[string]any) {
	schema := stringField(data, "schema")
	h.deps.Store.Bulk(func() {
		h.deps.Store.Clear(schema)
	})

	h.broadcast(bcast, &hub.ServerEvent{Type: EventStoreUpdated, Data: map[string]any{
		"schema": schema,
		"action": "clear",
		"count":  0,
	}})
	h.send(client, &hub.ServerEvent{Type: EventStoreCleared, Data: map[string]any{
		"success": true,
		"schema":  schema,
	}})
}

func (h *Handler) setSimulation(client Sender, bcast Broadcaster, data map[string]any) {
	sim := simulationFromPayload(data)
	if sim.Path == "" {
		h.log.Warn("set:simulation missing path")
		h.send(client, &hub.ServerEvent{Type: EventSimulationSet, Data: map[string]any{
			"success": false,
			"error":   "missing path",
		}})
		return
	}

	if err := h.deps.Simulations.Set(sim); err != nil {
		h.log.Warn("set:simulation rejected", "path", sim.Path, "error", err)
		h.send(client, &hub.ServerEvent{Type: EventSimulationSet, Data: map[string]any{
			"success": false,
			"path":    sim.Path,
			"error":   err.Error(),
		}})
		return
	}

	h.broadcast(bcast, &hub.ServerEvent{Type: EventSimulationAdded, Data: map[string]any{
		"simulation": sim,
	}})
	h.send(client, &hub.ServerEvent{Type: EventSimulationSet, Data: map[string]any{
		"success": true,
		"path":    sim.Path,
	}})
}

func (h *Handler) clearSimulation(client Sender, bcast Broadcaster, data map[string]any) {
	path := stringField(data, "path")
	removed := h.deps.Simulations.Remove(path)

	if removed {
		h.broadcast(bcast, &hub.ServerEvent{Type: EventSimulationRemoved, Data: map[string]any{
			"path": path,
		}})
	}
	h.send(client, &hub.ServerEvent{Type: EventSimulationCleared, Data: map[string]any{
		"success": removed,
		"path":    path,
	}})
}

func (h *Handler) clearTimeline(client Sender, bcast Broadcaster) {
	prior := h.deps.Timeline.Clear()
	data := map[string]any{"count": prior}

	h.broadcast(bcast, &hub.ServerEvent{Type: EventTimelineCleared, Data: data})
	h.send(client, &hub.ServerEvent{Type: EventTimelineCleared, Data: data})
}

func (h *Handler) reseed(client Sender, bcast Broadcaster) {
	data := map[string]any{"success": true, "schemas": []string{}}
	if h.deps.Reseed == nil {
		data["success"] = false
	} else if schemas, err := h.deps.Reseed(); err != nil {
		h.log.Warn("reseed failed", "error", err)
		data["success"] = false
	} else {
		data["schemas"] = schemas
	}

	h.broadcast(bcast, &hub.ServerEvent{Type: EventReseeded, Data: data})
	h.send(client, &hub.ServerEvent{Type: EventReseeded, Data: data})
}

func (h *Handler) send(client Sender, event *hub.ServerEvent) {
	if client == nil {
		return
	}
	if err := client.Send(event); err != nil {
		h.log.Debug("unicast failed", "type", event.Type, "error", err)
	}
}

func (h *Handler) broadcast(bcast Broadcaster, event *hub.ServerEvent) {
	if bcast != nil {
		bcast.Broadcast(event)
	}
}

// simulationFromPayload extracts a simulation definition from untyped
// command data.
func simulationFromPayload(data map[string]any) *simulation.Simulation {
	sim := &simulation.Simulation{
		Path:        stringField(data, "path"),
		OperationID: stringField(data, "operationId"),
		Status:      intField(data, "status", 500),
		DelayMs:     intField(data, "delayMs", 0),
		Body:        data["body"],
		When:        stringField(data, "when"),
	}
	if rawHeaders, ok := data["headers"].(map[string]any); ok {
		sim.Headers = make(map[string]string, len(rawHeaders))
		for k, v := range rawHeaders {
			if s, ok := v.(string); ok {
				sim.Headers[k] = s
			}
		}
	}
	return sim
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

func intField(data map[string]any, key string, def int) int {
	if data == nil {
		return def
	}
	switch n := data[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return def
	}
}
