// Package compose fans one shared WebSocket hub out across several
// independently running spec instances. Each instance keeps its own store,
// registry, simulations, and timeline; the only shared piece is transport.
//
// Sharing works by interception: every outbound event from an instance
// passes through a decorator that merges the originating instance's specId
// into the event data before it reaches the hub. Inbound commands are routed
// to the instance named by data.specId, defaulting to the first instance.
package compose

import (
	"log/slog"

	"github.com/websublime/vite-open-api-server-sub004/pkg/command"
	"github.com/websublime/vite-open-api-server-sub004/pkg/hub"
	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
)

// SpecInfo identifies one composed instance in the connected greeting.
type SpecInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Version   string `json:"version"`
	ProxyPath string `json:"proxyPath"`
}

// WrapSender decorates a sender so every event's data gains specId.
func WrapSender(inner command.Sender, specID string) command.Sender {
	return &taggedSender{inner: inner, specID: specID}
}

// WrapBroadcaster decorates a broadcaster so every event's data gains specId.
func WrapBroadcaster(inner command.Broadcaster, specID string) command.Broadcaster {
	return &taggedBroadcaster{inner: inner, specID: specID}
}

type taggedSender struct {
	inner  command.Sender
	specID string
}

func (s *taggedSender) Send(event *hub.ServerEvent) error {
	return s.inner.Send(tagEvent(event, s.specID))
}

type taggedBroadcaster struct {
	inner  command.Broadcaster
	specID string
}

func (b *taggedBroadcaster) Broadcast(event *hub.ServerEvent) {
	b.inner.Broadcast(tagEvent(event, b.specID))
}

// tagEvent returns a copy of the event whose data carries specId. The
// original event and its data map are never mutated; other fields are left
// untouched.
func tagEvent(event *hub.ServerEvent, specID string) *hub.ServerEvent {
	data := make(map[string]any, len(event.Data)+1)
	for k, v := range event.Data {
		data[k] = v
	}
	data["specId"] = specID
	return &hub.ServerEvent{Type: event.Type, Data: data}
}

// Member is one spec instance under composition.
type Member struct {
	Info    SpecInfo
	Handler *command.Handler
}

// Orchestrator owns the shared hub and routes between members.
type Orchestrator struct {
	hub           *hub.Hub
	serverVersion string
	log           *slog.Logger

	members []*Member
	byID    map[string]*Member
}

// NewOrchestrator creates an orchestrator over a shared hub.
func NewOrchestrator(h *hub.Hub, serverVersion string, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{
		hub:           h,
		serverVersion: serverVersion,
		log:           log,
		byID:          make(map[string]*Member),
	}
}

// Add registers a member. Order matters: the first member is the default
// routing target for commands without a specId.
func (o *Orchestrator) Add(m *Member) {
	o.members = append(o.members, m)
	o.byID[m.Info.ID] = m
}

// Broadcaster returns the specId-tagging broadcaster for one member, for
// wiring into its server-side event sources (store mirror, timeline).
func (o *Orchestrator) Broadcaster(specID string) command.Broadcaster {
	return WrapBroadcaster(o.hub, specID)
}

// Install wires the greeting and command routing into the hub. Exactly one
// connected event is sent per client regardless of how many members exist;
// it carries the full spec roster.
func (o *Orchestrator) Install() {
	o.hub.SetWelcome(func() map[string]any {
		specs := make([]SpecInfo, 0, len(o.members))
		for _, m := range o.members {
			specs = append(specs, m.Info)
		}
		return map[string]any{
			"serverVersion": o.serverVersion,
			"specs":         specs,
		}
	})

	o.hub.SetCommandHandler(func(client *hub.Client, cmd *hub.ClientCommand) {
		member := o.route(cmd)
		if member == nil {
			o.log.Warn("command for unknown spec dropped", "type", cmd.Type)
			return
		}
		specID := member.Info.ID
		member.Handler.Handle(WrapSender(client, specID), o.Broadcaster(specID), cmd)
	})
}

// route picks the member addressed by data.specId, or the first member when
// the command carries none.
func (o *Orchestrator) route(cmd *hub.ClientCommand) *Member {
	if specID, ok := cmd.Data["specId"].(string); ok && specID != "" {
		return o.byID[specID]
	}
	if len(o.members) > 0 {
		return o.members[0]
	}
	return nil
}
