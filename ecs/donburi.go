package ecs

import (
	"github.com/phanxgames/camlattice"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// SceneEvent is the ECS form of a camlattice event. Nodes are referenced by
// ID and name so systems never hold scene pointers.
type SceneEvent struct {
	Kind      camlattice.EventKind
	NodeID    uint32
	Node      string
	Type      camlattice.NodeType
	Attribute string
	OldName   string
	Chunk     string
}

// SceneEventType is the Donburi event type carrying scene events.
var SceneEventType = events.NewEventType[SceneEvent]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink that publishes to SceneEventType in
// world. Events are queued until SceneEventType.ProcessEvents runs.
func NewDonburiSink(world donburi.World) camlattice.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) SceneEvent(e camlattice.Event) {
	SceneEventType.Publish(s.world, convert(e))
}

func convert(e camlattice.Event) SceneEvent {
	out := SceneEvent{
		Kind:      e.Kind,
		Attribute: e.Attribute,
		OldName:   e.OldName,
		Chunk:     e.Chunk,
	}
	if e.Node != nil {
		out.NodeID = e.Node.ID
		out.Node = e.Node.Name
		out.Type = e.Node.Type
	}
	return out
}
