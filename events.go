package camlattice

// EventKind identifies a scene notification.
type EventKind uint8

const (
	EventSelectionChanged EventKind = iota
	EventNameChanged
	EventUndo
	EventRedo
	EventDeleteAll
	EventAttributeChanged
	EventNodeCreated
	EventNodeDeleted

	numEventKinds
)

var eventKindNames = [...]string{
	"SelectionChanged", "NameChanged", "Undo", "Redo",
	"deleteAll", "AttributeChanged", "NodeCreated", "NodeDeleted",
}

func (k EventKind) String() string {
	if k < numEventKinds {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is delivered to subscribers. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Node      *Node  // NameChanged, AttributeChanged, NodeCreated, NodeDeleted
	Attribute string // AttributeChanged
	OldName   string // NameChanged
	Chunk     string // Undo, Redo: name of the chunk that was replayed
}

// EventSink receives every published event after the subscribers. It is the
// hook used to forward scene events into an external system such as an ECS.
type EventSink interface {
	SceneEvent(Event)
}

// Subscription is a registered event handler. Call Unsubscribe to remove it.
type Subscription struct {
	scene *Scene
	kind  EventKind
	fn    func(Event)
	dead  bool
}

// Subscribe registers fn for events of the given kind. Handlers run
// synchronously on the publishing goroutine in subscription order.
func (s *Scene) Subscribe(kind EventKind, fn func(Event)) *Subscription {
	sub := &Subscription{scene: s, kind: kind, fn: fn}
	s.subs[kind] = append(s.subs[kind], sub)
	return sub
}

// Unsubscribe removes the handler. Safe to call from inside a handler and
// more than once.
func (sub *Subscription) Unsubscribe() {
	if sub == nil || sub.dead {
		return
	}
	sub.dead = true
	list := sub.scene.subs[sub.kind]
	for i, other := range list {
		if other == sub {
			// copy so an in-flight publish keeps iterating its own slice
			next := make([]*Subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			sub.scene.subs[sub.kind] = next
			return
		}
	}
}

// SetEventSink sets the optional event forwarder.
func (s *Scene) SetEventSink(sink EventSink) {
	s.sink = sink
}

// publish delivers e to subscribers of its kind, then to the sink.
func (s *Scene) publish(e Event) {
	for _, sub := range s.subs[e.Kind] {
		if !sub.dead {
			sub.fn(e)
		}
	}
	if s.sink != nil {
		s.sink.SceneEvent(e)
	}
}
