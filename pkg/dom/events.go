package dom

// Event is dispatched synchronously through the node tree.
type Event struct {
	Type          string
	Target        *Node
	CurrentTarget *Node
	Detail        any

	stopped bool
}

// NewEvent builds an event of the given type with an optional payload.
func NewEvent(eventType string, detail any) *Event {
	return &Event{Type: eventType, Detail: detail}
}

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Listener handles an event. A returned error aborts dispatch.
type Listener func(evt *Event) error

// AddEventListener registers a listener for the given event type.
func (n *Node) AddEventListener(eventType string, listener Listener) {
	if listener == nil || eventType == "" {
		return
	}
	if n.listeners == nil {
		n.listeners = make(map[string][]Listener)
	}
	n.listeners[eventType] = append(n.listeners[eventType], listener)
}

// ListenerCount reports how many listeners are registered for eventType.
func (n *Node) ListenerCount(eventType string) int {
	return len(n.listeners[eventType])
}

// Dispatch fires evt on n and bubbles it to every ancestor unless a listener
// stops propagation. The first listener error stops dispatch and is returned.
func (n *Node) Dispatch(evt *Event) error {
	if evt == nil {
		return nil
	}
	evt.Target = n
	for node := n; node != nil; node = node.Parent {
		evt.CurrentTarget = node
		for _, listener := range append([]Listener(nil), node.listeners[evt.Type]...) {
			if err := listener(evt); err != nil {
				return err
			}
		}
		if evt.stopped {
			break
		}
	}
	return nil
}
