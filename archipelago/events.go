package archipelago

// Event is what Update hands to the caller. Exactly one of the typed
// fields is meaningful, selected by Kind.
type Event struct {
	Kind EventKind

	// EventConnected
	Seed     string
	SlotName string

	// EventReceivedItems
	StartIndex int64
	Items      []ReceivedItem

	// EventPrint, EventError
	Text string

	// EventDeathLink
	Cause  string
	Source string

	// EventKeyChanged
	Key string
}

type EventKind int

const (
	EventConnected EventKind = iota
	EventUpdated
	EventPrint
	EventReceivedItems
	EventError
	EventBounce
	EventDeathLink
	EventKeyChanged
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventUpdated:
		return "updated"
	case EventPrint:
		return "print"
	case EventReceivedItems:
		return "received_items"
	case EventError:
		return "error"
	case EventBounce:
		return "bounce"
	case EventDeathLink:
		return "death_link"
	case EventKeyChanged:
		return "key_changed"
	case EventDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// ReceivedItem is a granted item resolved against the data package:
// id is the in-game item id, Name and Sender are display strings.
type ReceivedItem struct {
	Index    int64
	ID       int64
	Name     string
	Sender   string
	Receiver string
	Remote   bool
}

// ConnState mirrors the client's connection lifecycle.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}
