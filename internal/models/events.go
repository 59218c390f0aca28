package models

// EventType discriminates SearchEvent variants on the wire.
type EventType string

const (
	EventStarted        EventType = "started"
	EventPlatformResult EventType = "platform_result"
	EventMessage        EventType = "message"
	EventCompleted      EventType = "completed"
	EventError          EventType = "error"
)

// SearchEvent is one element of the orchestrator's output stream.
// Exactly one field set besides Type, depending on the variant. The
// stream contract guarantees one terminal platform_result per
// configured source before completed.
type SearchEvent struct {
	Type     EventType `json:"type"`
	Sources  []string  `json:"sources,omitempty"`
	Source   string    `json:"source,omitempty"`
	Products []Product `json:"products,omitempty"`
	Cached   bool      `json:"cached,omitempty"`
	Text     string    `json:"text,omitempty"`
	Message  string    `json:"message,omitempty"`
}

func StartedEvent(sources []string) SearchEvent {
	return SearchEvent{Type: EventStarted, Sources: sources}
}

func PlatformResultEvent(source string, products []Product, cached bool) SearchEvent {
	if products == nil {
		products = []Product{}
	}
	return SearchEvent{Type: EventPlatformResult, Source: source, Products: products, Cached: cached}
}

func MessageEvent(text string) SearchEvent {
	return SearchEvent{Type: EventMessage, Text: text}
}

func CompletedEvent() SearchEvent {
	return SearchEvent{Type: EventCompleted}
}

func ErrorEvent(message string) SearchEvent {
	return SearchEvent{Type: EventError, Message: message}
}
