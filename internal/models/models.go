package models

// Document is a labeled passage extracted from the site by the scraper.
type Document struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Hit is a raw nearest-neighbor result from the vector index.
type Hit struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}

// Citation enriches a Hit with a human-facing section title and an optional link.
type Citation struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
	Title string  `json:"title,omitempty"`
	Link  string  `json:"link,omitempty"`
}

// IndexMeta describes a built or loaded vector index.
type IndexMeta struct {
	Dimension int `json:"dimension"`
	Count     int `json:"count"`
}

// Answer is a grounded response from the generation model
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// EventKind names a Server-Sent-Events message of the answer stream.
type EventKind string

const (
	EventStatus  EventKind = "status"
	EventContext EventKind = "context"
	EventToken   EventKind = "token"
	EventDone    EventKind = "done"
	EventError   EventKind = "error"
)

// StreamEvent is one message of the answer stream. Only the field that
// belongs to Kind is populated.
type StreamEvent struct {
	Kind               EventKind
	UsingServerContext bool
	Citations          []Citation
	Text               string
	Message            string
}

// Payload returns the JSON body sent on the wire for the event.
func (e StreamEvent) Payload() any {
	switch e.Kind {
	case EventStatus:
		return map[string]any{"usingServerContext": e.UsingServerContext}
	case EventContext:
		citations := e.Citations
		if citations == nil {
			citations = []Citation{}
		}
		return map[string]any{"citations": citations}
	case EventToken:
		return map[string]any{"text": e.Text}
	case EventError:
		return map[string]any{"message": e.Message}
	default:
		return map[string]any{}
	}
}
