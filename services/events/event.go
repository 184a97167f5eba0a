package events

// Event is the wire envelope every message carries. EventType names the
// payload struct so subscribers can route without decoding Data first.
type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id        string      `json:"id"`
	OwnerId   string      `json:"ownerId"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	Timestamp   string `json:"timestamp"`
}
