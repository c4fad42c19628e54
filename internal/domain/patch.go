package domain

import "time"

// EntityPatch is an entity update fanned out to subscribers after an event is applied
type EntityPatch struct {
	Topic       string    `json:"topic"` // example: "protocol", "account.<address>.daily"
	Kind        string    `json:"kind"`  // entity kind, example "protocol_daily"
	EventID     string    `json:"event_id"`
	GeneratedAt time.Time `json:"ts"`
	Entity      any       `json:"entity"`
}
