package engine

import (
	"encoding/json"

	"lumia-router/internal/catalog"
)

// MessageType tags a search response message.
type MessageType string

const (
	MessageStart    MessageType = "START"
	MessageProgress MessageType = "PROGRESS"
	MessageFinish   MessageType = "FINISH"
	MessageError    MessageType = "ERROR"
)

// Message is one element of a search's response stream:
// exactly one START, zero or more PROGRESS, then exactly one FINISH.
// ERROR replaces the whole stream when a request is rejected.
type Message struct {
	Type     MessageType
	SearchID string // set by the transport, empty inside the engine
	Total    uint64
	Current  uint64
	Routes   [][]int32
	Err      error
}

// MarshalJSON emits only the fields that belong to the message type.
func (m Message) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"type": m.Type}
	if m.SearchID != "" {
		out["searchId"] = m.SearchID
	}
	switch m.Type {
	case MessageStart:
		out["total"] = m.Total
	case MessageProgress:
		out["current"] = m.Current
		out["total"] = m.Total
	case MessageFinish:
		routes := m.Routes
		if routes == nil {
			routes = [][]int32{}
		}
		out["routes"] = routes
	case MessageError:
		msg := ""
		if m.Err != nil {
			msg = m.Err.Error()
		}
		out["message"] = msg
	}
	return json.Marshal(out)
}

// User is a roster entry as sent by the caller.
type User struct {
	CharacterCode   int32  `json:"characterCode"`
	StartWeaponType string `json:"startWeaponType"`
}

// Request is the search worker's request message.
type Request struct {
	RequiredItemCounts catalog.ItemCounts `json:"requiredItemCounts"`
	Users              []User             `json:"users"`
}

// SearchRequest is a fully resolved search input.
type SearchRequest struct {
	Required catalog.ItemCounts
	Roster   []catalog.ItemCounts
	Areas    []int32
}

// SearchOutcome summarises a finished search.
type SearchOutcome struct {
	Total     uint64    `json:"total"`
	Examined  uint64    `json:"examined"`
	Found     bool      `json:"found"`
	RouteSize int       `json:"route_size"`
	Routes    [][]int32 `json:"routes"`
}
