package websocket

import (
	"sync"
	"time"

	"fleet-manager/internal/models"

	"github.com/gorilla/websocket"
)

// EventFilters narrows the change events a client receives. Empty fields
// match everything.
type EventFilters struct {
	Resources []string `json:"resources,omitempty"`
	TruckIDs  []string `json:"truckIds,omitempty"`
	Actions   []string `json:"actions,omitempty"`
}

// Matches reports whether event passes every non-empty filter.
func (f EventFilters) Matches(event models.ChangeEvent) bool {
	if len(f.Resources) > 0 && !contains(f.Resources, event.Resource) {
		return false
	}
	if len(f.TruckIDs) > 0 && !contains(f.TruckIDs, event.Truck) {
		return false
	}
	if len(f.Actions) > 0 && !contains(f.Actions, string(event.Action)) {
		return false
	}
	return true
}

// Client is one subscribed connection.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan models.ChangeEvent

	mu       sync.RWMutex
	filters  EventFilters
	lastPing time.Time
	active   bool
}

func (c *Client) Filters() EventFilters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filters
}

func (c *Client) SetFilters(filters EventFilters) {
	c.mu.Lock()
	c.filters = filters
	c.mu.Unlock()
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastPing = time.Now()
	c.mu.Unlock()
}

// ClientStats provides statistics about connected clients
type ClientStats struct {
	TotalClients    int   `json:"totalClients"`
	ActiveClients   int   `json:"activeClients"`
	InactiveClients int   `json:"inactiveClients"`
	Published       int64 `json:"published"`
	Dropped         int64 `json:"dropped"`
}

// Message types for WebSocket communication
const (
	MessageTypeChange        = "change"
	MessageTypeUpdateFilters = "update_filters"
	MessageTypeFilters       = "filters"
)

type outboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundMessage struct {
	Type    string       `json:"type"`
	Filters EventFilters `json:"filters"`
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
