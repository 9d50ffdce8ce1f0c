package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleet-manager/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFilters_Matches(t *testing.T) {
	event := models.ChangeEvent{
		Resource: models.ResourceTrip,
		Action:   models.ChangeCreated,
		ID:       "t1",
		Truck:    "truck-1",
	}

	tests := []struct {
		name    string
		filters EventFilters
		want    bool
	}{
		{"empty", EventFilters{}, true},
		{"resource match", EventFilters{Resources: []string{"truck", "trip"}}, true},
		{"resource miss", EventFilters{Resources: []string{"expense"}}, false},
		{"truck match", EventFilters{TruckIDs: []string{"truck-1"}}, true},
		{"truck miss", EventFilters{TruckIDs: []string{"truck-2"}}, false},
		{"action miss", EventFilters{Actions: []string{"deleted"}}, false},
		{"all match", EventFilters{Resources: []string{"trip"}, TruckIDs: []string{"truck-1"}, Actions: []string{"created"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Matches(event))
		})
	}
}

// subscribe starts a test server backed by manager and dials it. The returned
// connection has already received the filters acknowledgement, so the client
// is registered.
func subscribe(t *testing.T, manager *Manager, filters EventFilters) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := manager.Upgrade(w, r)
		if err != nil {
			return
		}
		if _, err := manager.Register(conn, filters); err != nil {
			conn.Close()
		}
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var ack struct {
		Type string       `json:"type"`
		Data EventFilters `json:"data"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, MessageTypeFilters, ack.Type)
	require.Equal(t, filters, ack.Data)
	return conn
}

type changeMessage struct {
	Type string             `json:"type"`
	Data models.ChangeEvent `json:"data"`
}

func TestManager_PublishRespectsFilters(t *testing.T) {
	manager := NewManager()
	manager.Start()
	defer manager.Stop()

	conn := subscribe(t, manager, EventFilters{Resources: []string{models.ResourceTrip}})
	assert.Equal(t, 1, manager.ConnectedClients())

	require.NoError(t, manager.Publish(models.ChangeEvent{Resource: models.ResourceTruck, Action: models.ChangeCreated, ID: "truck-1"}))
	require.NoError(t, manager.Publish(models.ChangeEvent{Resource: models.ResourceTrip, Action: models.ChangeCreated, ID: "trip-1"}))

	var msg changeMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeChange, msg.Type)
	assert.Equal(t, "trip-1", msg.Data.ID)

	stats := manager.Stats()
	assert.Equal(t, 1, stats.TotalClients)
	assert.Equal(t, int64(2), stats.Published)
}

func TestManager_UpdateFilters(t *testing.T) {
	manager := NewManager()
	manager.Start()
	defer manager.Stop()

	conn := subscribe(t, manager, EventFilters{Resources: []string{models.ResourceTrip}})

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    MessageTypeUpdateFilters,
		"filters": map[string]interface{}{"resources": []string{models.ResourceExpense}},
	}))

	assert.Eventually(t, func() bool {
		manager.mutex.RLock()
		defer manager.mutex.RUnlock()
		for _, client := range manager.clients {
			f := client.Filters()
			return len(f.Resources) == 1 && f.Resources[0] == models.ResourceExpense
		}
		return false
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, manager.Publish(models.ChangeEvent{Resource: models.ResourceTrip, ID: "trip-1"}))
	require.NoError(t, manager.Publish(models.ChangeEvent{Resource: models.ResourceExpense, Kind: models.ExpenseMonthly, ID: "exp-1"}))

	var msg changeMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "exp-1", msg.Data.ID)
	assert.Equal(t, models.ExpenseMonthly, msg.Data.Kind)
}

func TestManager_ClientDisconnect(t *testing.T) {
	manager := NewManager()
	manager.Start()
	defer manager.Stop()

	conn := subscribe(t, manager, EventFilters{})
	require.Equal(t, 1, manager.ConnectedClients())

	conn.Close()

	assert.Eventually(t, func() bool {
		return manager.ConnectedClients() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_Stop(t *testing.T) {
	manager := NewManager()
	manager.Start()

	conn := subscribe(t, manager, EventFilters{})

	manager.Stop()
	manager.Stop()

	assert.Equal(t, 0, manager.ConnectedClients())
	assert.ErrorIs(t, manager.Publish(models.ChangeEvent{ID: "late"}), ErrStopped)

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestManager_PublishBufferFull(t *testing.T) {
	// Not started, so nothing drains the broadcast buffer.
	manager := NewManager()
	defer manager.Stop()

	var err error
	for i := 0; i < cap(manager.broadcast)+1; i++ {
		err = manager.Publish(models.ChangeEvent{ID: "x"})
	}
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, int64(1), manager.Stats().Dropped)
}
