package websocket

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"fleet-manager/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	idleTimeout  = 90 * time.Second
	sendBuffer   = 256
)

var (
	ErrBufferFull = errors.New("broadcast buffer full")
	ErrStopped    = errors.New("event hub stopped")
)

// Manager fans change events out to subscribed WebSocket clients.
type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.ChangeEvent
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	done       chan struct{}
	stopOnce   sync.Once

	published int64
	dropped   int64
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.ChangeEvent, 1000),
		upgrader: websocket.Upgrader{
			// Any origin may subscribe, matching the CORS policy.
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		done: make(chan struct{}),
	}
}

// Start begins the manager's main loop
func (m *Manager) Start() {
	go m.run()
	logrus.Info("event hub started")
}

// Stop closes every client connection and ends the main loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)

		m.mutex.Lock()
		for id, client := range m.clients {
			delete(m.clients, id)
			close(client.Send)
		}
		m.mutex.Unlock()

		logrus.Info("event hub stopped")
	})
}

func (m *Manager) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			m.clients[client.ID] = client
			m.mutex.Unlock()
			logrus.WithField("client_id", client.ID).Info("event client registered")
			go m.writeMessages(client)
			go m.readMessages(client)

		case client := <-m.unregister:
			m.remove(client.ID)

		case event := <-m.broadcast:
			m.broadcastToClients(event)

		case <-ticker.C:
			m.healthCheck()

		case <-m.done:
			return
		}
	}
}

// Upgrade switches the request to the WebSocket protocol.
func (m *Manager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return m.upgrader.Upgrade(w, r, nil)
}

// Register subscribes conn with the given filters and returns the client id.
func (m *Manager) Register(conn *websocket.Conn, filters EventFilters) (string, error) {
	client := &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		Send:     make(chan models.ChangeEvent, sendBuffer),
		filters:  filters,
		lastPing: time.Now(),
		active:   true,
	}

	select {
	case m.register <- client:
		return client.ID, nil
	case <-m.done:
		return "", ErrStopped
	}
}

// Publish queues event for delivery without blocking the caller.
func (m *Manager) Publish(event models.ChangeEvent) error {
	select {
	case <-m.done:
		return ErrStopped
	default:
	}

	select {
	case m.broadcast <- event:
		atomic.AddInt64(&m.published, 1)
		return nil
	default:
		atomic.AddInt64(&m.dropped, 1)
		return ErrBufferFull
	}
}

func (m *Manager) ConnectedClients() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

func (m *Manager) Stats() ClientStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := ClientStats{
		TotalClients: len(m.clients),
		Published:    atomic.LoadInt64(&m.published),
		Dropped:      atomic.LoadInt64(&m.dropped),
	}
	for _, client := range m.clients {
		client.mu.RLock()
		if client.active {
			stats.ActiveClients++
		} else {
			stats.InactiveClients++
		}
		client.mu.RUnlock()
	}
	return stats
}

func (m *Manager) broadcastToClients(event models.ChangeEvent) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, client := range m.clients {
		if !client.Filters().Matches(event) {
			continue
		}
		select {
		case client.Send <- event:
		default:
			client.mu.Lock()
			client.active = false
			client.mu.Unlock()
			logrus.WithField("client_id", client.ID).Warn("event client send buffer full, marking inactive")
		}
	}
}

// remove drops the client and closes its send channel, which ends the writer
// and with it the connection.
func (m *Manager) remove(id string) {
	m.mutex.Lock()
	client, ok := m.clients[id]
	if ok {
		delete(m.clients, id)
		close(client.Send)
	}
	m.mutex.Unlock()

	if ok {
		logrus.WithField("client_id", id).Info("event client unregistered")
	}
}

func (m *Manager) leave(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// readMessages handles pongs and filter updates until the connection fails.
func (m *Manager) readMessages(client *Client) {
	defer m.leave(client)

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.touch()
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("client_id", client.ID).Warn("event client read failed")
			}
			return
		}
		client.touch()

		if msg.Type == MessageTypeUpdateFilters {
			client.SetFilters(msg.Filters)
			logrus.WithField("client_id", client.ID).Debug("event client filters updated")
		}
	}
}

func (m *Manager) writeMessages(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	if err := m.write(client, outboundMessage{Type: MessageTypeFilters, Data: client.Filters()}); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-client.Send:
			if !ok {
				client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := m.write(client, outboundMessage{Type: MessageTypeChange, Data: event}); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithError(err).WithField("client_id", client.ID).Debug("event client ping failed")
				return
			}
		}
	}
}

func (m *Manager) write(client *Client, msg outboundMessage) error {
	client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.Conn.WriteJSON(msg); err != nil {
		logrus.WithError(err).WithField("client_id", client.ID).Debug("event client write failed")
		return err
	}
	return nil
}

// healthCheck removes clients that stopped answering pings.
func (m *Manager) healthCheck() {
	m.mutex.RLock()
	var stale []string
	now := time.Now()
	for id, client := range m.clients {
		client.mu.RLock()
		if now.Sub(client.lastPing) > idleTimeout {
			stale = append(stale, id)
		}
		client.mu.RUnlock()
	}
	m.mutex.RUnlock()

	for _, id := range stale {
		logrus.WithField("client_id", id).Info("event client timed out")
		m.remove(id)
	}
}
