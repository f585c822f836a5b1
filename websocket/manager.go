// Package websocket streams submission status events to authoring clients.
package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"inkwell/services"
)

type Manager struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan event
	mu         sync.RWMutex
}

type Client struct {
	conn    *websocket.Conn
	userID  string
	send    chan []byte
	manager *Manager
}

// event targets one author's connected clients.
type event struct {
	userID  string
	payload []byte
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan event, 64),
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			m.mu.Unlock()
			log.Printf("websocket client registered, total: %d", m.ClientCount())

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
			}
			m.mu.Unlock()

		case ev := <-m.events:
			var stalled []*Client
			m.mu.RLock()
			for client := range m.clients {
				if client.userID != ev.userID {
					continue
				}
				select {
				case client.send <- ev.payload:
				default:
					stalled = append(stalled, client)
				}
			}
			m.mu.RUnlock()
			if len(stalled) > 0 {
				m.mu.Lock()
				for _, client := range stalled {
					if _, ok := m.clients[client]; ok {
						delete(m.clients, client)
						close(client.send)
					}
				}
				m.mu.Unlock()
			}
		}
	}
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) emit(userID string, msgType string, payload map[string]interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type":    msgType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("marshal websocket event: %v", err)
		return
	}
	m.events <- event{userID: userID, payload: data}
}

// SubmissionState implements services.StatusSink: every submission
// transition reaches the author's open forms so they can render spinners
// and banners.
func (m *Manager) SubmissionState(authorID primitive.ObjectID, session string, state services.State, message string) {
	m.emit(authorID.Hex(), "submission_status", map[string]interface{}{
		"session": session,
		"state":   string(state),
		"message": message,
	})
}

// CleanupFailure implements services.StatusSink for non-fatal asset
// cleanup errors.
func (m *Manager) CleanupFailure(authorID primitive.ObjectID, publicID string, err error) {
	m.emit(authorID.Hex(), "asset_cleanup_failed", map[string]interface{}{
		"publicId": publicID,
		"error":    err.Error(),
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades a connection for an authenticated author. The userID is
// resolved by the caller (JWT middleware) before the upgrade.
func Handler(manager *Manager, userID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			conn:    conn,
			userID:  userID,
			send:    make(chan []byte, 256),
			manager: manager,
		}

		manager.register <- client

		welcome, _ := json.Marshal(map[string]interface{}{
			"type": "connected",
			"payload": map[string]interface{}{
				"userId": userID,
				"time":   time.Now().Unix(),
			},
		})
		client.send <- welcome

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			break
		}

		var data map[string]interface{}
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}

		// The status feed is one-way; clients only ping.
		if data["type"] == "ping" {
			pong, _ := json.Marshal(map[string]interface{}{"type": "pong"})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
