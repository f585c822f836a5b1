package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"inkwell/services"
)

type wsMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func dial(t *testing.T, m *Manager, userID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Handler(m, userID)(w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestSubmissionStateReachesOwner(t *testing.T) {
	m := NewManager()
	go m.Start()

	author := primitive.NewObjectID()
	conn := dial(t, m, author.Hex())

	welcome := readMessage(t, conn)
	assert.Equal(t, "connected", welcome.Type)

	m.SubmissionState(author, "s1", services.StateSubmitting, "")

	msg := readMessage(t, conn)
	assert.Equal(t, "submission_status", msg.Type)
	assert.Equal(t, "s1", msg.Payload["session"])
	assert.Equal(t, "submitting", msg.Payload["state"])
}

func TestEventsAreScopedToAuthor(t *testing.T) {
	m := NewManager()
	go m.Start()

	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()

	ownerConn := dial(t, m, owner.Hex())
	otherConn := dial(t, m, other.Hex())

	readMessage(t, ownerConn) // welcome
	readMessage(t, otherConn) // welcome

	m.CleanupFailure(owner, "asset-old", assert.AnError)

	msg := readMessage(t, ownerConn)
	assert.Equal(t, "asset_cleanup_failed", msg.Type)
	assert.Equal(t, "asset-old", msg.Payload["publicId"])

	otherConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := otherConn.ReadMessage()
	assert.Error(t, err, "other authors must not receive the event")
}
