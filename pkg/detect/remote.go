package detect

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/focuswatch/go-focuswatch/internal/log"
	"github.com/focuswatch/go-focuswatch/pkg/landmark"
)

const (
	remoteDialTimeout  = 5 * time.Second
	remoteWriteTimeout = 2 * time.Second
	remoteReadTimeout  = 2 * time.Second
)

// Remote talks to a landmark sidecar over websocket. The protocol is
// strict request/response: one binary JPEG frame out, one JSON payload back.
type Remote struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	scheme landmark.Scheme
}

// NewRemote dials the sidecar at url (e.g. ws://127.0.0.1:9004/landmarks).
func NewRemote(url string, scheme landmark.Scheme) (*Remote, error) {
	dialer := websocket.Dialer{HandshakeTimeout: remoteDialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("detect: dial %s: %w", url, err)
	}
	log.Info("landmark sidecar connected", "url", url, "scheme", scheme.Name())
	return &Remote{conn: conn, scheme: scheme}, nil
}

// Detect sends one frame and waits for its landmarks. Calls are serialized:
// the sidecar processes exactly one frame at a time.
func (r *Remote) Detect(jpeg []byte) (*landmark.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conn.SetWriteDeadline(time.Now().Add(remoteWriteTimeout)); err != nil {
		return nil, fmt.Errorf("detect: set write deadline: %w", err)
	}
	if err := r.conn.WriteMessage(websocket.BinaryMessage, jpeg); err != nil {
		return nil, fmt.Errorf("detect: send frame: %w", err)
	}

	if err := r.conn.SetReadDeadline(time.Now().Add(remoteReadTimeout)); err != nil {
		return nil, fmt.Errorf("detect: set read deadline: %w", err)
	}
	_, raw, err := r.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("detect: read payload: %w", err)
	}
	return decodePayload(raw, r.scheme)
}

// Close shuts the websocket down cleanly.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	deadline := time.Now().Add(remoteWriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := r.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.Warn("landmark sidecar close handshake failed", "error", err)
	}
	return r.conn.Close()
}
