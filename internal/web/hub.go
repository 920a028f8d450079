package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 16
)

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		server: s,
	}
	if data, err := json.Marshal(s.app.Frame()); err == nil {
		client.send <- data
	}

	s.mu.Lock()
	s.clients[client] = true
	n := len(s.clients)
	s.mu.Unlock()
	s.log.Debug("websocket client connected", zap.String("remote", r.RemoteAddr), zap.Int("clients", n))

	go client.writePump()
	go client.readPump()
}

// broadcastLoop pushes every committed frame to all clients until ctx ends.
func (s *Server) broadcastLoop(ctx context.Context) {
	frames, cancel := s.app.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			data, err := json.Marshal(frame)
			if err != nil {
				s.log.Error("encode frame", zap.Uint64("seq", frame.Seq), zap.Error(err))
				continue
			}
			s.broadcast(data)
		}
	}
}

// broadcast drops clients whose send buffer is full.
func (s *Server) broadcast(message []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(s.clients, client)
			s.log.Warn("dropping slow websocket client")
		}
	}
}

func (s *Server) removeClient(c *websocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		close(c.send)
		delete(s.clients, c)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		close(client.send)
		delete(s.clients, client)
	}
}

// reply queues a message for this client only; it is dropped if the
// buffer is full or the client is gone.
func (c *websocketClient) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	if !c.server.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump applies {field, value} messages. The resulting frame reaches the
// client through the broadcast; only errors are answered directly.
func (c *websocketClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var req SetRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.reply(errorResponse{Error: "malformed message: " + err.Error()})
			continue
		}
		if _, err := c.server.apply(req); err != nil {
			c.reply(errorResponse{Error: err.Error()})
		}
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
