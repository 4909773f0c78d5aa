package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/arin/gallery-chat/internal/chat"
	"github.com/arin/gallery-chat/internal/conversation"
)

const sendBuffer = 64

// connection is one widget socket and the conversation behind it.
type connection struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	ctx     context.Context
	cancel  context.CancelFunc
	session *chat.Session
	server  *Server
	logger  zerolog.Logger
}

func (s *Server) newConnection(ws *websocket.Conn) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		id:     uuid.New().String(),
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		server: s,
	}
	c.logger = s.logger.With().Str("conn_id", c.id).Logger()

	var source chat.Source
	if s.opts.NewSource != nil {
		source = s.opts.NewSource()
	}
	c.session = chat.NewSession(source, chat.Options{
		OnChange: c.onChange,
		OnTurn:   s.opts.OnTurn,
		Logger:   &c.logger,
	})

	c.pushSnapshot(c.session.Snapshot())
	return c
}

// readPump reads widget requests until the socket fails or closes.
func (c *connection) readPump() {
	defer c.close()

	c.ws.SetReadLimit(c.server.opts.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.server.opts.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.server.opts.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump owns every write to the socket, including keepalive pings.
func (c *connection) writePump() {
	ticker := time.NewTicker(c.server.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.server.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.server.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			c.ws.WriteControl(websocket.CloseMessage, closing, time.Now().Add(c.server.opts.WriteTimeout))
			return
		}
	}
}

func (c *connection) handleMessage(data []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid JSON message")
		return
	}

	switch msg.Type {
	case TypeSubmit:
		// Submit blocks for the whole turn; reads continue so a second
		// submission is rejected rather than queued.
		go c.submit(msg.Text)
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *connection) submit(text string) {
	if _, err := c.session.Submit(c.ctx, text); err != nil {
		c.logger.Debug().Err(err).Msg("submission rejected")
		c.sendError(err.Error())
	}
}

func (c *connection) onChange(msgs []conversation.Message) {
	c.pushSnapshot(msgs)
}

func (c *connection) pushSnapshot(msgs []conversation.Message) {
	c.push(SnapshotMessage{
		Type:     TypeSnapshot,
		Messages: conversation.Visible(msgs),
		Busy:     c.session.Busy(),
	})
}

func (c *connection) sendError(text string) {
	c.push(ErrorMessage{Type: TypeError, Error: text})
}

// push queues v for the write pump. It blocks while the buffer is full so
// that no snapshot is skipped, and gives up once the connection closes.
func (c *connection) push(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode message")
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

// close disposes the conversation and releases the socket. Safe to call
// more than once.
func (c *connection) close() {
	c.once.Do(func() {
		c.cancel()
		// Release pushes first: Dispose waits for the turn, which may be
		// blocked handing a frame to the write pump.
		close(c.done)
		c.session.Dispose()
		c.server.unregister(c)
	})
}
