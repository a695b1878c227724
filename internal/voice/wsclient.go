package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// WSClient implements Client over the provider's websocket endpoint.
// One websocket connection per call: Start dials, Stop closes.
type WSClient struct {
	serverURL string
	publicKey string
	logger    *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	events chan Event
}

// NewWSClient creates a websocket voice client.
func NewWSClient(serverURL, publicKey string, logger *slog.Logger) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{
		serverURL: serverURL,
		publicKey: publicKey,
		logger:    logger,
		events:    make(chan Event, 64),
	}
}

// wsFrame is the provider's wire format, both directions.
type wsFrame struct {
	Type        string `json:"type"`
	AssistantID string `json:"assistantId,omitempty"`
	Role        string `json:"role,omitempty"`
	Content     string `json:"content,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Context     string `json:"context,omitempty"`
	Speak       bool   `json:"speak,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Start dials the provider and sends the call-open frame.
func (c *WSClient) Start(ctx context.Context, opts StartOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("voice transport already open")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.publicKey)

	//nolint:bodyclose // the websocket library owns the hijacked connection
	conn, _, err := websocket.Dial(ctx, c.serverURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return fmt.Errorf("dial voice provider: %w", err)
	}

	open := wsFrame{
		Type:        "start",
		AssistantID: opts.AssistantID,
		Context:     opts.SystemContext,
	}
	if err := writeFrame(ctx, conn, open); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "failed to open call")
		return fmt.Errorf("open call: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	go c.readLoop(readCtx, conn)

	c.logger.Info("voice transport opened", "assistant_id", opts.AssistantID)
	return nil
}

// Stop closes the current call transport. Safe to call when no call is open.
func (c *WSClient) Stop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	// Best effort: tell the provider the call is over before closing.
	if err := writeFrame(ctx, conn, wsFrame{Type: "stop"}); err != nil {
		c.logger.Debug("failed to send stop frame", "error", err)
	}
	cancel()
	if err := conn.Close(websocket.StatusNormalClosure, "call ended"); err != nil {
		c.logger.Debug("websocket close error", "error", err)
	}
	return nil
}

// Send pushes an out-of-band message into the live call.
func (c *WSClient) Send(ctx context.Context, msg OutboundMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("no active voice transport")
	}
	return writeFrame(ctx, conn, wsFrame{
		Type:    "add-message",
		Role:    msg.Role,
		Content: msg.Content,
		Speak:   msg.Speak,
	})
}

// Events returns the provider event stream.
func (c *WSClient) Events() <-chan Event {
	return c.events
}

func (c *WSClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				// Unexpected transport loss mid-call.
				c.emit(Event{Type: EventError, Err: err.Error()})
				c.emit(Event{Type: EventCallEnd})
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("unparseable voice frame", "error", err)
			continue
		}
		c.dispatch(frame)
	}
}

func (c *WSClient) dispatch(frame wsFrame) {
	switch frame.Type {
	case "call-start":
		c.emit(Event{Type: EventCallStart})
	case "call-end":
		c.emit(Event{Type: EventCallEnd})
	case "speech-start":
		c.emit(Event{Type: EventSpeechStart, Role: frame.Role})
	case "speech-end":
		c.emit(Event{Type: EventSpeechEnd, Role: frame.Role})
	case "message", "transcript":
		ts := time.Now()
		if frame.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, frame.Timestamp); err == nil {
				ts = parsed
			}
		}
		c.emit(Event{Type: EventMessage, Message: &TranscriptMessage{
			Role:      frame.Role,
			Content:   frame.Content,
			Timestamp: ts,
		}})
	case "error":
		c.emit(Event{Type: EventError, Err: frame.Error})
	default:
		c.logger.Debug("ignoring unknown voice frame", "type", frame.Type)
	}
}

// emit drops events if the consumer has fallen far behind rather than
// blocking the read loop.
func (c *WSClient) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("voice event dropped, consumer too slow", "type", ev.Type)
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame wsFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
