package handoff

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"robovision/internal/logger"
	"robovision/internal/models"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

// CoordinateMessage is the JSON pushed to the robot-control socket.
type CoordinateMessage struct {
	QueryID  string  `json:"query_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	SentAtMs int64   `json:"sent_at_ms"`
}

// WebSocketSink keeps a connection to the robot controller and pushes
// coordinates over it. Publishes made while disconnected are dropped.
type WebSocketSink struct {
	serverURL        string
	retryDelay       time.Duration
	handshakeTimeout time.Duration

	outbox chan CoordinateMessage
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	connected bool
}

func NewWebSocketSink(serverURL string) *WebSocketSink {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketSink{
		serverURL:        serverURL,
		retryDelay:       2 * time.Second,
		handshakeTimeout: 10 * time.Second,
		outbox:           make(chan CoordinateMessage, 5),
		ctx:              ctx,
		cancel:           cancel,
	}
}

func (s *WebSocketSink) Start() {
	s.wg.Add(1)
	go s.runLoop()
}

func (s *WebSocketSink) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *WebSocketSink) Publish(result *models.QueryResult) error {
	c := result.Coordinates
	fields := logger.Fields{"query_id": result.ID, "coordinates": c.String()}

	if !s.Connected() {
		fields["url"] = s.serverURL
		logger.Warn(fields, "robot link down, coordinates dropped")
		return nil
	}

	msg := CoordinateMessage{
		QueryID:  result.ID,
		X:        c.X,
		Y:        c.Y,
		Z:        c.Z,
		SentAtMs: time.Now().UnixMilli(),
	}

	select {
	case s.outbox <- msg:
	default:
		logger.Warn(fields, "robot link busy, coordinates dropped")
	}

	return nil
}

// Close aborts any dial in progress and waits for the connection loop to exit.
func (s *WebSocketSink) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *WebSocketSink) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

// dial connects to the controller. Closing the sink tears down a half-open
// connection, so a stalled handshake never outlives Close.
func (s *WebSocketSink) dial() (*websocket.Conn, error) {
	var stopWatch func() bool

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: s.handshakeTimeout,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			stopWatch = context.AfterFunc(s.ctx, func() { conn.Close() })
			return conn, nil
		},
	}

	conn, _, err := dialer.DialContext(s.ctx, s.serverURL, nil)
	if stopWatch != nil {
		stopWatch()
	}
	return conn, err
}

func (s *WebSocketSink) runLoop() {
	defer s.wg.Done()

	for {
		if s.ctx.Err() != nil {
			return
		}

		logger.Info(logger.Fields{"url": s.serverURL}, "connecting to robot controller")
		conn, err := s.dial()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			logger.Warn(logger.Fields{"error": err.Error(), "retry_in": s.retryDelay.String()}, "robot controller connection failed")
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(s.retryDelay):
			}
			continue
		}

		logger.Info(logger.Fields{"url": s.serverURL}, "connected to robot controller")
		s.setConnected(true)

		err = s.serve(conn)
		s.setConnected(false)
		conn.Close()

		if err == nil {
			return
		}
		logger.Warn(logger.Fields{"error": err.Error()}, "robot controller connection lost")
	}
}

// serve returns nil when the sink is closed and the error that broke the
// connection otherwise.
func (s *WebSocketSink) serve(conn *websocket.Conn) error {
	errChan := make(chan error, 1)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				errChan <- err
				return
			}
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case err := <-errChan:
			return err

		case msg := <-s.outbox:
			data, err := jsoniter.Marshal(msg)
			if err != nil {
				logger.Error(logger.Fields{"error": err.Error()}, "encode coordinates")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		}
	}
}
