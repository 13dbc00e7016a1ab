package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Options tunes the websocket transport.
type Options struct {
	ReadLimit      int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	SendBuffer     int
	ChatRateLimit  int
	ChatRateWindow time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReadLimit:      cfg.ReadLimit,
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod,
		SendBuffer:     cfg.SendBuffer,
		ChatRateLimit:  cfg.ChatRateLimit,
		ChatRateWindow: cfg.ChatRateWindow,
	}
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:      64 << 10,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		SendBuffer:     64,
		ChatRateLimit:  20,
		ChatRateWindow: 10 * time.Second,
	}
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	opts    Options
	limiter *RoomRateLimiter
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	return &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewRoomRateLimiter(opts.ChatRateLimit, opts.ChatRateWindow),
	}
}

// WsSignalConn is the outbound side of one websocket. Frames are queued on
// send and written by writePump; a full queue is reported, never waited on.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until either
// side goes away. Every connection gets a fresh session id, so two tabs
// sharing a cookie are still two members.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(domain.NewUserID())
	clientToken := c.GetString("client_token")
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("client", clientToken).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, conn, clientToken, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, msg string) {
	ctl.send(c, core.ErrorEvent{Message: msg})
}

func (ctl *SignalWSController) send(c core.SignalConnection, ev core.Event) {
	if err := ctl.Orch.Router.Send(c, ev); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("event", ev.EventType()).Msg("send")
	}
}
