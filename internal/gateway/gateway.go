// Package gateway pushes live state to websocket clients: ledger changes
// and daily-quiz flips on /ws/session, crash round frames on /ws/crash.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sankofa-trivia/backend/internal/auth"
	"github.com/sankofa-trivia/backend/internal/gamification"
	"github.com/sankofa-trivia/backend/internal/httpx"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 256
	readLimit    = 4096
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Message types sent to clients.
const (
	TypeProgress = "progress"
	TypeDaily    = "daily"
	TypeCrash    = "crash"
)

type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ProgressEvent struct {
	Progress models.ProgressSnapshot   `json:"progress"`
	Events   []gamification.LedgerEvent `json:"events,omitempty"`
}

type LedgerFeed interface {
	Subscribe(fn func(gamification.Change)) func()
}

type DailyWatcher interface {
	Watch(ctx context.Context, identity string, interval time.Duration, fn func(models.DailyStatus))
}

type CrashFeed interface {
	State(identity string) models.CrashState
	Subscribe(identity string) (<-chan models.CrashState, func())
}

// Connection is one authenticated websocket client.
type Connection struct {
	ID       string
	Identity string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway

	done      chan struct{}
	closeOnce sync.Once
}

// Gateway manages websocket connections.
type Gateway struct {
	ledger       LedgerFeed
	daily        DailyWatcher
	crash        CrashFeed
	pollInterval time.Duration
	upgrader     websocket.Upgrader

	mu          sync.RWMutex
	connections map[string]*Connection
}

func New(ledger LedgerFeed, daily DailyWatcher, crash CrashFeed, pollInterval time.Duration, allowedOrigins []string) *Gateway {
	g := &Gateway{
		ledger:       ledger,
		daily:        daily,
		crash:        crash,
		pollInterval: pollInterval,
		connections:  make(map[string]*Connection),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

// HandleSession streams the caller's ledger changes and daily-gate flips.
func (g *Gateway) HandleSession(w http.ResponseWriter, r *http.Request) {
	c := g.accept(w, r)
	if c == nil {
		return
	}

	unsubscribe := g.ledger.Subscribe(func(ch gamification.Change) {
		if ch.Identity == c.Identity {
			c.enqueue(TypeProgress, ProgressEvent{Progress: ch.Snapshot, Events: ch.Events})
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go g.daily.Watch(ctx, c.Identity, g.pollInterval, func(s models.DailyStatus) {
		c.enqueue(TypeDaily, s)
	})

	go func() {
		<-c.done
		cancel()
		unsubscribe()
	}()

	go c.readPump()
	go c.writePump()
}

// HandleCrash streams the caller's crash round, starting with its current
// state.
func (g *Gateway) HandleCrash(w http.ResponseWriter, r *http.Request) {
	c := g.accept(w, r)
	if c == nil {
		return
	}

	events, unsubscribe := g.crash.Subscribe(c.Identity)
	c.enqueue(TypeCrash, g.crash.State(c.Identity))

	go func() {
		defer unsubscribe()
		for {
			select {
			case <-c.done:
				return
			case st, ok := <-events:
				if !ok {
					return
				}
				c.enqueue(TypeCrash, st)
			}
		}
	}()

	go c.readPump()
	go c.writePump()
}

// Count reports the number of open connections.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// Close disconnects every client.
func (g *Gateway) Close() {
	g.mu.RLock()
	conns := make([]*Connection, 0, len(g.connections))
	for _, c := range g.connections {
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

func (g *Gateway) accept(w http.ResponseWriter, r *http.Request) *Connection {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return nil
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("[gateway] upgrade error: %v", err)
		return nil
	}

	c := &Connection{
		ID:       uuid.NewString(),
		Identity: ident.ID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Gateway:  g,
		done:     make(chan struct{}),
	}

	g.mu.Lock()
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"conn":     c.ID,
		"identity": c.Identity,
		"path":     r.URL.Path,
		"total":    total,
	}).Info("[gateway] client connected")
	return c
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	delete(g.connections, c.ID)
	total := len(g.connections)
	g.mu.Unlock()

	logrus.WithFields(logrus.Fields{"conn": c.ID, "total": total}).Info("[gateway] client disconnected")
}

// enqueue never blocks the producer. A client that cannot keep up is
// disconnected.
func (c *Connection) enqueue(kind string, data interface{}) {
	msg, err := json.Marshal(Envelope{Type: kind, Data: data})
	if err != nil {
		logrus.Warnf("[gateway] marshal %s: %v", kind, err)
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.Send <- msg:
	case <-c.done:
	default:
		logrus.WithField("conn", c.ID).Warn("[gateway] send buffer full, dropping client")
		c.close()
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump only services control frames; clients send nothing else.
func (c *Connection) readPump() {
	defer func() {
		c.close()
		c.Gateway.removeConnection(c)
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logrus.WithField("conn", c.ID).Warnf("[gateway] read error: %v", err)
			}
			return
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// originChecker accepts same-origin requests, requests without an Origin
// header, and any origin in allowed. "*" allows everything.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set[origin] {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
