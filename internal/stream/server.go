// Package stream serves a running scene over a websocket. Each client
// receives JSON frames and may send commands that change plate charges or
// controller parameters; commands are applied between ticks.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/crtsim/internal/control"
	"github.com/san-kum/crtsim/internal/experiment"
	"github.com/san-kum/crtsim/internal/export"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

// ErrStopped is reported to clients whose command arrives after Run has
// returned.
var ErrStopped = errors.New("simulation stopped")

// Command is a client request.
type Command struct {
	Type   string  `json:"type"`
	Plate  string  `json:"plate,omitempty"`
	Charge float64 `json:"charge,omitempty"`
	Param  string  `json:"param,omitempty"`
	Value  float64 `json:"value,omitempty"`
}

const (
	CmdSetCharge = "set_charge"
	CmdSetParam  = "set_param"
	CmdPause     = "pause"
	CmdResume    = "resume"
)

type PlateState struct {
	Name   string  `json:"name"`
	Charge float64 `json:"charge"`
}

type FrameMessage struct {
	Type      string                `json:"type"`
	Tick      int                   `json:"tick"`
	Time      float64               `json:"time"`
	Paused    bool                  `json:"paused"`
	Hits      int                   `json:"hits"`
	Plates    []PlateState          `json:"plates"`
	Particles []export.ParticleData `json:"particles"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type request struct {
	cmd   Command
	reply chan error
}

// Server owns the experiment: only the Run goroutine steps it.
type Server struct {
	exp      *experiment.Experiment
	interval time.Duration
	steps    int
	logger   *slog.Logger
	upgrader websocket.Upgrader

	requests chan request
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	clients map[*client]struct{}
}

type Option func(*Server)

// WithInterval sets the wall-clock time between broadcast frames.
func WithInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStepsPerFrame sets how many ticks run between broadcasts.
func WithStepsPerFrame(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.steps = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(exp *experiment.Experiment, opts ...Option) *Server {
	s := &Server{
		exp:      exp,
		interval: time.Second / 30,
		steps:    2,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		requests: make(chan request),
		done:     make(chan struct{}),
		clients:  make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/scene", s.handleScene)
	return mux
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.exp.Config()); err != nil {
		s.logger.Warn("scene encode failed", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		var herr websocket.HandshakeError
		if !errors.As(err, &herr) {
			s.logger.Warn("websocket upgrade failed", "error", err)
		}
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("client connected", "remote", r.RemoteAddr)

	go s.writeLoop(c)
	s.readLoop(r.Context(), c)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	// drop closes c.send; writeLoop then flushes what is queued and closes
	// the connection.
	defer s.drop(c)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.reply(c, fmt.Errorf("bad command: %w", err))
			continue
		}
		req := request{cmd: cmd, reply: make(chan error, 1)}
		select {
		case s.requests <- req:
		case <-s.done:
			s.reply(c, ErrStopped)
			return
		case <-ctx.Done():
			return
		}
		select {
		case err := <-req.reply:
			if err != nil {
				s.reply(c, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) reply(c *client, err error) {
	data, _ := json.Marshal(ErrorMessage{Type: "error", Error: err.Error()})
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

// broadcast queues data for every client, skipping clients whose buffer
// is full.
func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Run steps the experiment and broadcasts frames until ctx is done or a
// step fails. Commands from clients are applied between frames.
func (s *Server) Run(ctx context.Context) error {
	defer s.stopOnce.Do(func() { close(s.done) })

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	paused := false
	hits := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			err := s.apply(req.cmd, &paused)
			if err != nil {
				s.logger.Warn("command rejected", "type", req.cmd.Type, "error", err)
			}
			req.reply <- err
		case <-ticker.C:
			if !paused {
				for i := 0; i < s.steps; i++ {
					report, err := s.exp.Step()
					if err != nil {
						return err
					}
					hits += len(report.Stopped)
				}
			}
			data, err := json.Marshal(s.frame(paused, hits))
			if err != nil {
				return err
			}
			s.broadcast(data)
		}
	}
}

func (s *Server) apply(cmd Command, paused *bool) error {
	switch cmd.Type {
	case CmdSetCharge:
		idx, ok := s.exp.Plates().Index(cmd.Plate)
		if !ok {
			return fmt.Errorf("unknown plate %q", cmd.Plate)
		}
		return s.exp.Plates().SetCharge(idx, cmd.Charge)
	case CmdSetParam:
		cfg, ok := s.exp.Steering().(control.Configurable)
		if !ok {
			return fmt.Errorf("controller %s has no parameters", s.exp.Steering().Name())
		}
		return cfg.SetParam(cmd.Param, cmd.Value)
	case CmdPause:
		*paused = true
	case CmdResume:
		*paused = false
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

func (s *Server) frame(paused bool, hits int) FrameMessage {
	plates := s.exp.Plates().Snapshot()
	states := make([]PlateState, len(plates))
	for i, p := range plates {
		states[i] = PlateState{Name: p.Name, Charge: p.Charge}
	}
	tick := s.exp.Manager().Ticks()
	f := export.Frame(experiment.Frame{Tick: tick, Particles: s.exp.Manager().Particles()})
	return FrameMessage{
		Type:      "frame",
		Tick:      tick,
		Time:      s.exp.Time(),
		Paused:    paused,
		Hits:      hits,
		Plates:    states,
		Particles: f.Particles,
	}
}

// ListenAndServe serves Handler on addr alongside Run and shuts both down
// when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
