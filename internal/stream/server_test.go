package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/crtsim/internal/config"
	"github.com/san-kum/crtsim/internal/experiment"
)

func startServer(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()
	exp, err := experiment.New(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	s := New(exp, WithInterval(5*time.Millisecond))

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return s, conn
}

// readUntil reads messages until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isType(typ string) func(map[string]any) bool {
	return func(m map[string]any) bool { return m["type"] == typ }
}

func TestStreamsFrames(t *testing.T) {
	_, conn := startServer(t)

	first := readUntil(t, conn, isType("frame"))
	next := readUntil(t, conn, isType("frame"))
	if next["tick"].(float64) <= first["tick"].(float64) {
		t.Errorf("expected ticks to advance, got %v then %v", first["tick"], next["tick"])
	}
	if plates := next["plates"].([]any); len(plates) != 4 {
		t.Errorf("expected 4 plates, got %d", len(plates))
	}
}

func TestSetCharge(t *testing.T) {
	s, conn := startServer(t)

	cmd := Command{Type: CmdSetCharge, Plate: "deflect-up", Charge: 1e-9}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatal(err)
	}

	readUntil(t, conn, func(m map[string]any) bool {
		if m["type"] != "frame" {
			return false
		}
		for _, p := range m["plates"].([]any) {
			plate := p.(map[string]any)
			if plate["name"] == "deflect-up" && plate["charge"].(float64) == 1e-9 {
				return true
			}
		}
		return false
	})

	idx, _ := s.exp.Plates().Index("deflect-up")
	if q, _ := s.exp.Plates().Charge(idx); q != 1e-9 {
		t.Errorf("expected charge 1e-9, got %g", q)
	}
}

func TestRejectsBadCommands(t *testing.T) {
	_, conn := startServer(t)

	tests := []Command{
		{Type: CmdSetCharge, Plate: "grid", Charge: 1},
		{Type: CmdSetParam, Param: "Kp", Value: 1},
		{Type: "reboot"},
	}
	for _, cmd := range tests {
		if err := conn.WriteJSON(cmd); err != nil {
			t.Fatal(err)
		}
		msg := readUntil(t, conn, isType("error"))
		if msg["error"] == "" {
			t.Errorf("%s: expected an error message", cmd.Type)
		}
	}
}

func TestPauseResume(t *testing.T) {
	_, conn := startServer(t)

	if err := conn.WriteJSON(Command{Type: CmdPause}); err != nil {
		t.Fatal(err)
	}
	paused := readUntil(t, conn, func(m map[string]any) bool { return m["type"] == "frame" && m["paused"] == true })
	again := readUntil(t, conn, isType("frame"))
	if again["tick"] != paused["tick"] {
		t.Errorf("expected no ticks while paused, got %v then %v", paused["tick"], again["tick"])
	}

	if err := conn.WriteJSON(Command{Type: CmdResume}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m map[string]any) bool { return m["type"] == "frame" && m["paused"] == false })
}

func TestCommandAfterRunStops(t *testing.T) {
	exp, err := experiment.New(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	s := New(exp, WithInterval(5*time.Millisecond))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- s.Run(ctx) }()
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Command{Type: CmdSetCharge, Plate: "anode", Charge: 1e-9}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, isType("error"))
	if msg["error"] != ErrStopped.Error() {
		t.Errorf("expected %q, got %v", ErrStopped, msg["error"])
	}

	// The server closes the connection instead of leaving it blocked.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	var nerr net.Error
	if err == nil || (errors.As(err, &nerr) && nerr.Timeout()) {
		t.Errorf("expected the connection to close, got %v", err)
	}
}

func TestSceneEndpoint(t *testing.T) {
	exp, err := experiment.New(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(New(exp).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/scene")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var cfg config.Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "crt" || len(cfg.Plates) != 4 {
		t.Errorf("unexpected scene %+v", cfg)
	}
}
