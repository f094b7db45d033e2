package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/ptt-signaling/config"
	"github.com/mossy-p/ptt-signaling/internal/codec"
	"github.com/mossy-p/ptt-signaling/internal/models"
	"github.com/mossy-p/ptt-signaling/internal/registry"
)

type testServer struct {
	*httptest.Server
	relay *Relay
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	relay := NewRelay(registry.New(), Options{MaxMessageSize: 64 << 10})
	cfg := &config.Config{Environment: "test", AllowedOrigins: []string{"*"}}
	srv := httptest.NewServer(NewRouter(cfg, relay))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		relay.Shutdown(ctx)
		srv.Close()
	})
	return &testServer{Server: srv, relay: relay}
}

type testPeer struct {
	t     *testing.T
	conn  *websocket.Conn
	codec codec.Codec
	id    string
}

func (s *testServer) dial(t *testing.T, codecName string) *testPeer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	if codecName != "" {
		url += "?codec=" + codecName
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c, _ := codec.ByName(codecName)
	p := &testPeer{t: t, conn: conn, codec: c}

	var connected models.ConnectedEvent
	p.expect(models.EventConnected, &connected)
	if connected.ID == "" {
		t.Fatal("connected event without id")
	}
	p.id = connected.ID
	return p
}

func (p *testPeer) emit(event string, data any) {
	p.t.Helper()
	frame, err := codec.JSON.Encode(event, data)
	if err != nil {
		p.t.Fatalf("encode: %v", err)
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

func (p *testPeer) expect(event string, v any) {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, raw, err := p.conn.ReadMessage()
	if err != nil {
		p.t.Fatalf("read %s: %v", event, err)
	}
	if messageType != p.codec.FrameType() {
		p.t.Fatalf("frame type = %d, want %d", messageType, p.codec.FrameType())
	}
	frame, err := p.codec.Decode(raw)
	if err != nil {
		p.t.Fatalf("decode: %v", err)
	}
	if frame.Event != event {
		p.t.Fatalf("got event %q, want %q", frame.Event, event)
	}
	if err := frame.Bind(v); err != nil {
		p.t.Fatalf("bind: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestSignalingSession(t *testing.T) {
	srv := newTestServer(t)

	guard := srv.dial(t, "")
	radio := srv.dial(t, "msgpack")

	guard.emit(models.EventRegister, map[string]any{"role": "security", "name": "Alpha"})
	var registered models.RegisteredEvent
	guard.expect(models.EventRegistered, &registered)

	radio.emit(models.EventRegister, map[string]any{"role": "security", "name": "Bravo"})
	radio.expect(models.EventRegistered, &registered)

	var update models.SecurityUpdate
	guard.expect(models.EventSecurityUpdate, &update)
	if update.Type != models.UpdateUserJoined || update.Count != 2 {
		t.Errorf("security-update = %+v", update)
	}

	guard.emit(models.EventSignal, map[string]any{"to": radio.id, "type": "offer", "signal": map[string]any{"type": "offer", "sdp": "v=0"}})
	var signal models.SignalEvent
	radio.expect(models.EventSignal, &signal)
	if signal.From != guard.id || signal.Type != models.SignalTypeOffer {
		t.Errorf("signal = %+v", signal)
	}

	// Binary msgpack frames carry raw audio.
	audio := []byte{0x4f, 0x67, 0x67, 0x53}
	frame, err := codec.Msgpack.Encode(models.EventPTTAudio, models.PTTAudioRequest{Channel: "security", AudioData: audio, UserID: "r1", UserName: "Bravo"})
	if err != nil {
		t.Fatal(err)
	}
	if err := radio.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatal(err)
	}
	var ptt models.PTTAudioEvent
	guard.expect(models.EventPTTAudio, &ptt)
	if ptt.From != "r1" || ptt.AudioData == nil || ptt.Timestamp == "" {
		t.Errorf("ptt-audio = %+v", ptt)
	}

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var status models.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	want := models.StatusResponse{Status: "online", Security: 2, Management: 0, Total: 2}
	if status != want {
		t.Errorf("status = %+v, want %+v", status, want)
	}

	radio.conn.Close()
	guard.expect(models.EventSecurityUpdate, &update)
	if update.Type != models.UpdateUserLeft || update.User != "Bravo" || update.Count != 1 {
		t.Errorf("security-update = %+v", update)
	}
	waitFor(t, func() bool { return srv.relay.hub.Len() == 1 })
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	srv := newTestServer(t)
	peer := srv.dial(t, "")

	if err := peer.conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	peer.emit(models.EventRegister, map[string]any{"role": "management", "name": "Chief"})

	var registered models.RegisteredEvent
	peer.expect(models.EventRegistered, &registered)
	if registered.Role != models.RoleManagement {
		t.Errorf("registered = %+v", registered)
	}
}

func TestUnknownCodecRejected(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?codec=xml"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial with unknown codec should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("response = %v", resp)
	}
}

func TestShutdownClosesConnections(t *testing.T) {
	srv := newTestServer(t)
	peer := srv.dial(t, "")
	peer.emit(models.EventRegister, map[string]any{"role": "security", "name": "Alpha"})
	var registered models.RegisteredEvent
	peer.expect(models.EventRegistered, &registered)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.relay.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if srv.relay.hub.Len() != 0 || srv.relay.registry.Total() != 0 {
		t.Errorf("hub=%d registry=%d after shutdown", srv.relay.hub.Len(), srv.relay.registry.Total())
	}
	peer.conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := peer.conn.ReadMessage(); err == nil {
		t.Error("connection still open after shutdown")
	}
}

func TestConnectAfterShutdownRefused(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.relay.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial after shutdown should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v", resp)
	}
	if srv.relay.hub.Len() != 0 {
		t.Errorf("hub has %d connections after shutdown", srv.relay.hub.Len())
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
