package wsbridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/scene"
)

type fakeControls struct {
	started []StartRequest
	running bool
}

func (f *fakeControls) Start(req StartRequest) (RunInfo, error) {
	if req.Effect == "confetti" {
		return RunInfo{}, fault.Invalid("unknown effect %q", req.Effect)
	}
	if req.Effect == "shatter" && req.Pieces > 0 && req.Profile == "root" {
		return RunInfo{}, fault.Unsupported("no parent")
	}
	f.started = append(f.started, req)
	f.running = true
	return RunInfo{Run: uint64(len(f.started)), Effect: req.Effect, Profile: req.Profile, Seed: 7, Duration: 1.5}, nil
}

func (f *fakeControls) Stop() bool {
	was := f.running
	f.running = false
	return was
}

func newServer(t *testing.T) (*scene.Memory, *Hub, *fakeControls, *httptest.Server) {
	t.Helper()
	m := scene.NewMemory(320, 200)
	hub := NewHub(m, zerolog.Nop())
	ctl := &fakeControls{}
	srv := httptest.NewServer(NewMux(hub, ctl, promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})))
	t.Cleanup(srv.Close)
	return m, hub, ctl, srv
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("bad payload %s: %v", payload, err)
	}
	return msg
}

func TestSubscriberReceivesSnapshotAndOps(t *testing.T) {
	m, hub, _, srv := newServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	snap := readMessage(t, conn)
	if snap.Type != "snapshot" || len(snap.Nodes) != 1 || snap.Nodes[0].Props["width"] != 320.0 {
		t.Fatalf("Unexpected snapshot %+v", snap)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	id, _ := m.CreateChild(m.Root())
	m.SetProperties(id, scene.Properties{scene.Opacity: scene.Num(0.5), scene.ClipShape: scene.Str(scene.ShapeCircle)})
	m.Remove(id)

	create := readMessage(t, conn)
	if create.Type != "create" || create.Node != uint64(id) || create.Parent != uint64(m.Root()) {
		t.Errorf("Unexpected create %+v", create)
	}
	set := readMessage(t, conn)
	if set.Type != "set" || set.Props["opacity"] != 0.5 || set.Props["clip.shape"] != "circle" {
		t.Errorf("Unexpected set %+v", set)
	}
	if rm := readMessage(t, conn); rm.Type != "remove" || rm.Node != uint64(id) {
		t.Errorf("Unexpected remove %+v", rm)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	for hub.Clients() != 0 && time.Now().Before(deadline.Add(time.Second)) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Clients() != 0 {
		t.Error("Closed subscriber still registered")
	}
}

func TestControlEndpoints(t *testing.T) {
	_, _, ctl, srv := newServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/start?effect=shatter", http.StatusMethodNotAllowed},
		{http.MethodPost, "/stop", http.StatusConflict},
		{http.MethodPost, "/start?effect=confetti", http.StatusBadRequest},
		{http.MethodPost, "/start?effect=shatter&pieces=many", http.StatusBadRequest},
		{http.MethodPost, "/start?effect=shatter&pieces=4&profile=root", http.StatusUnprocessableEntity},
		{http.MethodPost, "/start?effect=shift&profile=subtle&variant=slice&pieces=4&loop=true", http.StatusOK},
		{http.MethodPost, "/stop", http.StatusNoContent},
		{http.MethodGet, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("%s %s = %d, expected %d", tt.method, tt.path, resp.StatusCode, tt.status)
		}
	}

	if len(ctl.started) != 1 {
		t.Fatalf("Expected one accepted start, got %d", len(ctl.started))
	}
	got := ctl.started[0]
	if got.Effect != "shift" || got.Variant != "slice" || got.Pieces != 4 || !got.Loop {
		t.Errorf("Start request decoded wrong: %+v", got)
	}
}
