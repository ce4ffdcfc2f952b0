package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/force"
	"github.com/abelbrown/emograph/internal/palette"
)

const doc = `{
  "nodes": [{"id": "A", "label": "기쁨"}, {"id": "B", "label": "분노"}, {"id": "C"}],
  "frames": [
    {"timestamp": 30, "events": [{"source": "A", "target": "B", "time_diff_days": 1, "comment": "first"}]},
    {"timestamp": 20, "events": [{"source": "B", "target": "C", "time_diff_days": 2}]},
    {"timestamp": 10, "events": [{"source": "A", "target": "B", "time_diff_days": 3, "comment": "latest"}]}
  ]
}`

type fixture struct {
	srv    *Server
	http   *httptest.Server
	clock  *anim.ManualClock
	player *anim.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "content"), 0755)
	os.WriteFile(filepath.Join(root, "index.json"), []byte(`{"content": ["d1"]}`), 0644)
	os.WriteFile(filepath.Join(root, "content", "d1.json"), []byte(doc), 0644)

	clock := anim.NewManualClock()
	player := anim.NewPlayer(anim.PlayerConfig{Clock: clock, Interval: 200 * time.Millisecond})
	srv := New(Config{
		Source: dataset.NewDirSource(root),
		Player: player,
		Params: force.DefaultParams(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		player.Close()
	})
	return &fixture{srv: srv, http: ts, clock: clock, player: player}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.http.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"ok"`)) {
		t.Fatalf("healthz = %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestIndex(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/api/index", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	idx := decode[dataset.Index](t, body)
	if idx.First("content") != "d1" {
		t.Errorf("index = %v", idx)
	}
}

func TestLoadAndSnapshot(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/api/datasets/content/d1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load = %d %s", resp.StatusCode, body)
	}
	loaded := decode[LoadResponse](t, body)
	if loaded.Nodes != 3 || loaded.Frames != 3 || loaded.Events != 3 {
		t.Errorf("load response = %+v", loaded)
	}
	if typ, name := f.srv.Current(); typ != "content" || name != "d1" {
		t.Errorf("Current = %s/%s", typ, name)
	}

	_, body = f.do(t, http.MethodGet, "/api/snapshot", "")
	snap := decode[SnapshotView](t, body)
	if snap.Index != -1 || len(snap.Links) != 0 || len(snap.Nodes) != 3 || snap.DaysAgo != nil {
		t.Errorf("reset snapshot = %+v", snap)
	}
	if snap.Dataset.Name != "d1" {
		t.Errorf("dataset ref = %+v", snap.Dataset)
	}
}

func TestStepRendersAttributes(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/datasets/content/d1", "")

	resp, body := f.do(t, http.MethodPost, "/api/step", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("step = %d %s", resp.StatusCode, body)
	}
	snap := decode[SnapshotView](t, body)
	if snap.Index != 0 || snap.Counter != 2 || snap.DaysAgo == nil || *snap.DaysAgo != 30 {
		t.Errorf("step snapshot index=%d counter=%d days=%v", snap.Index, snap.Counter, snap.DaysAgo)
	}
	if snap.Ticks != 1 {
		t.Errorf("ticks = %d, want 1", snap.Ticks)
	}
	if len(snap.Links) != 1 {
		t.Fatalf("links = %+v", snap.Links)
	}
	l := snap.Links[0]
	if !l.IsCurrent || l.Color != force.CurrentLinkColor || l.ArrowLength != force.CurrentArrowLength || l.Particles != 1 {
		t.Errorf("link attrs = %+v", l)
	}
	for _, n := range snap.Nodes {
		if n.Radius < 12 || n.CollideRadius < 28 || n.Color == "" {
			t.Errorf("node attrs = %+v", n)
		}
	}
}

func TestStepWithoutFrames(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/api/step", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestPlayback(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/datasets/content/d1", "")

	resp, body := f.do(t, http.MethodPost, "/api/playback", `{"playing": true, "interval_ms": 150}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("playback = %d %s", resp.StatusCode, body)
	}
	view := decode[SnapshotView](t, body)
	if !view.Playing || view.IntervalMS != 150 {
		t.Errorf("view playing=%v interval=%d", view.Playing, view.IntervalMS)
	}

	f.clock.Advance(150 * time.Millisecond)
	if got := f.player.Snapshot().Index; got != 0 {
		t.Errorf("after first tick index = %d, want 0", got)
	}

	f.do(t, http.MethodPost, "/api/playback", `{"playing": false}`)
	if f.player.Playing() {
		t.Error("player still playing")
	}

	resp, _ = f.do(t, http.MethodPost, "/api/playback", `{"speed": 2}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", resp.StatusCode)
	}
}

func TestParams(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPut, "/api/params", `{"charge": -5000, "normalize": false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put params = %d %s", resp.StatusCode, body)
	}
	got := decode[force.Params](t, body)
	if got.Charge != force.MinCharge || got.Normalize || got.LinkStrengthBase != force.DefaultLinkStrength {
		t.Errorf("params = %+v", got)
	}

	_, body = f.do(t, http.MethodGet, "/api/params", "")
	if decode[force.Params](t, body) != got {
		t.Errorf("GET params = %s", body)
	}
}

func TestLinkEvent(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/datasets/content/d1", "")
	f.do(t, http.MethodPost, "/api/step", "")

	resp, body := f.do(t, http.MethodGet, "/api/links/A/B/event", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d %s", resp.StatusCode, body)
	}
	got := decode[LinkEventResponse](t, body)
	if got.Event == nil || got.Event.Comment != "latest" {
		t.Errorf("event = %+v", got.Event)
	}
	if got.Link == nil || got.Link.Count != 1 {
		t.Errorf("link = %+v", got.Link)
	}

	resp, body = f.do(t, http.MethodGet, "/api/links/C/A/event", "")
	if resp.StatusCode != http.StatusNotFound || !bytes.Contains(body, []byte("no example")) {
		t.Errorf("missing link = %d %s", resp.StatusCode, body)
	}
}

func TestLoadMissingDataset(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/datasets/content/d1", "")
	f.do(t, http.MethodPost, "/api/step", "")

	resp, _ := f.do(t, http.MethodPost, "/api/datasets/content/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if n := len(f.player.Frames()); n != 0 {
		t.Errorf("player kept %d frames after failed load", n)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthz", "")
	resp, body := f.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("emograph_http_requests_total")) {
		t.Error("metrics output missing emograph_http_requests_total")
	}
}

// slowSource blocks loads of "slow" until release closes.
type slowSource struct {
	started chan string
	release chan struct{}
}

func (s *slowSource) Index(ctx context.Context) (dataset.Index, error) {
	return dataset.Index{"content": {"fast", "slow"}}, nil
}

func (s *slowSource) Load(ctx context.Context, dataType, name string) (*dataset.Graph, error) {
	s.started <- name
	frames := 2
	if name == "slow" {
		<-s.release
		frames = 5
	}
	g := &dataset.Graph{Nodes: []dataset.Node{{ID: "A"}, {ID: "B"}}}
	for i := 0; i < frames; i++ {
		g.Frames = append(g.Frames, dataset.Frame{Timestamp: i + 1,
			Events: []dataset.Event{{Source: "A", Target: "B"}}})
	}
	return g, nil
}

func TestLoadDatasetLatestRequestWins(t *testing.T) {
	src := &slowSource{started: make(chan string, 2), release: make(chan struct{})}
	player := anim.NewPlayer(anim.PlayerConfig{Clock: anim.NewManualClock()})
	defer player.Close()
	srv := New(Config{Source: src, Player: player, Params: force.DefaultParams()})

	errc := make(chan error, 1)
	go func() {
		_, err := srv.LoadDataset(context.Background(), "content", "slow")
		errc <- err
	}()
	<-src.started

	g, err := srv.LoadDataset(context.Background(), "content", "fast")
	if err != nil || len(g.Frames) != 2 {
		t.Fatalf("fast load = %v, %v", g, err)
	}
	<-src.started
	close(src.release)

	if err := <-errc; !errors.Is(err, dataset.ErrSuperseded) {
		t.Errorf("slow load err = %v, want ErrSuperseded", err)
	}
	if _, name := srv.Current(); name != "fast" {
		t.Errorf("current = %q, want fast", name)
	}
	if n := len(player.Frames()); n != 2 {
		t.Errorf("player holds %d frames, want fast's 2", n)
	}
	if srv.graph != g {
		t.Error("server graph and player diverged")
	}
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/api/categories", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	cats := decode[[]Category](t, body)
	if len(cats) != len(palette.Categories) {
		t.Fatalf("got %d categories, want %d", len(cats), len(palette.Categories))
	}
	for _, c := range cats {
		if c.Label == palette.Disgust && (c.English != "disgust" || c.Weight != 9.26 || c.Color == "") {
			t.Errorf("disgust entry = %+v", c)
		}
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	srv := New(Config{Source: dataset.NewDirSource(t.TempDir()), Logger: log.New(&buf)})

	rec := httptest.NewRecorder()
	srv.writeJSON(rec, http.StatusOK, map[string]float64{"charge": math.Inf(-1)})
	if !strings.Contains(buf.String(), "write response") {
		t.Errorf("encode failure not logged: %q", buf.String())
	}
}
