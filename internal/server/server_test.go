package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/wavecollapse/internal/config"
	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/lawnchairsociety/wavecollapse/internal/metrics"
	"github.com/lawnchairsociety/wavecollapse/internal/module"
	"github.com/lawnchairsociety/wavecollapse/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCoast(t *testing.T) *module.Table {
	t.Helper()
	table, err := generator.LoadTable("../../data/modules/coast.yaml")
	require.NoError(t, err)
	return table
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Field.Width = 4
	cfg.Field.Height = 3
	cfg.Solver.Seed = 3
	return cfg
}

func startServer(t *testing.T, cfg *config.Config, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(cfg, loadCoast(t), opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
}

// readStream reads frames until a done or error frame arrives.
func readStream(t *testing.T, conn *websocket.Conn) (collapses []Message, last Message) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != MessageCollapse {
			return collapses, msg
		}
		collapses = append(collapses, msg)
	}
}

func dialStream(t *testing.T, ts *httptest.Server, query string) []Message {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, query), nil)
	require.NoError(t, err)
	defer conn.Close()

	collapses, done := readStream(t, conn)
	require.Equal(t, MessageDone, done.Type, "stream ended with %+v", done)
	return collapses
}

func TestStreamSolve(t *testing.T) {
	cfg := testConfig()
	s, ts := startServer(t, cfg, Options{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	collapses, done := readStream(t, conn)
	require.Equal(t, MessageDone, done.Type, "error: %s", done.Error)

	assert.NotEmpty(t, done.SolveID)
	assert.Equal(t, s.table.Fingerprint(), done.Fingerprint)
	assert.Equal(t, cfg.Solver.Seed+int64(done.Attempt*1000), done.Seed)
	assert.Equal(t, done.Attempts, done.Attempt+1)
	assert.False(t, done.Stored)

	// Every cell of the final attempt is reported exactly once.
	seen := map[string]bool{}
	for _, msg := range collapses {
		assert.Equal(t, done.SolveID, msg.SolveID)
		require.NotNil(t, msg.Placement)
		if msg.Attempt != done.Attempt {
			continue
		}
		assert.False(t, seen[msg.Address], "cell %s reported twice", msg.Address)
		seen[msg.Address] = true
		assert.NotEmpty(t, msg.ModuleName)
	}
	assert.Len(t, seen, cfg.Field.Width*cfg.Field.Height)
}

func TestStreamSeedIsDeterministic(t *testing.T) {
	_, ts := startServer(t, testConfig(), Options{})

	key := func(msgs []Message) []string {
		out := make([]string, len(msgs))
		for i, m := range msgs {
			b, _ := json.Marshal(m.Placement)
			out[i] = string(b)
		}
		return out
	}

	first := dialStream(t, ts, "?seed=41")
	second := dialStream(t, ts, "?seed=41")
	assert.Equal(t, key(first), key(second))
}

func TestStreamRejectsBadSeed(t *testing.T) {
	_, ts := startServer(t, testConfig(), Options{})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "?seed=north"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	_, ts := startServer(t, testConfig(), Options{})

	header := http.Header{"Origin": []string{"http://elsewhere.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStreamConnectionLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Connections.MaxPerIP = 1
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	s, ts := startServer(t, cfg, Options{Recorder: rec, Gatherer: reg})

	slot, err := s.limiter.Acquire("203.0.113.7")
	require.NoError(t, err)
	defer slot.Release()

	header := http.Header{"X-Forwarded-For": []string{"203.0.113.7"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// The rejected request must not leak a slot.
	assert.Equal(t, 1, s.limiter.OpenFor("203.0.113.7"))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.StreamsRejected.WithLabelValues("client")))
}

func TestStreamReportsConfigError(t *testing.T) {
	cfg := testConfig()
	cfg.Solver.Order = "sideways"
	_, ts := startServer(t, cfg, Options{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	collapses, last := readStream(t, conn)
	assert.Empty(t, collapses)
	assert.Equal(t, MessageError, last.Type)
	assert.Contains(t, last.Error, "sideways")
}

func TestStreamPersistsSolve(t *testing.T) {
	st, err := store.Open(config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "wfc.db"),
	})
	require.NoError(t, err)
	defer st.Close()

	cfg := testConfig()
	cfg.Server.Persist = true
	_, ts := startServer(t, cfg, Options{Store: st})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?seed=8"), nil)
	require.NoError(t, err)
	defer conn.Close()
	_, done := readStream(t, conn)
	require.Equal(t, MessageDone, done.Type, "error: %s", done.Error)
	require.True(t, done.Stored)

	resp, err := http.Get(ts.URL + "/solves/" + done.SolveID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var solve store.Solve
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&solve))
	assert.Equal(t, done.SolveID, solve.ID)
	assert.Equal(t, done.Seed, solve.Seed)
	assert.Equal(t, done.Fingerprint, solve.Fingerprint)
	assert.Len(t, solve.Cells, cfg.Field.Width*cfg.Field.Height)

	list, err := http.Get(ts.URL + "/solves?limit=5")
	require.NoError(t, err)
	defer list.Body.Close()
	var summaries []store.Summary
	require.NoError(t, json.NewDecoder(list.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, done.SolveID, summaries[0].ID)

	missing, err := http.Get(ts.URL + "/solves/no-such-solve")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestSolvesDisabledWithoutStore(t *testing.T) {
	_, ts := startServer(t, testConfig(), Options{})

	resp, err := http.Get(ts.URL + "/solves")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	_, ts := startServer(t, testConfig(), Options{Recorder: rec, Gatherer: reg})

	dialStream(t, ts, "")

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(rec.ActiveStreams) == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.SolvesTotal.WithLabelValues("square", "ok")))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body strings.Builder
	_, err = io.Copy(&body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `wfc_solver_solves_total{shape="square",status="ok"} 1`)
	assert.Contains(t, body.String(), "wfc_engine_collapses_total")
}

func TestServeAndShutdown(t *testing.T) {
	s := NewServer(testConfig(), loadCoast(t), Options{})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- s.Serve(listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-served)
}
