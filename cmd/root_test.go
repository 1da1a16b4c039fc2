package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ftahirops/circuittop/config"
)

const powerJSON = `[
  {"CircuitID": 1, "PowerCapacity": 104.6, "PowerProduction": 80, "PowerConsumed": 50.5,
   "PowerMaxConsumed": 90, "BatteryDifferential": 0, "BatteryPercent": 47.25,
   "BatteryCapacity": 100, "BatteryTimeEmpty": "00:10:00"},
  {"CircuitID": 2, "PowerCapacity": 10, "PowerProduction": 10, "PowerConsumed": 5,
   "PowerMaxConsumed": 6, "BatteryDifferential": -1, "BatteryPercent": 5,
   "BatteryCapacity": 20, "BatteryTimeEmpty": "00:01:00", "FuseTriggered": true}
]`

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writePowerFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "power.json")
	require.NoError(t, os.WriteFile(path, []byte(powerJSON), 0o600))
	return path
}

func TestParseArgs(t *testing.T) {
	var stderr bytes.Buffer

	opts, err := parseArgs(nil, &stderr)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), opts.Interval)
	assert.Equal(t, time.Duration(-1), opts.Timeout, "unset timeout defers to config")

	opts, err = parseArgs([]string{"-watch", "-count", "3", "-url", "http://x:1", "5"}, &stderr)
	require.NoError(t, err)
	assert.True(t, opts.WatchMode)
	assert.Equal(t, 3, opts.WatchCount)
	assert.Equal(t, 5*time.Second, opts.Interval)

	bad := [][]string{
		{"soon"},
		{"0"},
		{"-count", "-1"},
		{"-json", "-watch"},
		{"-record", "a", "-replay", "b"},
		{"-bogus"},
	}
	for _, args := range bad {
		_, err := parseArgs(args, &stderr)
		assert.Error(t, err, "args %v", args)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.SourceFile = "old.json"

	got := applyFlags(cfg, Options{URL: "http://plant:9000", Timeout: -1, Interval: 250 * time.Millisecond})
	assert.Equal(t, "http://plant:9000", got.BaseURL)
	assert.Empty(t, got.SourceFile, "-url wins over a configured file")
	assert.Equal(t, 250, got.IntervalMS)
	assert.Equal(t, 5, got.TimeoutSec)

	got = applyFlags(cfg, Options{Timeout: 500 * time.Millisecond})
	assert.Equal(t, 1, got.TimeoutSec, "sub-second timeouts round up")

	got = applyFlags(cfg, Options{Timeout: 0})
	assert.Equal(t, 0, got.TimeoutSec)
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.Equal(t, "circuittop v"+Version+"\n", stdout.String())
}

func TestRun_InvalidConfig(t *testing.T) {
	isolateConfig(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-json", "-url", "ftp://nope"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestRun_JSONFromFile(t *testing.T) {
	isolateConfig(t)
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-json", "-file", writePowerFile(t)}, &stdout, &stderr))

	var out struct {
		Fallback bool             `json:"fallback"`
		Error    string           `json:"error"`
		PollID   string           `json:"poll_id"`
		Circuits []map[string]any `json:"circuits"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.False(t, out.Fallback)
	assert.Empty(t, out.Error)
	assert.NotEmpty(t, out.PollID)
	require.Len(t, out.Circuits, 2)
	assert.Equal(t, float64(1), out.Circuits[0]["CircuitID"])
	assert.Equal(t, true, out.Circuits[1]["FuseTriggered"])
}

func TestRunJSON_ServerDownUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	a := newApp(cfg, zap.NewNop())

	var stdout bytes.Buffer
	require.NoError(t, runJSON(context.Background(), a, &stdout))
	assert.Contains(t, stdout.String(), `"fallback": true`)
	assert.Contains(t, stdout.String(), "503")
}

func TestNewApp_SourceSelection(t *testing.T) {
	cfg := config.Default()
	a := newApp(cfg, zap.NewNop())
	assert.Equal(t, "http", a.source.Name())
	assert.NotNil(t, a.resetter)
	assert.Equal(t, cfg.BaseURL, a.sourceLabel())

	cfg.SourceFile = "power.json"
	a = newApp(cfg, zap.NewNop())
	assert.Equal(t, "file", a.source.Name())
	assert.Nil(t, a.resetter, "file sources cannot reset circuits")
	assert.Equal(t, "power.json", a.sourceLabel())
}

func TestRunWatch_PrintsOnlyChanges(t *testing.T) {
	cfg := config.Default()
	cfg.SourceFile = writePowerFile(t)
	cfg.IntervalMS = 5
	a := newApp(cfg, zap.NewNop())

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, runWatch(ctx, a, &out, 3))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "Circuit ID"), "identical polls do not redraw")
	assert.Contains(t, got, "105MW")
	assert.Contains(t, got, "47.3%")
	assert.Contains(t, got, "1 fuse tripped")
	assert.Contains(t, got, "#1/3")
	assert.NotContains(t, got, "Stopped.")
}

func TestRunWatch_FallbackFrame(t *testing.T) {
	cfg := config.Default()
	cfg.SourceFile = filepath.Join(t.TempDir(), "missing.json")
	cfg.IntervalMS = 5
	a := newApp(cfg, zap.NewNop())

	var out bytes.Buffer
	require.NoError(t, runWatch(context.Background(), a, &out, 2))
	got := out.String()
	assert.Contains(t, got, "FALLBACK")
	assert.Contains(t, got, "Error while getting power data! Using Testing Data.")
}

func TestRun_RecordThenReplay(t *testing.T) {
	isolateConfig(t)
	recPath := filepath.Join(t.TempDir(), "rec.jsonl")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(),
		[]string{"-json", "-file", writePowerFile(t), "-record", recPath}, &stdout, &stderr))

	data, err := os.ReadFile(recPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"-json", "-replay", recPath}, &stdout, &stderr))
	var out struct {
		Source   string           `json:"source"`
		Fallback bool             `json:"fallback"`
		Circuits []map[string]any `json:"circuits"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "replay:"+recPath, out.Source)
	assert.False(t, out.Fallback)
	assert.Len(t, out.Circuits, 2)
}

func TestRun_ReplayMissingFile(t *testing.T) {
	isolateConfig(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-json", "-replay", filepath.Join(t.TempDir(), "none")}, &stdout, &stderr)
	assert.Error(t, err)
}
