package report

import (
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

	"github.com/cuemby/apollo/pkg/config"
	"github.com/cuemby/apollo/pkg/consul"
	"github.com/cuemby/apollo/pkg/events"
	"github.com/cuemby/apollo/pkg/log"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

func TestWrite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/agent/checks", r.URL.Path)
		payload := map[string]interface{}{
			"service:www":        map[string]interface{}{"CheckID": "service:www", "Status": "passing"},
			"service:httpok-www": map[string]interface{}{"CheckID": "service:httpok-www", "Status": "warning"},
			"service:ping-www":   map[string]interface{}{"CheckID": "service:ping-www", "Status": "critical"},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	cfg := &config.Config{
		ServiceName: "www",
		Hostname:    "w01",
		Colo:        "par",
		ReportFile:  filepath.Join(t.TempDir(), "report.txt"),
	}
	broker := events.NewBroker()
	defer broker.Close()

	w := NewWriter(cfg, consul.NewClient(server.URL), broker)
	w.Now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, w.Write(context.Background()))

	data, err := os.ReadFile(cfg.ReportFile)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "apollo check report")
	assert.Contains(t, content, "host: w01")
	assert.Contains(t, content, "colo: par")
	assert.Contains(t, content, "service:www")
	assert.Contains(t, content, "OK")
	assert.Contains(t, content, "WARNING")
	assert.Contains(t, content, "BAD")

	// checks sorted by id
	assert.Less(t,
		strings.Index(content, "service:httpok-www"),
		strings.Index(content, "service:www"))
}

func TestWriteReplacesExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	cfg := &config.Config{
		ServiceName: "www",
		Hostname:    "w01",
		Colo:        "par",
		ReportFile:  filepath.Join(t.TempDir(), "report.txt"),
	}
	require.NoError(t, os.WriteFile(cfg.ReportFile, []byte("stale"), 0644))

	broker := events.NewBroker()
	defer broker.Close()

	w := NewWriter(cfg, consul.NewClient(server.URL), broker)
	require.NoError(t, w.Write(context.Background()))

	data, err := os.ReadFile(cfg.ReportFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestReportStatus(t *testing.T) {
	assert.Equal(t, "OK", reportStatus("passing"))
	assert.Equal(t, "WARNING", reportStatus("warning"))
	assert.Equal(t, "BAD", reportStatus("critical"))
	assert.Equal(t, "MAINT", reportStatus("maint"))
}
