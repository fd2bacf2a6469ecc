package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
service_name: www
service_cmd: /usr/local/bin/check_www --quick
service_frequency: 30
extra_service:
  httpok:
    healthcheck: /usr/local/bin/check_http
    frequency: 15
    retries: 3
  storage_ping:
    healthcheck: /usr/local/bin/check_storage
heal_cmd: /usr/local/bin/heal
heal_frequency: 120
heal_on_status: critical
keep_critical_secs: 90
threshold_down: "30%"
port: 8080
hostname: w01
colo: par
tags_list: [frontend, www]
consul_endpoint: http://127.0.0.1:8500
track_directory: /var/apollo/track
report_file: /var/apollo/run/report.txt
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "www", cfg.ServiceName)
	assert.Equal(t, "w01", cfg.Hostname)
	assert.Equal(t, "par", cfg.Colo)
	assert.Equal(t, 30, cfg.ServiceFrequency)
	assert.Equal(t, "30%", cfg.ThresholdDown)
	assert.Equal(t, []string{"frontend", "www"}, cfg.TagsList)

	httpok := cfg.ExtraService["httpok"]
	assert.Equal(t, 15, httpok.Frequency)
	assert.Equal(t, 3, httpok.Retries)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "service_name: www\nhostname: w01\ncolo: par\n"))
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Penalty)
	assert.Equal(t, 60, cfg.ServiceFrequency)
	assert.Equal(t, 60, cfg.HealFrequency)
	assert.Equal(t, "any", cfg.HealOnStatus)
	assert.Equal(t, "http://127.0.0.1:8500", cfg.ConsulEndpoint)
	assert.Equal(t, "/var/apollo/track", cfg.TrackDirectory)
	assert.Equal(t, "/var/apollo/run/www.bad", cfg.BadFlagFile)
	assert.Equal(t, DefaultPIDFile, cfg.PIDFile)
}

func TestLoadExtraServiceDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	// storage_ping left frequency and retries unset
	extra := cfg.ExtraService["storage_ping"]
	assert.Equal(t, 60, extra.Frequency)
	assert.Equal(t, 1, extra.Retries)
}

func TestLoadMandatoryKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing service_name", content: "hostname: w01\ncolo: par\n"},
		{name: "missing hostname", content: "service_name: www\ncolo: par\n"},
		{name: "missing colo", content: "service_name: www\nhostname: w01\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "service_name: www\nhostname: w01\ncolo: par\nservice_freqency: 30\n"))
	assert.Error(t, err)
}

func TestLoadRejectsBadHealOnStatus(t *testing.T) {
	_, err := Load(writeConfig(t, "service_name: www\nhostname: w01\ncolo: par\nheal_on_status: broken\n"))
	assert.Error(t, err)
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	_, err := Load(writeConfig(t, "service_name: www\nhostname: w01\ncolo: par\nthreshold_down: lots\n"))
	assert.Error(t, err)
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold string
		total     int
		expected  int
	}{
		{name: "literal", threshold: "3", total: 100, expected: 3},
		{name: "percentage", threshold: "30%", total: 100, expected: 30},
		{name: "percentage floors", threshold: "30%", total: 105, expected: 31},
		{name: "percentage floors down", threshold: "10%", total: 19, expected: 1},
		{name: "zero total", threshold: "50%", total: 0, expected: 0},
		{name: "whitespace", threshold: " 5 ", total: 10, expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseThreshold(tt.threshold, tt.total)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestSubServiceID(t *testing.T) {
	cfg := &Config{ServiceName: "www"}
	assert.Equal(t, "httpok-www", cfg.SubServiceID("httpok"))
}
