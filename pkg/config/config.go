package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a key unset.
const (
	DefaultConfigPath    = "/etc/apollo/config.yaml"
	DefaultPIDFile       = "/var/apollo/run/apollo.pid"
	defaultRunDir        = "/var/apollo/run"
	defaultTrackDir      = "/var/apollo/track"
	defaultConsul        = "http://127.0.0.1:8500"
	defaultPenalty       = 90
	defaultFrequency     = 60
	defaultHealFrequency = 60
	defaultHealOnStatus  = "any"
)

// ExtraService configures one sub-service check.
type ExtraService struct {
	Healthcheck string `yaml:"healthcheck"`
	Frequency   int    `yaml:"frequency"`
	Retries     int    `yaml:"retries"`
}

// Config is Apollo's immutable configuration, loaded once at startup.
type Config struct {
	ServiceName      string                  `yaml:"service_name"`
	ServiceCmd       string                  `yaml:"service_cmd"`
	ServiceFrequency int                     `yaml:"service_frequency"`
	ExtraService     map[string]ExtraService `yaml:"extra_service"`

	HealCmd       string `yaml:"heal_cmd"`
	HealFrequency int    `yaml:"heal_frequency"`
	HealDryrun    bool   `yaml:"heal_dryrun"`
	HealOnStatus  string `yaml:"heal_on_status"`

	KeepCriticalSecs int64 `yaml:"keep_critical_secs"`
	KeepWarningSecs  int64 `yaml:"keep_warning_secs"`

	ThresholdDown   string `yaml:"threshold_down"`
	AllowFullOutage bool   `yaml:"allow_full_outage"`

	Port           int      `yaml:"port"`
	Hostname       string   `yaml:"hostname"`
	Colo           string   `yaml:"colo"`
	TagsList       []string `yaml:"tags_list"`
	ConsulEndpoint string   `yaml:"consul_endpoint"`
	Penalty        int      `yaml:"penalty"`

	TrackDirectory string `yaml:"track_directory"`
	ReportFile     string `yaml:"report_file"`
	PIDFile        string `yaml:"pid_file"`

	BadFlagFile       string `yaml:"bad_flag_file"`
	HealingActiveFile string `yaml:"healing_active_status_file"`
	HealingLastFile   string `yaml:"healing_last_heal_file"`

	LogJSON     bool   `yaml:"log_json"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads and validates the config file. Unknown keys are rejected so a
// typoed key fails fast instead of silently disabling a feature.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("config: service_name is mandatory")
	}
	if c.Hostname == "" {
		return fmt.Errorf("config: hostname is mandatory")
	}
	if c.Colo == "" {
		return fmt.Errorf("config: colo is mandatory")
	}
	switch c.HealOnStatus {
	case "", "any", "passing", "warning", "critical":
	default:
		return fmt.Errorf("config: heal_on_status %q not one of any/passing/warning/critical", c.HealOnStatus)
	}
	if c.ThresholdDown != "" {
		if _, err := ParseThreshold(c.ThresholdDown, 100); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	for name, extra := range c.ExtraService {
		if name == "" {
			return fmt.Errorf("config: extra_service entry with empty name")
		}
		if extra.Healthcheck == "" {
			return fmt.Errorf("config: extra_service %s has no healthcheck", name)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ServiceFrequency == 0 {
		c.ServiceFrequency = defaultFrequency
	}
	if c.HealFrequency == 0 {
		c.HealFrequency = defaultHealFrequency
	}
	if c.HealOnStatus == "" {
		c.HealOnStatus = defaultHealOnStatus
	}
	if c.Penalty == 0 {
		c.Penalty = defaultPenalty
	}
	if c.ConsulEndpoint == "" {
		c.ConsulEndpoint = defaultConsul
	}
	if c.TrackDirectory == "" {
		c.TrackDirectory = defaultTrackDir
	}
	if c.ReportFile == "" {
		c.ReportFile = filepath.Join(defaultRunDir, "report.txt")
	}
	if c.PIDFile == "" {
		c.PIDFile = DefaultPIDFile
	}
	if c.BadFlagFile == "" {
		c.BadFlagFile = filepath.Join(defaultRunDir, c.ServiceName+".bad")
	}
	if c.HealingActiveFile == "" {
		c.HealingActiveFile = filepath.Join(defaultRunDir, "healing.active")
	}
	if c.HealingLastFile == "" {
		c.HealingLastFile = filepath.Join(defaultRunDir, "last_heal.json")
	}
	for name, extra := range c.ExtraService {
		if extra.Frequency == 0 {
			extra.Frequency = defaultFrequency
		}
		if extra.Retries < 1 {
			extra.Retries = 1
		}
		c.ExtraService[name] = extra
	}
}

// SubServiceID returns the on-the-wire consul id of a sub-service.
func (c *Config) SubServiceID(name string) string {
	return name + "-" + c.ServiceName
}

// ParseThreshold resolves a threshold_down value against the current member
// total: "N" is the literal count, "P%" is floor(total*P/100).
func ParseThreshold(threshold string, total int) (int, error) {
	threshold = strings.TrimSpace(threshold)
	if strings.HasSuffix(threshold, "%") {
		p, err := strconv.Atoi(strings.TrimSuffix(threshold, "%"))
		if err != nil {
			return 0, fmt.Errorf("invalid threshold_down %q: %w", threshold, err)
		}
		return total * p / 100, nil
	}
	n, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold_down %q: %w", threshold, err)
	}
	return n, nil
}
