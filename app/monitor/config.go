package monitor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/solitary-pixels/hotspotx/pkg/api"
	"github.com/solitary-pixels/hotspotx/pkg/heartbeat"
	"github.com/solitary-pixels/hotspotx/pkg/status"
	"github.com/solitary-pixels/hotspotx/pkg/utils"
)

// Status backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the monitor configuration.
//
// Values are read from an optional YAML file named by CONFIG_FILE and then
// overridden by environment variables:
//
//	wallet_addr: 13abc...
//	api_url: https://api.helium.io
//	data_dir: /var/lib/hotspotx
//	warning_threshold: 450
//	alert_stale_hours: 4
//	cron_spec: "0 */10 * * * *"
//	status_backend: redis
//	pushover:
//	  report_token: a1b2...
//	  user_token: u1v2...
type Config struct {
	WalletAddr string        `yaml:"wallet_addr"`
	APIURL     string        `yaml:"api_url"`
	APIRPS     int           `yaml:"api_rps"`
	APITimeout time.Duration `yaml:"api_timeout"`
	APIFrom    string        `yaml:"api_from"`

	DataDir          string `yaml:"data_dir"`
	WarningThreshold int64  `yaml:"warning_threshold"`
	AlertStaleHours  int    `yaml:"alert_stale_hours"`
	CollectWorkers   int    `yaml:"collect_workers"`
	ActivityDepth    int    `yaml:"activity_depth"`

	CronSpec     string        `yaml:"cron_spec"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"`
	RunOnce      bool          `yaml:"run_once"`
	Addr         string        `yaml:"addr"`

	StatusBackend    string `yaml:"status_backend"`
	PublishSnapshots bool   `yaml:"publish_snapshots"`

	ProbeLatency bool `yaml:"probe_latency"`
	ProbePort    int  `yaml:"probe_port"`

	Pushover PushoverConfig `yaml:"pushover"`
}

// PushoverConfig holds Pushover credentials.
type PushoverConfig struct {
	ReportToken string `yaml:"report_token"`
	AlertToken  string `yaml:"alert_token"`
	UserToken   string `yaml:"user_token"`
	GroupToken  string `yaml:"group_token"`
	Endpoint    string `yaml:"endpoint,omitempty"`
}

// DefaultConfig returns a config with every optional value set.
func DefaultConfig() Config {
	return Config{
		APIURL:           api.DefaultBaseURL,
		APIRPS:           10,
		APITimeout:       15 * time.Second,
		DataDir:          "data",
		WarningThreshold: status.DefaultWarningThreshold,
		AlertStaleHours:  int(status.DefaultStaleWindow / time.Hour),
		CollectWorkers:   heartbeat.DefaultWorkers,
		ActivityDepth:    heartbeat.DefaultActivityDepth,
		CronSpec:         "0 */10 * * * *",
		CycleTimeout:     5 * time.Minute,
		Addr:             ":3002",
		StatusBackend:    BackendFile,
		ProbePort:        heartbeat.DefaultProbePort,
	}
}

// LoadConfig builds the config from defaults, CONFIG_FILE and the environment.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := utils.Env("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.WalletAddr = utils.Env("WALLET_ADDR", c.WalletAddr)
	c.APIURL = utils.Env("API_URL", c.APIURL)
	c.APIRPS = utils.EnvInt("API_RPS", c.APIRPS)
	c.APITimeout = utils.EnvDuration("API_TIMEOUT", c.APITimeout)
	c.APIFrom = utils.Env("API_FROM", c.APIFrom)

	c.DataDir = utils.Env("DATA_DIR", c.DataDir)
	c.WarningThreshold = utils.EnvInt64("WARNING_THRESHOLD", c.WarningThreshold)
	c.AlertStaleHours = utils.EnvInt("ALERT_STALE_HOURS", c.AlertStaleHours)
	c.CollectWorkers = utils.EnvInt("COLLECT_WORKERS", c.CollectWorkers)
	c.ActivityDepth = utils.EnvInt("ACTIVITY_DEPTH", c.ActivityDepth)

	c.CronSpec = utils.Env("CRON_SPEC", c.CronSpec)
	c.CycleTimeout = utils.EnvDuration("CYCLE_TIMEOUT", c.CycleTimeout)
	c.RunOnce = utils.EnvBool("RUN_ONCE", c.RunOnce)
	c.Addr = utils.Env("ADDR", c.Addr)

	c.StatusBackend = utils.Env("STATUS_BACKEND", c.StatusBackend)
	c.PublishSnapshots = utils.EnvBool("PUBLISH_SNAPSHOTS", c.PublishSnapshots)

	c.ProbeLatency = utils.EnvBool("PROBE_LATENCY", c.ProbeLatency)
	c.ProbePort = utils.EnvInt("PROBE_PORT", c.ProbePort)

	c.Pushover.ReportToken = utils.Env("PUSHOVER_REPORT_TOKEN", c.Pushover.ReportToken)
	c.Pushover.AlertToken = utils.Env("PUSHOVER_ALERT_TOKEN", c.Pushover.AlertToken)
	c.Pushover.UserToken = utils.Env("PUSHOVER_USER_TOKEN", c.Pushover.UserToken)
	c.Pushover.GroupToken = utils.Env("PUSHOVER_GROUP_TOKEN", c.Pushover.GroupToken)
	c.Pushover.Endpoint = utils.Env("PUSHOVER_ENDPOINT", c.Pushover.Endpoint)
}

// Validate checks required values.
func (c Config) Validate() error {
	if c.WalletAddr == "" {
		return fmt.Errorf("%w: WALLET_ADDR is required", ErrInvalidConfig)
	}
	switch c.StatusBackend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown STATUS_BACKEND %q", ErrInvalidConfig, c.StatusBackend)
	}
	if c.WarningThreshold < 0 {
		return fmt.Errorf("%w: WARNING_THRESHOLD must not be negative", ErrInvalidConfig)
	}
	return nil
}

// StaleWindow is AlertStaleHours as a duration.
func (c Config) StaleWindow() time.Duration {
	return time.Duration(c.AlertStaleHours) * time.Hour
}

// UsesRedis reports whether any component needs a Redis connection.
func (c Config) UsesRedis() bool {
	return c.StatusBackend == BackendRedis || c.PublishSnapshots
}
