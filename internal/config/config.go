// ============================================================================
// Config - YAML Configuration Loading
// ============================================================================
//
// Package: internal/config
// Purpose: Constructor arguments for the task-execution core, loaded from
//          a YAML file the way the teacher's cmd/demo and internal/cli
//          load configs/default.yaml with gopkg.in/yaml.v3.
//
// Spec §6 names exactly three constructor arguments for a WorkerSet:
// name, worker_num (> 0) and max_pending (>= 0, 0 = unbounded). Everything
// else here (retry policy, gateway/metrics addresses) is ambient
// configuration this module's executables need but the core package
// itself does not.
//
// ============================================================================

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkerSetConfig mirrors the three constructor arguments spec §6 names,
// plus the use_trace switch for per-task trace bookkeeping.
type WorkerSetConfig struct {
	Name       string `yaml:"name"`
	WorkerNum  uint32 `yaml:"worker_num"`
	MaxPending int64  `yaml:"max_pending"`
	UseTrace   bool   `yaml:"use_trace"`
}

// RetryConfig configures the AsyncTask retry driver (spec §4.5).
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffMS   time.Duration `yaml:"backoff_ms"`
}

// Config is the root configuration for the taskqueued binary.
type Config struct {
	WorkerSet WorkerSetConfig `yaml:"worker_set"`
	Retry     RetryConfig     `yaml:"retry"`

	MetricsAddr string `yaml:"metrics_addr"`
	GatewayAddr string `yaml:"gateway_addr"`
}

// Default returns a Config with the values spec.md cites as examples
// (MAX_RETRY=5, BACKOFF_MS=100ms), unbounded admission and four
// workers -- callers override via a YAML file for anything production
// sized.
func Default() Config {
	return Config{
		WorkerSet: WorkerSetConfig{
			Name:       "taskqueue",
			WorkerNum:  4,
			MaxPending: 0,
			UseTrace:   true,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BackoffMS:   100 * time.Millisecond,
		},
		MetricsAddr: ":9090",
		GatewayAddr: ":7070",
	}
}

// Load reads and parses a YAML config file, starting from Default() so a
// partial file only needs to override what it changes.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.WorkerSet.WorkerNum == 0 {
		return Config{}, fmt.Errorf("config: worker_set.worker_num must be > 0")
	}
	if cfg.WorkerSet.MaxPending < 0 {
		return Config{}, fmt.Errorf("config: worker_set.max_pending must be >= 0")
	}

	return cfg, nil
}
