// Package config loads a race's YAML configuration: which indices to
// prepare, which operations/tasks to run, and the cluster health gate
// to wait on, mirroring the teacher's WorkloadSpec/LoadWorkloadSpec
// pattern (sim/workload/spec.go) adapted to this module's domain.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RaceConfig is the top-level race configuration loaded from YAML.
type RaceConfig struct {
	TargetURL  string          `yaml:"target_url"`
	Indices    []IndexSpec     `yaml:"indices,omitempty"`
	HealthGate *HealthGateSpec `yaml:"health_gate,omitempty"`
	Schedule   []ItemSpec      `yaml:"schedule"`
}

// IndexSpec mirrors driver.IndexDefinition for YAML loading.
type IndexSpec struct {
	Name        string                 `yaml:"name"`
	AutoManaged bool                   `yaml:"auto_managed"`
	Settings    map[string]interface{} `yaml:"settings,omitempty"`
	Types       []TypeSpec             `yaml:"types,omitempty"`
}

// TypeSpec is one named mapping within an IndexSpec (spec.md §4.G).
type TypeSpec struct {
	Name    string      `yaml:"name"`
	Mapping interface{} `yaml:"mapping"`
}

// HealthGateSpec configures the pre-race cluster health wait.
type HealthGateSpec struct {
	ExpectedStatus string `yaml:"expected_status"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	MaxAttempts    int    `yaml:"max_attempts"`
}

// ItemSpec is one schedule entry: either a single task or a parallel
// group of tasks, matching track.Item's two concrete shapes.
type ItemSpec struct {
	Task     *TaskSpec  `yaml:"task,omitempty"`
	Parallel []TaskSpec `yaml:"parallel,omitempty"`
	Clients  int        `yaml:"clients,omitempty"` // only meaningful with Parallel
}

// TaskSpec is one task entry.
type TaskSpec struct {
	Operation         string                 `yaml:"operation"`
	OperationType     string                 `yaml:"operation_type"`
	ParamSource       string                 `yaml:"param_source"`
	Params            map[string]interface{} `yaml:"params,omitempty"`
	WarmupIterations  int                    `yaml:"warmup_iterations,omitempty"`
	Iterations        *int                   `yaml:"iterations,omitempty"`
	WarmupTimePeriod  *float64               `yaml:"warmup_time_period,omitempty"`
	TimePeriod        *float64               `yaml:"time_period,omitempty"`
	Clients           int                    `yaml:"clients,omitempty"`
}

// Load reads and parses a RaceConfig from path. Unknown YAML fields are
// rejected, matching the teacher's decoder.KnownFields(true) strictness
// (sim/workload/spec.go's LoadWorkloadSpec) — a typo'd key in a race
// file should fail fast, not silently run the default.
func Load(path string) (*RaceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading race config: %w", err)
	}
	var cfg RaceConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing race config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded config for obviously broken shapes before
// a race tries to act on it.
func (c *RaceConfig) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("target_url is required")
	}
	if len(c.Schedule) == 0 {
		return fmt.Errorf("schedule must contain at least one item")
	}
	for i, item := range c.Schedule {
		if item.Task == nil && len(item.Parallel) == 0 {
			return fmt.Errorf("schedule[%d]: must set either task or parallel", i)
		}
		if item.Task != nil && len(item.Parallel) > 0 {
			return fmt.Errorf("schedule[%d]: cannot set both task and parallel", i)
		}
	}
	if c.HealthGate != nil && c.HealthGate.MaxAttempts <= 0 {
		return fmt.Errorf("health_gate.max_attempts must be positive")
	}
	return nil
}
