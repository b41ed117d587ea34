// Package config defines the typed experiment and schema configuration.
//
// Configuration is loaded once at startup and validated eagerly: unknown or
// missing mappings fail at load time, not at first use. Every other package
// consumes the explicit structs here; nothing does ad hoc key lookups.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object.
type Config struct {
	S3         S3         `yaml:"s3"`
	Schema     Schema     `yaml:"schema"`
	Experiment Experiment `yaml:"experiment"`
}

// S3 holds object-storage settings. The statistical core never touches
// storage; these are carried for the surrounding I/O layer.
type S3 struct {
	Endpoint string  `yaml:"endpoint"`
	Buckets  Buckets `yaml:"buckets"`
}

// Buckets names the raw and processed buckets.
type Buckets struct {
	Raw       string `yaml:"raw"`
	Processed string `yaml:"processed"`
}

// Schema maps raw extract column names onto the canonical event schema.
type Schema struct {
	Events EventSchema `yaml:"events"`
}

// EventSchema maps source columns for the events extract. Only the
// event-type column is remappable; the remaining columns use their
// canonical names in every known extract.
type EventSchema struct {
	// EventName is the source column holding the raw event-type value.
	EventName string `yaml:"event_name"`
}

// Experiment holds the A/B experiment parameters.
type Experiment struct {
	// Name identifies the experiment in assignment rows and mart output.
	Name string `yaml:"name"`

	// ExposureEvent is the canonical event type whose first post-assignment
	// occurrence anchors a user's observation window.
	ExposureEvent string `yaml:"exposure_event"`

	// GoalEvent is the canonical event type that counts as conversion.
	GoalEvent string `yaml:"goal_event"`

	// Window is the outcome window length. Events in
	// [exposure_ts, exposure_ts+Window) are attributed to the experiment.
	Window Duration `yaml:"window"`

	// ConfidenceLevel for the lift interval, e.g. 0.95.
	ConfidenceLevel float64 `yaml:"confidence_level"`
}

// Duration wraps time.Duration so YAML values like "168h" or "30m" parse
// directly into typed configuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns a configuration with every option at its documented
// default: view_product exposure, purchase goal, a 7-day window, and a 95%
// confidence level.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Schema.Events.EventName == "" {
		c.Schema.Events.EventName = "event_name"
	}
	if c.Experiment.Name == "" {
		c.Experiment.Name = "pdp_redesign_experiment"
	}
	if c.Experiment.ExposureEvent == "" {
		c.Experiment.ExposureEvent = "view_product"
	}
	if c.Experiment.GoalEvent == "" {
		c.Experiment.GoalEvent = "purchase"
	}
	if c.Experiment.Window == 0 {
		c.Experiment.Window = Duration(7 * 24 * time.Hour)
	}
	if c.Experiment.ConfidenceLevel == 0 {
		c.Experiment.ConfidenceLevel = 0.95
	}
}

// Validate checks structural constraints. Vocabulary resolution of the
// exposure and goal events happens in the pipeline constructor, which owns
// the alias table.
func (c *Config) Validate() error {
	if c.Experiment.Name == "" {
		return fmt.Errorf("experiment.name must not be empty")
	}
	if c.Experiment.ExposureEvent == "" {
		return fmt.Errorf("experiment.exposure_event must not be empty")
	}
	if c.Experiment.GoalEvent == "" {
		return fmt.Errorf("experiment.goal_event must not be empty")
	}
	if c.Experiment.Window <= 0 {
		return fmt.Errorf("experiment.window must be positive, got %s", c.Experiment.Window.Std())
	}
	if c.Experiment.ConfidenceLevel <= 0 || c.Experiment.ConfidenceLevel >= 1 {
		return fmt.Errorf("experiment.confidence_level must be in (0, 1), got %v", c.Experiment.ConfidenceLevel)
	}
	if c.Schema.Events.EventName == "" {
		return fmt.Errorf("schema.events.event_name must not be empty")
	}
	return nil
}
