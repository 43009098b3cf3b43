// Package config holds the per-year external configuration: the values the
// domain rules leave to the program administrators (CORE exam block, AIRP
// session table, objective weights). Defaults are compiled in; a YAML file
// overrides them.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// AIRPSession is one session block residents can be seated in.
type AIRPSession struct {
	ID       string `yaml:"id"`
	Block    int    `yaml:"block"`
	Label    string `yaml:"label"`
	Capacity int    `yaml:"capacity"`
}

// Weights are the soft-objective tunables. DeficitLambda is kept small so
// preference rank dominates the R2 objective.
type Weights struct {
	DeficitLambda    float64 `yaml:"deficit_lambda"`
	PreferenceWeight float64 `yaml:"preference_weight"`
	SourceReward     float64 `yaml:"source_reward"`
}

type Config struct {
	// Year is the academic-year start (July 1 of this year). Zero means
	// read it from the workbook Overview tab.
	Year int `yaml:"year"`

	// CoreExamBlock is the block the CORE exam falls in; LC is assigned in
	// the last full block before it. Externally configured per year.
	CoreExamBlock int `yaml:"core_exam_block"`

	AIRPSessions []AIRPSession `yaml:"airp_sessions"`

	Weights Weights `yaml:"weights"`

	// ReviewAddr is the listen address for the review server.
	ReviewAddr string `yaml:"review_addr"`
}

// Default is the baseline configuration for a 15-per-class program.
func Default() *Config {
	return &Config{
		CoreExamBlock: 8,
		AIRPSessions: []AIRPSession{
			{ID: "2", Block: 2, Label: "Aug Virtual", Capacity: 4},
			{ID: "3+4", Block: 3, Label: "Sep In-Person", Capacity: 4},
			{ID: "4+5", Block: 4, Label: "Oct Virtual", Capacity: 4},
			{ID: "9", Block: 9, Label: "Feb Virtual", Capacity: 4},
			{ID: "10", Block: 10, Label: "Mar Virtual", Capacity: 4},
		},
		Weights: Weights{
			DeficitLambda:    0.05,
			PreferenceWeight: 1.0,
			SourceReward:     10.0,
		},
		ReviewAddr: "127.0.0.1:8732",
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CoreExamBlock < 2 || c.CoreExamBlock > 13 {
		return fmt.Errorf("core_exam_block %d out of range [2,13]", c.CoreExamBlock)
	}
	seen := map[string]bool{}
	for _, s := range c.AIRPSessions {
		if s.Block < 1 || s.Block > 13 {
			return fmt.Errorf("airp session %s: block %d out of range", s.ID, s.Block)
		}
		if s.Capacity <= 0 {
			return fmt.Errorf("airp session %s: capacity must be positive", s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("airp session %s: duplicate id", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// LCBlock is the last full block before the CORE exam.
func (c *Config) LCBlock() int { return c.CoreExamBlock - 1 }

// SessionIDs returns AIRP session ids in stable order.
func (c *Config) SessionIDs() []string {
	ids := make([]string, 0, len(c.AIRPSessions))
	for _, s := range c.AIRPSessions {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	return ids
}

// Session looks up an AIRP session by id.
func (c *Config) Session(id string) (AIRPSession, bool) {
	for _, s := range c.AIRPSessions {
		if s.ID == id {
			return s, true
		}
	}
	return AIRPSession{}, false
}
