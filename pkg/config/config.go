// Package config loads the tunables that govern decay rates, queue
// polling, fuzzy-match thresholds and other knobs the rest of the
// system reads at startup; task backoff is not among them. A .env file (via godotenv) supplies secrets
// and environment overrides; a YAML file supplies the structured
// tunables themselves — the same two-file split GoKitt's deployment
// docs describe for its own WASM host configuration.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime-tunable parameter named across spec.md's
// component contracts (§4).
type Config struct {
	// DatabasePath is the base SQLite file path; profiles are suffixed
	// onto it by internal/store.Open.
	DatabasePath string `yaml:"databasePath"`
	// Profile is the default profile namespace used when none is given
	// explicitly (store.DefaultProfile if empty).
	Profile string `yaml:"profile"`

	// GoalFuzzyThreshold is the maximum normalized Levenshtein distance
	// (0..1) for two goal statements to be considered a fuzzy match
	// (spec.md §9 Open Question, resolved in DESIGN.md). The extraction
	// pipeline does not read it; it passes goal.DefaultFuzzyThreshold.
	GoalFuzzyThreshold float64 `yaml:"goalFuzzyThreshold"`

	// MaxGoalDepth records the goal hierarchy's DAG depth bound (spec.md
	// §4.I). pkg/goal does not read it; it enforces its own MaxDepth.
	MaxGoalDepth int `yaml:"maxGoalDepth"`

	// Decay tunes the Memory Service's salience decay task (spec.md §4.H).
	Decay DecayConfig `yaml:"decay"`

	// Queue tunes the Task Queue Runner (spec.md §4.B).
	Queue QueueConfig `yaml:"queue"`

	// LLM configures the extraction pipeline's model client (spec.md §4.E).
	LLM LLMConfig `yaml:"llm"`
}

// DecayConfig parameterizes per-temporality half-lives, in hours.
type DecayConfig struct {
	EternalHalfLifeHours        float64 `yaml:"eternalHalfLifeHours"`
	SlowlyDecayingHalfLifeHours float64 `yaml:"slowlyDecayingHalfLifeHours"`
	FastDecayingHalfLifeHours   float64 `yaml:"fastDecayingHalfLifeHours"`
	PointInTimeHalfLifeHours    float64 `yaml:"pointInTimeHalfLifeHours"`
	// PromotionThreshold is the salience value above which a working-tier
	// claim is promoted to long-term (spec.md §4.H).
	PromotionThreshold float64 `yaml:"promotionThreshold"`
	// DecayIntervalSeconds holds a decay-pass interval; nothing reads it
	// or schedules RunDecay from it.
	DecayIntervalSeconds int `yaml:"decayIntervalSeconds"`
	// StaleThreshold/DormantThreshold bound currentConfidence transitions.
	StaleThreshold   float64 `yaml:"staleThreshold"`
	DormantThreshold float64 `yaml:"dormantThreshold"`
	// Salience formula weights (spec.md §4.H), must sum to 1.
	WeightRecency      float64 `yaml:"weightRecency"`
	WeightEmotional    float64 `yaml:"weightEmotional"`
	WeightStakes       float64 `yaml:"weightStakes"`
	WeightConfirmation float64 `yaml:"weightConfirmation"`
	WeightAccess       float64 `yaml:"weightAccess"`
	// AccessBoostFactor/AccessBoostDurationMs govern recordAccess's
	// temporary salience boost.
	AccessBoostFactor      float64 `yaml:"accessBoostFactor"`
	AccessBoostDurationMs  int64   `yaml:"accessBoostDurationMs"`
	// TopOfMindLimit bounds each TopOfMind view bucket.
	TopOfMindLimit int `yaml:"topOfMindLimit"`
}

// QueueConfig parameterizes the Task Queue Runner's poll loop.
type QueueConfig struct {
	PollIntervalMs   int64 `yaml:"pollIntervalMs"`
	DequeueBatchSize int   `yaml:"dequeueBatchSize"`
	StaleAfterMs     int64 `yaml:"staleAfterMs"`
	// BackpressureSoftLimit is the pendingTasks count above which
	// processText still enqueues but signals Backpressure to the
	// caller (spec.md §5).
	BackpressureSoftLimit int `yaml:"backpressureSoftLimit"`
}

// LLMConfig configures the provider the extraction pipeline calls.
type LLMConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	MaxRetries  int    `yaml:"maxRetries"`
	TimeoutMs   int64  `yaml:"timeoutMs"`
}

// Default returns the tunables spec.md states explicitly or implies by
// example (salience decay settings, queue poll settings), used when no
// config file is present. Task backoff defaults are not here; they
// come from store.DefaultBackoffConfig.
func Default() Config {
	return Config{
		DatabasePath:       "ramble.db",
		Profile:            "default",
		GoalFuzzyThreshold: 0.3,
		MaxGoalDepth:       4,
		Decay: DecayConfig{
			EternalHalfLifeHours:        0,
			SlowlyDecayingHalfLifeHours: 24 * 30,
			FastDecayingHalfLifeHours:   24,
			PointInTimeHalfLifeHours:    1,
			PromotionThreshold:          0.6,
			DecayIntervalSeconds:        3600,
			StaleThreshold:              0.2,
			DormantThreshold:            0.1,
			WeightRecency:               0.35,
			WeightEmotional:             0.25,
			WeightStakes:                0.20,
			WeightConfirmation:          0.15,
			WeightAccess:                0.05,
			AccessBoostFactor:           1.2,
			AccessBoostDurationMs:       5 * 60 * 1000,
			TopOfMindLimit:              10,
		},
		Queue: QueueConfig{
			PollIntervalMs:        500,
			DequeueBatchSize:      10,
			StaleAfterMs:          5 * 60 * 1000,
			BackpressureSoftLimit: 500,
		},
		LLM: LLMConfig{
			Provider:   "stub",
			MaxRetries: 3,
			TimeoutMs:  30000,
		},
	}
}

// Load reads environment overrides from envPath (if it exists) via
// godotenv, then layers a YAML config file from yamlPath (if it
// exists) over Default(). Either path may be empty to skip that
// source.
func Load(envPath, yamlPath string) (Config, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return Config{}, err
			}
		}
	}

	cfg := Default()
	if yamlPath != "" {
		if raw, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	if v := os.Getenv("RAMBLE_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("RAMBLE_PROFILE"); v != "" {
		cfg.Profile = v
	}
	if v := os.Getenv("RAMBLE_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}

	return cfg, nil
}
