// Package config loads knolstudy settings from flags, a YAML file and the
// environment.
//
// Precedence, lowest first: flag defaults, the file named by --config,
// KNOLSTUDY_* environment variables, flags set on the command line.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knolstudy/internal/fsrs"
	"github.com/conorfennell/knolstudy/internal/queue"
	"github.com/conorfennell/knolstudy/internal/session"
)

const (
	EnvPrefix  = "KNOLSTUDY_"
	ExamLayout = "2006-01-02"
)

type Config struct {
	DB       string `koanf:"db" validate:"required"`
	LogMode  string `koanf:"log_mode" validate:"oneof=dev prod"`
	ReposDir string `koanf:"repos_dir" validate:"required"`

	TargetRetention float64       `koanf:"target_retention" validate:"gt=0,lt=1"`
	MaxInterval     int           `koanf:"max_interval" validate:"gte=1"`
	LearningStep    time.Duration `koanf:"learning_step" validate:"gt=0"`
	RelearningStep  time.Duration `koanf:"relearning_step" validate:"gt=0"`
	Weights         []float64     `koanf:"weights" validate:"omitempty,len=17,dive,gt=0"`

	NewCardLimit int `koanf:"new_card_limit" validate:"gte=0"`
	ReviewLimit  int `koanf:"review_limit" validate:"gte=0"`
	RequeueMin   int `koanf:"requeue_min" validate:"gte=1"`
	RequeueMax   int `koanf:"requeue_max" validate:"gtefield=RequeueMin"`

	ExamDate     string  `koanf:"exam_date" validate:"omitempty,datetime=2006-01-02"`
	ExamPullDays float64 `koanf:"exam_pull_days" validate:"gt=0"`
}

var validate = validator.New()

// RegisterFlags adds every config key to fs, plus --config.
func RegisterFlags(fs *pflag.FlagSet) {
	p := fsrs.DefaultParams()
	fs.String("config", "", "Path to a YAML config file")
	fs.String("db", "knolstudy.db", "Path to the SQLite database file")
	fs.String("log-mode", "dev", "Log format: dev or prod")
	fs.String("repos-dir", "repos", "Directory git sources are cloned into")
	fs.Float64("target-retention", p.TargetRetention, "Desired recall probability at review time")
	fs.Int("max-interval", p.MaxInterval, "Longest review interval in days")
	fs.Duration("learning-step", p.LearningStep, "Delay before a failed new card returns")
	fs.Duration("relearning-step", p.RelearningStep, "Delay before a lapsed card returns")
	fs.Int("new-card-limit", 20, "New cards per session (0 for no limit)")
	fs.Int("review-limit", 100, "Review cards per session (0 for no limit)")
	fs.Int("requeue-min", session.DefaultRequeueMin, "Fewest cards before a failed card comes back")
	fs.Int("requeue-max", session.DefaultRequeueMax, "Most cards before a failed card comes back")
	fs.String("exam-date", "", "Exam date (YYYY-MM-DD) to prioritise weak cards")
	fs.Float64("exam-pull-days", queue.DefaultExamPullDays, "Urgency boost in days for a forgotten card before an exam")
}

// Load merges all sources for an already parsed fs and validates the result.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Defaults of unset flags only fill keys no other source provided.
	flagKey := func(f *pflag.Flag) (string, interface{}) {
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	}
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Params returns the scheduler parameters described by c.
func (c *Config) Params() fsrs.Params {
	p := fsrs.DefaultParams()
	p.TargetRetention = c.TargetRetention
	p.MaxInterval = c.MaxInterval
	p.LearningStep = c.LearningStep
	p.RelearningStep = c.RelearningStep
	if len(c.Weights) == len(p.W) {
		copy(p.W[:], c.Weights)
	}
	return p
}

// Exam returns the configured exam date at midnight in loc, or nil.
func (c *Config) Exam(loc *time.Location) (*time.Time, error) {
	if c.ExamDate == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(ExamLayout, c.ExamDate, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid exam date %q: %w", c.ExamDate, err)
	}
	return &d, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}
