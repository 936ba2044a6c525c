package config

import (
	"errors"
	"io/fs"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data        DataConfig        `yaml:"data" mapstructure:"data"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Currency    CurrencyConfig    `yaml:"currency" mapstructure:"currency"`
	Eligibility EligibilityConfig `yaml:"eligibility" mapstructure:"eligibility"`
	Scorer      ScorerConfig      `yaml:"scorer" mapstructure:"scorer"`
	Portfolio   PortfolioConfig   `yaml:"portfolio" mapstructure:"portfolio"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the input YAML files.
type DataConfig struct {
	ProfilePath  string `yaml:"profile_path" mapstructure:"profile_path" validate:"required"`
	SchoolsPath  string `yaml:"schools_path" mapstructure:"schools_path" validate:"required"`
	LiveDataPath string `yaml:"live_data_path" mapstructure:"live_data_path"`
}

// StoreConfig configures where run artifacts are kept.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres none"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url" validate:"required_unless=Driver none"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns" validate:"gte=0"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns" validate:"gte=0"`
}

// CurrencyConfig configures fee normalization.
type CurrencyConfig struct {
	// Reference overrides the profile budget currency when set.
	Reference         string             `yaml:"reference" mapstructure:"reference" validate:"omitempty,len=3"`
	Rates             map[string]float64 `yaml:"rates" mapstructure:"rates" validate:"dive,gt=0"`
	LiveRatesURL      string             `yaml:"live_rates_url" mapstructure:"live_rates_url" validate:"omitempty,url"`
	SemesterThreshold float64            `yaml:"semester_threshold" mapstructure:"semester_threshold" validate:"gt=0"`
	RetryAttempts     int                `yaml:"retry_attempts" mapstructure:"retry_attempts" validate:"gte=1"`
	TimeoutSecs       int                `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gte=1"`
}

// EligibilityConfig holds the evaluator thresholds.
type EligibilityConfig struct {
	DefaultOverall      float64 `yaml:"default_overall" mapstructure:"default_overall" validate:"gte=0,lte=9"`
	DefaultWriting      float64 `yaml:"default_writing" mapstructure:"default_writing" validate:"gte=0,lte=9"`
	DefaultMinimumBand  float64 `yaml:"default_minimum_band" mapstructure:"default_minimum_band" validate:"gte=0,lte=9"`
	CriticalOverallGap  float64 `yaml:"critical_overall_gap" mapstructure:"critical_overall_gap" validate:"gte=0"`
	WritingMarginGap    float64 `yaml:"writing_margin_gap" mapstructure:"writing_margin_gap" validate:"lte=0"`
	BudgetStretch       float64 `yaml:"budget_stretch" mapstructure:"budget_stretch" validate:"gte=1"`
	BudgetCeiling       float64 `yaml:"budget_ceiling" mapstructure:"budget_ceiling" validate:"gtefield=BudgetStretch"`
	UrgentDays          int     `yaml:"urgent_days" mapstructure:"urgent_days" validate:"gte=0"`
	UpcomingDays        int     `yaml:"upcoming_days" mapstructure:"upcoming_days" validate:"gtefield=UrgentDays"`
	MinLiveConfidence   float64 `yaml:"min_live_confidence" mapstructure:"min_live_confidence" validate:"gte=0,lte=1"`
	ConflictTolerance   float64 `yaml:"conflict_tolerance" mapstructure:"conflict_tolerance" validate:"gte=0"`
	SchemaFailureWeight float64 `yaml:"schema_failure_weight" mapstructure:"schema_failure_weight" validate:"gte=0,lte=1"`
}

// ScorerConfig holds the risk scorer weights and fallbacks.
type ScorerConfig struct {
	ProbabilityWeight    float64            `yaml:"probability_weight" mapstructure:"probability_weight"`
	CostEfficiencyWeight float64            `yaml:"cost_efficiency_weight" mapstructure:"cost_efficiency_weight"`
	PrestigeWeight       float64            `yaml:"prestige_weight" mapstructure:"prestige_weight"`
	FitWeight            float64            `yaml:"fit_weight" mapstructure:"fit_weight"`
	ROIWeight            float64            `yaml:"roi_weight" mapstructure:"roi_weight"`
	UnknownCostFactor    float64            `yaml:"unknown_cost_factor" mapstructure:"unknown_cost_factor"`
	DefaultCountryFactor float64            `yaml:"default_country_factor" mapstructure:"default_country_factor"`
	DefaultPrestige      float64            `yaml:"default_prestige" mapstructure:"default_prestige"`
	DefaultFit           float64            `yaml:"default_fit" mapstructure:"default_fit"`
	CybersecurityBonus   float64            `yaml:"cybersecurity_bonus" mapstructure:"cybersecurity_bonus"`
	CountryFactors       map[string]float64 `yaml:"country_factors" mapstructure:"country_factors"`
}

// PortfolioConfig holds the target mix and recommendation thresholds.
type PortfolioConfig struct {
	TargetReach       float64 `yaml:"target_reach" mapstructure:"target_reach" validate:"gte=0,lte=1"`
	TargetTarget      float64 `yaml:"target_target" mapstructure:"target_target" validate:"gte=0,lte=1"`
	TargetSafe        float64 `yaml:"target_safe" mapstructure:"target_safe" validate:"gte=0,lte=1"`
	ReachSeverity     float64 `yaml:"reach_severity" mapstructure:"reach_severity" validate:"gte=0,lte=10"`
	TargetSeverity    float64 `yaml:"target_severity" mapstructure:"target_severity" validate:"gte=0,lte=10"`
	SafeSeverity      float64 `yaml:"safe_severity" mapstructure:"safe_severity" validate:"gte=0,lte=10"`
	// HighCostThreshold is in EUR; it is scaled to the reference currency.
	HighCostThreshold float64 `yaml:"high_cost_threshold" mapstructure:"high_cost_threshold" validate:"gte=0"`
	LowROIThreshold   float64 `yaml:"low_roi_threshold" mapstructure:"low_roi_threshold" validate:"gte=0"`
	ScenarioUpside    float64 `yaml:"scenario_upside" mapstructure:"scenario_upside" validate:"gte=0"`
	ScenarioDownside  float64 `yaml:"scenario_downside" mapstructure:"scenario_downside" validate:"gte=0"`
}

// BatchConfig configures per-school fan-out.
type BatchConfig struct {
	MaxConcurrentSchools int `yaml:"max_concurrent_schools" mapstructure:"max_concurrent_schools" validate:"gte=1"`
}

// MonitoringConfig configures run diffing and alert delivery.
type MonitoringConfig struct {
	WebhookURL                string  `yaml:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`
	ProbabilityShiftThreshold float64 `yaml:"probability_shift_threshold" mapstructure:"probability_shift_threshold" validate:"gte=0,lte=1"`
	PortfolioRiskThreshold    float64 `yaml:"portfolio_risk_threshold" mapstructure:"portfolio_risk_threshold" validate:"gte=0,lte=10"`
	DataQualityThreshold      float64 `yaml:"data_quality_threshold" mapstructure:"data_quality_threshold" validate:"gte=0,lte=1"`
	MaxAlertsPerSecond        float64 `yaml:"max_alerts_per_second" mapstructure:"max_alerts_per_second" validate:"gt=0"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GRADAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.profile_path", "source_data/profile.yml")
	v.SetDefault("data.schools_path", "source_data/schools.yml")
	v.SetDefault("data.live_data_path", "source_data/schools_live_data.yml")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "gradapp.db")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("currency.reference", "")
	v.SetDefault("currency.live_rates_url", "")
	v.SetDefault("currency.semester_threshold", 10000)
	v.SetDefault("currency.retry_attempts", 3)
	v.SetDefault("currency.timeout_secs", 10)
	v.SetDefault("eligibility.default_overall", 6.5)
	v.SetDefault("eligibility.default_writing", 5.5)
	v.SetDefault("eligibility.default_minimum_band", 5.5)
	v.SetDefault("eligibility.critical_overall_gap", 0.5)
	v.SetDefault("eligibility.writing_margin_gap", -0.5)
	v.SetDefault("eligibility.budget_stretch", 1.5)
	v.SetDefault("eligibility.budget_ceiling", 2.0)
	v.SetDefault("eligibility.urgent_days", 30)
	v.SetDefault("eligibility.upcoming_days", 60)
	v.SetDefault("eligibility.min_live_confidence", 0.3)
	v.SetDefault("eligibility.conflict_tolerance", 0.5)
	v.SetDefault("eligibility.schema_failure_weight", 0.3)
	v.SetDefault("scorer.probability_weight", 0.3)
	v.SetDefault("scorer.cost_efficiency_weight", 0.2)
	v.SetDefault("scorer.prestige_weight", 0.2)
	v.SetDefault("scorer.fit_weight", 0.2)
	v.SetDefault("scorer.roi_weight", 0.1)
	v.SetDefault("scorer.unknown_cost_factor", 1.0)
	v.SetDefault("scorer.default_country_factor", 0.7)
	v.SetDefault("scorer.default_prestige", 0.6)
	v.SetDefault("scorer.default_fit", 0.6)
	v.SetDefault("scorer.cybersecurity_bonus", 1.1)
	v.SetDefault("portfolio.target_reach", 0.25)
	v.SetDefault("portfolio.target_target", 0.5)
	v.SetDefault("portfolio.target_safe", 0.25)
	v.SetDefault("portfolio.reach_severity", 8)
	v.SetDefault("portfolio.target_severity", 5)
	v.SetDefault("portfolio.safe_severity", 2)
	v.SetDefault("portfolio.high_cost_threshold", 20000)
	v.SetDefault("portfolio.low_roi_threshold", 0.8)
	v.SetDefault("portfolio.scenario_upside", 1.5)
	v.SetDefault("portfolio.scenario_downside", 1.0)
	v.SetDefault("batch.max_concurrent_schools", 4)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.probability_shift_threshold", 0.1)
	v.SetDefault("monitoring.portfolio_risk_threshold", 8)
	v.SetDefault("monitoring.data_quality_threshold", 0.5)
	v.SetDefault("monitoring.max_alerts_per_second", 5)
	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	mix := c.Portfolio.TargetReach + c.Portfolio.TargetTarget + c.Portfolio.TargetSafe
	if math.Abs(mix-1) > 0.001 {
		return eris.Errorf("config: portfolio target mix must sum to 1, got %.3f", mix)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
