package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/questdb"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/redis"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load()

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
// A missing .env file is not an error.
func Load[T any](cfg T) error {
	_ = godotenv.Load()

	return env.Parse(cfg)
}

// Config holds the configuration for the clearing house.
type Config struct {
	App        AppConfig         `envPrefix:"APP_"`
	PostgreSQL postgresql.Config `envPrefix:"POSTGRES_"`
	Redis      redis.Config      `envPrefix:"REDIS_"`
	QuestDB    questdb.Config    `envPrefix:"QUESTDB_"`
	Kafka      KafkaConfig       `envPrefix:"KAFKA_"`
	Matching   MatchingConfig    `envPrefix:"MATCHING_"`
	Margin     MarginConfig      `envPrefix:"MARGIN_"`
	Settlement SettlementConfig  `envPrefix:"SETTLEMENT_"`
	Waterfall  WaterfallConfig   `envPrefix:"WATERFALL_"`
	Metrics    MetricsConfig     `envPrefix:"METRICS_"`
}

// AppConfig holds process level settings.
type AppConfig struct {
	Name            string        `env:"NAME" envDefault:"clearing-house"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	CCPAccount      string        `env:"CCP_ACCOUNT" envDefault:"CCP"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	GRPCAddr        string        `env:"GRPC_ADDR" envDefault:":9090"`
}

// KafkaConfig holds the configuration for order intake and trade publishing.
type KafkaConfig struct {
	Brokers     []string `env:"BROKERS" envDefault:"localhost:9092"`
	OrderTopic  string   `env:"ORDER_TOPIC" envDefault:"clearing.orders"`
	TradeTopic  string   `env:"TRADE_TOPIC" envDefault:"clearing.trades"`
	GroupID     string   `env:"GROUP_ID" envDefault:"clearing-house"`
	Enabled     bool     `env:"ENABLED" envDefault:"true"`
	MaxAttempts int      `env:"MAX_ATTEMPTS" envDefault:"3"`
}

// MatchingConfig holds the configuration for the matching engine.
type MatchingConfig struct {
	Instruments      Instruments   `env:"INSTRUMENTS" envDefault:"COPPER:USD:2"`
	SelfMatchPolicy  string        `env:"SELF_MATCH_POLICY" envDefault:"reject"`
	QueueSize        int           `env:"QUEUE_SIZE" envDefault:"1024"`
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	ExpiryInterval   time.Duration `env:"EXPIRY_INTERVAL" envDefault:"1m"`
}

// MarginConfig holds the configuration for the margin engine.
type MarginConfig struct {
	Confidence        float64         `env:"CONFIDENCE" envDefault:"0.99"`
	HoldingPeriodDays int             `env:"HOLDING_PERIOD_DAYS" envDefault:"2"`
	LookbackDays      int             `env:"LOOKBACK_DAYS" envDefault:"250"`
	MinObservations   int             `env:"MIN_OBSERVATIONS" envDefault:"20"`
	FallbackRate      decimal.Decimal `env:"FALLBACK_RATE" envDefault:"0.10"`
	CallGracePeriod   time.Duration   `env:"CALL_GRACE_PERIOD" envDefault:"2h"`
	RevaluationPeriod time.Duration   `env:"REVALUATION_PERIOD" envDefault:"1m"`
	Concurrency       int             `env:"CONCURRENCY" envDefault:"8"`
	MaxVersionRetries uint64          `env:"MAX_VERSION_RETRIES" envDefault:"5"`
}

// SettlementConfig holds the configuration for the DvP orchestrator.
type SettlementConfig struct {
	CutoffTime      string        `env:"CUTOFF_TIME" envDefault:"16:00"`
	Deadline        time.Duration `env:"DEADLINE" envDefault:"30m"`
	CallTimeout     time.Duration `env:"CALL_TIMEOUT" envDefault:"5s"`
	MaxRetries      uint64        `env:"MAX_RETRIES" envDefault:"3"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	WaveConcurrency int           `env:"WAVE_CONCURRENCY" envDefault:"16"`
}

// WaterfallConfig holds the guarantee fund seed values.
type WaterfallConfig struct {
	Currency          string          `env:"CURRENCY" envDefault:"USD"`
	SkinInTheGame     decimal.Decimal `env:"SKIN_IN_THE_GAME" envDefault:"0"`
	CapitalReserve    decimal.Decimal `env:"CAPITAL_RESERVE" envDefault:"0"`
	MaxVersionRetries uint64          `env:"MAX_VERSION_RETRIES" envDefault:"5"`
}

// MetricsConfig holds the configuration for the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Addr    string `env:"ADDR" envDefault:":9100"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// Instrument is one tradable contract as configured, e.g. COPPER:USD:2.
type Instrument struct {
	Symbol            string
	Currency          string
	SettlementLagDays int
}

// Instruments is a comma separated list of SYMBOL:CURRENCY:LAG entries.
type Instruments []Instrument

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Instruments) UnmarshalText(text []byte) error {
	var out Instruments
	for _, raw := range strings.Split(string(text), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return fmt.Errorf("instrument %q: want SYMBOL:CURRENCY:LAG", raw)
		}
		lag, err := strconv.Atoi(parts[2])
		if err != nil || lag < 0 {
			return fmt.Errorf("instrument %q: invalid settlement lag", raw)
		}
		out = append(out, Instrument{
			Symbol:            strings.ToUpper(parts[0]),
			Currency:          strings.ToUpper(parts[1]),
			SettlementLagDays: lag,
		})
	}
	*i = out
	return nil
}

// Cutoff returns the settlement cutoff as an offset from midnight UTC.
func (s SettlementConfig) Cutoff() (time.Duration, error) {
	t, err := time.Parse("15:04", s.CutoffTime)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
