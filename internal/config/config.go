package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. AMMQUOTE_PG_DSN.
const EnvPrefix = "AMMQUOTE"

// Pool sources.
const (
	PoolSourceStatic   = "static"
	PoolSourcePostgres = "postgres"
	PoolSourceChain    = "chain"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel string
	PGDSN    string
	RPCURL   string

	// MaxRetries and RetryBackoff apply to every RPC call.
	MaxRetries   int
	RetryBackoff time.Duration

	Redis RedisConfig

	// PoolSource selects where pool snapshots come from.
	PoolSource string
	Factory    string
	// PoolFeePct is the fee of chain-read pools.
	PoolFeePct float64
	// StaticPool is used when PoolSource is static.
	StaticPool StaticPool

	SlippagePct        float64
	DeviationRedPct    float64
	DeviationYellowPct float64

	Stables []string
	Coins   map[string]string
	Aliases map[string]string
	Prices  map[string]float64
}

// RedisConfig holds the metric cache connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// StaticPool describes a pool given entirely by configuration.
type StaticPool struct {
	AmountX    float64
	AmountY    float64
	DecimalsX  uint8
	DecimalsY  uint8
	FeePercent float64
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-db", 0)
	v.SetDefault("redis-timeout", 2*time.Second)
	v.SetDefault("pool-source", PoolSourcePostgres)
	v.SetDefault("pool-fee-pct", 0.3)
	v.SetDefault("slippage-pct", 0.1)
	v.SetDefault("deviation-red-pct", 2.0)
	v.SetDefault("deviation-yellow-pct", 1.0)
	v.SetDefault("stables", []string{"USDC", "USDT"})
	v.SetDefault("batch-size", 1000)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	prices, err := getFloatMap(v, "prices")
	if err != nil {
		return Config{}, err
	}
	coins, err := getCoinTypeMap(v, "coins")
	if err != nil {
		return Config{}, err
	}
	aliases, err := getCoinTypeMap(v, "aliases")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogLevel:     v.GetString("log-level"),
		PGDSN:        v.GetString("pg-dsn"),
		RPCURL:       v.GetString("rpc"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
			Timeout:  v.GetDuration("redis-timeout"),
		},
		PoolSource: strings.ToLower(v.GetString("pool-source")),
		Factory:    v.GetString("factory"),
		PoolFeePct: v.GetFloat64("pool-fee-pct"),
		StaticPool: StaticPool{
			AmountX:    v.GetFloat64("pool-amount-x"),
			AmountY:    v.GetFloat64("pool-amount-y"),
			DecimalsX:  uint8(v.GetUint("pool-decimals-x")),
			DecimalsY:  uint8(v.GetUint("pool-decimals-y")),
			FeePercent: v.GetFloat64("pool-fee-pct"),
		},
		SlippagePct:        v.GetFloat64("slippage-pct"),
		DeviationRedPct:    v.GetFloat64("deviation-red-pct"),
		DeviationYellowPct: v.GetFloat64("deviation-yellow-pct"),
		Stables:            getStringSlice(v, "stables"),
		Coins:              coins,
		Aliases:            aliases,
		Prices:             prices,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	switch c.PoolSource {
	case PoolSourceStatic, PoolSourcePostgres, PoolSourceChain:
	default:
		return fmt.Errorf("unknown pool source: %q", c.PoolSource)
	}
	if c.SlippagePct < 0 || c.SlippagePct >= 100 {
		return fmt.Errorf("slippage-pct must be in [0, 100): %v", c.SlippagePct)
	}
	if c.PoolFeePct < 0 || c.PoolFeePct >= 100 {
		return fmt.Errorf("pool-fee-pct must be in [0, 100): %v", c.PoolFeePct)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must be non-negative: %d", c.MaxRetries)
	}
	return nil
}

// ParseTimestamp parses unix milliseconds or RFC3339. Empty means zero time.
func ParseTimestamp(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(val).UTC(), nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return time.Time{}, err
	}
	return tm.UTC(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// getStringMap accepts a map, a "k=v,k2=v2" string or a list of "k=v" items.
// Viper lowercases map keys read from files, so case-sensitive keys such as
// coin types must use the list form.
func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return parseStringMap(strings.Join(items, ","))
	default:
		return map[string]string{}
	}
}

// getCoinTypeMap reads a map keyed by coin type. The map form is rejected
// because viper lowercases its keys.
func getCoinTypeMap(v *viper.Viper, key string) (map[string]string, error) {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case map[string]string, map[string]interface{}:
			return nil, fmt.Errorf("%s: map keys lose their case, use a list of \"coinType=value\" items", key)
		}
	}
	return getStringMap(v, key), nil
}

func getFloatMap(v *viper.Viper, key string) (map[string]float64, error) {
	raw := getStringMap(v, key)
	out := make(map[string]float64, len(raw))
	for k, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number for %s: %w", key, k, err)
		}
		out[k] = f
	}
	return out, nil
}

// parseStringMap reads "k=v,k2=v2". Coin types may contain "::" but never "=".
func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
