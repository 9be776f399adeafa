// config реализует конфигурацию match-bot: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
//
// Перед чтением подхватывается ./.env (если он есть); уже заданные переменные окружения не перезаписываются.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	Bot      BotConfig     `yaml:"bot"`
	HTTP     HTTPConfig    `yaml:"http"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Limits   LimitsConfig  `yaml:"limits"`
	Chain    ChainConfig   `yaml:"chain"`
	Sweeper  SweeperConfig `yaml:"sweeper"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// BotConfig — подключение к Telegram Bot API.
type BotConfig struct {
	Token string `yaml:"token" env:"BOT_TOKEN"`
	// Mode: polling (long-poll getUpdates) или webhook (HTTP-эндпоинт на http.addr).
	Mode        string `yaml:"mode"         env:"BOT_MODE"         env-default:"polling"`
	WebhookPath string `yaml:"webhook_path" env:"BOT_WEBHOOK_PATH" env-default:"/telegram/webhook"`
	// WebhookSecret — secret_token, заданный при setWebhook; webhook без него отвечает 401.
	WebhookSecret string `yaml:"webhook_secret" env:"BOT_WEBHOOK_SECRET"`
	// UpgradeURL — ссылка на оформление подписки (кнопка «Upgrade»).
	UpgradeURL string `yaml:"upgrade_url" env:"BOT_UPGRADE_URL" env-default:"https://t.me/YourPaymentBot"`
	// Workers — число параллельных очередей обработки; апдейты одного пользователя идут по очереди.
	Workers     int           `yaml:"workers"      env:"BOT_WORKERS"      env-default:"64"`
	PollTimeout time.Duration `yaml:"poll_timeout" env:"BOT_POLL_TIMEOUT" env-default:"60s"`
}

// HTTPConfig — HTTP (health/metrics/webhook).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig — настройки подключения к MongoDB.
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — хранилище пользовательских сессий и счётчиков.
// Пустой URL -> состояние держится в памяти процесса.
type RedisConfig struct {
	URL    string        `yaml:"url"    env:"REDIS_URL"`
	Prefix string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"matchbot:"`
	TTL    time.Duration `yaml:"ttl"    env:"REDIS_TTL"    env-default:"168h"`
}

// LimitsConfig — лимиты анкеты и свайпов.
type LimitsConfig struct {
	// DailySwipes — квота лайков для пользователя без подписки.
	DailySwipes int `yaml:"daily_swipes" env:"DAILY_SWIPES" env-default:"20"`
	MinAge      int `yaml:"min_age"      env:"MIN_AGE"      env-default:"18"`
	MaxAge      int `yaml:"max_age"      env:"MAX_AGE"      env-default:"120"`
	MaxTextLen  int `yaml:"max_text_len" env:"MAX_TEXT_LEN" env-default:"512"`
}

// ChainConfig — политика авто-выдачи кандидатов.
type ChainConfig struct {
	// MaxAuto — сколько кандидатов подряд выдаётся без явного запроса.
	MaxAuto int `yaml:"max_auto" env:"CHAIN_MAX_AUTO" env-default:"3"`
	// MatchDelay — пауза перед следующим кандидатом после взаимного лайка.
	MatchDelay        time.Duration `yaml:"match_delay"         env:"CHAIN_MATCH_DELAY"         env-default:"5s"`
	StreakManualEvery int           `yaml:"streak_manual_every" env:"CHAIN_STREAK_MANUAL_EVERY" env-default:"3"`
	StreakUpsellEvery int           `yaml:"streak_upsell_every" env:"CHAIN_STREAK_UPSELL_EVERY" env-default:"5"`
}

// SweeperConfig — фоновая обработка истёкших подписок и суточных квот.
type SweeperConfig struct {
	Enabled     bool          `yaml:"enabled"      env:"SWEEPER_ENABLED"      env-default:"true"`
	Interval    time.Duration `yaml:"interval"     env:"SWEEPER_INTERVAL"     env-default:"24h"`
	ResetQuotas bool          `yaml:"reset_quotas" env:"SWEEPER_RESET_QUOTAS" env-default:"true"`
}

// TimeoutConfig — общий дедлайн обработки одного апдейта.
type TimeoutConfig struct {
	Event time.Duration `yaml:"event" env:"EVENT_TIMEOUT" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	var cfg Config

	switch {
	case path != "":
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH"), &cfg); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat("local.yaml"); err == nil {
			if err := readFile("local.yaml", &cfg); err != nil {
				return nil, err
			}
			break
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readFile — чтение YAML + overlay ENV.
func readFile(p string, cfg *Config) error {
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("config file %q stat failed: %w", p, err)
	}

	if err := cleanenv.ReadConfig(p, cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to overlay env: %w", err)
	}

	return nil
}

// loadDotEnv подхватывает .env, если он существует. Отсутствие файла — не ошибка.
func loadDotEnv(p string) error {
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("dotenv %q stat failed: %w", p, err)
	}

	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("failed to load %s: %w", p, err)
	}

	return nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("db.url is required")
	}

	if c.Bot.Mode != ModePolling && c.Bot.Mode != ModeWebhook {
		return fmt.Errorf("bot.mode must be %q or %q", ModePolling, ModeWebhook)
	}

	if c.Bot.Workers <= 0 {
		return fmt.Errorf("bot.workers must be > 0")
	}

	if c.Limits.DailySwipes <= 0 {
		return fmt.Errorf("limits.daily_swipes must be > 0")
	}

	if c.Limits.MinAge <= 0 || c.Limits.MaxAge < c.Limits.MinAge {
		return fmt.Errorf("limits.min_age must be > 0 and <= limits.max_age")
	}

	if c.Limits.MaxTextLen <= 0 {
		return fmt.Errorf("limits.max_text_len must be > 0")
	}

	if c.Chain.MaxAuto <= 0 {
		return fmt.Errorf("chain.max_auto must be > 0")
	}

	if c.Chain.MatchDelay < 0 {
		return fmt.Errorf("chain.match_delay must be >= 0")
	}

	if c.Chain.StreakManualEvery <= 0 || c.Chain.StreakUpsellEvery <= 0 {
		return fmt.Errorf("chain.streak_* must be > 0")
	}

	if c.Sweeper.Enabled && c.Sweeper.Interval < time.Minute {
		return fmt.Errorf("sweeper.interval must be at least 1m")
	}

	return nil
}
