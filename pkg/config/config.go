// Package config загружает и валидирует конфигурацию бота из config.yaml.
//
// Поддерживает подстановку переменных окружения (${VAR}) и дефолтные
// значения для незаполненных полей через GetDefaults().
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Marketplace — идентификатор маркетплейса.
type Marketplace string

const (
	MarketplaceWB   Marketplace = "wb"
	MarketplaceOzon Marketplace = "ozon"
)

// AppConfig — корневая структура конфигурации.
// Зеркалит структуру config.yaml.
type AppConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	WB       WBConfig       `yaml:"wb"`
	Ozon     OzonConfig     `yaml:"ozon"`
	Cabinets []Cabinet      `yaml:"cabinets"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Report   ReportConfig   `yaml:"report"`
	Settings SettingsConfig `yaml:"settings"`
	Log      LogConfig      `yaml:"log"`
}

// TelegramConfig — настройки Telegram бота.
type TelegramConfig struct {
	Token        string  `yaml:"token"`         // Поддерживает ${VAR}
	AllowedUsers []int64 `yaml:"allowed_users"` // Разрешённые user ID (пусто = все)
}

// Cabinet — один кабинет: пара (маркетплейс, аккаунт продавца).
//
// Набор кабинетов фиксирован на момент конфигурации; количество не
// захардкожено — бот работает с любым числом кабинетов из config.yaml.
type Cabinet struct {
	Key         string      `yaml:"key"`       // Уникальный ключ, например "wb-main"
	Marketplace Marketplace `yaml:"mp"`        // "wb" или "ozon"
	Label       string      `yaml:"label"`     // Отображаемое имя для пользователя
	Seller      string      `yaml:"seller"`    // Юрлицо продавца (идёт в шапку ТЗ)
	Scope       string      `yaml:"scope"`     // Раздел каталога (имя листа)
	APIKey      string      `yaml:"api_key"`   // Поддерживает ${VAR}
	ClientID    string      `yaml:"client_id"` // Только для Ozon
}

// WBConfig — настройки Wildberries API.
type WBConfig struct {
	ContentURL    string `yaml:"content_url"`    // Базовый URL Content API
	StatisticsURL string `yaml:"statistics_url"` // Базовый URL Statistics API
	RateLimit     int    `yaml:"rate_limit"`     // Запросов в минуту
	BurstLimit    int    `yaml:"burst_limit"`    // Burst для rate limiter
	RetryAttempts int    `yaml:"retry_attempts"` // Количество retry попыток
	Timeout       string `yaml:"timeout"`        // Timeout для HTTP запросов ("30s")
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *WBConfig) GetDefaults() WBConfig {
	result := *c

	if result.ContentURL == "" {
		result.ContentURL = "https://content-api.wildberries.ru"
	}
	if result.StatisticsURL == "" {
		result.StatisticsURL = "https://statistics-api.wildberries.ru"
	}
	if result.RateLimit == 0 {
		result.RateLimit = 100 // запросов в минуту
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 5
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 3
	}
	if result.Timeout == "" {
		result.Timeout = "30s"
	}

	return result
}

// OzonConfig — настройки Ozon Seller API.
type OzonConfig struct {
	BaseURL       string `yaml:"base_url"`
	RateLimit     int    `yaml:"rate_limit"`
	BurstLimit    int    `yaml:"burst_limit"`
	RetryAttempts int    `yaml:"retry_attempts"`
	Timeout       string `yaml:"timeout"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *OzonConfig) GetDefaults() OzonConfig {
	result := *c

	if result.BaseURL == "" {
		result.BaseURL = "https://api-seller.ozon.ru"
	}
	if result.RateLimit == 0 {
		result.RateLimit = 120
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 5
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 3
	}
	if result.Timeout == "" {
		result.Timeout = "30s"
	}

	return result
}

// CatalogConfig — источник каталога соответствий (шаблон → артикулы).
//
// Каталог — это xlsx книга: один лист на раздел (scope), колонки
// "ID", "Наименование" и по колонке на каждый ключ кабинета.
// Книга лежит либо в S3 бакете (приоритет), либо локально.
type CatalogConfig struct {
	S3        S3Config `yaml:"s3"`
	ObjectKey string   `yaml:"object_key"` // Ключ книги каталога в бакете
	LocalPath string   `yaml:"local_path"` // Fallback: путь к локальному файлу
}

// S3Config — настройки объектного хранилища.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled сообщает, настроен ли S3 источник каталога.
func (s S3Config) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// ReportConfig — настройки генерации отчётов.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir"` // Директория для сгенерированных файлов
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ReportConfig) GetDefaults() ReportConfig {
	result := *c
	if result.OutputDir == "" {
		result.OutputDir = "reports"
	}
	return result
}

// SettingsConfig — хранилище настроек чатов (пороги, выбор кабинетов).
type SettingsConfig struct {
	DBPath string `yaml:"db_path"` // Путь к sqlite базе
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *SettingsConfig) GetDefaults() SettingsConfig {
	result := *c
	if result.DBPath == "" {
		result.DBPath = "restock-bot.db"
	}
	return result
}

// LogConfig — настройки логирования.
type LogConfig struct {
	Level string `yaml:"level"` // trace/debug/info/warn/error
	File  string `yaml:"file"`  // Путь к файлу лога (ротация через lumberjack)
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *LogConfig) GetDefaults() LogConfig {
	result := *c
	if result.Level == "" {
		result.Level = "info"
	}
	if result.File == "" {
		result.File = "logs/restock-bot.log"
	}
	return result
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения.
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 4. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	// 5. Применяем дефолты и валидируем критические настройки
	cfg.WB = cfg.WB.GetDefaults()
	cfg.Ozon = cfg.Ozon.GetDefaults()
	cfg.Report = cfg.Report.GetDefaults()
	cfg.Settings = cfg.Settings.GetDefaults()
	cfg.Log = cfg.Log.GetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if len(c.Cabinets) == 0 {
		return fmt.Errorf("at least one cabinet is required")
	}
	if !c.Catalog.S3.Enabled() && c.Catalog.LocalPath == "" {
		return fmt.Errorf("catalog source is required: either catalog.s3 or catalog.local_path")
	}
	if c.Catalog.S3.Enabled() && c.Catalog.ObjectKey == "" {
		return fmt.Errorf("catalog.object_key is required when S3 source is configured")
	}

	seen := make(map[string]bool, len(c.Cabinets))
	for _, cab := range c.Cabinets {
		if cab.Key == "" {
			return fmt.Errorf("cabinet key is required")
		}
		if seen[cab.Key] {
			return fmt.Errorf("duplicate cabinet key: %s", cab.Key)
		}
		seen[cab.Key] = true

		switch cab.Marketplace {
		case MarketplaceWB:
			if cab.APIKey == "" {
				return fmt.Errorf("cabinet %s: api_key is required", cab.Key)
			}
		case MarketplaceOzon:
			if cab.APIKey == "" || cab.ClientID == "" {
				return fmt.Errorf("cabinet %s: api_key and client_id are required", cab.Key)
			}
		default:
			return fmt.Errorf("cabinet %s: unknown marketplace %q", cab.Key, cab.Marketplace)
		}
	}

	return nil
}

// CabinetByKey возвращает кабинет по ключу.
func (c *AppConfig) CabinetByKey(key string) (Cabinet, bool) {
	for _, cab := range c.Cabinets {
		if cab.Key == key {
			return cab, true
		}
	}
	return Cabinet{}, false
}

// ParseTimeout парсит строку таймаута ("30s") с fallback на дефолт.
func ParseTimeout(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
