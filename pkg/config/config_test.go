package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
telegram:
  token: "${TEST_BOT_TOKEN}"
cabinets:
  - key: wb-main
    mp: wb
    label: "Основной"
    scope: "ОП-1"
    api_key: "wb-key"
  - key: ozon-main
    mp: ozon
    scope: "ОП-1"
    api_key: "ozon-key"
    client_id: "12345"
catalog:
  local_path: "./catalog.xlsx"
`

func TestLoad(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "123:abc")
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	// Подстановка из окружения
	require.Equal(t, "123:abc", cfg.Telegram.Token)

	require.Len(t, cfg.Cabinets, 2)
	require.Equal(t, MarketplaceWB, cfg.Cabinets[0].Marketplace)
	require.Equal(t, MarketplaceOzon, cfg.Cabinets[1].Marketplace)

	// Дефолты применены
	require.NotEmpty(t, cfg.WB.ContentURL)
	require.NotZero(t, cfg.WB.RetryAttempts)
	require.Equal(t, "restock-bot.db", cfg.Settings.DBPath)
	require.Equal(t, "reports", cfg.Report.OutputDir)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "нет.yaml"))
	require.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "123:abc")

	tests := []struct {
		name    string
		mangle  func(c *AppConfig)
		wantErr string
	}{
		{"без токена", func(c *AppConfig) { c.Telegram.Token = "" }, "telegram.token"},
		{"без кабинетов", func(c *AppConfig) { c.Cabinets = nil }, "cabinet"},
		{"без каталога", func(c *AppConfig) { c.Catalog.LocalPath = "" }, "catalog"},
		{"дубль ключа", func(c *AppConfig) { c.Cabinets[1].Key = c.Cabinets[0].Key }, "duplicate"},
		{"wb без ключа", func(c *AppConfig) { c.Cabinets[0].APIKey = "" }, "api_key"},
		{"ozon без client_id", func(c *AppConfig) { c.Cabinets[1].ClientID = "" }, "client_id"},
		{"неизвестный mp", func(c *AppConfig) { c.Cabinets[0].Marketplace = "avito" }, "unknown marketplace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validConfig))
			require.NoError(t, err)
			tt.mangle(cfg)
			err = cfg.validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCabinetByKey(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "123:abc")
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	cab, ok := cfg.CabinetByKey("ozon-main")
	require.True(t, ok)
	require.Equal(t, "12345", cab.ClientID)

	_, ok = cfg.CabinetByKey("нет-такого")
	require.False(t, ok)
}

func TestParseTimeout(t *testing.T) {
	require.Equal(t, 10*time.Second, ParseTimeout("10s", time.Minute))
	require.Equal(t, time.Minute, ParseTimeout("мусор", time.Minute))
	require.Equal(t, time.Minute, ParseTimeout("-5s", time.Minute))
	require.Equal(t, time.Minute, ParseTimeout("", time.Minute))
}
