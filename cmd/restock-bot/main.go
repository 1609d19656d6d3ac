// Restock Bot
// Точка входа: телеграм-бот формирования ТЗ на поставку
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ilkoid/restock-bot/internal/bot"
	"github.com/ilkoid/restock-bot/internal/brief"
	"github.com/ilkoid/restock-bot/internal/catalog"
	"github.com/ilkoid/restock-bot/internal/enrich"
	"github.com/ilkoid/restock-bot/internal/settings"
	"github.com/ilkoid/restock-bot/internal/stocks"
	"github.com/ilkoid/restock-bot/pkg/config"
	"github.com/ilkoid/restock-bot/pkg/ozon"
	"github.com/ilkoid/restock-bot/pkg/wb"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Конфигурация
	configPath := os.Getenv("RESTOCK_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}

	// 2. Логгер
	logger := config.SetupLogger(cfg.Log)
	logger.Info().Str("config", configPath).Int("cabinets", len(cfg.Cabinets)).
		Msg("конфигурация загружена")

	// 3. Настройки чатов
	store, err := settings.Open(cfg.Settings.DBPath)
	if err != nil {
		return fmt.Errorf("база настроек: %w", err)
	}
	defer store.Close()

	// 4. Каталог
	source, err := catalog.NewSource(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("источник каталога: %w", err)
	}
	resolver := catalog.NewResolver(source)

	// 5. Кабинеты: клиент + сборщик остатков + обогатитель на каждый.
	// Кэш схем атрибутов общий на процесс.
	schemas := enrich.NewMemorySchemaStore()
	cabinets, err := buildCabinets(cfg, schemas)
	if err != nil {
		return err
	}
	service := brief.New(resolver, cabinets, cfg.Report.OutputDir)

	// 6. Бот
	tgBot, err := bot.New(cfg.Telegram.Token, service, store, cfg.Telegram.AllowedUsers)
	if err != nil {
		return err
	}

	// 7. Запуск до SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tgBot.Run(ctx)
	log.Info().Msg("завершение работы")
	return nil
}

// buildCabinets собирает конвейерные зависимости каждого кабинета.
func buildCabinets(cfg *config.AppConfig, schemas enrich.SchemaStore) ([]brief.Cabinet, error) {
	var cabinets []brief.Cabinet
	for _, c := range cfg.Cabinets {
		label := c.Seller
		if label == "" {
			label = c.Label
		}
		cab := brief.Cabinet{
			Key:         c.Key,
			SellerLabel: label,
			Scope:       c.Scope,
		}
		switch c.Marketplace {
		case config.MarketplaceWB:
			client, err := wb.NewFromConfig(cfg.WB, c.APIKey)
			if err != nil {
				return nil, fmt.Errorf("кабинет %s: %w", c.Key, err)
			}
			cab.Fetcher = stocks.NewWB(client)
			cab.Enricher = enrich.NewWB(c.Key, client, schemas)
		case config.MarketplaceOzon:
			client, err := ozon.NewFromConfig(cfg.Ozon, c.ClientID, c.APIKey)
			if err != nil {
				return nil, fmt.Errorf("кабинет %s: %w", c.Key, err)
			}
			cab.Fetcher = stocks.NewOzon(client)
			cab.Enricher = enrich.NewOzon(c.Key, client, schemas)
		default:
			return nil, fmt.Errorf("кабинет %s: неизвестный маркетплейс %q", c.Key, c.Marketplace)
		}
		cabinets = append(cabinets, cab)
	}
	return cabinets, nil
}
