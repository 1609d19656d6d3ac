// Package bot — телеграм-поверхность: команды, загрузка заявок,
// отправка готовых ТЗ и сводок.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/ilkoid/restock-bot/internal/brief"
	"github.com/ilkoid/restock-bot/internal/input"
	"github.com/ilkoid/restock-bot/internal/plan"
	"github.com/ilkoid/restock-bot/internal/settings"
)

// Generator — срез конвейера ТЗ, нужный боту.
type Generator interface {
	Generate(ctx context.Context, rows []input.Row, t plan.Thresholds, selectedKeys []string) (*brief.Result, error)
	Stocks(ctx context.Context, t plan.Thresholds, selectedKeys []string) (*brief.Result, error)
	Cabinets() []brief.Cabinet
}

// Bot обслуживает апдейты Telegram.
type Bot struct {
	api          *tgbotapi.BotAPI
	service      Generator
	store        *settings.Store
	allowedUsers map[int64]bool
	httpClient   *http.Client
}

// New создает бота. Пустой allowlist разрешает всех.
func New(token string, service Generator, store *settings.Store, allowedUserIDs []int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("подключение к Telegram: %w", err)
	}
	allowed := make(map[int64]bool, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		allowed[id] = true
	}
	return &Bot{
		api:          api,
		service:      service,
		store:        store,
		allowedUsers: allowed,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Run крутит цикл апдейтов до отмены контекста.
func (b *Bot) Run(ctx context.Context) {
	log.Info().Str("bot", b.api.Self.UserName).Msg("бот запущен")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Info().Msg("бот остановлен")
			return
		case update := <-updates:
			b.dispatch(ctx, update)
		}
	}
}

// dispatch разбирает апдейт с защитой от паники: один кривой апдейт не
// должен ронять цикл.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("паника при обработке апдейта")
		}
	}()

	switch {
	case update.Message != nil:
		if !b.authorized(update.Message.From.ID) {
			b.send(tgbotapi.NewMessage(update.Message.Chat.ID, "У вас нет доступа к этому боту."))
			return
		}
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		if !b.authorized(update.CallbackQuery.From.ID) {
			return
		}
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) authorized(userID int64) bool {
	return len(b.allowedUsers) == 0 || b.allowedUsers[userID]
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	switch msg.Command() {
	case "start":
		b.send(tgbotapi.NewMessage(msg.Chat.ID,
			"Бот формирования ТЗ на поставку.\n"+
				"Пришлите файл заявки (.xlsx или .csv: наименование; количество) — в ответ придет ТЗ.\n"+
				"Команды: /help"))
	case "help":
		b.send(tgbotapi.NewMessage(msg.Chat.ID,
			"/tz — как сформировать ТЗ\n"+
				"/stocks — сводка остатков по кабинетам\n"+
				"/thresholds <красный> <желтый> — пороги остатков\n"+
				"/cabinets — выбор кабинетов\n"))
	case "tz":
		b.send(tgbotapi.NewMessage(msg.Chat.ID,
			"Пришлите файл заявки: .xlsx или .csv, две колонки — наименование и количество. "+
				"Перед этим проверьте пороги (/thresholds) и кабинеты (/cabinets)."))
	case "stocks":
		b.handleStocks(ctx, msg.Chat.ID)
	case "thresholds":
		b.handleThresholds(msg.Chat.ID, msg.CommandArguments())
	case "cabinets":
		b.sendCabinetKeyboard(msg.Chat.ID)
	default:
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Не понял. Пришлите файл заявки или /help."))
	}
}

// handleDocument скачивает присланную заявку и запускает конвейер.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document
	log.Info().Int64("chat_id", chatID).Str("file", doc.FileName).Msg("получена заявка")

	data, err := b.downloadFile(doc.FileID)
	if err != nil {
		log.Error().Err(err).Str("file", doc.FileName).Msg("не удалось скачать файл")
		b.send(tgbotapi.NewMessage(chatID, "Не удалось скачать файл, попробуйте еще раз."))
		return
	}

	rows, err := input.Parse(doc.FileName, data)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Файл не разобран: "+err.Error()))
		return
	}

	th, selected, err := b.chatSettings(chatID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Ошибка чтения настроек чата."))
		return
	}
	if !th.Set {
		b.send(tgbotapi.NewMessage(chatID,
			"Сначала задайте пороги: /thresholds <красный> <желтый>, например /thresholds 5 15"))
		return
	}

	b.send(tgbotapi.NewMessage(chatID, "Формирую ТЗ, подождите..."))
	res, err := b.service.Generate(ctx, rows, th, selected)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("формирование ТЗ не удалось")
		b.send(tgbotapi.NewMessage(chatID, "Не удалось сформировать ТЗ: "+err.Error()))
		return
	}

	if len(res.File.Data) > 0 {
		b.sendDocument(chatID, res.File.Name, res.File.Data)
	}
	b.send(tgbotapi.NewMessage(chatID, res.Summary))
}

func (b *Bot) handleStocks(ctx context.Context, chatID int64) {
	th, selected, err := b.chatSettings(chatID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Ошибка чтения настроек чата."))
		return
	}

	b.send(tgbotapi.NewMessage(chatID, "Собираю остатки, подождите..."))
	res, err := b.service.Stocks(ctx, th, selected)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("сводка остатков не удалась")
		b.send(tgbotapi.NewMessage(chatID, "Не удалось собрать остатки: "+err.Error()))
		return
	}
	b.sendDocument(chatID, res.File.Name, res.File.Data)
	b.send(tgbotapi.NewMessage(chatID, res.Summary))
}

func (b *Bot) handleThresholds(chatID int64, args string) {
	args = strings.TrimSpace(args)
	if args == "" {
		th, err := b.store.Thresholds(chatID)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "Ошибка чтения настроек чата."))
			return
		}
		if !th.Set {
			b.send(tgbotapi.NewMessage(chatID,
				"Пороги не заданы. Задайте: /thresholds <красный> <желтый>"))
			return
		}
		b.send(tgbotapi.NewMessage(chatID,
			fmt.Sprintf("Текущие пороги: красный ≤ %d, желтый ≤ %d", th.Red, th.Yellow)))
		return
	}

	red, yellow, err := parseThresholds(args)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, err.Error()))
		return
	}
	if err := b.store.SetThresholds(chatID, red, yellow); err != nil {
		b.send(tgbotapi.NewMessage(chatID, err.Error()))
		return
	}
	b.send(tgbotapi.NewMessage(chatID,
		fmt.Sprintf("Пороги сохранены: красный ≤ %d, желтый ≤ %d", red, yellow)))
}

// parseThresholds разбирает аргументы "/thresholds 5 15".
func parseThresholds(args string) (int, int, error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("нужно два числа: /thresholds <красный> <желтый>")
	}
	red, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("красный порог %q не число", parts[0])
	}
	yellow, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("желтый порог %q не число", parts[1])
	}
	return red, yellow, nil
}

// sendCabinetKeyboard показывает переключатели кабинетов.
func (b *Bot) sendCabinetKeyboard(chatID int64) {
	selected, err := b.store.SelectedCabinets(chatID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Ошибка чтения настроек чата."))
		return
	}
	msg := tgbotapi.NewMessage(chatID,
		"Выбор кабинетов для ТЗ. Пустой выбор означает все кабинеты.")
	msg.ReplyMarkup = cabinetKeyboard(b.service.Cabinets(), selected)
	b.send(msg)
}

func cabinetKeyboard(cabs []brief.Cabinet, selected []string) tgbotapi.InlineKeyboardMarkup {
	on := make(map[string]bool, len(selected))
	for _, k := range selected {
		on[k] = true
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range cabs {
		label := c.SellerLabel
		if label == "" {
			label = c.Key
		}
		if on[c.Key] {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "cab:"+c.Key),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Сбросить (все кабинеты)", "cab:reset"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Warn().Err(err).Msg("не удалось подтвердить callback")
	}
	chatID := query.Message.Chat.ID

	key, ok := strings.CutPrefix(query.Data, "cab:")
	if !ok {
		return
	}
	if key == "reset" {
		if err := b.store.ClearCabinets(chatID); err != nil {
			b.send(tgbotapi.NewMessage(chatID, "Ошибка сохранения настроек."))
			return
		}
	} else if _, err := b.store.ToggleCabinet(chatID, key); err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Ошибка сохранения настроек."))
		return
	}

	selected, err := b.store.SelectedCabinets(chatID)
	if err != nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, query.Message.MessageID,
		cabinetKeyboard(b.service.Cabinets(), selected))
	if _, err := b.api.Request(edit); err != nil {
		log.Warn().Err(err).Msg("не удалось обновить клавиатуру кабинетов")
	}
}

func (b *Bot) chatSettings(chatID int64) (plan.Thresholds, []string, error) {
	th, err := b.store.Thresholds(chatID)
	if err != nil {
		return plan.Thresholds{}, nil, err
	}
	selected, err := b.store.SelectedCabinets(chatID)
	if err != nil {
		return plan.Thresholds{}, nil, err
	}
	return th, selected, nil
}

func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("ссылка на файл: %w", err)
	}
	resp, err := b.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("скачивание файла: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("скачивание файла: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) sendDocument(chatID int64, name string, data []byte) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := b.api.Send(doc); err != nil {
		log.Error().Err(err).Str("file", name).Msg("не удалось отправить документ")
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Error().Err(err).Msg("не удалось отправить сообщение")
	}
}
