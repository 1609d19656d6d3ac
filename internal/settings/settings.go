// Package settings хранит настройки чатов в SQLite: пороги остатков и
// выбранные кабинеты. Настройки переживают перезапуск бота.
package settings

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ilkoid/restock-bot/internal/plan"
)

// Store — хранилище настроек чатов поверх SQLite.
type Store struct {
	db *sql.DB
}

// Open открывает базу настроек и накатывает схему.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("открытие базы настроек: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS chat_thresholds (
	chat_id INTEGER PRIMARY KEY,
	red     INTEGER NOT NULL,
	yellow  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_cabinets (
	chat_id     INTEGER NOT NULL,
	cabinet_key TEXT    NOT NULL,
	PRIMARY KEY (chat_id, cabinet_key)
);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("миграция базы настроек: %w", err)
	}
	return nil
}

// Thresholds возвращает пороги чата. Если пороги не задавались,
// возвращаются незаданные пороги (Set=false).
func (s *Store) Thresholds(chatID int64) (plan.Thresholds, error) {
	var t plan.Thresholds
	err := s.db.QueryRow(
		`SELECT red, yellow FROM chat_thresholds WHERE chat_id = ?`, chatID,
	).Scan(&t.Red, &t.Yellow)
	if err == sql.ErrNoRows {
		return plan.Thresholds{}, nil
	}
	if err != nil {
		return plan.Thresholds{}, fmt.Errorf("чтение порогов чата %d: %w", chatID, err)
	}
	t.Set = true
	return t, nil
}

// SetThresholds сохраняет пороги чата. Красный порог не может быть
// выше желтого, отрицательные значения не принимаются.
func (s *Store) SetThresholds(chatID int64, red, yellow int) error {
	if red < 0 || yellow < 0 {
		return fmt.Errorf("пороги не могут быть отрицательными: %d, %d", red, yellow)
	}
	if red > yellow {
		return fmt.Errorf("красный порог (%d) не может быть выше желтого (%d)", red, yellow)
	}
	_, err := s.db.Exec(
		`INSERT INTO chat_thresholds (chat_id, red, yellow) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET red = excluded.red, yellow = excluded.yellow`,
		chatID, red, yellow,
	)
	if err != nil {
		return fmt.Errorf("сохранение порогов чата %d: %w", chatID, err)
	}
	return nil
}

// SelectedCabinets возвращает ключи выбранных кабинетов чата в
// стабильном порядке. Пустой список означает "все кабинеты".
func (s *Store) SelectedCabinets(chatID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT cabinet_key FROM chat_cabinets WHERE chat_id = ? ORDER BY cabinet_key`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("чтение кабинетов чата %d: %w", chatID, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ToggleCabinet переключает выбор кабинета и возвращает новое состояние:
// true — кабинет теперь выбран.
func (s *Store) ToggleCabinet(chatID int64, key string) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM chat_cabinets WHERE chat_id = ? AND cabinet_key = ?`, chatID, key,
	)
	if err != nil {
		return false, fmt.Errorf("переключение кабинета %s: %w", key, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if deleted > 0 {
		return false, nil
	}
	_, err = s.db.Exec(
		`INSERT INTO chat_cabinets (chat_id, cabinet_key) VALUES (?, ?)`, chatID, key,
	)
	if err != nil {
		return false, fmt.Errorf("переключение кабинета %s: %w", key, err)
	}
	return true, nil
}

// ClearCabinets сбрасывает выбор кабинетов чата на "все".
func (s *Store) ClearCabinets(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM chat_cabinets WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("сброс кабинетов чата %d: %w", chatID, err)
	}
	return nil
}
