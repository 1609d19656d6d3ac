// Package input разбирает присланный пользователем файл заявки:
// таблицу из двух колонок "наименование — количество" в xlsx или CSV.
package input

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/saintfish/chardet"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ilkoid/restock-bot/pkg/normalize"
)

// Row — одна позиция заявки: наименование шаблона и сколько нужно доехать.
type Row struct {
	Name string
	Need int
}

// ErrNoRows возвращается, когда после фильтрации мусора в файле не
// осталось ни одной валидной позиции.
var ErrNoRows = errors.New("в файле заявки нет ни одной валидной строки")

// Parse разбирает файл заявки по расширению имени.
// Дубли наименований суммируются, строки с невалидным количеством
// отбрасываются с логом.
func Parse(filename string, data []byte) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ParseXLSX(data)
	case ".csv", ".txt":
		return ParseCSV(data)
	default:
		return nil, fmt.Errorf("неподдерживаемый формат файла %q: нужен .xlsx или .csv", filename)
	}
}

// ParseXLSX читает первый лист книги: колонка A — наименование,
// колонка B — количество. Шапка распознается и пропускается.
func ParseXLSX(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("чтение листа %q: %w", sheets[0], err)
	}

	var raw [][2]string
	for _, row := range rows {
		var name, qty string
		if len(row) > 0 {
			name = row[0]
		}
		if len(row) > 1 {
			qty = row[1]
		}
		raw = append(raw, [2]string{name, qty})
	}
	return collect(raw)
}

// ParseCSV читает CSV с разделителем ";" или ",". Кодировка
// определяется автоматически: заявки из Excel приходят в Windows-1251.
func ParseCSV(data []byte) ([]Row, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	var raw [][2]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sep := ";"
		if !strings.Contains(line, ";") {
			sep = ","
		}
		parts := strings.SplitN(line, sep, 2)
		var name, qty string
		name = parts[0]
		if len(parts) > 1 {
			qty = parts[1]
		}
		raw = append(raw, [2]string{name, qty})
	}
	return collect(raw)
}

// decodeText приводит байты файла к UTF-8. UTF-8 с BOM и без проходит
// как есть, однобайтовые кириллические кодировки перекодируются.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	det := chardet.NewTextDetector()
	res, err := det.DetectBest(data)
	if err != nil {
		// Пустой или слишком короткий буфер: читаем как есть
		return string(data), nil
	}

	var cm *charmap.Charmap
	switch res.Charset {
	case "windows-1251":
		cm = charmap.Windows1251
	case "KOI8-R":
		cm = charmap.KOI8R
	case "ISO-8859-5":
		cm = charmap.ISO8859_5
	default:
		return string(data), nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), cm.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("перекодирование из %s: %w", res.Charset, err)
	}
	return string(decoded), nil
}

// collect фильтрует сырые пары, склеивает дубли по нормализованному
// наименованию и сохраняет порядок первого появления.
func collect(raw [][2]string) ([]Row, error) {
	index := map[string]int{} // нормализованное имя -> позиция в out
	var out []Row

	for i, pair := range raw {
		name := strings.TrimSpace(pair[0])
		qtyStr := strings.TrimSpace(pair[1])
		if name == "" {
			continue
		}
		need, err := parseQty(qtyStr)
		if err != nil || need <= 0 {
			// Первая строка с нечисловым количеством — почти наверняка шапка
			if i == 0 {
				continue
			}
			log.Warn().Str("name", name).Str("qty", qtyStr).
				Msg("строка заявки пропущена: некорректное количество")
			continue
		}

		key := normalize.Key(name)
		if pos, ok := index[key]; ok {
			out[pos].Need += need
			continue
		}
		index[key] = len(out)
		out = append(out, Row{Name: name, Need: need})
	}

	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

// parseQty терпит дробные количества из Excel ("5,0", "5.00") и
// округляет их вниз до целого.
func parseQty(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("пусто")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
