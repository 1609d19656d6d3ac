package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Scope — разобранный раздел каталога: все шаблоны одного листа.
//
// template_id уникален внутри раздела; один шаблон может иметь ноль и
// более артикулов в каждом кабинете.
type Scope struct {
	Name string

	// Names: template_id → отображаемое имя
	Names map[int]string

	// Articles: template_id → ключ кабинета → артикулы (в порядке каталога)
	Articles map[int]map[string][]string

	// Order — template_id в порядке строк листа (для стабильного вывода)
	Order []int
}

// Resolver читает разделы каталога из источника.
//
// Каждый вызов LoadScope перечитывает книгу: разделы независимы, результат
// для одного раздела не влияет на другой.
type Resolver struct {
	src Source
}

// NewResolver создает резолвер поверх источника каталога.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// LoadScope возвращает раздел каталога по имени листа.
//
// Отсутствие листа — пустой, но валидный раздел (ноль шаблонов), не
// ошибка: так ведёт себя каталог, в котором раздел ещё не завели.
// Недоступность самого источника — ошибка (без каталога ТЗ не посчитать).
func (r *Resolver) LoadScope(ctx context.Context, scope string) (*Scope, error) {
	data, err := r.src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog source unavailable: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog workbook: %w", err)
	}
	defer f.Close()

	result := &Scope{
		Name:     scope,
		Names:    make(map[int]string),
		Articles: make(map[int]map[string][]string),
	}

	sheet := findSheet(f, scope)
	if sheet == "" {
		log.Warn().Str("scope", scope).Msg("catalog sheet not found, treating as empty scope")
		return result, nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return result, nil
	}

	// Первая строка — заголовки: "ID", "Наименование", дальше ключи кабинетов
	header := rows[0]
	cabinetCols := make(map[int]string) // индекс колонки → ключ кабинета
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i < 2 || h == "" {
			continue
		}
		cabinetCols[i] = h
	}

	for rowNum, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(cell(row, 0)))
		if err != nil {
			// Строки без числового ID (подзаголовки, мусор) пропускаем
			continue
		}

		name := strings.TrimSpace(cell(row, 1))
		if name == "" {
			continue
		}

		if _, dup := result.Names[id]; dup {
			log.Warn().Str("scope", scope).Int("template_id", id).Int("row", rowNum+2).
				Msg("duplicate template id in catalog sheet, keeping first occurrence")
			continue
		}

		result.Names[id] = name
		result.Order = append(result.Order, id)

		perCabinet := make(map[string][]string)
		for col, cabKey := range cabinetCols {
			raw := strings.TrimSpace(cell(row, col))
			if raw == "" {
				continue
			}
			// Несколько артикулов в ячейке разделяются ";" (исторически ещё ",")
			for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' }) {
				part = strings.TrimSpace(part)
				if part != "" {
					perCabinet[cabKey] = append(perCabinet[cabKey], part)
				}
			}
		}
		result.Articles[id] = perCabinet
	}

	return result, nil
}

// findSheet ищет лист по имени без учета регистра и крайних пробелов.
func findSheet(f *excelize.File, scope string) string {
	want := strings.ToLower(strings.TrimSpace(scope))
	for _, name := range f.GetSheetList() {
		if strings.ToLower(strings.TrimSpace(name)) == want {
			return name
		}
	}
	return ""
}

// cell безопасно возвращает ячейку строки (excelize обрезает хвостовые пустые).
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
