package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

// StockLine — строка сводки остатков одного артикула.
type StockLine struct {
	Article    string
	Name       string // наименование шаблона, пусто для неизвестных артикулов
	Components map[string]int
	Total      int
	Level      string // метка уровня остатка
}

// StockSheet — сводка остатков одного кабинета.
type StockSheet struct {
	CabinetKey  string
	SellerLabel string
	Lines       []StockLine
}

// BuildStocksXLSX рендерит сводку остатков: по листу на кабинет.
// Порядок компонент задаёт колонки после базовых.
func BuildStocksXLSX(sheets []StockSheet, components []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}

	for i, sheet := range sheets {
		name := sanitizeName(sheet.SellerLabel)
		if name == "кабинет" {
			name = sheet.CabinetKey
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}

		header := []interface{}{"Артикул", "Наименование"}
		for _, c := range components {
			header = append(header, c)
		}
		header = append(header, "Всего", "Уровень")
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return nil, err
		}
		endCol, err := excelize.ColumnNumberToName(len(header))
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(name, "A1", endCol+"1", headerStyle); err != nil {
			return nil, err
		}

		lines := make([]StockLine, len(sheet.Lines))
		copy(lines, sheet.Lines)
		sort.Slice(lines, func(i, j int) bool { return lines[i].Article < lines[j].Article })

		for r, line := range lines {
			row := []interface{}{line.Article, line.Name}
			for _, c := range components {
				row = append(row, line.Components[c])
			}
			row = append(row, line.Total, line.Level)
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return nil, fmt.Errorf("лист %s, строка %d: %w", name, r+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("запись книги: %w", err)
	}
	return buf.Bytes(), nil
}
