// Package report собирает файлы ТЗ на поставку: по одной книге xlsx на
// кабинет и zip-архив, если кабинетов несколько.
package report

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Line — строка ТЗ: артикул кабинета с атрибутами и количеством к отгрузке.
type Line struct {
	Article     string
	Name        string // наименование шаблона из каталога
	Category    string
	Barcode     string
	Color       string
	Size        string
	Composition string
	Current     int    // остаток на момент расчёта
	Level       string // уровень остатка по порогам чата
	Quantity    int
}

// Brief — готовое ТЗ одного кабинета.
type Brief struct {
	CabinetKey  string
	SellerLabel string
	Lines       []Line
}

// File — сгенерированный файл для отправки в чат.
type File struct {
	Name string
	Data []byte
}

var header = []interface{}{
	"Артикул", "Наименование", "Категория", "Баркод",
	"Цвет", "Размер", "Состав", "Остаток", "Уровень", "Количество",
}

// BuildXLSX рендерит книгу ТЗ: шапка, строки, итоговая строка.
// Строки сортируются по категории, внутри категории — по артикулу.
func BuildXLSX(b Brief) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#4472C4", Style: 2},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("стиль шапки: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("шапка: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "J1", headerStyle); err != nil {
		return nil, fmt.Errorf("стиль шапки: %w", err)
	}

	lines := make([]Line, len(b.Lines))
	copy(lines, b.Lines)
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Category != lines[j].Category {
			return lines[i].Category < lines[j].Category
		}
		return lines[i].Article < lines[j].Article
	})

	total := 0
	for i, line := range lines {
		row := []interface{}{
			line.Article, line.Name, line.Category, line.Barcode,
			line.Color, line.Size, line.Composition,
			line.Current, line.Level, line.Quantity,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("строка %d: %w", i+2, err)
		}
		total += line.Quantity
	}

	totalRow := len(lines) + 2
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Итого"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("J%d", totalRow), total); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("J%d", totalRow), boldStyle); err != nil {
		return nil, err
	}

	widths := []float64{16, 32, 20, 18, 16, 12, 24, 10, 12, 12}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("запись книги: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName строит имя файла ТЗ из метки продавца и идентификатора запуска.
func FileName(b Brief, runID string) string {
	return fmt.Sprintf("ТЗ_%s_%s.xlsx", sanitizeName(b.SellerLabel), runID)
}

// Bundle собирает файлы ТЗ для отправки: один кабинет — один xlsx,
// несколько — zip-архив со всеми книгами.
func Bundle(briefs []Brief, runID string) (File, error) {
	var files []File
	for _, b := range briefs {
		if len(b.Lines) == 0 {
			continue
		}
		data, err := BuildXLSX(b)
		if err != nil {
			return File{}, fmt.Errorf("ТЗ кабинета %s: %w", b.CabinetKey, err)
		}
		files = append(files, File{Name: FileName(b, runID), Data: data})
	}

	switch len(files) {
	case 0:
		return File{}, fmt.Errorf("нет ни одной строки ТЗ")
	case 1:
		return files[0], nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, file := range files {
		w, err := zw.Create(file.Name)
		if err != nil {
			return File{}, fmt.Errorf("архив: %w", err)
		}
		if _, err := w.Write(file.Data); err != nil {
			return File{}, fmt.Errorf("архив: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return File{}, fmt.Errorf("архив: %w", err)
	}
	return File{Name: fmt.Sprintf("ТЗ_%s.zip", runID), Data: buf.Bytes()}, nil
}

// sanitizeName чистит метку продавца для имени файла.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "кабинет"
	}
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(s)
}
