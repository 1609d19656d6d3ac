package brief

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ilkoid/restock-bot/internal/catalog"
	"github.com/ilkoid/restock-bot/internal/enrich"
	"github.com/ilkoid/restock-bot/internal/input"
	"github.com/ilkoid/restock-bot/internal/plan"
	"github.com/ilkoid/restock-bot/internal/stocks"
)

type byteSource struct{ data []byte }

func (s *byteSource) Fetch(_ context.Context) ([]byte, error) { return s.data, nil }

type fakeFetcher struct {
	records map[string]stocks.Record
	err     error
}

func (f *fakeFetcher) FetchStocks(_ context.Context) (map[string]stocks.Record, error) {
	return f.records, f.err
}

type fakeEnricher struct{}

func (fakeEnricher) Enrich(_ context.Context, articles []string) map[string]enrich.Attributes {
	out := make(map[string]enrich.Attributes, len(articles))
	for _, a := range articles {
		attrs := enrich.UnknownAttributes()
		attrs.Category = "Головные уборы"
		out[a] = attrs
	}
	return out
}

func record(qty int) stocks.Record {
	return stocks.Record{Components: map[string]int{stocks.ComponentAvailable: qty}}
}

// Каталог: один раздел "ОП-1", один шаблон "Шапка 3 в 1" с артикулами
// в двух кабинетах.
func testCatalog(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "ОП-1"))
	rows := [][]interface{}{
		{"ID", "Наименование", "wb-main", "ozon-main"},
		{1, "Шапка 3 в 1", "BS-1;BS-2", "OZ-1"},
		{2, "Перчатки", "PM-1", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("ОП-1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func testService(t *testing.T, wbFetcher, ozonFetcher stocks.Fetcher) *Service {
	t.Helper()
	resolver := catalog.NewResolver(&byteSource{data: testCatalog(t)})
	return New(resolver, []Cabinet{
		{Key: "wb-main", SellerLabel: "Иванов", Scope: "ОП-1", Fetcher: wbFetcher, Enricher: fakeEnricher{}},
		{Key: "ozon-main", SellerLabel: "Петров", Scope: "ОП-1", Fetcher: ozonFetcher, Enricher: fakeEnricher{}},
	}, t.TempDir())
}

func TestGenerate(t *testing.T) {
	wb := &fakeFetcher{records: map[string]stocks.Record{
		"bs1": record(0),
		"bs2": record(3),
		"pm1": record(50),
	}}
	oz := &fakeFetcher{records: map[string]stocks.Record{
		"oz1": record(5),
	}}
	svc := testService(t, wb, oz)

	rows := []input.Row{
		{Name: "Шапка 3 в 1", Need: 6},
		{Name: "Перчатки", Need: 4},   // остаток 50 > порога, не добавится
		{Name: "Неизвестное", Need: 2}, // нет в каталоге
	}
	th := plan.Thresholds{Red: 3, Yellow: 10, Set: true}

	res, err := svc.Generate(context.Background(), rows, th, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	require.NotEmpty(t, res.File.Data)

	// Выравнивание финалов [0,3,5]+6: bs1=5, bs2=1, oz1 мимо.
	// Обе строки в одном кабинете — файл один, без архива.
	require.Contains(t, res.File.Name, "Иванов")

	f, err := excelize.OpenReader(bytes.NewReader(res.File.Data))
	require.NoError(t, err)
	defer f.Close()
	sheet, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, sheet, 4) // шапка + 2 строки + итого
	require.Equal(t, "BS-1", sheet[1][0])
	require.Equal(t, "0", sheet[1][7])
	require.Equal(t, "Красный", sheet[1][8])
	require.Equal(t, "5", sheet[1][9])
	require.Equal(t, "BS-2", sheet[2][0])
	require.Equal(t, "3", sheet[2][7])
	require.Equal(t, "Жёлтый", sheet[2][8])
	require.Equal(t, "1", sheet[2][9])

	require.Contains(t, res.Summary, "Перчатки (запрошено 4)")
	require.Contains(t, res.Summary, "wb-main/PM-1: 50")
	require.Contains(t, res.Summary, "Не найдено в каталоге: Неизвестное")
}

func TestGenerateSplitsAcrossCabinets(t *testing.T) {
	wb := &fakeFetcher{records: map[string]stocks.Record{"bs1": record(0)}}
	oz := &fakeFetcher{records: map[string]stocks.Record{"oz1": record(0)}}
	svc := testService(t, wb, oz)

	rows := []input.Row{{Name: "Шапка 3 в 1", Need: 9}}
	th := plan.Thresholds{Red: 1, Yellow: 5, Set: true}

	res, err := svc.Generate(context.Background(), rows, th, nil)
	require.NoError(t, err)

	// bs2 нет в остатках (0), oz1 тоже 0: поровну между тремя парами.
	// Два кабинета — архив.
	zr, err := zip.NewReader(bytes.NewReader(res.File.Data), int64(len(res.File.Data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
}

func TestGenerateDegradedCabinet(t *testing.T) {
	wb := &fakeFetcher{records: map[string]stocks.Record{"bs1": record(0), "bs2": record(0)}}
	oz := &fakeFetcher{err: errors.New("ozon down")}
	svc := testService(t, wb, oz)

	rows := []input.Row{{Name: "Шапка 3 в 1", Need: 2}}
	th := plan.Thresholds{Red: 1, Yellow: 5, Set: true}

	res, err := svc.Generate(context.Background(), rows, th, nil)
	require.NoError(t, err)
	require.Contains(t, res.Summary, "ozon-main")
	require.Contains(t, res.Summary, "исключены")
	// ТЗ всё равно сформировано из живого кабинета
	require.NotEmpty(t, res.File.Data)
}

func TestGenerateCabinetSelection(t *testing.T) {
	wb := &fakeFetcher{records: map[string]stocks.Record{"bs1": record(0), "bs2": record(0)}}
	oz := &fakeFetcher{records: map[string]stocks.Record{"oz1": record(0)}}
	svc := testService(t, wb, oz)

	rows := []input.Row{{Name: "Шапка 3 в 1", Need: 3}}
	th := plan.Thresholds{Red: 1, Yellow: 5, Set: true}

	res, err := svc.Generate(context.Background(), rows, th, []string{"ozon-main"})
	require.NoError(t, err)

	// Только кабинет Ozon: все 3 единицы на oz1
	require.Contains(t, res.File.Name, "Петров")
	f, err := excelize.OpenReader(bytes.NewReader(res.File.Data))
	require.NoError(t, err)
	defer f.Close()
	sheet, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Equal(t, "OZ-1", sheet[1][0])
	require.Equal(t, "0", sheet[1][7])
	require.Equal(t, "Красный", sheet[1][8])
	require.Equal(t, "3", sheet[1][9])
}

func TestGenerateAllDegraded(t *testing.T) {
	svc := testService(t,
		&fakeFetcher{err: errors.New("wb down")},
		&fakeFetcher{err: errors.New("ozon down")})

	rows := []input.Row{{Name: "Шапка 3 в 1", Need: 2}}
	res, err := svc.Generate(context.Background(), rows, plan.Thresholds{Set: true, Yellow: 5}, nil)
	require.NoError(t, err)

	// Причина — недоступность кабинетов, а не отсутствие в каталоге
	require.Contains(t, res.Summary, "Все кабинеты недоступны")
	require.NotContains(t, res.Summary, "Не найдено в каталоге")
	require.Empty(t, res.File.Data)
}

func TestGenerateTemplateIDZero(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "ОП-1"))
	rows := [][]interface{}{
		{"ID", "Наименование", "wb-main"},
		{0, "Шарф вязаный", "SF-1"},
		{1, "Бандана", ""}, // шаблон есть, артикулов нет
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("ОП-1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	resolver := catalog.NewResolver(&byteSource{data: buf.Bytes()})
	svc := New(resolver, []Cabinet{
		{Key: "wb-main", SellerLabel: "Иванов", Scope: "ОП-1", Fetcher: &fakeFetcher{records: map[string]stocks.Record{"sf1": record(0)}}, Enricher: fakeEnricher{}},
	}, t.TempDir())

	res, err := svc.Generate(context.Background(), []input.Row{
		{Name: "шарф вязаный", Need: 2},
		{Name: "Бандана", Need: 1},
	}, plan.Thresholds{Set: true, Yellow: 5}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.File.Data)

	// Шаблон без артикулов — "не добавлено", а не "не найдено"
	require.Contains(t, res.Summary, "Бандана (запрошено 1)")
	require.NotContains(t, res.Summary, "Не найдено в каталоге")

	// Шаблон с ID 0 — обычная строка каталога: имя разворачивается
	wbk, err := excelize.OpenReader(bytes.NewReader(res.File.Data))
	require.NoError(t, err)
	defer wbk.Close()
	sheet, err := wbk.GetRows(wbk.GetSheetList()[0])
	require.NoError(t, err)
	require.Equal(t, "SF-1", sheet[1][0])
	require.Equal(t, "Шарф вязаный", sheet[1][1])
}

func TestGenerateUnknownSelection(t *testing.T) {
	svc := testService(t, &fakeFetcher{}, &fakeFetcher{})
	_, err := svc.Generate(context.Background(), []input.Row{{Name: "x", Need: 1}},
		plan.Thresholds{Set: true, Yellow: 5}, []string{"нет-такого"})
	require.Error(t, err)
}

func TestStocksReport(t *testing.T) {
	wb := &fakeFetcher{records: map[string]stocks.Record{
		"bs1": record(2),
		"xx9": record(7), // артикула нет в каталоге — строка без наименования
	}}
	oz := &fakeFetcher{err: errors.New("ozon down")}
	svc := testService(t, wb, oz)

	th := plan.Thresholds{Red: 3, Yellow: 10, Set: true}
	res, err := svc.Stocks(context.Background(), th, nil)
	require.NoError(t, err)
	require.Contains(t, res.File.Name, "Остатки_")
	require.Contains(t, res.Summary, "ozon-main не ответил")

	f, err := excelize.OpenReader(bytes.NewReader(res.File.Data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// В колонке артикула — написание из каталога, не внутренний ключ
	require.Equal(t, "BS-1", rows[1][0])
	require.Equal(t, "Шапка 3 в 1", rows[1][1])
	// Красный уровень: 2 <= Red
	require.Equal(t, "Красный", rows[1][len(rows[1])-1])
	// Неизвестный каталогу артикул остаётся как есть
	require.Equal(t, "xx9", rows[2][0])
}

func TestStocksAllDegraded(t *testing.T) {
	svc := testService(t, &fakeFetcher{err: errors.New("down")}, &fakeFetcher{err: errors.New("down")})
	_, err := svc.Stocks(context.Background(), plan.Thresholds{Set: true, Yellow: 5}, nil)
	require.Error(t, err)
}
