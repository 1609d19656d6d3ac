package report

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleBrief(key, seller string) Brief {
	return Brief{
		CabinetKey:  key,
		SellerLabel: seller,
		Lines: []Line{
			{Article: "PM-1", Name: "Перчатки", Category: "Перчатки", Barcode: "111", Color: "черный", Size: "10", Composition: "кожа", Current: 4, Level: "Жёлтый", Quantity: 3},
			{Article: "BS-2", Name: "Шапка", Category: "Головные уборы", Barcode: "222", Color: "серый", Size: "Единый", Composition: "шерсть", Current: 1, Level: "Красный", Quantity: 5},
			{Article: "BS-1", Name: "Шапка", Category: "Головные уборы", Barcode: "333", Color: "белый", Size: "Единый", Composition: "шерсть", Current: 0, Level: "Красный", Quantity: 2},
		},
	}
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	return rows
}

func TestBuildXLSX(t *testing.T) {
	data, err := BuildXLSX(sampleBrief("wb-main", "ИП Иванов"))
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 5) // шапка + 3 строки + итого
	require.Equal(t, "Артикул", rows[0][0])

	// Сортировка: по категории, внутри — по артикулу
	require.Equal(t, "BS-1", rows[1][0])
	require.Equal(t, "BS-2", rows[2][0])
	require.Equal(t, "PM-1", rows[3][0])

	require.Equal(t, "Итого", rows[4][0])
	require.Equal(t, "10", rows[4][9])
}

func TestFileName(t *testing.T) {
	b := Brief{SellerLabel: "ИП Иванов / основной"}
	require.Equal(t, "ТЗ_ИП_Иванов___основной_a1b2c3d4.xlsx", FileName(b, "a1b2c3d4"))

	require.Equal(t, "ТЗ_кабинет_a1b2c3d4.xlsx", FileName(Brief{}, "a1b2c3d4"))
}

func TestBundleSingleCabinet(t *testing.T) {
	file, err := Bundle([]Brief{sampleBrief("wb-main", "Иванов")}, "run1")
	require.NoError(t, err)
	require.Equal(t, "ТЗ_Иванов_run1.xlsx", file.Name)

	rows := readRows(t, file.Data)
	require.Equal(t, "Артикул", rows[0][0])
}

func TestBundleMultipleCabinetsZips(t *testing.T) {
	briefs := []Brief{
		sampleBrief("wb-main", "Иванов"),
		sampleBrief("ozon-main", "Петров"),
	}
	file, err := Bundle(briefs, "run2")
	require.NoError(t, err)
	require.Equal(t, "ТЗ_run2.zip", file.Name)

	zr, err := zip.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	names := []string{zr.File[0].Name, zr.File[1].Name}
	require.Contains(t, names, "ТЗ_Иванов_run2.xlsx")
	require.Contains(t, names, "ТЗ_Петров_run2.xlsx")
}

func TestBundleSkipsEmptyBriefs(t *testing.T) {
	briefs := []Brief{
		{CabinetKey: "ozon-main", SellerLabel: "Пустой"},
		sampleBrief("wb-main", "Иванов"),
	}
	file, err := Bundle(briefs, "run3")
	require.NoError(t, err)
	require.Equal(t, "ТЗ_Иванов_run3.xlsx", file.Name)
}

func TestBundleAllEmpty(t *testing.T) {
	_, err := Bundle([]Brief{{CabinetKey: "wb-main"}}, "run4")
	require.Error(t, err)
}
