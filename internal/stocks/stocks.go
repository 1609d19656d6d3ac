// Package stocks собирает текущие остатки кабинетов в единую форму.
//
// Семантика количеств у маркетплейсов разная: WB отдаёт
// доступно / в пути к покупателю / в пути от покупателя, Ozon —
// доступно / едет на склад / резерв. Сборщик сводит компоненты к
// Record с именованными слагаемыми и одной суммой "всего на маркетплейсе".
package stocks

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ilkoid/restock-bot/pkg/normalize"
	"github.com/ilkoid/restock-bot/pkg/ozon"
	"github.com/ilkoid/restock-bot/pkg/wb"
)

// Имена компонентов количества. Всегда ≥2 на маркетплейс.
const (
	ComponentAvailable  = "доступно"
	ComponentToClient   = "к покупателю"  // WB: в пути к покупателю
	ComponentFromClient = "от покупателя" // WB: возвраты в пути
	ComponentInbound    = "едет на склад" // Ozon: в поставке
	ComponentReserved   = "резерв"        // Ozon: под заказами
)

// Record — остаток одного артикула: именованные неотрицательные слагаемые.
type Record struct {
	Components map[string]int
}

// Total — сумма всех компонентов ("всего на маркетплейсе").
func (r Record) Total() int {
	total := 0
	for _, v := range r.Components {
		total += v
	}
	return total
}

// add прибавляет компонент, приводя отрицательные и мусорные значения к 0.
func (r *Record) add(component string, qty int) {
	if r.Components == nil {
		r.Components = make(map[string]int)
	}
	if qty < 0 {
		qty = 0
	}
	r.Components[component] += qty
}

// Snapshot — срез остатков одного кабинета.
//
// Ключ — канонический ключ артикула (normalize.Key). Отсутствие артикула
// в срезе читается как нулевой остаток. Degraded выставляется, когда
// кабинет не ответил после всех попыток: пустой срез тогда означает
// "данных нет", а не "везде ноль" — это различие уходит в сводку.
type Snapshot struct {
	Records  map[string]Record
	Degraded bool
}

// Get возвращает остаток по сырому артикулу; отсутствующий артикул — нули.
func (s Snapshot) Get(rawArticle string) Record {
	return s.Records[normalize.Key(rawArticle)]
}

// Fetcher возвращает срез остатков своего кабинета.
// Один Fetcher = один кабинет (внутри — клиент с ключом кабинета).
type Fetcher interface {
	FetchStocks(ctx context.Context) (map[string]Record, error)
}

// WBFetcher собирает остатки кабинета Wildberries.
type WBFetcher struct {
	client *wb.Client
}

// NewWB создает сборщик остатков поверх клиента кабинета WB.
func NewWB(client *wb.Client) *WBFetcher {
	return &WBFetcher{client: client}
}

// FetchStocks возвращает остатки, суммируя строки по складам WB.
func (f *WBFetcher) FetchStocks(ctx context.Context) (map[string]Record, error) {
	rows, err := f.client.SupplierStocks(ctx)
	if err != nil {
		return nil, err
	}
	return recordsFromWB(rows), nil
}

// recordsFromWB сводит строки Statistics API в записи по артикулам.
func recordsFromWB(rows []wb.StockRow) map[string]Record {
	records := make(map[string]Record)
	for _, row := range rows {
		key := normalize.Key(row.SupplierArticle)
		if key == "" {
			continue
		}
		rec := records[key]
		rec.add(ComponentAvailable, row.Quantity)
		rec.add(ComponentToClient, row.InWayToClient)
		rec.add(ComponentFromClient, row.InWayFromClient)
		records[key] = rec
	}
	return records
}

// OzonFetcher собирает остатки кабинета Ozon.
type OzonFetcher struct {
	client *ozon.Client
}

// NewOzon создает сборщик остатков поверх клиента кабинета Ozon.
func NewOzon(client *ozon.Client) *OzonFetcher {
	return &OzonFetcher{client: client}
}

// FetchStocks возвращает остатки, суммируя строки по складам Ozon.
func (f *OzonFetcher) FetchStocks(ctx context.Context) (map[string]Record, error) {
	rows, err := f.client.AllStocks(ctx)
	if err != nil {
		return nil, err
	}
	return recordsFromOzon(rows), nil
}

// recordsFromOzon сводит строки analytics API в записи по артикулам.
func recordsFromOzon(rows []ozon.StockRow) map[string]Record {
	records := make(map[string]Record)
	for _, row := range rows {
		key := normalize.Key(row.ItemCode)
		if key == "" {
			continue
		}
		rec := records[key]
		rec.add(ComponentAvailable, row.FreeToSellAmount)
		rec.add(ComponentInbound, row.PromisedAmount)
		rec.add(ComponentReserved, row.ReservedAmount)
		records[key] = rec
	}
	return records
}

// FetchSnapshot оборачивает Fetcher политикой деградации: исчерпание
// retry бюджета клиента не роняет запрос, а даёт пустой срез с флагом
// Degraded. Ошибка логируется здесь, выше по конвейеру она не всплывает.
func FetchSnapshot(ctx context.Context, cabinetKey string, f Fetcher) Snapshot {
	records, err := f.FetchStocks(ctx)
	if err != nil {
		log.Error().Err(err).Str("cabinet", cabinetKey).
			Msg("stock fetch failed after retries, degrading cabinet to empty snapshot")
		return Snapshot{Records: map[string]Record{}, Degraded: true}
	}
	return Snapshot{Records: records}
}
