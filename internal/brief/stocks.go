package brief

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ilkoid/restock-bot/internal/plan"
	"github.com/ilkoid/restock-bot/internal/report"
	"github.com/ilkoid/restock-bot/internal/stocks"
)

// Колонки сводки остатков: объединение компонент обоих маркетплейсов.
var stockComponents = []string{
	stocks.ComponentAvailable,
	stocks.ComponentToClient,
	stocks.ComponentFromClient,
	stocks.ComponentInbound,
	stocks.ComponentReserved,
}

// Stocks формирует сводку остатков без распределения: тот же конвейер
// каталог + остатки, по листу на кабинет, с уровнем по порогам чата.
func (s *Service) Stocks(ctx context.Context, t plan.Thresholds, selectedKeys []string) (*Result, error) {
	runID := uuid.NewString()[:8]
	cabs := s.selectCabinets(selectedKeys)
	if len(cabs) == 0 {
		return nil, fmt.Errorf("не выбран ни один кабинет")
	}
	log.Info().Str("run_id", runID).Int("cabinets", len(cabs)).Msg("запуск сводки остатков")

	indexes, err := s.loadIndexes(ctx, cabs)
	if err != nil {
		return nil, err
	}
	snapshots := fetchSnapshots(ctx, cabs)

	var sheets []report.StockSheet
	for _, c := range cabs {
		snap := snapshots[c.Key]
		if snap.Degraded {
			continue
		}
		idx := indexes[c.Scope]
		sheet := report.StockSheet{CabinetKey: c.Key, SellerLabel: c.SellerLabel}
		for key, rec := range snap.Records {
			// В отчёт идёт написание артикула из каталога; ключ
			// остаётся только для артикулов, каталогу неизвестных
			article := key
			if raw, ok := idx.RawArticle(c.Key, key); ok {
				article = raw
			}
			line := report.StockLine{
				Article:    article,
				Components: rec.Components,
				Total:      rec.Total(),
				Level:      plan.Classify(rec.Total(), t).Title(),
			}
			if id, ok := idx.TemplateByArticle(c.Key, article); ok {
				line.Name = idx.DisplayName(id)
			}
			sheet.Lines = append(sheet.Lines, line)
		}
		sheets = append(sheets, sheet)
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("остатки не получены ни по одному кабинету")
	}

	data, err := report.BuildStocksXLSX(sheets, stockComponents)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:   runID,
		File:    report.File{Name: fmt.Sprintf("Остатки_%s.xlsx", runID), Data: data},
		Summary: buildStocksSummary(runID, cabs, snapshots),
	}
	s.keep(result.File)
	return result, nil
}

func buildStocksSummary(runID string, cabs []Cabinet, snapshots map[string]stocks.Snapshot) string {
	summary := fmt.Sprintf("Остатки %s", runID)
	for _, c := range cabs {
		if snapshots[c.Key].Degraded {
			summary += fmt.Sprintf("\n⚠️ Кабинет %s не ответил, лист пропущен", c.Key)
		}
	}
	return summary
}
