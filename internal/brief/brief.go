// Package brief — конвейер формирования ТЗ на поставку: каталог →
// остатки → классификация и распределение → атрибуты → файлы отчета.
package brief

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ilkoid/restock-bot/internal/catalog"
	"github.com/ilkoid/restock-bot/internal/enrich"
	"github.com/ilkoid/restock-bot/internal/input"
	"github.com/ilkoid/restock-bot/internal/plan"
	"github.com/ilkoid/restock-bot/internal/report"
	"github.com/ilkoid/restock-bot/internal/stocks"
)

// Cabinet — кабинет маркетплейса со всеми его зависимостями конвейера.
type Cabinet struct {
	Key         string
	SellerLabel string
	Scope       string // имя листа каталога
	Fetcher     stocks.Fetcher
	Enricher    enrich.Enricher
}

// Service прогоняет заявки через конвейер ТЗ.
type Service struct {
	resolver  *catalog.Resolver
	cabinets  []Cabinet
	outputDir string
}

// New создает сервис ТЗ над всеми сконфигурированными кабинетами.
// При непустом outputDir копия каждого сгенерированного файла
// сохраняется на диск.
func New(resolver *catalog.Resolver, cabinets []Cabinet, outputDir string) *Service {
	return &Service{resolver: resolver, cabinets: cabinets, outputDir: outputDir}
}

// keep пишет копию файла в архивную директорию. Сбой записи не ломает
// запуск: файл всё равно уходит в чат.
func (s *Service) keep(file report.File) {
	if s.outputDir == "" || len(file.Data) == 0 {
		return
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", s.outputDir).Msg("архивная директория недоступна")
		return
	}
	path := filepath.Join(s.outputDir, file.Name)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("не удалось сохранить копию отчета")
	}
}

// Result — итог одного запуска конвейера.
type Result struct {
	RunID   string
	File    report.File
	Summary string
}

// Cabinets возвращает все сконфигурированные кабинеты.
func (s *Service) Cabinets() []Cabinet {
	return s.cabinets
}

// selectCabinets возвращает кабинеты по ключам; пустой выбор — все.
func (s *Service) selectCabinets(keys []string) []Cabinet {
	if len(keys) == 0 {
		return s.cabinets
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var out []Cabinet
	for _, c := range s.cabinets {
		if want[c.Key] {
			out = append(out, c)
		}
	}
	return out
}

// loadIndexes загружает каждый задействованный раздел каталога один раз.
// Недоступный источник каталога фатален для запуска.
func (s *Service) loadIndexes(ctx context.Context, cabs []Cabinet) (map[string]*catalog.Index, error) {
	indexes := map[string]*catalog.Index{}
	for _, c := range cabs {
		if _, ok := indexes[c.Scope]; ok {
			continue
		}
		scope, err := s.resolver.LoadScope(ctx, c.Scope)
		if err != nil {
			return nil, fmt.Errorf("каталог недоступен (раздел %q): %w", c.Scope, err)
		}
		indexes[c.Scope] = catalog.BuildIndex(scope)
	}
	return indexes, nil
}

// fetchSnapshots последовательно снимает остатки каждого кабинета.
// Сбой кабинета деградирует его до пустого снимка, запуск продолжается.
func fetchSnapshots(ctx context.Context, cabs []Cabinet) map[string]stocks.Snapshot {
	snapshots := make(map[string]stocks.Snapshot, len(cabs))
	for _, c := range cabs {
		snapshots[c.Key] = stocks.FetchSnapshot(ctx, c.Key, c.Fetcher)
	}
	return snapshots
}

// Generate формирует ТЗ по заявке: файл(ы) и текстовую сводку.
func (s *Service) Generate(ctx context.Context, rows []input.Row, t plan.Thresholds, selectedKeys []string) (*Result, error) {
	runID := uuid.NewString()[:8]
	cabs := s.selectCabinets(selectedKeys)
	if len(cabs) == 0 {
		return nil, fmt.Errorf("не выбран ни один кабинет")
	}
	log.Info().Str("run_id", runID).Int("rows", len(rows)).Int("cabinets", len(cabs)).
		Msg("запуск формирования ТЗ")

	indexes, err := s.loadIndexes(ctx, cabs)
	if err != nil {
		return nil, err
	}
	snapshots := fetchSnapshots(ctx, cabs)

	allDegraded := true
	for _, c := range cabs {
		if !snapshots[c.Key].Degraded {
			allDegraded = false
			break
		}
	}

	allocsByCabinet := map[string][]lineSource{}
	var notAdded []plan.NotAdded
	var unmatched []string

	// Без единого живого кабинета распределять нечего; заявка при этом
	// не "не найдена в каталоге" — причина другая, и сводка говорит о ней
	if !allDegraded {
		for _, row := range rows {
			templateID, name, tuples, matched := s.candidates(row.Name, cabs, indexes, snapshots)
			if !matched {
				unmatched = append(unmatched, row.Name)
				continue
			}

			allocs, na := plan.ForTemplate(templateID, name, tuples, row.Need, t)
			if na != nil {
				notAdded = append(notAdded, *na)
				continue
			}
			for _, a := range allocs {
				allocsByCabinet[a.CabinetKey] = append(allocsByCabinet[a.CabinetKey], lineSource{
					alloc: a,
					name:  name,
				})
			}
		}
	}

	briefs, err := s.assemble(ctx, cabs, allocsByCabinet, t)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID}
	if len(briefs) > 0 {
		file, err := report.Bundle(briefs, runID)
		if err != nil {
			return nil, err
		}
		result.File = file
		s.keep(file)
	}
	result.Summary = buildSummary(runID, cabs, snapshots, indexes, notAdded, unmatched, len(briefs) > 0)
	return result, nil
}

type lineSource struct {
	alloc plan.Allocation
	name  string
}

// candidates собирает пары (кабинет, артикул) шаблона по имени заявки.
// Имя ищется в каждом задействованном разделе; кандидаты из разных
// разделов попадают в общий пул — заявка считается одной потребностью.
// matched=false означает, что имя не нашлось ни в одном разделе.
func (s *Service) candidates(rawName string, cabs []Cabinet, indexes map[string]*catalog.Index, snapshots map[string]stocks.Snapshot) (int, string, []plan.Candidate, bool) {
	var (
		templateID int
		name       string
		tuples     []plan.Candidate
		matched    bool
	)
	for _, c := range cabs {
		snap := snapshots[c.Key]
		if snap.Degraded {
			// Без остатков кабинет не участвует в распределении
			continue
		}
		idx := indexes[c.Scope]
		id, ok := idx.TemplateByName(rawName)
		if !ok {
			continue
		}
		if !matched {
			matched = true
			templateID = id
			name = idx.DisplayName(id)
		}
		for _, article := range idx.Articles(id, c.Key) {
			tuples = append(tuples, plan.Candidate{
				CabinetKey: c.Key,
				Article:    article,
				Current:    snap.Get(article).Total(),
			})
		}
	}
	if name == "" {
		name = rawName
	}
	return templateID, name, tuples, matched
}

// assemble обогащает распределённые артикулы и собирает ТЗ по кабинетам.
func (s *Service) assemble(ctx context.Context, cabs []Cabinet, allocsByCabinet map[string][]lineSource, t plan.Thresholds) ([]report.Brief, error) {
	var briefs []report.Brief
	for _, c := range cabs {
		sources := allocsByCabinet[c.Key]
		if len(sources) == 0 {
			continue
		}
		articles := make([]string, 0, len(sources))
		for _, src := range sources {
			articles = append(articles, src.alloc.Article)
		}
		attrs := c.Enricher.Enrich(ctx, articles)

		b := report.Brief{CabinetKey: c.Key, SellerLabel: c.SellerLabel}
		for _, src := range sources {
			a := attrs[src.alloc.Article]
			b.Lines = append(b.Lines, report.Line{
				Article:     src.alloc.Article,
				Name:        src.name,
				Category:    a.Category,
				Barcode:     a.Barcode,
				Color:       a.Color,
				Size:        a.Size,
				Composition: a.Composition,
				Current:     src.alloc.Current,
				Level:       plan.Classify(src.alloc.Current, t).Title(),
				Quantity:    src.alloc.Shipped,
			})
		}
		briefs = append(briefs, b)
	}
	return briefs, nil
}

// buildSummary собирает текстовую сводку запуска для чата.
func buildSummary(runID string, cabs []Cabinet, snapshots map[string]stocks.Snapshot, indexes map[string]*catalog.Index, notAdded []plan.NotAdded, unmatched []string, hasFiles bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ТЗ %s\n", runID)

	var degraded []string
	for _, c := range cabs {
		if snapshots[c.Key].Degraded {
			degraded = append(degraded, c.Key)
		}
	}
	sort.Strings(degraded)
	if len(degraded) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ Остатки не получены, кабинеты исключены: %s\n", strings.Join(degraded, ", "))
	}

	if len(degraded) == len(cabs) {
		sb.WriteString("\nВсе кабинеты недоступны, распределение не выполнялось.\n")
	} else if !hasFiles {
		sb.WriteString("\nНи одна позиция не попала в ТЗ.\n")
	}

	if len(notAdded) > 0 {
		sb.WriteString("\nНе добавлено в ТЗ:\n")
		for _, na := range notAdded {
			fmt.Fprintf(&sb, "— %s (запрошено %d)", na.Name, na.Requested)
			if len(na.Stocks) > 0 {
				var parts []string
				for _, st := range na.Stocks {
					parts = append(parts, fmt.Sprintf("%s/%s: %d", st.CabinetKey, st.Article, st.Current))
				}
				fmt.Fprintf(&sb, ": %s", strings.Join(parts, ", "))
			}
			sb.WriteString("\n")
		}
	}

	if len(unmatched) > 0 {
		fmt.Fprintf(&sb, "\nНе найдено в каталоге: %s\n", strings.Join(unmatched, ", "))
	}

	var collisions []string
	seen := map[string]bool{}
	for _, idx := range indexes {
		for _, c := range idx.Collisions {
			s := c.String()
			if !seen[s] {
				seen[s] = true
				collisions = append(collisions, s)
			}
		}
	}
	sort.Strings(collisions)
	if len(collisions) > 0 {
		sb.WriteString("\nКоллизии каталога:\n")
		for _, c := range collisions {
			fmt.Fprintf(&sb, "— %s\n", c)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
