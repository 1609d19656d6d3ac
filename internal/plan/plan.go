// Package plan — ядро расчёта ТЗ на отгрузку.
//
// На вход: остатки всех артикулов одного шаблона по выбранным кабинетам,
// желаемое количество к отгрузке и пороги (красный/жёлтый). На выход:
// распределение количества по парам (кабинет, артикул) так, чтобы
// итоговые остатки после отгрузки были максимально выровнены.
package plan

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// Level — уровень остатка относительно порогов.
type Level string

const (
	LevelRed     Level = "red"     // total ≤ красного порога
	LevelYellow  Level = "yellow"  // красный < total < жёлтого
	LevelGreen   Level = "green"   // total ≥ жёлтого
	LevelUnknown Level = "unknown" // пороги не заданы
)

// Title возвращает русскую подпись уровня для отчётов.
func (l Level) Title() string {
	switch l {
	case LevelRed:
		return "Красный"
	case LevelYellow:
		return "Жёлтый"
	case LevelGreen:
		return "Зелёный"
	default:
		return "Не задан"
	}
}

// Thresholds — пара порогов остатка. Настраивается на чат, не глобально.
// Инвариант Red ≤ Yellow обеспечивается при вводе (internal/settings).
type Thresholds struct {
	Red    int
	Yellow int
	Set    bool // false = пороги не настроены, расчёт ТЗ выключен
}

// Classify возвращает уровень остатка.
//
// Граница жёлтого уровня строгая: total == Yellow уже "зелёный".
// При этом для пополнения total == Yellow ещё проходит (см. Eligible) —
// асимметрия намеренная, менять её нельзя без смены наблюдаемого поведения.
func Classify(total int, t Thresholds) Level {
	if !t.Set {
		return LevelUnknown
	}
	switch {
	case total <= t.Red:
		return LevelRed
	case total < t.Yellow:
		return LevelYellow
	default:
		return LevelGreen
	}
}

// Eligible сообщает, является ли пара (кабинет, артикул) кандидатом на
// пополнение. Граница включительная: остаток ровно на жёлтом пороге ещё
// получает отгрузку. Нулевой или отрицательный жёлтый порог выключает
// пополнение полностью.
func Eligible(total int, t Thresholds) bool {
	if !t.Set || t.Yellow <= 0 {
		return false
	}
	return total <= t.Yellow
}

// Candidate — пара (кабинет, артикул) с текущим остатком.
type Candidate struct {
	CabinetKey string
	Article    string
	Current    int
}

// key — составной ключ для детерминированного tie-break.
func (c Candidate) key() string {
	return c.CabinetKey + "|" + c.Article
}

// Allocation — назначенная отгрузка по одному кандидату.
type Allocation struct {
	Candidate
	Shipped int
}

// Distribute распределяет need единиц по кандидатам, выравнивая итоговые
// остатки: на каждом шаге единица уходит кандидату с минимальным
// current+shipped. Ничьи разрешаются лексикографически по ключу
// "кабинет|артикул" — распределение детерминировано в рамках запуска.
//
// Сумма Shipped всегда равна need (при need > 0 и непустых кандидатах).
func Distribute(candidates []Candidate, need int) []Allocation {
	if need <= 0 || len(candidates) == 0 {
		return nil
	}

	// Копия в детерминированном порядке: вход не мутируем
	sorted := make([]Allocation, len(candidates))
	for i, c := range candidates {
		sorted[i] = Allocation{Candidate: c}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].key() < sorted[j].key()
	})

	for unit := 0; unit < need; unit++ {
		best := 0
		for i := 1; i < len(sorted); i++ {
			// Строгое < : при равенстве остаётся более ранний ключ
			if sorted[i].Current+sorted[i].Shipped < sorted[best].Current+sorted[best].Shipped {
				best = i
			}
		}
		sorted[best].Shipped++
	}

	result := make([]Allocation, 0, len(sorted))
	for _, a := range sorted {
		if a.Shipped > 0 {
			result = append(result, a)
		}
	}
	return result
}

// StockSnapshot — остаток одного артикула для отчёта "не добавлено".
type StockSnapshot struct {
	CabinetKey string
	Article    string
	Current    int
}

// NotAdded — шаблон, не попавший в ТЗ: кандидатов на пополнение нет.
// Это ожидаемый исход, не ошибка; снимок остатков уходит в сводку,
// чтобы пользователь видел, почему ничего не отгружается.
type NotAdded struct {
	TemplateID int
	Name       string
	Requested  int
	Stocks     []StockSnapshot
}

// ForTemplate прогоняет один шаблон через классификацию и распределение.
//
// Возвращает либо распределение (кандидаты нашлись), либо nil и запись
// NotAdded со снимком остатков всех пар шаблона.
func ForTemplate(templateID int, name string, tuples []Candidate, need int, t Thresholds) ([]Allocation, *NotAdded) {
	var eligible []Candidate
	for _, c := range tuples {
		if Eligible(c.Current, t) {
			eligible = append(eligible, c)
		}
	}

	if len(eligible) == 0 || need <= 0 {
		na := &NotAdded{
			TemplateID: templateID,
			Name:       name,
			Requested:  need,
		}
		for _, c := range tuples {
			na.Stocks = append(na.Stocks, StockSnapshot{
				CabinetKey: c.CabinetKey,
				Article:    c.Article,
				Current:    c.Current,
			})
		}
		return nil, na
	}

	allocs := Distribute(eligible, need)

	// Контроль: каждая строка распределения должна была пройти отбор.
	// Нарушение возможно только при рассинхроне данных выше по конвейеру.
	for _, a := range allocs {
		if !Eligible(a.Current, t) {
			log.Warn().Int("template_id", templateID).Str("cabinet", a.CabinetKey).
				Str("article", a.Article).Int("current", a.Current).
				Msg("allocation emitted for ineligible candidate")
		}
	}

	return allocs, nil
}
