// Package enrich подтягивает описательные атрибуты артикулов:
// категорию, баркод, цвет, размер и состав.
//
// Категория берётся из дерева таксономии маркетплейса, остальные поля —
// из динамической схемы атрибутов, которая различается от категории к
// категории. Нужное поле схемы выбирается табличной скоринг-функцией по
// имени; схемы кэшируются, потому что меняются редко, а запрашиваются
// на каждый артикул.
package enrich

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Unknown — сентинел для неразрешённого атрибута. Не пустая строка и не
// nil: так значение безопасно уходит прямо в ячейку отчёта.
const Unknown = "Неизвестно"

// OneSize — канонический токен безразмерного товара.
const OneSize = "Единый"

// Attributes — человекочитаемые атрибуты одного артикула.
type Attributes struct {
	Category    string
	Barcode     string
	Color       string
	Size        string
	Composition string
}

// UnknownAttributes возвращает атрибуты, целиком заполненные сентинелом.
func UnknownAttributes() Attributes {
	return Attributes{
		Category:    Unknown,
		Barcode:     Unknown,
		Color:       Unknown,
		Size:        Unknown,
		Composition: Unknown,
	}
}

// Enricher возвращает атрибуты для набора артикулов своего кабинета.
//
// Ошибки по одному артикулу не прерывают обогащение остальных: поле
// остаётся Unknown, ошибка логируется внутри реализации.
type Enricher interface {
	Enrich(ctx context.Context, articles []string) map[string]Attributes
}

// ============================================================================
// Скоринг полей динамической схемы
// ============================================================================

// Field — дескриптор поля схемы в форме, общей для обоих маркетплейсов.
type Field struct {
	ID           int64
	Name         string
	GroupName    string
	IsCollection bool
}

// Keywords — таблица ключевых слов для подбора поля схемы.
// Порядок силы: точное имя > вхождение в имя > вхождение в имя группы.
type Keywords struct {
	Exact []string // точные предпочтительные имена
	Part  []string // подстроки имени
	Group []string // подстроки имени группы
}

// Таблицы подбора. Выбор поля полностью определяется этими списками,
// поэтому tie-break поведение фиксируется тестами.
var (
	ColorKeywords = Keywords{
		Exact: []string{"цвет"},
		Part:  []string{"цвет"},
		Group: []string{"цвет"},
	}
	SizeKeywords = Keywords{
		Exact: []string{"размер", "российский размер"},
		Part:  []string{"размер"},
		Group: []string{"размер"},
	}
	CompositionKeywords = Keywords{
		Exact: []string{"состав", "состав материала"},
		Part:  []string{"состав", "материал"},
		Group: []string{"материал"},
	}
)

// ScoreField возвращает целочисленный скор поля против таблицы ключей.
// 0 означает "поле не подходит".
func ScoreField(f Field, kw Keywords) int {
	name := strings.ToLower(strings.TrimSpace(f.Name))
	group := strings.ToLower(strings.TrimSpace(f.GroupName))

	for _, e := range kw.Exact {
		if name == e {
			return 100
		}
	}
	for _, p := range kw.Part {
		if p != "" && strings.Contains(name, p) {
			return 50
		}
	}
	for _, g := range kw.Group {
		if g != "" && group != "" && strings.Contains(group, g) {
			return 25
		}
	}
	return 0
}

// PickField выбирает поле с максимальным скором.
// Ничья разрешается меньшим ID поля — детерминированно в рамках запуска.
func PickField(fields []Field, kw Keywords) (Field, bool) {
	best := Field{}
	bestScore := 0
	found := false

	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, f := range sorted {
		score := ScoreField(f, kw)
		if score > bestScore {
			best = f
			bestScore = score
			found = true
		}
	}
	return best, found
}

// ============================================================================
// Нормализация значений
// ============================================================================

// Маркеры безразмерности (без учета регистра).
var oneSizeMarkers = map[string]bool{
	"":         true,
	"0":        true,
	"б/р":      true,
	"one size": true,
	"onesize":  true,
	"единый":   true,
	"universal": true,
}

// NormalizeSize сводит маркеры безразмерного товара к каноническому токену.
func NormalizeSize(raw string) string {
	if oneSizeMarkers[strings.ToLower(strings.TrimSpace(raw))] {
		return OneSize
	}
	return strings.TrimSpace(raw)
}

// JoinValues собирает многозначное поле (цвет, размер) в строку через запятую.
// Пустые значения отбрасываются; пустой итог — Unknown.
func JoinValues(values []string) string {
	var kept []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return Unknown
	}
	return strings.Join(kept, ", ")
}

// FirstValue возвращает первое непустое значение (состав — свободный текст,
// склейка нескольких значений даёт мусор). Пустой итог — Unknown.
func FirstValue(values []string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return Unknown
}

// ============================================================================
// Кэш схем
// ============================================================================

// SchemaKey — двухуровневый идентификатор таксономии (категория, тип).
type SchemaKey struct {
	CategoryID int64
	TypeID     int64
}

// SchemaStore — подключаемое хранилище кэша схем.
type SchemaStore interface {
	Get(key SchemaKey) ([]Field, bool)
	Put(key SchemaKey, fields []Field)
}

// MemorySchemaStore — потокобезопасный кэш схем в памяти.
//
// Без TTL: схемы атрибутов живут дольше сессии, устаревание допустимо.
// Потокобезопасность нужна на случай параллельных запросов разных чатов.
type MemorySchemaStore struct {
	mu sync.RWMutex
	m  map[SchemaKey][]Field
}

// NewMemorySchemaStore создает пустой кэш схем.
func NewMemorySchemaStore() *MemorySchemaStore {
	return &MemorySchemaStore{m: make(map[SchemaKey][]Field)}
}

// Get возвращает схему из кэша.
func (s *MemorySchemaStore) Get(key SchemaKey) ([]Field, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.m[key]
	return fields, ok
}

// Put кладет схему в кэш.
func (s *MemorySchemaStore) Put(key SchemaKey, fields []Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = fields
}

var _ SchemaStore = (*MemorySchemaStore)(nil)
