package enrich

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ilkoid/restock-bot/pkg/normalize"
	"github.com/ilkoid/restock-bot/pkg/wb"
)

// wbAPI — срез методов WB-клиента, нужный обогащению.
type wbAPI interface {
	AllCards(ctx context.Context) ([]wb.ProductCard, error)
	GetAllSubjects(ctx context.Context, parentID int) ([]wb.Subject, error)
	GetCharacteristics(ctx context.Context, subjectID int) ([]wb.Characteristic, error)
}

// WBEnricher обогащает артикулы кабинета Wildberries.
//
// Список карточек и словарь предметов запрашиваются один раз на вызов
// Enrich, схемы характеристик — через общий кэш по subjectID.
type WBEnricher struct {
	cabinetKey string
	api        wbAPI
	schemas    SchemaStore
}

// NewWB создает обогатитель для кабинета WB.
func NewWB(cabinetKey string, api wbAPI, schemas SchemaStore) *WBEnricher {
	return &WBEnricher{cabinetKey: cabinetKey, api: api, schemas: schemas}
}

// Enrich возвращает атрибуты каждого артикула. Сбой по одному артикулу
// не трогает остальные: поля остаются Unknown.
func (e *WBEnricher) Enrich(ctx context.Context, articles []string) map[string]Attributes {
	result := make(map[string]Attributes, len(articles))
	for _, a := range articles {
		result[a] = UnknownAttributes()
	}

	cards, err := e.api.AllCards(ctx)
	if err != nil {
		log.Error().Err(err).Str("cabinet", e.cabinetKey).
			Msg("WB: не удалось загрузить карточки, атрибуты останутся неизвестными")
		return result
	}
	byArticle := make(map[string]wb.ProductCard, len(cards))
	for _, c := range cards {
		byArticle[normalize.Key(c.VendorCode)] = c
	}

	// Словарь предметов нужен только как запасной источник категории,
	// его отсутствие не фатально.
	subjects := map[int]wb.Subject{}
	// parentID 0 — все родительские категории
	if list, err := e.api.GetAllSubjects(ctx, 0); err != nil {
		log.Warn().Err(err).Str("cabinet", e.cabinetKey).
			Msg("WB: словарь предметов недоступен")
	} else {
		for _, s := range list {
			subjects[s.SubjectID] = s
		}
	}

	for _, article := range articles {
		card, ok := byArticle[normalize.Key(article)]
		if !ok {
			log.Warn().Str("cabinet", e.cabinetKey).Str("article", article).
				Msg("WB: карточка по артикулу не найдена")
			continue
		}
		result[article] = e.enrichCard(ctx, card, subjects)
	}
	return result
}

func (e *WBEnricher) enrichCard(ctx context.Context, card wb.ProductCard, subjects map[int]wb.Subject) Attributes {
	attrs := UnknownAttributes()
	attrs.Category = wbCategory(card, subjects)

	if bc := firstBarcode(card); bc != "" {
		attrs.Barcode = bc
	}

	fields, err := e.schema(ctx, card.SubjectID)
	if err != nil {
		log.Warn().Err(err).Str("cabinet", e.cabinetKey).
			Str("article", card.VendorCode).Int("subject_id", card.SubjectID).
			Msg("WB: схема характеристик недоступна")
	} else {
		if f, ok := PickField(fields, ColorKeywords); ok {
			attrs.Color = JoinValues(charcValues(card, f))
		}
		if f, ok := PickField(fields, SizeKeywords); ok {
			if v := JoinValues(charcValues(card, f)); v != Unknown {
				attrs.Size = NormalizeSize(v)
			}
		}
		if f, ok := PickField(fields, CompositionKeywords); ok {
			attrs.Composition = FirstValue(charcValues(card, f))
		}
	}

	// Размер из блока размеров надежнее характеристики: он всегда есть
	// и отражает фактическую размерную сетку карточки.
	if sz := sizeFromCard(card); sz != "" {
		attrs.Size = sz
	}
	if attrs.Size == Unknown {
		attrs.Size = OneSize
	}
	return attrs
}

func (e *WBEnricher) schema(ctx context.Context, subjectID int) ([]Field, error) {
	key := SchemaKey{TypeID: int64(subjectID)}
	if fields, ok := e.schemas.Get(key); ok {
		return fields, nil
	}
	charcs, err := e.api.GetCharacteristics(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("характеристики предмета %d: %w", subjectID, err)
	}
	fields := make([]Field, 0, len(charcs))
	for _, c := range charcs {
		fields = append(fields, Field{
			ID:   int64(c.CharcID),
			Name: c.Name,
		})
	}
	e.schemas.Put(key, fields)
	return fields, nil
}

// wbCategory выбирает метку категории: имя предмета карточки, затем имя
// предмета из словаря, затем имя родительской категории.
func wbCategory(card wb.ProductCard, subjects map[int]wb.Subject) string {
	if card.SubjectName != "" {
		return card.SubjectName
	}
	if s, ok := subjects[card.SubjectID]; ok {
		if s.SubjectName != "" {
			return s.SubjectName
		}
		if s.ParentName != "" {
			return s.ParentName
		}
	}
	return Unknown
}

func firstBarcode(card wb.ProductCard) string {
	for _, size := range card.Sizes {
		for _, sku := range size.Skus {
			if sku != "" {
				return sku
			}
		}
	}
	return ""
}

// sizeFromCard собирает размерную сетку карточки. Один безразмерный
// вариант схлопывается в канонический токен.
func sizeFromCard(card wb.ProductCard) string {
	var sizes []string
	for _, s := range card.Sizes {
		t := strings.TrimSpace(s.TechSize)
		if t != "" {
			sizes = append(sizes, t)
		}
	}
	if len(sizes) == 0 {
		return ""
	}
	if len(sizes) == 1 {
		return NormalizeSize(sizes[0])
	}
	return strings.Join(sizes, ", ")
}

// charcValues извлекает значения характеристики карточки по ID поля.
// WB отдает value как string, число или массив — приводим всё к строкам.
func charcValues(card wb.ProductCard, f Field) []string {
	for _, cv := range card.Characteristics {
		if int64(cv.ID) != f.ID {
			continue
		}
		return flattenValue(cv.Value)
	}
	return nil
}

func flattenValue(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case float64:
		return []string{strconv.FormatFloat(val, 'f', -1, 64)}
	case int:
		return []string{strconv.Itoa(val)}
	case []interface{}:
		var out []string
		for _, item := range val {
			out = append(out, flattenValue(item)...)
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", val)}
	}
}

var _ Enricher = (*WBEnricher)(nil)
