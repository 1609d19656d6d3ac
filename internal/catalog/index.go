package catalog

import (
	"fmt"

	"github.com/ilkoid/restock-bot/pkg/normalize"
)

// Collision — конфликт обратного индекса: один нормализованный артикул
// привязан к двум разным шаблонам внутри одного кабинета. Это дефект
// данных каталога, о котором надо сообщить пользователю, а не молча
// отбросить строку.
type Collision struct {
	CabinetKey string
	Article    string
	FirstID    int
	SecondID   int
}

func (c Collision) String() string {
	return fmt.Sprintf("кабинет %s: артикул %q привязан к шаблонам %d и %d", c.CabinetKey, c.Article, c.FirstID, c.SecondID)
}

// Index — индексы раздела каталога для быстрого сопоставления.
type Index struct {
	scope *Scope

	// byCabinet: ключ кабинета → нормализованный артикул → template_id
	byCabinet map[string]map[string]int

	// rawByCabinet: ключ кабинета → нормализованный артикул → сырой
	// артикул каталога. Нормализованный ключ наружу не показывается,
	// в отчётах его надо разворачивать обратно.
	rawByCabinet map[string]map[string]string

	// byName: нормализованное имя шаблона → template_id
	byName map[string]int

	// Collisions обратного индекса артикулов, найденные при построении
	Collisions []Collision
}

// BuildIndex строит прямой и обратный индексы раздела.
//
// Прямой (template → articles) уже лежит в Scope; здесь добавляются
// обратный артикульный и именной, оба через канонический ключ normalize.Key.
func BuildIndex(scope *Scope) *Index {
	idx := &Index{
		scope:        scope,
		byCabinet:    make(map[string]map[string]int),
		rawByCabinet: make(map[string]map[string]string),
		byName:       make(map[string]int),
	}

	for _, id := range scope.Order {
		nameKey := normalize.Key(scope.Names[id])
		if nameKey != "" {
			if _, exists := idx.byName[nameKey]; !exists {
				idx.byName[nameKey] = id
			}
		}

		for cabKey, articles := range scope.Articles[id] {
			if _, ok := idx.byCabinet[cabKey]; !ok {
				idx.byCabinet[cabKey] = make(map[string]int)
				idx.rawByCabinet[cabKey] = make(map[string]string)
			}
			for _, art := range articles {
				key := normalize.Key(art)
				if key == "" {
					continue
				}
				if prev, exists := idx.byCabinet[cabKey][key]; exists {
					if prev != id {
						idx.Collisions = append(idx.Collisions, Collision{
							CabinetKey: cabKey,
							Article:    art,
							FirstID:    prev,
							SecondID:   id,
						})
					}
					continue
				}
				idx.byCabinet[cabKey][key] = id
				idx.rawByCabinet[cabKey][key] = art
			}
		}
	}

	return idx
}

// TemplateByArticle возвращает template_id по сырому артикулу кабинета.
func (idx *Index) TemplateByArticle(cabinetKey, rawArticle string) (int, bool) {
	m, ok := idx.byCabinet[cabinetKey]
	if !ok {
		return 0, false
	}
	id, ok := m[normalize.Key(rawArticle)]
	return id, ok
}

// RawArticle возвращает сырой артикул каталога по его каноническому
// ключу в кабинете. Нужен отчётам: наружу уходит написание каталога,
// а не нормализованный ключ.
func (idx *Index) RawArticle(cabinetKey, key string) (string, bool) {
	raw, ok := idx.rawByCabinet[cabinetKey][key]
	return raw, ok
}

// TemplateByName возвращает template_id по сырому имени шаблона.
func (idx *Index) TemplateByName(rawName string) (int, bool) {
	id, ok := idx.byName[normalize.Key(rawName)]
	return id, ok
}

// Articles возвращает артикулы шаблона в кабинете (порядок каталога).
func (idx *Index) Articles(templateID int, cabinetKey string) []string {
	per, ok := idx.scope.Articles[templateID]
	if !ok {
		return nil
	}
	return per[cabinetKey]
}

// DisplayName возвращает отображаемое имя шаблона.
func (idx *Index) DisplayName(templateID int) string {
	return idx.scope.Names[templateID]
}
