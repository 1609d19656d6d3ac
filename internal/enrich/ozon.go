package enrich

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ilkoid/restock-bot/pkg/normalize"
	"github.com/ilkoid/restock-bot/pkg/ozon"
)

// ozonAPI — срез методов Ozon-клиента, нужный обогащению.
type ozonAPI interface {
	ProductInfoList(ctx context.Context, offerIDs []string) ([]ozon.ProductInfo, error)
	CategoryTree(ctx context.Context) ([]ozon.CategoryNode, error)
	CategoryAttributes(ctx context.Context, categoryID, typeID int64) ([]ozon.AttributeField, error)
	ProductAttributesList(ctx context.Context, offerIDs []string) ([]ozon.ProductAttributes, error)
}

// OzonEnricher обогащает артикулы кабинета Ozon.
//
// Дерево категорий запрашивается один раз на вызов Enrich, схемы
// атрибутов — через общий кэш по паре (категория, тип).
type OzonEnricher struct {
	cabinetKey string
	api        ozonAPI
	schemas    SchemaStore
}

// NewOzon создает обогатитель для кабинета Ozon.
func NewOzon(cabinetKey string, api ozonAPI, schemas SchemaStore) *OzonEnricher {
	return &OzonEnricher{cabinetKey: cabinetKey, api: api, schemas: schemas}
}

// Enrich возвращает атрибуты каждого артикула. Сбой по одному артикулу
// не трогает остальные: поля остаются Unknown.
func (e *OzonEnricher) Enrich(ctx context.Context, articles []string) map[string]Attributes {
	result := make(map[string]Attributes, len(articles))
	for _, a := range articles {
		result[a] = UnknownAttributes()
	}
	if len(articles) == 0 {
		return result
	}

	infos, err := e.api.ProductInfoList(ctx, articles)
	if err != nil {
		log.Error().Err(err).Str("cabinet", e.cabinetKey).
			Msg("Ozon: не удалось загрузить карточки, атрибуты останутся неизвестными")
		return result
	}
	infoByArticle := make(map[string]ozon.ProductInfo, len(infos))
	for _, info := range infos {
		infoByArticle[normalize.Key(info.OfferID)] = info
	}

	values := map[string]ozon.ProductAttributes{}
	if list, err := e.api.ProductAttributesList(ctx, articles); err != nil {
		log.Warn().Err(err).Str("cabinet", e.cabinetKey).
			Msg("Ozon: значения атрибутов недоступны")
	} else {
		for _, pa := range list {
			values[normalize.Key(pa.OfferID)] = pa
		}
	}

	// Дерево категорий — только источник названий, его отсутствие не
	// фатально: категория деградирует до имени карточки.
	var categories map[SchemaKey]string
	if tree, err := e.api.CategoryTree(ctx); err != nil {
		log.Warn().Err(err).Str("cabinet", e.cabinetKey).
			Msg("Ozon: дерево категорий недоступно")
	} else {
		categories = flattenTree(tree)
	}

	for _, article := range articles {
		key := normalize.Key(article)
		info, ok := infoByArticle[key]
		if !ok {
			log.Warn().Str("cabinet", e.cabinetKey).Str("article", article).
				Msg("Ozon: карточка по артикулу не найдена")
			continue
		}
		result[article] = e.enrichProduct(ctx, info, values[key], categories)
	}
	return result
}

func (e *OzonEnricher) enrichProduct(ctx context.Context, info ozon.ProductInfo, pa ozon.ProductAttributes, categories map[SchemaKey]string) Attributes {
	attrs := UnknownAttributes()
	attrs.Category = ozonCategory(info, categories)

	if pa.Barcode != "" {
		attrs.Barcode = pa.Barcode
	} else if len(info.Barcodes) > 0 && info.Barcodes[0] != "" {
		attrs.Barcode = info.Barcodes[0]
	}

	fields, err := e.schema(ctx, info.DescriptionCategoryID, info.TypeID)
	if err != nil {
		log.Warn().Err(err).Str("cabinet", e.cabinetKey).
			Str("article", info.OfferID).
			Int64("category_id", info.DescriptionCategoryID).
			Int64("type_id", info.TypeID).
			Msg("Ozon: схема атрибутов недоступна")
		return attrs
	}

	byID := make(map[int64][]string, len(pa.Attributes))
	for _, av := range pa.Attributes {
		var vals []string
		for _, v := range av.Values {
			vals = append(vals, v.Value)
		}
		byID[av.ID] = vals
	}

	if f, ok := PickField(fields, ColorKeywords); ok {
		attrs.Color = JoinValues(byID[f.ID])
	}
	if f, ok := PickField(fields, SizeKeywords); ok {
		if v := JoinValues(byID[f.ID]); v != Unknown {
			attrs.Size = NormalizeSize(v)
		}
	}
	if f, ok := PickField(fields, CompositionKeywords); ok {
		attrs.Composition = FirstValue(byID[f.ID])
	}
	if attrs.Size == Unknown {
		attrs.Size = OneSize
	}
	return attrs
}

func (e *OzonEnricher) schema(ctx context.Context, categoryID, typeID int64) ([]Field, error) {
	key := SchemaKey{CategoryID: categoryID, TypeID: typeID}
	if fields, ok := e.schemas.Get(key); ok {
		return fields, nil
	}
	raw, err := e.api.CategoryAttributes(ctx, categoryID, typeID)
	if err != nil {
		return nil, fmt.Errorf("схема атрибутов (%d, %d): %w", categoryID, typeID, err)
	}
	fields := make([]Field, 0, len(raw))
	for _, f := range raw {
		fields = append(fields, Field{
			ID:           f.ID,
			Name:         f.Name,
			GroupName:    f.GroupName,
			IsCollection: f.IsCollection,
		})
	}
	e.schemas.Put(key, fields)
	return fields, nil
}

// ozonCategory выбирает метку категории: имя типа из дерева, затем имя
// категории, затем имя карточки.
func ozonCategory(info ozon.ProductInfo, categories map[SchemaKey]string) string {
	if name, ok := categories[SchemaKey{CategoryID: info.DescriptionCategoryID, TypeID: info.TypeID}]; ok {
		return name
	}
	if name, ok := categories[SchemaKey{CategoryID: info.DescriptionCategoryID}]; ok {
		return name
	}
	if info.Name != "" {
		return info.Name
	}
	return Unknown
}

// flattenTree разворачивает дерево категорий в плоский индекс:
// листья-типы — по паре (категория, тип), узлы-категории — по категории.
func flattenTree(nodes []ozon.CategoryNode) map[SchemaKey]string {
	out := map[SchemaKey]string{}
	var walk func(parentCategory int64, nodes []ozon.CategoryNode)
	walk = func(parentCategory int64, nodes []ozon.CategoryNode) {
		for _, n := range nodes {
			category := parentCategory
			if n.DescriptionCategoryID != 0 {
				category = n.DescriptionCategoryID
				if n.CategoryName != "" {
					out[SchemaKey{CategoryID: category}] = n.CategoryName
				}
			}
			if n.TypeID != 0 && n.TypeName != "" {
				out[SchemaKey{CategoryID: category, TypeID: n.TypeID}] = n.TypeName
			}
			walk(category, n.Children)
		}
	}
	walk(0, nodes)
	return out
}

var _ Enricher = (*OzonEnricher)(nil)
