// Модели данных

package ozon

// ============================================================================
// Analytics API: остатки на складах Ozon
// ============================================================================

// StockRequest — запрос остатков по складам.
type StockRequest struct {
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	WarehouseType string `json:"warehouse_type"` // "ALL"
}

// StockResponse — ответ со строками остатков.
type StockResponse struct {
	Result struct {
		Rows []StockRow `json:"rows"`
	} `json:"result"`
}

// StockRow — остаток одного товара на одном складе Ozon.
type StockRow struct {
	SKU              int64  `json:"sku"`
	ItemCode         string `json:"item_code"` // Артикул продавца (offer_id)
	ItemName         string `json:"item_name"`
	WarehouseName    string `json:"warehouse_name"`
	FreeToSellAmount int    `json:"free_to_sell_amount"` // Доступно к продаже
	PromisedAmount   int    `json:"promised_amount"`     // Едет на склад (в поставке)
	ReservedAmount   int    `json:"reserved_amount"`     // Зарезервировано под заказы
}

// ============================================================================
// Product API: карточки товаров
// ============================================================================

// ProductInfoListRequest — запрос информации о товарах по артикулам.
type ProductInfoListRequest struct {
	OfferID []string `json:"offer_id"`
}

// ProductInfoListResponse — ответ с карточками.
type ProductInfoListResponse struct {
	Items []ProductInfo `json:"items"`
}

// ProductInfo — карточка товара Ozon.
type ProductInfo struct {
	ID                    int64    `json:"id"`
	OfferID               string   `json:"offer_id"`
	Name                  string   `json:"name"`
	Barcodes              []string `json:"barcodes"`
	DescriptionCategoryID int64    `json:"description_category_id"`
	TypeID                int64    `json:"type_id"`
}

// ============================================================================
// Description Category API: дерево категорий и схема атрибутов
// ============================================================================

// CategoryTreeRequest — запрос дерева категорий.
type CategoryTreeRequest struct {
	Language string `json:"language"` // "DEFAULT" = русский
}

// CategoryTreeResponse — ответ с деревом.
type CategoryTreeResponse struct {
	Result []CategoryNode `json:"result"`
}

// CategoryNode — узел дерева категорий.
//
// Листья дерева — типы товаров: у них заполнены TypeID/TypeName.
// Промежуточные узлы несут DescriptionCategoryID/CategoryName.
type CategoryNode struct {
	DescriptionCategoryID int64          `json:"description_category_id"`
	CategoryName          string         `json:"category_name"`
	TypeID                int64          `json:"type_id"`
	TypeName              string         `json:"type_name"`
	Disabled              bool           `json:"disabled"`
	Children              []CategoryNode `json:"children"`
}

// AttributesRequest — запрос схемы атрибутов для пары (категория, тип).
type AttributesRequest struct {
	DescriptionCategoryID int64  `json:"description_category_id"`
	TypeID                int64  `json:"type_id"`
	Language              string `json:"language"`
}

// AttributesResponse — ответ со схемой атрибутов.
type AttributesResponse struct {
	Result []AttributeField `json:"result"`
}

// AttributeField — дескриптор поля динамической схемы.
type AttributeField struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsCollection bool   `json:"is_collection"`
	GroupName    string `json:"group_name"`
}

// ProductAttributesRequest — запрос значений атрибутов товаров.
type ProductAttributesRequest struct {
	Filter struct {
		OfferID    []string `json:"offer_id"`
		Visibility string   `json:"visibility"` // "ALL"
	} `json:"filter"`
	Limit int `json:"limit"`
}

// ProductAttributesResponse — ответ со значениями атрибутов.
type ProductAttributesResponse struct {
	Result []ProductAttributes `json:"result"`
}

// ProductAttributes — значения атрибутов одного товара.
type ProductAttributes struct {
	ID                    int64            `json:"id"`
	OfferID               string           `json:"offer_id"`
	Barcode               string           `json:"barcode"`
	DescriptionCategoryID int64            `json:"description_category_id"`
	TypeID                int64            `json:"type_id"`
	Attributes            []AttributeValue `json:"attributes"`
}

// AttributeValue — значения одного атрибута.
type AttributeValue struct {
	ID     int64 `json:"id"`
	Values []struct {
		Value string `json:"value"`
	} `json:"values"`
}
