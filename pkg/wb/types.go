// Модели данных

package wb

// Common Response Wrapper
type APIResponse[T any] struct {
	Data      T      `json:"data"`
	Error     bool   `json:"error"`
	ErrorText string `json:"errorText"`
	// AdditionalErrors игнорируем, так как тип плавает (string/null)
}

// ParentCategory — родительская категория предметов.
type ParentCategory struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsVisible bool   `json:"isVisible"`
}

// Subject (Предмет) — лист дерева категорий WB.
// Пара (ParentID, SubjectID) — двухуровневый идентификатор таксономии.
type Subject struct {
	SubjectID   int    `json:"subjectID"`
	ParentID    int    `json:"parentID"`
	SubjectName string `json:"subjectName"`
	ParentName  string `json:"parentName"`
}

// Characteristic — поле динамической схемы атрибутов предмета.
type Characteristic struct {
	CharcID     int    `json:"charcID"`
	SubjectName string `json:"subjectName"`
	SubjectID   int    `json:"subjectID"`
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	UnitName    string `json:"unitName"`
	MaxCount    int    `json:"maxCount"` // >1 — поле-коллекция
	Popular     bool   `json:"popular"`
	CharcType   int    `json:"charcType"` // 1: string, 4: number
}

// ============================================================================
// Content API Cards List Types
// ============================================================================

// CardsListRequest представляет запрос для получения списка карточек товаров.
type CardsListRequest struct {
	Settings CardsSettings `json:"settings"`
}

// CardsSettings содержит настройки запроса карточек.
type CardsSettings struct {
	Cursor CardsCursor  `json:"cursor"`
	Filter *CardsFilter `json:"filter,omitempty"`
}

// CardsCursor содержит параметры пагинации.
type CardsCursor struct {
	Limit     int    `json:"limit"`               // Максимум 100
	UpdatedAt string `json:"updatedAt,omitempty"` // Для пагинации
	NmID      int    `json:"nmID,omitempty"`      // Для пагинации
}

// CardsFilter содержит параметры фильтрации карточек.
type CardsFilter struct {
	TextSearch string `json:"textSearch,omitempty"` // Поиск по артикулу/названию
	WithPhoto  int    `json:"withPhoto"`            // -1: все карточки
}

// CardsListResponse представляет ответ от Content API с карточками товаров.
type CardsListResponse struct {
	Cards     []ProductCard        `json:"cards"`
	Cursor    *CardsCursorResponse `json:"cursor,omitempty"`
	Error     bool                 `json:"error"`
	ErrorText string               `json:"errorText,omitempty"`
}

// CardsCursorResponse содержит информацию о пагинации в ответе.
type CardsCursorResponse struct {
	UpdatedAt string `json:"updatedAt"`
	NmID      int    `json:"nmID"`
	Total     int    `json:"total"`
}

// ProductCard представляет карточку товара от Content API.
type ProductCard struct {
	NmID            int              `json:"nmID"`
	ImtID           int              `json:"imtID"`
	SubjectID       int              `json:"subjectID"`
	SubjectName     string           `json:"subjectName"`
	VendorCode      string           `json:"vendorCode"` // Артикул поставщика
	Brand           string           `json:"brand"`
	Title           string           `json:"title"`
	Characteristics []CardCharcValue `json:"characteristics,omitempty"`
	Sizes           []CardSize       `json:"sizes,omitempty"`
}

// CardCharcValue — значение характеристики в карточке.
// Value плавает по типу (строка, число, массив строк), поэтому RawMessage
// разбирается на стороне обогащения.
type CardCharcValue struct {
	ID    int         `json:"id"`
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// CardSize — размер в карточке (баркоды лежат в Skus).
type CardSize struct {
	ChrtID   int      `json:"chrtID"`
	TechSize string   `json:"techSize"`
	Skus     []string `json:"skus"`
}

// ============================================================================
// Statistics API Types (supplier stocks)
// ============================================================================

// StockRow — строка отчета остатков Statistics API.
//
// Одна строка = один баркод на одном складе WB; компоненты количества
// суммируются по складам на стороне сборщика остатков.
type StockRow struct {
	LastChangeDate  string `json:"lastChangeDate"`
	WarehouseName   string `json:"warehouseName"`
	SupplierArticle string `json:"supplierArticle"` // Артикул поставщика
	NmID            int    `json:"nmId"`
	Barcode         string `json:"barcode"`
	Quantity        int    `json:"quantity"`          // Доступно к продаже
	InWayToClient   int    `json:"inWayToClient"`     // В пути к покупателю
	InWayFromClient int    `json:"inWayFromClient"`   // В пути от покупателя (возвраты)
	QuantityFull    int    `json:"quantityFull"`      // Итог WB (не используем, считаем сами)
	Subject         string `json:"subject"`
	Category        string `json:"category"`
	TechSize        string `json:"techSize"`
}
