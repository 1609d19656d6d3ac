// Бизнес-логика методов Seller API
package ozon

import (
	"context"
)

// AllStocks выкачивает все строки остатков через offset-пагинацию.
func (c *Client) AllStocks(ctx context.Context) ([]StockRow, error) {
	var all []StockRow
	limit := 1000
	offset := 0

	for {
		req := StockRequest{
			Limit:         limit,
			Offset:        offset,
			WarehouseType: "ALL",
		}

		var resp StockResponse
		if err := c.post(ctx, "/v2/analytics/stock_on_warehouses", req, &resp); err != nil {
			return nil, err
		}

		all = append(all, resp.Result.Rows...)

		if len(resp.Result.Rows) < limit {
			break
		}
		offset += limit
	}

	return all, nil
}

// ProductInfoList возвращает карточки товаров по артикулам продавца.
func (c *Client) ProductInfoList(ctx context.Context, offerIDs []string) ([]ProductInfo, error) {
	if len(offerIDs) == 0 {
		return nil, nil
	}

	var resp ProductInfoListResponse
	err := c.post(ctx, "/v3/product/info/list", ProductInfoListRequest{OfferID: offerIDs}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CategoryTree возвращает полное дерево категорий и типов товаров.
// Дерево большое и меняется редко — вызывающая сторона должна кэшировать.
func (c *Client) CategoryTree(ctx context.Context) ([]CategoryNode, error) {
	var resp CategoryTreeResponse
	err := c.post(ctx, "/v1/description-category/tree", CategoryTreeRequest{Language: "DEFAULT"}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// CategoryAttributes возвращает схему атрибутов для пары (категория, тип).
func (c *Client) CategoryAttributes(ctx context.Context, categoryID, typeID int64) ([]AttributeField, error) {
	req := AttributesRequest{
		DescriptionCategoryID: categoryID,
		TypeID:                typeID,
		Language:              "DEFAULT",
	}

	var resp AttributesResponse
	if err := c.post(ctx, "/v1/description-category/attribute", req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// ProductAttributesList возвращает значения атрибутов товаров по артикулам.
func (c *Client) ProductAttributesList(ctx context.Context, offerIDs []string) ([]ProductAttributes, error) {
	if len(offerIDs) == 0 {
		return nil, nil
	}

	req := ProductAttributesRequest{Limit: len(offerIDs)}
	req.Filter.OfferID = offerIDs
	req.Filter.Visibility = "ALL"

	var resp ProductAttributesResponse
	if err := c.post(ctx, "/v4/product/info/attributes", req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}
