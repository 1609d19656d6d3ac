// Бизнес-логика методов Content API
package wb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetParentCategories возвращает список родительских категорий
func (c *Client) GetParentCategories(ctx context.Context) ([]ParentCategory, error) {
	var resp APIResponse[[]ParentCategory]

	err := c.get(ctx, c.contentURL, "/content/v2/object/parent/all", nil, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Error {
		return nil, fmt.Errorf("wb logic error: %s", resp.ErrorText)
	}

	return resp.Data, nil
}

// FetchSubjectsPage - низкоуровневый запрос одной страницы предметов
func (c *Client) FetchSubjectsPage(ctx context.Context, parentID, limit, offset int) ([]Subject, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if parentID > 0 {
		params.Set("parentID", strconv.Itoa(parentID))
	}

	var resp APIResponse[[]Subject]
	err := c.get(ctx, c.contentURL, "/content/v2/object/all", params, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("wb logic error: %s", resp.ErrorText)
	}
	return resp.Data, nil
}

// GetAllSubjects выкачивает все предметы, автоматически листая страницы.
func (c *Client) GetAllSubjects(ctx context.Context, parentID int) ([]Subject, error) {
	var all []Subject
	limit := 1000
	offset := 0

	for {
		batch, err := c.FetchSubjectsPage(ctx, parentID, limit, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)

		if len(batch) < limit {
			break
		}
		offset += limit
	}
	return all, nil
}

// GetCharacteristics получает динамическую схему характеристик предмета.
// Результат меняется редко — вызывающая сторона должна кэшировать.
func (c *Client) GetCharacteristics(ctx context.Context, subjectID int) ([]Characteristic, error) {
	path := fmt.Sprintf("/content/v2/object/charcs/%d", subjectID)

	var resp APIResponse[[]Characteristic]

	err := c.get(ctx, c.contentURL, path, nil, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Error {
		return nil, fmt.Errorf("wb logic error: %s", resp.ErrorText)
	}

	return resp.Data, nil
}

// CardsPage запрашивает одну страницу карточек товаров.
func (c *Client) CardsPage(ctx context.Context, cursor CardsCursor, textSearch string) (*CardsListResponse, error) {
	req := CardsListRequest{
		Settings: CardsSettings{
			Cursor: cursor,
			Filter: &CardsFilter{
				TextSearch: textSearch,
				WithPhoto:  -1,
			},
		},
	}

	var resp CardsListResponse
	if err := c.post(ctx, c.contentURL, "/content/v2/get/cards/list", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("wb logic error: %s", resp.ErrorText)
	}
	return &resp, nil
}

// AllCards выкачивает все карточки кабинета через cursor-пагинацию.
func (c *Client) AllCards(ctx context.Context) ([]ProductCard, error) {
	var all []ProductCard
	cursor := CardsCursor{Limit: 100}

	for {
		page, err := c.CardsPage(ctx, cursor, "")
		if err != nil {
			return nil, err
		}

		all = append(all, page.Cards...)

		// Конец пагинации: вернулось меньше лимита либо курсор пуст
		if page.Cursor == nil || len(page.Cards) < cursor.Limit {
			break
		}
		cursor.UpdatedAt = page.Cursor.UpdatedAt
		cursor.NmID = page.Cursor.NmID
	}

	return all, nil
}

// SupplierStocks возвращает остатки кабинета по всем складам WB.
//
// Statistics API отдаёт полный срез с даты dateFrom; для текущего среза
// передаётся далёкое прошлое.
func (c *Client) SupplierStocks(ctx context.Context) ([]StockRow, error) {
	params := url.Values{}
	params.Set("dateFrom", "2019-06-20")

	var rows []StockRow
	if err := c.get(ctx, c.statisticsURL, "/api/v1/supplier/stocks", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
