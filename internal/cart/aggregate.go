package cart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mmeshcher/florist-storefront/internal/model"
	"github.com/mmeshcher/florist-storefront/internal/vendor"
)

const (
	liveItemPrefix = "item_"
	mockItemPrefix = "mock_item_"
)

// Aggregate группирует плоскую корзину поставщика по коду товара.
// Количество равно числу строк группы, имя и цена берутся из первой строки.
// Идентификатор позиции поставщика относится к одной единице и здесь отбрасывается.
func Aggregate(flat []vendor.CartProduct) []model.CartItem {
	items := make([]model.CartItem, 0, len(flat))
	index := make(map[string]int, len(flat))
	for _, p := range flat {
		if i, ok := index[p.Code]; ok {
			items[i].Quantity++
			continue
		}
		index[p.Code] = len(items)
		items = append(items, model.CartItem{
			ItemID:   liveItemPrefix + strconv.Itoa(len(items)),
			SKU:      p.Code,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: 1,
		})
	}
	return items
}

// CountUnits возвращает число строк плоской корзины с указанным кодом.
func CountUnits(flat []vendor.CartProduct, sku string) int {
	n := 0
	for _, p := range flat {
		if p.Code == sku {
			n++
		}
	}
	return n
}

func parseItemIndex(ref, prefix string) (int, bool) {
	if !strings.HasPrefix(ref, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(ref, prefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func mockItemID(i int) string {
	return fmt.Sprintf("%s%d", mockItemPrefix, i)
}
