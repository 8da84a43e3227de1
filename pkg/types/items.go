package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Item is one line of a return or exchange snapshot.
type Item struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// LineTotal is price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Items stores an ordered item list inside a JSON column.
type Items []Item

// Total sums the line totals.
func (it Items) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range it {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Value serializes the items to JSON text.
func (it Items) Value() (driver.Value, error) {
	if it == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]Item(it))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes a JSON column into the item list.
func (it *Items) Scan(value interface{}) error {
	if value == nil {
		*it = Items{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded []Item
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	*it = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json scan type %T", value)
	}
}
