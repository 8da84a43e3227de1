package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestItemsTotal(t *testing.T) {
	items := Items{
		{SKU: "TEE-M", Name: "Tee", Price: decimal.NewFromInt(499), Quantity: 2},
		{SKU: "CAP", Name: "Cap", Price: decimal.RequireFromString("249.50"), Quantity: 1},
	}
	if got := items.Total(); !got.Equal(decimal.RequireFromString("1247.50")) {
		t.Fatalf("unexpected total %s", got)
	}
	if got := (Items{}).Total(); !got.IsZero() {
		t.Fatalf("expected zero total for empty list, got %s", got)
	}
}

func TestItemsScanAcceptsTextAndBytes(t *testing.T) {
	original := Items{{SKU: "A", Name: "Alpha", Price: decimal.NewFromInt(10), Quantity: 3}}
	value, err := original.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	text, ok := value.(string)
	if !ok {
		t.Fatalf("expected string driver value, got %T", value)
	}

	var fromString Items
	if err := fromString.Scan(text); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	var fromBytes Items
	if err := fromBytes.Scan([]byte(text)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if len(fromBytes) != 1 || fromBytes[0].SKU != "A" || !fromBytes[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected decoded items %+v", fromBytes)
	}

	var empty Items
	if err := empty.Scan(nil); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty items from nil, got %v (%v)", empty, err)
	}
	if err := empty.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported scan type")
	}
}
