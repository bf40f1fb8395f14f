package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToView(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	o := &Order{
		ID:            5,
		UserID:        1,
		Total:         decimal.RequireFromString("200.00"),
		Status:        "pending",
		PaymentMethod: "cod",
		CreatedAt:     created,
		Items:         []OrderItem{{ProductID: 7, Quantity: 2, Price: decimal.NewFromInt(100)}},
	}

	v := ToView(o)
	require.NotNil(t, v)
	assert.Equal(t, 200.0, v.Total)
	assert.Equal(t, StatusProcessing, v.Status)
	assert.Equal(t, created, v.Created)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 100.0, v.Items[0].Price)

	assert.Nil(t, ToView(nil))
}

func TestView_JSONShape(t *testing.T) {
	v := ToView(&Order{ID: 1, UserID: 2, Total: decimal.NewFromInt(10), Status: "shipped"})

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "shipped", got["status"])
	assert.Contains(t, got, "created")
	assert.NotContains(t, got, "items")

	delivery, ok := got["delivery"].(map[string]any)
	require.True(t, ok)
	for _, k := range []string{"fullName", "phone", "address", "city", "notes"} {
		assert.Equal(t, "", delivery[k], k)
	}
}

func TestToViews(t *testing.T) {
	views := ToViews(nil)
	assert.NotNil(t, views)
	assert.Empty(t, views)

	views = ToViews([]*Order{{ID: 2}, {ID: 1}})
	assert.Equal(t, uint(2), views[0].ID)
	assert.Equal(t, uint(1), views[1].ID)
}
