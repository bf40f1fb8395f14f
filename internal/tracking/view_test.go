package tracking

import (
	"testing"
	"time"

	"storefront-orders/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesCoverEveryStatus(t *testing.T) {
	for _, s := range order.CanonicalStatuses() {
		assert.Contains(t, progressByStatus, s)
		assert.Contains(t, locationByStatus, s)
		assert.Contains(t, stepLabels, s)
	}
	assert.Len(t, progressByStatus, len(order.CanonicalStatuses()))
	assert.Len(t, locationByStatus, len(order.CanonicalStatuses()))
}

func TestDerive(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	tests := []struct {
		status   order.Status
		index    int
		progress int
		location string
	}{
		{order.StatusProcessing, 0, 20, "Warehouse"},
		{order.StatusPackaged, 1, 40, "Packaging Center"},
		{order.StatusShipped, 2, 60, "In Transit"},
		{order.StatusOutForDelivery, 3, 80, "Local Courier"},
		{order.StatusDelivered, 4, 100, "Delivered"},
		{"on_the_way", 2, 60, "In Transit"},
		{"bogus", 0, 20, "Warehouse"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			v := Derive(order.View{ID: 5, UserID: 1, Total: 200, Status: tt.status, Created: created}, now)

			assert.Equal(t, tt.index, v.StepIndex)
			assert.Equal(t, tt.progress, v.Progress)
			assert.Equal(t, tt.location, v.Location)
			assert.Equal(t, created.Add(48*time.Hour), v.EstimatedDelivery)
			assert.True(t, v.Status.IsCanonical())

			require.Len(t, v.Steps, 5)
			for i, s := range v.Steps {
				assert.Equal(t, i <= tt.index, s.Done, s.Status)
				assert.Equal(t, i == tt.index, s.Current, s.Status)
			}
		})
	}
}

func TestDerive_ETAFollowsCreatedDate(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(24 * time.Hour)

	va := Derive(order.View{Created: a, Status: order.StatusShipped}, b)
	vb := Derive(order.View{Created: b, Status: order.StatusShipped}, b)

	assert.Equal(t, 24*time.Hour, vb.EstimatedDelivery.Sub(va.EstimatedDelivery))
}

func TestDerive_Overdue(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := created.Add(72 * time.Hour)

	assert.True(t, Derive(order.View{Created: created, Status: order.StatusShipped}, late).Overdue)
	assert.False(t, Derive(order.View{Created: created, Status: order.StatusDelivered}, late).Overdue)
	assert.False(t, Derive(order.View{Created: created, Status: order.StatusShipped}, created).Overdue)
}
