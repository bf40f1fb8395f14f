package order

func ToView(o *Order) *View {
	if o == nil {
		return nil
	}

	var items []ItemView
	for _, it := range o.Items {
		items = append(items, ItemView{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.InexactFloat64(),
		})
	}

	return &View{
		ID:            o.ID,
		UserID:        o.UserID,
		Total:         o.Total.InexactFloat64(),
		Status:        Normalize(string(o.Status)),
		Created:       o.CreatedAt,
		PaymentMethod: o.PaymentMethod,
		Delivery:      o.Delivery,
		Items:         items,
	}
}

func ToViews(orders []*Order) []*View {
	views := make([]*View, 0, len(orders))
	for _, o := range orders {
		views = append(views, ToView(o))
	}
	return views
}
