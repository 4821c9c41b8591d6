package reports

// Derived money figures. All divisions guard their denominator: a ratio over
// a non-positive base is 0, matching the stored-report conventions.

func commission(priceAtSale, actualReceived float64) float64 {
	return priceAtSale - actualReceived
}

func commissionPct(priceAtSale, actualReceived float64) float64 {
	if priceAtSale <= 0 {
		return 0
	}
	return (priceAtSale - actualReceived) * 100 / priceAtSale
}

func discountAmount(productPrice, discountPercent float64) float64 {
	return productPrice * discountPercent / 100
}

func discountedPrice(productPrice, discountPercent float64) float64 {
	return productPrice * (100 - discountPercent) / 100
}

func profit(actualReceived, productCost float64, quantity int64) float64 {
	return (actualReceived - productCost) * float64(quantity)
}

func profitPct(actualReceived, productCost float64) float64 {
	if productCost <= 0 {
		return 0
	}
	return (actualReceived - productCost) * 100 / productCost
}

func toEntry(row HistoryRow) HistoryEntry {
	return HistoryEntry{
		SaleID:          row.SaleID,
		ProductID:       row.ProductID,
		ProductName:     row.ProductName,
		Quantity:        row.Quantity,
		PriceAtSale:     row.PriceAtSale,
		ActualReceived:  row.ActualReceived,
		DiscountPercent: row.DiscountPercent,
		Note:            row.Note,
		SoldAt:          row.SoldAt,
		DeletedAt:       row.DeletedAt,
		Commission:      commission(row.PriceAtSale, row.ActualReceived),
		CommissionPct:   commissionPct(row.PriceAtSale, row.ActualReceived),
		DiscountAmount:  discountAmount(row.ProductPrice, row.DiscountPercent),
		DiscountedPrice: discountedPrice(row.ProductPrice, row.DiscountPercent),
		Profit:          profit(row.ActualReceived, row.ProductCost, row.Quantity),
		ProfitPct:       profitPct(row.ActualReceived, row.ProductCost),
	}
}

func summarize(entries []HistoryEntry) Summary {
	var s Summary
	for _, e := range entries {
		s.TotalQty += e.Quantity
		s.TotalRevenue += e.PriceAtSale * float64(e.Quantity)
		s.TotalProfit += e.Profit
		s.TotalCommission += e.Commission
		s.TotalDiscount += e.DiscountAmount
	}
	return s
}
