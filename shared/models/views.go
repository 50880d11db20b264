package models

// Statistics is the monthly sales summary. A month with no matching
// transactions yields the zero value rather than an absent record.
type Statistics struct {
	TotalAmount  float64 `json:"totalAmount"`
	TotalSold    int64   `json:"totalSold"`
	TotalNotSold int64   `json:"totalNotSold"`
}

// PriceRangeCount is one bar of the price-range histogram.
type PriceRangeCount struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// CategoryCount is one slice of the category breakdown. The JSON shape keeps
// the `_id` key of the grouping stage the endpoint has always returned.
type CategoryCount struct {
	Category  string `json:"_id" bson:"_id"`
	ItemCount int64  `json:"itemCount" bson:"itemCount"`
}

// CombinedView bundles every read view for a single month filter.
type CombinedView struct {
	Transactions []Transaction     `json:"transactions"`
	Statistics   Statistics        `json:"statistics"`
	BarChart     []PriceRangeCount `json:"barChart"`
	PieChart     []CategoryCount   `json:"pieChart"`
}
