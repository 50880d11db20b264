package cqrs

// ---------- Transaction queries ----------

// ListTransactionsQuery fetches one page of transactions matching a month and
// an optional free-text search.
type ListTransactionsQuery struct {
	Month   string
	Search  string
	Page    int
	PerPage int
}

// MonthQuery selects the transactions an aggregate view is computed over.
// Used by statistics, bar chart, pie chart and combined data.
type MonthQuery struct {
	Month string
}
