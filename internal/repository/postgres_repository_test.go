package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostgresWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		priceRng *PriceRange
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no constraints",
			filter:  Filter{},
			wantSQL: "",
		},
		{
			name:     "calendar month",
			filter:   Filter{Month: MonthFilter{Month: time.June}},
			wantSQL:  "\n\t\tWHERE date_of_sale ~* $1",
			wantArgs: []any{`^[0-9]{4}-06-`},
		},
		{
			name:     "month and search share one placeholder for the search text",
			filter:   Filter{Month: MonthFilter{Text: "jun"}, Search: "shirt"},
			wantSQL:  "\n\t\tWHERE date_of_sale ~* $1 AND (title ~* $2 OR description ~* $2 OR price::text ~* $2)",
			wantArgs: []any{"jun", "shirt"},
		},
		{
			name:     "first bucket is inclusive",
			filter:   Filter{},
			priceRng: &PriceRanges[0],
			wantSQL:  "\n\t\tWHERE price >= $1 AND price <= $2",
			wantArgs: []any{float64(0), float64(100)},
		},
		{
			name:     "open-ended bucket",
			filter:   Filter{Month: MonthFilter{Text: "05"}},
			priceRng: &PriceRanges[9],
			wantSQL:  "\n\t\tWHERE date_of_sale ~* $1 AND price > $2",
			wantArgs: []any{"05", float64(900)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := postgresWhere(tt.filter, tt.priceRng)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
