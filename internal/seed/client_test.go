package seed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `[
  {"id":1,"title":"Fjallraven Backpack","price":329.85,"description":"Your perfect pack","category":"men's clothing","image":"https://example.test/1.jpg","sold":false,"dateOfSale":"2021-11-27T20:29:54+05:30"},
  {"id":2,"title":"Mens Casual T-Shirt","price":44.6,"description":"Slim-fitting style","category":"men's clothing","image":"https://example.test/2.jpg","sold":true,"dateOfSale":"2021-10-27T20:29:54+05:30"}
]`

func newSource(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch(t *testing.T) {
	srv := newSource(t, http.StatusOK, samplePayload)
	c := NewClient(srv.URL, time.Second)

	txs, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Empty(t, txs[0].ID, "source ids are not carried over")
	assert.Equal(t, "Fjallraven Backpack", txs[0].Title)
	assert.Equal(t, 329.85, txs[0].Price)
	assert.Equal(t, "2021-11-27T20:29:54+05:30", txs[0].DateOfSale)
	assert.True(t, txs[1].Sold)
	assert.Equal(t, srv.URL, c.URL())
}

func TestClient_FetchEmptyArray(t *testing.T) {
	srv := newSource(t, http.StatusOK, `[]`)
	txs, err := NewClient(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", want: ErrSourceStatus},
		{name: "not found", status: http.StatusNotFound, body: "", want: ErrSourceStatus},
		{name: "object instead of array", status: http.StatusOK, body: `{"title":"x"}`, want: ErrMalformedPayload},
		{name: "truncated json", status: http.StatusOK, body: `[{"title":`, want: ErrMalformedPayload},
		{name: "wrong field type", status: http.StatusOK, body: `[{"price":"free"}]`, want: ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newSource(t, tt.status, tt.body)
			_, err := NewClient(srv.URL, time.Second).Fetch(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_FetchUnreachable(t *testing.T) {
	srv := newSource(t, http.StatusOK, samplePayload)
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Fetch(context.Background())
	assert.Error(t, err)
}
