package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eaglebank/product-transactions/shared/models"
)

var (
	// ErrSourceStatus is returned when the seed source answers with a non-2xx status.
	ErrSourceStatus = errors.New("seed source returned unexpected status")
	// ErrMalformedPayload is returned when the body is not a JSON array of transactions.
	ErrMalformedPayload = errors.New("malformed seed payload")
)

// maxPayloadBytes bounds how much of the response body is read.
const maxPayloadBytes = 32 << 20

// record is the transaction shape published by the seed source. Its numeric id
// is dropped; the store assigns its own.
type record struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Sold        bool    `json:"sold"`
	DateOfSale  string  `json:"dateOfSale"`
}

// Client downloads the seed dataset over HTTP.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

// URL returns the source location.
func (c *Client) URL() string {
	return c.url
}

// Fetch downloads and decodes the full dataset.
func (c *Client) Fetch(ctx context.Context) ([]models.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create seed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrSourceStatus, resp.StatusCode)
	}

	var records []record
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadBytes)).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	transactions := make([]models.Transaction, len(records))
	for i, r := range records {
		transactions[i] = models.Transaction{
			Title:       r.Title,
			Description: r.Description,
			Price:       r.Price,
			Category:    r.Category,
			Image:       r.Image,
			Sold:        r.Sold,
			DateOfSale:  r.DateOfSale,
		}
	}
	return transactions, nil
}
