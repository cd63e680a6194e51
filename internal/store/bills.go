package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"billed/internal/core"
)

// Payload is an outbound request body. When NoContentType is set the
// client forwards ContentType as produced by the payload builder (it
// carries the multipart boundary) instead of applying its JSON default.
type Payload struct {
	Body          io.Reader
	ContentType   string
	NoContentType bool
}

// BillsClient exposes the bills resource of the remote store.
type BillsClient struct {
	client *Client
}

// List returns the raw bill snapshot. Failures propagate unmodified to
// the caller; rendering an error state is the view layer's job.
func (b *BillsClient) List(ctx context.Context) ([]core.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.client.baseURL+"/bills", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	body, err := b.client.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var bills []core.Bill
	if err := json.NewDecoder(body).Decode(&bills); err != nil {
		return nil, fmt.Errorf("decode bill list: %w", err)
	}
	return bills, nil
}

// Create submits a new bill. The payload is multipart when a receipt
// file is attached, so content-type negotiation is left to the payload.
func (b *BillsClient) Create(ctx context.Context, p Payload) (core.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.client.baseURL+"/bills", p.Body)
	if err != nil {
		return core.Bill{}, fmt.Errorf("build create request: %w", err)
	}
	if p.NoContentType {
		req.Header.Set("Content-Type", p.ContentType)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}

	body, err := b.client.do(ctx, req)
	if err != nil {
		return core.Bill{}, err
	}
	defer body.Close()

	var created core.Bill
	if err := json.NewDecoder(body).Decode(&created); err != nil {
		return core.Bill{}, fmt.Errorf("decode created bill: %w", err)
	}
	return created, nil
}

// Update patches the bill identified by selector with the given JSON
// document. This is the entry point the admin review flow goes through
// to change a bill's status.
func (b *BillsClient) Update(ctx context.Context, data []byte, selector string) (core.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, b.client.baseURL+"/bills/"+selector, bytes.NewReader(data))
	if err != nil {
		return core.Bill{}, fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := b.client.do(ctx, req)
	if err != nil {
		return core.Bill{}, err
	}
	defer body.Close()

	var updated core.Bill
	if err := json.NewDecoder(body).Decode(&updated); err != nil {
		return core.Bill{}, fmt.Errorf("decode updated bill: %w", err)
	}
	return updated, nil
}
