package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"billed/internal/core"
)

// Memory is an in-process bills backend for local development and
// tests. It accepts any credentials and keeps bills in a slice.
type Memory struct {
	mu     sync.Mutex
	bills  []core.Bill
	nextID int
	secret []byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{nextID: 1, secret: []byte("billed-dev-secret")}
}

// Seed replaces the stored bills, for tests and demo data.
func (m *Memory) Seed(bills []core.Bill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bills = append([]core.Bill(nil), bills...)
	m.nextID = len(bills) + 1
}

// Login issues a short-lived token for any credential pair.
func (m *Memory) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" {
		return "", core.ErrEmptyEmail
	}
	claims := jwt.MapClaims{
		"email": email,
		"exp":   jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign dev token: %w", err)
	}
	return token, nil
}

// List returns a copy of the stored bills.
func (m *Memory) List(ctx context.Context) ([]core.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Bill(nil), m.bills...), nil
}

// Create stores a new bill decoded from the payload. Multipart payloads
// carry the bill as form fields plus an optional receipt file; JSON
// payloads carry the bill document directly.
func (m *Memory) Create(ctx context.Context, p Payload) (core.Bill, error) {
	var bill core.Bill
	var err error
	if p.NoContentType {
		bill, err = decodeMultipartBill(p)
	} else {
		err = json.NewDecoder(p.Body).Decode(&bill)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("decode bill payload: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	bill.ID = strconv.Itoa(m.nextID)
	m.nextID++
	m.bills = append(m.bills, bill)
	return bill, nil
}

// Update merges the JSON document into the bill matching selector.
func (m *Memory) Update(ctx context.Context, data []byte, selector string) (core.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bills {
		if m.bills[i].ID != selector {
			continue
		}
		if err := json.Unmarshal(data, &m.bills[i]); err != nil {
			return core.Bill{}, fmt.Errorf("decode bill patch: %w", err)
		}
		return m.bills[i], nil
	}
	return core.Bill{}, &APIError{StatusCode: http.StatusNotFound}
}

func decodeMultipartBill(p Payload) (core.Bill, error) {
	mediaType, params, err := mime.ParseMediaType(p.ContentType)
	if err != nil {
		return core.Bill{}, fmt.Errorf("parse content type: %w", err)
	}
	if mediaType != "multipart/form-data" {
		return core.Bill{}, fmt.Errorf("unexpected media type %q", mediaType)
	}

	var bill core.Bill
	reader := multipart.NewReader(p.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.Bill{}, fmt.Errorf("read multipart: %w", err)
		}

		if part.FileName() != "" {
			bill.FileName = part.FileName()
			bill.FileURL = "memory://receipts/" + part.FileName()
			io.Copy(io.Discard, part)
			part.Close()
			continue
		}

		value, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return core.Bill{}, fmt.Errorf("read field %s: %w", part.FormName(), err)
		}
		assignBillField(&bill, part.FormName(), string(value))
	}
	return bill, nil
}

func assignBillField(bill *core.Bill, name, value string) {
	switch name {
	case "email":
		bill.Email = value
	case "type":
		bill.Type = value
	case "name":
		bill.Name = value
	case "amount":
		bill.Amount, _ = strconv.ParseFloat(value, 64)
	case "date":
		bill.Date = value
	case "vat":
		bill.VAT = value
	case "pct":
		bill.Pct, _ = strconv.Atoi(value)
	case "commentary":
		bill.Commentary = value
	case "status":
		bill.Status = core.Status(value)
	}
}
