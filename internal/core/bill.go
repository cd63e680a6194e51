// Package core holds the bill and session domain types shared by the
// pipelines, the remote store client and the HTTP layer.
package core

import (
	"errors"
	"strings"
)

// Status is a bill's lifecycle state as stored by the backend.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// UserType distinguishes the two kinds of connected users.
type UserType string

const (
	UserEmployee UserType = "Employee"
	UserAdmin    UserType = "Admin"
)

// DefaultPct is the VAT percentage applied when the form field is left blank.
const DefaultPct = 20

var (
	ErrEmptyEmail   = errors.New("empty owner email")
	ErrInvalidDate  = errors.New("invalid bill date")
	ErrNoSession    = errors.New("no connected user")
	ErrInvalidToken = errors.New("invalid session token")
)

// Bill is an expense-report record as exchanged with the remote store.
// Amount and Pct are numeric at rest. Date stays in canonical ISO form
// (YYYY-MM-DD); display forms are derived, never stored back.
type Bill struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Date         string  `json:"date"`
	VAT          string  `json:"vat"`
	Pct          int     `json:"pct"`
	Commentary   string  `json:"commentary"`
	CommentAdmin string  `json:"commentAdmin,omitempty"`
	FileURL      string  `json:"fileUrl"`
	FileName     string  `json:"fileName"`
	Status       Status  `json:"status"`
}

// DisplayBill is a Bill prepared for rendering: the date is locale
// formatted and the status replaced by its display label. Constructed
// fresh per render and never persisted.
type DisplayBill struct {
	ID         string
	Email      string
	Type       string
	Name       string
	Amount     float64
	Date       string // display form, e.g. "4 Avr. 04"
	VAT        string
	Pct        int
	Commentary string
	FileURL    string
	FileName   string
	Status     string // display label, e.g. "En attente"
}

// NewBillDraft carries the new-bill form fields exactly as entered.
// Values stay textual until submission; the backend owns numeric parsing
// of the multipart fields.
type NewBillDraft struct {
	Type       string
	Name       string
	Amount     string
	Date       string
	VAT        string
	Pct        string
	Commentary string
}

// Normalize trims all fields and applies the pct default.
func (d *NewBillDraft) Normalize() {
	d.Type = strings.TrimSpace(d.Type)
	d.Name = strings.TrimSpace(d.Name)
	d.Amount = strings.TrimSpace(d.Amount)
	d.Date = strings.TrimSpace(d.Date)
	d.VAT = strings.TrimSpace(d.VAT)
	d.Pct = strings.TrimSpace(d.Pct)
	d.Commentary = strings.TrimSpace(d.Commentary)
	if d.Pct == "" {
		d.Pct = "20"
	}
}

// Session identifies the locally connected user. It is owned by the
// session store; pipelines only read it.
type Session struct {
	Type   UserType `json:"type"`
	Email  string   `json:"email"`
	Status string   `json:"status"`
}

// Connected reports whether the session represents a logged-in user.
func (s *Session) Connected() bool {
	return s != nil && s.Email != "" && s.Status == "connected"
}
