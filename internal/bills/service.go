// Package bills prepares the bill list for display: fetch, status and
// date formatting, newest-first ordering, and the receipt proof view.
package bills

import (
	"context"
	"errors"
	"sort"
	"time"

	"billed/internal/core"
	"billed/internal/format"
	"billed/internal/log"
	"billed/internal/store"
)

// ErrMissingProofURL is returned when a bill has no stored receipt URL.
var ErrMissingProofURL = errors.New("bill has no receipt url")

// ProofWidthPct is the receipt image width inside the proof modal,
// as a percentage of the modal width.
const ProofWidthPct = 50

// Service turns raw store records into display rows.
type Service struct {
	store  store.BillLister
	logger *log.Logger
}

// NewService creates a bills service. A nil store is tolerated; the
// list then renders empty.
func NewService(lister store.BillLister, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:  lister,
		logger: logger.WithComponent(log.ComponentBills),
	}
}

// FetchAndPrepare loads the bill snapshot and prepares it for display.
// Ordering is by the raw ISO date, newest first, and is decided before
// any display formatting. A fetch failure propagates unmodified so the
// caller can render the matching error screen. A record whose date or
// status resists formatting keeps its raw value and the row survives.
func (s *Service) FetchAndPrepare(ctx context.Context) ([]core.DisplayBill, error) {
	if s.store == nil {
		return nil, nil
	}

	raw, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(raw, func(i, j int) bool {
		return parseBillDate(raw[i].Date).After(parseBillDate(raw[j].Date))
	})

	rows := make([]core.DisplayBill, 0, len(raw))
	for _, bill := range raw {
		rows = append(rows, s.toDisplay(ctx, bill))
	}
	return rows, nil
}

// parseBillDate parses an ISO date for ordering. Corrupted dates map to
// the zero time and sink to the end of the newest-first list.
func parseBillDate(iso string) time.Time {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Service) toDisplay(ctx context.Context, bill core.Bill) core.DisplayBill {
	date, err := format.FormatDate(bill.Date)
	if err != nil {
		s.logger.WarnContext(ctx, "bill date kept raw",
			log.FieldOperation, log.OpList,
			log.FieldBillID, bill.ID,
			log.FieldBillDate, bill.Date,
			log.FieldError, err)
	}

	status, err := format.FormatStatus(string(bill.Status))
	if err != nil {
		s.logger.WarnContext(ctx, "bill status kept raw",
			log.FieldOperation, log.OpList,
			log.FieldBillID, bill.ID,
			log.FieldBillStatus, string(bill.Status),
			log.FieldError, err)
	}

	return core.DisplayBill{
		ID:         bill.ID,
		Email:      bill.Email,
		Type:       bill.Type,
		Name:       bill.Name,
		Amount:     bill.Amount,
		Date:       date,
		VAT:        bill.VAT,
		Pct:        bill.Pct,
		Commentary: bill.Commentary,
		FileURL:    bill.FileURL,
		FileName:   bill.FileName,
		Status:     status,
	}
}

// ProofView is everything the receipt modal needs to render.
type ProofView struct {
	BillURL  string
	WidthPct int
}

// Proof builds the receipt modal view for a bill's stored receipt URL.
// Bills without one get ErrMissingProofURL and the caller shows a
// warning instead of a broken image.
func (s *Service) Proof(billURL string) (ProofView, error) {
	if billURL == "" || billURL == "null" {
		return ProofView{}, ErrMissingProofURL
	}
	return ProofView{BillURL: billURL, WidthPct: ProofWidthPct}, nil
}
