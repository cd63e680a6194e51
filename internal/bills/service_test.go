package bills

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"billed/internal/core"
	"billed/internal/store"
)

type stubLister struct {
	bills []core.Bill
	err   error
}

func (s *stubLister) List(ctx context.Context) ([]core.Bill, error) {
	return s.bills, s.err
}

func snapshot() []core.Bill {
	return []core.Bill{
		{ID: "47qAXb6fIm2zOKkLzMro", Name: "encore", Date: "2004-04-04", Status: core.StatusPending, Amount: 400},
		{ID: "BeKy5Mo4jkmdfPGYpTxZ", Name: "test1", Date: "2001-01-01", Status: core.StatusRefused, Amount: 100},
		{ID: "UIUZtnPQvnbFnB0ozvJh", Name: "test3", Date: "2003-03-03", Status: core.StatusAccepted, Amount: 300},
		{ID: "qcCK3SzECmaZAGRrHjaC", Name: "test2", Date: "2002-02-02", Status: core.StatusRefused, Amount: 200},
	}
}

func TestFetchAndPrepareOrdersNewestFirst(t *testing.T) {
	svc := NewService(&stubLister{bills: snapshot()}, nil)

	rows, err := svc.FetchAndPrepare(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []string{"encore", "test3", "test2", "test1"}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, name := range want {
		if rows[i].Name != name {
			t.Errorf("row %d is %q, want %q", i, rows[i].Name, name)
		}
	}
}

func TestFetchAndPrepareFormatsAfterOrdering(t *testing.T) {
	svc := NewService(&stubLister{bills: snapshot()}, nil)

	rows, err := svc.FetchAndPrepare(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if rows[0].Date != "4 Avr. 04" {
		t.Errorf("newest row date %q, want %q", rows[0].Date, "4 Avr. 04")
	}
	if rows[0].Status != "En attente" {
		t.Errorf("newest row status %q, want %q", rows[0].Status, "En attente")
	}
	if rows[3].Status != "Refused" {
		t.Errorf("refused label %q, want %q", rows[3].Status, "Refused")
	}
}

func TestFetchAndPrepareKeepsCorruptedRecords(t *testing.T) {
	bills := snapshot()
	bills = append(bills, core.Bill{ID: "corrupt", Name: "broken", Date: "not-a-date", Status: "weird"})
	svc := NewService(&stubLister{bills: bills}, nil)

	rows, err := svc.FetchAndPrepare(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("corrupted record must survive, got %d rows", len(rows))
	}

	last := rows[len(rows)-1]
	if last.ID != "corrupt" {
		t.Errorf("corrupted record should sink last, got %q", last.ID)
	}
	if last.Date != "not-a-date" {
		t.Errorf("corrupted date must stay raw, got %q", last.Date)
	}
	if last.Status != "weird" {
		t.Errorf("unknown status must stay raw, got %q", last.Status)
	}
}

func TestFetchAndPreparePropagatesStoreError(t *testing.T) {
	apiErr := &store.APIError{StatusCode: http.StatusNotFound}
	svc := NewService(&stubLister{err: apiErr}, nil)

	_, err := svc.FetchAndPrepare(context.Background())
	if !errors.Is(err, apiErr) {
		t.Fatalf("store error must propagate unmodified, got %v", err)
	}
	if err.Error() != "Erreur 404" {
		t.Errorf("error message %q", err.Error())
	}
}

func TestFetchAndPrepareNilStore(t *testing.T) {
	svc := NewService(nil, nil)
	rows, err := svc.FetchAndPrepare(context.Background())
	if err != nil || rows != nil {
		t.Fatalf("nil store should yield empty list, got %v %v", rows, err)
	}
}

func TestProof(t *testing.T) {
	svc := NewService(nil, nil)

	view, err := svc.Proof("https://files/receipt.jpg")
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if view.BillURL != "https://files/receipt.jpg" || view.WidthPct != 50 {
		t.Errorf("proof view %+v", view)
	}

	for _, url := range []string{"", "null"} {
		if _, err := svc.Proof(url); !errors.Is(err, ErrMissingProofURL) {
			t.Errorf("url %q: want ErrMissingProofURL, got %v", url, err)
		}
	}
}
