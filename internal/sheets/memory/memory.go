// Package memory is an in-process bill archive for development and
// tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"billed/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Bill
}

func New() *Store {
	return &Store{}
}

// Append stores the bill and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, bill core.Bill) (string, error) {
	if bill.ID == "" {
		return "", errors.New("bill has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, bill)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ArchivedIDs returns the ids of all appended bills, in order.
func (s *Store) ArchivedIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.items))
	for _, b := range s.items {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// Items returns a copy of the archived bills.
func (s *Store) Items() []core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bill(nil), s.items...)
}
