package store

import (
	"context"

	"billed/internal/core"
)

// BillLister reads the current bill snapshot.
type BillLister interface {
	List(ctx context.Context) ([]core.Bill, error)
}

// BillCreator submits a new bill.
type BillCreator interface {
	Create(ctx context.Context, p Payload) (core.Bill, error)
}

// BillUpdater patches an existing bill.
type BillUpdater interface {
	Update(ctx context.Context, data []byte, selector string) (core.Bill, error)
}

// BillStore is the full bills resource surface.
type BillStore interface {
	BillLister
	BillCreator
	BillUpdater
}

// Authenticator exchanges credentials for an API token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}
