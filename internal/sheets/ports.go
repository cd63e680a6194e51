// Package sheets defines the outbound ports for the bill archive.
package sheets

import (
	"context"

	"billed/internal/core"
)

// Ports for outbound adapters.
type (
	// BillWriter appends a bill to the archive and returns a row
	// reference for logging.
	BillWriter interface {
		Append(ctx context.Context, bill core.Bill) (rowRef string, err error)
	}

	// ArchiveReader lists the bill ids already archived, so exports
	// stay idempotent across consumer restarts.
	ArchiveReader interface {
		ArchivedIDs(ctx context.Context) ([]string, error)
	}
)
