// Package newbill implements the new-bill form pipeline: receipt file
// validation and staging, multipart submission, and the follow-up
// status update.
package newbill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"sync/atomic"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/routes"
	"billed/internal/session"
	"billed/internal/store"
)

var (
	// ErrUnsupportedFileType rejects receipt files that are not jpg,
	// jpeg or png.
	ErrUnsupportedFileType = errors.New("unsupported receipt file type")

	// ErrSubmitInFlight guards against a double form submission.
	ErrSubmitInFlight = errors.New("submission already in flight")
)

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// StagedFile is a validated receipt waiting for submission.
type StagedFile struct {
	Name    string
	Content []byte
}

// Pipeline drives a single user's new-bill form. It holds at most one
// staged receipt at a time; a new selection replaces the previous one.
type Pipeline struct {
	store      store.BillStore
	sessions   session.Provider
	onNavigate func(path string)
	logger     *log.Logger

	mu       sync.Mutex
	staged   *StagedFile
	billID   string
	inFlight atomic.Bool
}

// NewPipeline creates a new-bill pipeline. onNavigate fires only after
// a successful submission or update; it may be nil.
func NewPipeline(billStore store.BillStore, sessions session.Provider, onNavigate func(path string), logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Pipeline{
		store:      billStore,
		sessions:   sessions,
		onNavigate: onNavigate,
		logger:     logger.WithComponent(log.ComponentNewBill),
	}
}

// ValidateAndStage checks the selected receipt's extension and stages
// its content for the next submission. The extension check is on the
// file name only, case-insensitive, never on content. A rejected file
// also clears any previously staged one, so a rejection cannot be
// bypassed by submitting the stale selection.
func (p *Pipeline) ValidateAndStage(fileName string, content []byte) error {
	name := baseName(fileName)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !extensionAllowed(name) {
		p.staged = nil
		p.logger.Warn("receipt file rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldFileName, name)
		return ErrUnsupportedFileType
	}

	p.staged = &StagedFile{Name: name, Content: content}
	return nil
}

// BillID returns the id of the last successfully created bill, or "".
func (p *Pipeline) BillID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.billID
}

// Staged returns a copy of the currently staged receipt, or nil.
// Mutating the copy does not affect the staged state.
func (p *Pipeline) Staged() *StagedFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.staged == nil {
		return nil
	}
	return &StagedFile{
		Name:    p.staged.Name,
		Content: append([]byte(nil), p.staged.Content...),
	}
}

// baseName strips any path prefix from a browser-supplied file name.
// Both separators appear in the wild depending on the client OS.
func baseName(fileName string) string {
	if i := strings.LastIndexAny(fileName, `/\`); i >= 0 {
		return fileName[i+1:]
	}
	return fileName
}

func extensionAllowed(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return false
	}
	return allowedExtensions[strings.ToLower(name[i+1:])]
}

// Submit sends the draft and the staged receipt to the store as one
// multipart request. On success it records the created bill's id,
// clears the staged file and navigates to the bills list. On failure
// the staged file is kept so the user can retry, and no navigation
// happens.
func (p *Pipeline) Submit(ctx context.Context, draft core.NewBillDraft) error {
	if p.store == nil {
		return nil
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer p.inFlight.Store(false)

	user, err := p.sessions.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !user.Connected() {
		return core.ErrNoSession
	}

	draft.Normalize()

	p.mu.Lock()
	staged := p.staged
	p.mu.Unlock()

	payload, err := buildPayload(user.Email, draft, staged)
	if err != nil {
		return fmt.Errorf("build bill payload: %w", err)
	}

	created, err := p.store.Create(ctx, payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "bill submission failed",
			log.FieldOperation, log.OpSubmit,
			log.FieldEmail, user.Email,
			log.FieldError, err)
		return err
	}

	p.mu.Lock()
	p.billID = created.ID
	p.staged = nil
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "bill submitted",
		log.FieldOperation, log.OpSubmit,
		log.FieldBillID, created.ID,
		log.FieldEmail, user.Email)

	if p.onNavigate != nil {
		p.onNavigate(routes.Bills)
	}
	return nil
}

// UpdateBill patches the last created bill with the given document and
// navigates to the bills list on success.
func (p *Pipeline) UpdateBill(ctx context.Context, bill core.Bill) error {
	if p.store == nil {
		return nil
	}

	p.mu.Lock()
	billID := p.billID
	p.mu.Unlock()

	data, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("encode bill update: %w", err)
	}

	if _, err := p.store.Update(ctx, data, billID); err != nil {
		p.logger.ErrorContext(ctx, "bill update failed",
			log.FieldOperation, log.OpUpdate,
			log.FieldBillID, billID,
			log.FieldError, err)
		return err
	}

	if p.onNavigate != nil {
		p.onNavigate(routes.Bills)
	}
	return nil
}

// buildPayload assembles the multipart form the backend expects. The
// content type is the writer's own, carrying the boundary.
func buildPayload(email string, draft core.NewBillDraft, staged *StagedFile) (store.Payload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"email", email},
		{"type", draft.Type},
		{"name", draft.Name},
		{"amount", draft.Amount},
		{"date", draft.Date},
		{"vat", draft.VAT},
		{"pct", draft.Pct},
		{"commentary", draft.Commentary},
		{"status", string(core.StatusPending)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return store.Payload{}, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	if staged != nil {
		fw, err := mw.CreateFormFile("file", staged.Name)
		if err != nil {
			return store.Payload{}, fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(staged.Content)); err != nil {
			return store.Payload{}, fmt.Errorf("write file part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return store.Payload{}, fmt.Errorf("close multipart writer: %w", err)
	}

	return store.Payload{
		Body:          &buf,
		ContentType:   mw.FormDataContentType(),
		NoContentType: true,
	}, nil
}
