package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"billed/internal/bills"
	"billed/internal/core"
	"billed/internal/newbill"
	"billed/internal/routes"
	"billed/internal/session"
	"billed/internal/store"
)

type failingStore struct {
	err error
}

func (f *failingStore) Login(ctx context.Context, email, password string) (string, error) {
	return "", f.err
}
func (f *failingStore) List(ctx context.Context) ([]core.Bill, error) { return nil, f.err }
func (f *failingStore) Create(ctx context.Context, p store.Payload) (core.Bill, error) {
	return core.Bill{}, f.err
}
func (f *failingStore) Update(ctx context.Context, data []byte, selector string) (core.Bill, error) {
	return core.Bill{}, f.err
}

type publishRecorder struct {
	billIDs []string
}

func (p *publishRecorder) PublishBillCreated(ctx context.Context, billID, email string) error {
	p.billIDs = append(p.billIDs, billID)
	return nil
}

type serverEnv struct {
	server   *Server
	sessions *session.Store
	backend  *store.Memory
	events   *publishRecorder
}

func newTestServer(t *testing.T, backend store.BillStore, auth store.Authenticator) *serverEnv {
	t.Helper()

	sessions, err := session.Open(filepath.Join(t.TempDir(), "billed.db"))
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	mem, _ := backend.(*store.Memory)
	events := &publishRecorder{}

	var lister store.BillLister
	if backend != nil {
		lister = backend
	}

	s := NewServer(":0", Deps{
		Sessions: sessions,
		Auth:     auth,
		Bills:    bills.NewService(lister, nil),
		NewBill:  newbill.NewPipeline(backend, sessions, nil, nil),
		Events:   events,
	})
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	return &serverEnv{server: s, sessions: sessions, backend: mem, events: events}
}

func (e *serverEnv) loginAs(t *testing.T, email string) {
	t.Helper()
	sess := &core.Session{Type: core.UserEmployee, Email: email, Status: "connected"}
	if err := e.sessions.SetCurrentUser(context.Background(), sess); err != nil {
		t.Fatalf("set current user: %v", err)
	}
}

func (e *serverEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func seededBackend() *store.Memory {
	mem := store.NewMemory()
	mem.Seed([]core.Bill{
		{ID: "b1", Name: "encore", Date: "2004-04-04", Status: core.StatusPending, FileURL: "https://files/b1.jpg"},
		{ID: "b2", Name: "test1", Date: "2001-01-01", Status: core.StatusRefused},
	})
	return mem
}

func TestBillsPageRequiresSession(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/bills", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d, want redirect", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != routes.Login {
		t.Errorf("redirect to %q, want %q", got, routes.Login)
	}
}

func TestExpiredTokenLogsOut(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "employee@test.tld",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := env.sessions.SetToken(context.Background(), stale); err != nil {
		t.Fatal(err)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/bills", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != routes.Login {
		t.Fatalf("expired token should redirect to login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	user, _ := env.sessions.CurrentUser(context.Background())
	if user != nil {
		t.Errorf("session should be cleared after expiry, got %+v", user)
	}
	token, _ := env.sessions.Token(context.Background())
	if token != "" {
		t.Error("stale token should be removed")
	}
}

func TestBillsPageRendersPreparedRows(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/bills", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "En attente") {
		t.Error("pending status label missing")
	}
	if !strings.Contains(body, "4 Avr. 04") {
		t.Error("formatted date missing")
	}
	if !strings.Contains(body, "Refused") {
		t.Error("refused label missing")
	}
	// Newest first: "encore" before "test1".
	if strings.Index(body, "encore") > strings.Index(body, "test1") {
		t.Error("rows are not ordered newest first")
	}
}

func TestBillsPageShowsBackendError(t *testing.T) {
	env := newTestServer(t, &failingStore{err: &store.APIError{StatusCode: 404}}, store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/bills", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Erreur 404") {
		t.Error("error page must carry the backend message")
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())

	form := url.Values{"email": {"employee@test.tld"}, "password": {"pw"}, "type": {"Employee"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != routes.Bills {
		t.Fatalf("login should redirect to bills, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	user, err := env.sessions.CurrentUser(context.Background())
	if err != nil || !user.Connected() || user.Email != "employee@test.tld" {
		t.Errorf("session after login: %+v, %v", user, err)
	}
	token, _ := env.sessions.Token(context.Background())
	if token == "" {
		t.Error("token should be stored after login")
	}
}

func TestLoginFailureStaysOnPage(t *testing.T) {
	env := newTestServer(t, seededBackend(), &failingStore{err: &store.APIError{StatusCode: 500}})

	form := url.Values{"email": {"a@a"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Erreur 500") {
		t.Error("login error must surface")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	rec := env.do(httptest.NewRequest(http.MethodPost, "/logout", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != routes.Login {
		t.Fatalf("logout should redirect to login, got %d", rec.Code)
	}

	user, _ := env.sessions.CurrentUser(context.Background())
	if user != nil {
		t.Errorf("session should be cleared, got %+v", user)
	}
}

func TestProofModal(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/bills/proof?url=https://files/b1.jpg", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "https://files/b1.jpg") {
		t.Error("receipt url missing from modal")
	}
	if !strings.Contains(body, "width: 50%") {
		t.Error("receipt image should render at half width")
	}
}

func TestProofModalWithoutURL(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/bills/proof", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Aucun justificatif") {
		t.Error("missing-receipt warning expected")
	}
}

func multipartFile(t *testing.T, fieldFileName string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fieldFileName)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("fake image"))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestFileSelectAcceptsImage(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	body, contentType := multipartFile(t, "receipt.png")
	req := httptest.NewRequest(http.MethodPost, "/bills/new/file", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "receipt.png") {
		t.Error("accepted file name should render")
	}
}

func TestFileSelectRejectsOtherTypes(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	body, contentType := multipartFile(t, "document.pdf")
	req := httptest.NewRequest(http.MethodPost, "/bills/new/file", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(req)
	if !strings.Contains(rec.Body.String(), "jpg, jpeg et png") {
		t.Error("rejection message expected")
	}
}

func TestSubmitCreatesBillAndRedirects(t *testing.T) {
	backend := store.NewMemory()
	env := newTestServer(t, backend, backend)
	env.loginAs(t, "employee@test.tld")

	form := url.Values{
		"type":   {"Transports"},
		"name":   {"Vol Paris Londres"},
		"amount": {"348"},
		"date":   {"2023-05-05"},
		"vat":    {"70"},
	}
	req := httptest.NewRequest(http.MethodPost, "/bills", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != routes.Bills {
		t.Fatalf("submit should redirect to bills, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	created, _ := env.backend.List(context.Background())
	if len(created) != 1 || created[0].Email != "employee@test.tld" || created[0].Status != core.StatusPending {
		t.Errorf("created bill %+v", created)
	}
	if len(env.events.billIDs) != 1 || env.events.billIDs[0] != created[0].ID {
		t.Errorf("bill.created event %v", env.events.billIDs)
	}
}

func TestSubmitFailureShowsErrorBanner(t *testing.T) {
	env := newTestServer(t, &failingStore{err: &store.APIError{StatusCode: 500}}, store.NewMemory())
	env.loginAs(t, "employee@test.tld")

	form := url.Values{"name": {"taxi"}, "amount": {"10"}, "date": {"2023-05-05"}}
	req := httptest.NewRequest(http.MethodPost, "/bills", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Error("failed submission must not redirect")
	}
	if !strings.Contains(rec.Body.String(), "Erreur 500") {
		t.Error("error banner expected")
	}
	if len(env.events.billIDs) != 0 {
		t.Error("no event on failed submission")
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())

	if rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz %d", rec.Code)
	}
	if rec := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil)); rec.Code != http.StatusOK {
		t.Errorf("readyz %d", rec.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	env := newTestServer(t, seededBackend(), store.NewMemory())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options %q", got)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("CSP header missing")
	}
}
