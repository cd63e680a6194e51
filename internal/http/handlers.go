package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/newbill"
	"billed/internal/routes"
	"billed/internal/store"
)

// maxReceiptSize bounds the uploaded receipt we buffer in memory.
const maxReceiptSize = 10 << 20

type loginPageData struct {
	Error string
}

type billsPageData struct {
	Email string
	Bills []core.DisplayBill
}

type fileStatusData struct {
	Error    string
	FileName string
}

type submitErrorData struct {
	Message string
}

type newBillPageData struct {
	Email       string
	FileStatus  fileStatusData
	SubmitError *submitErrorData
}

type errorPageData struct {
	Message string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
	}
}

// requireSession redirects to the login page when nobody is connected.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) *core.Session {
	user, err := s.sessions.CurrentUser(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "session read failed", log.FieldError, err)
		http.Redirect(w, r, routes.Login, http.StatusSeeOther)
		return nil
	}
	if !user.Connected() {
		http.Redirect(w, r, routes.Login, http.StatusSeeOther)
		return nil
	}

	expired, err := s.sessions.TokenExpired(r.Context(), time.Now())
	if err == nil && expired {
		s.logger.InfoContext(r.Context(), "session token expired, logging out",
			log.FieldOperation, log.OpLogout,
			log.FieldEmail, user.Email)
		if cerr := s.sessions.Clear(r.Context()); cerr != nil {
			s.logger.ErrorContext(r.Context(), "session clear failed", log.FieldError, cerr)
		}
		http.Redirect(w, r, routes.Login, http.StatusSeeOther)
		return nil
	}

	return user
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != routes.Login {
		http.NotFound(w, r)
		return
	}

	user, err := s.sessions.CurrentUser(r.Context())
	if err == nil && user.Connected() {
		http.Redirect(w, r, routes.Bills, http.StatusSeeOther)
		return
	}

	s.render(w, r, http.StatusOK, "login.html", loginPageData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", loginPageData{Error: "Formulaire invalide"})
		return
	}

	email := r.Form.Get("email")
	password := r.Form.Get("password")
	userType := core.UserType(r.Form.Get("type"))
	if userType != core.UserAdmin {
		userType = core.UserEmployee
	}

	token, err := s.auth.Login(r.Context(), email, password)
	if err != nil {
		s.logger.WarnContext(r.Context(), "login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldEmail, email,
			log.FieldError, err)
		s.render(w, r, http.StatusUnauthorized, "login.html", loginPageData{Error: err.Error()})
		return
	}

	if err := s.sessions.SetToken(r.Context(), token); err != nil {
		s.renderError(w, r, err)
		return
	}
	sess := &core.Session{Type: userType, Email: email, Status: "connected"}
	if err := s.sessions.SetCurrentUser(r.Context(), sess); err != nil {
		s.renderError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "user connected",
		log.FieldOperation, log.OpLogin,
		log.FieldEmail, email)
	http.Redirect(w, r, routes.Bills, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.sessions.Clear(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "logout failed",
			log.FieldOperation, log.OpLogout,
			log.FieldError, err)
	}
	http.Redirect(w, r, routes.Login, http.StatusSeeOther)
}

func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleBillsList(w, r)
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleBillsList(w http.ResponseWriter, r *http.Request) {
	user := s.requireSession(w, r)
	if user == nil {
		return
	}

	rows, err := s.bills.FetchAndPrepare(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "bills.html", billsPageData{
		Email: user.Email,
		Bills: rows,
	})
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if s.requireSession(w, r) == nil {
		return
	}

	view, err := s.bills.Proof(r.URL.Query().Get("url"))
	if err != nil {
		s.render(w, r, http.StatusOK, "proof_missing.html", nil)
		return
	}
	s.render(w, r, http.StatusOK, "proof_modal.html", view)
}

func (s *Server) handleNewBillPage(w http.ResponseWriter, r *http.Request) {
	user := s.requireSession(w, r)
	if user == nil {
		return
	}

	data := newBillPageData{Email: user.Email}
	if staged := s.pipeline.Staged(); staged != nil {
		data.FileStatus.FileName = staged.Name
	}
	s.render(w, r, http.StatusOK, "new_bill.html", data)
}

func (s *Server) handleFileSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.requireSession(w, r) == nil {
		return
	}

	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		s.render(w, r, http.StatusOK, "file_status.html", fileStatusData{Error: "Fichier illisible"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.render(w, r, http.StatusOK, "file_status.html", fileStatusData{Error: "Aucun fichier sélectionné"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxReceiptSize))
	if err != nil {
		s.render(w, r, http.StatusOK, "file_status.html", fileStatusData{Error: "Fichier illisible"})
		return
	}

	if err := s.pipeline.ValidateAndStage(header.Filename, content); err != nil {
		s.render(w, r, http.StatusOK, "file_status.html", fileStatusData{
			Error: "Seuls les fichiers jpg, jpeg et png sont acceptés.",
		})
		return
	}

	s.render(w, r, http.StatusOK, "file_status.html", fileStatusData{
		FileName: s.pipeline.Staged().Name,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user := s.requireSession(w, r)
	if user == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "new_bill.html", newBillPageData{
			Email:       user.Email,
			SubmitError: &submitErrorData{Message: "Formulaire invalide"},
		})
		return
	}

	draft := core.NewBillDraft{
		Type:       r.Form.Get("type"),
		Name:       r.Form.Get("name"),
		Amount:     r.Form.Get("amount"),
		Date:       r.Form.Get("date"),
		VAT:        r.Form.Get("vat"),
		Pct:        r.Form.Get("pct"),
		Commentary: r.Form.Get("commentary"),
	}

	if err := s.pipeline.Submit(r.Context(), draft); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, newbill.ErrSubmitInFlight) {
			status = http.StatusConflict
		}
		var apiErr *store.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}

		data := newBillPageData{
			Email:       user.Email,
			SubmitError: &submitErrorData{Message: err.Error()},
		}
		if staged := s.pipeline.Staged(); staged != nil {
			data.FileStatus.FileName = staged.Name
		}
		s.render(w, r, status, "new_bill.html", data)
		return
	}

	if s.events != nil {
		if err := s.events.PublishBillCreated(r.Context(), s.pipeline.BillID(), user.Email); err != nil {
			s.logger.WarnContext(r.Context(), "bill.created event not delivered",
				log.FieldBillID, s.pipeline.BillID(),
				log.FieldError, err)
		}
	}

	http.Redirect(w, r, routes.Bills, http.StatusSeeOther)
}

// renderError shows the error screen carrying the backend's message,
// so "Erreur 404" and "Erreur 500" surface to the user unchanged.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var apiErr *store.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	s.render(w, r, status, "error.html", errorPageData{Message: err.Error()})
}
