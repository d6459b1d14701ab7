// Package httpapi exposes the public HTTP surface the mobile app talks to.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/detailerapp/backend/internal/common"
	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/server/accounts"
	"github.com/detailerapp/backend/internal/server/auth"
	"github.com/detailerapp/backend/internal/server/messages"
	"github.com/detailerapp/backend/internal/server/models"
)

type Server struct {
	accounts  *accounts.Service
	messages  *messages.Service
	jwtSecret []byte
	logger    logging.Logger
}

func NewServer(accountsSvc *accounts.Service, messagesSvc *messages.Service, jwtSecret []byte, logger logging.Logger) *Server {
	return &Server{
		accounts:  accountsSvc,
		messages:  messagesSvc,
		jwtSecret: jwtSecret,
		logger:    logger.With("component", "http"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/signup", s.handleSignUp)
	r.Post("/auth/login", s.handleLogin)
	r.Get("/auth/email-registered", s.handleEmailRegistered)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/users/me", s.handleGetProfile)
		r.Patch("/users/me", s.handleUpdateProfile)
		r.Delete("/users/me", s.handleDeleteAccount)
		r.Put("/users/me/device-token", s.handleRegisterDeviceToken)

		r.Post("/messages", s.handleSendMessage)
		r.Post("/messages/{messageId}/comments", s.handleAddComment)
		r.Post("/messages/{messageId}/activities", s.handleNoteActivity)
		r.Post("/connections", s.handleRequestConnection)
	})

	return r
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Birthday    string `json:"birthday"`
	SchoolName  string `json:"schoolName"`
	UserType    string `json:"userType"`
}

type accountSummary struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Birthday    string `json:"birthday,omitempty"`
	SchoolName  string `json:"schoolName,omitempty"`
	UserType    string `json:"userType,omitempty"`
}

func summary(a *models.UserAccount) accountSummary {
	out := accountSummary{
		UID:         a.UID,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		PhoneNumber: a.PhoneNumber,
		SchoolName:  a.SchoolName,
		UserType:    a.UserType,
	}
	if a.Birthday != nil {
		out.Birthday = a.Birthday.UTC().Format(time.RFC3339)
	}
	return out
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	svcReq := accounts.SignUpRequest{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		SchoolName:  req.SchoolName,
		UserType:    req.UserType,
	}
	if req.Birthday != "" {
		ts, err := time.Parse(time.RFC3339, req.Birthday)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_birthday")
			return
		}
		svcReq.Birthday = &ts
	}

	account, err := s.accounts.SignUp(r.Context(), svcReq)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary(account))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

func (s *Server) handleEmailRegistered(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "missing_email")
		return
	}
	registered, err := s.accounts.EmailRegistered(r.Context(), email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"registered": registered})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.GetProfile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary(account))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.accounts.UpdateProfile(r.Context(), userIDFromContext(r.Context()), fields); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.DeleteAccount(r.Context(), userIDFromContext(r.Context())); err != nil {
		var stageErr *accounts.StageError
		if errors.As(err, &stageErr) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "deletion_failed",
				"stage": stageErr.Stage,
			})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type deviceTokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleRegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	var req deviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.accounts.RegisterDeliveryToken(r.Context(), userIDFromContext(r.Context()), req.Token); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

type sendMessageRequest struct {
	ToUIDs []string `json:"toUIDs"`
	Body   string   `json:"body"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	uid := userIDFromContext(r.Context())
	label, err := s.senderLabel(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	msg, err := s.messages.Send(r.Context(), uid, label, req.ToUIDs, req.Body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": msg.ID})
}

type addCommentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	uid := userIDFromContext(r.Context())
	label, err := s.senderLabel(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.messages.AddComment(r.Context(), chi.URLParam(r, "messageId"), uid, label, req.Text); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "commented"})
}

type noteActivityRequest struct {
	Activity string `json:"activity"`
}

func (s *Server) handleNoteActivity(w http.ResponseWriter, r *http.Request) {
	var req noteActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.messages.NoteActivity(r.Context(), chi.URLParam(r, "messageId"), req.Activity); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "noted"})
}

type connectionRequest struct {
	ToUID string `json:"toUID"`
}

func (s *Server) handleRequestConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	label, err := s.senderLabel(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.messages.RequestConnection(r.Context(), label, req.ToUID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "requested"})
}

// senderLabel is the display name stamped into notifications sent on the
// user's behalf.
func (s *Server) senderLabel(ctx context.Context, uid string) (string, error) {
	account, err := s.accounts.GetProfile(ctx, uid)
	if err != nil {
		return "", err
	}
	if account.FirstName != "" {
		return account.FirstName, nil
	}
	return account.Email, nil
}

type userIDKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get(common.AccessTokenHeaderName))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		uid, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey{}).(string)
	return uid
}

func bearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "validation_failed")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
