package notice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/noticelens/noticelens/internal/extraction"
	"github.com/noticelens/noticelens/internal/summarizing"
	"github.com/noticelens/noticelens/internal/user"
)

// maxUploadSize caps the multipart form at 20MB, enough for any scanned
// multi-page notice
const maxUploadSize = int64(20 << 20)

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// fail writes a failure envelope with a human-readable message
func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// handleSummarize accepts a notice PDF and returns its structured summary
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		fail(w, http.StatusBadRequest, "Invalid upload request.")
		return
	}

	f, header, err := r.FormFile("notice_pdf")
	if err != nil {
		fail(w, http.StatusBadRequest, "No PDF file provided.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		fail(w, http.StatusInternalServerError, "Error reading uploaded file.")
		return
	}
	if len(data) == 0 {
		fail(w, http.StatusBadRequest, "Uploaded file is empty.")
		return
	}

	summary, err := s.notices.Summarize(header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, extraction.ErrUnreadable), errors.Is(err, extraction.ErrNoText):
			fail(w, http.StatusUnprocessableEntity, "Could not read text from PDF.")
		case errors.Is(err, summarizing.ErrBadResponse):
			fail(w, http.StatusBadGateway, "AI returned an invalid format.")
		case errors.Is(err, summarizing.ErrUpstream):
			fail(w, http.StatusBadGateway, "Failed to get summary from AI.")
		default:
			fail(w, http.StatusInternalServerError, "An internal error occurred.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

// handleRegister creates a new user account
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		DOB          string `json:"dob"`
		MobileNumber string `json:"mobileNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" ||
		req.Password == "" || req.DOB == "" || req.MobileNumber == "" {
		fail(w, http.StatusBadRequest, "Missing required fields.")
		return
	}

	profile, err := s.users.Register(r.Context(), user.Registration{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
		DOB:          req.DOB,
		MobileNumber: req.MobileNumber,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			fail(w, http.StatusConflict, "This email address is already in use.")
			return
		}
		slog.Error("Error registering user", "email", req.Email, "error", err)
		fail(w, http.StatusInternalServerError, "An internal error occurred.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    profile,
	})
}

// handleLogin verifies credentials and returns the user profile
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Email == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "Missing email or password.")
		return
	}

	profile, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			fail(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		slog.Error("Error logging in user", "email", req.Email, "error", err)
		fail(w, http.StatusInternalServerError, "An internal error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    profile,
	})
}

// handleHealth reports service and database health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	database := "ok"
	if err := s.users.Ping(ctx); err != nil {
		database = "unavailable"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": database,
	})
}
