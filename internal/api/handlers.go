package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"mailgate/internal/authflow"
	"mailgate/internal/credentials"
	"mailgate/internal/provider"
	"mailgate/internal/secrets"
	"mailgate/internal/validation"
	"mailgate/pkg/models"
)

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "mailgate",
	})
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := validation.ValidateUserID(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	authURL, err := s.flow.AuthorizationURL(req.UserID, req.RedirectURI, req.Scopes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AuthorizeResponse{
		AuthorizationURL: authURL,
		State:            req.UserID,
	})
}

func (s *Server) handleCallbackGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		writeError(w, http.StatusBadRequest, "authorization denied: "+errParam)
		return
	}

	s.completeAuthorization(w, r, CallbackRequest{
		Code:  q.Get("code"),
		State: q.Get("state"),
	})
}

func (s *Server) handleCallbackPost(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	s.completeAuthorization(w, r, req)
}

func (s *Server) completeAuthorization(w http.ResponseWriter, r *http.Request, req CallbackRequest) {
	if req.Code == "" || req.State == "" {
		writeError(w, http.StatusBadRequest, "code and state are required")
		return
	}
	if err := validation.ValidateUserID(req.State); err != nil {
		writeError(w, http.StatusBadRequest, "invalid state: "+err.Error())
		return
	}

	rec, err := s.flow.CompleteAuthorization(r.Context(), req.Code, req.State, req.RedirectURI)
	if err != nil {
		var exchErr *authflow.ExchangeError
		if errors.As(err, &exchErr) && !exchErr.Retryable() {
			writeError(w, http.StatusBadRequest, exchErr.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CallbackResponse{
		Status:       "connected",
		UserID:       rec.SubjectID,
		EmailAddress: rec.AccountIdentity,
	})
}

// handleUserSend delivers through the requesting user's own Gmail grant.
func (s *Server) handleUserSend(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if err := validation.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, ok := decodeSendRequest(w, r)
	if !ok {
		return
	}

	msg := req.Message(userID)
	res := s.gmail.Send(r.Context(), msg)
	s.recorder.Record(r.Context(), msg, res)

	writeJSON(w, sendStatus(res), res)
}

// handleSend delivers through the resolved shared provider.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSendRequest(w, r)
	if !ok {
		return
	}

	resolved, err := s.resolver.Resolve(req.Provider)
	if err != nil {
		var ncErr *provider.NotConfiguredError
		if errors.As(err, &ncErr) {
			writeError(w, http.StatusServiceUnavailable, ncErr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg := req.Message("")
	res := resolved.Backend.Send(r.Context(), msg)
	s.recorder.Record(r.Context(), msg, res)

	writeJSON(w, sendStatus(res), res)
}

func decodeSendRequest(w http.ResponseWriter, r *http.Request) (*SendRequest, bool) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

// sendStatus maps a send outcome onto an HTTP status by error kind rather
// than by message text.
func sendStatus(res *models.SendResult) int {
	if res.Succeeded() {
		return http.StatusOK
	}
	switch res.ErrorKind {
	case models.ErrorKindNotConnected:
		return http.StatusForbidden
	case models.ErrorKindConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if err := validation.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile := &models.UserProfile{UserID: userID}

	rec, err := s.creds.Get(r.Context(), userID, credentials.ProviderGmail)
	switch {
	case err == nil:
		profile.EmailAddress = rec.AccountIdentity
		profile.GmailConnected = rec.Connected()
		if !rec.ConnectedAt.IsZero() {
			t := rec.ConnectedAt
			profile.ConnectedAt = &t
		}
	case errors.Is(err, credentials.ErrNotFound):
		// Not connected; the zero profile says so.
	case secrets.IsUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, "credential store unavailable")
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if err := validation.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.creds.Delete(r.Context(), userID, credentials.ProviderGmail); err != nil {
		if secrets.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "credential store unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.refresher.Invalidate(r.Context(), userID, credentials.ProviderGmail)

	writeJSON(w, http.StatusOK, DisconnectResponse{Status: "disconnected", UserID: userID})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Available: s.resolver.ListAvailable(),
		Preferred: s.preferred,
	})
}

func (s *Server) handleUserReport(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if err := validation.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	days := queryInt(r, "days", 30)
	limit := queryInt(r, "limit", 10)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	report, err := s.recorder.UserReport(r.Context(), userID, start, end, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	summary, err := s.recorder.PlatformSummary(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
