package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/bubelovv/team-tracker/internal/service"
	"github.com/bubelovv/team-tracker/internal/view"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type handler struct {
	svc    Service
	logger *zap.Logger
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	sess, err := h.svc.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"session": sess})
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleSession(w http.ResponseWriter, _ *http.Request) {
	sess, ok := h.svc.CurrentSession()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"session": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (h *handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	feed, err := intQuery(r, "feed", view.DefaultFeedSize)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.BuildDashboard(h.svc.Snapshot(), h.svc.Now(), feed))
}

func (h *handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": h.svc.ActivityFeed(limit)})
}

type memberRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Team     string `json:"team"`
	Password string `json:"password"`
}

func (m memberRequest) input() service.MemberInput {
	return service.MemberInput{
		Name:     m.Name,
		Email:    m.Email,
		Role:     m.Role,
		Team:     m.Team,
		Password: m.Password,
	}
}

func (h *handler) handleMembersList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, view.BuildTeamPage(h.svc.Snapshot()))
}

func (h *handler) handleMemberAdd(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	member, err := h.svc.AddMember(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"member": mapMember(member)})
}

func (h *handler) handleMemberUpdate(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	member, err := h.svc.UpdateMember(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"member": mapMember(member)})
}

func (h *handler) handleMemberDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteMember(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleTeamsList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"teams": h.svc.ListTeams()})
}

func (h *handler) handleTeamAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	team, err := h.svc.AddTeam(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"team": team})
}

func (h *handler) handleTeamDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteTeam(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	status, code := mapServiceError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("service error", zap.Error(err))
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": err.Error(),
				"fields":  verr.Fields,
			},
		})
		return
	}
	writeError(w, status, code, err.Error())
}

func mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusBadRequest, "NOT_CONFIGURED"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrRetroNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_TAKEN"
	case errors.Is(err, domain.ErrSelfDelete):
		return http.StatusConflict, "SELF_DELETE"
	case errors.Is(err, domain.ErrTeamExists):
		return http.StatusConflict, "TEAM_EXISTS"
	case errors.Is(err, domain.ErrTeamNotEmpty):
		return http.StatusConflict, "TEAM_NOT_EMPTY"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// mapMember never exposes the password hash.
func mapMember(m domain.Member) map[string]any {
	return map[string]any{
		"id":        m.ID,
		"name":      m.Name,
		"email":     m.Email,
		"role":      m.Role,
		"team":      m.Team,
		"joined_at": formatTime(m.JoinedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func decodeJSON(ctx context.Context, body io.ReadCloser, dst any) error {
	defer body.Close()
	if err := ctx.Err(); err != nil {
		return err
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra JSON input")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
}
