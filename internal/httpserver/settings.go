package httpserver

import (
	"net/http"

	"github.com/bubelovv/team-tracker/internal/domain"
)

type trackerRequest struct {
	BaseURL    string `json:"base_url"`
	Username   string `json:"username"`
	APIKey     string `json:"api_key"`
	ProjectKey string `json:"project_key"`
}

type emailRequest struct {
	SMTPHost   string   `json:"smtp_host"`
	SMTPPort   int      `json:"smtp_port"`
	From       string   `json:"from"`
	Recipients []string `json:"recipients"`
	Enabled    bool     `json:"enabled"`
}

// mapTracker reports whether an API key is stored without echoing it back.
func mapTracker(cfg domain.TrackerConfig) map[string]any {
	resp := map[string]any{
		"base_url":    cfg.BaseURL,
		"username":    cfg.Username,
		"project_key": cfg.ProjectKey,
		"api_key_set": cfg.APIKey != "",
		"configured":  cfg.Configured(),
	}
	if cfg.LastImportAt != nil {
		resp["last_import_at"] = formatTime(*cfg.LastImportAt)
	}
	return resp
}

func (h *handler) handleIntegrationsGet(w http.ResponseWriter, _ *http.Request) {
	in := h.svc.Integrations()
	writeJSON(w, http.StatusOK, map[string]any{
		"tracker": mapTracker(in.Tracker),
		"email":   in.Email,
	})
}

func (h *handler) handleTrackerUpdate(w http.ResponseWriter, r *http.Request) {
	var req trackerRequest
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	cfg, err := h.svc.UpdateTrackerConfig(r.Context(), domain.TrackerConfig{
		BaseURL:    req.BaseURL,
		Username:   req.Username,
		APIKey:     req.APIKey,
		ProjectKey: req.ProjectKey,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tracker": mapTracker(cfg)})
}

func (h *handler) handleTrackerTest(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.TestTrackerConnection(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connected": true})
}

func (h *handler) handleTrackerImport(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ImportTasks(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) handleEmailUpdate(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	cfg, err := h.svc.UpdateEmailConfig(r.Context(), domain.EmailConfig{
		SMTPHost:   req.SMTPHost,
		SMTPPort:   req.SMTPPort,
		From:       req.From,
		Recipients: req.Recipients,
		Enabled:    req.Enabled,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"email": cfg})
}

func (h *handler) handleSettingsGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"settings": h.svc.Settings()})
}

func (h *handler) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.Settings
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	settings, err := h.svc.UpdateSettings(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}
