package pulse

import (
	"encoding/json"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

// Handler serves target status as JSON, SVG badges and an HTML index.
type Handler struct {
	store  *StatusStore
	logger *zap.Logger
}

// NewHandler creates a Handler reading from store.
func NewHandler(store *StatusStore, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers the status and badge endpoints on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/status", h.handleListStatus)
	mux.HandleFunc("GET /api/v1/status/{alias}", h.handleTargetStatus)
	mux.HandleFunc("GET /badge/{alias}", h.handleBadge)
	mux.HandleFunc("GET /badge/{alias}/simple", h.handleSimpleBadge)
	mux.HandleFunc("GET /badges", h.handleBadgeIndex)
}

// StatusSummary is the response of GET /api/v1/status.
type StatusSummary struct {
	Total     int            `json:"total"`
	Healthy   int            `json:"healthy"`
	Unhealthy int            `json:"unhealthy"`
	Targets   []TargetStatus `json:"targets"`
}

// handleListStatus returns every target without history.
//
//	@Summary		List target status
//	@Description	Returns every monitored target in slot order, without sample history.
//	@Tags			status
//	@Produce		json
//	@Success		200 {object} StatusSummary
//	@Router			/api/v1/status [get]
func (h *Handler) handleListStatus(w http.ResponseWriter, _ *http.Request) {
	targets := h.store.Snapshot()
	summary := StatusSummary{Total: len(targets), Targets: targets}
	for i := range targets {
		if targets[i].Healthy {
			summary.Healthy++
		} else {
			summary.Unhealthy++
		}
	}
	pulseWriteJSON(w, http.StatusOK, summary)
}

// handleTargetStatus returns one target including its history.
//
//	@Summary		Get target status
//	@Description	Returns one target, including its retained sample history. The first target with the alias wins.
//	@Tags			status
//	@Produce		json
//	@Param			alias path string true "Target alias"
//	@Success		200 {object} TargetStatus
//	@Failure		404 {object} map[string]any
//	@Router			/api/v1/status/{alias} [get]
func (h *Handler) handleTargetStatus(w http.ResponseWriter, r *http.Request) {
	alias := r.PathValue("alias")
	ts, ok := h.store.Lookup(alias)
	if !ok {
		pulseWriteError(w, http.StatusNotFound, "no target with alias "+alias)
		return
	}
	pulseWriteJSON(w, http.StatusOK, ts)
}

// handleBadge renders the detailed status badge.
//
//	@Summary		Detailed status badge
//	@Description	SVG badge with UP/DOWN plus last response time and uptime. Unknown aliases render a grey UNKNOWN badge.
//	@Tags			badges
//	@Produce		image/svg+xml
//	@Param			alias path string true "Target alias"
//	@Success		200 {string} string "SVG badge"
//	@Failure		404 {string} string "UNKNOWN badge"
//	@Router			/badge/{alias} [get]
func (h *Handler) handleBadge(w http.ResponseWriter, r *http.Request) {
	h.writeBadge(w, r.PathValue("alias"), true)
}

// handleSimpleBadge renders the single-line status badge.
//
//	@Summary		Simple status badge
//	@Tags			badges
//	@Produce		image/svg+xml
//	@Param			alias path string true "Target alias"
//	@Success		200 {string} string "SVG badge"
//	@Failure		404 {string} string "UNKNOWN badge"
//	@Router			/badge/{alias}/simple [get]
func (h *Handler) handleSimpleBadge(w http.ResponseWriter, r *http.Request) {
	h.writeBadge(w, r.PathValue("alias"), false)
}

func (h *Handler) writeBadge(w http.ResponseWriter, alias string, detailed bool) {
	ts, ok := h.store.Lookup(alias)
	badge, status := UnknownBadge(alias), http.StatusNotFound
	if ok {
		badge, status = StatusBadge(ts, detailed), http.StatusOK
	}
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(badge.SVG())); err != nil {
		h.logger.Debug("badge write failed", zap.String("alias", alias), zap.Error(err))
	}
}

var badgeIndex = template.Must(template.New("badges").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Uptime Monitor Badges</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.target { margin-bottom: 1.5em; padding-bottom: 1em; border-bottom: 1px solid #eee; }
.target img { margin-right: 1em; vertical-align: middle; }
code { background: #f4f4f4; padding: 2px 4px; }
</style>
</head>
<body>
<h1>Uptime Monitor Badges</h1>
{{- range .}}
<div class="target">
<h2>{{.Alias}}</h2>
<p>
<img src="/badge/{{.Alias}}" alt="{{.Alias}} status">
<img src="/badge/{{.Alias}}/simple" alt="{{.Alias}} simple status">
</p>
<p>Detailed: <code>/badge/{{.Alias}}</code></p>
<p>Simple: <code>/badge/{{.Alias}}/simple</code></p>
<p>Status: {{if .Healthy}}UP{{else}}DOWN{{end}} &middot; Monitor: {{.MonitorURL}}</p>
</div>
{{- else}}
<p>No targets configured.</p>
{{- end}}
</body>
</html>
`))

// handleBadgeIndex renders an HTML page listing every target's badges.
//
//	@Summary		Badge index
//	@Tags			badges
//	@Produce		html
//	@Success		200 {string} string "HTML page"
//	@Router			/badges [get]
func (h *Handler) handleBadgeIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := badgeIndex.Execute(w, h.store.Snapshot()); err != nil {
		h.logger.Warn("failed to render badge index", zap.Error(err))
	}
}

func pulseWriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func pulseWriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://uptimewatch.dev/problems/" + http.StatusText(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
