package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"promo-series/internal/domain"
	"promo-series/internal/usecase/export"
	"promo-series/internal/usecase/series"
)

const (
	maxBodyBytes  = 1 << 20
	statusTimeout = 15 * time.Second
	headerUserID  = "X-User-ID"
	headerTier    = "X-User-Tier"
	headerNotice  = "X-Notice"
)

// AvailabilityChecker проверяет доступность ИИ.
type AvailabilityChecker interface {
	Available(ctx context.Context) bool
}

// UsageRecorder учитывает готовую серию.
type UsageRecorder interface {
	RecordSeries(ctx context.Context, userID string, result domain.SeriesResult)
}

// Deps зависимости обработчиков. Queue, Repo, Usage и AI могут быть nil.
type Deps struct {
	Series    domain.SeriesGenerator
	AI        AvailabilityChecker
	Queue     domain.SeriesQueue
	Repo      domain.SeriesRepo
	Usage     UsageRecorder
	Formatter *export.Formatter
	Logger    zerolog.Logger
}

// Handler HTTP-обработчики генерации и экспорта серий.
type Handler struct {
	deps  Deps
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewHandler создаёт обработчики.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:  deps,
		log:   deps.Logger.With().Str("component", "httpapi").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Register подключает маршруты к роутеру.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/series", h.generateSeries)
		r.Post("/series/jobs", h.enqueueSeries)
		r.Get("/series/{id}/emails", h.listSeriesEmails)
		r.Get("/series/{id}/export", h.exportSeries)
		r.Post("/emails/export", h.exportEmail)
		r.Get("/ai/status", h.aiStatus)
	})
}

type seriesRequest struct {
	UserID     string                   `json:"user_id"`
	SeriesName string                   `json:"series_name"`
	Benefits   []string                 `json:"benefits"`
	Options    domain.GenerationOptions `json:"options"`
	Save       bool                     `json:"save"`
}

type seriesResponse struct {
	SeriesID int64                   `json:"series_id,omitempty"`
	Emails   []domain.GeneratedEmail `json:"emails"`
	Usage    domain.UsageSummary     `json:"usage"`
	Outcome  domain.SeriesOutcome    `json:"outcome"`
	Notice   series.Notice           `json:"notice"`
}

func (h *Handler) generateSeries(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSeriesRequest(w, r)
	if !ok {
		return
	}
	if h.deps.Series == nil {
		writeNotice(w, http.StatusServiceUnavailable, series.NoticeForError(domain.ErrPipelineUnavailable))
		return
	}

	result, err := h.deps.Series.GenerateSeries(r.Context(), req.Benefits, req.Options)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case domain.IsValidation(err):
			status = http.StatusBadRequest
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		default:
			h.log.Error().Err(err).Str("user_id", req.UserID).Msg("series generation failed")
		}
		writeNotice(w, status, series.NoticeForError(err))
		return
	}

	resp := seriesResponse{
		Emails:  result.Emails,
		Usage:   result.Usage,
		Outcome: result.Outcome,
		Notice:  series.NoticeFor(result),
	}
	if req.UserID != "" && h.deps.Usage != nil {
		h.deps.Usage.RecordSeries(r.Context(), req.UserID, result)
	}
	if req.Save && req.UserID != "" && h.deps.Repo != nil {
		id, err := h.deps.Repo.SaveSeries(r.Context(), req.UserID, req.SeriesName, req.Options, result)
		if err != nil {
			// серия уже сгенерирована, отдаём её без идентификатора
			h.log.Error().Err(err).Str("user_id", req.UserID).Msg("save series failed")
		} else {
			resp.SeriesID = id
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) enqueueSeries(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSeriesRequest(w, r)
	if !ok {
		return
	}
	if h.deps.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "job queue is not configured")
		return
	}
	if !hasBenefit(req.Benefits) {
		writeNotice(w, http.StatusBadRequest, series.NoticeForError(domain.ErrNoBenefits))
		return
	}
	job := domain.SeriesJob{
		ID:          h.newID(),
		UserID:      req.UserID,
		SeriesName:  req.SeriesName,
		Benefits:    req.Benefits,
		Options:     req.Options,
		RequestedAt: h.now(),
	}
	if err := h.deps.Queue.Enqueue(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("enqueue series job failed")
		writeError(w, http.StatusServiceUnavailable, "failed to enqueue job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "status": "queued"})
}

func (h *Handler) listSeriesEmails(w http.ResponseWriter, r *http.Request) {
	id, emails, ok := h.loadSeries(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"series_id": id, "emails": emails})
}

// exportSeries отдаёт всю сохранённую серию одним файлом.
func (h *Handler) exportSeries(w http.ResponseWriter, r *http.Request) {
	if h.deps.Formatter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}
	target, ok := parseTarget(w, r.URL.Query().Get("format"))
	if !ok {
		return
	}
	id, emails, ok := h.loadSeries(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	out, err := h.deps.Formatter.FormatSeries(name, emails, target)
	if err != nil {
		if errors.Is(err, export.ErrEmptySeries) {
			writeError(w, http.StatusNotFound, "series has no emails")
			return
		}
		h.log.Error().Err(err).Int64("series_id", id).Str("format", string(target)).Msg("series export failed")
		writeError(w, http.StatusInternalServerError, "failed to export series")
		return
	}
	if name == "" {
		name = fmt.Sprintf("series %d", id)
	}
	w.Header().Set("Content-Type", export.ContentType(target))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SeriesFileName(name, target)))
	w.Header().Set(headerNotice, fmt.Sprintf("Series exported as %s!", strings.ToUpper(string(target))))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func (h *Handler) loadSeries(w http.ResponseWriter, r *http.Request) (int64, []domain.GeneratedEmail, bool) {
	if h.deps.Repo == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return 0, nil, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid series id")
		return 0, nil, false
	}
	emails, err := h.deps.Repo.ListSeriesEmails(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSeriesNotFound) {
			writeError(w, http.StatusNotFound, "series not found")
			return 0, nil, false
		}
		h.log.Error().Err(err).Int64("series_id", id).Msg("list series emails failed")
		writeError(w, http.StatusInternalServerError, "failed to load series")
		return 0, nil, false
	}
	return id, emails, true
}

func (h *Handler) exportEmail(w http.ResponseWriter, r *http.Request) {
	if h.deps.Formatter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}
	target, ok := parseTarget(w, r.URL.Query().Get("format"))
	if !ok {
		return
	}
	mode := export.ParseMode(r.URL.Query().Get("mode"))

	var email domain.GeneratedEmail
	if err := decodeJSON(w, r, &email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(email.Subject) == "" && strings.TrimSpace(email.Body) == "" {
		writeError(w, http.StatusBadRequest, "email is empty")
		return
	}
	if email.UserTier == "" {
		email.UserTier = r.Header.Get(headerTier)
	}

	out, err := h.deps.Formatter.Format(email, target, mode)
	if err != nil {
		h.log.Error().Err(err).Str("format", string(target)).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "failed to export email")
		return
	}
	label := strings.ToUpper(string(target))
	if mode == export.ModeFile {
		w.Header().Set("Content-Type", export.ContentType(target))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(email, target)))
		w.Header().Set(headerNotice, fmt.Sprintf("Email exported as %s!", label))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content": out,
		"format":  target,
		"notice":  series.Notice{Level: series.NoticeSuccess, Message: fmt.Sprintf("Email copied to clipboard as %s!", label)},
	})
}

func (h *Handler) aiStatus(w http.ResponseWriter, r *http.Request) {
	available := false
	if h.deps.AI != nil {
		ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
		defer cancel()
		available = h.deps.AI.Available(ctx)
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": available, "checked_at": h.now()})
}

func (h *Handler) decodeSeriesRequest(w http.ResponseWriter, r *http.Request) (seriesRequest, bool) {
	var req seriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.UserID == "" {
		req.UserID = strings.TrimSpace(r.Header.Get(headerUserID))
	}
	if req.Options.UserTier == "" {
		req.Options.UserTier = strings.TrimSpace(r.Header.Get(headerTier))
	}
	return req, true
}

func parseTarget(w http.ResponseWriter, raw string) (export.Target, bool) {
	target, err := export.ParseTarget(raw)
	if err != nil {
		if errors.Is(err, export.ErrPDFNotAvailable) {
			writeNotice(w, http.StatusNotImplemented, series.Notice{Level: series.NoticeWarning, Message: "PDF export will be available in a future update"})
			return "", false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return target, true
}

func hasBenefit(benefits []string) bool {
	for _, b := range benefits {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotice(w http.ResponseWriter, status int, n series.Notice) {
	writeJSON(w, status, map[string]any{"error": n.Message, "notice": n})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
