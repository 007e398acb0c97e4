package rest

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/rest/response"
)

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventReq
	if err := decodeAndValidate(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}

	ev, err := h.events.Create(r.Context(), req.toInput())
	if err != nil {
		response.Err(w, r, err)
		return
	}

	h.audit.EventCreated(r.Context(), ev, actorID(r.Context()))
	response.Data(w, http.StatusCreated, toEventResp(ev, 0, h.regs.Today()))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	var req updateEventReq
	if err := decodeAndValidate(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}

	ev, err := h.events.Update(r.Context(), id, req.toPatch())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	st, err := h.regs.Stats(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	h.audit.EventUpdated(r.Context(), ev, actorID(r.Context()))
	response.Data(w, http.StatusOK, toEventResp(ev, st.TotalParticipants, h.regs.Today()))
}

// DeleteEvent removes the event and every registration under it.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	removed, err := h.events.Delete(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	h.audit.EventDeleted(r.Context(), id, removed, actorID(r.Context()))
	response.Data(w, http.StatusOK, map[string]any{
		"event_id":              id,
		"removed_registrations": removed,
	})
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	regs, err := h.regs.Registrations(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toRegistrations(regs))
}

// ParticipantsOnDate answers GET .../participants?date=YYYY-MM-DD.
func (h *Handler) ParticipantsOnDate(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		response.Err(w, r, domain.ErrValidationField("date", "date is required"))
		return
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		response.Err(w, r, domain.ErrValidationField("date", "date must be a date in YYYY-MM-DD format"))
		return
	}

	regs, err := h.regs.ParticipantsOnDate(r.Context(), id, date)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{
		"date":         date.String(),
		"count":        len(regs),
		"participants": toRegistrations(regs),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	st, err := h.regs.Stats(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toStatsResp(st))
}

// Roster serves the per-date participant list as JSON, or as a CSV download
// with ?format=csv.
func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	ev, sections, err := h.regs.Roster(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	if !strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		response.Data(w, http.StatusOK, map[string]any{
			"event_id": ev.ID,
			"title":    ev.Title,
			"sections": toRoster(sections),
		})
		return
	}

	// buffer so a write failure can still become a JSON error
	var buf bytes.Buffer
	if err := writeRosterCSV(&buf, sections); err != nil {
		response.Err(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rosterFilename(ev.Title)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.WithCtx(r.Context()).Warn().Err(err).Str("event_id", ev.ID).Msg("roster write failed")
	}
}
