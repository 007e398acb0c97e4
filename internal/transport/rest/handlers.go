package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/metrics"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/rest/response"
)

type Handler struct {
	events *event.Service
	regs   *registration.Service
	audit  *audit.Logger
}

func NewHandler(events *event.Service, regs *registration.Service, al *audit.Logger) *Handler {
	if events == nil || regs == nil || al == nil {
		panic("rest.NewHandler: nil dependency")
	}
	return &Handler{events: events, regs: regs, audit: al}
}

func eventIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "eventID"))
	if id == "" {
		return "", domain.ErrValidationField("event_id", "event id is required")
	}
	return id, nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.Data(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListEvents returns every event, newest first, with live participant counts.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := h.events.List(r.Context())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	counts, err := h.regs.ParticipantCounts(r.Context(), evs)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	today := h.regs.Today()
	out := make([]eventResp, 0, len(evs))
	for _, e := range evs {
		out = append(out, toEventResp(e, counts[e.ID], today))
	}
	response.Data(w, http.StatusOK, out)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	ev, st, err := h.regs.Overview(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{
		"event":        toEventResp(ev, st.TotalParticipants, h.regs.Today()),
		"availability": toAvailability(st.Dates),
	})
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	ev, dates, err := h.regs.Availability(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{
		"event_id": ev.ID,
		"quota":    ev.Quota,
		"dates":    toAvailability(dates),
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	var req registerReq
	if err := decodeAndValidate(r, &req); err != nil {
		metrics.RecordRegistration(metrics.OutcomeValidation, time.Since(start))
		response.Err(w, r, err)
		return
	}

	reg, err := h.regs.Submit(r.Context(), registration.SubmitInput{
		EventID:       id,
		Participant:   req.participant(),
		SelectedDates: req.dates(),
	})
	metrics.RecordRegistration(outcomeOf(err), time.Since(start))
	if err != nil {
		response.Err(w, r, err)
		return
	}

	h.audit.RegistrationCreated(r.Context(), reg)
	response.Data(w, http.StatusCreated, toRegistrationResp(reg))
}

// CancelRegistration serves both the participant route and the admin route.
func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	email := strings.TrimSpace(chi.URLParam(r, "email"))
	if email == "" {
		response.Err(w, r, domain.ErrValidationField("email", "email is required"))
		return
	}

	reg, err := h.regs.Cancel(r.Context(), id, email)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	metrics.RecordCancellation()
	h.audit.RegistrationCanceled(r.Context(), reg, actorID(r.Context()))
	response.Data(w, http.StatusOK, toRegistrationResp(reg))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAdmitted
	case domain.IsCapacity(err):
		return metrics.OutcomeCapacity
	case domain.IsConflict(err):
		return metrics.OutcomeDuplicate
	case domain.IsValidation(err):
		return metrics.OutcomeValidation
	case domain.IsNotFound(err):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
