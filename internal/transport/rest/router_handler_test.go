package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/memory"
	redisinfra "github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/security"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/rest/response"
)

type fakeVerifier struct {
	claims security.TokenClaims
	err    error
}

func (f fakeVerifier) VerifyAccessToken(token string) (security.TokenClaims, error) {
	return f.claims, f.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testClock = fixedClock{t: time.Date(2025, 2, 1, 3, 0, 0, 0, time.UTC)}

var adminVerifier = fakeVerifier{claims: security.TokenClaims{UserID: "admin-1", Role: security.RoleAdmin}}

type testEnv struct {
	store  *memory.Store
	router http.Handler
}

func newEnv(t *testing.T, deps RouterDeps) *testEnv {
	t.Helper()
	st := memory.New()
	evSvc := event.New(st, testClock, nil)
	regSvc := registration.NewService(st, testClock)

	deps.Handler = NewHandler(evSvc, regSvc, audit.New(zerolog.Nop()))
	if deps.Verifier == nil {
		deps.Verifier = adminVerifier
	}
	return &testEnv{store: st, router: NewRouter(deps)}
}

func (e *testEnv) seed(t *testing.T, id string, quota int) *domain.Event {
	t.Helper()
	ev := &domain.Event{
		ID:       id,
		Title:    "Pelatihan Menjahit",
		Location: "Samarinda",
		Quota:    quota,
		Schedule: domain.SelectedSchedule(
			domain.Session{Date: domain.MustParseDate("2025-02-10"), StartTime: "09:00", EndTime: "11:00"},
			domain.Session{Date: domain.MustParseDate("2025-02-12"), StartTime: "13:00", EndTime: "15:00"},
		),
		CreatedAt: testClock.t,
		UpdatedAt: testClock.t,
	}
	require.NoError(t, e.store.WithTx(context.Background(), func(tx event.TxEventRepo) error {
		return tx.Insert(context.Background(), ev)
	}))
	return ev
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) response.ErrorPayload {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.Error
}

func registerBody(email string, dates ...string) map[string]any {
	return map[string]any{
		"name":           "Siti Aminah",
		"email":          email,
		"phone":          "081234567890",
		"domisili":       "Samarinda",
		"selected_dates": dates,
	}
}

func TestHealthz_EchoesRequestID(t *testing.T) {
	env := newEnv(t, RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "rid-123")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "rid-123", rr.Header().Get(requestIDHeader))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestRegister_AdmitsAndUpdatesAvailability(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 2)

	rr := env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations",
		registerBody("Siti@Example.com", "2025-02-12", "2025-02-10"), "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var reg registrationResp
	decodeData(t, rr, &reg)
	assert.Equal(t, "siti@example.com", reg.Email)
	assert.Equal(t, []string{"2025-02-12", "2025-02-10"}, reg.SelectedDates)

	rr = env.do(t, http.MethodGet, "/api/v1/events/evt-1/availability", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var avail struct {
		Quota int                 `json:"quota"`
		Dates []availableDateResp `json:"dates"`
	}
	decodeData(t, rr, &avail)
	assert.Equal(t, 2, avail.Quota)
	require.Len(t, avail.Dates, 2)
	for _, d := range avail.Dates {
		assert.Equal(t, 1, d.Booked)
		assert.Equal(t, 1, d.Remaining)
	}
}

func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		event    string
		status   int
		code     string
		metaKey  string
		metaWant string
	}{
		{
			name:     "missing dates",
			body:     registerBody("a@x.id"),
			event:    "evt-1",
			status:   http.StatusBadRequest,
			code:     "validation_error",
			metaKey:  "field",
			metaWant: "selected_dates",
		},
		{
			name:     "bad email",
			body:     registerBody("not-an-email", "2025-02-10"),
			event:    "evt-1",
			status:   http.StatusBadRequest,
			code:     "validation_error",
			metaKey:  "field",
			metaWant: "email",
		},
		{
			name:     "malformed date",
			body:     registerBody("a@x.id", "10/02/2025"),
			event:    "evt-1",
			status:   http.StatusBadRequest,
			code:     "validation_error",
			metaKey:  "field",
			metaWant: "selected_dates[0]",
		},
		{
			name:     "date outside schedule",
			body:     registerBody("a@x.id", "2025-02-11"),
			event:    "evt-1",
			status:   http.StatusBadRequest,
			code:     "validation_error",
			metaKey:  "date",
			metaWant: "2025-02-11",
		},
		{
			name:   "unknown event",
			body:   registerBody("a@x.id", "2025-02-10"),
			event:  "missing",
			status: http.StatusNotFound,
			code:   "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, RouterDeps{})
			env.seed(t, "evt-1", 2)

			rr := env.do(t, http.MethodPost, "/api/v1/events/"+tt.event+"/registrations", tt.body, "")
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			e := decodeErr(t, rr)
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.RequestID)
			if tt.metaKey != "" {
				assert.Equal(t, tt.metaWant, e.Meta[tt.metaKey])
			}
		})
	}
}

func TestRegister_InvalidJSON(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 2)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/evt-1/registrations", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "body", decodeErr(t, rr).Meta["field"])
}

func TestRegister_DuplicateAndCapacity(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 1)

	rr := env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("a@x.id", "2025-02-10"), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("A@X.id", "2025-02-12"), "")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "conflict", decodeErr(t, rr).Code)

	rr = env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("b@x.id", "2025-02-12", "2025-02-10"), "")
	require.Equal(t, http.StatusConflict, rr.Code)
	e := decodeErr(t, rr)
	assert.Equal(t, "capacity_exceeded", e.Code)
	assert.Equal(t, "2025-02-10", e.Meta["dates"])

	// the rejected request booked nothing on its other date
	regs, err := env.store.ListRegistrations(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestCancelRegistration(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 1)

	rr := env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("a@x.id", "2025-02-10"), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/v1/events/evt-1/registrations/A@x.id", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodDelete, "/api/v1/events/evt-1/registrations/a@x.id", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// the freed slot is available again
	rr = env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("b@x.id", "2025-02-10"), "")
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestGetEvent_IncludesAvailability(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 3)
	env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("a@x.id", "2025-02-10"), "")

	rr := env.do(t, http.MethodGet, "/api/v1/events/evt-1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out struct {
		Event        eventResp           `json:"event"`
		Availability []availableDateResp `json:"availability"`
	}
	decodeData(t, rr, &out)
	assert.Equal(t, "evt-1", out.Event.ID)
	assert.Equal(t, 1, out.Event.ParticipantCount)
	assert.Equal(t, 6, out.Event.TotalCapacity)
	assert.Equal(t, domain.PhaseUpcoming, out.Event.Phase)
	require.NotNil(t, out.Event.DaysUntilStart)
	assert.Equal(t, 9, *out.Event.DaysUntilStart)
	require.Len(t, out.Availability, 2)
	assert.Equal(t, 2, out.Availability[0].Remaining)
}

func TestListEvents(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 3)
	env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("a@x.id", "2025-02-10", "2025-02-12"), "")

	rr := env.do(t, http.MethodGet, "/api/v1/events", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var out []eventResp
	decodeData(t, rr, &out)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ParticipantCount)
	assert.Equal(t, "2 sessions", out[0].ScheduleSummary)
}

func TestAdmin_RequiresAdminToken(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		env := newEnv(t, RouterDeps{})
		rr := env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/stats", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "unauthorized", decodeErr(t, rr).Code)
	})

	t.Run("bad token", func(t *testing.T) {
		env := newEnv(t, RouterDeps{Verifier: fakeVerifier{err: errors.New("expired")}})
		rr := env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/stats", nil, "tok")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("not admin", func(t *testing.T) {
		env := newEnv(t, RouterDeps{Verifier: fakeVerifier{claims: security.TokenClaims{UserID: "u1", Role: "user"}}})
		rr := env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/stats", nil, "tok")
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "forbidden", decodeErr(t, rr).Code)
	})
}

func TestAdmin_EventLifecycle(t *testing.T) {
	env := newEnv(t, RouterDeps{})

	rr := env.do(t, http.MethodPost, "/api/v1/admin/events", map[string]any{
		"title":    "  Workshop UMKM ",
		"location": "Balikpapan",
		"quota":    2,
		"schedule": map[string]any{
			"type":       "range",
			"start_date": "2025-03-01",
			"end_date":   "2025-03-03",
			"start_time": "08:00",
			"end_time":   "12:00",
		},
		"benefits": []string{"sertifikat"},
	}, "tok")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created eventResp
	decodeData(t, rr, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Workshop UMKM", created.Title)
	assert.Equal(t, 6, created.TotalCapacity)

	rr = env.do(t, http.MethodPatch, "/api/v1/admin/events/"+created.ID, map[string]any{"quota": 5}, "tok")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated eventResp
	decodeData(t, rr, &updated)
	assert.Equal(t, 5, updated.Quota)
	assert.Equal(t, "Workshop UMKM", updated.Title)

	rr = env.do(t, http.MethodPost, "/api/v1/events/"+created.ID+"/registrations", registerBody("a@x.id", "2025-03-02"), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/v1/admin/events/"+created.ID, nil, "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var del struct {
		Removed int `json:"removed_registrations"`
	}
	decodeData(t, rr, &del)
	assert.Equal(t, 1, del.Removed)

	rr = env.do(t, http.MethodGet, "/api/v1/events/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdmin_CreateEventValidation(t *testing.T) {
	env := newEnv(t, RouterDeps{})

	rr := env.do(t, http.MethodPost, "/api/v1/admin/events", map[string]any{
		"title":    "Workshop",
		"location": "Balikpapan",
		"quota":    2,
		"schedule": map[string]any{
			"type": "selected",
			"sessions": []map[string]any{
				{"date": "2025-03-01", "start_time": "8am", "end_time": "12:00"},
			},
		},
	}, "tok")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "schedule.sessions[0].start_time", decodeErr(t, rr).Meta["field"])
}

func TestAdmin_ParticipantsOnDate(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 3)
	env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("a@x.id", "2025-02-10"), "")
	env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("b@x.id", "2025-02-12"), "")

	rr := env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/participants?date=2025-02-10", nil, "tok")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Count        int                `json:"count"`
		Participants []registrationResp `json:"participants"`
	}
	decodeData(t, rr, &out)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "a@x.id", out.Participants[0].Email)

	for _, q := range []string{"", "?date=", "?date=tomorrow"} {
		rr = env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/participants"+q, nil, "tok")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		assert.Equal(t, "date", decodeErr(t, rr).Meta["field"], q)
	}
}

func TestAdmin_StatsAndRegistrations(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 2)
	env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("a@x.id", "2025-02-10", "2025-02-12"), "")
	env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("b@x.id", "2025-02-10"), "")

	rr := env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/stats", nil, "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var st statsResp
	decodeData(t, rr, &st)
	assert.Equal(t, 2, st.TotalParticipants)
	assert.Equal(t, 3, st.BookedSlots)
	assert.Equal(t, 4, st.TotalCapacity)

	rr = env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/registrations", nil, "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var regs []registrationResp
	decodeData(t, rr, &regs)
	assert.Len(t, regs, 2)
}

func TestAdmin_RosterCSV(t *testing.T) {
	env := newEnv(t, RouterDeps{})
	env.seed(t, "evt-1", 3)
	body := registerBody("a@x.id", "2025-02-10")
	body["domisili"] = ""
	env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", body, "")

	rr := env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/roster?format=csv", nil, "tok")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "participants_Pelatihan_Menjahit.csv")

	want := "Tanggal,2025-02-10\n" +
		"No,Nama Partisipan,Email,Telepon,Domisili\n" +
		"1,Siti Aminah,a@x.id,081234567890,-\n" +
		"\n" +
		"Tanggal,2025-02-12\n" +
		"No,Nama Partisipan,Email,Telepon,Domisili\n" +
		"Belum ada partisipan terdaftar\n"
	assert.Equal(t, want, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/v1/admin/events/evt-1/roster", nil, "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Sections []rosterSectionResp `json:"sections"`
	}
	decodeData(t, rr, &out)
	require.Len(t, out.Sections, 2)
	assert.Len(t, out.Sections[0].Participants, 1)
	assert.True(t, out.Sections[1].Empty)
}

func TestRateLimit_RegisterRoute(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisinfra.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	env := newEnv(t, RouterDeps{
		Limiter:         cache,
		RLEnabled:       true,
		RLLimit:         100,
		RLWindow:        time.Minute,
		RLRegisterLimit: 1,
	})
	env.seed(t, "evt-1", 5)

	rr := env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("a@x.id", "2025-02-10"), "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = env.do(t, http.MethodPost, "/api/v1/events/evt-1/registrations", registerBody("b@x.id", "2025-02-10"), "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", decodeErr(t, rr).Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads share only the global budget
	rr = env.do(t, http.MethodGet, "/api/v1/events/evt-1/availability", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisinfra.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	env := newEnv(t, RouterDeps{
		Limiter:         cache,
		RLEnabled:       true,
		RLLimit:         1,
		RLWindow:        time.Minute,
		RLRegisterLimit: 1,
	})
	mr.Close()

	for i := 0; i < 3; i++ {
		rr := env.do(t, http.MethodGet, "/healthz", nil, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRateLimit_InProcessFallback(t *testing.T) {
	env := newEnv(t, RouterDeps{
		RLEnabled:       true,
		RLLimit:         2,
		RLWindow:        time.Minute,
		RLRegisterLimit: 2,
	})

	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodGet, "/healthz", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := env.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", decodeErr(t, rr).Code)
}
