package routes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/entities"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/handlers"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/presenters"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/middleware"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/logging"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/credential"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/entry"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/jwt"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/orchestrator"
)

type fakeEntryService struct {
	entry.EntryService

	entries       map[string]domain.EntryResponse
	deleteErr     error
	transcribeErr error
	staged        []string
	finalNotes    string
	completeErr   error
	discarded     []string
}

func (f *fakeEntryService) GetEntry(_ context.Context, id string) (domain.EntryResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.EntryResponse{}, domain.ErrParseUUID
	}
	res, ok := f.entries[id]
	if !ok {
		return domain.EntryResponse{}, domain.ErrEntryNotFound
	}
	return res, nil
}

func (f *fakeEntryService) ListEntries(_ context.Context, status string) ([]domain.EntryResponse, error) {
	if status != "" && !entities.ProcessingStatus(status).IsValid() {
		return nil, domain.ErrInvalidStatusFilter
	}
	out := make([]domain.EntryResponse, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEntryService) DeleteEntry(context.Context, string) error {
	return f.deleteErr
}

func (f *fakeEntryService) TranscribeVoiceNote(context.Context, []byte, string) (string, error) {
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return "two eggs and toast", nil
}

func (f *fakeEntryService) StageUpload(_ context.Context, image io.Reader, filename string, capturedAt time.Time, _ *string) (*entities.PendingCapture, error) {
	if _, err := io.ReadAll(image); err != nil {
		return nil, err
	}
	f.staged = append(f.staged, filename)
	return &entities.PendingCapture{OriginalRelativePath: "entries/" + filename, CapturedAt: capturedAt}, nil
}

func (f *fakeEntryService) CompleteCapture(_ context.Context, _ *entities.PendingCapture, notes string) (*entities.TrackedEntry, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.finalNotes = notes
	created := &entities.TrackedEntry{ID: uuid.New(), Status: entities.StatusPending}
	f.entries[created.ID.String()] = domain.EntryResponse{ID: created.ID.String(), Status: string(created.Status)}
	return created, nil
}

func (f *fakeEntryService) DiscardCapture(_ context.Context, pending *entities.PendingCapture) error {
	f.discarded = append(f.discarded, pending.OriginalRelativePath)
	return nil
}

type fakeQueue struct {
	retryErr error
	queued   []uuid.UUID
	changes  chan orchestrator.StatusChange
}

func (q *fakeQueue) QueueEntry(_ context.Context, id uuid.UUID) error {
	q.queued = append(q.queued, id)
	return nil
}

func (q *fakeQueue) RetryEntry(context.Context, uuid.UUID) error { return q.retryErr }

func (q *fakeQueue) Subscribe(int) (<-chan orchestrator.StatusChange, func()) {
	return q.changes, func() {}
}

type fakeSummaryService struct{ err error }

func (s fakeSummaryService) GenerateDailySummary(_ context.Context, date, tz string) (domain.DailySummary, error) {
	if s.err != nil {
		return domain.DailySummary{}, s.err
	}
	return domain.DailySummary{Date: date, TimeZoneID: tz, EntryCount: 2, Summary: "balanced"}, nil
}

type testServer struct {
	app      *fiber.App
	entries  *fakeEntryService
	queue    *fakeQueue
	summary  *fakeSummaryService
	creds    credential.Store
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, jwtService jwt.JWTService) *testServer {
	t.Helper()
	utils.InitValidator()

	srv := &testServer{
		app:      fiber.New(),
		entries:  &fakeEntryService{entries: map[string]domain.EntryResponse{}},
		queue:    &fakeQueue{changes: make(chan orchestrator.StatusChange)},
		summary:  &fakeSummaryService{},
		creds:    credential.NewConfigStore(utils.LLMConfig{}),
		registry: prometheus.NewRegistry(),
	}
	logger := logging.Discard()
	cfg := Config{
		App:             srv.app,
		CaptureHandler:  handlers.NewCaptureHandler(srv.entries, utils.Validate, logger),
		EntryHandler:    handlers.NewEntryHandler(srv.entries, srv.queue, utils.Validate, logger),
		SummaryHandler:  handlers.NewSummaryHandler(srv.summary, utils.Validate),
		SettingsHandler: handlers.NewSettingsHandler(srv.creds, utils.Validate, logger),
		Middleware:      middleware.NewMiddleware(),
		JWTService:      jwtService,
		Metrics:         srv.registry,
	}
	cfg.Setup()
	return srv
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, presenters.Response) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body presenters.Response
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func TestPing(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/api/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "route_test_total", Help: "test"})
	srv.registry.MustRegister(counter)
	counter.Inc()

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "route_test_total 1")
}

func TestEntries_ErrorMapping(t *testing.T) {
	srv := newTestServer(t, nil)
	known := uuid.NewString()
	srv.entries.entries[known] = domain.EntryResponse{ID: known, Status: "Completed"}

	cases := []struct {
		name   string
		setup  func()
		method string
		path   string
		want   int
	}{
		{name: "get known", method: http.MethodGet, path: "/api/v1/entries/" + known, want: http.StatusOK},
		{name: "get unknown", method: http.MethodGet, path: "/api/v1/entries/" + uuid.NewString(), want: http.StatusNotFound},
		{name: "get malformed id", method: http.MethodGet, path: "/api/v1/entries/nope", want: http.StatusBadRequest},
		{name: "bad status filter", method: http.MethodGet, path: "/api/v1/entries?status=Bogus", want: http.StatusBadRequest},
		{name: "queue malformed id", method: http.MethodPost, path: "/api/v1/entries/nope/queue", want: http.StatusBadRequest},
		{name: "queue accepted", method: http.MethodPost, path: "/api/v1/entries/" + known + "/queue", want: http.StatusAccepted},
		{
			name:   "retry not retryable",
			setup:  func() { srv.queue.retryErr = domain.ErrEntryNotRetryable },
			method: http.MethodPost, path: "/api/v1/entries/" + known + "/retry", want: http.StatusConflict,
		},
		{
			name:   "retry while shutting down",
			setup:  func() { srv.queue.retryErr = orchestrator.ErrShuttingDown },
			method: http.MethodPost, path: "/api/v1/entries/" + known + "/retry", want: http.StatusServiceUnavailable,
		},
		{
			name:   "delete busy",
			setup:  func() { srv.entries.deleteErr = domain.ErrEntryBusy },
			method: http.MethodDelete, path: "/api/v1/entries/" + known, want: http.StatusConflict,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}
			status, body := srv.do(t, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.want, status)
			assert.Equal(t, tc.want < 300, body.Status)
		})
	}
}

func TestSummaries(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/summaries/2026-10-19?tz=Europe/London", nil))
	require.Equal(t, http.StatusOK, status)
	data := body.Data.(map[string]any)
	assert.Equal(t, "2026-10-19", data["date"])
	assert.Equal(t, "Europe/London", data["timeZoneId"])

	status, _ = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/summaries/19-10-2026", nil))
	assert.Equal(t, http.StatusBadRequest, status)

	srv.summary.err = llm.ErrNotConfigured
	status, _ = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/summaries/2026-10-19", nil))
	assert.Equal(t, http.StatusPreconditionFailed, status)

	srv.summary.err = domain.ErrNoEntriesForDay
	status, _ = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/summaries/2026-10-19", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func settingsRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/llm", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestSettings_RuntimeKeyEnablesProvider(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	status, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/settings/llm", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body.Data.(map[string]any)["configured"])

	status, body = srv.do(t, settingsRequest(t, `{"provider":"gemini","api_key":" g-key ","model":"gemini-2.0-flash","select":true}`))
	require.Equal(t, http.StatusOK, status, body.Error)
	data := body.Data.(map[string]any)
	assert.Equal(t, "gemini", data["selected_provider"])
	assert.Equal(t, true, data["configured"])
	assert.NotContains(t, fmt.Sprint(data), "g-key")

	selected, err := srv.creds.GetSelectedProvider(ctx)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGemini, selected)
	key, err := srv.creds.GetAPIKey(ctx, llm.ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "g-key", key)

	status, _ = srv.do(t, settingsRequest(t, `{"provider":"llama","api_key":"x"}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func uploadRequest(t *testing.T, notes string, withVoice bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("notes", notes))
	require.NoError(t, mw.WriteField("captured_at", "2026-10-19T08:30:00Z"))
	part, err := mw.CreateFormFile("image", "Breakfast.JPG")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	require.NoError(t, err)
	if withVoice {
		part, err = mw.CreateFormFile("voice_note", "note.m4a")
		require.NoError(t, err)
		_, err = part.Write([]byte("audio"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/captures/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestUpload_AppendsTranscript(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, uploadRequest(t, "at the cafe", true))
	require.Equal(t, http.StatusCreated, status, body.Error)
	assert.Equal(t, []string{"Breakfast.JPG"}, srv.entries.staged)
	assert.Equal(t, "at the cafe\n\ntwo eggs and toast", srv.entries.finalNotes)
}

func TestUpload_TranscriptionFailureDoesNotBlockCapture(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.entries.transcribeErr = llm.ErrUnsupportedOperation

	status, _ := srv.do(t, uploadRequest(t, "lunch", true))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "lunch", srv.entries.finalNotes)
}

func TestUpload_RejectedCaptureIsDiscarded(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.entries.completeErr = domain.ErrCaptureImageEmpty

	status, _ := srv.do(t, uploadRequest(t, "lunch", false))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{"entries/Breakfast.JPG"}, srv.entries.discarded)
}

func TestUpload_RequiresImage(t *testing.T) {
	srv := newTestServer(t, nil)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("notes", "no photo"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/captures/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())

	status, _ := srv.do(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, srv.entries.staged)
}

func TestAuth_RequiresDeviceToken(t *testing.T) {
	jwtService := jwt.NewJWTService("secret")
	srv := newTestServer(t, jwtService)

	status, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil))
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer garbage")
	status, _ = srv.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, status)

	token, err := jwtService.GenerateDeviceToken("phone", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	status, _ = srv.do(t, req)
	assert.Equal(t, http.StatusOK, status)

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/api/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEvents_StreamsFilteredChanges(t *testing.T) {
	srv := newTestServer(t, nil)
	target := uuid.New()
	changes := make(chan orchestrator.StatusChange, 3)
	changes <- orchestrator.StatusChange{EntryID: uuid.New(), Status: entities.StatusProcessing}
	changes <- orchestrator.StatusChange{EntryID: target, Status: entities.StatusCompleted, EntryType: entities.EntryTypeMeal}
	close(changes)
	srv.queue.changes = changes

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/entries/events?entry_id="+target.String(), nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	stream := string(raw)
	assert.Contains(t, stream, ": connected")
	assert.Contains(t, stream, "event: status")
	assert.Contains(t, stream, target.String())
	assert.Equal(t, 1, bytes.Count(raw, []byte("event: status")))
}

func TestStatusForError_ProviderError(t *testing.T) {
	err := errors.Join(errors.New("analyze"), &llm.ProviderError{Provider: llm.ProviderOpenAI, StatusCode: 500})
	assert.Equal(t, http.StatusBadGateway, presenters.StatusForError(err))
	assert.Equal(t, http.StatusInternalServerError, presenters.StatusForError(errors.New("boom")))
}
