package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"contractor-backend/internal/auth"
	"contractor-backend/internal/cache"
	"contractor-backend/internal/config"
	"contractor-backend/internal/intake"
	"contractor-backend/internal/lead"
	"contractor-backend/internal/models"
	"contractor-backend/internal/shell"
	"contractor-backend/internal/transport"
	"contractor-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeDeliverer struct {
	mu      sync.Mutex
	subs    []lead.Submission
	err     error
	entered chan struct{}
	release chan struct{}
}

func (d *fakeDeliverer) Deliver(ctx context.Context, sub lead.Submission) error {
	if d.entered != nil {
		d.entered <- struct{}{}
		select {
		case <-d.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, sub)
	return d.err
}

func (d *fakeDeliverer) delivered() []lead.Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]lead.Submission(nil), d.subs...)
}

type fakeStore struct {
	mu    sync.Mutex
	next  int
	files map[string][]byte
}

func (f *fakeStore) Put(ctx context.Context, name, contentType string, size int64, r io.Reader) (lead.Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return lead.Attachment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := name + "#" + string(rune('0'+f.next))
	f.files[id] = data
	return lead.Attachment{ID: id, Name: name, ContentType: contentType, Size: int64(len(data))}, nil
}

func (f *fakeStore) Open(ctx context.Context, id string) (io.ReadCloser, lead.Attachment, error) {
	return nil, lead.Attachment{}, intake.ErrAttachmentNotFound
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return intake.ErrAttachmentNotFound
	}
	delete(f.files, id)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type fakeUsers map[string]models.User

func (f fakeUsers) FindByUsername(ctx context.Context, username string) (models.User, error) {
	u, ok := f[username]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

type testEnv struct {
	router    http.Handler
	deliverer *fakeDeliverer
	store     *fakeStore
	server    *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		RateLimitSessions:  1000,
		RateLimitSubmit:    1000,
		RateLimitWindowSec: 60,
		Timezone:           time.UTC,
	}
	d := &fakeDeliverer{}
	store := &fakeStore{files: map[string][]byte{}}
	s := &Server{
		Cfg:         cfg,
		Val:         validation.New(),
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sessions:    NewSessionStore(cache.NewMemory(), time.Hour, nil),
		Deliverer:   d,
		Attachments: store,
		Now:         func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) },
	}
	r := chi.NewRouter()
	r.Route("/api/v1", func(api chi.Router) { s.Mount(api, nil) })
	return &testEnv{router: r, deliverer: d, store: store, server: s}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) SessionView {
	t.Helper()
	var v SessionView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	v := decodeView(t, rec)
	require.NotEmpty(t, v.ID)
	assert.Equal(t, shell.ModalNone, v.OpenModal)
	return v.ID
}

func (e *testEnv) mustOK(t *testing.T, method, path, body string) SessionView {
	t.Helper()
	rec := e.do(t, method, path, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeView(t, rec)
}

func (e *testEnv) fillToReview(t *testing.T, id string) {
	t.Helper()
	base := "/sessions/" + id
	e.mustOK(t, http.MethodPost, base+"/wizard/continue", "")
	e.mustOK(t, http.MethodPatch, base+"/wizard", `{"field":"name","value":"Jane Doe"}`)
	e.mustOK(t, http.MethodPatch, base+"/wizard", `{"field":"email","value":"jane@example.com"}`)
	e.mustOK(t, http.MethodPatch, base+"/wizard", `{"field":"phone","value":"6195550123"}`)
	e.mustOK(t, http.MethodPost, base+"/wizard/review", "")
}

func TestQuoteToSubmitFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/sessions/" + id

	v := env.mustOK(t, http.MethodPost, base+"/quote", `{"service":"Home Renovations"}`)
	assert.Equal(t, shell.ModalContact, v.OpenModal)
	assert.True(t, v.ScrollLocked)
	require.NotNil(t, v.Wizard)
	assert.Equal(t, lead.StepProjectDetails, v.Wizard.Step)
	assert.True(t, v.Wizard.ProjectTypeLocked)
	assert.Equal(t, "$50,000", v.Wizard.BudgetDisplay)

	rec := env.do(t, http.MethodPatch, base+"/wizard", `{"field":"projectType","value":"Home Additions"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	v = env.mustOK(t, http.MethodPatch, base+"/wizard", `{"field":"budget","value":"100000"}`)
	assert.Equal(t, "$100,000", v.Wizard.BudgetDisplay)

	env.fillToReview(t, id)

	rec = env.do(t, http.MethodPost, base+"/wizard/submit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, lead.SuccessMessage, resp.Message)
	assert.Equal(t, shell.ModalNone, resp.Session.OpenModal)
	assert.False(t, resp.Session.ScrollLocked)

	subs := env.deliverer.delivered()
	require.Len(t, subs, 1)
	assert.Equal(t, "Home Renovations", subs[0].ProjectType)
	assert.Equal(t, "$100,000", subs[0].Budget)
	assert.Equal(t, "(619) 555-0123", subs[0].Phone)
	assert.Equal(t, lead.SubmissionSource, subs[0].Source)
}

func TestSubmitValidationReportsFirstField(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/sessions/" + id

	env.mustOK(t, http.MethodPost, base+"/quote", `{"service":""}`)
	env.mustOK(t, http.MethodPost, base+"/wizard/continue", "")
	env.mustOK(t, http.MethodPatch, base+"/wizard", `{"field":"email","value":"jane@example.com"}`)
	env.mustOK(t, http.MethodPost, base+"/wizard/review", "")

	rec := env.do(t, http.MethodPost, base+"/wizard/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body transport.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Name is required", body.Details["name"])
	assert.Empty(t, env.deliverer.delivered())

	v := env.mustOK(t, http.MethodGet, base, "")
	require.NotNil(t, v.Wizard)
	assert.Equal(t, lead.StepReview, v.Wizard.Step)
	assert.False(t, v.Wizard.Submitting)
	assert.Equal(t, "Name is required", v.Wizard.Errors[lead.FieldName])
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	env.deliverer.err = errors.New("upstream timeout")
	id := env.newSession(t)
	base := "/sessions/" + id

	env.mustOK(t, http.MethodPost, base+"/quote", `{"service":"Custom Home Building"}`)
	env.fillToReview(t, id)

	rec := env.do(t, http.MethodPost, base+"/wizard/submit", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body transport.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "submission_failed", body.Code)
	assert.Contains(t, body.Error, "(619) 555-0123")

	v := env.mustOK(t, http.MethodGet, base, "")
	assert.Equal(t, shell.ModalContact, v.OpenModal)
	require.NotNil(t, v.Wizard)
	assert.False(t, v.Wizard.Submitting)
	assert.Equal(t, "Jane Doe", v.Wizard.Draft.Name)

	env.deliverer.err = nil
	rec = env.do(t, http.MethodPost, base+"/wizard/submit", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConcurrentSubmitIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.deliverer.entered = make(chan struct{})
	env.deliverer.release = make(chan struct{})
	id := env.newSession(t)
	base := "/sessions/" + id

	env.mustOK(t, http.MethodPost, base+"/quote", `{"service":"Home Additions"}`)
	env.fillToReview(t, id)

	first := make(chan int, 1)
	go func() {
		first <- env.do(t, http.MethodPost, base+"/wizard/submit", "").Code
	}()
	<-env.deliverer.entered

	rec := env.do(t, http.MethodPost, base+"/wizard/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	v := env.mustOK(t, http.MethodGet, base, "")
	require.NotNil(t, v.Wizard)
	assert.True(t, v.Wizard.Submitting)

	close(env.deliverer.release)
	assert.Equal(t, http.StatusOK, <-first)
	assert.Len(t, env.deliverer.delivered(), 1)
}

func TestSubmitSurvivesClientDisconnect(t *testing.T) {
	env := newTestEnv(t)
	env.deliverer.entered = make(chan struct{})
	env.deliverer.release = make(chan struct{})
	id := env.newSession(t)
	base := "/sessions/" + id

	env.mustOK(t, http.MethodPost, base+"/quote", `{"service":"Home Additions"}`)
	env.fillToReview(t, id)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/v1"+base+"/wizard/submit", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		env.router.ServeHTTP(rec, req)
		close(done)
	}()

	<-env.deliverer.entered
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(env.deliverer.release)
	<-done

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, env.deliverer.delivered(), 1)

	v := env.mustOK(t, http.MethodGet, base, "")
	assert.Equal(t, shell.ModalNone, v.OpenModal)
	assert.Nil(t, v.Wizard)
}

func TestCalculatorHandoffPrefillsWizard(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/sessions/" + id

	v := env.mustOK(t, http.MethodPost, base+"/calculator", "")
	assert.Equal(t, shell.ModalCalculator, v.OpenModal)
	require.NotNil(t, v.Calculator)
	assert.Equal(t, "$45,000 - $58,500", v.Calculator.Display)

	v = env.mustOK(t, http.MethodPut, base+"/calculator", `{"projectType":"microcement","size":1100,"quality":"mid"}`)
	require.NotNil(t, v.Calculator)
	assert.Equal(t, 49500, v.Calculator.Low)
	assert.Equal(t, 64350, v.Calculator.High)

	rec := env.do(t, http.MethodPut, base+"/calculator", `{"projectType":"microcement","size":20,"quality":"mid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	v = env.mustOK(t, http.MethodPost, base+"/calculator/handoff", "")
	assert.Equal(t, shell.ModalContact, v.OpenModal)
	assert.Equal(t, "microcement", v.SelectedService)
	require.NotNil(t, v.Wizard)
	assert.Equal(t, "microcement", v.Wizard.Draft.ProjectType)
	assert.Equal(t, 49500, v.Wizard.Draft.EstimatedBudget)
	assert.True(t, v.Wizard.ProjectTypeLocked)

	rec = env.do(t, http.MethodPost, base+"/calculator/handoff", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatelessEstimate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/estimate?projectType=kitchen&size=200&quality=premium", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var est struct {
		Low     int    `json:"low"`
		High    int    `json:"high"`
		Display string `json:"display"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&est))
	assert.Equal(t, 90000, est.Low)
	assert.Equal(t, 117000, est.High)
	assert.Equal(t, "$90,000 - $117,000", est.Display)

	rec = env.do(t, http.MethodGet, "/estimate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/estimate?quality=gold", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/estimate?size=wide", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/estimate?size=6000", "").Code)
}

func TestWizardRequestsRejectedWhenClosed(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/sessions/" + id

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, base+"/wizard/continue", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPatch, base+"/wizard", `{"field":"attachment","value":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, base+"/quote", `{"service":"Pool Building"}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/sessions/not-a-session", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/sessions/2f1b1c3e-8a53-4b5e-9a38-0c6a8f2f9d11/quote", `{"service":""}`).Code)
}

func TestCloseModalDiscardsDraftAndAttachment(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/sessions/" + id

	env.mustOK(t, http.MethodPost, base+"/quote", `{"service":"Design & Planning"}`)

	rec := env.upload(t, base, "plans.pdf", []byte("%PDF-1.7"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	env.mustOK(t, http.MethodPost, base+"/wizard/continue", "")
	env.mustOK(t, http.MethodPatch, base+"/wizard", `{"field":"name","value":"Jane"}`)

	rec = env.upload(t, base, "plans.pdf", []byte("%PDF-1.7"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decodeView(t, rec)
	require.NotNil(t, v.Wizard.Draft.Attachment)
	assert.Equal(t, "plans.pdf", v.Wizard.Draft.Attachment.Name)
	assert.Equal(t, int64(8), v.Wizard.Draft.Attachment.Size)

	rec = env.upload(t, base, "plans-v2.pdf", []byte("%PDF-1.7 v2"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.store.count())

	v = env.mustOK(t, http.MethodPost, base+"/modal/close", "")
	assert.Equal(t, shell.ModalNone, v.OpenModal)
	assert.False(t, v.ScrollLocked)
	assert.Nil(t, v.Wizard)
	assert.Equal(t, 0, env.store.count())

	v = env.mustOK(t, http.MethodPost, base+"/quote", `{"service":"Design & Planning"}`)
	assert.Equal(t, "", v.Wizard.Draft.Name)
	assert.Equal(t, lead.StepProjectDetails, v.Wizard.Step)
}

func TestRemoveAttachment(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/sessions/" + id

	env.mustOK(t, http.MethodPost, base+"/quote", `{"service":""}`)
	env.mustOK(t, http.MethodPost, base+"/wizard/continue", "")
	require.Equal(t, http.StatusOK, env.upload(t, base, "kitchen.jpg", []byte("jpeg")).Code)

	v := env.mustOK(t, http.MethodDelete, base+"/wizard/attachment", "")
	assert.Nil(t, v.Wizard.Draft.Attachment)
	assert.Equal(t, 0, env.store.count())
}

func TestDeleteSessionReleasesScroll(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/sessions/" + id

	env.mustOK(t, http.MethodPost, base+"/quote", `{"service":""}`)
	rec := env.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base, "").Code)
}

func (e *testEnv) upload(t *testing.T, base, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1"+base+"/wizard/attachment", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAdminLoginAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	hash, err := auth.HashPassword("s3cret!")
	require.NoError(t, err)
	env.server.Users = fakeUsers{"owner": {Username: "owner", PasswordHash: hash, Role: models.UserRoleAdmin}}
	env.server.JWT = &auth.Manager{Secret: []byte("k"), AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "contractor-backend"}

	rec := env.do(t, http.MethodPost, "/admin/login", `{"username":"owner","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/login", `{"username":"owner","password":"s3cret!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, auth.AccessCookie)
	require.Contains(t, cookies, auth.RefreshCookie)
	assert.Equal(t, refreshCookiePath, cookies[auth.RefreshCookie].Path)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", nil)
	req.AddCookie(cookies[auth.AccessCookie])
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: cookies[auth.RefreshCookie].Value})
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminLoginNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/admin/login", `{"username":"owner","password":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAttachmentName(t *testing.T) {
	cases := map[string]string{
		"plans.pdf":               "plans.pdf",
		"My Plans (final).PDF":    "my-plans-final.pdf",
		`C:\Users\jane\site.jpeg`: "site.jpeg",
		"../../etc/passwd":        "passwd",
		"":                        "attachment",
		"photo.j p g":             "photo",
	}
	for in, want := range cases {
		assert.Equal(t, want, attachmentName(in), in)
	}
}
