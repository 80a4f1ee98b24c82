package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sifan077/PowerDrive/internal/app/model"
	"github.com/sifan077/PowerDrive/internal/app/service"
	"github.com/sifan077/PowerDrive/internal/http/middleware"
	infraPrometheus "github.com/sifan077/PowerDrive/internal/infra/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "0123456789abcdef0123456789abcdef"

type mockShareService struct {
	issueFn     func(ctx context.Context, requesterID, fileID uint64, expiryDays int) (*model.ShareLink, error)
	resolveFn   func(ctx context.Context, token string) (*service.ResolvedShare, error)
	revokeFn    func(ctx context.Context, requesterID, linkID uint64) (*model.ShareLink, error)
	listFn      func(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error)
	revokeAllFn func(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error)
}

func (m *mockShareService) IssueLink(ctx context.Context, requesterID, fileID uint64, expiryDays int) (*model.ShareLink, error) {
	return m.issueFn(ctx, requesterID, fileID, expiryDays)
}

func (m *mockShareService) ResolveLink(ctx context.Context, token string) (*service.ResolvedShare, error) {
	return m.resolveFn(ctx, token)
}

func (m *mockShareService) RevokeLink(ctx context.Context, requesterID, linkID uint64) (*model.ShareLink, error) {
	return m.revokeFn(ctx, requesterID, linkID)
}

func (m *mockShareService) ListLinks(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error) {
	return m.listFn(ctx, requesterID, fileID)
}

func (m *mockShareService) RevokeAllForFile(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error) {
	return m.revokeAllFn(ctx, requesterID, fileID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ShareEvent
}

func (r *recordingPublisher) Publish(event model.ShareEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recordingPublisher) snapshot() []model.ShareEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ShareEvent(nil), r.events...)
}

func (r *recordingPublisher) linkIDs() []uint64 {
	var ids []uint64
	for _, event := range r.snapshot() {
		ids = append(ids, event.LinkID)
	}
	return ids
}

// fakeAuth trusts an X-User header so handler tests do not need real JWTs.
func fakeAuth(c *fiber.Ctx) error {
	var id uint64
	if _, err := fmt.Sscan(c.Get("X-User"), &id); err != nil || id == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
	}
	c.Locals(middleware.RequesterKey, id)
	return c.Next()
}

func newAPIApp(svc service.ShareService, events EventPublisher) *fiber.App {
	app := fiber.New()
	NewShareAPIHandler(ShareAPIDeps{
		Shares:        svc,
		Auth:          fakeAuth,
		PublicBaseURL: "https://drive.example.com/",
		Events:        events,
	}).Register(app)
	return app
}

func newAccessApp(svc service.ShareService, events EventPublisher) *fiber.App {
	app := fiber.New()
	NewShareAccessHandler(ShareAccessDeps{
		Shares: svc,
		Events: events,
		ReadyChecks: map[string]HealthCheck{
			"postgres": func(ctx context.Context) error { return nil },
		},
	}).Register(app)
	return app
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

func TestIssueLink_Created(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	var gotDays int
	svc := &mockShareService{
		issueFn: func(ctx context.Context, requesterID, fileID uint64, expiryDays int) (*model.ShareLink, error) {
			assert.Equal(t, uint64(1), requesterID)
			assert.Equal(t, uint64(42), fileID)
			gotDays = expiryDays
			return &model.ShareLink{
				ID: 5, Token: validToken, FileID: fileID, UserID: requesterID,
				CreatedAt: created, ExpiryDate: service.ExpiryFor(created, expiryDays),
			}, nil
		},
	}
	events := &recordingPublisher{}
	app := newAPIApp(svc, events)

	req := httptest.NewRequest(http.MethodPost, "/files/42/share", strings.NewReader(`{"expiryDays": 3}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-User", "1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body ShareLinkResponse
	decode(t, resp, &body)
	assert.Equal(t, 3, gotDays)
	assert.Equal(t, validToken, body.Token)
	assert.Equal(t, "https://drive.example.com/share/"+validToken, body.URL)
	require.NotNil(t, body.ExpiryDate)
	assert.True(t, body.ExpiryDate.Equal(created.Add(72*time.Hour)))

	assert.Eventually(t, func() bool { return events.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestIssueLink_ExpiryDefaults(t *testing.T) {
	var gotDays []int
	svc := &mockShareService{
		issueFn: func(ctx context.Context, requesterID, fileID uint64, expiryDays int) (*model.ShareLink, error) {
			gotDays = append(gotDays, expiryDays)
			return &model.ShareLink{ID: 1, Token: validToken, FileID: fileID}, nil
		},
	}
	app := newAPIApp(svc, nil)

	for _, body := range []string{"", `{}`, `{"expiryDays": 0}`} {
		req := httptest.NewRequest(http.MethodPost, "/files/42/share", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set("X-User", "1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	}

	assert.Equal(t, []int{service.DefaultExpiryDays, service.DefaultExpiryDays, 0}, gotDays)
}

func TestIssueLink_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "missing file", err: fmt.Errorf("file 42: %w", service.ErrNotFound), status: http.StatusNotFound},
		{name: "not owner", err: fmt.Errorf("file 42: %w", service.ErrForbidden), status: http.StatusForbidden},
		{name: "storage failure", err: errors.New("connection reset"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockShareService{
				issueFn: func(ctx context.Context, requesterID, fileID uint64, expiryDays int) (*model.ShareLink, error) {
					return nil, tc.err
				},
			}
			app := newAPIApp(svc, nil)

			req := httptest.NewRequest(http.MethodPost, "/files/42/share", nil)
			req.Header.Set("X-User", "2")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			var body map[string]string
			decode(t, resp, &body)
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body["error"], "connection reset")
		})
	}
}

func TestIssueLink_RequiresAuthAndValidID(t *testing.T) {
	app := newAPIApp(&mockShareService{}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/files/42/share", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/files/abc/share", nil)
	req.Header.Set("X-User", "1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRevokeLink(t *testing.T) {
	svc := &mockShareService{
		revokeFn: func(ctx context.Context, requesterID, linkID uint64) (*model.ShareLink, error) {
			if requesterID != 1 {
				return nil, service.ErrForbidden
			}
			if linkID != 5 {
				return nil, service.ErrNotFound
			}
			return &model.ShareLink{ID: 5, FileID: 42}, nil
		},
	}
	app := newAPIApp(svc, nil)

	cases := []struct {
		user   string
		path   string
		status int
	}{
		{user: "1", path: "/shares/5", status: http.StatusNoContent},
		{user: "2", path: "/shares/5", status: http.StatusForbidden},
		{user: "1", path: "/shares/6", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodDelete, tc.path, nil)
		req.Header.Set("X-User", tc.user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)
	}
}

func TestListAndRevokeAllForFile(t *testing.T) {
	svc := &mockShareService{
		listFn: func(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error) {
			return []model.ShareLink{{ID: 1, Token: "a"}, {ID: 2, Token: "b"}}, nil
		},
		revokeAllFn: func(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error) {
			return []model.ShareLink{{ID: 1, FileID: fileID}, {ID: 2, FileID: fileID}}, nil
		},
	}
	events := &recordingPublisher{}
	app := newAPIApp(svc, events)

	req := httptest.NewRequest(http.MethodGet, "/files/42/shares", nil)
	req.Header.Set("X-User", "1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Links []ShareLinkResponse `json:"links"`
		Count int                 `json:"count"`
	}
	decode(t, resp, &list)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "https://drive.example.com/share/b", list.Links[1].URL)

	req = httptest.NewRequest(http.MethodDelete, "/files/42/shares", nil)
	req.Header.Set("X-User", "1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var revoked map[string]int
	decode(t, resp, &revoked)
	assert.Equal(t, 2, revoked["revoked"])

	require.Eventually(t, func() bool { return events.count() == 2 }, time.Second, 10*time.Millisecond)
	linkIDs := events.linkIDs()
	assert.ElementsMatch(t, []uint64{1, 2}, linkIDs)
	for _, event := range events.snapshot() {
		assert.Equal(t, model.ShareEventRevoked, event.Type)
		assert.Equal(t, uint64(42), event.FileID)
	}
}

func TestResolve_Success(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC()
	svc := &mockShareService{
		resolveFn: func(ctx context.Context, token string) (*service.ResolvedShare, error) {
			assert.Equal(t, validToken, token)
			return &service.ResolvedShare{
				Link: &model.ShareLink{ID: 3, Token: token, FileID: 42, ExpiryDate: &expiry},
				File: &model.File{ID: 42, Name: "hello.txt", Type: "text/plain", Size: 5, Content: "aGVsbG8="},
			}, nil
		},
	}
	events := &recordingPublisher{}
	app := newAccessApp(svc, events)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/share/"+validToken, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ResolveResponse
	decode(t, resp, &body)
	assert.Equal(t, uint64(42), body.File.ID)
	assert.Equal(t, "aGVsbG8=", body.File.Content)

	assert.Eventually(t, func() bool { return events.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestResolve_ErrorMapping(t *testing.T) {
	svc := &mockShareService{
		resolveFn: func(ctx context.Context, token string) (*service.ResolvedShare, error) {
			switch token {
			case strings.Repeat("e", 32):
				return nil, fmt.Errorf("resolve link 1: %w", service.ErrExpired)
			case strings.Repeat("f", 32):
				return nil, errors.New("db down")
			default:
				return nil, service.ErrNotFound
			}
		},
	}
	app := newAccessApp(svc, nil)

	cases := []struct {
		token  string
		status int
	}{
		{token: "does-not-exist", status: http.StatusNotFound},
		{token: validToken, status: http.StatusNotFound},
		{token: strings.Repeat("e", 32), status: http.StatusGone},
		{token: strings.Repeat("f", 32), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/share/"+tc.token, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.token)
	}
}

func TestResolve_HTMLAndDownload(t *testing.T) {
	svc := &mockShareService{
		resolveFn: func(ctx context.Context, token string) (*service.ResolvedShare, error) {
			return &service.ResolvedShare{
				Link: &model.ShareLink{ID: 3, Token: token, FileID: 42},
				File: &model.File{ID: 42, Name: "hello.txt", Size: 5, Content: "data:text/plain;base64,aGVsbG8="},
			}, nil
		},
	}
	events := &recordingPublisher{}
	reg := prometheus.NewRegistry()
	app := fiber.New()
	NewShareAccessHandler(ShareAccessDeps{
		Shares:  svc,
		Events:  events,
		Metrics: infraPrometheus.NewShareMetrics(reg),
	}).Register(app)

	req := httptest.NewRequest(http.MethodGet, "/share/"+validToken, nil)
	req.Header.Set(fiber.HeaderAccept, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "hello.txt")
	assert.Contains(t, string(page), "/share/"+validToken+"/download")
	assert.Contains(t, string(page), "does not expire")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/share/"+validToken+"/download", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "text/plain", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `filename="hello.txt"`)

	require.Eventually(t, func() bool { return events.count() == 2 }, time.Second, 10*time.Millisecond)
	var types []model.ShareEventType
	for _, event := range events.snapshot() {
		types = append(types, event.Type)
		assert.Equal(t, uint64(3), event.LinkID)
	}
	assert.ElementsMatch(t, []model.ShareEventType{model.ShareEventAccessed, model.ShareEventDownloaded}, types)

	expected := `
# HELP powerdrive_share_link_resolutions_total Share link resolutions by route and outcome.
# TYPE powerdrive_share_link_resolutions_total counter
powerdrive_share_link_resolutions_total{outcome="ok",route="download"} 1
powerdrive_share_link_resolutions_total{outcome="ok",route="view"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "powerdrive_share_link_resolutions_total"))
}

func TestReady(t *testing.T) {
	app := fiber.New()
	NewShareAccessHandler(ShareAccessDeps{
		ReadyChecks: map[string]HealthCheck{
			"postgres": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
		},
	}).Register(app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDecodeContent(t *testing.T) {
	body, ctype, err := DecodeContent("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Empty(t, ctype)

	body, ctype, err = DecodeContent("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "image/png", ctype)

	_, _, err = DecodeContent("data:broken")
	assert.Error(t, err)
	_, _, err = DecodeContent("!!!")
	assert.Error(t, err)
}
