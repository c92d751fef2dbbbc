package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"keepwarm/internal/db"
	"keepwarm/internal/errors"
	"keepwarm/internal/lifecycle"
	"keepwarm/internal/state"
	"keepwarm/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockManager struct {
	mock.Mock
}

func (m *mockManager) Start(ctx context.Context, name string, opts lifecycle.StartOptions) (*lifecycle.StartResult, error) {
	args := m.Called(ctx, name, opts)
	res, _ := args.Get(0).(*lifecycle.StartResult)
	return res, args.Error(1)
}

func (m *mockManager) Stop(ctx context.Context, name string) (*state.Record, error) {
	args := m.Called(ctx, name)
	rec, _ := args.Get(0).(*state.Record)
	return rec, args.Error(1)
}

func (m *mockManager) List(ctx context.Context) ([]*lifecycle.InstanceInfo, error) {
	args := m.Called(ctx)
	infos, _ := args.Get(0).([]*lifecycle.InstanceInfo)
	return infos, args.Error(1)
}

func (m *mockManager) Status(ctx context.Context, name string) (*lifecycle.InstanceInfo, error) {
	args := m.Called(ctx, name)
	info, _ := args.Get(0).(*lifecycle.InstanceInfo)
	return info, args.Error(1)
}

func (m *mockManager) Logs(ctx context.Context, name string, opts lifecycle.LogsOptions, w io.Writer) error {
	args := m.Called(ctx, name, opts, w)
	if fn, ok := args.Get(0).(func(context.Context, io.Writer) error); ok {
		return fn(ctx, w)
	}
	return args.Error(0)
}

func newTestServer(t *testing.T, mgr *mockManager, history HistoryLister, database Database) http.Handler {
	t.Helper()
	return New(nil, mgr, history, database, "docker").Handler()
}

func doRequest(t *testing.T, h http.Handler, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, err := testutil.NewJSONRequest(method, url, body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleInfo(name string) *lifecycle.InstanceInfo {
	return &lifecycle.InstanceInfo{
		Name:            name,
		Status:          lifecycle.StatusRunning,
		Port:            41777,
		ContainerHandle: "c-" + name,
		StartedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UptimeSeconds:   60,
	}
}

func TestHandleListInstances(t *testing.T) {
	mgr := &mockManager{}
	mgr.On("List", mock.Anything).Return([]*lifecycle.InstanceInfo{sampleInfo("alpha"), sampleInfo("beta")}, nil)

	rec := doRequest(t, newTestServer(t, mgr, nil, nil), http.MethodGet, "/api/instances", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp InstancesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "alpha", resp.Instances[0].Name)
	assert.Equal(t, int64(60), resp.Instances[0].UptimeSeconds)
	mgr.AssertExpectations(t)
}

func TestHandleGetInstance(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(*mockManager)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "running instance",
			setup: func(m *mockManager) {
				m.On("Status", mock.Anything, "alpha").Return(sampleInfo("alpha"), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unknown instance",
			setup: func(m *mockManager) {
				m.On("Status", mock.Anything, "alpha").Return(nil, errors.InstanceNotFound("alpha"))
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   string(errors.ErrNotFound),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := &mockManager{}
			tt.setup(mgr)

			rec := doRequest(t, newTestServer(t, mgr, nil, nil), http.MethodGet, "/api/instances/alpha", nil)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedCode != "" {
				errResp, err := testutil.ParseErrorResponse(rec.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.expectedCode, errResp.Error.Code)
				assert.NotEmpty(t, errResp.Error.Hint)
			}
		})
	}
}

func TestHandleStartInstance(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setup          func(*mockManager)
		expectedStatus int
		check          func(t *testing.T, body string)
	}{
		{
			name: "discovered port",
			body: StartInstanceRequest{Name: "alpha"},
			setup: func(m *mockManager) {
				m.On("Start", mock.Anything, "alpha", lifecycle.StartOptions{}).Return(&lifecycle.StartResult{
					Record:     &state.Record{InstanceName: "alpha", ContainerHandle: "c1", Port: 41777},
					Discovered: true,
				}, nil)
			},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, body string) {
				var resp StartInstanceResponse
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				assert.True(t, resp.Discovered)
				assert.Equal(t, 41777, resp.Instance.Port)
			},
		},
		{
			name: "explicit port and options",
			body: StartInstanceRequest{Name: "beta", Port: 9001, Model: "opus", SkipDeps: true},
			setup: func(m *mockManager) {
				m.On("Start", mock.Anything, "beta", lifecycle.StartOptions{Port: 9001, Model: "opus", SkipDeps: true}).
					Return(&lifecycle.StartResult{Record: &state.Record{InstanceName: "beta", Port: 9001}}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid name",
			body:           StartInstanceRequest{Name: "Not Valid"},
			setup:          func(m *mockManager) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "already running",
			body: StartInstanceRequest{Name: "alpha"},
			setup: func(m *mockManager) {
				m.On("Start", mock.Anything, "alpha", mock.Anything).Return(nil, errors.AlreadyRunning("alpha", 41777, "c1"))
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "discovery timeout",
			body: StartInstanceRequest{Name: "alpha"},
			setup: func(m *mockManager) {
				m.On("Start", mock.Anything, "alpha", mock.Anything).
					Return(nil, errors.PortDiscoveryFailed("alpha", errors.ReasonTimeout, "started"))
			},
			expectedStatus: http.StatusGatewayTimeout,
			check: func(t *testing.T, body string) {
				errResp, err := testutil.ParseErrorResponse(strings.NewReader(body))
				require.NoError(t, err)
				assert.Equal(t, errors.ReasonTimeout, errResp.Context["reason"])
				assert.Equal(t, "started", errResp.Context["logs"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := &mockManager{}
			tt.setup(mgr)

			rec := doRequest(t, newTestServer(t, mgr, nil, nil), http.MethodPost, "/api/instances", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, rec.Body.String())
			}
			mgr.AssertExpectations(t)
		})
	}
}

func TestHandleStartInstance_MalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/instances", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newTestServer(t, &mockManager{}, nil, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStopInstance(t *testing.T) {
	mgr := &mockManager{}
	mgr.On("Stop", mock.Anything, "alpha").Return(&state.Record{InstanceName: "alpha", ContainerHandle: "c1"}, nil).Once()
	mgr.On("Stop", mock.Anything, "alpha").Return(nil, errors.InstanceNotFound("alpha"))
	h := newTestServer(t, mgr, nil, nil)

	rec := doRequest(t, h, http.MethodDelete, "/api/instances/alpha", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StopInstanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "c1", resp.ContainerHandle)

	rec = doRequest(t, h, http.MethodDelete, "/api/instances/alpha", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetInstanceLogs(t *testing.T) {
	mgr := &mockManager{}
	mgr.On("Logs", mock.Anything, "alpha", lifecycle.LogsOptions{Tail: 2}, mock.Anything).
		Return(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, "two\n\nthree\n")
			return err
		})
	h := newTestServer(t, mgr, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/instances/alpha/logs?tail=2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp LogsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"two", "three"}, resp.Lines)

	rec = doRequest(t, h, http.MethodGet, "/api/instances/alpha/logs?tail=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFollowInstanceLogs(t *testing.T) {
	mgr := &mockManager{}
	mgr.On("Status", mock.Anything, "alpha").Return(sampleInfo("alpha"), nil)
	mgr.On("Logs", mock.Anything, "alpha", lifecycle.LogsOptions{Tail: 100, Follow: true}, mock.Anything).
		Return(func(ctx context.Context, w io.Writer) error {
			if _, err := io.WriteString(w, "ready\n"); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})

	ts := httptest.NewServer(newTestServer(t, mgr, nil, nil))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/instances/alpha/logs/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	var msg LogMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "log", msg.Type)
	assert.Equal(t, "ready\n", msg.Data)

	require.NoError(t, conn.Close())
}

func TestHandleFollowInstanceLogs_UnknownInstance(t *testing.T) {
	mgr := &mockManager{}
	mgr.On("Status", mock.Anything, "ghost").Return(nil, errors.InstanceNotFound("ghost"))

	rec := doRequest(t, newTestServer(t, mgr, nil, nil), http.MethodGet, "/api/instances/ghost/logs/ws", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListHistory(t *testing.T) {
	database := testutil.SetupTestDB(t)
	repo := db.NewHistoryRepository(database, "docker")
	ctx := context.Background()
	require.NoError(t, repo.RecordEvent(ctx, "alpha", "started", "c1", 41777, ""))
	require.NoError(t, repo.RecordEvent(ctx, "beta", "started", "c2", 9001, ""))
	require.NoError(t, repo.RecordEvent(ctx, "alpha", "stopped", "c1", 41777, ""))

	h := newTestServer(t, &mockManager{}, repo, database)

	rec := doRequest(t, h, http.MethodGet, "/api/history?instance=alpha&page_size=1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp db.PaginatedResponse[db.Event]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalItems)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "alpha", resp.Data[0].InstanceName)

	rec = doRequest(t, h, http.MethodGet, "/api/history?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListHistory_Disabled(t *testing.T) {
	rec := doRequest(t, newTestServer(t, &mockManager{}, nil, nil), http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	database := testutil.SetupTestDB(t)

	rec := doRequest(t, newTestServer(t, &mockManager{}, nil, database), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "docker", resp.Runtime)
	assert.Equal(t, "healthy", resp.Database)
	assert.Equal(t, uint(1), resp.SchemaVersion)
}

func TestUnknownRouteUsesErrorBody(t *testing.T) {
	rec := doRequest(t, newTestServer(t, &mockManager{}, nil, nil), http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	errResp, err := testutil.ParseErrorResponse(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, string(errors.ErrNotFound), errResp.Error.Code)
}

func TestUpgraderCheckOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"", true},
		{"http://localhost", true},
		{"http://localhost:5173", true},
		{"https://127.0.0.1:8080", true},
		{"http://[::1]:3000", true},
		{"http://localhost.evil.example", false},
		{"http://127.0.0.1.evil.example", false},
		{"https://example.com", false},
		{"file://localhost", false},
		{"::not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/instances/alpha/logs/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.allowed, upgrader.CheckOrigin(req))
		})
	}
}
