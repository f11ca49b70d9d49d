package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/erazemk/inventura/internal/auth"
	"github.com/erazemk/inventura/internal/db"
	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
	db     *sql.DB
	issuer *auth.TokenIssuer
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	database := db.NewTestDB(t)
	issuer := auth.NewTokenIssuer(testSecret, 0)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	router, err := NewRouter(database, Options{Issuer: issuer, Metrics: m, ServeMetrics: true})
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, db: database, issuer: issuer}
}

// login creates a user and returns a token for it via the user picker.
func (s *testServer) login(t *testing.T, name, role string) string {
	t.Helper()

	user, err := store.CreateUser(context.Background(), s.db, name, role)
	require.NoError(t, err)

	resp := s.do(t, http.MethodPost, "/api/auth/select", "", map[string]int64{"user_id": user.ID})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	assert.Equal(t, name, body.User.Name)
	return body.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// call performs a request, checks the status and decodes the JSON response
// into out if it is not nil.
func (s *testServer) call(t *testing.T, method, path, token string, body any, status int, out any) {
	t.Helper()

	resp := s.do(t, method, path, token, body)
	defer resp.Body.Close()

	if !assert.Equal(t, status, resp.StatusCode) {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: %s", method, path, data)
	}
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func TestUserPicker(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Ana", model.RoleUser)

	var users []model.User
	s.call(t, http.MethodGet, "/api/users", "", nil, http.StatusOK, &users)
	require.Len(t, users, 1)

	var me model.User
	s.call(t, http.MethodGet, "/api/auth/me", token, nil, http.StatusOK, &me)
	assert.Equal(t, "Ana", me.Name)
	assert.Equal(t, model.RoleUser, me.Role)

	s.call(t, http.MethodPost, "/api/auth/select", "", map[string]int64{"user_id": 999}, http.StatusNotFound, nil)
	s.call(t, http.MethodPost, "/api/auth/select", "", map[string]int64{}, http.StatusBadRequest, nil)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Ana", model.RoleUser)

	s.call(t, http.MethodPost, "/api/auth/logout", token, nil, http.StatusOK, nil)
	s.call(t, http.MethodGet, "/api/auth/me", token, nil, http.StatusUnauthorized, nil)
}

func TestUnauthenticatedAccess(t *testing.T) {
	s := setupTestServer(t)

	s.call(t, http.MethodGet, "/api/cycles", "", nil, http.StatusUnauthorized, nil)
	s.call(t, http.MethodGet, "/api/cycles", "garbage", nil, http.StatusUnauthorized, nil)
}

func TestTokenOfDeletedUserRejected(t *testing.T) {
	s := setupTestServer(t)

	token, _, err := s.issuer.Issue(&model.User{ID: 42, Name: "Ghost", Role: model.RoleAdmin})
	require.NoError(t, err)

	s.call(t, http.MethodGet, "/api/cycles", token, nil, http.StatusUnauthorized, nil)
}

func TestRoleBasedAccess(t *testing.T) {
	s := setupTestServer(t)
	userToken := s.login(t, "Bor", model.RoleUser)
	responsibleToken := s.login(t, "Ana", model.RoleResponsible)

	s.call(t, http.MethodPost, "/api/cycles", userToken, nil, http.StatusForbidden, nil)
	s.call(t, http.MethodPost, "/api/users", responsibleToken,
		map[string]string{"name": "Eva", "role": model.RoleUser}, http.StatusForbidden, nil)

	var cycle model.Cycle
	s.call(t, http.MethodPost, "/api/cycles", responsibleToken, nil, http.StatusCreated, &cycle)

	s.call(t, http.MethodPut, "/api/cycles/"+cycle.ID+"/expected", userToken,
		map[string]any{"items": []model.ExpectedItem{}}, http.StatusForbidden, nil)
	s.call(t, http.MethodPost, "/api/cycles/"+cycle.ID+"/close", userToken, nil, http.StatusForbidden, nil)
}

func TestCreateUser(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Admin", model.RoleAdmin)

	var user model.User
	s.call(t, http.MethodPost, "/api/users", token,
		map[string]string{"name": "Eva", "role": model.RoleResponsible}, http.StatusCreated, &user)
	assert.Equal(t, "Eva", user.Name)

	s.call(t, http.MethodPost, "/api/users", token,
		map[string]string{"name": "Eva", "role": model.RoleUser}, http.StatusConflict, nil)
	s.call(t, http.MethodPost, "/api/users", token,
		map[string]string{"name": "Zoran", "role": "boss"}, http.StatusBadRequest, nil)
}

func TestReconciliationFlow(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Ana", model.RoleResponsible)

	var cycle model.Cycle
	s.call(t, http.MethodPost, "/api/cycles", token, nil, http.StatusCreated, &cycle)
	s.call(t, http.MethodPost, "/api/cycles", token, nil, http.StatusConflict, nil)

	base := "/api/cycles/" + cycle.ID
	s.call(t, http.MethodPut, base+"/expected", token, map[string]any{
		"items": []map[string]string{
			{"primary_key": "A1", "location_code": "L1"},
			{"primary_key": "A2", "location_code": "L1"},
		},
	}, http.StatusOK, nil)

	var result model.ScanResult
	s.call(t, http.MethodPost, base+"/scans", token,
		map[string]string{"location_code": "L1", "primary_key": "A1"}, http.StatusCreated, &result)
	assert.Equal(t, model.OutcomeOK, result.Outcome)

	s.call(t, http.MethodPost, base+"/scans", token,
		map[string]string{"location_code": "L2", "primary_key": "A2"}, http.StatusCreated, &result)
	assert.Equal(t, model.OutcomeWrongLocation, result.Outcome)
	assert.Equal(t, "L1", result.ExpectedLocation)

	s.call(t, http.MethodPost, base+"/scans", token,
		map[string]string{"location_code": "L1", "primary_key": "B9"}, http.StatusCreated, &result)
	assert.Equal(t, model.OutcomeUnexpected, result.Outcome)

	s.call(t, http.MethodPost, base+"/scans", token,
		map[string]string{"location_code": "L1", "primary_key": "B9"}, http.StatusConflict, nil)
	s.call(t, http.MethodPost, base+"/scans", token,
		map[string]string{"location_code": "L1"}, http.StatusBadRequest, nil)

	var confirmation model.LocationConfirmation
	s.call(t, http.MethodPost, base+"/locations/L1/verify", token, nil, http.StatusOK, &confirmation)
	assert.Equal(t, 1, confirmation.MissingCreated)
	s.call(t, http.MethodPost, base+"/locations/L1/verify", token, nil, http.StatusConflict, nil)

	var stats model.DiscrepancyStats
	s.call(t, http.MethodGet, base+"/statistics", token, nil, http.StatusOK, &stats)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Open)

	// Closing is refused while discrepancies are open.
	var refused struct {
		Error   string   `json:"error"`
		Reasons []string `json:"reasons"`
	}
	s.call(t, http.MethodPost, base+"/close", token, nil, http.StatusConflict, &refused)
	assert.Equal(t, []string{"3 discrepancies not yet confirmed"}, refused.Reasons)

	var discrepancies []model.Discrepancy
	s.call(t, http.MethodGet, base+"/discrepancies", token, nil, http.StatusOK, &discrepancies)
	require.Len(t, discrepancies, 3)
	for _, d := range discrepancies {
		s.call(t, http.MethodPost, "/api/discrepancies/"+d.ID+"/confirm", token,
			map[string]string{"comment": "checked"}, http.StatusOK, nil)
	}

	var readiness model.ClosureReadiness
	s.call(t, http.MethodGet, base+"/readiness", token, nil, http.StatusOK, &readiness)
	assert.True(t, readiness.CanClose)

	var closed model.Cycle
	s.call(t, http.MethodPost, base+"/close", token, nil, http.StatusOK, &closed)
	assert.True(t, closed.Closed)

	s.call(t, http.MethodPost, base+"/scans", token,
		map[string]string{"location_code": "L1", "primary_key": "A2"}, http.StatusConflict, nil)

	var entries []model.AuditEntry
	s.call(t, http.MethodGet, "/api/audit?cycle_id="+cycle.ID+"&action=cycle_closed", token, nil, http.StatusOK, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ana", entries[0].ActorName)

	s.call(t, http.MethodGet, "/api/audit?action=bogus", token, nil, http.StatusBadRequest, nil)
}

func TestLocationsAndReopen(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Ana", model.RoleResponsible)

	var cycle model.Cycle
	s.call(t, http.MethodPost, "/api/cycles", token, nil, http.StatusCreated, &cycle)
	base := "/api/cycles/" + cycle.ID
	s.call(t, http.MethodPut, base+"/expected", token, map[string]any{
		"items": []map[string]string{{"primary_key": "M-1", "location_code": "L1", "room": "K1"}},
	}, http.StatusOK, nil)

	var summaries []model.LocationSummary
	s.call(t, http.MethodGet, base+"/locations", token, nil, http.StatusOK, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, "K1", summaries[0].Room)

	var items []model.LocationItem
	s.call(t, http.MethodGet, base+"/locations/L1", token, nil, http.StatusOK, &items)
	require.Len(t, items, 1)
	assert.False(t, items[0].Scanned)

	s.call(t, http.MethodDelete, base+"/locations/L1/verify", token, nil, http.StatusNotFound, nil)
	s.call(t, http.MethodPost, base+"/locations/L1/verify", token, nil, http.StatusOK, nil)
	s.call(t, http.MethodDelete, base+"/locations/L1/verify", token, nil, http.StatusNoContent, nil)
	s.call(t, http.MethodGet, "/api/cycles/nope/locations", token, nil, http.StatusNotFound, nil)
}

func TestUploadExpected(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Ana", model.RoleResponsible)

	var cycle model.Cycle
	s.call(t, http.MethodPost, "/api/cycles", token, nil, http.StatusCreated, &cycle)

	f := excelize.NewFile()
	rows := [][]any{
		{"Primärschlüssel", "Lagerplatz", "Raum"},
		{"M-1", "L1", "K1"},
		{"S-2", "L2", "K1"},
		{"", "L3", "K1"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "soll.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/cycles/"+cycle.ID+"/expected/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result importResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Line)

	var items []model.ExpectedItem
	s.call(t, http.MethodGet, "/api/cycles/"+cycle.ID+"/expected?location=L2", token, nil, http.StatusOK, &items)
	require.Len(t, items, 1)
	assert.Equal(t, model.CategorySubstance, items[0].Category)
}

func TestReportDownload(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Ana", model.RoleResponsible)

	var cycle model.Cycle
	s.call(t, http.MethodPost, "/api/cycles", token, nil, http.StatusCreated, &cycle)

	resp := s.do(t, http.MethodGet, "/api/cycles/"+cycle.ID+"/report.xlsx", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 2)

	s.call(t, http.MethodGet, "/api/cycles/nope/report.xlsx", token, nil, http.StatusNotFound, nil)
}

func TestDashboardAndActive(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Ana", model.RoleResponsible)

	s.call(t, http.MethodGet, "/api/cycles/active", token, nil, http.StatusNotFound, nil)

	var cycle model.Cycle
	s.call(t, http.MethodPost, "/api/cycles", token, nil, http.StatusCreated, &cycle)

	var active model.Cycle
	s.call(t, http.MethodGet, "/api/cycles/active", token, nil, http.StatusOK, &active)
	assert.Equal(t, cycle.ID, active.ID)

	var stats model.DashboardStats
	s.call(t, http.MethodGet, "/api/dashboard", token, nil, http.StatusOK, &stats)
	assert.Equal(t, 1, stats.OpenCycles)

	var cycles []model.Cycle
	s.call(t, http.MethodGet, "/api/cycles?limit=5", token, nil, http.StatusOK, &cycles)
	assert.Len(t, cycles, 1)
	s.call(t, http.MethodGet, "/api/cycles?limit=x", token, nil, http.StatusBadRequest, nil)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "Ana", model.RoleResponsible)
	s.call(t, http.MethodPost, "/api/cycles", token, nil, http.StatusCreated, nil)

	resp := s.do(t, http.MethodGet, "/metrics", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "inventura_cycles_created_total 1")
	assert.Contains(t, string(data), `inventura_http_requests_total{method="POST",route="POST /api/auth/select",status_code="200"} 1`)
}
