package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/db"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/migrations"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/prefill"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/rates"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/seed"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/store"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "correct-horse"
)

var testNow = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

type testServer struct {
	srv     *server
	handler http.Handler
	cookie  *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, migrations.Up(database))
	_, err = seed.Run(database, seed.Config{
		AdminEmail:    testAdminEmail,
		AdminPassword: testAdminPassword,
		Demo:          true,
	}, zap.NewNop())
	require.NoError(t, err)

	now := func() time.Time { return testNow }
	srv := &server{
		auth:        newAuthService(database, "test-secret"),
		store:       store.New(database),
		sessions:    newSessionRegistry(now),
		recommender: prefill.New(rates.Default(), prefill.DefaultHoursPerSubject),
		logger:      zap.NewNop(),
		now:         now,
	}

	return &testServer{
		srv:     srv,
		handler: srv.routes(),
		cookie:  srv.auth.sessionCookie(testAdminEmail),
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doAs(t, ts.cookie, method, path, body)
}

func (ts *testServer) doAs(t *testing.T, cookie *http.Cookie, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// createWizard opens a wizard for the demo client and returns its id.
func (ts *testServer) createWizard(t *testing.T) string {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/wizard", `{"client_id":"demo-client","return_context":"/clients/demo-client"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[wizardResponse](t, rec).ID
}

// fillValid drives the wizard through every step with two subjects at 30/h for
// 8 hours each, instructor pay 22/h and charges 2.5/h.
func (ts *testServer) fillValid(t *testing.T, id string) {
	t.Helper()

	steps := []struct {
		method, path, body string
	}{
		{http.MethodPatch, "/wizard/" + id + "/step/2", `{"family_selected":true,"selected_subject_ids":["math","physics"]}`},
		{http.MethodPatch, "/wizard/" + id + "/rates/math", `{"hourly_rate":30,"quantity":8,"instructor_pay":22}`},
		{http.MethodPatch, "/wizard/" + id + "/rates/physics", `{"hourly_rate":30,"quantity":8,"instructor_pay":22}`},
		{http.MethodPatch, "/wizard/" + id + "/step/3", `{"charges":2.5,"payment_method":"check"}`},
	}
	for _, s := range steps {
		rec := ts.do(t, s.method, s.path, s.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s %s: %s", s.method, s.path, rec.Body.String())
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
