package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/service"
)

type testServer struct {
	handler http.Handler
	users   *service.UserService
	entries *service.EntryService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	userRepo := repository.NewUserRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	entries := service.NewEntryService(entryRepo, time.UTC, time.Sunday)
	users := service.NewUserService(userRepo)
	admin := service.NewAdminService(userRepo, entryRepo, repository.NewAdminLogRepository(db))

	srv := NewServer(entries, users, admin, []string{"http://localhost:5173"})
	return &testServer{handler: srv.Handler(), users: users, entries: entries}
}

// login registers a Telegram account and returns it with a fresh API token.
func (ts *testServer) login(t *testing.T, telegramID int64, admin bool) (*model.User, string) {
	t.Helper()
	ctx := context.Background()
	user, err := ts.users.Ensure(ctx, telegramID, "Test", "", "", admin)
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	token, err := ts.users.IssueToken(ctx, user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestRootAndHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("root status = %d", w.Code)
	}
	var root map[string]string
	decode(t, w, &root)
	if root["status"] != "OK" || root["message"] != "Daily Tracker API is running" {
		t.Fatalf("unexpected root body: %v", root)
	}

	w = ts.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != "healthy" {
		t.Fatalf("health = %d %q", w.Code, w.Body.String())
	}
}

func TestEntriesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, http.MethodGet, "/api/entries", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/entries", "not-a-token", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", w.Code)
	}
}

func TestCreateEntryRequiresTask(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(t, 1, false)

	w := ts.do(t, http.MethodPost, "/api/entries", token, map[string]interface{}{"description": "no task"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["error"] != "Task is required" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestEntryLifecycle(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(t, 1, false)
	_, strangerToken := ts.login(t, 2, false)

	w := ts.do(t, http.MethodPost, "/api/entries", token, map[string]interface{}{
		"task":        "Read",
		"description": "20 pages",
		"date":        "2026-02-09",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created model.Entry
	decode(t, w, &created)
	if created.Task != "Read" || created.Completed || created.Date.UTC().Day() != 9 {
		t.Fatalf("unexpected entry: %#v", created)
	}

	path := "/api/entries/" + strconv.FormatUint(uint64(created.ID), 10)
	if w := ts.do(t, http.MethodPut, path, strangerToken, map[string]interface{}{"completed": true}); w.Code != http.StatusNotFound {
		t.Fatalf("foreign update status = %d", w.Code)
	}

	w = ts.do(t, http.MethodPut, path, token, map[string]interface{}{"completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	var updated model.Entry
	decode(t, w, &updated)
	if !updated.Completed || updated.Description != "20 pages" {
		t.Fatalf("partial update lost fields: %#v", updated)
	}

	w = ts.do(t, http.MethodGet, "/api/entries", token, nil)
	var list []model.Entry
	decode(t, w, &list)
	if len(list) != 1 {
		t.Fatalf("list = %#v", list)
	}
	w = ts.do(t, http.MethodGet, "/api/entries", strangerToken, nil)
	decode(t, w, &list)
	if len(list) != 0 {
		t.Fatalf("stranger sees entries: %#v", list)
	}

	w = ts.do(t, http.MethodGet, "/api/entries/day/2026-02-09", token, nil)
	var day struct {
		Day     string `json:"day"`
		Entries []struct {
			Task string `json:"task"`
		} `json:"entries"`
	}
	decode(t, w, &day)
	if day.Day != "2026-02-09" || len(day.Entries) != 1 || day.Entries[0].Task != "Read" {
		t.Fatalf("unexpected day view: %+v", day)
	}

	w = ts.do(t, http.MethodDelete, path, token, nil)
	var msg map[string]string
	decode(t, w, &msg)
	if w.Code != http.StatusOK || msg["message"] != "Entry deleted" {
		t.Fatalf("delete = %d %v", w.Code, msg)
	}
	if w := ts.do(t, http.MethodDelete, path, token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", w.Code)
	}
}

func TestToggleAndSummary(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(t, 1, false)

	w := ts.do(t, http.MethodPost, "/api/entries/toggle", token, map[string]string{"task": "Gym"})
	var toggled struct {
		Task      string `json:"task"`
		Completed bool   `json:"completed"`
	}
	decode(t, w, &toggled)
	if w.Code != http.StatusOK || toggled.Task != "Gym" || !toggled.Completed {
		t.Fatalf("toggle = %d %+v", w.Code, toggled)
	}

	w = ts.do(t, http.MethodGet, "/api/entries/summary", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}
	var body struct {
		Summary struct {
			Tasks            []string `json:"tasks"`
			Streak           int      `json:"streak"`
			WeeklyCompletion int      `json:"weeklyCompletion"`
			Rows             []struct {
				Task     string `json:"task"`
				HasToday bool   `json:"hasToday"`
				Progress int    `json:"progress"`
			} `json:"rows"`
		} `json:"summary"`
		Marks []string `json:"marks"`
	}
	decode(t, w, &body)
	if body.Summary.Streak != 1 || body.Summary.WeeklyCompletion != 14 {
		t.Fatalf("unexpected summary: %+v", body.Summary)
	}
	if len(body.Summary.Rows) != 1 || !body.Summary.Rows[0].HasToday || body.Summary.Rows[0].Progress != 14 {
		t.Fatalf("unexpected rows: %+v", body.Summary.Rows)
	}
	if len(body.Marks) != 1 {
		t.Fatalf("unexpected marks: %v", body.Marks)
	}

	if w := ts.do(t, http.MethodPost, "/api/entries/toggle", token, map[string]string{"task": " "}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank toggle status = %d", w.Code)
	}
}

func TestDeleteTaskByQuery(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(t, 1, false)

	for _, date := range []string{"2026-02-09", "2026-02-10"} {
		w := ts.do(t, http.MethodPost, "/api/entries", token, map[string]string{"task": "Walk", "date": date})
		if w.Code != http.StatusCreated {
			t.Fatalf("create status = %d", w.Code)
		}
	}

	if w := ts.do(t, http.MethodDelete, "/api/entries", token, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing task status = %d", w.Code)
	}
	w := ts.do(t, http.MethodDelete, "/api/entries?task=Walk", token, nil)
	var body struct {
		Removed int `json:"removed"`
	}
	decode(t, w, &body)
	if w.Code != http.StatusOK || body.Removed != 2 {
		t.Fatalf("delete task = %d %+v", w.Code, body)
	}
	if w := ts.do(t, http.MethodDelete, "/api/entries?task=Walk", token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("repeat delete status = %d", w.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	admin, adminToken := ts.login(t, 1, true)
	user, userToken := ts.login(t, 2, false)

	if w := ts.do(t, http.MethodGet, "/api/admin/users", userToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d", w.Code)
	}

	w := ts.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	var users []model.User
	decode(t, w, &users)
	if w.Code != http.StatusOK || len(users) != 2 {
		t.Fatalf("list users = %d %#v", w.Code, users)
	}

	adminPath := "/api/admin/users/" + strconv.FormatUint(uint64(admin.ID), 10)
	userPath := "/api/admin/users/" + strconv.FormatUint(uint64(user.ID), 10)

	if w := ts.do(t, http.MethodPut, adminPath, adminToken, map[string]string{"role": "user"}); w.Code != http.StatusForbidden {
		t.Fatalf("self edit status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, userPath, adminToken, map[string]string{"role": "root"}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid role status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, "/api/admin/users/abc", adminToken, map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, "/api/admin/users/999", adminToken, map[string]string{"firstName": "X"}); w.Code != http.StatusNotFound {
		t.Fatalf("missing user status = %d", w.Code)
	}

	w = ts.do(t, http.MethodPut, userPath, adminToken, map[string]string{"firstName": "Renamed"})
	var updated model.User
	decode(t, w, &updated)
	if w.Code != http.StatusOK || updated.FirstName != "Renamed" || updated.Role != model.RoleUser {
		t.Fatalf("update = %d %#v", w.Code, updated)
	}

	if w := ts.do(t, http.MethodDelete, adminPath, adminToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("last admin delete status = %d", w.Code)
	}

	if w := ts.do(t, http.MethodPost, "/api/entries", userToken, map[string]string{"task": "Read"}); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	w = ts.do(t, http.MethodGet, "/api/admin/users/entries/"+strconv.FormatUint(uint64(user.ID), 10), adminToken, nil)
	var entries []model.Entry
	decode(t, w, &entries)
	if w.Code != http.StatusOK || len(entries) != 1 {
		t.Fatalf("user entries = %d %#v", w.Code, entries)
	}

	w = ts.do(t, http.MethodDelete, userPath, adminToken, nil)
	var msg map[string]string
	decode(t, w, &msg)
	if w.Code != http.StatusOK || msg["message"] != "User deleted successfully" {
		t.Fatalf("delete user = %d %v", w.Code, msg)
	}

	w = ts.do(t, http.MethodGet, "/api/admin/logs", adminToken, nil)
	var logs []model.AdminLog
	decode(t, w, &logs)
	if w.Code != http.StatusOK || len(logs) != 2 || logs[0].Action != model.ActionDeletedUser {
		t.Fatalf("logs = %d %#v", w.Code, logs)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/entries", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow credentials = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin = %d %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("request without origin = %d", w.Code)
	}
}

func TestAllowOrigins(t *testing.T) {
	got := allowOrigins([]string{"http://localhost:5173/", " https://tracker.example.com ", "tracker.example.com", ""})
	want := []string{"http://localhost:5173", "https://tracker.example.com"}
	if !slices.Equal(got, want) {
		t.Fatalf("allowOrigins = %v, want %v", got, want)
	}
	if corsMiddleware([]string{"not-an-origin"}) != nil {
		t.Fatal("expected no middleware without valid origins")
	}
}

func TestParseDate(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)

	got, err := parseDate("2026-02-09", berlin)
	if err != nil {
		t.Fatalf("plain day: %v", err)
	}
	if !got.Equal(time.Date(2026, 2, 9, 12, 0, 0, 0, berlin)) {
		t.Fatalf("plain day = %v", got)
	}

	got, err = parseDate("2026-02-09T23:30:00Z", berlin)
	if err != nil || !got.Equal(time.Date(2026, 2, 9, 23, 30, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339 = %v, %v", got, err)
	}

	if _, err := parseDate("yesterday", berlin); err == nil {
		t.Fatal("expected error")
	}
}
