package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolbooking/internal/config"
	"schoolbooking/internal/database"
)

type testResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *errorDetail           `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type suite struct {
	app        *App
	adminToken string
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Auth.JWTSecret = "test_secret_key_32_characters_min"
	cfg.Auth.TokenTTL = "1h"
	cfg.Auth.LoginPerMinute = 1000
	cfg.Auth.LoginBurst = 1000
	cfg.School.Timezone = "UTC"
	cfg.HTTP.CORSAllowedOrigins = []string{"http://localhost:3000"}
	return cfg
}

func setupSuite(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Connect(dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	app := New(Options{Config: testConfig(), DB: db, Logger: zerolog.Nop()})
	t.Cleanup(app.Hub.Close)

	_, err = app.Users.CreateAdmin(context.Background(), "Admin", "admin@school.test", "adminpass123")
	require.NoError(t, err)

	s := &suite{app: app}
	s.adminToken = s.login(t, "admin@school.test", "adminpass123")
	return s
}

func (s *suite) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, *testResponse) {
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
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var resp testResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, &resp
}

func (s *suite) login(t *testing.T, email, password string) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return resp.Data["token"].(string)
}

func (s *suite) register(t *testing.T, name, email string) (string, int64) {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": name, "email": email, "password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := resp.Data["user"].(map[string]interface{})
	return resp.Data["token"].(string), int64(user["id"].(float64))
}

func (s *suite) createResource(t *testing.T, name string, tags ...string) int64 {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/resources", map[string]interface{}{
		"name":      name,
		"type":      "Laboratório",
		"location":  "Bloco B",
		"capacity":  25,
		"equipment": "Projetor, Microscópios",
		"tags":      tags,
	}, s.adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return id(resp.Data["resource"])
}

func id(v interface{}) int64 {
	return int64(v.(map[string]interface{})["id"].(float64))
}

// nextSchoolDay is the next Monday to Friday at least two days out.
func nextSchoolDay() string {
	d := time.Now().UTC().AddDate(0, 0, 2)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func TestHealth(t *testing.T) {
	s := setupSuite(t)

	w, _ := s.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestFlow_RegistrationAndAuth(t *testing.T) {
	s := setupSuite(t)

	token, _ := s.register(t, "Ana Souza", "ana@school.test")

	w, resp := s.do(t, http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	me := resp.Data["user"].(map[string]interface{})
	assert.Equal(t, "ana@school.test", me["email"])
	assert.Equal(t, "user", me["role"])
	assert.Equal(t, "https://i.pravatar.cc/150?u=ana@school.test", me["avatar_url"])
	assert.NotContains(t, w.Body.String(), "password")

	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "Ana Again", "email": "ANA@school.test", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_EXISTS", resp.Error.Code)

	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ana@school.test", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFlow_Resources(t *testing.T) {
	s := setupSuite(t)
	userToken, _ := s.register(t, "Bruno", "bruno@school.test")

	w, _ := s.do(t, http.MethodPost, "/api/v1/resources", map[string]interface{}{
		"name": "Sala 1", "type": "Sala", "location": "Bloco A", "capacity": 30,
	}, userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := s.do(t, http.MethodPost, "/api/v1/resources", map[string]interface{}{
		"name": "ab", "type": "Sala", "location": "Bloco A", "capacity": 0,
	}, s.adminToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	labID := s.createResource(t, "Laboratório de Química", "Laboratório", "Estudo")
	s.createResource(t, "Auditório", "Audiovisual")

	w, resp = s.do(t, http.MethodGet, "/api/v1/resources?tags=Laboratório,Estudo", nil, userToken)
	require.Equal(t, http.StatusOK, w.Code)
	list := resp.Data["resources"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, float64(labID), list[0].(map[string]interface{})["id"])
	assert.Equal(t, []interface{}{"Projetor", "Microscópios"}, list[0].(map[string]interface{})["equipment"])

	w, resp = s.do(t, http.MethodGet, "/api/v1/resources/tags", nil, userToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"Audiovisual", "Estudo", "Laboratório"}, resp.Data["tags"])

	w, _ = s.do(t, http.MethodGet, "/api/v1/resources/9999", nil, userToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlow_ReservationConflicts(t *testing.T) {
	s := setupSuite(t)
	anaToken, _ := s.register(t, "Ana", "ana@school.test")
	brunoToken, _ := s.register(t, "Bruno", "bruno@school.test")
	labID := s.createResource(t, "Laboratório 1", "Laboratório")
	day := nextSchoolDay()

	book := func(token, start, end string) (*httptest.ResponseRecorder, *testResponse) {
		return s.do(t, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
			"resource_id": labID, "date": day, "start_time": start, "end_time": end, "purpose": "Aula",
		}, token)
	}

	w, resp := book(anaToken, "08:20", "09:10")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	anaRes := resp.Data["reservation"].(map[string]interface{})
	assert.Equal(t, "confirmed", anaRes["status"])
	assert.Equal(t, "Laboratório 1", anaRes["resource_name"])
	anaResID := int64(anaRes["id"].(float64))

	w, resp = book(brunoToken, "08:50", "09:30")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RESERVATION_CONFLICT", resp.Error.Code)
	details := resp.Error.Details.(map[string]interface{})
	assert.Equal(t, float64(anaResID), details["reservation_id"])

	// touching the end of Ana's slot is fine
	w, _ = book(brunoToken, "09:10", "10:00")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp = book(brunoToken, "06:00", "07:00")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	w, resp = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/resources/%d/availability?date=%s", labID, day), nil, brunoToken)
	require.Equal(t, http.StatusOK, w.Code)
	blocks := resp.Data["blocks"].([]interface{})
	require.Len(t, blocks, 9)
	assert.Equal(t, true, blocks[0].(map[string]interface{})["available"])
	assert.Equal(t, false, blocks[1].(map[string]interface{})["available"])
	assert.Len(t, resp.Data["busy"], 2)

	// Bruno cannot see or touch Ana's reservation
	w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d", anaResID), nil, brunoToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/cancel", anaResID), nil, brunoToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.do(t, http.MethodGet, "/api/v1/reservations", nil, brunoToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data["reservations"], 1)

	w, resp = s.do(t, http.MethodGet, "/api/v1/reservations", nil, s.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data["reservations"], 2)

	// once cancelled the slot is free again, the same exact interval included
	w, resp = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/cancel", anaResID), nil, anaToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", resp.Data["reservation"].(map[string]interface{})["status"])

	w, resp = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/cancel", anaResID), nil, anaToken)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", resp.Error.Code)

	w, _ = book(brunoToken, "08:20", "09:10")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestFlow_ReservationUpdate(t *testing.T) {
	s := setupSuite(t)
	anaToken, _ := s.register(t, "Ana", "ana@school.test")
	labID := s.createResource(t, "Laboratório 1")
	salaID := s.createResource(t, "Sala 2")
	day := nextSchoolDay()

	w, resp := s.do(t, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
		"resource_id": labID, "date": day, "start_time": "10:20", "end_time": "11:10",
	}, anaToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resID := id(resp.Data["reservation"])

	w, resp = s.do(t, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
		"resource_id": salaID, "date": day, "start_time": "10:20", "end_time": "11:10",
	}, s.adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// shifting inside its own slot does not collide with itself
	w, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/reservations/%d", resID), map[string]interface{}{
		"start_time": "10:40", "end_time": "11:30",
	}, anaToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// moving onto the admin's booking does
	w, resp = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/reservations/%d", resID), map[string]interface{}{
		"resource_id": salaID,
	}, anaToken)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RESERVATION_CONFLICT", resp.Error.Code)

	w, _ = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/reservations/%d/status", resID), map[string]string{"status": "cancelled"}, anaToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/reservations/%d/status", resID), map[string]string{"status": "cancelada"}, s.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", resp.Data["reservation"].(map[string]interface{})["status"])

	w, _ = s.do(t, http.MethodGet, "/api/v1/reservations/export?status=all", nil, s.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())

	w, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", resID), nil, s.adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d", resID), nil, s.adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlow_Settings(t *testing.T) {
	s := setupSuite(t)
	userToken, _ := s.register(t, "Ana", "ana@school.test")

	w, resp := s.do(t, http.MethodGet, "/api/v1/settings", nil, userToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "07:30", resp.Data["start_time"])

	body := map[string]interface{}{
		"start_time":          "08:00",
		"end_time":            "12:00",
		"class_block_minutes": 45,
		"operating_days":      []int{1, 2, 3, 4, 5, 6},
		"class_blocks":        []map[string]string{{"start_time": "08:00", "end_time": "08:45"}},
		"breaks":              []map[string]string{},
		"resource_tags":       []string{"Sala"},
	}
	w, _ = s.do(t, http.MethodPut, "/api/v1/settings", body, userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	body["end_time"] = "25:00"
	w, resp = s.do(t, http.MethodPut, "/api/v1/settings", body, s.adminToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error.Details, "end_time")

	body["end_time"] = "12:00"
	w, resp = s.do(t, http.MethodPut, "/api/v1/settings", body, s.adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "08:00", resp.Data["start_time"])

	w, resp = s.do(t, http.MethodGet, "/api/v1/settings", nil, userToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data["class_blocks"], 1)
	assert.Equal(t, []interface{}{}, resp.Data["breaks"])
}

func TestFlow_UserAdministration(t *testing.T) {
	s := setupSuite(t)
	anaToken, anaID := s.register(t, "Ana", "ana@school.test")
	_, brunoID := s.register(t, "Bruno", "bruno@school.test")
	labID := s.createResource(t, "Laboratório 1")

	w, _ := s.do(t, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
		"resource_id": labID, "user_id": brunoID, "date": nextSchoolDay(), "start_time": "13:20", "end_time": "14:10",
	}, s.adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp := s.do(t, http.MethodGet, "/api/v1/users", nil, s.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data["users"], 3)

	w, resp = s.do(t, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Carla", "email": "carla@school.test", "password": "password123", "role": "admin",
	}, s.adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	carlaID := id(resp.Data["user"])

	// admins cannot change another admin's password, users can change their own
	w, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d/password", carlaID), map[string]string{"new_password": "newpassword1"}, s.adminToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d/password", anaID), map[string]string{
		"current_password": "password123", "new_password": "newpassword1",
	}, anaToken)
	require.Equal(t, http.StatusOK, w.Code)
	s.login(t, "ana@school.test", "newpassword1")

	w, resp = s.do(t, http.MethodPost, "/api/v1/users/reset-password", map[string]string{"email": "ana@school.test"}, s.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	s.login(t, "ana@school.test", resp.Data["temporary_password"].(string))

	me, _ := s.app.JWT.ValidateToken(s.adminToken)
	w, resp = s.do(t, http.MethodPost, "/api/v1/users/bulk-delete", map[string]interface{}{"ids": []int64{brunoID, me.UserID}}, s.adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "OPERATION_NOT_ALLOWED", resp.Error.Code)

	w, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", brunoID), nil, s.adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	// Bruno's reservation went with him
	w, resp = s.do(t, http.MethodGet, "/api/v1/reservations?status=all", nil, s.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Data["reservations"])
}
