package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2beens/trainlog/internal/auth"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testpass
const testPasswordHash = "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i"

type authServiceStub struct {
	sessions map[string]int
	nextID   int
}

func newAuthServiceStub() *authServiceStub {
	return &authServiceStub{
		sessions: make(map[string]int),
		nextID:   1,
	}
}

func (s *authServiceStub) Login(_ context.Context, userID int, _ time.Time) (string, error) {
	token := fmt.Sprintf("token-%d", s.nextID)
	s.nextID++
	s.sessions[token] = userID
	return token, nil
}

func (s *authServiceStub) Logout(_ context.Context, token string) (bool, error) {
	if _, ok := s.sessions[token]; !ok {
		return false, nil
	}
	delete(s.sessions, token)
	return true, nil
}

func newTestRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/a/register", handler.HandleRegister).Methods("POST")
	r.HandleFunc("/a/login", handler.HandleLogin).Methods("POST")
	r.HandleFunc("/a/logout", handler.HandleLogout).Methods("GET")
	r.HandleFunc("/api/profile", handler.HandleGetProfile).Methods("GET")
	r.HandleFunc("/api/profile", handler.HandleUpdateProfile).Methods("PUT")
	return r
}

func TestHandler_Register(t *testing.T) {
	repo := NewMockUsersRepo()
	handler := NewHandler(repo, newAuthServiceStub())
	router := newTestRouter(handler)

	body := `{"email":"serj@trainlog.test","name":"Serj","password":"testpass"}`
	req, err := http.NewRequest("POST", "/a/register", strings.NewReader(body))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var registered UserProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &registered))
	assert.Equal(t, 1, registered.ID)
	assert.Equal(t, "serj@trainlog.test", registered.Email)
	assert.True(t, registered.AllowFriendRequests)
	assert.False(t, registered.PublicProfile)
	// password hash stays server side
	assert.NotContains(t, rr.Body.String(), "password")

	// duplicate email
	req, err = http.NewRequest("POST", "/a/register", strings.NewReader(body))
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandler_Register_Validation(t *testing.T) {
	repo := NewMockUsersRepo()
	handler := NewHandler(repo, newAuthServiceStub())
	router := newTestRouter(handler)

	for _, body := range []string{
		`{"name":"Serj","password":"testpass"}`,
		`{"email":"serj@trainlog.test","password":"testpass"}`,
		`{"email":"serj@trainlog.test","name":"Serj"}`,
		`not json`,
	} {
		req, err := http.NewRequest("POST", "/a/register", strings.NewReader(body))
		require.NoError(t, err)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestHandler_LoginLogout(t *testing.T) {
	repo := NewMockUsersRepo()
	authService := newAuthServiceStub()
	handler := NewHandler(repo, authService)
	router := newTestRouter(handler)

	_, err := repo.Add(context.Background(), UserProfile{
		Email: "serj@trainlog.test", Name: "Serj", PasswordHash: testPasswordHash,
	})
	require.NoError(t, err)

	// wrong password
	req, err := http.NewRequest("POST", "/a/login",
		strings.NewReader(`{"email":"serj@trainlog.test","password":"wrongpass"}`))
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// unknown email
	req, err = http.NewRequest("POST", "/a/login",
		strings.NewReader(`{"email":"nobody@trainlog.test","password":"testpass"}`))
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// valid login
	req, err = http.NewRequest("POST", "/a/login",
		strings.NewReader(`{"email":"serj@trainlog.test","password":"testpass"}`))
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var loginResp LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Token)
	assert.Equal(t, 1, authService.sessions[loginResp.Token])

	// logout
	req, err = http.NewRequest("GET", "/a/logout", nil)
	require.NoError(t, err)
	req.Header.Set("X-TRAINLOG-TOKEN", loginResp.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, authService.sessions, loginResp.Token)

	// logout again, session gone
	req, err = http.NewRequest("GET", "/a/logout", nil)
	require.NoError(t, err)
	req.Header.Set("X-TRAINLOG-TOKEN", loginResp.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_Profile(t *testing.T) {
	repo := NewMockUsersRepo()
	handler := NewHandler(repo, newAuthServiceStub())
	router := newTestRouter(handler)

	added, err := repo.Add(context.Background(), UserProfile{
		Email: "serj@trainlog.test", Name: "Serj", PasswordHash: testPasswordHash,
	})
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "/api/profile", nil)
	require.NoError(t, err)
	req = req.WithContext(auth.ContextWithUserID(context.Background(), added.ID))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var profile UserProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "Serj", profile.Name)

	// update name and visibility
	updateBody := `{"name":"Serj T","publicProfile":true,"allowFriendRequests":false}`
	req, err = http.NewRequest("PUT", "/api/profile", strings.NewReader(updateBody))
	require.NoError(t, err)
	req = req.WithContext(auth.ContextWithUserID(context.Background(), added.ID))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	updated, err := repo.Get(context.Background(), added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Serj T", updated.Name)
	assert.True(t, updated.PublicProfile)
	assert.False(t, updated.AllowFriendRequests)
}

func TestHandler_Profile_NoSession(t *testing.T) {
	repo := NewMockUsersRepo()
	handler := NewHandler(repo, newAuthServiceStub())
	router := newTestRouter(handler)

	req, err := http.NewRequest("GET", "/api/profile", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
