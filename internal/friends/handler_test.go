package friends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2beens/trainlog/internal/auth"
	"github.com/2beens/trainlog/internal/workouts"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/friends", handler.HandleListFriends).Methods("GET")
	r.HandleFunc("/api/friends/requests", handler.HandleListRequests).Methods("GET")
	r.HandleFunc("/api/friends/requests", handler.HandleSendRequest).Methods("POST")
	r.HandleFunc("/api/friends/requests/{id}/accept", handler.HandleAcceptRequest).Methods("POST")
	r.HandleFunc("/api/friends/requests/{id}/reject", handler.HandleRejectRequest).Methods("POST")
	r.HandleFunc("/api/friends/repair", handler.HandleRepair).Methods("POST")
	r.HandleFunc("/api/friends/feed", handler.HandleFeed).Methods("GET")
	r.HandleFunc("/api/friends/{friendID}", handler.HandleRemoveFriend).Methods("DELETE")
	return r
}

func requestWithUser(t *testing.T, userID int, method, target, body string) *http.Request {
	t.Helper()
	var bodyReader *strings.Reader
	if body == "" {
		bodyReader = strings.NewReader("")
	} else {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, bodyReader)
	require.NoError(t, err)
	return req.WithContext(auth.ContextWithUserID(context.Background(), userID))
}

func TestHandler_SendAndListRequests(t *testing.T) {
	repo := NewMockFriendsRepo()
	service := newTestService(repo, newTestProfiles(), nil)
	router := newTestRouter(NewHandler(service))

	// send
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1,
		"POST", "/api/friends/requests", `{"email":"mila@trainlog.test"}`))
	require.Equal(t, http.StatusCreated, rr.Code)

	var added FriendRequest
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Equal(t, RequestStatusPending, added.Status)

	// duplicate
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1,
		"POST", "/api/friends/requests", `{"email":"mila@trainlog.test"}`))
	assert.Equal(t, http.StatusConflict, rr.Code)

	// unknown email
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1,
		"POST", "/api/friends/requests", `{"email":"nobody@trainlog.test"}`))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// target opted out
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1,
		"POST", "/api/friends/requests", `{"email":"hermit@trainlog.test"}`))
	assert.Equal(t, http.StatusConflict, rr.Code)

	// empty email
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "POST", "/api/friends/requests", `{}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// addressee sees it as pending
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 2, "GET", "/api/friends/requests", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	var pending []FriendRequest
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, added.ID, pending[0].ID)

	// the sender has no pending requests addressed to them
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "GET", "/api/friends/requests", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestHandler_SendRequest_NoSession(t *testing.T) {
	repo := NewMockFriendsRepo()
	service := newTestService(repo, newTestProfiles(), nil)
	router := newTestRouter(NewHandler(service))

	req, err := http.NewRequest("POST", "/api/friends/requests",
		strings.NewReader(`{"email":"mila@trainlog.test"}`))
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_AcceptRejectRemove(t *testing.T) {
	ctx := context.Background()
	repo := NewMockFriendsRepo()
	service := newTestService(repo, newTestProfiles(), nil)
	router := newTestRouter(NewHandler(service))

	added, err := service.SendRequest(ctx, 1, "mila@trainlog.test")
	require.NoError(t, err)

	// accept by somebody else
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 3,
		"POST", fmt.Sprintf("/api/friends/requests/%d/accept", added.ID), ""))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// accept by the addressee
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 2,
		"POST", fmt.Sprintf("/api/friends/requests/%d/accept", added.ID), ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, fmt.Sprintf(`{"acceptedId":%d}`, added.ID), rr.Body.String())

	// accept again
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 2,
		"POST", fmt.Sprintf("/api/friends/requests/%d/accept", added.ID), ""))
	assert.Equal(t, http.StatusConflict, rr.Code)

	// both friend lists populated
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "GET", "/api/friends", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	var edges []FriendEdge
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &edges))
	require.Len(t, edges, 1)
	assert.Equal(t, "Mila", edges[0].FriendName)

	// remove the friendship
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "DELETE", "/api/friends/2", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"removed":2}`, rr.Body.String())

	// removing again still succeeds
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "DELETE", "/api/friends/2", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"removed":0}`, rr.Body.String())

	// reject path
	milaToSerj, err := service.SendRequest(ctx, 2, "serj@trainlog.test")
	require.NoError(t, err)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1,
		"POST", fmt.Sprintf("/api/friends/requests/%d/reject", milaToSerj.ID), ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, fmt.Sprintf(`{"rejectedId":%d}`, milaToSerj.ID), rr.Body.String())

	req, err := repo.GetRequest(ctx, milaToSerj.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestStatusRejected, req.Status)
}

func TestHandler_Repair(t *testing.T) {
	ctx := context.Background()
	repo := NewMockFriendsRepo()
	service := newTestService(repo, newTestProfiles(), nil)
	router := newTestRouter(NewHandler(service))

	added, err := service.SendRequest(ctx, 1, "mila@trainlog.test")
	require.NoError(t, err)

	repo.addEdgeErrOnCall = 2
	require.Error(t, service.Accept(ctx, 2, added.ID))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "POST", "/api/friends/repair", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	var repair RepairResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &repair))
	assert.Equal(t, 1, repair.Repaired)

	// consistent graph, nothing to do
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "POST", "/api/friends/repair", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &repair))
	assert.Zero(t, repair.Repaired)
}

func TestHandler_Feed(t *testing.T) {
	ctx := context.Background()
	repo := NewMockFriendsRepo()
	feedSource := &workoutsStub{
		workouts: []workouts.Workout{
			{ID: 10, UserID: 2, Day: "2024-03-02", MuscleGroup: "chest", ExerciseName: "bench press", Reps: 5, Weight: workouts.Kilos(80), IsPublic: true},
		},
	}
	service := newTestService(repo, newTestProfiles(), feedSource)
	router := newTestRouter(NewHandler(service))

	added, err := service.SendRequest(ctx, 1, "mila@trainlog.test")
	require.NoError(t, err)
	require.NoError(t, service.Accept(ctx, 2, added.ID))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "GET", "/api/friends/feed", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	var feed []FeedItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, "Mila", feed[0].UserName)
	assert.Equal(t, "bench press", feed[0].ExerciseName)

	// bad limit
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "GET", "/api/friends/feed?limit=abc", ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithUser(t, 1, "GET", "/api/friends/feed?limit=-2", ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
