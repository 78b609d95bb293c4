//go:build integration_test || all_tests

package integration_testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/2beens/trainlog/internal/catalog"
	"github.com/2beens/trainlog/internal/friends"
	"github.com/2beens/trainlog/internal/users"
	"github.com/2beens/trainlog/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) request(
	method, path, token string,
	body any,
) (int, []byte) {
	t := s.T()
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, serverEndpoint+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Origin", "test")
	if token != "" {
		req.Header.Set("X-TRAINLOG-TOKEN", token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) registerAndLogin(email, name, password string) string {
	t := s.T()
	t.Helper()

	status, _ := s.request("POST", "/a/register", "", map[string]string{
		"email": email, "name": name, "password": password,
	})
	require.Equal(t, http.StatusCreated, status)

	status, respBytes := s.request("POST", "/a/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, status)

	var loginResp users.LoginResponse
	require.NoError(t, json.Unmarshal(respBytes, &loginResp))
	require.NotEmpty(t, loginResp.Token)

	return loginResp.Token
}

func (s *IntegrationTestSuite) TestServerLifecycle() {
	t := s.T()

	status, respBytes := s.request("GET", "/", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "I'm OK, thanks ;)", string(respBytes))

	status, respBytes = s.request("GET", "/version", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "test-version-info", string(respBytes))

	// muscle groups are public
	status, respBytes = s.request("GET", "/api/muscle-groups", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(respBytes), "chest")

	// workouts are not
	status, _ = s.request("GET", "/api/workouts", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func (s *IntegrationTestSuite) TestWorkoutsAndCatalog() {
	t := s.T()

	token := s.registerAndLogin(gofakeit.Email(), gofakeit.Name(), "testpass")

	// add a couple of workouts on the same day
	addWorkout := func(exerciseName string, reps int, weight float64) workouts.Workout {
		status, respBytes := s.request("POST", "/api/workouts", token, map[string]any{
			"date":         "2024-03-01",
			"muscleGroup":  "chest",
			"exerciseName": exerciseName,
			"reps":         reps,
			"weight":       weight,
		})
		require.Equal(t, http.StatusCreated, status)
		var added workouts.Workout
		require.NoError(t, json.Unmarshal(respBytes, &added))
		return added
	}

	first := addWorkout("bench press", 5, 80)
	addWorkout("bench press", 5, 85)
	addWorkout("incline press", 10, 30)

	// day view groups the sets and marks the top set
	status, respBytes := s.request("GET", "/api/workouts/day/2024-03-01", token, nil)
	require.Equal(t, http.StatusOK, status)

	var dayView workouts.DayView
	require.NoError(t, json.Unmarshal(respBytes, &dayView))
	require.Len(t, dayView.Groups, 2)
	require.Len(t, dayView.Groups[0].Sets, 2)
	require.True(t, dayView.Groups[0].Sets[1].IsTopSet)
	require.Equal(t, 825+300, int(dayView.TotalVolume))

	// statistics over the range
	status, respBytes = s.request("GET", "/api/statistics?start_date=2024-03-01&end_date=2024-03-31", token, nil)
	require.Equal(t, http.StatusOK, status)

	var stats []workouts.MuscleGroupStats
	require.NoError(t, json.Unmarshal(respBytes, &stats))
	require.Len(t, stats, 1)
	require.Equal(t, "chest", stats[0].MuscleGroup)
	require.Equal(t, 3, stats[0].WorkoutCount)
	require.Equal(t, 20, stats[0].TotalReps)

	// update and delete
	status, _ = s.request("PUT", fmt.Sprintf("/api/workouts/%d", first.ID), token, map[string]any{
		"date":         "2024-03-01",
		"muscleGroup":  "chest",
		"exerciseName": "bench press",
		"reps":         6,
		"weight":       80,
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.request("DELETE", fmt.Sprintf("/api/workouts/%d", first.ID), token, nil)
	require.Equal(t, http.StatusOK, status)

	// catalog: add, duplicate conflict, reorder
	status, respBytes = s.request("POST", "/api/exercises", token, map[string]string{
		"muscleGroup": "chest", "name": "bench press",
	})
	require.Equal(t, http.StatusCreated, status)

	var benchPress catalog.Exercise
	require.NoError(t, json.Unmarshal(respBytes, &benchPress))
	require.Equal(t, "0001", benchPress.ItemCode)

	status, _ = s.request("POST", "/api/exercises", token, map[string]string{
		"muscleGroup": "chest", "name": "bench press",
	})
	require.Equal(t, http.StatusConflict, status)

	status, respBytes = s.request("POST", "/api/exercises", token, map[string]string{
		"muscleGroup": "chest", "name": "incline press",
	})
	require.Equal(t, http.StatusCreated, status)

	var inclinePress catalog.Exercise
	require.NoError(t, json.Unmarshal(respBytes, &inclinePress))

	status, _ = s.request("POST", "/api/exercises/order", token, map[string][]int{
		"ids": {inclinePress.ID, benchPress.ID},
	})
	require.Equal(t, http.StatusOK, status)

	status, respBytes = s.request("GET", "/api/exercises/chest", token, nil)
	require.Equal(t, http.StatusOK, status)

	var chestCatalog []catalog.Exercise
	require.NoError(t, json.Unmarshal(respBytes, &chestCatalog))
	require.Len(t, chestCatalog, 2)
	require.Equal(t, inclinePress.ID, chestCatalog[0].ID)
}

func (s *IntegrationTestSuite) TestFriendsFlow() {
	t := s.T()

	emailA := gofakeit.Email()
	emailB := gofakeit.Email()
	tokenA := s.registerAndLogin(emailA, "Ana", "testpass")
	tokenB := s.registerAndLogin(emailB, "Bojan", "testpass")

	// A befriends B
	status, respBytes := s.request("POST", "/api/friends/requests", tokenA, map[string]string{
		"email": emailB,
	})
	require.Equal(t, http.StatusCreated, status)

	var request friends.FriendRequest
	require.NoError(t, json.Unmarshal(respBytes, &request))

	status, _ = s.request("POST", fmt.Sprintf("/api/friends/requests/%d/accept", request.ID), tokenB, nil)
	require.Equal(t, http.StatusOK, status)

	status, respBytes = s.request("GET", "/api/friends", tokenA, nil)
	require.Equal(t, http.StatusOK, status)

	var friendsOfA []friends.FriendEdge
	require.NoError(t, json.Unmarshal(respBytes, &friendsOfA))
	require.Len(t, friendsOfA, 1)
	require.Equal(t, "Bojan", friendsOfA[0].FriendName)

	// B logs a public workout, A sees it in the feed
	status, _ = s.request("POST", "/api/workouts", tokenB, map[string]any{
		"date":         "2024-03-02",
		"muscleGroup":  "legs",
		"exerciseName": "squat",
		"reps":         5,
		"weight":       100,
		"isPublic":     true,
	})
	require.Equal(t, http.StatusCreated, status)

	status, respBytes = s.request("GET", "/api/friends/feed", tokenA, nil)
	require.Equal(t, http.StatusOK, status)

	var feed []friends.FeedItem
	require.NoError(t, json.Unmarshal(respBytes, &feed))
	require.Len(t, feed, 1)
	require.Equal(t, "Bojan", feed[0].UserName)
	require.Equal(t, "squat", feed[0].ExerciseName)

	// repair pass on a consistent graph is a no-op
	status, respBytes = s.request("POST", "/api/friends/repair", tokenA, nil)
	require.Equal(t, http.StatusOK, status)

	var repair friends.RepairResponse
	require.NoError(t, json.Unmarshal(respBytes, &repair))
	require.Zero(t, repair.Repaired)

	// remove the friendship, both directions gone
	status, respBytes = s.request("DELETE", fmt.Sprintf("/api/friends/%d", friendsOfA[0].FriendID), tokenA, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, `{"removed":2}`, string(respBytes))

	// logout invalidates the session
	status, _ = s.request("GET", "/a/logout", tokenA, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.request("GET", "/api/friends", tokenA, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}
