package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/trainlog/internal/auth"
	"github.com/2beens/trainlog/internal/middleware"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLoginChecker := NewMockChecker(ctrl)
	authMiddleware := middleware.NewAuthMiddlewareHandler(mockLoginChecker)

	testCases := []struct {
		name               string
		path               string
		method             string
		token              string
		expectedStatusCode int
		mockUserID         int
		mockErr            error
	}{
		{
			name:               "AllowedPathWithoutToken",
			path:               "/a/login",
			method:             "POST",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "MuscleGroupsWithoutToken",
			path:               "/api/muscle-groups",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "NotAllowedPathWithoutToken",
			path:               "/api/workouts",
			method:             "GET",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "ValidToken",
			path:               "/api/workouts",
			method:             "GET",
			token:              "valid-token",
			expectedStatusCode: http.StatusOK,
			mockUserID:         42,
		},
		{
			name:               "InvalidToken",
			path:               "/api/workouts",
			method:             "GET",
			token:              "invalid-token",
			expectedStatusCode: http.StatusUnauthorized,
			mockErr:            auth.ErrNotLoggedIn,
		},
		{
			name:               "OptionsPreflight",
			path:               "/api/workouts",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, tc.path, nil)
			assert.NoError(t, err)
			if tc.token != "" {
				req.Header.Add("X-TRAINLOG-TOKEN", tc.token)
				mockLoginChecker.EXPECT().
					LoggedUserID(gomock.Any(), tc.token).
					Return(tc.mockUserID, tc.mockErr).AnyTimes()
			}

			var gotUserID int
			var gotUserIDOk bool
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, gotUserIDOk = auth.UserIDFromContext(r.Context())
			})

			rr := httptest.NewRecorder()
			authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			if tc.token != "" && tc.mockErr == nil {
				assert.True(t, gotUserIDOk)
				assert.Equal(t, tc.mockUserID, gotUserID)
			}
		})
	}
}

// rejections carry the same JSON error body as the API handlers
func TestAuthMiddlewareHandler_AuthCheck_ErrorShape(t *testing.T) {
	loginChecker := auth.NewLoginTestChecker()
	loginChecker.LoggedSessions["valid-token"] = 42
	authMiddleware := middleware.NewAuthMiddlewareHandler(loginChecker)

	nextCalled := false
	handler := authMiddleware.AuthCheck()(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
		},
	))

	for _, token := range []string{"", "expired-token"} {
		req, err := http.NewRequest("GET", "/api/workouts", nil)
		assert.NoError(t, err)
		if token != "" {
			req.Header.Add("X-TRAINLOG-TOKEN", token)
		}

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"no can do"}`, rr.Body.String())
		assert.False(t, nextCalled)
	}

	req, err := http.NewRequest("GET", "/api/workouts", nil)
	assert.NoError(t, err)
	req.Header.Add("X-TRAINLOG-TOKEN", "valid-token")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, nextCalled)
}
