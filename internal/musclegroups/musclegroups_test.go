package musclegroups

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	all := All()
	require.Len(t, all, 6)

	ids := make(map[string]bool)
	for _, mg := range all {
		assert.NotEmpty(t, mg.Name)
		assert.NotEmpty(t, mg.Color)
		ids[mg.ID] = true
	}

	for _, id := range []string{"chest", "shoulders", "arms", "back", "legs", "core"} {
		assert.True(t, ids[id], id)
		assert.True(t, Valid(id), id)
	}
	assert.False(t, Valid("wings"))
}

func TestHandler_List(t *testing.T) {
	handler := NewHandler()

	req, err := http.NewRequest(http.MethodGet, "/api/muscle-groups", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler.HandleList(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var listed []MuscleGroup
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Equal(t, All(), listed)
}
