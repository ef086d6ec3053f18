package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manifestun/internal/middleware"
	"manifestun/internal/models"
)

func workbookRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithSession(req.Context(), middleware.Session{WhopUserID: "user_1", AccessToken: "tok"})
	return req.WithContext(ctx)
}

func TestSaveProgressValidation(t *testing.T) {
	st := newFakeStore()
	st.addUser("user_1", 3)
	h := NewWorkbookHandler(st)

	cases := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"phase zero", `{"phase":0,"exercise_key":"ex1"}`},
		{"phase too high", `{"phase":11,"exercise_key":"ex1"}`},
		{"missing exercise key", `{"phase":3}`},
		{"blank exercise key", `{"phase":3,"exercise_key":"  "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress", tc.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, st.progress, "rejected before any write")
}

func TestSaveProgressUpserts(t *testing.T) {
	st := newFakeStore()
	user := st.addUser("user_1", 3)
	h := NewWorkbookHandler(st)

	rec := httptest.NewRecorder()
	h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress",
		`{"phase":5,"exercise_key":"vision-board","data":{"answer":"a studio"},"completed":false}`))
	require.Equal(t, http.StatusOK, rec.Code)

	key := progressKey(user.ID, 5, "vision-board")
	saved := st.progress[key]
	require.NotNil(t, saved)
	assert.False(t, saved.Completed)
	assert.Nil(t, saved.CompletedAt)
	assert.Equal(t, models.JSONMap{"answer": "a studio"}, saved.Data)

	// Re-saving the same triple overwrites in place, never duplicates.
	rec = httptest.NewRecorder()
	h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress",
		`{"phase":5,"exercise_key":"vision-board","data":{"answer":"a bigger studio"},"completed":true}`))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, st.progress, 1)
	saved = st.progress[key]
	assert.True(t, saved.Completed)
	assert.NotNil(t, saved.CompletedAt)
	assert.Equal(t, models.JSONMap{"answer": "a bigger studio"}, saved.Data)
}

func TestSaveCompletingCurrentPhaseAdvances(t *testing.T) {
	st := newFakeStore()
	user := st.addUser("user_1", 3)
	st.advanceResult = true
	h := NewWorkbookHandler(st)

	rec := httptest.NewRecorder()
	h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress",
		`{"phase":3,"exercise_key":"ex3","completed":true}`))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, st.advanceCalls, 1)
	assert.Equal(t, advanceCall{userID: user.ID, phase: 3}, st.advanceCalls[0])
	assert.Equal(t, 4, st.users["user_1"].CurrentPhase)

	var resp struct {
		CurrentPhase int `json:"current_phase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.CurrentPhase)
}

func TestSaveNonCurrentPhaseNeverAdvances(t *testing.T) {
	st := newFakeStore()
	st.addUser("user_1", 3)
	st.advanceResult = true
	h := NewWorkbookHandler(st)

	rec := httptest.NewRecorder()
	h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress",
		`{"phase":5,"exercise_key":"ex1","completed":true}`))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, st.advanceCalls, "future-phase saves trigger no advance check")
	assert.Equal(t, 3, st.users["user_1"].CurrentPhase)
}

func TestSaveIncompleteNeverAdvances(t *testing.T) {
	st := newFakeStore()
	st.addUser("user_1", 3)
	st.advanceResult = true
	h := NewWorkbookHandler(st)

	rec := httptest.NewRecorder()
	h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress",
		`{"phase":3,"exercise_key":"ex1","completed":false}`))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, st.advanceCalls)
}

func TestSaveAdvanceCheckFailureStillSucceeds(t *testing.T) {
	st := newFakeStore()
	st.addUser("user_1", 3)
	st.advanceErr = errors.New("db hiccup")
	h := NewWorkbookHandler(st)

	rec := httptest.NewRecorder()
	h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress",
		`{"phase":3,"exercise_key":"ex1","completed":true}`))

	assert.Equal(t, http.StatusOK, rec.Code, "the save already succeeded")

	var resp struct {
		CurrentPhase int `json:"current_phase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.CurrentPhase)
}

func TestSaveUpsertFailure(t *testing.T) {
	st := newFakeStore()
	st.addUser("user_1", 3)
	st.upsertProgressErr = errors.New("db down")
	h := NewWorkbookHandler(st)

	rec := httptest.NewRecorder()
	h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress",
		`{"phase":3,"exercise_key":"ex1","completed":true}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, st.advanceCalls, "no advance attempt after a failed upsert")
}

func TestSaveUnknownUser(t *testing.T) {
	st := newFakeStore()
	h := NewWorkbookHandler(st)

	rec := httptest.NewRecorder()
	h.Save(rec, workbookRequest(http.MethodPost, "/api/workbook/progress",
		`{"phase":1,"exercise_key":"ex1"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProgress(t *testing.T) {
	st := newFakeStore()
	user := st.addUser("user_1", 2)
	h := NewWorkbookHandler(st)

	for _, body := range []string{
		`{"phase":1,"exercise_key":"ex1","completed":true}`,
		`{"phase":2,"exercise_key":"ex1","completed":false}`,
	} {
		h.Save(httptest.NewRecorder(), workbookRequest(http.MethodPost, "/api/workbook/progress", body))
	}

	rec := httptest.NewRecorder()
	h.List(rec, workbookRequest(http.MethodGet, "/api/workbook/progress?phase=1", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data         []models.WorkbookProgress `json:"data"`
		CurrentPhase int                       `json:"current_phase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, user.ID, resp.Data[0].UserID)
	assert.Equal(t, 1, resp.Data[0].Phase)
	assert.Equal(t, 2, resp.CurrentPhase)

	rec = httptest.NewRecorder()
	h.List(rec, workbookRequest(http.MethodGet, "/api/workbook/progress", ""))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}
