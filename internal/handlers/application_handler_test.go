package handlers

import (
	"net/http"
	"testing"

	"task-marketplace-api/internal/marketplace"
	"task-marketplace-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectApplicationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.user("olivia", models.UserInstructor)
	_, devToken := s.user("dave", models.UserDeveloper)
	task := s.createTask(ownerToken, 10)
	app := s.apply(task.ID, devToken)

	w := s.do(http.MethodPost, "/api/applications/"+app.ID+"/reject", devToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/applications/"+app.ID+"/reject", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ApplicationRejected, decode[models.TaskApplication](t, w).Status)

	w = s.do(http.MethodGet, "/api/tasks/"+task.ID, ownerToken, nil)
	assert.Equal(t, models.StatusOpen, decode[models.Task](t, w).Status)

	w = s.do(http.MethodPost, "/api/applications/"+app.ID+"/accept", ownerToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, marketplace.CodeInvalidState, decode[errorBody](t, w).Code)
}

func TestWithdrawApplicationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.user("olivia", models.UserInstructor)
	_, devToken := s.user("dave", models.UserDeveloper)
	task := s.createTask(ownerToken, 10)
	app := s.apply(task.ID, devToken)

	w := s.do(http.MethodPost, "/api/applications/"+app.ID+"/withdraw", ownerToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/applications/"+app.ID+"/withdraw", devToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ApplicationWithdrawn, decode[models.TaskApplication](t, w).Status)

	w = s.do(http.MethodPost, "/api/applications/missing/withdraw", devToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
