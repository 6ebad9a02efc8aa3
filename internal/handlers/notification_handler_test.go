package handlers

import (
	"net/http"
	"testing"

	"task-marketplace-api/internal/marketplace"
	"task-marketplace-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationsBody struct {
	Notifications []models.Notification
	Count         int
	Unread        int64
}

func TestNotifications_ListAndMarkRead(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.user("olivia", models.UserInstructor)
	_, devToken := s.user("dave", models.UserDeveloper)
	_, dev2Token := s.user("dina", models.UserDeveloper)
	task := s.createTask(ownerToken, 10)
	s.apply(task.ID, devToken)
	s.apply(task.ID, dev2Token)

	body := decode[notificationsBody](t, s.do(http.MethodGet, "/api/notifications", ownerToken, nil))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, int64(2), body.Unread)
	assert.Equal(t, "New Task Application", body.Notifications[0].Title)

	first := body.Notifications[0].ID
	w := s.do(http.MethodPost, "/api/notifications/"+first+"/read", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body = decode[notificationsBody](t, s.do(http.MethodGet, "/api/notifications?unread=true", ownerToken, nil))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, int64(1), body.Unread)

	// Another user's notification is not found for the caller.
	w = s.do(http.MethodPost, "/api/notifications/"+first+"/read", devToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, marketplace.CodeNotFound, decode[errorBody](t, w).Code)

	w = s.do(http.MethodPost, "/api/notifications/read-all", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[struct{ Marked int }](t, w).Marked)

	body = decode[notificationsBody](t, s.do(http.MethodGet, "/api/notifications", ownerToken, nil))
	assert.Equal(t, int64(0), body.Unread)
}
