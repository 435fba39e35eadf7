package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
)

type NotificationStore interface {
	ListForUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID uint64) error
}

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	Notifications NotificationStore
	Log           *zap.Logger
}

func NewNotificationHandler(n NotificationStore, log *zap.Logger) *NotificationHandler {
	if n == nil {
		panic("nil repository passed to NewNotificationHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationHandler{Notifications: n, Log: log}
}

// List answers GET /v1/notifications?unread=&limit=, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	unread, _ := strconv.ParseBool(c.QueryParam("unread"))
	limit := queryInt(c, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Notifications.ListForUser(ctx, uid, unread, limit)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]notificationView, len(items))
	for i, n := range items {
		out[i] = newNotificationView(n)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// MarkRead answers POST /v1/notifications/:id/read. Another user's
// notification is reported as not found.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid notification id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id, uid); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
