package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/warbler/internal/middleware"
	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/labstack/echo/v4"
)

// notificationsLimit is how many activities the notifications page shows
const notificationsLimit = 50

// ActivityView is an activity with the user who caused it. Actor is nil once that account is gone.
type ActivityView struct {
	models.Activity
	Actor *models.User
}

// NotificationHandler lists follow and like activity
type NotificationHandler struct {
	activityRepository repositories.ActivityRepository
	userRepository     repositories.UserRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(activityRepo repositories.ActivityRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		activityRepository: activityRepo,
		userRepository:     userRepo,
	}
}

// RegisterNotificationRoutes registers the notifications page
func (h *NotificationHandler) RegisterNotificationRoutes(e *echo.Echo) {
	e.GET("/notifications", h.ListNotifications, middleware.RequireLogin)
}

// ListNotifications shows the newest activities addressed to the current user
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	user := middleware.CurrentUser(c)
	ctx := c.Request().Context()

	activities, err := h.activityRepository.GetByRecipientID(ctx, user.ID, notificationsLimit)
	if err != nil {
		return err
	}

	actors := make(map[uint]*models.User)
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		actor, seen := actors[a.ActorID]
		if !seen {
			actor, err = h.userRepository.GetUserByID(ctx, a.ActorID)
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			actors[a.ActorID] = actor
		}
		views = append(views, ActivityView{Activity: a, Actor: actor})
	}

	return render(c, http.StatusOK, "notifications.html", echo.Map{"Activities": views})
}
