package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/warbler/internal/middleware"
	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/monitoring"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var errSelfFollow = errors.New("cannot follow yourself")

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	activity         activityRecorder
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, activityRepo repositories.ActivityRepository, logger *zap.SugaredLogger) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		activity:         activityRecorder{activities: activityRepo, logger: logger},
	}
}

// RegisterFollowRoutes registers the follow forms
func (h *FollowHandler) RegisterFollowRoutes(e *echo.Echo) {
	e.POST("/users/follow/:follow_id", h.Follow, middleware.RequireLogin)
	e.POST("/users/stop-following/:follow_id", h.StopFollowing, middleware.RequireLogin)
}

// RegisterAPIFollowRoutes registers the JSON follow endpoints
func (h *FollowHandler) RegisterAPIFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
}

// follow makes followerID follow followedID. Following twice is a no-op.
func (h *FollowHandler) follow(ctx context.Context, followerID, followedID uint) error {
	if followerID == followedID {
		return errSelfFollow
	}
	if _, err := h.userRepository.GetUserByID(ctx, followedID); err != nil {
		return err
	}

	already, err := h.followRepository.IsFollowing(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}
	if err := h.followRepository.CreateFollow(ctx, followerID, followedID); err != nil {
		return err
	}

	monitoring.FollowsCreated.Inc()
	h.activity.record(ctx, models.ActivityFollow, followerID, followedID, 0)
	return nil
}

// Follow handles the follow button
func (h *FollowHandler) Follow(c echo.Context) error {
	user := middleware.CurrentUser(c)
	targetID, err := parseID(c, "follow_id")
	if err != nil {
		return err
	}

	err = h.follow(c.Request().Context(), user.ID, targetID)
	switch {
	case errors.Is(err, errSelfFollow):
		return flashRedirect(c, middleware.FlashDanger, "You can't follow yourself.", userPath(user.ID))
	case err != nil:
		return lookupError(err, "User")
	}
	return c.Redirect(http.StatusFound, userPath(user.ID)+"/following")
}

// StopFollowing handles the unfollow button
func (h *FollowHandler) StopFollowing(c echo.Context) error {
	user := middleware.CurrentUser(c)
	targetID, err := parseID(c, "follow_id")
	if err != nil {
		return err
	}

	if err := h.followRepository.DeleteFollow(c.Request().Context(), user.ID, targetID); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, userPath(user.ID)+"/following")
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	targetID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	err = h.follow(c.Request().Context(), currentUserID, targetID)
	switch {
	case errors.Is(err, errSelfFollow):
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	case err != nil:
		return lookupError(err, "User")
	}
	return c.JSON(http.StatusOK, echo.Map{"following": true})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	targetID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if err := h.followRepository.DeleteFollow(c.Request().Context(), currentUserID, targetID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"following": false})
}
