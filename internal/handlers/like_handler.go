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

var errOwnMessage = errors.New("cannot like own message")

// LikeHandler handles like/unlike HTTP requests
type LikeHandler struct {
	likeRepository    repositories.LikeRepository
	messageRepository repositories.MessageRepository
	activity          activityRecorder
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, messageRepo repositories.MessageRepository, activityRepo repositories.ActivityRepository, logger *zap.SugaredLogger) *LikeHandler {
	return &LikeHandler{
		likeRepository:    likeRepo,
		messageRepository: messageRepo,
		activity:          activityRecorder{activities: activityRepo, logger: logger},
	}
}

// RegisterLikeRoutes registers the like forms
func (h *LikeHandler) RegisterLikeRoutes(e *echo.Echo) {
	e.POST("/messages/:id/like", h.Like, middleware.RequireLogin)
	e.POST("/messages/:id/unlike", h.Unlike, middleware.RequireLogin)
}

// RegisterAPILikeRoutes registers the JSON like endpoints
func (h *LikeHandler) RegisterAPILikeRoutes(g *echo.Group) {
	g.POST("/messages/:id/likes", h.LikeMessage)
	g.DELETE("/messages/:id/likes", h.UnlikeMessage)
}

// like records that userID likes messageID. Liking twice is a no-op.
func (h *LikeHandler) like(ctx context.Context, userID, messageID uint) error {
	message, err := h.messageRepository.GetMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.UserID == userID {
		return errOwnMessage
	}

	already, err := h.likeRepository.HasUserLikedMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}
	if err := h.likeRepository.CreateLike(ctx, userID, messageID); err != nil {
		return err
	}

	monitoring.LikesCreated.Inc()
	h.activity.record(ctx, models.ActivityLike, userID, message.UserID, message.ID)
	return nil
}

// Like handles the like button and returns to the page it was pressed on
func (h *LikeHandler) Like(c echo.Context) error {
	user := middleware.CurrentUser(c)
	messageID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	back := middleware.SafeRedirect(c, c.FormValue("location_from"), "/")
	err = h.like(c.Request().Context(), user.ID, messageID)
	switch {
	case errors.Is(err, errOwnMessage):
		return flashRedirect(c, middleware.FlashDanger, "You can't like your own warble.", back)
	case err != nil:
		return lookupError(err, "Message")
	}
	return c.Redirect(http.StatusFound, back)
}

// Unlike handles the unlike button. Unliking a message that is not liked is a no-op.
func (h *LikeHandler) Unlike(c echo.Context) error {
	user := middleware.CurrentUser(c)
	messageID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.likeRepository.DeleteLike(c.Request().Context(), user.ID, messageID); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, middleware.SafeRedirect(c, c.FormValue("location_from"), "/"))
}

// LikeMessage likes a message
func (h *LikeHandler) LikeMessage(c echo.Context) error {
	messageID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid message ID")
	}

	err = h.like(c.Request().Context(), getUserIDFromContext(c), messageID)
	switch {
	case errors.Is(err, errOwnMessage):
		return echo.NewHTTPError(http.StatusBadRequest, "You can't like your own warble.")
	case err != nil:
		return lookupError(err, "Message")
	}
	return c.JSON(http.StatusCreated, echo.Map{"liked": true})
}

// UnlikeMessage removes a like
func (h *LikeHandler) UnlikeMessage(c echo.Context) error {
	messageID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid message ID")
	}

	if err := h.likeRepository.DeleteLike(c.Request().Context(), getUserIDFromContext(c), messageID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": false})
}
