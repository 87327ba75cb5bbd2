package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/warbler/internal/middleware"
	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/monitoring"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/anonto42/warbler/validators"
	"github.com/labstack/echo/v4"
)

// MessageHandler handles warble HTTP requests
type MessageHandler struct {
	messageRepository repositories.MessageRepository
	likeRepository    repositories.LikeRepository
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageRepo repositories.MessageRepository, likeRepo repositories.LikeRepository) *MessageHandler {
	return &MessageHandler{
		messageRepository: messageRepo,
		likeRepository:    likeRepo,
	}
}

// RegisterMessageRoutes registers the message pages
func (h *MessageHandler) RegisterMessageRoutes(e *echo.Echo) {
	e.GET("/messages/new", h.NewMessage, middleware.RequireLogin)
	e.POST("/messages/new", h.NewMessage, middleware.RequireLogin)
	e.GET("/messages/:id", h.ShowMessage)
	e.POST("/messages/:id/delete", h.DeleteMessage, middleware.RequireLogin)
}

// RegisterAPIMessageRoutes registers the JSON message endpoints
func (h *MessageHandler) RegisterAPIMessageRoutes(g *echo.Group) {
	g.POST("/messages", h.CreateMessage, middleware.EnforceJSON)
	g.GET("/messages/:id", h.GetMessage)
	g.DELETE("/messages/:id", h.RemoveMessage)
}

// NewMessage shows and processes the new message form
func (h *MessageHandler) NewMessage(c echo.Context) error {
	var form models.MessageForm
	if c.Request().Method == http.MethodGet {
		return render(c, http.StatusOK, "messages/new.html", echo.Map{"Form": form})
	}

	if err := c.Bind(&form); err != nil {
		return render(c, http.StatusOK, "messages/new.html", echo.Map{"Form": form, "Errors": []string{"Invalid form submission"}})
	}
	if err := c.Validate(&form); err != nil {
		return render(c, http.StatusOK, "messages/new.html", echo.Map{"Form": form, "Errors": validators.Messages(err)})
	}

	user := middleware.CurrentUser(c)
	message := &models.Message{Text: form.Text, UserID: user.ID}
	if err := h.messageRepository.CreateMessage(c.Request().Context(), message); err != nil {
		return err
	}
	monitoring.MessagesPosted.Inc()

	return c.Redirect(http.StatusFound, userPath(user.ID))
}

// ShowMessage shows a single message
func (h *MessageHandler) ShowMessage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	message, err := h.messageRepository.GetMessageByID(ctx, id)
	if err != nil {
		return lookupError(err, "Message")
	}
	count, err := h.likeRepository.GetLikesCountByMessageID(ctx, message.ID)
	if err != nil {
		return err
	}

	liked := false
	if user := middleware.CurrentUser(c); user != nil {
		if liked, err = h.likeRepository.HasUserLikedMessage(ctx, user.ID, message.ID); err != nil {
			return err
		}
	}

	return render(c, http.StatusOK, "messages/show.html", echo.Map{
		"Message":   message,
		"LikeCount": count,
		"IsLiked":   liked,
	})
}

// DeleteMessage deletes a message owned by the current user
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	message, err := h.messageRepository.GetMessageByID(ctx, id)
	if err != nil {
		return lookupError(err, "Message")
	}
	if message.UserID != user.ID {
		return flashRedirect(c, middleware.FlashDanger, "Access unauthorized.", "/")
	}

	if err := h.messageRepository.DeleteMessage(ctx, message.ID); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, userPath(user.ID))
}

// CreateMessage posts a message as the API caller
func (h *MessageHandler) CreateMessage(c echo.Context) error {
	var req models.MessageForm
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return validators.HTTPError(err)
	}

	ctx := c.Request().Context()
	message := &models.Message{Text: req.Text, UserID: getUserIDFromContext(c)}
	if err := h.messageRepository.CreateMessage(ctx, message); err != nil {
		return err
	}
	monitoring.MessagesPosted.Inc()

	views, err := toMessageViews(ctx, h.likeRepository, message.UserID, []models.Message{*message})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, views[0])
}

// GetMessage returns a single message
func (h *MessageHandler) GetMessage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid message ID")
	}
	ctx := c.Request().Context()

	message, err := h.messageRepository.GetMessageByID(ctx, id)
	if err != nil {
		return lookupError(err, "Message")
	}
	views, err := toMessageViews(ctx, h.likeRepository, getUserIDFromContext(c), []models.Message{*message})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views[0])
}

// RemoveMessage deletes a message owned by the API caller
func (h *MessageHandler) RemoveMessage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid message ID")
	}
	ctx := c.Request().Context()

	message, err := h.messageRepository.GetMessageByID(ctx, id)
	if err != nil {
		return lookupError(err, "Message")
	}
	if message.UserID != getUserIDFromContext(c) {
		return echo.NewHTTPError(http.StatusForbidden, "Access unauthorized.")
	}

	err = h.messageRepository.DeleteMessage(ctx, message.ID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
