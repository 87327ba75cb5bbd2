package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/warbler/internal/middleware"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/labstack/echo/v4"
)

const (
	defaultAPITimelineLimit = 20
)

// FeedHandler serves the home timeline
type FeedHandler struct {
	profileLoader
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	userRepo repositories.UserRepository,
	messageRepo repositories.MessageRepository,
	followRepo repositories.FollowRepository,
	likeRepo repositories.LikeRepository,
) *FeedHandler {
	return &FeedHandler{profileLoader{users: userRepo, messages: messageRepo, follows: followRepo, likes: likeRepo}}
}

// RegisterFeedRoutes registers the home page
func (h *FeedHandler) RegisterFeedRoutes(e *echo.Echo) {
	e.GET("/", h.Home)
}

// RegisterAPIFeedRoutes registers the JSON timeline
func (h *FeedHandler) RegisterAPIFeedRoutes(g *echo.Group) {
	g.GET("/timeline", h.GetTimeline)
}

// timelineUserIDs are the authors shown on userID's timeline: everyone they follow plus themselves
func (h *FeedHandler) timelineUserIDs(c echo.Context, userID uint) ([]uint, error) {
	ids, err := h.follows.GetFollowingIDs(c.Request().Context(), userID)
	if err != nil {
		return nil, err
	}
	return append(ids, userID), nil
}

// Home shows the timeline to logged in users and the landing page to everyone else
func (h *FeedHandler) Home(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return render(c, http.StatusOK, "home-anon.html", nil)
	}
	ctx := c.Request().Context()

	ids, err := h.timelineUserIDs(c, user.ID)
	if err != nil {
		return err
	}
	messages, err := h.messages.GetTimeline(ctx, ids, messagesPerPage)
	if err != nil {
		return err
	}
	stats, err := h.stats(ctx, user.ID)
	if err != nil {
		return err
	}
	liked, err := h.likedIDs(ctx, user)
	if err != nil {
		return err
	}

	return render(c, http.StatusOK, "home.html", echo.Map{
		"Messages": messages,
		"Stats":    stats,
		"LikedIDs": liked,
	})
}

// GetTimeline returns the caller's timeline as JSON
func (h *FeedHandler) GetTimeline(c echo.Context) error {
	userID := getUserIDFromContext(c)

	limit := defaultAPITimelineLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > repositories.TimelineLimit {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
		}
		limit = n
	}

	ids, err := h.timelineUserIDs(c, userID)
	if err != nil {
		return err
	}
	messages, err := h.messages.GetTimeline(c.Request().Context(), ids, limit)
	if err != nil {
		return err
	}
	views, err := toMessageViews(c.Request().Context(), h.likes, userID, messages)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": views})
}
