package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/warbler/internal/middleware"
	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// csrfContextKey is where echo's CSRF middleware leaves the token
const csrfContextKey = "csrf"

// messagesPerPage caps the message lists on HTML pages
const messagesPerPage = repositories.TimelineLimit

// UserStats are the counters shown on profile pages
type UserStats struct {
	Messages  int64
	Following int64
	Followers int64
	Likes     int64
}

// render executes page with the values every template expects
func render(c echo.Context, status int, page string, data echo.Map) error {
	if data == nil {
		data = echo.Map{}
	}
	data["CurrentUser"] = middleware.CurrentUser(c)
	data["Flashes"] = middleware.PopFlashes(c)
	data["Path"] = c.Request().URL.RequestURI()
	if token, ok := c.Get(csrfContextKey).(string); ok {
		data["CSRF"] = token
	}
	for _, key := range []string{"LikedIDs", "FollowingIDs"} {
		if _, ok := data[key]; !ok {
			data[key] = map[uint]bool{}
		}
	}
	return c.Render(status, page, data)
}

// flashRedirect queues a flash and redirects to location
func flashRedirect(c echo.Context, category, msg, location string) error {
	if err := middleware.Flash(c, category, msg); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, location)
}

// parseID reads a numeric path parameter; malformed ids are reported as missing pages
func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	return uint(id), nil
}

// getUserIDFromContext returns the id of the API caller, or 0
func getUserIDFromContext(c echo.Context) uint {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}

// lookupError maps repository errors to HTTP errors
func lookupError(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return err
}

func toSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// profileLoader gathers the data shared by all profile pages
type profileLoader struct {
	users    repositories.UserRepository
	messages repositories.MessageRepository
	follows  repositories.FollowRepository
	likes    repositories.LikeRepository
}

func (p profileLoader) stats(ctx context.Context, userID uint) (UserStats, error) {
	var (
		s   UserStats
		err error
	)
	if s.Messages, err = p.messages.GetMessagesCount(ctx, userID); err != nil {
		return s, err
	}
	if s.Following, err = p.follows.GetFollowingCount(ctx, userID); err != nil {
		return s, err
	}
	if s.Followers, err = p.follows.GetFollowersCount(ctx, userID); err != nil {
		return s, err
	}
	s.Likes, err = p.likes.GetLikesCountByUserID(ctx, userID)
	return s, err
}

// likedIDs returns the ids of messages the viewer liked; anonymous viewers liked nothing
func (p profileLoader) likedIDs(ctx context.Context, viewer *models.User) (map[uint]bool, error) {
	if viewer == nil {
		return map[uint]bool{}, nil
	}
	ids, err := p.likes.GetLikedMessageIDs(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

func (p profileLoader) followingIDs(ctx context.Context, viewer *models.User) (map[uint]bool, error) {
	if viewer == nil {
		return map[uint]bool{}, nil
	}
	ids, err := p.follows.GetFollowingIDs(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

// profile loads the user shown on /users/:id and friends
func (p profileLoader) profile(c echo.Context) (echo.Map, error) {
	ctx := c.Request().Context()
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	user, err := p.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "User")
	}
	stats, err := p.stats(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	data := echo.Map{"User": user, "Stats": stats, "IsFollowing": false}
	if viewer := middleware.CurrentUser(c); viewer != nil && viewer.ID != user.ID {
		following, err := p.follows.IsFollowing(ctx, viewer.ID, user.ID)
		if err != nil {
			return nil, err
		}
		data["IsFollowing"] = following
	}
	return data, nil
}

// activityRecorder stores notifications without failing the request that caused them
type activityRecorder struct {
	activities repositories.ActivityRepository
	logger     *zap.SugaredLogger
}

func (r activityRecorder) record(ctx context.Context, activityType string, actorID, recipientID, messageID uint) {
	if r.activities == nil {
		return
	}
	err := r.activities.CreateActivity(ctx, &models.Activity{
		Type:        activityType,
		ActorID:     actorID,
		RecipientID: recipientID,
		MessageID:   messageID,
	})
	if err != nil {
		r.logger.Errorf("Failed to record %s activity: %v", activityType, err)
	}
}

// toMessageViews builds the JSON shape of messages as seen by viewerID
func toMessageViews(ctx context.Context, likes repositories.LikeRepository, viewerID uint, messages []models.Message) ([]models.MessageView, error) {
	liked := map[uint]bool{}
	if viewerID != 0 {
		ids, err := likes.GetLikedMessageIDs(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		liked = toSet(ids)
	}

	views := make([]models.MessageView, 0, len(messages))
	for _, m := range messages {
		count, err := likes.GetLikesCountByMessageID(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, models.MessageView{
			ID:        m.ID,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Author:    m.User.ToCompact(),
			LikeCount: count,
			IsLiked:   liked[m.ID],
		})
	}
	return views, nil
}
