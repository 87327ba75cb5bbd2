package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/warbler/internal/middleware"
	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/anonto42/warbler/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// maxImageSize caps profile image uploads
const maxImageSize = 5 << 20

// ImageStore uploads profile images and returns their public URL
type ImageStore interface {
	PutImage(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// UserHandler handles profile pages and account management
type UserHandler struct {
	profileLoader
	activityRepository repositories.ActivityRepository
	images             ImageStore
	logger             *zap.SugaredLogger
}

// NewUserHandler creates a new UserHandler. images may be nil.
func NewUserHandler(
	userRepo repositories.UserRepository,
	messageRepo repositories.MessageRepository,
	followRepo repositories.FollowRepository,
	likeRepo repositories.LikeRepository,
	activityRepo repositories.ActivityRepository,
	images ImageStore,
	logger *zap.SugaredLogger,
) *UserHandler {
	return &UserHandler{
		profileLoader:      profileLoader{users: userRepo, messages: messageRepo, follows: followRepo, likes: likeRepo},
		activityRepository: activityRepo,
		images:             images,
		logger:             logger,
	}
}

// RegisterUserRoutes registers the profile pages
func (h *UserHandler) RegisterUserRoutes(e *echo.Echo) {
	e.GET("/users", h.ListUsers)

	loggedIn := middleware.RequireLogin
	e.GET("/users/profile", h.EditProfile, loggedIn)
	e.POST("/users/profile", h.EditProfile, loggedIn)
	if h.images != nil {
		e.POST("/users/profile/image", h.UploadImage, loggedIn)
	}
	e.POST("/users/delete", h.DeleteUser, loggedIn)
	e.GET("/users/:id/following", h.ShowFollowing, loggedIn)
	e.GET("/users/:id/followers", h.ShowFollowers, loggedIn)
	e.GET("/users/:id/likes", h.ShowLikes, loggedIn)
	e.GET("/users/:id", h.ShowUser)
}

// RegisterAPIUserRoutes registers the JSON user endpoints
func (h *UserHandler) RegisterAPIUserRoutes(g *echo.Group) {
	g.GET("/me", h.GetMe)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/messages", h.GetUserMessages)
}

// ListUsers lists everyone, or the users whose name contains ?q=
func (h *UserHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	query := strings.TrimSpace(c.QueryParam("q"))

	var (
		users []models.User
		err   error
	)
	if query == "" {
		users, err = h.users.GetUsers(ctx)
	} else {
		users, err = h.users.SearchUsers(ctx, query)
	}
	if err != nil {
		return err
	}

	following, err := h.followingIDs(ctx, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, "users/index.html", echo.Map{
		"Users":        users,
		"Query":        query,
		"FollowingIDs": following,
	})
}

// ShowUser shows a profile with the user's latest messages
func (h *UserHandler) ShowUser(c echo.Context) error {
	data, err := h.profile(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user := data["User"].(*models.User)

	messages, err := h.messages.GetMessagesByUserID(ctx, user.ID, messagesPerPage)
	if err != nil {
		return err
	}
	liked, err := h.likedIDs(ctx, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	data["Messages"] = messages
	data["LikedIDs"] = liked
	return render(c, http.StatusOK, "users/show.html", data)
}

// ShowFollowing lists the users :id follows
func (h *UserHandler) ShowFollowing(c echo.Context) error {
	return h.showUserList(c, "users/following.html", h.follows.GetFollowing)
}

// ShowFollowers lists the users following :id
func (h *UserHandler) ShowFollowers(c echo.Context) error {
	return h.showUserList(c, "users/followers.html", h.follows.GetFollowers)
}

func (h *UserHandler) showUserList(c echo.Context, page string, list func(context.Context, uint) ([]models.User, error)) error {
	data, err := h.profile(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user := data["User"].(*models.User)

	users, err := list(ctx, user.ID)
	if err != nil {
		return err
	}
	following, err := h.followingIDs(ctx, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	data["Users"] = users
	data["FollowingIDs"] = following
	return render(c, http.StatusOK, page, data)
}

// ShowLikes lists the messages :id liked
func (h *UserHandler) ShowLikes(c echo.Context) error {
	data, err := h.profile(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user := data["User"].(*models.User)

	messages, err := h.likes.GetLikedMessages(ctx, user.ID)
	if err != nil {
		return err
	}
	liked, err := h.likedIDs(ctx, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	data["Messages"] = messages
	data["LikedIDs"] = liked
	return render(c, http.StatusOK, "users/likes.html", data)
}

// EditProfile shows and processes the profile form. The current password confirms the change.
func (h *UserHandler) EditProfile(c echo.Context) error {
	user := middleware.CurrentUser(c)

	if c.Request().Method == http.MethodGet {
		form := models.UpdateProfileForm{
			Username:       user.Username,
			Email:          user.Email,
			ImageURL:       user.ImageURL,
			HeaderImageURL: user.HeaderImageURL,
			Bio:            user.Bio,
			Location:       user.Location,
		}
		return h.renderEdit(c, form, nil)
	}

	var form models.UpdateProfileForm
	if err := c.Bind(&form); err != nil {
		return h.renderEdit(c, form, []string{"Invalid form submission"})
	}
	if err := c.Validate(&form); err != nil {
		return h.renderEdit(c, form, validators.Messages(err))
	}

	if !user.CheckPassword(form.Password) {
		return flashRedirect(c, middleware.FlashDanger, "Wrong password, please try again.", "/")
	}

	updated := *user
	updated.Username = form.Username
	updated.Email = form.Email
	updated.ImageURL = form.ImageURL
	updated.HeaderImageURL = form.HeaderImageURL
	updated.Bio = form.Bio
	updated.Location = form.Location
	updated.ApplyImageDefaults()

	err := h.users.UpdateUser(c.Request().Context(), &updated)
	if msg := takenMessage(err); msg != "" {
		if err := middleware.Flash(c, middleware.FlashDanger, msg); err != nil {
			return err
		}
		return h.renderEdit(c, form, nil)
	} else if err != nil {
		return err
	}

	return c.Redirect(http.StatusFound, userPath(user.ID))
}

func (h *UserHandler) renderEdit(c echo.Context, form models.UpdateProfileForm, errs []string) error {
	form.Password = ""
	return render(c, http.StatusOK, "users/edit.html", echo.Map{
		"Form":           form,
		"Errors":         errs,
		"UploadsEnabled": h.images != nil,
	})
}

// UploadImage stores an uploaded avatar or header image and points the profile at it
func (h *UserHandler) UploadImage(c echo.Context) error {
	user := middleware.CurrentUser(c)

	kind := c.FormValue("kind")
	if kind != "avatar" && kind != "header" {
		return flashRedirect(c, middleware.FlashDanger, "Unknown image kind.", "/users/profile")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return flashRedirect(c, middleware.FlashDanger, "Please choose an image to upload.", "/users/profile")
	}
	contentType := file.Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, "image/") {
		return flashRedirect(c, middleware.FlashDanger, "Only image files can be uploaded.", "/users/profile")
	}
	if file.Size > maxImageSize {
		return flashRedirect(c, middleware.FlashDanger, "Images must be smaller than 5 MB.", "/users/profile")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	url, err := h.images.PutImage(c.Request().Context(), file.Filename, src, file.Size, contentType)
	if err != nil {
		h.logger.Errorf("Failed to upload image for user %d: %v", user.ID, err)
		return flashRedirect(c, middleware.FlashDanger, "Upload failed, please try again.", "/users/profile")
	}

	updated := *user
	if kind == "avatar" {
		updated.ImageURL = url
	} else {
		updated.HeaderImageURL = url
	}
	if err := h.users.UpdateUser(c.Request().Context(), &updated); err != nil {
		return err
	}
	return flashRedirect(c, middleware.FlashSuccess, "Image updated.", userPath(user.ID))
}

// DeleteUser removes the current account and everything it owns
func (h *UserHandler) DeleteUser(c echo.Context) error {
	user := middleware.CurrentUser(c)
	ctx := c.Request().Context()

	if err := h.users.DeleteUser(ctx, user.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if err := h.activityRepository.DeleteByUserID(ctx, user.ID); err != nil {
		h.logger.Errorf("Failed to delete activity of user %d: %v", user.ID, err)
	}

	if err := middleware.LogoutUser(c); err != nil {
		return err
	}
	return flashRedirect(c, middleware.FlashSuccess, "Your account has been deleted.", "/signup")
}

// GetMe returns the caller's public profile
func (h *UserHandler) GetMe(c echo.Context) error {
	user, err := h.users.GetUserByID(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return lookupError(err, "User")
	}
	return c.JSON(http.StatusOK, user.ToCompact())
}

// GetUser returns a user's public profile with counters
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	ctx := c.Request().Context()

	user, err := h.users.GetUserByID(ctx, id)
	if err != nil {
		return lookupError(err, "User")
	}
	stats, err := h.stats(ctx, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":      user.ToCompact(),
		"bio":       user.Bio,
		"location":  user.Location,
		"messages":  stats.Messages,
		"following": stats.Following,
		"followers": stats.Followers,
		"likes":     stats.Likes,
	})
}

// GetUserMessages returns a user's latest messages
func (h *UserHandler) GetUserMessages(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	ctx := c.Request().Context()

	if _, err := h.users.GetUserByID(ctx, id); err != nil {
		return lookupError(err, "User")
	}
	messages, err := h.messages.GetMessagesByUserID(ctx, id, messagesPerPage)
	if err != nil {
		return err
	}
	views, err := toMessageViews(ctx, h.likes, getUserIDFromContext(c), messages)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": views})
}

func userPath(id uint) string {
	return "/users/" + strconv.FormatUint(uint64(id), 10)
}
