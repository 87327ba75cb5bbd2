package monitoring

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warbler_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	LoginSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warbler_login_success_total",
		Help: "Total successful login attempts",
	})

	LoginFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_login_failure_total",
		Help: "Total failed login attempts",
	}, []string{"reason"})

	SignupSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warbler_signup_total",
		Help: "Total successful signups",
	})

	MessagesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warbler_messages_posted_total",
		Help: "Total messages successfully posted",
	})

	LikesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warbler_likes_total",
		Help: "Total messages liked",
	})

	FollowsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warbler_follows_total",
		Help: "Total follows created",
	})
)

// login failure reasons
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonLockedOut          = "locked_out"
	ReasonInvalidForm        = "invalid_form"
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(LoginSuccess)
	prometheus.MustRegister(LoginFailure)
	prometheus.MustRegister(SignupSuccess)
	prometheus.MustRegister(MessagesPosted)
	prometheus.MustRegister(LikesCreated)
	prometheus.MustRegister(FollowsCreated)
}

// Instrument records request timing and status code, labelled by route pattern
func Instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else if !c.Response().Committed {
				status = http.StatusInternalServerError
			}
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the prometheus exposition format
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
