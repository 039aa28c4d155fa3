package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ActorHeader carries the staff member performing a mutating operation
const ActorHeader = "X-Actor-ID"

// actorContextKey is the echo context key the parsed actor ID is stored under
const actorContextKey = "actor_id"

// problemDetails represents an RFC 7807 Problem Details response
type problemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

const (
	errorTypeActorRequired     = "https://kredo.app/errors/actor-required"
	errorTypeRateLimitExceeded = "https://kredo.app/errors/rate-limit-exceeded"
)

// RequireActor parses the X-Actor-ID header and stores it on the context.
// Mutating endpoints mount it so every state change is attributable to a
// staff member.
func RequireActor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(ActorHeader)
			if header == "" {
				return actorRequiredError(c, "X-Actor-ID header is required")
			}

			actorID, err := strconv.ParseInt(header, 10, 32)
			if err != nil || actorID <= 0 {
				return actorRequiredError(c, "X-Actor-ID must be a positive integer")
			}

			c.Set(actorContextKey, int32(actorID))
			return next(c)
		}
	}
}

// GetActorID returns the actor ID stored by RequireActor, or 0 when absent
func GetActorID(c echo.Context) int32 {
	if actorID, ok := c.Get(actorContextKey).(int32); ok {
		return actorID
	}
	return 0
}

func actorRequiredError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, problemDetails{
		Type:     errorTypeActorRequired,
		Title:    "Actor Required",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}
