package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techfemme/academy/backend/go-services/internal/guard"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/session"
	"github.com/techfemme/academy/backend/go-services/pkg/logger"
	"github.com/techfemme/academy/backend/go-services/pkg/metrics"
)

// SessionStateKey holds the session.State the guard decided on.
const SessionStateKey = "sessionState"

// StateSource yields the session state for an identity, waiting until ctx is done
// at most for an in-flight resolution.
type StateSource interface {
	StateFor(ctx context.Context, identity models.Identity) session.State
}

// FreshStateSource is implemented by sources that can re-read a settled profile
// from the store. Role-restricted routes use it so a cached role never grants access.
type FreshStateSource interface {
	FreshStateFor(ctx context.Context, identity models.Identity) session.State
}

// GuardMiddleware runs guard.Decide for route. It must follow AuthMiddleware.
// A resolution still in flight after wait is reported as 503 with Retry-After.
func GuardMiddleware(src StateSource, route guard.Route, wait time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var state session.State
		if id, ok := IdentityFrom(c); ok {
			ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
			if fresh, ok := src.(FreshStateSource); ok && route.Role != "" {
				state = fresh.FreshStateFor(ctx, *id)
			} else {
				state = src.StateFor(ctx, *id)
			}
			cancel()
		}

		d := guard.Decide(state, route)
		metrics.GuardDecisions.WithLabelValues(d.Outcome.String()).Inc()

		switch d.Outcome {
		case guard.Loading:
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		case guard.Deny:
			status := http.StatusForbidden
			if d.Reason == guard.ReasonNotSignedIn {
				status = http.StatusUnauthorized
			}
			logger.Debugf("guard denied %s: %s", route.Path, d.Reason)
			c.AbortWithStatusJSON(status, gin.H{"error": d.Reason, "redirect": d.Redirect})
		default:
			c.Set(SessionStateKey, state)
			c.Next()
		}
	}
}

// SessionStateFrom returns the state stored by GuardMiddleware.
func SessionStateFrom(c *gin.Context) (session.State, bool) {
	v, ok := c.Get(SessionStateKey)
	if !ok {
		return session.State{}, false
	}
	s, ok := v.(session.State)
	return s, ok
}

func retryAfterSeconds(wait time.Duration) int {
	if s := int(wait.Round(time.Second) / time.Second); s > 0 {
		return s
	}
	return 1
}
