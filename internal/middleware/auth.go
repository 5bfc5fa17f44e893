package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

const (
	keyActor     = "actor"
	keyUser      = "user"
	keySessionID = "session_id"
)

// SessionValidator resolves a session id to its user.
type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) (*model.User, *model.Session, bool, error)
}

// Cookie writes and clears the session cookie.
type Cookie struct {
	Name   string
	Secure bool
}

func (ck Cookie) Set(c *gin.Context, sess *model.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, sess.ID, maxAge, "/", "", ck.Secure, true)
}

func (ck Cookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, "", -1, "/", "", ck.Secure, true)
}

// Read returns the session id from the cookie or a Bearer header, and whether it came from the cookie.
func (ck Cookie) Read(c *gin.Context) (string, bool) {
	if v, err := c.Cookie(ck.Name); err == nil && v != "" {
		return v, true
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:]), false
	}
	return "", false
}

type Auth struct {
	sessions SessionValidator
	cookie   Cookie
	log      *zap.Logger
}

func NewAuth(sessions SessionValidator, cookie Cookie, log *zap.Logger) *Auth {
	return &Auth{sessions: sessions, cookie: cookie, log: log}
}

// Require rejects requests without a valid session and stores the user on the context.
func (a *Auth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, fromCookie := a.cookie.Read(c)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, sess, extended, err := a.sessions.Validate(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, errs.ErrUnauthorized) {
				if fromCookie {
					a.cookie.Clear(c)
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			a.log.Error("session validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if extended && fromCookie {
			a.cookie.Set(c, sess)
		}
		c.Set(keyUser, user)
		c.Set(keyActor, service.ActorOf(user))
		c.Set(keySessionID, sess.ID)
		c.Next()
	}
}

// RequireRole must run after Require.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, r := range roles {
			if a.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

func ActorFrom(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(keyActor)
	if !ok {
		return service.Actor{}, false
	}
	a, ok := v.(service.Actor)
	return a, ok
}

func UserFrom(c *gin.Context) *model.User {
	v, ok := c.Get(keyUser)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

func SessionIDFrom(c *gin.Context) string {
	return c.GetString(keySessionID)
}
