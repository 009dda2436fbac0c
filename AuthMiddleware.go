package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// routeKind decides how a guard failure is answered.
type routeKind int

const (
	pageRoute      routeKind = iota // redirect to /login with a flash
	adminPageRoute                  // redirect to /admin/login with a flash
	apiRoute                        // JSON failure envelope
)

const ctxUserKey = "user"

// AuthMiddleware requires a session that points at an existing user.
func AuthMiddleware(kind routeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := loadSessionUser(c, kind); !ok {
			return
		}
		c.Next()
	}
}

// AdminMiddleware additionally requires the admin flag.
func AdminMiddleware(kind routeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadSessionUser(c, kind)
		if !ok {
			return
		}
		if !user.IsAdmin {
			deny(c, kind, http.StatusForbidden, "Admin access required!")
			return
		}
		c.Next()
	}
}

// loadSessionUser resolves the session to a stored user and attaches it to
// the context. On failure the request has already been answered.
func loadSessionUser(c *gin.Context, kind routeKind) (*User, bool) {
	claims, ok := currentClaims(c)
	if !ok {
		deny(c, kind, http.StatusUnauthorized, "Please login first!")
		return nil, false
	}

	var user User
	if err := DB.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			clearSession(c)
			deny(c, kind, http.StatusUnauthorized, "User not found!")
			return nil, false
		}
		l := reqLogger(c)
		l.Error().Err(err).Msg("session lookup failed")
		if kind == apiRoute {
			jsonFail(c, http.StatusInternalServerError, "Internal server error")
		} else {
			renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}
		c.Abort()
		return nil, false
	}

	c.Set("user_id", user.ID)
	c.Set(ctxUserKey, &user)
	return &user, true
}

func deny(c *gin.Context, kind routeKind, code int, msg string) {
	switch kind {
	case apiRoute:
		if code == http.StatusForbidden {
			msg = "Unauthorized"
		}
		jsonFail(c, code, msg)
	case adminPageRoute:
		setFlash(c, "error", msg)
		c.Redirect(http.StatusFound, "/admin/login")
	default:
		setFlash(c, "error", msg)
		c.Redirect(http.StatusFound, "/login")
	}
	c.Abort()
}

// currentUser returns the user attached by the guards.
func currentUser(c *gin.Context) (*User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}

func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
