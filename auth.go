package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errDuplicateEmail = errors.New("email already registered")

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type NewUser struct {
	Name     string
	Email    string
	Phone    string
	Password string
	IsAdmin  bool
}

// createUser stores a user with a bcrypt hash, rejecting an email that is
// already registered.
func createUser(ctx context.Context, db *gorm.DB, in NewUser) (*User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		Password: hash,
		IsAdmin:  in.IsAdmin,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errDuplicateEmail
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateEmail
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	IncUserRegistered()
	return user, nil
}

// ========================
// REGISTER HANDLER
// ========================

type RegisterForm struct {
	Name            string `form:"name" binding:"required"`
	Email           string `form:"email" binding:"required,email"`
	Phone           string `form:"phone"`
	Password        string `form:"password" binding:"required"`
	ConfirmPassword string `form:"confirm_password"`
}

func RegisterUser(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		setFlash(c, "error", "Please fill in your name, a valid email and a password.")
		c.Redirect(http.StatusFound, "/register")
		return
	}

	if form.Password != form.ConfirmPassword {
		setFlash(c, "error", "Passwords do not match!")
		c.Redirect(http.StatusFound, "/register")
		return
	}

	user, err := createUser(c.Request.Context(), DB, NewUser{
		Name:     form.Name,
		Email:    form.Email,
		Phone:    form.Phone,
		Password: form.Password,
	})
	if err != nil {
		if errors.Is(err, errDuplicateEmail) {
			setFlash(c, "error", "Email already registered!")
		} else {
			l := reqLogger(c)
			l.Error().Err(err).Msg("registration failed")
			setFlash(c, "error", "Registration failed. Please try again.")
		}
		c.Redirect(http.StatusFound, "/register")
		return
	}

	// auto login after registration
	if err := setSession(c, user); err != nil {
		l := reqLogger(c)
		l.Error().Err(err).Msg("session after registration failed")
		setFlash(c, "error", "Registration succeeded, please login.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	setFlash(c, "success", "Registration successful! Welcome to Evento.")
	c.Redirect(http.StatusFound, "/mainhome")
}

// ========================
// LOGIN HANDLER
// ========================

type LoginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func LoginUser(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		IncLogin("invalid")
		setFlash(c, "error", "Invalid email or password!")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	var user User
	err := DB.WithContext(c.Request.Context()).Where("email = ?", strings.TrimSpace(form.Email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l := reqLogger(c)
		l.Error().Err(err).Msg("login lookup failed")
		IncLogin("error")
		setFlash(c, "error", "Login failed. Please try again.")
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if err != nil || !checkPassword(user.Password, form.Password) {
		IncLogin("invalid")
		setFlash(c, "error", "Invalid email or password!")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := setSession(c, &user); err != nil {
		l := reqLogger(c)
		l.Error().Err(err).Msg("session create failed")
		IncLogin("error")
		setFlash(c, "error", "Login failed. Please try again.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	IncLogin("success")
	setFlash(c, "success", "Login successful!")
	if user.IsAdmin {
		c.Redirect(http.StatusFound, "/admin/dashboard")
		return
	}
	c.Redirect(http.StatusFound, "/mainhome")
}

func Logout(c *gin.Context) {
	clearSession(c)
	setFlash(c, "success", "Logged out successfully!")
	c.Redirect(http.StatusFound, "/login")
}

// CheckLogin reports the session state for page scripts.
func CheckLogin(c *gin.Context) {
	if user, ok := sessionUser(c); ok {
		jsonOK(c, http.StatusOK, "", gin.H{
			"logged_in":  true,
			"user_name":  user.Name,
			"user_email": user.Email,
			"is_admin":   user.IsAdmin,
		})
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{
		"logged_in":  false,
		"user_name":  "",
		"user_email": "",
		"is_admin":   false,
	})
}

func GetUserInfo(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		jsonOK(c, http.StatusOK, "", gin.H{"user": gin.H{}})
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{"user": gin.H{
		"name":     user.Name,
		"email":    user.Email,
		"phone":    user.Phone,
		"is_admin": user.IsAdmin,
	}})
}

// sessionUser is the non-redirecting variant of the guards, for routes that
// answer both logged-in and anonymous callers.
func sessionUser(c *gin.Context) (*User, bool) {
	claims, ok := currentClaims(c)
	if !ok {
		return nil, false
	}
	var user User
	if err := DB.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// CreateTestUser is a development helper, mounted only with DEBUG_ROUTES.
func CreateTestUser(c *gin.Context) {
	_, err := createUser(c.Request.Context(), DB, NewUser{
		Name:     "Test User",
		Email:    "test@test.com",
		Phone:    "9876543210",
		Password: "test123",
	})
	switch {
	case errors.Is(err, errDuplicateEmail):
		c.String(http.StatusOK, "Test user already exists")
	case err != nil:
		l := reqLogger(c)
		l.Error().Err(err).Msg("create test user failed")
		c.String(http.StatusInternalServerError, "Could not create test user")
	default:
		c.String(http.StatusOK, "Test user created! Email: test@test.com, Password: test123")
	}
}
