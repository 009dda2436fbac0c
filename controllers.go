package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// -----------------------------
// Helper functions
// -----------------------------

// jsonOK writes the success envelope: {success: true, message?, ...payload}.
func jsonOK(c *gin.Context, code int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(code, body)
}

func jsonFail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"success": false, "message": msg})
}

// storeFailure logs an unexpected store error and answers with msg.
func storeFailure(c *gin.Context, err error, msg string) {
	l := reqLogger(c)
	l.Error().Err(err).Str(Route, c.FullPath()).Msg(msg)
	_ = c.Error(err)
	jsonFail(c, http.StatusInternalServerError, msg)
}

// getUserIDFromContext expects the auth guards to set "user_id" (uint) in context.
func getUserIDFromContext(c *gin.Context) (uint, bool) {
	uid, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch v := uid.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// parseDay accepts RFC3339 or YYYY-MM-DD.
func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t.UTC(), nil
	}
	return time.Parse(dateLayout, s)
}

// -----------------------------
// Admin booking search
// -----------------------------
//
// GET /admin/bookings?keyword=&status=&event_type=&start_date=&end_date=&limit=
//
// - keyword matches booking id, customer names, contact email and selected item names
// - start_date/end_date filter event_date (inclusive, whole day)
// - status must be one of the four booking statuses when given
// - limit caps the number of rows (newest first)
type BookingSearch struct {
	Keyword   string `form:"keyword"`
	Status    string `form:"status"`
	EventType string `form:"event_type"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=10000"`
}

type bookingFilter struct {
	keyword   string
	status    string
	eventType string
	start     time.Time
	end       time.Time
	limit     int
}

// parse validates the query and returns a user-facing message on failure.
func (s BookingSearch) parse() (bookingFilter, string) {
	f := bookingFilter{
		keyword:   strings.ToLower(strings.TrimSpace(s.Keyword)),
		status:    strings.ToLower(strings.TrimSpace(s.Status)),
		eventType: strings.TrimSpace(s.EventType),
		limit:     s.Limit,
	}
	if f.status != "" && !validStatus(f.status) {
		return f, "status must be one of: pending, confirmed, cancelled, completed"
	}
	var err error
	if s.StartDate != "" {
		if f.start, err = parseDay(s.StartDate); err != nil {
			return f, "invalid start_date format"
		}
	}
	if s.EndDate != "" {
		if f.end, err = parseDay(s.EndDate); err != nil {
			return f, "invalid end_date format"
		}
		// include whole day
		f.end = f.end.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}
	return f, ""
}
