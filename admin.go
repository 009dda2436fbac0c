package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const purgeAge = 365 * 24 * time.Hour

var (
	errAdminUser     = errors.New("cannot delete admin user")
	errInvalidStatus = errors.New("invalid booking status")
)

// -----------------------------
// Dashboard & reports
// -----------------------------

func AdminIndex(c *gin.Context) {
	c.Redirect(http.StatusFound, "/admin/dashboard")
}

func AdminDashboardPage(c *gin.Context) {
	stats, err := loadDashboard(c.Request.Context(), DB)
	if err != nil {
		l := reqLogger(c)
		l.Error().Err(err).Msg("admin dashboard failed")
		setFlash(c, "error", "Error loading admin dashboard")
		c.Redirect(http.StatusFound, "/mainhome")
		return
	}
	renderPage(c, http.StatusOK, "admin.html", gin.H{"Stats": stats})
}

func AdminStats(c *gin.Context) {
	stats, err := loadDashboard(c.Request.Context(), DB)
	if err != nil {
		storeFailure(c, err, "Error loading dashboard")
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{
		"total_bookings":   stats.TotalBookings,
		"total_revenue":    stats.TotalRevenue,
		"total_users":      stats.TotalUsers,
		"pending_bookings": stats.PendingBookings,
		"recent_bookings":  stats.RecentBookings,
	})
}

func AdminReports(c *gin.Context) {
	r, err := loadReports(c.Request.Context(), DB, timeNow())
	if err != nil {
		storeFailure(c, err, "Error loading reports")
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{
		"monthly_revenue":     r.MonthlyRevenue,
		"status_distribution": r.StatusDistribution,
		"event_types":         r.EventTypes,
	})
}

// -----------------------------
// Bookings
// -----------------------------

type adminBookingRow struct {
	Booking
	UserName  string `gorm:"column:user_name"`
	UserEmail string `gorm:"column:user_email"`
}

func searchBookings(ctx context.Context, f bookingFilter) ([]adminBookingRow, error) {
	query := DB.WithContext(ctx).
		Table("bookings").
		Select("bookings.*, users.name AS user_name, users.email AS user_email").
		Joins("LEFT JOIN users ON users.id = bookings.user_id")

	if f.keyword != "" {
		kw := "%" + f.keyword + "%"
		query = query.Where(
			"LOWER(bookings.booking_id) LIKE ? OR LOWER(bookings.first_name) LIKE ? OR LOWER(bookings.last_name) LIKE ? "+
				"OR LOWER(bookings.email) LIKE ? OR LOWER(bookings.service_name) LIKE ? "+
				"OR LOWER(bookings.hall_name) LIKE ? OR LOWER(bookings.package_name) LIKE ?",
			kw, kw, kw, kw, kw, kw, kw,
		)
	}
	if f.status != "" {
		query = query.Where("bookings.status = ?", f.status)
	}
	if f.eventType != "" {
		query = query.Where("bookings.event_type = ?", f.eventType)
	}
	if !f.start.IsZero() {
		query = query.Where("bookings.event_date >= ?", f.start)
	}
	if !f.end.IsZero() {
		query = query.Where("bookings.event_date <= ?", f.end)
	}

	if f.limit > 0 {
		query = query.Limit(f.limit)
	}

	var rows []adminBookingRow
	err := query.Order("bookings.created_at desc").Order("bookings.id desc").Scan(&rows).Error
	return rows, err
}

func AdminBookings(c *gin.Context) {
	var req BookingSearch
	if err := c.ShouldBindQuery(&req); err != nil {
		jsonFail(c, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}
	f, msg := req.parse()
	if msg != "" {
		jsonFail(c, http.StatusBadRequest, msg)
		return
	}

	rows, err := searchBookings(c.Request.Context(), f)
	if err != nil {
		storeFailure(c, err, "Error loading bookings")
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{
			"booking_id":   r.BookingID,
			"user_name":    orDefault(r.UserName, "Unknown"),
			"user_email":   orDefault(r.UserEmail, "Unknown"),
			"event_date":   formatDate(r.EventDate),
			"event_type":   orDefault(r.EventType, "N/A"),
			"guests":       r.Guests,
			"total_amount": r.TotalAmount,
			"status":       orDefault(r.Status, StatusPending),
			"created_at":   formatStamp(r.CreatedAt),
		})
	}
	jsonOK(c, http.StatusOK, "", gin.H{"bookings": out})
}

type UpdateStatusRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

func updateBookingStatus(ctx context.Context, db *gorm.DB, bookingID, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validStatus(status) {
		return errInvalidStatus
	}
	res := db.WithContext(ctx).Model(&Booking{}).
		Where("booking_id = ?", bookingID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func UpdateBookingStatus(c *gin.Context) {
	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		jsonFail(c, http.StatusBadRequest, "booking_id and status are required")
		return
	}

	err := updateBookingStatus(c.Request.Context(), DB, body.BookingID, body.Status)
	switch {
	case errors.Is(err, errInvalidStatus):
		jsonFail(c, http.StatusBadRequest, "status must be one of: pending, confirmed, cancelled, completed")
	case errors.Is(err, gorm.ErrRecordNotFound):
		jsonFail(c, http.StatusNotFound, "Booking not found!")
	case err != nil:
		storeFailure(c, err, "Error updating status: "+err.Error())
	default:
		jsonOK(c, http.StatusOK, "Booking status updated successfully!", nil)
	}
}

func AdminViewBooking(c *gin.Context) {
	ctx := c.Request.Context()

	var b Booking
	if err := DB.WithContext(ctx).Where("booking_id = ?", c.Param("booking_id")).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			jsonFail(c, http.StatusNotFound, "Booking not found")
			return
		}
		storeFailure(c, err, "db error")
		return
	}

	userName, userEmail := "Unknown", "Unknown"
	var owner User
	if err := DB.WithContext(ctx).First(&owner, b.UserID).Error; err == nil {
		userName, userEmail = owner.Name, owner.Email
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		storeFailure(c, err, "db error")
		return
	}

	jsonOK(c, http.StatusOK, "", gin.H{"booking": gin.H{
		"booking_id":       b.BookingID,
		"customer_name":    b.CustomerName(),
		"customer_email":   b.Email,
		"customer_phone":   b.Phone,
		"user_name":        userName,
		"user_email":       userEmail,
		"event_date":       formatDate(b.EventDate),
		"event_type":       b.EventType,
		"guests":           b.Guests,
		"status":           b.Status,
		"total_amount":     b.TotalAmount,
		"created_at":       formatStamp(b.CreatedAt),
		"special_requests": orDefault(b.SpecialRequests, "None"),
		"services": gin.H{
			"service": priceLine(b.ServiceName, b.ServicePrice),
			"hall":    priceLine(b.HallName, b.HallPrice),
			"package": priceLine(b.PackageName, b.PackagePrice),
		},
	}})
}

// purgeOldBookings deletes completed bookings created before now-365 days
// and returns how many were removed.
func purgeOldBookings(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	cutoff := now.UTC().Add(-purgeAge)
	res := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusCompleted, cutoff).
		Delete(&Booking{})
	return res.RowsAffected, res.Error
}

func AdminClearOldData(c *gin.Context) {
	n, err := purgeOldBookings(c.Request.Context(), DB, timeNow())
	if err != nil {
		storeFailure(c, err, "Error clearing old data")
		return
	}
	AddBookingsPurged(int(n))
	l := reqLogger(c)
	l.Info().Int64("deleted", n).Msg("old bookings cleared")
	jsonOK(c, http.StatusOK, fmt.Sprintf("Cleared %d old bookings", n), gin.H{"deleted": n})
}

// AdminBackup only acknowledges the request; no artifact is produced.
func AdminBackup(c *gin.Context) {
	jsonOK(c, http.StatusOK, "Database backup completed successfully", nil)
}

// -----------------------------
// Users
// -----------------------------

type userRow struct {
	ID            uint
	Name          string
	Email         string
	Phone         string
	IsAdmin       bool
	CreatedAt     time.Time
	BookingsCount int64
}

func AdminUsers(c *gin.Context) {
	var rows []userRow
	err := DB.WithContext(c.Request.Context()).
		Table("users").
		Select("users.id, users.name, users.email, users.phone, users.is_admin, users.created_at, (SELECT COUNT(*) FROM bookings WHERE bookings.user_id = users.id) AS bookings_count").
		Order("users.id").
		Scan(&rows).Error
	if err != nil {
		storeFailure(c, err, "Error loading users")
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, u := range rows {
		out = append(out, gin.H{
			"id":             u.ID,
			"name":           u.Name,
			"email":          u.Email,
			"phone":          orDefault(u.Phone, "N/A"),
			"is_admin":       u.IsAdmin,
			"created_at":     formatDate(u.CreatedAt),
			"bookings_count": u.BookingsCount,
		})
	}
	jsonOK(c, http.StatusOK, "", gin.H{"users": out})
}

type AddUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

func AdminAddUser(c *gin.Context) {
	var body AddUserRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		jsonFail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	user, err := createUser(c.Request.Context(), DB, NewUser(body))
	if err != nil {
		if errors.Is(err, errDuplicateEmail) {
			jsonFail(c, http.StatusConflict, "Email already exists")
			return
		}
		storeFailure(c, err, "could not create user")
		return
	}
	jsonOK(c, http.StatusCreated, "User added successfully", gin.H{"user_id": user.ID})
}

// deleteUser removes a non-admin user and, first, every booking it owns.
func deleteUser(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.First(&u, id).Error; err != nil {
			return err
		}
		if u.IsAdmin {
			return errAdminUser
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&Booking{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, u.ID).Error
	})
}

func AdminDeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		jsonFail(c, http.StatusBadRequest, "invalid user id")
		return
	}

	err = deleteUser(c.Request.Context(), DB, uint(id))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		jsonFail(c, http.StatusNotFound, "User not found")
	case errors.Is(err, errAdminUser):
		jsonFail(c, http.StatusForbidden, "Cannot delete admin user")
	case err != nil:
		storeFailure(c, err, "delete failed: "+err.Error())
	default:
		IncUserDeleted()
		jsonOK(c, http.StatusOK, "User deleted successfully", nil)
	}
}

// -----------------------------
// Formatting
// -----------------------------

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(dateLayout)
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04")
}

func priceLine(name string, price int) string {
	if name == "" {
		return "None"
	}
	return fmt.Sprintf("%s - ₹%d", name, price)
}
