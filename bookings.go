package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	bookingIDPrefix  = "EVT-"
	bookingIDLayout  = "20060102150405"
	defaultGuests    = 50
	defaultEventType = "other"
	gstPercent       = 18

	// attempts at a collision-free booking id within the same second
	bookingIDAttempts = 3

	// upper bound for any single price or guest count
	maxAmount = math.MaxInt32
)

// timeNow is a variable for testability.
var timeNow = time.Now

var errInvalidBooking = errors.New("invalid booking")

// flexInt accepts a JSON number, a numeric string or null (which reads as 0).
// Fractions are truncated; magnitudes above maxAmount are rejected.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid number %s", b)
		}
		if math.Abs(f) > maxAmount {
			return fmt.Errorf("number %s out of range", b)
		}
		v = int64(f)
	}
	if v > maxAmount || v < -maxAmount {
		return fmt.Errorf("number %s out of range", b)
	}
	*n = flexInt(v)
	return nil
}

type CreateBookingRequest struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	EventDate       string   `json:"event_date"` // YYYY-MM-DD
	EventType       string   `json:"event_type"`
	Guests          *flexInt `json:"guests"`
	SpecialRequests string   `json:"special_requests"`

	ServiceName  string  `json:"service_name"`
	ServicePrice flexInt `json:"service_price"`
	HallName     string  `json:"hall_name"`
	HallPrice    flexInt `json:"hall_price"`
	PackageName  string  `json:"package_name"`
	PackagePrice flexInt `json:"package_price"`
}

func newBookingID(now time.Time) string {
	return bookingIDPrefix + now.Format(bookingIDLayout)
}

// createBooking stores a confirmed booking for userID. The total is the sum
// of the three component prices; it is never recomputed afterwards.
func createBooking(ctx context.Context, db *gorm.DB, userID uint, req CreateBookingRequest, now time.Time) (*Booking, error) {
	eventDate, err := time.Parse(dateLayout, strings.TrimSpace(req.EventDate))
	if err != nil {
		return nil, fmt.Errorf("%w: event_date %q must be YYYY-MM-DD", errInvalidBooking, req.EventDate)
	}

	guests := defaultGuests
	if req.Guests != nil {
		guests = int(*req.Guests)
	}
	if guests < 0 || guests > maxAmount {
		return nil, fmt.Errorf("%w: guests out of range", errInvalidBooking)
	}
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		eventType = defaultEventType
	}

	b := &Booking{
		UserID:          userID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		EventDate:       eventDate,
		EventType:       eventType,
		Guests:          guests,
		SpecialRequests: req.SpecialRequests,
		ServiceName:     req.ServiceName,
		ServicePrice:    int(req.ServicePrice),
		HallName:        req.HallName,
		HallPrice:       int(req.HallPrice),
		PackageName:     req.PackageName,
		PackagePrice:    int(req.PackagePrice),
		Status:          StatusConfirmed,
	}
	var total int64
	for _, p := range []int{b.ServicePrice, b.HallPrice, b.PackagePrice} {
		if p < 0 {
			return nil, fmt.Errorf("%w: prices must not be negative", errInvalidBooking)
		}
		if p > maxAmount {
			return nil, fmt.Errorf("%w: price %d exceeds %d", errInvalidBooking, p, maxAmount)
		}
		total += int64(p)
	}
	if total > math.MaxInt {
		return nil, fmt.Errorf("%w: total amount too large", errInvalidBooking)
	}
	b.TotalAmount = int(total)

	// A concurrent booking can take the id between the check and the insert;
	// the unique index rejects it and the next attempt picks a suffixed id.
	for attempt := 1; ; attempt++ {
		b.ID = 0
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			id, err := uniqueBookingID(tx, now)
			if err != nil {
				return err
			}
			b.BookingID = id
			return tx.Create(b).Error
		})
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == bookingIDAttempts {
			return nil, err
		}
	}
}

// uniqueBookingID returns EVT-<timestamp>, suffixed with a short random tag
// when another booking already took the same second.
func uniqueBookingID(tx *gorm.DB, now time.Time) (string, error) {
	base := newBookingID(now)
	id := base
	for i := 0; i < bookingIDAttempts; i++ {
		var count int64
		if err := tx.Model(&Booking{}).Where("booking_id = ?", id).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return id, nil
		}
		id = base + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	}
	return "", fmt.Errorf("could not allocate a unique booking id for %s", base)
}

// Receipt is the presentational tax breakdown of a booking.
type Receipt struct {
	Booking      Booking `json:"booking"`
	Subtotal     int     `json:"subtotal"`
	GST          float64 `json:"gst"`
	TotalWithGST float64 `json:"total_with_gst"`
}

func computeReceipt(b Booking) Receipt {
	subtotal := b.Subtotal()
	gst := float64(subtotal*gstPercent) / 100
	return Receipt{
		Booking:      b,
		Subtotal:     subtotal,
		GST:          gst,
		TotalWithGST: float64(subtotal) + gst,
	}
}

func userBookings(ctx context.Context, userID uint) ([]Booking, error) {
	bookings := []Booking{}
	err := DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc").
		Find(&bookings).Error
	return bookings, err
}

// findUserBooking fetches a booking by its identifier, only if userID owns it.
func findUserBooking(ctx context.Context, bookingID string, userID uint) (*Booking, error) {
	var b Booking
	err := DB.WithContext(ctx).Where("booking_id = ? AND user_id = ?", bookingID, userID).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// -----------------------------
// Handlers
// -----------------------------

func CreateBooking(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		jsonFail(c, http.StatusUnauthorized, "Please login first!")
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		IncBookingFailure()
		if errors.Is(err, io.EOF) {
			jsonFail(c, http.StatusBadRequest, "No data received")
			return
		}
		jsonFail(c, http.StatusBadRequest, "Booking failed: "+err.Error())
		return
	}

	b, err := createBooking(c.Request.Context(), DB, userID, req, timeNow())
	if err != nil {
		IncBookingFailure()
		if errors.Is(err, errInvalidBooking) {
			jsonFail(c, http.StatusBadRequest, "Booking failed: "+err.Error())
			return
		}
		storeFailure(c, err, "Booking failed: "+err.Error())
		return
	}

	IncBookingCreated(b.Status)
	l := reqLogger(c)
	l.Info().
		Str(BookingID, b.BookingID).
		Int("total_amount", b.TotalAmount).
		Msg("booking saved")

	jsonOK(c, http.StatusCreated, "Booking confirmed successfully!", gin.H{
		"booking_id":   b.BookingID,
		"total_amount": b.TotalAmount,
	})
}

// BookingHistoryPage lists the user's own bookings, newest first.
func BookingHistoryPage(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)
	bookings, err := userBookings(c.Request.Context(), userID)
	if err != nil {
		l := reqLogger(c)
		l.Error().Err(err).Msg("booking history failed")
		renderError(c, http.StatusInternalServerError, "Could not load your bookings.")
		return
	}
	renderPage(c, http.StatusOK, "booking_history.html", gin.H{"Bookings": bookings})
}

func GetMyBookings(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)
	bookings, err := userBookings(c.Request.Context(), userID)
	if err != nil {
		storeFailure(c, err, "could not load bookings")
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{"bookings": bookings})
}

func BookingReceiptPage(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)
	b, err := findUserBooking(c.Request.Context(), c.Param("booking_id"), userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l := reqLogger(c)
			l.Error().Err(err).Msg("receipt lookup failed")
		}
		setFlash(c, "error", "Booking not found!")
		c.Redirect(http.StatusFound, "/booking_history")
		return
	}
	renderPage(c, http.StatusOK, "receipt.html", gin.H{"Receipt": computeReceipt(*b)})
}

func GetReceipt(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)
	b, err := findUserBooking(c.Request.Context(), c.Param("booking_id"), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			jsonFail(c, http.StatusNotFound, "Booking not found!")
			return
		}
		storeFailure(c, err, "db error")
		return
	}
	r := computeReceipt(*b)
	jsonOK(c, http.StatusOK, "", gin.H{
		"booking":        r.Booking,
		"subtotal":       r.Subtotal,
		"gst":            r.GST,
		"total_with_gst": r.TotalWithGST,
	})
}
