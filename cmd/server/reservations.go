package main

import (
	"bookclub/pkg/models"
	"bookclub/pkg/notify"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func reservationJSON(res *models.Reservation) gin.H {
	return gin.H{
		"reservationUid": res.ReservationUid,
		"bookUid":        res.BookUid,
		"userUid":        res.UserUid,
		"status":         res.Status,
		"reservedAt":     res.ReservedAt.Format(time.RFC3339),
		"expiresAt":      res.ExpiresAt.Format(time.RFC3339),
	}
}

func createReservation(c *gin.Context) {
	userUid, _ := currentUser(c)

	var request struct {
		BookUid string `json:"bookUid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var book models.Book
	if err := db.Where("book_uid = ?", request.BookUid).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	available, err := availableCopies(&book)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if available >= 1 {
		c.JSON(http.StatusConflict, gin.H{"error": "book is available, request it instead"})
		return
	}

	var existing models.Reservation
	err = db.Where("book_uid = ? AND user_uid = ? AND status = ?",
		request.BookUid, userUid, models.ReservationActive).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "you already have an active reservation for this book"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	reservation := models.Reservation{
		ReservationUid: uuid.New().String(),
		UserUid:        userUid,
		BookUid:        request.BookUid,
		Status:         models.ReservationActive,
		ReservedAt:     now,
		ExpiresAt:      now.AddDate(0, 0, reservationTTLDays),
	}
	if err := db.Create(&reservation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reservation"})
		return
	}

	c.JSON(http.StatusCreated, reservationJSON(&reservation))
}

func getMyReservations(c *gin.Context) {
	userUid, _ := currentUser(c)

	var reservations []models.Reservation
	err := db.Where("user_uid = ?", userUid).Order("reserved_at DESC").Find(&reservations).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(reservations))
	for i, res := range reservations {
		item := reservationJSON(&res)
		var book models.Book
		if err := db.Where("book_uid = ?", res.BookUid).First(&book).Error; err == nil {
			item["bookTitle"] = book.Title
			item["bookAuthor"] = book.Author
		}
		items[i] = item
	}
	c.JSON(http.StatusOK, items)
}

func cancelReservation(c *gin.Context) {
	userUid, isAdmin := currentUser(c)
	reservationUid := c.Param("reservationUid")

	var reservation models.Reservation
	if err := db.Where("reservation_uid = ?", reservationUid).First(&reservation).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}

	if reservation.UserUid != userUid && !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your reservation"})
		return
	}

	if reservation.Status != models.ReservationActive {
		c.JSON(http.StatusConflict, gin.H{"error": "only active reservations can be cancelled"})
		return
	}

	reservation.Status = models.ReservationCancelled
	if err := db.Save(&reservation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel reservation"})
		return
	}

	c.JSON(http.StatusOK, reservationJSON(&reservation))
}

// fulfillNextReservation marks the oldest active reservation for the book
// fulfilled and queues a notification for its holder. Called when a loan
// is returned. Fulfillment only notifies; the holder still goes through
// the normal borrow request flow.
func fulfillNextReservation(bookUid string) {
	var reservation models.Reservation
	err := db.Where("book_uid = ? AND status = ? AND expires_at > ?",
		bookUid, models.ReservationActive, time.Now()).
		Order("reserved_at ASC").
		First(&reservation).Error
	if err != nil {
		return
	}

	reservation.Status = models.ReservationFulfilled
	if err := db.Save(&reservation).Error; err != nil {
		log.Printf("Failed to fulfill reservation %s: %v", reservation.ReservationUid, err)
		return
	}

	notifications.Enqueue(&notify.Notification{
		UserUid:        reservation.UserUid,
		BookUid:        reservation.BookUid,
		ReservationUid: reservation.ReservationUid,
		CreatedAt:      time.Now(),
	})
}

// expireReservations flips active reservations past their expiry to
// EXPIRED. Driven by the cron schedule in main; touches only
// Reservation.status.
func expireReservations() {
	result := db.Model(&models.Reservation{}).
		Where("status = ? AND expires_at <= ?", models.ReservationActive, time.Now()).
		Update("status", models.ReservationExpired)
	if result.Error != nil {
		log.Printf("Reservation expiry sweep failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Expired %d reservations", result.RowsAffected)
	}
}

// logOverdueLoans reports approved loans past their expected return date.
// The sweep never mutates borrow requests; returns stay admin-moderated.
func logOverdueLoans() {
	var overdue []models.BorrowRequest
	err := db.Where("status = ? AND returned_date IS NULL AND expected_return_date < ?",
		models.BorrowApproved, time.Now()).
		Find(&overdue).Error
	if err != nil {
		log.Printf("Overdue loan check failed: %v", err)
		return
	}
	for _, req := range overdue {
		log.Printf("Loan %s overdue: book %s held by user %s since %s",
			req.RequestUid, req.BookUid, req.UserUid,
			req.ExpectedReturnDate.Format("2006-01-02"))
	}
}
