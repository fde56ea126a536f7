package main

import (
	"bookclub/pkg/models"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	errBookNotFound     = errors.New("book not found")
	errBookNotAvailable = errors.New("book is not available")
)

func borrowJSON(req *models.BorrowRequest) gin.H {
	item := gin.H{
		"requestUid":     req.RequestUid,
		"bookUid":        req.BookUid,
		"userUid":        req.UserUid,
		"durationInDays": req.DurationInDays,
		"status":         req.Status,
		"createdAt":      req.CreatedAt.Format(time.RFC3339),
	}
	if req.ApprovedAt != nil {
		item["approvedAt"] = req.ApprovedAt.Format(time.RFC3339)
	}
	if req.ExpectedReturnDate != nil {
		item["expectedReturnDate"] = req.ExpectedReturnDate.Format("2006-01-02")
	}
	if req.ReturnedDate != nil {
		item["returnedDate"] = req.ReturnedDate.Format(time.RFC3339)
	}
	return item
}

func createBorrowRequest(c *gin.Context) {
	userUid, _ := currentUser(c)

	var request struct {
		BookUid        string `json:"bookUid" binding:"required"`
		DurationInDays int    `json:"durationInDays" binding:"required,min=1"`
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

	// Requests may queue while every copy is on loan; capacity is enforced
	// at approval. Only books with no owned copies at all are refused.
	if book.Quantity < 1 {
		c.JSON(http.StatusConflict, gin.H{"error": "book is not available for borrowing"})
		return
	}

	var existing models.BorrowRequest
	err := db.Where("book_uid = ? AND user_uid = ? AND status IN ?",
		request.BookUid, userUid, []string{models.BorrowRequested, models.BorrowApproved}).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "you already have an active request for this book"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	borrowRequest := models.BorrowRequest{
		RequestUid:     uuid.New().String(),
		BookUid:        request.BookUid,
		UserUid:        userUid,
		DurationInDays: request.DurationInDays,
		Status:         models.BorrowRequested,
	}
	if err := db.Create(&borrowRequest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create borrow request"})
		return
	}

	c.JSON(http.StatusCreated, borrowJSON(&borrowRequest))
}

func getBorrowRequests(c *gin.Context) {
	var requests []models.BorrowRequest
	if err := db.Order("created_at DESC").Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(requests))
	for i, req := range requests {
		item := borrowJSON(&req)
		name, email := userDisplayName(req.UserUid)
		item["userName"] = name
		item["userEmail"] = email

		var book models.Book
		if err := db.Where("book_uid = ?", req.BookUid).First(&book).Error; err == nil {
			item["bookTitle"] = book.Title
			item["bookAuthor"] = book.Author
		}
		items[i] = item
	}
	c.JSON(http.StatusOK, items)
}

func getMyBorrowRequests(c *gin.Context) {
	userUid, _ := currentUser(c)

	var requests []models.BorrowRequest
	err := db.Where("user_uid = ?", userUid).Order("created_at DESC").Find(&requests).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(requests))
	for i, req := range requests {
		item := borrowJSON(&req)
		var book models.Book
		if err := db.Where("book_uid = ?", req.BookUid).First(&book).Error; err == nil {
			item["bookTitle"] = book.Title
			item["bookAuthor"] = book.Author
		}
		items[i] = item
	}
	c.JSON(http.StatusOK, items)
}

func validTransition(from, to string) bool {
	switch from {
	case models.BorrowRequested:
		return to == models.BorrowApproved || to == models.BorrowRejected
	case models.BorrowApproved:
		return to == models.BorrowReturned
	default:
		return false
	}
}

func updateBorrowStatus(c *gin.Context) {
	requestUid := c.Param("requestUid")

	var request struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if request.Status != models.BorrowApproved &&
		request.Status != models.BorrowRejected &&
		request.Status != models.BorrowReturned {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	var borrowRequest models.BorrowRequest
	if err := db.Where("request_uid = ?", requestUid).First(&borrowRequest).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "borrow request not found"})
		return
	}

	if !validTransition(borrowRequest.Status, request.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
		return
	}

	switch request.Status {
	case models.BorrowApproved:
		if !approveBorrowRequest(c, &borrowRequest) {
			return
		}
	case models.BorrowReturned:
		now := time.Now()
		borrowRequest.ReturnedDate = &now
		borrowRequest.Status = models.BorrowReturned
		if err := db.Save(&borrowRequest).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update borrow request"})
			return
		}
		fulfillNextReservation(borrowRequest.BookUid)
	case models.BorrowRejected:
		borrowRequest.Status = models.BorrowRejected
		if err := db.Save(&borrowRequest).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update borrow request"})
			return
		}
	}

	c.JSON(http.StatusOK, borrowJSON(&borrowRequest))
}

// approveBorrowRequest runs the capacity check and the approval write under
// the book's lock so concurrent approvals cannot exceed quantity. Returns
// false if a response was already written.
func approveBorrowRequest(c *gin.Context, borrowRequest *models.BorrowRequest) bool {
	bookLocks.Lock(borrowRequest.BookUid)
	defer bookLocks.Unlock(borrowRequest.BookUid)

	err := db.Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.Where("book_uid = ?", borrowRequest.BookUid).First(&book).Error; err != nil {
			return errBookNotFound
		}

		var approved int64
		err := tx.Model(&models.BorrowRequest{}).
			Where("book_uid = ? AND status = ? AND returned_date IS NULL",
				borrowRequest.BookUid, models.BorrowApproved).
			Count(&approved).Error
		if err != nil {
			return err
		}
		if approved >= int64(book.Quantity) {
			return errBookNotAvailable
		}

		now := time.Now()
		expected := now.AddDate(0, 0, borrowRequest.DurationInDays)
		borrowRequest.ApprovedAt = &now
		borrowRequest.ExpectedReturnDate = &expected
		borrowRequest.Status = models.BorrowApproved
		return tx.Save(borrowRequest).Error
	})

	switch err {
	case nil:
		return true
	case errBookNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
	case errBookNotAvailable:
		c.JSON(http.StatusConflict, gin.H{"error": "book is not available"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update borrow request"})
	}
	return false
}

func deleteBorrowRequest(c *gin.Context) {
	userUid, isAdmin := currentUser(c)
	requestUid := c.Param("requestUid")

	var borrowRequest models.BorrowRequest
	if err := db.Where("request_uid = ?", requestUid).First(&borrowRequest).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "borrow request not found"})
		return
	}

	if borrowRequest.UserUid != userUid && !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your borrow request"})
		return
	}

	if borrowRequest.Status == models.BorrowApproved || borrowRequest.Status == models.BorrowReturned {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot delete an approved or returned request"})
		return
	}

	if err := db.Delete(&borrowRequest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete borrow request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "borrow request deleted successfully"})
}
