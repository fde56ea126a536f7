package main

import (
	"bookclub/pkg/models"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// activeLoanCount returns how many approved, unreturned borrow requests
// reference the book. Availability is quantity minus this count.
func activeLoanCount(bookUid string) (int64, error) {
	var count int64
	err := db.Model(&models.BorrowRequest{}).
		Where("book_uid = ? AND status = ? AND returned_date IS NULL", bookUid, models.BorrowApproved).
		Count(&count).Error
	return count, err
}

func availableCopies(book *models.Book) (int, error) {
	loans, err := activeLoanCount(book.BookUid)
	if err != nil {
		return 0, err
	}
	available := book.Quantity - int(loans)
	if available < 0 {
		available = 0
	}
	return available, nil
}

func bookJSON(book *models.Book, available int) gin.H {
	return gin.H{
		"bookUid":        book.BookUid,
		"title":          book.Title,
		"author":         book.Author,
		"category":       book.Category,
		"quantity":       book.Quantity,
		"availableCount": available,
		"isAvailable":    available > 0,
		"coverImage":     book.CoverImage,
		"description":    book.Description,
	}
}

func getBooks(c *gin.Context) {
	category := c.Query("category")
	pageStr := c.DefaultQuery("page", "1")
	sizeStr := c.DefaultQuery("size", "10")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	query := db.Model(&models.Book{})
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var totalelem int64
	if err := query.Count(&totalelem).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var books []models.Book
	offset := (page - 1) * size
	if err := query.Offset(offset).Limit(size).Find(&books).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(books))
	for i, book := range books {
		available, err := availableCopies(&book)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items[i] = bookJSON(&book, available)
	}

	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": totalelem,
		"items":         items,
	})
}

func getBook(c *gin.Context) {
	bookUid := c.Param("bookUid")

	var book models.Book
	if err := db.Where("book_uid = ?", bookUid).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	available, err := availableCopies(&book)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bookJSON(&book, available))
}

func createBook(c *gin.Context) {
	var request struct {
		Title       string `json:"title" binding:"required"`
		Author      string `json:"author" binding:"required"`
		Category    string `json:"category"`
		Quantity    *int   `json:"quantity" binding:"required"`
		CoverImage  string `json:"coverImage"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if *request.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
		return
	}

	book := models.Book{
		BookUid:     uuid.New().String(),
		Title:       request.Title,
		Author:      request.Author,
		Category:    request.Category,
		Quantity:    *request.Quantity,
		CoverImage:  request.CoverImage,
		Description: request.Description,
	}
	if err := db.Create(&book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create book"})
		return
	}

	c.JSON(http.StatusCreated, bookJSON(&book, book.Quantity))
}

func updateBook(c *gin.Context) {
	bookUid := c.Param("bookUid")

	var book models.Book
	if err := db.Where("book_uid = ?", bookUid).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	var request struct {
		Title       *string `json:"title"`
		Author      *string `json:"author"`
		Category    *string `json:"category"`
		Quantity    *int    `json:"quantity"`
		CoverImage  *string `json:"coverImage"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if request.Title != nil {
		book.Title = *request.Title
	}
	if request.Author != nil {
		book.Author = *request.Author
	}
	if request.Category != nil {
		book.Category = *request.Category
	}
	if request.Quantity != nil {
		if *request.Quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
			return
		}
		book.Quantity = *request.Quantity
	}
	if request.CoverImage != nil {
		book.CoverImage = *request.CoverImage
	}
	if request.Description != nil {
		book.Description = *request.Description
	}

	if err := db.Save(&book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update book"})
		return
	}

	available, err := availableCopies(&book)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bookJSON(&book, available))
}

func deleteBook(c *gin.Context) {
	bookUid := c.Param("bookUid")

	var book models.Book
	if err := db.Where("book_uid = ?", bookUid).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	loans, err := activeLoanCount(bookUid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if loans > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "book has active loans"})
		return
	}

	if err := db.Delete(&book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete book"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "book deleted successfully"})
}
