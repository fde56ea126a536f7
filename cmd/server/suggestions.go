package main

import (
	"bookclub/pkg/models"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func suggestionJSON(s *models.Suggestion) gin.H {
	return gin.H{
		"suggestionUid": s.SuggestionUid,
		"userUid":       s.UserUid,
		"title":         s.Title,
		"author":        s.Author,
		"category":      s.Category,
		"referenceUrl":  s.ReferenceUrl,
		"status":        s.Status,
		"createdAt":     s.CreatedAt.Format(time.RFC3339),
	}
}

func createSuggestion(c *gin.Context) {
	userUid, _ := currentUser(c)

	var request struct {
		Title        string `json:"title" binding:"required"`
		Author       string `json:"author" binding:"required"`
		Category     string `json:"category"`
		ReferenceUrl string `json:"referenceUrl"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	suggestion := models.Suggestion{
		SuggestionUid: uuid.New().String(),
		UserUid:       userUid,
		Title:         request.Title,
		Author:        request.Author,
		Category:      request.Category,
		ReferenceUrl:  request.ReferenceUrl,
		Status:        models.SuggestionPending,
	}
	if err := db.Create(&suggestion).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create suggestion"})
		return
	}

	c.JSON(http.StatusCreated, suggestionJSON(&suggestion))
}

func getSuggestions(c *gin.Context) {
	var suggestions []models.Suggestion
	if err := db.Order("created_at DESC").Find(&suggestions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(suggestions))
	for i, s := range suggestions {
		item := suggestionJSON(&s)
		name, email := userDisplayName(s.UserUid)
		item["userName"] = name
		item["userEmail"] = email
		items[i] = item
	}
	c.JSON(http.StatusOK, items)
}

func getMySuggestions(c *gin.Context) {
	userUid, _ := currentUser(c)

	var suggestions []models.Suggestion
	err := db.Where("user_uid = ?", userUid).Order("created_at DESC").Find(&suggestions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(suggestions))
	for i, s := range suggestions {
		items[i] = suggestionJSON(&s)
	}
	c.JSON(http.StatusOK, items)
}

// updateSuggestion lets the owner edit content fields while the suggestion
// is still pending, and lets an admin change the status. Content edits on
// a moderated suggestion are rejected.
func updateSuggestion(c *gin.Context) {
	userUid, isAdmin := currentUser(c)
	suggestionUid := c.Param("suggestionUid")

	var suggestion models.Suggestion
	if err := db.Where("suggestion_uid = ?", suggestionUid).First(&suggestion).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
		return
	}

	var request struct {
		Title        *string `json:"title"`
		Author       *string `json:"author"`
		Category     *string `json:"category"`
		ReferenceUrl *string `json:"referenceUrl"`
		Status       *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	hasContent := request.Title != nil || request.Author != nil ||
		request.Category != nil || request.ReferenceUrl != nil

	if hasContent {
		if suggestion.UserUid != userUid {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can edit a suggestion"})
			return
		}
		if suggestion.Status != models.SuggestionPending {
			c.JSON(http.StatusConflict, gin.H{"error": "suggestion can only be edited while pending"})
			return
		}
		if request.Title != nil {
			suggestion.Title = *request.Title
		}
		if request.Author != nil {
			suggestion.Author = *request.Author
		}
		if request.Category != nil {
			suggestion.Category = *request.Category
		}
		if request.ReferenceUrl != nil {
			suggestion.ReferenceUrl = *request.ReferenceUrl
		}
	}

	if request.Status != nil {
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins can change suggestion status"})
			return
		}
		status := *request.Status
		if status != models.SuggestionPending &&
			status != models.SuggestionApproved &&
			status != models.SuggestionRejected {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		suggestion.Status = status
	}

	if err := db.Save(&suggestion).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update suggestion"})
		return
	}

	c.JSON(http.StatusOK, suggestionJSON(&suggestion))
}

func deleteSuggestion(c *gin.Context) {
	userUid, isAdmin := currentUser(c)
	suggestionUid := c.Param("suggestionUid")

	var suggestion models.Suggestion
	if err := db.Where("suggestion_uid = ?", suggestionUid).First(&suggestion).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
		return
	}

	if suggestion.UserUid != userUid && !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your suggestion"})
		return
	}

	if err := db.Delete(&suggestion).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete suggestion"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "suggestion deleted successfully"})
}
