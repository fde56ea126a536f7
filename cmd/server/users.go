package main

import (
	"bookclub/pkg/models"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func createUser(c *gin.Context) {
	var request struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	email := strings.ToLower(request.Email)
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := models.User{
		UserUid:      uuid.New().String(),
		Name:         request.Name,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      false,
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, userJSON(&user))
}

func getUsers(c *gin.Context) {
	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(users))
	for i, user := range users {
		items[i] = userJSON(&user)
	}
	c.JSON(http.StatusOK, items)
}

// deleteUser removes the account but leaves the user's borrow requests,
// reservations and suggestions behind as orphans.
func deleteUser(c *gin.Context) {
	userUid := c.Param("userUid")

	var user models.User
	if err := db.Where("user_uid = ?", userUid).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := db.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}

func toggleAdmin(c *gin.Context) {
	userUid := c.Param("userUid")

	var user models.User
	if err := db.Where("user_uid = ?", userUid).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	user.IsAdmin = !user.IsAdmin
	if err := db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}

	c.JSON(http.StatusOK, userJSON(&user))
}

// userDisplayName resolves a user uid for listings, tolerating orphaned
// references to deleted accounts.
func userDisplayName(userUid string) (name, email string) {
	var user models.User
	if err := db.Where("user_uid = ?", userUid).First(&user).Error; err != nil {
		return "Deleted User", ""
	}
	return user.Name, user.Email
}
