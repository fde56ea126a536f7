package main

import (
	"bookclub/pkg/auth"
	"bookclub/pkg/database"
	"bookclub/pkg/locks"
	"bookclub/pkg/models"
	"bookclub/pkg/notify"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	db                 *gorm.DB
	jwtSecret          string
	reservationTTLDays = 3
	bookLocks          = locks.New()
	notifications      = notify.NewQueue()
)

func main() {
	log.Println("Starting book club service...")

	jwtSecret = getEnv("JWT_SECRET", "your-secret-key")
	reservationTTLDays = getEnvInt("RESERVATION_TTL_DAYS", 3)

	db = database.Init()

	seedAdmin()

	stopWorker := notifications.StartWorker(30*time.Second, notify.LogDelivery)
	defer stopWorker()

	scheduler := cron.New()
	scheduler.AddFunc("@hourly", expireReservations)
	scheduler.AddFunc("0 0 * * *", logOverdueLoans)
	scheduler.Start()
	defer scheduler.Stop()

	server := gin.Default()
	registerRoutes(server)

	port := getEnv("PORT", "8080")
	log.Printf("Book club service starting on :%s", port)
	if err := server.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func registerRoutes(server *gin.Engine) {
	server.POST("/api/v1/auth/register", register)
	server.POST("/api/v1/auth/login", login)
	server.POST("/api/v1/auth/admin/login", adminLogin)

	server.GET("/api/v1/books", getBooks)
	server.GET("/api/v1/books/:bookUid", getBook)

	user := server.Group("/api/v1", auth.RequireUser(jwtSecret))
	user.POST("/borrows", createBorrowRequest)
	user.GET("/borrows/me", getMyBorrowRequests)
	user.DELETE("/borrows/:requestUid", deleteBorrowRequest)
	user.POST("/reservations", createReservation)
	user.GET("/reservations/me", getMyReservations)
	user.DELETE("/reservations/:reservationUid", cancelReservation)
	user.POST("/suggestions", createSuggestion)
	user.GET("/suggestions/me", getMySuggestions)
	user.PUT("/suggestions/:suggestionUid", updateSuggestion)
	user.DELETE("/suggestions/:suggestionUid", deleteSuggestion)

	admin := server.Group("/api/v1", auth.RequireUser(jwtSecret), auth.RequireAdmin())
	admin.POST("/books", createBook)
	admin.PUT("/books/:bookUid", updateBook)
	admin.DELETE("/books/:bookUid", deleteBook)
	admin.POST("/users", createUser)
	admin.GET("/users", getUsers)
	admin.DELETE("/users/:userUid", deleteUser)
	admin.PUT("/users/:userUid/toggle-admin", toggleAdmin)
	admin.GET("/borrows", getBorrowRequests)
	admin.PUT("/borrows/:requestUid/status", updateBorrowStatus)
	admin.GET("/suggestions", getSuggestions)

	server.GET("/manage/health", healthCheck)
}

// seedAdmin makes sure an initial admin account exists.
func seedAdmin() {
	// Logins look accounts up by lowercased email, so store it that way too.
	email := strings.ToLower(getEnv("ADMIN_EMAIL", "admin@bookclub.local"))
	password := getEnv("ADMIN_PASSWORD", "admin123")

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}

	admin := models.User{
		UserUid:      uuid.New().String(),
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("Failed to create admin account: %v", err)
	} else {
		log.Printf("Created admin account: %s", email)
	}
}

func healthCheck(ctx *gin.Context) {
	sqlDB, err := db.DB()
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status": "UP",
	})
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}
