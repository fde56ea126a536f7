package main

import (
	"bookclub/pkg/models"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func createTestBook(testDB *gorm.DB, bookUid string, quantity int) models.Book {
	book := models.Book{
		BookUid:  bookUid,
		Title:    "The Go Programming Language",
		Author:   "Donovan & Kernighan",
		Category: "Programming",
		Quantity: quantity,
	}
	testDB.Create(&book)
	return book
}

func TestCreateBorrowRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 2)

	w := httptest.NewRecorder()
	c := authedContext(w, "user-1", false)
	c.Request = jsonRequest("POST", "/api/v1/borrows", map[string]interface{}{
		"bookUid":        "book-1",
		"durationInDays": 14,
	})

	createBorrowRequest(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, models.BorrowRequested, response["status"])

	var request models.BorrowRequest
	testDB.Where("user_uid = ?", "user-1").First(&request)
	assert.Equal(t, models.BorrowRequested, request.Status)
	assert.Equal(t, 14, request.DurationInDays)
	assert.Nil(t, request.ApprovedAt)
}

func TestCreateBorrowRequestBookNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	w := httptest.NewRecorder()
	c := authedContext(w, "user-1", false)
	c.Request = jsonRequest("POST", "/api/v1/borrows", map[string]interface{}{
		"bookUid":        "missing-book",
		"durationInDays": 7,
	})

	createBorrowRequest(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBorrowRequestNoCopiesOwned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 0)

	w := httptest.NewRecorder()
	c := authedContext(w, "user-1", false)
	c.Request = jsonRequest("POST", "/api/v1/borrows", map[string]interface{}{
		"bookUid":        "book-1",
		"durationInDays": 7,
	})

	createBorrowRequest(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// Requests queue behind the current holder while every copy is on loan.
func TestCreateBorrowRequestQueuesWhenAllCopiesLent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 1)

	now := time.Now()
	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 7,
		Status:         models.BorrowApproved,
		ApprovedAt:     &now,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "user-2", false)
	c.Request = jsonRequest("POST", "/api/v1/borrows", map[string]interface{}{
		"bookUid":        "book-1",
		"durationInDays": 7,
	})

	createBorrowRequest(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var request models.BorrowRequest
	testDB.Where("user_uid = ?", "user-2").First(&request)
	assert.Equal(t, models.BorrowRequested, request.Status)
}

func TestCreateBorrowRequestDuplicateActive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 3)

	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 7,
		Status:         models.BorrowRequested,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "user-1", false)
	c.Request = jsonRequest("POST", "/api/v1/borrows", map[string]interface{}{
		"bookUid":        "book-1",
		"durationInDays": 7,
	})

	createBorrowRequest(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// A failing duplicate lookup must refuse the request rather than let a
// second active request slip through.
func TestCreateBorrowRequestDuplicateLookupFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 1)
	testDB.Migrator().DropTable(&models.BorrowRequest{})

	w := httptest.NewRecorder()
	c := authedContext(w, "user-1", false)
	c.Request = jsonRequest("POST", "/api/v1/borrows", map[string]interface{}{
		"bookUid":        "book-1",
		"durationInDays": 7,
	})

	createBorrowRequest(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCreateBorrowRequestAfterRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 1)

	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 7,
		Status:         models.BorrowRejected,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "user-1", false)
	c.Request = jsonRequest("POST", "/api/v1/borrows", map[string]interface{}{
		"bookUid":        "book-1",
		"durationInDays": 7,
	})

	createBorrowRequest(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestApproveSetsDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 1)

	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 14,
		Status:         models.BorrowRequested,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "admin-1", true)
	c.Request = jsonRequest("PUT", "/api/v1/borrows/req-1/status", map[string]interface{}{
		"status": models.BorrowApproved,
	})
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-1"}}

	updateBorrowStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var request models.BorrowRequest
	testDB.Where("request_uid = ?", "req-1").First(&request)
	assert.Equal(t, models.BorrowApproved, request.Status)
	assert.NotNil(t, request.ApprovedAt)
	assert.NotNil(t, request.ExpectedReturnDate)
	expected := request.ApprovedAt.AddDate(0, 0, 14)
	assert.WithinDuration(t, expected, *request.ExpectedReturnDate, time.Second)
}

func TestApproveCapacityConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 1)

	now := time.Now()
	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-a",
		BookUid:        "book-1",
		UserUid:        "user-a",
		DurationInDays: 7,
		Status:         models.BorrowApproved,
		ApprovedAt:     &now,
	})
	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-b",
		BookUid:        "book-1",
		UserUid:        "user-b",
		DurationInDays: 7,
		Status:         models.BorrowRequested,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "admin-1", true)
	c.Request = jsonRequest("PUT", "/api/v1/borrows/req-b/status", map[string]interface{}{
		"status": models.BorrowApproved,
	})
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-b"}}

	updateBorrowStatus(c)

	assert.Equal(t, http.StatusConflict, w.Code)

	var request models.BorrowRequest
	testDB.Where("request_uid = ?", "req-b").First(&request)
	assert.Equal(t, models.BorrowRequested, request.Status)
}

func TestApproveSucceedsAfterReturn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 1)

	now := time.Now()
	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-a",
		BookUid:        "book-1",
		UserUid:        "user-a",
		DurationInDays: 7,
		Status:         models.BorrowApproved,
		ApprovedAt:     &now,
	})
	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-b",
		BookUid:        "book-1",
		UserUid:        "user-b",
		DurationInDays: 7,
		Status:         models.BorrowRequested,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "admin-1", true)
	c.Request = jsonRequest("PUT", "/api/v1/borrows/req-a/status", map[string]interface{}{
		"status": models.BorrowReturned,
	})
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-a"}}
	updateBorrowStatus(c)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	c = authedContext(w, "admin-1", true)
	c.Request = jsonRequest("PUT", "/api/v1/borrows/req-b/status", map[string]interface{}{
		"status": models.BorrowApproved,
	})
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-b"}}
	updateBorrowStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var request models.BorrowRequest
	testDB.Where("request_uid = ?", "req-b").First(&request)
	assert.Equal(t, models.BorrowApproved, request.Status)
}

func TestRequestedCannotGoStraightToReturned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 1)

	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 7,
		Status:         models.BorrowRequested,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "admin-1", true)
	c.Request = jsonRequest("PUT", "/api/v1/borrows/req-1/status", map[string]interface{}{
		"status": models.BorrowReturned,
	})
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-1"}}

	updateBorrowStatus(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRejectKeepsAvailability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	book := createTestBook(testDB, "book-1", 2)

	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 7,
		Status:         models.BorrowRequested,
	})

	before, err := availableCopies(&book)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c := authedContext(w, "admin-1", true)
	c.Request = jsonRequest("PUT", "/api/v1/borrows/req-1/status", map[string]interface{}{
		"status": models.BorrowRejected,
	})
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-1"}}

	updateBorrowStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)

	after, err := availableCopies(&book)
	assert.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateBorrowStatusInvalidValue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	w := httptest.NewRecorder()
	c := authedContext(w, "admin-1", true)
	c.Request = jsonRequest("PUT", "/api/v1/borrows/req-1/status", map[string]interface{}{
		"status": "LOST",
	})
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-1"}}

	updateBorrowStatus(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteOwnRejectedRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 7,
		Status:         models.BorrowRejected,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "user-1", false)
	c.Request = httptest.NewRequest("DELETE", "/api/v1/borrows/req-1", nil)
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-1"}}

	deleteBorrowRequest(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	testDB.Table("borrow_requests").Where("request_uid = ?", "req-1").Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteApprovedRequestConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	now := time.Now()
	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 7,
		Status:         models.BorrowApproved,
		ApprovedAt:     &now,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "user-1", false)
	c.Request = httptest.NewRequest("DELETE", "/api/v1/borrows/req-1", nil)
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-1"}}

	deleteBorrowRequest(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteOtherUsersRequestForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "user-1",
		DurationInDays: 7,
		Status:         models.BorrowRequested,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "user-2", false)
	c.Request = httptest.NewRequest("DELETE", "/api/v1/borrows/req-1", nil)
	c.Params = gin.Params{gin.Param{Key: "requestUid", Value: "req-1"}}

	deleteBorrowRequest(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetBorrowRequestsShowsDeletedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB
	createTestBook(testDB, "book-1", 1)

	testDB.Create(&models.BorrowRequest{
		RequestUid:     "req-1",
		BookUid:        "book-1",
		UserUid:        "gone-user",
		DurationInDays: 7,
		Status:         models.BorrowRequested,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, "admin-1", true)
	c.Request = httptest.NewRequest("GET", "/api/v1/borrows", nil)

	getBorrowRequests(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, 1, len(response))
	assert.Equal(t, "Deleted User", response[0]["userName"])
}
