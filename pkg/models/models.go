package models

import (
	"time"
)

// Borrow request statuses.
const (
	BorrowRequested = "REQUESTED"
	BorrowApproved  = "APPROVED"
	BorrowRejected  = "REJECTED"
	BorrowReturned  = "RETURNED"
)

// Reservation statuses.
const (
	ReservationActive    = "ACTIVE"
	ReservationFulfilled = "FULFILLED"
	ReservationExpired   = "EXPIRED"
	ReservationCancelled = "CANCELLED"
)

// Suggestion statuses.
const (
	SuggestionPending  = "PENDING"
	SuggestionApproved = "APPROVED"
	SuggestionRejected = "REJECTED"
)

// Book quantity is the total number of owned copies and never changes on
// borrow or return; availability is always derived from the count of
// approved, unreturned borrow requests.
type Book struct {
	ID          uint   `gorm:"primaryKey"`
	BookUid     string `gorm:"type:uuid;uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Author      string `gorm:"not null"`
	Category    string
	Quantity    int `gorm:"not null;check:quantity >= 0"`
	CoverImage  string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type User struct {
	ID           uint   `gorm:"primaryKey"`
	UserUid      string `gorm:"type:uuid;uniqueIndex;not null"`
	Name         string `gorm:"size:80;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BorrowRequest references Book and User by uid, not by foreign key, so
// deleting a user leaves their requests in place as orphans.
type BorrowRequest struct {
	ID                 uint   `gorm:"primaryKey"`
	RequestUid         string `gorm:"type:uuid;uniqueIndex;not null"`
	BookUid            string `gorm:"type:uuid;index;not null"`
	UserUid            string `gorm:"type:uuid;index;not null"`
	DurationInDays     int    `gorm:"not null"`
	Status             string `gorm:"size:20;not null"`
	ApprovedAt         *time.Time
	ExpectedReturnDate *time.Time
	ReturnedDate       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Reservation struct {
	ID             uint   `gorm:"primaryKey"`
	ReservationUid string `gorm:"type:uuid;uniqueIndex;not null"`
	UserUid        string `gorm:"type:uuid;index;not null"`
	BookUid        string `gorm:"type:uuid;index;not null"`
	Status         string `gorm:"size:20;not null"`
	ReservedAt     time.Time
	ExpiresAt      time.Time `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Suggestion struct {
	ID            uint   `gorm:"primaryKey"`
	SuggestionUid string `gorm:"type:uuid;uniqueIndex;not null"`
	UserUid       string `gorm:"type:uuid;index;not null"`
	Title         string `gorm:"not null"`
	Author        string `gorm:"not null"`
	Category      string
	ReferenceUrl  string
	Status        string `gorm:"size:20;not null;default:'PENDING'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
