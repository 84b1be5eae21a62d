package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	FullName string `json:"full_name" gorm:"not null;size:100"`
	Email    string `json:"email" gorm:"uniqueIndex;not null;size:255"`

	// Certification track the user is preparing for, e.g. "AWS Solutions Architect".
	CertificationName string `json:"certification_name" gorm:"size:200"`

	// Status
	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Attempts []QuizAttempt `json:"-" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}
