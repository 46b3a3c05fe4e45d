package models

import (
	"time"
)

// School owns classes, students and fees
type School struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Address   string    `json:"address"`
	Currency  string    `gorm:"default:NGN;not null" json:"currency"`
	OwnerID   string    `gorm:"type:uuid;index" json:"owner_id"` // proprietor auth subject
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for School
func (School) TableName() string {
	return "schools"
}

// Class is a class/grade within a school
type Class struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	SchoolID uint   `gorm:"not null;index" json:"school_id"`
	Name     string `gorm:"not null" json:"name"`

	// Associations
	School School `gorm:"foreignKey:SchoolID" json:"-"`
}

// TableName specifies the table name for Class
func (Class) TableName() string {
	return "classes"
}

// Student represents an enrolled student
type Student struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SchoolID      uint      `gorm:"not null;index" json:"school_id"`
	ClassID       uint      `gorm:"not null;index" json:"class_id"`
	StudentName   string    `gorm:"not null" json:"student_name"`
	GuardianID    string    `gorm:"type:uuid;index" json:"guardian_id"` // guardian auth subject
	GuardianEmail string    `json:"guardian_email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Associations
	School School `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
	Class  Class  `gorm:"foreignKey:ClassID" json:"class,omitempty"`
}

// TableName specifies the table name for Student
func (Student) TableName() string {
	return "students"
}

// IsGuardedBy returns true if the given auth subject is the student's guardian
func (s *Student) IsGuardedBy(subject string) bool {
	return s.GuardianID != "" && s.GuardianID == subject
}

// Role constants carried in auth tokens
const (
	RoleGuardian   = "guardian"
	RoleTeacher    = "teacher"
	RoleProprietor = "proprietor"
)
