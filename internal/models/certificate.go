package models

import "time"

// Certificate is the issued proof of completion for a (student, course) pair.
// The unique index on the pair backstops the idempotent issuance path.
type Certificate struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      uint      `gorm:"not null;uniqueIndex:idx_certificate_student_course" json:"student_id"`
	CourseID       uint      `gorm:"not null;uniqueIndex:idx_certificate_student_course" json:"course_id"`
	CertificateID  string    `gorm:"size:64;uniqueIndex;not null" json:"certificate_id"`
	URL            string    `gorm:"size:512" json:"url"`
	CompletionDate time.Time `gorm:"not null" json:"completion_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Student        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Course         Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"course"`
}
