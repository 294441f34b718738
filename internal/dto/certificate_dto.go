package dto

import (
	"time"

	"github.com/edustack/lms-api/internal/models"
)

// CertificateResponse serializes an issued certificate.
type CertificateResponse struct {
	ID             uint         `json:"id"`
	CertificateID  string       `json:"certificate_id"`
	URL            string       `json:"url"`
	CompletionDate time.Time    `json:"completion_date"`
	Student        UserResponse `json:"student"`
	Course         CourseLite   `json:"course"`
	CreatedAt      time.Time    `json:"created_at"`
}

// NewCertificateResponse converts a Certificate model into a DTO.
func NewCertificateResponse(model models.Certificate) CertificateResponse {
	response := CertificateResponse{
		ID:             model.ID,
		CertificateID:  model.CertificateID,
		URL:            model.URL,
		CompletionDate: model.CompletionDate,
		CreatedAt:      model.CreatedAt,
	}

	if model.Student.ID != 0 {
		response.Student = NewUserResponse(model.Student)
	}

	if model.Course.ID != 0 {
		response.Course = NewCourseLite(model.Course)
	}

	return response
}
