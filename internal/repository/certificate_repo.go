package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edustack/lms-api/internal/models"
)

// CertificateRepository defines persistence operations for certificates.
type CertificateRepository interface {
	Create(ctx context.Context, certificate *models.Certificate) error
	GetByStudentAndCourse(ctx context.Context, studentID, courseID uint) (models.Certificate, error)
	GetByCertificateID(ctx context.Context, certificateID string) (models.Certificate, error)
	Count(ctx context.Context) (int64, error)
}

type certificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository instantiates a GORM-backed repository.
func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) Create(ctx context.Context, certificate *models.Certificate) error {
	return r.db.WithContext(ctx).Create(certificate).Error
}

func (r *certificateRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID uint) (models.Certificate, error) {
	var certificate models.Certificate
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Course").
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&certificate).Error
	if err != nil {
		return models.Certificate{}, err
	}

	return certificate, nil
}

func (r *certificateRepository) GetByCertificateID(ctx context.Context, certificateID string) (models.Certificate, error) {
	var certificate models.Certificate
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Course").
		Where("certificate_id = ?", certificateID).
		First(&certificate).Error
	if err != nil {
		return models.Certificate{}, err
	}

	return certificate, nil
}

func (r *certificateRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Certificate{}).Count(&total).Error
	return total, err
}
