package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edustack/lms-api/internal/dto"
	"github.com/edustack/lms-api/internal/models"
	"github.com/edustack/lms-api/internal/repository"
)

// AdminStatsService produces the aggregate rollups behind the admin dashboard.
type AdminStatsService interface {
	UserStats(ctx context.Context) (dto.UserStatsResponse, error)
	CourseStats(ctx context.Context) (dto.CourseStatsResponse, error)
	ApprovalStats(ctx context.Context) (dto.ApprovalStatsResponse, error)
	RevenueStats(ctx context.Context) (dto.RevenueStatsResponse, error)
	Dashboard(ctx context.Context) (dto.DashboardStatsResponse, error)
}

type adminStatsService struct {
	users        repository.UserRepository
	courses      repository.CourseRepository
	enrollments  repository.EnrollmentRepository
	certificates repository.CertificateRepository
	cache        *redis.Client
	cacheTTL     time.Duration
	averagePrice float64
	logger       zerolog.Logger
}

// NewAdminStatsService constructs an AdminStatsService instance. cache may be
// nil, in which case every call hits the database.
func NewAdminStatsService(users repository.UserRepository, courses repository.CourseRepository, enrollments repository.EnrollmentRepository, certificates repository.CertificateRepository, cache *redis.Client, cacheTTL time.Duration, averagePrice float64, logger zerolog.Logger) AdminStatsService {
	return &adminStatsService{
		users:        users,
		courses:      courses,
		enrollments:  enrollments,
		certificates: certificates,
		cache:        cache,
		cacheTTL:     cacheTTL,
		averagePrice: averagePrice,
		logger:       logger.With().Str("component", "admin_stats_service").Logger(),
	}
}

func (s *adminStatsService) UserStats(ctx context.Context) (dto.UserStatsResponse, error) {
	var response dto.UserStatsResponse
	if s.cacheRead(ctx, "stats:users", &response) {
		return response, nil
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return dto.UserStatsResponse{}, err
	}

	active, err := s.users.CountActive(ctx)
	if err != nil {
		return dto.UserStatsResponse{}, err
	}

	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return dto.UserStatsResponse{}, err
	}

	response = dto.UserStatsResponse{
		TotalUsers:  total,
		ActiveUsers: active,
		ByRole:      byRole,
	}

	s.cacheWrite(ctx, "stats:users", response)

	return response, nil
}

func (s *adminStatsService) CourseStats(ctx context.Context) (dto.CourseStatsResponse, error) {
	var response dto.CourseStatsResponse
	if s.cacheRead(ctx, "stats:courses", &response) {
		return response, nil
	}

	total, err := s.courses.Count(ctx)
	if err != nil {
		return dto.CourseStatsResponse{}, err
	}

	byStatus, err := s.courses.CountByStatus(ctx)
	if err != nil {
		return dto.CourseStatsResponse{}, err
	}

	byCategory, err := s.courses.CountByCategory(ctx)
	if err != nil {
		return dto.CourseStatsResponse{}, err
	}

	response = dto.CourseStatsResponse{
		TotalCourses: total,
		ByStatus:     byStatus,
		ByCategory:   byCategory,
	}

	s.cacheWrite(ctx, "stats:courses", response)

	return response, nil
}

func (s *adminStatsService) ApprovalStats(ctx context.Context) (dto.ApprovalStatsResponse, error) {
	var response dto.ApprovalStatsResponse
	if s.cacheRead(ctx, "stats:approvals", &response) {
		return response, nil
	}

	pending, err := s.enrollments.CountByStatus(ctx, models.EnrollmentStatusPending)
	if err != nil {
		return dto.ApprovalStatsResponse{}, err
	}

	active, err := s.enrollments.CountByStatus(ctx, models.EnrollmentStatusActive)
	if err != nil {
		return dto.ApprovalStatsResponse{}, err
	}

	completed, err := s.enrollments.CountByStatus(ctx, models.EnrollmentStatusCompleted)
	if err != nil {
		return dto.ApprovalStatsResponse{}, err
	}

	rejected, err := s.enrollments.CountByStatus(ctx, models.EnrollmentStatusRejected)
	if err != nil {
		return dto.ApprovalStatsResponse{}, err
	}

	response = dto.ApprovalStatsResponse{
		PendingApprovals:  pending,
		ActiveEnrollments: active,
		CompletedCourses:  completed,
		RejectedRequests:  rejected,
	}

	s.cacheWrite(ctx, "stats:approvals", response)

	return response, nil
}

// RevenueStats multiplies active enrollments by the configured average price.
// It is an estimate for the dashboard, not billing data.
func (s *adminStatsService) RevenueStats(ctx context.Context) (dto.RevenueStatsResponse, error) {
	var response dto.RevenueStatsResponse
	if s.cacheRead(ctx, "stats:revenue", &response) {
		return response, nil
	}

	active, err := s.enrollments.CountByStatus(ctx, models.EnrollmentStatusActive)
	if err != nil {
		return dto.RevenueStatsResponse{}, err
	}

	response = dto.RevenueStatsResponse{
		ActiveEnrollments: active,
		AveragePrice:      s.averagePrice,
		EstimatedRevenue:  float64(active) * s.averagePrice,
	}

	s.cacheWrite(ctx, "stats:revenue", response)

	return response, nil
}

func (s *adminStatsService) Dashboard(ctx context.Context) (dto.DashboardStatsResponse, error) {
	users, err := s.UserStats(ctx)
	if err != nil {
		return dto.DashboardStatsResponse{}, err
	}

	courses, err := s.CourseStats(ctx)
	if err != nil {
		return dto.DashboardStatsResponse{}, err
	}

	approvals, err := s.ApprovalStats(ctx)
	if err != nil {
		return dto.DashboardStatsResponse{}, err
	}

	revenue, err := s.RevenueStats(ctx)
	if err != nil {
		return dto.DashboardStatsResponse{}, err
	}

	certificates, err := s.certificates.Count(ctx)
	if err != nil {
		return dto.DashboardStatsResponse{}, err
	}

	return dto.DashboardStatsResponse{
		Users:        users,
		Courses:      courses,
		Approvals:    approvals,
		Revenue:      revenue,
		Certificates: certificates,
	}, nil
}

// cacheRead fills target from the cache and reports a hit. Cache failures are
// logged and treated as misses.
func (s *adminStatsService) cacheRead(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read stats cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to decode stats cache")
		return false
	}

	return true
}

func (s *adminStatsService) cacheWrite(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to encode stats cache")
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store stats cache")
	}
}
