package dto

// UserStatsResponse groups account counts by role and activity.
type UserStatsResponse struct {
	TotalUsers  int64            `json:"total_users"`
	ActiveUsers int64            `json:"active_users"`
	ByRole      map[string]int64 `json:"by_role"`
}

// CourseStatsResponse groups course counts by status and category.
type CourseStatsResponse struct {
	TotalCourses int64            `json:"total_courses"`
	ByStatus     map[string]int64 `json:"by_status"`
	ByCategory   map[string]int64 `json:"by_category"`
}

// ApprovalStatsResponse summarizes the enrollment approval queue.
type ApprovalStatsResponse struct {
	PendingApprovals  int64 `json:"pending_approvals"`
	ActiveEnrollments int64 `json:"active_enrollments"`
	CompletedCourses  int64 `json:"completed_courses"`
	RejectedRequests  int64 `json:"rejected_requests"`
}

// RevenueStatsResponse carries the estimated revenue rollup. The figure is a
// flat-average placeholder, not billing data.
type RevenueStatsResponse struct {
	ActiveEnrollments int64   `json:"active_enrollments"`
	AveragePrice      float64 `json:"average_price"`
	EstimatedRevenue  float64 `json:"estimated_revenue"`
}

// DashboardStatsResponse aggregates the individual rollups for the admin home.
type DashboardStatsResponse struct {
	Users        UserStatsResponse     `json:"users"`
	Courses      CourseStatsResponse   `json:"courses"`
	Approvals    ApprovalStatsResponse `json:"approvals"`
	Revenue      RevenueStatsResponse  `json:"revenue"`
	Certificates int64                 `json:"certificates_issued"`
}
