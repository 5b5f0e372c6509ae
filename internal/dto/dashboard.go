package dto

// DashboardStats summarises the roster and attendance for the dashboard.
type DashboardStats struct {
	TotalStudents   int `json:"totalStudents"`
	TodayPercentage int `json:"todayPercentage"`
	MonthlyAvg      int `json:"monthlyAvg"`
}

// LoginResponse carries an issued access token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}
