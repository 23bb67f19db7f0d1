package dto

// ActivityStatsResponse holds the headline counters of the statistics page.
type ActivityStatsResponse struct {
	TotalActivities     int64 `json:"total_activities"`
	ActiveActivities    int64 `json:"active_activities"`
	CompletedActivities int64 `json:"completed_activities"`
	CancelledActivities int64 `json:"cancelled_activities"`
	TotalRegistrations  int64 `json:"total_registrations"`
	TotalStudents       int64 `json:"total_students"`
}

// DateCount is the number of registrations on one calendar day.
type DateCount struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

// StatisticsResponse bundles every report read from one snapshot.
type StatisticsResponse struct {
	Stats                  ActivityStatsResponse `json:"stats"`
	CollegeDistribution    []GroupCountResponse  `json:"college_distribution"`
	GradeDistribution      []GroupCountResponse  `json:"grade_distribution"`
	RegistrationsByCollege []GroupCountResponse  `json:"registrations_by_college"`
	RegistrationsByDate    []DateCount           `json:"registrations_by_date"`
}

// ChartResponse is a labelled series for the admin charts.
type ChartResponse struct {
	Labels []string `json:"labels"`
	Data   []int64  `json:"data"`
}

// RosterExport is a rendered roster file.
type RosterExport struct {
	Filename    string
	ContentType string
	Body        []byte
}
