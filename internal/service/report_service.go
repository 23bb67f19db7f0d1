package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/export"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

const (
	defaultTrendDays      = 30
	maxTrendDays          = 366
	dashboardRecentLimit  = 5
	dateBucketLayout      = "2006-01-02"
	chartRegistrationDate = "registrations_by_date"
	chartRegistrationCol  = "registrations_by_college"
	chartActivityStatus   = "activities_by_status"
)

// ErrUnsupportedChart is returned for unknown chart types.
var ErrUnsupportedChart = NewValidationError(map[string]string{
	"type": "must be one of: registrations_by_date registrations_by_college activities_by_status",
})

// ReportService answers the administrator's statistics questions from consistent snapshots.
type ReportService interface {
	ActivityStats(ctx context.Context, principal authz.Principal) (dto.ActivityStatsResponse, error)
	CollegeDistribution(ctx context.Context, principal authz.Principal) ([]dto.GroupCountResponse, error)
	GradeDistribution(ctx context.Context, principal authz.Principal) ([]dto.GroupCountResponse, error)
	RegistrationsByCollege(ctx context.Context, principal authz.Principal) ([]dto.GroupCountResponse, error)
	RegistrationsByDate(ctx context.Context, principal authz.Principal, days int) ([]dto.DateCount, error)
	Statistics(ctx context.Context, principal authz.Principal, days int) (dto.StatisticsResponse, error)
	Dashboard(ctx context.Context, principal authz.Principal) (dto.AdminDashboardResponse, error)
	Chart(ctx context.Context, principal authz.Principal, kind string, days int) (dto.ChartResponse, error)
	ExportRoster(ctx context.Context, principal authz.Principal, activityID uint, format string) (dto.RosterExport, error)
}

type reportService struct {
	reports  repository.ReportRepository
	location *time.Location
	recorder ActionRecorder
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewReportService constructs the reporting service. Date buckets and export
// timestamps use location; nil means UTC.
func NewReportService(reports repository.ReportRepository, location *time.Location, recorder ActionRecorder, logger zerolog.Logger) ReportService {
	if location == nil {
		location = time.UTC
	}
	return &reportService{
		reports:  reports,
		location: location,
		recorder: recorder,
		logger:   logger.With().Str("component", "report_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/activity-portal-api/internal/service/report"),
		now:      time.Now,
	}
}

func (s *reportService) ActivityStats(ctx context.Context, principal authz.Principal) (dto.ActivityStatsResponse, error) {
	var stats dto.ActivityStatsResponse
	err := s.snapshot(ctx, principal, authz.ActionViewReports, "report.activity_stats", func(reader repository.SnapshotReader) error {
		var err error
		stats, err = readActivityStats(reader)
		return err
	})
	return stats, err
}

func (s *reportService) CollegeDistribution(ctx context.Context, principal authz.Principal) ([]dto.GroupCountResponse, error) {
	return s.groupCounts(ctx, principal, "report.college_distribution", func(reader repository.SnapshotReader) ([]repository.GroupCount, error) {
		return reader.StudentsBy("college")
	})
}

func (s *reportService) GradeDistribution(ctx context.Context, principal authz.Principal) ([]dto.GroupCountResponse, error) {
	return s.groupCounts(ctx, principal, "report.grade_distribution", func(reader repository.SnapshotReader) ([]repository.GroupCount, error) {
		return reader.StudentsBy("grade")
	})
}

func (s *reportService) RegistrationsByCollege(ctx context.Context, principal authz.Principal) ([]dto.GroupCountResponse, error) {
	return s.groupCounts(ctx, principal, "report.registrations_by_college", func(reader repository.SnapshotReader) ([]repository.GroupCount, error) {
		return reader.RegistrationsByCollege()
	})
}

func (s *reportService) RegistrationsByDate(ctx context.Context, principal authz.Principal, days int) ([]dto.DateCount, error) {
	var buckets []dto.DateCount
	err := s.snapshot(ctx, principal, authz.ActionViewReports, "report.registrations_by_date", func(reader repository.SnapshotReader) error {
		var err error
		buckets, err = s.readDateBuckets(reader, days)
		return err
	})
	return buckets, err
}

func (s *reportService) Statistics(ctx context.Context, principal authz.Principal, days int) (dto.StatisticsResponse, error) {
	var response dto.StatisticsResponse
	err := s.snapshot(ctx, principal, authz.ActionViewReports, "report.statistics", func(reader repository.SnapshotReader) error {
		stats, err := readActivityStats(reader)
		if err != nil {
			return err
		}
		colleges, err := reader.StudentsBy("college")
		if err != nil {
			return err
		}
		grades, err := reader.StudentsBy("grade")
		if err != nil {
			return err
		}
		byCollege, err := reader.RegistrationsByCollege()
		if err != nil {
			return err
		}
		byDate, err := s.readDateBuckets(reader, days)
		if err != nil {
			return err
		}

		response = dto.StatisticsResponse{
			Stats:                  stats,
			CollegeDistribution:    dto.NewGroupCountResponses(colleges),
			GradeDistribution:      dto.NewGroupCountResponses(grades),
			RegistrationsByCollege: dto.NewGroupCountResponses(byCollege),
			RegistrationsByDate:    byDate,
		}
		return nil
	})
	return response, err
}

func (s *reportService) Dashboard(ctx context.Context, principal authz.Principal) (dto.AdminDashboardResponse, error) {
	var response dto.AdminDashboardResponse
	err := s.snapshot(ctx, principal, authz.ActionViewReports, "report.dashboard", func(reader repository.SnapshotReader) error {
		stats, err := readActivityStats(reader)
		if err != nil {
			return err
		}
		recent, err := reader.RecentActivities(dashboardRecentLimit)
		if err != nil {
			return err
		}
		counts, err := reader.RegisteredCounts(activityIDs(recent))
		if err != nil {
			return err
		}

		response = dto.AdminDashboardResponse{
			TotalActivities:    stats.TotalActivities,
			ActiveActivities:   stats.ActiveActivities,
			TotalStudents:      stats.TotalStudents,
			TotalRegistrations: stats.TotalRegistrations,
			RecentActivities:   toActivityResponses(recent, counts, s.now()),
		}
		return nil
	})
	return response, err
}

func (s *reportService) Chart(ctx context.Context, principal authz.Principal, kind string, days int) (dto.ChartResponse, error) {
	if err := authz.Authorize(principal, authz.ActionViewReports); err != nil {
		return dto.ChartResponse{}, err
	}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case chartRegistrationDate:
		buckets, err := s.RegistrationsByDate(ctx, principal, days)
		if err != nil {
			return dto.ChartResponse{}, err
		}
		chart := dto.ChartResponse{Labels: make([]string, 0, len(buckets)), Data: make([]int64, 0, len(buckets))}
		for _, bucket := range buckets {
			chart.Labels = append(chart.Labels, bucket.Date)
			chart.Data = append(chart.Data, bucket.Total)
		}
		return chart, nil
	case chartRegistrationCol:
		groups, err := s.RegistrationsByCollege(ctx, principal)
		if err != nil {
			return dto.ChartResponse{}, err
		}
		chart := dto.ChartResponse{Labels: make([]string, 0, len(groups)), Data: make([]int64, 0, len(groups))}
		for _, group := range groups {
			chart.Labels = append(chart.Labels, group.Label)
			chart.Data = append(chart.Data, group.Total)
		}
		return chart, nil
	case chartActivityStatus:
		stats, err := s.ActivityStats(ctx, principal)
		if err != nil {
			return dto.ChartResponse{}, err
		}
		return dto.ChartResponse{
			Labels: []string{"进行中", "已完成", "已取消"},
			Data:   []int64{stats.ActiveActivities, stats.CompletedActivities, stats.CancelledActivities},
		}, nil
	default:
		return dto.ChartResponse{}, ErrUnsupportedChart
	}
}

func (s *reportService) ExportRoster(ctx context.Context, principal authz.Principal, activityID uint, format string) (dto.RosterExport, error) {
	if err := authz.Authorize(principal, authz.ActionExportRoster); err != nil {
		return dto.RosterExport{}, err
	}

	parsed, err := export.ParseFormat(format)
	if err != nil {
		return dto.RosterExport{}, NewValidationError(map[string]string{"format": "must be one of: csv xlsx"})
	}

	var (
		activity models.Activity
		entries  []repository.RosterEntry
	)
	err = s.snapshot(ctx, principal, authz.ActionExportRoster, "report.export_roster", func(reader repository.SnapshotReader) error {
		var err error
		activity, err = reader.Activity(activityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return err
		}
		entries, err = reader.Roster(activityID)
		return err
	})
	if err != nil {
		return dto.RosterExport{}, err
	}

	body, err := export.Roster(parsed, entries, s.location)
	if err != nil {
		return dto.RosterExport{}, err
	}

	if s.recorder != nil {
		s.recorder.RecordAction(ctx, LogEntry{
			UserID:   principal.UserID,
			Action:   ActionRosterExport,
			Details:  fmt.Sprintf("exported %d registrations of activity %q", len(entries), activity.Title),
			Metadata: map[string]interface{}{"activity_id": activityID, "format": string(parsed)},
		})
	}

	return dto.RosterExport{
		Filename:    export.Filename(activity.Title, parsed, s.now().In(s.location)),
		ContentType: parsed.ContentType(),
		Body:        body,
	}, nil
}

// snapshot authorizes the caller and runs fn inside one read-only snapshot.
func (s *reportService) snapshot(ctx context.Context, principal authz.Principal, action authz.Action, name string, fn func(repository.SnapshotReader) error) error {
	if err := authz.Authorize(principal, action); err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attribute.Int64("user.id", int64(principal.UserID))))
	defer span.End()

	if err := s.reports.Snapshot(ctx, fn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot read failed")
		return err
	}
	return nil
}

func (s *reportService) groupCounts(ctx context.Context, principal authz.Principal, name string, read func(repository.SnapshotReader) ([]repository.GroupCount, error)) ([]dto.GroupCountResponse, error) {
	var groups []repository.GroupCount
	err := s.snapshot(ctx, principal, authz.ActionViewReports, name, func(reader repository.SnapshotReader) error {
		var err error
		groups, err = read(reader)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewGroupCountResponses(groups), nil
}

// readDateBuckets returns one zero-filled bucket per day from days ago through today.
func (s *reportService) readDateBuckets(reader repository.SnapshotReader, days int) ([]dto.DateCount, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	start := today.AddDate(0, 0, -days)

	times, err := reader.RegisterTimesSince(start)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, days+1)
	for _, at := range times {
		totals[at.In(s.location).Format(dateBucketLayout)]++
	}

	buckets := make([]dto.DateCount, 0, days+1)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateBucketLayout)
		buckets = append(buckets, dto.DateCount{Date: key, Total: totals[key]})
	}
	return buckets, nil
}

func readActivityStats(reader repository.SnapshotReader) (dto.ActivityStatsResponse, error) {
	statuses, err := reader.ActivityStatusCounts()
	if err != nil {
		return dto.ActivityStatsResponse{}, err
	}
	registrations, err := reader.CountRegistrations()
	if err != nil {
		return dto.ActivityStatsResponse{}, err
	}
	students, err := reader.CountStudents()
	if err != nil {
		return dto.ActivityStatsResponse{}, err
	}

	stats := dto.ActivityStatsResponse{
		ActiveActivities:    statuses[models.ActivityStatusActive],
		CompletedActivities: statuses[models.ActivityStatusCompleted],
		CancelledActivities: statuses[models.ActivityStatusCancelled],
		TotalRegistrations:  registrations,
		TotalStudents:       students,
	}
	for _, count := range statuses {
		stats.TotalActivities += count
	}
	return stats, nil
}
