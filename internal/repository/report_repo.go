package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/activity-portal-api/internal/models"
)

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

// SnapshotReader runs read-only queries inside one consistent read view.
type SnapshotReader interface {
	ActivityStatusCounts() (map[models.ActivityStatus]int64, error)
	CountRegistrations() (int64, error)
	CountStudents() (int64, error)
	StudentsBy(column string) ([]GroupCount, error)
	RegistrationsByCollege() ([]GroupCount, error)
	RegisterTimesSince(since time.Time) ([]time.Time, error)
	RecentActivities(limit int) ([]models.Activity, error)
	RegisteredCounts(ids []uint) (map[uint]int64, error)
	Activity(id uint) (models.Activity, error)
	Roster(activityID uint) ([]RosterEntry, error)
	Users() ([]models.User, error)
	Students() ([]models.StudentProfile, error)
	Activities() ([]models.Activity, error)
	Registrations() ([]models.Registration, error)
}

// ReportRepository opens snapshot transactions for reporting and backups.
type ReportRepository interface {
	Snapshot(ctx context.Context, fn func(reader SnapshotReader) error) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository constructs the reporting repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Snapshot runs fn in a read-only REPEATABLE READ transaction on PostgreSQL.
// Other dialects fall back to their default transaction semantics.
func (r *reportRepository) Snapshot(ctx context.Context, fn func(reader SnapshotReader) error) error {
	var opts []*sql.TxOptions
	if r.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&snapshotReader{tx: tx})
	}, opts...)
}

var groupableStudentColumns = map[string]bool{
	"college": true,
	"grade":   true,
	"major":   true,
}

type snapshotReader struct {
	tx *gorm.DB
}

func (s *snapshotReader) ActivityStatusCounts() (map[models.ActivityStatus]int64, error) {
	var rows []struct {
		Status models.ActivityStatus
		Total  int64
	}
	if err := s.tx.Model(&models.Activity{}).Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[models.ActivityStatus]int64{
		models.ActivityStatusActive:    0,
		models.ActivityStatusCompleted: 0,
		models.ActivityStatusCancelled: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (s *snapshotReader) CountRegistrations() (int64, error) {
	var total int64
	err := s.tx.Model(&models.Registration{}).Count(&total).Error
	return total, err
}

func (s *snapshotReader) CountStudents() (int64, error) {
	var total int64
	err := s.tx.Model(&models.User{}).Where("role = ?", models.RoleStudent).Count(&total).Error
	return total, err
}

// StudentsBy groups student profiles by college, grade or major.
func (s *snapshotReader) StudentsBy(column string) ([]GroupCount, error) {
	if !groupableStudentColumns[column] {
		return nil, gorm.ErrInvalidField
	}

	var rows []GroupCount
	err := s.tx.Model(&models.StudentProfile{}).
		Select(column + " AS label, COUNT(*) AS total").
		Group(column).
		Order("total DESC, label ASC").
		Scan(&rows).Error
	return rows, err
}

func (s *snapshotReader) RegistrationsByCollege() ([]GroupCount, error) {
	var rows []GroupCount
	err := s.tx.Table("registrations").
		Select("student_profiles.college AS label, COUNT(registrations.id) AS total").
		Joins("JOIN student_profiles ON student_profiles.user_id = registrations.user_id").
		Group("student_profiles.college").
		Order("total DESC, label ASC").
		Scan(&rows).Error
	return rows, err
}

func (s *snapshotReader) RegisterTimesSince(since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := s.tx.Model(&models.Registration{}).
		Where("register_time >= ?", since).
		Order("register_time ASC").
		Pluck("register_time", &times).Error
	return times, err
}

func (s *snapshotReader) RecentActivities(limit int) ([]models.Activity, error) {
	var activities []models.Activity
	err := s.tx.Order("created_at DESC, id DESC").Limit(limit).Find(&activities).Error
	return activities, err
}

func (s *snapshotReader) RegisteredCounts(ids []uint) (map[uint]int64, error) {
	return (&activityRepository{db: s.tx}).RegisteredCounts(s.tx.Statement.Context, ids)
}

func (s *snapshotReader) Activity(id uint) (models.Activity, error) {
	var activity models.Activity
	if err := s.tx.First(&activity, id).Error; err != nil {
		return models.Activity{}, err
	}
	return activity, nil
}

func (s *snapshotReader) Roster(activityID uint) ([]RosterEntry, error) {
	var entries []RosterEntry
	err := rosterQuery(s.tx, activityID).Select(rosterColumns).Order(rosterOrder).Scan(&entries).Error
	return entries, err
}

func (s *snapshotReader) Users() ([]models.User, error) {
	var users []models.User
	err := s.tx.Order("id ASC").Find(&users).Error
	return users, err
}

func (s *snapshotReader) Students() ([]models.StudentProfile, error) {
	var students []models.StudentProfile
	err := s.tx.Order("id ASC").Find(&students).Error
	return students, err
}

func (s *snapshotReader) Activities() ([]models.Activity, error) {
	var activities []models.Activity
	err := s.tx.Order("id ASC").Find(&activities).Error
	return activities, err
}

func (s *snapshotReader) Registrations() ([]models.Registration, error) {
	var registrations []models.Registration
	err := s.tx.Order("id ASC").Find(&registrations).Error
	return registrations, err
}
