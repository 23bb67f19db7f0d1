package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/dto"
	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

var backupNamePattern = regexp.MustCompile(`^backup_(\d{14})(?:_(\d{1,3}))?\.json$`)

const maxBackupsPerSecond = 100

// BackupService produces point-in-time JSON exports of the portal.
type BackupService interface {
	SnapshotAll(ctx context.Context, principal authz.Principal) (dto.BackupDocument, error)
	Create(ctx context.Context, principal authz.Principal) (dto.BackupFileResponse, error)
	List(ctx context.Context, principal authz.Principal) ([]dto.BackupFileResponse, error)
	Read(ctx context.Context, principal authz.Principal, name string) ([]byte, error)
}

type backupService struct {
	reports  repository.ReportRepository
	dir      string
	recorder ActionRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewBackupService constructs the backup service writing into dir.
func NewBackupService(reports repository.ReportRepository, dir string, recorder ActionRecorder, logger zerolog.Logger) BackupService {
	if dir == "" {
		dir = "backups"
	}
	return &backupService{
		reports:  reports,
		dir:      dir,
		recorder: recorder,
		logger:   logger.With().Str("component", "backup_service").Logger(),
		now:      time.Now,
	}
}

// SnapshotAll reads every user, profile, activity and registration from one snapshot.
func (s *backupService) SnapshotAll(ctx context.Context, principal authz.Principal) (dto.BackupDocument, error) {
	if err := authz.Authorize(principal, authz.ActionBackup); err != nil {
		return dto.BackupDocument{}, err
	}

	document := dto.BackupDocument{GeneratedAt: s.now().UTC()}
	err := s.reports.Snapshot(ctx, func(reader repository.SnapshotReader) error {
		users, err := reader.Users()
		if err != nil {
			return err
		}
		students, err := reader.Students()
		if err != nil {
			return err
		}
		activities, err := reader.Activities()
		if err != nil {
			return err
		}
		registrations, err := reader.Registrations()
		if err != nil {
			return err
		}

		document.Users = backupUsers(users)
		document.Students = backupStudents(students)
		document.Activities = backupActivities(activities)
		document.Registrations = backupRegistrations(registrations)
		return nil
	})
	if err != nil {
		return dto.BackupDocument{}, err
	}

	return document, nil
}

func (s *backupService) Create(ctx context.Context, principal authz.Principal) (dto.BackupFileResponse, error) {
	document, err := s.SnapshotAll(ctx, principal)
	if err != nil {
		return dto.BackupFileResponse{}, err
	}

	payload, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return dto.BackupFileResponse{}, fmt.Errorf("encode backup: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return dto.BackupFileResponse{}, fmt.Errorf("create backup dir: %w", err)
	}

	name, path, err := writeBackupFile(s.dir, document.GeneratedAt.Format("20060102150405"), payload)
	if err != nil {
		return dto.BackupFileResponse{}, err
	}

	s.logger.Info().Str("file", path).Int("bytes", len(payload)).Msg("backup written")

	if s.recorder != nil {
		s.recorder.RecordAction(ctx, LogEntry{
			UserID:  principal.UserID,
			Action:  ActionSystemBackup,
			Details: fmt.Sprintf("backup %s created", name),
			Metadata: map[string]interface{}{
				"file":          name,
				"users":         len(document.Users),
				"activities":    len(document.Activities),
				"registrations": len(document.Registrations),
			},
		})
	}

	return dto.BackupFileResponse{Name: name, SizeBytes: int64(len(payload)), CreatedAt: document.GeneratedAt}, nil
}

// List returns stored backups, newest first.
func (s *backupService) List(ctx context.Context, principal authz.Principal) ([]dto.BackupFileResponse, error) {
	if err := authz.Authorize(principal, authz.ActionBackup); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []dto.BackupFileResponse{}, nil
		}
		return nil, err
	}

	files := make([]dto.BackupFileResponse, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !backupNamePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable backup")
			continue
		}
		files = append(files, dto.BackupFileResponse{
			Name:      entry.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		stampI, seqI := backupOrder(files[i].Name)
		stampJ, seqJ := backupOrder(files[j].Name)
		if stampI != stampJ {
			return stampI > stampJ
		}
		return seqI > seqJ
	})
	return files, nil
}

// Read returns the raw contents of a stored backup.
func (s *backupService) Read(ctx context.Context, principal authz.Principal, name string) ([]byte, error) {
	if err := authz.Authorize(principal, authz.ActionBackup); err != nil {
		return nil, err
	}
	if !backupNamePattern.MatchString(name) {
		return nil, ErrBackupNotFound
	}

	payload, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}
	return payload, nil
}

func backupUsers(users []models.User) []dto.BackupUser {
	items := make([]dto.BackupUser, 0, len(users))
	for _, user := range users {
		items = append(items, dto.BackupUser{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Role:      user.Role.String(),
			CreatedAt: user.CreatedAt.UTC(),
			LastLogin: utcPtr(user.LastLogin),
		})
	}
	return items
}

func backupStudents(students []models.StudentProfile) []dto.BackupStudent {
	items := make([]dto.BackupStudent, 0, len(students))
	for _, student := range students {
		items = append(items, dto.BackupStudent{
			ID:        student.ID,
			UserID:    student.UserID,
			RealName:  student.RealName,
			StudentID: student.StudentID,
			Grade:     student.Grade,
			Major:     student.Major,
			College:   student.College,
			Phone:     student.Phone,
			QQ:        student.QQ,
		})
	}
	return items
}

func backupActivities(activities []models.Activity) []dto.BackupActivity {
	items := make([]dto.BackupActivity, 0, len(activities))
	for _, activity := range activities {
		items = append(items, dto.BackupActivity{
			ID:                   activity.ID,
			Title:                activity.Title,
			Description:          activity.Description,
			Location:             activity.Location,
			StartTime:            activity.StartTime.UTC(),
			EndTime:              activity.EndTime.UTC(),
			RegistrationDeadline: activity.RegistrationDeadline.UTC(),
			MaxParticipants:      activity.MaxParticipants,
			CreatedBy:            activity.CreatedBy,
			Status:               string(activity.Status),
			CreatedAt:            activity.CreatedAt.UTC(),
			UpdatedAt:            activity.UpdatedAt.UTC(),
		})
	}
	return items
}

func backupRegistrations(registrations []models.Registration) []dto.BackupRegistration {
	items := make([]dto.BackupRegistration, 0, len(registrations))
	for _, registration := range registrations {
		items = append(items, dto.BackupRegistration{
			ID:           registration.ID,
			UserID:       registration.UserID,
			ActivityID:   registration.ActivityID,
			RegisterTime: registration.RegisterTime.UTC(),
			Status:       string(registration.Status),
			Remark:       registration.Remark,
		})
	}
	return items
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

// writeBackupFile never replaces an existing backup: a second backup within the
// same second gets a numeric suffix.
func writeBackupFile(dir, stamp string, payload []byte) (string, string, error) {
	for seq := 0; seq < maxBackupsPerSecond; seq++ {
		name := fmt.Sprintf("backup_%s.json", stamp)
		if seq > 0 {
			name = fmt.Sprintf("backup_%s_%d.json", stamp, seq)
		}
		path := filepath.Join(dir, name)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("write backup: %w", err)
		}
		if _, err := file.Write(payload); err != nil {
			_ = file.Close()
			_ = os.Remove(path)
			return "", "", fmt.Errorf("write backup: %w", err)
		}
		if err := file.Close(); err != nil {
			return "", "", fmt.Errorf("write backup: %w", err)
		}
		return name, path, nil
	}
	return "", "", fmt.Errorf("write backup: too many backups at %s", stamp)
}

func backupOrder(name string) (string, int) {
	match := backupNamePattern.FindStringSubmatch(name)
	if match == nil {
		return "", 0
	}
	seq, _ := strconv.Atoi(match[2])
	return match[1], seq
}
