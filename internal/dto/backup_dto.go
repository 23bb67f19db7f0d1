package dto

import "time"

// BackupDocument is the point-in-time export of the portal's records.
type BackupDocument struct {
	GeneratedAt   time.Time            `json:"generated_at"`
	Users         []BackupUser         `json:"users"`
	Students      []BackupStudent      `json:"students"`
	Activities    []BackupActivity     `json:"activities"`
	Registrations []BackupRegistration `json:"registrations"`
}

// BackupUser omits credentials.
type BackupUser struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

type BackupStudent struct {
	ID        uint   `json:"id"`
	UserID    uint   `json:"user_id"`
	RealName  string `json:"real_name"`
	StudentID string `json:"student_id"`
	Grade     string `json:"grade"`
	Major     string `json:"major"`
	College   string `json:"college"`
	Phone     string `json:"phone"`
	QQ        string `json:"qq"`
}

type BackupActivity struct {
	ID                   uint      `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Location             string    `json:"location"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	MaxParticipants      int       `json:"max_participants"`
	CreatedBy            uint      `json:"created_by"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type BackupRegistration struct {
	ID           uint      `json:"id"`
	UserID       uint      `json:"user_id"`
	ActivityID   uint      `json:"activity_id"`
	RegisterTime time.Time `json:"register_time"`
	Status       string    `json:"status"`
	Remark       string    `json:"remark"`
}

// BackupFileResponse describes a stored backup file.
type BackupFileResponse struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
