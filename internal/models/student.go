package models

// StudentProfile carries the campus identity of a student account.
type StudentProfile struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	RealName  string `gorm:"size:64;not null" json:"real_name"`
	StudentID string `gorm:"size:20;uniqueIndex;not null" json:"student_id"`
	Grade     string `gorm:"size:20;index" json:"grade"`
	Major     string `gorm:"size:64" json:"major"`
	College   string `gorm:"size:64;index" json:"college"`
	Phone     string `gorm:"size:20" json:"phone"`
	QQ        string `gorm:"column:qq;size:20" json:"qq"`
}
