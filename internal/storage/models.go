package storage

// Session tracks an anonymous visitor identified by the session cookie.
type Session struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string `gorm:"type:text;not null;uniqueIndex" json:"session_id"`
	UserIP    string `gorm:"type:text;not null" json:"user_ip"`
}

func (Session) TableName() string {
	return "sessions"
}

// History is a single recorded weather search tied to a session.
type History struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string  `gorm:"type:text;index" json:"session_id"`
	City      string  `gorm:"type:text;not null" json:"city"`
	Country   string  `gorm:"type:text;not null" json:"country"`
	Latitude  float64 `gorm:"type:decimal(9,6);not null" json:"latitude"`
	Longitude float64 `gorm:"type:decimal(9,6);not null" json:"longitude"`
}

func (History) TableName() string {
	return "history"
}
