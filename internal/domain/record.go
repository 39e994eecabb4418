package domain

import "time"

// ErrorRecord is one persisted error event in the optional journal.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RequestID: correlation id of the failed request.
//   - Status: HTTP status that was served.
//   - Message: short error label that was logged.
//   - Method / Path: request line of the failed request.
//   - Source: how the error was reached ("exception", "status", "view").
//   - CreatedAt: event time (UTC), indexed for newest-first listing.
type ErrorRecord struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	RequestID string    `json:"request_id" gorm:"type:varchar(64);index"`
	Status    int       `json:"status"     gorm:"not null;index:idx_error_status"`
	Message   string    `json:"message"    gorm:"type:varchar(512);not null"`
	Method    string    `json:"method"     gorm:"type:varchar(16);not null"`
	Path      string    `json:"path"       gorm:"type:varchar(2048);not null"`
	Source    string    `json:"source"     gorm:"type:varchar(16);not null;check:source IN ('exception','status','view')"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for ErrorRecord.
func (ErrorRecord) TableName() string { return "error_events" }

// Error event sources.
const (
	SourceException = "exception"
	SourceStatus    = "status"
	SourceView      = "view"
)
