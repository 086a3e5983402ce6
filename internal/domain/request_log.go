package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestLog is one ledger entry describing an outbound API call.
type RequestLog struct {
	ID         uuid.UUID         `json:"id"`
	URL        string            `json:"url"`
	Params     map[string]string `json:"params,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time"`
	Elapsed    time.Duration     `json:"elapsed"`
	StatusCode int               `json:"status_code"`
	Wait       time.Duration     `json:"wait"`
}
