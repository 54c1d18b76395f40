package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job is the status-store record for one uploaded report.
type Job struct {
	ID               uuid.UUID       `db:"id" json:"request_id"`
	Status           JobStatus       `db:"status" json:"status"`
	FileName         string          `db:"file_name" json:"file_name"`
	ObjectKey        string          `db:"object_key" json:"object_key"`
	CallbackURL      string          `db:"callback_url" json:"callback_url,omitempty"`
	SubmittedBy      string          `db:"submitted_by" json:"submitted_by,omitempty"`
	ResultCount      *int            `db:"result_count" json:"result_count,omitempty"`
	ErrorMessage     string          `db:"error_message" json:"error_message,omitempty"`
	ExtractionFailed bool            `db:"extraction_failed" json:"extraction_failed"`
	Landscape        bool            `db:"landscape" json:"landscape"`
	Header           json.RawMessage `db:"header" json:"header,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// StatusUpdate carries one write to the status store. ResultCount, ErrorMessage
// and Result are optional and only set for terminal statuses.
type StatusUpdate struct {
	JobID        uuid.UUID
	Status       JobStatus
	ResultCount  *int
	ErrorMessage string
	Result       *ProcessingResult
	Timestamp    time.Time
}

// ProcessedTable is the unit returned per detected table.
type ProcessedTable struct {
	TableIndex         int     `json:"table_index"`
	PageNumber         int     `json:"page_number"`
	Content            []Row   `json:"content"`
	ExtractionAccuracy float64 `json:"extraction_accuracy"`
	RuleName           string  `json:"rule_name,omitempty"`
}

// DateMetadata holds a decomposed reference period. Both fields are "None"
// when the source text could not be split.
type DateMetadata struct {
	Year  string `json:"year"`
	Month string `json:"month"`
}

// ReportHeader is the metadata block printed at the top of a report.
type ReportHeader struct {
	ReferenceDate    string       `json:"reference_date,omitempty"`
	Company          string       `json:"company,omitempty"`
	TaxCode          string       `json:"tax_code,omitempty"`
	CCIAA            string       `json:"cciaa,omitempty"`
	RegisteredOffice string       `json:"registered_office,omitempty"`
	IssueDate        string       `json:"issue_date,omitempty"`
	Period           DateMetadata `json:"period"`
}

// ProcessingResult is everything the pipeline produced for one document.
// OrientationDegraded and ExtractionFailed separate "nothing found" from
// "a step failed and a default was used".
type ProcessingResult struct {
	Landscape           bool             `json:"landscape"`
	OrientationDegraded bool             `json:"orientation_degraded"`
	ExtractionFailed    bool             `json:"extraction_failed"`
	ExtractionError     string           `json:"extraction_error,omitempty"`
	Header              ReportHeader     `json:"header"`
	Tables              []ProcessedTable `json:"tables"`
}

// Notification is the payload delivered to job subscribers.
type Notification struct {
	URL    string
	JobID  uuid.UUID
	Status NotificationStatus
	Error  string
}
