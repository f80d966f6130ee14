// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TaskStatus is the lifecycle state of a batch task. A task moves
// SUBMITTED -> PROCESSING -> one of the terminal states and never
// leaves a terminal state except through explicit resubmission.
type TaskStatus string

const (
	StatusSubmitted         TaskStatus = "SUBMITTED"
	StatusProcessing        TaskStatus = "PROCESSING"
	StatusCompleted         TaskStatus = "COMPLETED"
	StatusFailed            TaskStatus = "FAILED"
	StatusFailedNoDownloads TaskStatus = "FAILED_NO_DOWNLOADS"
	StatusFailedZipCreation TaskStatus = "FAILED_ZIP_CREATION"
)

// InFlight reports whether a task with this status is still being worked on.
func (s TaskStatus) InFlight() bool {
	return s == StatusSubmitted || s == StatusProcessing
}

// Terminal reports whether the pipeline will no longer mutate a record
// with this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusFailedNoDownloads, StatusFailedZipCreation:
		return true
	}
	return false
}

// Article is one entry in a batch submission.
type Article struct {
	// Link is the direct PDF URL supplied by the client. It may be empty
	// when a DOI or title is available for resolution.
	Link string `json:"pdfLink" yaml:"pdfLink"`

	// Title names the article and becomes the downloaded filename stem.
	Title string `json:"title" yaml:"title"`

	// DOI is optional and feeds the resolution cascade.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// FailedItem records one article that could not be retrieved.
type FailedItem struct {
	Title  string `json:"title" yaml:"title"`
	DOI    string `json:"doi" yaml:"doi"`
	Link   string `json:"pdfLink_attempted,omitempty" yaml:"pdfLink_attempted,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// TaskRecord is one entry in the record store, keyed by TaskID.
type TaskRecord struct {
	// TaskID is the content-addressed identifier, immutable once created.
	TaskID string `json:"task_id" yaml:"task_id"`

	Status TaskStatus `json:"status" yaml:"status"`

	// TimestampSubmitted is set on first submission and never overwritten.
	TimestampSubmitted time.Time `json:"timestamp_submitted,omitempty" yaml:"timestamp_submitted,omitempty"`

	// TimestampProcessed marks the terminal record write.
	TimestampProcessed time.Time `json:"timestamp_processed,omitempty" yaml:"timestamp_processed,omitempty"`

	NumRequested int `json:"num_requested" yaml:"num_requested"`
	NumSuccess   int `json:"num_success" yaml:"num_success"`

	// ZipFilename is set only when Status is COMPLETED.
	ZipFilename string `json:"zip_filename,omitempty" yaml:"zip_filename,omitempty"`

	FailedItems []FailedItem `json:"failed_items" yaml:"failed_items"`

	Message      string `json:"message,omitempty" yaml:"message,omitempty"`
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}
