package dto

import "time"

// HomeworkRequest carries the multipart form fields shared by create and
// update. File parts travel separately as multipart headers.
type HomeworkRequest struct {
	Time    string `form:"time"`
	Subject string `form:"subject"`
	Title   string `form:"title"`
	Content string `form:"content"`
}

// AttachmentResponse describes one stored attachment.
type AttachmentResponse struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
}

// HomeworkResponse is one homework with its attachments.
type HomeworkResponse struct {
	ID          int64                `json:"id"`
	Time        string               `json:"time"`
	Subject     string               `json:"subject"`
	Title       string               `json:"title"`
	Content     string               `json:"content"`
	CreatedAt   time.Time            `json:"createdAt"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// SubjectGroup is the per-subject bucket in the list payload.
type SubjectGroup struct {
	Homeworks []HomeworkResponse `json:"homeworks"`
}

// SavedAttachment echoes a file persisted during create/update.
type SavedAttachment struct {
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
}

// HomeworkSavedResponse is the body returned by create and update.
type HomeworkSavedResponse struct {
	ID          int64             `json:"id"`
	Message     string            `json:"message"`
	Attachments []SavedAttachment `json:"attachments"`
}

// MessageResponse represents a standard success response for API endpoints
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON body every failed request carries.
type ErrorResponse struct {
	Error string `json:"error"`
}
