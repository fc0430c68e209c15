package models

import "time"

// Homework is a single assignment record. ID and CreatedAt are assigned by
// the storage engine on insert and never change afterwards; the remaining
// four fields are caller-supplied text and mutable through update.
type Homework struct {
	ID        int64     `db:"id" json:"id"`
	Time      string    `db:"time" json:"time"`
	Subject   string    `db:"subject" json:"subject"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Attachment is one uploaded file belonging to a homework. Filename is the
// uploader-supplied display name; Filepath is the unique stored name under
// the uploads directory.
type Attachment struct {
	ID         int64  `db:"id" json:"id"`
	HomeworkID int64  `db:"homework_id" json:"homeworkId"`
	Filename   string `db:"filename" json:"filename"`
	Filepath   string `db:"filepath" json:"filepath"`
}
