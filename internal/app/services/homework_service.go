package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"strings"

	"github.com/kaanyildiz/hwboard/internal/app/models"
	"github.com/kaanyildiz/hwboard/internal/app/models/dto"
	"github.com/kaanyildiz/hwboard/internal/app/repositories"
	"github.com/kaanyildiz/hwboard/internal/pkg/apperrors"
	"github.com/kaanyildiz/hwboard/internal/pkg/filestorage"
	"github.com/kaanyildiz/hwboard/internal/pkg/logger"
)

// HomeworkService defines the interface for homework use cases. It is the
// only layer allowed to touch both the storage engine and the attachment
// store, keeping rows and files consistent.
type HomeworkService interface {
	ListGroupedBySubject(ctx context.Context) (map[string]*dto.SubjectGroup, error)
	Create(ctx context.Context, req *dto.HomeworkRequest, files []*multipart.FileHeader) (*dto.HomeworkSavedResponse, error)
	Update(ctx context.Context, id int64, req *dto.HomeworkRequest, files []*multipart.FileHeader) (*dto.HomeworkSavedResponse, error)
	Delete(ctx context.Context, id int64) error
	AttachmentPath(storedName string) (string, error)
}

// homeworkServiceImpl implements HomeworkService
type homeworkServiceImpl struct {
	homeworkRepo *repositories.HomeworkRepository
	fileStorage  filestorage.FileStorage
}

// NewHomeworkService creates a new HomeworkService
func NewHomeworkService(homeworkRepo *repositories.HomeworkRepository, fileStorage filestorage.FileStorage) HomeworkService {
	return &homeworkServiceImpl{
		homeworkRepo: homeworkRepo,
		fileStorage:  fileStorage,
	}
}

// validateFields checks that all four required text fields are non-empty.
func validateFields(req *dto.HomeworkRequest) error {
	fields := map[string]string{
		"time":    req.Time,
		"subject": req.Subject,
		"title":   req.Title,
		"content": req.Content,
	}
	for _, name := range []string{"time", "subject", "title", "content"} {
		if strings.TrimSpace(fields[name]) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("missing required field: %s", name))
		}
	}
	return nil
}

// ListGroupedBySubject returns all homeworks grouped by subject, preserving
// the engine's most-recent-first ordering within each group.
func (s *homeworkServiceImpl) ListGroupedBySubject(ctx context.Context) (map[string]*dto.SubjectGroup, error) {
	details, err := s.homeworkRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing homeworks: %w", err)
	}

	grouped := make(map[string]*dto.SubjectGroup)
	for _, d := range details {
		attachments := make([]dto.AttachmentResponse, 0, len(d.Attachments))
		for _, att := range d.Attachments {
			attachments = append(attachments, dto.AttachmentResponse{
				ID:       att.ID,
				Filename: att.Filename,
				Filepath: att.Filepath,
			})
		}

		group, ok := grouped[d.Homework.Subject]
		if !ok {
			group = &dto.SubjectGroup{Homeworks: []dto.HomeworkResponse{}}
			grouped[d.Homework.Subject] = group
		}
		group.Homeworks = append(group.Homeworks, dto.HomeworkResponse{
			ID:          d.Homework.ID,
			Time:        d.Homework.Time,
			Subject:     d.Homework.Subject,
			Title:       d.Homework.Title,
			Content:     d.Homework.Content,
			CreatedAt:   d.Homework.CreatedAt,
			Attachments: attachments,
		})
	}

	return grouped, nil
}

// saveAttachments stores each non-skipped upload and records it. Persistence
// is best-effort: a failure partway through leaves earlier attachments (and
// the homework row) in place and surfaces the error.
func (s *homeworkServiceImpl) saveAttachments(ctx context.Context, homeworkID int64, files []*multipart.FileHeader) ([]dto.SavedAttachment, error) {
	saved := []dto.SavedAttachment{}
	for _, fh := range files {
		storedName, err := s.fileStorage.SaveUpload(fh)
		if err != nil {
			return saved, fmt.Errorf("error storing attachment %q: %w", fh.Filename, err)
		}
		if storedName == "" {
			continue // empty filename, treated as "no file"
		}

		att := &models.Attachment{
			HomeworkID: homeworkID,
			Filename:   fh.Filename,
			Filepath:   storedName,
		}
		if _, err := s.homeworkRepo.InsertAttachment(ctx, att); err != nil {
			return saved, fmt.Errorf("error recording attachment %q: %w", fh.Filename, err)
		}

		saved = append(saved, dto.SavedAttachment{
			Filename: att.Filename,
			Filepath: att.Filepath,
		})
	}
	return saved, nil
}

// Create validates the request, inserts the homework and persists any
// uploaded files as attachments.
func (s *homeworkServiceImpl) Create(ctx context.Context, req *dto.HomeworkRequest, files []*multipart.FileHeader) (*dto.HomeworkSavedResponse, error) {
	if err := validateFields(req); err != nil {
		return nil, err
	}

	hw := &models.Homework{
		Time:    req.Time,
		Subject: req.Subject,
		Title:   req.Title,
		Content: req.Content,
	}

	id, err := s.homeworkRepo.InsertHomework(ctx, hw)
	if err != nil {
		return nil, fmt.Errorf("error creating homework: %w", err)
	}

	saved, err := s.saveAttachments(ctx, id, files)
	if err != nil {
		return nil, err
	}

	logger.Info().Int64("id", id).Str("subject", hw.Subject).Int("attachments", len(saved)).Msg("Homework created")
	return &dto.HomeworkSavedResponse{
		ID:          id,
		Message:     "homework created",
		Attachments: saved,
	}, nil
}

// Update validates the request, overwrites the four mutable fields of an
// existing homework and appends any newly supplied files as additional
// attachments. Existing attachments are never removed or replaced here.
func (s *homeworkServiceImpl) Update(ctx context.Context, id int64, req *dto.HomeworkRequest, files []*multipart.FileHeader) (*dto.HomeworkSavedResponse, error) {
	if err := validateFields(req); err != nil {
		return nil, err
	}

	hw := &models.Homework{
		Time:    req.Time,
		Subject: req.Subject,
		Title:   req.Title,
		Content: req.Content,
	}

	if err := s.homeworkRepo.UpdateHomework(ctx, id, hw); err != nil {
		return nil, fmt.Errorf("error updating homework: %w", err)
	}

	saved, err := s.saveAttachments(ctx, id, files)
	if err != nil {
		return nil, err
	}

	logger.Info().Int64("id", id).Int("newAttachments", len(saved)).Msg("Homework updated")
	return &dto.HomeworkSavedResponse{
		ID:          id,
		Message:     "homework updated",
		Attachments: saved,
	}, nil
}

// Delete removes a homework, its attachment rows and their backing files.
// Rows go first so a crash mid-delete leaves orphan files on disk rather
// than rows pointing at missing files.
func (s *homeworkServiceImpl) Delete(ctx context.Context, id int64) error {
	storedNames, err := s.homeworkRepo.DeleteHomeworkCascade(ctx, id)
	if err != nil {
		return fmt.Errorf("error deleting homework: %w", err)
	}

	for _, storedName := range storedNames {
		if err := s.fileStorage.DeleteFile(storedName); err != nil {
			// Rows are already gone; the leftover file is an orphan, not a
			// dangling reference. Log and keep going.
			logger.Error().Err(err).Str("filepath", storedName).Msg("Failed to remove attachment file")
		}
	}

	logger.Info().Int64("id", id).Int("attachments", len(storedNames)).Msg("Homework deleted")
	return nil
}

// AttachmentPath resolves a stored name to its on-disk path for download.
func (s *homeworkServiceImpl) AttachmentPath(storedName string) (string, error) {
	fullPath := s.fileStorage.GetFullPath(storedName)
	if fullPath == "" {
		return "", apperrors.ErrAttachmentNotFound
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.ErrAttachmentNotFound
		}
		return "", fmt.Errorf("error reading attachment: %w", err)
	}

	return fullPath, nil
}
