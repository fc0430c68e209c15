package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/kaanyildiz/hwboard/internal/app/models"
	"github.com/kaanyildiz/hwboard/internal/db"
	"github.com/kaanyildiz/hwboard/internal/pkg/apperrors"
	"github.com/kaanyildiz/hwboard/internal/pkg/logger"
)

// createdAtLayout is fixed-width so the stored text sorts chronologically.
const createdAtLayout = "2006-01-02 15:04:05.000000000"

// HomeworkDetails pairs a homework row with its attachment rows.
type HomeworkDetails struct {
	Homework    models.Homework
	Attachments []models.Attachment
}

// HomeworkRepository owns the two-table schema and every read/write against
// it. All public methods run inside the datastore's exclusive section, so
// no two repository operations ever interleave.
type HomeworkRepository struct {
	db *db.SQLite
}

// NewHomeworkRepository creates a new instance of HomeworkRepository.
func NewHomeworkRepository(database *db.SQLite) *HomeworkRepository {
	return &HomeworkRepository{db: database}
}

// InitSchema idempotently ensures both tables exist. Safe to call on every
// process start.
func (r *HomeworkRepository) InitSchema(ctx context.Context) error {
	return r.db.Exclusive(func() error {
		_, err := r.db.DB.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS homeworks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				time TEXT NOT NULL,
				subject TEXT NOT NULL,
				title TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`)
		if err != nil {
			logger.Error().Err(err).Msg("Error creating homeworks table")
			return err
		}

		_, err = r.db.DB.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS attachments (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				homework_id INTEGER NOT NULL,
				filename TEXT NOT NULL,
				filepath TEXT NOT NULL,
				FOREIGN KEY (homework_id) REFERENCES homeworks (id)
			)`)
		if err != nil {
			logger.Error().Err(err).Msg("Error creating attachments table")
			return err
		}

		return nil
	})
}

// scanHomework scans one homeworks row, parsing the stored timestamp.
func scanHomework(row squirrel.RowScanner) (*models.Homework, error) {
	var hw models.Homework
	var createdAt string
	err := row.Scan(&hw.ID, &hw.Time, &hw.Subject, &hw.Title, &hw.Content, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrHomeworkNotFound
		}
		logger.Error().Err(err).Msg("Error scanning homework row")
		return nil, err
	}

	hw.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
	if err != nil {
		logger.Error().Err(err).Str("created_at", createdAt).Msg("Error parsing homework timestamp")
		return nil, err
	}
	return &hw, nil
}

// InsertHomework inserts one homework row and returns the generated id.
// CreatedAt is stamped here, once, and never updated afterwards.
func (r *HomeworkRepository) InsertHomework(ctx context.Context, hw *models.Homework) (int64, error) {
	createdAt := time.Now().UTC()

	sqlStr, args, err := squirrel.Insert("homeworks").
		Columns("time", "subject", "title", "content", "created_at").
		Values(hw.Time, hw.Subject, hw.Title, hw.Content, createdAt.Format(createdAtLayout)).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building insert homework SQL")
		return 0, err
	}

	var id int64
	err = r.db.Exclusive(func() error {
		res, execErr := r.db.DB.ExecContext(ctx, sqlStr, args...)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		logger.Error().Err(err).Msg("Error executing insert homework query")
		return 0, err
	}

	hw.ID = id
	hw.CreatedAt = createdAt
	return id, nil
}

// GetHomework retrieves a single homework by its id.
func (r *HomeworkRepository) GetHomework(ctx context.Context, id int64) (*models.Homework, error) {
	sqlStr, args, err := squirrel.Select("id", "time", "subject", "title", "content", "created_at").
		From("homeworks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get homework SQL")
		return nil, err
	}

	var hw *models.Homework
	err = r.db.Exclusive(func() error {
		var scanErr error
		hw, scanErr = scanHomework(r.db.DB.QueryRowContext(ctx, sqlStr, args...))
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return hw, nil
}

// UpdateHomework overwrites the four mutable fields of an existing row,
// leaving id and created_at untouched.
func (r *HomeworkRepository) UpdateHomework(ctx context.Context, id int64, hw *models.Homework) error {
	sqlStr, args, err := squirrel.Update("homeworks").
		Set("time", hw.Time).
		Set("subject", hw.Subject).
		Set("title", hw.Title).
		Set("content", hw.Content).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update homework SQL")
		return err
	}

	return r.db.Exclusive(func() error {
		res, execErr := r.db.DB.ExecContext(ctx, sqlStr, args...)
		if execErr != nil {
			logger.Error().Err(execErr).Msg("Error executing update homework query")
			return execErr
		}
		affected, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		if affected == 0 {
			return apperrors.ErrHomeworkNotFound
		}
		return nil
	})
}

// InsertAttachment inserts one attachment row for an existing homework.
// Referential integrity is enforced here: a missing parent fails with
// ErrHomeworkNotFound before anything is written.
func (r *HomeworkRepository) InsertAttachment(ctx context.Context, att *models.Attachment) (int64, error) {
	existsSQL, existsArgs, err := squirrel.Select("1").
		From("homeworks").
		Where(squirrel.Eq{"id": att.HomeworkID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	insertSQL, insertArgs, err := squirrel.Insert("attachments").
		Columns("homework_id", "filename", "filepath").
		Values(att.HomeworkID, att.Filename, att.Filepath).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building insert attachment SQL")
		return 0, err
	}

	var id int64
	err = r.db.Exclusive(func() error {
		var one int
		if scanErr := r.db.DB.QueryRowContext(ctx, existsSQL, existsArgs...).Scan(&one); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return apperrors.ErrHomeworkNotFound
			}
			return scanErr
		}

		res, execErr := r.db.DB.ExecContext(ctx, insertSQL, insertArgs...)
		if execErr != nil {
			logger.Error().Err(execErr).Msg("Error executing insert attachment query")
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return 0, err
	}

	att.ID = id
	return id, nil
}

// ListAll returns every homework ordered by created_at descending (most
// recent first), each joined with its attachments.
func (r *HomeworkRepository) ListAll(ctx context.Context) ([]*HomeworkDetails, error) {
	homeworksSQL, _, err := squirrel.Select("id", "time", "subject", "title", "content", "created_at").
		From("homeworks").
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	attachmentsSQL, _, err := squirrel.Select("id", "homework_id", "filename", "filepath").
		From("attachments").
		ToSql()
	if err != nil {
		return nil, err
	}

	var details []*HomeworkDetails
	err = r.db.Exclusive(func() error {
		rows, queryErr := r.db.DB.QueryContext(ctx, homeworksSQL)
		if queryErr != nil {
			logger.Error().Err(queryErr).Msg("Error querying homeworks")
			return queryErr
		}
		defer rows.Close()

		byID := make(map[int64]*HomeworkDetails)
		details = details[:0]
		for rows.Next() {
			hw, scanErr := scanHomework(rows)
			if scanErr != nil {
				return scanErr
			}
			d := &HomeworkDetails{Homework: *hw, Attachments: []models.Attachment{}}
			byID[hw.ID] = d
			details = append(details, d)
		}
		if rowsErr := rows.Err(); rowsErr != nil {
			return rowsErr
		}

		attRows, queryErr := r.db.DB.QueryContext(ctx, attachmentsSQL)
		if queryErr != nil {
			logger.Error().Err(queryErr).Msg("Error querying attachments")
			return queryErr
		}
		defer attRows.Close()

		for attRows.Next() {
			var att models.Attachment
			if scanErr := attRows.Scan(&att.ID, &att.HomeworkID, &att.Filename, &att.Filepath); scanErr != nil {
				logger.Error().Err(scanErr).Msg("Error scanning attachment row")
				return scanErr
			}
			if d, ok := byID[att.HomeworkID]; ok {
				d.Attachments = append(d.Attachments, att)
			}
		}
		return attRows.Err()
	})
	if err != nil {
		return nil, err
	}

	return details, nil
}

// DeleteHomeworkCascade atomically deletes a homework together with all its
// attachment rows and returns the stored names of the removed attachments so
// the caller can remove the backing files afterwards. A missing id fails
// with ErrHomeworkNotFound and leaves the datastore unchanged.
func (r *HomeworkRepository) DeleteHomeworkCascade(ctx context.Context, id int64) ([]string, error) {
	selectSQL, selectArgs, err := squirrel.Select("filepath").
		From("attachments").
		Where(squirrel.Eq{"homework_id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	deleteAttachmentsSQL, deleteAttachmentsArgs, err := squirrel.Delete("attachments").
		Where(squirrel.Eq{"homework_id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	deleteHomeworkSQL, deleteHomeworkArgs, err := squirrel.Delete("homeworks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var storedNames []string
	err = r.db.Exclusive(func() error {
		storedNames = nil
		return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			rows, queryErr := tx.QueryContext(ctx, selectSQL, selectArgs...)
			if queryErr != nil {
				return queryErr
			}
			for rows.Next() {
				var storedName string
				if scanErr := rows.Scan(&storedName); scanErr != nil {
					rows.Close()
					return scanErr
				}
				storedNames = append(storedNames, storedName)
			}
			// Close before issuing further statements on the tx connection.
			if rowsErr := rows.Err(); rowsErr != nil {
				rows.Close()
				return rowsErr
			}
			rows.Close()

			if _, execErr := tx.ExecContext(ctx, deleteAttachmentsSQL, deleteAttachmentsArgs...); execErr != nil {
				return execErr
			}

			res, execErr := tx.ExecContext(ctx, deleteHomeworkSQL, deleteHomeworkArgs...)
			if execErr != nil {
				return execErr
			}
			affected, execErr := res.RowsAffected()
			if execErr != nil {
				return execErr
			}
			if affected == 0 {
				return apperrors.ErrHomeworkNotFound
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return storedNames, nil
}
