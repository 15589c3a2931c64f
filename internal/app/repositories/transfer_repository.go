package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/services"
	"github.com/yigit/credittransfer/internal/db"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/dberrors"
	"github.com/yigit/credittransfer/internal/pkg/logger"
)

var requestColumns = []string{
	"tr.id", "tr.student_id", "tr.curriculum_id", "tr.status", "tr.viewed_by_student",
	"tr.evidence_path", "tr.created_at", "tr.updated_at",
}

// TransferRepository handles database operations for transfer requests,
// their items and comparison results
type TransferRepository struct {
	db *db.PostgresDB
	q  Querier
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(database *db.PostgresDB) *TransferRepository {
	return &TransferRepository{db: database, q: database.Pool}
}

// RunInTx runs fn against a repository bound to one transaction. Nested
// calls reuse the outer transaction.
func (r *TransferRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx services.TransferStore) error) error {
	if _, ok := r.q.(pgx.Tx); ok {
		return fn(ctx, r)
	}
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &TransferRepository{db: r.db, q: tx})
	})
}

func scanRequest(row pgx.Row) (*models.TransferRequest, error) {
	var req models.TransferRequest
	err := row.Scan(
		&req.ID, &req.StudentID, &req.CurriculumID, &req.Status, &req.ViewedByStudent,
		&req.EvidencePath, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRequestNotFound
		}
		logger.Error().Err(err).Msg("Error scanning transfer request")
		return nil, err
	}
	return &req, nil
}

// CreateRequest inserts a transfer request
func (r *TransferRepository) CreateRequest(ctx context.Context, req *models.TransferRequest) (int64, error) {
	sql, args, err := psql.Insert("transfer_requests").
		Columns("student_id", "curriculum_id", "status").
		Values(req.StudentID, req.CurriculumID, req.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create transfer request SQL")
		return 0, err
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("studentID", req.StudentID).Msg("Error creating transfer request")
		return 0, err
	}
	return req.ID, nil
}

// CreateItem inserts a request item
func (r *TransferRepository) CreateItem(ctx context.Context, item *models.RequestItem) (int64, error) {
	sql, args, err := psql.Insert("request_items").
		Columns("transfer_request_id", "source_course_id", "grade", "status", "position").
		Values(item.RequestID, item.SourceCourseID, item.Grade, item.Status, item.Position).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create request item SQL")
		return 0, err
	}

	var id int64
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return 0, apperrors.NewValidationError(fmt.Sprintf("source course %d submitted twice", item.SourceCourseID))
		}
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.ErrSourceCourseNotFound
		}
		logger.Error().Err(err).Int64("requestID", item.RequestID).Msg("Error creating request item")
		return 0, err
	}
	return id, nil
}

// CreateComparison inserts the match found for an item
func (r *TransferRepository) CreateComparison(ctx context.Context, result *models.ComparisonResult) (int64, error) {
	sql, args, err := psql.Insert("comparison_results").
		Columns("request_item_id", "suggested_course_id", "similarity_score", "explanation").
		Values(result.RequestItemID, result.SuggestedCourseID, result.SimilarityScore, result.Explanation).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create comparison SQL")
		return 0, err
	}

	if err := r.q.QueryRow(ctx, sql, args...).Scan(&result.ID, &result.CreatedAt); err != nil {
		logger.Error().Err(err).Int64("itemID", result.RequestItemID).Msg("Error creating comparison result")
		return 0, err
	}
	return result.ID, nil
}

// GetRequest retrieves a transfer request by ID
func (r *TransferRepository) GetRequest(ctx context.Context, id int64) (*models.TransferRequest, error) {
	sql, args, err := psql.Select(requestColumns...).
		From("transfer_requests tr").
		Where(squirrel.Eq{"tr.id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get transfer request SQL")
		return nil, err
	}
	return scanRequest(r.q.QueryRow(ctx, sql, args...))
}

// LockRequest reads a request with FOR UPDATE; call it inside RunInTx
func (r *TransferRepository) LockRequest(ctx context.Context, id int64) (*models.TransferRequest, error) {
	sql, args, err := psql.Select(requestColumns...).
		From("transfer_requests tr").
		Where(squirrel.Eq{"tr.id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building lock transfer request SQL")
		return nil, err
	}
	return scanRequest(r.q.QueryRow(ctx, sql, args...))
}

// ListRequests returns a filtered page of requests, newest first, with the
// total number of matching rows
func (r *TransferRepository) ListRequests(ctx context.Context, filter services.RequestFilter) ([]*models.TransferRequest, int64, error) {
	where := squirrel.And{}
	if filter.StudentID != 0 {
		where = append(where, squirrel.Eq{"tr.student_id": filter.StudentID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, squirrel.Eq{"tr.status": statuses})
	}
	if filter.Unviewed {
		where = append(where, squirrel.Eq{"tr.viewed_by_student": false})
	}

	countSQL, countArgs, err := psql.Select("count(*)").From("transfer_requests tr").Where(where).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count transfer requests SQL")
		return nil, 0, err
	}

	var total int64
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting transfer requests")
		return nil, 0, err
	}
	if total == 0 {
		return []*models.TransferRequest{}, 0, nil
	}

	builder := psql.Select(append(requestColumns,
		"u.first_name", "u.last_name", "u.email", "COALESCE(c.name, '')")...).
		From("transfer_requests tr").
		Join("users u ON u.id = tr.student_id").
		LeftJoin("curricula c ON c.id = tr.curriculum_id").
		Where(where).
		OrderBy("tr.created_at DESC", "tr.id DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(filter.Offset)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list transfer requests SQL")
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing transfer requests")
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]*models.TransferRequest, 0)
	for rows.Next() {
		var (
			req            models.TransferRequest
			student        models.User
			curriculumName string
		)
		if err := rows.Scan(
			&req.ID, &req.StudentID, &req.CurriculumID, &req.Status, &req.ViewedByStudent,
			&req.EvidencePath, &req.CreatedAt, &req.UpdatedAt,
			&student.FirstName, &student.LastName, &student.Email, &curriculumName,
		); err != nil {
			logger.Error().Err(err).Msg("Error scanning transfer request row")
			return nil, 0, err
		}
		student.ID = req.StudentID
		req.Student = &student
		if req.CurriculumID != nil {
			req.Curriculum = &models.Curriculum{ID: *req.CurriculumID, Name: curriculumName}
		}
		list = append(list, &req)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating transfer request rows")
		return nil, 0, fmt.Errorf("database iteration error: %w", err)
	}

	return list, total, nil
}

// GetItem retrieves a request item by ID
func (r *TransferRepository) GetItem(ctx context.Context, id int64) (*models.RequestItem, error) {
	sql, args, err := psql.Select("id", "transfer_request_id", "source_course_id", "grade", "status", "position").
		From("request_items").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get request item SQL")
		return nil, err
	}

	var item models.RequestItem
	err = r.q.QueryRow(ctx, sql, args...).Scan(
		&item.ID, &item.RequestID, &item.SourceCourseID, &item.Grade, &item.Status, &item.Position,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRequestItemNotFound
		}
		logger.Error().Err(err).Int64("itemID", id).Msg("Error retrieving request item")
		return nil, err
	}
	return &item, nil
}

// ListItems returns a request's items in submission order with their source
// course, comparison result and suggested course
func (r *TransferRepository) ListItems(ctx context.Context, requestID int64) ([]*models.RequestItem, error) {
	sql, args, err := psql.Select(
		"ri.id", "ri.transfer_request_id", "ri.source_course_id", "ri.grade", "ri.status", "ri.position",
		"sc.code", "sc.name", "sc.credits", "sc.description", "sc.institution_id",
		"cr.id", "cr.suggested_course_id", "cr.similarity_score", "cr.explanation", "cr.created_at",
		"tc.code", "tc.name", "tc.credits", "tc.description", "tc.curriculum_id",
	).
		From("request_items ri").
		Join("source_courses sc ON sc.id = ri.source_course_id").
		LeftJoin("comparison_results cr ON cr.request_item_id = ri.id").
		LeftJoin("target_courses tc ON tc.id = cr.suggested_course_id").
		Where(squirrel.Eq{"ri.transfer_request_id": requestID}).
		OrderBy("ri.position ASC", "ri.id ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list request items SQL")
		return nil, err
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("requestID", requestID).Msg("Error listing request items")
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.RequestItem, 0)
	for rows.Next() {
		var (
			item models.RequestItem
			src  models.SourceCourse

			cmpID, suggestedID *int64
			score              *float64
			explanation        *string
			cmpCreated         *time.Time

			tcCode, tcName, tcDesc *string
			tcCredits              *int
			tcCurriculum           *int64
		)
		if err := rows.Scan(
			&item.ID, &item.RequestID, &item.SourceCourseID, &item.Grade, &item.Status, &item.Position,
			&src.Code, &src.Name, &src.Credits, &src.Description, &src.InstitutionID,
			&cmpID, &suggestedID, &score, &explanation, &cmpCreated,
			&tcCode, &tcName, &tcCredits, &tcDesc, &tcCurriculum,
		); err != nil {
			logger.Error().Err(err).Msg("Error scanning request item row")
			return nil, err
		}

		src.ID = item.SourceCourseID
		item.SourceCourse = &src

		if cmpID != nil {
			cmp := &models.ComparisonResult{
				ID:                *cmpID,
				RequestItemID:     item.ID,
				SuggestedCourseID: *suggestedID,
				SimilarityScore:   *score,
				Explanation:       *explanation,
			}
			if cmpCreated != nil {
				cmp.CreatedAt = *cmpCreated
			}
			if tcCode != nil {
				cmp.SuggestedCourse = &models.TargetCourse{
					Course: models.Course{
						ID:          *suggestedID,
						Code:        *tcCode,
						Name:        *tcName,
						Credits:     *tcCredits,
						Description: *tcDesc,
					},
					CurriculumID: *tcCurriculum,
				}
			}
			item.Comparison = cmp
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating request item rows")
		return nil, fmt.Errorf("database iteration error: %w", err)
	}

	return items, nil
}

// ItemStatuses returns the status of every item of a request
func (r *TransferRepository) ItemStatuses(ctx context.Context, requestID int64) ([]models.ItemStatus, error) {
	sql, args, err := psql.Select("status").
		From("request_items").
		Where(squirrel.Eq{"transfer_request_id": requestID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building item statuses SQL")
		return nil, err
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("requestID", requestID).Msg("Error reading item statuses")
		return nil, err
	}
	statuses, err := pgx.CollectRows(rows, pgx.RowTo[models.ItemStatus])
	if err != nil {
		logger.Error().Err(err).Int64("requestID", requestID).Msg("Error collecting item statuses")
		return nil, err
	}
	return statuses, nil
}

func (r *TransferRepository) exec(ctx context.Context, builder squirrel.UpdateBuilder, notFound error, op string) error {
	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s SQL", op)
		return err
	}

	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msgf("Error executing %s", op)
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// UpdateItemStatus writes an item's status
func (r *TransferRepository) UpdateItemStatus(ctx context.Context, itemID int64, status models.ItemStatus) error {
	return r.exec(ctx, psql.Update("request_items").
		Set("status", status).
		Where(squirrel.Eq{"id": itemID}),
		apperrors.ErrRequestItemNotFound, "update item status")
}

// UpdateRequestStatus writes a request's status and clears the viewed flag
func (r *TransferRepository) UpdateRequestStatus(ctx context.Context, requestID int64, status models.RequestStatus) error {
	return r.exec(ctx, psql.Update("transfer_requests").
		Set("status", status).
		Set("viewed_by_student", false).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": requestID}),
		apperrors.ErrRequestNotFound, "update request status")
}

// MarkViewed records that the student has seen the request
func (r *TransferRepository) MarkViewed(ctx context.Context, requestID int64) error {
	return r.exec(ctx, psql.Update("transfer_requests").
		Set("viewed_by_student", true).
		Where(squirrel.Eq{"id": requestID}),
		apperrors.ErrRequestNotFound, "mark request viewed")
}

// SetEvidence stores the path of the request's evidence file
func (r *TransferRepository) SetEvidence(ctx context.Context, requestID int64, path string) error {
	return r.exec(ctx, psql.Update("transfer_requests").
		Set("evidence_path", path).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": requestID}),
		apperrors.ErrRequestNotFound, "set request evidence")
}

// DeleteRequest removes a request; items and comparisons cascade
func (r *TransferRepository) DeleteRequest(ctx context.Context, requestID int64) error {
	sql, args, err := psql.Delete("transfer_requests").Where(squirrel.Eq{"id": requestID}).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete transfer request SQL")
		return err
	}

	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("requestID", requestID).Msg("Error deleting transfer request")
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRequestNotFound
	}
	return nil
}
