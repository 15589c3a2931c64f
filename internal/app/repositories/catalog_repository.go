package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/dberrors"
	"github.com/yigit/credittransfer/internal/pkg/logger"
)

// CatalogRepository handles database operations for institutions,
// curricula and courses
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

var errCatalogDuplicate = apperrors.NewCustomError(apperrors.ErrConflict, "a record with the same name already exists").WithCode("CATALOG_DUPLICATE")

// writeErr maps constraint violations of catalog writes
func writeErr(err error, op string) error {
	switch {
	case dberrors.IsUniqueViolation(err):
		return errCatalogDuplicate
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.ErrCatalogHasRelations
	}
	logger.Error().Err(err).Msgf("Error executing %s", op)
	return err
}

func (r *CatalogRepository) queryRowID(ctx context.Context, builder squirrel.InsertBuilder, op string) (int64, error) {
	sql, args, err := builder.Suffix("RETURNING id").ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s SQL", op)
		return 0, err
	}

	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, writeErr(err, op)
	}
	return id, nil
}

func (r *CatalogRepository) exec(ctx context.Context, builder squirrel.Sqlizer, notFound error, op string) error {
	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s SQL", op)
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return writeErr(err, op)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// ListInstitutions returns all institutions ordered by name
func (r *CatalogRepository) ListInstitutions(ctx context.Context) ([]*models.Institution, error) {
	sql, args, err := psql.Select("id", "name", "is_home").From("institutions").OrderBy("name").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing institutions")
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Institution, error) {
		var inst models.Institution
		err := row.Scan(&inst.ID, &inst.Name, &inst.IsHome)
		return &inst, err
	})
}

// GetInstitution retrieves an institution by ID
func (r *CatalogRepository) GetInstitution(ctx context.Context, id int64) (*models.Institution, error) {
	sql, args, err := psql.Select("id", "name", "is_home").From("institutions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var inst models.Institution
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&inst.ID, &inst.Name, &inst.IsHome); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInstitutionNotFound
		}
		logger.Error().Err(err).Int64("institutionID", id).Msg("Error retrieving institution")
		return nil, err
	}
	return &inst, nil
}

// CreateInstitution inserts an institution
func (r *CatalogRepository) CreateInstitution(ctx context.Context, inst *models.Institution) (int64, error) {
	return r.queryRowID(ctx, psql.Insert("institutions").
		Columns("name", "is_home").
		Values(inst.Name, inst.IsHome), "create institution")
}

// UpdateInstitution updates an institution
func (r *CatalogRepository) UpdateInstitution(ctx context.Context, inst *models.Institution) error {
	return r.exec(ctx, psql.Update("institutions").
		Set("name", inst.Name).
		Set("is_home", inst.IsHome).
		Where(squirrel.Eq{"id": inst.ID}),
		apperrors.ErrInstitutionNotFound, "update institution")
}

// DeleteInstitution deletes an institution without courses
func (r *CatalogRepository) DeleteInstitution(ctx context.Context, id int64) error {
	return r.exec(ctx, psql.Delete("institutions").Where(squirrel.Eq{"id": id}),
		apperrors.ErrInstitutionNotFound, "delete institution")
}

// ListCurricula returns all curricula ordered by name
func (r *CatalogRepository) ListCurricula(ctx context.Context) ([]*models.Curriculum, error) {
	sql, args, err := psql.Select("id", "name").From("curricula").OrderBy("name").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing curricula")
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Curriculum, error) {
		var c models.Curriculum
		err := row.Scan(&c.ID, &c.Name)
		return &c, err
	})
}

// GetCurriculum retrieves a curriculum by ID
func (r *CatalogRepository) GetCurriculum(ctx context.Context, id int64) (*models.Curriculum, error) {
	sql, args, err := psql.Select("id", "name").From("curricula").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var c models.Curriculum
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCurriculumNotFound
		}
		logger.Error().Err(err).Int64("curriculumID", id).Msg("Error retrieving curriculum")
		return nil, err
	}
	return &c, nil
}

// CreateCurriculum inserts a curriculum
func (r *CatalogRepository) CreateCurriculum(ctx context.Context, c *models.Curriculum) (int64, error) {
	return r.queryRowID(ctx, psql.Insert("curricula").Columns("name").Values(c.Name), "create curriculum")
}

// UpdateCurriculum renames a curriculum
func (r *CatalogRepository) UpdateCurriculum(ctx context.Context, c *models.Curriculum) error {
	return r.exec(ctx, psql.Update("curricula").Set("name", c.Name).Where(squirrel.Eq{"id": c.ID}),
		apperrors.ErrCurriculumNotFound, "update curriculum")
}

// DeleteCurriculum deletes a curriculum without courses
func (r *CatalogRepository) DeleteCurriculum(ctx context.Context, id int64) error {
	return r.exec(ctx, psql.Delete("curricula").Where(squirrel.Eq{"id": id}),
		apperrors.ErrCurriculumNotFound, "delete curriculum")
}

func scanSourceCourse(row pgx.Row) (*models.SourceCourse, error) {
	var c models.SourceCourse
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Credits, &c.Description, &c.InstitutionID)
	return &c, err
}

func scanTargetCourse(row pgx.Row) (*models.TargetCourse, error) {
	var c models.TargetCourse
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Credits, &c.Description, &c.CurriculumID)
	return &c, err
}

// ListSourceCourses returns an institution's courses ordered by code
func (r *CatalogRepository) ListSourceCourses(ctx context.Context, institutionID int64) ([]*models.SourceCourse, error) {
	sql, args, err := psql.Select("id", "code", "name", "credits", "description", "institution_id").
		From("source_courses").
		Where(squirrel.Eq{"institution_id": institutionID}).
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("institutionID", institutionID).Msg("Error listing source courses")
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.SourceCourse, error) {
		return scanSourceCourse(row)
	})
}

// GetSourceCourse retrieves a source course by ID
func (r *CatalogRepository) GetSourceCourse(ctx context.Context, id int64) (*models.SourceCourse, error) {
	sql, args, err := psql.Select("id", "code", "name", "credits", "description", "institution_id").
		From("source_courses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	c, err := scanSourceCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSourceCourseNotFound
		}
		logger.Error().Err(err).Int64("sourceCourseID", id).Msg("Error retrieving source course")
		return nil, err
	}
	return c, nil
}

// CreateSourceCourse inserts a source course
func (r *CatalogRepository) CreateSourceCourse(ctx context.Context, c *models.SourceCourse) (int64, error) {
	id, err := r.queryRowID(ctx, psql.Insert("source_courses").
		Columns("institution_id", "code", "name", "credits", "description").
		Values(c.InstitutionID, c.Code, c.Name, c.Credits, c.Description), "create source course")
	return id, courseCodeErr(err)
}

// courseCodeErr reports a duplicate course row as a code clash
func courseCodeErr(err error) error {
	if errors.Is(err, errCatalogDuplicate) {
		return apperrors.ErrCourseCodeExists
	}
	return err
}

// UpdateSourceCourse updates a source course
func (r *CatalogRepository) UpdateSourceCourse(ctx context.Context, c *models.SourceCourse) error {
	err := r.exec(ctx, psql.Update("source_courses").
		Set("institution_id", c.InstitutionID).
		Set("code", c.Code).
		Set("name", c.Name).
		Set("credits", c.Credits).
		Set("description", c.Description).
		Where(squirrel.Eq{"id": c.ID}),
		apperrors.ErrSourceCourseNotFound, "update source course")
	return courseCodeErr(err)
}

// DeleteSourceCourse deletes a source course no request item references
func (r *CatalogRepository) DeleteSourceCourse(ctx context.Context, id int64) error {
	return r.exec(ctx, psql.Delete("source_courses").Where(squirrel.Eq{"id": id}),
		apperrors.ErrSourceCourseNotFound, "delete source course")
}

// ListTargetCourses returns a curriculum's courses ordered by code
func (r *CatalogRepository) ListTargetCourses(ctx context.Context, curriculumID int64) ([]*models.TargetCourse, error) {
	sql, args, err := psql.Select("id", "code", "name", "credits", "description", "curriculum_id").
		From("target_courses").
		Where(squirrel.Eq{"curriculum_id": curriculumID}).
		OrderBy("code", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("curriculumID", curriculumID).Msg("Error listing target courses")
		return nil, err
	}
	courses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.TargetCourse, error) {
		return scanTargetCourse(row)
	})
	if err != nil {
		return nil, fmt.Errorf("database iteration error: %w", err)
	}
	return courses, nil
}

// GetTargetCourse retrieves a target course by ID
func (r *CatalogRepository) GetTargetCourse(ctx context.Context, id int64) (*models.TargetCourse, error) {
	sql, args, err := psql.Select("id", "code", "name", "credits", "description", "curriculum_id").
		From("target_courses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	c, err := scanTargetCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTargetCourseNotFound
		}
		logger.Error().Err(err).Int64("targetCourseID", id).Msg("Error retrieving target course")
		return nil, err
	}
	return c, nil
}

// CreateTargetCourse inserts a target course
func (r *CatalogRepository) CreateTargetCourse(ctx context.Context, c *models.TargetCourse) (int64, error) {
	id, err := r.queryRowID(ctx, psql.Insert("target_courses").
		Columns("curriculum_id", "code", "name", "credits", "description").
		Values(c.CurriculumID, c.Code, c.Name, c.Credits, c.Description), "create target course")
	return id, courseCodeErr(err)
}

// UpdateTargetCourse updates a target course
func (r *CatalogRepository) UpdateTargetCourse(ctx context.Context, c *models.TargetCourse) error {
	err := r.exec(ctx, psql.Update("target_courses").
		Set("curriculum_id", c.CurriculumID).
		Set("code", c.Code).
		Set("name", c.Name).
		Set("credits", c.Credits).
		Set("description", c.Description).
		Where(squirrel.Eq{"id": c.ID}),
		apperrors.ErrTargetCourseNotFound, "update target course")
	return courseCodeErr(err)
}

// DeleteTargetCourse deletes a target course no comparison references
func (r *CatalogRepository) DeleteTargetCourse(ctx context.Context, id int64) error {
	return r.exec(ctx, psql.Delete("target_courses").Where(squirrel.Eq{"id": id}),
		apperrors.ErrTargetCourseNotFound, "delete target course")
}
