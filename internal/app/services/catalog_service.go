package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/validation"
)

// CatalogService manages institutions, curricula and their courses
type CatalogService struct {
	store CatalogStore
}

// NewCatalogService creates a new catalog service instance
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// validateCourse validates the fields shared by source and target courses
func validateCourse(course *models.Course) error {
	course.Code = strings.ToUpper(strings.TrimSpace(course.Code))
	course.Name = strings.TrimSpace(course.Name)
	course.Description = strings.TrimSpace(course.Description)

	if course.Code == "" {
		return apperrors.NewValidationError("course code cannot be empty")
	}
	code := validation.NewStringValidation(course.Code).
		WithMaxLength(validation.CourseCodeMaxLength).
		WithPattern(validation.CompiledPatterns.CourseCode)
	if !code.Validate() {
		return apperrors.NewValidationError("course code must be a single token of at most 50 characters")
	}
	if !validation.NewStringValidation(course.Name).WithMaxLength(validation.NameMaxLength).Validate() {
		return apperrors.NewValidationError("course name is required and limited to 255 characters")
	}
	if !validation.NewNumericValidation(course.Credits).WithMin(1).WithMax(validation.MaxCredits).Validate() {
		return apperrors.NewValidationError(fmt.Sprintf("credits must be between 1 and %d", validation.MaxCredits))
	}
	return nil
}

func validateName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if !validation.NewStringValidation(name).WithMaxLength(validation.NameMaxLength).Validate() {
		return "", apperrors.NewValidationError(kind + " name is required and limited to 255 characters")
	}
	return name, nil
}

func validateID(kind string, id int64) error {
	if id <= 0 {
		return apperrors.NewValidationError("invalid " + kind + " ID")
	}
	return nil
}

// ListInstitutions returns all institutions
func (s *CatalogService) ListInstitutions(ctx context.Context) ([]*models.Institution, error) {
	list, err := s.store.ListInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error retrieving institutions: %w", err)
	}
	return list, nil
}

// GetInstitution returns one institution
func (s *CatalogService) GetInstitution(ctx context.Context, id int64) (*models.Institution, error) {
	if err := validateID("institution", id); err != nil {
		return nil, err
	}
	return s.store.GetInstitution(ctx, id)
}

// CreateInstitution adds an institution
func (s *CatalogService) CreateInstitution(ctx context.Context, inst *models.Institution) error {
	name, err := validateName("institution", inst.Name)
	if err != nil {
		return err
	}
	inst.Name = name

	inst.ID, err = s.store.CreateInstitution(ctx, inst)
	return err
}

// UpdateInstitution changes an institution
func (s *CatalogService) UpdateInstitution(ctx context.Context, inst *models.Institution) error {
	if err := validateID("institution", inst.ID); err != nil {
		return err
	}
	name, err := validateName("institution", inst.Name)
	if err != nil {
		return err
	}
	inst.Name = name
	return s.store.UpdateInstitution(ctx, inst)
}

// DeleteInstitution removes an institution that no request references
func (s *CatalogService) DeleteInstitution(ctx context.Context, id int64) error {
	if err := validateID("institution", id); err != nil {
		return err
	}
	return s.store.DeleteInstitution(ctx, id)
}

// ListCurricula returns all curricula
func (s *CatalogService) ListCurricula(ctx context.Context) ([]*models.Curriculum, error) {
	list, err := s.store.ListCurricula(ctx)
	if err != nil {
		return nil, fmt.Errorf("error retrieving curricula: %w", err)
	}
	return list, nil
}

// GetCurriculum returns one curriculum
func (s *CatalogService) GetCurriculum(ctx context.Context, id int64) (*models.Curriculum, error) {
	if err := validateID("curriculum", id); err != nil {
		return nil, err
	}
	return s.store.GetCurriculum(ctx, id)
}

// CreateCurriculum adds a curriculum
func (s *CatalogService) CreateCurriculum(ctx context.Context, c *models.Curriculum) error {
	name, err := validateName("curriculum", c.Name)
	if err != nil {
		return err
	}
	c.Name = name

	c.ID, err = s.store.CreateCurriculum(ctx, c)
	return err
}

// UpdateCurriculum renames a curriculum
func (s *CatalogService) UpdateCurriculum(ctx context.Context, c *models.Curriculum) error {
	if err := validateID("curriculum", c.ID); err != nil {
		return err
	}
	name, err := validateName("curriculum", c.Name)
	if err != nil {
		return err
	}
	c.Name = name
	return s.store.UpdateCurriculum(ctx, c)
}

// DeleteCurriculum removes a curriculum that no request references
func (s *CatalogService) DeleteCurriculum(ctx context.Context, id int64) error {
	if err := validateID("curriculum", id); err != nil {
		return err
	}
	return s.store.DeleteCurriculum(ctx, id)
}

// ListSourceCourses returns the courses of an institution
func (s *CatalogService) ListSourceCourses(ctx context.Context, institutionID int64) ([]*models.SourceCourse, error) {
	if err := validateID("institution", institutionID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetInstitution(ctx, institutionID); err != nil {
		return nil, err
	}

	list, err := s.store.ListSourceCourses(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving source courses: %w", err)
	}
	return list, nil
}

// GetSourceCourse returns one source course
func (s *CatalogService) GetSourceCourse(ctx context.Context, id int64) (*models.SourceCourse, error) {
	if err := validateID("source course", id); err != nil {
		return nil, err
	}
	return s.store.GetSourceCourse(ctx, id)
}

// CreateSourceCourse adds a course to an institution
func (s *CatalogService) CreateSourceCourse(ctx context.Context, c *models.SourceCourse) error {
	if err := validateCourse(&c.Course); err != nil {
		return err
	}
	if _, err := s.store.GetInstitution(ctx, c.InstitutionID); err != nil {
		return err
	}

	id, err := s.store.CreateSourceCourse(ctx, c)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// UpdateSourceCourse changes a source course
func (s *CatalogService) UpdateSourceCourse(ctx context.Context, c *models.SourceCourse) error {
	if err := validateID("source course", c.ID); err != nil {
		return err
	}
	if err := validateCourse(&c.Course); err != nil {
		return err
	}
	if _, err := s.store.GetInstitution(ctx, c.InstitutionID); err != nil {
		return err
	}
	return s.store.UpdateSourceCourse(ctx, c)
}

// DeleteSourceCourse removes a source course that no request references
func (s *CatalogService) DeleteSourceCourse(ctx context.Context, id int64) error {
	if err := validateID("source course", id); err != nil {
		return err
	}
	return s.store.DeleteSourceCourse(ctx, id)
}

// ListTargetCourses returns the courses of a curriculum ordered by code
func (s *CatalogService) ListTargetCourses(ctx context.Context, curriculumID int64) ([]*models.TargetCourse, error) {
	if err := validateID("curriculum", curriculumID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCurriculum(ctx, curriculumID); err != nil {
		return nil, err
	}

	list, err := s.store.ListTargetCourses(ctx, curriculumID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving target courses: %w", err)
	}
	return list, nil
}

// GetTargetCourse returns one target course
func (s *CatalogService) GetTargetCourse(ctx context.Context, id int64) (*models.TargetCourse, error) {
	if err := validateID("target course", id); err != nil {
		return nil, err
	}
	return s.store.GetTargetCourse(ctx, id)
}

// CreateTargetCourse adds a course to a curriculum
func (s *CatalogService) CreateTargetCourse(ctx context.Context, c *models.TargetCourse) error {
	if err := validateCourse(&c.Course); err != nil {
		return err
	}
	if _, err := s.store.GetCurriculum(ctx, c.CurriculumID); err != nil {
		return err
	}

	id, err := s.store.CreateTargetCourse(ctx, c)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// UpdateTargetCourse changes a target course
func (s *CatalogService) UpdateTargetCourse(ctx context.Context, c *models.TargetCourse) error {
	if err := validateID("target course", c.ID); err != nil {
		return err
	}
	if err := validateCourse(&c.Course); err != nil {
		return err
	}
	if _, err := s.store.GetCurriculum(ctx, c.CurriculumID); err != nil {
		return err
	}
	return s.store.UpdateTargetCourse(ctx, c)
}

// DeleteTargetCourse removes a target course that no comparison references
func (s *CatalogService) DeleteTargetCourse(ctx context.Context, id int64) error {
	if err := validateID("target course", id); err != nil {
		return err
	}
	return s.store.DeleteTargetCourse(ctx, id)
}
