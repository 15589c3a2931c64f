package dto

import "github.com/yigit/credittransfer/internal/app/models"

// InstitutionRequest creates or updates an institution
type InstitutionRequest struct {
	Name   string `json:"name" binding:"required,max=255"`
	IsHome bool   `json:"isHome"`
}

// CurriculumRequest creates or updates a curriculum
type CurriculumRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// CourseRequest holds the fields shared by source and target course writes
type CourseRequest struct {
	Code        string `json:"code" binding:"required,max=50"`
	Name        string `json:"name" binding:"required,max=255"`
	Credits     int    `json:"credits" binding:"required,gt=0"`
	Description string `json:"description"`
}

// SourceCourseRequest creates or updates a course of an external institution
type SourceCourseRequest struct {
	CourseRequest
	InstitutionID int64 `json:"institutionId" binding:"required,min=1"`
}

// TargetCourseRequest creates or updates a curriculum course
type TargetCourseRequest struct {
	CourseRequest
	CurriculumID int64 `json:"curriculumId" binding:"required,min=1"`
}

// CourseResponse is the public view of a source or target course
type CourseResponse struct {
	ID            int64  `json:"id"`
	Code          string `json:"code" example:"CS211"`
	Name          string `json:"name"`
	Credits       int    `json:"credits" example:"3"`
	Description   string `json:"description,omitempty"`
	InstitutionID int64  `json:"institutionId,omitempty"`
	CurriculumID  int64  `json:"curriculumId,omitempty"`
}

// ToSourceCourse builds a model from the request
func (r *SourceCourseRequest) ToSourceCourse() *models.SourceCourse {
	return &models.SourceCourse{
		Course:        r.CourseRequest.toCourse(),
		InstitutionID: r.InstitutionID,
	}
}

// ToTargetCourse builds a model from the request
func (r *TargetCourseRequest) ToTargetCourse() *models.TargetCourse {
	return &models.TargetCourse{
		Course:       r.CourseRequest.toCourse(),
		CurriculumID: r.CurriculumID,
	}
}

func (r CourseRequest) toCourse() models.Course {
	return models.Course{
		Code:        r.Code,
		Name:        r.Name,
		Credits:     r.Credits,
		Description: r.Description,
	}
}

// FromSourceCourse maps a source course model
func FromSourceCourse(c *models.SourceCourse) CourseResponse {
	if c == nil {
		return CourseResponse{}
	}
	return CourseResponse{
		ID:            c.ID,
		Code:          c.Code,
		Name:          c.Name,
		Credits:       c.Credits,
		Description:   c.Description,
		InstitutionID: c.InstitutionID,
	}
}

// FromTargetCourse maps a target course model
func FromTargetCourse(c *models.TargetCourse) CourseResponse {
	if c == nil {
		return CourseResponse{}
	}
	return CourseResponse{
		ID:           c.ID,
		Code:         c.Code,
		Name:         c.Name,
		Credits:      c.Credits,
		Description:  c.Description,
		CurriculumID: c.CurriculumID,
	}
}

// FromSourceCourses maps a list of source courses
func FromSourceCourses(courses []*models.SourceCourse) []CourseResponse {
	out := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, FromSourceCourse(c))
	}
	return out
}

// FromTargetCourses maps a list of target courses
func FromTargetCourses(courses []*models.TargetCourse) []CourseResponse {
	out := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, FromTargetCourse(c))
	}
	return out
}
