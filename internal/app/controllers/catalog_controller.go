package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/app/services"
	"github.com/yigit/credittransfer/internal/middleware"
)

// CatalogController exposes institutions, curricula and their courses
type CatalogController struct {
	catalogService *services.CatalogService
	logger         zerolog.Logger
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService *services.CatalogService, logger zerolog.Logger) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
		logger:         logger,
	}
}

// ListInstitutions returns all institutions
func (c *CatalogController) ListInstitutions(ctx *gin.Context) {
	list, err := c.catalogService.ListInstitutions(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list, ""))
}

// ListCurricula returns all curricula
func (c *CatalogController) ListCurricula(ctx *gin.Context) {
	list, err := c.catalogService.ListCurricula(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list, ""))
}

// ListSourceCourses returns the courses of one institution
func (c *CatalogController) ListSourceCourses(ctx *gin.Context) {
	institutionID, err := strconv.ParseInt(ctx.Query("institution_id"), 10, 64)
	if err != nil || institutionID <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "institution_id is required").WithField("institution_id")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	list, err := c.catalogService.ListSourceCourses(ctx.Request.Context(), institutionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromSourceCourses(list), ""))
}

// ListTargetCourses returns the courses of one curriculum
func (c *CatalogController) ListTargetCourses(ctx *gin.Context) {
	curriculumID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	list, err := c.catalogService.ListTargetCourses(ctx.Request.Context(), curriculumID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromTargetCourses(list), ""))
}

// CreateInstitution adds an institution
func (c *CatalogController) CreateInstitution(ctx *gin.Context) {
	var req dto.InstitutionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	inst := &models.Institution{Name: req.Name, IsHome: req.IsHome}
	if err := c.catalogService.CreateInstitution(ctx.Request.Context(), inst); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(inst, "Institution created"))
}

// UpdateInstitution changes an institution
func (c *CatalogController) UpdateInstitution(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.InstitutionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	inst := &models.Institution{ID: id, Name: req.Name, IsHome: req.IsHome}
	if err := c.catalogService.UpdateInstitution(ctx.Request.Context(), inst); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(inst, "Institution updated"))
}

// DeleteInstitution removes an institution
func (c *CatalogController) DeleteInstitution(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.catalogService.DeleteInstitution(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Institution deleted"))
}

// CreateCurriculum adds a curriculum
func (c *CatalogController) CreateCurriculum(ctx *gin.Context) {
	var req dto.CurriculumRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	curriculum := &models.Curriculum{Name: req.Name}
	if err := c.catalogService.CreateCurriculum(ctx.Request.Context(), curriculum); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(curriculum, "Curriculum created"))
}

// UpdateCurriculum renames a curriculum
func (c *CatalogController) UpdateCurriculum(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.CurriculumRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	curriculum := &models.Curriculum{ID: id, Name: req.Name}
	if err := c.catalogService.UpdateCurriculum(ctx.Request.Context(), curriculum); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(curriculum, "Curriculum updated"))
}

// DeleteCurriculum removes a curriculum
func (c *CatalogController) DeleteCurriculum(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.catalogService.DeleteCurriculum(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Curriculum deleted"))
}

// CreateSourceCourse adds a course to an institution
func (c *CatalogController) CreateSourceCourse(ctx *gin.Context) {
	var req dto.SourceCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	course := req.ToSourceCourse()
	if err := c.catalogService.CreateSourceCourse(ctx.Request.Context(), course); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromSourceCourse(course), "Source course created"))
}

// UpdateSourceCourse changes a source course
func (c *CatalogController) UpdateSourceCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SourceCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	course := req.ToSourceCourse()
	course.ID = id
	if err := c.catalogService.UpdateSourceCourse(ctx.Request.Context(), course); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromSourceCourse(course), "Source course updated"))
}

// DeleteSourceCourse removes a source course
func (c *CatalogController) DeleteSourceCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.catalogService.DeleteSourceCourse(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Source course deleted"))
}

// CreateTargetCourse adds a course to a curriculum
func (c *CatalogController) CreateTargetCourse(ctx *gin.Context) {
	var req dto.TargetCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	course := req.ToTargetCourse()
	if err := c.catalogService.CreateTargetCourse(ctx.Request.Context(), course); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromTargetCourse(course), "Target course created"))
}

// UpdateTargetCourse changes a curriculum course
func (c *CatalogController) UpdateTargetCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.TargetCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	course := req.ToTargetCourse()
	course.ID = id
	if err := c.catalogService.UpdateTargetCourse(ctx.Request.Context(), course); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromTargetCourse(course), "Target course updated"))
}

// DeleteTargetCourse removes a curriculum course
func (c *CatalogController) DeleteTargetCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.catalogService.DeleteTargetCourse(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Target course deleted"))
}
