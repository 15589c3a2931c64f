package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/app/services"
	"github.com/yigit/credittransfer/internal/middleware"
	"github.com/yigit/credittransfer/internal/pkg/helpers"
)

// AdminController serves the faculty review workflow
type AdminController struct {
	transferService services.TransferService
	logger          zerolog.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(transferService services.TransferService, logger zerolog.Logger) *AdminController {
	return &AdminController{
		transferService: transferService,
		logger:          logger,
	}
}

func (c *AdminController) writePage(ctx *gin.Context, list []*models.TransferRequest, total int64, page helpers.PageRequest) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      dto.FromTransferRequests(list),
		Pagination: helpers.NewPaginationInfo(total, page),
	}, ""))
}

// ListPending returns requests waiting for review
func (c *AdminController) ListPending(ctx *gin.Context) {
	page := helpers.ParsePaginationParams(ctx)
	list, total, err := c.transferService.ListPending(ctx.Request.Context(), page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.writePage(ctx, list, total, page)
}

// ListHistory returns resolved requests
func (c *AdminController) ListHistory(ctx *gin.Context) {
	page := helpers.ParsePaginationParams(ctx)
	list, total, err := c.transferService.ListHistory(ctx.Request.Context(), page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.writePage(ctx, list, total, page)
}

// GetRequest returns any request with items and suggested matches
func (c *AdminController) GetRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	request, err := c.transferService.GetRequest(ctx.Request.Context(), requestID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromTransferRequest(request), ""))
}

// UpdateItemStatus approves or rejects one item and recomputes the request
func (c *AdminController) UpdateItemStatus(ctx *gin.Context) {
	itemID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	status, err := models.ParseItemStatus(req.Status)
	if err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	resp, err := c.transferService.UpdateItemStatus(ctx.Request.Context(), itemID, status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("itemID", itemID).
		Str("itemStatus", resp.ItemStatus).
		Str("requestStatus", resp.RequestStatus).
		Bool("statusChanged", resp.StatusChanged).
		Msg("Request item reviewed")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Item status updated"))
}

// OverrideRequestStatus sets the aggregate status directly
func (c *AdminController) OverrideRequestStatus(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateRequestStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	status, err := models.ParseRequestStatus(req.Status)
	if err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.transferService.OverrideRequestStatus(ctx.Request.Context(), requestID, status); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"requestId": requestID, "status": status}, "Request status updated"))
}

// DeleteRequest removes a request with its items and evidence
func (c *AdminController) DeleteRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.transferService.DeleteRequest(ctx.Request.Context(), requestID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Int64("requestID", requestID).Msg("Transfer request deleted")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Transfer request deleted"))
}

// RecalculateScore compares any source course with any target course
func (c *AdminController) RecalculateScore(ctx *gin.Context) {
	var req dto.RecalculateScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	resp, err := c.transferService.RecalculateScore(ctx.Request.Context(), req.SourceCourseID, req.TargetCourseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// Report returns the approved items of a request with credit totals
func (c *AdminController) Report(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	report, err := c.transferService.Report(ctx.Request.Context(), requestID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report, ""))
}
