package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/app/services"
	"github.com/yigit/credittransfer/internal/middleware"
)

// TransferController serves the student side of the transfer workflow
type TransferController struct {
	transferService services.TransferService
	logger          zerolog.Logger
}

// NewTransferController creates a new TransferController
func NewTransferController(transferService services.TransferService, logger zerolog.Logger) *TransferController {
	return &TransferController{
		transferService: transferService,
		logger:          logger,
	}
}

// CreateRequest submits a new transfer request and matches every item
func (c *TransferController) CreateRequest(ctx *gin.Context) {
	studentID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.CreateTransferRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	resp, err := c.transferService.CreateRequest(ctx.Request.Context(), studentID, &req)
	if err != nil {
		c.logger.Warn().Err(err).Int64("studentID", studentID).Msg("Failed to create transfer request")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("studentID", studentID).
		Int64("requestID", resp.Request.ID).
		Int("items", len(resp.Outcomes)).
		Msg("Transfer request created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Transfer request created"))
}

// ListMyRequests returns the caller's requests, newest first
func (c *TransferController) ListMyRequests(ctx *gin.Context) {
	studentID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	list, err := c.transferService.ListStudentRequests(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromTransferRequests(list), ""))
}

// GetMyRequest returns one of the caller's requests with its items
func (c *TransferController) GetMyRequest(ctx *gin.Context) {
	studentID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	requestID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	request, err := c.transferService.GetStudentRequest(ctx.Request.Context(), studentID, requestID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromTransferRequest(request), ""))
}

// UploadEvidence attaches a supporting document to a request
func (c *TransferController) UploadEvidence(ctx *gin.Context) {
	studentID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	requestID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "file is required").WithField("file")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	path, err := c.transferService.AttachEvidence(ctx.Request.Context(), studentID, requestID, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"evidencePath": path}, "Evidence uploaded"))
}

// Notifications lists resolved requests the caller has not opened yet
func (c *TransferController) Notifications(ctx *gin.Context) {
	studentID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	list, err := c.transferService.Notifications(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromTransferRequests(list), ""))
}

// MarkViewed records that the caller has seen a request's decision
func (c *TransferController) MarkViewed(ctx *gin.Context) {
	studentID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	requestID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.transferService.MarkViewed(ctx.Request.Context(), studentID, requestID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Marked as viewed"))
}
