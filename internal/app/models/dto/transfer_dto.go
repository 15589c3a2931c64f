package dto

import (
	"time"

	"github.com/yigit/credittransfer/internal/app/models"
)

// TransferItemInput is one source course claimed in a new request
type TransferItemInput struct {
	SourceCourseID int64  `json:"sourceCourseId" binding:"required,min=1"`
	Grade          string `json:"grade" binding:"required,max=5"`
}

// CreateTransferRequest is a student's submission
type CreateTransferRequest struct {
	CurriculumID int64               `json:"curriculumId" binding:"required,min=1"`
	Items        []TransferItemInput `json:"items" binding:"required,min=1,dive"`
}

// UpdateItemStatusRequest sets the review state of one item
type UpdateItemStatusRequest struct {
	Status string `json:"status" binding:"required,item_status"`
}

// UpdateRequestStatusRequest overrides the aggregate status of a request
type UpdateRequestStatusRequest struct {
	Status string `json:"status" binding:"required,request_status"`
}

// RecalculateScoreRequest asks for an ad-hoc similarity between two courses
type RecalculateScoreRequest struct {
	SourceCourseID int64 `json:"sourceCourseId" binding:"required,min=1"`
	TargetCourseID int64 `json:"targetCourseId" binding:"required,min=1"`
}

// RecalculateScoreResponse carries a non-persisted similarity score
type RecalculateScoreResponse struct {
	SourceCourseID int64   `json:"sourceCourseId"`
	TargetCourseID int64   `json:"targetCourseId"`
	Score          float64 `json:"score" example:"0.8731"`
	Percent        float64 `json:"percent" example:"87.31"`
}

// Match outcome values reported per item on creation
const (
	MatchOutcomeMatched = "matched"
	MatchOutcomeNoMatch = "no_match"
	MatchOutcomeFailed  = "failed"
)

// ItemMatchOutcome reports how matching went for one submitted item
type ItemMatchOutcome struct {
	ItemID         int64     `json:"itemId"`
	SourceCourseID int64     `json:"sourceCourseId"`
	Outcome        string    `json:"outcome" enums:"matched,no_match,failed"`
	Reason         string    `json:"reason,omitempty"`
	ErrorCode      ErrorCode `json:"errorCode,omitempty"`
}

// CreateTransferResponse is returned after a request is created
type CreateTransferResponse struct {
	Request  TransferRequestResponse `json:"request"`
	Outcomes []ItemMatchOutcome      `json:"outcomes"`
}

// ComparisonResponse is the suggested match for an item
type ComparisonResponse struct {
	SuggestedCourse CourseResponse `json:"suggestedCourse"`
	SimilarityScore float64        `json:"similarityScore"`
	Percent         float64        `json:"percent"`
	Explanation     string         `json:"explanation"`
}

// RequestItemResponse is one item of a request
type RequestItemResponse struct {
	ID           int64               `json:"id"`
	SourceCourse CourseResponse      `json:"sourceCourse"`
	Grade        string              `json:"grade"`
	Status       string              `json:"status" enums:"pending,approved,rejected"`
	Comparison   *ComparisonResponse `json:"comparison,omitempty"`
}

// TransferRequestResponse is the public view of a request
type TransferRequestResponse struct {
	ID              int64                 `json:"id"`
	StudentID       int64                 `json:"studentId"`
	StudentName     string                `json:"studentName,omitempty"`
	CurriculumID    *int64                `json:"curriculumId,omitempty"`
	CurriculumName  string                `json:"curriculumName,omitempty"`
	Status          string                `json:"status" enums:"pending,approved,partially_approved,rejected"`
	ViewedByStudent bool                  `json:"viewedByStudent"`
	EvidencePath    *string               `json:"evidencePath,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	Items           []RequestItemResponse `json:"items,omitempty"`
}

// ItemStatusUpdateResponse reports an item write and its effect on the request
type ItemStatusUpdateResponse struct {
	ItemID        int64  `json:"itemId"`
	ItemStatus    string `json:"itemStatus"`
	RequestID     int64  `json:"requestId"`
	RequestStatus string `json:"requestStatus"`
	StatusChanged bool   `json:"statusChanged"`
}

// ReportItem is one approved item in a transfer report
type ReportItem struct {
	SourceCourse CourseResponse  `json:"sourceCourse"`
	Grade        string          `json:"grade"`
	TargetCourse *CourseResponse `json:"targetCourse,omitempty"`
	Score        float64         `json:"score"`
}

// TransferReportResponse is the plain data handed to report renderers
type TransferReportResponse struct {
	RequestID          int64        `json:"requestId"`
	Student            UserResponse `json:"student"`
	CurriculumName     string       `json:"curriculumName,omitempty"`
	Status             string       `json:"status"`
	Items              []ReportItem `json:"items"`
	TotalTargetCredits int          `json:"totalTargetCredits"`
	TotalSourceCredits int          `json:"totalSourceCredits"`
	GeneratedAt        time.Time    `json:"generatedAt"`
}

// FromTransferRequest maps a request and whatever relations are loaded
func FromTransferRequest(r *models.TransferRequest) TransferRequestResponse {
	if r == nil {
		return TransferRequestResponse{}
	}

	resp := TransferRequestResponse{
		ID:              r.ID,
		StudentID:       r.StudentID,
		CurriculumID:    r.CurriculumID,
		Status:          string(r.Status),
		ViewedByStudent: r.ViewedByStudent,
		EvidencePath:    r.EvidencePath,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Student != nil {
		resp.StudentName = r.Student.FullName()
	}
	if r.Curriculum != nil {
		resp.CurriculumName = r.Curriculum.Name
	}

	for _, item := range r.Items {
		resp.Items = append(resp.Items, FromRequestItem(item))
	}
	return resp
}

// FromTransferRequests maps a list without items
func FromTransferRequests(list []*models.TransferRequest) []TransferRequestResponse {
	out := make([]TransferRequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, FromTransferRequest(r))
	}
	return out
}

// FromRequestItem maps one item and its comparison result
func FromRequestItem(item *models.RequestItem) RequestItemResponse {
	resp := RequestItemResponse{
		ID:     item.ID,
		Grade:  item.Grade,
		Status: string(item.Status),
	}
	if item.SourceCourse != nil {
		resp.SourceCourse = FromSourceCourse(item.SourceCourse)
	} else {
		resp.SourceCourse = CourseResponse{ID: item.SourceCourseID}
	}

	if c := item.Comparison; c != nil {
		suggested := CourseResponse{ID: c.SuggestedCourseID}
		if c.SuggestedCourse != nil {
			suggested = FromTargetCourse(c.SuggestedCourse)
		}
		resp.Comparison = &ComparisonResponse{
			SuggestedCourse: suggested,
			SimilarityScore: c.SimilarityScore,
			Percent:         c.SimilarityPercent(),
			Explanation:     c.Explanation,
		}
	}
	return resp
}
