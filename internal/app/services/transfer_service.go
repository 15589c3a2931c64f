package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/app/matching"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/filestorage"
	"github.com/yigit/credittransfer/internal/pkg/helpers"
	"golang.org/x/sync/errgroup"
)

// Matcher scores source courses against target courses.
type Matcher interface {
	FindBestMatch(ctx context.Context, source *models.SourceCourse, candidates []*models.TargetCourse) (matching.MatchResult, error)
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// TransferService defines the transfer request workflow
type TransferService interface {
	CreateRequest(ctx context.Context, studentID int64, req *dto.CreateTransferRequest) (*dto.CreateTransferResponse, error)
	GetRequest(ctx context.Context, requestID int64) (*models.TransferRequest, error)
	GetStudentRequest(ctx context.Context, studentID, requestID int64) (*models.TransferRequest, error)
	ListStudentRequests(ctx context.Context, studentID int64) ([]*models.TransferRequest, error)
	ListPending(ctx context.Context, page helpers.PageRequest) ([]*models.TransferRequest, int64, error)
	ListHistory(ctx context.Context, page helpers.PageRequest) ([]*models.TransferRequest, int64, error)
	Notifications(ctx context.Context, studentID int64) ([]*models.TransferRequest, error)
	MarkViewed(ctx context.Context, studentID, requestID int64) error
	UpdateItemStatus(ctx context.Context, itemID int64, status models.ItemStatus) (*dto.ItemStatusUpdateResponse, error)
	OverrideRequestStatus(ctx context.Context, requestID int64, status models.RequestStatus) error
	DeleteRequest(ctx context.Context, requestID int64) error
	AttachEvidence(ctx context.Context, studentID, requestID int64, file *multipart.FileHeader) (string, error)
	RecalculateScore(ctx context.Context, sourceCourseID, targetCourseID int64) (*dto.RecalculateScoreResponse, error)
	Report(ctx context.Context, requestID int64) (*dto.TransferReportResponse, error)
}

var (
	resolvedStatuses = []models.RequestStatus{models.RequestApproved, models.RequestPartiallyApproved, models.RequestRejected}
	evidenceExts     = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".pdf": true}
)

// transferServiceImpl implements the TransferService interface
type transferServiceImpl struct {
	store       TransferStore
	catalog     CatalogStore
	users       UserStore
	matcher     Matcher
	aggregator  *StatusAggregator
	files       filestorage.FileStorage
	concurrency int
	logger      zerolog.Logger
}

// NewTransferService creates a new transfer service instance
func NewTransferService(
	store TransferStore,
	catalog CatalogStore,
	users UserStore,
	matcher Matcher,
	aggregator *StatusAggregator,
	files filestorage.FileStorage,
	concurrency int,
	logger zerolog.Logger,
) TransferService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &transferServiceImpl{
		store:       store,
		catalog:     catalog,
		users:       users,
		matcher:     matcher,
		aggregator:  aggregator,
		files:       files,
		concurrency: concurrency,
		logger:      logger,
	}
}

// itemMatch is the matching outcome for one submitted item
type itemMatch struct {
	result matching.MatchResult
	err    error
}

// CreateRequest matches every submitted course against the curriculum and
// stores the request, its items and the found matches in one transaction.
// A failed match leaves that item unmatched; it never fails the request.
func (s *transferServiceImpl) CreateRequest(ctx context.Context, studentID int64, req *dto.CreateTransferRequest) (*dto.CreateTransferResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one course is required", apperrors.ErrValidationFailed)
	}

	curriculum, err := s.catalog.GetCurriculum(ctx, req.CurriculumID)
	if err != nil {
		return nil, err
	}

	sources := make([]*models.SourceCourse, len(req.Items))
	for i, in := range req.Items {
		if strings.TrimSpace(in.Grade) == "" {
			return nil, fmt.Errorf("%w: grade is required for item %d", apperrors.ErrValidationFailed, i+1)
		}

		course, err := s.catalog.GetSourceCourse(ctx, in.SourceCourseID)
		if err != nil {
			return nil, err
		}
		sources[i] = course
	}

	candidates, err := s.catalog.ListTargetCourses(ctx, curriculum.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading target courses: %w", err)
	}

	matches := s.matchAll(ctx, sources, candidates)

	request := &models.TransferRequest{
		StudentID:    studentID,
		CurriculumID: &curriculum.ID,
		Status:       models.RequestPending,
		Curriculum:   curriculum,
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx TransferStore) error {
		id, err := tx.CreateRequest(ctx, request)
		if err != nil {
			return err
		}
		request.ID = id

		for i, in := range req.Items {
			item := &models.RequestItem{
				RequestID:      id,
				SourceCourseID: in.SourceCourseID,
				Grade:          strings.TrimSpace(in.Grade),
				Status:         models.ItemPending,
				Position:       i,
				SourceCourse:   sources[i],
			}
			if item.ID, err = tx.CreateItem(ctx, item); err != nil {
				return err
			}

			m := matches[i]
			if m.err == nil && m.result.Found {
				comparison := &models.ComparisonResult{
					RequestItemID:     item.ID,
					SuggestedCourseID: m.result.Course.ID,
					SimilarityScore:   m.result.Score,
					Explanation:       m.result.Rationale,
					SuggestedCourse:   m.result.Course,
				}
				if comparison.ID, err = tx.CreateComparison(ctx, comparison); err != nil {
					return err
				}
				item.Comparison = comparison
			}
			request.Items = append(request.Items, item)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("studentID", studentID).Msg("Failed to persist transfer request")
		return nil, fmt.Errorf("error creating transfer request: %w", err)
	}

	outcomes := make([]dto.ItemMatchOutcome, len(request.Items))
	for i, item := range request.Items {
		outcomes[i] = outcomeFor(item, matches[i])
	}

	s.logger.Info().
		Int64("requestID", request.ID).
		Int64("studentID", studentID).
		Int("items", len(request.Items)).
		Msg("Transfer request created")

	return &dto.CreateTransferResponse{
		Request:  dto.FromTransferRequest(request),
		Outcomes: outcomes,
	}, nil
}

// matchAll runs the matcher for every source course with bounded
// concurrency. Results keep submission order.
func (s *transferServiceImpl) matchAll(ctx context.Context, sources []*models.SourceCourse, candidates []*models.TargetCourse) []itemMatch {
	results := make([]itemMatch, len(sources))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			res, err := s.matcher.FindBestMatch(ctx, src, candidates)
			if err != nil {
				s.logger.Warn().Err(err).
					Int("item", i).
					Int64("sourceCourseID", src.ID).
					Msg("Course matching failed, item left unmatched")
			}
			results[i] = itemMatch{result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func outcomeFor(item *models.RequestItem, m itemMatch) dto.ItemMatchOutcome {
	out := dto.ItemMatchOutcome{ItemID: item.ID, SourceCourseID: item.SourceCourseID}
	switch {
	case m.err != nil:
		out.Outcome = dto.MatchOutcomeFailed
		out.ErrorCode = dto.ErrorCodeEmbeddingUnavailable
		out.Reason = apperrors.ErrEmbeddingUnavailable.Error()
	case m.result.Found:
		out.Outcome = dto.MatchOutcomeMatched
	default:
		out.Outcome = dto.MatchOutcomeNoMatch
		out.Reason = m.result.Rationale
		out.ErrorCode = dto.ErrorCodeInsufficientData
		if m.result.Rationale == matching.NoCandidatesMessage {
			out.ErrorCode = dto.ErrorCodeNoCandidates
		}
	}
	return out
}

// GetRequest loads a request with its items, student and curriculum
func (s *transferServiceImpl) GetRequest(ctx context.Context, requestID int64) (*models.TransferRequest, error) {
	if requestID <= 0 {
		return nil, fmt.Errorf("%w: invalid request ID", apperrors.ErrValidationFailed)
	}

	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListItems(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("error loading request items: %w", err)
	}
	request.Items = items

	student, err := s.users.GetUserByID(ctx, request.StudentID)
	if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, fmt.Errorf("error loading student: %w", err)
	}
	request.Student = student

	if request.CurriculumID != nil {
		curriculum, err := s.catalog.GetCurriculum(ctx, *request.CurriculumID)
		if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, fmt.Errorf("error loading curriculum: %w", err)
		}
		request.Curriculum = curriculum
	}

	return request, nil
}

// GetStudentRequest loads a request owned by the given student
func (s *transferServiceImpl) GetStudentRequest(ctx context.Context, studentID, requestID int64) (*models.TransferRequest, error) {
	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.StudentID != studentID {
		return nil, apperrors.NewForbiddenError("transfer request belongs to another student")
	}
	return request, nil
}

// ListStudentRequests returns all requests of a student, newest first
func (s *transferServiceImpl) ListStudentRequests(ctx context.Context, studentID int64) ([]*models.TransferRequest, error) {
	list, _, err := s.store.ListRequests(ctx, RequestFilter{StudentID: studentID})
	if err != nil {
		return nil, fmt.Errorf("error listing student requests: %w", err)
	}
	return list, nil
}

// ListPending returns requests awaiting review
func (s *transferServiceImpl) ListPending(ctx context.Context, page helpers.PageRequest) ([]*models.TransferRequest, int64, error) {
	list, total, err := s.store.ListRequests(ctx, RequestFilter{
		Statuses: []models.RequestStatus{models.RequestPending},
		Offset:   page.Offset(),
		Limit:    page.Size,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error listing pending requests: %w", err)
	}
	return list, total, nil
}

// ListHistory returns requests that have been decided
func (s *transferServiceImpl) ListHistory(ctx context.Context, page helpers.PageRequest) ([]*models.TransferRequest, int64, error) {
	list, total, err := s.store.ListRequests(ctx, RequestFilter{
		Statuses: resolvedStatuses,
		Offset:   page.Offset(),
		Limit:    page.Size,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error listing request history: %w", err)
	}
	return list, total, nil
}

// Notifications returns decided requests the student has not opened yet
func (s *transferServiceImpl) Notifications(ctx context.Context, studentID int64) ([]*models.TransferRequest, error) {
	list, _, err := s.store.ListRequests(ctx, RequestFilter{
		StudentID: studentID,
		Statuses:  resolvedStatuses,
		Unviewed:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	return list, nil
}

// MarkViewed records that the student has seen the request's decision
func (s *transferServiceImpl) MarkViewed(ctx context.Context, studentID, requestID int64) error {
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.StudentID != studentID {
		return apperrors.NewForbiddenError("transfer request belongs to another student")
	}
	if request.ViewedByStudent {
		return nil
	}
	return s.store.MarkViewed(ctx, requestID)
}

// UpdateItemStatus writes an item decision and recomputes its request's
// status in the same transaction.
func (s *transferServiceImpl) UpdateItemStatus(ctx context.Context, itemID int64, status models.ItemStatus) (*dto.ItemStatusUpdateResponse, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", apperrors.ErrValidationFailed, apperrors.ErrInvalidStatus, status)
	}

	resp := &dto.ItemStatusUpdateResponse{ItemID: itemID, ItemStatus: string(status)}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx TransferStore) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}

		// Lock the parent before writing so sibling updates queue up here.
		if _, err := tx.LockRequest(ctx, item.RequestID); err != nil {
			return err
		}
		if err := tx.UpdateItemStatus(ctx, itemID, status); err != nil {
			return err
		}

		requestStatus, changed, err := s.aggregator.Recompute(ctx, tx, item.RequestID)
		if err != nil {
			return err
		}
		resp.RequestID = item.RequestID
		resp.RequestStatus = string(requestStatus)
		resp.StatusChanged = changed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("itemID", itemID).
		Str("status", string(status)).
		Int64("requestID", resp.RequestID).
		Str("requestStatus", resp.RequestStatus).
		Msg("Request item status updated")

	return resp, nil
}

// OverrideRequestStatus sets a request status directly. The next item write
// recomputes it again.
func (s *transferServiceImpl) OverrideRequestStatus(ctx context.Context, requestID int64, status models.RequestStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %w: %q", apperrors.ErrValidationFailed, apperrors.ErrInvalidStatus, status)
	}

	return s.store.RunInTx(ctx, func(ctx context.Context, tx TransferStore) error {
		request, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Status == status {
			return nil
		}
		if err := tx.UpdateRequestStatus(ctx, requestID, status); err != nil {
			return err
		}
		s.logger.Info().
			Int64("requestID", requestID).
			Str("from", string(request.Status)).
			Str("to", string(status)).
			Msg("Transfer request status overridden")
		return nil
	})
}

// DeleteRequest removes a request with its items and evidence
func (s *transferServiceImpl) DeleteRequest(ctx context.Context, requestID int64) error {
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteRequest(ctx, requestID); err != nil {
		return fmt.Errorf("error deleting transfer request: %w", err)
	}

	if request.EvidencePath != nil && s.files != nil {
		if err := s.files.DeleteFile(*request.EvidencePath); err != nil {
			s.logger.Warn().Err(err).Int64("requestID", requestID).Msg("Failed to delete evidence file")
		}
	}
	return nil
}

// AttachEvidence stores a supporting document for the student's request
func (s *transferServiceImpl) AttachEvidence(ctx context.Context, studentID, requestID int64, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", fmt.Errorf("%w: evidence file is required", apperrors.ErrValidationFailed)
	}
	if !evidenceExts[strings.ToLower(filepath.Ext(file.Filename))] {
		return "", fmt.Errorf("%w: unsupported evidence file type", apperrors.ErrValidationFailed)
	}

	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	if request.StudentID != studentID {
		return "", apperrors.NewForbiddenError("transfer request belongs to another student")
	}

	path, err := s.files.SaveFileWithPath(file, filepath.Join("evidence", strconv.FormatInt(requestID, 10)))
	if err != nil {
		return "", fmt.Errorf("error saving evidence: %w", err)
	}

	if err := s.store.SetEvidence(ctx, requestID, path); err != nil {
		_ = s.files.DeleteFile(path)
		return "", fmt.Errorf("error saving evidence: %w", err)
	}

	if request.EvidencePath != nil {
		if err := s.files.DeleteFile(*request.EvidencePath); err != nil {
			s.logger.Warn().Err(err).Int64("requestID", requestID).Msg("Failed to delete replaced evidence file")
		}
	}
	return path, nil
}

// RecalculateScore computes a similarity without persisting anything
func (s *transferServiceImpl) RecalculateScore(ctx context.Context, sourceCourseID, targetCourseID int64) (*dto.RecalculateScoreResponse, error) {
	source, err := s.catalog.GetSourceCourse(ctx, sourceCourseID)
	if err != nil {
		return nil, err
	}
	target, err := s.catalog.GetTargetCourse(ctx, targetCourseID)
	if err != nil {
		return nil, err
	}

	score, err := s.matcher.Similarity(ctx, source.Description, target.Description)
	if err != nil {
		s.logger.Warn().Err(err).
			Int64("sourceCourseID", sourceCourseID).
			Int64("targetCourseID", targetCourseID).
			Msg("Ad-hoc similarity failed")
		return nil, err
	}

	return &dto.RecalculateScoreResponse{
		SourceCourseID: sourceCourseID,
		TargetCourseID: targetCourseID,
		Score:          score,
		Percent:        score * 100,
	}, nil
}

// Report collects the approved items of a request for document renderers
func (s *transferServiceImpl) Report(ctx context.Context, requestID int64) (*dto.TransferReportResponse, error) {
	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	report := &dto.TransferReportResponse{
		RequestID:   request.ID,
		Student:     dto.FromUser(request.Student),
		Status:      string(request.Status),
		Items:       []dto.ReportItem{},
		GeneratedAt: time.Now(),
	}
	if request.Curriculum != nil {
		report.CurriculumName = request.Curriculum.Name
	}

	for _, item := range request.Items {
		if item.Status != models.ItemApproved {
			continue
		}

		ri := dto.ReportItem{Grade: item.Grade}
		if item.SourceCourse != nil {
			ri.SourceCourse = dto.FromSourceCourse(item.SourceCourse)
			report.TotalSourceCredits += item.SourceCourse.Credits
		}
		if c := item.Comparison; c != nil && c.SuggestedCourse != nil {
			target := dto.FromTargetCourse(c.SuggestedCourse)
			ri.TargetCourse = &target
			ri.Score = c.SimilarityScore
			report.TotalTargetCredits += c.SuggestedCourse.Credits
		}
		report.Items = append(report.Items, ri)
	}

	return report, nil
}
