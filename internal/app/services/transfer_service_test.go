package services

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/credittransfer/internal/app/matching"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/embedding"
	"github.com/yigit/credittransfer/internal/pkg/filestorage"
	"github.com/yigit/credittransfer/internal/pkg/helpers"
)

// failingMatcher fails for the listed source courses and delegates otherwise.
type failingMatcher struct {
	Matcher
	failFor map[int64]bool
}

func (f *failingMatcher) FindBestMatch(ctx context.Context, source *models.SourceCourse, candidates []*models.TargetCourse) (matching.MatchResult, error) {
	if f.failFor[source.ID] {
		return matching.MatchResult{}, apperrors.ErrEmbeddingUnavailable
	}
	return f.Matcher.FindBestMatch(ctx, source, candidates)
}

type transferFixture struct {
	svc          TransferService
	store        *memTransfers
	catalog      *memCatalog
	users        *memUsers
	studentID    int64
	otherID      int64
	curriculumID int64
	emptyCurrID  int64
	institution  int64
	sources      []int64
	targets      []int64
}

func newTransferFixture(t *testing.T, wrap func(Matcher) Matcher) *transferFixture {
	t.Helper()
	ctx := context.Background()

	f := &transferFixture{catalog: newMemCatalog(), users: newMemUsers()}
	f.store = newMemTransfers(f.catalog)

	var err error
	f.studentID, err = f.users.CreateUser(ctx, &models.User{Email: "student@example.com", FirstName: "Somchai", LastName: "Dee", RoleType: models.RoleStudent, IsActive: true})
	require.NoError(t, err)
	f.otherID, err = f.users.CreateUser(ctx, &models.User{Email: "other@example.com", FirstName: "Other", LastName: "Student", RoleType: models.RoleStudent, IsActive: true})
	require.NoError(t, err)

	f.institution, _ = f.catalog.CreateInstitution(ctx, &models.Institution{Name: "Old University"})
	f.curriculumID, _ = f.catalog.CreateCurriculum(ctx, &models.Curriculum{Name: "Computer Science 2024"})
	f.emptyCurrID, _ = f.catalog.CreateCurriculum(ctx, &models.Curriculum{Name: "Empty"})

	for _, tc := range []models.Course{
		{Code: "CS201", Name: "Data Structures", Credits: 3, Description: "Graph algorithm design, trees, heaps and hashing with complexity analysis"},
		{Code: "CS301", Name: "Databases", Credits: 4, Description: "Relational database design, SQL queries, normalization and transactions"},
	} {
		id, err := f.catalog.CreateTargetCourse(ctx, &models.TargetCourse{Course: tc, CurriculumID: f.curriculumID})
		require.NoError(t, err)
		f.targets = append(f.targets, id)
	}

	for _, sc := range []models.Course{
		{Code: "COMP210", Name: "Algorithms", Credits: 3, Description: "Graph algorithm techniques, trees and hashing"},
		{Code: "COMP330", Name: "Database Systems", Credits: 3, Description: "SQL queries over relational database systems and transactions"},
		{Code: "COMP101", Name: "Programming", Credits: 2, Description: "Introductory programming with loops, functions and trees"},
	} {
		id, err := f.catalog.CreateSourceCourse(ctx, &models.SourceCourse{Course: sc, InstitutionID: f.institution})
		require.NoError(t, err)
		f.sources = append(f.sources, id)
	}

	var matcher Matcher = matching.NewEngine(embedding.NewLocalEngine(256), time.Second, zerolog.Nop())
	if wrap != nil {
		matcher = wrap(matcher)
	}

	storage, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	f.svc = NewTransferService(f.store, f.catalog, f.users, matcher, NewStatusAggregator(zerolog.Nop()), storage, 2, zerolog.Nop())
	return f
}

func (f *transferFixture) create(t *testing.T) *dto.CreateTransferResponse {
	t.Helper()
	req := &dto.CreateTransferRequest{CurriculumID: f.curriculumID}
	for _, id := range f.sources {
		req.Items = append(req.Items, dto.TransferItemInput{SourceCourseID: id, Grade: "A"})
	}
	resp, err := f.svc.CreateRequest(context.Background(), f.studentID, req)
	require.NoError(t, err)
	return resp
}

func TestTransferService_EndToEnd(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	resp := f.create(t)
	require.Len(t, resp.Request.Items, 3)
	assert.Equal(t, string(models.RequestPending), resp.Request.Status)

	request, err := f.svc.GetRequest(ctx, resp.Request.ID)
	require.NoError(t, err)
	require.Len(t, request.Items, 3)

	for i, item := range request.Items {
		assert.Equal(t, f.sources[i], item.SourceCourseID, "items keep submission order")
		assert.Equal(t, dto.MatchOutcomeMatched, resp.Outcomes[i].Outcome)
		require.NotNil(t, item.Comparison)
		assert.GreaterOrEqual(t, item.Comparison.SimilarityScore, 0.0)
		assert.LessOrEqual(t, item.Comparison.SimilarityScore, 1.0)
		assert.NotEmpty(t, item.Comparison.Explanation)
		require.NotNil(t, item.Comparison.SuggestedCourse)
		assert.Equal(t, f.curriculumID, item.Comparison.SuggestedCourse.CurriculumID)
	}

	items := request.Items
	for i, status := range []models.ItemStatus{models.ItemApproved, models.ItemApproved, models.ItemRejected} {
		_, err := f.svc.UpdateItemStatus(ctx, items[i].ID, status)
		require.NoError(t, err)
	}
	got, err := f.store.GetRequest(ctx, resp.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPartiallyApproved, got.Status)

	update, err := f.svc.UpdateItemStatus(ctx, items[2].ID, models.ItemApproved)
	require.NoError(t, err)
	assert.Equal(t, string(models.RequestApproved), update.RequestStatus)
	assert.True(t, update.StatusChanged)

	got, err = f.store.GetRequest(ctx, resp.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, got.Status)
}

func TestTransferService_MatchPicksClosestCourse(t *testing.T) {
	f := newTransferFixture(t, nil)

	resp := f.create(t)
	request, err := f.svc.GetRequest(context.Background(), resp.Request.ID)
	require.NoError(t, err)

	assert.Equal(t, f.targets[0], request.Items[0].Comparison.SuggestedCourseID)
	assert.Equal(t, f.targets[1], request.Items[1].Comparison.SuggestedCourseID)
}

func TestTransferService_UpdateItemStatusIsIdempotent(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	request, err := f.svc.GetRequest(ctx, f.create(t).Request.ID)
	require.NoError(t, err)

	for _, item := range request.Items {
		_, err := f.svc.UpdateItemStatus(ctx, item.ID, models.ItemRejected)
		require.NoError(t, err)
	}
	writes := f.store.writes()
	assert.Equal(t, 1, writes, "only the final item flips the parent")

	update, err := f.svc.UpdateItemStatus(ctx, request.Items[0].ID, models.ItemRejected)
	require.NoError(t, err)
	assert.False(t, update.StatusChanged)
	assert.Equal(t, string(models.RequestRejected), update.RequestStatus)
	assert.Equal(t, writes, f.store.writes(), "unchanged aggregate must not be written again")
}

func TestTransferService_ConcurrentSiblingUpdates(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	request, err := f.svc.GetRequest(ctx, f.create(t).Request.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, item := range request.Items {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.svc.UpdateItemStatus(ctx, id, models.ItemApproved)
			assert.NoError(t, err)
		}(item.ID)
	}
	wg.Wait()

	got, err := f.store.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, got.Status)
}

func TestTransferService_PerItemFailureDoesNotAbortSiblings(t *testing.T) {
	fm := &failingMatcher{failFor: map[int64]bool{}}
	f := newTransferFixture(t, func(m Matcher) Matcher {
		fm.Matcher = m
		return fm
	})
	fm.failFor[f.sources[1]] = true

	resp := f.create(t)
	require.Len(t, resp.Outcomes, 3)

	assert.Equal(t, dto.MatchOutcomeMatched, resp.Outcomes[0].Outcome)
	assert.Equal(t, dto.MatchOutcomeFailed, resp.Outcomes[1].Outcome)
	assert.Equal(t, dto.ErrorCodeEmbeddingUnavailable, resp.Outcomes[1].ErrorCode)
	assert.Equal(t, dto.MatchOutcomeMatched, resp.Outcomes[2].Outcome)

	request, err := f.svc.GetRequest(context.Background(), resp.Request.ID)
	require.NoError(t, err)
	require.Len(t, request.Items, 3)
	assert.Nil(t, request.Items[1].Comparison)
	assert.NotNil(t, request.Items[0].Comparison)
	assert.NotNil(t, request.Items[2].Comparison)
}

func TestTransferService_NoCandidates(t *testing.T) {
	f := newTransferFixture(t, nil)

	resp, err := f.svc.CreateRequest(context.Background(), f.studentID, &dto.CreateTransferRequest{
		CurriculumID: f.emptyCurrID,
		Items:        []dto.TransferItemInput{{SourceCourseID: f.sources[0], Grade: "B+"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, dto.MatchOutcomeNoMatch, resp.Outcomes[0].Outcome)
	assert.Equal(t, dto.ErrorCodeNoCandidates, resp.Outcomes[0].ErrorCode)
	assert.Equal(t, matching.NoCandidatesMessage, resp.Outcomes[0].Reason)
	assert.Nil(t, resp.Request.Items[0].Comparison)
}

func TestTransferService_MissingDescription(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	blank, err := f.catalog.CreateSourceCourse(ctx, &models.SourceCourse{
		Course:        models.Course{Code: "COMP999", Name: "Seminar", Credits: 1},
		InstitutionID: f.institution,
	})
	require.NoError(t, err)

	resp, err := f.svc.CreateRequest(ctx, f.studentID, &dto.CreateTransferRequest{
		CurriculumID: f.curriculumID,
		Items:        []dto.TransferItemInput{{SourceCourseID: blank, Grade: "C"}},
	})
	require.NoError(t, err)
	assert.Equal(t, dto.MatchOutcomeNoMatch, resp.Outcomes[0].Outcome)
	assert.Equal(t, dto.ErrorCodeInsufficientData, resp.Outcomes[0].ErrorCode)
}

func TestTransferService_CreateValidation(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *dto.CreateTransferRequest
		wantErr error
	}{
		{"no items", &dto.CreateTransferRequest{CurriculumID: f.curriculumID}, apperrors.ErrValidationFailed},
		{"unknown curriculum", &dto.CreateTransferRequest{CurriculumID: 9999, Items: []dto.TransferItemInput{{SourceCourseID: f.sources[0], Grade: "A"}}}, apperrors.ErrResourceNotFound},
		{"unknown course", &dto.CreateTransferRequest{CurriculumID: f.curriculumID, Items: []dto.TransferItemInput{{SourceCourseID: 9999, Grade: "A"}}}, apperrors.ErrResourceNotFound},
		{"blank grade", &dto.CreateTransferRequest{CurriculumID: f.curriculumID, Items: []dto.TransferItemInput{{SourceCourseID: f.sources[0], Grade: " "}}}, apperrors.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateRequest(ctx, f.studentID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTransferService_CreateRepeatedCourse(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	resp, err := f.svc.CreateRequest(ctx, f.studentID, &dto.CreateTransferRequest{
		CurriculumID: f.curriculumID,
		Items: []dto.TransferItemInput{
			{SourceCourseID: f.sources[0], Grade: "D"},
			{SourceCourseID: f.sources[0], Grade: "B"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Outcomes, 2)

	request, err := f.svc.GetRequest(ctx, resp.Request.ID)
	require.NoError(t, err)
	require.Len(t, request.Items, 2)
	assert.NotEqual(t, request.Items[0].ID, request.Items[1].ID)
	assert.Equal(t, "D", request.Items[0].Grade)
	assert.Equal(t, "B", request.Items[1].Grade)
	for _, item := range request.Items {
		assert.Equal(t, f.sources[0], item.SourceCourseID)
		require.NotNil(t, item.Comparison)
		assert.Equal(t, request.Items[0].Comparison.SuggestedCourseID, item.Comparison.SuggestedCourseID)
	}
	assert.Len(t, f.store.comparisons, 2)
}

func TestTransferService_CreateIsAllOrNothing(t *testing.T) {
	f := newTransferFixture(t, nil)
	f.store.failCreateItem = 2

	req := &dto.CreateTransferRequest{CurriculumID: f.curriculumID}
	for _, id := range f.sources {
		req.Items = append(req.Items, dto.TransferItemInput{SourceCourseID: id, Grade: "A"})
	}
	_, err := f.svc.CreateRequest(context.Background(), f.studentID, req)
	require.Error(t, err)

	list, total, err := f.store.ListRequests(context.Background(), RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.Empty(t, f.store.items)
}

func TestTransferService_UpdateItemStatusErrors(t *testing.T) {
	f := newTransferFixture(t, nil)

	_, err := f.svc.UpdateItemStatus(context.Background(), 4242, models.ItemApproved)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	_, err = f.svc.UpdateItemStatus(context.Background(), 1, models.ItemStatus("maybe"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestTransferService_NotificationsAndViewed(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	id := f.create(t).Request.ID

	notes, err := f.svc.Notifications(ctx, f.studentID)
	require.NoError(t, err)
	assert.Empty(t, notes, "pending requests are not notifications")

	require.NoError(t, f.svc.OverrideRequestStatus(ctx, id, models.RequestRejected))

	notes, err = f.svc.Notifications(ctx, f.studentID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, id, notes[0].ID)

	err = f.svc.MarkViewed(ctx, f.otherID, id)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, f.svc.MarkViewed(ctx, f.studentID, id))
	notes, err = f.svc.Notifications(ctx, f.studentID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestTransferService_ListPendingAndHistory(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	first := f.create(t).Request.ID
	f.create(t)
	require.NoError(t, f.svc.OverrideRequestStatus(ctx, first, models.RequestApproved))

	pending, total, err := f.svc.ListPending(ctx, helpers.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, pending, 1)

	history, total, err := f.svc.ListHistory(ctx, helpers.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, history, 1)
	assert.Equal(t, first, history[0].ID)

	mine, err := f.svc.ListStudentRequests(ctx, f.studentID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.GetStudentRequest(ctx, f.otherID, first)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestTransferService_OverrideThenItemWriteRecomputes(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	request, err := f.svc.GetRequest(ctx, f.create(t).Request.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.OverrideRequestStatus(ctx, request.ID, models.RequestApproved))
	update, err := f.svc.UpdateItemStatus(ctx, request.Items[0].ID, models.ItemRejected)
	require.NoError(t, err)
	assert.Equal(t, string(models.RequestPending), update.RequestStatus)
}

func TestTransferService_RecalculateScore(t *testing.T) {
	f := newTransferFixture(t, nil)

	resp, err := f.svc.RecalculateScore(context.Background(), f.sources[0], f.targets[0])
	require.NoError(t, err)
	assert.Greater(t, resp.Score, 0.0)
	assert.LessOrEqual(t, resp.Score, 1.0)
	assert.InDelta(t, resp.Score*100, resp.Percent, 1e-9)

	_, err = f.svc.RecalculateScore(context.Background(), 9999, f.targets[0])
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	list, _, err := f.store.ListRequests(context.Background(), RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "recalculation persists nothing")
}

func TestTransferService_Report(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()

	request, err := f.svc.GetRequest(ctx, f.create(t).Request.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateItemStatus(ctx, request.Items[0].ID, models.ItemApproved)
	require.NoError(t, err)
	_, err = f.svc.UpdateItemStatus(ctx, request.Items[1].ID, models.ItemApproved)
	require.NoError(t, err)
	_, err = f.svc.UpdateItemStatus(ctx, request.Items[2].ID, models.ItemRejected)
	require.NoError(t, err)

	report, err := f.svc.Report(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.RequestPartiallyApproved), report.Status)
	assert.Equal(t, "Computer Science 2024", report.CurriculumName)
	assert.Equal(t, "student@example.com", report.Student.Email)
	require.Len(t, report.Items, 2)
	assert.Equal(t, 3+4, report.TotalTargetCredits)
	assert.Equal(t, 3+3, report.TotalSourceCredits)
}

func evidenceHeader(t *testing.T, name string) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte("evidence"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestTransferService_AttachEvidenceAndDelete(t *testing.T) {
	f := newTransferFixture(t, nil)
	ctx := context.Background()
	id := f.create(t).Request.ID

	_, err := f.svc.AttachEvidence(ctx, f.studentID, id, evidenceHeader(t, "script.sh"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.svc.AttachEvidence(ctx, f.otherID, id, evidenceHeader(t, "transcript.pdf"))
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	path, err := f.svc.AttachEvidence(ctx, f.studentID, id, evidenceHeader(t, "transcript.pdf"))
	require.NoError(t, err)
	assert.Contains(t, path, "evidence")

	stored, err := f.store.GetRequest(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.EvidencePath)
	assert.Equal(t, path, *stored.EvidencePath)

	require.NoError(t, f.svc.DeleteRequest(ctx, id))
	_, err = f.svc.GetRequest(ctx, id)
	assert.True(t, errors.Is(err, apperrors.ErrResourceNotFound))
}
