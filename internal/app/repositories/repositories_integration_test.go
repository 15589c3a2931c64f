//go:build integration

package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/yigit/credittransfer/internal/app/matching"
	"github.com/yigit/credittransfer/internal/app/migrations"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/app/services"
	"github.com/yigit/credittransfer/internal/db"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/embedding"
	"github.com/yigit/credittransfer/internal/pkg/filestorage"
	"github.com/yigit/credittransfer/internal/seed"
)

func setupDB(t *testing.T) *db.PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("credittransfer"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, migrations.NewMigrator(connStr, "", zerolog.Nop()).Up())
	// A second run is a no-op
	require.NoError(t, migrations.NewMigrator(connStr, "", zerolog.Nop()).Up())

	database, err := db.Connect(ctx, connStr, 10, 1, "1h")
	require.NoError(t, err)
	t.Cleanup(database.Close)
	return database
}

type seeded struct {
	studentID    int64
	curriculumID int64
	sources      []int64
	targets      []int64
}

func seedCatalog(t *testing.T, repos *Repositories) seeded {
	t.Helper()
	ctx := context.Background()
	var s seeded
	var err error

	s.studentID, err = repos.UserRepository.CreateUser(ctx, &models.User{
		Email: "student@example.com", Password: "x", FirstName: "S", LastName: "T",
		RoleType: models.RoleStudent, IsActive: true,
	})
	require.NoError(t, err)

	instID, err := repos.CatalogRepository.CreateInstitution(ctx, &models.Institution{Name: "Old University"})
	require.NoError(t, err)
	s.curriculumID, err = repos.CatalogRepository.CreateCurriculum(ctx, &models.Curriculum{Name: "CS 2024"})
	require.NoError(t, err)

	for _, c := range []models.Course{
		{Code: "CS201", Name: "Data Structures", Credits: 3, Description: "Graph algorithm design, trees and hashing"},
		{Code: "CS301", Name: "Databases", Credits: 4, Description: "Relational database design, SQL and transactions"},
	} {
		id, err := repos.CatalogRepository.CreateTargetCourse(ctx, &models.TargetCourse{Course: c, CurriculumID: s.curriculumID})
		require.NoError(t, err)
		s.targets = append(s.targets, id)
	}
	for _, c := range []models.Course{
		{Code: "COMP210", Name: "Algorithms", Credits: 3, Description: "Graph algorithm techniques and trees"},
		{Code: "COMP330", Name: "Database Systems", Credits: 3, Description: "SQL over relational database systems"},
		{Code: "COMP101", Name: "Programming", Credits: 2, Description: "Introductory programming"},
	} {
		id, err := repos.CatalogRepository.CreateSourceCourse(ctx, &models.SourceCourse{Course: c, InstitutionID: instID})
		require.NoError(t, err)
		s.sources = append(s.sources, id)
	}
	return s
}

func TestPostgres_TransferWorkflow(t *testing.T) {
	database := setupDB(t)
	repos := NewRepositories(database)
	s := seedCatalog(t, repos)
	ctx := context.Background()

	storage, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	matcher := matching.NewEngine(embedding.NewLocalEngine(256), 5*time.Second, zerolog.Nop())
	svc := services.NewTransferService(repos.TransferRepository, repos.CatalogRepository, repos.UserRepository,
		matcher, services.NewStatusAggregator(zerolog.Nop()), storage, 2, zerolog.Nop())

	req := &dto.CreateTransferRequest{CurriculumID: s.curriculumID}
	for _, id := range s.sources {
		req.Items = append(req.Items, dto.TransferItemInput{SourceCourseID: id, Grade: "A"})
	}
	resp, err := svc.CreateRequest(ctx, s.studentID, req)
	require.NoError(t, err)

	request, err := svc.GetRequest(ctx, resp.Request.ID)
	require.NoError(t, err)
	require.Len(t, request.Items, 3)
	for i, item := range request.Items {
		assert.Equal(t, s.sources[i], item.SourceCourseID)
		require.NotNil(t, item.Comparison)
		require.NotNil(t, item.Comparison.SuggestedCourse)
		assert.Equal(t, s.curriculumID, item.Comparison.SuggestedCourse.CurriculumID)
	}

	// Concurrent sibling updates serialize on the parent row lock
	var wg sync.WaitGroup
	for i, status := range []models.ItemStatus{models.ItemApproved, models.ItemApproved, models.ItemRejected} {
		wg.Add(1)
		go func(id int64, status models.ItemStatus) {
			defer wg.Done()
			_, err := svc.UpdateItemStatus(ctx, id, status)
			assert.NoError(t, err)
		}(request.Items[i].ID, status)
	}
	wg.Wait()

	got, err := repos.TransferRepository.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPartiallyApproved, got.Status)

	_, err = svc.UpdateItemStatus(ctx, request.Items[2].ID, models.ItemApproved)
	require.NoError(t, err)
	got, err = repos.TransferRepository.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, got.Status)

	notes, err := svc.Notifications(ctx, s.studentID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	// A retaken course is stored once per submitted row
	retake, err := svc.CreateRequest(ctx, s.studentID, &dto.CreateTransferRequest{
		CurriculumID: s.curriculumID,
		Items: []dto.TransferItemInput{
			{SourceCourseID: s.sources[1], Grade: "D"},
			{SourceCourseID: s.sources[1], Grade: "B"},
		},
	})
	require.NoError(t, err)
	items, err := repos.TransferRepository.ListItems(ctx, retake.Request.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "D", items[0].Grade)
	assert.Equal(t, "B", items[1].Grade)

	// Referenced catalog rows cannot be deleted
	err = repos.CatalogRepository.DeleteSourceCourse(ctx, s.sources[0])
	assert.ErrorIs(t, err, apperrors.ErrCatalogHasRelations)

	require.NoError(t, svc.DeleteRequest(ctx, request.ID))
	_, err = repos.TransferRepository.GetRequest(ctx, request.ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	require.NoError(t, repos.CatalogRepository.DeleteSourceCourse(ctx, s.sources[0]))
}

func TestPostgres_CatalogConstraints(t *testing.T) {
	database := setupDB(t)
	repos := NewRepositories(database)
	s := seedCatalog(t, repos)
	ctx := context.Background()

	_, err := repos.CatalogRepository.CreateTargetCourse(ctx, &models.TargetCourse{
		Course:       models.Course{Code: "CS201", Name: "Dup", Credits: 3},
		CurriculumID: s.curriculumID,
	})
	assert.ErrorIs(t, err, apperrors.ErrCourseCodeExists)

	courses, err := repos.CatalogRepository.ListTargetCourses(ctx, s.curriculumID)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "CS201", courses[0].Code)

	_, err = repos.CatalogRepository.GetTargetCourse(ctx, 99999)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	_, err = repos.UserRepository.CreateUser(ctx, &models.User{
		Email: "student@example.com", Password: "x", FirstName: "A", LastName: "B", RoleType: models.RoleStudent,
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestPostgres_SeedIsIdempotent(t *testing.T) {
	database := setupDB(t)
	repos := NewRepositories(database)
	catalog := services.NewCatalogService(repos.CatalogRepository)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, seed.CreateDefaultData(ctx, repos.UserRepository, catalog, "password123", zerolog.Nop()))
	}

	curricula, err := catalog.ListCurricula(ctx)
	require.NoError(t, err)
	require.Len(t, curricula, 1)

	courses, err := catalog.ListTargetCourses(ctx, curricula[0].ID)
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	faculty, err := repos.UserRepository.GetUserByEmail(ctx, "faculty1@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleFaculty, faculty.RoleType)
}
