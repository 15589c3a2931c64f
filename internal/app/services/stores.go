package services

import (
	"context"

	"github.com/yigit/credittransfer/internal/app/models"
)

// RequestFilter selects transfer requests for listings.
type RequestFilter struct {
	StudentID int64                  // 0 matches every student
	Statuses  []models.RequestStatus // Empty matches every status
	Unviewed  bool                   // Only requests the student has not seen
	Offset    uint64
	Limit     int // 0 means no limit
}

// TransferStore persists transfer requests, their items and comparison results.
type TransferStore interface {
	// RunInTx runs fn with a store bound to one database transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx TransferStore) error) error

	CreateRequest(ctx context.Context, req *models.TransferRequest) (int64, error)
	CreateItem(ctx context.Context, item *models.RequestItem) (int64, error)
	CreateComparison(ctx context.Context, result *models.ComparisonResult) (int64, error)

	GetRequest(ctx context.Context, id int64) (*models.TransferRequest, error)
	// LockRequest reads the request and holds a row lock until the
	// surrounding transaction ends.
	LockRequest(ctx context.Context, id int64) (*models.TransferRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*models.TransferRequest, int64, error)

	GetItem(ctx context.Context, id int64) (*models.RequestItem, error)
	// ListItems returns items in submission order with their source course,
	// comparison result and suggested course loaded.
	ListItems(ctx context.Context, requestID int64) ([]*models.RequestItem, error)
	ItemStatuses(ctx context.Context, requestID int64) ([]models.ItemStatus, error)

	UpdateItemStatus(ctx context.Context, itemID int64, status models.ItemStatus) error
	// UpdateRequestStatus writes the status and clears the viewed flag so the
	// student is notified of the change.
	UpdateRequestStatus(ctx context.Context, requestID int64, status models.RequestStatus) error
	MarkViewed(ctx context.Context, requestID int64) error
	SetEvidence(ctx context.Context, requestID int64, path string) error
	DeleteRequest(ctx context.Context, requestID int64) error
}

// CatalogStore reads and manages institutions, curricula and courses.
type CatalogStore interface {
	ListInstitutions(ctx context.Context) ([]*models.Institution, error)
	GetInstitution(ctx context.Context, id int64) (*models.Institution, error)
	CreateInstitution(ctx context.Context, inst *models.Institution) (int64, error)
	UpdateInstitution(ctx context.Context, inst *models.Institution) error
	DeleteInstitution(ctx context.Context, id int64) error

	ListCurricula(ctx context.Context) ([]*models.Curriculum, error)
	GetCurriculum(ctx context.Context, id int64) (*models.Curriculum, error)
	CreateCurriculum(ctx context.Context, c *models.Curriculum) (int64, error)
	UpdateCurriculum(ctx context.Context, c *models.Curriculum) error
	DeleteCurriculum(ctx context.Context, id int64) error

	ListSourceCourses(ctx context.Context, institutionID int64) ([]*models.SourceCourse, error)
	GetSourceCourse(ctx context.Context, id int64) (*models.SourceCourse, error)
	CreateSourceCourse(ctx context.Context, c *models.SourceCourse) (int64, error)
	UpdateSourceCourse(ctx context.Context, c *models.SourceCourse) error
	DeleteSourceCourse(ctx context.Context, id int64) error

	// ListTargetCourses returns a curriculum's courses ordered by code.
	ListTargetCourses(ctx context.Context, curriculumID int64) ([]*models.TargetCourse, error)
	GetTargetCourse(ctx context.Context, id int64) (*models.TargetCourse, error)
	CreateTargetCourse(ctx context.Context, c *models.TargetCourse) (int64, error)
	UpdateTargetCourse(ctx context.Context, c *models.TargetCourse) error
	DeleteTargetCourse(ctx context.Context, id int64) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}

