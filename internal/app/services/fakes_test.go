package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
)

// memCatalog is an in-memory CatalogStore.
type memCatalog struct {
	mu           sync.Mutex
	nextID       int64
	institutions map[int64]*models.Institution
	curricula    map[int64]*models.Curriculum
	sources      map[int64]*models.SourceCourse
	targets      map[int64]*models.TargetCourse
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		institutions: map[int64]*models.Institution{},
		curricula:    map[int64]*models.Curriculum{},
		sources:      map[int64]*models.SourceCourse{},
		targets:      map[int64]*models.TargetCourse{},
	}
}

func (m *memCatalog) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memCatalog) ListInstitutions(ctx context.Context) ([]*models.Institution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Institution{}
	for _, v := range m.institutions {
		c := *v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCatalog) GetInstitution(ctx context.Context, id int64) (*models.Institution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.institutions[id]
	if !ok {
		return nil, apperrors.ErrInstitutionNotFound
	}
	c := *v
	return &c, nil
}

func (m *memCatalog) CreateInstitution(ctx context.Context, inst *models.Institution) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *inst
	c.ID = m.id()
	m.institutions[c.ID] = &c
	return c.ID, nil
}

func (m *memCatalog) UpdateInstitution(ctx context.Context, inst *models.Institution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.institutions[inst.ID]; !ok {
		return apperrors.ErrInstitutionNotFound
	}
	c := *inst
	m.institutions[inst.ID] = &c
	return nil
}

func (m *memCatalog) DeleteInstitution(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.institutions[id]; !ok {
		return apperrors.ErrInstitutionNotFound
	}
	for _, s := range m.sources {
		if s.InstitutionID == id {
			return apperrors.ErrCatalogHasRelations
		}
	}
	delete(m.institutions, id)
	return nil
}

func (m *memCatalog) ListCurricula(ctx context.Context) ([]*models.Curriculum, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Curriculum{}
	for _, v := range m.curricula {
		c := *v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCatalog) GetCurriculum(ctx context.Context, id int64) (*models.Curriculum, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.curricula[id]
	if !ok {
		return nil, apperrors.ErrCurriculumNotFound
	}
	c := *v
	return &c, nil
}

func (m *memCatalog) CreateCurriculum(ctx context.Context, cur *models.Curriculum) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cur
	c.ID = m.id()
	m.curricula[c.ID] = &c
	return c.ID, nil
}

func (m *memCatalog) UpdateCurriculum(ctx context.Context, cur *models.Curriculum) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.curricula[cur.ID]; !ok {
		return apperrors.ErrCurriculumNotFound
	}
	c := *cur
	m.curricula[cur.ID] = &c
	return nil
}

func (m *memCatalog) DeleteCurriculum(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.curricula[id]; !ok {
		return apperrors.ErrCurriculumNotFound
	}
	for _, t := range m.targets {
		if t.CurriculumID == id {
			return apperrors.ErrCatalogHasRelations
		}
	}
	delete(m.curricula, id)
	return nil
}

func (m *memCatalog) ListSourceCourses(ctx context.Context, institutionID int64) ([]*models.SourceCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.SourceCourse{}
	for _, v := range m.sources {
		if v.InstitutionID == institutionID {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memCatalog) GetSourceCourse(ctx context.Context, id int64) (*models.SourceCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.sources[id]
	if !ok {
		return nil, apperrors.ErrSourceCourseNotFound
	}
	c := *v
	return &c, nil
}

func (m *memCatalog) CreateSourceCourse(ctx context.Context, course *models.SourceCourse) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.InstitutionID == course.InstitutionID && s.Code == course.Code {
			return 0, apperrors.ErrCourseCodeExists
		}
	}
	c := *course
	c.ID = m.id()
	m.sources[c.ID] = &c
	return c.ID, nil
}

func (m *memCatalog) UpdateSourceCourse(ctx context.Context, course *models.SourceCourse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[course.ID]; !ok {
		return apperrors.ErrSourceCourseNotFound
	}
	c := *course
	m.sources[course.ID] = &c
	return nil
}

func (m *memCatalog) DeleteSourceCourse(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return apperrors.ErrSourceCourseNotFound
	}
	delete(m.sources, id)
	return nil
}

func (m *memCatalog) ListTargetCourses(ctx context.Context, curriculumID int64) ([]*models.TargetCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.TargetCourse{}
	for _, v := range m.targets {
		if v.CurriculumID == curriculumID {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memCatalog) GetTargetCourse(ctx context.Context, id int64) (*models.TargetCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.targets[id]
	if !ok {
		return nil, apperrors.ErrTargetCourseNotFound
	}
	c := *v
	return &c, nil
}

func (m *memCatalog) CreateTargetCourse(ctx context.Context, course *models.TargetCourse) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.targets {
		if t.CurriculumID == course.CurriculumID && t.Code == course.Code {
			return 0, apperrors.ErrCourseCodeExists
		}
	}
	c := *course
	c.ID = m.id()
	m.targets[c.ID] = &c
	return c.ID, nil
}

func (m *memCatalog) UpdateTargetCourse(ctx context.Context, course *models.TargetCourse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[course.ID]; !ok {
		return apperrors.ErrTargetCourseNotFound
	}
	c := *course
	m.targets[course.ID] = &c
	return nil
}

func (m *memCatalog) DeleteTargetCourse(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[id]; !ok {
		return apperrors.ErrTargetCourseNotFound
	}
	delete(m.targets, id)
	return nil
}

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[int64]*models.User{}}
}

func (m *memUsers) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return 0, apperrors.ErrEmailAlreadyExists
		}
	}
	m.nextID++
	c := *user
	c.ID = m.nextID
	m.users[c.ID] = &c
	return c.ID, nil
}

func (m *memUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NewCustomError(apperrors.ErrResourceNotFound, "user not found")
	}
	c := *u
	return &c, nil
}

func (m *memUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.NewCustomError(apperrors.ErrResourceNotFound, "user not found")
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, id int64) error {
	return nil
}

// memTransfers is an in-memory TransferStore. RunInTx serializes
// transactions and restores the previous state when fn fails.
type memTransfers struct {
	txMu sync.Mutex
	mu   sync.Mutex

	catalog     *memCatalog
	nextID      int64
	requests    map[int64]models.TransferRequest
	items       map[int64]models.RequestItem
	comparisons map[int64]models.ComparisonResult // By item ID

	statusWrites   int
	failCreateItem int // Fail the n-th CreateItem call when > 0
	createItemCall int
}

func newMemTransfers(catalog *memCatalog) *memTransfers {
	return &memTransfers{
		catalog:     catalog,
		requests:    map[int64]models.TransferRequest{},
		items:       map[int64]models.RequestItem{},
		comparisons: map[int64]models.ComparisonResult{},
	}
}

func (m *memTransfers) RunInTx(ctx context.Context, fn func(ctx context.Context, tx TransferStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	requests := make(map[int64]models.TransferRequest, len(m.requests))
	for k, v := range m.requests {
		requests[k] = v
	}
	items := make(map[int64]models.RequestItem, len(m.items))
	for k, v := range m.items {
		items[k] = v
	}
	comparisons := make(map[int64]models.ComparisonResult, len(m.comparisons))
	for k, v := range m.comparisons {
		comparisons[k] = v
	}
	m.mu.Unlock()

	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.requests, m.items, m.comparisons = requests, items, comparisons
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memTransfers) CreateRequest(ctx context.Context, req *models.TransferRequest) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r := *req
	r.ID = m.nextID
	r.Items, r.Student, r.Curriculum = nil, nil, nil
	m.requests[r.ID] = r
	return r.ID, nil
}

func (m *memTransfers) CreateItem(ctx context.Context, item *models.RequestItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createItemCall++
	if m.failCreateItem > 0 && m.createItemCall == m.failCreateItem {
		return 0, errors.New("insert failed")
	}
	m.nextID++
	i := *item
	i.ID = m.nextID
	i.SourceCourse, i.Comparison = nil, nil
	m.items[i.ID] = i
	return i.ID, nil
}

func (m *memTransfers) CreateComparison(ctx context.Context, result *models.ComparisonResult) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := *result
	c.ID = m.nextID
	c.SuggestedCourse = nil
	m.comparisons[c.RequestItemID] = c
	return c.ID, nil
}

func (m *memTransfers) GetRequest(ctx context.Context, id int64) (*models.TransferRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	return &r, nil
}

func (m *memTransfers) LockRequest(ctx context.Context, id int64) (*models.TransferRequest, error) {
	return m.GetRequest(ctx, id)
}

func (m *memTransfers) ListRequests(ctx context.Context, filter RequestFilter) ([]*models.TransferRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*models.TransferRequest
	for _, r := range m.requests {
		if filter.StudentID != 0 && r.StudentID != filter.StudentID {
			continue
		}
		if filter.Unviewed && r.ViewedByStudent {
			continue
		}
		if len(filter.Statuses) > 0 {
			found := false
			for _, s := range filter.Statuses {
				if r.Status == s {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		c := r
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	start := int(filter.Offset)
	if start > len(matched) {
		start = len(matched)
	}
	matched = matched[start:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *memTransfers) GetItem(ctx context.Context, id int64) (*models.RequestItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrRequestItemNotFound
	}
	return &i, nil
}

func (m *memTransfers) ListItems(ctx context.Context, requestID int64) ([]*models.RequestItem, error) {
	m.mu.Lock()
	var list []*models.RequestItem
	for _, i := range m.items {
		if i.RequestID != requestID {
			continue
		}
		c := i
		if cmp, ok := m.comparisons[i.ID]; ok {
			cc := cmp
			c.Comparison = &cc
		}
		list = append(list, &c)
	}
	m.mu.Unlock()

	sort.Slice(list, func(a, b int) bool { return list[a].Position < list[b].Position })
	for _, i := range list {
		if src, err := m.catalog.GetSourceCourse(ctx, i.SourceCourseID); err == nil {
			i.SourceCourse = src
		}
		if i.Comparison != nil {
			if tgt, err := m.catalog.GetTargetCourse(ctx, i.Comparison.SuggestedCourseID); err == nil {
				i.Comparison.SuggestedCourse = tgt
			}
		}
	}
	return list, nil
}

func (m *memTransfers) ItemStatuses(ctx context.Context, requestID int64) ([]models.ItemStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ItemStatus
	for _, i := range m.items {
		if i.RequestID == requestID {
			out = append(out, i.Status)
		}
	}
	return out, nil
}

func (m *memTransfers) UpdateItemStatus(ctx context.Context, itemID int64, status models.ItemStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.items[itemID]
	if !ok {
		return apperrors.ErrRequestItemNotFound
	}
	i.Status = status
	m.items[itemID] = i
	return nil
}

func (m *memTransfers) UpdateRequestStatus(ctx context.Context, requestID int64, status models.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return apperrors.ErrRequestNotFound
	}
	m.statusWrites++
	r.Status = status
	r.ViewedByStudent = false
	m.requests[requestID] = r
	return nil
}

func (m *memTransfers) MarkViewed(ctx context.Context, requestID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return apperrors.ErrRequestNotFound
	}
	r.ViewedByStudent = true
	m.requests[requestID] = r
	return nil
}

func (m *memTransfers) SetEvidence(ctx context.Context, requestID int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return apperrors.ErrRequestNotFound
	}
	r.EvidencePath = &path
	m.requests[requestID] = r
	return nil
}

func (m *memTransfers) DeleteRequest(ctx context.Context, requestID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[requestID]; !ok {
		return apperrors.ErrRequestNotFound
	}
	for id, i := range m.items {
		if i.RequestID == requestID {
			delete(m.comparisons, id)
			delete(m.items, id)
		}
	}
	delete(m.requests, requestID)
	return nil
}

func (m *memTransfers) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusWrites
}
