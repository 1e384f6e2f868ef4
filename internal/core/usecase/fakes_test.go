package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRec(age int, price float64) domain.ListingRecord {
	return domain.ListingRecord{
		ID:           uuid.New(),
		Title:        "Test listing",
		Operation:    domain.OperationSale,
		PropertyType: "apartment",
		Price:        domain.Price{Amount: price, Currency: "USD"},
		Location:     domain.Location{Country: "BY", City: "Minsk"},
		Status:       domain.StatusAvailable,
		CreatedAt:    testBase.Add(-time.Duration(age) * time.Hour),
		Owner:        uuid.New(),
	}
}

type nopLogger struct{}

func (n *nopLogger) Info(msg string, fields port.Fields)             {}
func (n *nopLogger) Warn(msg string, fields port.Fields)             {}
func (n *nopLogger) Error(msg string, err error, fields port.Fields) {}
func (n *nopLogger) Debug(msg string, fields port.Fields)            {}
func (n *nopLogger) WithFields(fields port.Fields) port.LoggerPort   { return n }

// fakeSubscription - управляемая из теста подписка.
type fakeSubscription struct {
	initial []domain.ListingRecord
	events  chan domain.ChangeEvent

	mu        sync.Mutex
	err       error
	closed    bool
	cancelled int
}

func newFakeSubscription(initial []domain.ListingRecord) *fakeSubscription {
	return &fakeSubscription{
		initial: initial,
		events:  make(chan domain.ChangeEvent, 16),
	}
}

func (s *fakeSubscription) Initial() []domain.ListingRecord   { return s.initial }
func (s *fakeSubscription) Events() <-chan domain.ChangeEvent { return s.events }

func (s *fakeSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

func (s *fakeSubscription) emit(ev domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- ev
	}
}

func (s *fakeSubscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.err = err
		s.closed = true
		close(s.events)
	}
}

func (s *fakeSubscription) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

type grantCall struct {
	listingID uuid.UUID
	grantee   uuid.UUID
	level     domain.PermissionLevel
}

// fakeStore - in-memory реализация RecordStorePort для тестов сессий и
// мутаций. Записи сортируются тем же Before, что и у настоящего хранилища.
type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.ListingRecord
	subs    []*fakeSubscription

	writes  []domain.ListingRecord
	grants  []grantCall
	revokes []grantCall
	deletes []uuid.UUID

	failWrite  error
	failGrant  error
	failRevoke error
	failFetch  error
}

func newFakeStore(records ...domain.ListingRecord) *fakeStore {
	s := &fakeStore{records: make(map[uuid.UUID]domain.ListingRecord)}
	for _, rec := range records {
		s.records[rec.ID] = rec
	}
	return s
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (*domain.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (s *fakeStore) page(spec domain.QuerySpec, cursor *domain.CursorPosition) []domain.ListingRecord {
	matched := make([]domain.ListingRecord, 0, len(s.records))
	for _, rec := range s.records {
		if spec.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return spec.Before(matched[i], matched[j])
	})

	if cursor != nil {
		boundary := domain.ListingRecord{
			ID:        cursor.ID,
			CreatedAt: cursor.CreatedAt,
			Price:     domain.Price{Amount: cursor.Price},
		}
		after := matched[:0]
		for _, rec := range matched {
			if spec.Before(boundary, rec) {
				after = append(after, rec)
			}
		}
		matched = after
	}

	if len(matched) > spec.PageSize {
		matched = matched[:spec.PageSize]
	}
	return matched
}

func (s *fakeStore) FetchPage(ctx context.Context, spec domain.QuerySpec, cursor *domain.CursorPosition) ([]domain.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFetch != nil {
		return nil, s.failFetch
	}
	return s.page(spec, cursor), nil
}

func (s *fakeStore) Subscribe(ctx context.Context, spec domain.QuerySpec, cursor *domain.CursorPosition) (port.SubscriptionPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFetch != nil {
		return nil, s.failFetch
	}
	sub := newFakeSubscription(s.page(spec, cursor))
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (s *fakeStore) Write(ctx context.Context, actor *uuid.UUID, rec domain.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	if _, ok := s.records[rec.ID]; !ok {
		return domain.ErrListingNotFound
	}
	s.records[rec.ID] = rec.Clone()
	s.writes = append(s.writes, rec.Clone())
	return nil
}

func (s *fakeStore) Create(ctx context.Context, actor *uuid.UUID, rec domain.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return domain.ErrListingNotFound
	}
	delete(s.records, id)
	s.deletes = append(s.deletes, id)
	return nil
}

func (s *fakeStore) Grant(ctx context.Context, actor *uuid.UUID, id uuid.UUID, grantee uuid.UUID, level domain.PermissionLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGrant != nil {
		return s.failGrant
	}
	s.grants = append(s.grants, grantCall{listingID: id, grantee: grantee, level: level})
	return nil
}

func (s *fakeStore) Revoke(ctx context.Context, actor *uuid.UUID, id uuid.UUID, grantee uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRevoke != nil {
		return s.failRevoke
	}
	s.revokes = append(s.revokes, grantCall{listingID: id, grantee: grantee})
	return nil
}

func (s *fakeStore) lastSub() *fakeSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[len(s.subs)-1]
}

func (s *fakeStore) lastWrite() domain.ListingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[len(s.writes)-1]
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

// fakeSink запоминает все снимки и деградации.
type fakeSink struct {
	mu        sync.Mutex
	snapshots [][]domain.ViewEntry
	degraded  []error
}

func (s *fakeSink) OnViewChange(entries []domain.ViewEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, entries)
}

func (s *fakeSink) OnDegraded(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = append(s.degraded, err)
}

func (s *fakeSink) degradedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.degraded)
}

// fakeValidator пропускает все; ошибка подставляется тестом.
type fakeValidator struct {
	err         error
	lastPartial bool
	calls       int
}

func (v *fakeValidator) ValidateForm(form domain.ListingForm, partial bool) error {
	v.lastPartial = partial
	v.calls++
	return v.err
}
