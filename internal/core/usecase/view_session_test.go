package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog-view-service/internal/core/domain"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
)

// waitForLen дожидается, пока форвардер подписки доложит события в
// view-model. Доставка асинхронная, поэтому опрашиваем с таймаутом.
func waitForLen(t *testing.T, s *ViewSession, want int) []domain.ViewEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, _, _ := s.Snapshot()
		if len(entries) == want {
			return entries
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d entries, have %d", want, len(entries))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForDegraded(t *testing.T, s *ViewSession) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, _, degraded := s.Snapshot()
		if degraded {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for degraded view")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestViewSessionOpenLoadsInitialPage(t *testing.T) {
	a, b, c := testRec(1, 100), testRec(2, 200), testRec(3, 300)
	store := newFakeStore(a, b, c)
	sink := &fakeSink{}

	s := NewViewSession(store, sink, nil, domain.Filters{}, 2, &nopLogger{})
	err := s.Open(context.Background())
	assert.Equal(t, nil, err)
	defer s.Close()

	entries, exhausted, degraded := s.Snapshot()
	assert.Equal(t, 2, len(entries))
	assert.Equal(t, a.ID, entries[0].Record.ID)
	assert.Equal(t, b.ID, entries[1].Record.ID)
	assert.Equal(t, false, exhausted)
	assert.Equal(t, false, degraded)
}

func TestViewSessionLoadMore(t *testing.T) {
	a, b, c := testRec(1, 100), testRec(2, 200), testRec(3, 300)
	store := newFakeStore(a, b, c)

	s := NewViewSession(store, &fakeSink{}, nil, domain.Filters{}, 2, &nopLogger{})
	assert.Equal(t, nil, s.Open(context.Background()))
	defer s.Close()

	exhausted, err := s.LoadMore(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, true, exhausted)

	entries, _, _ := s.Snapshot()
	assert.Equal(t, 3, len(entries))
	assert.Equal(t, c.ID, entries[2].Record.ID)

	// Повторный load-more после исчерпания - немедленный no-op.
	exhausted, err = s.LoadMore(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, true, exhausted)
	entries, _, _ = s.Snapshot()
	assert.Equal(t, 3, len(entries))
}

func TestViewSessionAppliesLiveEvents(t *testing.T) {
	a := testRec(1, 100)
	store := newFakeStore(a)

	s := NewViewSession(store, &fakeSink{}, nil, domain.Filters{}, 5, &nopLogger{})
	assert.Equal(t, nil, s.Open(context.Background()))
	defer s.Close()

	fresh := testRec(0, 50)
	store.lastSub().emit(domain.ChangeEvent{ID: fresh.ID, Action: domain.ActionAdded, Value: &fresh})

	entries := waitForLen(t, s, 2)
	assert.Equal(t, fresh.ID, entries[0].Record.ID)

	store.lastSub().emit(domain.ChangeEvent{ID: a.ID, Action: domain.ActionRemoved})
	entries = waitForLen(t, s, 1)
	assert.Equal(t, fresh.ID, entries[0].Record.ID)
}

func TestViewSessionSetFiltersReopensSubscription(t *testing.T) {
	rent, sale := testRec(1, 100), testRec(2, 200)
	rent.Operation = domain.OperationRent
	store := newFakeStore(rent, sale)

	s := NewViewSession(store, &fakeSink{}, nil, domain.Filters{}, 5, &nopLogger{})
	assert.Equal(t, nil, s.Open(context.Background()))
	defer s.Close()

	oldSub := store.lastSub()

	// Событие успело встать в очередь старой подписки до смены фильтров.
	stale := testRec(0, 50)
	oldSub.emit(domain.ChangeEvent{ID: stale.ID, Action: domain.ActionAdded, Value: &stale})

	op := domain.OperationRent
	err := s.SetFilters(context.Background(), domain.Filters{Operation: &op})
	assert.Equal(t, nil, err)

	// Старая подписка отменена синхронно.
	assert.Equal(t, 1, oldSub.cancelCount())
	assert.NotEqual(t, oldSub, store.lastSub())

	// View содержит только результат нового запроса; опоздавшее событие
	// старого поколения не просочилось.
	time.Sleep(50 * time.Millisecond)
	entries, _, _ := s.Snapshot()
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, rent.ID, entries[0].Record.ID)
}

func TestViewSessionDegradesOnStreamFailure(t *testing.T) {
	store := newFakeStore(testRec(1, 100))
	sink := &fakeSink{}

	s := NewViewSession(store, sink, nil, domain.Filters{}, 5, &nopLogger{})
	assert.Equal(t, nil, s.Open(context.Background()))
	defer s.Close()

	store.lastSub().fail(errors.New("feed connection lost"))

	waitForDegraded(t, s)
	assert.Equal(t, 1, sink.degradedCount())
}

func TestViewSessionSetIdentityReannotates(t *testing.T) {
	owner := uuid.New()
	rec := testRec(1, 100)
	rec.Owner = owner
	store := newFakeStore(rec)

	s := NewViewSession(store, &fakeSink{}, nil, domain.Filters{}, 5, &nopLogger{})
	assert.Equal(t, nil, s.Open(context.Background()))
	defer s.Close()

	entries, _, _ := s.Snapshot()
	assert.Equal(t, domain.CapabilityNone, entries[0].Capability)

	s.SetIdentity(&owner)
	entries, _, _ = s.Snapshot()
	assert.Equal(t, domain.CapabilityWriteOwner, entries[0].Capability)
}

func TestViewSessionCloseIsIdempotent(t *testing.T) {
	store := newFakeStore(testRec(1, 100))

	s := NewViewSession(store, &fakeSink{}, nil, domain.Filters{}, 5, &nopLogger{})
	assert.Equal(t, nil, s.Open(context.Background()))

	sub := store.lastSub()
	s.Close()
	s.Close()
	assert.Equal(t, 1, sub.cancelCount())

	_, err := s.LoadMore(context.Background())
	assert.Equal(t, domain.ErrViewClosed, err)
	assert.Equal(t, domain.ErrViewClosed, s.SetFilters(context.Background(), domain.Filters{}))
}

func TestViewRegistryLifecycle(t *testing.T) {
	store := newFakeStore(testRec(1, 100))
	registry := NewViewRegistry(store, 10, &nopLogger{})

	s1, err := registry.Create(context.Background(), nil, domain.Filters{}, 0, &fakeSink{})
	assert.Equal(t, nil, err)
	s2, err := registry.Create(context.Background(), nil, domain.Filters{}, 0, &fakeSink{})
	assert.Equal(t, nil, err)

	// Независимые сессии не знают друг о друге.
	assert.NotEqual(t, s1.ID(), s2.ID())

	got, err := registry.Get(s1.ID())
	assert.Equal(t, nil, err)
	assert.Equal(t, s1, got)

	assert.Equal(t, nil, registry.Close(s1.ID()))
	_, err = registry.Get(s1.ID())
	assert.Equal(t, domain.ErrViewNotFound, err)
	assert.Equal(t, domain.ErrViewNotFound, registry.Close(s1.ID()))

	registry.CloseAll()
	_, err = s2.LoadMore(context.Background())
	assert.Equal(t, domain.ErrViewClosed, err)
}
