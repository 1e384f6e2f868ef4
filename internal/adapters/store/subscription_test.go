package store_adapter

import (
	"errors"
	"testing"
	"time"

	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
)

type silentLogger struct{}

func (l *silentLogger) Info(msg string, fields port.Fields)             {}
func (l *silentLogger) Warn(msg string, fields port.Fields)             {}
func (l *silentLogger) Error(msg string, err error, fields port.Fields) {}
func (l *silentLogger) Debug(msg string, fields port.Fields)            {}
func (l *silentLogger) WithFields(fields port.Fields) port.LoggerPort   { return l }

func feedRec(city string) domain.ListingRecord {
	return domain.ListingRecord{
		ID:           uuid.New(),
		Title:        "Feed listing",
		Operation:    domain.OperationRent,
		PropertyType: "apartment",
		Price:        domain.Price{Amount: 500, Currency: "USD"},
		Location:     domain.Location{Country: "BY", City: city},
		Status:       domain.StatusAvailable,
		CreatedAt:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Owner:        uuid.New(),
	}
}

func citySpec(city string) domain.QuerySpec {
	return domain.BuildQuerySpec(domain.Filters{City: &city}, 20)
}

func drain(ch <-chan domain.ChangeEvent) []domain.ChangeEvent {
	var out []domain.ChangeEvent
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestDispatcherFiltersAddedBySpec(t *testing.T) {
	d := newChangeFeedDispatcher(&silentLogger{})
	minskSub := d.register(citySpec("Minsk"))
	brestSub := d.register(citySpec("Brest"))

	rec := feedRec("Minsk")
	d.Dispatch(domain.ChangeEvent{Action: domain.ActionAdded, ID: rec.ID, Value: &rec})

	assert.Equal(t, 1, len(drain(minskSub.Events())))
	assert.Equal(t, 0, len(drain(brestSub.Events())))
}

func TestDispatcherBroadcastsUpdatedAndRemoved(t *testing.T) {
	d := newChangeFeedDispatcher(&silentLogger{})
	minskSub := d.register(citySpec("Minsk"))
	brestSub := d.register(citySpec("Brest"))

	// updated мог вывести запись из-под фильтра, removed значения не несет:
	// оба идут всем подпискам без фильтрации.
	rec := feedRec("Minsk")
	d.Dispatch(domain.ChangeEvent{Action: domain.ActionUpdated, ID: rec.ID, Value: &rec})
	d.Dispatch(domain.ChangeEvent{Action: domain.ActionRemoved, ID: rec.ID})

	assert.Equal(t, 2, len(drain(minskSub.Events())))
	assert.Equal(t, 2, len(drain(brestSub.Events())))
}

func TestDispatcherDropsAddedWithoutValue(t *testing.T) {
	d := newChangeFeedDispatcher(&silentLogger{})
	sub := d.register(citySpec("Minsk"))

	d.Dispatch(domain.ChangeEvent{Action: domain.ActionAdded, ID: uuid.New()})

	assert.Equal(t, 0, len(drain(sub.Events())))
}

func TestSubscriptionCancel(t *testing.T) {
	d := newChangeFeedDispatcher(&silentLogger{})
	sub := d.register(citySpec("Minsk"))

	sub.Cancel()
	sub.Cancel()

	_, open := <-sub.Events()
	assert.Equal(t, false, open)
	// Штатная отмена - не ошибка.
	assert.Equal(t, nil, sub.Err())

	// Отписанная подписка событий больше не получает.
	rec := feedRec("Minsk")
	d.Dispatch(domain.ChangeEvent{Action: domain.ActionAdded, ID: rec.ID, Value: &rec})
}

func TestSubscriptionBufferOverflowClosesIt(t *testing.T) {
	d := newChangeFeedDispatcher(&silentLogger{})
	sub := d.register(citySpec("Minsk"))

	rec := feedRec("Minsk")
	for i := 0; i < subscriptionBufferSize+1; i++ {
		d.Dispatch(domain.ChangeEvent{Action: domain.ActionAdded, ID: rec.ID, Value: &rec})
	}

	events := drain(sub.Events())
	assert.Equal(t, subscriptionBufferSize, len(events))
	assert.Equal(t, domain.ErrSubscriptionClosed, sub.Err())
}

func TestDispatcherFailClosesAllSubscriptions(t *testing.T) {
	d := newChangeFeedDispatcher(&silentLogger{})
	first := d.register(citySpec("Minsk"))
	second := d.register(citySpec("Brest"))

	cause := errors.New("feed connection lost")
	d.Fail(cause)

	for _, sub := range []*feedSubscription{first, second} {
		_, open := <-sub.Events()
		assert.Equal(t, false, open)
		assert.Equal(t, cause, sub.Err())
	}
}
