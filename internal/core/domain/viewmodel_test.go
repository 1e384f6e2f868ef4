package domain

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testRec создает запись с заданным возрастом: age=0 - самая свежая.
func testRec(age int, price float64) ListingRecord {
	return ListingRecord{
		ID:           uuid.New(),
		Title:        "Test listing",
		Operation:    OperationSale,
		PropertyType: "apartment",
		Price:        Price{Amount: price, Currency: "USD"},
		Location:     Location{Country: "BY", City: "Minsk"},
		Status:       StatusAvailable,
		CreatedAt:    testBase.Add(-time.Duration(age) * time.Hour),
		Owner:        uuid.New(),
	}
}

func ids(entries []ViewEntry) []uuid.UUID {
	out := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		out[i] = e.Record.ID
	}
	return out
}

func TestViewModelAppendPageAndOrdering(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 3)
	vm := NewViewModel(spec)

	a, b, c := testRec(1, 100), testRec(2, 200), testRec(3, 300)
	added := vm.AppendPage([]ListingRecord{a, b, c}, false)
	assert.Equal(t, 3, added)
	assert.Equal(t, 3, vm.Len())

	// Новая запись свежее всех - встает в голову списка.
	fresh := testRec(0, 50)
	changed := vm.Apply(ChangeEvent{ID: fresh.ID, Action: ActionAdded, Value: &fresh})
	assert.Equal(t, true, changed)
	assert.Equal(t, []uuid.UUID{fresh.ID, a.ID, b.ID, c.ID}, ids(vm.Snapshot(nil)))
}

func TestViewModelInsertIdempotent(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 10)
	vm := NewViewModel(spec)

	rec := testRec(0, 100)
	ev := ChangeEvent{ID: rec.ID, Action: ActionAdded, Value: &rec}
	assert.Equal(t, true, vm.Apply(ev))
	// Дубликат того же события - no-op.
	assert.Equal(t, false, vm.Apply(ev))
	assert.Equal(t, 1, vm.Len())
}

func TestViewModelAppendPageSkipsDuplicates(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 10)
	vm := NewViewModel(spec)

	rec := testRec(1, 100)
	vm.Apply(ChangeEvent{ID: rec.ID, Action: ActionAdded, Value: &rec})

	// Та же запись пришла страницей: событие опередило пагинацию.
	added := vm.AppendPage([]ListingRecord{rec, testRec(2, 200)}, false)
	assert.Equal(t, 1, added)
	assert.Equal(t, 2, vm.Len())
}

func TestViewModelBoundarySuppression(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 2)
	vm := NewViewModel(spec)

	a, b := testRec(1, 100), testRec(2, 200)
	vm.AppendPage([]ListingRecord{a, b}, false)

	// Запись старше загруженной границы: пагинация ее еще не дозапросила,
	// живая вставка подавляется.
	old := testRec(5, 300)
	changed := vm.Apply(ChangeEvent{ID: old.ID, Action: ActionAdded, Value: &old})
	assert.Equal(t, false, changed)
	assert.Equal(t, 2, vm.Len())

	// Граница сдвинулась load-more'ом за запись - теперь она видима.
	c := testRec(6, 400)
	vm.AppendPage([]ListingRecord{c}, false)
	changed = vm.Apply(ChangeEvent{ID: old.ID, Action: ActionAdded, Value: &old})
	assert.Equal(t, true, changed)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, old.ID, c.ID}, ids(vm.Snapshot(nil)))
}

func TestViewModelInsertAfterExhaustion(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 2)
	vm := NewViewModel(spec)

	a, b := testRec(1, 100), testRec(2, 200)
	vm.AppendPage([]ListingRecord{a, b}, true)

	// Набор исчерпан: страницей эта запись уже никогда не придет,
	// подавление сняло бы ее с экрана навсегда. Вставляем в хвост.
	old := testRec(5, 300)
	changed := vm.Apply(ChangeEvent{ID: old.ID, Action: ActionAdded, Value: &old})
	assert.Equal(t, true, changed)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, old.ID}, ids(vm.Snapshot(nil)))
}

func TestViewModelUpdateInPlace(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 10)
	vm := NewViewModel(spec)

	a, b, c := testRec(1, 100), testRec(2, 200), testRec(3, 300)
	vm.AppendPage([]ListingRecord{a, b, c}, true)

	// Обновление меняет данные, но не позицию: перестановка живых
	// элементов не нужна для корректности.
	updated := b
	updated.Title = "Updated title"
	updated.Status = StatusReserved
	changed := vm.Apply(ChangeEvent{ID: b.ID, Action: ActionUpdated, Value: &updated})
	assert.Equal(t, true, changed)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, ids(vm.Snapshot(nil)))

	got, ok := vm.Get(b.ID)
	assert.Equal(t, true, ok)
	assert.Equal(t, "Updated title", got.Title)
	assert.Equal(t, StatusReserved, got.Status)
}

func TestViewModelLastUpdateWins(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 10)
	vm := NewViewModel(spec)

	a := testRec(1, 100)
	vm.AppendPage([]ListingRecord{a}, true)

	first := a
	first.Title = "First"
	second := a
	second.Title = "Second"
	vm.Apply(ChangeEvent{ID: a.ID, Action: ActionUpdated, Value: &first})
	vm.Apply(ChangeEvent{ID: a.ID, Action: ActionUpdated, Value: &second})

	got, _ := vm.Get(a.ID)
	assert.Equal(t, "Second", got.Title)
}

func TestViewModelUpdatedAbsentRecord(t *testing.T) {
	city := "Minsk"
	spec := BuildQuerySpec(Filters{City: &city}, 10)
	vm := NewViewModel(spec)

	a := testRec(1, 100)
	vm.AppendPage([]ListingRecord{a}, true)

	// Записи нет в view, после обновления она подходит под фильтр -
	// трактуется как added.
	outside := testRec(0, 100)
	outside.Location.City = "Minsk"
	changed := vm.Apply(ChangeEvent{ID: outside.ID, Action: ActionUpdated, Value: &outside})
	assert.Equal(t, true, changed)
	assert.Equal(t, 2, vm.Len())

	// Не подходит под фильтр - игнорируется.
	foreign := testRec(0, 100)
	foreign.Location.City = "Grodno"
	changed = vm.Apply(ChangeEvent{ID: foreign.ID, Action: ActionUpdated, Value: &foreign})
	assert.Equal(t, false, changed)
	assert.Equal(t, 2, vm.Len())
}

func TestViewModelRemove(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 10)
	vm := NewViewModel(spec)

	a, b := testRec(1, 100), testRec(2, 200)
	vm.AppendPage([]ListingRecord{a, b}, true)

	changed := vm.Apply(ChangeEvent{ID: a.ID, Action: ActionRemoved})
	assert.Equal(t, true, changed)
	assert.Equal(t, []uuid.UUID{b.ID}, ids(vm.Snapshot(nil)))

	// Повторное удаление и удаление неизвестного ID - no-op.
	assert.Equal(t, false, vm.Apply(ChangeEvent{ID: a.ID, Action: ActionRemoved}))
	assert.Equal(t, false, vm.Apply(ChangeEvent{ID: uuid.New(), Action: ActionRemoved}))
	assert.Equal(t, 1, vm.Len())
}

func TestViewModelSnapshotAnnotation(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 10)
	vm := NewViewModel(spec)

	owner := uuid.New()
	collaborator := uuid.New()

	rec := testRec(1, 100)
	rec.Owner = owner
	rec.Collaborators = map[uuid.UUID]PermissionLevel{collaborator: PermissionWrite}
	vm.AppendPage([]ListingRecord{rec}, true)

	assert.Equal(t, CapabilityNone, vm.Snapshot(nil)[0].Capability)
	assert.Equal(t, CapabilityWriteOwner, vm.Snapshot(&owner)[0].Capability)
	assert.Equal(t, CapabilityWriteCollaborator, vm.Snapshot(&collaborator)[0].Capability)

	stranger := uuid.New()
	assert.Equal(t, CapabilityRead, vm.Snapshot(&stranger)[0].Capability)
}
