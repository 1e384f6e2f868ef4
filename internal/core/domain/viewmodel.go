package domain

import "github.com/google/uuid"

// ViewModel - упорядоченный, дедуплицированный по ID список видимых записей
// одной view-сессии. Складывает входящие ChangeEvent строго по одному
// (сериализацию обеспечивает владелец - ViewSession) и терпим к дубликатам
// и к отсутствию порядка между разными ID: каждая операция идемпотентна.
//
// ViewModel ничего не знает о подписках и поколениях - это чистое состояние,
// что и делает его прямо тестируемым.
type ViewModel struct {
	spec    QuerySpec
	entries []ListingRecord
	index   map[uuid.UUID]int
	// loadedTail - ключ самой "старой" загруженной записи (граница окна
	// пагинации). Живые вставки старше границы подавляются, пока их не
	// дозагрузит явный advance.
	loadedTail *ListingRecord
	// exhausted - хранилище сообщило, что старее ничего нет. С этого
	// момента подавление теряет смысл: запись старше границы уже никогда
	// не придет страницей, вставляем в хвост.
	exhausted bool
}

func NewViewModel(spec QuerySpec) *ViewModel {
	return &ViewModel{
		spec:  spec,
		index: make(map[uuid.UUID]int),
	}
}

func (vm *ViewModel) Len() int {
	return len(vm.entries)
}

// AppendPage добавляет первоначальную или дозагруженную страницу в хвост
// видимого списка. Дубликаты по ID отбрасываются (страница могла пересечься
// с уже примененными живыми событиями). Возвращает число реально
// добавленных записей.
func (vm *ViewModel) AppendPage(page []ListingRecord, exhausted bool) int {
	added := 0
	for _, rec := range page {
		if _, ok := vm.index[rec.ID]; ok {
			continue
		}
		vm.entries = append(vm.entries, rec.Clone())
		vm.index[rec.ID] = len(vm.entries) - 1
		added++
	}
	if len(page) > 0 {
		tail := page[len(page)-1].Clone()
		vm.loadedTail = &tail
	}
	if exhausted {
		vm.exhausted = true
	}
	return added
}

// Apply складывает одно событие в view-model. Возвращает true, если видимое
// состояние изменилось (потребителю есть что перерисовывать).
func (vm *ViewModel) Apply(ev ChangeEvent) bool {
	switch ev.Action {
	case ActionInitial, ActionAdded:
		if ev.Value == nil {
			return false
		}
		return vm.insert(*ev.Value)
	case ActionUpdated:
		if ev.Value == nil {
			return false
		}
		if i, ok := vm.index[ev.ID]; ok {
			// Замена по месту: позиция в списке сохраняется, пересортировка
			// живых элементов визуально дергает список и для корректности
			// не нужна.
			vm.entries[i] = ev.Value.Clone()
			return true
		}
		// Записи нет (была отфильтрована или не дозагружена), но после
		// обновления она подходит под предикат - считаем added.
		if vm.spec.Matches(*ev.Value) {
			return vm.insert(*ev.Value)
		}
		return false
	case ActionRemoved:
		return vm.remove(ev.ID)
	}
	return false
}

// insert вставляет запись в позицию, продиктованную упорядочиванием.
// Повторная вставка того же ID - no-op (идемпотентность).
func (vm *ViewModel) insert(rec ListingRecord) bool {
	if _, ok := vm.index[rec.ID]; ok {
		return false
	}
	// Запись старше загруженной границы еще не "дозапрошена" пагинацией -
	// подавляем до явного advance, иначе она же придет второй раз страницей.
	if vm.loadedTail != nil && !vm.exhausted && vm.spec.Before(*vm.loadedTail, rec) {
		return false
	}

	pos := len(vm.entries)
	for i := range vm.entries {
		if vm.spec.Before(rec, vm.entries[i]) {
			pos = i
			break
		}
	}
	vm.entries = append(vm.entries, ListingRecord{})
	copy(vm.entries[pos+1:], vm.entries[pos:])
	vm.entries[pos] = rec.Clone()
	vm.reindexFrom(pos)
	return true
}

func (vm *ViewModel) remove(id uuid.UUID) bool {
	i, ok := vm.index[id]
	if !ok {
		return false
	}
	vm.entries = append(vm.entries[:i], vm.entries[i+1:]...)
	delete(vm.index, id)
	vm.reindexFrom(i)
	return true
}

func (vm *ViewModel) reindexFrom(pos int) {
	for i := pos; i < len(vm.entries); i++ {
		vm.index[vm.entries[i].ID] = i
	}
}

// Get возвращает копию записи по ID, если она видима.
func (vm *ViewModel) Get(id uuid.UUID) (ListingRecord, bool) {
	if i, ok := vm.index[id]; ok {
		return vm.entries[i].Clone(), true
	}
	return ListingRecord{}, false
}

// Snapshot возвращает аннотированную копию видимого списка для identity
// владельца сессии. Копия не делит память с внутренним состоянием.
func (vm *ViewModel) Snapshot(identity *uuid.UUID) []ViewEntry {
	out := make([]ViewEntry, len(vm.entries))
	for i, rec := range vm.entries {
		out[i] = ViewEntry{
			Record:     rec.Clone(),
			Capability: ResolveCapability(identity, rec),
		}
	}
	return out
}
