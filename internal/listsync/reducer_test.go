package listsync

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Name string
	ID   int
	V    int
}

func newTestReducer() Reducer[int, testItem] {
	return NewReducer(func(i testItem) int { return i.ID })
}

func TestReducer_Upsert(t *testing.T) {
	r := newTestReducer()

	tests := []struct {
		name     string
		state    []testItem
		item     testItem
		expected []testItem
	}{
		{
			name:     "new item is prepended",
			state:    []testItem{{ID: 1, Name: "x"}},
			item:     testItem{ID: 2, Name: "y"},
			expected: []testItem{{ID: 2, Name: "y"}, {ID: 1, Name: "x"}},
		},
		{
			name:     "known item keeps its position",
			state:    []testItem{{ID: 1, V: 1}, {ID: 2, V: 1}},
			item:     testItem{ID: 1, V: 2},
			expected: []testItem{{ID: 1, V: 2}, {ID: 2, V: 1}},
		},
		{
			name:     "known item in the middle",
			state:    []testItem{{ID: 1}, {ID: 2}, {ID: 3}},
			item:     testItem{ID: 2, V: 9},
			expected: []testItem{{ID: 1}, {ID: 2, V: 9}, {ID: 3}},
		},
		{
			name:     "empty state",
			state:    nil,
			item:     testItem{ID: 1},
			expected: []testItem{{ID: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Upsert(tt.state, tt.item)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Upsert() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReducer_Upsert_DoesNotMutateInput(t *testing.T) {
	r := newTestReducer()
	state := []testItem{{ID: 1, V: 1}, {ID: 2, V: 1}}

	_ = r.Upsert(state, testItem{ID: 1, V: 2})
	_ = r.Upsert(state, testItem{ID: 3})

	assert.Equal(t, []testItem{{ID: 1, V: 1}, {ID: 2, V: 1}}, state)
}

func TestReducer_Remove(t *testing.T) {
	r := newTestReducer()

	tests := []struct {
		name     string
		state    []testItem
		id       int
		expected []testItem
	}{
		{
			name:     "unknown id is a no-op",
			state:    []testItem{{ID: 1}, {ID: 2}},
			id:       3,
			expected: []testItem{{ID: 1}, {ID: 2}},
		},
		{
			name:     "known id is removed",
			state:    []testItem{{ID: 1}, {ID: 2}, {ID: 3}},
			id:       2,
			expected: []testItem{{ID: 1}, {ID: 3}},
		},
		{
			name:     "last item",
			state:    []testItem{{ID: 1}},
			id:       1,
			expected: []testItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Remove(tt.state, tt.id)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Remove() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReducer_LoadPage(t *testing.T) {
	r := newTestReducer()

	tests := []struct {
		name     string
		state    []testItem
		page     []testItem
		expected []testItem
	}{
		{
			name:     "replace in place, nothing new",
			state:    []testItem{{ID: 1, V: 0}, {ID: 5, V: 0}},
			page:     []testItem{{ID: 1, V: 1}},
			expected: []testItem{{ID: 1, V: 1}, {ID: 5, V: 0}},
		},
		{
			name:     "new items appended in received order",
			state:    []testItem{{ID: 1}},
			page:     []testItem{{ID: 3}, {ID: 2}},
			expected: []testItem{{ID: 1}, {ID: 3}, {ID: 2}},
		},
		{
			name:     "mixed replace and append",
			state:    []testItem{{ID: 1}, {ID: 2}},
			page:     []testItem{{ID: 4}, {ID: 2, V: 7}, {ID: 3}},
			expected: []testItem{{ID: 1}, {ID: 2, V: 7}, {ID: 4}, {ID: 3}},
		},
		{
			name:     "duplicate ids inside one page collapse",
			state:    nil,
			page:     []testItem{{ID: 1, V: 1}, {ID: 2}, {ID: 1, V: 2}},
			expected: []testItem{{ID: 1, V: 2}, {ID: 2}},
		},
		{
			name:     "empty page",
			state:    []testItem{{ID: 1}},
			page:     nil,
			expected: []testItem{{ID: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.LoadPage(tt.state, tt.page)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("LoadPage() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReducer_LoadPage_Idempotent(t *testing.T) {
	r := newTestReducer()
	state := []testItem{{ID: 9, V: 1}, {ID: 1, V: 0}}
	page := []testItem{{ID: 1, V: 1}, {ID: 2, V: 1}, {ID: 3, V: 1}}

	once := r.LoadPage(state, page)
	twice := r.LoadPage(once, page)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second LoadPage changed state (-once +twice):\n%s", diff)
	}
}

func TestReducer_Change(t *testing.T) {
	r := newTestReducer()
	state := []testItem{{ID: 1}, {ID: 2}}

	assert.Equal(t, []testItem{{ID: 1}, {ID: 2, V: 3}}, r.Change(state, testItem{ID: 2, V: 3}))
	assert.Equal(t, []testItem{{ID: 1}, {ID: 2}}, r.Change(state, testItem{ID: 3}))
}

func TestReducer_Reset(t *testing.T) {
	r := newTestReducer()

	for _, state := range [][]testItem{nil, {}, {{ID: 1}, {ID: 2}}} {
		got := r.Reset(state)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestReducer_Move(t *testing.T) {
	r := newTestReducer()
	state := []testItem{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}

	tests := []struct {
		name     string
		from, to int
		expected []int
	}{
		{name: "down", from: 0, to: 2, expected: []int{2, 3, 1, 4}},
		{name: "up", from: 3, to: 0, expected: []int{4, 1, 2, 3}},
		{name: "same position", from: 1, to: 1, expected: []int{1, 2, 3, 4}},
		{name: "from out of range", from: 7, to: 0, expected: []int{1, 2, 3, 4}},
		{name: "negative target", from: 0, to: -1, expected: []int{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(r.Move(state, tt.from, tt.to)))
		})
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ids(state))
}

func TestReducer_Apply(t *testing.T) {
	r := newTestReducer()

	state := r.Apply(nil, Action[int, testItem]{Kind: KindLoadPage, Items: []testItem{{ID: 1}, {ID: 2}}})
	state = r.Apply(state, Action[int, testItem]{Kind: KindUpsert, Item: testItem{ID: 3}})
	state = r.Apply(state, Action[int, testItem]{Kind: KindChange, Item: testItem{ID: 1, V: 5}})
	state = r.Apply(state, Action[int, testItem]{Kind: KindRemove, ID: 2})
	assert.Equal(t, []testItem{{ID: 3}, {ID: 1, V: 5}}, state)

	state = r.Apply(state, Action[int, testItem]{Kind: Kind(42)})
	assert.Equal(t, []testItem{{ID: 3}, {ID: 1, V: 5}}, state)

	state = r.Apply(state, Action[int, testItem]{Kind: KindReset})
	assert.Empty(t, state)
}

func TestReducer_StringKeys(t *testing.T) {
	type contact struct{ UUID, Name string }
	r := NewReducer(func(c contact) string { return c.UUID })

	state := r.Upsert(nil, contact{UUID: "a", Name: "Ann"})
	state = r.Upsert(state, contact{UUID: "b", Name: "Bob"})
	state = r.Upsert(state, contact{UUID: "a", Name: "Anna"})
	state = r.Remove(state, "zzz")

	assert.Equal(t, []contact{{UUID: "b", Name: "Bob"}, {UUID: "a", Name: "Anna"}}, state)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "load_page", KindLoadPage.String())
	assert.Equal(t, "upsert", KindUpsert.String())
	assert.Equal(t, "change", KindChange.String())
	assert.Equal(t, "remove", KindRemove.String())
	assert.Equal(t, "reset", KindReset.String())
	assert.Equal(t, "unknown", Kind(-1).String())
}

// Любое перемешивание событий, сохраняющее порядок событий каждого id,
// дает один и тот же набор записей с последними примененными данными.
func TestReducer_Convergence(t *testing.T) {
	r := newTestReducer()
	rng := rand.New(rand.NewSource(42))

	type event struct {
		item   testItem
		remove bool
	}

	for round := 0; round < 200; round++ {
		perID := make(map[int][]event)
		expected := make(map[int]testItem)
		for id := 1; id <= 6; id++ {
			n := 1 + rng.Intn(5)
			for v := 1; v <= n; v++ {
				ev := event{item: testItem{ID: id, V: v}, remove: rng.Intn(3) == 0}
				perID[id] = append(perID[id], ev)
			}
			last := perID[id][n-1]
			if !last.remove {
				expected[id] = last.item
			}
		}

		// случайное слияние очередей с сохранением порядка внутри id
		var state []testItem
		cursor := make(map[int]int)
		for {
			var pending []int
			for id, evs := range perID {
				if cursor[id] < len(evs) {
					pending = append(pending, id)
				}
			}
			if len(pending) == 0 {
				break
			}
			sort.Ints(pending)
			id := pending[rng.Intn(len(pending))]
			ev := perID[id][cursor[id]]
			cursor[id]++
			if ev.remove {
				state = r.Remove(state, id)
			} else {
				state = r.Upsert(state, ev.item)
			}
		}

		got := make(map[int]testItem, len(state))
		for _, item := range state {
			_, dup := got[item.ID]
			require.False(t, dup, "duplicate id %d in state", item.ID)
			got[item.ID] = item
		}
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Fatalf("round %d: state diverged (-want +got):\n%s", round, diff)
		}
	}
}

func ids(items []testItem) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
