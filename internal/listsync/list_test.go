package listsync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestList() *List[int, testItem] {
	return NewList(func(i testItem) int { return i.ID })
}

func TestList_LoadPage(t *testing.T) {
	l := newTestList()

	assert.Equal(t, 2, l.LoadPage([]testItem{{ID: 1}, {ID: 2}}))
	assert.Equal(t, 0, l.LoadPage([]testItem{{ID: 1}, {ID: 2}}))
	assert.Equal(t, 1, l.LoadPage([]testItem{{ID: 2, V: 1}, {ID: 3}}))
	assert.Equal(t, []testItem{{ID: 1}, {ID: 2, V: 1}, {ID: 3}}, l.Items())
}

func TestList_UpsertChangeRemove(t *testing.T) {
	l := newTestList()

	assert.True(t, l.Upsert(testItem{ID: 1, Name: "x"}))
	assert.True(t, l.Upsert(testItem{ID: 2, Name: "y"}))
	assert.False(t, l.Upsert(testItem{ID: 1, Name: "x2"}))
	assert.Equal(t, []testItem{{ID: 2, Name: "y"}, {ID: 1, Name: "x2"}}, l.Items())

	assert.True(t, l.Change(testItem{ID: 2, Name: "y2"}))
	assert.False(t, l.Change(testItem{ID: 9}))
	assert.False(t, l.Contains(9))

	assert.False(t, l.Remove(3))
	assert.True(t, l.Remove(2))
	assert.Equal(t, 1, l.Len())

	item, ok := l.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "x2", item.Name)
	_, ok = l.Get(2)
	assert.False(t, ok)
}

func TestList_Reset(t *testing.T) {
	l := newTestList()
	l.LoadPage([]testItem{{ID: 1}, {ID: 2}})

	l.Reset()

	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Items())
}

func TestList_Move(t *testing.T) {
	l := newTestList()
	l.LoadPage([]testItem{{ID: 1}, {ID: 2}, {ID: 3}})

	renumber := func(items []testItem) []testItem {
		for i := range items {
			items[i].V = i + 1
		}
		return items
	}

	got := l.Move(2, 0, renumber)

	assert.Equal(t, []testItem{{ID: 3, V: 1}, {ID: 1, V: 2}, {ID: 2, V: 3}}, got)
	assert.Equal(t, got, l.Items())
}

func TestList_ItemsIsACopy(t *testing.T) {
	l := newTestList()
	l.LoadPage([]testItem{{ID: 1}})

	items := l.Items()
	items[0].V = 100

	item, _ := l.Get(1)
	assert.Equal(t, 0, item.V)
}

func TestList_ConcurrentAccess(t *testing.T) {
	l := newTestList()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				l.Upsert(testItem{ID: i % 10, V: w})
				_ = l.Items()
				if i%7 == 0 {
					l.Remove(i % 10)
				}
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, item := range l.Items() {
		assert.False(t, seen[item.ID], "duplicate id %d", item.ID)
		seen[item.ID] = true
	}
}
