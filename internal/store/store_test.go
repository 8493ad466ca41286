package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testEntry struct {
	ID     ID
	Name   string
	Status int
}

func (e *testEntry) GetID() ID   { return e.ID }
func (e *testEntry) SetID(id ID) { e.ID = id }

func TestMemoryTablePutAssignsID(t *testing.T) {
	tbl := NewMemoryTable[*testEntry]()
	id := tbl.Put(&testEntry{Name: "a"})
	require.Equal(t, ID(1001), id)

	id2 := tbl.Put(&testEntry{Name: "b"})
	require.Equal(t, ID(1002), id2)
}

func TestMemoryTablePutOverwrites(t *testing.T) {
	tbl := NewMemoryTable[*testEntry]()
	id := tbl.Put(&testEntry{Name: "a"})
	tbl.Put(&testEntry{ID: id, Name: "updated"})

	got := tbl.Get(F("ID", id))
	require.Len(t, got, 1)
	require.Equal(t, "updated", got[0].Name)
}

func TestMemoryTableGetFilters(t *testing.T) {
	tbl := NewMemoryTable[*testEntry]()
	tbl.Put(&testEntry{Name: "a", Status: 1})
	tbl.Put(&testEntry{Name: "b", Status: 2})

	got := tbl.Get(F("Status", 1))
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].Name)
}

func TestMemoryTableRemoveAndClear(t *testing.T) {
	tbl := NewMemoryTable[*testEntry]()
	id := tbl.Put(&testEntry{Name: "a"})
	tbl.Remove(id)
	require.Empty(t, tbl.Get())

	tbl.Put(&testEntry{Name: "b"})
	tbl.Clear()
	require.Empty(t, tbl.Get())
}

func TestDocTableMatchesMemorySemantics(t *testing.T) {
	tbl := NewDocTable[*testEntry](func() *testEntry { return &testEntry{} })
	id := tbl.Put(&testEntry{Name: "a", Status: 1})
	require.Equal(t, ID(1001), id)

	got := tbl.Get(F("Name", "a"))
	require.Len(t, got, 1)
	require.Equal(t, 1, got[0].Status)
}
