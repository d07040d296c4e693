package toc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaikh58/arc/blocks"
)

func TestInsertLookupErase(t *testing.T) {
	requireT := require.New(t)

	tbl := New()
	requireT.Zero(tbl.Len())

	requireT.True(tbl.Insert("t/a.txt", 0))
	requireT.True(tbl.Insert("t/b.txt", 3))
	requireT.False(tbl.Insert("t/a.txt", 9))
	requireT.Equal(2, tbl.Len())

	address, exists := tbl.Lookup("t/a.txt")
	requireT.True(exists)
	requireT.EqualValues(0, address)

	_, exists = tbl.Lookup("t/missing.txt")
	requireT.False(exists)

	tbl.Erase("t/a.txt")
	_, exists = tbl.Lookup("t/a.txt")
	requireT.False(exists)
	requireT.Equal(1, tbl.Len())
}

func TestIterateOrder(t *testing.T) {
	requireT := require.New(t)

	tbl := New()
	requireT.True(tbl.Insert("t/c.txt", 2))
	requireT.True(tbl.Insert("t/a.txt", 0))
	requireT.True(tbl.Insert("t/b.txt", 1))

	var names []string
	var addresses []blocks.BlockAddress
	tbl.Iterate(func(name string, address blocks.BlockAddress) bool {
		names = append(names, name)
		addresses = append(addresses, address)
		return true
	})

	requireT.Equal([]string{"t/a.txt", "t/b.txt", "t/c.txt"}, names)
	requireT.Equal([]blocks.BlockAddress{0, 1, 2}, addresses)
}

func TestIterateStops(t *testing.T) {
	requireT := require.New(t)

	tbl := New()
	requireT.True(tbl.Insert("t/a.txt", 0))
	requireT.True(tbl.Insert("t/b.txt", 1))

	count := 0
	tbl.Iterate(func(string, blocks.BlockAddress) bool {
		count++
		return false
	})
	requireT.Equal(1, count)
}
