package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	s := New(nil)

	created, err := s.Create("Pet", Record{"id": "p1", "name": "Rex"})
	require.NoError(t, err)
	assert.Equal(t, "p1", created["id"])

	got, ok := s.Get("Pet", "p1")
	require.True(t, ok)
	assert.Equal(t, "Rex", got["name"])
}

func TestCreateDuplicateKey(t *testing.T) {
	s := New(nil)

	_, err := s.Create("Pet", Record{"id": "p1"})
	require.NoError(t, err)

	_, err = s.Create("Pet", Record{"id": "p1", "name": "other"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDuplicateKey))

	// Original record untouched — no silent overwrite.
	got, ok := s.Get("Pet", "p1")
	require.True(t, ok)
	assert.NotEqual(t, "other", got["name"])
}

func TestCreateMissingIdentifier(t *testing.T) {
	s := New(nil)

	_, err := s.Create("Pet", Record{"name": "no id"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMissingID))
}

func TestCreateAutoID(t *testing.T) {
	s := New(map[string]SchemaConfig{"Pet": {AutoID: true}})

	created, err := s.Create("Pet", Record{"name": "auto"})
	require.NoError(t, err)
	id, ok := created["id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	got, ok := s.Get("Pet", id)
	require.True(t, ok)
	assert.Equal(t, "auto", got["name"])
}

func TestNumericAndStringIDsAreDistinct(t *testing.T) {
	s := New(nil)

	_, err := s.Create("Pet", Record{"id": float64(1), "kind": "number"})
	require.NoError(t, err)
	_, err = s.Create("Pet", Record{"id": "1", "kind": "string"})
	require.NoError(t, err)

	byNum, ok := s.Get("Pet", float64(1))
	require.True(t, ok)
	assert.Equal(t, "number", byNum["kind"])

	byStr, ok := s.Get("Pet", "1")
	require.True(t, ok)
	assert.Equal(t, "string", byStr["kind"])
}

func TestListInsertionOrder(t *testing.T) {
	s := New(nil)

	for _, id := range []string{"c", "a", "b"} {
		_, err := s.Create("Pet", Record{"id": id})
		require.NoError(t, err)
	}

	records := s.List("Pet")
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0]["id"])
	assert.Equal(t, "a", records[1]["id"])
	assert.Equal(t, "b", records[2]["id"])

	assert.Empty(t, s.List("Unknown"))
}

func TestUpdateShallowMerge(t *testing.T) {
	s := New(nil)

	_, err := s.Create("Pet", Record{"id": "p1", "name": "Rex", "age": 3})
	require.NoError(t, err)

	merged, err := s.Update("Pet", "p1", Record{"name": "Max"})
	require.NoError(t, err)
	assert.Equal(t, "Max", merged["name"])
	assert.Equal(t, 3, merged["age"])

	got, _ := s.Get("Pet", "p1")
	assert.Equal(t, "Max", got["name"])
	assert.Equal(t, 3, got["age"])
}

func TestUpdateNotFound(t *testing.T) {
	s := New(nil)

	_, err := s.Update("Pet", "nope", Record{"name": "x"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestDeleteIdempotence(t *testing.T) {
	s := New(nil)

	_, err := s.Create("Pet", Record{"id": "p1"})
	require.NoError(t, err)

	assert.True(t, s.Delete("Pet", "p1"))
	assert.False(t, s.Delete("Pet", "p1"))
	assert.False(t, s.Delete("Pet", "never-existed"))
}

func TestClearAndClearAll(t *testing.T) {
	s := New(nil)

	_, _ = s.Create("Pet", Record{"id": "p1"})
	_, _ = s.Create("Order", Record{"id": "o1"})

	s.Clear("Pet")
	assert.Zero(t, s.Count("Pet"))
	assert.Equal(t, 1, s.Count("Order"))

	s.ClearAll()
	assert.Zero(t, s.Count("Order"))
}

func TestListReturnsCopies(t *testing.T) {
	s := New(nil)

	_, err := s.Create("Pet", Record{"id": "p1", "name": "Rex"})
	require.NoError(t, err)

	records := s.List("Pet")
	records[0]["name"] = "mutated"

	got, _ := s.Get("Pet", "p1")
	assert.Equal(t, "Rex", got["name"])
}

func TestObserverHooks(t *testing.T) {
	s := New(nil)

	var events []string
	s.AddObserver(&FuncObserver{
		Create: func(schema string, _ Record) { events = append(events, "create:"+schema) },
		Update: func(schema string, _ Record) { events = append(events, "update:"+schema) },
		Delete: func(schema string, _ any) { events = append(events, "delete:"+schema) },
		Clear:  func(schema string) { events = append(events, "clear:"+schema) },
	})

	_, _ = s.Create("Pet", Record{"id": "p1"})
	_, _ = s.Update("Pet", "p1", Record{"name": "x"})
	s.Delete("Pet", "p1")
	s.Clear("Pet")

	assert.Equal(t, []string{"create:Pet", "update:Pet", "delete:Pet", "clear:Pet"}, events)
}

func TestBulkSuppressesObservers(t *testing.T) {
	s := New(nil)

	var events []string
	s.AddObserver(&FuncObserver{
		Create: func(schema string, _ Record) { events = append(events, "create:"+schema) },
		Clear:  func(schema string) { events = append(events, "clear:"+schema) },
	})

	s.Bulk(func() {
		s.Clear("Pet")
		_, _ = s.Create("Pet", Record{"id": "p1"})
		_, _ = s.Create("Pet", Record{"id": "p2"})
	})
	assert.Empty(t, events)
	assert.Equal(t, 2, s.Count("Pet"))

	// Notifications resume once the bulk operation finishes.
	_, _ = s.Create("Pet", Record{"id": "p3"})
	assert.Equal(t, []string{"create:Pet"}, events)
}
