package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/steer/service/dao"
)

type entity struct {
	ID   string
	Name string
}

func newTestStore() *MemoryStore[string, entity] {
	return NewMemoryStore[string, entity](func(e *entity) string { return e.ID })
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	assert.ErrorIs(t, store.Save(ctx, nil), dao.ErrNilEntity)

	assert.NoError(t, store.Save(ctx, &entity{ID: "e1", Name: "first"}))
	loaded, err := store.Load(ctx, "e1")
	assert.NoError(t, err)
	if assert.NotNil(t, loaded) {
		assert.EqualValues(t, "first", loaded.Name)
	}

	// Save by the same key overwrites
	assert.NoError(t, store.Save(ctx, &entity{ID: "e1", Name: "updated"}))
	loaded, _ = store.Load(ctx, "e1")
	assert.EqualValues(t, "updated", loaded.Name)
	assert.EqualValues(t, 1, store.Len())

	// Absent key loads to (nil, nil)
	loaded, err = store.Load(ctx, "ghost")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	assert.NoError(t, store.Save(ctx, &entity{ID: "e1"}))
	assert.NoError(t, store.Save(ctx, &entity{ID: "e2"}))

	all, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	assert.NoError(t, store.Delete(ctx, "e1"))
	assert.NoError(t, store.Delete(ctx, "e1"))
	assert.EqualValues(t, 1, store.Len())
}
