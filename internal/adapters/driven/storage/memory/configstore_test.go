package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("source.path", "/dossiers"))
	val, ok := store.Get("source.path")
	assert.True(t, ok)
	assert.Equal(t, "/dossiers", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("s", "texte")
	_ = store.Set("i", 8)
	_ = store.Set("i64", int64(12))
	_ = store.Set("f", 0.35)
	_ = store.Set("b", true)
	_ = store.Set("list", []string{"fr", "en"})
	_ = store.Set("anylist", []any{"a", 1, "b"})

	assert.Equal(t, "texte", store.GetString("s"))
	assert.Empty(t, store.GetString("i"))

	assert.Equal(t, 8, store.GetInt("i"))
	assert.Equal(t, 12, store.GetInt("i64"))
	assert.Equal(t, 0, store.GetInt("missing"))

	assert.InDelta(t, 0.35, store.GetFloat("f"), 1e-9)
	assert.InDelta(t, 8.0, store.GetFloat("i"), 1e-9)
	assert.Zero(t, store.GetFloat("s"))

	assert.True(t, store.GetBool("b"))
	assert.False(t, store.GetBool("s"))

	assert.Equal(t, []string{"fr", "en"}, store.GetStringSlice("list"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("anylist"))
	assert.Nil(t, store.GetStringSlice("s"))
}

func TestConfigStore_SliceIsCopied(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("list", []string{"fr"})

	got := store.GetStringSlice("list")
	got[0] = "de"
	assert.Equal(t, []string{"fr"}, store.GetStringSlice("list"))
}

func TestConfigStore_DeleteAndKeys(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("b", 1)
	_ = store.Set("a", 2)
	assert.Equal(t, []string{"a", "b"}, store.Keys())

	require.NoError(t, store.Delete("a"))
	require.NoError(t, store.Delete("missing"))
	assert.Equal(t, []string{"b"}, store.Keys())
}

func TestConfigStore_NoOps(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n)
			_ = store.Set(key, n)
			assert.Equal(t, n, store.GetInt(key))
			_ = store.Keys()
		}(i)
	}
	wg.Wait()
	assert.Len(t, store.Keys(), 20)
}
