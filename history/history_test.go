package history

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestStore(t *testing.T) {
	t.Parallel()

	t.Run("fresh stack has no record", func(t *testing.T) {
		t.Parallel()

		store := NewStore(NewMemoryStack("https://example.com/index"))
		e, err := store.Active()
		require.NoError(t, err)
		assert.Nil(t, e)
		assert.Equal(t, "https://example.com/index", store.Location())
	})

	t.Run("replace keeps one slot", func(t *testing.T) {
		t.Parallel()

		stack := NewMemoryStack("https://example.com/index")
		store := NewStore(stack)
		require.NoError(t, store.ReplaceCurrent(Entry{
			Location: "https://example.com/index",
			Title:    "Home",
			Content:  ptr("Home"),
			Initial:  true,
		}))

		assert.Equal(t, 1, stack.Len())
		e, err := store.Active()
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.Initial)
		assert.True(t, e.HasContent())
		assert.Equal(t, "Home", *e.Content)
	})

	t.Run("push advances and round-trips", func(t *testing.T) {
		t.Parallel()

		stack := NewMemoryStack("https://example.com/index")
		store := NewStore(stack)
		want := Entry{
			Location: "https://example.com/about",
			Title:    "About",
			Content:  ptr("<p>About</p>"),
			Scroll:   Offset{X: 0, Y: 120.5},
			Ordinal:  1,
		}
		require.NoError(t, store.Push(want))

		assert.Equal(t, 2, stack.Len())
		assert.Equal(t, 1, stack.Index())
		assert.Equal(t, "https://example.com/about", store.Location())

		got, err := store.Active()
		require.NoError(t, err)
		assert.Equal(t, want, *got)
	})

	t.Run("absent content stays absent", func(t *testing.T) {
		t.Parallel()

		store := NewStore(NewMemoryStack("https://example.com/"))
		require.NoError(t, store.ReplaceCurrent(Entry{Location: "https://example.com/"}))
		got, err := store.Active()
		require.NoError(t, err)
		assert.False(t, got.HasContent())
	})

	t.Run("records are detached copies", func(t *testing.T) {
		t.Parallel()

		store := NewStore(NewMemoryStack("https://example.com/"))
		content := "original"
		e := Entry{Location: "https://example.com/", Content: &content}
		require.NoError(t, store.ReplaceCurrent(e))
		content = "changed"

		got, err := store.Active()
		require.NoError(t, err)
		assert.Equal(t, "original", *got.Content)
	})

	t.Run("corrupt state", func(t *testing.T) {
		t.Parallel()

		stack := NewMemoryStack("https://example.com/")
		require.NoError(t, stack.ReplaceState([]byte{0xc1}, "https://example.com/"))
		_, err := NewStore(stack).Active()
		require.Error(t, err)
	})
}

func TestMemoryStack(t *testing.T) {
	t.Parallel()

	t.Run("traversal", func(t *testing.T) {
		t.Parallel()

		stack := NewMemoryStack("/a")
		pops := 0
		stack.OnPopState(func() { pops++ })

		require.NoError(t, stack.PushState([]byte("b"), "/b"))
		require.NoError(t, stack.PushState([]byte("c"), "/c"))
		assert.Equal(t, []string{"/a", "/b", "/c"}, stack.URLs())

		require.True(t, stack.Back())
		assert.Equal(t, "/b", stack.URL())
		assert.Equal(t, []byte("b"), stack.State())

		require.True(t, stack.Back())
		assert.Equal(t, "/a", stack.URL())
		assert.Nil(t, stack.State())
		assert.False(t, stack.Back())

		require.True(t, stack.Forward())
		assert.Equal(t, "/b", stack.URL())
		assert.Equal(t, 3, pops)

		assert.False(t, stack.Go(0))
		assert.False(t, stack.Go(5))
		assert.Equal(t, 3, pops)
	})

	t.Run("push truncates forward slots", func(t *testing.T) {
		t.Parallel()

		stack := NewMemoryStack("/a")
		require.NoError(t, stack.PushState(nil, "/b"))
		require.NoError(t, stack.PushState(nil, "/c"))
		require.True(t, stack.Go(-2))

		require.NoError(t, stack.PushState(nil, "/d"))
		assert.Equal(t, []string{"/a", "/d"}, stack.URLs())
		assert.False(t, stack.Forward())
	})

	t.Run("visit adds stateless slot", func(t *testing.T) {
		t.Parallel()

		stack := NewMemoryStack("/a")
		require.NoError(t, stack.ReplaceState([]byte("a"), "/a"))
		stack.Visit("/a#top")
		assert.Equal(t, 2, stack.Len())
		assert.Nil(t, stack.State())
		assert.Equal(t, "/a#top", stack.URL())
	})

	t.Run("state size limit", func(t *testing.T) {
		t.Parallel()

		stack := NewMemoryStack("/a")
		stack.MaxStateSize = 4

		require.NoError(t, stack.PushState([]byte("ok"), "/b"))
		err := stack.PushState([]byte("too large"), "/c")
		require.ErrorIs(t, err, ErrStateTooLarge)
		assert.Equal(t, []string{"/a", "/b"}, stack.URLs())

		require.ErrorIs(t, stack.ReplaceState([]byte("too large"), "/b"), ErrStateTooLarge)
		assert.Equal(t, []byte("ok"), stack.State())
	})
}

func TestStoreReportsRejectedState(t *testing.T) {
	t.Parallel()

	stack := NewMemoryStack("https://example.com/")
	stack.MaxStateSize = 150
	store := NewStore(stack)

	big := strings.Repeat("x", 100)
	err := store.Push(Entry{Location: "https://example.com/big", Content: &big})
	require.ErrorIs(t, err, ErrStateTooLarge)
	assert.Equal(t, 1, stack.Len())

	require.NoError(t, store.Push(Entry{Location: "https://example.com/big"}))
	assert.Equal(t, 2, stack.Len())
}
