package memory

import (
	"sync"
	"testing"
	"time"

	"ai-data-analyst-be/pkg/conversation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id string) *conversation.Session {
	return conversation.NewSession(id, conversation.Dependencies{}, conversation.Options{})
}

func TestSaveGetDelete(t *testing.T) {
	var mu sync.Mutex
	var evicted []string
	repo := NewSessionRepository(time.Hour, func(id string, _ *conversation.Session) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, id)
	})

	repo.Save(newSession("a"))
	repo.Save(newSession("b"))
	assert.Equal(t, 2, repo.Count())

	got, ok := repo.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID())

	repo.Delete("a")
	_, ok = repo.Get("a")
	assert.False(t, ok)

	repo.DeleteAll()
	assert.Equal(t, 0, repo.Count())

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b"}, evicted)
}

func TestExpiredSessionIsEvicted(t *testing.T) {
	evicted := make(chan string, 1)
	repo := NewSessionRepository(50*time.Millisecond, func(id string, _ *conversation.Session) {
		evicted <- id
	})
	repo.Save(newSession("gone"))

	select {
	case id := <-evicted:
		assert.Equal(t, "gone", id)
	case <-time.After(3 * time.Second):
		t.Fatal("session was never evicted")
	}
}
