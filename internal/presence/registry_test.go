package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct{ id string }

func (s stubSession) ID() string            { return s.id }
func (s stubSession) Deliver(_ []byte) bool { return true }

func ids(sessions []Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID())
	}
	return out
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := stubSession{id: "s1"}

	r.Register("u1", s)
	r.Register("u1", s)

	assert.Equal(t, 1, r.Count("u1"))
	assert.Equal(t, []string{"s1"}, ids(r.SessionsFor("u1")))
}

func TestRegistryMultipleSessionsPerUser(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", stubSession{id: "phone"})
	r.Register("u1", stubSession{id: "laptop"})
	r.Register("u2", stubSession{id: "tablet"})

	assert.ElementsMatch(t, []string{"phone", "laptop"}, ids(r.SessionsFor("u1")))
	assert.ElementsMatch(t, []string{"tablet"}, ids(r.SessionsFor("u2")))
	assert.Equal(t, 2, r.Users())
}

func TestRegistryDeregisterDropsEmptyUser(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", stubSession{id: "s1"})

	userID, ok := r.Deregister("s1")
	require.True(t, ok)
	assert.Equal(t, "u1", userID)

	assert.Empty(t, r.SessionsFor("u1"))
	assert.Equal(t, 0, r.Users())
	_, ok = r.UserOf("s1")
	assert.False(t, ok)
}

func TestRegistryDeregisterUnknownSession(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Deregister("ghost")
	assert.False(t, ok)
}

func TestRegistryRebindMovesSession(t *testing.T) {
	r := NewRegistry()
	s := stubSession{id: "s1"}
	r.Register("u1", s)
	r.Register("u2", s)

	assert.Empty(t, r.SessionsFor("u1"))
	assert.Equal(t, []string{"s1"}, ids(r.SessionsFor("u2")))
	userID, _ := r.UserOf("s1")
	assert.Equal(t, "u2", userID)
}

func TestRegistrySnapshotIsDetached(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", stubSession{id: "s1"})

	snapshot := r.SessionsFor("u1")
	r.Register("u1", stubSession{id: "s2"})
	r.Deregister("s1")

	assert.Equal(t, []string{"s1"}, ids(snapshot))
	assert.Equal(t, []string{"s2"}, ids(r.SessionsFor("u1")))
}

func TestRegistryConcurrentJoinLeave(t *testing.T) {
	r := NewRegistry()
	const workers = 32
	const rounds = 200

	// Each worker keeps one session alive and churns another under the same user.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			keep := stubSession{id: fmt.Sprintf("keep-%d", w)}
			r.Register("shared", keep)
			for i := 0; i < rounds; i++ {
				churn := stubSession{id: fmt.Sprintf("churn-%d-%d", w, i)}
				r.Register("shared", churn)
				_ = r.SessionsFor("shared")
				r.Deregister(churn.ID())
			}
		}(w)
	}
	wg.Wait()

	got := ids(r.SessionsFor("shared"))
	assert.Len(t, got, workers)
	for w := 0; w < workers; w++ {
		assert.Contains(t, got, fmt.Sprintf("keep-%d", w))
	}
}
