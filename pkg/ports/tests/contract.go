// Package tests provides reusable contract suites that every store
// adapter must pass. Adapters call these from their own _test.go files.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// RunSessionStoreContract verifies ports.SessionStore semantics.
func RunSessionStoreContract(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing session", func(t *testing.T) {
		_, err := store.Get(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("set get roundtrip", func(t *testing.T) {
		state := domain.NewSessionState()
		state.Exchange = "greet"
		state.Data["name"] = "Ada"
		require.NoError(t, store.Set(ctx, "s1", state))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "greet", got.Exchange)
		assert.Equal(t, "Ada", got.Data["name"])
	})

	t.Run("stored state is isolated", func(t *testing.T) {
		state := domain.NewSessionState()
		require.NoError(t, store.Set(ctx, "s2", state))
		state.Data["late"] = "mutation"

		got, err := store.Get(ctx, "s2")
		require.NoError(t, err)
		assert.NotContains(t, got.Data, "late")
	})

	t.Run("replace is last writer wins", func(t *testing.T) {
		first := domain.NewSessionState()
		first.Exchange = "one"
		require.NoError(t, store.Set(ctx, "s3", first))

		second := domain.NewSessionState()
		second.Exchange = "two"
		require.NoError(t, store.Set(ctx, "s3", second))

		got, err := store.Get(ctx, "s3")
		require.NoError(t, err)
		assert.Equal(t, "two", got.Exchange)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s4", domain.NewSessionState()))
		require.NoError(t, store.Delete(ctx, "s4"))
		_, err := store.Get(ctx, "s4")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// Deleting again is a no-op.
		assert.NoError(t, store.Delete(ctx, "s4"))
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s5", domain.NewSessionState()))
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "s5")
	})
}

// RunKeywordStoreContract verifies ports.KeywordStore semantics,
// in particular that SetMany is an idempotent upsert.
func RunKeywordStoreContract(t *testing.T, store ports.KeywordStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty exchange yields empty map", func(t *testing.T) {
		m, err := store.Mapping(ctx, "unknown")
		require.NoError(t, err)
		assert.NotNil(t, m)
		assert.Empty(t, m)
	})

	t.Run("set many twice is idempotent", func(t *testing.T) {
		kw := map[string]string{"hi": "greet", "bye": "farewell"}
		require.NoError(t, store.SetMany(ctx, "start", kw))
		require.NoError(t, store.SetMany(ctx, "start", kw))

		m, err := store.Mapping(ctx, "start")
		require.NoError(t, err)
		assert.Equal(t, kw, m)
	})

	t.Run("upsert updates changed destinations", func(t *testing.T) {
		require.NoError(t, store.SetMany(ctx, "start", map[string]string{"hi": "welcome"}))

		m, err := store.Mapping(ctx, "start")
		require.NoError(t, err)
		assert.Equal(t, "welcome", m["hi"])
		assert.Equal(t, "farewell", m["bye"], "untouched keywords survive an upsert")
	})

	t.Run("delete removes all keywords of an exchange", func(t *testing.T) {
		require.NoError(t, store.SetMany(ctx, "doomed", map[string]string{"x": "y"}))
		require.NoError(t, store.Delete(ctx, "doomed"))
		m, err := store.Mapping(ctx, "doomed")
		require.NoError(t, err)
		assert.Empty(t, m)
	})
}

// RunPromptStoreContract verifies ports.PromptStore semantics.
func RunPromptStoreContract(t *testing.T, store ports.PromptStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing exchange", func(t *testing.T) {
		_, err := store.Get(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrExchangeNotFound)
	})

	t.Run("set get roundtrip", func(t *testing.T) {
		ex := domain.Exchange{Name: "greet", Prompt: "Hello {{ name }}!", Default: "idle", Rank: 2, Type: domain.TypeStandard}
		require.NoError(t, store.Set(ctx, ex))

		got, err := store.Get(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, ex, got)
	})

	t.Run("replace", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, domain.Exchange{Name: "greet", Prompt: "Hi!"}))
		got, err := store.Get(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, "Hi!", got.Prompt)
		assert.Empty(t, got.Default)
	})

	t.Run("list ordered by rank", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, domain.Exchange{Name: "last", Rank: 9}))
		require.NoError(t, store.Set(ctx, domain.Exchange{Name: "first", Rank: 1}))

		all, err := store.List(ctx)
		require.NoError(t, err)
		pos := make(map[string]int, len(all))
		for i, ex := range all {
			pos[ex.Name] = i
		}
		assert.Less(t, pos["first"], pos["last"])
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, domain.Exchange{Name: "gone"}))
		require.NoError(t, store.Delete(ctx, "gone"))
		_, err := store.Get(ctx, "gone")
		assert.ErrorIs(t, err, domain.ErrExchangeNotFound)
	})
}

// RunTangentContract verifies ports.TangentStore plus ports.SeenTracker
// working together as the rotation backend.
func RunTangentContract(t *testing.T, tangents ports.TangentStore, seen ports.SeenTracker) {
	t.Helper()
	ctx := context.Background()

	idB, err := tangents.Set(ctx, domain.Tangent{Rank: 2, Text: "Did you know Y"})
	require.NoError(t, err)
	idA, err := tangents.Set(ctx, domain.Tangent{Rank: 1, Text: "Did you know X"})
	require.NoError(t, err)

	t.Run("list ordered by rank", func(t *testing.T) {
		all, err := tangents.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Did you know X", all[0].Text)
		assert.Equal(t, "Did you know Y", all[1].Text)
	})

	t.Run("seen set grows and clears", func(t *testing.T) {
		ids, err := seen.Seen(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, ids)

		require.NoError(t, seen.MarkSeen(ctx, idA, "u1"))
		require.NoError(t, seen.MarkSeen(ctx, idB, "u1"))

		ids, err = seen.Seen(ctx, "u1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{idA, idB}, ids)

		// Another user's rotation is untouched.
		ids, err = seen.Seen(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, ids)

		require.NoError(t, seen.ClearUser(ctx, "u1"))
		ids, err = seen.Seen(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("delete tangent", func(t *testing.T) {
		require.NoError(t, tangents.Delete(ctx, idB))
		all, err := tangents.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, idA, all[0].ID)
	})
}

// RunConversationLogContract verifies ports.ConversationLog semantics.
func RunConversationLogContract(t *testing.T, log ports.ConversationLog) {
	t.Helper()
	ctx := context.Background()

	entry := func(session, msg string, fromUser bool, at time.Time) domain.LogEntry {
		return domain.LogEntry{
			ID:        uuid.NewString(),
			SessionID: session,
			Message:   msg,
			FromUser:  fromUser,
			At:        at,
		}
	}

	base := time.Now().UTC().Truncate(time.Second)

	t.Run("has conversed", func(t *testing.T) {
		ok, err := log.HasConversed(ctx, "quiet")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, log.Append(ctx, entry("talker", "hi", true, base)))
		ok, err = log.HasConversed(ctx, "talker")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("history ordered by time", func(t *testing.T) {
		require.NoError(t, log.Append(ctx, entry("hist", "first", true, base)))
		require.NoError(t, log.Append(ctx, entry("hist", "second", false, base.Add(time.Second))))
		require.NoError(t, log.Append(ctx, entry("hist", "third", true, base.Add(2*time.Second))))

		got, err := log.History(ctx, "hist")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "first", got[0].Message)
		assert.True(t, got[0].FromUser)
		assert.Equal(t, "second", got[1].Message)
		assert.False(t, got[1].FromUser)
		assert.Equal(t, "third", got[2].Message)
	})

	t.Run("sessions are distinct", func(t *testing.T) {
		require.NoError(t, log.Append(ctx, entry("dup", "a", true, base)))
		require.NoError(t, log.Append(ctx, entry("dup", "b", false, base)))

		ids, err := log.Sessions(ctx)
		require.NoError(t, err)
		count := 0
		for _, id := range ids {
			if id == "dup" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}
