package user

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		_, err := NewMemRepo().GetByIdentifier(ctx, "ghost")
		assert.Equal(t, ErrUserNotFound, err)
	})

	t.Run("interaction creates the user", func(t *testing.T) {
		r := NewMemRepo()
		require.NoError(t, r.AppendInteraction(ctx, "rob", Interaction{PostId: "p1", Kind: KindView}))
		require.NoError(t, r.AppendInteraction(ctx, "rob", Interaction{PostId: "p1", Kind: KindView}))

		u, err := r.GetByIdentifier(ctx, "rob")
		require.NoError(t, err)
		assert.Len(t, u.Interactions, 2, "views are never deduplicated")
		assert.Equal(t, []string{"p1"}, u.SeenPostIds())
		assert.Equal(t, []string{}, u.Interests)
	})

	t.Run("upsert keeps derived state", func(t *testing.T) {
		r := NewMemRepo()
		require.NoError(t, r.AddInterests(ctx, "rob", []string{"go"}))
		u, err := r.Upsert(ctx, Profile{Identifier: "rob", Name: "Rob", Email: "rob@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "Rob", u.Name)
		assert.Equal(t, []string{"go"}, u.Interests)
	})

	t.Run("interests are a monotonic set", func(t *testing.T) {
		r := NewMemRepo()
		require.NoError(t, r.AddInterests(ctx, "rob", []string{"go", "db"}))
		require.NoError(t, r.AddInterests(ctx, "rob", []string{"db", "ops"}))
		u, _ := r.GetByIdentifier(ctx, "rob")
		assert.Equal(t, []string{"go", "db", "ops"}, u.Interests)
	})

	t.Run("concurrent appends are all kept", func(t *testing.T) {
		r := NewMemRepo()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = r.AppendInteraction(ctx, "rob", Interaction{PostId: "p1", Kind: KindShare})
			}()
		}
		wg.Wait()
		u, _ := r.GetByIdentifier(ctx, "rob")
		assert.Len(t, u.Interactions, 50)
	})
}

func TestProfileValidate(t *testing.T) {
	p := Profile{Identifier: "  rob "}
	require.NoError(t, p.Validate())
	assert.Equal(t, "rob", p.Identifier)
	assert.Equal(t, "rob", p.Name)

	p = Profile{Identifier: " "}
	assert.Error(t, p.Validate())
}
