package localstore

import (
	"context"
	"testing"
	"time"

	"citypulse/internal/models"
	"citypulse/internal/notifications"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, notifications.NewNotifier(rdb))
}

func TestLoadSeedsWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	posts, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 4)

	byID := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	assert.Equal(t, models.StatusInProgress, byID["1"].Status)
	assert.Equal(t, models.StatusPending, byID["2"].Status)
	assert.Equal(t, models.StatusRejected, byID["3"].Status)
	assert.Equal(t, models.StatusSolved, byID["4"].Status)
	assert.Equal(t, 634, byID["1"].Likes)
	assert.Equal(t, "Insufficient location details. Please add a landmark.", byID["3"].AdminNote)
	assert.Len(t, byID["1"].Images, 2)

	// A second load must not re-seed over mutated state.
	require.NoError(t, s.Like(ctx, "2"))
	posts, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 4)
	for _, p := range posts {
		if p.ID == "2" {
			assert.Equal(t, 130, p.Likes)
		}
	}
}

func TestLoadReseedsOnCorruptPayload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.rdb.Set(ctx, PostsKey, "{not json", 0).Err())
	posts, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 4)
}

func TestCounterMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Like(ctx, "1"))
	require.NoError(t, s.Dislike(ctx, "1"))
	require.NoError(t, s.Share(ctx, "1"))

	p, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 635, p.Likes)
	assert.Equal(t, 43, p.Dislikes)
	assert.Equal(t, 22, p.Shares)
}

func TestMutationsIgnoreUnknownID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	before, err := s.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Like(ctx, "nope"))
	require.NoError(t, s.Delete(ctx, "nope"))
	c, err := s.CommentOn(ctx, "nope", "u", "t")
	require.NoError(t, err)
	assert.Empty(t, c.ID)

	after, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCommentOnAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Load(ctx)
	require.NoError(t, err)

	c, err := s.CommentOn(ctx, "3", "Demo User", "Added a landmark now.")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.NotZero(t, c.Ts)

	p, err := s.Get(ctx, "3")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Len(t, p.Comments, 1)
	assert.Equal(t, c, p.Comments[0])
}

func TestSetStatusNoteCoupling(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(ctx, "2", models.StatusRejected, "Duplicate of an open report."))
	p, err := s.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, p.Status)
	assert.Equal(t, "Duplicate of an open report.", p.AdminNote)

	// Rejecting again without a note keeps the existing one.
	require.NoError(t, s.SetStatus(ctx, "2", models.StatusRejected, ""))
	p, err = s.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Duplicate of an open report.", p.AdminNote)

	// Any other status clears the note.
	require.NoError(t, s.SetStatus(ctx, "2", models.StatusSolved, "ignored"))
	p, err = s.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSolved, p.Status)
	assert.Empty(t, p.AdminNote)
}

func TestUpsertPrependsAndReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Load(ctx)
	require.NoError(t, err)

	fresh, err := s.Upsert(ctx, models.Post{
		ID:    "99",
		Title: "Overflowing drain near bus stop",
		Likes: -5,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Likes)
	assert.Equal(t, models.PriorityLow, fresh.Priority)

	posts, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 5)
	assert.Equal(t, "99", posts[0].ID)

	_, err = s.Upsert(ctx, models.Post{ID: "99", Title: "Drain cleared", CreatedAt: fresh.CreatedAt})
	require.NoError(t, err)
	posts, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 5)
	assert.Equal(t, "Drain cleared", posts[0].Title)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "4"))
	posts, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	p, err := s.Get(ctx, "4")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestInteractionOverlay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetInteraction(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok)

	base := models.Interaction{Likes: 10, Dislikes: 2, Shares: 1}
	in, err := s.BumpInteraction(ctx, "7", notifications.ActionLike, base)
	require.NoError(t, err)
	assert.Equal(t, 11, in.Likes)

	in, err = s.BumpInteraction(ctx, "7", notifications.ActionShare, base)
	require.NoError(t, err)
	assert.Equal(t, 11, in.Likes)
	assert.Equal(t, 2, in.Shares)

	_, err = s.BumpInteraction(ctx, "7", "bogus", base)
	assert.Error(t, err)
}

func TestOverlayComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c1, err := s.AppendOverlayComment(ctx, "7", "Demo User", "first")
	require.NoError(t, err)
	c2, err := s.AppendOverlayComment(ctx, "7", "Demo User", "second")
	require.NoError(t, err)

	cs, ok, err := s.OverlayComments(ctx, "7")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cs, 2)
	assert.Equal(t, c1.ID, cs[0].ID)
	assert.Equal(t, c2.ID, cs[1].ID)
}

func TestOverlayFor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetInteraction(ctx, "7", models.Interaction{Likes: 3}))
	_, err := s.AppendOverlayComment(ctx, "8", "Demo User", "hello")
	require.NoError(t, err)

	ov, err := s.OverlayFor(ctx, []string{"7", "8", "9"})
	require.NoError(t, err)
	assert.Equal(t, models.Interaction{Likes: 3}, ov.Interactions["7"])
	assert.Len(t, ov.Comments["8"], 1)
	_, ok := ov.Interactions["9"]
	assert.False(t, ok)
	_, ok = ov.Comments["9"]
	assert.False(t, ok)
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.SetCurrentUser(ctx, models.DemoUser))
	require.NoError(t, s.AddCoins(ctx, 25))

	u, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "demo", u.ID)
	assert.Equal(t, 25, u.Coins)

	require.NoError(t, s.ClearCurrentUser(ctx))
	u, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestMutationPublishesFeedEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	notifier := notifications.NewNotifier(rdb)
	s := NewStore(rdb, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan notifications.FeedEvent, 16)
	require.NoError(t, notifier.StartSubscriber(ctx, func(ev notifications.FeedEvent) {
		events <- ev
	}))

	// The subscription registers asynchronously.
	deadline := time.After(2 * time.Second)
	for {
		_, err := s.Load(ctx)
		require.NoError(t, err)
		require.NoError(t, s.Like(ctx, "1"))
		select {
		case ev := <-events:
			if ev.Action == notifications.ActionLike {
				assert.Equal(t, "1", ev.PostID)
				return
			}
		case <-deadline:
			t.Fatal("no feed event received")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
