// Package localstore is the Redis-backed cache for client-local feed state:
// the posts collection, the signed-in user, and per-post interaction overlays
// for posts whose canonical record lives in the issues table. Writes publish
// feed events so other processes and open sessions converge.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"citypulse/internal/models"
	"citypulse/internal/notifications"
	"citypulse/internal/reconcile"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key layout. Interaction and comment overlays are keyed per post id so
// they survive independently of the posts collection.
const (
	PostsKey             = "civic:posts"
	UserKey              = "civic:user"
	InteractionKeyPrefix = "civic:interaction:%s"
	CommentsKeyPrefix    = "civic:comments:%s"
)

// InteractionKey returns the overlay counter key for one post id.
func InteractionKey(postID string) string {
	return fmt.Sprintf(InteractionKeyPrefix, postID)
}

// CommentsKey returns the overlay comment key for one post id.
func CommentsKey(postID string) string {
	return fmt.Sprintf(CommentsKeyPrefix, postID)
}

// ErrUnavailable is returned when the store has no Redis backing.
var ErrUnavailable = errors.New("localstore: redis unavailable")

// Store reads and writes the locally cached feed state. Every read of the
// posts collection passes through normalization, so callers always see a
// well-formed collection no matter what earlier writers stored.
type Store struct {
	rdb      *redis.Client
	notifier *notifications.Notifier
}

// NewStore creates a Store over the given Redis client. The notifier may be
// nil; mutations then simply skip event publication.
func NewStore(rdb *redis.Client, notifier *notifications.Notifier) *Store {
	return &Store{rdb: rdb, notifier: notifier}
}

func (s *Store) publish(ctx context.Context, action, postID string) {
	_ = s.notifier.PublishFeedEvent(ctx, notifications.FeedEvent{Action: action, PostID: postID})
}

// Load returns the normalized posts collection, seeding the demo dataset
// when the collection is empty or unreadable.
func (s *Store) Load(ctx context.Context) ([]models.Post, error) {
	if s.rdb == nil {
		return nil, ErrUnavailable
	}
	raw, err := s.rdb.Get(ctx, PostsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.seed(ctx)
	}
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return s.seed(ctx)
	}
	posts := models.NormalizeAll(decoded)
	if len(posts) == 0 {
		return s.seed(ctx)
	}
	return posts, nil
}

func (s *Store) seed(ctx context.Context) ([]models.Post, error) {
	posts := SeedPosts(time.Now())
	if err := s.save(ctx, posts); err != nil {
		return nil, err
	}
	s.publish(ctx, notifications.ActionReload, "")
	return posts, nil
}

// Save replaces the posts collection and announces a full reload.
func (s *Store) Save(ctx context.Context, posts []models.Post) error {
	if err := s.save(ctx, posts); err != nil {
		return err
	}
	s.publish(ctx, notifications.ActionReload, "")
	return nil
}

func (s *Store) save(ctx context.Context, posts []models.Post) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	if posts == nil {
		posts = []models.Post{}
	}
	payload, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, PostsKey, payload, 0).Err()
}

// Get returns the post with the given id, or nil when it is not in the
// local collection.
func (s *Store) Get(ctx context.Context, id string) (*models.Post, error) {
	posts, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].ID == id {
			return &posts[i], nil
		}
	}
	return nil, nil
}

// mutate loads the collection, applies fn to the post with the given id, and
// saves. When the id is absent nothing is written and changed is false.
func (s *Store) mutate(ctx context.Context, id string, fn func(*models.Post)) (bool, error) {
	posts, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	changed := false
	for i := range posts {
		if posts[i].ID == id {
			fn(&posts[i])
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	return true, s.save(ctx, posts)
}

// Like increments the like counter of the post with the given id. Missing
// ids are a silent no-op.
func (s *Store) Like(ctx context.Context, id string) error {
	changed, err := s.mutate(ctx, id, func(p *models.Post) { p.Likes++ })
	if err == nil && changed {
		s.publish(ctx, notifications.ActionLike, id)
	}
	return err
}

// Dislike increments the dislike counter of the post with the given id.
func (s *Store) Dislike(ctx context.Context, id string) error {
	changed, err := s.mutate(ctx, id, func(p *models.Post) { p.Dislikes++ })
	if err == nil && changed {
		s.publish(ctx, notifications.ActionDislike, id)
	}
	return err
}

// Share increments the share counter of the post with the given id.
func (s *Store) Share(ctx context.Context, id string) error {
	changed, err := s.mutate(ctx, id, func(p *models.Post) { p.Shares++ })
	if err == nil && changed {
		s.publish(ctx, notifications.ActionShare, id)
	}
	return err
}

// CommentOn appends a new comment to the post with the given id and returns
// it. The comment id and timestamp are generated here.
func (s *Store) CommentOn(ctx context.Context, id, user, text string) (models.Comment, error) {
	c := models.Comment{
		ID:   uuid.NewString(),
		User: user,
		Text: text,
		Ts:   time.Now().UnixMilli(),
	}
	changed, err := s.mutate(ctx, id, func(p *models.Post) {
		p.Comments = append(p.Comments, c)
	})
	if err != nil {
		return models.Comment{}, err
	}
	if !changed {
		return models.Comment{}, nil
	}
	s.publish(ctx, notifications.ActionComment, id)
	return c, nil
}

// SetStatus moves the post with the given id to a new status. The admin note
// is retained only for rejections; any other transition clears it. When the
// rejection carries no note the previous note survives.
func (s *Store) SetStatus(ctx context.Context, id string, status models.Status, note string) error {
	changed, err := s.mutate(ctx, id, func(p *models.Post) {
		p.Status = status
		if status == models.StatusRejected {
			if note != "" {
				p.AdminNote = note
			}
		} else {
			p.AdminNote = ""
		}
	})
	if err == nil && changed {
		s.publish(ctx, notifications.ActionStatus, id)
	}
	return err
}

// Upsert replaces the post with a matching id in place, or prepends the post
// when the id is new. The incoming record is normalized before storage.
func (s *Store) Upsert(ctx context.Context, post models.Post) (models.Post, error) {
	post = models.Normalize(post)
	posts, err := s.Load(ctx)
	if err != nil {
		return models.Post{}, err
	}
	replaced := false
	for i := range posts {
		if posts[i].ID == post.ID {
			posts[i] = post
			replaced = true
			break
		}
	}
	if !replaced {
		posts = append([]models.Post{post}, posts...)
	}
	if err := s.save(ctx, posts); err != nil {
		return models.Post{}, err
	}
	s.publish(ctx, notifications.ActionUpsert, post.ID)
	return post, nil
}

// Delete removes the post with the given id. Deleting an unknown id is a
// no-op and publishes nothing.
func (s *Store) Delete(ctx context.Context, id string) error {
	posts, err := s.Load(ctx)
	if err != nil {
		return err
	}
	kept := posts[:0:0]
	for _, p := range posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(posts) {
		return nil
	}
	if err := s.save(ctx, kept); err != nil {
		return err
	}
	s.publish(ctx, notifications.ActionDelete, id)
	return nil
}

// GetInteraction returns the overlay counters for a post id. The second
// return reports whether an overlay entry exists at all.
func (s *Store) GetInteraction(ctx context.Context, id string) (models.Interaction, bool, error) {
	if s.rdb == nil {
		return models.Interaction{}, false, ErrUnavailable
	}
	raw, err := s.rdb.Get(ctx, InteractionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Interaction{}, false, nil
	}
	if err != nil {
		return models.Interaction{}, false, err
	}
	var in models.Interaction
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.Interaction{}, false, nil
	}
	return in.Clamp(), true, nil
}

// SetInteraction stores the overlay counters for a post id.
func (s *Store) SetInteraction(ctx context.Context, id string, in models.Interaction) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	payload, err := json.Marshal(in.Clamp())
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, InteractionKey(id), payload, 0).Err()
}

// BumpInteraction increments one counter in the overlay entry for a post id,
// creating the entry from base when none exists yet, and publishes the
// corresponding feed event.
func (s *Store) BumpInteraction(ctx context.Context, id, action string, base models.Interaction) (models.Interaction, error) {
	in, ok, err := s.GetInteraction(ctx, id)
	if err != nil {
		return models.Interaction{}, err
	}
	if !ok {
		in = base.Clamp()
	}
	switch action {
	case notifications.ActionLike:
		in.Likes++
	case notifications.ActionDislike:
		in.Dislikes++
	case notifications.ActionShare:
		in.Shares++
	default:
		return in, fmt.Errorf("localstore: unknown interaction action %q", action)
	}
	if err := s.SetInteraction(ctx, id, in); err != nil {
		return models.Interaction{}, err
	}
	s.publish(ctx, action, id)
	return in, nil
}

// OverlayComments returns the overlay comment sequence for a post id.
func (s *Store) OverlayComments(ctx context.Context, id string) ([]models.Comment, bool, error) {
	if s.rdb == nil {
		return nil, false, ErrUnavailable
	}
	raw, err := s.rdb.Get(ctx, CommentsKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cs []models.Comment
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, false, nil
	}
	if cs == nil {
		cs = []models.Comment{}
	}
	return cs, true, nil
}

// AppendOverlayComment appends a comment to the overlay sequence for a post
// id and returns the stored comment.
func (s *Store) AppendOverlayComment(ctx context.Context, id, user, text string) (models.Comment, error) {
	cs, _, err := s.OverlayComments(ctx, id)
	if err != nil {
		return models.Comment{}, err
	}
	c := models.Comment{
		ID:   uuid.NewString(),
		User: user,
		Text: text,
		Ts:   time.Now().UnixMilli(),
	}
	cs = append(cs, c)
	payload, err := json.Marshal(cs)
	if err != nil {
		return models.Comment{}, err
	}
	if err := s.rdb.Set(ctx, CommentsKey(id), payload, 0).Err(); err != nil {
		return models.Comment{}, err
	}
	s.publish(ctx, notifications.ActionComment, id)
	return c, nil
}

// OverlayFor gathers the interaction and comment overlays for the given post
// ids in one pipelined round trip.
func (s *Store) OverlayFor(ctx context.Context, ids []string) (reconcile.Overlay, error) {
	ov := reconcile.NewOverlay()
	if s.rdb == nil || len(ids) == 0 {
		return ov, nil
	}

	pipe := s.rdb.Pipeline()
	inCmds := make(map[string]*redis.StringCmd, len(ids))
	cCmds := make(map[string]*redis.StringCmd, len(ids))
	for _, id := range ids {
		inCmds[id] = pipe.Get(ctx, InteractionKey(id))
		cCmds[id] = pipe.Get(ctx, CommentsKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return ov, err
	}

	for id, cmd := range inCmds {
		raw, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var in models.Interaction
		if json.Unmarshal(raw, &in) == nil {
			ov.Interactions[id] = in.Clamp()
		}
	}
	for id, cmd := range cCmds {
		raw, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var cs []models.Comment
		if json.Unmarshal(raw, &cs) == nil {
			if cs == nil {
				cs = []models.Comment{}
			}
			ov.Comments[id] = cs
		}
	}
	return ov, nil
}

// CurrentUser returns the signed-in user, or nil when nobody is signed in.
func (s *Store) CurrentUser(ctx context.Context) (*models.Profile, error) {
	if s.rdb == nil {
		return nil, ErrUnavailable
	}
	raw, err := s.rdb.Get(ctx, UserKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u models.Profile
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, nil
	}
	return &u, nil
}

// SetCurrentUser stores the signed-in user.
func (s *Store) SetCurrentUser(ctx context.Context, u models.Profile) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, UserKey, payload, 0).Err()
}

// ClearCurrentUser signs the current user out.
func (s *Store) ClearCurrentUser(ctx context.Context) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	return s.rdb.Del(ctx, UserKey).Err()
}

// AddCoins credits the signed-in user. A missing user is a no-op.
func (s *Store) AddCoins(ctx context.Context, amount int) error {
	u, err := s.CurrentUser(ctx)
	if err != nil || u == nil {
		return err
	}
	u.Coins += amount
	return s.SetCurrentUser(ctx, *u)
}
