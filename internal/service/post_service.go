package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"citypulse/internal/localstore"
	"citypulse/internal/middleware"
	"citypulse/internal/models"
	"citypulse/internal/notifications"
	"citypulse/internal/observability"
	"citypulse/internal/reconcile"
	"citypulse/internal/repository"
)

const feedLimit = 100

// ReportBonusCoins is the reward credited for filing an issue.
const ReportBonusCoins = 10

// PostService produces the merged feed and applies mutations, routing each
// one to the local collection or to the per-id overlay depending on where the
// post's canonical record lives.
type PostService struct {
	issues   repository.IssueRepository
	profiles repository.ProfileRepository
	store    *localstore.Store
	notifier *notifications.Notifier

	storageBase string
}

// CreateIssueInput is the payload for filing a new issue report.
type CreateIssueInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	LocationText string   `json:"location_text"`
	Priority     string   `json:"priority"`
	ContactInfo  string   `json:"contact_info"`
	City         string   `json:"city"`
	Photos       []string `json:"photos"`
	ReporterID   string   `json:"-"`
	ReporterName string   `json:"reporter_name"`
}

// NewPostService creates a PostService over the issue repository, the local
// cache store, and the feed notifier.
func NewPostService(
	issues repository.IssueRepository,
	profiles repository.ProfileRepository,
	store *localstore.Store,
	notifier *notifications.Notifier,
	storageBase string,
) *PostService {
	return &PostService{
		issues:      issues,
		profiles:    profiles,
		store:       store,
		notifier:    notifier,
		storageBase: storageBase,
	}
}

// Feed returns the reconciled collection: remote issues first in recency
// order, overlaid with local interaction state, then local-only posts.
// A failing remote store degrades to the local collection alone.
func (s *PostService) Feed(ctx context.Context) ([]models.Post, error) {
	done := observability.TrackFeedMerge()
	defer done()

	local, err := s.store.Load(ctx)
	if err != nil {
		return nil, models.NewUnavailableError("local cache", err)
	}

	remote := s.remotePosts(ctx)

	ids := make([]string, 0, len(remote)+len(local))
	for _, p := range remote {
		ids = append(ids, p.ID)
	}
	for _, p := range local {
		ids = append(ids, p.ID)
	}
	ov, err := s.store.OverlayFor(ctx, ids)
	if err != nil {
		ov = reconcile.NewOverlay()
	}

	merged := reconcile.Merge(remote, local, ov)
	observability.FeedPostsServed.WithLabelValues("remote").Add(float64(len(remote)))
	observability.FeedPostsServed.WithLabelValues("local").Add(float64(len(merged) - len(remote)))
	return merged, nil
}

func (s *PostService) remotePosts(ctx context.Context) []models.Post {
	if s.issues == nil {
		return nil
	}
	rows, err := s.issues.ListRecent(ctx, feedLimit, 0)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "remote issues unavailable, serving local feed only",
			slog.String("error", err.Error()))
		return nil
	}
	posts := make([]models.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.ToPost(s.storageBase))
	}
	return posts
}

// GetPost returns one reconciled post by id.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if id == "" {
		return nil, models.NewValidationError("Post id is required")
	}
	feed, err := s.Feed(ctx)
	if err != nil {
		return nil, err
	}
	for i := range feed {
		if feed[i].ID == id {
			return &feed[i], nil
		}
	}
	return nil, models.NewNotFoundError("Post", id)
}

// Search returns reconciled posts whose title, body, or location contains the
// query, case-insensitively.
func (s *PostService) Search(ctx context.Context, query string) ([]models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	feed, err := s.Feed(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	matched := make([]models.Post, 0, len(feed))
	for _, p := range feed {
		haystack := strings.ToLower(p.Title + " " + p.Body + " " + p.Location + " " + p.City)
		if strings.Contains(haystack, q) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Like increments the like counter for the post with the given id. Unknown
// ids are a silent no-op.
func (s *PostService) Like(ctx context.Context, id string) error {
	return s.bump(ctx, id, notifications.ActionLike)
}

// Dislike increments the dislike counter for the post with the given id.
func (s *PostService) Dislike(ctx context.Context, id string) error {
	return s.bump(ctx, id, notifications.ActionDislike)
}

// Share increments the share counter for the post with the given id.
func (s *PostService) Share(ctx context.Context, id string) error {
	return s.bump(ctx, id, notifications.ActionShare)
}

func (s *PostService) bump(ctx context.Context, id, action string) error {
	if id == "" {
		return models.NewValidationError("Post id is required")
	}

	local, err := s.store.Get(ctx, id)
	if err != nil {
		return models.NewUnavailableError("local cache", err)
	}
	if local != nil {
		switch action {
		case notifications.ActionLike:
			return s.store.Like(ctx, id)
		case notifications.ActionDislike:
			return s.store.Dislike(ctx, id)
		case notifications.ActionShare:
			return s.store.Share(ctx, id)
		}
	}

	remote := s.remotePost(ctx, id)
	if remote == nil {
		return nil
	}
	base := models.Interaction{Likes: remote.Likes, Dislikes: remote.Dislikes, Shares: remote.Shares}
	if _, err := s.store.BumpInteraction(ctx, id, action, base); err != nil {
		return models.NewUnavailableError("local cache", err)
	}
	return nil
}

// Comment appends a comment to the post with the given id and returns it.
// Commenting on an unknown id is a no-op and returns an empty comment.
func (s *PostService) Comment(ctx context.Context, id, user, text string) (models.Comment, error) {
	if id == "" {
		return models.Comment{}, models.NewValidationError("Post id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, models.NewValidationError("Comment text is required")
	}
	if user == "" {
		user = "You"
	}

	local, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Comment{}, models.NewUnavailableError("local cache", err)
	}
	if local != nil {
		return s.store.CommentOn(ctx, id, user, text)
	}

	if s.remotePost(ctx, id) == nil {
		return models.Comment{}, nil
	}
	c, err := s.store.AppendOverlayComment(ctx, id, user, text)
	if err != nil {
		return models.Comment{}, models.NewUnavailableError("local cache", err)
	}
	return c, nil
}

// SetStatus moves a post to a new status. Local posts carry the note
// coupling; remote issue rows get the status written back in the issue
// vocabulary.
func (s *PostService) SetStatus(ctx context.Context, id string, status models.Status, note string) error {
	if id == "" {
		return models.NewValidationError("Post id is required")
	}
	if !models.ValidStatus(status) {
		return models.NewValidationError("Unknown status value")
	}

	local, err := s.store.Get(ctx, id)
	if err != nil {
		return models.NewUnavailableError("local cache", err)
	}
	if local != nil {
		return s.store.SetStatus(ctx, id, status, note)
	}

	remote := s.remotePost(ctx, id)
	if remote == nil {
		return nil
	}
	issueID, _ := strconv.ParseInt(id, 10, 64)
	if err := s.issues.UpdateStatus(ctx, issueID, issueStatusFor(status)); err != nil {
		return models.NewUnavailableError("remote issues", err)
	}
	_ = s.notifier.PublishFeedEvent(ctx, notifications.FeedEvent{Action: notifications.ActionStatus, PostID: id})
	return nil
}

// issueStatusFor maps the local status vocabulary back onto the issue rows'.
func issueStatusFor(status models.Status) string {
	switch status {
	case models.StatusSolved:
		return "resolved"
	case models.StatusPending:
		return "open"
	default:
		return string(status)
	}
}

// UpsertLocal inserts or replaces a post in the local collection.
func (s *PostService) UpsertLocal(ctx context.Context, post models.Post) (models.Post, error) {
	if strings.TrimSpace(post.Title) == "" {
		return models.Post{}, models.NewValidationError("Post title is required")
	}
	stored, err := s.store.Upsert(ctx, post)
	if err != nil {
		return models.Post{}, models.NewUnavailableError("local cache", err)
	}
	return stored, nil
}

// DeletePost removes a post. Local posts leave the cached collection; remote
// posts are deleted from the issues table.
func (s *PostService) DeletePost(ctx context.Context, id string) error {
	if id == "" {
		return models.NewValidationError("Post id is required")
	}

	local, err := s.store.Get(ctx, id)
	if err != nil {
		return models.NewUnavailableError("local cache", err)
	}
	if local != nil {
		return s.store.Delete(ctx, id)
	}

	remote := s.remotePost(ctx, id)
	if remote == nil {
		return nil
	}
	issueID, _ := strconv.ParseInt(id, 10, 64)
	if err := s.issues.Delete(ctx, issueID); err != nil {
		return models.NewUnavailableError("remote issues", err)
	}
	_ = s.notifier.PublishFeedEvent(ctx, notifications.FeedEvent{Action: notifications.ActionDelete, PostID: id})
	return nil
}

// CreateIssue files a new issue report and returns it projected as a post.
// The reporter earns coins and a bumped report count.
func (s *PostService) CreateIssue(ctx context.Context, in CreateIssueInput) (*models.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Issue title is required")
	}
	if in.ReporterID == "" {
		return nil, models.NewUnauthorizedError("Sign in to report an issue")
	}

	issue := &models.Issue{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      "open",
		ReporterID:  in.ReporterID,
		CreatedAt:   time.Now(),
	}
	setOptional(&issue.Category, in.Category)
	setOptional(&issue.LocationText, in.LocationText)
	setOptional(&issue.Priority, in.Priority)
	setOptional(&issue.ContactInfo, in.ContactInfo)
	setOptional(&issue.City, in.City)
	setOptional(&issue.ReporterName, in.ReporterName)
	if len(in.Photos) > 0 {
		encoded := encodePhotos(in.Photos)
		issue.Photos = &encoded
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, models.NewUnavailableError("remote issues", err)
	}

	if s.profiles != nil {
		if err := s.profiles.AddCoins(ctx, in.ReporterID, ReportBonusCoins); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to credit report bonus",
				slog.String("reporter_id", in.ReporterID), slog.String("error", err.Error()))
		}
		if err := s.profiles.IncrementPostsCount(ctx, in.ReporterID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to bump report count",
				slog.String("reporter_id", in.ReporterID), slog.String("error", err.Error()))
		}
	}

	post := issue.ToPost(s.storageBase)
	_ = s.notifier.PublishFeedEvent(ctx, notifications.FeedEvent{Action: notifications.ActionUpsert, PostID: post.ID})
	return &post, nil
}

func (s *PostService) remotePost(ctx context.Context, id string) *models.Post {
	if s.issues == nil {
		return nil
	}
	issueID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil
	}
	row, err := s.issues.GetByID(ctx, issueID)
	if err != nil || row == nil {
		return nil
	}
	post := row.ToPost(s.storageBase)
	return &post
}

func setOptional(dst **string, value string) {
	value = strings.TrimSpace(value)
	if value != "" {
		*dst = &value
	}
}

func encodePhotos(photos []string) string {
	encoded, err := json.Marshal(photos)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}
