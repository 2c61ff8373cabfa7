package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"citypulse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedResponse struct {
	Posts []models.Post `json:"posts"`
	Count int           `json:"count"`
}

func getFeed(t *testing.T, app *fiber.App) feedResponse {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body feedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestGetFeedSeedsLocalCollection(t *testing.T) {
	app, _ := newTestServer(t)

	feed := getFeed(t, app)
	require.Equal(t, 4, feed.Count)
	assert.Equal(t, "1", feed.Posts[0].ID)
	assert.Equal(t, 634, feed.Posts[0].Likes)
	assert.Equal(t, models.StatusRejected, feed.Posts[2].Status)
	assert.Equal(t, "Insufficient location details. Please add a landmark.", feed.Posts[2].AdminNote)
}

func TestLikePostMutatesCollection(t *testing.T) {
	app, _ := newTestServer(t)
	getFeed(t, app)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/posts/1/like", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	feed := getFeed(t, app)
	assert.Equal(t, 635, feed.Posts[0].Likes)
}

func TestMutationsOnUnknownIDAreNoOps(t *testing.T) {
	app, _ := newTestServer(t)
	before := getFeed(t, app)

	for _, path := range []string{
		"/api/posts/unknown/like",
		"/api/posts/999999/dislike",
		"/api/posts/nope/share",
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, path)
	}

	after := getFeed(t, app)
	assert.Equal(t, before.Posts, after.Posts)
}

func TestCreateCommentOnLocalPost(t *testing.T) {
	app, _ := newTestServer(t)
	getFeed(t, app)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/posts/2/comments",
		`{"user":"Resident","text":"Lights are still out"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var comment models.Comment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&comment))
	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, "Resident", comment.User)

	feed := getFeed(t, app)
	require.NotEmpty(t, feed.Posts[1].Comments)
	last := feed.Posts[1].Comments[len(feed.Posts[1].Comments)-1]
	assert.Equal(t, "Lights are still out", last.Text)
}

func TestCommentOnUnknownIDIsNoOp(t *testing.T) {
	app, _ := newTestServer(t)
	getFeed(t, app)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/posts/ghost/comments",
		`{"text":"anyone there?"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSetStatusRequiresAdmin(t *testing.T) {
	app, srv := newTestServer(t)
	getFeed(t, app)

	req := jsonRequest(http.MethodPut, "/api/posts/3/status", `{"status":"solved"}`)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = jsonRequest(http.MethodPut, "/api/posts/3/status", `{"status":"solved"}`)
	req.Header.Set("Authorization", authHeader(t, srv, models.DemoUser))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSetStatusNoteCoupling(t *testing.T) {
	app, srv := newTestServer(t)
	getFeed(t, app)

	admin := models.Profile{ID: "admin", Name: "Admin", Email: "admin@civic.app"}

	req := jsonRequest(http.MethodPut, "/api/posts/1/status",
		`{"status":"rejected","note":"Duplicate of an open report."}`)
	req.Header.Set("Authorization", authHeader(t, srv, admin))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	feed := getFeed(t, app)
	assert.Equal(t, models.StatusRejected, feed.Posts[0].Status)
	assert.Equal(t, "Duplicate of an open report.", feed.Posts[0].AdminNote)

	req = jsonRequest(http.MethodPut, "/api/posts/1/status", `{"status":"solved"}`)
	req.Header.Set("Authorization", authHeader(t, srv, admin))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	feed = getFeed(t, app)
	assert.Equal(t, models.StatusSolved, feed.Posts[0].Status)
	assert.Empty(t, feed.Posts[0].AdminNote)
}

func TestCreateIssueAndMergeIntoFeed(t *testing.T) {
	app, srv := newTestServer(t)
	getFeed(t, app)

	req := jsonRequest(http.MethodPost, "/api/issues",
		`{"title":"Collapsed drain cover","description":"Open drain near the bus stop.","category":"sanitation","priority":"high","location_text":"Bus stop 12"}`)
	req.Header.Set("Authorization", authHeader(t, srv, models.DemoUser))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var post models.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	assert.Equal(t, "Collapsed drain cover", post.Title)
	assert.Equal(t, models.PriorityHigh, post.Priority)

	// The issue row and the seeded local post share id "1": remote content
	// wins, local counters survive.
	feed := getFeed(t, app)
	require.Equal(t, 4, feed.Count)
	assert.Equal(t, "Collapsed drain cover", feed.Posts[0].Title)
	assert.Equal(t, 634, feed.Posts[0].Likes)

	// Reporting pays out coins.
	profile, err := srv.profileRepo.GetByID(context.Background(), "demo")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Greater(t, profile.Coins, 0)
}

func TestSearchPosts(t *testing.T) {
	app, _ := newTestServer(t)
	getFeed(t, app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/search?q=pothole", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body feedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/search", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteLocalPost(t *testing.T) {
	app, srv := newTestServer(t)
	getFeed(t, app)

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/4", nil)
	req.Header.Set("Authorization", authHeader(t, srv, models.DemoUser))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	feed := getFeed(t, app)
	assert.Equal(t, 3, feed.Count)
}

func TestUpsertLocalPost(t *testing.T) {
	app, _ := newTestServer(t)
	getFeed(t, app)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/posts",
		`{"title":"Fallen branch blocking footpath","body":"Near the park entrance.","likes":-5}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var post models.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, 0, post.Likes)

	feed := getFeed(t, app)
	assert.Equal(t, 5, feed.Count)
	assert.Equal(t, "Fallen branch blocking footpath", feed.Posts[0].Title)
}

func TestUpdateLocalPostReplacesByPathID(t *testing.T) {
	app, _ := newTestServer(t)
	getFeed(t, app)

	resp, err := app.Test(jsonRequest(http.MethodPut, "/api/posts/2",
		`{"title":"Streetlight out on Oak Avenue","body":"Dark stretch after 9pm."}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var post models.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	assert.Equal(t, "2", post.ID)

	feed := getFeed(t, app)
	assert.Equal(t, 4, feed.Count)
	for _, p := range feed.Posts {
		if p.ID == "2" {
			assert.Equal(t, "Streetlight out on Oak Avenue", p.Title)
		}
	}
}
