package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	p := Normalize(map[string]any{})

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "", p.Title)
	assert.Equal(t, "Unknown", p.AuthorName)
	assert.Equal(t, "@unknown", p.AuthorHandle)
	assert.Equal(t, time.Now().Year(), p.Year)
	assert.Equal(t, PriorityLow, p.Priority)
	assert.Equal(t, StatusPending, p.Status)
	assert.NotNil(t, p.Images)
	assert.Empty(t, p.Images)
	assert.NotNil(t, p.Comments)
	assert.Empty(t, p.Comments)
	assert.Nil(t, p.Video)
	assert.Zero(t, p.Likes)
	assert.Greater(t, p.CreatedAt, int64(0))
}

func TestNormalizeTotalOverGarbage(t *testing.T) {
	// Must never fail, whatever the shape.
	for _, v := range []any{nil, 42, "post", []any{1, 2}, map[string]any{"images": "nope", "comments": 7}} {
		p := Normalize(v)
		assert.NotEmpty(t, p.ID)
		assert.NotNil(t, p.Comments)
		assert.NotNil(t, p.Images)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := []map[string]any{
		{},
		{"id": "7", "title": "Pothole", "likes": float64(3), "priority": "High"},
		{"id": float64(12), "images": []any{map[string]any{"src": "/a.png"}}, "comments": []any{map[string]any{"user": "x", "text": "y", "ts": float64(5)}}},
		{"likes": math.NaN(), "dislikes": "many", "status": "weird", "video": map[string]any{"type": "mp4"}},
	}
	for _, raw := range raws {
		once := Normalize(raw)
		twice := Normalize(once)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeBoundsImages(t *testing.T) {
	imgs := []any{
		map[string]any{"src": "/1.png", "alt": "one"},
		map[string]any{"src": "/2.png", "alt": "two"},
		map[string]any{"src": "/3.png", "alt": "three"},
		map[string]any{"src": "/4.png", "alt": "four"},
	}
	p := Normalize(map[string]any{"images": imgs})
	require.Len(t, p.Images, 3)
	assert.Equal(t, "/1.png", p.Images[0].Src)
	assert.Equal(t, "/3.png", p.Images[2].Src)

	// At or under the cap, content and order survive exactly.
	p = Normalize(map[string]any{"images": imgs[:2]})
	require.Len(t, p.Images, 2)
	assert.Equal(t, []Image{{Src: "/1.png", Alt: "one"}, {Src: "/2.png", Alt: "two"}}, p.Images)
}

func TestNormalizeCounters(t *testing.T) {
	cases := map[string]any{
		"string":   "12",
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"nil":      nil,
		"negative": float64(-4),
	}
	for name, v := range cases {
		p := Normalize(map[string]any{"likes": v, "dislikes": v, "shares": v})
		assert.GreaterOrEqual(t, p.Likes, 0, name)
		assert.GreaterOrEqual(t, p.Dislikes, 0, name)
		assert.GreaterOrEqual(t, p.Shares, 0, name)
	}

	p := Normalize(map[string]any{"likes": float64(634), "dislikes": float64(42), "shares": float64(21)})
	assert.Equal(t, 634, p.Likes)
	assert.Equal(t, 42, p.Dislikes)
	assert.Equal(t, 21, p.Shares)
}

func TestNormalizeVideoAllOrNothing(t *testing.T) {
	p := Normalize(map[string]any{"video": map[string]any{"type": "mp4"}})
	assert.Nil(t, p.Video)

	p = Normalize(map[string]any{"video": map[string]any{"src": "/clip.mp4", "type": "mp4"}})
	require.NotNil(t, p.Video)
	assert.Equal(t, "/clip.mp4", p.Video.Src)
	assert.Equal(t, "mp4", p.Video.Type)
}

func TestNormalizeVocabularyFallbacks(t *testing.T) {
	p := Normalize(map[string]any{"priority": "urgent", "status": "on_fire"})
	assert.Equal(t, PriorityLow, p.Priority)
	assert.Equal(t, StatusPending, p.Status)

	p = Normalize(map[string]any{"priority": "Medium", "status": "solved"})
	assert.Equal(t, PriorityMedium, p.Priority)
	assert.Equal(t, StatusSolved, p.Status)
}

func TestNormalizeNumericID(t *testing.T) {
	p := Normalize(map[string]any{"id": float64(7)})
	assert.Equal(t, "7", p.ID)

	p = Normalize(map[string]any{"id": json.Number("19")})
	assert.Equal(t, "19", p.ID)
}

func TestNormalizeDropsMalformedCommentEntries(t *testing.T) {
	p := Normalize(map[string]any{"comments": []any{
		map[string]any{"id": "c1", "user": "Rahul", "text": "hi", "ts": float64(100)},
		"not a comment",
		float64(3),
	}})
	require.Len(t, p.Comments, 1)
	assert.Equal(t, Comment{ID: "c1", User: "Rahul", Text: "hi", Ts: 100}, p.Comments[0])
}

func TestNormalizeAll(t *testing.T) {
	out := NormalizeAll([]any{map[string]any{"id": "a"}, "junk"})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.NotEmpty(t, out[1].ID)

	assert.Empty(t, NormalizeAll(nil))
	assert.NotNil(t, NormalizeAll(nil))
}

func TestNormalizeRoundTripsThroughJSON(t *testing.T) {
	// The stored representation is JSON; a decode/normalize cycle must be stable.
	p := Normalize(map[string]any{"id": "x", "title": "t", "likes": float64(2)})
	b, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, p, Normalize(decoded))
}
