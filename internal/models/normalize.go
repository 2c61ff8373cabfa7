package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Normalize coerces an arbitrary value purporting to be a Post into a Post
// that satisfies every model invariant: images capped at MaxPostImages with
// order preserved, comments always a non-nil sequence, counters non-negative
// integers, priority/status constrained to their vocabularies, video either
// fully populated or nil, and a fresh ID minted when none is present.
//
// It never fails regardless of input shape, and it is idempotent: normalizing
// an already-normalized Post returns an equal Post.
func Normalize(v any) Post {
	switch p := v.(type) {
	case Post:
		return clampPost(p)
	case *Post:
		if p == nil {
			return clampPost(Post{})
		}
		return clampPost(*p)
	case map[string]any:
		return postFromMap(p)
	default:
		return clampPost(Post{})
	}
}

// NormalizeAll normalizes every element of a decoded collection. A non-slice
// or nil input yields an empty, non-nil slice.
func NormalizeAll(v any) []Post {
	switch raw := v.(type) {
	case []Post:
		out := make([]Post, len(raw))
		for i, p := range raw {
			out[i] = clampPost(p)
		}
		return out
	case []any:
		out := make([]Post, len(raw))
		for i, p := range raw {
			out[i] = Normalize(p)
		}
		return out
	default:
		return []Post{}
	}
}

// clampPost enforces the invariants on an already-typed Post.
func clampPost(p Post) Post {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.AuthorName == "" {
		p.AuthorName = "Unknown"
	}
	if p.AuthorHandle == "" {
		p.AuthorHandle = "@unknown"
	}
	if p.Year == 0 {
		p.Year = time.Now().Year()
	}
	if !ValidPriority(p.Priority) {
		p.Priority = PriorityLow
	}
	if p.Images == nil {
		p.Images = []Image{}
	}
	if len(p.Images) > MaxPostImages {
		p.Images = p.Images[:MaxPostImages]
	}
	if p.Video != nil && p.Video.Src == "" {
		p.Video = nil
	}
	p.Likes = clampCount(p.Likes)
	p.Dislikes = clampCount(p.Dislikes)
	p.Shares = clampCount(p.Shares)
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	if !ValidStatus(p.Status) {
		p.Status = StatusPending
	}
	if p.CreatedAt <= 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}
	return p
}

// postFromMap coerces a decoded JSON object. Missing or mistyped fields fall
// back to documented defaults; nothing here can fail.
func postFromMap(m map[string]any) Post {
	p := Post{
		ID:           asString(m["id"]),
		Title:        asString(m["title"]),
		Body:         asString(m["body"]),
		AuthorName:   asString(m["authorName"]),
		AuthorHandle: asString(m["authorHandle"]),
		Location:     asString(m["location"]),
		City:         asString(m["city"]),
		Category:     asString(m["category"]),
		Priority:     Priority(asString(m["priority"])),
		Status:       Status(asString(m["status"])),
		AdminNote:    asString(m["adminNote"]),
	}

	if n, ok := asInt(m["year"]); ok {
		p.Year = n
	}
	if n, ok := asInt(m["likes"]); ok {
		p.Likes = n
	}
	if n, ok := asInt(m["dislikes"]); ok {
		p.Dislikes = n
	}
	if n, ok := asInt(m["shares"]); ok {
		p.Shares = n
	}
	if n, ok := asInt(m["createdAt"]); ok {
		p.CreatedAt = int64(n)
	}

	if imgs, ok := m["images"].([]any); ok {
		p.Images = make([]Image, 0, len(imgs))
		for _, raw := range imgs {
			im, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			p.Images = append(p.Images, Image{
				Src: asString(im["src"]),
				Alt: asString(im["alt"]),
			})
		}
	}

	if vid, ok := m["video"].(map[string]any); ok {
		if src, ok := vid["src"].(string); ok && src != "" {
			p.Video = &Video{Src: src, Type: asString(vid["type"])}
		}
	}

	if cs, ok := m["comments"].([]any); ok {
		p.Comments = make([]Comment, 0, len(cs))
		for _, raw := range cs {
			cm, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			c := Comment{
				ID:   asString(cm["id"]),
				User: asString(cm["user"]),
				Text: asString(cm["text"]),
			}
			if ts, ok := asInt(cm["ts"]); ok {
				c.Ts = int64(ts)
			}
			p.Comments = append(p.Comments, c)
		}
	}

	return clampPost(p)
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// asString coerces v to a string, returning "" for non-strings. Numeric ids
// from remote rows are rendered in decimal so merge keys stay stable.
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) && !math.IsNaN(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return ""
	default:
		return ""
	}
}

// asInt coerces v to a finite integer. The second return is false when v is
// not numeric, so callers can distinguish "absent" from zero.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, true // non-finite coerces to 0, not "absent"
		}
		return int(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f), true
		}
		return 0, true
	default:
		return 0, false
	}
}
