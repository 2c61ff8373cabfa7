package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix  = "profile:%s"
	IssueKeyPrefix    = "issue:%d"
	LeaderboardKey    = "leaderboard:coins"
	AssistantStatsKey = "assistant:stats"
)

const (
	ProfileTTL        = 5 * time.Minute
	LeaderboardTTL    = time.Minute
	AssistantStatsTTL = 30 * time.Second
)

func ProfileKey(profileID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, profileID)
}

func IssueKey(issueID int64) string {
	return fmt.Sprintf(IssueKeyPrefix, issueID)
}

// GetJSON loads and unmarshals a cached value into dst. It returns false on
// a miss, a decode failure, or when no client is configured.
func GetJSON(ctx context.Context, key string, dst any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// SetJSON marshals and stores a value with the given TTL. Failures are
// silently dropped; the cache is best-effort.
func SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	client.Set(ctx, key, raw, ttl)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProfile(ctx context.Context, profileID string) {
	Invalidate(ctx, ProfileKey(profileID))
	Invalidate(ctx, LeaderboardKey)
}

func InvalidateIssue(ctx context.Context, issueID int64) {
	Invalidate(ctx, IssueKey(issueID))
}
