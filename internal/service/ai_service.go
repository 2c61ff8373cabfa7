package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"citypulse/internal/ai"
	"citypulse/internal/middleware"
	"citypulse/internal/models"
	"citypulse/internal/repository"
)

const analyzePrompt = `
Analyze this image of a potential city issue. Extract the following information:

1. Title: A short, concise heading summarizing the issue (max 10 words)
2. Description: A 1-2 sentence explanation of the issue
3. Category: One of the following: pothole, garbage, road damage, streetlight, water issue, sanitation, utilities, or other
4. Location Text: Any visible location information (street names, landmarks, etc.) or "Not visible" if none
5. Priority: Suggest High, Medium, or Low based on severity and potential impact

If you're unsure about any field, ask the user conversationally in the response.

Respond in JSON format with keys: title, description, category, location_text, priority
`

// databaseQueryPattern picks out assistant questions that can be grounded in
// the issues table rather than answered generically.
var databaseQueryPattern = regexp.MustCompile(`(?i)\b(issue|report|pothole|street|water|electricity|garbage|traffic|lighting|damage|broken|repair|fix|problem|complaint|category|count|total|today|week|month)\b`)

// IssueDraft is the pre-filled report form produced from a photo.
type IssueDraft struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	LocationText string `json:"location_text"`
	Priority     string `json:"priority"`
}

// AIService turns photos into issue drafts and answers assistant queries
// about the reported-issue database. Every failure path degrades to a
// deterministic fallback so the report flow never blocks on the model.
type AIService struct {
	gen    ai.Generator
	issues repository.IssueRepository
}

func NewAIService(gen ai.Generator, issues repository.IssueRepository) *AIService {
	return &AIService{gen: gen, issues: issues}
}

// AnalyzeImage asks the model to describe a city issue photo and returns the
// parsed draft. Missing fields and model failures fall back to generic
// values instead of erroring.
func (s *AIService) AnalyzeImage(ctx context.Context, mimeType string, data []byte) IssueDraft {
	if s.gen == nil || len(data) == 0 {
		middleware.AIRequests.WithLabelValues("analyze_image", "fallback").Inc()
		return fallbackDraft()
	}

	raw, err := s.gen.GenerateWithImage(ctx, analyzePrompt, mimeType, data)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "image analysis failed, using fallback draft",
			slog.String("error", err.Error()))
		middleware.AIRequests.WithLabelValues("analyze_image", "error").Inc()
		return fallbackDraft()
	}

	var draft IssueDraft
	if err := json.Unmarshal([]byte(ai.CleanJSON(raw)), &draft); err != nil {
		middleware.AIRequests.WithLabelValues("analyze_image", "parse_error").Inc()
		return fallbackDraft()
	}

	fallback := fallbackDraft()
	if draft.Title == "" {
		draft.Title = fallback.Title
	}
	if draft.Description == "" {
		draft.Description = fallback.Description
	}
	if draft.Category == "" {
		draft.Category = fallback.Category
	}
	if draft.Priority == "" {
		draft.Priority = fallback.Priority
	}
	middleware.AIRequests.WithLabelValues("analyze_image", "ok").Inc()
	return draft
}

func fallbackDraft() IssueDraft {
	return IssueDraft{
		Title:       "Issue detected",
		Description: "An issue has been identified in the image.",
		Category:    "other",
		Priority:    "Medium",
	}
}

// AnswerQuery answers an assistant question, grounding database-shaped
// queries in live issue counts. Without a model it falls back to a plain
// summary of the same counts.
func (s *AIService) AnswerQuery(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", models.NewValidationError("Query is required")
	}

	stats, err := s.issueStats(ctx)
	if err != nil {
		middleware.AIRequests.WithLabelValues("chat", "db_error").Inc()
		return "", models.NewUnavailableError("remote issues", err)
	}

	isDatabaseQuery := databaseQueryPattern.MatchString(query)

	if s.gen == nil {
		middleware.AIRequests.WithLabelValues("chat", "fallback").Inc()
		if isDatabaseQuery {
			return stats.summary(), nil
		}
		return genericAssistantReply, nil
	}

	var prompt string
	if isDatabaseQuery {
		prompt = fmt.Sprintf(
			"User query: %q\n\nDatabase data summary:\n- Total issues in database: %d\n- Issues reported today: %d\n- Category breakdown: %s\n\nPlease provide a helpful, accurate response based on this data. Answer questions about issue counts, categories, and trends. If the query doesn't match the data, say so politely.",
			query, stats.total, stats.today, stats.categoryJSON())
	} else {
		prompt = fmt.Sprintf(
			"User query: %q\n\nYou are CityZen, an intelligent city assistant. The user is asking a general question. Provide a helpful, friendly response. If it's about city services, reporting issues, or general information, offer assistance. For non-city related topics, politely redirect to city-related help or suggest appropriate resources. Be conversational and supportive.",
			query)
	}

	answer, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "assistant generation failed, using database summary",
			slog.String("error", err.Error()))
		middleware.AIRequests.WithLabelValues("chat", "error").Inc()
		if isDatabaseQuery {
			return stats.summary(), nil
		}
		return genericAssistantReply, nil
	}
	middleware.AIRequests.WithLabelValues("chat", "ok").Inc()
	return answer, nil
}

const genericAssistantReply = "I'm here to help with city-related issues and information. " +
	"You can ask me about reported problems, city services, or how to report an issue. " +
	"For general questions, I recommend checking official city resources or contacting local authorities directly."

type issueStats struct {
	total      int64
	today      int64
	categories map[string]int64
}

func (s *AIService) issueStats(ctx context.Context) (issueStats, error) {
	categories, err := s.issues.CountByCategory(ctx)
	if err != nil {
		return issueStats{}, err
	}
	var total int64
	for _, n := range categories {
		total += n
	}
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.issues.CountSince(ctx, midnight)
	if err != nil {
		return issueStats{}, err
	}
	return issueStats{total: total, today: today, categories: categories}, nil
}

func (st issueStats) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on our database:\n\nTotal issues: %d\nToday's issues: %d\n\nCategory breakdown:\n", st.total, st.today)
	for _, category := range sortedKeys(st.categories) {
		fmt.Fprintf(&b, "%s: %d\n", category, st.categories[category])
	}
	return b.String()
}

func (st issueStats) categoryJSON() string {
	encoded, err := json.Marshal(st.categories)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
