package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generatorStub is a stub for ai.Generator.
type generatorStub struct {
	generateTextFn      func(context.Context, string) (string, error)
	generateWithImageFn func(context.Context, string, string, []byte) (string, error)
}

func (s *generatorStub) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.generateTextFn(ctx, prompt)
}
func (s *generatorStub) GenerateWithImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	return s.generateWithImageFn(ctx, prompt, mimeType, data)
}

func TestAnalyzeImageParsesModelOutput(t *testing.T) {
	gen := &generatorStub{
		generateWithImageFn: func(_ context.Context, prompt, mimeType string, _ []byte) (string, error) {
			assert.Contains(t, prompt, "Respond in JSON format")
			assert.Equal(t, "image/jpeg", mimeType)
			return "```json\n{\"title\":\"Deep pothole on 5th Ave\",\"description\":\"Large pothole in the right lane.\",\"category\":\"pothole\",\"location_text\":\"5th Ave\",\"priority\":\"High\"}\n```", nil
		},
	}
	svc := NewAIService(gen, noopIssueRepo())

	draft := svc.AnalyzeImage(context.Background(), "image/jpeg", []byte{0xff, 0xd8})
	assert.Equal(t, "Deep pothole on 5th Ave", draft.Title)
	assert.Equal(t, "pothole", draft.Category)
	assert.Equal(t, "5th Ave", draft.LocationText)
	assert.Equal(t, "High", draft.Priority)
}

func TestAnalyzeImageFillsMissingFields(t *testing.T) {
	gen := &generatorStub{
		generateWithImageFn: func(_ context.Context, _, _ string, _ []byte) (string, error) {
			return `{"title":"","description":"","category":"garbage","location_text":"","priority":""}`, nil
		},
	}
	svc := NewAIService(gen, noopIssueRepo())

	draft := svc.AnalyzeImage(context.Background(), "image/png", []byte{1})
	assert.Equal(t, "Issue detected", draft.Title)
	assert.Equal(t, "An issue has been identified in the image.", draft.Description)
	assert.Equal(t, "garbage", draft.Category)
	assert.Equal(t, "Medium", draft.Priority)
}

func TestAnalyzeImageFallsBackOnErrors(t *testing.T) {
	cases := map[string]*generatorStub{
		"generation error": {
			generateWithImageFn: func(_ context.Context, _, _ string, _ []byte) (string, error) {
				return "", errors.New("model overloaded")
			},
		},
		"unparseable output": {
			generateWithImageFn: func(_ context.Context, _, _ string, _ []byte) (string, error) {
				return "I think I see a pothole but I am not sure", nil
			},
		},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewAIService(gen, noopIssueRepo())
			draft := svc.AnalyzeImage(context.Background(), "image/jpeg", []byte{1})
			assert.Equal(t, "Issue detected", draft.Title)
			assert.Equal(t, "other", draft.Category)
			assert.Equal(t, "Medium", draft.Priority)
		})
	}
}

func TestAnalyzeImageWithoutGenerator(t *testing.T) {
	svc := NewAIService(nil, noopIssueRepo())

	draft := svc.AnalyzeImage(context.Background(), "image/jpeg", []byte{1})
	assert.Equal(t, "Issue detected", draft.Title)
}

func TestAnswerQueryGroundsDatabaseQuestions(t *testing.T) {
	issues := noopIssueRepo()
	issues.countByCategoryFn = func(_ context.Context) (map[string]int64, error) {
		return map[string]int64{"pothole": 12, "garbage": 5}, nil
	}
	issues.countSinceFn = func(_ context.Context, since time.Time) (int64, error) {
		assert.WithinDuration(t, time.Now(), since, 24*time.Hour)
		return 3, nil
	}

	var gotPrompt string
	gen := &generatorStub{
		generateTextFn: func(_ context.Context, prompt string) (string, error) {
			gotPrompt = prompt
			return "There are 12 potholes on record.", nil
		},
	}
	svc := NewAIService(gen, issues)

	answer, err := svc.AnswerQuery(context.Background(), "how many potholes are reported?")
	require.NoError(t, err)
	assert.Equal(t, "There are 12 potholes on record.", answer)
	assert.Contains(t, gotPrompt, "Total issues in database: 17")
	assert.Contains(t, gotPrompt, "Issues reported today: 3")
}

func TestAnswerQueryFallsBackToSummary(t *testing.T) {
	issues := noopIssueRepo()
	issues.countByCategoryFn = func(_ context.Context) (map[string]int64, error) {
		return map[string]int64{"pothole": 2, "other": 1}, nil
	}
	issues.countSinceFn = func(_ context.Context, _ time.Time) (int64, error) { return 1, nil }

	svc := NewAIService(nil, issues)

	answer, err := svc.AnswerQuery(context.Background(), "total issue count?")
	require.NoError(t, err)
	assert.Contains(t, answer, "Total issues: 3")
	assert.Contains(t, answer, "Today's issues: 1")
	assert.Contains(t, answer, "pothole: 2")
}

func TestAnswerQueryGenericFallback(t *testing.T) {
	svc := NewAIService(nil, noopIssueRepo())

	answer, err := svc.AnswerQuery(context.Background(), "what's the weather like?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer, "I'm here to help with city-related issues"))
}

func TestAnswerQueryRequiresQuery(t *testing.T) {
	svc := NewAIService(nil, noopIssueRepo())

	_, err := svc.AnswerQuery(context.Background(), "  ")
	assert.Error(t, err)
}
