package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
)

// scriptedModel replays canned replies in order.
type scriptedModel struct {
	replies  []string
	err      error
	calls    int
	messages []llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	reply := m.replies[min(m.calls, len(m.replies)-1)]
	m.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

var candidates = []ai.Candidate{
	{Name: "ロキソニン", Category: "鎮痛剤", Price: "980", Description: "頭痛に", Score: 0.9},
	{Name: "バファリン", Category: "鎮痛剤", Score: 0.8},
}

func TestRanker_Rank(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"```json\n{\"ranking\": [{\"name\": \"バファリン\", \"reason\": \"胃にやさしい\"}, {\"name\": \"ロキソニン\", \"reason\": \"即効性\"}], \"summary\": \"症状が続く場合は受診を\"}\n```",
	}}
	r := newRankerWithModel(model, ai.DefaultConfig())

	ranking, err := r.Rank(context.Background(), "頭痛!", candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"バファリン", "ロキソニン"}, ranking.Names())
	assert.Equal(t, "胃にやさしい", ranking.Items[0].Reason)
	assert.Equal(t, "症状が続く場合は受診を", ranking.Summary)

	require.Len(t, model.messages, 2)
	prompt := model.messages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "お客様の質問: 頭痛\n")
	assert.Contains(t, prompt, "1. ロキソニン")
	assert.Contains(t, prompt, "価格: 980円")
}

func TestRanker_RepairsAndRetries(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"not json at all",
		`{"ranking": [{name": "ロキソニン", reason": "定番"}], "summary": ""}`,
	}}
	r := newRankerWithModel(model, ai.DefaultConfig())

	ranking, err := r.Rank(context.Background(), "頭痛", candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, model.calls)
	assert.Equal(t, []string{"ロキソニン"}, ranking.Names())
}

func TestRanker_GivesUpAfterRetries(t *testing.T) {
	model := &scriptedModel{replies: []string{"garbage"}}
	r := newRankerWithModel(model, ai.DefaultConfig())

	_, err := r.Rank(context.Background(), "頭痛", candidates)
	assert.Error(t, err)
	assert.Equal(t, maxParseAttempts, model.calls)
}

func TestRanker_ModelError(t *testing.T) {
	boom := errors.New("boom")
	r := newRankerWithModel(&scriptedModel{err: boom}, ai.DefaultConfig())

	_, err := r.Rank(context.Background(), "頭痛", candidates)
	assert.ErrorIs(t, err, boom)
}

func TestRanker_NoCandidates(t *testing.T) {
	model := &scriptedModel{}
	r := newRankerWithModel(model, ai.DefaultConfig())

	ranking, err := r.Rank(context.Background(), "頭痛", nil)
	require.NoError(t, err)
	assert.Empty(t, ranking.Items)
	assert.Zero(t, model.calls)
}

func TestBuildRankingPrompt_Limits(t *testing.T) {
	many := make([]ai.Candidate, 12)
	for i := range many {
		many[i] = ai.Candidate{Name: "商品", Description: strings.Repeat("あ", 300)}
	}
	prompt := buildRankingPrompt("q", many)
	assert.Contains(t, prompt, "10. 商品")
	assert.NotContains(t, prompt, "11. 商品")
	assert.Contains(t, prompt, strings.Repeat("あ", 200)+"…")
	assert.NotContains(t, prompt, strings.Repeat("あ", 201))
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid", `{"ok": true}`, `{"ok": true}`},
		{"unquoted keys", `{name": "a", reason": "b"}`, `{"name": "a", "reason": "b"}`},
		{"trailing commas", `{"ranking": [{"name": "a"},], "summary": "s",}`, `{"ranking": [{"name": "a"}], "summary": "s"}`},
		{"surrounding prose", "以下がランキングです。\n{\"summary\": \"s\"}\nご参考まで。", `{"summary": "s"}`},
		{"japanese values untouched", `{"reason": "即効性、持続時間"}`, `{"reason": "即効性、持続時間"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}
