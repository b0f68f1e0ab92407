package localmatch

import (
	"testing"

	"secureshield-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var siteDocs = []models.Document{
	{Text: "Our claims process is simple and efficient, allowing you to get back to normal quickly.", Source: "Claims"},
	{Text: "SecureShield offers discounts for bundling multiple insurance policies together.", Source: "Discounts"},
	{Text: "We provide 24/7 customer support for all your insurance questions and concerns.", Source: "Support"},
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"what", "24x7", "support", "the", "policy"},
		Tokens("What is 24x7 support? A to the POLICY!"))
	assert.Empty(t, Tokens("a an of"))
}

func TestSearch_Empty(t *testing.T) {
	assert.Empty(t, New().Search("anything", 3))
}

func TestSearch_RanksByCosine(t *testing.T) {
	m := New(siteDocs...)
	assert.Equal(t, 3, m.Len())

	got := m.Search("how do discounts for bundling work", 3)
	require.Len(t, got, 3)
	assert.Equal(t, "Discounts", got[0].Document.Source)
	assert.Greater(t, got[0].Score, got[1].Score)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestSearch_KBounds(t *testing.T) {
	m := New(siteDocs...)
	assert.Len(t, m.Search("claims", 1), 1)
	assert.Len(t, m.Search("claims", 0), DefaultK)
	assert.Len(t, m.Search("claims", 10), 3)
}

func TestSearch_NoOverlapScoresZero(t *testing.T) {
	m := New(siteDocs...)
	for _, match := range m.Search("zebra", 3) {
		assert.Zero(t, match.Score)
	}
}

func TestReply(t *testing.T) {
	m := New(siteDocs...)
	tests := []struct {
		message string
		want    string
	}{
		{"Hello there", "Hello! How can I help you with our insurance services today?"},
		{"hey", "Hello! How can I help you with our insurance services today?"},
		{"How can I reach you?", "You can contact us at (555) 123-4567 or email us at info@secureshield.com."},
		{"What does a policy cost?", cannedReplies[2].text},
		{"Do you insure cars?", cannedReplies[3].text},
		{"Is my house covered?", cannedReplies[4].text},
		{"Tell me about health plans", cannedReplies[5].text},
		{"life policies", cannedReplies[6].text},
		{"which claims process applies", "Based on what I know about Claims: " + siteDocs[0].Text},
		{"zebra crossing", NoInfoReply},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Answer(tt.message, 3))
		})
	}
}

func TestReply_NoDocuments(t *testing.T) {
	assert.Equal(t, NoInfoReply, New().Answer("what about claims", 3))
}
