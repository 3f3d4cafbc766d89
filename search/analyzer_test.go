package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
)

func TestAnalyzer_Classify(t *testing.T) {
	m, err := rules.Default().Compile()
	require.NoError(t, err)
	a := NewAnalyzer(m)

	tests := []struct {
		query string
		want  core.QueryType
	}{
		{"シルデナフィル", core.QueryTypeIngredient},
		{"カマグラゴールド", core.QueryTypeProductName},
		{"頭痛がひどい", core.QueryTypeSymptom},
		{"美容・スキンケア", core.QueryTypeCategory},
		{"ケアプロスト", core.QueryTypeProductName},
		{"おすすめは？", core.QueryTypeGeneral},
		{"", core.QueryTypeGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Classify(tt.query))
		})
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	m, err := rules.Default().Compile()
	require.NoError(t, err)

	qc := NewAnalyzer(m).Analyze("薄毛のお薬")
	assert.Equal(t, "薄毛のお薬", qc.Raw)
	assert.Equal(t, core.QueryTypeSymptom, qc.Type)
	assert.Equal(t, []string{"AGA改善", "ミノキシジル", "フィナステリド"}, qc.Keywords)
}
