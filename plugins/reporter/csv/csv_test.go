package csv

import (
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spamstat/pkg/contract"
)

func sample() contract.Report {
	avg := 4.5
	return contract.Report{
		RunID:  "r",
		Labels: []contract.Label{"ham", "spam"},
		Classes: []contract.ClassSummary{
			{
				Label: "ham", Records: 2, Tokens: 4, DistinctStems: 3,
				Sorted:        []contract.StemCount{{Stem: "hello", Count: 2}, {Stem: "call", Count: 1}, {Stem: "world", Count: 1}},
				Top:           []contract.StemCount{{Stem: "hello", Count: 2}, {Stem: "call", Count: 1}},
				AvgStemLength: &avg, AvgMessageLength: &avg,
				StemLengths: []int{5, 4, 5}, MessageLengths: []int{10},
			},
			{Label: "spam", Note: contract.NoDataNote},
		},
		Records: []contract.RecordRow{{FileID: "a.csv", Index: 0, Label: "ham", Raw: "Hello, world", Normalized: "hello world", Filtered: "hello world", Stemmed: "hello world"}},
	}
}

func readAll(t *testing.T, a contract.Artifact) [][]string {
	t.Helper()
	rows, err := csv.NewReader(a.Body).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRenderArtifacts(t *testing.T) {
	arts, err := New(nil).Render(context.Background(), sample())
	require.NoError(t, err)
	var ids []contract.ArtifactID
	for _, a := range arts {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []contract.ArtifactID{
		"stats.csv",
		"freq_ham.csv", "top_ham.csv", "lengths_ham.csv",
		"freq_spam.csv", "top_spam.csv", "lengths_spam.csv",
	}, ids)

	stats := readAll(t, arts[0])
	assert.Equal(t, []string{"ham", "2", "0", "4", "3", "4.5000", "4.5000", ""}, stats[1])
	assert.Equal(t, []string{"spam", "0", "0", "0", "0", "", "", contract.NoDataNote}, stats[2])

	freq := readAll(t, arts[1])
	assert.Equal(t, [][]string{{"stem", "count"}, {"hello", "2"}, {"call", "1"}, {"world", "1"}}, freq)

	top := readAll(t, arts[2])
	assert.Equal(t, [][]string{{"rank", "stem", "count"}, {"1", "hello", "2"}, {"2", "call", "1"}}, top)

	lengths := readAll(t, arts[3])
	assert.Equal(t, []string{"message", "10"}, lengths[len(lengths)-1])
	assert.Len(t, lengths, 5)

	assert.Equal(t, [][]string{{"stem", "count"}}, readAll(t, arts[4]))
}

func TestRenderRecordsNoLengths(t *testing.T) {
	off := false
	r := New(&Options{IncludeRecords: true, Lengths: &off})
	assert.True(t, r.WantRecords())
	arts, err := r.Render(context.Background(), sample())
	require.NoError(t, err)
	require.Len(t, arts, 6)
	last := arts[len(arts)-1]
	assert.Equal(t, contract.ArtifactID("records.csv"), last.ID)
	rows := readAll(t, last)
	assert.Equal(t, []string{"a.csv", "0", "ham", "Hello, world", "hello world", "hello world", "hello world"}, rows[1])
}

func TestRenderUnsafeLabelName(t *testing.T) {
	rep := contract.Report{Classes: []contract.ClassSummary{{Label: "../Promo X"}}}
	arts, err := New(nil).Render(context.Background(), rep)
	require.NoError(t, err)
	assert.Equal(t, contract.ArtifactID("freq____promo_x.csv"), arts[1].ID)
}

func TestRenderCollidingLabelNames(t *testing.T) {
	rep := contract.Report{Classes: []contract.ClassSummary{
		{Label: "a b", Sorted: []contract.StemCount{{Stem: "x", Count: 1}}},
		{Label: "a_b", Sorted: []contract.StemCount{{Stem: "y", Count: 2}}},
		{Label: "spam!"},
		{Label: "spam?"},
		{Label: "a_b_2"},
	}}
	arts, err := New(nil).Render(context.Background(), rep)
	require.NoError(t, err)

	seen := map[contract.ArtifactID]int{}
	for _, a := range arts {
		seen[a.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "工件 %s 重复输出", id)
	}
	for _, id := range []contract.ArtifactID{
		"freq_a_b.csv", "freq_a_b_2.csv", "freq_spam_.csv", "freq_spam__4.csv", "freq_a_b_2_5.csv",
		"top_a_b_2.csv", "lengths_spam__4.csv",
	} {
		assert.Contains(t, seen, id)
	}

	// 同名片段下各自保留自己的频次表
	body := map[contract.ArtifactID][][]string{}
	for _, a := range arts {
		rows, err := csv.NewReader(a.Body).ReadAll()
		require.NoError(t, err)
		body[a.ID] = rows
	}
	assert.Equal(t, [][]string{{"stem", "count"}, {"x", "1"}}, body["freq_a_b.csv"])
	assert.Equal(t, [][]string{{"stem", "count"}, {"y", "2"}}, body["freq_a_b_2.csv"])
	// stats.csv 保留原始标签
	assert.Equal(t, "a b", body["stats.csv"][1][0])
	assert.Equal(t, "a_b", body["stats.csv"][2][0])
}
