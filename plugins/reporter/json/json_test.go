package json

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spamstat/pkg/contract"
)

func sample() contract.Report {
	avg := 4.0
	return contract.Report{
		RunID:  "run-1",
		Labels: []contract.Label{"ham", "spam"},
		Classes: []contract.ClassSummary{
			{
				Label: "ham", Records: 2, Tokens: 4, DistinctStems: 3,
				Table:  map[string]int{"hello": 2, "call": 1, "world": 1},
				Sorted: []contract.StemCount{{Stem: "hello", Count: 2}, {Stem: "call", Count: 1}, {Stem: "world", Count: 1}},
				Top:    []contract.StemCount{{Stem: "hello", Count: 2}},
				AvgStemLength: &avg, AvgMessageLength: &avg,
				StemLengths: []int{5, 4, 5}, MessageLengths: []int{10, 11},
			},
			{Label: "spam", Note: contract.NoDataNote},
		},
		Records: []contract.RecordRow{{FileID: "a.csv", Label: "ham", Raw: "Hello"}},
	}
}

func render(t *testing.T, r *Reporter, rep contract.Report) map[string]any {
	t.Helper()
	arts, err := r.Render(context.Background(), rep)
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.Equal(t, contract.ArtifactID("report.json"), arts[0].ID)
	b, err := io.ReadAll(arts[0].Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestRenderShape(t *testing.T) {
	out := render(t, New(nil), sample())
	assert.Equal(t, "run-1", out["run_id"])
	assert.NotContains(t, out, "records")

	classes := out["classes"].([]any)
	require.Len(t, classes, 2)
	ham := classes[0].(map[string]any)
	assert.Equal(t, map[string]any{"hello": 2.0, "call": 1.0, "world": 1.0}, ham["table"])
	assert.Len(t, ham["sorted"], 3)
	assert.Len(t, ham["top"], 1)
	assert.Equal(t, 4.0, ham["avg_stem_length"])

	spam := classes[1].(map[string]any)
	assert.Nil(t, spam["avg_stem_length"])
	assert.Equal(t, contract.NoDataNote, spam["note"])
	assert.Equal(t, []any{}, spam["top"])
	assert.Equal(t, []any{}, spam["sorted"])
	assert.Equal(t, map[string]any{}, spam["table"])
}

func TestRenderRecordsAndName(t *testing.T) {
	off := false
	r := New(&Options{IncludeRecords: true, Indent: &off, FileName: "out.json"})
	assert.True(t, r.WantRecords())
	arts, err := r.Render(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, contract.ArtifactID("out.json"), arts[0].ID)
	b, _ := io.ReadAll(arts[0].Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Len(t, out["records"], 1)
	assert.NotContains(t, string(b), "\n  ")
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Render(ctx, sample())
	assert.ErrorIs(t, err, context.Canceled)
}
