package results

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
)

func sampleRecords() []acting.Metrics {
	return []acting.Metrics{
		{ID: "a", Strategy: "lookahead", Seed: 1, Success: true, Outcome: acting.OutcomeDelivered, Steps: 10, DecompositionCalls: 10, TotalReward: 11, TotalPlanningTime: 0.002, Fidelity: 1},
		{ID: "b", Strategy: "lazy-lookahead", Seed: 1, Success: true, Outcome: acting.OutcomeDelivered, Steps: 12, DecompositionCalls: 2, TotalReward: 9, TotalPlanningTime: 0.001, Fidelity: 0.5, FailureReplans: 1, NoEffectActions: 2},
		{ID: "c", Strategy: "lookahead", Seed: 2, Success: false, Outcome: acting.OutcomeNoPlan, Steps: 0, DecompositionCalls: 1, TotalReward: 0, TotalPlanningTime: 0.004, Fidelity: 0},
	}
}

func TestSummarize(t *testing.T) {
	sums := Summarize(sampleRecords())
	require.Len(t, sums, 2)

	la := sums[0]
	assert.Equal(t, "lookahead", la.Strategy)
	assert.Equal(t, 2, la.Episodes)
	assert.Equal(t, 1, la.Successes)
	assert.InDelta(t, 0.5, la.SuccessRate(), 1e-9)
	assert.InDelta(t, 5.0, la.AvgSteps, 1e-9)
	assert.InDelta(t, 5.5, la.AvgDecompositions, 1e-9)
	assert.InDelta(t, 0.5, la.AvgFidelity, 1e-9)
	assert.InDelta(t, float64(3*time.Millisecond), float64(la.AvgPlanningTime), float64(time.Microsecond))
	assert.Equal(t, 1, la.Outcomes[acting.OutcomeNoPlan])

	lz := sums[1]
	assert.Equal(t, "lazy-lookahead", lz.Strategy)
	assert.Equal(t, 1, lz.FailureReplans)
	assert.Equal(t, 2, lz.NoEffectActions)

	assert.Empty(t, Summarize(nil))
	assert.Zero(t, Summary{}.SuccessRate())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, Summarize(sampleRecords()), false))
	out := buf.String()
	assert.Contains(t, out, "STRATEGY COMPARISON")
	assert.Contains(t, out, "lazy-lookahead")
	assert.Contains(t, out, "50.0%")
	assert.NotContains(t, out, "\x1b[")
}

func TestEpisodeLine(t *testing.T) {
	recs := sampleRecords()
	assert.Contains(t, EpisodeLine(recs[0], false), "[ OK ]")
	assert.Contains(t, EpisodeLine(recs[2], false), "[FAIL]")
	assert.Contains(t, EpisodeLine(recs[2], true), "\x1b[")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"b", "lazy-lookahead", "1", "true", "delivered", "12", "2", "9", "0.001000", "0.5000", "0", "0", "2", "1"}, rows[2])
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, Summarize(sampleRecords())))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Average decomposition calls")
	assert.Contains(t, html, "lazy-lookahead")

	path := filepath.Join(t.TempDir(), "out", "report.html")
	require.NoError(t, WriteReportFile(path, Summarize(sampleRecords())))
}

func TestJSONLSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.jsonl")
	sink, err := NewJSONLSink(path)
	require.NoError(t, err)
	assert.Equal(t, path, sink.Path())

	ctx := context.Background()
	for _, m := range sampleRecords() {
		require.NoError(t, sink.Write(ctx, m))
	}
	require.NoError(t, sink.Close())

	got, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, acting.OutcomeNoPlan, got[2].Outcome)
	assert.Equal(t, 1, got[1].FailureReplans)
}

func TestJSONLSink_BadPath(t *testing.T) {
	_, err := NewJSONLSink(filepath.Join(t.TempDir(), "missing", "x.jsonl"))
	assert.Error(t, err)
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	sink, err := NewRedisSink(RedisOptions{URL: "redis://" + mr.Addr(), Key: "episodes"})
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	for _, m := range sampleRecords() {
		require.NoError(t, sink.Write(ctx, m))
	}

	items, err := mr.List("episodes")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, strings.Contains(items[0], `"id":"a"`))

	got, err := sink.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].ID)
}

func TestRedisSink_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisSink(RedisOptions{URL: "redis://" + addr, ConnectTimeout: 200 * time.Millisecond})
	assert.Error(t, err)

	_, err = NewRedisSink(RedisOptions{URL: "not a url"})
	assert.Error(t, err)
}

func TestSinks_FanOut(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	s := Sinks(a, b)
	require.NoError(t, s.Write(context.Background(), sampleRecords()[0]))
	require.NoError(t, s.Close())
	assert.Len(t, a.Records(), 1)
	assert.Len(t, b.Records(), 1)
}
