package report

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReporter(t *testing.T, dir string) *Reporter {
	t.Helper()
	r, err := NewReporter(dir, zap.NewNop())
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	return r
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	rows, err := rd.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestReportDeduplicatesUnchangedInput(t *testing.T) {
	dir := t.TempDir()
	r := newTestReporter(t, dir)

	markets := []string{"a-1", "b-1"}
	approved := []string{"opp-1"}

	wrote, err := r.Report(Snapshot{Iteration: 1, MarketIDs: markets, DetectedIDs: []string{"opp-1", "opp-2"}, ApprovedIDs: approved})
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = r.Report(Snapshot{Iteration: 2, MarketIDs: markets, DetectedIDs: []string{"opp-1", "opp-2"}, ApprovedIDs: approved})
	require.NoError(t, err)
	require.False(t, wrote, "unchanged hashes suppress the row")

	wrote, err = r.Report(Snapshot{Iteration: 3, MarketIDs: markets, DetectedIDs: []string{"opp-1", "opp-2", "opp-3"}, ApprovedIDs: append(approved, "opp-3")})
	require.NoError(t, err)
	require.True(t, wrote)

	rows := readCSV(t, r.SummaryPath())
	require.Len(t, rows, 4, "title row, header row, two data rows")
	require.Equal(t, "TIMESTAMP", rows[1][0])
	require.Len(t, rows[1], 13)

	first, second := rows[2], rows[3]
	require.Equal(t, "1", first[2])
	require.Equal(t, "INITIAL", first[10])
	require.Equal(t, "3", second[2])
	require.Equal(t, "UPDATED", second[10])
	require.Equal(t, "+1", second[8], "approved delta")

	var state reportState
	raw, err := os.ReadFile(r.StatePath())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &state))
	require.Len(t, state.MarketIDsHash, 64)
	require.Len(t, state.ApprovedOppIDsHash, 64)
	require.NotEmpty(t, state.LastUpdated)
}

func TestReportSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	markets := []string{"a-1", "b-1"}
	approved := []string{"opp-1"}

	r1 := newTestReporter(t, dir)
	wrote, err := r1.Report(Snapshot{Iteration: 1, MarketIDs: markets, ApprovedIDs: approved})
	require.NoError(t, err)
	require.True(t, wrote)

	// A fresh process sees the durable hashes and stays quiet.
	r2 := newTestReporter(t, dir)
	wrote, err = r2.Report(Snapshot{Iteration: 1, MarketIDs: markets, ApprovedIDs: approved})
	require.NoError(t, err)
	require.False(t, wrote)

	rows := readCSV(t, r2.SummaryPath())
	require.Len(t, rows, 3)
}

func TestReportRewritesWhenCSVMissing(t *testing.T) {
	dir := t.TempDir()
	markets := []string{"a-1"}

	r := newTestReporter(t, dir)
	_, err := r.Report(Snapshot{Iteration: 1, MarketIDs: markets})
	require.NoError(t, err)

	require.NoError(t, os.Remove(r.SummaryPath()))

	wrote, err := r.Report(Snapshot{Iteration: 2, MarketIDs: markets})
	require.NoError(t, err)
	require.True(t, wrote, "a missing CSV forces a write even with matching hashes")

	rows := readCSV(t, r.SummaryPath())
	require.Len(t, rows, 3, "headers are rewritten for the recreated file")
}

func TestReportHashOrderIndependence(t *testing.T) {
	dir := t.TempDir()
	r := newTestReporter(t, dir)

	wrote, err := r.Report(Snapshot{Iteration: 1, MarketIDs: []string{"b-1", "a-1"}, ApprovedIDs: []string{"x", "y"}})
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = r.Report(Snapshot{Iteration: 2, MarketIDs: []string{"a-1", "b-1"}, ApprovedIDs: []string{"y", "x"}})
	require.NoError(t, err)
	require.False(t, wrote, "permuted ids hash identically")
}
