// Package report persists the engine's incremental output: a deduplicated
// CSV summary keyed by content hashes and a JSONL execution trace. Both
// are restart-safe; rerunning over unchanged inputs writes nothing.
package report

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	summaryFileName = "live_summary.csv"
	stateFileName   = ".last_report_state.json"
)

// reportState is the durable dedup state.
type reportState struct {
	MarketIDsHash      string `json:"market_ids_hash"`
	ApprovedOppIDsHash string `json:"approved_opp_ids_hash"`
	LastUpdated        string `json:"last_updated"`
}

// Snapshot is one iteration's reporting input. ApprovedIDs are derived
// opportunity ids; both id slices may arrive in any order.
type Snapshot struct {
	Iteration   int
	MarketIDs   []string
	DetectedIDs []string
	ApprovedIDs []string
}

// Reporter appends deduplicated rows to the live summary CSV. Deltas are
// computed against the previous row written by this process.
type Reporter struct {
	dir    string
	logger *zap.Logger

	prevMarkets  int
	prevDetected int
	prevApproved int
	rowsWritten  int

	now func() time.Time
}

// NewReporter creates a reporter rooted at dir, creating it if needed.
func NewReporter(dir string, logger *zap.Logger) (*Reporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports directory: %w", err)
	}
	return &Reporter{dir: dir, logger: logger, now: time.Now}, nil
}

// SummaryPath returns the CSV location.
func (r *Reporter) SummaryPath() string { return filepath.Join(r.dir, summaryFileName) }

// StatePath returns the dedup state location.
func (r *Reporter) StatePath() string { return filepath.Join(r.dir, stateFileName) }

// Report writes one CSV row unless both content hashes match the stored
// state and the CSV already exists. It returns whether a row was written.
func (r *Reporter) Report(snap Snapshot) (bool, error) {
	marketHash := hashIDs(snap.MarketIDs)
	oppHash := hashIDs(snap.ApprovedIDs)

	csvPath := r.SummaryPath()
	_, statErr := os.Stat(csvPath)
	csvMissing := os.IsNotExist(statErr)

	state, err := r.loadState()
	if err != nil {
		return false, err
	}
	if !csvMissing && state != nil &&
		state.MarketIDsHash == marketHash && state.ApprovedOppIDsHash == oppHash {
		RowsSkippedTotal.Inc()
		r.logger.Debug("report-unchanged",
			zap.Int("iteration", snap.Iteration),
			zap.String("market-hash", marketHash[:12]))
		return false, nil
	}

	if err := r.appendRow(snap, marketHash, oppHash, csvMissing); err != nil {
		return false, err
	}

	now := r.now().UTC()
	if err := r.saveState(reportState{
		MarketIDsHash:      marketHash,
		ApprovedOppIDsHash: oppHash,
		LastUpdated:        now.Format(time.RFC3339),
	}); err != nil {
		return false, err
	}

	r.prevMarkets = len(snap.MarketIDs)
	r.prevDetected = len(snap.DetectedIDs)
	r.prevApproved = len(snap.ApprovedIDs)
	r.rowsWritten++
	RowsWrittenTotal.Inc()

	r.logger.Info("report-written",
		zap.Int("iteration", snap.Iteration),
		zap.Int("markets", len(snap.MarketIDs)),
		zap.Int("approved", len(snap.ApprovedIDs)))
	return true, nil
}

func (r *Reporter) appendRow(snap Snapshot, marketHash, oppHash string, fresh bool) error {
	f, err := os.OpenFile(r.SummaryPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening summary csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		title := fmt.Sprintf("CROSS-VENUE ARBITRAGE LIVE SUMMARY (started %s)",
			r.now().UTC().Format(time.RFC3339))
		if err := w.Write(padRow(title, 13)); err != nil {
			return fmt.Errorf("writing title row: %w", err)
		}
		header := []string{
			"TIMESTAMP", "READABLE_TIME", "ITERATION",
			"MARKETS", "MARKETS_Δ", "DETECTED", "DETECTED_Δ",
			"APPROVED", "APPROVED_Δ", "APPROVAL%", "STATUS",
			"MARKET_HASH", "OPP_HASH",
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("writing header row: %w", err)
		}
	}

	now := r.now().UTC()
	markets := len(snap.MarketIDs)
	detected := len(snap.DetectedIDs)
	approved := len(snap.ApprovedIDs)

	approvalPct := 0.0
	if detected > 0 {
		approvalPct = 100.0 * float64(approved) / float64(detected)
	}

	status := "UPDATED"
	if r.rowsWritten == 0 {
		status = "INITIAL"
	}

	row := []string{
		strconv.FormatInt(now.Unix(), 10),
		now.Format("2006-01-02 15:04:05"),
		strconv.Itoa(snap.Iteration),
		strconv.Itoa(markets),
		formatDelta(markets - r.prevMarkets),
		strconv.Itoa(detected),
		formatDelta(detected - r.prevDetected),
		strconv.Itoa(approved),
		formatDelta(approved - r.prevApproved),
		fmt.Sprintf("%.1f", approvalPct),
		status,
		marketHash,
		oppHash,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing summary row: %w", err)
	}

	w.Flush()
	return w.Error()
}

// loadState returns nil without error when no state file exists yet.
func (r *Reporter) loadState() (*reportState, error) {
	raw, err := os.ReadFile(r.StatePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading report state: %w", err)
	}
	var state reportState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt state file only costs one duplicate row.
		r.logger.Warn("report-state-corrupt", zap.Error(err))
		return nil, nil
	}
	return &state, nil
}

// saveState persists atomically via temp file and rename.
func (r *Reporter) saveState(state reportState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding report state: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, stateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, r.StatePath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// hashIDs returns the SHA-256 of the sorted ids joined by newline.
func hashIDs(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	h := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(h[:])
}

func formatDelta(d int) string {
	if d > 0 {
		return fmt.Sprintf("+%d", d)
	}
	return strconv.Itoa(d)
}

func padRow(first string, width int) []string {
	row := make([]string, width)
	row[0] = first
	return row
}
