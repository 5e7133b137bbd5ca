package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the accumulated live summary",
	Long: `Prints the tail of the live summary CSV and the current dedup state
from the configured reports directory.`,
	RunE: runReport,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntP("rows", "r", 10, "Number of trailing rows to print")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rows, _ := cmd.Flags().GetInt("rows")

	summaryPath := filepath.Join(cfg.ReportDir, "live_summary.csv")
	f, err := os.Open(summaryPath)
	if err != nil {
		return fmt.Errorf("no summary at %s: %w", summaryPath, err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	records, err := rd.ReadAll()
	if err != nil {
		return fmt.Errorf("reading summary: %w", err)
	}
	if len(records) < 2 {
		fmt.Println("summary is empty")
		return nil
	}

	header := records[1]
	data := records[2:]
	if len(data) > rows {
		data = data[len(data)-rows:]
	}

	fmt.Println(strings.Join(header[:11], "  "))
	for _, row := range data {
		if len(row) < 11 {
			continue
		}
		fmt.Println(strings.Join(row[:11], "  "))
	}

	statePath := filepath.Join(cfg.ReportDir, ".last_report_state.json")
	raw, err := os.ReadFile(statePath)
	if err != nil {
		return nil
	}
	var state struct {
		MarketIDsHash      string `json:"market_ids_hash"`
		ApprovedOppIDsHash string `json:"approved_opp_ids_hash"`
		LastUpdated        string `json:"last_updated"`
	}
	if err := json.Unmarshal(raw, &state); err == nil {
		fmt.Printf("\nlast updated: %s\nmarket hash:  %s\nopp hash:     %s\n",
			state.LastUpdated, state.MarketIDsHash, state.ApprovedOppIDsHash)
	}
	return nil
}
