package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/voxlate/voxlate/pkg/cli"
	"github.com/voxlate/voxlate/pkg/history"
	"github.com/voxlate/voxlate/pkg/kv"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse the translation history",
	Long: `List past translations, oldest first.

--filter runs a jq expression over the JSON record list and prints each
result on its own line.

Examples:
  voxlate history
  voxlate history --limit 10
  voxlate history --json
  voxlate history --filter '.[] | select(.sourceLanguage == "chinese") | .translatedText'
  voxlate history clear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log, closeLog, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer closeLog()

		records, err := log.Records(ctx)
		if err != nil {
			return err
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(records) > limit {
			records = records[len(records)-limit:]
		}

		if expr, _ := cmd.Flags().GetString("filter"); expr != "" {
			results, err := applyFilter(records, expr)
			if err != nil {
				return err
			}
			for _, r := range results {
				line, err := json.Marshal(r)
				if err != nil {
					return err
				}
				fmt.Println(string(line))
			}
			return nil
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return cli.Output(records, cli.OutputOptions{Format: cli.FormatJSON})
		}

		if len(records) == 0 {
			fmt.Println("No translations yet.")
			return nil
		}
		st := styles()
		for _, rec := range records {
			header := fmt.Sprintf("%s  %s → %s",
				rec.Timestamp.Format("2006-01-02 15:04:05"),
				rec.SourceLanguage, rec.TargetLanguage)
			fmt.Println(st.Dim.Render(header))
			fmt.Println(st.TranscriptLine(true, rec.OriginalText))
			fmt.Println(st.TranscriptLine(false, rec.TranslatedText))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log, closeLog, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer closeLog()

		if err := log.Clear(ctx); err != nil {
			return err
		}
		cli.PrintSuccess("History cleared.")
		return nil
	},
}

// openHistory opens the on-disk history log. The caller must invoke the
// returned close function.
func openHistory(ctx context.Context) (*history.Log, func() error, error) {
	dir := ""
	if s, err := GetSettings(); err == nil {
		dir = s.HistoryDir
	}
	if dir == "" {
		base, err := dataDir()
		if err != nil {
			return nil, nil, err
		}
		dir = filepath.Join(base, "history")
	}

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, nil, fmt.Errorf("open history database: %w", err)
	}
	log, err := history.Open(ctx, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return log, store.Close, nil
}

// applyFilter runs a jq expression over the record list and returns
// every produced value.
func applyFilter(records []history.Record, expr string) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}

	// Round-trip through JSON so the query sees plain maps with the
	// records' JSON field names.
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	var out []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func init() {
	historyCmd.Flags().Int("limit", 0, "show only the most recent N records")
	historyCmd.Flags().Bool("json", false, "output as JSON (for piping)")
	historyCmd.Flags().String("filter", "", "jq expression applied to the record list")

	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
