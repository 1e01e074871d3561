package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/pkg/errors"
)

var (
	statsKey    string
	statsCaller string
)

// NewStatsCmd creates the stats command.
func NewStatsCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise complaint frequency for a location or identifier",
		Long:  "Count historical cases matching a location name or slope/tree identifier,\nwith subject-matter and case-type breakdowns and the covered date range.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&statsKey, "key", "", "Location name or slope/tree identifier (required)")
	flags.StringVar(&statsCaller, "caller", "", "Restrict the cohort to cases from this caller")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func runStats(cmd *cobra.Command, opts *RootOptions) error {
	if err := validOutput(opts.Output); err != nil {
		return err
	}
	if strings.TrimSpace(statsKey) == "" {
		return errors.New(errors.ErrCodeValidation, "--key is required")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	engine, err := buildEngine(ctx, opts, cfg, logger)
	if err != nil {
		return err
	}

	stats, err := engine.Stats(ctx, casefile.StatsQuery{
		Key:        statsKey,
		CallerName: statsCaller,
	})
	if err != nil {
		return err
	}

	if strings.ToLower(opts.Output) == "json" {
		return printJSON(stats)
	}
	printStatsReport(stats, opts.NoColor)
	return nil
}

func printStatsReport(stats *casefile.LocationStatistics, noColor bool) {
	fmt.Printf("Key: %s\n", stats.Key)
	fmt.Printf("Total cases: %d\n", stats.TotalCases)

	if stats.IsFrequent {
		label := "FREQUENT COMPLAINT SUBJECT"
		if !noColor {
			label = color.RedString(label)
		}
		fmt.Println(label)
	}

	if stats.DateRange != nil {
		fmt.Printf("Date range: %s to %s\n",
			stats.DateRange.Earliest.Format("2006-01-02"),
			stats.DateRange.Latest.Format("2006-01-02"))
	}

	printBreakdown("Subject matter", stats.SubjectMatterBreakdown)
	printBreakdown("Case type", stats.CaseTypeBreakdown)
	fmt.Printf("\nSnapshot generation: %d\n", stats.Generation)
}

func printBreakdown(title string, breakdown map[string]int) {
	if len(breakdown) == 0 {
		return
	}

	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	// Highest count first, ties alphabetically.
	sort.Slice(keys, func(i, j int) bool {
		if breakdown[keys[i]] != breakdown[keys[j]] {
			return breakdown[keys[i]] > breakdown[keys[j]]
		}
		return keys[i] < keys[j]
	})

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{title, "Cases"})
	for _, k := range keys {
		table.Append([]string{k, fmt.Sprintf("%d", breakdown[k])})
	}
	table.Render()
	fmt.Printf("\n%s", buf.String())
}
