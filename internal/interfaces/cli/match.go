package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/pkg/errors"
)

var (
	matchLocation      string
	matchSlopeNo       string
	matchSubject       string
	matchCaller        string
	matchPhone         string
	matchLimit         int
	matchMinSimilarity float64
)

// NewMatchCmd creates the match command.
func NewMatchCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank historical cases by similarity to a query case",
		Long:  "Load the configured datasets, score every historical case against the\nquery fields, and print the ranked matches.  Matches at or above the\nduplicate threshold are flagged.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatch(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&matchLocation, "location", "", "Incident location or venue")
	flags.StringVar(&matchSlopeNo, "slope-no", "", "Slope or tree identifier (e.g. 11SW-D/805)")
	flags.StringVar(&matchSubject, "subject", "", "Subject matter")
	flags.StringVar(&matchCaller, "caller", "", "Caller name")
	flags.StringVar(&matchPhone, "phone", "", "Contact number")
	flags.IntVar(&matchLimit, "limit", 0, "Maximum matches to return (0 = configured default)")
	flags.Float64Var(&matchMinSimilarity, "min-similarity", 0, "Score floor in (0,1] (0 = configured default)")

	return cmd
}

func runMatch(cmd *cobra.Command, opts *RootOptions) error {
	if err := validOutput(opts.Output); err != nil {
		return err
	}
	if matchLocation == "" && matchSlopeNo == "" && matchSubject == "" && matchCaller == "" && matchPhone == "" {
		return errors.New(errors.ErrCodeValidation,
			"at least one query field is required: --location, --slope-no, --subject, --caller, or --phone")
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

	outcome, err := engine.Rank(ctx, casefile.SimilarityQuery{
		Location:      matchLocation,
		SlopeOrTreeNo: matchSlopeNo,
		SubjectMatter: matchSubject,
		CallerName:    matchCaller,
		ContactNo:     matchPhone,
		Limit:         matchLimit,
		MinSimilarity: matchMinSimilarity,
	})
	if err != nil {
		return err
	}

	if strings.ToLower(opts.Output) == "json" {
		return printJSON(outcome)
	}
	printMatchTable(outcome, opts.NoColor)
	return nil
}

func printMatchTable(outcome *casefile.RankOutcome, noColor bool) {
	if outcome.Warning != "" {
		fmt.Printf("warning: %s\n", outcome.Warning)
	}
	if len(outcome.Results) == 0 {
		fmt.Println("No matches at or above the similarity floor.")
		fmt.Printf("Candidates considered: %d\n", outcome.CandidatesConsidered)
		return
	}

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Rank", "Score", "Duplicate", "Case No", "Dataset", "Date", "Location", "Subject"})

	for i, result := range outcome.Results {
		scoreStr := fmt.Sprintf("%.3f", result.CompositeScore)
		dupStr := ""
		if result.IsPotentialDuplicate {
			dupStr = "YES"
			if !noColor {
				scoreStr = color.RedString(scoreStr)
				dupStr = color.RedString(dupStr)
			}
		} else if result.CompositeScore >= 0.5 && !noColor {
			scoreStr = color.YellowString(scoreStr)
		}

		dateStr := ""
		if !result.Case.DateReceived.IsZero() {
			dateStr = result.Case.DateReceived.Format("2006-01-02")
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			scoreStr,
			dupStr,
			result.Case.Identifier,
			result.Case.SourceDataset,
			dateStr,
			truncateString(result.Case.Location, 40),
			truncateString(result.Case.SubjectMatter, 30),
		})
	}
	table.Render()
	fmt.Print(buf.String())

	fmt.Printf("\nCandidates considered: %d (snapshot generation %d)\n",
		outcome.CandidatesConsidered, outcome.Generation)
	if outcome.Truncated {
		fmt.Println("note: the scan was truncated by the deadline; results are partial")
	}
}
