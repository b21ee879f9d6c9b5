package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pfrederiksen/run-events/internal/filter"
	"github.com/spf13/cobra"
)

type fetchFlags struct {
	region   string
	distance string
	month    string
	format   string
	sort     string
	verbose  bool
}

func newFetchCmd() *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Scrape all sources once and print the events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.region, "region", filter.All, "Region: india, global or all")
	cmd.Flags().StringVar(&flags.distance, "distance", filter.All, "Distance: 5k, 10k, half, marathon, ultra or all")
	cmd.Flags().StringVar(&flags.month, "month", filter.All, "Month number or name, or all")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flags.sort, "sort", string(SortByDate), "Sort order: date, title or city")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Show event details")

	return cmd
}

// parseQuery validates fetch flags into a filter query.
func (f fetchFlags) parseQuery() (filter.Query, error) {
	region := strings.ToLower(strings.TrimSpace(f.region))
	if err := filter.ValidateRegion(region); err != nil {
		return filter.Query{}, err
	}

	month, err := filter.NormalizeMonth(f.month)
	if err != nil {
		return filter.Query{}, err
	}

	return filter.Query{
		Region:   region,
		Distance: strings.ToLower(strings.TrimSpace(f.distance)),
		Month:    month,
	}, nil
}

func runFetch(cmd *cobra.Command, flags fetchFlags) error {
	format := OutputFormat(strings.ToLower(flags.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flags.format)
	}
	order, err := ParseSortOrder(flags.sort)
	if err != nil {
		return err
	}
	query, err := flags.parseQuery()
	if err != nil {
		return err
	}

	// Logs go to stderr so stdout stays parseable.
	cfg, err := loadConfig(cmd, os.Stderr)
	if err != nil {
		return err
	}
	agg, err := buildAggregator(cfg)
	if err != nil {
		return err
	}

	events, err := agg.Aggregate(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching events: %w", err)
	}

	filtered := query.Apply(events)
	sortEvents(filtered, order)

	result := &OutputResult{
		FetchedAt:  time.Now().UTC(),
		Filters:    query.String(),
		Events:     filtered,
		EventCount: len(filtered),
		Total:      len(events),
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, flags.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
