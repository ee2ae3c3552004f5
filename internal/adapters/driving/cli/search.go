package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var (
	searchLimit   int
	searchJSON    bool
	searchFilters []string
)

var searchCmd = &cobra.Command{
	Use:   "search [profile] [query...]",
	Short: "Search a profile's indexed chunks",
	Long: `Embeds the query with the profile's embedding backends and returns the
nearest chunks from its collection. Use --filter key=value (repeatable) to
require exact payload matches, for example --filter source=cv.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringArrayVarP(&searchFilters, "filter", "f", nil, "payload filter as key=value")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return fmt.Errorf("search service: %w", errNotConfigured)
	}

	filter, err := parseFilters(searchFilters)
	if err != nil {
		return err
	}

	resp, err := searchService.Search(commandContext(cmd), domain.SearchRequest{
		Profile: args[0],
		Query:   strings.Join(args[1:], " "),
		TopK:    searchLimit,
		Filter:  filter,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if resp.Results == nil {
			resp.Results = []domain.SearchHit{}
		}
		return printJSON(cmd, resp)
	}
	if resp.Status == domain.SearchError {
		return fmt.Errorf("search failed: %s", resp.Reason)
	}
	return outputSearchTable(cmd, resp.Results)
}

// parseFilters turns key=value pairs into a payload filter. Integer and
// boolean values keep their type so they match numeric payload fields.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: filter %q must be key=value", domain.ErrInvalidInput, pair)
		}
		switch {
		case v == "true" || v == "false":
			out[k] = v == "true"
		default:
			if n, err := strconv.Atoi(v); err == nil {
				out[k] = n
			} else {
				out[k] = v
			}
		}
	}
	return out, nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchHit) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Title.Render("Results:"))
	cmd.Println()
	for i, hit := range results {
		where := hit.DocPath
		if where == "" {
			where = hit.Source
		}
		if hit.PageStart > 0 {
			where = fmt.Sprintf("%s p.%d", where, hit.PageStart)
		}

		cmd.Printf("  [%d] %s (%.3f)\n", i+1, where, hit.Score)
		if hit.Text != "" {
			snippet := strings.Join(strings.Fields(hit.Text), " ")
			cmd.Printf("      %s\n", st.Muted.Render(truncate(snippet, st.width-6)))
		}
		cmd.Println()
	}
	return nil
}
