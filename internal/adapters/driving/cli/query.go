package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

var (
	queryBudget   int
	queryLanguage string
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Gather evidence for a research question",
	Long: `Decomposes the question into weighted keywords, queries the local
corpus and remote sources in parallel, and prints the deduplicated,
ranked evidence assembled into the context budget.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryBudget, "budget", "b", 0, "context size budget in bytes (0 = default)")
	queryCmd.Flags().StringVarP(&queryLanguage, "language", "l", "", "language hint for decomposition")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	budget := queryBudget
	if budget <= 0 && configStore != nil {
		budget = configStore.GetInt("context.budget")
	}

	assembled, report, err := retrievalService.Retrieve(
		cmd.Context(), args[0], queryLanguage, domain.SizeBudget(budget))
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, assembled, report)
	}
	return outputQueryText(cmd, assembled, report)
}

func outputQueryJSON(cmd *cobra.Command, assembled domain.AssembledContext, report domain.AggregationReport) error {
	payload := struct {
		Context domain.AssembledContext  `json:"context"`
		Report  domain.AggregationReport `json:"report"`
	}{assembled, report}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryText(cmd *cobra.Command, assembled domain.AssembledContext, report domain.AggregationReport) error {
	if assembled.IsEmpty() {
		if report.TotalFailure() {
			cmd.Println("No evidence found: all sources were unavailable or empty.")
		} else {
			cmd.Println("No evidence found.")
		}
		printSourceReport(cmd, report)
		return nil
	}

	cmd.Printf("Evidence (%d items, %d bytes of %d budget):\n\n", len(assembled.Items), assembled.Size, assembled.Budget)
	for i, item := range assembled.Items {
		ev := item.Evidence
		marker := ""
		if ev.Seen {
			marker = " [seen]"
		}
		if item.Truncated {
			marker += " [truncated]"
		}
		cmd.Printf("  [%d] %s (%s, %.2f)%s\n", i+1, ev.Title, ev.Source, ev.Score, marker)
		if ev.Reference != "" {
			cmd.Printf("      %s\n", ev.Reference)
		}
		if ev.Body != "" {
			cmd.Printf("      %s\n", snippet(ev.Body, 200))
		}
		cmd.Println()
	}

	if assembled.Dropped > 0 {
		cmd.Printf("%d lower-ranked items did not fit the budget.\n", assembled.Dropped)
	}
	printSourceReport(cmd, report)
	return nil
}

func printSourceReport(cmd *cobra.Command, report domain.AggregationReport) {
	cmd.Println("Sources:")
	for _, sr := range report.Sources {
		line := fmt.Sprintf("  %-12s %s (%d items)", sr.Source, sr.Status.Code, sr.Returned)
		if sr.Status.Reason != "" {
			line += " - " + sr.Status.Reason
		}
		cmd.Println(line)
	}
	if report.FallbackTriggered {
		cmd.Println("  web search fallback was consulted")
	}
}

// snippet truncates body text for display at a rune boundary.
func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
