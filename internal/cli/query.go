package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryAsk  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryText == "" {
			return fmt.Errorf("query is required (-q)")
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		if queryAsk {
			answer, err := a.assembler.Answer(ctx, queryText, nil)
			if err != nil {
				return err
			}
			fmt.Println(answer.Text)
			if answer.Found {
				fmt.Printf("\nconfidence: %s  sources: %s\n",
					answer.ConfidenceLabel, strings.Join(answer.SourceFiles, ", "))
			}
			return nil
		}

		results, err := a.engine.Retrieve(ctx, queryText, usecase.RetrieveOptions{TopK: queryTopK})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. [%.3f] %s (%s)\n", i+1, r.Score, r.Filename, r.Source)
			fmt.Printf("   %s\n\n", snippet(r.Chunk.Content, 200))
		}
		return nil
	},
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

func init() {
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query")
	queryCmd.Flags().IntVarP(&queryTopK, "top", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryAsk, "ask", false, "generate a grounded answer instead of listing chunks")
	rootCmd.AddCommand(queryCmd)
}
