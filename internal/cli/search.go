package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search sessions with a plain-language query",
	Long: `Search the session corpus with a plain-language query.

Examples:
  sessionscout search "sessions about leadership"
  sessionscout search "workshops by Marissa next month"
  sessionscout search "upcoming events"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")

		resp, err := assistant.HandleQuery(context.Background(), userID, query)
		if err != nil {
			exitWithError("search failed: %v", err)
		}
		fmt.Println(resp.Text)
	},
}
