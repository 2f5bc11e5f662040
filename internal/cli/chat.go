package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ashahq/sessionscout/internal/llm"
	"github.com/ashahq/sessionscout/internal/metrics"
	"github.com/ashahq/sessionscout/internal/models"
)

var (
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	goodbyeStyle = lipgloss.NewStyle().Faint(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive career guidance chat",
	Long: `Start an interactive chat. Session discovery queries are answered from
the corpus; everything else goes to the configured chat model for general
career advice.

In-chat commands:
  /reset     forget the conversation context
  /context   show the sessions currently remembered
  /stats     show runtime statistics
  exit, quit leave the chat`,
	Run: func(cmd *cobra.Command, args []string) {
		runChat(context.Background())
	},
}

func runChat(ctx context.Context) {
	// Advice generation is optional; the discovery flow works without it.
	advisor, err := llm.NewModel(cfg)
	if err != nil {
		slog.Warn("chat model unavailable, session discovery only", "error", err)
		advisor = nil
	}

	fmt.Println("Hi! Ask me about sessions (\"workshops about interviewing\") or anything career related.")
	fmt.Println("Type 'exit' to leave.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit", "bye":
			fmt.Println(goodbyeStyle.Render("Good luck out there!"))
			return
		case "/reset":
			assistant.ResetContext(userID)
			fmt.Println("Context cleared.")
			continue
		case "/context":
			printContext()
			continue
		case "/stats":
			printStats()
			continue
		}

		fmt.Println(answer(ctx, advisor, line))
		fmt.Println()
	}
}

// answer routes one utterance: discovery queries and followups go to the
// assistant, the rest to the advice model.
func answer(ctx context.Context, advisor *llm.Model, line string) string {
	if assistant.IsSearchQuery(userID, line) {
		resp, err := assistant.HandleQuery(ctx, userID, line)
		if err != nil {
			return fmt.Sprintf("Sorry, something went wrong: %v", err)
		}
		return resp.Text
	}

	if advisor == nil {
		return "I can only help with finding sessions right now. Try \"sessions about leadership\"."
	}

	// Ground the advice in what the user was already shown.
	var shown []models.Session
	for _, r := range assistant.RememberedSessions(userID) {
		shown = append(shown, r.Session)
	}

	start := time.Now()
	text, err := advisor.Advise(ctx, line, shown)
	if err != nil {
		return fmt.Sprintf("The advice model is unavailable: %v", err)
	}
	collector.RecordTiming(metrics.OpAdvise, time.Since(start))
	return text
}

func printStats() {
	snap := collector.Snapshot()
	fmt.Printf("Uptime: %.0fs\n", snap.UptimeSeconds)
	for op, s := range snap.Operations {
		fmt.Printf("  %-12s %4d calls, avg %.0fms (min %dms, max %dms)\n",
			op, s.Count, s.AvgTimeMs, s.MinTimeMs, s.MaxTimeMs)
	}
	for kind, n := range snap.Outcomes {
		fmt.Printf("  answered %-10s %d\n", kind, n)
	}
}

func printContext() {
	remembered := assistant.RememberedSessions(userID)
	if len(remembered) == 0 {
		fmt.Println("Nothing remembered yet.")
		return
	}
	for i, r := range remembered {
		fmt.Printf("%2d. %s (relevance %.2f, mentioned %d times)\n",
			i+1, r.Session.Title, r.Relevance, r.Mentions)
	}
}
