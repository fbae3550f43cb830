package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/framingbot/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and search stored framing sessions",
}

// --- list subcommand ---

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, most recent first",
	RunE:  runSessionsList,
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	summaries, err := s.ListSessions(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-32s  %-12s  %-20s  %-5s  %s\n",
		"ID", "Owner", "Phase", "Msgs", "Updated")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, sum := range summaries {
		owner := sum.Owner
		if len(owner) > 12 {
			owner = owner[:9] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-32s  %-12s  %-20s  %-5d  %s\n",
			sum.ID, owner, sum.Phase, sum.MessageCount,
			sum.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(os.Stdout, "\n%d session(s)\n", len(summaries))
	return nil
}

// --- search subcommand ---

var sessionsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over conversation messages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSessionsSearch,
}

func runSessionsSearch(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	hits, err := s.SearchMessages(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for _, hit := range hits {
		content := hit.Content
		if len(content) > 70 {
			content = content[:67] + "..."
		}
		fmt.Fprintf(os.Stdout, "%s  %-9s  %s\n", hit.SessionID, hit.Role, content)
	}
	fmt.Fprintf(os.Stdout, "\n%d result(s)\n", len(hits))
	return nil
}

func init() {
	sessionsCmd.PersistentFlags().String("data-dir", "", "base directory for persisted data (default: data)")
	sessionsCmd.PersistentFlags().Int("max-results", 20, "maximum number of search results")
	sessionsCmd.PersistentFlags().Bool("json", false, "output as JSON")

	sessionsSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsSearchCmd)

	rootCmd.AddCommand(sessionsCmd)
}
