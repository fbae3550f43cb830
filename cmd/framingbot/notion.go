package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/framingbot/internal/store"
)

var notionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Sync keywords and framing records with Notion databases",
}

// --- fetch-keywords subcommand ---

var notionFetchKeywordsCmd = &cobra.Command{
	Use:   "fetch-keywords",
	Short: "Fetch the keyword database from Notion into the local library",
	Long: `Fetch-keywords pages through the Notion keyword database and imports
every valid row into the local keyword library. Rows with an empty term
or an unrecognized role are skipped on the Notion side; role labels are
normalized (lower-cased, spaces to underscores) before matching.`,
	RunE: runNotionFetchKeywords,
}

func runNotionFetchKeywords(cmd *cobra.Command, args []string) error {
	client, err := notionClient()
	if err != nil {
		return err
	}

	observations, err := client.FetchKeywords(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Fetched %d keyword(s) from Notion\n", len(observations))

	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.ImportObservations(context.Background(), os.Stdout, observations)
	return err
}

// --- push subcommand ---

var notionPushCmd = &cobra.Command{
	Use:   "push <session-id>",
	Short: "Write a session's framing to the Notion framing database",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotionPush,
}

func runNotionPush(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	session, err := s.LoadSession(context.Background(), args[0])
	if err != nil {
		return err
	}

	client, err := notionClient()
	if err != nil {
		return err
	}

	ref, err := client.WriteFraming(context.Background(), session.Framing)
	if err != nil {
		return err
	}
	fmt.Printf("Created Notion page %s\n%s\n", ref.ID, ref.URL)
	return nil
}

// --- pull subcommand ---

var notionPullCmd = &cobra.Command{
	Use:   "pull <page-id>",
	Short: "Read a framing record back from a Notion page",
	Long: `Pull fetches a framing page from Notion and prints it. With --session
the fetched framing also replaces the framing of a stored session.`,
	Args: cobra.ExactArgs(1),
	RunE: runNotionPull,
}

func runNotionPull(cmd *cobra.Command, args []string) error {
	client, err := notionClient()
	if err != nil {
		return err
	}

	framing, err := client.ReadFraming(context.Background(), args[0])
	if err != nil {
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID != "" {
		s, err := store.NewStore(storeConfig(cmd))
		if err != nil {
			return err
		}
		defer s.Close()

		session, err := s.LoadSession(context.Background(), sessionID)
		if err != nil {
			return err
		}
		session.Framing = framing
		if err := s.SaveSession(context.Background(), session); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Updated session %s\n", sessionID)
	}

	return writeArtifact(cmd, framing)
}

// --- push-keywords subcommand ---

var notionPushKeywordsCmd = &cobra.Command{
	Use:   "push-keywords <observations.yaml>",
	Short: "Create keyword database rows in Notion from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotionPushKeywords,
}

func runNotionPushKeywords(cmd *cobra.Command, args []string) error {
	observations, err := loadObservationsFile(args[0])
	if err != nil {
		return err
	}

	client, err := notionClient()
	if err != nil {
		return err
	}

	n, err := client.PushKeywords(context.Background(), observations)
	if err != nil {
		return err
	}
	fmt.Printf("Created %d keyword row(s)\n", n)
	return nil
}

func init() {
	notionCmd.PersistentFlags().String("data-dir", "", "base directory for persisted data (default: data)")

	notionPullCmd.Flags().String("session", "", "session ID to update with the pulled framing")
	notionPullCmd.Flags().Bool("json", false, "output as JSON instead of YAML")
	notionPullCmd.Flags().String("output", "", "write output to a file instead of stdout")

	notionCmd.AddCommand(notionFetchKeywordsCmd)
	notionCmd.AddCommand(notionPushCmd)
	notionCmd.AddCommand(notionPullCmd)
	notionCmd.AddCommand(notionPushKeywordsCmd)

	rootCmd.AddCommand(notionCmd)
}
