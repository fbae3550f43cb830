package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/framingbot/internal/keywords"
	"github.com/pdiddy/framingbot/internal/rules"
	"github.com/pdiddy/framingbot/internal/store"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Aggregate keyword observations and manage the local library",
}

// --- profile subcommand ---

var keywordsProfileCmd = &cobra.Command{
	Use:   "profile <observations.yaml>",
	Short: "Compute the epistemic profile and rule-engine output for observations",
	Long: `Profile aggregates a YAML file of keyword observations into a keyword
map and a normalized four-way epistemic profile, then derives the
rule-engine directives (dominant orientation, question templates, method
and contribution bias, logic pattern).`,
	Args: cobra.ExactArgs(1),
	RunE: runKeywordsProfile,
}

func runKeywordsProfile(cmd *cobra.Command, args []string) error {
	observations, err := loadObservationsFile(args[0])
	if err != nil {
		return err
	}

	keywordMap, roles, profile, err := keywords.Aggregate(observations)
	if err != nil {
		return err
	}

	ruleOutput, err := rules.Evaluate(profile, keywordMap, roles)
	if err != nil {
		return err
	}

	return writeArtifact(cmd, map[string]any{
		"keyword_map":        keywordMap,
		"epistemic_profile":  profile,
		"rule_engine_output": ruleOutput,
	})
}

// --- import subcommand ---

var keywordsImportCmd = &cobra.Command{
	Use:   "import <observations.yaml>",
	Short: "Import keyword observations into the local library",
	Long: `Import upserts observations from a YAML file into the keyword library
in the session database. Existing (term, orientation) pairs have their
weight updated; rows with unknown orientations or out-of-range weights
are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runKeywordsImport,
}

func runKeywordsImport(cmd *cobra.Command, args []string) error {
	observations, err := loadObservationsFile(args[0])
	if err != nil {
		return err
	}

	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := s.ImportObservations(context.Background(), os.Stdout, observations)
	if err != nil {
		return err
	}
	if summary.Invalid > 0 {
		return fmt.Errorf("%d observation(s) were invalid", summary.Invalid)
	}
	return nil
}

// --- list subcommand ---

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the keyword library",
	RunE:  runKeywordsList,
}

func runKeywordsList(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	observations, err := s.LoadObservations(context.Background())
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		fmt.Println("Keyword library is empty.")
		return nil
	}
	return writeArtifact(cmd, observations)
}

func init() {
	keywordsCmd.PersistentFlags().String("data-dir", "", "base directory for persisted data (default: data)")
	keywordsCmd.PersistentFlags().Bool("json", false, "output as JSON instead of YAML")
	keywordsCmd.PersistentFlags().String("output", "", "write output to a file instead of stdout")

	keywordsCmd.AddCommand(keywordsProfileCmd)
	keywordsCmd.AddCommand(keywordsImportCmd)
	keywordsCmd.AddCommand(keywordsListCmd)

	rootCmd.AddCommand(keywordsCmd)
}
