package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/framingbot/internal/pipeline"
	"github.com/pdiddy/framingbot/pkg/types"
)

var frameCmd = &cobra.Command{
	Use:   "frame <idea>",
	Short: "Run the full framing pipeline on a raw research idea",
	Long: `Frame transforms a raw research idea into a structured framing artifact.
The pipeline aggregates keyword observations into an epistemic profile,
derives rule-engine directives, and runs the generation skills in order:
tension, position, research questions, method, contribution, coherence
check, and bilingual abstract.

With --notion the Notion-mapped variant runs instead, producing the flat
record shape of the framing database; add --write to create the page.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFrame,
}

func runFrame(cmd *cobra.Command, args []string) error {
	rawInput := strings.TrimSpace(strings.Join(args, " "))
	if rawInput == "" {
		return fmt.Errorf("idea cannot be empty")
	}

	backend, maxRetries, err := aiBackend(cmd)
	if err != nil {
		return err
	}
	runner := &pipeline.Runner{Backend: backend, MaxRetries: maxRetries}

	notionMode, _ := cmd.Flags().GetBool("notion")
	if notionMode {
		return runFrameNotion(cmd, runner, rawInput)
	}

	keywordsFile, _ := cmd.Flags().GetString("keywords")
	var observations []types.KeywordObservation
	if keywordsFile != "" {
		observations, err = loadObservationsFile(keywordsFile)
		if err != nil {
			return err
		}
	}

	state, err := runner.Run(context.Background(), rawInput, observations, os.Stderr)
	if err != nil {
		return err
	}
	return writeArtifact(cmd, state)
}

func runFrameNotion(cmd *cobra.Command, runner *pipeline.Runner, rawInput string) error {
	owner, _ := cmd.Flags().GetString("owner")

	framing, err := runner.RunNotion(context.Background(), rawInput, owner, os.Stderr)
	if err != nil {
		return err
	}

	write, _ := cmd.Flags().GetBool("write")
	if write {
		client, err := notionClient()
		if err != nil {
			return err
		}
		ref, err := client.WriteFraming(context.Background(), *framing)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Created Notion page %s (%s)\n", ref.ID, ref.URL)
	}

	return writeArtifact(cmd, framing)
}

// loadObservationsFile reads a YAML file holding a list of keyword
// observations (term, orientation, weight). A missing weight field defaults
// to 1.0; an explicit zero is kept as-is.
func loadObservationsFile(path string) ([]types.KeywordObservation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keywords file: %w", err)
	}
	var rows []struct {
		Term        string   `yaml:"term"`
		Orientation string   `yaml:"orientation"`
		Weight      *float64 `yaml:"weight"`
	}
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing keywords file %s: %w", path, err)
	}

	observations := make([]types.KeywordObservation, len(rows))
	for i, row := range rows {
		weight := float64(types.DefaultWeight)
		if row.Weight != nil {
			weight = *row.Weight
		}
		observations[i] = types.KeywordObservation{
			Term:        row.Term,
			Orientation: types.Orientation(row.Orientation),
			Weight:      weight,
		}
	}
	return observations, nil
}

// writeArtifact prints v as YAML (default) or JSON, to stdout or --output.
func writeArtifact(cmd *cobra.Command, v any) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var (
		data []byte
		err  error
	)
	if jsonOutput {
		data, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	} else {
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
		return nil
	}

	_, err = os.Stdout.Write(data)
	return err
}

func init() {
	frameCmd.Flags().String("keywords", "", "YAML file of keyword observations (term, orientation, weight)")
	frameCmd.Flags().String("model", "", "AI model identifier (default: ai.model config or gpt-4o)")
	frameCmd.Flags().Bool("notion", false, "run the Notion-mapped pipeline variant")
	frameCmd.Flags().Bool("write", false, "with --notion, write the framing record to the Notion database")
	frameCmd.Flags().String("owner", "", "owner recorded on the framing artifact")
	frameCmd.Flags().Bool("json", false, "output as JSON instead of YAML")
	frameCmd.Flags().String("output", "", "write output to a file instead of stdout")

	rootCmd.AddCommand(frameCmd)
}
