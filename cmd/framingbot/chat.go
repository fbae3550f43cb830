package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/framingbot/internal/chat"
	"github.com/pdiddy/framingbot/internal/store"
	"github.com/pdiddy/framingbot/pkg/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Work through a framing in a guided terminal conversation",
	Long: `Chat starts a guided conversation that walks a research idea through
tension discovery, positioning, question sharpening, and method and
contribution, extracting framing fields as each phase completes.

In-conversation commands: /framing shows the current framing, /check runs
the coherence check, /abstract generates the bilingual abstract, /save
writes the framing to Notion, and /quit ends the session. Sessions are
persisted; resume one with --session.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	backend, maxRetries, err := aiBackend(cmd)
	if err != nil {
		return err
	}

	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	engine := &chat.Engine{Backend: backend, Store: s, MaxRetries: maxRetries}
	ctx := context.Background()

	sessionID, _ := cmd.Flags().GetString("session")
	var session *types.Session
	if sessionID != "" {
		session, err = s.LoadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		fmt.Printf("Resuming session %s (phase: %s)\n\n", session.ID, session.Phase)
	} else {
		owner, _ := cmd.Flags().GetString("owner")
		session, err = engine.Start(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s\n\n", session.ID)
		fmt.Printf("agent> %s\n\n", session.Messages[0].Content)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := chatCommand(ctx, engine, session.ID, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}

		result, err := engine.Message(ctx, session.ID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Printf("\nagent> %s\n\n", result.AgentMessage)
		if result.ExtractionHappened {
			fmt.Fprintf(os.Stderr, "[phase: %s]\n", result.Phase)
		}
		if result.Phase == types.PhaseComplete {
			fmt.Println("Framing complete. Use /framing to review or /save to push to Notion.")
		}
	}
	return scanner.Err()
}

// chatCommand handles slash commands. Returns true when the session should end.
func chatCommand(ctx context.Context, engine *chat.Engine, sessionID, line string) (bool, error) {
	switch line {
	case "/quit", "/exit":
		fmt.Println("Session saved. Resume with --session", sessionID)
		return true, nil

	case "/framing":
		session, err := engine.Store.LoadSession(ctx, sessionID)
		if err != nil {
			return false, err
		}
		data, err := yaml.Marshal(session.Framing)
		if err != nil {
			return false, err
		}
		os.Stdout.Write(data)
		return false, nil

	case "/check":
		notes, err := engine.LogicCheck(ctx, sessionID)
		if err != nil {
			return false, err
		}
		data, err := yaml.Marshal(notes)
		if err != nil {
			return false, err
		}
		os.Stdout.Write(data)
		return false, nil

	case "/abstract":
		en, zh, err := engine.Abstract(ctx, sessionID)
		if err != nil {
			return false, err
		}
		fmt.Printf("EN: %s\n\nZH: %s\n", en, zh)
		return false, nil

	case "/save":
		session, err := engine.Store.LoadSession(ctx, sessionID)
		if err != nil {
			return false, err
		}
		client, err := notionClient()
		if err != nil {
			return false, err
		}
		ref, err := client.WriteFraming(ctx, session.Framing)
		if err != nil {
			return false, err
		}
		fmt.Printf("Saved to Notion: %s\n", ref.URL)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /framing, /check, /abstract, /save, /quit)", line)
	}
}

func init() {
	chatCmd.Flags().String("owner", "", "owner recorded on the framing artifact")
	chatCmd.Flags().String("session", "", "resume an existing session by ID")
	chatCmd.Flags().String("model", "", "AI model identifier (default: ai.model config or gpt-4o)")
	chatCmd.Flags().String("data-dir", "", "base directory for persisted data (default: data)")

	rootCmd.AddCommand(chatCmd)
}
