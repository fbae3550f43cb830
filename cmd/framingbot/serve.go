package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/framingbot/internal/chat"
	"github.com/pdiddy/framingbot/internal/pipeline"
	"github.com/pdiddy/framingbot/internal/server"
	"github.com/pdiddy/framingbot/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the framing pipeline and chat engine over HTTP",
	Long: `Serve exposes the full pipeline, the Notion-mapped pipeline, and the
guided chat engine as a REST API, with an optional static frontend.
Endpoints follow the /run, /notion-run, /chat/*, and /notion-sync shape
used by the web frontend.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	backend, maxRetries, err := aiBackend(cmd)
	if err != nil {
		return err
	}

	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	srv := &server.Server{
		Pipeline: &pipeline.Runner{Backend: backend, MaxRetries: maxRetries},
		Chat:     &chat.Engine{Backend: backend, Store: s, MaxRetries: maxRetries},
		Store:    s,
	}

	// Notion is optional for serving; endpoints that need it report that it
	// is not configured.
	if client, err := notionClient(); err == nil {
		srv.Notion = client
	} else {
		fmt.Fprintf(os.Stderr, "warning: Notion disabled: %v\n", err)
	}

	srv.StaticDir, _ = cmd.Flags().GetString("static-dir")
	if srv.StaticDir == "" {
		srv.StaticDir = viper.GetString("server.static_dir")
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = viper.GetString("server.addr")
	}
	if addr == "" {
		addr = ":8080"
	}

	fmt.Fprintf(os.Stderr, "Listening on %s\n", addr)
	return srv.ListenAndServe(addr)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr config or :8080)")
	serveCmd.Flags().String("static-dir", "", "directory holding the chat frontend")
	serveCmd.Flags().String("model", "", "AI model identifier (default: ai.model config or gpt-4o)")
	serveCmd.Flags().String("data-dir", "", "base directory for persisted data (default: data)")

	rootCmd.AddCommand(serveCmd)
}
