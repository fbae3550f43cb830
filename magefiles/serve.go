//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Serve builds the CLI and runs the HTTP server with the static frontend.
func Serve() error {
	mg.Deps(Build)
	cmd := exec.Command(filepath.Join(binDir, binName), "serve", "--static-dir", "static")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// Chat builds the CLI and starts a guided framing conversation.
func Chat() error {
	mg.Deps(Build)
	cmd := exec.Command(filepath.Join(binDir, binName), "chat")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
