// Command worldenginectl drives a single tab from the command line: load
// or create it at a directory, submit one piece of player input, print
// the narrator's reply, and persist the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/events"
	"github.com/Valaery/worldengine/logger"
	"github.com/Valaery/worldengine/providers"
	"github.com/Valaery/worldengine/tab"
)

// Exit codes per the Core API's CLI wrapper contract: 0 normal, 2
// configuration error, 3 persistence error, 4 unrecoverable pipeline
// error.
const (
	exitOK               = 0
	exitConfigError      = 2
	exitPersistenceError = 3
	exitPipelineError    = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("worldenginectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "tab state directory (required)")
	tabID := fs.String("tab", "default", "tab identifier")
	player := fs.String("player", "player", "player actor key")
	model := fs.String("model", "mock-narrator", "narrator model id")
	input := fs.String("input", "", "player input text for this turn (required)")
	system := fs.String("system", "You are the narrator of a text adventure.", "narrator system prompt")
	timeout := fs.Duration("timeout", 60*time.Second, "turn timeout")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}
	if *dir == "" || *input == "" {
		fmt.Fprintln(stderr, "worldenginectl: --dir and --input are required")
		return exitConfigError
	}

	registry := providers.NewRegistry()
	registry.Register(providers.NewMockProvider(*model, *model, false))

	bus := events.NewEventBus()
	tab.RegisterMetrics(bus)

	cfg := tab.Config{
		PlayerKey:            *player,
		Registry:             registry,
		NarratorModel:        *model,
		UtilityModel:         *model,
		Temperature:          0.8,
		MaxTokens:            512,
		ValidationEnabled:    true,
		MaxValidationRetries: 1,
		Dir:                  *dir,
		Bus:                  bus,
		RunID:                fmt.Sprintf("cli-%d", time.Now().UnixNano()),
		SystemPrompt:         *system,
	}

	tb, err := openTab(*tabID, *dir, cfg)
	if err != nil {
		logger.Error("worldenginectl: open tab failed", "err", err)
		return exitCodeFor(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	future, err := tb.SubmitInput(ctx, *input)
	if err != nil {
		logger.Error("worldenginectl: submit_input failed", "err", err)
		return exitCodeFor(err)
	}
	result, err := future.Wait(ctx)
	if err != nil {
		logger.Error("worldenginectl: turn failed", "err", err)
		return exitCodeFor(err)
	}

	fmt.Fprintln(stdout, result.NarratorText)
	for _, npc := range result.NPCOutputs {
		fmt.Fprintf(stdout, "%s: %s\n", npc.SpeakerKey, npc.Content)
	}

	if err := tb.Save(); err != nil {
		logger.Error("worldenginectl: save failed", "err", err)
		return exitPersistenceError
	}
	return exitOK
}

// openTab loads a tab from an existing directory, or creates a fresh one
// if dir has no world state artifact yet.
func openTab(id, dir string, cfg tab.Config) (*tab.Tab, error) {
	if _, err := os.Stat(filepath.Join(dir, "world.json")); err == nil {
		return tab.LoadTab(id, cfg)
	}
	return tab.NewTab(id, cfg)
}

// exitCodeFor maps an engineerr.Kind to the CLI's exit-code contract.
// Errors outside that taxonomy are treated as unrecoverable.
func exitCodeFor(err error) int {
	var engErr *engineerr.Error
	if errors.As(err, &engErr) {
		switch engErr.Kind {
		case engineerr.ConfigError:
			return exitConfigError
		case engineerr.PersistenceError:
			return exitPersistenceError
		}
	}
	return exitPipelineError
}
