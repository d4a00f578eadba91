// Package main is the entry point for the Outfit Studio TUI application.
// It initializes configuration, services, and runs the Bubble Tea program.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/outfit-studio/internal/app"
	"github.com/dmelo/outfit-studio/internal/config"
	"github.com/dmelo/outfit-studio/internal/logger"
	"github.com/dmelo/outfit-studio/internal/services"
	"github.com/dmelo/outfit-studio/internal/ui/tabs/account"
	"github.com/dmelo/outfit-studio/internal/ui/tabs/generate"
	"github.com/dmelo/outfit-studio/internal/ui/tabs/keys"
	"github.com/dmelo/outfit-studio/internal/ui/tabs/swap"
	"github.com/dmelo/outfit-studio/internal/version"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run contains the main application logic, separated for cleaner error handling.
func run() error {
	// 1. Load configuration from .env files and environment variables
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Route logs to a file so they do not corrupt the alternate screen
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		logger.SetOutput(logFile)
	}

	// 3. Initialize the service manager
	// This opens the local store and restores any persisted session and key
	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	// 4. Create the root Bubble Tea model
	model := app.NewModel(svcManager)

	// 5. Initialize tabs with shared state and services
	state := model.GetState()
	cmds := model.GetCommands()
	tabs := []app.Tab{
		swap.New(state, cmds, svcManager.Swap()),         // Tab 0: outfit swap
		generate.New(state, cmds, svcManager.Generate()), // Tab 1: text to image
		account.New(state, cmds),                         // Tab 2: session and usage
		keys.New(state, cmds, svcManager.Keys()),         // Tab 3: API key
	}
	model.SetTabs(tabs)

	// 6. Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	// This blocks until the user quits or an error occurs
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// printUsage prints the command-line usage information.
func printUsage() {
	fmt.Println(`Outfit Studio TUI - outfit swap and image generation client

Usage:
  outfit-studio [flags]

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Keyboard Shortcuts:
  F1-F4           Switch between tabs (Swap, Generate, Account, API Key)
  Ctrl+Right/Left Next / previous tab
  Ctrl+S          Submit the active form
  Ctrl+O          Save the last result to the gallery
  Ctrl+H          Toggle help
  Ctrl+C          Quit

Environment Variables:
  API_BASE_URL          Backend base URL (default: http://localhost:8000)
  STORE_PATH            SQLite store path
  GALLERY_DIR           Directory for saved images
  API_KEY_FILE          Optional key drop-file to watch
  LOG_FILE              Log file path
  GOOGLE_CLIENT_ID      OAuth client ID for sign-in
  GOOGLE_CLIENT_SECRET  OAuth client secret
  GOOGLE_REFRESH_TOKEN  OAuth refresh token
  HTTP_TIMEOUT          Request timeout (default: 120s)

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/outfit-studio/.env
  - ~/.outfit-studio/.env

For more information, visit: https://github.com/dmelo/outfit-studio`)
}
