package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/tale-engine/internal/config"
	"github.com/jwebster45206/tale-engine/internal/logger"
	"github.com/jwebster45206/tale-engine/internal/services"
)

func playCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath)
		},
	}
}

func runPlay(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// stdout belongs to the game.
	log, closer, err := logger.SetupFile(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	log.Info("Starting adventure",
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sc, err := a.startScenario(ctx)
	if err != nil {
		return err
	}

	sess := a.newSession()
	ui := NewConsoleUI(ctx, sess, a.gateway, sc)
	p := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithMouseCellMotion())

	a.gateway.OnDowngrade(func(ev services.DowngradeEvent) {
		p.Send(downgradeMsg{event: ev})
	})

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	if m, ok := final.(ConsoleUI); ok && m.farewell != "" {
		fmt.Fprintln(os.Stdout, m.farewell)
	}
	return nil
}
