package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Mount the repository as a browsable filesystem",
	Long: `Mount the repository at the given mountpoint using FUSE. The command
blocks until interrupted; Ctrl-C unmounts and releases the repository lock.`,
	Args: cobra.ExactArgs(1),
	RunE: mountRepository,
}

func mountRepository(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	session, err := engine.Mount(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Repository mounted at %s (Ctrl-C to unmount)\n", session.Mountpoint)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("unmounting")
		return session.Unmount()
	case err := <-done:
		return err
	}
}
