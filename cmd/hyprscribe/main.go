package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/hyprscribe/internal/bus"
	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/daemon"
	"github.com/leonardotrapani/hyprscribe/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "hyprscribe",
	Short:         "Live transcription with speakers and notes",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		startCmd(),
		stopCmd(),
		toggleCmd(),
		statusCmd(),
		versionCmd(),
		quitCmd(),
		speakerCmd(),
		noteCmd(),
		transcriptCmd(),
		notesCmd(),
		exportCmd(),
		archiveCmd(),
		modelCmd(),
		configureCmd(),
		doctorCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrCreate()
			if err != nil {
				return err
			}
			logging.Init(cfg.ToLoggingConfig())

			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return daemon.New(mgr).Run()
		},
	}
}

// send delivers one command to the daemon and prints its reply. ERR replies become errors.
func send(cmdName string, args ...string) (bus.Response, error) {
	resp, err := bus.Send(cmdName, args...)
	if err != nil {
		return resp, fmt.Errorf("%w (is 'hyprscribe serve' running?)", err)
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

func printResponse(resp bus.Response) {
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
	if resp.Body != "" {
		fmt.Print(resp.Body)
	}
}

func simpleCmd(use, short, busCmd, failure string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send(busCmd)
			if err != nil {
				return fmt.Errorf("%s: %w", failure, err)
			}
			printResponse(resp)
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	return simpleCmd("start", "Start recording", "start", "failed to start recording")
}

func stopCmd() *cobra.Command {
	return simpleCmd("stop", "Stop recording", "stop", "failed to stop recording")
}

func toggleCmd() *cobra.Command {
	return simpleCmd("toggle", "Toggle recording on/off", "toggle", "failed to toggle recording")
}

func statusCmd() *cobra.Command {
	return simpleCmd("status", "Get current session status", "status", "failed to get status")
}

func versionCmd() *cobra.Command {
	return simpleCmd("version", "Get daemon and protocol version", "version", "failed to get version")
}

func quitCmd() *cobra.Command {
	return simpleCmd("quit", "Stop the daemon", "quit", "failed to stop daemon")
}

var errDaemonUnreachable = errors.New("daemon not reachable")
