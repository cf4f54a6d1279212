package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parnexcodes/dbxup/internal/config"
	"github.com/parnexcodes/dbxup/internal/logging"
	"github.com/parnexcodes/dbxup/internal/output"
	"github.com/parnexcodes/dbxup/internal/uploader"
	remotepkg "github.com/parnexcodes/dbxup/pkg/remote"
)

// argFilePrefix marks an argument naming a file of further arguments.
const argFilePrefix = "@"

// maxArgFileDepth bounds nested "@file" references.
const maxArgFileDepth = 8

// expandArgFiles replaces every "@name" argument with the lines of file
// name, one argument per line. Blank lines are skipped and files may
// reference further files.
func expandArgFiles(args []string) ([]string, error) {
	return expandArgFilesDepth(args, 0)
}

func expandArgFilesDepth(args []string, depth int) ([]string, error) {
	var expanded []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, argFilePrefix) || arg == argFilePrefix {
			expanded = append(expanded, arg)
			continue
		}

		if depth >= maxArgFileDepth {
			return nil, fmt.Errorf("argument files nested deeper than %d levels at %s", maxArgFileDepth, arg)
		}

		lines, err := readArgFile(strings.TrimPrefix(arg, argFilePrefix))
		if err != nil {
			return nil, err
		}
		nested, err := expandArgFilesDepth(lines, depth+1)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, nested...)
	}
	return expanded, nil
}

func readArgFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read argument file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read argument file %s: %w", path, err)
	}
	return lines, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var summary output.Handler
	if cfg.Summary != "" {
		summary, err = output.NewHandler(cfg.Summary, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to create output handler: %w", err)
		}
	}

	session, err := logging.OpenSession(logging.Options{
		Verbosity: logging.Verbosity(cfg.Verbosity),
		Console:   cmd.OutOrStdout(),
		SinkPath:  cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error closing log file: %v\n", err)
		}
	}()

	session.Banner(logging.BannerStarted)

	// Create context with cancellation
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			// A second signal terminates the process.
			signal.Stop(sigChan)
			cancel()
		case <-ctx.Done():
		}
	}()

	configSource := "CLI flags only"
	if viper.ConfigFileUsed() != "" {
		configSource = viper.ConfigFileUsed()
	}
	session.Debug("Configuration loaded from %s (backend=%s, location=%s, pps=%t, replace=%t, cleanup=%t)",
		configSource, cfg.Backend, cfg.Location, cfg.PPS, cfg.Replace, cfg.Cleanup)

	result, sessionErr := upload(ctx, session.Logger, cfg, args)

	if summary != nil {
		if err := summary.HandleResult(result, sessionErr); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing summary: %v\n", err)
		}
	}

	// Session failures are reported through the log only.
	return nil
}

// upload connects to the configured backend and runs one session. The
// start banner must already be logged.
func upload(ctx context.Context, log *logging.Logger, cfg *config.Config, paths []string) (*uploader.Result, error) {
	client, err := remotepkg.NewFactory(log).Open(ctx, cfg)
	if err != nil {
		uploader.Abort(log, err)
		return uploader.NewResult(), err
	}
	defer closeQuietly(client)

	return uploader.New(client, log, cfg.CleanupRules).Run(ctx, uploader.Request{
		Paths:         paths,
		Location:      cfg.Location,
		PreservePaths: cfg.PPS,
		Replace:       cfg.Replace,
		Cleanup:       cfg.Cleanup,
	})
}

func closeQuietly(closer io.Closer) {
	_ = closer.Close()
}
