package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kriansa/fuse-abort/internal/config"
	"github.com/kriansa/fuse-abort/internal/fusectl"
	"github.com/kriansa/fuse-abort/internal/log"
	"github.com/kriansa/fuse-abort/internal/mount"
	"github.com/kriansa/fuse-abort/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:      "fuse-abort",
		Usage:     "Force-abort the FUSE connection backing a mountpoint",
		ArgsUsage: "MOUNT_DIR",
		Description: "Resolves MOUNT_DIR to its kernel FUSE connection by scanning the\n" +
			"mount table and writes to the connection's abort file under the\n" +
			"fusectl control filesystem. This wakes up any I/O blocked on an\n" +
			"unresponsive FUSE daemon so the mount can be taken down.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file path",
				Value:   config.DefaultConfigPath,
			},
			&cli.StringFlag{
				Name:  "control-dir",
				Usage: "Directory where the fusectl filesystem is mounted",
			},
			&cli.StringFlag{
				Name:  "mountinfo",
				Usage: "Mount table to scan",
			},
			&cli.BoolFlag{
				Name:    "detach",
				Aliases: []string{"d"},
				Usage:   "Lazily unmount the target after aborting",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"V"},
				Usage:   "Print version information",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// Handle version flag
	if cmd.Bool("version") {
		fmt.Println(version.String())
		return nil
	}

	if cmd.Args().Len() != 1 {
		_ = cli.ShowAppHelp(cmd)
		return fmt.Errorf("expected exactly one MOUNT_DIR argument")
	}
	target := cmd.Args().First()

	// Setup logging
	log.Setup(cmd.Bool("verbose"))

	// Load config file
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Merge CLI flags (CLI takes precedence)
	cfg.Merge(
		cmd.String("control-dir"),
		cmd.String("mountinfo"),
	)

	// Apply defaults
	cfg.ApplyDefaults()

	// Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctl := fusectl.New(cfg.ControlDir, cfg.MountInfoPath, mount.NewSyscallMounter())

	if err := ctl.EnsureMounted(); err != nil {
		return err
	}

	id, err := ctl.ResolveConnection(target)
	if errors.Is(err, fusectl.ErrNotMounted) {
		// Not an error: there is simply nothing to abort
		fmt.Printf("%s is not backed by an active fuse mount\n", target)
		return nil
	}
	if err != nil {
		return err
	}

	log.Debug("resolved fuse connection", "target", target, "id", id)

	if err := ctl.Abort(id); err != nil {
		return err
	}

	if cmd.Bool("detach") {
		if err := ctl.Detach(target); err != nil {
			return err
		}
		log.Info("detached mountpoint", "target", target)
	}

	return nil
}
