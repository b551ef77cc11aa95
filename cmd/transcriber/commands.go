package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/config"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/engine"

	"github.com/spf13/cobra"
)

type cli struct {
	cfgPath string
	cfg     config.TranscriberConfig
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "transcriber",
		Short:         "Transcribes conversations and attributes each turn to an enrolled speaker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			c.cfg = cfg
			setLogger(cfg.Level())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		c.processCmd(),
		c.addSpeakerCmd(),
		c.listSpeakersCmd(),
		c.removeSpeakerCmd(),
		c.identifyCmd(),
	)

	return root
}

// run builds the engine and calls fn with a context canceled on SIGINT or
// SIGTERM.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := engine.New(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			slog.Error("failed to close engine", slog.String("err", err.Error()))
		}
	}()

	return fn(ctx, e)
}

func (c *cli) processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <audio> [output]",
		Short: "Transcribe a conversation recording",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var outputPath string
			if len(args) > 1 {
				outputPath = args[1]
			}

			return c.run(cmd, func(ctx context.Context, e *engine.Engine) error {
				p, err := e.Pipeline()
				if err != nil {
					return err
				}

				start := time.Now()
				path, err := p.Process(ctx, args[0], outputPath)
				if err != nil {
					return fmt.Errorf("failed to process conversation: %w", err)
				}
				if path == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "No transcript produced for %s\n", args[0])
					return nil
				}

				slog.Info("conversation processed", slog.String("path", path), slog.Duration("elapsed", time.Since(start)))
				fmt.Fprintf(cmd.OutOrStdout(), "Transcript saved to: %s\n", path)
				return nil
			})
		},
	}
}

func (c *cli) addSpeakerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-speaker <name> <file|dir>...",
		Short: "Enroll a speaker from audio files or directories",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, e *engine.Engine) error {
				ok, err := e.Speakers().AddSpeaker(ctx, args[0], args[1:]...)
				if err != nil {
					return fmt.Errorf("failed to add speaker: %w", err)
				}
				if !ok {
					return fmt.Errorf("no embeddings extracted for %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Successfully added speaker: %s\n", args[0])
				return nil
			})
		},
	}
}

func (c *cli) listSpeakersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-speakers",
		Short: "List the enrolled speakers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(_ context.Context, e *engine.Engine) error {
				names := e.Speakers().ListSpeakers()
				if len(names) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No speakers enrolled.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Known speakers:")
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
				}
				return nil
			})
		},
	}
}

func (c *cli) removeSpeakerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-speaker <name>",
		Short: "Remove an enrolled speaker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, e *engine.Engine) error {
				ok, err := e.Speakers().RemoveSpeaker(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to remove speaker: %w", err)
				}
				if !ok {
					return fmt.Errorf("speaker %q not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed speaker: %s\n", args[0])
				return nil
			})
		},
	}
}

func (c *cli) identifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identify <clip>",
		Short: "Identify the enrolled speaker of an audio clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, e *engine.Engine) error {
				name, err := e.Speakers().IdentifySpeaker(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to identify speaker: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			})
		},
	}
}
