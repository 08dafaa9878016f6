// Command templeshell hosts the TempleLinux display server: it binds
// the client socket, composites sessions over the terminal, and hands
// frames to the windowing presenter. Without a presenter integration
// it runs headless, which is enough for clients, tests, and PNG dumps.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/templelinux/temple/shell"
)

func defaultSockPath() string {
	if v := os.Getenv("TEMPLE_SOCK"); v != "" {
		return v
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "templeshell.sock")
}

func main() {
	var (
		sock           string
		dumpInitialPNG string
		dumpAfterPNG   string
		dumpAfterMS    int
		verbose        bool
	)

	root := &cobra.Command{
		Use:           "templeshell",
		Short:         "TempleLinux display/IPC server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				With().Timestamp().Logger().Level(level)

			if sock == "" {
				sock = defaultSockPath()
			}
			_ = os.Remove(sock)

			sh := shell.New(shell.WithLogger(log))
			if err := sh.Listen(sock); err != nil {
				return err
			}
			log.Info().Str("sock", sock).Msg("templeshell listening")
			fmt.Printf("TEMPLE_SOCK=%s\n", sock)

			if dumpInitialPNG != "" {
				sh.RequestPNG(dumpInitialPNG)
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			if dumpAfterPNG != "" {
				go func() {
					time.Sleep(time.Duration(dumpAfterMS) * time.Millisecond)
					sh.RequestPNG(dumpAfterPNG)
					time.Sleep(100 * time.Millisecond)
					stop()
				}()
			}

			sh.Run(ctx)
			_ = os.Remove(sock)
			return nil
		},
	}

	root.Flags().StringVar(&sock, "sock", "", "unix socket path (default $TEMPLE_SOCK or runtime dir)")
	root.Flags().StringVar(&dumpInitialPNG, "test-dump-initial-png", "", "write the first frame to a PNG and continue")
	root.Flags().StringVar(&dumpAfterPNG, "test-dump-after-png", "", "write a PNG after --test-dump-after-ms and exit")
	root.Flags().IntVar(&dumpAfterMS, "test-dump-after-ms", 1000, "delay for --test-dump-after-png")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "templeshell: %v\n", err)
		os.Exit(1)
	}
}
