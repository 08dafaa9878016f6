// Command hc runs HolyC programs against a TempleShell session.
//
//	hc                     run the built-in demo
//	hc Hello.HC            run a program
//	hc ::/Demo/Graphics/NetOfDots.HC
//	hc --check Hello.HC    parse only
//
// Exit codes: 0 on success (including parse success with --check), 1 on
// I/O errors, 2 on parse errors. A broken pipe during a run (the shell
// went away) exits cleanly.
package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/templelinux/temple/hc"
	"github.com/templelinux/temple/hc/interp"
	"github.com/templelinux/temple/rt"
)

const demoSource = `
// Temple HolyC subset demo
U0 Main() {
  I64 x = SCR_W/2 - 20;
  I64 y = SCR_H/2 - 15;

  while (1) {
    Clear(0);
    FillRect(0, 0, SCR_W, 16, 4);
    Text(4, 4, 15, 4, "temple-hc demo - arrows move - Esc exits");

    FillRect(x, y, 40, 30, 10);
    FillRect(x+2, y+2, 36, 26, 12);
    Text(x+6, y+10, 0, 12, "HC");
    Present();

    I64 k = NextKey();
    if (k == CH_ESC || k == CH_SHIFT_ESC) { return; }
    if (k == KEY_LEFT) { x = x - 4; }
    if (k == KEY_RIGHT) { x = x + 4; }
    if (k == KEY_UP) { y = y - 4; }
    if (k == KEY_DOWN) { y = y + 4; }

    Sleep(16);
  }
}
`

func compile(spec string) (*hc.Program, map[string]string, error) {
	if spec == "" {
		macros := hc.BuiltinDefines()
		prog, err := hc.CompileSource("<demo>", []byte(demoSource), nil)
		return prog, macros, err
	}
	return hc.CompileProgram(spec)
}

func main() {
	var check bool

	root := &cobra.Command{
		Use:           "hc [program]",
		Short:         "HolyC runner for TempleShell",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := ""
			if len(args) == 1 {
				spec = args[0]
			}

			prog, macros, err := compile(spec)
			if err != nil {
				var parseErr *hc.ParseError
				if errors.As(err, &parseErr) {
					fmt.Fprintln(os.Stderr, parseErr)
					os.Exit(2)
				}
				fmt.Fprintf(os.Stderr, "temple-hc: %v\n", err)
				os.Exit(1)
			}
			if check {
				return nil
			}

			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				With().Timestamp().Logger().Level(zerolog.WarnLevel)

			conn, err := rt.Connect(rt.WithLogger(log))
			if err != nil {
				fmt.Fprintf(os.Stderr, "temple-hc: %v\n", err)
				os.Exit(1)
			}
			defer conn.Close()

			vm := interp.New(conn.Surface, conn, prog, macros, interp.WithLogger(log))
			if err := vm.Run(); err != nil {
				if errors.Is(err, syscall.EPIPE) {
					return nil
				}
				fmt.Fprintf(os.Stderr, "temple-hc: %v\n", err)
				os.Exit(1)
			}
			return nil
		},
	}
	root.Flags().BoolVarP(&check, "check", "c", false, "parse only, do not run")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "temple-hc: %v\n", err)
		os.Exit(1)
	}
}
