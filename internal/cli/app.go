// Package cli implements the dispatchctl command table on top of the module services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"street-dispatch/internal/modules/dataimport"
	"street-dispatch/internal/modules/reports"
	"street-dispatch/internal/modules/requests"
	"street-dispatch/internal/modules/routes"
	"street-dispatch/internal/modules/streets"
	"street-dispatch/internal/modules/users"

	"github.com/spf13/pflag"
)

// Importer applies an import document.
type Importer interface {
	Run(ctx context.Context, doc *dataimport.Document, clear bool) (*dataimport.Summary, error)
}

// Services is everything a command may call. Init prepares the schema.
type Services struct {
	Users    users.ServiceInterface
	Streets  streets.ServiceInterface
	Routes   routes.ServiceInterface
	Requests requests.ServiceInterface
	Reports  reports.ServiceInterface
	Importer Importer
	Init     func(ctx context.Context) error
}

type command struct {
	usage string
	run   func(ctx context.Context, a *App, args []string) error
}

type App struct {
	svc    Services
	out    io.Writer
	logger *slog.Logger
}

func New(svc Services, out io.Writer, logger *slog.Logger) *App {
	return &App{svc: svc, out: out, logger: logger}
}

var errUsage = errors.New("invalid arguments")

// Run executes one command and returns the process exit code. Outcome lines and
// "Error: ..." lines go to the app's writer; nothing panics out of a command.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	name, rest := resolve(args)
	cmd, ok := commands[name]
	if !ok {
		a.printf("Unknown command: %s\n", strings.Join(args, " "))
		a.usage()
		return 2
	}

	err := cmd.run(ctx, a, rest)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		a.printf("Error: %s\n", err)
		a.printf("Usage: dispatchctl %s %s\n", name, cmd.usage)
		return 2
	}

	a.logger.Warn("command failed", slog.String("command", name), slog.String("error", err.Error()))
	a.printf("Error: %s\n", err)
	return 1
}

// resolve splits "group command --flags" into the table key and the flag arguments.
func resolve(args []string) (string, []string) {
	if _, ok := commands[args[0]]; ok {
		return args[0], args[1:]
	}
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		return args[0] + " " + args[1], args[2:]
	}
	return args[0], args[1:]
}

func (a *App) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	a.printf("Usage: dispatchctl <command> [flags]\n\nCommands:\n")
	for _, name := range names {
		a.printf("  %-22s %s\n", name, commands[name].usage)
	}
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// flagSet returns a FlagSet that reports parse errors instead of exiting.
func (a *App) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parse parses args and checks that every flag in required was given.
func parse(fs *pflag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	var missing []string
	for _, name := range required {
		if !fs.Changed(name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", errUsage, strings.Join(missing, ", "))
	}
	return nil
}
