package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/internal/demo"
	"github.com/aretw0/undolog/internal/logging"
	"github.com/aretw0/undolog/internal/presentation/tui"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/muesli/termenv"
)

const helpText = `# Commands

- ` + "`hi <name>`" + `: greet someone (one transaction)
- ` + "`undo [n|all]`" + `: reverse the newest n transactions (default 1)
- ` + "`purge [n|all]`" + `: finalize transactions without reversing them (default all)
- ` + "`merge [n|all]`" + `: coalesce the newest n transactions into one (default all)
- ` + "`handle <tx>`" + `: reverse one transaction wherever it sits in the log
- ` + "`log`" + `: show the transaction log
- ` + "`board`" + `: show the greetings
- ` + "`quit`" + `: purge what is left and leave
`

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

// Shell is an interactive front end for one demo session.
type Shell struct {
	sess   *demo.Session
	out    *termenv.Output
	render func(string) (string, error)
	prompt bool
	logger *slog.Logger
}

// ShellOption configures a Shell.
type ShellOption func(*Shell)

// WithPrompt prints a prompt before each line. Use it when input is a terminal.
func WithPrompt(enabled bool) ShellOption {
	return func(s *Shell) {
		s.prompt = enabled
	}
}

// WithRenderer sets the markdown renderer used for help and log output.
func WithRenderer(render func(string) (string, error)) ShellOption {
	return func(s *Shell) {
		s.render = render
	}
}

// WithLogger sets the shell logger.
func WithLogger(logger *slog.Logger) ShellOption {
	return func(s *Shell) {
		s.logger = logger
	}
}

// NewShell creates a shell over sess writing to out.
func NewShell(sess *demo.Session, out *termenv.Output, opts ...ShellOption) *Shell {
	s := &Shell{
		sess:   sess,
		out:    out,
		render: tui.NewRenderer(false),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads commands from in until EOF, quit or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if s.prompt {
			fmt.Fprint(s.out, s.out.String("undolog> ").Bold())
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		err := s.Exec(scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			s.printError(err)
		}
	}
}

// Exec runs one command line.
func (s *Shell) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	s.logger.Debug("Shell command", "cmd", cmd, "args", args)

	switch cmd {
	case "hi":
		if len(args) == 0 {
			return errors.New("usage: hi <name>")
		}
		tx, words, err := s.sess.Greet(strings.Join(args, " "))
		if err != nil {
			return err
		}
		s.printf("tx %d: %s\n", tx, strings.Join(words, " "))
	case "undo":
		count, all, err := parseCount(args, false)
		if err != nil {
			return err
		}
		remaining, err := s.sess.Undo(count, all)
		return s.report("undone", remaining, err)
	case "purge":
		count, all, err := parseCount(args, true)
		if err != nil {
			return err
		}
		remaining, err := s.sess.Purge(count, all)
		return s.report("purged", remaining, err)
	case "merge":
		count, all, err := parseCount(args, true)
		if err != nil {
			return err
		}
		tx := s.sess.Merge(count, all)
		s.printf("merged into tx %d, %d left\n", tx, s.sess.Log.Len())
	case "handle":
		if len(args) != 1 {
			return errors.New("usage: handle <tx>")
		}
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid transaction id %q", args[0])
		}
		remaining, err := s.sess.UndoHandle(domain.TxID(id))
		return s.report("undone", remaining, err)
	case "log":
		return s.printMarkdown(logTable(s.sess.Log.Entries()))
	case "board":
		s.printBoard()
	case "help", "?":
		return s.printMarkdown(helpText)
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func parseCount(args []string, defaultAll bool) (int, bool, error) {
	if len(args) == 0 {
		return 1, defaultAll, nil
	}
	if args[0] == "all" {
		return 0, true, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false, fmt.Errorf("invalid count %q", args[0])
	}
	return n, false, nil
}

func (s *Shell) report(verb string, remaining int, err error) error {
	if undolog.IsNothing(err) {
		s.printf("%s\n", s.out.String(err.Error()).Faint())
		return nil
	}
	if err != nil {
		return err
	}
	s.printf("%s, %d left\n", verb, remaining)
	return nil
}

func logTable(entries []domain.TxInfo) string {
	if len(entries) == 0 {
		return "*log is empty*\n"
	}
	var b strings.Builder
	b.WriteString("| tx | label | steps | merged |\n|---|---|---|---|\n")
	for _, e := range entries {
		merged := make([]string, len(e.Merged))
		for i, id := range e.Merged {
			merged[i] = strconv.FormatUint(uint64(id), 10)
		}
		fmt.Fprintf(&b, "| %d | %s | %d | %s |\n", e.ID, e.Label, e.Steps, strings.Join(merged, " "))
	}
	return b.String()
}

func (s *Shell) printMarkdown(md string) error {
	out, err := s.render(md)
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Fprint(s.out, out)
	return nil
}

func (s *Shell) printBoard() {
	entries := s.sess.Board.Entries()
	if len(entries) == 0 {
		s.printf("%s\n", s.out.String("(empty board)").Faint())
		return
	}
	for _, g := range entries {
		line := s.out.String(strings.Join(g.Words, " "))
		if g.Final {
			line = line.Foreground(s.out.Color("2"))
		}
		s.printf("%3d  %s\n", g.ID, line)
	}
}

func (s *Shell) printError(err error) {
	prefix := "error"
	if domain.IsUsageError(err) {
		prefix = "usage error"
	}
	s.printf("%s: %v\n", s.out.String(prefix).Foreground(s.out.Color("1")), err)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
