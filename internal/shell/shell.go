// Package shell implements the interactive query shell.
//
// The shell keeps one current statistic and answers summary, dates and
// select against it. On a terminal it runs a go-prompt REPL with
// completion; otherwise it reads one command per line from its input.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/query"
)

var log = logging.Component("shell")

// errExit ends the shell loop.
var errExit = errors.New("exit")

// Shell is an interactive query session.
type Shell struct {
	ctx      context.Context
	resolver *query.Resolver
	explorer *query.Explorer
	out      io.Writer

	statistic string
	engine    *query.Engine
	done      bool
}

// New creates a shell starting on statistic. explorer may be nil, which
// disables the sql command.
func New(ctx context.Context, resolver *query.Resolver, explorer *query.Explorer, statistic string, out io.Writer) *Shell {
	return &Shell{
		ctx:       ctx,
		resolver:  resolver,
		explorer:  explorer,
		out:       out,
		statistic: statistic,
	}
}

var commands = []prompt.Suggest{
	{Text: "use", Description: "use <statistic>: switch the current statistic"},
	{Text: "summary", Description: "per-zone mean, std and IQR"},
	{Text: "dates", Description: "list row indices and dates"},
	{Text: "select", Description: "select <i> [<j>...]: show rows in the given order"},
	{Text: "series", Description: "print the JSON payload of the current statistic"},
	{Text: "sql", Description: "sql <query>: run SQL over the persisted tables"},
	{Text: "help", Description: "list commands"},
	{Text: "exit", Description: "leave the shell"},
}

// Run reads commands until exit or end of input. in is only used when it
// is not a terminal.
func (s *Shell) Run(in *os.File) error {
	if term.IsTerminal(int(in.Fd())) {
		s.runPrompt()
		return nil
	}
	return s.runLines(in)
}

func (s *Shell) runPrompt() {
	p := prompt.New(
		func(line string) {
			if err := s.Execute(line); err != nil && err != errExit {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
		},
		s.complete,
		prompt.OptionTitle("zonalseries"),
		prompt.OptionLivePrefix(func() (string, bool) {
			return s.statistic + "> ", true
		}),
		prompt.OptionSetExitCheckerOnInput(func(_ string, breakline bool) bool {
			return breakline && s.done
		}),
	)
	p.Run()
}

func (s *Shell) runLines(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		err := s.Execute(scanner.Text())
		if err == errExit {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (s *Shell) complete(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	if strings.HasPrefix(before, "use ") {
		var stats []prompt.Suggest
		for _, st := range s.statistics() {
			stats = append(stats, prompt.Suggest{Text: st})
		}
		return prompt.FilterHasPrefix(stats, d.GetWordBeforeCursor(), true)
	}
	if strings.Contains(before, " ") {
		return nil
	}
	return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
}

func (s *Shell) statistics() []string {
	if s.explorer == nil {
		return nil
	}
	return s.explorer.Views()
}

// Execute runs one command line.
func (s *Shell) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit", "quit":
		s.done = true
		return errExit

	case "help":
		for _, c := range commands {
			fmt.Fprintf(s.out, "  %-8s %s\n", c.Text, c.Description)
		}
		return nil

	case "use":
		if len(args) != 1 {
			return fmt.Errorf("usage: use <statistic>")
		}
		s.statistic = args[0]
		s.engine = nil
		return nil

	case "summary":
		e, err := s.currentEngine()
		if err != nil {
			return err
		}
		RenderSummary(s.out, e.SummaryOrdered())
		return nil

	case "dates":
		e, err := s.currentEngine()
		if err != nil {
			return err
		}
		RenderDates(s.out, e.Dates())
		return nil

	case "select":
		indices, err := ParseIndices(args)
		if err != nil {
			return err
		}
		e, err := s.currentEngine()
		if err != nil {
			return err
		}
		t, err := e.Select(indices)
		if err != nil {
			return err
		}
		RenderTable(s.out, t)
		return nil

	case "series":
		resp, err := s.resolver.GetSeries(s.ctx, s.statistic)
		if err != nil {
			return err
		}
		if resp.Remapped {
			fmt.Fprintf(s.out, "%s is not allowed, showing %s\n", resp.Requested, resp.Resolved)
		}
		fmt.Fprintln(s.out, string(resp.Data))
		return nil

	case "sql":
		if s.explorer == nil {
			return fmt.Errorf("sql is not available")
		}
		if len(args) == 0 {
			return fmt.Errorf("usage: sql <query>")
		}
		if err := s.explorer.Refresh(); err != nil {
			return err
		}
		q := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "sql"))
		res, err := s.explorer.ExecuteSQL(s.ctx, q)
		if err != nil {
			return err
		}
		RenderSQL(s.out, res)
		return nil
	}

	return fmt.Errorf("unknown command %q (try help)", cmd)
}

// currentEngine returns the engine of the current statistic, resolving
// and building it on first use.
func (s *Shell) currentEngine() (*query.Engine, error) {
	if s.engine != nil {
		return s.engine, nil
	}

	e, res, rebuilt, err := s.resolver.Engine(s.ctx, s.statistic)
	if err != nil {
		return nil, err
	}
	if res.Remapped {
		fmt.Fprintf(s.out, "%s is not allowed, using %s\n", res.Requested, res.Resolved)
		s.statistic = res.Resolved
	}
	if rebuilt {
		log.Info("series built on demand", "statistic", res.Resolved)
	}

	s.engine = e
	return e, nil
}

// ParseIndices parses row indices given as separate or comma separated
// arguments.
func ParseIndices(args []string) ([]int, error) {
	var out []int
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part == "" {
				continue
			}
			i, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("index %q: %w", part, errors.ErrInvalidIndex)
			}
			out = append(out, i)
		}
	}
	return out, nil
}
