// Package agent is the read-only query collaborator: an interactive REPL
// over stdin plus an HTTP API over the same queries. It never writes to the
// archive; the sync daemon owns all writes.
package agent

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const defaultLimit = 20

// REPL answers archive queries line by line.
type REPL struct {
	db  *sql.DB
	in  *bufio.Scanner
	out io.Writer
}

// NewREPL builds a REPL reading commands from in and printing to out.
func NewREPL(db *sql.DB, in io.Reader, out io.Writer) *REPL {
	return &REPL{db: db, in: bufio.NewScanner(in), out: out}
}

// Run reads commands until exit or EOF.
func (r *REPL) Run() error {
	fmt.Fprintln(r.out, "chronicle agent. Type 'help' for commands.")
	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := r.dispatch(line); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

func (r *REPL) dispatch(line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "help":
		r.printHelp()
		return nil
	case "stats":
		return r.stats()
	case "recent":
		limit := defaultLimit
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 1 {
				return fmt.Errorf("usage: recent [count]")
			}
			limit = n
		}
		return r.recent(limit)
	case "search":
		if rest == "" {
			return fmt.Errorf("usage: search <term>")
		}
		return r.search(rest)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "commands:")
	fmt.Fprintln(r.out, "  stats            message counts per channel")
	fmt.Fprintln(r.out, "  recent [count]   newest messages across channels")
	fmt.Fprintln(r.out, "  search <term>    messages containing term")
	fmt.Fprintln(r.out, "  exit             leave the agent")
}

func (r *REPL) stats() error {
	counts, err := queryStats(r.db)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Fprintln(r.out, "archive is empty")
		return nil
	}
	for _, c := range counts {
		fmt.Fprintf(r.out, "%s/%s\t%d\n", c.Source, c.Channel, c.MessageCount)
	}
	return nil
}

func (r *REPL) recent(limit int) error {
	messages, err := queryRecent(r.db, limit)
	if err != nil {
		return err
	}
	r.printMessages(messages)
	return nil
}

func (r *REPL) search(term string) error {
	messages, err := querySearch(r.db, term, defaultLimit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintf(r.out, "no messages match %q\n", term)
		return nil
	}
	r.printMessages(messages)
	return nil
}

func (r *REPL) printMessages(messages []messageRow) {
	for _, m := range messages {
		content := ""
		if m.Content != nil {
			content = *m.Content
		}
		created := "unknown"
		if m.CreatedAt != nil {
			created = *m.CreatedAt
		}
		fmt.Fprintf(r.out, "[%s] %s/%s: %s\n", created, m.Source, m.Channel, content)
	}
}
