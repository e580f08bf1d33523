// Package prompt asks the operator yes/no questions before destructive work.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrNoAnswer is returned when input ends before a y or n is given.
var ErrNoAnswer = errors.New("no answer given")

// Prompter asks a question that can be answered with yes or no.
type Prompter interface {
	YesNo(ctx context.Context, question string) (bool, error)
}

// Always answers every question the same way without asking.
type Always bool

func (a Always) YesNo(context.Context, string) (bool, error) {
	return bool(a), nil
}

// Huh asks with an interactive confirm field.
type Huh struct {
	// Accessible renders a plain-text prompt for screen readers.
	Accessible bool
}

func (h Huh) YesNo(ctx context.Context, question string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithAccessible(h.Accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}

// Line reads answers one line at a time and asks again until it gets y or n.
type Line struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// NewLine returns a Line prompter over in and out.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{In: in, Out: out, scanner: bufio.NewScanner(in)}
}

func (l *Line) YesNo(ctx context.Context, question string) (bool, error) {
	if l.scanner == nil {
		l.scanner = bufio.NewScanner(l.In)
	}

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		fmt.Fprint(l.Out, question)
		if !l.scanner.Scan() {
			fmt.Fprintln(l.Out)
			if err := l.scanner.Err(); err != nil {
				return false, fmt.Errorf("failed to read answer: %w", err)
			}
			return false, ErrNoAnswer
		}

		switch strings.ToLower(strings.TrimSpace(l.scanner.Text())) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// ForTerminal picks the interactive prompt when stdin and stdout are terminals
// and the line prompter otherwise, so answers can be piped in.
func ForTerminal(in *os.File, out *os.File) Prompter {
	if isatty.IsTerminal(in.Fd()) && isatty.IsTerminal(out.Fd()) {
		return Huh{Accessible: os.Getenv("ACCESSIBLE") != ""}
	}
	return NewLine(in, out)
}
