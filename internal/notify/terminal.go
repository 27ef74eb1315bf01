package notify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Terminal shows a reminder and waits for Enter.
type Terminal struct {
	out   io.Writer
	in    io.Reader
	title *color.Color
	body  *color.Color
	hint  *color.Color

	once  sync.Once
	lines chan string
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		out:   out,
		in:    in,
		title: color.New(color.FgYellow, color.Bold),
		body:  color.New(color.Bold),
		hint:  color.New(color.Faint),
	}
}

// readLines feeds input lines to a channel. A pending read cannot be
// interrupted, so one reader serves every Acknowledge call.
func (t *Terminal) readLines() {
	t.lines = make(chan string)
	go func() {
		defer close(t.lines)
		sc := bufio.NewScanner(t.in)
		for sc.Scan() {
			t.lines <- sc.Text()
		}
	}()
}

// Acknowledge blocks until a line is read or ctx is done.
func (t *Terminal) Acknowledge(ctx context.Context, title, text string) error {
	t.once.Do(t.readLines)

	rule := strings.Repeat("─", 40)
	fmt.Fprintln(t.out)
	t.title.Fprintf(t.out, "⏰ %s\n", title)
	fmt.Fprintln(t.out, rule)
	t.body.Fprintln(t.out, text)
	fmt.Fprintln(t.out, rule)
	t.hint.Fprint(t.out, "Press Enter to dismiss ")

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return ctx.Err()
	case _, ok := <-t.lines:
		if !ok {
			return io.EOF
		}
		return nil
	}
}
