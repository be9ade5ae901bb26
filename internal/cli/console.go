package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/slrkit/slrkit/internal/workflow"
)

// consoleOperator answers workflow prompts from a line-oriented terminal.
type consoleOperator struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsoleOperator(in io.Reader, out io.Writer) *consoleOperator {
	return &consoleOperator{in: bufio.NewReader(in), out: out}
}

func (c *consoleOperator) Choose(menu workflow.Menu) (string, error) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, headerStyle.Render(menu.Title+":"))
	for i, opt := range menu.Options {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, opt)
	}
	return c.Ask(fmt.Sprintf("Select a number (1-%d)", len(menu.Options)))
}

func (c *consoleOperator) Ask(question string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", question)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			fmt.Fprintln(c.out)
			return "", fmt.Errorf("%w: input closed", workflow.ErrAborted)
		}
		if !errors.Is(err, io.EOF) {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *consoleOperator) ShowItems(title string, items []string) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, headerStyle.Render(title+":"))
	for i, item := range items {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, item)
	}
	fmt.Fprintln(c.out)
}

func (c *consoleOperator) Info(msg string) {
	fmt.Fprintln(c.out, dimStyle.Render(msg))
}

func (c *consoleOperator) Warn(msg string) {
	fmt.Fprintln(c.out, warnStyle.Render("! "+msg))
}
