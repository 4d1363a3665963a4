package output

import (
	"os"
	"os/exec"
	"strings"
)

// pageHeight is the line count above which listings go through a pager.
const pageHeight = 40

// PageOrPrint sends content through a pager when it is longer than one
// screen and stdout is an interactive terminal; otherwise it writes the
// content to the writer's destination.
func (w *Writer) PageOrPrint(content string) error {
	if !stdoutIsTerminal() || strings.Count(content, "\n") <= pageHeight {
		return w.WriteText(content)
	}
	return pipeToPager(content)
}

// pipeToPager runs the user's pager (MERGEKIT_PAGER, then PAGER, then
// "less") with the content on stdin.
func pipeToPager(content string) error {
	pager := os.Getenv("MERGEKIT_PAGER")
	if pager == "" {
		pager = os.Getenv("PAGER")
	}
	if pager == "" {
		pager = "less"
	}

	cmd := exec.Command(pager)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
