package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"

	"github.com/macropower/rulepack/pkg/loader"
)

func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	mustN(fmt.Fprintln(w, styles.ErrorHeader.String()))
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(errorText(err))))
	mustN(fmt.Fprintln(w))
	if isUsageError(err) {
		mustN(fmt.Fprintln(w, lipgloss.JoinHorizontal(
			lipgloss.Left,
			styles.ErrorText.UnsetWidth().Render("Try"),
			styles.Program.Flag.Render("--help"),
			styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
		)))
		mustN(fmt.Fprintln(w))
	}
}

// renderError writes err without the fang header, for errors that do not
// end the program.
func renderError(w io.Writer, err error) {
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().
		Foreground(lipgloss.Color("1")).
		Bold(true).
		Render("ERROR")))
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(errorText(err))))
}

// errorText lists validation errors one per line, grouped by file.
func errorText(err error) string {
	var verr *loader.Errors
	if !errors.As(err, &verr) {
		return err.Error()
	}

	fileStyle := lipgloss.NewStyle().Bold(true)

	var sb strings.Builder

	if len(verr.Errs) == 1 {
		sb.WriteString("1 rule validation error")
	} else {
		fmt.Fprintf(&sb, "%d rule validation errors", len(verr.Errs))
	}

	file := ""
	for _, e := range verr.Errs {
		if e.File != file {
			file = e.File
			sb.WriteString("\n" + fileStyle.Render(file) + "\n")
		}

		sb.WriteString("  ")
		if e.Line > 0 {
			fmt.Fprintf(&sb, "line %d: ", e.Line)
		}
		if e.Field != "" {
			sb.WriteString(e.Field + ": ")
		}

		sb.WriteString(e.Kind.String())
		if e.Detail != "" {
			sb.WriteString(": " + e.Detail)
		}

		sb.WriteString("\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// XXX: this is a hack to detect usage errors.
// See: https://github.com/spf13/cobra/pull/2266
func isUsageError(err error) bool {
	s := err.Error()
	for _, prefix := range []string{
		"flag needs an argument:",
		"unknown flag:",
		"unknown shorthand flag:",
		"unknown command",
		"invalid argument",
	} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustN(_ int, err error) {
	must(err)
}
