package packer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/macropower/rulepack/api"
)

// Format is an output format for [Summary.Render].
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")

	// AllFormats lists the supported output formats.
	AllFormats = []string{string(FormatText), string(FormatYAML), string(FormatJSON)}
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Render writes s to w in the given format. Styled text output draws the
// rule list as a bordered table.
func (s *Summary) Render(w io.Writer, format Format, styled bool) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(s)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil

	case FormatYAML:
		b, err := api.MarshalYAML(s)
		if err != nil {
			return err //nolint:wrapcheck // Already wrapped.
		}

		_, err = w.Write(b)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}

		return nil

	case FormatText:
		_, err := io.WriteString(w, s.text(styled))
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}

		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func (s *Summary) text(styled bool) string {
	var sb strings.Builder

	label := lipgloss.NewStyle()
	if styled {
		label = label.Bold(true)
	}

	line := func(k, v string) {
		sb.WriteString(label.Render(fmt.Sprintf("%-13s", k+":")))
		sb.WriteString(v + "\n")
	}

	ratio := "n/a"
	if s.PayloadSize > 0 {
		ratio = fmt.Sprintf("%.0f%%", float64(s.StoredSize)/float64(s.PayloadSize)*100)
	}

	verified := "no (header and index only)"
	if s.Verified {
		verified = "yes"
	}

	line("File", fmt.Sprintf("%s (%s)", s.Path, humanize.Bytes(uint64(max(s.FileSize, 0)))))
	line("Version", fmt.Sprintf("%d", s.Version))
	line("Compression", s.Compression)
	line("Rules", fmt.Sprintf("%d", s.RuleCount))
	line("Payload", fmt.Sprintf("%s (stored %s, %s)",
		humanize.Bytes(s.PayloadSize), humanize.Bytes(s.StoredSize), ratio))
	line("Checksums", fmt.Sprintf("payload %s, index %s", s.PayloadChecksum, s.IndexChecksum))
	line("Verified", verified)

	if len(s.Rules) == 0 {
		return sb.String()
	}

	rows := make([][]string, 0, len(s.Rules))
	for _, r := range s.Rules {
		rows = append(rows, []string{r.ID, r.Name, string(r.Risk), humanize.Bytes(r.Size)})
	}

	t := table.New().
		Headers("ID", "NAME", "RISK", "SIZE").
		Rows(rows...)

	if styled {
		t = t.Border(lipgloss.RoundedBorder()).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return lipgloss.NewStyle().Bold(true).Padding(0, 1)
				}

				return lipgloss.NewStyle().Padding(0, 1)
			})
	} else {
		t = t.Border(lipgloss.HiddenBorder()).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			StyleFunc(func(_, _ int) lipgloss.Style {
				return lipgloss.NewStyle().PaddingRight(2)
			})
	}

	sb.WriteString("\n" + t.Render() + "\n")

	return sb.String()
}
