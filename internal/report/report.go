// Package report renders a ranked result table to the console, a CSV file
// and the notification channel.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sirupsen/logrus"

	"PullbackScanner/internal/model"
	"PullbackScanner/internal/notifier"
)

var log = logrus.WithField("component", "report")

const (
	DefaultCSVPath = "pullback_15m_signals.csv"

	NoSignalsLine = "No pullback signals found."
	SignalsLine   = "Pullback signals detected:"
)

// Columns is the header shared by the console table and the CSV file.
var Columns = []string{"Ticker", "Close", "RSI", "Drop%"}

// Reporter writes a scan result to every configured channel. Console output
// always happens; CSV and notification failures are logged only.
type Reporter struct {
	Out     io.Writer
	CSVPath string // empty disables the CSV file
	Sender  notifier.Sender
}

// New creates a Reporter. A nil out writes to stdout.
func New(out io.Writer, csvPath string, sender notifier.Sender) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{Out: out, CSVPath: csvPath, Sender: sender}
}

// Report emits table on the console, then the CSV file, then the notifier.
func (r *Reporter) Report(ctx context.Context, t model.ResultTable) {
	WriteConsole(r.Out, t)

	if r.CSVPath != "" {
		if err := WriteCSV(r.CSVPath, t); err != nil {
			log.Errorf("CSV save error: %v", err)
		} else {
			log.Infof("Saved: %s", r.CSVPath)
		}
	}

	if r.Sender == nil || !r.Sender.Enabled() {
		log.Info("Telegram skipped (missing TG_BOT_TOKEN or TG_CHAT_ID)")
		return
	}
	if err := r.Sender.Notify(ctx, notifier.FormatSignals(t)); err != nil {
		log.Errorf("Telegram send error: %v", err)
	}
}

func rows(t model.ResultTable) [][]string {
	out := make([][]string, len(t))
	for i, rec := range t {
		row := rec.Rounded()
		out[i] = []string{
			row.Ticker,
			row.Close.StringFixed(2),
			row.RSI.StringFixed(1),
			row.DropPct.StringFixed(1),
		}
	}
	return out
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// WriteConsole prints the no-signals line or a header plus aligned table.
func WriteConsole(w io.Writer, t model.ResultTable) {
	if len(t) == 0 {
		fmt.Fprintln(w, NoSignalsLine)
		return
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(Columns...).
		Rows(rows(t)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := cellStyle
			if row == table.HeaderRow {
				style = headerStyle
			}
			if col > 0 {
				style = style.Align(lipgloss.Right)
			}
			return style
		})
	fmt.Fprintln(w, SignalsLine)
	fmt.Fprintln(w, tbl.Render())
}

// WriteCSV overwrites path with the table. The file is written to a
// temporary sibling and renamed so readers never see a partial file. An
// empty table produces a header-only file.
func WriteCSV(path string, t model.ResultTable) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows(t)); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
