package notifier

import (
	"fmt"
	"strings"
	"time"

	"PullbackScanner/internal/model"
)

const (
	SignalsHeader    = "🔔 Pullback signals:"
	NoSignalsMessage = "🔎 No tickers match the pullback conditions."
)

// FormatSignals builds the push message: a header plus one ticker per line,
// or the no-signals sentinel for an empty table.
func FormatSignals(table model.ResultTable) string {
	if len(table) == 0 {
		return NoSignalsMessage
	}
	return SignalsHeader + "\n" + strings.Join(table.Symbols(), "\n")
}

// FormatLast renders the most recent scan for the /last command.
func FormatLast(table model.ResultTable, at time.Time) string {
	if at.IsZero() {
		return "No scan has completed yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Last scan: %s\n", at.Format("2006-01-02 15:04")))
	if len(table) == 0 {
		b.WriteString(NoSignalsMessage)
		return b.String()
	}
	for _, rec := range table {
		r := rec.Rounded()
		b.WriteString(fmt.Sprintf("%s  close %s  rsi %s  drop %s%%\n",
			r.Ticker, r.Close.StringFixed(2), r.RSI.StringFixed(1), r.DropPct.StringFixed(1)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return "Commands:\n/scan - run a scan now\n/last - show the last result\n/help - this message"
}
