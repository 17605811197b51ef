package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/josephadah/trading-ai/internal/model"
	"github.com/josephadah/trading-ai/internal/sigengine"
	sqlitestore "github.com/josephadah/trading-ai/internal/store/sqlite"
)

func printRun(w io.Writer, res sigengine.RunResult, reg *model.Registry) {
	st := res.Stats()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════╗")
	fmt.Fprintln(w, "║           SCAN COMPLETE              ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Symbols:           %-16d ║\n", len(res.Symbols))
	fmt.Fprintf(w, "║  Bars analysed:     %-16d ║\n", st.Bars)
	fmt.Fprintf(w, "║  Signals:           %-16d ║\n", st.Signals)
	fmt.Fprintf(w, "║  Failures:          %-16d ║\n", st.Failures)
	fmt.Fprintf(w, "║  Duration:          %-16s ║\n", res.Finished.Sub(res.Started).Round(time.Millisecond))
	fmt.Fprintln(w, "╚══════════════════════════════════════╝")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tBARS\tSIGNALS\tLONG\tSHORT\tFRESH\tWARNINGS\tSTATUS")
	for _, s := range res.Symbols {
		var long, short int
		for _, sig := range s.Signals {
			if sig.Direction == model.Long {
				long++
			} else {
				short++
			}
		}
		status := "ok"
		if s.Err != nil {
			status = s.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			s.Symbol, s.Bars, len(s.Signals), long, short, len(s.Fresh), len(s.Report.Warnings), status)
	}
	tw.Flush()

	for _, s := range res.Symbols {
		for _, sig := range s.Fresh {
			fmt.Fprintf(w, "\n>> %s %s @ %s  SL %s  TP %s  (%.1f / %.1f pips, RR %.2f)\n",
				sig.Direction.Action(), sig.Symbol, reg.FormatPrice(sig.Symbol, sig.EntryPrice),
				reg.FormatPrice(sig.Symbol, sig.StopLoss), reg.FormatPrice(sig.Symbol, sig.TakeProfit),
				sig.StopPips, sig.TargetPips, sig.RiskReward)
			for _, step := range sig.Reasoning {
				fmt.Fprintf(w, "   %s\n", step)
			}
		}
	}
}

// printTraces prints each traced bar's gate trail, one line per direction.
func printTraces(w io.Writer, res sigengine.RunResult) {
	for _, s := range res.Symbols {
		if len(s.Traces) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n── %s: last %d evaluations ──\n", s.Symbol, len(s.Traces))
		for _, ev := range s.Traces {
			steps := make([]string, len(ev.Steps))
			for i, st := range ev.Steps {
				steps[i] = st.String()
			}
			outcome := "no signal"
			if ev.Signal != nil {
				outcome = "SIGNAL"
			}
			fmt.Fprintf(w, "%s %-5s %-9s %s\n",
				ev.TS.Format("2006-01-02"), ev.Direction, outcome, strings.Join(steps, " | "))
		}
	}
}

func printRecent(ctx context.Context, w io.Writer, store *sqlitestore.Store, limit int, reg *model.Registry) {
	signals, err := store.RecentSignals(ctx, "", limit)
	if err != nil {
		fmt.Fprintf(w, "\nrecent signals: %v\n", err)
		return
	}
	fmt.Fprintf(w, "\nRecent signals (%d)\n", len(signals))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSYMBOL\tSIDE\tENTRY\tSTOP\tTARGET\tSL PIPS\tTP PIPS\tRR\tSTATUS")
	for _, s := range signals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%.2f\t%s\n",
			s.SignalTS.Format("2006-01-02"), s.Symbol, s.Direction,
			reg.FormatPrice(s.Symbol, s.EntryPrice), reg.FormatPrice(s.Symbol, s.StopLoss),
			reg.FormatPrice(s.Symbol, s.TakeProfit), s.StopPips, s.TargetPips, s.RiskReward, s.Status)
	}
	tw.Flush()
}
