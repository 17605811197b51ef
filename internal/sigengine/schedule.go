package sigengine

import (
	"context"
	"time"

	"github.com/josephadah/trading-ai/internal/markethours"
)

// NextDailyClose returns the first daily-bar close strictly after t, plus
// delay. Daily bars close at 22:00 UTC on trading days.
func NextDailyClose(t time.Time, delay time.Duration) time.Time {
	u := t.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), markethours.CloseHour, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		if c := d.Add(delay); c.After(u) && markethours.IsTradingDay(d) {
			return c
		}
		d = d.AddDate(0, 0, 1)
	}
	return d.Add(delay)
}

// RunDaily runs a scan after every daily close until ctx is cancelled.
// onResult, when set, receives each run's result.
func (svc *Service) RunDaily(ctx context.Context, delay time.Duration, onResult func(RunResult, error)) {
	for {
		next := NextDailyClose(svc.now(), delay)
		svc.log.Info("next scan scheduled", "at", next.Format(time.RFC3339), "market", markethours.StatusString(svc.now()))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		res, err := svc.Run(ctx)
		if onResult != nil {
			onResult(res, err)
		}
	}
}
