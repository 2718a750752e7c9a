package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"riftbot/internal/ics"
	"riftbot/internal/notify"
	"riftbot/internal/rift"
	"riftbot/pkg/logx"
)

const helpText = `🤖 <b>Rift reminder bot</b>
Never miss another Rift. The bot tracks all Rift events (UTC) and reminds the group 60, 30, 15 and 5 minutes before each one.

<b>Commands:</b>
/nextrift - the next Rift
/weekrifts - Rifts in the next 7 days
/lastrift - the last scheduled Rift
/timeleft - countdown to the next Rift
/help - this message

<b>Admin commands:</b>
upload an .ics file - add new Rift events
/shiftrift &lt;±minutes&gt; - shift the next Rift
/riftstatus - reminder timer diagnostics`

func (b *Bot) registerHandlers() {
	b.tb.Use(b.rateLimit)

	b.tb.Handle("/nextrift", b.handleNextRift)
	b.tb.Handle("/weekrifts", b.handleWeekRifts)
	b.tb.Handle("/lastrift", b.handleLastRift)
	b.tb.Handle("/timeleft", b.handleTimeLeft)
	b.tb.Handle("/help", b.handleHelp)
	b.tb.Handle("/start", b.handleHelp)

	b.tb.Handle("/shiftrift", b.adminOnly(b.handleShiftRift))
	b.tb.Handle("/riftstatus", b.adminOnly(b.handleRiftStatus))
	b.tb.Handle("/uploadics", b.adminOnly(b.handleUploadHint))
	b.tb.Handle(tele.OnDocument, b.adminOnly(b.handleDocument))
}

func (b *Bot) handleNextRift(c tele.Context) error {
	now := time.Now()
	t, ok := b.sched.NextAfter(now)
	if !ok {
		return c.Send("No upcoming Rift found.")
	}
	return c.Send(fmt.Sprintf("🌀 The next Rift is <b>%s UTC</b>\n⏳ in %s", rift.Format(t), formatLeft(t.Sub(now))), tele.ModeHTML)
}

func (b *Bot) handleWeekRifts(c tele.Context) error {
	upcoming := b.sched.Within(time.Now(), 7*24*time.Hour)
	if len(upcoming) == 0 {
		return c.Send("No Rifts scheduled for the next 7 days.")
	}
	var sb strings.Builder
	sb.WriteString("📅 Rifts this week:\n")
	for _, t := range upcoming {
		sb.WriteString(rift.Format(t))
		sb.WriteString(" UTC\n")
	}
	return c.Send(sb.String())
}

func (b *Bot) handleLastRift(c tele.Context) error {
	t, ok := b.sched.Last()
	if !ok {
		return c.Send("The schedule is empty.")
	}
	return c.Send(fmt.Sprintf("📌 Last Rift in the schedule:\n<b>%s UTC</b>", rift.Format(t)), tele.ModeHTML)
}

func (b *Bot) handleTimeLeft(c tele.Context) error {
	now := time.Now()
	t, ok := b.sched.NextAfter(now)
	if !ok {
		return c.Send("No upcoming Rift found.")
	}
	return c.Send(fmt.Sprintf("⏰ Time left until next Rift: <b>%s</b>", formatLeft(t.Sub(now))), tele.ModeHTML)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(helpText, tele.ModeHTML)
}

// handleUploadHint covers /uploadics. Replying to a message that carries
// the .ics document imports it directly; a bare /uploadics explains the
// flow.
func (b *Bot) handleUploadHint(c tele.Context) error {
	if r := c.Message().ReplyTo; r != nil && r.Document != nil {
		return b.importDocument(c, r.Document)
	}
	return c.Send("Send an .ics calendar file as a document (or reply to one with /uploadics) to add new Rift events.")
}

// handleDocument imports an uploaded .ics file: parse, merge, persist,
// then arm timers for any newly pending events. Merging is idempotent, so
// re-uploading the same file adds nothing.
func (b *Bot) handleDocument(c tele.Context) error {
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	return b.importDocument(c, doc)
}

func (b *Bot) importDocument(c tele.Context, doc *tele.Document) error {
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".ics") {
		return c.Send("Please upload a valid .ics file.")
	}

	rc, err := b.tb.File(&doc.File)
	if err != nil {
		b.log.Warn("ics download failed", logx.String("file", doc.FileName), logx.Err(err))
		return c.Send("Could not download the file, try again.")
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return c.Send("Could not read the file, try again.")
	}

	candidates, err := ics.ParseStartTimes(body, b.log)
	if err != nil {
		b.log.Warn("ics parse failed", logx.String("file", doc.FileName), logx.Err(err))
		return c.Send("Failed to parse the .ics file: " + err.Error())
	}
	if len(candidates) == 0 {
		return c.Send("No valid Rift dates found in the file.")
	}

	added := b.sched.Merge(candidates)
	persistErr := b.persist(context.Background())

	// Arm timers for events that are new to the bookkeeping and still
	// have future lead times.
	armed := 0
	if b.rem != nil {
		now := time.Now()
		for _, t := range candidates {
			if t.After(now) {
				armed += b.rem.ScheduleEvent(t)
			}
		}
	}

	b.log.Info("calendar imported",
		logx.String("file", doc.FileName),
		logx.Int("candidates", len(candidates)),
		logx.Int("added", added),
		logx.Int("timers", armed))

	msg := fmt.Sprintf("✅ Rift schedule updated. Added %d new events (now total %d).", added, b.sched.Len())
	if persistErr != nil {
		msg += "\n⚠️ Saving the schedule failed; the update is active but will not survive a restart."
	}
	if added > 0 {
		b.announce("schedule update", notify.ScheduleUpdated(added, b.sched.Len()))
	}
	return c.Send(msg)
}

// handleShiftRift moves the next upcoming event by ±N minutes. On a
// conflict with an existing distinct event nothing changes: the store is
// untouched and the original timer group keeps running.
func (b *Bot) handleShiftRift(c tele.Context) error {
	minutes, err := strconv.Atoi(strings.TrimSpace(c.Message().Payload))
	if err != nil || minutes == 0 {
		return c.Send("Usage: /shiftrift <±minutes> (positive = later, negative = earlier)")
	}

	now := time.Now()
	old, ok := b.sched.NextAfter(now)
	if !ok {
		return c.Send("No upcoming Rift found.")
	}
	next := old.Add(time.Duration(minutes) * time.Minute)

	if err := b.sched.Replace(old, next); err != nil {
		var ce *rift.ConflictError
		if errors.As(err, &ce) {
			return c.Send(fmt.Sprintf("⚠️ Cannot shift: conflicts with the existing Rift at %s UTC.", rift.Format(ce.At)))
		}
		return c.Send("Shift failed: " + err.Error())
	}
	persistErr := b.persist(context.Background())

	armed := 0
	if b.rem != nil {
		armed = b.rem.RescheduleOne(old, next)
	}

	msg := fmt.Sprintf("✅ Rift moved from %s to %s UTC (%+d min)", rift.Format(old), rift.Format(next), minutes)
	if armed > 0 {
		msg += fmt.Sprintf("\n🔔 %d reminders scheduled", armed)
	} else {
		// Moved, but every lead time has already elapsed. Report this
		// distinctly so the operator knows why nothing will fire.
		msg += "\n⚠️ no reminders could be scheduled (the new time is already past all lead times)"
	}
	if persistErr != nil {
		msg += "\n⚠️ Saving the schedule failed; the move is active but will not survive a restart."
	}
	return c.Send(msg)
}

func (b *Bot) handleRiftStatus(c tele.Context) error {
	now := time.Now()
	var sb strings.Builder
	sb.WriteString("🔧 <b>Reminder status</b>\n")

	if t, ok := b.sched.NextAfter(now); ok {
		fmt.Fprintf(&sb, "Next Rift: %s UTC (in %s)\n", rift.Format(t), formatLeft(t.Sub(now)))
	} else {
		sb.WriteString("Next Rift: none\n")
	}

	if b.rem != nil {
		groups := b.rem.Snapshot()
		fmt.Fprintf(&sb, "Active timers: %d across %d events\n", b.rem.ActiveTimers(), len(groups))
		for _, g := range groups {
			leads := make([]string, 0, len(g.Leads))
			for _, l := range g.Leads {
				leads = append(leads, fmt.Sprintf("%dm", int(l/time.Minute)))
			}
			fmt.Fprintf(&sb, "• %s UTC: %s\n", rift.Format(g.Event), strings.Join(leads, ", "))
		}
	}

	st := b.queue.Stats()
	fmt.Fprintf(&sb, "Dispatch: %d sent, %d retried, %d dropped, %d queued",
		st.Delivered, st.Retried, st.Dropped, b.queue.Len())
	return c.Send(sb.String(), tele.ModeHTML)
}

// formatLeft renders a duration as "Xh Ym".
func formatLeft(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}
