// Package notify renders reminder announcements.
//
// Variant selection is a pure function of (event instant, lead time): the
// same reminder always renders the same text, across restarts. No call-time
// randomness is involved, which keeps announcements reproducible under test.
package notify

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"

	"riftbot/internal/rift"
)

var hypeLines = []string{
	"Let's crush this Rift together!",
	"Gear up, team - victory awaits!",
	"Push your limits. This is our moment!",
	"Be legendary - show up and fight!",
	"Every Rift is a chance to shine. Let's go!",
	"Together we conquer - don't miss it!",
	"This is what we trained for!",
	"Focus up! It's Rift time soon!",
	"Time to show what we're made of!",
	"Unleash your power - the Rift calls!",
	"Warriors assemble - glory beckons!",
	"Make every moment count. Let's dominate!",
	"Stronger together - let's roll!",
	"United we stand, divided they fall!",
	"Squad up! Time to make history!",
	"Rally the troops - we've got this!",
	"Storm the Rift - leave nothing behind!",
	"Game face on - it's showtime!",
	"The moment has arrived. Own it!",
	"Answer the call - greatness awaits!",
	"First place has our name on it!",
	"Time to climb those leaderboards!",
	"Write your legend in the Rift!",
	"Earn your stripes, claim your glory!",
	"Sharpen your skills - battle approaches!",
	"Full power! Maximum destruction!",
	"Ride the wave to victory!",
	"You've got this - now prove it!",
	"Hold the line - victory is certain!",
	"Heroes are made in moments like these!",
}

type template func(minutes int, when string, hype string) string

var templates = []template{
	func(m int, when, hype string) string {
		return fmt.Sprintf("🌀 <b>Brace yourselves!</b>\n⏰ Rift begins in <b>%d minutes</b>\n🕐 %s\n%s", m, when, hype)
	},
	func(m int, when, hype string) string {
		return fmt.Sprintf("⚔️ <b>Prepare for battle!</b>\n🕰 Only <b>%d minutes</b> to go!\n📆 %s\n%s", m, when, hype)
	},
	func(m int, when, hype string) string {
		return fmt.Sprintf("🛡 <b>Incoming Rift alert!</b>\n💣 Rift starts in <b>%d minutes</b>\n⏳ %s\n%s", m, when, hype)
	},
	func(m int, when, hype string) string {
		return fmt.Sprintf("⚡️ <b>War horns sound!</b>\n📢 The Rift erupts in <b>%d minutes</b>!\n🕐 %s\n%s", m, when, hype)
	},
}

// variantHash maps (event, lead) to a stable 64-bit value.
func variantHash(event time.Time, lead time.Duration) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(rift.Normalize(event).Unix()))
	binary.BigEndian.PutUint64(buf[8:], uint64(lead/time.Second))
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// VariantIndex returns the template index used for (event, lead).
// Exposed for tests.
func VariantIndex(event time.Time, lead time.Duration) int {
	return int(variantHash(event, lead) % uint64(len(templates)))
}

// Reminder renders the announcement for one firing reminder as Telegram
// HTML.
func Reminder(event time.Time, lead time.Duration) string {
	h := variantHash(event, lead)
	tmpl := templates[h%uint64(len(templates))]
	hype := hypeLines[(h/uint64(len(templates)))%uint64(len(hypeLines))]
	minutes := int(lead / time.Minute)
	when := rift.Format(event) + " UTC"
	return tmpl(minutes, when, hype)
}

// ScheduleUpdated renders the group announcement after a calendar import.
func ScheduleUpdated(added, total int) string {
	return fmt.Sprintf("📢 <b>Rift schedule updated!</b>\nAdded <b>%d</b> new events (now total <b>%d</b>).\nUse /weekrifts or /nextrift to view the updated schedule.", added, total)
}
