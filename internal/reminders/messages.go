package reminders

import "slices"

const (
	NotificationTitle = "Suurteigrechner"
	NotificationIcon  = "/icons/icon-192x192.png"
	NotificationURL   = "/feedingplan"

	// MaxMessageLength is counted in characters, not bytes.
	MaxMessageLength = 255

	FinalReminderSuffix = " (final reminder)"
)

// PresetMessages are offered by the client; the first one is the default.
var PresetMessages = []string{
	"Time to feed your starter! 🍞",
	"Check your dough's rise! 🥖",
	"Stretch and fold time! 🫳",
	"Baking day reminder! 🔥",
	"Preshape your loaves! 🫓",
	"Time to shape your bread! 🥐",
	"Check on your sourdough! 👀",
}

var DefaultMessage = PresetMessages[0]

// AllowedIntervals are the recurrence intervals in hours a reminder may use.
var AllowedIntervals = []int{4, 6, 8, 12, 24, 48, 72, 168}

func IsAllowedInterval(hours int) bool {
	return slices.Contains(AllowedIntervals, hours)
}
