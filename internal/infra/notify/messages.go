package notify

import "math/rand/v2"

// Messages is the reminder text pool.
var Messages = []string{
	"Stand up before you photosynthesize.",
	"Touch grass (nearby plant also counts).",
	"Keyboard's hot, legs are not.",
	"Blink like you mean it: 10x.",
	"Break speedrun in 30s. Go.",
	"Free DLC: posture.",
	"Up. Now. Your chair has attachment issues.",
	"Stand before you grow roots.",
	"Blink or become a raisin.",
	"Walk away like the main character.",
	"Your spine filed a ticket.",
	"Walk. The chair will cope.",
	"Your posture called HR.",
	"Side quest: 30s breathing.",
	"Keyboard is not a life partner.",
	"AFK or AF-ache.",
	"Stare at something >20ft, not your soul.",
	"Load-bearing human requires maintenance.",
}

// DefaultMessage is used when the pool is empty.
const DefaultMessage = "Time for a quick reset."

// RandomMessage picks a reminder text.
func RandomMessage() string {
	return pick(Messages, DefaultMessage)
}

// Button labels for the notification actions. Variety keeps the
// notification from going stale.
var (
	snoozeLabels = []string{
		"Give me five",
		"Hit me in five",
		"Let me finish this",
		"Nudge me in five",
		"Back in five",
		"Snooze (5m)",
		"Circle back in 5",
		"Hold my coffee (5m)",
		"One more commit (5m)",
		"After this build (5m)",
		"After this call (5m)",
		"Give me 5 min",
	}
	skipLabels = []string{
		"Skip this lap",
		"Skip - boss cameo",
		"Skip, still grinding",
		"Skip this one",
		"Skip - on a roll",
		"Skip - deep focus",
		"Skip - deadline sprint",
		"Skip - meeting just started",
		"Skip - compiling",
		"Skip - shipping now",
		"Skip - demo time",
		"Skip - almost done",
	}
)

func pick(pool []string, fallback string) string {
	if len(pool) == 0 {
		return fallback
	}
	return pool[rand.IntN(len(pool))]
}
