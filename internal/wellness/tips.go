package wellness

import "math/rand/v2"

// NoTip is returned when there is nothing to pick from
const NoTip = "No tip available at the moment."

// Tips are the built-in wellness suggestions
var Tips = []string{
	"Take a 5-minute break from any work.",
	"Drink water and stay hydrated.",
	"Practice breathing exercises.",
	"Take short walks outside.",
	"Ensure you get enough sleep each night.",
	"Stay connected with friends.",
	"Practice gratitude.",
	"Limit screen time before bed.",
	"Watch your favorite movie or show.",
	"Eat healthy to keep balanced.",
	"Make time to go to the gym.",
	"Spend some time in the sun.",
}

// RandomTip picks one of tips using r; a nil r uses the global source
func RandomTip(tips []string, r *rand.Rand) string {
	if len(tips) == 0 {
		return NoTip
	}
	if r == nil {
		return tips[rand.IntN(len(tips))]
	}
	return tips[r.IntN(len(tips))]
}
