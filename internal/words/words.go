// Package words holds the corpus for random mailbox names of the form
// adjective.adjective.noun.
package words

import (
	"fmt"
	"math/rand"
)

var Adjectives = []string{
	"amber", "ancient", "autumn", "billowing", "bitter", "black", "blue",
	"bold", "brave", "bright", "broad", "calm", "cheerful", "cold", "cool",
	"crimson", "curly", "damp", "dark", "dawn", "delicate", "divine", "dry",
	"empty", "falling", "fancy", "flat", "floral", "fragrant", "frosty",
	"gentle", "green", "hidden", "holy", "icy", "jolly", "late", "lingering",
	"little", "lively", "long", "lucky", "misty", "morning", "muddy", "mute",
	"nameless", "noisy", "odd", "old", "orange", "patient", "plain", "polished",
	"proud", "purple", "quiet", "rapid", "raspy", "red", "restless", "rough",
	"round", "royal", "shiny", "shy", "silent", "small", "snowy", "soft",
	"solitary", "sparkling", "spring", "square", "steep", "still", "summer",
	"sweet", "tender", "tight", "twilight", "wandering", "weathered", "white",
	"wild", "winter", "wispy", "withered", "yellow", "young",
}

var Nouns = []string{
	"art", "band", "bar", "base", "bird", "block", "boat", "bonus", "bread",
	"breeze", "brook", "bush", "butterfly", "cake", "cell", "cherry", "cloud",
	"credit", "darkness", "dawn", "dew", "disk", "dream", "dust", "feather",
	"field", "fire", "firefly", "flower", "fog", "forest", "frog", "frost",
	"glade", "glitter", "grass", "hall", "hat", "haze", "heart", "hill",
	"king", "lab", "lake", "leaf", "limit", "math", "meadow", "mode", "moon",
	"morning", "mountain", "mouse", "mud", "night", "paper", "pine", "poetry",
	"pond", "queen", "rain", "recipe", "resonance", "rice", "river", "salad",
	"scene", "sea", "shadow", "shape", "silence", "sky", "smoke", "snow",
	"snowflake", "sound", "star", "sun", "sunset", "surf", "term", "thunder",
	"tooth", "tree", "truth", "union", "unit", "violet", "voice", "water",
	"waterfall", "wave", "wildflower", "wind", "wood",
}

// MailboxName composes a random adjective.adjective.noun local part.
// Uniqueness is the caller's concern.
func MailboxName() string {
	return fmt.Sprintf("%s.%s.%s",
		Adjectives[rand.Intn(len(Adjectives))],
		Adjectives[rand.Intn(len(Adjectives))],
		Nouns[rand.Intn(len(Nouns))],
	)
}
