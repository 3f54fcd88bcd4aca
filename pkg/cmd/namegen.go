package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GenName turns a number into a name that is easy to read aloud, for
// example to tell apart the results of scenarios that differ slightly.
func GenName(val int64) string {
	rem, w1 := choose(nounsList, float64(val))
	rem, w2 := choose(adjList, rem)
	rem, w3 := choose(advList, rem)
	d := int(rem)
	number := ""
	if d > 0 {
		number = strconv.Itoa(d)
		switch {
		case strings.HasSuffix(number, "11"), strings.HasSuffix(number, "12"), strings.HasSuffix(number, "13"):
			number += "th"
		case strings.HasSuffix(number, "1"):
			number += "st"
		case strings.HasSuffix(number, "2"):
			number += "nd"
		case strings.HasSuffix(number, "3"):
			number += "rd"
		default:
			number += "th"
		}
		number += " "
	}
	return strings.Title(fmt.Sprintf(`%s%s %s %s`, number, w3, w2, w1))
}

func choose(list []string, val float64) (float64, string) {
	numWords := float64(len(list))
	idx := math.Mod(val, numWords)
	word := list[int(idx)]
	return math.Floor(val / numWords), word
}

var nounsList = []string{
	"anvil", "banner", "bard", "bell", "blade", "bridge", "candle", "castle",
	"cellar", "crown", "dragon", "falcon", "forge", "gate", "goblet", "griffin",
	"harp", "helm", "hound", "inn", "keep", "lantern", "lute", "mage",
	"mill", "moon", "oak", "orchard", "owl", "page", "pike", "quill",
	"raven", "reaper", "rune", "sage", "scroll", "serpent", "shield", "shrine",
	"smith", "squire", "stag", "tavern", "tower", "troll", "wisp", "wolf",
}

var adjList = []string{
	"amber", "ancient", "azure", "bold", "brave", "bronze", "crimson", "cunning",
	"dusky", "eager", "elder", "fabled", "gentle", "gilded", "gloomy", "golden",
	"hidden", "hollow", "honest", "idle", "iron", "jolly", "lonely", "merry",
	"misty", "noble", "pale", "proud", "quiet", "restless", "rusty", "silent",
	"silver", "sleepy", "stout", "swift", "valiant", "wandering", "weary", "wise",
}

var advList = []string{
	"always", "barely", "boldly", "calmly", "deeply", "dimly", "duly", "fairly",
	"gladly", "gravely", "hardly", "justly", "kindly", "loudly", "madly", "mostly",
	"nearly", "oddly", "openly", "partly", "quickly", "rarely", "rightly", "sadly",
	"slowly", "softly", "truly", "vastly", "warmly", "wildly",
}
