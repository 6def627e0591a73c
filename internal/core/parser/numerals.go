package parser

import "strings"

var quantityWords = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"half": 0.5, "quarter": 0.25,
}

var unitWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tensWords = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// spelledNumberPattern matches one run of English number words such as
// "two hundred and fifty" or "forty-five".
const spelledNumberPattern = `(?:eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|` +
	`twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|` +
	`one|two|three|four|five|six|seven|eight|nine|ten)` +
	`(?:[\s-]+(?:and[\s-]+)?(?:eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|` +
	`twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|` +
	`one|two|three|four|five|six|seven|eight|nine|ten))*`

// parseNumberWords converts English number words to a value. It returns false
// when any word is not a number word.
func parseNumberWords(phrase string) (float64, bool) {
	words := strings.FieldsFunc(phrase, func(r rune) bool {
		return r == ' ' || r == '-' || r == '\t'
	})
	if len(words) == 0 {
		return 0, false
	}

	total, current := 0, 0
	seen := false
	for _, w := range words {
		switch {
		case w == "and":
			continue
		case w == "hundred":
			if current == 0 {
				current = 1
			}
			current *= 100
		case w == "thousand":
			if current == 0 {
				current = 1
			}
			total += current * 1000
			current = 0
		default:
			if v, ok := unitWords[w]; ok {
				current += v
			} else if v, ok := tensWords[w]; ok {
				current += v
			} else {
				return 0, false
			}
		}
		seen = true
	}
	if !seen {
		return 0, false
	}
	return float64(total + current), true
}
