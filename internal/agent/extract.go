package agent

import (
	"regexp"
	"strconv"
	"strings"
)

var budgetPattern = regexp.MustCompile(`budget.*?(\d+)`)

var destinations = []struct {
	token string
	city  string
}{
	{"hawaii", "Hawaii"},
	{"maui", "Hawaii"},
	{"paris", "Paris"},
	{"tokyo", "Tokyo"},
}

var airports = map[string]string{
	"Hawaii": "HNL",
	"Paris":  "CDG",
	"Tokyo":  "HND",
}

var monthTokens = []struct {
	token string
	month int
}{
	{"june", 6},
	{"july", 7},
	{"august", 8},
}

var monthNames = map[int]string{
	6: "June",
	7: "July",
	8: "August",
}

// ExtractOrigin reports the departure airport named in msg. The match is
// case-sensitive: "lax" occurs inside ordinary words.
func ExtractOrigin(msg string) (string, bool) {
	if strings.Contains(msg, "LAX") {
		return "LAX", true
	}
	return "", false
}

// ExtractDestination reports the first known destination city in msg.
func ExtractDestination(msg string) (string, bool) {
	lower := strings.ToLower(msg)
	for _, d := range destinations {
		if strings.Contains(lower, d.token) {
			return d.city, true
		}
	}
	return "", false
}

// ExtractMonth reports the first month name in msg.
func ExtractMonth(msg string) (int, bool) {
	lower := strings.ToLower(msg)
	for _, m := range monthTokens {
		if strings.Contains(lower, m.token) {
			return m.month, true
		}
	}
	return 0, false
}

// ExtractBudget reports the first number following a "budget" token.
func ExtractBudget(msg string) (float64, bool) {
	m := budgetPattern.FindStringSubmatch(strings.ToLower(msg))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// AirportFor maps a destination city to the airport flights are searched
// against. Unknown cities are passed through.
func AirportFor(city string) string {
	if code, ok := airports[city]; ok {
		return code
	}
	return city
}

func orDefault[T any](v T, ok bool, def T) T {
	if ok {
		return v
	}
	return def
}
