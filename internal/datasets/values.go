package datasets

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

var words = []string{
	"alpha", "bravo", "canyon", "delta", "ember", "falcon", "garden", "harbor",
	"island", "jungle", "kernel", "lagoon", "meadow", "nebula", "orbit", "prairie",
	"quartz", "river", "summit", "tundra", "union", "valley", "willow", "xenon",
	"yonder", "zephyr", "beacon", "cobalt", "dune", "fjord",
}

var firstNames = []string{"Minji", "Jisoo", "Alex", "Sam", "Hana", "Yuki", "Chen", "Maria", "Liam", "Noah", "Emma", "Olivia"}

var lastNames = []string{"Kim", "Lee", "Park", "Choi", "Tanaka", "Wang", "Garcia", "Smith", "Brown", "Jones"}

var cities = []string{"Seoul", "Busan", "Jeju", "Tokyo", "Osaka", "Bangkok", "Singapore", "Paris", "London", "New York", "Sydney", "Da Nang"}

var countries = []string{"KR", "JP", "TH", "SG", "FR", "GB", "US", "AU", "VN"}

// hint is a value refinement inferred from a column name
type hint int

const (
	hintNone hint = iota
	hintID
	hintName
	hintEmail
	hintCity
	hintCountry
	hintPrice
	hintRating
	hintQuantity
	hintAge
	hintRatio
	hintLatitude
	hintLongitude
	hintYear
)

// hintFor inspects a lower-cased, underscore-separated column name
func hintFor(column string) hint {
	name := strings.ToLower(strings.TrimSpace(column))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	has := func(parts ...string) bool {
		for _, p := range parts {
			if name == p || strings.HasSuffix(name, "_"+p) || strings.HasPrefix(name, p+"_") {
				return true
			}
		}
		return false
	}

	switch {
	case name == "id" || strings.HasSuffix(name, "_id"):
		return hintID
	case has("email", "mail"):
		return hintEmail
	case has("name", "customer", "user", "guest", "host"):
		return hintName
	case has("city", "destination", "origin"):
		return hintCity
	case has("country", "nationality"):
		return hintCountry
	case has("price", "amount", "cost", "fare", "revenue", "fee", "total"):
		return hintPrice
	case has("rating", "score", "stars"):
		return hintRating
	case has("quantity", "qty", "count", "guests", "nights", "seats"):
		return hintQuantity
	case has("age"):
		return hintAge
	case has("rate", "ratio", "percent", "probability", "share"):
		return hintRatio
	case has("lat", "latitude"):
		return hintLatitude
	case has("lon", "lng", "longitude"):
		return hintLongitude
	case has("year"):
		return hintYear
	}
	return hintNone
}

// valueGen produces typed cell values for one dataset from a seeded source
type valueGen struct {
	rng   *rand.Rand
	start time.Time
	days  int
}

func newValueGen(seed int64, year int) *valueGen {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return &valueGen{
		rng:   rand.New(rand.NewSource(seed)),
		start: start,
		days:  int(end.Sub(start).Hours() / 24),
	}
}

// value returns a string, int, float64 or bool for row (0-based)
func (g *valueGen) value(col types.ColumnSpec, row int) any {
	h := hintFor(col.Name)

	switch col.EffectiveType() {
	case types.ColumnInteger:
		return g.integer(h, row)
	case types.ColumnFloat:
		return g.float(h)
	case types.ColumnBoolean:
		return g.rng.Intn(2) == 1
	case types.ColumnDate:
		return g.start.AddDate(0, 0, g.rng.Intn(g.days)).Format("2006-01-02")
	case types.ColumnDatetime:
		offset := time.Duration(g.rng.Int63n(int64(g.days) * 24 * int64(time.Hour/time.Second)))
		return g.start.Add(offset * time.Second).Format(time.RFC3339)
	case types.ColumnCategory:
		return col.Choices[g.rng.Intn(len(col.Choices))]
	case types.ColumnText:
		return g.sentence()
	default:
		return g.str(col.Name, h, row)
	}
}

func (g *valueGen) integer(h hint, row int) int {
	switch h {
	case hintID:
		return row + 1
	case hintRating:
		return 1 + g.rng.Intn(5)
	case hintQuantity:
		return 1 + g.rng.Intn(20)
	case hintAge:
		return 18 + g.rng.Intn(63)
	case hintPrice:
		return 10 + g.rng.Intn(1991)
	case hintYear:
		return g.start.Year() - g.rng.Intn(10)
	}
	return g.rng.Intn(10001)
}

func (g *valueGen) float(h hint) float64 {
	var v float64
	switch h {
	case hintPrice:
		v = 5 + g.rng.Float64()*1995
	case hintRating:
		return math.Round((1+g.rng.Float64()*4)*10) / 10
	case hintRatio:
		v = g.rng.Float64()
	case hintLatitude:
		return math.Round((-90+g.rng.Float64()*180)*1e4) / 1e4
	case hintLongitude:
		return math.Round((-180+g.rng.Float64()*360)*1e4) / 1e4
	default:
		v = g.rng.Float64() * 1000
	}
	return math.Round(v*100) / 100
}

func (g *valueGen) str(column string, h hint, row int) string {
	switch h {
	case hintID:
		return fmt.Sprintf("%s-%05d", idPrefix(column), row+1)
	case hintName:
		return firstNames[g.rng.Intn(len(firstNames))] + " " + lastNames[g.rng.Intn(len(lastNames))]
	case hintEmail:
		return fmt.Sprintf("%s%d@example.com", words[g.rng.Intn(len(words))], row+1)
	case hintCity:
		return cities[g.rng.Intn(len(cities))]
	case hintCountry:
		return countries[g.rng.Intn(len(countries))]
	}
	return words[g.rng.Intn(len(words))]
}

func (g *valueGen) sentence() string {
	n := 6 + g.rng.Intn(7)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[g.rng.Intn(len(words))]
	}
	parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
	return strings.Join(parts, " ") + "."
}

// idPrefix turns "booking_id" into "BOO"
func idPrefix(column string) string {
	base := strings.TrimSuffix(strings.ToLower(column), "_id")
	var letters []rune
	for _, r := range base {
		if r >= 'a' && r <= 'z' {
			letters = append(letters, r-'a'+'A')
		}
		if len(letters) == 3 {
			break
		}
	}
	if len(letters) == 0 {
		return "ID"
	}
	return string(letters)
}
