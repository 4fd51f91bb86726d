// Package faker provides domain-oriented random value producers injected
// into seeds and handlers, plus an OpenAPI-schema walker that generates
// default response bodies for operations without a custom handler.
package faker

import (
	"fmt"
	mathrand "math/rand/v2"
	"strings"
	"time"

	"github.com/websublime/vite-open-api-server-sub004/internal/id"
)

var firstNames = []string{
	"Olivia", "Liam", "Emma", "Noah", "Ava", "Oliver", "Sophia", "Elijah",
	"Isabella", "Lucas", "Mia", "Mason", "Charlotte", "Ethan", "Amelia", "James",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson", "Anderson",
}

var cities = []string{
	"Lisbon", "Porto", "Berlin", "Amsterdam", "Oslo", "Madrid", "Vienna",
	"Prague", "Dublin", "Copenhagen", "Helsinki", "Zurich",
}

var countries = []string{
	"Portugal", "Germany", "Netherlands", "Norway", "Spain", "Austria",
	"Czechia", "Ireland", "Denmark", "Finland", "Switzerland", "France",
}

var streets = []string{
	"Oak Street", "Maple Avenue", "Cedar Lane", "Elm Drive", "Pine Road",
	"Birch Boulevard", "Willow Way", "Chestnut Court",
}

var companies = []string{
	"Acme Corp", "Globex", "Initech", "Umbrella Labs", "Stark Industries",
	"Wayne Enterprises", "Hooli", "Vandelay Industries",
}

var productAdjectives = []string{
	"Rustic", "Elegant", "Handcrafted", "Sleek", "Practical", "Modern",
	"Vintage", "Premium", "Compact", "Ergonomic",
}

var productMaterials = []string{
	"Steel", "Wooden", "Granite", "Rubber", "Cotton", "Leather", "Ceramic",
}

var productNouns = []string{
	"Chair", "Table", "Lamp", "Keyboard", "Mug", "Backpack", "Notebook",
	"Bottle", "Speaker", "Watch",
}

var words = []string{
	"lorem", "ipsum", "dolor", "amet", "consectetur", "adipiscing", "elit",
	"tempor", "incididunt", "labore", "magna", "aliqua", "veniam", "nostrud",
}

var colors = []string{
	"red", "green", "blue", "amber", "teal", "violet", "indigo", "coral",
}

var emailDomains = []string{"example.com", "example.org", "test.dev", "mail.test"}

// Faker produces fake domain values. A zero-seed Faker uses the global PRNG;
// a seeded Faker is deterministic, which keeps generated default responses
// and seed data reproducible across reloads when desired.
type Faker struct {
	rng *mathrand.Rand
}

// New creates a Faker backed by the global PRNG.
func New() *Faker {
	return &Faker{}
}

// NewSeeded creates a deterministic Faker.
func NewSeeded(seed uint64) *Faker {
	return &Faker{rng: mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b9))}
}

func (f *Faker) intN(n int) int {
	if n <= 0 {
		return 0
	}
	if f.rng != nil {
		return f.rng.IntN(n)
	}
	return mathrand.IntN(n)
}

func (f *Faker) float64() float64 {
	if f.rng != nil {
		return f.rng.Float64()
	}
	return mathrand.Float64()
}

func (f *Faker) pick(list []string) string {
	return list[f.intN(len(list))]
}

// FirstName returns a random first name.
func (f *Faker) FirstName() string { return f.pick(firstNames) }

// LastName returns a random last name.
func (f *Faker) LastName() string { return f.pick(lastNames) }

// FullName returns a random "First Last" name.
func (f *Faker) FullName() string { return f.FirstName() + " " + f.LastName() }

// UserName returns a lowercase username.
func (f *Faker) UserName() string {
	return strings.ToLower(f.FirstName()) + fmt.Sprintf("%d", f.intN(1000))
}

// Email returns a plausible email address.
func (f *Faker) Email() string {
	return fmt.Sprintf("%s.%s@%s",
		strings.ToLower(f.FirstName()), strings.ToLower(f.LastName()), f.pick(emailDomains))
}

// UUID returns a random UUID v4.
func (f *Faker) UUID() string { return id.UUID() }

// Int returns a random integer in [min, max].
func (f *Faker) Int(min, max int) int {
	if max <= min {
		return min
	}
	return min + f.intN(max-min+1)
}

// Float returns a random float in [min, max).
func (f *Faker) Float(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + f.float64()*(max-min)
}

// Bool returns a random boolean.
func (f *Faker) Bool() bool { return f.intN(2) == 1 }

// Price returns a random price with two decimals.
func (f *Faker) Price() float64 {
	cents := f.Int(100, 99999)
	return float64(cents) / 100
}

// ProductName returns a random product name.
func (f *Faker) ProductName() string {
	return f.pick(productAdjectives) + " " + f.pick(productMaterials) + " " + f.pick(productNouns)
}

// Company returns a random company name.
func (f *Faker) Company() string { return f.pick(companies) }

// Word returns a random lorem word.
func (f *Faker) Word() string { return f.pick(words) }

// Sentence returns a short lorem sentence.
func (f *Faker) Sentence() string {
	n := f.Int(5, 10)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = f.Word()
	}
	s := strings.Join(parts, " ") + "."
	return strings.ToUpper(s[:1]) + s[1:]
}

// City returns a random city name.
func (f *Faker) City() string { return f.pick(cities) }

// Country returns a random country name.
func (f *Faker) Country() string { return f.pick(countries) }

// Street returns a random street address.
func (f *Faker) Street() string {
	return fmt.Sprintf("%d %s", f.Int(1, 999), f.pick(streets))
}

// Phone returns a random phone number.
func (f *Faker) Phone() string {
	return fmt.Sprintf("+%d %d-%04d-%04d", f.Int(1, 49), f.Int(100, 999), f.intN(10000), f.intN(10000))
}

// URL returns a random URL.
func (f *Faker) URL() string {
	return fmt.Sprintf("https://%s/%s", f.pick(emailDomains), f.Word())
}

// IPv4 returns a random IPv4 address.
func (f *Faker) IPv4() string {
	return fmt.Sprintf("%d.%d.%d.%d", f.Int(1, 254), f.intN(256), f.intN(256), f.Int(1, 254))
}

// Color returns a random color name.
func (f *Faker) Color() string { return f.pick(colors) }

// DateRecent returns an RFC3339 timestamp within the last week.
func (f *Faker) DateRecent() string {
	d := time.Duration(f.intN(7*24)) * time.Hour
	return time.Now().Add(-d).UTC().Format(time.RFC3339)
}

// DatePast returns an RFC3339 timestamp within the last five years.
func (f *Faker) DatePast() string {
	d := time.Duration(f.intN(5*365*24)) * time.Hour
	return time.Now().Add(-d).UTC().Format(time.RFC3339)
}
