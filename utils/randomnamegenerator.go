package utils

import (
	"fmt"
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// NameGenerator hands out names that were not used before, for joints and
// animations coming from files that leave them empty or repeat them.
type NameGenerator struct {
	used map[string]struct{}
}

func NewNameGenerator(seed int64) *NameGenerator {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
	return &NameGenerator{used: make(map[string]struct{})}
}

func (g *NameGenerator) Reserve(name string) {
	g.used[name] = struct{}{}
}

func (g *NameGenerator) Used(name string) bool {
	_, exists := g.used[name]
	return exists
}

func (g *NameGenerator) RandomName() string {
	for {
		name := randomdata.SillyName()
		if !g.Used(name) {
			g.Reserve(name)
			return name
		}
	}
}

// Unique returns name, suffixed when already taken, or a random name for "".
func (g *NameGenerator) Unique(name string) string {
	if name == "" {
		return g.RandomName()
	}
	candidate := name
	for i := 1; g.Used(candidate); i++ {
		candidate = fmt.Sprintf("%s.%03d", name, i)
	}
	g.Reserve(candidate)
	return candidate
}
