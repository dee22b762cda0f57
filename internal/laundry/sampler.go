package laundry

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// DefaultMaxLoadKg caps a sampled load.
const DefaultMaxLoadKg = 8.0

// Garment is a clothing item and its approximate dry weight.
type Garment struct {
	Name   string
	Weight float64 // kg
}

var garments = []Garment{
	{"Camiseta", 0.2},
	{"Regata", 0.15},
	{"Calça Jeans", 0.6},
	{"Calça Legging", 0.4},
	{"Bermuda", 0.3},
	{"Moletom", 0.8},
	{"Pijama", 0.6},
	{"Camisa Social", 0.25},
	{"Blusa", 0.2},
	{"Meias", 0.05},
	{"Roupa Íntima", 0.05},
	{"Shorts", 0.25},
	{"Toalha de Rosto", 0.15},
	{"Toalha de Banho", 0.4},
	{"Lençol Solteiro", 0.5},
	{"Lençol Casal", 0.7},
	{"Fronha", 0.1},
	{"Blusa de Frio Leve", 0.4},
	{"Camisa de Manga Longa", 0.3},
	{"Cachecol", 0.1},
	{"Luvas", 0.05},
}

// LoadItem is one garment type in a sampled load.
type LoadItem struct {
	Name  string
	Count int
}

// Load is a sampled set of garments.
type Load struct {
	Items []LoadItem // in order of first draw
	Total float64    // kg
}

// Format renders the load as a bullet list.
func (l Load) Format() string {
	lines := make([]string, len(l.Items))
	for i, it := range l.Items {
		lines[i] = fmt.Sprintf("- %dx %s", it.Count, it.Name)
	}
	return strings.Join(lines, "\n")
}

// Sampler draws random garments until the next one would exceed the cap.
type Sampler struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	maxKg float64
}

// NewSampler creates a Sampler. A nil rnd uses a randomly seeded source;
// a non-positive maxKg uses DefaultMaxLoadKg.
func NewSampler(rnd *rand.Rand, maxKg float64) *Sampler {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if maxKg <= 0 {
		maxKg = DefaultMaxLoadKg
	}
	return &Sampler{rnd: rnd, maxKg: maxKg}
}

// MaxKg returns the load cap.
func (s *Sampler) MaxKg() float64 { return s.maxKg }

// Draw samples one load. It stops at the first drawn garment that does not
// fit.
func (s *Sampler) Draw() Load {
	s.mu.Lock()
	defer s.mu.Unlock()

	var load Load
	index := make(map[string]int)
	for load.Total < s.maxKg {
		g := garments[s.rnd.IntN(len(garments))]
		if load.Total+g.Weight > s.maxKg {
			break
		}
		load.Total += g.Weight
		if i, ok := index[g.Name]; ok {
			load.Items[i].Count++
			continue
		}
		index[g.Name] = len(load.Items)
		load.Items = append(load.Items, LoadItem{Name: g.Name, Count: 1})
	}
	return load
}
