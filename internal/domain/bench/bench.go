// Package bench loads and serves the benchmark catalog: the difficulties,
// rank ladders, and scenario threshold tables everything else is scored
// against.
package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Threshold pairs a rank name with the score required to enter it.
type Threshold struct {
	Rank  string  `json:"rank"`
	Score float64 `json:"score"`
}

// Scenario describes one benchmark scenario and its rank thresholds.
// Thresholds are sorted by ascending score and index-aligned with the
// difficulty's rank ladder.
type Scenario struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	Difficulty  string      `json:"difficulty"`
	Thresholds  []Threshold `json:"thresholds"`
}

// MinScore returns the lowest threshold score, the entry bar for the
// first rank.
func (s *Scenario) MinScore() float64 {
	return s.Thresholds[0].Score
}

// MaxScore returns the highest threshold score.
func (s *Scenario) MaxScore() float64 {
	return s.Thresholds[len(s.Thresholds)-1].Score
}

// VirtualInterval is the score span assumed past the highest threshold,
// used to extrapolate progress beyond the final rank.
func (s *Scenario) VirtualInterval() float64 {
	n := len(s.Thresholds)
	if n < 2 {
		return defaultVirtualInterval
	}
	return s.Thresholds[n-1].Score - s.Thresholds[n-2].Score
}

// defaultVirtualInterval extrapolates past a single-threshold ladder.
const defaultVirtualInterval = 100.0

// difficulty groups the rank ladder and scenarios of one benchmark tier.
type difficulty struct {
	name      string
	ranks     []string
	scenarios []*Scenario
}

// Catalog is an immutable, loaded benchmark catalog.
type Catalog struct {
	order        []string
	difficulties map[string]*difficulty
	byName       map[string]*Scenario
}

// catalogFile mirrors the JSON layout of a benchmark catalog file.
type catalogFile struct {
	Difficulties []struct {
		Name      string `json:"name"`
		Ranks     []string `json:"ranks"`
		Scenarios []struct {
			Name        string    `json:"name"`
			Category    string    `json:"category"`
			Subcategory string    `json:"subcategory"`
			Thresholds  []float64 `json:"thresholds"`
		} `json:"scenarios"`
	} `json:"difficulties"`
}

// New parses a benchmark catalog from JSON bytes and validates it.
func New(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if len(f.Difficulties) == 0 {
		return nil, fmt.Errorf("%w: no difficulties", ErrInvalidCatalog)
	}

	c := &Catalog{
		difficulties: make(map[string]*difficulty, len(f.Difficulties)),
		byName:       make(map[string]*Scenario),
	}
	for _, d := range f.Difficulties {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: difficulty with empty name", ErrInvalidCatalog)
		}
		if _, dup := c.difficulties[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate difficulty %q", ErrInvalidCatalog, d.Name)
		}
		if len(d.Ranks) == 0 {
			return nil, fmt.Errorf("%w: difficulty %q has no ranks", ErrInvalidCatalog, d.Name)
		}
		diff := &difficulty{
			name:  d.Name,
			ranks: append([]string(nil), d.Ranks...),
		}
		for _, s := range d.Scenarios {
			if s.Name == "" {
				return nil, fmt.Errorf("%w: scenario with empty name in %q", ErrInvalidCatalog, d.Name)
			}
			if _, dup := c.byName[s.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate scenario %q", ErrInvalidCatalog, s.Name)
			}
			if len(s.Thresholds) != len(d.Ranks) {
				return nil, fmt.Errorf("%w: scenario %q has %d thresholds for %d ranks",
					ErrInvalidCatalog, s.Name, len(s.Thresholds), len(d.Ranks))
			}
			sc := &Scenario{
				Name:        s.Name,
				Category:    s.Category,
				Subcategory: s.Subcategory,
				Difficulty:  d.Name,
				Thresholds:  make([]Threshold, len(s.Thresholds)),
			}
			for i, score := range s.Thresholds {
				if score <= 0 {
					return nil, fmt.Errorf("%w: scenario %q threshold %d is not positive",
						ErrInvalidCatalog, s.Name, i)
				}
				if i > 0 && score <= s.Thresholds[i-1] {
					return nil, fmt.Errorf("%w: scenario %q thresholds not strictly ascending",
						ErrInvalidCatalog, s.Name)
				}
				sc.Thresholds[i] = Threshold{Rank: d.Ranks[i], Score: score}
			}
			diff.scenarios = append(diff.scenarios, sc)
			c.byName[s.Name] = sc
		}
		sort.Slice(diff.scenarios, func(i, j int) bool {
			return diff.scenarios[i].Name < diff.scenarios[j].Name
		})
		c.order = append(c.order, d.Name)
		c.difficulties[d.Name] = diff
	}
	return c, nil
}

// Load reads and parses a benchmark catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return New(data)
}

// Difficulties lists difficulty names in catalog order.
func (c *Catalog) Difficulties() []string {
	return append([]string(nil), c.order...)
}

// RankNames returns the rank ladder of a difficulty, lowest first.
func (c *Catalog) RankNames(name string) ([]string, error) {
	d, ok := c.difficulties[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, name)
	}
	return append([]string(nil), d.ranks...), nil
}

// MaxRankLevel returns the number of ranks in a difficulty's ladder, or 0
// for an unknown difficulty.
func (c *Catalog) MaxRankLevel(name string) int {
	d, ok := c.difficulties[name]
	if !ok {
		return 0
	}
	return len(d.ranks)
}

// Scenarios returns the scenarios of a difficulty sorted by name.
func (c *Catalog) Scenarios(name string) ([]*Scenario, error) {
	d, ok := c.difficulties[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, name)
	}
	return append([]*Scenario(nil), d.scenarios...), nil
}

// Scenario looks a scenario up by name across all difficulties.
func (c *Catalog) Scenario(name string) (*Scenario, error) {
	s, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return s, nil
}

// Size returns the total number of scenarios in the catalog.
func (c *Catalog) Size() int {
	return len(c.byName)
}
