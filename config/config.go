// Package config reads named search strategies from TOML files.
//
//	[[strategy]]
//	name = "kriging"
//	kind = "ellipsoid"
//	major = 250.0
//	minor = 120.0
//	vertical = 15.0
//	azimuth = 30.0
//	samples = 24
//	min_samples = 4
//	min_spacing = 5.0
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/gammaray/spatialindex/search"
)

var ErrUnknownStrategy = errors.New("config: unknown strategy")

// File is the top level of a strategy file.
type File struct {
	Strategies []StrategyConfig `toml:"strategy"`
}

// StrategyConfig is one [[strategy]] table.
type StrategyConfig struct {
	Name string `toml:"name"`
	// Kind is "sphere", "ellipsoid" or "sectored". Sectored searches use the
	// ellipsoid ranges when major is set and radius otherwise.
	Kind string `toml:"kind"`

	Radius   float64 `toml:"radius"`
	Major    float64 `toml:"major"`
	Minor    float64 `toml:"minor"`
	Vertical float64 `toml:"vertical"`
	Azimuth  float64 `toml:"azimuth"`
	Dip      float64 `toml:"dip"`
	Rake     float64 `toml:"rake"`

	Sectors      int `toml:"sectors"`
	MaxPerSector int `toml:"max_per_sector"`

	Samples    int     `toml:"samples"`
	MinSpacing float64 `toml:"min_spacing"`
	MinSamples int     `toml:"min_samples"`
}

// Load reads a strategy file from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Decode parses a strategy file and checks that every strategy builds.
func Decode(r io.Reader) (*File, error) {
	c := new(File)
	if _, err := toml.NewDecoder(r).Decode(c); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for i, s := range c.Strategies {
		if s.Name == "" {
			return nil, fmt.Errorf("strategy %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate strategy %q", s.Name)
		}
		seen[s.Name] = true
		if _, err := s.Strategy(); err != nil {
			return nil, fmt.Errorf("strategy %q: %w", s.Name, err)
		}
	}
	return c, nil
}

// Lookup returns the named strategy.
func (c *File) Lookup(name string) (search.Strategy, error) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s.Strategy()
		}
	}
	return search.Strategy{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Names lists the strategies in file order.
func (c *File) Names() []string {
	names := make([]string, len(c.Strategies))
	for i, s := range c.Strategies {
		names[i] = s.Name
	}
	return names
}

// Strategy builds the search strategy described by the table.
func (s StrategyConfig) Strategy() (search.Strategy, error) {
	nb, err := s.neighborhood()
	if err != nil {
		return search.Strategy{}, err
	}
	return search.NewStrategy(nb, s.Samples, s.MinSpacing, s.MinSamples)
}

func (s StrategyConfig) neighborhood() (search.Neighborhood, error) {
	switch s.Kind {
	case "sphere", "":
		// an omitted radius decodes as zero, which NewSphere would accept
		if !(s.Radius > 0) {
			return search.Neighborhood{}, fmt.Errorf("%w: radius %g", search.ErrInvalidNeighborhood, s.Radius)
		}
		return search.NewSphere(s.Radius)
	case "ellipsoid":
		return search.NewEllipsoid(s.anisotropy())
	case "sectored":
		var base search.Neighborhood
		var err error
		if s.Major > 0 {
			base, err = search.NewEllipsoid(s.anisotropy())
		} else {
			base, err = search.NewSphere(s.Radius)
		}
		if err != nil {
			return search.Neighborhood{}, err
		}
		return search.NewSectored(base, s.Sectors, s.MaxPerSector)
	}
	return search.Neighborhood{}, fmt.Errorf("%w: unknown kind %q", search.ErrInvalidNeighborhood, s.Kind)
}

func (s StrategyConfig) anisotropy() search.Anisotropy {
	return search.Anisotropy{
		MajorRange:    s.Major,
		MinorRange:    s.Minor,
		VerticalRange: s.Vertical,
		Azimuth:       s.Azimuth,
		Dip:           s.Dip,
		Rake:          s.Rake,
	}
}
