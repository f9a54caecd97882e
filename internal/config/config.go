// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/landmask"
	"github.com/woozymasta/farpoint/internal/landmass"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	// nil means the default Point Nemo box; an explicit {} disables it
	Exclusion *landmass.Zone `yaml:"exclusion_zone,omitempty" json:"exclusion_zone,omitempty"`

	Dataset    string      `yaml:"dataset" json:"dataset"`
	References []Reference `yaml:"references" json:"references"`
	Steps      []float64   `yaml:"steps" json:"steps"`
	Cache      Cache       `yaml:"cache" json:"cache"`
	Grid       geo.Grid    `yaml:"grid" json:"grid"`
	Seed       float64     `yaml:"seed" json:"seed"`
	Workers    int         `yaml:"workers,omitempty" json:"workers,omitempty"` // 0 = one per CPU
}

// Reference is a named reference point.
type Reference struct {
	Name string  `yaml:"name,omitempty" json:"name,omitempty"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
}

// Cache selects where land mask rows are kept.
type Cache struct {
	Backend string `yaml:"backend" json:"backend"` // file, redis or none
	Dir     string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Redis   Redis  `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// Redis holds connection settings for the redis cache backend.
type Redis struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password,omitempty" json:"-"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
}

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Dataset: "data/ne_10m_land.shp",
		Steps:   []float64{5, 1},
		Seed:    -1,
		Grid:    geo.World,
		Cache: Cache{
			Backend: BackendFile,
			Dir:     "landmask",
			Redis:   Redis{Addr: "127.0.0.1:6379", Prefix: "landmask"},
		},
	}
}

// Load reads and parses the YAML configuration file from the specified path
// on top of Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every problem that would stop a run before it starts.
func (c *Config) Validate() error {
	var errs []error

	if c.Dataset == "" {
		errs = append(errs, errors.New("dataset path is empty"))
	}
	if len(c.References) == 0 {
		errs = append(errs, errors.New("no reference points configured"))
	}
	for i, r := range c.References {
		if !r.Point().Valid() {
			errs = append(errs, fmt.Errorf("reference #%d %q has invalid coordinates %v,%v", i, r.Name, r.Lat, r.Lon))
		}
	}
	if len(c.Steps) == 0 {
		errs = append(errs, errors.New("no pass steps configured"))
	}
	for _, s := range c.Steps {
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			errs = append(errs, fmt.Errorf("step %v must be a positive number", s))
			continue
		}
		if c.Cache.Backend != BackendNone && c.Cache.Backend != "" {
			if err := landmask.CheckStep(s); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if math.IsNaN(c.Seed) || math.IsInf(c.Seed, 0) {
		errs = append(errs, fmt.Errorf("seed %v must be finite", c.Seed))
	}
	if !c.Grid.Valid() {
		errs = append(errs, fmt.Errorf("grid %+v is empty or outside world bounds", c.Grid))
	}

	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.Dir == "" {
			errs = append(errs, errors.New("file cache requires cache.dir"))
		}
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("redis cache requires cache.redis.addr"))
		}
	case BackendNone, "":
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	return errors.Join(errs...)
}

// Points returns the reference coordinates in configuration order.
func (c *Config) Points() []geo.GeoPoint {
	points := make([]geo.GeoPoint, len(c.References))
	for i, r := range c.References {
		points[i] = r.Point()
	}
	return points
}

// Zone returns the configured exclusion zone.
func (c *Config) Zone() landmass.Zone {
	if c.Exclusion == nil {
		return landmass.PointNemo
	}
	return *c.Exclusion
}

// Point converts the reference to a GeoPoint.
func (r Reference) Point() geo.GeoPoint {
	return geo.GeoPoint{Lat: r.Lat, Lon: r.Lon}
}

// Label returns the name, falling back to the coordinates.
func (c *Config) Label(p geo.GeoPoint) string {
	for _, r := range c.References {
		if r.Point() == p && r.Name != "" {
			return r.Name
		}
	}
	return p.String()
}
