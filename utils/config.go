package utils

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Test pattern selecting cirrus (bit 0), cloud (bit 1) and water (bit 5)
// in a Landsat fmask.
const CloudWaterCirrusBits = 0b00100011

var GoesSatellites = []string{"goes16", "goes18", "goes19"}

// GoesDomains are the ABI scan sectors: full disk, CONUS and mesoscale.
var GoesDomains = []string{"F", "C", "M"}

// Mask describes which fmask pixels are flagged. Value is a binary
// string tested with a bitwise AND; BitTests holds (filter, value) pairs
// of binary strings where a pixel is flagged if pixel&filter == value
// for any pair.
type Mask struct {
	ID       string   `json:"id"`
	Value    string   `json:"value"`
	BitTests []string `json:"bit_tests"`
}

type Palette struct {
	Interpolate bool         `json:"interpolate"`
	Colours     []color.RGBA `json:"colours"`
}

// GoesConfig holds the defaults of the GOES nearest-time fetcher.
type GoesConfig struct {
	// Satellite is one of GoesSatellites.
	Satellite string `json:"satellite"`

	// Product is the NOAA product name without the domain letter.
	Product string `json:"product"`

	// Domain is one of GoesDomains. It is appended to ABI products only.
	Domain string `json:"domain"`

	// Download fetches the nearest file; when false only its local path
	// is reported.
	Download bool `json:"download"`

	// SaveDir is the root of the local archive; "~" expands to the home
	// directory.
	SaveDir string `json:"save_dir"`

	// BucketURL may hold a %s verb that is replaced by the satellite.
	BucketURL string `json:"bucket_url"`

	// WithinMinutes bounds the search either side of the timestamp.
	WithinMinutes int `json:"within_minutes"`

	// ListConcurrency bounds the hourly listings running at once.
	ListConcurrency int `json:"list_concurrency"`

	TimeoutSecs int    `json:"timeout_secs"`
	MemcacheURI string `json:"memcache_uri"`
	Verbose     bool   `json:"verbose"`
}

type CompositeConfig struct {
	KeepAttrs     []string `json:"keep_attrs"`
	History       string   `json:"history"`
	HistogramBins int      `json:"histogram_bins"`
	Mask          *Mask    `json:"mask"`
}

type MetricsConfig struct {
	// Logger is "stdout", "file" or empty for no metrics.
	Logger         string `json:"logger"`
	LogDir         string `json:"log_dir"`
	MaxLogFileSize int64  `json:"max_log_file_size"`
	MaxLogFiles    int    `json:"max_log_files"`
	Verbose        bool   `json:"verbose"`
}

type Config struct {
	Goes      GoesConfig      `json:"goes"`
	Composite CompositeConfig `json:"composite"`
	Metrics   MetricsConfig   `json:"metrics"`
}

func DefaultGoesConfig() *GoesConfig {
	return &GoesConfig{
		Satellite:       "goes16",
		Product:         "ABI-L2-MCMIP",
		Domain:          "C",
		Download:        true,
		SaveDir:         filepath.Join("~", "data"),
		BucketURL:       "https://noaa-%s.s3.amazonaws.com",
		WithinMinutes:   60,
		TimeoutSecs:     300,
		ListConcurrency: 4,
	}
}

func DefaultCompositeConfig() *CompositeConfig {
	return &CompositeConfig{
		KeepAttrs:     []string{"cloud_cover", "date", "day", "target_lat", "target_lon"},
		History:       "written by make_false_color",
		HistogramBins: 256,
		Mask:          &Mask{ID: "fmask", Value: fmt.Sprintf("%08b", CloudWaterCirrusBits)},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Goes:      *DefaultGoesConfig(),
		Composite: *DefaultCompositeConfig(),
	}
}

// Within is the search window either side of a timestamp.
func (g *GoesConfig) Within() time.Duration {
	return time.Duration(g.WithinMinutes) * time.Minute
}

func (g *GoesConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// Bucket is the NOAA bucket holding the satellite's products.
func (g *GoesConfig) Bucket() string {
	return "noaa-" + g.Satellite
}

func (g *GoesConfig) BucketEndpoint() string {
	if strings.Contains(g.BucketURL, "%s") {
		return strings.TrimRight(fmt.Sprintf(g.BucketURL, g.Satellite), "/")
	}
	return strings.TrimRight(g.BucketURL, "/")
}

// ProductDir is the top level key prefix of the product. ABI products
// are split by domain.
func (g *GoesConfig) ProductDir() string {
	if strings.HasPrefix(g.Product, "ABI") {
		return g.Product + g.Domain
	}
	return g.Product
}

// ArchiveDir resolves SaveDir, expanding a leading "~".
func (g *GoesConfig) ArchiveDir() (string, error) {
	dir := g.SaveDir
	if dir == "~" || strings.HasPrefix(dir, "~/") || strings.HasPrefix(dir, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, dir[1:])
	}
	return dir, nil
}

func (g *GoesConfig) Validate() error {
	if !stringIn(g.Satellite, GoesSatellites) {
		return fmt.Errorf("unsupported satellite %q, expecting one of %v", g.Satellite, GoesSatellites)
	}
	if !stringIn(g.Domain, GoesDomains) {
		return fmt.Errorf("unsupported domain %q, expecting one of %v", g.Domain, GoesDomains)
	}
	if len(strings.TrimSpace(g.Product)) == 0 {
		return fmt.Errorf("GOES product is empty")
	}
	if len(strings.TrimSpace(g.BucketURL)) == 0 {
		return fmt.Errorf("GOES bucket URL is empty")
	}
	if g.WithinMinutes <= 0 {
		return fmt.Errorf("search window must be positive, got %d minutes", g.WithinMinutes)
	}
	return nil
}

func (c *CompositeConfig) Validate() error {
	if c.HistogramBins <= 0 {
		return fmt.Errorf("histogram bins must be positive, got %d", c.HistogramBins)
	}
	if c.Mask == nil {
		return fmt.Errorf("composite mask is not set")
	}
	if len(c.Mask.Value) == 0 && len(c.Mask.BitTests) == 0 {
		return fmt.Errorf("Please specify either mask.Value or mask.BitTests")
	}
	return nil
}

// LoadConfigFile reads a JSON config over the default values.
func (config *Config) LoadConfigFile(configFile string) error {
	*config = *DefaultConfig()
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
	}

	err = json.Unmarshal(cfg, config)
	if err != nil {
		return fmt.Errorf("Error at JSON parsing config document: %s. Error: %v", configFile, err)
	}

	if err = config.Goes.Validate(); err != nil {
		return fmt.Errorf("Invalid goes section in %s: %v", configFile, err)
	}
	if err = config.Composite.Validate(); err != nil {
		return fmt.Errorf("Invalid composite section in %s: %v", configFile, err)
	}
	return nil
}

func stringIn(str string, strs []string) bool {
	for _, s := range strs {
		if str == s {
			return true
		}
	}
	return false
}
