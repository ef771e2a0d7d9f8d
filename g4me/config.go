package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/logging"
	"github.com/next-exp/g4me_go/pkg/recorder"
	"github.com/next-exp/g4me_go/pkg/toymc"
)

const envPrefix = "G4ME_"

type RunConfig struct {
	Verbosity int `yaml:"verbosity" env:"VERBOSITY"`
	RunNumber int `yaml:"run_number" env:"RUN_NUMBER"`
	Events    int `yaml:"events" env:"EVENTS"`
}

// CatalogConfig selects the bookkeeping database. An empty driver disables
// it. For mysql without a DSN the host, user, pass and dbname fields are
// used.
type CatalogConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
	Host   string `yaml:"host" env:"HOST"`
	User   string `yaml:"user" env:"USER"`
	Passwd string `yaml:"pass" env:"PASS"`
	DBName string `yaml:"dbname" env:"DBNAME"`
}

type Configuration struct {
	Run     RunConfig        `yaml:"run"`
	IO      recorder.Options `yaml:"io"`
	Catalog CatalogConfig    `yaml:"catalog"`
	// Gun energies are in MeV, positions in mm and times in ns.
	Gun toymc.Gun `yaml:"gun"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Run: RunConfig{
			Verbosity: 0,
			RunNumber: 0,
			Events:    10,
		},
		IO: recorder.DefaultOptions(),
		Gun: toymc.Gun{
			Particles: []toymc.Particle{
				{PDG: 13, Energy: 10 * geometry.GeV, Direction: geometry.Vector{X: 1, Z: 0.2}},
			},
		},
	}
}

// LoadConfiguration reads filename over the defaults, then applies the
// G4ME_* environment overrides. An empty filename only applies the
// environment.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("error parsing %s: %w", filename, err)
		}
	}
	if err := applyEnv(&config); err != nil {
		return config, err
	}
	if _, err := recorder.ParseFormat(string(config.IO.Format)); err != nil {
		return config, err
	}
	return config, nil
}

func applyEnv(config *Configuration) error {
	targets := []struct {
		prefix string
		target any
	}{
		{envPrefix, &config.Run},
		{envPrefix + "IO_", &config.IO},
		{envPrefix + "CATALOG_", &config.Catalog},
	}
	for _, t := range targets {
		if err := env.ParseWithOptions(t.target, env.Options{Prefix: t.prefix}); err != nil {
			return fmt.Errorf("error reading environment: %w", err)
		}
	}
	return nil
}

func printConfiguration(config Configuration, logger logging.Logger) {
	logger.Info(fmt.Sprintf("Run number: %d", config.Run.RunNumber), "config")
	logger.Info(fmt.Sprintf("Events: %d", config.Run.Events), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Run.Verbosity), "config")
	logger.Info(fmt.Sprintf("Output prefix: %s", config.IO.Prefix), "config")
	logger.Info(fmt.Sprintf("Output format: %s", config.IO.Format), "config")
	logger.Info(fmt.Sprintf("Save particles: %t", config.IO.SaveParticles), "config")
	logger.Info(fmt.Sprintf("Table capacity: %d", config.IO.Capacity), "config")
	logger.Info(fmt.Sprintf("Compression: %d", config.IO.Compression), "config")
	logger.Info(fmt.Sprintf("Catalog driver: %s", config.Catalog.Driver), "config")
	logger.Info(fmt.Sprintf("Gun particles: %d", len(config.Gun.Particles)), "config")
}
