package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"flowforge/flow"
	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/sampler"
	"flowforge/trainer"
)

// Config is flowforge-demo's YAML-facing training configuration. Unlike the
// teacher's OuterConfig/TrainingConfig split (a Kind/Def envelope re-marshaled
// into an algorithm-specific inner config), there is only one controller
// selector here with two fixed shapes, so the envelope buys nothing; see
// DESIGN.md for why that indirection was dropped while viper/yaml.v3
// themselves were kept.
type Config struct {
	Seed       uint64 `mapstructure:"seed"`
	Addr       string `mapstructure:"addr"`
	Controller string `mapstructure:"controller"` // "delaymultiplier" or "ruletree"

	Genetic GeneticSpec `mapstructure:"genetic"`
	Utility UtilitySpec `mapstructure:"utility"`
	Network NetworkSpec `mapstructure:"network"`
}

type GeneticSpec struct {
	Iterations      int     `mapstructure:"iterations"`
	PopulationSize  int     `mapstructure:"populationSize"`
	RunForSeconds   float64 `mapstructure:"runForSeconds"`
	NetworksPerIter uint32  `mapstructure:"networksPerIter"`
}

type UtilitySpec struct {
	Alpha       float64 `mapstructure:"alpha"`
	DelayWeight float64 `mapstructure:"delayWeight"`
}

// NetworkSpec describes the uniform ranges and fixed on/off timing that
// NetworkConfig() turns into distributions. RTT/bandwidth/loss/buffer are
// sampled per network instance; on/off durations are fixed (Dirac) rather
// than configurable distributions, matching sampler.Network's usage.
// OnTimeSeconds and OffTimeSeconds must both be strictly positive: they
// feed rng.PositiveContinuousDistribution, which panics on a non-positive
// sample, and components.Toggler samples the off duration unconditionally
// at construction — a zero OffTimeSeconds would panic the instant any
// sender is wired up.
type NetworkSpec struct {
	RTTMinSeconds    float64 `mapstructure:"rttMinSeconds"`
	RTTMaxSeconds    float64 `mapstructure:"rttMaxSeconds"`
	BandwidthMinBps  float64 `mapstructure:"bandwidthMinBytesPerSecond"`
	BandwidthMaxBps  float64 `mapstructure:"bandwidthMaxBytesPerSecond"`
	LossMin          float64 `mapstructure:"lossMin"`
	LossMax          float64 `mapstructure:"lossMax"`
	NumSendersMin    int     `mapstructure:"numSendersMin"`
	NumSendersMax    int     `mapstructure:"numSendersMax"`
	BufferBytesMin   float64 `mapstructure:"bufferBytesMin"`
	BufferBytesMax   float64 `mapstructure:"bufferBytesMax"`
	OnTimeSeconds    float64 `mapstructure:"onTimeSeconds"`
	OffTimeSeconds   float64 `mapstructure:"offTimeSeconds"`
}

// DefaultConfig uses the same genetic-search parameters as
// trainer.DefaultGeneticConfig, plus default network ranges, wired to a
// DelayMultiplier controller and a moderate alpha-fair utility.
func DefaultConfig() *Config {
	return &Config{
		Seed:       1,
		Addr:       ":8080",
		Controller: "delaymultiplier",
		Genetic: GeneticSpec{
			Iterations:      100,
			PopulationSize:  1000,
			RunForSeconds:   1000,
			NetworksPerIter: 100,
		},
		Utility: UtilitySpec{Alpha: 1.0, DelayWeight: 0.1},
		Network: NetworkSpec{
			RTTMinSeconds:   0.01,
			RTTMaxSeconds:   0.3,
			BandwidthMinBps: 1e5,
			BandwidthMaxBps: 1e7,
			LossMin:         0,
			LossMax:         0.01,
			NumSendersMin:   1,
			NumSendersMax:   8,
			BufferBytesMin:  1e4,
			BufferBytesMax:  1e6,
			OnTimeSeconds:   5,
			OffTimeSeconds:  5,
		},
	}
}

// LoadConfig reads a YAML training config from path, starting from
// DefaultConfig and overlaying whatever the file sets. Grounded on
// reinforcement.FromYaml's viper setup (SetConfigFile/SetConfigType/
// AddConfigPath), minus that function's OuterConfig re-marshal step.
func LoadConfig(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := vp.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) networkConfig() sampler.NetworkConfig {
	return sampler.NetworkConfig{
		RTT: rng.NewPositiveContinuousDistribution(rng.UniformFloat{
			Min: c.Network.RTTMinSeconds, Max: c.Network.RTTMaxSeconds,
		}),
		BandwidthBytesPerSecond: rng.UniformFloat{
			Min: c.Network.BandwidthMinBps, Max: c.Network.BandwidthMaxBps,
		},
		Loss: rng.UniformFloat{Min: c.Network.LossMin, Max: c.Network.LossMax},
		NumSenders: rng.DiscreteUniform{
			Min: c.Network.NumSendersMin, Max: c.Network.NumSendersMax,
		},
		BufferBytes: rng.UniformFloat{
			Min: c.Network.BufferBytesMin, Max: c.Network.BufferBytesMax,
		},
		OnDist:  rng.NewPositiveContinuousDistribution(rng.DiracFloat{Value: c.Network.OnTimeSeconds}),
		OffDist: rng.NewPositiveContinuousDistribution(rng.DiracFloat{Value: c.Network.OffTimeSeconds}),
	}
}

func (c *Config) geneticConfig() trainer.GeneticConfig {
	return trainer.GeneticConfig{
		Iterations:      c.Genetic.Iterations,
		PopulationSize:  c.Genetic.PopulationSize,
		RunFor:          quantities.Seconds(c.Genetic.RunForSeconds),
		NetworksPerIter: c.Genetic.NetworksPerIter,
	}
}

func (c *Config) utilityFunction() flow.AlphaFairness {
	return flow.AlphaFairness{Alpha: c.Utility.Alpha, DelayWeight: c.Utility.DelayWeight}
}
