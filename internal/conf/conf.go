// Package conf loads the application settings from defaults, an optional
// YAML config file, and VOICEMOD_* environment variables, in ascending
// precedence. Command-line flags bind on top through viper.
package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "VOICEMOD"

// AudioSettings selects the stream format and the endpoints.
type AudioSettings struct {
	SampleRate   int    `mapstructure:"samplerate"`
	BlockSize    int    `mapstructure:"blocksize"`
	InputDevice  string `mapstructure:"inputdevice"`
	OutputDevice string `mapstructure:"outputdevice"`
}

// EffectsSettings holds the voice-transformation parameters.
type EffectsSettings struct {
	Semitones       float64 `mapstructure:"semitones"`
	Step            float64 `mapstructure:"step"`
	Robotic         bool    `mapstructure:"robotic"`
	Intensity       float64 `mapstructure:"intensity"`
	CarrierHz       float64 `mapstructure:"carrierhz"`
	BitDepth        int     `mapstructure:"bitdepth"`
	OutputGain      float64 `mapstructure:"outputgain"`
	NormalizeTarget float64 `mapstructure:"normalizetarget"`
}

// Settings is the full application configuration.
type Settings struct {
	Debug   bool            `mapstructure:"debug"`
	Audio   AudioSettings   `mapstructure:"audio"`
	Effects EffectsSettings `mapstructure:"effects"`
}

// SetDefaults registers every setting's default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("audio.samplerate", 48000)
	v.SetDefault("audio.blocksize", 256)
	v.SetDefault("audio.inputdevice", "")
	v.SetDefault("audio.outputdevice", "")

	v.SetDefault("effects.semitones", 3.0)
	v.SetDefault("effects.step", 0.5)
	v.SetDefault("effects.robotic", true)
	v.SetDefault("effects.intensity", 0.7)
	v.SetDefault("effects.carrierhz", 95.0)
	v.SetDefault("effects.bitdepth", 10)
	v.SetDefault("effects.outputgain", 2.2)
	v.SetDefault("effects.normalizetarget", 0.95)
}

// NewViper creates a viper instance wired with defaults, environment
// binding, and an optional explicit config file path.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voicemod")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/voicemod")
	}

	return v
}

// Load reads the configuration and unmarshals it into Settings. A missing
// config file is not an error unless one was named explicitly.
func Load(v *viper.Viper, explicitFile bool) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate reports the first out-of-range setting.
func (s *Settings) Validate() error {
	if s.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.samplerate must be > 0: %d", s.Audio.SampleRate)
	}

	if s.Audio.BlockSize < 32 || s.Audio.BlockSize&(s.Audio.BlockSize-1) != 0 {
		return fmt.Errorf("audio.blocksize must be a power of two >= 32: %d", s.Audio.BlockSize)
	}

	if s.Effects.Semitones < -24 || s.Effects.Semitones > 24 {
		return fmt.Errorf("effects.semitones must be in [-24, 24]: %f", s.Effects.Semitones)
	}

	if s.Effects.Step <= 0 {
		return fmt.Errorf("effects.step must be > 0: %f", s.Effects.Step)
	}

	if s.Effects.Intensity < 0 || s.Effects.Intensity > 1 {
		return fmt.Errorf("effects.intensity must be in [0, 1]: %f", s.Effects.Intensity)
	}

	if s.Effects.CarrierHz <= 0 {
		return fmt.Errorf("effects.carrierhz must be > 0: %f", s.Effects.CarrierHz)
	}

	if s.Effects.BitDepth < 1 || s.Effects.BitDepth > 32 {
		return fmt.Errorf("effects.bitdepth must be in [1, 32]: %d", s.Effects.BitDepth)
	}

	if s.Effects.OutputGain <= 0 {
		return fmt.Errorf("effects.outputgain must be > 0: %f", s.Effects.OutputGain)
	}

	if s.Effects.NormalizeTarget <= 0 || s.Effects.NormalizeTarget > 1 {
		return fmt.Errorf("effects.normalizetarget must be in (0, 1]: %f", s.Effects.NormalizeTarget)
	}

	return nil
}
