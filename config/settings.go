package config

import (
	"io/ioutil"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Playback struct {
	FPS           float64 `yaml:"fps"`
	Speed         float64 `yaml:"speed"`
	KeepKeyframes bool    `yaml:"keep_keyframes"`
}

type Settings struct {
	Encoding string   `yaml:"encoding"`
	Playback Playback `yaml:"playback"`
	Mode     string   `yaml:"skinning"`
	Workers  int      `yaml:"workers"`
	Addr     string   `yaml:"addr"`
}

// Flags are command line overrides, zero values keep the file settings.
type Flags struct {
	Encoding string
	FPS      float64
	Speed    float64
	Keep     bool
	Mode     string
	Workers  int
	Addr     string
}

const (
	DefaultFPS  = 30
	DefaultMode = "lbs"
	DefaultAddr = ":8000"
)

// Load reads a yaml settings file. Missing fields stay zero until Resolve.
func Load(path string) (Settings, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "Failed to read settings '%s'", path)
	}
	return Parse(data)
}

func Parse(data []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, errors.Wrapf(err, "Failed to parse settings")
	}
	return s, nil
}

func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(&s)
}

// Resolve applies flag overrides, fills defaults and selects the text encoding.
func (s *Settings) Resolve(flags Flags) error {
	if flags.Encoding != "" {
		s.Encoding = flags.Encoding
	}
	if flags.FPS > 0 {
		s.Playback.FPS = flags.FPS
	}
	if flags.Speed > 0 {
		s.Playback.Speed = flags.Speed
	}
	if flags.Keep {
		s.Playback.KeepKeyframes = true
	}
	if flags.Mode != "" {
		s.Mode = flags.Mode
	}
	if flags.Workers > 0 {
		s.Workers = flags.Workers
	}
	if flags.Addr != "" {
		s.Addr = flags.Addr
	}

	if s.Playback.FPS <= 0 {
		s.Playback.FPS = DefaultFPS
	}
	if s.Playback.Speed <= 0 {
		s.Playback.Speed = 1
	}
	if s.Mode == "" {
		s.Mode = DefaultMode
	}
	if s.Workers <= 0 {
		s.Workers = runtime.NumCPU()
	}
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.Encoding == "" {
		s.Encoding = DefaultEncoding
	}
	return SetEncoding(s.Encoding)
}
