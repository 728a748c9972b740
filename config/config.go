package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DJLinkConfig selects the network interface and how we announce ourselves
type DJLinkConfig struct {
	Interface    string `json:"interface" yaml:"interface"`
	PlayerNumber int    `json:"playerNumber" yaml:"playerNumber"`
	DeviceName   string `json:"deviceName" yaml:"deviceName"`
	MasterOnly   bool   `json:"masterOnly,omitempty" yaml:"masterOnly,omitempty"` // follow only the tempo master's beats
}

// MIDIConfig drives the MIDI clock output
type MIDIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Device  string `json:"device" yaml:"device"`   // port name substring, empty = first port
	Channel int    `json:"channel" yaml:"channel"` // 1-16
}

// LTCConfig drives the Linear Timecode audio output
type LTCConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Device     string  `json:"device" yaml:"device"` // raw PCM file/FIFO, *.wav, or empty to discard
	FrameRate  int     `json:"framerate" yaml:"framerate"`
	DropFrame  bool    `json:"dropFrame,omitempty" yaml:"dropFrame,omitempty"`
	SampleRate int     `json:"sampleRate" yaml:"sampleRate"`
	BitDepth   int     `json:"bitDepth" yaml:"bitDepth"`
	PeriodMs   int     `json:"periodMs" yaml:"periodMs"`
	Amplitude  float64 `json:"amplitude" yaml:"amplitude"`
	CarrierHz  float64 `json:"carrierHz,omitempty" yaml:"carrierHz,omitempty"`
}

// LinkConfig drives the Ableton Link style tempo/phase simulator
type LinkConfig struct {
	Enabled  bool    `json:"enabled" yaml:"enabled"`
	Quantum  float64 `json:"quantum" yaml:"quantum"`
	UpdateMs int     `json:"updateMs" yaml:"updateMs"`
}

// TCConfig drives the generic SMPTE/MTC timecode output
type TCConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Device  string `json:"device" yaml:"device"` // MIDI port for MTC, empty = log only
	Format  string `json:"format" yaml:"format"`
}

// OutputsConfig holds one block per sink kind
type OutputsConfig struct {
	MIDI        MIDIConfig `json:"midi" yaml:"midi"`
	LTC         LTCConfig  `json:"ltc" yaml:"ltc"`
	AbletonLink LinkConfig `json:"abletonLink" yaml:"abletonLink"`
	TC          TCConfig   `json:"tc" yaml:"tc"`
}

// LogConfig stores logging preferences
type LogConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	DJLink  DJLinkConfig  `json:"djlink" yaml:"djlink"`
	Outputs OutputsConfig `json:"outputs" yaml:"outputs"`
	Log     LogConfig     `json:"log,omitempty" yaml:"log,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DJLink: DJLinkConfig{
			PlayerNumber: 5,
			DeviceName:   "DJ Sync Server",
		},
		Outputs: OutputsConfig{
			MIDI: MIDIConfig{Channel: 1},
			LTC: LTCConfig{
				FrameRate:  30,
				SampleRate: 48000,
				BitDepth:   16,
				PeriodMs:   50,
				Amplitude:  0.8,
			},
			AbletonLink: LinkConfig{Quantum: 4, UpdateMs: 200},
			TC:          TCConfig{Format: "smpte"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// ValidationError lists every problem found in a config
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks ranges. It returns *ValidationError or nil.
func (c *Config) Validate() error {
	var p []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			p = append(p, fmt.Sprintf(format, args...))
		}
	}

	check(c.DJLink.PlayerNumber >= 1 && c.DJLink.PlayerNumber <= 127, "djlink.playerNumber %d out of range 1-127", c.DJLink.PlayerNumber)
	check(strings.TrimSpace(c.DJLink.DeviceName) != "", "djlink.deviceName is empty")

	m := c.Outputs.MIDI
	check(m.Channel >= 1 && m.Channel <= 16, "outputs.midi.channel %d out of range 1-16", m.Channel)

	l := c.Outputs.LTC
	check(l.FrameRate == 24 || l.FrameRate == 25 || l.FrameRate == 30, "outputs.ltc.framerate %d must be 24, 25 or 30", l.FrameRate)
	check(!l.DropFrame || l.FrameRate == 30, "outputs.ltc.dropFrame needs framerate 30")
	check(l.SampleRate >= 8000 && l.SampleRate <= 192000, "outputs.ltc.sampleRate %d out of range", l.SampleRate)
	check(l.BitDepth == 8 || l.BitDepth == 16, "outputs.ltc.bitDepth %d must be 8 or 16", l.BitDepth)
	check(l.PeriodMs >= 10 && l.PeriodMs <= 1000, "outputs.ltc.periodMs %d out of range 10-1000", l.PeriodMs)
	check(l.Amplitude > 0 && l.Amplitude <= 1, "outputs.ltc.amplitude %g out of range (0,1]", l.Amplitude)
	check(l.CarrierHz >= 0 && l.CarrierHz < float64(l.SampleRate)/2, "outputs.ltc.carrierHz %g out of range", l.CarrierHz)

	k := c.Outputs.AbletonLink
	check(k.Quantum > 0, "outputs.abletonLink.quantum must be positive")
	check(k.UpdateMs >= 10 && k.UpdateMs <= 5000, "outputs.abletonLink.updateMs %d out of range 10-5000", k.UpdateMs)

	if c.Log.Level != "" {
		_, err := logrus.ParseLevel(c.Log.Level)
		check(err == nil, "log.level %q is not a level", c.Log.Level)
	}

	if len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "djsync"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults, which are written back so the user has something to edit.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Save(path); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	return errors.Wrap(os.WriteFile(path, data, 0644), "write config")
}
