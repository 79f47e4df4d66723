// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telex

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZaparooProject/go-telex/codec"
	"github.com/ZaparooProject/go-telex/tty"
)

// PinConfig assigns GPIO names to each line function. Names are resolved
// through periph's gpioreg, e.g. "GPIO17".
type PinConfig struct {
	TX          string `yaml:"tx"`
	RX          string `yaml:"rx"`
	Relay       string `yaml:"relay"` // optional
	LED         string `yaml:"led"`   // optional, must support PWM
	TXInvert    bool   `yaml:"tx_invert"`
	RXInvert    bool   `yaml:"rx_invert"`
	RelayInvert bool   `yaml:"relay_invert"`
	LEDInvert   bool   `yaml:"led_invert"`
}

// Config describes one teleprinter.
type Config struct {
	Name         string        `yaml:"name"`
	AnswerBack   string        `yaml:"answer_back"`
	DialMode     string        `yaml:"dial_mode"`     // pulse or key
	Coding       string        `yaml:"coding"`        // ita2, us or mkt2
	ShiftMarkers string        `yaml:"shift_markers"` // redundant, silent or all
	Pins         PinConfig     `yaml:"pins"`
	Baud         float64       `yaml:"baud"`
	TickPeriod   time.Duration `yaml:"tick_period"`
	TraceSize    int           `yaml:"trace_size"`
	FlipBits     bool          `yaml:"flip_bits"`
}

// DefaultConfig returns a 50 baud ITA2 machine on the Raspberry Pi header.
func DefaultConfig() *Config {
	return &Config{
		Name:         "telex",
		Baud:         50,
		TickPeriod:   time.Millisecond,
		DialMode:     tty.DialModePulse.String(),
		Coding:       codec.ITA2.String(),
		ShiftMarkers: codec.ShiftRedundant.String(),
		TraceSize:    64,
		Pins: PinConfig{
			TX:    "GPIO17",
			RX:    "GPIO27",
			Relay: "GPIO22",
			LED:   "GPIO18",
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
// Environment variables referenced as ${VAR} or $VAR are expanded before
// parsing, so pin names can come from a .env file per host.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration over DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is complete and consistent.
// Pin names are only checked for presence; New resolves them.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Pins.TX) == "" {
		return newConfigError("pins.tx", ErrMissingPin)
	}
	if strings.TrimSpace(c.Pins.RX) == "" {
		return newConfigError("pins.rx", ErrMissingPin)
	}
	return c.validateLine()
}

// validateLine checks everything except pin names.
func (c *Config) validateLine() error {
	if _, err := tty.NewTiming(c.Baud, c.TickPeriod); err != nil {
		return newConfigError("baud", errors.Join(ErrInvalidConfig, err))
	}
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	if _, err := c.CodecConfig(); err != nil {
		return err
	}
	if c.TraceSize < 0 {
		return newConfigError("trace_size", fmt.Errorf("%w: %d", ErrInvalidConfig, c.TraceSize))
	}
	return nil
}

// EngineConfig returns the line engine settings.
func (c *Config) EngineConfig() (*tty.Config, error) {
	mode, err := tty.ParseDialMode(c.DialMode)
	if err != nil {
		return nil, newConfigError("dial_mode", errors.Join(ErrInvalidConfig, err))
	}
	return &tty.Config{
		Baud:       c.Baud,
		TickPeriod: c.TickPeriod,
		InvertTX:   c.Pins.TXInvert,
		InvertRX:   c.Pins.RXInvert,
		DialMode:   mode,
	}, nil
}

// CodecConfig returns the code table settings.
func (c *Config) CodecConfig() (*codec.Config, error) {
	variant, err := codec.ParseVariant(c.Coding)
	if err != nil {
		return nil, newConfigError("coding", errors.Join(ErrInvalidConfig, err))
	}
	shift, err := codec.ParseShiftPolicy(c.ShiftMarkers)
	if err != nil {
		return nil, newConfigError("shift_markers", errors.Join(ErrInvalidConfig, err))
	}
	return &codec.Config{
		Variant:  variant,
		FlipBits: c.FlipBits,
		Shift:    shift,
	}, nil
}
