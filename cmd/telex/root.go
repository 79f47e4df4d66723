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


package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	telex "github.com/ZaparooProject/go-telex"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultEnvFile = ".env"

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	logFile    string
	debug      bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "telex",
		Short: "Baudot teleprinter bridge",
		Long: `telex drives a 5-bit Baudot teleprinter over GPIO lines.

The teleprinter can be bridged to the local terminal, a serial port or
WebSocket clients. Settings come from a YAML file (--config); values in
the file may reference environment variables, which are also loaded
from --env-file (default .env when present).

Type ESC followed by a letter to send a command to the bridge, ESC H
prints the list.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  g.setup,
		PersistentPostRunE: g.teardown,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("TELEX_CONFIG"), "YAML configuration file")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", "", "Environment file loaded before the configuration (default .env)")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug output on stderr")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Append debug output to this session log")

	root.AddCommand(
		newRunCmd(g),
		newServeCmd(g),
		newSerialCmd(g),
		newEncodeCmd(g),
		newDecodeCmd(g),
		newPortsCmd(),
	)
	return root
}

func (g *globalFlags) setup(_ *cobra.Command, _ []string) error {
	if err := loadEnvFile(g.envFile); err != nil {
		return err
	}
	if g.debug {
		telex.SetDebugEnabled(true)
	}
	if g.logFile != "" {
		if _, err := telex.OpenSessionLog(g.logFile); err != nil {
			return err
		}
	}
	return nil
}

func (g *globalFlags) teardown(_ *cobra.Command, _ []string) error {
	if g.logFile == "" {
		return nil
	}
	return telex.CloseSessionLog()
}

// loadEnvFile loads path into the environment. Variables that are already
// set win. An empty path tries .env and ignores it when missing.
func loadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load(defaultEnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", defaultEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// loadConfig reads the configuration file, or returns the defaults when
// none is given.
func (g *globalFlags) loadConfig() (*telex.Config, error) {
	if g.configPath == "" {
		return telex.DefaultConfig(), nil
	}
	return telex.LoadConfig(g.configPath)
}

// openTelex loads the configuration and attaches to the teleprinter.
func (g *globalFlags) openTelex() (*telex.Telex, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	t, err := telex.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("open teleprinter: %w", err)
	}
	return t, nil
}

// reportError adds the recent line trace to err in debug mode.
func (g *globalFlags) reportError(cmd *cobra.Command, t *telex.Telex, err error) error {
	if err == nil {
		return nil
	}
	wrapped := t.WrapError(err)
	if g.debug {
		var te *telex.TraceableError
		if errors.As(wrapped, &te) {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), te.FormatTrace())
		}
	}
	return wrapped
}
