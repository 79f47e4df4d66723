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
	"fmt"

	"github.com/ZaparooProject/go-telex/bridge"
	"github.com/spf13/cobra"
)

const defaultPortBaud = 9600

func newSerialCmd(g *globalFlags) *cobra.Command {
	var (
		port     string
		portBaud int
		echo     bool
	)

	cmd := &cobra.Command{
		Use:   "serial",
		Short: "Bridge the teleprinter to a serial port",
		Long: `Bridge the teleprinter to a serial port, e.g. a USB adapter wired to
a vintage terminal or a modem. An unplugged adapter is reopened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := g.openTelex()
			if err != nil {
				return err
			}
			defer func() { _ = t.Close() }()

			opts := bridge.DefaultPumpOptions()
			opts.Echo = echo
			err = bridge.ServeSerial(cmd.Context(), t, port, portBaud, opts, bridge.DefaultRetryConfig())
			return g.reportError(cmd, t, err)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Serial port device")
	cmd.Flags().IntVar(&portBaud, "port-baud", defaultPortBaud, "Serial port baud rate")
	cmd.Flags().BoolVar(&echo, "echo", false, "Echo received keys back to the port")
	_ = cmd.MarkFlagRequired("port")
	return cmd
}

func newPortsCmd() *cobra.Command {
	var ignore []string

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := bridge.DescribePorts(ignore)
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "no serial ports found")
				return nil
			}
			for _, p := range ports {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "Port paths to leave out")
	return cmd
}
