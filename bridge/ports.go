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


package bridge

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PortInfo describes a serial port. USB fields are empty for built-in UARTs
// and on platforms without sysfs.
type PortInfo struct {
	Path         string
	VIDPID       string
	Manufacturer string
	Product      string
	SerialNumber string
}

// String renders the port for the ports listing.
func (p PortInfo) String() string {
	if p.VIDPID == "" {
		return p.Path
	}
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "%s [%s]", p.Path, p.VIDPID)
	if desc := strings.TrimSpace(p.Manufacturer + " " + p.Product); desc != "" {
		_, _ = fmt.Fprintf(&sb, " %s", desc)
	}
	if p.SerialNumber != "" {
		_, _ = fmt.Fprintf(&sb, " (%s)", p.SerialNumber)
	}
	return sb.String()
}

// DescribePorts lists the serial ports with their USB descriptors, leaving
// out any path in ignore.
func DescribePorts(ignore []string) ([]PortInfo, error) {
	names, err := ListPorts()
	if err != nil {
		return nil, err
	}
	return describe(names, ignore, describePort), nil
}

func describe(names, ignore []string, lookup func(string) PortInfo) []PortInfo {
	ports := make([]PortInfo, 0, len(names))
	for _, name := range names {
		if isPathIgnored(name, ignore) {
			continue
		}
		ports = append(ports, lookup(name))
	}
	return ports
}

// isPathIgnored matches cleaned paths case-insensitively, since Windows
// port names are not case sensitive.
func isPathIgnored(path string, ignore []string) bool {
	if path == "" {
		return false
	}
	want := normalizedPath(path)
	for _, p := range ignore {
		if p != "" && normalizedPath(p) == want {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
