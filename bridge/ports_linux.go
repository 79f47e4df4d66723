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


//go:build linux

package bridge

import (
	"os"
	"path/filepath"
	"strings"
)

const sysRoot = "/sys"

// usbDepth bounds the walk from a tty device up to its USB device node.
const usbDepth = 10

func describePort(path string) PortInfo {
	return readSysfsPort(sysRoot, path)
}

// readSysfsPort fills the USB descriptors of path from the sysfs tree at root.
func readSysfsPort(root, path string) PortInfo {
	info := PortInfo{Path: path}

	device := filepath.Join(root, "class", "tty", filepath.Base(path), "device")
	resolved, err := filepath.EvalSymlinks(device)
	if err != nil || !strings.Contains(resolved, "/usb") {
		return info
	}

	current := resolved
	for range usbDepth {
		if !strings.HasPrefix(current, root) {
			break
		}
		if readUSBIdentifiers(&info, current) {
			break
		}
		current = filepath.Dir(current)
	}
	return info
}

func readUSBIdentifiers(info *PortInfo, dir string) bool {
	vid, ok := readAttr(dir, "idVendor")
	if !ok {
		return false
	}
	pid, ok := readAttr(dir, "idProduct")
	if !ok {
		return false
	}
	info.VIDPID = strings.ToUpper(vid + ":" + pid)
	info.Manufacturer, _ = readAttr(dir, "manufacturer")
	info.Product, _ = readAttr(dir, "product")
	info.SerialNumber, _ = readAttr(dir, "serial")
	return true
}

func readAttr(dir, name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // sysfs attribute under a fixed root
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
