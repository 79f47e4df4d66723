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
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ZaparooProject/go-telex/internal/syncutil"
)

// debugEnabled controls whether debug lines are echoed to the console.
var debugEnabled = false

// debugOut is where console debug output goes. Stdout belongs to the
// teleprinter text stream, so debug lines go to stderr.
var debugOut io.Writer = os.Stderr

// logMu serializes writes to the session log and the console.
var logMu syncutil.Mutex

func init() {
	if os.Getenv("TELEX_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled = true
	}
}

// Debugf prints debug information.
// Always writes to session log file (if initialized) with timestamp.
// Only prints to the console when debug mode is enabled.
func Debugf(format string, args ...any) {
	writeDebug(fmt.Sprintf(format, args...))
}

// Debugln prints debug information.
// Always writes to session log file (if initialized) with timestamp.
// Only prints to the console when debug mode is enabled.
func Debugln(args ...any) {
	writeDebug(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func writeDebug(message string) {
	logMu.Lock()
	defer logMu.Unlock()

	if sessionLogWriter != nil {
		timestamp := time.Now().Format("15:04:05.000")
		_, _ = fmt.Fprintf(sessionLogWriter, "%s DEBUG: %s\n", timestamp, message)
	}

	if debugEnabled {
		_, _ = fmt.Fprintf(debugOut, "DEBUG: %s\n", message)
	}
}

// SetDebugEnabled allows programmatic control of debug logging.
func SetDebugEnabled(enabled bool) {
	logMu.Lock()
	defer logMu.Unlock()
	debugEnabled = enabled
}

// DebugEnabled reports whether console debug output is on.
func DebugEnabled() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return debugEnabled
}
