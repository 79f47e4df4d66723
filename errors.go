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
)

// Error categories
var (
	// Configuration errors - fatal at construction
	ErrMissingPin    = errors.New("required pin not configured")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrPinNotFound   = errors.New("pin not found")
	ErrHardwareInit  = errors.New("hardware initialization failed")

	// Lifecycle errors
	ErrClosed = errors.New("telex is closed")
)

// ConfigError reports which configuration field was rejected.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// IsConfigError reports whether err was caused by a rejected configuration.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) || errors.Is(err, ErrMissingPin) || errors.Is(err, ErrInvalidConfig)
}
