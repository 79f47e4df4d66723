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

// Package statusled animates a status LED toward a target brightness.
//
// The brightness moves one step per period toward an attractor value, so
// changes in device state fade in rather than switch. Output is gamma
// corrected and written as a PWM duty cycle.
package statusled

import (
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/ZaparooProject/go-telex/internal/syncutil"
	"github.com/ZaparooProject/go-telex/scheduler"
)

const (
	// MaxValue is the brightest level.
	MaxValue = 32
	// MaxPWM is the full-scale corrected output.
	MaxPWM = 1023
	// DefaultAttractor is the level the LED settles at after New.
	DefaultAttractor = 16
	// StepPeriod is how often Step is called once started.
	StepPeriod = 50 * time.Millisecond
	// Frequency is the PWM carrier.
	Frequency = 125 * physic.Hertz
)

// PWM drives a pulse-width modulated output. periph's gpio.PinOut satisfies it.
type PWM interface {
	PWM(duty gpio.Duty, f physic.Frequency) error
}

// LED is a status LED with a brightness attractor.
type LED struct {
	pin    PWM
	sched  scheduler.Scheduler
	value  int
	attr   int
	last   int
	invert bool
	mu     syncutil.Mutex

	pwmErrors atomic.Int64 // failed PWM writes from scheduled steps
}

// New creates an LED at zero brightness heading for DefaultAttractor.
// invert is for low-active LEDs wired to the supply.
func New(pin PWM, invert bool) *LED {
	return &LED{
		pin:    pin,
		invert: invert,
		attr:   DefaultAttractor,
		last:   -1,
	}
}

// Set jumps to v. Values outside 0..MaxValue are kept and decay back.
func (l *LED) Set(v int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
}

// Add nudges the brightness by delta, e.g. a flash on activity.
func (l *LED) Add(delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value += delta
}

// Attractor sets the level the brightness drifts toward.
func (l *LED) Attractor(v int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attr = v
}

// Value returns the current brightness before clamping.
func (l *LED) Value() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Step moves the brightness one unit toward the attractor and writes the
// corrected duty cycle if the visible level changed.
func (l *LED) Step() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.value > l.attr:
		l.value--
	case l.value < l.attr:
		l.value++
	}

	level := min(max(l.value, 0), MaxValue)
	if level == l.last {
		return nil
	}

	if err := l.pin.PWM(duty(level, l.invert), Frequency); err != nil {
		return fmt.Errorf("status led pwm: %w", err)
	}
	l.last = level
	return nil
}

// step is the scheduled form of Step. A failed write is counted and
// retried on the next period.
func (l *LED) step() {
	if err := l.Step(); err != nil {
		l.pwmErrors.Add(1)
	}
}

// Errors returns the number of failed PWM writes from scheduled steps.
func (l *LED) Errors() int64 {
	return l.pwmErrors.Load()
}

// duty converts a brightness level to a gamma corrected duty cycle.
func duty(level int, invert bool) gpio.Duty {
	v := min(level*level, MaxPWM)
	if invert {
		v = MaxPWM - v
	}
	return gpio.Duty(int64(gpio.DutyMax) * int64(v) / MaxPWM)
}

// Start calls Step every StepPeriod from s.
func (l *LED) Start(s scheduler.Scheduler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sched != nil {
		return scheduler.ErrAlreadyStarted
	}
	if err := s.Start(StepPeriod, l.step); err != nil {
		return fmt.Errorf("start status led: %w", err)
	}
	l.sched = s
	return nil
}

// Close stops the animation and switches the LED off.
func (l *LED) Close() error {
	l.mu.Lock()
	s := l.sched
	l.sched = nil
	l.mu.Unlock()

	// Stop outside the lock: it waits for an in-flight Step.
	if s != nil {
		s.Stop()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.value, l.attr, l.last = 0, 0, 0
	if err := l.pin.PWM(duty(0, l.invert), Frequency); err != nil {
		return fmt.Errorf("status led off: %w", err)
	}
	return nil
}
