// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"errors"
	"fmt"
)

// Tier is one band of the step curve: any backlog up to and including
// MaxBacklog is revealed Step characters per tick.
type Tier struct {
	MaxBacklog int `toml:"max_backlog" json:"max_backlog"`
	Step       int `toml:"step" json:"step"`
}

// Policy chooses how many characters to reveal per tick.
// Tiers must be sorted by MaxBacklog; backlogs beyond the last tier use Burst.
type Policy struct {
	Tiers []Tier
	Burst int
}

// DefaultPolicy is tuned for reading speed at a ~15ms tick: single
// characters for short backlogs, then 2, 5 and 20 as the backlog grows.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{MaxBacklog: 20, Step: 1},
			{MaxBacklog: 50, Step: 2},
			{MaxBacklog: 250, Step: 5},
		},
		Burst: 20,
	}
}

// Step returns the number of characters to reveal for the given backlog.
// The result is at least 1 for any positive backlog, never exceeds the
// backlog, and is 0 when there is nothing to reveal.
func (p Policy) Step(backlog int) int {
	if backlog <= 0 {
		return 0
	}
	step := p.Burst
	for _, t := range p.Tiers {
		if backlog <= t.MaxBacklog {
			step = t.Step
			break
		}
	}
	if step < 1 {
		step = 1
	}
	if step > backlog {
		step = backlog
	}
	return step
}

// ErrEmptyPolicy is returned when a policy has neither tiers nor a burst step.
var ErrEmptyPolicy = errors.New("reveal policy has no tiers and no burst step")

// Validate checks that the curve is well formed: tier bounds strictly
// increase, steps are at least 1 and never decrease, and the burst step is
// no smaller than the last tier's step.
func (p Policy) Validate() error {
	if len(p.Tiers) == 0 && p.Burst < 1 {
		return ErrEmptyPolicy
	}
	prevMax, prevStep := 0, 1
	for i, t := range p.Tiers {
		if t.Step < 1 {
			return fmt.Errorf("tier %d: step must be >= 1, got %d", i, t.Step)
		}
		if t.MaxBacklog <= prevMax {
			return fmt.Errorf("tier %d: max_backlog %d must exceed %d", i, t.MaxBacklog, prevMax)
		}
		if t.Step < prevStep {
			return fmt.Errorf("tier %d: step %d is smaller than previous step %d", i, t.Step, prevStep)
		}
		prevMax, prevStep = t.MaxBacklog, t.Step
	}
	if p.Burst < prevStep {
		return fmt.Errorf("burst step %d is smaller than last tier step %d", p.Burst, prevStep)
	}
	return nil
}
