package model

import (
	"fmt"
	"sort"
	"strings"
)

// RelayID identifies one output bit on the expander, numbered from 1.
type RelayID int

// MaxRelays is the width of the expander's output register.
const MaxRelays = 8

// Bit returns the register bit for the relay.
func (r RelayID) Bit() byte {
	return 1 << (uint(r) - 1)
}

// RelaySet is a group of relays driven identically as a unit. The zero value is an
// empty group.
type RelaySet []RelayID

// NewRelaySet sorts and de-duplicates ids.
func NewRelaySet(ids ...RelayID) RelaySet {
	seen := map[RelayID]bool{}
	set := RelaySet{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		set = append(set, id)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Mask returns the register bits covered by the set.
func (s RelaySet) Mask() byte {
	var m byte
	for _, id := range s {
		m |= id.Bit()
	}
	return m
}

func (s RelaySet) Empty() bool {
	return len(s) == 0
}

func (s RelaySet) Ints() []int {
	out := make([]int, len(s))
	for i, id := range s {
		out[i] = int(id)
	}
	return out
}

func (s RelaySet) String() string {
	parts := make([]string, len(s))
	for i, id := range s {
		parts[i] = fmt.Sprint(int(id))
	}
	return strings.Join(parts, " ")
}

// Window is a half-open [OnHour, OffHour) time-of-day interval. Windows that cross
// midnight (OnHour > OffHour) never match.
type Window struct {
	OnHour  int
	OffHour int
}

// DutyCycle alternates OnTicks ticks on with OffTicks ticks off, on-ticks first.
type DutyCycle struct {
	OnTicks  int
	OffTicks int
}

// Period is the cycle length in ticks.
func (d DutyCycle) Period() int {
	return d.OnTicks + d.OffTicks
}

// Degenerate reports a zero-length cycle, which always resolves to off.
func (d DutyCycle) Degenerate() bool {
	return d.Period() == 0
}

type Group string

const (
	GroupLight Group = "light"
	GroupPump  Group = "pump"
)

// ZoneConfig is one independently scheduled light and pump unit. It is immutable once
// loaded.
type ZoneConfig struct {
	ID          string
	LightRelays RelaySet
	Light       Window
	PumpRelays  RelaySet
	Pump        DutyCycle
}
