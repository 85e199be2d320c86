package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"
)

// ApplyTimezone sets the process timezone so hour-of-day decisions follow it.
func ApplyTimezone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &ConfigError{Field: "timezone", Err: err}
	}
	if err := os.Setenv("TZ", name); err != nil {
		return nil, fmt.Errorf("set TZ: %w", err)
	}
	time.Local = loc
	return loc, nil
}
