package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thatsimonsguy/hydro-controller/db"
	"github.com/thatsimonsguy/hydro-controller/internal/config"
	"github.com/thatsimonsguy/hydro-controller/internal/model"
	"github.com/thatsimonsguy/hydro-controller/internal/schedule"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, configPath, fallbackPath string
	var limit, ticks int
	flag.StringVar(&dbPath, "db", "data/hydro.db", "Path to the SQLite journal")
	flag.StringVar(&command, "cmd", "", "Command to run: recent, plan, validate")
	flag.StringVar(&configPath, "config", config.DefaultConfigFile, "Path to controller config file")
	flag.StringVar(&fallbackPath, "config-fallback", config.DefaultFallbackFile, "Fallback config file")
	flag.IntVar(&limit, "limit", 20, "Number of journal entries for recent")
	flag.IntVar(&ticks, "ticks", 0, "Pump ticks to plan (default: one full cycle)")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of hydro-debug:")
		fmt.Println("  -db string\tPath to the SQLite journal (default 'data/hydro.db')")
		fmt.Println("  -cmd string\tCommand to run: recent, plan, validate")
		fmt.Println("  -config string\tPath to controller config file")
		fmt.Println("  -config-fallback string\tFallback config file")
		fmt.Println("  -limit int\tNumber of journal entries for recent")
		fmt.Println("  -ticks int\tPump ticks to plan")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "recent":
		var recs []db.EventRecord
		recs, err = db.RecentEventsCLI(dbPath, limit)
		if err == nil {
			printRecent(os.Stdout, recs)
		}
	case "plan":
		var cfg *config.Config
		cfg, err = config.LoadFiles(configPath, fallbackPath)
		if err == nil {
			printPlan(os.Stdout, cfg.ZoneConfigs(), ticks)
		}
	case "validate":
		var cfg *config.Config
		cfg, err = config.LoadFiles(configPath, fallbackPath)
		if err == nil {
			fmt.Printf("%s: %d zone(s), relay device 0x%02X on port %s\n", cfg.ConfigFile, len(cfg.Zones), cfg.BusAddress(), cfg.Bus.Port)
		}
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
}

func printRecent(w io.Writer, recs []db.EventRecord) {
	for _, r := range recs {
		line := fmt.Sprintf("%s %-14s", r.Time.Local().Format("2006-01-02 15:04:05"), r.Kind)
		if r.Zone != "" {
			line += " zone=" + r.Zone
		}
		if r.Group != "" {
			line += fmt.Sprintf(" %s=%s relays=%v", r.Group, onOff(r.On), r.Relays)
		}
		if r.Detail != "" {
			line += " " + r.Detail
		}
		if r.Error != "" {
			line += " error=" + r.Error
		}
		fmt.Fprintln(w, line)
	}
}

// printPlan renders each zone's light state per hour and its pump state per tick
// without touching hardware. '#' is on, '.' is off.
func printPlan(w io.Writer, zones []model.ZoneConfig, ticks int) {
	for _, z := range zones {
		fmt.Fprintf(w, "zone %s\n", z.ID)

		if !z.LightRelays.Empty() {
			var b strings.Builder
			for h := 0; h < 24; h++ {
				b.WriteByte(mark(schedule.LightOn(z.Light, h)))
			}
			fmt.Fprintf(w, "  light %s hours 00-23 %s\n", z.LightRelays, b.String())
		}

		if !z.PumpRelays.Empty() {
			n := ticks
			if n <= 0 {
				n = z.Pump.Period()
			}
			var b strings.Builder
			var rt schedule.Runtime
			for i := 0; i < n; i++ {
				b.WriteByte(mark(schedule.PumpOn(z.Pump, rt.PumpPhase)))
				rt.Advance(z.Pump)
			}
			fmt.Fprintf(w, "  pump  %s ticks %d %s\n", z.PumpRelays, n, b.String())
		}
	}
}

func mark(on bool) byte {
	if on {
		return '#'
	}
	return '.'
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
