// Package output renders CLI results to the terminal: colorized status
// indicators and aligned tables, matching what a human operator reads off a
// dashboard rather than raw JSON.
package output

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/watchtower/controlplane/internal/model"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func headerFmt() func(...interface{}) string {
	return color.New(color.FgCyan, color.Underline).SprintfFunc()
}

// Stats prints the Up/Down/Paused breakdown from a MonitoringStats.
func Stats(s *model.MonitoringStats) {
	fmt.Printf("%s  %s  %s\n",
		green(fmt.Sprintf("Up: %d", s.Up)),
		red(fmt.Sprintf("Down: %d", s.Down)),
		yellow(fmt.Sprintf("Paused: %d", s.Paused)))
}

// Agents prints a table of registered monitor agents.
func Agents(agents []model.MonitorAgent) {
	if len(agents) == 0 {
		fmt.Println("No agents registered.")
		return
	}

	tbl := table.New("ID", "Type", "Region", "URL")
	tbl.WithHeaderFormatter(headerFmt())
	for _, a := range agents {
		tbl.AddRow(a.ID, a.Type, a.Region, a.URL)
	}
	tbl.Print()
}

// History prints a table of uptime events, color-coding availability.
func History(events []model.UptimeEvent) {
	if len(events) == 0 {
		fmt.Println("No events found.")
		return
	}

	tbl := table.New("Time", "Kind", "Availability", "Ping", "Port", "Latency")
	tbl.WithHeaderFormatter(headerFmt())
	for _, e := range events {
		ts := time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04:05")
		tbl.AddRow(ts, e.Kind, availability(string(e.Availability)), e.Ping, e.Port, fmt.Sprintf("%dms", e.ResponseTime))
	}
	tbl.Print()
}

// Downtime prints a single downtime event's detail block.
func Downtime(e *model.UptimeEvent) {
	fmt.Printf("%s %s\n", bold("Monitor:"), e.MonitorID)
	fmt.Printf("%s    %s\n", bold("Kind:"), e.Kind)
	fmt.Printf("%s %s\n", bold("Started:"), time.UnixMilli(e.Timestamp).Format(time.RFC3339))
	if e.EndTime > 0 {
		fmt.Printf("%s   %s\n", bold("Ended:"), green(time.UnixMilli(e.EndTime).Format(time.RFC3339)))
	} else {
		fmt.Printf("%s   %s\n", bold("Ended:"), red("(still open)"))
	}
}

func availability(a string) string {
	switch a {
	case string(model.Up):
		return green("✓ " + a)
	case string(model.Down):
		return red("✗ " + a)
	default:
		return yellow(a)
	}
}
