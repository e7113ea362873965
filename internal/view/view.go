// Package view turns an elapsed-seconds value into the strings and numbers
// the streak widget displays.
package view

import "fmt"

const (
	SecondsPerDay  = 86400
	secondsPerHour = 3600
)

// Fixed UI text. The locale is not configurable.
const (
	Header      = "NOFAP COUNTER"
	StartLabel  = "Iniciar"
	ResetLabel  = "Resetar"
	DaySuffix   = "Dias"
	MarkerStart = "0"
	MarkerEnd   = "90"
	Footer      = "Desenvolvido por @devRukasu"
)

// FormatTime renders seconds as zero-padded HH:MM:SS. Hours are not wrapped
// at 24 and widen past two digits once they reach 100.
func FormatTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / secondsPerHour
	m := (seconds % secondsPerHour) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Days returns the number of whole days in seconds.
func Days(seconds int64) int64 {
	if seconds < 0 {
		return 0
	}
	return seconds / SecondsPerDay
}

// Percent returns how far through the current day the counter is, in [0, 100).
func Percent(seconds int64) float64 {
	if seconds < 0 {
		return 0
	}
	return float64(seconds%SecondsPerDay) / SecondsPerDay * 100
}

// PercentLabel formats Percent with two decimals, e.g. "50.00%".
func PercentLabel(seconds int64) string {
	return fmt.Sprintf("%.2f%%", Percent(seconds))
}

// DaysLabel formats the day count with its suffix, e.g. "3 Dias".
func DaysLabel(seconds int64) string {
	return fmt.Sprintf("%d %s", Days(seconds), DaySuffix)
}

// Snapshot is everything a front end needs to draw one frame.
type Snapshot struct {
	Seconds      int64   `json:"seconds"`
	Time         string  `json:"time"`
	Days         int64   `json:"days"`
	DaysLabel    string  `json:"days_label"`
	Percent      float64 `json:"percent"`
	PercentLabel string  `json:"percent_label"`
	Running      bool    `json:"running"`
}

// NewSnapshot builds a Snapshot for seconds.
func NewSnapshot(seconds int64, running bool) Snapshot {
	return Snapshot{
		Seconds:      seconds,
		Time:         FormatTime(seconds),
		Days:         Days(seconds),
		DaysLabel:    DaysLabel(seconds),
		Percent:      Percent(seconds),
		PercentLabel: PercentLabel(seconds),
		Running:      running,
	}
}
