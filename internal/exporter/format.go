package exporter

import (
	"strconv"
)

// formatFloat writes the shortest decimal text that parses back to f
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatLabel leaves unlabeled rows and missing label sets empty
func formatLabel(labels []int, i int) string {
	if labels == nil || labels[i] < 0 {
		return ""
	}
	return strconv.Itoa(labels[i])
}
