package dispatch

import "strings"

// Separator joins the three fields of a protocol line
const Separator = " | "

// FormatLine builds a protocol line
func FormatLine(eventID, sender, text string) string {
	return eventID + Separator + sender + Separator + text
}

// ParseLine splits a protocol line into its fields. Lines without exactly
// three fields are rejected.
func ParseLine(line string) (eventID, sender, text string, ok bool) {
	parts := strings.Split(line, Separator)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
