// Package scanner extracts candidate event payloads from Solana transaction
// log lines.
package scanner

import (
	"encoding/base64"
	"strings"
)

// programDataPrefix is the exact log prefix (including the trailing space)
// a program's emitted event data line carries.
const programDataPrefix = "Program data: "

// Scan returns the decoded payload bytes carried by logLine, and true, if
// logLine is a program-data line with valid base64 content. Any other line,
// or a program-data line whose remainder isn't valid base64, yields
// (nil, false) — this is a non-match, not an error.
func Scan(logLine string) ([]byte, bool) {
	if !strings.HasPrefix(logLine, programDataPrefix) {
		return nil, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(logLine, programDataPrefix))
	if rest == "" {
		return nil, false
	}

	data, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil, false
	}
	return data, true
}

// ScanAll applies Scan to every line and returns every matched payload, in
// order.
func ScanAll(logLines []string) [][]byte {
	var out [][]byte
	for _, line := range logLines {
		if payload, ok := Scan(line); ok {
			out = append(out, payload)
		}
	}
	return out
}
