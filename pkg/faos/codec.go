package faos

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Wire tags expected in fields 1 and 2.
const (
	Prefix      = "SAT"
	MessageType = "FAOS"
)

// minFields is the number of comma-separated fields a FAOS packet must carry.
// Extra trailing fields are ignored.
const minFields = 5

// sentinels holds the upper-cased remote quit payloads.
var sentinels = map[string]struct{}{
	"QUIT":     {},
	"SAT,QUIT": {},
}

// Sample is one decoded countdown report.
type Sample struct {
	Name       string
	Azimuth    float64
	TTG        int // seconds until AOS
	ReceivedAt time.Time
}

// ParseError describes why a datagram was rejected.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "faos: malformed packet: " + e.Reason
}

// Normalize strips surrounding whitespace and NUL padding from a raw datagram.
func Normalize(raw string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "\x00"))
}

// IsTerminationSentinel reports whether raw is a remote quit request.
// Matching is exact after normalisation and case folding.
func IsTerminationSentinel(raw string) bool {
	_, ok := sentinels[strings.ToUpper(Normalize(raw))]
	return ok
}

// ParseSample decodes raw into a Sample. ReceivedAt is left zero; the
// transport stamps it.
func ParseSample(raw string) (Sample, error) {
	parts := strings.Split(Normalize(raw), ",")
	if len(parts) < minFields {
		return Sample{}, &ParseError{Reason: fmt.Sprintf("got %d fields, want at least %d", len(parts), minFields)}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	prefix, event, name, azStr, ttgStr := parts[0], parts[1], parts[2], parts[3], parts[4]
	if prefix != Prefix || event != MessageType {
		return Sample{}, &ParseError{Reason: fmt.Sprintf("unexpected tag %q,%q", prefix, event)}
	}

	az, err := parseFinite(azStr)
	if err != nil {
		return Sample{}, &ParseError{Reason: "azimuth " + err.Error()}
	}

	ttgF, err := parseFinite(ttgStr)
	if err != nil {
		return Sample{}, &ParseError{Reason: "ttg " + err.Error()}
	}
	ttgF = math.Trunc(ttgF)
	if ttgF > math.MaxInt32 || ttgF < math.MinInt32 {
		return Sample{}, &ParseError{Reason: fmt.Sprintf("ttg %q out of range", ttgStr)}
	}

	return Sample{Name: name, Azimuth: az, TTG: int(ttgF)}, nil
}

// Format renders s in the wire form accepted by ParseSample.
func Format(s Sample) string {
	return fmt.Sprintf("%s,%s,%s,%.1f,%d", Prefix, MessageType, s.Name, s.Azimuth, s.TTG)
}

// parseFinite accepts decimal literals only. Hex floats are rejected and an
// underscore is allowed as a digit separator between two digits.
func parseFinite(s string) (float64, error) {
	digits := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	clean, ok := stripDigitSeparators(s)
	if !ok {
		return 0, fmt.Errorf("%q is not a number", s)
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

func stripDigitSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
