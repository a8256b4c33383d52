// Package feed builds FAOS packet schedules for exercising a listener: a
// realtime countdown, a buffered burst released all at once, and the remote
// quit sentinel.
package feed

import (
	"fmt"
	"time"

	"github.com/faoswatch/faoswatch/pkg/faos"
)

// Mode selects the schedule shape.
type Mode string

// Schedule modes.
const (
	ModeLive  Mode = "live"  // one packet per step, paced in real time
	ModeBurst Mode = "burst" // the same packets with no pacing
	ModeQuit  Mode = "quit"  // a single termination sentinel
)

// QuitPayload is the sentinel sent in quit mode.
const QuitPayload = "QUIT"

// Packet is one datagram and the pause to observe before sending it.
type Packet struct {
	Payload string
	Delay   time.Duration
}

// Pass describes one simulated approach of a named source.
type Pass struct {
	Name     string
	Azimuth  float64
	StartTTG int
	Step     time.Duration // countdown decrement and live pacing
	Drift    float64       // azimuth change per packet, degrees
	Count    int           // packets to emit; 0 counts down to zero
}

// Samples lists the countdown samples for p, starting at StartTTG.
func (p Pass) Samples() []faos.Sample {
	step := int(p.Step / time.Second)
	if step < 1 {
		step = 1
	}
	var out []faos.Sample
	az := p.Azimuth
	for ttg := p.StartTTG; ttg >= 0; ttg -= step {
		if p.Count > 0 && len(out) == p.Count {
			break
		}
		out = append(out, faos.Sample{Name: p.Name, Azimuth: wrapAzimuth(az), TTG: ttg})
		az += p.Drift
	}
	return out
}

// Schedule renders p as packets in the given mode.
func Schedule(p Pass, mode Mode) ([]Packet, error) {
	switch mode {
	case ModeQuit:
		return []Packet{{Payload: QuitPayload}}, nil
	case ModeLive, ModeBurst:
	default:
		return nil, fmt.Errorf("feed: unknown mode %q: want live|burst|quit", mode)
	}

	samples := p.Samples()
	out := make([]Packet, 0, len(samples))
	for i, s := range samples {
		pkt := Packet{Payload: faos.Format(s)}
		if mode == ModeLive && i > 0 {
			pkt.Delay = p.Step
		}
		out = append(out, pkt)
	}
	return out, nil
}

func wrapAzimuth(az float64) float64 {
	for az >= 360 {
		az -= 360
	}
	for az < 0 {
		az += 360
	}
	return az
}
