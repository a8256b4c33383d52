// Package faos decodes the SAT "FAOS" datagram format.
//
// Wire format (comma-separated, trailing NULs and whitespace tolerated):
//
//	SAT,FAOS,<name>,<azimuth>,<ttg>
//
// ParseSample returns a Sample or a *ParseError; malformed input is meant to
// be dropped by the caller. IsTerminationSentinel recognises the remote quit
// payloads (QUIT, SAT,QUIT). Format renders a Sample back to the wire form
// and is used by the feed sender.
package faos
