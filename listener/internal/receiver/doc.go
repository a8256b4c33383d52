// Package receiver owns the UDP socket. It reads FAOS datagrams one at a
// time, filters them against the allow-list, feeds the tracker engine and
// hands fired alerts to the dispatcher. Supervise restarts the socket after
// errors when configured to.
package receiver
