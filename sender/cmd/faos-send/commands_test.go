package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestRootCmd_BurstSendsSchedule(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"burst",
		"--addr", pc.LocalAddr().String(),
		"--name", "ISS", "--start", "6", "--step", "2s", "--quit-after"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{
		"SAT,FAOS,ISS,151.1,6",
		"SAT,FAOS,ISS,151.1,4",
		"SAT,FAOS,ISS,151.1,2",
		"SAT,FAOS,ISS,151.1,0",
		"QUIT",
	}
	buf := make([]byte, 2048)
	for i, w := range want {
		pc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got := string(buf[:n]); got != w {
			t.Errorf("packet %d: got %q, want %q", i, got, w)
		}
	}
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"quit", "extra"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown command") && !strings.Contains(err.Error(), "accepts 0 arg") {
		t.Fatalf("expected argument error, got %v", err)
	}
}
