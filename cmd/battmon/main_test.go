package main

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
)

// stubDaemon serves a minimal battery endpoint on a unix socket.
func stubDaemon(t *testing.T, socketPath string) {
	t.Helper()

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen on %s: %v", socketPath, err)
	}

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"available":false,"backend":"none"}`)
	})}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
}

func TestDaemonSocketFlagIsHonored(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "battmon.sock")
	stubDaemon(t, socketPath)

	var out bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--daemon-socket", socketPath, "status", "--json"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status --json against %s: %v", socketPath, err)
	}
	if !strings.Contains(out.String(), `"backend":"none"`) {
		t.Fatalf("output = %q, want the stub daemon's reading", out.String())
	}
}
