package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
)

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"daemon", "--detach", "--addr", ":9000", "--detach=true"})
	want := []string{"daemon", "--addr", ":9000"}
	if len(got) != len(want) {
		t.Fatalf("filterDetachArg = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("filterDetachArg = %v, want %v", got, want)
		}
	}
}

func TestDaemonConfigFlagsOverrideFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.General.PersonaSlug = "ada"

	d := daemonConfig(cfg)
	if d.Addr != cfg.Daemon.Addr || d.SyncSchedule != cfg.Daemon.SyncSchedule {
		t.Fatalf("daemonConfig = %+v, want config defaults", d)
	}

	flagDaemonAddr, flagDaemonSync, flagDaemonEventsBuffer = "127.0.0.1:9999", "@every 5m", 10
	t.Cleanup(func() { flagDaemonAddr, flagDaemonSync, flagDaemonEventsBuffer = "", "", 0 })

	d = daemonConfig(cfg)
	if d.Addr != "127.0.0.1:9999" || d.SyncSchedule != "@every 5m" || d.EventsBuffer != 10 {
		t.Fatalf("daemonConfig = %+v, want flag overrides", d)
	}
	if d.PersonaSlug != "ada" {
		t.Fatalf("PersonaSlug = %q, want ada", d.PersonaSlug)
	}
}

func TestPIDAndStateFiles(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "economyd.pid")
	if err := ensureDaemonNotRunning(pidFile); err != nil {
		t.Fatalf("ensureDaemonNotRunning without pid file: %v", err)
	}

	if err := writePID(pidFile, os.Getpid()); err != nil {
		t.Fatalf("writePID: %v", err)
	}
	pid, err := readPID(pidFile)
	if err != nil || pid != os.Getpid() {
		t.Fatalf("readPID = %d, %v; want %d", pid, err, os.Getpid())
	}
	if err := ensureDaemonNotRunning(pidFile); err == nil {
		t.Fatal("expected an error while our own pid is alive")
	}

	st := daemonRuntimeState{PID: pid, Addr: "127.0.0.1:8787", StartedAt: time.Now().UTC(), PersonaSlug: "ada"}
	if err := writeState(statePath(pidFile), st); err != nil {
		t.Fatalf("writeState: %v", err)
	}
	got, err := readState(statePath(pidFile))
	if err != nil {
		t.Fatalf("readState: %v", err)
	}
	if got.PersonaSlug != "ada" || got.Addr != st.Addr {
		t.Fatalf("readState = %+v", got)
	}
}
