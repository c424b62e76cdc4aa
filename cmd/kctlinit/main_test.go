package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"kctlinit/pkg/kctl"
	"kctlinit/pkg/protocol"
)

type stubSys struct {
	id       uint32
	known    string
	writes   int
	size     int
	units    []uint32
	open     int
	writeErr error
}

func (s *stubSys) Socket() (int, error) { s.open++; return 3, nil }

func (s *stubSys) CtlInfo(_ int, name [kctl.MaxNameLen]byte) (uint32, error) {
	var want [kctl.MaxNameLen]byte
	copy(want[:], s.known)
	if name != want {
		return 0, syscall.ENOENT
	}
	return s.id, nil
}

func (s *stubSys) Connect(_ int, ep kctl.Endpoint) error {
	s.units = append(s.units, ep.Unit)
	return nil
}

func (s *stubSys) Write(_ int, p []byte) (int, error) {
	if s.writeErr != nil {
		return -1, s.writeErr
	}
	s.writes++
	s.size = len(p)
	return len(p), nil
}

func (s *stubSys) Close(int) error { s.open--; return nil }

func runApp(t *testing.T, stub *stubSys, args ...string) error {
	t.Helper()
	_, err := runAppOutput(t, stub, args...)
	return err
}

// runAppOutput runs the app against stub and returns what it wrote to stdout.
func runAppOutput(t *testing.T, stub *stubSys, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	prev := sys
	sys = stub
	t.Cleanup(func() { sys = prev })

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"kctlinit"}, args...))
	return out.String(), err
}

func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}

func TestRunMaxWrites(t *testing.T) {
	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	if err := runApp(t, stub, "run", "--max-writes", "25", "--unit", "1"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stub.writes != 25 || stub.size != protocol.GroupInitSize {
		t.Errorf("writes=%d size=%d", stub.writes, stub.size)
	}
	if len(stub.units) != 1 || stub.units[0] != 1 {
		t.Errorf("bound units %v", stub.units)
	}
	if stub.open != 0 {
		t.Errorf("channel left open")
	}
}

func TestRunUnknownService(t *testing.T) {
	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	err := runApp(t, stub, "run", "--service", "com.example.none")
	if exitCode(err) != kctl.ExitResolve {
		t.Fatalf("expected exit %d, got %v", kctl.ExitResolve, err)
	}
	if stub.writes != 0 || len(stub.units) != 0 || stub.open != 0 {
		t.Errorf("nothing should happen after a failed lookup: %+v", stub)
	}
}

func TestRunWriteFailure(t *testing.T) {
	stub := &stubSys{id: 5, known: "com.apple.flow-divert", writeErr: syscall.ENOBUFS}
	err := runApp(t, stub, "run")
	if exitCode(err) != kctl.ExitWrite {
		t.Fatalf("expected exit %d, got %v", kctl.ExitWrite, err)
	}
	if stub.open != 0 {
		t.Errorf("channel left open")
	}
}

func TestRunRejectsBadKeySize(t *testing.T) {
	stub := &stubSys{}
	err := runApp(t, stub, "run", "--key-size", "4096")
	if exitCode(err) != kctl.ExitUsage {
		t.Fatalf("expected usage exit, got %v", err)
	}
	if stub.open != 0 {
		t.Errorf("no socket expected for invalid config")
	}
}

func TestRunRejectsOversizedUnitFlag(t *testing.T) {
	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	err := runApp(t, stub, "run", "--max-writes", "1", "--unit", "4294967296")
	if exitCode(err) != kctl.ExitUsage {
		t.Fatalf("expected usage exit, got %v", err)
	}
	if stub.open != 0 || len(stub.units) != 0 || stub.writes != 0 {
		t.Errorf("unit must be rejected before any socket work: %+v", stub)
	}
}

func TestRunRejectsOversizedUnitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kctlinit.yaml")
	if err := os.WriteFile(path, []byte("unit: 4294967297\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	err := runApp(t, stub, "--config", path, "run", "--max-writes", "1")
	if exitCode(err) != kctl.ExitUsage {
		t.Fatalf("expected usage exit, got %v", err)
	}
	if stub.open != 0 || len(stub.units) != 0 {
		t.Errorf("unit must be rejected before any socket work: %+v", stub)
	}
}

func TestRunMaxUnit(t *testing.T) {
	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	if err := runApp(t, stub, "run", "--max-writes", "1", "--unit", "4294967295"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(stub.units) != 1 || stub.units[0] != 4294967295 {
		t.Errorf("bound units %v", stub.units)
	}
}

func TestResolveCommand(t *testing.T) {
	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	out, err := runAppOutput(t, stub, "resolve")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(out, "com.apple.flow-divert") || !strings.Contains(out, "5") {
		t.Errorf("resolve output missing name or id:\n%s", out)
	}
	if len(stub.units) != 0 || stub.writes != 0 {
		t.Errorf("resolve without --bind must not connect or write: %+v", stub)
	}
	if stub.open != 0 {
		t.Errorf("channel left open")
	}
}

func TestResolveBind(t *testing.T) {
	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	out, err := runAppOutput(t, stub, "resolve", "--bind", "--unit", "3")
	if err != nil {
		t.Fatalf("resolve --bind failed: %v", err)
	}
	if len(stub.units) != 1 || stub.units[0] != 3 {
		t.Errorf("bound units %v", stub.units)
	}
	if stub.writes != 0 || stub.open != 0 {
		t.Errorf("test bind must close without writing: %+v", stub)
	}
	if !strings.Contains(out, "sockaddr_ctl") {
		t.Errorf("resolve --bind output missing sockaddr_ctl row:\n%s", out)
	}
}

func TestResolveUnknownService(t *testing.T) {
	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	err := runApp(t, stub, "resolve", "--service", "com.example.none", "--bind")
	if exitCode(err) != kctl.ExitResolve {
		t.Fatalf("expected exit %d, got %v", kctl.ExitResolve, err)
	}
	if len(stub.units) != 0 || stub.open != 0 {
		t.Errorf("failed lookup must not bind and must close: %+v", stub)
	}
}

func TestLogsAfterJournaledRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	t.Setenv("KCTLINIT_JOURNAL_FILE", db)

	stub := &stubSys{id: 5, known: "com.apple.flow-divert"}
	if err := runApp(t, stub, "--journal", "run", "--max-writes", "3"); err != nil {
		t.Fatalf("journaled run failed: %v", err)
	}
	if stub.writes != 3 {
		t.Fatalf("writes = %d", stub.writes)
	}

	out, err := runAppOutput(t, &stubSys{}, "logs", "--dbfile", db, "-n", "50")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	for _, msg := range []string{"control resolved", "drive loop finished"} {
		if !strings.Contains(out, msg) {
			t.Errorf("journal output missing %q:\n%s", msg, out)
		}
	}

	out, err = runAppOutput(t, &stubSys{}, "logs", "--dbfile", db, "--since", "1h", "--pretty")
	if err != nil {
		t.Fatalf("logs --since failed: %v", err)
	}
	if !strings.Contains(out, "drive loop finished") {
		t.Errorf("pretty output missing run summary:\n%s", out)
	}
}

func TestLogsMissingJournal(t *testing.T) {
	err := runApp(t, &stubSys{}, "logs", "--dbfile", filepath.Join(t.TempDir(), "missing.db"))
	if exitCode(err) != kctl.ExitUsage {
		t.Fatalf("expected usage exit, got %v", err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, syscall.EPIPE }

func TestRenderWriteFailure(t *testing.T) {
	tp := pterm.DefaultTable.WithData(pterm.TableData{{"field", "value"}})
	if err := render(failWriter{}, tp); exitCode(err) != kctl.ExitSoftware {
		t.Fatalf("expected exit %d, got %v", kctl.ExitSoftware, err)
	}
	var out bytes.Buffer
	if err := render(&out, tp); err != nil || !strings.Contains(out.String(), "field") {
		t.Fatalf("render = %v, output %q", err, out.String())
	}
}

func TestExitStatus(t *testing.T) {
	if got := exitStatus(cli.Exit("write", kctl.ExitWrite)); got != kctl.ExitWrite {
		t.Errorf("exit coder = %d", got)
	}
	if got := exitStatus(fmt.Errorf("wrapped: %w", cli.Exit("x", kctl.ExitSoftware))); got != kctl.ExitSoftware {
		t.Errorf("wrapped exit coder = %d", got)
	}
	if got := exitStatus(errors.New("flag provided but not defined: -x")); got != kctl.ExitUsage {
		t.Errorf("argument error = %d", got)
	}
}

func TestPacketCommand(t *testing.T) {
	out, err := runAppOutput(t, &stubSys{}, "packet", "--raw")
	if err != nil {
		t.Fatalf("packet failed: %v", err)
	}
	// type 6, pad, conn_id 0, tag 17, key length 1024 big-endian
	if !strings.HasPrefix(out, "00000000  06 00 00 00 00 00 00 00  11 00 00 04 00") {
		t.Errorf("unexpected dump header:\n%.80s", out)
	}
}

func TestParseTimeSpec(t *testing.T) {
	if _, err := parseTimeSpec("90m"); err != nil {
		t.Errorf("duration: %v", err)
	}
	if ts, err := parseTimeSpec("2023-10-27"); err != nil || ts.Year() != 2023 {
		t.Errorf("date: %v %v", ts, err)
	}
	if _, err := parseTimeSpec("yesterday"); err == nil {
		t.Errorf("expected error")
	}
}
