package e2e

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

var (
	mtpviewBin string
	projRoot   string
	skipReason string
)

func TestMain(m *testing.M) {
	if _, err := os.Stat("/dev/fuse"); err != nil {
		skipReason = "no /dev/fuse"
	} else if _, err := exec.LookPath("fusermount"); err != nil {
		skipReason = "fusermount not installed"
	}
	if skipReason != "" {
		os.Exit(m.Run())
	}

	// Build the binary once for all tests
	tmpBinDir, err := os.MkdirTemp("", "mtpview-bin")
	if err != nil {
		panic(err)
	}

	mtpviewBin = filepath.Join(tmpBinDir, "mtpview")

	// Determine project root
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot determine current file path")
	}
	projRoot = filepath.Join(filepath.Dir(thisFile), "..", "..")

	// Build with debug symbols
	cmd := exec.Command("go", "build", "-o", mtpviewBin, "-gcflags=all=-N -l", "./cmd")
	cmd.Dir = projRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic(string(out))
	}

	code := m.Run()
	os.RemoveAll(tmpBinDir)
	os.Exit(code)
}

func TestE2EMountAndRead(t *testing.T) {
	inst := StartMount(t, map[string]string{
		"notes.txt":     "Hello from the device",
		"Music/one.mp3": strings.Repeat("ABCDEFGHIJ", 100),
	})
	defer inst.Stop()

	data, err := os.ReadFile(filepath.Join(inst.MountDir, "notes.txt"))
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "Hello from the device" {
		t.Fatalf("content mismatch: got %q", string(data))
	}

	info, err := os.Stat(filepath.Join(inst.MountDir, "Music", "one.mp3"))
	if err != nil {
		t.Fatalf("failed to stat file: %v", err)
	}
	if info.Size() != 1000 {
		t.Fatalf("size mismatch: expected 1000, got %d", info.Size())
	}
}

func TestE2EWriteRenameDelete(t *testing.T) {
	inst := StartMount(t, map[string]string{"keep.txt": "keep"})
	defer inst.Stop()

	mnt := inst.MountDir
	if err := os.Mkdir(filepath.Join(mnt, "Podcasts"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	newFile := filepath.Join(mnt, "Podcasts", "ep1.mp3")
	if err := os.WriteFile(newFile, []byte("episode one"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// the write landed on the backing directory
	data, err := os.ReadFile(filepath.Join(inst.DeviceDir, "Podcasts", "ep1.mp3"))
	if err != nil || string(data) != "episode one" {
		t.Fatalf("device content mismatch: %q, %v", data, err)
	}

	renamed := filepath.Join(mnt, "Podcasts", "first.mp3")
	if err := os.Rename(newFile, renamed); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := os.Rename(renamed, filepath.Join(mnt, "first.mp3")); err == nil {
		t.Fatalf("moving between folders should fail")
	}

	if err := os.Remove(filepath.Join(mnt, "Podcasts")); err == nil {
		t.Fatalf("removing a non-empty folder should fail")
	}
	if err := os.Remove(renamed); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if err := os.Remove(filepath.Join(mnt, "Podcasts")); err != nil {
		t.Fatalf("remove folder: %v", err)
	}

	entries, err := os.ReadDir(mnt)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "keep.txt" {
		t.Fatalf("unexpected entries after cleanup: %v", entries)
	}
}

// Instance is a running mount process
type Instance struct {
	cmd       *exec.Cmd
	MountDir  string
	DeviceDir string
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
}

// StartMount seeds a localdir device with files and mounts it
func StartMount(t *testing.T, files map[string]string) *Instance {
	t.Helper()
	if skipReason != "" {
		t.Skip(skipReason)
	}

	deviceDir := t.TempDir()
	mountDir := t.TempDir()
	for p, content := range files {
		full := filepath.Join(deviceDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cmd := exec.Command(mtpviewBin, "--root", deviceDir, "-v", "4", "mount", mountDir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start mtpview: %v", err)
	}

	inst := &Instance{cmd: cmd, MountDir: mountDir, DeviceDir: deviceDir, stdout: &stdout, stderr: &stderr}
	if err := inst.WaitForMount(15*time.Second, len(files) > 0); err != nil {
		inst.Stop()
		t.Fatalf("mount failed: %v\n%s", err, stderr.String())
	}
	return inst
}

// Stop interrupts the process and waits for it to unmount
func (i *Instance) Stop() {
	if i.cmd == nil || i.cmd.Process == nil {
		return
	}
	_ = i.cmd.Process.Signal(os.Interrupt) // may have already exited

	done := make(chan error, 1)
	go func() {
		done <- i.cmd.Wait()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = i.cmd.Process.Kill()
		<-done
		_ = exec.Command("fusermount", "-u", i.MountDir).Run()
	}
}

// WaitForMount waits until the mount answers, with entries when nonEmpty
func (i *Instance) WaitForMount(timeout time.Duration, nonEmpty bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if entries, err := os.ReadDir(i.MountDir); err == nil && (!nonEmpty || len(entries) > 0) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for mount to be ready")
}
