package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rjwvandenberg/bdfs/internal/config"
)

func setKey(t *testing.T) {
	t.Helper()
	t.Setenv("BDFS_CONFIG", "")
	t.Setenv("BDFS_KEY", "deadbeef01234567")
	t.Setenv("BDFS_LEVEL", "1")
	t.Setenv("BDFS_LOG_LEVEL", "error")
}

func TestRunEncryptDecrypt(t *testing.T) {
	setKey(t)
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.bin")
	encPath := filepath.Join(dir, "enc.bin")
	decPath := filepath.Join(dir, "dec.bin")

	plain, _ := hex.DecodeString("fedcba9876543210fedcba9876543210")
	if err := os.WriteFile(plainPath, plain, 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"encrypt", plainPath, encPath}, nil, nil, &stderr); code != 0 {
		t.Fatalf("encrypt exit code = %d, stderr: %s", code, stderr.String())
	}
	enc, err := os.ReadFile(encPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if want := "7d6ef1ef30d47a967d6ef1ef30d47a96"; hex.EncodeToString(enc) != want {
		t.Errorf("encrypt output = %x, want %s", enc, want)
	}

	if code := run(context.Background(), []string{"decrypt", encPath, decPath}, nil, nil, &stderr); code != 0 {
		t.Fatalf("decrypt exit code = %d, stderr: %s", code, stderr.String())
	}
	dec, _ := os.ReadFile(decPath)
	if !bytes.Equal(dec, plain) {
		t.Errorf("decrypt output = %x, want %x", dec, plain)
	}
}

func TestRunStdio(t *testing.T) {
	setKey(t)
	plain := []byte("0123456789abcdef")

	var enc, stderr bytes.Buffer
	if code := run(context.Background(), []string{"encrypt", "-", "-"}, bytes.NewReader(plain), &enc, &stderr); code != 0 {
		t.Fatalf("encrypt exit code = %d, stderr: %s", code, stderr.String())
	}

	var dec bytes.Buffer
	if code := run(context.Background(), []string{"decrypt", "-", "-"}, &enc, &dec, &stderr); code != 0 {
		t.Fatalf("decrypt exit code = %d, stderr: %s", code, stderr.String())
	}
	if !bytes.Equal(dec.Bytes(), plain) {
		t.Errorf("round trip = %q, want %q", dec.Bytes(), plain)
	}
}

func TestRunConvert(t *testing.T) {
	setKey(t)
	plain := []byte("some asset text!")

	var enc, out, stderr bytes.Buffer
	if code := run(context.Background(), []string{"encrypt", "-", "-"}, bytes.NewReader(plain), &enc, &stderr); code != 0 {
		t.Fatalf("encrypt exit code = %d, stderr: %s", code, stderr.String())
	}
	if code := run(context.Background(), []string{"convert", "-size", "11", "-", "-"}, &enc, &out, &stderr); code != 0 {
		t.Fatalf("convert exit code = %d, stderr: %s", code, stderr.String())
	}
	if got := out.String(); got != "some asset " {
		t.Errorf("convert output = %q, want %q", got, "some asset ")
	}
}

func TestRunErrors(t *testing.T) {
	setKey(t)

	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantCode int
		wantErr  string
	}{
		{name: "no command", args: nil, wantCode: 2, wantErr: "Usage"},
		{name: "unknown command", args: []string{"explode", "a", "b"}, wantCode: 2, wantErr: "unknown command"},
		{name: "missing output", args: []string{"encrypt", "a"}, wantCode: 2, wantErr: "Usage"},
		{name: "bad flag", args: []string{"encrypt", "-nope", "a", "b"}, wantCode: 2},
		{name: "unaligned input", args: []string{"decrypt", "-", "-"}, stdin: "short", wantCode: 1, wantErr: "multiple of 8"},
		{name: "missing input file", args: []string{"decrypt", "/nonexistent/input", "-"}, wantCode: 1, wantErr: "cannot read input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, strings.NewReader(tt.stdin), &stdout, &stderr)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr.String())
			}
			if !strings.Contains(stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.wantErr)
			}
			if stdout.Len() != 0 {
				t.Errorf("stdout written on error: %q", stdout.String())
			}
		})
	}
}

func TestProcessKeepsInput(t *testing.T) {
	setKey(t)
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	key, err := cfg.CipherKey()
	if err != nil {
		t.Fatalf("CipherKey() error = %v", err)
	}
	defer key.Destroy()

	plain, _ := hex.DecodeString("fedcba9876543210fedcba9876543210")
	data := bytes.Clone(plain)

	out, err := process(context.Background(), cfg, key, data, "encrypt")
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if want := "7d6ef1ef30d47a967d6ef1ef30d47a96"; hex.EncodeToString(out) != want {
		t.Errorf("process() = %x, want %s", out, want)
	}
	if !bytes.Equal(data, plain) {
		t.Errorf("input modified to %x, want %x", data, plain)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := process(ctx, cfg, key, data, "encrypt"); !errors.Is(err, context.Canceled) {
		t.Errorf("process() error = %v, want %v", err, context.Canceled)
	}
	if !bytes.Equal(data, plain) {
		t.Errorf("input modified after cancel to %x, want %x", data, plain)
	}
}

func TestRunCancelled(t *testing.T) {
	setKey(t)
	dir := t.TempDir()
	inPath := filepath.Join(dir, "plain.bin")
	outPath := filepath.Join(dir, "enc.bin")

	plain := bytes.Repeat([]byte("0123456789abcdef"), 64)
	if err := os.WriteFile(inPath, plain, 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stderr bytes.Buffer
	if code := run(ctx, []string{"encrypt", inPath, outPath}, nil, nil, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr: %s)", code, stderr.String())
	}
	if got, _ := os.ReadFile(inPath); !bytes.Equal(got, plain) {
		t.Errorf("input file modified")
	}
	if _, err := os.Stat(outPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("output written after cancel: %v", err)
	}
}

func TestRunMissingKey(t *testing.T) {
	t.Setenv("BDFS_CONFIG", "")
	t.Setenv("BDFS_KEY", "")
	os.Unsetenv("BDFS_KEY")

	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"encrypt", "-", "-"}, strings.NewReader(""), &bytes.Buffer{}, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "key is not set") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
