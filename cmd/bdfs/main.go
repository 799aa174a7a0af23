package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/rjwvandenberg/bdfs"
	"github.com/rjwvandenberg/bdfs/ice"
	"github.com/rjwvandenberg/bdfs/internal/config"
)

const usage = `Usage: bdfs <command> [options] <in> <out>

Commands:
  encrypt   encrypt <in> with the configured ICE key
  decrypt   decrypt <in> with the configured ICE key
  convert   decode a stored asset entry (decrypt, raw passthrough or unpack)

Use - for stdin or stdout. The key and level come from the config file
(-config or BDFS_CONFIG) or from BDFS_KEY and BDFS_LEVEL.

Options:
`

var errTerminal = errors.New("refusing to write binary output to a terminal")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "error loading .env: %v\n", err)
		return 1
	}

	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	command := args[0]

	flags := flag.NewFlagSet(command, flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "config file (default: $BDFS_CONFIG)")
	size := flags.Int("size", -1, "convert: original payload size (default: input size)")
	name := flags.String("name", "", "convert: entry name used for the extension rules (default: <in>)")
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args[1:]); err != nil {
		return 2
	}

	switch command {
	case "encrypt", "decrypt", "convert":
	default:
		fmt.Fprintf(stderr, "error: unknown command %q\n", command)
		flags.Usage()
		return 2
	}
	if flags.NArg() != 2 {
		flags.Usage()
		return 2
	}
	inPath, outPath := flags.Arg(0), flags.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With(slog.String("run", uuid.NewString()), slog.String("command", command))

	key, err := cfg.CipherKey()
	if err != nil {
		logger.Error("cannot create key", slog.Any("error", err))
		return 1
	}
	defer key.Destroy()

	data, err := readInput(inPath, stdin)
	if err != nil {
		logger.Error("cannot read input", slog.String("path", inPath), slog.Any("error", err))
		return 1
	}

	var out []byte
	switch command {
	case "encrypt", "decrypt":
		out, err = process(ctx, cfg, key, data, command)
	case "convert":
		out, err = convert(logger, key, data, *name, inPath, *size)
	}
	if err != nil {
		logger.Error("command failed", slog.String("path", inPath), slog.Any("error", err))
		return 1
	}

	if err := writeOutput(outPath, stdout, out); err != nil {
		logger.Error("cannot write output", slog.String("path", outPath), slog.Any("error", err))
		return 1
	}
	logger.Info("done", slog.Int("in_bytes", len(data)), slog.Int("out_bytes", len(out)))
	return 0
}

func process(ctx context.Context, cfg *config.Config, key *ice.Key, data []byte, command string) ([]byte, error) {
	if len(data)%ice.BlockSize != 0 {
		return nil, bdfs.ErrUnaligned
	}
	dir := bdfs.Encrypt
	if command == "decrypt" {
		dir = bdfs.Decrypt
	}
	out := make([]byte, len(data))
	err := bdfs.ProcessBufferParallel(ctx, key, out, data, len(data)/ice.BlockSize, dir,
		bdfs.WithWorkers(cfg.Workers),
		bdfs.WithChunkBlocks(cfg.ChunkBlocks),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func convert(logger *slog.Logger, key *ice.Key, data []byte, name, inPath string, size int) ([]byte, error) {
	if name == "" {
		name = inPath
	}
	if size < 0 {
		size = len(data)
	}
	dec, err := bdfs.NewDecoder(key, nil, bdfs.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return dec.Convert(bdfs.Entry{Name: name, CompressedSize: len(data), Size: size}, data)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path != "-" {
		return os.WriteFile(path, data, 0644)
	}
	if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return errTerminal
	}
	_, err := stdout.Write(data)
	return err
}
