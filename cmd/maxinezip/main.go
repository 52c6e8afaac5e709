// Command maxinezip creates, recompresses, lists and verifies ZIP archives.
//
// Usage:
//
//	maxinezip [-level N] [-name NAME] [-comment C] INPUT OUTPUT.zip
//	maxinezip -dir [-dedup] [-level N] DIR OUTPUT.zip
//	maxinezip -rezip [-level N] ARCHIVE.zip
//	maxinezip -list [-digest] ARCHIVE.zip|URL
//	maxinezip -verify [-jobs N] ARCHIVE.zip|URL ...
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
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	maxinezip "github.com/uwx/MaxineZip"
)

type config struct {
	level   int
	name    string
	comment string
	dir     bool
	dedup   bool
	rezip   bool
	list    bool
	digest  bool
	verify  bool
	jobs    int
	verbose bool
}

// errSymlink reports a walked file that was replaced by a symlink before it was opened.
var errSymlink = errors.New("path is a symlink")

var errUsage = errors.New("usage: maxinezip [-level N] [-name NAME] [-comment C] INPUT OUTPUT.zip | -dir DIR OUTPUT.zip | -rezip ARCHIVE | -list ARCHIVE | -verify ARCHIVE ...")

func main() {
	cfg := parseFlags()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, flag.Args(), os.Stdout, newLogger(cfg.verbose)); err != nil {
		fmt.Fprintf(os.Stderr, "maxinezip: %v\n", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}

func parseFlags() config {
	var cfg config
	flag.IntVar(&cfg.level, "level", maxinezip.DefaultLevel, "compression level: 0 store, 1-9 deflate, 10-12 exhaustive")
	flag.StringVar(&cfg.name, "name", "", "name of the entry inside the archive (default: input base name)")
	flag.StringVar(&cfg.comment, "comment", "", "archive comment")
	flag.BoolVar(&cfg.dir, "dir", false, "add every regular file under INPUT")
	flag.BoolVar(&cfg.dedup, "dedup", false, "with -dir, skip files whose content digest was already added")
	flag.BoolVar(&cfg.rezip, "rezip", false, "recompress ARCHIVE in place at -level")
	flag.BoolVar(&cfg.list, "list", false, "list the entries of ARCHIVE")
	flag.BoolVar(&cfg.digest, "digest", false, "with -list, print the sha256 digest of each entry's content")
	flag.BoolVar(&cfg.verify, "verify", false, "verify the checksums of every entry of each ARCHIVE")
	flag.IntVar(&cfg.jobs, "jobs", 4, "archives verified concurrently")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	flag.Parse()
	return cfg
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func run(ctx context.Context, cfg config, args []string, out io.Writer, logger *slog.Logger) error {
	modes := 0
	for _, set := range []bool{cfg.dir, cfg.rezip, cfg.list, cfg.verify} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return errUsage
	}

	switch {
	case cfg.rezip:
		if len(args) != 1 {
			return errUsage
		}
		return rezip(ctx, cfg, args[0], out, logger)
	case cfg.list:
		if len(args) != 1 {
			return errUsage
		}
		return list(ctx, cfg, args[0], out, logger)
	case cfg.verify:
		if len(args) == 0 {
			return errUsage
		}
		return verify(ctx, cfg, args, out, logger)
	case cfg.dir:
		if len(args) != 2 {
			return errUsage
		}
		return createFromDir(ctx, cfg, args[0], args[1], out, logger)
	default:
		if len(args) != 2 {
			return errUsage
		}
		return createFromFile(cfg, args[0], args[1], out, logger)
	}
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func createOptions(cfg config, logger *slog.Logger) []maxinezip.Option {
	opts := []maxinezip.Option{
		maxinezip.WithLevel(cfg.level),
		maxinezip.WithLogger(logger),
	}
	if cfg.comment != "" {
		opts = append(opts, maxinezip.WithComment(cfg.comment))
	}
	return opts
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func createFromFile(cfg config, input, output string, out io.Writer, logger *slog.Logger) error {
	start := time.Now()
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	a, err := maxinezip.CreateFile(output, createOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	if _, err := a.AddFile(input, cfg.name); err != nil {
		_ = a.Close()
		return err
	}
	if err := a.Close(); err != nil {
		return err
	}
	return report(out, "created", output, info.Size(), start)
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func createFromDir(ctx context.Context, cfg config, dir, output string, out io.Writer, logger *slog.Logger) error {
	start := time.Now()
	outAbs, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()
	a, err := maxinezip.CreateFile(output, createOptions(cfg, logger)...)
	if err != nil {
		return err
	}

	seen := make(map[digest.Digest]string)
	var total int64
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && abs == outAbs {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := readNoFollow(root, rel)
		if errors.Is(err, errSymlink) {
			logger.Warn("skipping symlink", "path", rel)
			return nil
		}
		if err != nil {
			return err
		}
		total += int64(len(data))
		if cfg.dedup {
			dgst := digest.FromBytes(data)
			if first, ok := seen[dgst]; ok {
				logger.Info("skipping duplicate", "path", rel, "same_as", first, "digest", dgst.String())
				return nil
			}
			seen[dgst] = rel
		}
		_, err = a.Add(filepath.ToSlash(rel), data, maxinezip.AddWithModTime(info.ModTime()))
		return err
	})
	if err := errors.Join(walkErr, a.Close()); err != nil {
		return err
	}
	return report(out, "created", output, total, start)
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func rezip(ctx context.Context, cfg config, path string, out io.Writer, logger *slog.Logger) error {
	start := time.Now()
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	a, err := maxinezip.OpenFile(path,
		maxinezip.WithLogger(logger),
		maxinezip.WithProgress(func(ev maxinezip.ProgressEvent) {
			logger.Debug("progress", "stage", ev.Stage.String(), "name", ev.Name,
				"entries", ev.EntriesDone, "of", ev.EntriesTotal)
		}))
	if err != nil {
		return err
	}
	if err := a.Recompress(ctx, cfg.level); err != nil {
		_ = a.Close()
		return err
	}
	if err := a.Close(); err != nil {
		return err
	}
	return report(out, "recompressed", path, info.Size(), start)
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func list(ctx context.Context, cfg config, target string, out io.Writer, logger *slog.Logger) error {
	a, err := openTarget(ctx, target, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, e := range a.Entries() {
		line := fmt.Sprintf("%-7s %10s %10s  %s  %s",
			e.Method, units.HumanSize(float64(e.Size)), units.HumanSize(float64(e.CompressedSize)),
			e.ModTime.Format(time.DateTime), e.Name)
		if cfg.digest {
			digester := digest.Canonical.Digester()
			if err := a.Verify(e, digester.Hash()); err != nil {
				return err
			}
			line += "  " + digester.Digest().String()
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	if c := a.Comment(); c != "" {
		_, err = fmt.Fprintf(out, "comment: %s\n", c)
	}
	return err
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func verify(ctx context.Context, cfg config, targets []string, out io.Writer, logger *slog.Logger) error {
	results := make([]error, len(targets))
	counts := make([]int, len(targets))

	var g errgroup.Group
	g.SetLimit(max(cfg.jobs, 1))
	for i, target := range targets {
		g.Go(func() error {
			a, err := openTarget(ctx, target, logger)
			if err != nil {
				results[i] = err
				return nil
			}
			defer a.Close()
			counts[i] = a.Len()
			results[i] = a.VerifyAll(ctx)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers record their failures in results

	var failed []error
	for i, target := range targets {
		status := fmt.Sprintf("ok (%d entries)", counts[i])
		if results[i] != nil {
			status = "FAILED: " + results[i].Error()
			failed = append(failed, fmt.Errorf("%s: %w", target, results[i]))
		}
		if _, err := fmt.Fprintf(out, "%s: %s\n", target, status); err != nil {
			return err
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d archives failed verification: %w", len(failed), len(targets), errors.Join(failed...))
	}
	return nil
}

// report prints the elapsed time and the size change from before to the
// current size of path.
func report(out io.Writer, verb, path string, before int64, start time.Time) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	after := info.Size()
	delta := 0.0
	if before > 0 {
		delta = 100 * float64(after-before) / float64(before)
	}
	_, err = fmt.Fprintf(out, "%s %s: %s -> %s (%+.1f%%) in %s\n",
		verb, path, units.HumanSize(float64(before)), units.HumanSize(float64(after)),
		delta, time.Since(start).Round(time.Millisecond))
	return err
}
