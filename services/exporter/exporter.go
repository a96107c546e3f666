package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"threadsmith-backend/services/composer"
)

type Options struct {
	// OutputRoot is the directory final posts are written under.
	OutputRoot string
	// Retention is how many date directories to keep per target.
	Retention int
}

type Service struct {
	options Options
}

func NewService(options Options) Service {
	if options.OutputRoot == "" {
		options.OutputRoot = filepath.Join("data", "output-post")
	}
	if options.Retention <= 0 {
		options.Retention = 10
	}
	return Service{options: options}
}

var finalHeader = []string{"reference_post", "target", "final_post"}

func encodeFinalCSV(posts []composer.FinalPost) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	err := writer.Write(finalHeader)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		err := writer.Write([]string{p.ReferenceUsername, p.Target, p.Text})
		if err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export writes final posts to a dated CSV, repoints the latest file
// and prunes old date directories. Returns the path of the CSV it
// wrote.
func (s Service) Export(ctx context.Context, target string, posts []composer.FinalPost) (string, error) {
	ctx, span := tracer.Start(ctx, "Export")
	defer span.End()
	span.SetAttributes(
		attribute.String("target", target),
		attribute.Int("posts", len(posts)),
	)

	if len(posts) == 0 {
		err := fmt.Errorf("no final posts to export for target '%s'", target)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	contents, err := encodeFinalCSV(posts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode csv")
		return "", err
	}

	now := time.Now()
	dateDir := filepath.Join(s.options.OutputRoot, target, now.Format("2006-01-02"))
	err = os.MkdirAll(dateDir, 0o755)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output directory")
		return "", err
	}

	csvPath := filepath.Join(dateDir, fmt.Sprintf("final_posts_%s.csv", now.Format("150405")))
	err = os.WriteFile(csvPath, contents, 0o644)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write csv")
		return "", err
	}
	slog.InfoContext(ctx, "wrote final posts", "target", target, "posts", len(posts), "file", csvPath)

	err = s.updateLatest(ctx, target, contents, csvPath)
	if err != nil {
		slog.WarnContext(ctx, "failed to update latest pointer", "target", target, "err", err)
	}

	err = s.pruneOldRuns(ctx, target, now.Format("2006-01-02"))
	if err != nil {
		slog.WarnContext(ctx, "failed to prune old runs", "target", target, "err", err)
	}

	return csvPath, nil
}

// updateLatest replaces latest_<target>.csv atomically so a reader
// never observes a half-written file. When the atomic rename is not
// possible on the filesystem it falls back to a plain copy.
func (s Service) updateLatest(ctx context.Context, target string, contents []byte, csvPath string) error {
	latest := filepath.Join(s.options.OutputRoot, fmt.Sprintf("latest_%s.csv", target))

	err := renameio.WriteFile(latest, contents, 0o644)
	if err == nil {
		slog.DebugContext(ctx, "updated latest pointer", "file", latest)
		return nil
	}
	slog.WarnContext(ctx, "atomic replace failed, copying instead", "err", err)

	src, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(latest)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// pruneOldRuns keeps the newest Retention date directories for a
// target. The directory written by the current run is always kept.
func (s Service) pruneOldRuns(ctx context.Context, target, currentDate string) error {
	targetDir := filepath.Join(s.options.OutputRoot, target)
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return err
	}

	var dates []string
	for _, entry := range entries {
		if entry.IsDir() {
			dates = append(dates, entry.Name())
		}
	}
	if len(dates) <= s.options.Retention {
		return nil
	}

	// ISO dates sort chronologically as strings
	sort.Strings(dates)
	for _, date := range dates[:len(dates)-s.options.Retention] {
		if date == currentDate {
			continue
		}
		path := filepath.Join(targetDir, date)
		err := os.RemoveAll(path)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "pruned old run directory", "path", path)
	}
	return nil
}
