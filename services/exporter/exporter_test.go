package exporter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"threadsmith-backend/lib/telemetry"
	"threadsmith-backend/services/composer"
)

func TestExport(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/exporter")
	defer cleanup()

	root := t.TempDir()
	service := NewService(Options{OutputRoot: root})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	posts := []composer.FinalPost{
		{ReferenceUsername: "taro_dev", Target: "エンジニア", Text: "生成された投稿の本文"},
		{ReferenceUsername: "hana_writes", Target: "エンジニア", Text: "二つ目の本文"},
	}

	csvPath, err := service.Export(ctx, "エンジニア", posts)
	require.NoError(t, err)
	require.FileExists(t, csvPath)

	contents, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	require.Contains(t, string(contents), "reference_post,target,final_post")
	require.Contains(t, string(contents), "taro_dev")

	latest, err := os.ReadFile(filepath.Join(root, "latest_エンジニア.csv"))
	require.NoError(t, err)
	require.Equal(t, contents, latest)

	dateDir := filepath.Dir(csvPath)
	require.Equal(t, time.Now().Format("2006-01-02"), filepath.Base(dateDir))
}

func TestExportRejectsEmpty(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/exporter")
	defer cleanup()

	service := NewService(Options{OutputRoot: t.TempDir()})
	_, err := service.Export(context.Background(), "general", nil)
	require.Error(t, err)
}

func TestPruneOldRuns(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/exporter")
	defer cleanup()

	root := t.TempDir()
	service := NewService(Options{OutputRoot: root, Retention: 3})

	targetDir := filepath.Join(root, "general")
	dates := []string{
		"2026-08-20", "2026-08-21", "2026-08-22",
		"2026-08-23", "2026-08-24", "2026-08-25",
	}
	for _, date := range dates {
		require.NoError(t, os.MkdirAll(filepath.Join(targetDir, date), 0o755))
	}

	require.NoError(t, service.pruneOldRuns(context.Background(), "general", "2026-08-25"))

	entries, err := os.ReadDir(targetDir)
	require.NoError(t, err)
	var kept []string
	for _, e := range entries {
		kept = append(kept, e.Name())
	}
	require.Equal(t, []string{"2026-08-23", "2026-08-24", "2026-08-25"}, kept)
}

func TestPruneNeverDeletesCurrentRun(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/exporter")
	defer cleanup()

	root := t.TempDir()
	service := NewService(Options{OutputRoot: root, Retention: 1})

	targetDir := filepath.Join(root, "general")
	for _, date := range []string{"2026-08-20", "2026-08-29"} {
		require.NoError(t, os.MkdirAll(filepath.Join(targetDir, date), 0o755))
	}

	// the current run's directory sorts oldest here but must survive
	require.NoError(t, service.pruneOldRuns(context.Background(), "general", "2026-08-20"))
	require.DirExists(t, filepath.Join(targetDir, "2026-08-20"))
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary([]TargetSummary{
		{Target: "エンジニア", PostsIn: 12, PostsFinal: 9, OutputFile: "data/output-post/エンジニア/2026-08-29/final_posts_120000.csv"},
	})
	require.True(t, strings.Contains(out, "エンジニア"))
	require.Contains(t, out, "12")
	require.Contains(t, out, "9")
}
