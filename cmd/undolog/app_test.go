package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/undolog/internal/demo"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand(t *testing.T, configYAML string) *cobra.Command {
	t.Helper()
	path := filepath.Join(t.TempDir(), "undolog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o644))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", path, "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("log-format", "", "")
	cmd.SetContext(context.Background())
	return cmd
}

func greetAndUndo(t *testing.T, a *app) {
	t.Helper()
	ctx := context.Background()
	_, err := a.sessions.Create(ctx, "s1")
	require.NoError(t, err)
	err = a.sessions.WithLock(ctx, "s1", func(_ context.Context, s *demo.Session) error {
		if _, _, err := s.Greet("World"); err != nil {
			return err
		}
		_, err := s.Undo(1, false)
		return err
	})
	require.NoError(t, err)
}

func TestNewApp_MemoryJournal(t *testing.T) {
	a, err := newApp(testCommand(t, "log:\n  level: warn\n"))
	require.NoError(t, err)
	greetAndUndo(t, a)

	events, err := a.journal.Recent(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	families, err := a.registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "undolog_transactions_total")

	require.NoError(t, a.Close(context.Background()))
	assert.Empty(t, a.sessions.List())
}

func TestNewApp_RedisJournalWithLock(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := newApp(testCommand(t, "journal:\n  driver: redis\n  addr: "+mr.Addr()+"\n  lock: true\n"))
	require.NoError(t, err)
	greetAndUndo(t, a)

	events, err := a.journal.Recent(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.True(t, mr.Exists("undolog:journal:s1"))

	require.NoError(t, a.Close(context.Background()))
}

func TestNewApp_NoJournal(t *testing.T) {
	a, err := newApp(testCommand(t, "journal:\n  driver: none\n"))
	require.NoError(t, err)
	assert.Nil(t, a.journal)
	greetAndUndo(t, a)
}

func TestNewApp_InvalidLogLevel(t *testing.T) {
	_, err := newApp(testCommand(t, "log:\n  level: loud\n"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "undolog version 0.1.0")
}
