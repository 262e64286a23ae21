package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/voxlate/voxlate/pkg/history"
	"github.com/voxlate/voxlate/pkg/kv"
)

// setupTestEnv points VOXLATE_CONFIG at a fresh temp settings file and
// returns its path.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("VOXLATE_CONFIG", path)
	return path
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	configFile = ""
	globalSettings = nil
	settingsLoadErr = nil

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// seedHistory writes records straight into the database the history
// command will open (the default dir next to the settings file).
func seedHistory(t *testing.T, configPath string, records ...history.Record) {
	t.Helper()
	dir := filepath.Join(filepath.Dir(configPath), "history")
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	log, err := history.Open(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if _, err := log.Append(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
}
