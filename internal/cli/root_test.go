package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRootRegistersCommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate", "seed", "export", "import", "reset"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("command %s not registered: %v", name, err)
		}
	}
}

func TestMigrateRequiresPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected migrate without postgres url to fail")
	}
}

func TestUserDataCommandsNeedPersistentStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"reset", "--user", "u1", "--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected reset against the memory store to fail")
	}
}
