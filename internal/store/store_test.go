package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/me/rtodash/internal/logging"
)

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := NewSQLiteStore(":memory:", logging.Discard())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// exerciseKV runs the same contract against every KV implementation.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, KeyAuthToken); err != nil || ok {
		t.Fatalf("Get on empty storage = ok:%v err:%v, want absent", ok, err)
	}

	if err := kv.Set(ctx, KeyAuthToken, "tok-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, KeyAuthToken, "tok-2"); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	v, ok, err := kv.Get(ctx, KeyAuthToken)
	if err != nil || !ok || v != "tok-2" {
		t.Fatalf("Get = %q ok:%v err:%v, want tok-2", v, ok, err)
	}

	if err := kv.Delete(ctx, KeyAuthToken); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, KeyAuthToken); ok {
		t.Error("expected key to be gone after Delete")
	}
	if err := kv.Delete(ctx, KeyAuthToken); err != nil {
		t.Errorf("Delete of missing key should succeed, got %v", err)
	}
}

func TestSQLiteStore_KV(t *testing.T) {
	st := setupSQLite(t)
	exerciseKV(t, st.Client("c_1"))
}

func TestMemoryStore_KV(t *testing.T) {
	exerciseKV(t, NewMemoryStore().Client("c_1"))
}

func TestFileKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	exerciseKV(t, NewFileKV(path))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("storage file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("storage file perm = %o, want 600", perm)
	}
}

func TestFileKV_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")

	if err := NewFileKV(path).Set(ctx, KeyTheme, "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := NewFileKV(path).Get(ctx, KeyTheme)
	if err != nil || !ok || v != "dark" {
		t.Errorf("Get = %q ok:%v err:%v, want dark", v, ok, err)
	}
}

func TestFileKV_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileKV(path).Get(context.Background(), KeyAuthToken); err == nil {
		t.Error("expected parse error for corrupt storage")
	}
}

func TestSQLiteStore_ClientIsolation(t *testing.T) {
	st := setupSQLite(t)
	ctx := context.Background()

	if err := st.Client("a").Set(ctx, KeyAuthToken, "tok-a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := st.Client("b").Get(ctx, KeyAuthToken); ok {
		t.Error("client b must not see client a's token")
	}
}

func TestSQLiteStore_DeleteIdleClients(t *testing.T) {
	st := setupSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"old", "fresh"} {
		if err := st.Touch(ctx, id); err != nil {
			t.Fatalf("Touch(%s): %v", id, err)
		}
		if err := st.Client(id).Set(ctx, KeyAuthToken, "tok-"+id); err != nil {
			t.Fatal(err)
		}
	}
	// Backdate "old".
	if _, err := st.db.ExecContext(ctx, `UPDATE clients SET last_seen = ? WHERE id = 'old'`,
		time.Now().Add(-48*time.Hour).Unix()); err != nil {
		t.Fatal(err)
	}

	n, err := st.DeleteIdleClients(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteIdleClients: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d clients, want 1", n)
	}
	if _, ok, _ := st.Client("old").Get(ctx, KeyAuthToken); ok {
		t.Error("idle client storage should be removed")
	}
	if _, ok, _ := st.Client("fresh").Get(ctx, KeyAuthToken); !ok {
		t.Error("fresh client storage should survive")
	}
}

func TestSQLiteStore_DeleteClient(t *testing.T) {
	st := setupSQLite(t)
	ctx := context.Background()

	if err := st.Touch(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if err := st.Client("c").Set(ctx, KeyTheme, "light"); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteClient(ctx, "c"); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if _, ok, _ := st.Client("c").Get(ctx, KeyTheme); ok {
		t.Error("expected storage to be gone")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := setupSQLite(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate failed: %v", err)
	}
}
