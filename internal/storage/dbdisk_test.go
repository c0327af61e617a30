package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckDatabaseDisk(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mount   mount
		known   bool
		wantErr bool
	}{
		{name: "local ext4", mount: mount{fsName: "0xef53"}, known: true},
		{name: "local apfs", mount: mount{fsName: "apfs"}, known: true},
		{name: "nfs share", mount: mount{fsName: "nfs", remote: true}, known: true, wantErr: true},
		{name: "smb share", mount: mount{fsName: "smbfs", remote: true}, known: true, wantErr: true},
		{name: "platform cannot tell", known: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dbPath := filepath.Join(t.TempDir(), "app.db")
			err := checkDatabaseDiskWith(dbPath, func(string) (mount, bool, error) {
				return tc.mount, tc.known, nil
			})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected %s to be refused", tc.mount.fsName)
				}
				if !strings.Contains(err.Error(), "DATABASE_URL") || !strings.Contains(err.Error(), tc.mount.fsName) {
					t.Fatalf("error should name the setting and the share type, got %q", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected pass, got: %v", err)
			}
		})
	}
}

func TestCheckDatabaseDiskStatsClosestExistingDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dbPath := filepath.Join(root, "data", "nested", "app.db")

	var statted string
	err := checkDatabaseDiskWith(dbPath, func(dir string) (mount, bool, error) {
		statted = dir
		return mount{fsName: "apfs"}, true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statted != root {
		t.Fatalf("statted %q, want %q", statted, root)
	}
}

func TestCheckDatabaseDiskStatFailure(t *testing.T) {
	t.Parallel()

	err := checkDatabaseDiskWith(filepath.Join(t.TempDir(), "app.db"), func(string) (mount, bool, error) {
		return mount{}, false, errors.New("permission denied")
	})
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("expected stat error, got: %v", err)
	}
}

func TestMountAtTempDirIsLocal(t *testing.T) {
	t.Parallel()

	m, _, err := mountAt(t.TempDir())
	if err != nil {
		t.Fatalf("mountAt: %v", err)
	}
	if m.remote {
		t.Skipf("temp dir is on a %s share", m.fsName)
	}
}
