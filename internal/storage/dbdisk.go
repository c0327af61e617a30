package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// mount is what the platform reports about the filesystem under a path.
type mount struct {
	fsName string
	remote bool
}

// mountStat inspects dir. ok is false when the platform has no way to tell.
type mountStat func(dir string) (m mount, ok bool, err error)

// checkDatabaseDisk refuses a database file on a network share. SQLite
// byte-range locks are not honoured there and WAL mode corrupts.
func checkDatabaseDisk(dbPath string) error {
	return checkDatabaseDiskWith(dbPath, mountAt)
}

func checkDatabaseDiskWith(dbPath string, stat mountStat) error {
	dir, err := closestExisting(dbPath)
	if err != nil {
		return fmt.Errorf("locate database directory for %s: %w", dbPath, err)
	}

	m, ok, err := stat(dir)
	if err != nil {
		return fmt.Errorf("stat mount at %s: %w", dir, err)
	}
	if !ok || !m.remote {
		return nil
	}
	return fmt.Errorf("DATABASE_URL %s sits on a %s share; keep the SQLite file on a local disk", dbPath, m.fsName)
}

// closestExisting returns dbPath or its nearest existing parent, since the
// data directory may not have been created yet.
func closestExisting(dbPath string) (string, error) {
	p, err := filepath.Abs(dbPath)
	if err != nil {
		return "", err
	}
	for ; ; p = filepath.Dir(p) {
		_, err := os.Stat(p)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", err
		case p == filepath.Dir(p):
			return "", errors.New("no part of the path exists")
		}
	}
}
