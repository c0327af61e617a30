//go:build darwin

package storage

import "syscall"

var sharedFSNames = map[string]bool{
	"afpfs":  true,
	"nfs":    true,
	"smbfs":  true,
	"webdav": true,
}

func mountAt(dir string) (mount, bool, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(dir, &st); err != nil {
		return mount{}, false, err
	}
	var name []byte
	for _, c := range st.Fstypename {
		if c == 0 {
			break
		}
		name = append(name, byte(c))
	}
	return mount{fsName: string(name), remote: sharedFSNames[string(name)]}, true, nil
}
