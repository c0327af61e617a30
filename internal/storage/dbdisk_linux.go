//go:build linux

package storage

import (
	"fmt"
	"syscall"
)

// f_type values from statfs(2) for shares that break SQLite locking.
var sharedFSMagic = map[uint32]string{
	0x6969:     "nfs",
	0x517B:     "smb",
	0xFF534D42: "cifs",
	0xFE534D42: "smb2",
	0x5346414F: "afs",
	0x01021997: "9p",
	0x00C36400: "ceph",
}

func mountAt(dir string) (mount, bool, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(dir, &st); err != nil {
		return mount{}, false, err
	}
	// Type is int32 on some architectures; the magic is 32 bits everywhere.
	magic := uint32(st.Type)
	if name, ok := sharedFSMagic[magic]; ok {
		return mount{fsName: name, remote: true}, true, nil
	}
	return mount{fsName: fmt.Sprintf("0x%x", magic)}, true, nil
}
