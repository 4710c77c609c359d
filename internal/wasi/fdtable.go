package wasi

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// descriptor is one entry of the file descriptor table: either a preopened
// directory (the sandbox root the guest is allowed to path_open under) or an
// actual open *os.File.
type descriptor struct {
	file     *os.File
	isPreopen bool
	guestPath string // the preopen's guest-visible path, e.g. "/sandbox"
	hostRoot  string // the host directory it maps to
}

// fdTable is the per-instance open file table, grounded on the preopen +
// numeric-fd model every WASI implementation uses: fd 0/1/2 are standard
// streams, fds 3.. are preopened directories followed by whatever the guest
// opens via path_open.
type fdTable struct {
	mu      sync.Mutex
	entries map[int32]*descriptor
	next    int32
}

// Preopen maps a guest-visible path to a host directory the guest may read
// and write under.
type Preopen struct {
	GuestPath string
	HostRoot  string
}

func newFdTable(stdout, stderr io.Writer, stdin io.Reader, preopens []Preopen) (*fdTable, error) {
	t := &fdTable{entries: map[int32]*descriptor{}, next: 3}
	t.entries[0] = &descriptor{file: stdinFile(stdin)}
	t.entries[1] = &descriptor{file: writerFile(stdout)}
	t.entries[2] = &descriptor{file: writerFile(stderr)}
	for _, p := range preopens {
		abs, err := filepath.Abs(p.HostRoot)
		if err != nil {
			return nil, err
		}
		t.entries[t.next] = &descriptor{isPreopen: true, guestPath: p.GuestPath, hostRoot: abs}
		t.next++
	}
	return t, nil
}

// stdinFile/writerFile connect fds 0-2 only when the given stream is an
// *os.File. For any other io.Reader/io.Writer the descriptor's file stays
// nil: guest writes to it are discarded (reported as 0 bytes written) and
// reads from it return 0 bytes.
func stdinFile(r io.Reader) *os.File {
	if f, ok := r.(*os.File); ok {
		return f
	}
	return nil
}

func writerFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}

func (t *fdTable) get(fd int32) (*descriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.entries[fd]
	return d, ok
}

func (t *fdTable) alloc(d *descriptor) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.next
	t.next++
	t.entries[fd] = d
	return fd
}

func (t *fdTable) close(fd int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.entries[fd]; ok {
		if d.file != nil && !d.isPreopen && fd > 2 {
			d.file.Close()
		}
		delete(t.entries, fd)
	}
}

func (t *fdTable) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for fd, d := range t.entries {
		if d.file != nil && !d.isPreopen && fd > 2 {
			d.file.Close()
		}
	}
}

// resolve maps a guest-relative path opened under a preopen fd to an
// absolute host path, rejecting any attempt to escape the sandbox root via
// ".." components.
func (d *descriptor) resolve(guestRelPath string) (string, error) {
	cleaned := filepath.Clean("/" + guestRelPath)
	full := filepath.Join(d.hostRoot, cleaned)
	rel, err := filepath.Rel(d.hostRoot, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", os.ErrPermission
	}
	return full, nil
}
