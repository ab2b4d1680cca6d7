// Package shm allocates process-shared pixel buffer backing stores.
//
// Buffers are backed by an anonymous memfd rather than a named POSIX
// shm object: a memfd is never linked into any filesystem namespace,
// so there is no window in which another process could open it.
package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// AllocationError reports a failed shared-memory creation, sizing or
// mapping step. It is fatal for the capture attempt that needed the
// buffer.
type AllocationError struct {
	Op  string
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("shm: %s failed: %v", e.Op, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// Buffer is a zero-initialized, process-shared memory region. The file
// descriptor stays open for the buffer's lifetime so it can be passed
// to the capture service.
type Buffer struct {
	fd   int
	data []byte
}

// Create allocates a shared buffer of the given size in bytes.
func Create(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, &AllocationError{Op: "size", Err: fmt.Errorf("invalid size %d", size)}
	}

	fd, err := unix.MemfdCreate("lockveil-frame", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, &AllocationError{Op: "memfd_create", Err: err}
	}

	for {
		err = unix.Ftruncate(fd, int64(size))
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		unix.Close(fd)
		return nil, &AllocationError{Op: "ftruncate", Err: err}
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, &AllocationError{Op: "mmap", Err: err}
	}

	return &Buffer{fd: fd, data: data}, nil
}

// FD returns the file descriptor backing the buffer.
func (b *Buffer) FD() int { return b.fd }

// Data returns the mapped region. Valid until Close.
func (b *Buffer) Data() []byte { return b.data }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return len(b.data) }

// Close unmaps the region and closes the backing descriptor. Safe to
// call more than once.
func (b *Buffer) Close() error {
	var first error
	if b.data != nil {
		first = unix.Munmap(b.data)
		b.data = nil
	}
	if b.fd >= 0 {
		if err := unix.Close(b.fd); err != nil && first == nil {
			first = err
		}
		b.fd = -1
	}
	return first
}
