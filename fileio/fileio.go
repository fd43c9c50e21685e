// Package fileio provides the file descriptor table used by the file
// syscalls of the simulator.
//
// Descriptors 0, 1 and 2 are the console streams. Files opened by the
// program get descriptors from 3 upwards, and are backed by a CreateFS.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"maps"
	"slices"

	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var (
	ErrDescriptor   = errors.New(f("file descriptor not open"))
	ErrFlags        = errors.New(f("file open flags not supported"))
	ErrNoFileSystem = errors.New(f("no file system attached"))
	ErrAccess       = errors.New(f("file not open for this access"))
	ErrTooManyFiles = errors.New(f("too many open files"))
)

// Console descriptors.
const (
	FD_STDIN  = 0
	FD_STDOUT = 1
	FD_STDERR = 2
)

// Open flags.
const (
	FLAG_READ   = 0 // Read only.
	FLAG_WRITE  = 1 // Write only, create or truncate.
	FLAG_APPEND = 9 // Write only, create or append.
)

// MAX_FILES is the limit of simultaneously open program files.
const MAX_FILES = 32

// CreateFS is a file system that also supports creating files for writing.
type CreateFS interface {
	fs.FS
	// Create opens a file for writing, truncating it unless append is set.
	Create(name string, append bool) (file io.WriteCloser, err error)
}

// file is an open descriptor.
type file struct {
	name   string
	reader io.Reader
	writer io.Writer
	closer io.Closer
}

// Table maps descriptors to open files.
type Table struct {
	Verbose bool // If set, log opens and closes.

	FS CreateFS // Source of program files; nil refuses all opens.

	Stdin  io.Reader // Console input, if any.
	Stdout io.Writer // Console output, if any.
	Stderr io.Writer // Console error output, if any.

	files map[int]*file
}

// Open a file, returning its descriptor.
func (table *Table) Open(name string, flags int) (fd int, err error) {
	if table.FS == nil {
		err = ErrNoFileSystem
		return
	}

	if len(table.files) >= MAX_FILES {
		err = ErrTooManyFiles
		return
	}

	of := &file{name: name}

	switch flags {
	case FLAG_READ:
		var rf fs.File
		rf, err = table.FS.Open(name)
		if err != nil {
			return
		}
		of.reader = rf
		of.closer = rf
	case FLAG_WRITE, FLAG_APPEND:
		var wf io.WriteCloser
		wf, err = table.FS.Create(name, flags == FLAG_APPEND)
		if err != nil {
			return
		}
		of.writer = wf
		of.closer = wf
	default:
		err = fmt.Errorf("%w: %d", ErrFlags, flags)
		return
	}

	if table.files == nil {
		table.files = make(map[int]*file)
	}

	fd = FD_STDERR + 1
	for table.files[fd] != nil {
		fd++
	}
	table.files[fd] = of

	if table.Verbose {
		log.Printf("fileio: open %q flags %d as %d", name, flags, fd)
	}

	return
}

// Read from a descriptor. Returns 0 at end of file.
func (table *Table) Read(fd int, buf []byte) (n int, err error) {
	var reader io.Reader
	switch fd {
	case FD_STDIN:
		reader = table.Stdin
	case FD_STDOUT, FD_STDERR:
	default:
		of, ok := table.files[fd]
		if !ok {
			err = fmt.Errorf("%w: %d", ErrDescriptor, fd)
			return
		}
		reader = of.reader
	}

	if reader == nil {
		err = fmt.Errorf("%w: read %d", ErrAccess, fd)
		return
	}

	if len(buf) == 0 {
		return
	}

	n, err = reader.Read(buf)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return
}

// Write to a descriptor.
func (table *Table) Write(fd int, buf []byte) (n int, err error) {
	var writer io.Writer
	switch fd {
	case FD_STDIN:
	case FD_STDOUT:
		writer = table.Stdout
	case FD_STDERR:
		writer = table.Stderr
	default:
		of, ok := table.files[fd]
		if !ok {
			err = fmt.Errorf("%w: %d", ErrDescriptor, fd)
			return
		}
		writer = of.writer
	}

	if writer == nil {
		err = fmt.Errorf("%w: write %d", ErrAccess, fd)
		return
	}

	return writer.Write(buf)
}

// Close a descriptor. The console descriptors are never closed.
func (table *Table) Close(fd int) (err error) {
	of, ok := table.files[fd]
	if !ok {
		if fd <= FD_STDERR {
			return
		}
		err = fmt.Errorf("%w: %d", ErrDescriptor, fd)
		return
	}

	delete(table.files, fd)

	if table.Verbose {
		log.Printf("fileio: close %d (%q)", fd, of.name)
	}

	return of.closer.Close()
}

// Descriptors returns the open program file descriptors, in order.
func (table *Table) Descriptors() []int {
	return slices.Sorted(maps.Keys(table.files))
}

// CloseAll closes every program file.
func (table *Table) CloseAll() (err error) {
	var errs []error
	for _, fd := range table.Descriptors() {
		errs = append(errs, table.Close(fd))
	}
	return errors.Join(errs...)
}
