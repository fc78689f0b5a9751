// Package file reads MARCXML and OAI-PMH files from disk.
package file

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
)

// SrcOption is a functional option for the file Source.
type SrcOption func(s *Source) error

// OptSrcPath sets the path name for the file or directory to use for source
// data.
func OptSrcPath(pathname string) SrcOption {
	return func(s *Source) (err error) {
		s.rawSource, err = NewRawSource(pathname)
		if err != nil {
			return errors.Wrap(err, "getting raw source")
		}
		return nil
	}
}

// OptSrcBufSize sets the number of records to decode ahead of calls to
// Record.
func OptSrcBufSize(bufsize int) SrcOption {
	return func(s *Source) error {
		s.bufSize = bufsize
		return nil
	}
}

// Source is a cobindex.Source which decodes MARC records from files on disk.
type Source struct {
	*cobindex.XMLSource
	rawSource *RawSource
	bufSize   int
}

// NewSource gets a new file source which will decode MARCXML from a file or
// all files in a directory.
func NewSource(opts ...SrcOption) (*Source, error) {
	s := &Source{bufSize: 100}
	for _, opt := range opts {
		err := opt(s)
		if err != nil {
			return nil, err
		}
	}
	if s.rawSource == nil {
		return nil, errors.New("no path given")
	}
	s.XMLSource = cobindex.NewXMLSource(s.rawSource, s.bufSize)
	return s, nil
}

// RawSource hands out each file under a path in name order. Hidden files and
// subdirectories are ignored; files ending in .gz are decompressed.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource lists pathname, which may be a single file or a directory.
func NewRawSource(pathname string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if !info.IsDir() {
		s.files = []string{pathname}
		return s, nil
	}
	entries, err := os.ReadDir(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "reading directory")
	}
	s.files = make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		s.files = append(s.files, filepath.Join(pathname, e.Name()))
	}
	sort.Strings(s.files)
	return s, nil
}

// Files returns the paths the source will read.
func (s *RawSource) Files() []string { return s.files }

type metaFile struct {
	io.Reader
	file *os.File
	gz   *gzip.Reader
}

func (m *metaFile) Name() string {
	return filepath.Base(m.file.Name())
}

func (m *metaFile) Meta() map[string]interface{} {
	return map[string]interface{}{"path": m.file.Name()}
}

func (m *metaFile) Close() error {
	if m.gz != nil {
		if err := m.gz.Close(); err != nil {
			m.file.Close()
			return errors.Wrap(err, "closing gzip reader")
		}
	}
	return m.file.Close()
}

// NextReader implements cobindex.RawSource.
func (s *RawSource) NextReader() (cobindex.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}
	mf := &metaFile{Reader: file, file: file}
	if strings.HasSuffix(file.Name(), ".gz") {
		mf.gz, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, errors.Wrapf(err, "reading gzip header of %s", s.files[idx])
		}
		mf.Reader = mf.gz
	}
	return mf, nil
}
