package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mholt/archives"
	"github.com/pkg/errors"

	"papercache/internal/storage"
)

// objectStore owns the payload files of a cache root: one file per key,
// named deterministically from the key, optionally gzip-compressed. It
// never touches the metadata index; keeping the two in sync is the
// facade's job.
type objectStore struct {
	dir         string
	compression bool
}

func newObjectStore(dir string, compression bool) *objectStore {
	return &objectStore{dir: dir, compression: compression}
}

func (s *objectStore) path(key string) string {
	ext := ".bin"
	if s.compression {
		ext = ".bin.gz"
	}
	return filepath.Join(s.dir, key+ext)
}

// write persists the payload atomically: content goes to a temp file that
// is renamed into place, so a crashed write never leaves a partial payload
// under the final name. Empty payloads are valid and round-trip exactly;
// a memoized "no result" is still a result.
func (s *objectStore) write(key string, payload []byte) error {
	path := s.path(key)
	tmp := fmt.Sprintf("%s.tmp-%s", path, uuid.NewString())

	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "could not create payload temp file")
	}
	defer os.Remove(tmp)

	var writeErr error
	if s.compression {
		zw, err := archives.Gz{CompressionLevel: 6}.OpenWriter(f)
		if err != nil {
			f.Close()
			return errors.Wrap(err, "could not open compressed writer")
		}
		_, writeErr = zw.Write(payload)
		if closeErr := zw.Close(); writeErr == nil {
			writeErr = closeErr
		}
	} else {
		_, writeErr = f.Write(payload)
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return errors.Wrap(writeErr, "could not write payload")
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "could not finalize payload file")
	}
	return nil
}

func (s *objectStore) read(key string) ([]byte, error) {
	path := s.path(key)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &storage.NotFoundError{Identifier: key, Location: "object store"}
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not open payload file")
	}
	defer f.Close()

	var r io.Reader = f
	if s.compression {
		zr, err := archives.Gz{}.OpenReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "could not open compressed reader")
		}
		defer zr.Close()
		r = zr
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read payload")
	}
	return payload, nil
}

func (s *objectStore) exists(key string) bool {
	info, err := os.Stat(s.path(key))
	return err == nil && info.Mode().IsRegular()
}

func (s *objectStore) delete(key string) (bool, error) {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "could not delete payload file")
	}
	return true, nil
}

func (s *objectStore) size(key string) int64 {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return 0
	}
	return info.Size()
}
