package store

import (
	"io/fs"

	"github.com/cockroachdb/errors"
)

// ioError marks an OS error as ErrFileNotFound or ErrIO. The OS error stays
// the cause, so errors.Is matches both the mark and fs.ErrNotExist.
func ioError(op, path string, err error) error {
	wrapped := errors.Wrapf(err, "%s %s", op, path)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Mark(wrapped, ErrFileNotFound)
	}
	return errors.Mark(wrapped, ErrIO)
}
