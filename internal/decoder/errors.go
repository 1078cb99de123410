package decoder

import (
	"fmt"

	"github.com/regattaflow/trackcore/internal/models"
)

// FormatError reports an input the decoder could not accept at the container
// level: wrong magic bytes, unsupported version, or markup that will not
// parse. The import is rejected outright.
type FormatError struct {
	Format  models.SourceFormat
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Format, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// DataError reports a well-formed container that yielded zero usable points.
// The import is rejected, but the container itself was readable.
type DataError struct {
	Format  models.SourceFormat
	Message string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: %s", e.Format, e.Message)
}

// ErrBufferTooShort is returned by the binary cursor when a read would run
// past the end of the input buffer.
var ErrBufferTooShort = fmt.Errorf("buffer too short")
