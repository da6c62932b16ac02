package manager

import (
	"errors"

	"github.com/dot5enko/simple-column-scan/manager/scheduler"
	"github.com/dot5enko/simple-column-scan/schema"
)

var (
	// empty file set, bad lane id, unknown column
	ErrConfiguration = scheduler.ErrConfiguration

	// a file could not be opened, or another lane already failed to open one
	ErrReaderOpen = errors.New("unable to open reader")

	// column type or literal the compare kernels do not handle
	ErrUnsupportedType = schema.ErrUnsupportedType
)
