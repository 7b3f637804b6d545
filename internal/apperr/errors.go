package apperr

import "errors"

var (
	// ErrNotFound signals a missing job, upload session, or file.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals unusable user input: a missing or empty notes
	// archive, or an archive containing no markdown files.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidArgument signals a bad parameter handed to the pipeline core,
	// such as an out-of-range k or an empty corpus given to the clusterer.
	ErrInvalidArgument = errors.New("invalid argument")
)
