package block

import "errors"

var (
	// ErrOutOfOrderKey is returned when Add receives a key that does
	// not sort strictly after the previously added key.
	ErrOutOfOrderKey = errors.New("key not strictly greater than last added key")

	// ErrBuilderFinished is returned when Add or Finish is called on
	// a builder that has already been finished.
	ErrBuilderFinished = errors.New("block builder already finished")

	// ErrInvalidBlock is returned when block data fails structural
	// validation.
	ErrInvalidBlock = errors.New("invalid block format")
)
