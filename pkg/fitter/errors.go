package fitter

import "errors"

var (
	// ErrInvalidDimensions is returned when a source or target size is not positive
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrCropFailed is returned when the crop region cannot be taken from the source bitmap
	ErrCropFailed = errors.New("crop failed")
	// ErrEncodingFailed is returned when the resampled bitmap cannot be materialized
	ErrEncodingFailed = errors.New("encoding failed")
)
