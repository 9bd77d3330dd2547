package domain

import "errors"

// One sentinel per failure kind a caller branches on. Wrap with
// fmt.Errorf("%w: ...", ...) and test with errors.Is.
var (
	ErrSourceUnavailable   = errors.New("release source unavailable")
	ErrNotFound            = errors.New("release not found")
	ErrUnsupportedPlatform = errors.New("no asset for this platform")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrCancelled           = errors.New("transfer cancelled")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrInvalidBinary       = errors.New("invalid binary")
	ErrLockedResource      = errors.New("resource busy")
)
