// Package errs defines the sentinel error values shared across the tdm
// packages.
//
// All errors returned by this module either are one of these sentinels or
// wrap one of them, so callers can classify failures with errors.Is:
//
//	view, err := f.Channel(0, 3)
//	if errors.Is(err, errs.ErrIndexOutOfRange) {
//	    // bad group or channel index
//	}
//
// The taxonomy distinguishes load-time problems, which are collected as
// warnings and never abort a best-effort load (ErrUnsupportedChannelType,
// ErrTruncatedData, ErrResourceNotFound), from open-time failures that are
// fatal for the whole file (ErrMalformedMetadata) and query-time failures
// raised directly to the caller (ErrIndexOutOfRange, ErrFileClosed).
package errs

import "errors"

var (
	// ErrMalformedMetadata indicates the TDM metadata document is not
	// well-formed XML or is missing a required element or attribute.
	// Fatal for the whole file, surfaced at open time.
	ErrMalformedMetadata = errors.New("malformed TDM metadata")

	// ErrResourceNotFound indicates a binary resource (TDX file) referenced
	// by the metadata could not be located or opened. Fatal only for the
	// channels stored in that resource.
	ErrResourceNotFound = errors.New("binary resource not found")

	// ErrUnsupportedChannelType indicates a channel declares a data type
	// token this module does not understand, or a variable-length string
	// channel lacks its length table. The channel is skipped with a recorded
	// warning; the rest of the file stays accessible.
	ErrUnsupportedChannelType = errors.New("unsupported channel type")

	// ErrTruncatedData indicates a block's declared extent exceeds its
	// binary resource. The channel exposes only the validated prefix.
	ErrTruncatedData = errors.New("truncated channel data")

	// ErrIndexOutOfRange indicates a group index, channel index, or element
	// index outside the valid range. Raised at query time, never during load.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrFileClosed indicates an operation on a File after Close.
	ErrFileClosed = errors.New("file is closed")

	// ErrGroupNotFound indicates no channel group with the requested name
	// exists in the file.
	ErrGroupNotFound = errors.New("channel group not found")

	// ErrChannelNotFound indicates no channel with the requested name exists.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotNumeric indicates a numeric conversion was requested from a
	// non-numeric (string) channel.
	ErrNotNumeric = errors.New("channel is not numeric")
)
