package shinobi

import "errors"

var (
	// ErrUnsupportedVersion is returned when a blob's version byte is outside the known set
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrUnknownReason is returned for a noneligibility tag outside 0-9
	ErrUnknownReason = errors.New("unknown noneligibility reason")
	// ErrRecordDecode marks a failure that invalidates one voter record
	ErrRecordDecode = errors.New("record decode failed")
	// ErrBlobDecode marks a failure that invalidates a whole blob
	ErrBlobDecode = errors.New("blob decode failed")
)
