package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrInvalidFile
	ErrUploadFailed
	ErrAIUnavailable
	ErrNotIndexed
	ErrAlreadyProcessed
	ErrEmptyContent
	ErrUnsupportedFormat
	ErrModelReturnedEmpty
	ErrSlowConsumer
)
