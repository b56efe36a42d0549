package hitmerge

import "errors"

var (
	// ErrSameRank is returned when a worker is constructed with the
	// master rank equal to its own transport rank.
	ErrSameRank = errors.New("master rank must differ from worker rank")

	// ErrNilScanFunc is returned when Worker.Run is called without a
	// scan function.
	ErrNilScanFunc = errors.New("scan function must not be nil")

	// ErrNegativeExpected is returned when Master.Serve is called with
	// a negative expected hit count.
	ErrNegativeExpected = errors.New("expected hit count must not be negative")
)
