package scraper

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrListUnavailable means the order list never came back after a detail
	// view was dismissed; continuing would click into the void.
	ErrListUnavailable = errors.New("order list did not reload")
)

// Session is the live page surface the order walk drives. Bounded waits
// report absence as false, never as an error; the page not showing something
// in time is an answer, not a failure.
type Session interface {
	WaitVisible(selector string, timeout time.Duration) bool
	TryClick(selector string, timeout time.Duration) bool
	ClickNth(selector string, index int, timeout time.Duration) error
	ClickAt(x, y float64) error
	Count(selector string) int
	WaitQuiet(timeout time.Duration) bool
	Content() (string, error)
	Screenshot(path string) error
}

// Uploader pushes a capture file to remote storage and returns a shareable
// link. When an upload fails the order is skipped but the capture stays on
// disk.
type Uploader interface {
	Upload(ctx context.Context, path, name string) (string, error)
}
