package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiggy_order_exporter/internal/capture"
	"swiggy_order_exporter/internal/models"
	"swiggy_order_exporter/internal/parser"
)

type fakeOrder struct {
	html      string
	delivered bool
}

// fakeSession scripts the page surface: a fixed list of orders, an optional
// overlay and a few injectable failures.
type fakeSession struct {
	orders   []fakeOrder
	showMore int
	overlay  bool

	current      int // open order index, -1 while on the list
	countCalls   int
	shrinkTo     int // list length reported after the first Count, -1 keeps it stable
	openErrAt    int // ClickNth fails for this index, -1 never
	failReloadAt int // list reload fails from this dismissal on, 0 never

	dismissals     int
	overlayClicks  int
	showMoreClicks int
	screenshots    []string
	screenshotErr  error
}

func newFakeSession(orders ...fakeOrder) *fakeSession {
	return &fakeSession{
		orders:    orders,
		current:   -1,
		shrinkTo:  -1,
		openErrAt: -1,
	}
}

func (s *fakeSession) WaitVisible(selector string, _ time.Duration) bool {
	switch selector {
	case overlaySelector:
		return s.overlay
	case detailSelector:
		return s.failReloadAt == 0 || s.dismissals < s.failReloadAt
	default:
		// Delivery location marker inside the open detail view.
		return s.current >= 0 && s.orders[s.current].delivered
	}
}

func (s *fakeSession) TryClick(selector string, _ time.Duration) bool {
	switch selector {
	case showMoreSelector:
		if s.showMore > 0 {
			s.showMore--
			s.showMoreClicks++
			return true
		}
		return false
	case overlaySelector:
		if s.overlay {
			s.overlay = false
			s.overlayClicks++
			return true
		}
		return false
	}
	return false
}

func (s *fakeSession) ClickNth(_ string, index int, _ time.Duration) error {
	if index == s.openErrAt {
		return errors.New("click intercepted")
	}
	s.current = index
	return nil
}

func (s *fakeSession) ClickAt(_, _ float64) error {
	s.current = -1
	s.dismissals++
	return nil
}

func (s *fakeSession) Count(_ string) int {
	s.countCalls++
	if s.shrinkTo >= 0 && s.countCalls > 1 {
		return s.shrinkTo
	}
	return len(s.orders)
}

func (s *fakeSession) WaitQuiet(_ time.Duration) bool { return true }

func (s *fakeSession) Content() (string, error) {
	if s.current < 0 {
		return "", errors.New("no detail view open")
	}
	return s.orders[s.current].html, nil
}

func (s *fakeSession) Screenshot(path string) error {
	if s.screenshotErr != nil {
		return s.screenshotErr
	}
	if err := os.WriteFile(path, []byte("capture"), 0644); err != nil {
		return err
	}
	s.screenshots = append(s.screenshots, path)
	return nil
}

type fakeUploader struct {
	fail  bool
	calls []string
}

func (u *fakeUploader) Upload(_ context.Context, _, name string) (string, error) {
	u.calls = append(u.calls, name)
	if u.fail {
		return "", errors.New("upload refused")
	}
	return "https://drive.google.com/file/d/" + name + "/view?usp=sharing", nil
}

func orderHTML(id, date, amount string) string {
	return fmt.Sprintf(`<div class="_3c1Xj">
	<div class="_1Hjkp">Order #%s</div>
	<div class="_2kNey">Delivered on %s
<span>41 min</span></div>
	<div class="rupee">%s</div>
</div>`, id, date, amount)
}

func newTestScraper(t *testing.T, session Session, uploader Uploader) *OrderScraper {
	t.Helper()
	return NewOrderScraper(session, parser.NewSwiggyParser(), uploader, Options{
		BillsDir:         t.TempDir(),
		DeliveryLocation: "work",
	})
}

func TestRunCollectsQualifyingOrders(t *testing.T) {
	session := newFakeSession(
		fakeOrder{html: orderHTML("111", "Mon, 5 Jan 2024, 10:30", "318"), delivered: true},
		fakeOrder{html: orderHTML("222", "Tue, 6 Feb 2024, 13:05", "525"), delivered: false},
		fakeOrder{html: orderHTML("333", "Wed, 7 Feb 2024, 20:45", "209"), delivered: true},
	)
	session.showMore = 2
	session.overlay = true
	uploader := &fakeUploader{}

	rows, err := newTestScraper(t, session, uploader).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "111", rows[0].OrderID)
	assert.Equal(t, "Mon, 5 Jan 2024, 10:30", rows[0].Date)
	assert.Equal(t, "318", rows[0].Amount)
	assert.Equal(t, "https://drive.google.com/file/d/5_Jan_2024_10_30.png/view?usp=sharing", rows[0].CaptureLink)

	assert.Equal(t, "333", rows[1].OrderID)
	assert.Equal(t, "209", rows[1].Amount)

	assert.Equal(t, 2, session.showMoreClicks)
	assert.Equal(t, 1, session.overlayClicks)
	assert.Equal(t, []string{"5_Jan_2024_10_30.png", "7_Feb_2024_20_45.png"}, uploader.calls)

	for _, path := range session.screenshots {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	}
}

func TestRunReturnsNothingForEmptyList(t *testing.T) {
	session := newFakeSession()
	uploader := &fakeUploader{}

	rows, err := newTestScraper(t, session, uploader).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, uploader.calls)
}

func TestRunSkipsOrderWhenUploadFails(t *testing.T) {
	session := newFakeSession(
		fakeOrder{html: orderHTML("111", "Mon, 5 Jan 2024, 10:30", "318"), delivered: true},
	)
	uploader := &fakeUploader{fail: true}

	rows, err := newTestScraper(t, session, uploader).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)

	// The capture survives on disk even though the order was not recorded.
	require.Len(t, session.screenshots, 1)
	_, statErr := os.Stat(session.screenshots[0])
	assert.NoError(t, statErr)
}

func TestRunFallsBackToUnknownFields(t *testing.T) {
	session := newFakeSession(
		fakeOrder{html: `<div class="other">nothing recognizable</div>`, delivered: true},
	)
	uploader := &fakeUploader{}

	rows, err := newTestScraper(t, session, uploader).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, models.Unknown, rows[0].OrderID)
	assert.Equal(t, models.Unknown, rows[0].Date)
	assert.Equal(t, models.Unknown, rows[0].Amount)
	assert.NotEmpty(t, rows[0].CaptureLink)

	require.Len(t, session.screenshots, 1)
	assert.Equal(t, "swiggy_order_details_1.png", filepath.Base(session.screenshots[0]))
}

func TestRunStopsEarlyWhenListShrinks(t *testing.T) {
	session := newFakeSession(
		fakeOrder{html: orderHTML("111", "Mon, 5 Jan 2024, 10:30", "318"), delivered: true},
		fakeOrder{html: orderHTML("222", "Tue, 6 Feb 2024, 13:05", "525"), delivered: true},
		fakeOrder{html: orderHTML("333", "Wed, 7 Feb 2024, 20:45", "209"), delivered: true},
	)
	session.shrinkTo = 1

	rows, err := newTestScraper(t, session, &fakeUploader{}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRunAbortsWhenListDoesNotReload(t *testing.T) {
	session := newFakeSession(
		fakeOrder{html: orderHTML("111", "Mon, 5 Jan 2024, 10:30", "318"), delivered: true},
		fakeOrder{html: orderHTML("222", "Tue, 6 Feb 2024, 13:05", "525"), delivered: true},
	)
	session.failReloadAt = 1

	rows, err := newTestScraper(t, session, &fakeUploader{}).Run(context.Background())
	require.ErrorIs(t, err, ErrListUnavailable)
	assert.Len(t, rows, 1)
}

func TestRunAbortsWhenOpeningAnOrderFails(t *testing.T) {
	session := newFakeSession(
		fakeOrder{html: orderHTML("111", "Mon, 5 Jan 2024, 10:30", "318"), delivered: true},
		fakeOrder{html: orderHTML("222", "Tue, 6 Feb 2024, 13:05", "525"), delivered: true},
	)
	session.openErrAt = 1

	rows, err := newTestScraper(t, session, &fakeUploader{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open order 2")
	assert.Len(t, rows, 1)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	session := newFakeSession(
		fakeOrder{html: orderHTML("111", "Mon, 5 Jan 2024, 10:30", "318"), delivered: true},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, err := newTestScraper(t, session, &fakeUploader{}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rows)
}

func TestRunRecordsCapturesInManifest(t *testing.T) {
	session := newFakeSession(
		fakeOrder{html: orderHTML("111", "Mon, 5 Jan 2024, 10:30", "318"), delivered: true},
	)
	uploader := &fakeUploader{}

	dir := t.TempDir()
	manifest, err := capture.Open(filepath.Join(dir, "captures.json"))
	require.NoError(t, err)

	s := NewOrderScraper(session, parser.NewSwiggyParser(), uploader, Options{
		BillsDir:         dir,
		DeliveryLocation: "work",
		Captures:         manifest,
	})

	rows, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 1, manifest.Len())
	entry, ok := manifest.Get("5_Jan_2024_10_30.png")
	require.True(t, ok)
	assert.Equal(t, "111", entry.OrderID)
	assert.Equal(t, rows[0].CaptureLink, entry.Link)
}
