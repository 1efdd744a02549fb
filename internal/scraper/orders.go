package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"swiggy_order_exporter/internal/capture"
	"swiggy_order_exporter/internal/models"
	"swiggy_order_exporter/internal/parser"
)

const (
	showMoreSelector = "text=Show More Orders"
	detailSelector   = "text=VIEW DETAILS"
	overlaySelector  = "span[class='_1X6No icon-close']"

	// Where a click lands to close the detail panel. The panel has no stable
	// close control, so the click goes to the dimmed area left of it.
	dismissX = 100
	dismissY = 250
)

// Tunables are the waits and settle delays of the order walk. Tests pass
// zeros; production values come from configuration.
type Tunables struct {
	ShowMoreTimeout time.Duration
	OverlayTimeout  time.Duration
	OverlaySettle   time.Duration
	ItemSettle      time.Duration
	MarkerTimeout   time.Duration
	ReloadTimeout   time.Duration
	QuietTimeout    time.Duration
	ClickTimeout    time.Duration
}

type Options struct {
	BillsDir         string
	DeliveryLocation string
	Captures         *capture.Log
	Tunables         Tunables
}

// OrderScraper walks the expanded order list, opens every entry and records
// the ones delivered to the tracked location.
type OrderScraper struct {
	session  Session
	parser   parser.Parser
	uploader Uploader
	captures *capture.Log
	bills    string
	location string
	tun      Tunables
	logger   zerolog.Logger
}

func NewOrderScraper(session Session, p parser.Parser, uploader Uploader, opts Options) *OrderScraper {
	return &OrderScraper{
		session:  session,
		parser:   p,
		uploader: uploader,
		captures: opts.Captures,
		bills:    opts.BillsDir,
		location: opts.DeliveryLocation,
		tun:      opts.Tunables,
		logger:   log.With().Str("component", "order_scraper").Logger(),
	}
}

// Run expands the order list and walks it front to back. Rows collected
// before an automation failure are always returned; the caller decides what
// to do with a partial batch.
func (s *OrderScraper) Run(ctx context.Context) ([]models.OrderRow, error) {
	s.expandOrderList()

	total := s.session.Count(detailSelector)
	s.logger.Info().Int("orders", total).Msg("order list loaded")

	var rows []models.OrderRow

	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return rows, ctx.Err()
		default:
		}

		s.dismissOverlay(ctx)

		// Dismissing an overlay can redraw the list, so re-check that entry i
		// still exists before clicking it.
		if remaining := s.session.Count(detailSelector); i >= remaining {
			s.logger.Warn().Int("index", i).Int("remaining", remaining).Msg("order entry disappeared, stopping early")
			return rows, nil
		}

		s.logger.Info().Int("order", i+1).Int("of", total).Msg("opening order details")

		if err := s.settle(ctx, s.tun.ItemSettle); err != nil {
			return rows, err
		}
		if err := s.session.ClickNth(detailSelector, i, s.tun.ClickTimeout); err != nil {
			return rows, fmt.Errorf("failed to open order %d: %w", i+1, err)
		}
		if err := s.settle(ctx, s.tun.ItemSettle); err != nil {
			return rows, err
		}

		if row, ok := s.processDetail(ctx, i); ok {
			rows = append(rows, row)
		}

		if err := s.returnToList(); err != nil {
			return rows, err
		}
	}

	return rows, nil
}

// expandOrderList clicks "Show More Orders" until the button stops showing
// up, so the walk sees the full history instead of the first page.
func (s *OrderScraper) expandOrderList() {
	for s.session.TryClick(showMoreSelector, s.tun.ShowMoreTimeout) {
		s.logger.Debug().Msg("loaded more orders")
		if !s.session.WaitQuiet(s.tun.QuietTimeout) {
			break
		}
	}
	s.logger.Debug().Msg("order list fully expanded")
}

// dismissOverlay closes a promotional overlay when one is covering the list.
// No overlay is the normal case.
func (s *OrderScraper) dismissOverlay(ctx context.Context) {
	if !s.session.WaitVisible(overlaySelector, s.tun.OverlayTimeout) {
		return
	}
	if s.session.TryClick(overlaySelector, s.tun.OverlayTimeout) {
		s.logger.Debug().Msg("dismissed overlay")
		_ = s.settle(ctx, s.tun.OverlaySettle)
	}
}

// processDetail handles one opened detail view: qualify it by delivery
// location, extract its fields, capture it and upload the capture. A false
// return means the order is skipped; the walk continues either way.
func (s *OrderScraper) processDetail(ctx context.Context, index int) (models.OrderRow, bool) {
	if !s.session.WaitVisible("text="+s.location, s.tun.MarkerTimeout) {
		s.logger.Info().Int("order", index+1).Str("location", s.location).Msg("not delivered to the tracked location, skipping")
		return models.OrderRow{}, false
	}

	fields := s.extractFields(index)

	name := DefaultCaptureName(index + 1)
	if fields.dateLine != "" {
		if derived, ok := CaptureName(fields.dateLine); ok {
			name = derived
		} else {
			s.logger.Warn().Str("line", fields.dateLine).Str("fallback", name).Msg("delivery date unusable as a filename")
		}
	}

	path := filepath.Join(s.bills, name)
	if err := s.session.Screenshot(path); err != nil {
		s.logger.Warn().Err(err).Int("order", index+1).Msg("failed to capture order details, skipping")
		return models.OrderRow{}, false
	}

	link, err := s.uploader.Upload(ctx, path, name)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("capture upload failed, order not recorded")
		return models.OrderRow{}, false
	}

	row := models.OrderRow{
		OrderID:     valueOrUnknown(fields.orderID),
		Date:        valueOrUnknown(StripDeliveredPrefix(fields.dateLine)),
		CaptureLink: link,
		Amount:      valueOrUnknown(fields.amount),
	}

	if s.captures != nil {
		if err := s.captures.Record(capture.Entry{OrderID: row.OrderID, File: name, Link: link}); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("failed to record capture in the manifest")
		}
	}

	s.logger.Info().Str("order_id", row.OrderID).Str("amount", row.Amount).Msg("order recorded")
	return row, true
}

type detailFields struct {
	orderID  string
	dateLine string
	amount   string
}

// extractFields pulls the order fields out of the rendered detail view. Each
// field stands alone; a missing one never blocks the others.
func (s *OrderScraper) extractFields(index int) detailFields {
	html, err := s.session.Content()
	if err != nil {
		s.logger.Warn().Err(err).Int("order", index+1).Msg("failed to read the detail view")
		return detailFields{}
	}

	var fields detailFields

	if amount, err := s.parser.ExtractAmount(html); err != nil {
		s.logger.Warn().Err(err).Int("order", index+1).Msg("amount not extracted")
	} else {
		fields.amount = amount
	}

	if id, err := s.parser.ExtractOrderID(html); err != nil {
		s.logger.Warn().Err(err).Int("order", index+1).Msg("order id not extracted")
	} else {
		fields.orderID = id
	}

	if line, err := s.parser.ExtractDeliveredLine(html); err != nil {
		s.logger.Warn().Err(err).Int("order", index+1).Msg("delivery date not extracted")
	} else {
		fields.dateLine = line
	}

	return fields
}

// settle pauses for the given duration so the page can redraw, returning
// early when the run is cancelled.
func (s *OrderScraper) settle(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// returnToList dismisses the detail panel and waits for the order list to
// come back.
func (s *OrderScraper) returnToList() error {
	if err := s.session.ClickAt(dismissX, dismissY); err != nil {
		return fmt.Errorf("failed to dismiss order details: %w", err)
	}
	if !s.session.WaitVisible(detailSelector, s.tun.ReloadTimeout) {
		return ErrListUnavailable
	}
	return nil
}

func valueOrUnknown(v string) string {
	if v == "" {
		return models.Unknown
	}
	return v
}
