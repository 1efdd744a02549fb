package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"swiggy_order_exporter/internal/models"
)

const (
	// writeBatchSize caps rows per write request, header included. The Sheets
	// API rejects oversized payloads long before a run could produce them,
	// but order histories have crossed four digits already.
	writeBatchSize = 3500
	// createMargin pads a new table beyond the rows written at creation.
	createMargin = 10
	// conflictBackoff is how long a just-deleted table name gets to free up
	// before the single create retry.
	conflictBackoff = 5 * time.Second
)

// Synchronizer reconciles scraped order rows into one table of one store.
type Synchronizer struct {
	client  Client
	backoff time.Duration
	logger  zerolog.Logger
}

func NewSynchronizer(client Client) *Synchronizer {
	return &Synchronizer{
		client:  client,
		backoff: conflictBackoff,
		logger:  log.With().Str("component", "synchronizer").Logger(),
	}
}

// Sync writes the rows into the named table and returns the store URL. In
// append mode existing rows survive unless a fresh row carries the same
// order id, in which case the fresh one wins. In replace mode the table is
// rebuilt from the fresh rows alone. The header goes first on every run.
func (s *Synchronizer) Sync(ctx context.Context, rows []models.OrderRow, storeName, tableName string, mode MergeMode) (string, error) {
	header := models.Header()
	data := normalize(rowsToCells(rows), len(header))

	store, err := s.client.OpenOrCreate(ctx, storeName)
	if err != nil {
		return "", fmt.Errorf("failed to open store %q: %w", storeName, err)
	}

	table, err := store.Table(ctx, tableName)
	switch {
	case errors.Is(err, ErrTableNotFound):
		s.logger.Info().Str("table", tableName).Msg("table not found, creating it")
		table, err = store.CreateTable(ctx, tableName, tableRows(len(data)), tableCols(len(header)))
		if err != nil {
			return "", fmt.Errorf("failed to create table %q: %w", tableName, err)
		}

	case err != nil:
		return "", fmt.Errorf("failed to resolve table %q: %w", tableName, err)

	case mode == MergeReplace:
		table, err = s.recreate(ctx, store, table, len(data), len(header))
		if err != nil {
			return "", err
		}

	default:
		data, err = s.mergeExisting(ctx, table, data, len(header))
		if err != nil {
			return "", err
		}
		if err := table.Clear(ctx); err != nil {
			return "", fmt.Errorf("failed to clear table %q: %w", tableName, err)
		}
	}

	if err := s.writeAll(ctx, table, header, data); err != nil {
		return "", err
	}

	s.logger.Info().Int("rows", len(data)).Str("table", tableName).Msg("table synchronized")
	return store.URL(), nil
}

// recreate drops the table and creates it again empty. Stores sometimes hold
// the old name briefly after the delete, so one conflict gets one retry.
func (s *Synchronizer) recreate(ctx context.Context, store Store, table Table, dataRows, cols int) (Table, error) {
	name := table.Name()

	if err := store.DeleteTable(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to drop table %q: %w", name, err)
	}

	fresh, err := store.CreateTable(ctx, name, tableRows(dataRows), tableCols(cols))
	if errors.Is(err, ErrConflict) {
		s.logger.Warn().Str("table", name).Dur("backoff", s.backoff).Msg("name still taken after delete, retrying once")
		time.Sleep(s.backoff)
		fresh, err = store.CreateTable(ctx, name, tableRows(dataRows), tableCols(cols))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to recreate table %q: %w", name, err)
	}
	return fresh, nil
}

// mergeExisting folds the table's current rows into the fresh batch: existing
// rows keep their order, rows superseded by a fresh order id drop out, fresh
// rows go to the back.
func (s *Synchronizer) mergeExisting(ctx context.Context, table Table, fresh [][]string, width int) ([][]string, error) {
	existing, err := table.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %q: %w", table.Name(), err)
	}
	if len(existing) < 2 || len(fresh) == 0 {
		// Nothing to reconcile: an empty table (or a bare header) takes the
		// fresh batch as-is, and an empty batch leaves only the header.
		return fresh, nil
	}

	body := normalize(existing[1:], width)

	freshKeys := make(map[string]struct{}, len(fresh))
	for _, row := range fresh {
		freshKeys[row[0]] = struct{}{}
	}

	merged := make([][]string, 0, len(body)+len(fresh))
	superseded := 0
	for _, row := range body {
		if _, clash := freshKeys[row[0]]; clash {
			superseded++
			continue
		}
		merged = append(merged, row)
	}
	if superseded > 0 {
		s.logger.Info().Int("superseded", superseded).Msg("existing rows replaced by fresh data")
	}

	return append(merged, fresh...), nil
}

func (s *Synchronizer) writeAll(ctx context.Context, table Table, header []string, data [][]string) error {
	all := make([][]interface{}, 0, len(data)+1)
	all = append(all, toCells(header))
	for _, row := range data {
		all = append(all, toCells(row))
	}

	for offset := 0; offset < len(all); offset += writeBatchSize {
		end := min(offset+writeBatchSize, len(all))
		if err := table.WriteRows(ctx, offset+1, all[offset:end]); err != nil {
			return fmt.Errorf("failed to write rows %d-%d: %w", offset+1, end, err)
		}
		s.logger.Debug().Int("from", offset+1).Int("to", end).Msg("wrote batch")
	}
	return nil
}

func tableRows(dataRows int) int64 {
	return int64(dataRows + createMargin)
}

func tableCols(cols int) int64 {
	return int64(cols + 1)
}

func rowsToCells(rows []models.OrderRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Cells())
	}
	return out
}

// normalize pads short rows with empty cells so every row spans the full
// header width.
func normalize(rows [][]string, width int) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) >= width {
			out = append(out, row)
			continue
		}
		padded := make([]string, width)
		copy(padded, row)
		out = append(out, padded)
	}
	return out
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
