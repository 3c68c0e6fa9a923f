package subledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/table"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// SheetName is the name given to exported sheets.
const SheetName = "Customers"

// TableHeader is the header row written by ExportTable. ImportTable also
// accepts sheets without the trailing Payment Method column.
var TableHeader = []string{"ID", "Name", "Email", "Subscription Type", "Renewal Date", "Canceled", "Payment Method"}

const (
	colID = iota
	colName
	colEmail
	colTier
	colRenewal
	colCanceled
	colPayment
)

// ExportTable writes every customer to dest through the table codec.
func (l *Ledger) ExportTable(ctx context.Context, dest string) error {
	if l.codec == nil {
		return ErrNoTableCodec
	}

	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	transfer := id.NewTransferID()
	start := time.Now()

	sheet := SheetFromCustomers(l.customers)
	if err := l.codec.Write(ctx, dest, sheet); err != nil {
		l.logger.Error("table export failed", "transfer_id", transfer.String(), "path", dest, "error", err)
		return fmt.Errorf("subledger: export %s: %w", dest, err)
	}

	count := len(sheet.Rows)
	l.logger.Info("table exported",
		"transfer_id", transfer.String(),
		"path", dest,
		"rows", count,
		"elapsed", time.Since(start),
	)
	events.add(func() { l.plugins.EmitTableExported(ctx, dest, count) })
	return nil
}

// ImportTable replaces the whole collection with the customers read from
// src and persists it. Every row is checked before anything changes; if any
// row is invalid the ledger is left untouched and a MultiError listing each
// bad row is returned. The next id becomes one past the highest imported id.
func (l *Ledger) ImportTable(ctx context.Context, src string) (int, error) {
	if l.codec == nil {
		return 0, ErrNoTableCodec
	}

	transfer := id.NewTransferID()
	sheet, err := l.codec.Read(ctx, src)
	if err != nil {
		l.logger.Error("table import failed", "transfer_id", transfer.String(), "path", src, "error", err)
		return 0, fmt.Errorf("subledger: import %s: %w", src, err)
	}

	imported, err := CustomersFromSheet(sheet)
	if err != nil {
		l.logger.Warn("table import rejected", "transfer_id", transfer.String(), "path", src, "error", err)
		return 0, err
	}

	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.customers = imported
	l.nextID = nextIDAfter(imported)

	count := len(imported)
	l.logger.Info("table imported",
		"transfer_id", transfer.String(),
		"path", src,
		"rows", count,
		"next_id", l.nextID,
	)
	events.add(func() { l.plugins.EmitTableImported(ctx, src, count) })

	return count, l.saveLocked(ctx, &events)
}

// SheetFromCustomers renders customers as a sheet with TableHeader.
func SheetFromCustomers(customers []*customer.Customer) *table.Sheet {
	sheet := &table.Sheet{
		Name:   SheetName,
		Header: append([]string(nil), TableHeader...),
		Rows:   make([][]table.Cell, 0, len(customers)),
	}
	for _, c := range customers {
		pm := table.Empty()
		if m, ok := c.Payment.Get(); ok {
			pm = table.Text(m.String())
		}
		sheet.Rows = append(sheet.Rows, []table.Cell{
			table.Number(float64(c.ID)),
			table.Text(c.Name),
			table.Text(c.Email),
			table.Text(c.Tier.String()),
			table.Text(c.RenewalDate.String()),
			table.Bool(c.Canceled),
			pm,
		})
	}
	return sheet
}

// CustomersFromSheet parses every row of sheet. Row errors wrap
// ErrInvalidTable and are collected into a MultiError; rows are numbered
// from 1 after the header.
func CustomersFromSheet(sheet *table.Sheet) ([]*customer.Customer, error) {
	if err := checkHeader(sheet.Header); err != nil {
		return nil, err
	}

	var (
		out  = make([]*customer.Customer, 0, len(sheet.Rows))
		seen = make(map[customer.ID]int, len(sheet.Rows))
		errs MultiError
	)
	for i := range sheet.Rows {
		row := i + 1
		c, err := customerFromRow(sheet, i)
		if err != nil {
			errs.Add(fmt.Errorf("%w: row %d: %w", ErrInvalidTable, row, err))
			continue
		}
		if first, dup := seen[c.ID]; dup {
			errs.Add(fmt.Errorf("row %d: %w: id %d already used on row %d", row, ErrInvalidTable, c.ID, first))
			continue
		}
		seen[c.ID] = row
		out = append(out, c)
	}
	if errs.HasErrors() {
		return nil, errs
	}
	return out, nil
}

func checkHeader(header []string) error {
	want := TableHeader[:colPayment]
	if len(header) < len(want) {
		return fmt.Errorf("%w: header has %d columns, want at least %d", ErrInvalidTable, len(header), len(want))
	}
	for i, name := range want {
		if !strings.EqualFold(strings.TrimSpace(header[i]), name) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrInvalidTable, i+1, header[i], name)
		}
	}
	return nil
}

func customerFromRow(sheet *table.Sheet, i int) (*customer.Customer, error) {
	rawID, err := sheet.Cell(i, colID).Int()
	if err != nil {
		return nil, &ValidationError{Field: "id", Err: err}
	}
	t, err := tier.Parse(sheet.Cell(i, colTier).String())
	if err != nil {
		return nil, &ValidationError{Field: "tier", Err: err}
	}
	renewal, err := types.ParseDate(strings.TrimSpace(sheet.Cell(i, colRenewal).String()))
	if err != nil {
		return nil, &ValidationError{Field: "renewal_date", Err: err}
	}
	canceled := false
	if cell := sheet.Cell(i, colCanceled); cell.Kind() != table.KindEmpty {
		if canceled, err = cell.Bool(); err != nil {
			return nil, &ValidationError{Field: "canceled", Err: err}
		}
	}

	pm := payment.None()
	if !t.IsFree() {
		if pm, err = payment.ParseOption(sheet.Cell(i, colPayment).String()); err != nil {
			return nil, &ValidationError{Field: "payment", Err: err}
		}
		if !pm.IsPresent() {
			return nil, &ValidationError{Field: "payment", Message: "required for tier " + t.String(), Err: ErrPaymentRequired}
		}
	}

	c := &customer.Customer{
		ID:          customer.ID(rawID),
		Name:        sheet.Cell(i, colName).String(),
		Email:       strings.TrimSpace(sheet.Cell(i, colEmail).String()),
		Tier:        t,
		RenewalDate: renewal,
		Canceled:    canceled,
		Payment:     pm,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
