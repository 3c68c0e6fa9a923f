// Package subledger provides a small subscription ledger for Go applications.
//
// Subledger is designed as a library, not a service. It keeps an ordered
// collection of customers in memory and rewrites its store after every
// change. It provides:
//
//   - Customer enrollment with email and renewal-date validation
//   - Three subscription tiers (FREE, PREMIUM, GOLD) with fixed terms
//   - Monthly per-tier enrollment quotas that reset on calendar months
//   - Pluggable storage (CSV text file, SQLite, PostgreSQL, MongoDB, memory)
//   - Spreadsheet import and export (xlsx and csv)
//   - Audit trail and Prometheus metrics via plugins
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/subledger"
//	    "github.com/xraph/subledger/store/textfile"
//	)
//
//	l := subledger.New(textfile.New("customers.csv"))
//
//	// Start loads the stored customers. A missing file starts empty.
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Tiers carry a price and a renewal period. FREE customers never carry a
// payment method; paid customers always do:
//
//	c, err := l.Enroll(ctx, subledger.EnrollInput{
//	    Name:        "Alice",
//	    Email:       "alice@example.com",
//	    Tier:        subledger.Premium,
//	    RenewalDate: subledger.MustParseDate("2024-02-15"),
//	    Payment:     subledger.Some(subledger.Card),
//	})
//
// Each tier has a monthly enrollment quota. Once it is used up Enroll
// returns ErrQuotaExceeded until the next calendar month:
//
//	res := l.Quota(subledger.Gold)
//	fmt.Println(res.Used, res.Limit, res.Remaining)
//
// Renewing advances the renewal date by one tier period:
//
//	c, renewed, err := l.Renew(ctx, c.ID)
//
// # Persistence
//
// Every mutation rewrites the whole collection. If the write fails the
// in-memory change is kept and the error is returned alongside the result,
// so callers can retry with Save.
//
// After every enrollment a name/tier projection is also written, which
// downstream tools read as a username list.
//
// # Identifiers
//
// Customers use sequential integer ids. Sessions, audit events and table
// transfers use TypeIDs:
//
//	sess_01h2xcejqtf2nbrexx3vqjhp41  // Session ID
//	aevt_01h2xcejqtf2nbrexx3vqjhp41  // Audit event ID
//	xfer_01h455vb4pex5vsknk084sn02q  // Table transfer ID
package subledger
