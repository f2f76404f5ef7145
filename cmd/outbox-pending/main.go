// Command outbox-pending prints how many outbox messages are still waiting to be relayed.
//
// It exits 0 when the count is at or below -max and 3 otherwise, so it can back a
// cron alert or a readiness probe.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/velmie/chatrelay"
	"github.com/velmie/chatrelay/gormstore"
	"github.com/velmie/chatrelay/mysql"
)

const (
	exitUsage   = 2
	exitBacklog = 3
)

func main() {
	var (
		driver     string
		dsn        string
		table      string
		maxPending int
		timeout    time.Duration
	)

	flag.StringVar(&driver, "driver", "mysql", "Store driver: mysql, postgres or sqlite")
	flag.StringVar(&dsn, "dsn", "", "Database DSN, e.g. user:pass@tcp(host:3306)/db?parseTime=true")
	flag.StringVar(&table, "table", "outbox_messages", "Outbox table name")
	flag.IntVar(&maxPending, "max", -1, "Exit with status 3 when more than max messages are pending (-1 disables)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Query timeout")
	flag.Parse()

	if dsn == "" {
		fmt.Fprintln(os.Stderr, "dsn is required")
		flag.Usage()
		os.Exit(exitUsage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	count, err := pendingCount(ctx, driver, dsn, table)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(report(os.Stdout, count, maxPending))
}

func report(w io.Writer, count, maxPending int) int {
	fmt.Fprintf(w, "pending=%d\n", count)
	if maxPending >= 0 && count > maxPending {
		return exitBacklog
	}

	return 0
}

func pendingCount(ctx context.Context, driver, dsn, table string) (int, error) {
	counter, closeFn, err := openCounter(driver, dsn, table)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	count, err := counter.PendingCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}

	return count, nil
}

func openCounter(driver, dsn, table string) (chatrelay.PendingCounter, func(), error) {
	if driver == "mysql" {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		store, err := mysql.NewStore(db, mysql.WithTable(table))
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init store: %w", err)
		}

		return store, func() { _ = db.Close() }, nil
	}

	db, err := gormstore.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	store, err := gormstore.New(db, gormstore.WithTable(table))
	if err != nil {
		_ = gormstore.Close(db)
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	return store, func() { _ = gormstore.Close(db) }, nil
}
