// persistence/interface.go
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/gombiful/store"
)

// Database is a durable session store that also keeps finished results.
type Database interface {
	store.Store
	store.Archive
	Reap(ctx context.Context) (int, error)
	Close() error
}

// Options describe a PostgreSQL connection.
type Options struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	DSN         string // overrides the fields above when set
	IdleTimeout time.Duration
	MaxOpenConn int
}

// ConnString renders the key/value DSN understood by both pgx and lib/pq.
func (o Options) ConnString() string {
	if o.DSN != "" {
		return o.DSN
	}
	sslmode := o.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		o.Host, o.Port, o.User, o.Password, o.DBName, sslmode)
}
