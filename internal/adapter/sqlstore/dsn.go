package sqlstore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect ties a backend URL scheme to its database/sql driver and the SQL
// dialect name the migration tool expects.
type Dialect struct {
	Name   string
	Driver string
	Goose  string
}

var (
	MySQL  = Dialect{Name: "mysql", Driver: "mysql", Goose: "mysql"}
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite", Goose: "sqlite3"}
)

// ParseBackendURL turns a backend URL plus credentials into a driver DSN.
//
//	mysql://host:3306/dbname
//	sqlite:///var/lib/workrecords.db
//	sqlite:workrecords.db
//	sqlite::memory:
//
// Credentials embedded in a mysql URL are used when username is empty.
func ParseBackendURL(raw, username, password string) (Dialect, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Dialect{}, "", fmt.Errorf("backend url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "mysql":
		dsn, err := mysqlDSN(u, username, password)
		return MySQL, dsn, err
	case "sqlite", "sqlite3", "file":
		path := u.Opaque
		if path == "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return Dialect{}, "", errors.New("backend url: sqlite path is required")
		}
		return SQLite, path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=case_sensitive_like(1)&_time_format=sqlite", nil
	case "":
		return Dialect{}, "", errors.New("backend url: scheme is required (mysql or sqlite)")
	default:
		return Dialect{}, "", fmt.Errorf("backend url: unsupported scheme %q", u.Scheme)
	}
}

func mysqlDSN(u *url.URL, username, password string) (string, error) {
	if u.Host == "" {
		return "", errors.New("backend url: mysql host is required")
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", errors.New("backend url: mysql database name is required")
	}
	if username == "" && u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}
	cfg := mysql.NewConfig()
	cfg.User = username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = db
	cfg.ParseTime = true
	cfg.MultiStatements = true
	// Set reports matched rows even when values are unchanged.
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
