package utils

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// PostgresSettings locates the database that holds the migration ledger.
type PostgresSettings struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// BuildConnectionString returns DSN when set, otherwise a postgres URL built
// from the individual settings with defaults for anything missing.
func BuildConnectionString(s PostgresSettings) (string, error) {
	if s.DSN != "" {
		return s.DSN, nil
	}

	host := getOrDefault(s.Host, "localhost")
	user := getOrDefault(s.User, "postgres")
	database := getOrDefault(s.Database, "postgres")
	port := s.Port
	if port == 0 {
		port = 5432
	}
	if port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid port number: %d", port)
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + database,
	}
	if s.Password != "" {
		u.User = url.UserPassword(user, s.Password)
	} else {
		u.User = url.User(user)
	}
	return u.String(), nil
}

func getOrDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}
