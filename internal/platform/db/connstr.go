package db

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Settings carries the raw connection inputs read from the environment.
type Settings struct {
	Server           string
	Port             int
	Database         string
	User             string
	Password         string
	ConnectionString string
	SSLMode          string
}

// DSN resolves Settings into a pgx connection URL. An explicit user/password
// pair wins over the connection string.
func (s Settings) DSN() (string, error) {
	if s.User != "" && s.Password != "" {
		if s.Server == "" || s.Database == "" {
			return "", fmt.Errorf("AZURE_SQL_SERVER and AZURE_SQL_DATABASE are required with AZURE_SQL_USER: %w", ErrMissingCredentials)
		}
		return buildURL(s.Server, s.Port, s.Database, s.User, s.Password, s.SSLMode), nil
	}
	if s.ConnectionString != "" {
		return ParseConnectionString(s.ConnectionString, s.SSLMode)
	}
	return "", ErrMissingCredentials
}

// ParseConnectionString accepts either a postgres:// URL, returned unchanged,
// or an ADO-style "Key=Value;..." string such as
// "Server=tcp:host,5432;Database=app;User ID=u;Password=p;Encrypt=true".
func ParseConnectionString(raw, defaultSSLMode string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw, nil
	}

	var (
		host, database, user, password string
		port                           int
		sslMode                        = defaultSSLMode
	)
	for _, part := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "server", "data source", "address", "host":
			var err error
			host, port, err = splitServer(value)
			if err != nil {
				return "", err
			}
		case "port":
			p, err := strconv.Atoi(value)
			if err != nil {
				return "", fmt.Errorf("connection string: invalid port %q", value)
			}
			port = p
		case "database", "initial catalog":
			database = value
		case "user id", "uid", "user", "username":
			user = value
		case "password", "pwd":
			password = value
		case "encrypt":
			if strings.EqualFold(value, "false") || strings.EqualFold(value, "no") {
				sslMode = "disable"
			} else {
				sslMode = "require"
			}
		case "sslmode":
			sslMode = value
		}
	}

	if host == "" {
		return "", fmt.Errorf("connection string: server is required")
	}
	if database == "" {
		return "", fmt.Errorf("connection string: database is required")
	}
	return buildURL(host, port, database, user, password, sslMode), nil
}

// splitServer handles "tcp:host,1433" and "host:5432" forms.
func splitServer(value string) (string, int, error) {
	value = strings.TrimPrefix(value, "tcp:")
	sep := ","
	if !strings.Contains(value, ",") {
		sep = ":"
	}
	host, portStr, found := strings.Cut(value, sep)
	if !found {
		return host, 0, nil
	}
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return "", 0, fmt.Errorf("connection string: invalid port %q", portStr)
	}
	return strings.TrimSpace(host), port, nil
}

func buildURL(host string, port int, database, user, password, sslMode string) string {
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + database,
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	if sslMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()
	}
	return u.String()
}
