package credstore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"coaclient/pkg/logging"
)

// DefaultStorageDirName is the directory under the user's home where
// registrations and token sets are kept.
const DefaultStorageDirName = ".coursera"

const (
	configFileName  = "coaclient.csv"
	tokenFileSuffix = "_aout2.csv"
	separator       = ","

	configHeader = "client_app_name" + separator + "client_id" + separator +
		"client_secret" + separator + "scope_profile"
	tokenHeader = "refresh_token" + separator + "access_token" + separator + "expires_in"
)

// FileStore is the file-backed Store implementation.
//
// SECURITY: the store handles confidential client secrets and tokens. The
// storage directory is created with 0700 and all files with 0600 permissions;
// secret and token values are never logged.
//
// Every read re-consults the filesystem. There is no in-memory cache, so a
// token refreshed by another process is visible on the next read.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a file store rooted at dir. An empty dir selects
// ~/.coursera. The directory itself is created lazily on the first write.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultStorageDirName)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Put validates the registration and appends it to the config file, creating
// the storage directory and the file (with its header row) if absent.
func (s *FileStore) Put(reg Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	path := s.configPath()
	_, statErr := os.Stat(path)
	isNewFile := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	if isNewFile {
		sb.WriteString(configHeader)
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join([]string{reg.Name, reg.ClientID, reg.ClientSecret, reg.Scopes.String()}, separator))
	sb.WriteString("\n")

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write registration: %w", err)
	}

	logging.Info("CredStore", "Client %s successfully added", reg.Name)
	return nil
}

// Delete removes all registration rows whose name column matches and the
// client's token file. A name that matches nothing is a no-op.
func (s *FileStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readConfigRows()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	kept := make([]string, 0, len(rows)+1)
	kept = append(kept, configHeader)
	for _, row := range rows {
		if row.Name == name {
			continue
		}
		kept = append(kept, strings.Join([]string{row.Name, row.ClientID, row.ClientSecret, row.Scopes.String()}, separator))
	}

	content := strings.Join(kept, "\n") + "\n"
	if err := os.WriteFile(s.configPath(), []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to rewrite config file: %w", err)
	}

	if err := os.Remove(s.tokenPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}

	logging.Info("CredStore", "Client %s successfully deleted", name)
	return nil
}

// DeleteTokens removes the token file for the named client, keeping the
// registration itself. A missing file is a no-op.
func (s *FileStore) DeleteTokens(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.tokenPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	logging.Info("CredStore", "Auth tokens for %s cleared", name)
	return nil
}

// Get looks up a registration by name or client id. The first matching row
// wins, mirroring the literal file order.
func (s *FileStore) Get(identifier string) (Registration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readConfigRows()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Registration{}, false, nil
		}
		return Registration{}, false, err
	}

	for _, row := range rows {
		if row.Name == identifier || row.ClientID == identifier {
			return row, true, nil
		}
	}
	return Registration{}, false, nil
}

// List returns every registration row in file order.
func (s *FileStore) List() ([]Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readConfigRows()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}

// SaveTokens fully replaces the token file for the named client. Token values
// are stored base64-encoded; the expiry is stored as absolute Unix
// milliseconds.
func (s *FileStore) SaveTokens(name string, tokens TokenSet) error {
	if tokens.RefreshToken == "" || tokens.AccessToken == "" {
		return fmt.Errorf("refusing to store partial token set for %s", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	row := strings.Join([]string{
		base64.StdEncoding.EncodeToString([]byte(tokens.RefreshToken)),
		base64.StdEncoding.EncodeToString([]byte(tokens.AccessToken)),
		strconv.FormatInt(tokens.ExpiresAt.UnixMilli(), 10),
	}, separator)

	content := tokenHeader + "\n" + row + "\n"
	if err := os.WriteFile(s.tokenPath(name), []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	logging.Info("CredStore", "Auth tokens for %s successfully saved", name)
	return nil
}

// LoadTokens reads the token file for the named client. A missing file is the
// absent result, not an error; a corrupt file is an error, never a partially
// filled token set.
func (s *FileStore) LoadTokens(name string) (TokenSet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.tokenPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TokenSet{}, false, nil
		}
		return TokenSet{}, false, fmt.Errorf("failed to read token file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, separator)
		if fields[0] == "refresh_token" {
			continue
		}
		if len(fields) < 3 {
			return TokenSet{}, false, fmt.Errorf("malformed token row for %s", name)
		}

		refreshToken, err := base64.StdEncoding.DecodeString(fields[0])
		if err != nil {
			return TokenSet{}, false, fmt.Errorf("failed to decode refresh token: %w", err)
		}
		accessToken, err := base64.StdEncoding.DecodeString(fields[1])
		if err != nil {
			return TokenSet{}, false, fmt.Errorf("failed to decode access token: %w", err)
		}
		expiresAt, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return TokenSet{}, false, fmt.Errorf("failed to parse token expiry: %w", err)
		}

		return TokenSet{
			RefreshToken: string(refreshToken),
			AccessToken:  string(accessToken),
			ExpiresAt:    time.UnixMilli(expiresAt),
		}, true, nil
	}

	return TokenSet{}, false, nil
}

func (s *FileStore) configPath() string {
	return filepath.Join(s.dir, configFileName)
}

func (s *FileStore) tokenPath(name string) string {
	return filepath.Join(s.dir, name+tokenFileSuffix)
}

// readConfigRows parses all non-header rows of the config file.
// Callers must hold s.mu.
func (s *FileStore) readConfigRows() ([]Registration, error) {
	data, err := os.ReadFile(s.configPath())
	if err != nil {
		return nil, err
	}

	var rows []Registration
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, separator)
		if fields[0] == "client_app_name" {
			continue
		}
		if len(fields) < 4 {
			logging.Warn("CredStore", "Skipping malformed config row with %d fields", len(fields))
			continue
		}
		rows = append(rows, Registration{
			Name:         fields[0],
			ClientID:     fields[1],
			ClientSecret: fields[2],
			Scopes:       ParseScopes(fields[3]),
		})
	}
	return rows, nil
}
