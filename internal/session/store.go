package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/transport"
)

const (
	defaultCookieFile       = ".hmcpl_state.json"
	defaultBrowserStateFile = ".hmcpl_browser_state.json"
)

// Paths locates the two persisted session files.
type Paths struct {
	// CookieFile holds the cookie set the request channel sends, {"cookies": {name: value}}.
	CookieFile string
	// BrowserStateFile holds the browser session snapshot replay mode restores.
	BrowserStateFile string
}

// DefaultPaths returns the session files in `home`.
func DefaultPaths(home string) Paths {
	return Paths{
		CookieFile:       filepath.Join(home, defaultCookieFile),
		BrowserStateFile: filepath.Join(home, defaultBrowserStateFile),
	}
}

type cookieFile struct {
	Cookies map[string]string `json:"cookies"`
}

// Store reads and writes the persisted session files. Writes replace files atomically.
//
// It assumes a single writer, there is no locking between processes.
type Store struct {
	paths Paths
}

func NewStore(paths Paths) Store {
	return Store{paths: paths}
}

func (s Store) Paths() Paths {
	return s.paths
}

// LoadCookies returns the persisted cookie set, or nil if there is none.
func (s Store) LoadCookies() (map[string]string, error) {
	buff, err := os.ReadFile(s.paths.CookieFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var parsed cookieFile
	err = json.Unmarshal(buff, &parsed)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.paths.CookieFile, err)
	}
	return parsed.Cookies, nil
}

// LoadBrowserState returns the persisted browser snapshot, or nil if there is none.
func (s Store) LoadBrowserState() (*transport.StorageState, error) {
	buff, err := os.ReadFile(s.paths.BrowserStateFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state, err := transport.DecodeStorageState(buff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.paths.BrowserStateFile, err)
	}
	return &state, nil
}

// Save persists both the cookie set and the browser snapshot. Either both files are replaced
// or, if encoding fails, neither is touched.
func (s Store) Save(cookies map[string]string, state transport.StorageState) error {
	if cookies == nil {
		cookies = map[string]string{}
	}
	cookieBuff, err := json.MarshalIndent(cookieFile{Cookies: cookies}, "", "  ")
	if err != nil {
		return err
	}
	stateBuff, err := state.Encode()
	if err != nil {
		return err
	}

	err = writeFileAtomic(s.paths.CookieFile, cookieBuff)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.paths.BrowserStateFile, stateBuff)
}

func writeFileAtomic(path string, buff []byte) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(buff)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Chmod(0600)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
