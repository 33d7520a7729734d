// Package cookies converts a browser-automation cookie export (the JSON
// array written by the login helper) into a Netscape cookie jar, which is
// the only format yt-dlp accepts.
package cookies

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type browserCookie struct {
	Domain  string  `json:"domain"`
	Path    string  `json:"path"`
	Secure  bool    `json:"secure"`
	Expires float64 `json:"expires"`
	Name    string  `json:"name"`
	Value   string  `json:"value"`
}

// Convert rewrites jsonPath into a Netscape jar at jarPath.
func Convert(jsonPath, jarPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("read cookie export: %w", err)
	}
	var cs []browserCookie
	if err := json.Unmarshal(raw, &cs); err != nil {
		return fmt.Errorf("parse cookie export: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, c := range cs {
		flag := "FALSE"
		if strings.HasPrefix(c.Domain, ".") {
			flag = "TRUE"
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}
		expiry := int64(0)
		if c.Expires > 0 {
			expiry = int64(c.Expires)
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Domain, flag, path, secure, expiry, c.Name, c.Value)
	}

	// The jar carries live session credentials.
	return os.WriteFile(jarPath, []byte(b.String()), 0o600)
}

// RefreshIfNewer converts only when the export is newer than the jar (or
// the jar does not exist yet). Returns whether a conversion happened.
func RefreshIfNewer(jsonPath, jarPath string) (bool, error) {
	src, err := os.Stat(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil // nothing harvested yet
		}
		return false, err
	}
	dst, err := os.Stat(jarPath)
	if err == nil && !src.ModTime().After(dst.ModTime()) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if err := Convert(jsonPath, jarPath); err != nil {
		return false, err
	}
	return true, nil
}
