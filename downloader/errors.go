package downloader

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExtraction indicates the upstream tool could not resolve the URL
	// (private/removed video, site change). Retrying will not help.
	ErrExtraction = errors.New("extraction failed")
	// ErrNetwork indicates a transient connectivity failure.
	ErrNetwork = errors.New("network failure")
	// ErrNoFormats indicates the probe succeeded but returned nothing usable.
	ErrNoFormats = errors.New("no downloadable formats")
)

// Substrings yt-dlp prints when the failure is structural rather than
// transient. Collected from field failures; extend as YouTube invents
// new refusals.
var extractionMarkers = []string{
	"Video unavailable",
	"Private video",
	"This video is not available",
	"This live event",
	"Sign in to confirm you",
	"Sign in to confirm your age",
	"confirm your age",
	"members-only",
	"Unsupported URL",
	"is not a valid URL",
	"Requested format is not available",
	"This video has been removed",
}

var networkMarkers = []string{
	"unable to download webpage",
	"Unable to download",
	"Connection reset",
	"Connection refused",
	"Temporary failure in name resolution",
	"getaddrinfo",
	"timed out",
	"Network is unreachable",
	"EOF occurred",
	"Got error",
}

// classifyOutput maps yt-dlp's stderr onto the error taxonomy. Unmatched
// failures count as structural: silently retrying an unknown refusal is
// worse than surfacing it.
func classifyOutput(stderr string, runErr error) error {
	for _, m := range networkMarkers {
		if strings.Contains(stderr, m) {
			return fmt.Errorf("%w: %s", ErrNetwork, firstErrorLine(stderr, runErr))
		}
	}
	for _, m := range extractionMarkers {
		if strings.Contains(stderr, m) {
			return fmt.Errorf("%w: %s", ErrExtraction, firstErrorLine(stderr, runErr))
		}
	}
	return fmt.Errorf("%w: %s", ErrExtraction, firstErrorLine(stderr, runErr))
}

// firstErrorLine picks the most useful single line of yt-dlp output for a
// chat-sized message.
func firstErrorLine(stderr string, runErr error) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	for _, line := range strings.Split(stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	if runErr != nil {
		return runErr.Error()
	}
	return "unknown error"
}
