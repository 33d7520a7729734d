package downloader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Progress reports the state of a running download. Total is 0 when
// yt-dlp cannot estimate the payload. Finished marks the post-processing
// phase, after which no further byte counts arrive.
type Progress struct {
	Downloaded int64
	Total      int64
	Finished   bool
}

// ProgressFunc is invoked synchronously from the download loop. It must
// be cheap and must never block for long; delivery is best-effort.
type ProgressFunc func(Progress)

// Request describes one download run inside an already-allocated scratch
// directory.
type Request struct {
	URL       string
	Selector  string
	Dir       string
	AudioOnly bool
	Profile   AudioProfile
}

// Result is the produced media file.
type Result struct {
	Path string
	Size int64
}

const outputTemplate = "%(title).80B [%(id)s].%(ext)s"

// progress-template output, one line per tick: "dl <bytes> <total> <estimate>".
const progressTemplate = "download:dl %(progress.downloaded_bytes)s %(progress.total_bytes)s %(progress.total_bytes_estimate)s"

// Download runs yt-dlp with the bound selector and hands back the file it
// produced. Progress lines are parsed off stdout and forwarded to
// onProgress as they arrive.
func (e *Engine) Download(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.DownloadTimeout)
	defer cancel()

	args := e.buildDownloadArgs(req)
	cmd := exec.CommandContext(ctx, e.Bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("yt-dlp start: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if p, ok := parseProgressLine(scanner.Text()); ok && onProgress != nil {
			onProgress(p)
		}
	}

	if err := cmd.Wait(); err != nil {
		return nil, classifyOutput(stderr.String(), err)
	}

	path, size, err := producedFile(req.Dir)
	if err != nil {
		return nil, err
	}
	if onProgress != nil {
		onProgress(Progress{Downloaded: size, Total: size, Finished: true})
	}
	return &Result{Path: path, Size: size}, nil
}

func (e *Engine) buildDownloadArgs(req Request) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--progress-template", progressTemplate,
		"-f", req.Selector,
		"-o", filepath.Join(req.Dir, outputTemplate),
	}
	args = append(args, e.cookieArgs()...)
	if req.AudioOnly {
		args = append(args, "-x")
		args = append(args, req.Profile.postprocessArgs()...)
	} else {
		args = append(args, "--merge-output-format", "mp4")
	}
	return append(args, req.URL)
}

// parseProgressLine handles "dl <downloaded> <total> <estimate>" where any
// numeric field may be "NA".
func parseProgressLine(line string) (Progress, bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) != 4 || fields[0] != "dl" {
		return Progress{}, false
	}
	p := Progress{Downloaded: parseByteField(fields[1])}
	if total := parseByteField(fields[2]); total > 0 {
		p.Total = total
	} else {
		p.Total = parseByteField(fields[3])
	}
	return p, true
}

func parseByteField(s string) int64 {
	if s == "NA" || s == "" {
		return 0
	}
	// yt-dlp may render byte counts as floats
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f)
}

// producedFile locates the media file in the scratch directory: the
// largest regular file that is not a leftover partial.
func producedFile(dir string) (string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("read scratch dir: %w", err)
	}
	var best string
	var bestSize int64
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, name)
			bestSize = info.Size()
		}
	}
	if best == "" || bestSize == 0 {
		return "", 0, fmt.Errorf("%w: no output file produced", ErrExtraction)
	}
	return best, bestSize, nil
}
