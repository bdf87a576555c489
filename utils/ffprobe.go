package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var ErrNoDuration = errors.New("ffprobe reported no duration")

// execCommand is swapped in tests.
var execCommand = exec.CommandContext

type ffprobeInfo struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// DurationForMedia asks ffprobe for the duration of source, a local path
// or an http(s) URL.
func DurationForMedia(ctx context.Context, ffprobe string, source string) (time.Duration, error) {
	if !IsURL(source) {
		if _, err := os.Stat(source); err != nil {
			return 0, err
		}
	}

	cmd := execCommand(ctx, ffprobe,
		"-loglevel", "error",
		"-show_format",
		"-of", "json",
		source,
	)
	setSysProcAttr(cmd)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("DurationForMedia ffprobe error: %w", err)
	}

	return parseProbeDuration(output)
}

func parseProbeDuration(output []byte) (time.Duration, error) {
	var info ffprobeInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return 0, fmt.Errorf("DurationForMedia unmarshal error: %w", err)
	}

	if info.Format.Duration == "" || info.Format.Duration == "N/A" {
		return 0, ErrNoDuration
	}

	seconds, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("DurationForMedia parse error: %w", err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// IsURL reports whether s looks like an http(s) URL rather than a path.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
