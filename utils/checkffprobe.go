package utils

import (
	"context"
	"fmt"
)

// CheckFFprobe verifies that the ffprobe binary can be started.
func CheckFFprobe(ctx context.Context, ffprobe string) error {
	cmd := execCommand(ctx, ffprobe, "-version")
	setSysProcAttr(cmd)

	if _, err := cmd.Output(); err != nil {
		return fmt.Errorf("CheckFFprobe: %w", err)
	}
	return nil
}
