package documents

import (
	"context"
	"fmt"
	"strings"
)

func pdfExtractor(r Runner, pdftotext string) extractFunc {
	return func(ctx context.Context, path string) (string, error) {
		// pdftotext -layout -enc UTF-8 -eol unix <path> -
		out, errb, err := r.Run(ctx, pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
		if err != nil {
			return "", fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(errb)))
		}
		// pages are separated by form feeds
		return strings.ReplaceAll(string(out), "\f", "\n"), nil
	}
}
