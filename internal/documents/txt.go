package documents

import (
	"context"
	"os"
	"strings"
)

func extractTXT(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	// invalid UTF-8 is dropped rather than rejected
	return strings.ToValidUTF8(string(data), ""), nil
}
