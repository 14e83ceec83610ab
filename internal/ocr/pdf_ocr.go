package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var rePages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)

func (e *PageExtractor) pageCount(ctx context.Context, path string) (int, error) {
	// pdfinfo <path>
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdfinfo, path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	m := rePages.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("pdfinfo: page count not reported")
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: bad page count %q: %w", m[1], err)
	}
	return n, nil
}

func (e *PageExtractor) pageText(ctx context.Context, path string, page int) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix -f N -l N <path> -
	p := strconv.Itoa(page)
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix", "-f", p, "-l", p, path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w: %s", page, err, strings.TrimSpace(string(errb)))
	}
	// pdftotext terminates every page with a form feed
	return Normalize(strings.ReplaceAll(string(out), "\f", "")), nil
}
