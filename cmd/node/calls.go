package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"voxelclaim.ai/internal/sim/runtime"
)

// runCalls applies one JSON call per input line and writes one JSON result per
// line. Blank lines and lines starting with '#' are skipped. It stops at the
// first infrastructure failure, or as soon as ctx is done even while the
// input is blocked. after runs once per call that advanced the sequence.
func runCalls(ctx context.Context, exec *runtime.Executor, in io.Reader, out io.Writer, after func(*runtime.Executor)) (int, error) {
	lines, readErr := scanLines(ctx, in)
	enc := json.NewEncoder(out)

	n := 0
	line := 0
	for {
		var raw []byte
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case b, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return n, err
				}
				if err := <-readErr; err != nil {
					return n, fmt.Errorf("read calls: %w", err)
				}
				return n, nil
			}
			raw = b
		}
		line++
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		before := exec.Seq()
		res, err := exec.ApplyJSON(ctx, raw)
		if encErr := enc.Encode(res); encErr != nil {
			return n, fmt.Errorf("write result: %w", encErr)
		}
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
		if after != nil && exec.Seq() != before {
			after(exec)
		}
	}
}

// scanLines feeds input lines to a channel until EOF, a read error or ctx is
// done. The error channel receives exactly one value before lines is closed.
func scanLines(ctx context.Context, in io.Reader) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			b := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- b:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- sc.Err()
	}()
	return lines, readErr
}
