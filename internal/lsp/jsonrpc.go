package lsp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxMessageSize bounds a single frame body.
const maxMessageSize = 64 << 20

// readMessage reads one Content-Length framed body. A clean EOF before the
// first header line is returned as io.EOF; every other framing failure is
// an ErrTransport.
func readMessage(r *bufio.Reader) ([]byte, error) {
	contentLength := -1
	first := true
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && first && line == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: reading header: %w", ErrTransport, err)
		}
		first = false
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: malformed header line %q", ErrTransport, line)
		}
		// other headers (Content-Type) are ignored
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			length, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || length < 0 {
				return nil, fmt.Errorf("%w: invalid Content-Length %q", ErrTransport, strings.TrimSpace(value))
			}
			contentLength = length
		}
	}
	if contentLength < 0 {
		return nil, fmt.Errorf("%w: missing Content-Length header", ErrTransport)
	}
	if contentLength > maxMessageSize {
		return nil, fmt.Errorf("%w: message of %d bytes exceeds limit", ErrTransport, contentLength)
	}
	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	return payload, nil
}

func writeMessage(w io.Writer, payload []byte) error {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
