package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const maxLineBytes = 1024 * 1024

var errLineTooLong = errors.New("event stream line too long")

// readEvents splits an event stream into message payloads and calls emit for
// each one in order. Multi-line data fields are joined with "\n"; comments
// and other fields are skipped. A frame with a line over maxLineBytes is
// dropped whole and reading goes on. It stops when emit returns false, and
// returns nil at a clean end of input.
func readEvents(r io.Reader, emit func(data []byte) bool) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte

	var data bytes.Buffer
	hasData := false
	skip := false

	for {
		var err error
		line, err = readLine(br, line)
		if errors.Is(err, errLineTooLong) {
			skip = true
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if len(line) == 0 {
			if hasData && !skip {
				payload := append([]byte(nil), data.Bytes()...)
				data.Reset()
				hasData = false
				if !emit(payload) {
					return nil
				}
			}
			data.Reset()
			hasData = false
			skip = false
			continue
		}

		if skip || line[0] == ':' {
			continue
		}

		field, value, found := bytes.Cut(line, []byte(":"))
		if found && len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
		if string(field) != "data" {
			continue
		}

		if hasData {
			data.WriteByte('\n')
		}
		data.Write(value)
		hasData = true
	}
}

// readLine returns the next line without its terminator, reusing buf. A line
// over maxLineBytes is consumed and reported as errLineTooLong. A final line
// with no terminator comes back with io.EOF.
func readLine(br *bufio.Reader, buf []byte) ([]byte, error) {
	buf = buf[:0]
	tooLong := false

	for {
		frag, err := br.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(frag) > maxLineBytes {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, frag...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong && (err == nil || errors.Is(err, io.EOF)) {
			return buf, errLineTooLong
		}
		if err != nil {
			return buf, err
		}

		buf = bytes.TrimSuffix(buf, []byte("\n"))
		buf = bytes.TrimSuffix(buf, []byte("\r"))
		return buf, nil
	}
}
