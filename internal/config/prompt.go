package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// PromptName asks for a display name on w and reads one line from r. It
// reads a byte at a time so nothing typed after the name is consumed.
func PromptName(r io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, "\n Enter your name: ")

	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			if sb.Len() == 0 {
				return "", io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return "", err
		}
	}

	name := strings.TrimSpace(sb.String())
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
