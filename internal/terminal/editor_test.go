package terminal_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/duplex-chat/internal/chat"
	"github.com/omochice/duplex-chat/internal/terminal"
)

type recorder struct {
	mu      sync.Mutex
	echoes  []string
	commits []string
}

func (r *recorder) RenderLocalEcho(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.echoes = append(r.echoes, line)
}

func (r *recorder) CommitLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, line)
}

func newEditor(input string, limit int) (*terminal.LineEditor, *chat.EchoBuffer, *recorder) {
	echo := chat.NewEchoBuffer(limit)
	rec := &recorder{}
	keys := terminal.NewKeyPump(strings.NewReader(input))
	return terminal.NewLineEditor(keys, echo, rec), echo, rec
}

func TestLineEditor_ReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int
		want    []string
		wantErr error
	}{
		{
			name:    "carriage return submits",
			input:   "hi\rthere\r",
			want:    []string{"hi", "there"},
			wantErr: io.EOF,
		},
		{
			name:    "backspace and delete edit the line",
			input:   "hellp\x7fo\x08o\n",
			want:    []string{"hello"},
			wantErr: io.EOF,
		},
		{
			name:    "control bytes are ignored",
			input:   "a\x1bb\tc\n",
			want:    []string{"abc"},
			wantErr: io.EOF,
		},
		{
			name:    "utf-8 text is kept",
			input:   "héllo 日本\n",
			want:    []string{"héllo 日本"},
			wantErr: io.EOF,
		},
		{
			name:    "backspace removes a whole rune",
			input:   "ab日\x7f\n" + "aé\x7f\x7fx\n",
			want:    []string{"ab", "x"},
			wantErr: io.EOF,
		},
		{
			name:    "limit caps the line",
			input:   "abcdef\n",
			limit:   3,
			want:    []string{"abc"},
			wantErr: io.EOF,
		},
		{
			name:    "empty line is returned",
			input:   "\n",
			want:    []string{""},
			wantErr: io.EOF,
		},
		{
			name:    "ctrl-c interrupts",
			input:   "typed\x03",
			wantErr: chat.ErrInterrupted,
		},
		{
			name:    "ctrl-d on empty line ends input",
			input:   "\x04more\n",
			wantErr: io.EOF,
		},
		{
			name:    "ctrl-d inside a line is ignored",
			input:   "ab\x04c\n\x04",
			want:    []string{"abc"},
			wantErr: io.EOF,
		},
		{
			name:    "unterminated line is submitted at end of input",
			input:   "last",
			want:    []string{"last"},
			wantErr: io.EOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, echo, rec := newEditor(tt.input, tt.limit)
			ctx := context.Background()

			var got []string
			var err error
			for {
				var line string
				line, err = editor.ReadLine(ctx)
				if err != nil {
					break
				}
				got = append(got, line)
			}

			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, echo.Len())
			assert.Equal(t, len(tt.want), len(rec.commits))
		})
	}
}

func TestLineEditor_EchoesEveryEdit(t *testing.T) {
	editor, _, rec := newEditor("ab\x7f\n", 0)

	line, err := editor.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", line)
	assert.Equal(t, []string{"a", "ab", "a"}, rec.echoes)
	assert.Equal(t, []string{"a"}, rec.commits)
}

func TestLineEditor_CancelledWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	echo := chat.NewEchoBuffer(0)
	editor := terminal.NewLineEditor(terminal.NewKeyPump(pr), echo, &recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := editor.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyPump_SurvivesAcrossReaders(t *testing.T) {
	pr, pw := io.Pipe()
	keys := terminal.NewKeyPump(pr)

	go func() {
		_, _ = pw.Write([]byte("one\ntwo\n"))
		_ = pw.Close()
	}()

	first := terminal.NewLineEditor(keys, chat.NewEchoBuffer(0), &recorder{})
	line, err := first.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", line)

	second := terminal.NewLineEditor(keys, chat.NewEchoBuffer(0), &recorder{})
	line, err = second.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "two", line)

	_, err = second.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineEditor_ImplementsInput(t *testing.T) {
	var _ chat.Input = (*terminal.LineEditor)(nil)
}
