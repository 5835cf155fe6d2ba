package prompt

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	confirmationSuffixConstant   = " [y/N]: "
	messageSuffixConstant        = ": "
	affirmativeShortAnswer       = "y"
	affirmativeLongAnswer        = "yes"
	lineDelimiterConstant        = '\n'
	readerMissingMessageConstant = "prompt input not configured"
)

// ErrInputNotConfigured indicates an IOConfirmer was built without an input source.
var ErrInputNotConfigured = errors.New(readerMissingMessageConstant)

// Confirmer answers yes/no questions before semi-destructive steps.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// MessageReader collects a free-form answer, such as a commit message.
type MessageReader interface {
	ReadMessage(question string) (string, error)
}

// Prompter combines confirmation and free-form input.
type Prompter interface {
	Confirmer
	MessageReader
}

// IOConfirmer reads answers line by line from an input stream.
type IOConfirmer struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOConfirmer constructs a confirmer that writes questions to output and reads answers from input.
func NewIOConfirmer(input io.Reader, output io.Writer) *IOConfirmer {
	confirmer := &IOConfirmer{writer: output}
	if input != nil {
		confirmer.reader = bufio.NewReader(input)
	}
	return confirmer
}

// NewTerminalConfirmer builds a confirmer over standard input. When input is not a terminal the
// questions are not echoed, so piped answers keep script output clean.
func NewTerminalConfirmer(input *os.File, output io.Writer) *IOConfirmer {
	if input == nil || !term.IsTerminal(int(input.Fd())) {
		return NewIOConfirmer(input, io.Discard)
	}
	return NewIOConfirmer(input, output)
}

// Confirm asks question and treats "y" or "yes" (any case) as affirmative. End of input declines.
func (confirmer *IOConfirmer) Confirm(question string) (bool, error) {
	answer, readError := confirmer.ask(question + confirmationSuffixConstant)
	if readError != nil {
		return false, readError
	}
	switch strings.ToLower(answer) {
	case affirmativeShortAnswer, affirmativeLongAnswer:
		return true, nil
	default:
		return false, nil
	}
}

// ReadMessage asks question and returns the trimmed answer, which may be empty.
func (confirmer *IOConfirmer) ReadMessage(question string) (string, error) {
	return confirmer.ask(question + messageSuffixConstant)
}

func (confirmer *IOConfirmer) ask(question string) (string, error) {
	if confirmer == nil || confirmer.reader == nil {
		return "", ErrInputNotConfigured
	}
	if confirmer.writer != nil {
		if _, writeError := io.WriteString(confirmer.writer, question); writeError != nil {
			return "", writeError
		}
	}

	response, readError := confirmer.reader.ReadString(lineDelimiterConstant)
	if readError != nil && !errors.Is(readError, io.EOF) {
		return "", readError
	}
	return strings.TrimSpace(response), nil
}

// AlwaysConfirmer affirms every question and supplies empty messages so defaults apply.
type AlwaysConfirmer struct{}

// Confirm always returns true.
func (AlwaysConfirmer) Confirm(string) (bool, error) {
	return true, nil
}

// ReadMessage always returns an empty message.
func (AlwaysConfirmer) ReadMessage(string) (string, error) {
	return "", nil
}
