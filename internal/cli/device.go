package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/lifecycle"
)

var errCameraExhausted = errors.New("no more photos to take")

// FileCamera stands in for a device camera by handing out existing image files in order.
type FileCamera struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewFileCamera checks that every path is a regular file.
func NewFileCamera(paths ...string) (*FileCamera, error) {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		full, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("photo %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("photo %s is a directory", p)
		}
		abs = append(abs, full)
	}
	return &FileCamera{paths: abs}, nil
}

func (c *FileCamera) TakePhoto(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= len(c.paths) {
		return "", errCameraExhausted
	}
	uri := cosmetic.FileScheme + c.paths[c.next]
	c.next++
	return uri, nil
}

// console is the terminal the commands talk to.
type console struct {
	in  *bufio.Reader
	out io.Writer
}

func (c *console) ask(question string) (string, error) {
	fmt.Fprint(c.out, question)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *console) confirm(question string) (bool, error) {
	answer, err := c.ask(question + " [y/N] ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// terminalAuthorizer reports the camera permission named on the command line
// and asks on the terminal when it is not determined yet.
type terminalAuthorizer struct {
	mu      sync.Mutex
	status  string
	console *console
}

func (a *terminalAuthorizer) Status(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status, nil
}

func (a *terminalAuthorizer) Request(ctx context.Context) (string, error) {
	ok, err := a.console.confirm("Allow camera access?")
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if ok {
		a.status = "granted"
	} else {
		a.status = "denied"
	}
	return a.status, nil
}

type terminalPrompter struct{ console *console }

func (p terminalPrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	return p.console.confirm(title + ": " + message)
}

type settingsPrinter struct{ out io.Writer }

func (p settingsPrinter) OpenSettings(ctx context.Context, url string) error {
	_, err := fmt.Fprintf(p.out, "Change camera access at %s\n", url)
	return err
}

// consoleSpeaker prints announcements in place of text to speech.
type consoleSpeaker struct{ out io.Writer }

func (s consoleSpeaker) Speak(text string) { fmt.Fprintf(s.out, "> %s\n", text) }
func (s consoleSpeaker) Stop()             {}

// consolePresenter renders alerts directly and routes announcements through the app state.
type consolePresenter struct {
	state *lifecycle.AppState
	out   io.Writer
}

func (p consolePresenter) Alert(title, message string) {
	fmt.Fprintf(p.out, "%s: %s\n", title, message)
}

func (p consolePresenter) Announce(text string) {
	p.state.Announce(text)
}
