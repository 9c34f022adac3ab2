// Package cli implements the amf3dump command line tool.
package cli

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// consoleWriter serializes writes to a terminal stream and remembers whether it is a TTY
type consoleWriter struct {
	Writer io.Writer
	IsTTY  bool
	Mutex  *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	return w.Writer.Write(p)
}

// GlobalState holds everything a command touches outside its own flags,
// so tests can swap the file system, the standard streams and the environment.
type GlobalState struct {
	FS     afero.Fs
	Stdin  io.Reader
	Stdout *consoleWriter
	Stderr *consoleWriter

	// LookupEnv reports the value of an environment variable
	LookupEnv func(key string) (string, bool)

	Logger *logrus.Logger
	Config Config
}

// NewGlobalState returns the state backed by the real process environment
func NewGlobalState() *GlobalState {
	outMutex := &sync.Mutex{}
	stdoutTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	stdout := &consoleWriter{Writer: colorable.NewColorableStdout(), IsTTY: stdoutTTY, Mutex: outMutex}
	stderr := &consoleWriter{Writer: colorable.NewColorableStderr(), IsTTY: stderrTTY, Mutex: outMutex}

	return &GlobalState{
		FS:        afero.NewOsFs(),
		Stdin:     os.Stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		LookupEnv: os.LookupEnv,
		Logger: &logrus.Logger{
			Out:       stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
		Config: DefaultConfig(),
	}
}

// disableColors strips escape sequences from both output streams
func (gs *GlobalState) disableColors() {
	gs.Stdout.Writer = colorable.NewNonColorable(gs.Stdout.Writer)
	gs.Stderr.Writer = colorable.NewNonColorable(gs.Stderr.Writer)
}
