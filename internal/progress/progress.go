package progress

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives index build progress.
type Reporter interface {
	Start(total int, description string)
	Add(n int)
	Finish()
}

// Bar renders progress on a terminal writer.
type Bar struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// New returns a terminal progress bar when stderr is a terminal,
// otherwise a reporter that does nothing.
func New() Reporter {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return Nop{}
	}
	return &Bar{out: os.Stderr}
}

// NewBar renders to w regardless of whether it is a terminal.
func NewBar(w io.Writer) *Bar {
	return &Bar{out: w}
}

func (b *Bar) Start(total int, description string) {
	if total <= 0 {
		return
	}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (b *Bar) Add(n int) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	b.bar = nil
}

// Nop ignores all progress.
type Nop struct{}

func (Nop) Start(int, string) {}
func (Nop) Add(int)           {}
func (Nop) Finish()           {}
