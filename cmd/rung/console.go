package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rung-dev/rung/internal/colorutil"
	"github.com/rung-dev/rung/internal/config"
	"github.com/rung-dev/rung/internal/manager"
	"github.com/rung-dev/rung/internal/stringutil"
)

// maxConsoleLineLen caps a single rendered output line; a runaway process
// writing one huge line (a dumped blob, a progress bar repainted with \r)
// shouldn't be able to flood the terminal.
const maxConsoleLineLen = 4096

// console renders manager events to stdout, one padded and colored
// "name | " prefix per line, in the style of a classic process-orchestration
// multiplexer.
type console struct {
	mu        sync.Mutex
	width     int
	prefixes  map[string]string // pre-rendered, colored, padded prefix
	buffers   map[string][]byte
	timestamp bool
}

func newConsole(cfg *config.ResolvedConfig) *console {
	c := &console{
		prefixes:  make(map[string]string, len(cfg.Processes)),
		buffers:   make(map[string][]byte, len(cfg.Processes)),
		timestamp: cfg.Timestamps,
	}
	for _, name := range cfg.Order {
		if len(name) > c.width {
			c.width = len(name)
		}
	}
	for idx, name := range cfg.Order {
		rec := cfg.Processes[name]
		hex, err := colorutil.Assign(rec.Color, idx)
		padded := name + strings.Repeat(" ", c.width-len(name))
		if err != nil {
			c.prefixes[name] = padded + " | "
			continue
		}
		c.prefixes[name] = colorutil.Paint(hex, padded) + " | "
	}
	return c
}

// onEvent is a manager.Listener suitable for manager.On.
func (c *console) onEvent(ev manager.Event) {
	switch ev.Kind {
	case manager.EventStatus:
		c.writeLine(ev.Name, fmt.Sprintf("[rung] %s", ev.Status))
	case manager.EventOutput:
		c.feed(ev.Name, ev.Output)
	case manager.EventExit:
		code := "null"
		if ev.Code != nil {
			code = fmt.Sprintf("%d", *ev.Code)
		}
		c.writeLine(ev.Name, fmt.Sprintf("[rung] exited with code %s", code))
	case manager.EventError:
		c.writeLine(ev.Name, "[rung] error pattern matched")
	}
}

// feed buffers raw output and flushes whole lines as they complete.
func (c *console) feed(name string, chunk []byte) {
	c.mu.Lock()
	buf := append(c.buffers[name], chunk...)
	var lines [][]byte
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, buf[:i])
		buf = buf[i+1:]
	}
	c.buffers[name] = buf
	prefix := c.prefix(name)
	c.mu.Unlock()

	for _, line := range lines {
		fmt.Fprintln(os.Stdout, prefix+stringutil.TruncateStringWithEllipsis(string(line), maxConsoleLineLen))
	}
}

func (c *console) writeLine(name, line string) {
	c.mu.Lock()
	prefix := c.prefix(name)
	c.mu.Unlock()
	fmt.Fprintln(os.Stdout, prefix+stringutil.TruncateStringWithEllipsis(line, maxConsoleLineLen))
}

func (c *console) prefix(name string) string {
	p, ok := c.prefixes[name]
	if !ok {
		return name + " | "
	}
	return p
}
