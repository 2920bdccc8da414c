package main

import (
	"fmt"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// charmConsole adapts a charmbracelet/log.Logger to internal/console.Sink,
// matching the teacher's pattern of a narrow interface (interfaces.Logger)
// sitting in front of one concrete, colorized implementation.
type charmConsole struct {
	logger *charmlog.Logger
}

func newCharmConsole(logger *charmlog.Logger) *charmConsole {
	return &charmConsole{logger: logger}
}

func (c *charmConsole) Puts(s string) {
	c.logger.Info(strings.TrimRight(s, "\n"))
}

func (c *charmConsole) Putxval(val uint64, width int) {
	c.logger.Info(fmt.Sprintf("%0*x", width, val))
}
