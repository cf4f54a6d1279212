package logging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPriority  = errors.New("invalid priority specified")
	ErrInvalidVerbosity = errors.New("verbosity level must not be negative")
)

// Priority classifies a log event.
type Priority int

const (
	PriorityInfo Priority = iota + 1
	PriorityPass
	PriorityFail
	PriorityError
	PriorityDebug
)

type priorityInfo struct {
	name   string
	marker string
	level  logrus.Level
}

var priorities = map[Priority]priorityInfo{
	PriorityInfo:  {name: "INFO", marker: "[*]", level: logrus.InfoLevel},
	PriorityPass:  {name: "PASS", marker: "[+]", level: logrus.InfoLevel},
	PriorityFail:  {name: "FAIL", marker: "[-]", level: logrus.WarnLevel},
	PriorityError: {name: "ERROR", marker: "[!]", level: logrus.ErrorLevel},
	PriorityDebug: {name: "DEBUG", marker: "<|>", level: logrus.DebugLevel},
}

// Priorities returns every known priority in declaration order.
func Priorities() []Priority {
	return []Priority{PriorityInfo, PriorityPass, PriorityFail, PriorityError, PriorityDebug}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	_, ok := priorities[p]
	return ok
}

func (p Priority) String() string {
	if info, ok := priorities[p]; ok {
		return info.name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Marker returns the short prefix written before the message.
func (p Priority) Marker() string {
	return priorities[p].marker
}

func (p Priority) level() logrus.Level {
	if info, ok := priorities[p]; ok {
		return info.level
	}
	return logrus.InfoLevel
}

// ParsePriority looks a priority up by name, case-insensitively.
func ParsePriority(name string) (Priority, error) {
	for _, p := range Priorities() {
		if strings.EqualFold(p.String(), name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, name)
}

// Verbosity controls which priorities reach the console.
type Verbosity int

const (
	VerbosityQuiet   Verbosity = 0
	VerbosityNormal  Verbosity = 1
	VerbosityVerbose Verbosity = 2
)

// Validate rejects negative levels. Levels above VerbosityVerbose behave
// like VerbosityVerbose.
func (v Verbosity) Validate() error {
	if v < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVerbosity, int(v))
	}
	return nil
}

// consolePolicy lists, per verbosity level, the priorities printed to the
// console. The sink receives every event regardless.
var consolePolicy = map[Verbosity]map[Priority]bool{
	VerbosityQuiet: {
		PriorityError: true,
	},
	VerbosityNormal: {
		PriorityPass:  true,
		PriorityFail:  true,
		PriorityError: true,
	},
	VerbosityVerbose: {
		PriorityInfo:  true,
		PriorityPass:  true,
		PriorityFail:  true,
		PriorityError: true,
		PriorityDebug: true,
	},
}

// Visible reports whether an event of priority p is printed at verbosity v.
func Visible(v Verbosity, p Priority) bool {
	if v < 0 {
		return false
	}
	if v > VerbosityVerbose {
		v = VerbosityVerbose
	}
	return consolePolicy[v][p]
}
