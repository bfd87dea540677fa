// Package command turns typed text into timer commands for the CLI and the
// popup's input line.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// ErrUnrecognized is returned for input that names no command.
var ErrUnrecognized = errors.New("unrecognized command")

// Parser matches user input to commands using keywords and simple patterns.
type Parser struct {
	log      *logger.Logger
	patterns []patternRule
	custom   *regexp.Regexp
}

type patternRule struct {
	regex *regexp.Regexp
	cmd   domain.Command
}

// NewParser creates a keyword-based command parser.
func NewParser(log *logger.Logger) *Parser {
	p := &Parser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(start|go|resume|begin)$`), domain.Command{Action: domain.ActionStart}},
		{regexp.MustCompile(`(?i)^(pause|stop|hold|p)$`), domain.Command{Action: domain.ActionPause}},
		{regexp.MustCompile(`(?i)^(reset|restart|r)$`), domain.Command{Action: domain.ActionReset}},
		{regexp.MustCompile(`(?i)^(status|time|get|left)$`), domain.Command{Action: domain.ActionGetTime}},
		{regexp.MustCompile(`(?i)^(focus|work|pomodoro|1)$`), domain.Command{Action: domain.ActionSetType, Type: domain.TypeFocus}},
		{regexp.MustCompile(`(?i)^(short|break|short break|2)$`), domain.Command{Action: domain.ActionSetType, Type: domain.TypeShort}},
		{regexp.MustCompile(`(?i)^(long|long break|3)$`), domain.Command{Action: domain.ActionSetType, Type: domain.TypeLong}},
	}
	p.custom = regexp.MustCompile(`(?i)^(?:(?:set|custom)\s+)?(\d+(?::\d+)?)(?:\s+(\S+))?$`)
	return p
}

// Parse converts input into a command. Custom times ("set 12:30 short",
// "custom 45", or a bare "7:30") are range checked here so an invalid value
// never reaches the daemon.
func (p *Parser) Parse(input string) (domain.Command, error) {
	trimmed := strings.Join(strings.Fields(input), " ")
	if trimmed == "" {
		return domain.Command{}, ErrUnrecognized
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		if rule.regex.MatchString(trimmed) {
			p.log.Debug("matched %s", rule.cmd.Action)
			return rule.cmd, nil
		}
	}

	if m := p.custom.FindStringSubmatch(trimmed); m != nil {
		minutes, seconds, err := ParseClock(m[1])
		if err != nil {
			return domain.Command{}, err
		}
		cmd := domain.Command{Action: domain.ActionSetCustomTime, Minutes: minutes, Seconds: seconds}
		if m[2] != "" {
			t, err := domain.ParseTimerType(m[2])
			if err != nil {
				return domain.Command{}, err
			}
			cmd.Type = t
		}
		return cmd, nil
	}

	return domain.Command{}, fmt.Errorf("%w: %q", ErrUnrecognized, trimmed)
}

// ParseClock reads "m:ss" or a bare number of minutes and checks the result
// is between 1 second and 3 hours.
func ParseClock(s string) (minutes, seconds int, err error) {
	s = strings.TrimSpace(s)
	minPart, secPart, hasSec := strings.Cut(s, ":")

	if minPart == "" && hasSec {
		minPart = "0"
	}
	minutes, err = strconv.Atoi(minPart)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidCustomTime, s)
	}
	if hasSec {
		seconds, err = strconv.Atoi(secPart)
		if err != nil || seconds > 59 {
			return 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidCustomTime, s)
		}
	}

	if err := domain.ValidateCustomTime(minutes, seconds); err != nil {
		return 0, 0, err
	}
	return minutes, seconds, nil
}

// Usage lists the accepted commands.
func Usage() string {
	return strings.Join([]string{
		"start              start or resume the countdown",
		"pause              pause the countdown",
		"reset              reset to the preset length",
		"status             show the remaining time",
		"focus|short|long   switch preset (25, 5 or 15 minutes)",
		"set <m:ss> [type]  set a custom time, 1 second to 3 hours",
	}, "\n")
}
