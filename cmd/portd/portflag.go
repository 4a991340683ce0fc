package main

import (
	"fmt"
	"strconv"
	"strings"
)

// portMapFlag implements pflag.Value so --port can be repeated as
// name=port to build up a map[string]int for commands that resolve
// environment variables against a hypothetical port assignment.
type portMapFlag struct {
	target *map[string]int
}

func newPortMapFlag(target *map[string]int) *portMapFlag {
	*target = map[string]int{}
	return &portMapFlag{target: target}
}

func (f *portMapFlag) String() string {
	if f.target == nil {
		return ""
	}
	var parts []string
	for name, port := range *f.target {
		parts = append(parts, fmt.Sprintf("%s=%d", name, port))
	}
	return strings.Join(parts, ",")
}

func (f *portMapFlag) Set(value string) error {
	name, portStr, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected name=port, got %q", value)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in %q: %w", value, err)
	}
	(*f.target)[name] = port
	return nil
}

func (f *portMapFlag) Type() string {
	return "name=port"
}
