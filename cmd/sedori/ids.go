package main

import (
	"fmt"
	"strconv"
	"strings"

	"sedori/internal/alerts"
)

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid alert id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseStates(values []string) ([]alerts.State, error) {
	states := make([]alerts.State, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			state, ok := alerts.ParseState(part)
			if !ok {
				return nil, fmt.Errorf("unknown state %q (valid: %s)", part, stateNames())
			}
			states = append(states, state)
		}
	}
	return states, nil
}

func stateNames() string {
	names := make([]string, 0, 8)
	for _, s := range alerts.AllStates() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
