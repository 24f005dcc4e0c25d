package grammar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseText reads an acceptor in OpenFST text format: arc lines
// "src dst ilabel olabel [cost]" and final-state lines "state [cost]".
// Labels stay symbolic; integerization is the normalizer's job.
func ParseText(id string, r io.Reader) (*Grammar, error) {
	g := &Grammar{ID: id}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 1, 2:
			state, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("grammar line %d: bad final state %q", lineNo, fields[0])
			}
			weight := 0.0
			if len(fields) == 2 {
				if weight, err = strconv.ParseFloat(fields[1], 64); err != nil {
					return nil, fmt.Errorf("grammar line %d: bad final weight %q", lineNo, fields[1])
				}
			}
			g.Finals = append(g.Finals, Final{State: state, Weight: weight, Literal: true})
		case 4, 5:
			from, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("grammar line %d: bad source state %q", lineNo, fields[0])
			}
			to, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("grammar line %d: bad target state %q", lineNo, fields[1])
			}
			weight := 0.0
			if len(fields) == 5 {
				if weight, err = strconv.ParseFloat(fields[4], 64); err != nil {
					return nil, fmt.Errorf("grammar line %d: bad arc weight %q", lineNo, fields[4])
				}
			}
			g.Arcs = append(g.Arcs, Arc{From: from, To: to, InLabel: fields[2], OutLabel: fields[3], Weight: weight})
		default:
			return nil, fmt.Errorf("grammar line %d: expected arc or final state, got %q", lineNo, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	if len(g.Finals) == 0 {
		return nil, fmt.Errorf("grammar for %s has no final state", id)
	}
	return g, nil
}
