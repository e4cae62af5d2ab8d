package audio

import (
	"bufio"
	"strconv"
	"strings"
)

// parsePactlSourceOutputs reads the output of "pactl list source-outputs".
// Every source output is one recording stream, a corked one is paused.
func parsePactlSourceOutputs(plain string) (result Sessions) {
	var current *Session
	var name, binary string

	flush := func() {
		if current == nil {
			return
		}
		if binary != "" {
			current.Identifier = binary
		} else if name != "" {
			current.Identifier = name
		}
		result = append(result, *current)
		current, name, binary = nil, "", ""
	}

	scanner := bufio.NewScanner(strings.NewReader(plain))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "Source Output #") {
			flush()
			current = &Session{
				Identifier: strings.TrimPrefix(line, "Source Output "),
				State:      SessionStateActive,
			}
			continue
		}
		if current == nil {
			continue
		}

		if v, ok := strings.CutPrefix(line, "Corked:"); ok {
			if parsePactlBool(v) {
				current.State = SessionStateInactive
			} else {
				current.State = SessionStateActive
			}
		} else if v, ok := strings.CutPrefix(line, "Mute:"); ok {
			current.Muted = parsePactlBool(v)
		} else if v, ok := pactlProperty(line, "application.process.id"); ok {
			if pid, err := strconv.ParseUint(v, 10, 32); err == nil {
				current.HolderPid = uint32(pid)
			}
		} else if v, ok := pactlProperty(line, "application.process.binary"); ok {
			binary = v
		} else if v, ok := pactlProperty(line, "application.name"); ok {
			name = v
		}
	}
	flush()

	return
}

func parsePactlBool(plain string) bool {
	return strings.TrimSpace(strings.ToLower(plain)) == "yes"
}

// pactlProperty extracts the value of lines like: key = "value"
func pactlProperty(line, key string) (string, bool) {
	rest, ok := strings.CutPrefix(line, key)
	if !ok {
		return "", false
	}
	rest, ok = strings.CutPrefix(strings.TrimSpace(rest), "=")
	if !ok {
		return "", false
	}
	return strings.Trim(strings.TrimSpace(rest), `"`), true
}
