package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	log "github.com/echocat/slf4g"
)

// RequestFromTerminal prompts the user until a non-empty value was entered.
// If canBeEmpty is set an empty answer is accepted as well. Secrets are read
// without echo.
func RequestFromTerminal(promptName string, canBeEmpty, secret bool) (string, error) {
	l, err := readline.NewEx(&readline.Config{
		Stdin:  os.Stdin,
		Stdout: os.Stderr,
	})
	if err != nil {
		return "", fmt.Errorf("could not read from terminal for prompt %q: %w", promptName, err)
	}
	defer func() {
		_ = l.Close()
	}()

	prompt := fmt.Sprintf("Enter %s: ", promptName)
	l.SetPrompt(prompt)
	if secret {
		l.SetMaskRune('*')
	}
	l.ResetHistory()

	for {
		var line string
		if secret {
			var b []byte
			b, err = l.ReadPassword(prompt)
			line = string(b)
		} else {
			line, err = l.Readline()
		}
		if err != nil {
			return "", fmt.Errorf("could not read from terminal for prompt %q: %w", promptName, err)
		}
		line = strings.TrimSpace(line)
		if line != "" || canBeEmpty {
			return line, nil
		}
		log.With("prompt", promptName).
			Warn("Empty value is not allowed.")
	}
}
