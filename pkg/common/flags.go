package common

import (
	"strings"
	"unicode"

	"github.com/alecthomas/kingpin/v2"
)

const envarPrefix = "PM_"

type FlagHolder interface {
	Flag(name, help string) *kingpin.FlagClause
}

// Envar derives the environment variable name of a flag, for example
// "mqtt.topicMic" becomes "PM_MQTT_TOPIC_MIC".
func Envar(flagName string) string {
	var buf strings.Builder
	buf.WriteString(envarPrefix)
	var previous rune
	for _, c := range flagName {
		switch {
		case c == '.' || c == '-':
			buf.WriteByte('_')
		case unicode.IsUpper(c) && unicode.IsLower(previous):
			buf.WriteByte('_')
			buf.WriteRune(c)
		default:
			buf.WriteRune(unicode.ToUpper(c))
		}
		previous = c
	}
	return buf.String()
}

// Flag registers a flag whose environment variable is derived by Envar.
func Flag(using FlagHolder, name, help string) *kingpin.FlagClause {
	return using.Flag(name, help).Envar(Envar(name))
}
