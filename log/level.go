package log

import "strings"

// Level defines the severity of a log entry. Levels are ordered by severity
// with the most severe level at the lowest ordinal, so a configured threshold
// admits a level L iff L <= threshold: a threshold of WarnLevel admits Error
// and Warn calls and discards everything chattier.
type Level int8

const (
	// ErrorLevel indicates serious problems that require immediate attention.
	ErrorLevel Level = iota

	// WarnLevel indicates potentially harmful situations that don't prevent
	// the emulated title from running.
	WarnLevel

	// InfoLevel contains general informational messages about normal operation.
	InfoLevel

	// DebugLevel contains debugging information useful during development.
	DebugLevel

	// VerboseLevel provides extremely detailed diagnostic information, such as
	// per-call traces of guest services. This is the least severe level and
	// the default threshold.
	VerboseLevel
)

// String returns the human-readable uppercase name of the level.
func (l Level) String() string {
	switch l {
	case ErrorLevel:
		return "ERROR"
	case WarnLevel:
		return "WARN"
	case InfoLevel:
		return "INFO"
	case DebugLevel:
		return "DEBUG"
	case VerboseLevel:
		return "VERBOSE"
	default:
		return "UNKNOWN"
	}
}

// Char returns the single-character severity tag used in persisted records.
func (l Level) Char() byte {
	switch l {
	case ErrorLevel:
		return 'E'
	case WarnLevel:
		return 'W'
	case InfoLevel:
		return 'I'
	case DebugLevel:
		return 'D'
	case VerboseLevel:
		return 'V'
	default:
		return '?'
	}
}

// PlatformSeverity maps the level to the platform system log's own severity
// enumeration (logcat-compatible: VERBOSE=2 through ERROR=6).
func (l Level) PlatformSeverity() int {
	switch l {
	case ErrorLevel:
		return 6
	case WarnLevel:
		return 5
	case InfoLevel:
		return 4
	case DebugLevel:
		return 3
	case VerboseLevel:
		return 2
	default:
		return 4
	}
}

// Enabled reports whether the level is admitted by the given threshold.
func (l Level) Enabled(threshold Level) bool {
	return l <= threshold
}

// ParseLevel converts a string representation to a Level with case-insensitive
// matching. Returns InfoLevel for unrecognized inputs, ensuring a safe default
// in configuration scenarios.
func ParseLevel(levelStr string) Level {
	if lv, ok := levelFromString(levelStr); ok {
		return lv
	}
	return InfoLevel
}

func levelFromString(levelStr string) (Level, bool) {
	switch strings.ToUpper(levelStr) {
	case "ERROR":
		return ErrorLevel, true
	case "WARN":
		return WarnLevel, true
	case "INFO":
		return InfoLevel, true
	case "DEBUG":
		return DebugLevel, true
	case "VERBOSE":
		return VerboseLevel, true
	}
	return InfoLevel, false
}

// LevelFromChar converts a persisted severity character back to its Level.
func LevelFromChar(c byte) (Level, bool) {
	switch c {
	case 'E':
		return ErrorLevel, true
	case 'W':
		return WarnLevel, true
	case 'I':
		return InfoLevel, true
	case 'D':
		return DebugLevel, true
	case 'V':
		return VerboseLevel, true
	}
	return InfoLevel, false
}
