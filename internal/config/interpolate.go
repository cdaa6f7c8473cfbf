package config

import (
	"fmt"
	"os"
	"regexp"
)

// varToken matches ${NAME}, ${NAME:-default}, ${NAME:?message}. Bare $NAME is
// intentionally left untouched, per spec.md §4.1.
var varToken = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:([-?])([^}]*))?\}`)

// InterpolationError reports a required variable (":?msg") that was unset or
// empty at interpolation time.
type InterpolationError struct {
	Name    string
	Message string
}

func (e *InterpolationError) Error() string {
	return e.Message
}

// lookupEnv is overridable in tests; defaults to os.LookupEnv.
var lookupEnv = os.LookupEnv

// InterpolateString expands ${VAR}, ${VAR:-default}, ${VAR:?msg} tokens in s
// using the process environment. Returns an *InterpolationError if a
// required ("?") variable is unset or empty.
func InterpolateString(s string) (string, error) {
	var firstErr error
	result := varToken.ReplaceAllStringFunc(s, func(tok string) string {
		if firstErr != nil {
			return tok
		}
		m := varToken.FindStringSubmatch(tok)
		name, op, arg := m[1], m[3], m[4]
		value, set := lookupEnv(name)

		if set && value != "" {
			return value
		}

		switch op {
		case "-":
			return arg
		case "?":
			msg := arg
			if msg == "" {
				msg = fmt.Sprintf("Required variable %s is not set", name)
			}
			firstErr = &InterpolationError{Name: name, Message: msg}
			return tok
		default:
			return ""
		}
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// InterpolateRaw applies variable interpolation, in place, to the global cwd
// and env, and to each process's command, cwd, env, condition, readyPattern
// and errorMatcher regex. Other fields (envFile paths, dependsOn, platform,
// stopSignal, color, watch, and the remaining globals) are not interpolated.
// Compiled regex sources
// (readyPattern/errorMatcher) are interpolated as strings before compilation,
// matching "Compiled regex values are passed through unchanged" only once
// they've become *Pattern/*ErrorMatcher — at the raw-string stage they are
// still ordinary strings and are expanded like any other field.
func InterpolateRaw(raw *RawConfig) error {
	var err error
	if raw.Cwd, err = InterpolateString(raw.Cwd); err != nil {
		return err
	}
	if raw.Env, err = interpolateMap(raw.Env); err != nil {
		return err
	}
	for name, spec := range raw.Processes {
		if spec.IsString {
			if spec.Command, err = InterpolateString(spec.Command); err != nil {
				return err
			}
			raw.Processes[name] = spec
			continue
		}
		rec := &spec.Record
		if rec.Command, err = InterpolateString(rec.Command); err != nil {
			return err
		}
		if rec.Cwd, err = InterpolateString(rec.Cwd); err != nil {
			return err
		}
		if rec.Env, err = interpolateMap(rec.Env); err != nil {
			return err
		}
		if rec.Condition, err = InterpolateString(rec.Condition); err != nil {
			return err
		}
		if rec.ReadyPattern != nil {
			if rec.ReadyPattern.Source, err = InterpolateString(rec.ReadyPattern.Source); err != nil {
				return err
			}
		}
		if rec.ErrorMatcher != nil && rec.ErrorMatcher.Regex != "" {
			if rec.ErrorMatcher.Regex, err = InterpolateString(rec.ErrorMatcher.Regex); err != nil {
				return err
			}
		}
		raw.Processes[name] = spec
	}
	return nil
}

func interpolateMap(m map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		r, err := InterpolateString(v)
		if err != nil {
			return nil, err
		}
		out[k] = r
	}
	return out, nil
}
