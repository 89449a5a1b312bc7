package filestore

import (
	"strconv"
	"strings"
	"time"
)

// ExpandDirTemplate expands the {year}{month}{day}{hour}{minute} and
// env[NAME] tokens in template against t and a frozen snapshot of the
// process environment, producing the subdirectory a payload or hybrid
// object key is placed under.
//
// env must be captured once at process startup (see cmd/tusrelay/cli)
// and passed in explicitly; this function never consults os.Environ
// itself, so template expansion is deterministic across the life of
// the process regardless of later environment mutation.
func ExpandDirTemplate(template string, t time.Time, env map[string]string) string {
	if template == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		"{year}", strconv.Itoa(t.Year()),
		"{month}", pad2(int(t.Month())),
		"{day}", pad2(t.Day()),
		"{hour}", pad2(t.Hour()),
		"{minute}", pad2(t.Minute()),
	)
	expanded := replacer.Replace(template)

	return expandEnvTokens(expanded, env)
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// expandEnvTokens replaces every "env[NAME]" occurrence with env[NAME]'s
// value, or the empty string if NAME is absent from the snapshot.
func expandEnvTokens(s string, env map[string]string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "env[")
		if start == -1 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "]")
		if end == -1 {
			b.WriteString(s)
			break
		}
		end += start

		b.WriteString(s[:start])
		name := s[start+len("env[") : end]
		b.WriteString(env[name])

		s = s[end+1:]
	}
	return b.String()
}
