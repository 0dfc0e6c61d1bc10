package judge

import (
	"fmt"
	"strings"
)

// LanguageMismatchError means the code is obviously written in a
// different language family than declared. It is raised before any
// sandbox round-trip and is informative, never fatal to the session.
type LanguageMismatchError struct {
	Declared string
	Marker   string
}

func (e *LanguageMismatchError) Error() string {
	return fmt.Sprintf("code does not look like %s (found %q)", e.Declared, e.Marker)
}

// foreignMarkers lists, per declared language, patterns that belong to
// another language family. The check is a cheap heuristic: it only has
// to catch the common paste-the-wrong-tab mistake, not parse anything.
var foreignMarkers = map[string][]string{
	"python": {
		"console.log",
		"System.out.println",
		"func main()",
		"#include <",
		"public static void",
	},
	"javascript": {
		"def __init__",
		"print(f\"",
		"System.out.println",
		"func main()",
		"#include <",
	},
	"go": {
		"console.log",
		"def __init__",
		"System.out.println",
		"public static void",
	},
	"java": {
		"console.log",
		"def __init__",
		"func main()",
		"#include <",
	},
}

// CheckLanguage fails fast with a LanguageMismatchError when code
// carries unmistakable markers of a different language. Unknown declared
// languages always pass.
func CheckLanguage(code, language string) error {
	markers, ok := foreignMarkers[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return nil
	}
	for _, marker := range markers {
		if strings.Contains(code, marker) {
			return &LanguageMismatchError{Declared: language, Marker: marker}
		}
	}
	return nil
}
