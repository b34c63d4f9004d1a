package expressions

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Substitute scans text for ${...} tokens and replaces each with the string
// form of its resolved value. Tokens are non-nested and greedy to the first
// closing brace. Unresolved references are left as the literal ${...} token so
// silent failures remain visible in the output.
func (s *RunScope) Substitute(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}

	var result strings.Builder
	result.Grow(len(text))

	i := 0
	for i < len(text) {
		idx := strings.Index(text[i:], "${")
		if idx == -1 {
			result.WriteString(text[i:])
			break
		}

		result.WriteString(text[i : i+idx])
		start := i + idx + 2 // skip "${"

		end := strings.Index(text[start:], "}")
		if end == -1 {
			// No closing brace — emit the rest verbatim.
			result.WriteString(text[i+idx:])
			break
		}
		end += start

		ref := text[start:end]
		value, ok := s.Lookup(ref)
		if ok && value != nil {
			result.WriteString(Stringify(value))
		} else {
			// Leave the token untouched.
			result.WriteString(text[i+idx : end+1])
		}

		i = end + 1
	}

	return result.String()
}

// Stringify coerces a resolved value to its string form. Strings pass through;
// integral floats render without a decimal point (JSON numbers unmarshal as
// float64); maps and slices render as compact JSON; nil renders empty.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}
