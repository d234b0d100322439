package token

import "fmt"

// Path locates a value inside a decoded JSON tree. Steps are walked left to
// right: a string step indexes an object, an int step indexes an array.
type Path []any

// PathError reports the step at which extraction failed.
type PathError struct {
	Step   int
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path step %d: %s", e.Step, e.Reason)
}

// Extract walks path over v and returns the string it lands on.
func Extract(v any, path Path) (string, error) {
	cur := v
	for i, step := range path {
		switch s := step.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return "", &PathError{Step: i, Reason: fmt.Sprintf("expected object for key %q, got %T", s, cur)}
			}
			cur, ok = obj[s]
			if !ok {
				return "", &PathError{Step: i, Reason: fmt.Sprintf("key %q not found", s)}
			}
		case int:
			arr, ok := cur.([]any)
			if !ok {
				return "", &PathError{Step: i, Reason: fmt.Sprintf("expected array for index %d, got %T", s, cur)}
			}
			if s < 0 || s >= len(arr) {
				return "", &PathError{Step: i, Reason: fmt.Sprintf("index %d out of range (len %d)", s, len(arr))}
			}
			cur = arr[s]
		default:
			return "", &PathError{Step: i, Reason: fmt.Sprintf("unsupported step type %T", step)}
		}
	}

	str, ok := cur.(string)
	if !ok {
		return "", &PathError{Step: len(path), Reason: fmt.Sprintf("expected string value, got %T", cur)}
	}
	return str, nil
}

// NormalizePath converts a config-decoded step list (strings, ints, or
// float64s from YAML/JSON numbers) into a Path.
func NormalizePath(raw []any) (Path, error) {
	p := make(Path, 0, len(raw))
	for i, step := range raw {
		switch s := step.(type) {
		case string:
			p = append(p, s)
		case int:
			p = append(p, s)
		case float64:
			p = append(p, int(s))
		default:
			return nil, fmt.Errorf("path step %d: unsupported type %T", i, step)
		}
	}
	return p, nil
}
