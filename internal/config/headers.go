package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ParseHeader parses "Name: value". A "Name=value" form is accepted as well.
func ParseHeader(raw string) (Header, error) {
	sep := strings.IndexByte(raw, ':')
	if eq := strings.IndexByte(raw, '='); sep == -1 || (eq != -1 && eq < sep) {
		sep = eq
	}
	if sep == -1 {
		return Header{}, fmt.Errorf("invalid header %q: expected \"Name: value\"", raw)
	}
	name := strings.TrimSpace(raw[:sep])
	value := strings.TrimSpace(raw[sep+1:])
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return Header{}, fmt.Errorf("invalid header name in %q", raw)
	}
	if strings.ContainsAny(value, "\r\n") {
		return Header{}, fmt.Errorf("invalid header value for %s", name)
	}
	return Header{Name: name, Value: value}, nil
}

// ExpandHeaders parses header arguments. An argument of the form "@path"
// reads one header per line from path; blank lines and lines starting with
// '#' are skipped.
func ExpandHeaders(args []string) ([]Header, error) {
	var out []Header
	for _, arg := range args {
		if path, ok := strings.CutPrefix(arg, "@"); ok {
			hs, err := readHeaderFile(path)
			if err != nil {
				return nil, err
			}
			out = append(out, hs...)
			continue
		}
		h, err := ParseHeader(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func readHeaderFile(path string) ([]Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("header file: %w", err)
	}
	defer f.Close()

	var out []Header
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		h, err := ParseHeader(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, h)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("header file: %w", err)
	}
	return out, nil
}

var headerSliceType = reflect.TypeOf([]Header{})

// headerDecodeHook lets config files give headers as a map, a list of
// "Name: value" strings or a list of {name, value} objects.
func headerDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != headerSliceType {
			return data, nil
		}
		switch v := data.(type) {
		case map[string]any:
			out := make([]Header, 0, len(v))
			for name, value := range v {
				out = append(out, Header{Name: name, Value: fmt.Sprint(value)})
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
			return out, nil
		case []any:
			out := make([]Header, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					// Leave object entries to the regular struct decoder.
					return data, nil
				}
				h, err := ParseHeader(s)
				if err != nil {
					return nil, err
				}
				out = append(out, h)
			}
			return out, nil
		case string:
			return ExpandHeaders([]string{v})
		}
		return data, nil
	}
}
