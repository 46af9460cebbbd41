package config

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// secondsValue is a pflag.Value for the run duration. It takes either a
// bare count of whole seconds ("5") or a Go duration ("1m30s").
type secondsValue time.Duration

func newSecondsValue(def time.Duration) *secondsValue {
	v := secondsValue(def)
	return &v
}

// ParseSeconds reads s as whole seconds, falling back to time.ParseDuration.
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		if n > uint64(math.MaxInt64/int64(time.Second)) {
			return 0, fmt.Errorf("duration %q: too many seconds", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q: want whole seconds or a duration like 30s", s)
	}
	return d, nil
}

func (v *secondsValue) Set(s string) error {
	d, err := ParseSeconds(s)
	if err != nil {
		return err
	}
	*v = secondsValue(d)
	return nil
}

// String is parseable by time.ParseDuration, so FlagSet.GetDuration reads it.
func (v *secondsValue) String() string { return time.Duration(*v).String() }

func (v *secondsValue) Type() string { return "duration" }

var durationType = reflect.TypeOf(time.Duration(0))

// durationDecodeHook lets config files use the same forms as the -z flag:
// plain numbers are seconds, strings go through ParseSeconds.
func durationDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return ParseSeconds(v)
		case int:
			return ParseSeconds(strconv.Itoa(v))
		case int64:
			return ParseSeconds(strconv.FormatInt(v, 10))
		case uint64:
			return ParseSeconds(strconv.FormatUint(v, 10))
		case float64:
			if v != math.Trunc(v) {
				return time.Duration(v * float64(time.Second)), nil
			}
			return ParseSeconds(strconv.FormatFloat(v, 'f', 0, 64))
		}
		return data, nil
	}
}
