package metrics

import (
	"reflect"
	"testing"
)

func TestStatusRows(t *testing.T) {
	tests := []struct {
		name  string
		codes map[int]int64
		want  []StatusRow
	}{
		{name: "nil", codes: nil, want: nil},
		{name: "empty", codes: map[int]int64{}, want: nil},
		{
			name:  "sorted by code",
			codes: map[int]int64{503: 1, 200: 90, 404: 9},
			want: []StatusRow{
				{Code: 200, Count: 90},
				{Code: 404, Count: 9},
				{Code: 503, Count: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusRows(tt.codes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StatusRows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorRows(t *testing.T) {
	tests := []struct {
		name string
		errs map[string]int64
		want []ErrorRow
	}{
		{name: "nil", errs: nil, want: nil},
		{
			name: "count desc then message",
			errs: map[string]int64{"request timeout": 3, "connection reset by peer": 7, "connection refused": 3},
			want: []ErrorRow{
				{Message: "connection reset by peer", Count: 7},
				{Message: "connection refused", Count: 3},
				{Message: "request timeout", Count: 3},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorRows(tt.errs); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ErrorRows() = %v, want %v", got, tt.want)
			}
		})
	}
}
