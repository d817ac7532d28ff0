package cache

import (
	"strings"
	"testing"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name   string
		method string
		args   []any
		want   string
	}{
		{
			name:   "no args",
			method: "Count",
			args:   []any{},
			want:   "Count",
		},
		{
			name:   "type name arg",
			method: "Count",
			args:   []any{"Person"},
			want:   joinWithSeparator("Count", "Person"),
		},
		{
			name:   "multiple basic types",
			method: "Find",
			args:   []any{1, "hello", true, 3.14},
			want:   joinWithSeparator("Find", "1", "hello", "true", "3.14"),
		},
		{
			name:   "nil arg",
			method: "Find",
			args:   []any{nil},
			want:   joinWithSeparator("Find", "nil"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.method, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_CompositeTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	type window struct {
		Limit  int
		Offset int
	}

	tests := []struct {
		name   string
		method string
		args   []any
		want   string
	}{
		{
			name:   "slice",
			method: "LoadKeys",
			args:   []any{[]uint64{3, 1, 2}},
			want:   joinWithSeparator("LoadKeys", "[3,1,2]"),
		},
		{
			name:   "nil slice",
			method: "LoadKeys",
			args:   []any{[]uint64(nil)},
			want:   joinWithSeparator("LoadKeys", "[]"),
		},
		{
			name:   "struct",
			method: "Page",
			args:   []any{window{Limit: 10, Offset: 20}},
			want:   joinWithSeparator("Page", "(Limit:10,Offset:20)"),
		},
		{
			name:   "pointer dereferences",
			method: "Page",
			args:   []any{&window{Limit: 10, Offset: 20}},
			want:   joinWithSeparator("Page", "(Limit:10,Offset:20)"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.method, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_MapOrderDeterministic(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	m := map[string]int{"b": 2, "a": 1, "c": 3}
	want := serializer.SerializeKey("Filter", m)
	for i := 0; i < 20; i++ {
		if got := serializer.SerializeKey("Filter", m); got != want {
			t.Fatalf("iteration %d: %q != %q", i, got, want)
		}
	}
	if want != joinWithSeparator("Filter", "{a=1,b=2,c=3}") {
		t.Fatalf("unexpected map serialization: %q", want)
	}
}
