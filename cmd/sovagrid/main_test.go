package main

import (
	"reflect"
	"testing"
)

func TestRewriteServerArg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"sovagrid"},
			want: []string{"sovagrid"},
		},
		{
			name: "bare host:port",
			in:   []string{"sovagrid", "10.0.0.5:7300"},
			want: []string{"sovagrid", "--server", "10.0.0.5:7300"},
		},
		{
			name: "websocket url",
			in:   []string{"sovagrid", "ws://stage.local:7300/ws"},
			want: []string{"sovagrid", "--server", "ws://stage.local:7300/ws"},
		},
		{
			name: "after value flag",
			in:   []string{"sovagrid", "--peer", "ada", "localhost:7300"},
			want: []string{"sovagrid", "--peer", "ada", "--server", "localhost:7300"},
		},
		{
			name: "after equals flag",
			in:   []string{"sovagrid", "--timing=boundary", "localhost:7300"},
			want: []string{"sovagrid", "--timing=boundary", "--server", "localhost:7300"},
		},
		{
			name: "after bool flag",
			in:   []string{"sovagrid", "--pretty", "localhost:7300"},
			want: []string{"sovagrid", "--pretty", "--server", "localhost:7300"},
		},
		{
			name: "after double dash",
			in:   []string{"sovagrid", "--", "localhost:7300"},
			want: []string{"sovagrid", "--server", "localhost:7300"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"sovagrid", "scene", "show"},
			want: []string{"sovagrid", "scene", "show"},
		},
		{
			name: "sim addr flag not rewritten",
			in:   []string{"sovagrid", "sim", "--addr", "127.0.0.1:7300"},
			want: []string{"sovagrid", "sim", "--addr", "127.0.0.1:7300"},
		},
		{
			name: "bad port not rewritten",
			in:   []string{"sovagrid", "host:99999"},
			want: []string{"sovagrid", "host:99999"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteServerArg(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %#v; want %#v", got, tc.want)
			}
		})
	}
}
