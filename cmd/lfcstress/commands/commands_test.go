// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package commands

import (
	"bytes"
	"strings"
	"testing"

	"code.hybscloud.com/lfc"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// TestSubcommands runs every subcommand with a small workload.
func TestSubcommands(t *testing.T) {
	if lfc.RaceEnabled {
		t.Skip("skip: containers use atomix operations the race detector cannot observe")
	}
	small := []string{"--producers", "2", "--consumers", "2", "--items", "500", "--timeout", "10s"}
	for _, tc := range []struct {
		name string
		args []string
	}{
		{"stack", []string{"stack"}},
		{"queue", []string{"queue"}},
		{"pq", []string{"pq", "--levels", "4"}},
		{"pool-oldest", []string{"pool", "--capacity", "8", "--policy", "evict-oldest"}},
		{"pool-grow", []string{"pool", "--capacity", "2", "--policy", "grow"}},
		{"pool-reject", []string{"pool", "--capacity", "8", "--policy", "reject"}},
		{"cache", []string{"cache", "--keys", "16"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, append(tc.args, small...)...)
			if err != nil {
				t.Fatalf("%s: %v\n%s", tc.name, err, out)
			}
			if !strings.Contains(out, "stress run passed") {
				t.Fatalf("%s: no summary in output:\n%s", tc.name, out)
			}
		})
	}
}

// TestFlagValidation tests that bad flags are refused before any run.
func TestFlagValidation(t *testing.T) {
	for _, args := range [][]string{
		{"queue", "--producers", "0"},
		{"stack", "--items", "0"},
		{"pq", "--levels", "65"},
		{"pool", "--policy", "lru"},
		{"pool", "--capacity", "0"},
		{"cache", "--keys", "0"},
	} {
		if _, err := execute(t, args...); err == nil {
			t.Fatalf("%v: got nil error", args)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range policies {
		got, err := parsePolicy(p.String())
		if err != nil || got != p {
			t.Fatalf("parsePolicy(%q): got (%v, %v)", p.String(), got, err)
		}
	}
	if _, err := parsePolicy("unknown"); err == nil {
		t.Fatalf("parsePolicy(unknown): got nil error")
	}
}
