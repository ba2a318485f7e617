package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCommand(t *testing.T) {
	for _, backend := range []string{"packed", "rtree"} {
		t.Run(backend, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"run",
				"--points", "2000", "--queries", "50", "--backend", backend,
				"--extent", "200,200,20",
				"--config", "../../config/testdata/strategies.toml", "--strategy", "octant",
			})
			require.NoError(t, cmd.Execute())
			require.Contains(t, out.String(), "mismatches: 0 of 50")
			require.Contains(t, out.String(), "generic")
			require.Contains(t, out.String(), "tuned")
		})
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--backend", "quadtree", "--points", "10"})
	require.Error(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--extent", "1,2", "--points", "10"})
	require.Error(t, cmd.Execute())
}
