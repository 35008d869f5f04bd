package transfer

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/tasks"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSelfCopyExcludesLocalHost(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "A")
	writeTree(t, a, map[string]string{"x": "x"})
	h := hosts.New(hosts.Local, "127.0.0.1", "node1").WithLocalAliases()

	task, err := New([]string{a}, a, &Options{Hosts: h})
	require.NoError(t, err)
	assert.Equal(t, []string{"node1"}, task.Hosts().List())

	task, err = New([]string{a}, filepath.Join(tmp, "B"), &Options{Hosts: h})
	require.NoError(t, err)
	assert.Equal(t, []string{hosts.Local, "127.0.0.1", "node1"}, task.Hosts().List())
}

func TestSelfCopyRunLeavesSourceAlone(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "A")
	writeTree(t, a, map[string]string{"x": "x"})

	task, err := New([]string{filepath.Join(a, "x")}, a, &Options{})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outs)
	assert.Equal(t, "x", readFile(t, filepath.Join(a, "x")))
}

func TestLocalCopy(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "A")
	b := filepath.Join(tmp, "out", "B")
	writeTree(t, a, map[string]string{"x": "old\n", "y/z": "z"})
	require.NoError(t, os.Chmod(filepath.Join(a, "x"), 0700))

	task, err := New([]string{a}, b, &Options{Name: "deploy"})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{hosts.Local}, outs.Hosts())
	assert.True(t, outs[hosts.Local].IsChanged())
	assert.Equal(t, "deploy", outs[hosts.Local].Name)
	assert.Equal(t, "old\n", readFile(t, filepath.Join(b, "x")))
	assert.Equal(t, "z", readFile(t, filepath.Join(b, "y", "z")))

	stat, err := os.Stat(filepath.Join(b, "x"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), stat.Mode().Perm())

	outs, err = task.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outs[hosts.Local].IsChanged())

	writeTree(t, a, map[string]string{"x": "new\n"})
	task, err = New([]string{a}, b, &Options{})
	require.NoError(t, err)

	outs, err = task.Run(context.Background())
	require.NoError(t, err)
	diff := strings.Join(outs[hosts.Local].Diff["file"], "\n")
	assert.Contains(t, diff, "- old")
	assert.Contains(t, diff, "+ new")
	assert.Equal(t, "new\n", readFile(t, filepath.Join(b, "x")))
}

func TestLocalCopyLargeFile(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "data.txt")
	dst := filepath.Join(tmp, "out", "data.txt")

	line := strings.Repeat("x", 99) + "\n"
	old := strings.Repeat(line, 3000)
	cur := strings.Repeat(strings.ToUpper(line), 3000)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0700))
	require.NoError(t, os.WriteFile(dst, []byte(old), 0600))
	require.NoError(t, os.WriteFile(src, []byte(cur), 0600))

	task, err := New([]string{src}, dst, &Options{})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{dst + ":", "replaced (300000 -> 300000 bytes)"}, outs[hosts.Local].Diff["file"])
	assert.Equal(t, cur, readFile(t, dst))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	task, err = New([]string{src}, dst, &Options{})
	require.NoError(t, err)
	outs, err = task.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outs[hosts.Local].IsChanged())
}

func TestDryRun(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{"f": "data"})
	dst := filepath.Join(tmp, "dst")

	task, err := New([]string{filepath.Join(tmp, "f")}, dst, &Options{DryRun: true})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outs.Success())
	assert.NoFileExists(t, dst)
}

func TestFailuresAreAggregated(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{"f": "data", "blocker": "file"})
	h := hosts.New(hosts.Local, "self").WithAliases(map[string]string{"self": hosts.Local})

	task, err := New([]string{filepath.Join(tmp, "f")}, filepath.Join(tmp, "blocker", "f"), &Options{Hosts: h})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailed))

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Len(t, terr.Failures, 2)
	assert.Equal(t, []string{hosts.Local, "self"}, outs.Failed())
}

func TestSFTPConnectionFailure(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{"f": "data"})

	task, err := New([]string{filepath.Join(tmp, "f")}, "/tmp/f", &Options{
		Hosts: hosts.New("127.0.0.1"),
		SSH:   &hosts.SSHInfo{User: "nobody", Password: "secret", Port: 1},
	})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailed))
	assert.Equal(t, []string{"127.0.0.1"}, outs.Failed())
	assert.NotContains(t, err.Error(), "secret")
}

func TestInvalidMethod(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{"f": "data"})

	for _, method := range []string{"rsync", Local} {
		_, err := New([]string{filepath.Join(tmp, "f")}, "/tmp/f", &Options{Method: method})
		assert.True(t, errors.Is(err, tasks.ErrInvalidArgument), method)
	}
}

func TestSCPSteps(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "A")
	writeTree(t, a, map[string]string{"x": "x", "y/z": "z"})
	writeTree(t, tmp, map[string]string{"f": "f"})

	plan, err := NewPlan([]string{a, filepath.Join(tmp, "f")}, "/opt/B")
	require.NoError(t, err)

	strategy, err := Lookup(SCP, &Options{
		Name: "deploy",
		SSH:  &hosts.SSHInfo{User: "cc", Port: 2222},
	})
	require.NoError(t, err)

	steps, err := strategy.(*scpStrategy).steps(plan, "node1")
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.False(t, steps[0].target.Local)
	assert.Equal(t, [][]string{{"mkdir", "-p", "--", "/opt/B/A", "/opt/B/A/y", "/opt/B"}},
		steps[0].cmd.Stages())

	opts := []string{"-o", "BatchMode=yes", "-P", "2222", "-o", "StrictHostKeyChecking=accept-new"}

	assert.True(t, steps[1].target.Local)
	want := append(append([]string{"scp", "-q", "-p"}, opts...),
		"-r", "--", filepath.Join(a, "x"), filepath.Join(a, "y"), "cc@node1:/opt/B/A")
	assert.Equal(t, [][]string{want}, steps[1].cmd.Stages())

	want = append(append([]string{"scp", "-q", "-p"}, opts...),
		"--", filepath.Join(tmp, "f"), "cc@node1:/opt/B/f")
	assert.Equal(t, [][]string{want}, steps[2].cmd.Stages())
}

func TestSFTPClientConfig(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	config, agentConn, err := clientConfig(&hosts.SSHInfo{User: "cc", Password: "pw"})
	require.NoError(t, err)
	assert.Nil(t, agentConn)
	assert.Equal(t, "cc", config.User)
	assert.NotEmpty(t, config.Auth)

	assert.Same(t, breakerFor("node1:22"), breakerFor("node1:22"))
	assert.NotSame(t, breakerFor("node1:22"), breakerFor("node2:22"))
}

func TestSFTPClosesAgentConnection(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "agent")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	t.Setenv("SSH_AUTH_SOCK", sock)

	closed := make(chan struct{})
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
		close(closed)
	}()

	_, err = dial(context.Background(), "127.0.0.1", &hosts.SSHInfo{User: "cc", Port: 1})
	require.Error(t, err)

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("the ssh-agent connection was left open")
	}
}
