package exec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localHosts(names ...string) hosts.Hosts {
	aliases := map[string]string{}
	for _, name := range names {
		aliases[name] = hosts.Local
	}
	return hosts.New(names...).WithAliases(aliases)
}

func TestFanOutIsKeyedByHost(t *testing.T) {
	delays := map[string]string{"h1": "0.3", "h2": "0.1", "h3": "0"}

	task, err := NewPerHost(func(host string) (process.Command, error) {
		return process.Shell(fmt.Sprintf("sleep %s; echo %s", delays[host], host)), nil
	}, &Options{
		Name:   "echo",
		Hosts:  localHosts("h1", "h2", "h3"),
		Policy: process.Policy{Capture: true},
	})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"h1", "h2", "h3"}, outs.Hosts())

	for _, host := range outs.Hosts() {
		assert.Equal(t, []string{host}, outs[host].Stdout)
		assert.Equal(t, 0, outs[host].Code())
		assert.Equal(t, host, outs[host].Host)
		assert.Equal(t, Type, outs[host].Type)
	}
	assert.Equal(t, 0, outs.ExitCode())
}

func TestHostsRunConcurrently(t *testing.T) {
	task, err := New(process.Args("sleep", "1"), &Options{
		Hosts:  localHosts("h1", "h2", "h3"),
		Policy: process.Policy{Capture: true},
	})
	require.NoError(t, err)

	start := time.Now()
	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, outs, 3)
	assert.Less(t, time.Since(start), 2500*time.Millisecond)
}

func TestFailFast(t *testing.T) {
	factory := func(host string) (process.Command, error) {
		if host == "h2" {
			return process.Shell("exit 3"), nil
		}
		return process.Args("true"), nil
	}

	task, err := NewPerHost(factory, &Options{
		Name:     "check",
		Hosts:    localHosts("h1", "h2"),
		Policy:   process.Policy{Capture: true},
		FailFast: true,
	})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, process.ErrProcessFailed))

	var exitErr *process.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, map[string]int{"h2": 3}, exitErr.Codes)
	assert.Len(t, outs, 2)

	task, err = NewPerHost(factory, &Options{
		Name:   "check",
		Hosts:  localHosts("h1", "h2"),
		Policy: process.Policy{Capture: true},
	})
	require.NoError(t, err)

	outs, err = task.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, outs.ExitCode())
	assert.Equal(t, []string{"h2"}, outs.Failed())
}

func TestRetriesPerHost(t *testing.T) {
	dir := t.TempDir()

	task, err := NewPerHost(func(host string) (process.Command, error) {
		return process.Shell(fmt.Sprintf("echo x >> %s; exit 1", filepath.Join(dir, host))), nil
	}, &Options{
		Name:   "flaky",
		Hosts:  localHosts("h1", "h2"),
		Policy: process.Policy{Capture: true, MaxRetries: 2},
	})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, outs.ExitCode())

	for _, host := range []string{"h1", "h2"} {
		data, err := os.ReadFile(filepath.Join(dir, host))
		require.NoError(t, err)
		assert.Equal(t, "x\nx\nx\n", string(data))
	}
}

func TestAsync(t *testing.T) {
	task, err := New(process.Shell("sleep 0.5; echo done"), &Options{
		Hosts:  localHosts("h1", "h2"),
		Policy: process.Policy{Capture: true},
		Async:  true,
	})
	require.NoError(t, err)

	start := time.Now()
	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outs)
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	outs, err = task.Wait()
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, outs["h1"].Stdout)
	assert.Equal(t, []string{"done"}, outs["h2"].Stdout)
}

func TestKill(t *testing.T) {
	task, err := New(process.Args("sleep", "30"), &Options{
		Hosts:  localHosts("h1", "h2"),
		Policy: process.Policy{Capture: true},
	})
	require.NoError(t, err)
	require.NoError(t, task.Start(context.Background()))

	start := time.Now()
	outs, err := task.Kill()
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, []string{"h1", "h2"}, outs.Failed())
}

func TestDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker")

	task, err := New(process.Args("touch", path), &Options{
		Hosts:  localHosts("h1"),
		DryRun: true,
	})
	require.NoError(t, err)

	outs, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outs.Success())
	assert.NoFileExists(t, path)
}

func TestInvalidArguments(t *testing.T) {
	_, err := New(process.Command{}, &Options{})
	assert.True(t, errors.Is(err, tasks.ErrInvalidArgument))

	_, err = NewPerHost(nil, &Options{Name: "x"})
	assert.True(t, errors.Is(err, tasks.ErrInvalidArgument))

	_, err = New(process.Args("true"), &Options{Policy: process.Policy{MaxRetries: -1}})
	assert.True(t, errors.Is(err, tasks.ErrInvalidArgument))
}

func TestFactoryError(t *testing.T) {
	task, err := NewPerHost(func(host string) (process.Command, error) {
		if host == "h2" {
			return process.Command{}, errors.New("no command for h2")
		}
		return process.Args("sleep", "30"), nil
	}, &Options{
		Name:  "broken",
		Hosts: localHosts("h1", "h2"),
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = task.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command for h2")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestDefaultsToLocalhost(t *testing.T) {
	task, err := New(process.Args("true"), &Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{hosts.Local}, task.Hosts().List())
	assert.Equal(t, "true", task.Name())
}
