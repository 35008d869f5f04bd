package hosts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeduplicatesAndKeepsOrder(t *testing.T) {
	h := New("b", " a ", "", "b", "c")
	assert.Equal(t, []string{"b", "a", "c"}, h.List())
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, "b,a,c", h.String())
}

func TestCanonical(t *testing.T) {
	h := New("node1", "self").WithAliases(map[string]string{
		"self":  "me",
		"me":    Local,
		"loopa": "loopb",
		"loopb": "loopa",
	})

	assert.Equal(t, Local, h.Canonical("self"))
	assert.True(t, h.IsLocal("self"))
	assert.False(t, h.IsLocal("node1"))
	assert.Equal(t, "node1", h.Canonical("node1"))
	assert.NotPanics(t, func() { h.Canonical("loopa") })
}

func TestWithoutLocal(t *testing.T) {
	h := New(Local, "node1", "127.0.0.1", "node2").WithLocalAliases()

	out := h.WithoutLocal()
	assert.Equal(t, []string{"node1", "node2"}, out.List())
	assert.Equal(t, []string{Local, "node1", "127.0.0.1", "node2"}, h.List())
}

func TestWithout(t *testing.T) {
	h := New("a", "b", "c")
	assert.Equal(t, []string{"a", "c"}, h.Without("b").List())
}

func TestValidate(t *testing.T) {
	require.Error(t, Hosts{}.Validate())
	require.NoError(t, New("a", "b").Validate())

	dup := New(Local, "127.0.0.1").WithLocalAliases()
	require.Error(t, dup.Validate())
}

func TestExpand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"node", []string{"node"}},
		{"node[1-3]", []string{"node1", "node2", "node3"}},
		{"node[08-10]", []string{"node08", "node09", "node10"}},
		{"n[1,3]-ib", []string{"n1-ib", "n3-ib"}},
		{"r[1-2]n[1-2]", []string{"r1n1", "r1n2", "r2n1", "r2n2"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Expand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandInvalid(t *testing.T) {
	for _, in := range []string{"node[3-1]", "node[a-b]", "node[1", "node[]"} {
		_, err := Expand(in)
		assert.Error(t, err, in)
	}
}

func TestExpandLimit(t *testing.T) {
	for _, in := range []string{"node[1-9999999999]", "node[0-65536]", "rack[1-300]node[1-300]"} {
		_, err := Expand(in)
		assert.ErrorContains(t, err, "65536", in)
	}

	names, err := Expand("node[1-65536]")
	require.NoError(t, err)
	assert.Len(t, names, MaxExpansion)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostfile")
	require.NoError(t, os.WriteFile(path, []byte("# compute\nnode[1-2]\n\nio1 io2 # storage\nnode1\n"), 0o600))

	h, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"node1", "node2", "io1", "io2"}, h.List())

	_, err = Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestSSHInfo(t *testing.T) {
	var nilInfo *SSHInfo
	assert.Equal(t, "node1", nilInfo.Destination("node1"))
	assert.Equal(t, 22, nilInfo.PortOrDefault())
	require.NoError(t, nilInfo.Validate())

	info := &SSHInfo{User: "cc", Port: 2222}
	require.NoError(t, info.Validate())
	assert.Equal(t, "cc@node1", info.Destination("node1"))
	assert.Equal(t, []string{"-o", "BatchMode=yes", "-p", "2222", "-o", "StrictHostKeyChecking=accept-new"},
		info.Options("-p"))
	assert.Equal(t, []string{"ssh"}, info.Wrap([]string{"ssh"}))

	info.Password = "secret"
	assert.Equal(t, []string{"sshpass", "-p", "secret", "ssh"}, info.Wrap([]string{"ssh"}))

	require.Error(t, (&SSHInfo{Port: 70000}).Validate())
	require.Error(t, (&SSHInfo{Key: filepath.Join(t.TempDir(), "nope")}).Validate())
}
