package transfer

import (
	"context"
	"net"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/jarvis-cd/jarvis/src/hosts"
	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/illikainen/go-utils/src/errorx"
	"github.com/illikainen/go-utils/src/iofs"
	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/errgroup"
)

func init() {
	lo.Must0(Register(SFTP, newSFTPStrategy))
}

const dialTimeout = 30 * time.Second

// Dials to the same address share a breaker so that an unreachable host
// fails fast for the remaining tasks of a phase.
var breakers = struct {
	sync.Mutex
	m map[string]*gobreaker.CircuitBreaker
}{m: map[string]*gobreaker.CircuitBreaker{}}

type sftpStrategy struct {
	name string
	ssh  *hosts.SSHInfo
}

func newSFTPStrategy(opts *Options) (Strategy, error) {
	return &sftpStrategy{name: opts.Name, ssh: opts.SSH}, nil
}

// Copy opens one connection per host and transfers the plan over it.  The
// first failure on a host aborts the rest of that host's transfers.
func (s *sftpStrategy) Copy(ctx context.Context, plan *Plan, hosts []string) outputs.Outputs {
	outs := outputs.Outputs{}
	mu := sync.Mutex{}
	g := errgroup.Group{}

	for _, host := range hosts {
		host := host
		g.Go(func() error {
			diff, err := s.copy(ctx, plan, host)

			var out *outputs.Output
			if err != nil {
				log.Warnf("%s: %s: %s", host, s.name, err)
				out = outputs.Failed(Type, s.name, host, err)
				out.Diff = diff
			} else {
				out = outputs.Done(Type, s.name, host, diff)
			}

			mu.Lock()
			defer mu.Unlock()
			outs.Add(out)
			return nil
		})
	}
	_ = g.Wait()

	return outs
}

func (s *sftpStrategy) copy(ctx context.Context, plan *Plan, host string) (diff map[string][]string,
	err error) {
	diff = map[string][]string{}

	conn, err := dial(ctx, host, s.ssh)
	if err != nil {
		return diff, err
	}
	defer errorx.Defer(conn.Close, &err)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := sftp.NewClient(conn, sftp.UseConcurrentWrites(true))
	if err != nil {
		return diff, errors.WithStack(err)
	}
	defer errorx.Defer(client.Close, &err)

	for _, dir := range plan.Parents() {
		err := client.MkdirAll(filepath.ToSlash(dir))
		if err != nil {
			return diff, errors.Wrapf(err, "mkdir %s", dir)
		}
		diff["mkdir"] = append(diff["mkdir"], dir)
	}

	for _, entry := range plan.Files() {
		if err := ctx.Err(); err != nil {
			return diff, errors.WithStack(err)
		}

		log.Debugf("%s: %s -> %s", host, entry.Src, entry.Dst)
		err := upload(client, entry.Src, path.Clean(filepath.ToSlash(entry.Dst)))
		if err != nil {
			return diff, errors.Wrapf(err, "%s -> %s", entry.Src, entry.Dst)
		}
		diff["file"] = append(diff["file"], entry.Dst)
	}

	return diff, nil
}

func upload(client *sftp.Client, src string, dst string) (err error) {
	stat, err := os.Stat(src)
	if err != nil {
		return errors.WithStack(err)
	}

	in, err := os.Open(src) // #nosec G304
	if err != nil {
		return errors.WithStack(err)
	}
	defer errorx.Defer(in.Close, &err)

	out, err := client.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return errors.WithStack(err)
	}
	defer errorx.Defer(out.Close, &err)

	n, err := out.ReadFrom(in)
	if err != nil {
		return errors.WithStack(err)
	}
	if n != stat.Size() {
		return errors.Errorf("invalid write size")
	}

	return errors.WithStack(client.Chmod(dst, stat.Mode().Perm()))
}

func dial(ctx context.Context, host string, info *hosts.SSHInfo) (*ssh.Client, error) {
	config, agentConn, err := clientConfig(info)
	if err != nil {
		return nil, err
	}
	// The agent is only consulted during the handshake.
	defer closeAgent(agentConn)

	addr := net.JoinHostPort(host, strconv.Itoa(info.PortOrDefault()))
	conn, err := breakerFor(addr).Execute(func() (interface{}, error) {
		dialer := net.Dialer{Timeout: dialTimeout}
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		c, chans, reqs, err := ssh.NewClientConn(nc, addr, config)
		if err != nil {
			_ = nc.Close()
			return nil, errors.WithStack(err)
		}
		return ssh.NewClient(c, chans, reqs), nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s", addr)
	}

	return conn.(*ssh.Client), nil
}

func breakerFor(addr string) *gobreaker.CircuitBreaker {
	breakers.Lock()
	defer breakers.Unlock()

	cb, ok := breakers.m[addr]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    addr,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Debugf("%s: dial breaker %s -> %s", name, from, to)
			},
		})
		breakers.m[addr] = cb
	}
	return cb
}

// clientConfig returns the configuration for one connection and the
// ssh-agent connection its auth methods use, if any.  The caller closes the
// agent connection once the handshake is done.
func clientConfig(info *hosts.SSHInfo) (*ssh.ClientConfig, net.Conn, error) {
	name := ""
	if info != nil {
		name = info.User
	}
	if name == "" {
		u, err := user.Current()
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		name = u.Username
	}

	auth, agentConn, err := authMethods(info)
	if err != nil {
		return nil, nil, err
	}

	callback := ssh.InsecureIgnoreHostKey() // #nosec G106
	if info != nil && info.KnownHosts != "" {
		callback, err = knownhosts.New(info.KnownHosts)
		if err != nil {
			closeAgent(agentConn)
			return nil, nil, errors.WithStack(err)
		}
	}

	return &ssh.ClientConfig{
		User:            name,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         dialTimeout,
	}, agentConn, nil
}

func authMethods(info *hosts.SSHInfo) ([]ssh.AuthMethod, net.Conn, error) {
	var methods []ssh.AuthMethod

	if info != nil && info.Password != "" {
		methods = append(methods, ssh.Password(info.Password))
	}

	keys := []string{}
	if info != nil && info.Key != "" {
		keys = append(keys, info.Key)
	} else if home, err := os.UserHomeDir(); err == nil {
		for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
			keys = append(keys, filepath.Join(home, ".ssh", name))
		}
	}

	var signers []ssh.Signer
	for _, key := range keys {
		exists, err := iofs.Exists(key)
		if err != nil || !exists {
			continue
		}

		data, err := iofs.ReadFile(key)
		if err != nil {
			return nil, nil, err
		}

		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			if info != nil && key == info.Key {
				return nil, nil, errors.Wrapf(err, "%s", key)
			}
			log.Debugf("skipping %s: %s", key, err)
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	var agentConn net.Conn
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			log.Debugf("ssh-agent %s: %s", sock, err)
		} else {
			agentConn = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if len(methods) == 0 {
		return nil, nil, errors.Errorf("no ssh credentials available")
	}
	return methods, agentConn, nil
}

func closeAgent(conn net.Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		log.Debugf("ssh-agent: %s", err)
	}
}
