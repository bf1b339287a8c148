package asicdb

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/saimeta/pkg/util"
)

// DefaultRemoteRedis is where the switch's Redis listens, as seen from the
// switch itself.
const DefaultRemoteRedis = "127.0.0.1:6379"

// TunnelConfig describes an SSH hop to a switch whose Redis is not
// reachable directly.
type TunnelConfig struct {
	Host     string
	Port     int // 22 when zero
	User     string
	Password string
	// KnownHosts is a known_hosts file. Empty disables host key checking.
	KnownHosts string
	// Remote is the Redis address on the far side. DefaultRemoteRedis when empty.
	Remote string
}

// Tunnel forwards a local TCP port to the switch's Redis through SSH.
type Tunnel struct {
	localAddr string
	remote    string
	sshClient *ssh.Client
	listener  net.Listener
	done      chan struct{}
	wg        sync.WaitGroup
}

// OpenTunnel dials SSH and opens a local listener on a random port.
// Connections to LocalAddr are forwarded to cfg.Remote on the switch.
func OpenTunnel(cfg TunnelConfig) (*Tunnel, error) {
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	remote := cfg.Remote
	if remote == "" {
		remote = DefaultRemoteRedis
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, port)

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("known hosts: %w", err)
		}
		hostKey = cb
	} else {
		util.Logger.Warnf("SSH tunnel to %s: host key verification disabled", addr)
	}
	config := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKey,
		Timeout:         30 * time.Second,
	}

	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s@%s: %w", cfg.User, addr, err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("local listen: %w", err)
	}

	t := &Tunnel{
		localAddr: listener.Addr().String(),
		remote:    remote,
		sshClient: sshClient,
		listener:  listener,
		done:      make(chan struct{}),
	}
	t.wg.Add(1)
	go t.acceptLoop()
	util.WithField("tunnel", t.localAddr).Infof("forwarding to %s via %s", remote, addr)
	return t, nil
}

// LocalAddr returns the local end of the tunnel.
func (t *Tunnel) LocalAddr() string { return t.localAddr }

// Close stops the listener, closes the SSH connection and waits for the
// forwarding goroutines.
func (t *Tunnel) Close() error {
	close(t.done)
	t.listener.Close()
	// Closing the SSH client unblocks copies waiting on remote reads.
	t.sshClient.Close()
	t.wg.Wait()
	return nil
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				continue
			}
		}
		t.wg.Add(1)
		go t.forward(local)
	}
}

func (t *Tunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.sshClient.Dial("tcp", t.remote)
	if err != nil {
		util.WithField("tunnel", t.localAddr).Warnf("dial %s: %v", t.remote, err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}
