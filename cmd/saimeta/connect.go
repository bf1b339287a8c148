package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/newtron-network/saimeta/pkg/asicdb"
	"github.com/newtron-network/saimeta/pkg/channel"
	"github.com/newtron-network/saimeta/pkg/channel/virtual"
	"github.com/newtron-network/saimeta/pkg/client"
	"github.com/newtron-network/saimeta/pkg/discovery"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/util"
)

// sshPasswordEnv supplies the SSH password non-interactively.
const sshPasswordEnv = "SAIMETA_SSH_PASSWORD"

// session is a warm-started client over a switch or a dump file.
type session struct {
	schema *schema.Schema
	client *client.Client
	source discovery.Source
	tunnel *asicdb.Tunnel
}

// openSession loads the schema and warm starts a client. With a dump file
// the client runs on the in-memory channel; otherwise it talks to the
// switch's Redis, through an SSH tunnel when one is configured.
func openSession(ctx context.Context, dumpFile string, observer func(sai.Notification, error)) (*session, error) {
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	sess := &session{schema: s}

	var ch channel.Channel
	if dumpFile != "" {
		ch = virtual.New(s)
		sess.source = &discovery.FileSource{Path: dumpFile, Schema: s}
	} else {
		rc, err := sess.openRedis(ctx)
		if err != nil {
			sess.Close()
			return nil, err
		}
		ch = asicdb.NewChannel(rc, s)
		sess.source = &discovery.RedisSource{Client: rc, Schema: s}
	}

	c, err := client.New(client.Options{Schema: s, Channel: ch, Observer: observer})
	if err != nil {
		ch.Close()
		sess.Close()
		return nil, err
	}
	sess.client = c
	if err := c.Connect(ctx, sess.source); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

func (s *session) openRedis(ctx context.Context) (*asicdb.Client, error) {
	addr := redisAddr
	if sshHost != "" {
		password, err := sshPassword()
		if err != nil {
			return nil, err
		}
		t, err := asicdb.OpenTunnel(asicdb.TunnelConfig{
			Host:       sshHost,
			Port:       sshPort,
			User:       sshUser,
			Password:   password,
			KnownHosts: knownHosts,
		})
		if err != nil {
			return nil, err
		}
		s.tunnel = t
		addr = t.LocalAddr()
		util.WithField("host", sshHost).Infof("SSH tunnel on %s", addr)
	}

	rc := asicdb.NewClient(asicdb.Options{Addr: addr, AsicDB: asicDB, CountersDB: countersDB})
	if err := rc.Connect(ctx); err != nil {
		rc.Close()
		return nil, err
	}
	return rc, nil
}

// sshPassword reads the password from the environment or the terminal.
func sshPassword() (string, error) {
	if p := os.Getenv(sshPasswordEnv); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("SSH password required: set " + sshPasswordEnv + " or run interactively")
	}
	fmt.Fprintf(os.Stderr, "%s@%s password: ", sshUser, sshHost)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// Close closes the client, then the tunnel.
func (s *session) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil && !errors.Is(err, util.ErrClosed) {
			util.Warnf("closing client: %v", err)
		}
	}
	if s.tunnel != nil {
		s.tunnel.Close()
	}
}
