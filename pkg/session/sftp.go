// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func init() {
	Register("sftp", func(ctx context.Context, creds *Credentials) (Session, error) {
		return NewSFTP(creds)
	})
}

var _ Session = (*SFTP)(nil)

// dialFunc returns a connected sftp client and whatever must be closed after
// the client
type dialFunc func(ctx context.Context) (*sftp.Client, io.Closer, error)

// 🔐 SFTP delivers to the guard over SSH
type SFTP struct {
	addr   string
	dial   dialFunc
	client *sftp.Client
	conn   io.Closer
	cwd    string
}

// NewSFTP builds an unopened SFTP session from credentials
func NewSFTP(creds *Credentials) (*SFTP, error) {
	if creds.Host == "" {
		return nil, errors.New("sftp session requires host")
	}
	if creds.User == "" {
		return nil, errors.New("sftp session requires user")
	}

	cfg, err := sshConfig(creds)
	if err != nil {
		return nil, err
	}

	port := creds.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(creds.Host, strconv.Itoa(port))

	s := &SFTP{addr: addr}
	s.dial = func(ctx context.Context) (*sftp.Client, io.Closer, error) {
		d := net.Dialer{Timeout: cfg.Timeout}
		raw, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, nil, errors.Errorf("dialing %s: %w", addr, err)
		}
		c, chans, reqs, err := ssh.NewClientConn(raw, addr, cfg)
		if err != nil {
			raw.Close()
			return nil, nil, errors.Errorf("ssh handshake with %s: %w", addr, err)
		}
		sshClient := ssh.NewClient(c, chans, reqs)
		client, err := sftp.NewClient(sshClient)
		if err != nil {
			sshClient.Close()
			return nil, nil, errors.Errorf("starting sftp subsystem: %w", err)
		}
		return client, sshClient, nil
	}
	return s, nil
}

func sshConfig(creds *Credentials) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if creds.KeyFile != "" {
		key, err := os.ReadFile(creds.KeyFile)
		if err != nil {
			return nil, errors.Errorf("reading key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, errors.Errorf("parsing key file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		auth = append(auth, ssh.Password(creds.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("sftp session requires password or key_file")
	}

	var hostKeys ssh.HostKeyCallback
	switch {
	case creds.KnownHosts != "":
		cb, err := knownhosts.New(creds.KnownHosts)
		if err != nil {
			return nil, errors.Errorf("loading known_hosts: %w", err)
		}
		hostKeys = cb
	case creds.InsecureSkipHostCheck:
		hostKeys = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in for lab guards
	default:
		return nil, errors.New("sftp session requires known_hosts")
	}

	return &ssh.ClientConfig{
		User:            creds.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         creds.Timeout,
	}, nil
}

// Open connects and starts in the login directory
func (s *SFTP) Open(ctx context.Context) error {
	client, conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	wd, err := client.Getwd()
	if err != nil {
		client.Close()
		if conn != nil {
			conn.Close()
		}
		return errors.Errorf("reading login directory: %w", err)
	}
	s.client, s.conn, s.cwd = client, conn, wd
	zerolog.Ctx(ctx).Debug().Str("addr", s.addr).Str("cwd", wd).Msg("sftp session open")
	return nil
}

func (s *SFTP) IsConnected() bool { return s.client != nil }

func (s *SFTP) CurrentDir() string { return s.cwd }

// ChangeDir emulates cd, since the protocol itself is stateless
func (s *SFTP) ChangeDir(ctx context.Context, dir string) error {
	if s.client == nil {
		return ErrNotConnected
	}
	target := resolve(s.cwd, dir)
	info, err := s.client.Stat(target)
	if err != nil {
		return errors.Errorf("changing to %s: %w", target, err)
	}
	if !info.IsDir() {
		return errors.Errorf("changing to %s: %w", target, ErrNotDirectory)
	}
	if abs, err := s.client.RealPath(target); err == nil {
		target = abs
	}
	s.cwd = target
	return nil
}

// PutFile streams local into remote, truncating anything already there
func (s *SFTP) PutFile(ctx context.Context, local, remote string) error {
	if s.client == nil {
		return ErrNotConnected
	}

	in, err := os.Open(local)
	if err != nil {
		return errors.Errorf("opening %s: %w", local, err)
	}
	defer in.Close()

	target := resolve(s.cwd, remote)
	out, err := s.client.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return errors.Errorf("creating remote %s: %w", target, err)
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return errors.Errorf("uploading %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing remote %s: %w", target, err)
	}
	return nil
}

func (s *SFTP) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.client, s.conn = nil, nil
	if err != nil {
		return errors.Errorf("closing sftp session: %w", err)
	}
	return nil
}
