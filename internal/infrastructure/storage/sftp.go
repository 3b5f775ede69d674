package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var (
	ErrSSHConnection     = errors.New("sftp: connection failed")
	ErrSSHAuthentication = errors.New("sftp: authentication failed")
)

type SFTPConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	Root           string
	Timeout        time.Duration
	MaxRetries     int
}

type dialFunc func(ctx context.Context) (*sftp.Client, io.Closer, error)

// SFTPDisk stores files on a remote host over SFTP. The session is opened
// lazily and reopened after the connection drops.
type SFTPDisk struct {
	config SFTPConfig
	dial   dialFunc

	mu     sync.Mutex
	client *sftp.Client
	conn   io.Closer
}

func NewSFTPDisk(cfg SFTPConfig) *SFTPDisk {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Root == "" {
		cfg.Root = "/"
	}
	d := &SFTPDisk{config: cfg}
	d.dial = d.connectWithRetry
	return d
}

func (d *SFTPDisk) getAuthMethods() ([]ssh.AuthMethod, error) {
	var authMethods []ssh.AuthMethod

	if d.config.PrivateKeyPath != "" {
		keyPath, err := homedir.Expand(d.config.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSSHAuthentication, err)
		}
		key, err := os.ReadFile(keyPath)
		if err != nil && d.config.Password == "" {
			return nil, fmt.Errorf("%w: cannot read private key %s", ErrSSHAuthentication, keyPath)
		}
		if err == nil {
			signer, err := ssh.ParsePrivateKey(key)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid private key", ErrSSHAuthentication)
			}
			authMethods = append(authMethods, ssh.PublicKeys(signer))
		}
	}

	if d.config.Password != "" {
		authMethods = append(authMethods, ssh.Password(d.config.Password))
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("%w: no credentials provided", ErrSSHAuthentication)
	}
	return authMethods, nil
}

// connectWithRetry dials the SSH server with exponential backoff and opens an
// SFTP session on top of it.
func (d *SFTPDisk) connectWithRetry(ctx context.Context) (*sftp.Client, io.Closer, error) {
	authMethods, err := d.getAuthMethods()
	if err != nil {
		return nil, nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            d.config.User,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.config.Timeout,
	}
	addr := net.JoinHostPort(d.config.Host, fmt.Sprint(d.config.Port))

	var client *ssh.Client
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(d.config.MaxRetries-1)),
		ctx,
	)
	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		dialer := net.Dialer{Timeout: d.config.Timeout, KeepAlive: 60 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}

		conn.SetDeadline(time.Now().Add(d.config.Timeout))
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
		if err != nil {
			conn.Close()
			if strings.Contains(err.Error(), "unable to authenticate") {
				return backoff.Permanent(fmt.Errorf("%w: %v", ErrSSHAuthentication, err))
			}
			return err
		}
		conn.SetDeadline(time.Time{})
		client = ssh.NewClient(c, chans, reqs)
		return nil
	}, policy)
	if err != nil {
		if errors.Is(err, ErrSSHAuthentication) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %s: %v (after %d attempts)", ErrSSHConnection, addr, err, attempts)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	return sftpClient, client, nil
}

func (d *SFTPDisk) session(ctx context.Context) (*sftp.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}
	client, conn, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	d.client, d.conn = client, conn
	return client, nil
}

// check drops the cached session when err shows the connection is gone.
func (d *SFTPDisk) check(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sftp.ErrSSHFxConnectionLost) || errors.Is(err, io.EOF) {
		d.Close()
	}
	return err
}

func (d *SFTPDisk) resolve(p string) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return path.Join(d.config.Root, clean), nil
}

func (d *SFTPDisk) Put(ctx context.Context, p string, r io.Reader) (int64, error) {
	full, err := d.resolve(p)
	if err != nil {
		return 0, err
	}
	client, err := d.session(ctx)
	if err != nil {
		return 0, err
	}

	if err := client.MkdirAll(path.Dir(full)); err != nil {
		return 0, d.check(fmt.Errorf("failed to create remote directory: %w", err))
	}

	tmp := full + ".part"
	remoteFile, err := client.Create(tmp)
	if err != nil {
		return 0, d.check(fmt.Errorf("failed to create remote file: %w", err))
	}
	written, err := remoteFile.ReadFrom(contextReader{ctx: ctx, r: r})
	if closeErr := remoteFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		client.Remove(tmp)
		return written, d.check(fmt.Errorf("failed to upload %s: %w", p, err))
	}

	if err := client.PosixRename(tmp, full); err != nil {
		// not every server implements posix-rename
		client.Remove(full)
		if err := client.Rename(tmp, full); err != nil {
			client.Remove(tmp)
			return written, d.check(fmt.Errorf("failed to move %s into place: %w", p, err))
		}
	}
	return written, nil
}

func (d *SFTPDisk) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	client, err := d.session(ctx)
	if err != nil {
		return nil, err
	}
	f, err := client.Open(full)
	if err != nil {
		return nil, d.check(err)
	}
	return f, nil
}

func (d *SFTPDisk) Exists(ctx context.Context, p string) (bool, error) {
	full, err := d.resolve(p)
	if err != nil {
		return false, err
	}
	client, err := d.session(ctx)
	if err != nil {
		return false, err
	}
	if _, err := client.Stat(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, d.check(err)
	}
	return true, nil
}

func (d *SFTPDisk) Delete(ctx context.Context, p string) error {
	full, err := d.resolve(p)
	if err != nil {
		return err
	}
	client, err := d.session(ctx)
	if err != nil {
		return err
	}
	if err := client.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return d.check(err)
	}
	return nil
}

func (d *SFTPDisk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	if d.conn != nil {
		d.conn.Close()
	}
	d.client, d.conn = nil, nil
	return err
}
