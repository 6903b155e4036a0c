// Package bus is the control channel between the CLI and the daemon: a unix socket that
// carries one JSON request per connection and a text response, plus the daemon pid file.
package bus

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "hyprscribe.pid"
const ProtoVer = "0.2"

const (
	StatusOK     = "OK"
	StatusErr    = "ERR"
	StatusStatus = "STATUS"
)

// Request is sent as a single JSON line.
type Request struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args,omitempty"`
}

// Response is the first line's status word and message plus any following lines.
type Response struct {
	Status  string
	Message string
	Body    string
}

func (r Response) Err() error {
	if r.Status == StatusErr {
		return errors.New(r.Message)
	}
	return nil
}

// ~/.cache/hyprscribe/control.sock
func getSockPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hyprscribe", SockName), nil
}

// ~/.cache/hyprscribe/hyprscribe.pid
func getPidPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hyprscribe", PidName), nil
}

func SockPath() (string, error) {
	return getSockPath()
}

type socketManager struct {
	path string
}

func newSocketManager() (*socketManager, error) {
	path, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: path}, nil
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", s.path, 2*time.Second)
}

func (s *socketManager) send(req Request) (Response, error) {
	c, err := s.dial()
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer c.Close()

	if err := WriteRequest(c, req); err != nil {
		return Response{}, err
	}
	data, err := io.ReadAll(c)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return ParseResponse(string(data))
}

type pidManager struct {
	path string
}

func newPidManager() (*pidManager, error) {
	path, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: path}, nil
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

// checkExisting fails when the pid file names a live process, and removes stale or
// unreadable pid files.
func (p *pidManager) checkExisting() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		_ = os.Remove(p.path)
		return nil
	}
	if !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func Listen() (net.Listener, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

// Send dials the daemon, sends one request and reads the full response.
func Send(cmd string, args ...string) (Response, error) {
	sm, err := newSocketManager()
	if err != nil {
		return Response{}, err
	}
	return sm.send(Request{Cmd: cmd, Args: args})
}

func CheckExistingDaemon() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.create()
}

func RemovePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.remove()
}

func WriteRequest(w io.Writer, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return nil
}

// ReadRequest reads one JSON line from r.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return req, fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	if req.Cmd == "" {
		return req, errors.New("decode request: missing cmd")
	}
	return req, nil
}

// WriteResponse writes "<status> <message>\n" followed by body, if any.
func WriteResponse(w io.Writer, resp Response) error {
	var b strings.Builder
	b.WriteString(resp.Status)
	if resp.Message != "" {
		b.WriteByte(' ')
		b.WriteString(strings.ReplaceAll(resp.Message, "\n", " "))
	}
	b.WriteByte('\n')
	if resp.Body != "" {
		b.WriteString(resp.Body)
		if !strings.HasSuffix(resp.Body, "\n") {
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func ParseResponse(data string) (Response, error) {
	head, body, _ := strings.Cut(data, "\n")
	if head == "" {
		return Response{}, errors.New("empty response from daemon")
	}
	status, msg, _ := strings.Cut(head, " ")
	switch status {
	case StatusOK, StatusErr, StatusStatus:
	default:
		return Response{}, fmt.Errorf("malformed response %q", head)
	}
	return Response{Status: status, Message: msg, Body: body}, nil
}

func OK(msg string) Response {
	return Response{Status: StatusOK, Message: msg}
}

func Err(err error) Response {
	return Response{Status: StatusErr, Message: err.Error()}
}
