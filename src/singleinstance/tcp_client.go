package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

type tcpClient struct{ port int }

func newTcpClient(port int) Client { return &tcpClient{port: port} }

func (c *tcpClient) Send(ctx context.Context, path string) (bool, error) {
	if strings.ContainsAny(path, "\r\n") {
		return false, fmt.Errorf("path must be a single line: %q", path)
	}
	deadline := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}

	addr := net.JoinHostPort(residentHost, strconv.Itoa(c.port))
	if !ping(addr, deadline) {
		return false, nil
	}

	conn, err := net.DialTimeout("tcp", addr, deadline)
	if err != nil {
		return false, nil
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(deadline))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(openPrefix + path + "\n"); err != nil {
		return true, err
	}
	if err := w.Flush(); err != nil {
		return true, err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, err
	}
	switch status {
	case okResponse:
		return true, nil
	case errorResponse:
		msg, _ := io.ReadAll(br)
		return true, errors.New(string(msg))
	}
	return true, fmt.Errorf("unexpected resident response %q", strings.TrimSpace(status))
}
