package ipc

import (
	"bufio"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/relaydev/conductor/errs"
)

const opClient = "ipc.Client"

// Client connects to a running daemon's IPC socket and exchanges one
// request/response line at a time (spec §4.13).
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, errs.Wrap(errs.KindIPC, opClient, err)
	}
	return &Client{conn: conn, r: bufio.NewReaderSize(conn, MaxRequestSize+1)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Send issues cmd with the given args (marshaled to JSON) and waits for the
// daemon's response.
func (c *Client) Send(cmd Command, args any) (Response, error) {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return Response{}, errs.Wrap(errs.KindParse, opClient, err)
		}
		raw = b
	}

	req := Request{ID: uuid.NewString(), Command: cmd, Args: raw}
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, errs.Wrap(errs.KindParse, opClient, err)
	}

	if err := c.conn.SetDeadline(time.Now().Add(RequestTimeout)); err != nil {
		return Response{}, errs.Wrap(errs.KindIPC, opClient, err)
	}

	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return Response{}, errs.Wrap(errs.KindIPC, opClient, err)
	}

	line, err := c.r.ReadString('\n')
	if err != nil {
		return Response{}, errs.Wrap(errs.KindIPC, opClient, err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return Response{}, errs.Wrap(errs.KindParse, opClient, err)
	}
	return resp, nil
}

// Ping is a convenience wrapper for the Ping command.
func (c *Client) Ping() (Response, error) { return c.Send(CmdPing, nil) }

// Status is a convenience wrapper for the Status command.
func (c *Client) Status() (Response, error) { return c.Send(CmdStatus, nil) }

// Reload is a convenience wrapper for the Reload command.
func (c *Client) Reload() (Response, error) { return c.Send(CmdReload, nil) }

// Stop is a convenience wrapper for the Stop command.
func (c *Client) Stop() (Response, error) { return c.Send(CmdStop, nil) }
