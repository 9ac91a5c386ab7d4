// Command conductorctl is the control CLI for conductord (spec §4.13): it
// dials the daemon's Unix socket and issues one IPC command per invocation.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/relaydev/conductor/ipc"
)

func main() {
	socketPath := flag.String("socket", defaultSocketPath(), "path to the daemon's control IPC Unix socket")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	c, err := ipc.Dial(*socketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "conductorctl:", err)
		os.Exit(1)
	}
	defer c.Close()

	var resp ipc.Response
	switch args[0] {
	case "ping":
		resp, err = c.Ping()
	case "status":
		resp, err = c.Status()
	case "reload":
		resp, err = c.Reload()
	case "stop":
		resp, err = c.Stop()
	case "set-mode":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "conductorctl: set-mode requires a mode name")
			os.Exit(1)
		}
		resp, err = c.Send(ipc.CmdSetMode, map[string]string{"mode": args[1]})
	case "list-modes":
		resp, err = c.Send(ipc.CmdListModes, nil)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "conductorctl:", err)
		os.Exit(1)
	}

	printResponse(resp)
}

func printResponse(resp ipc.Response) {
	if resp.Status == ipc.StatusError {
		fmt.Fprintf(os.Stderr, "error (%d): %s\n", resp.Error.Code, resp.Error.Message)
		os.Exit(1)
	}
	if len(resp.Data) == 0 {
		fmt.Println("ok")
		return
	}
	var pretty map[string]any
	if err := json.Unmarshal(resp.Data, &pretty); err != nil {
		fmt.Println(string(resp.Data))
		return
	}
	b, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(b))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: conductorctl [-socket path] <ping|status|reload|stop|set-mode NAME|list-modes>")
}

func defaultSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}
	return dir + "/conductor.sock"
}
