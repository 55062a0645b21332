package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/WuKongIM/wkframe/pkg/wkframe/client"
	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	"github.com/spf13/cobra"
)

type clientCMD struct {
	addr    string
	timeout time.Duration
	message string
}

func newClientCMD() *clientCMD {
	return &clientCMD{}
}

func (c *clientCMD) CMD() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "send messages to a running wkframe server",
		Long:  "send messages to a running wkframe server. Each input line is sent as a Data frame and the reply is printed. Type exit to quit.",
		RunE:  c.run,
	}
	cmd.Flags().StringVar(&c.addr, "addr", "127.0.0.1:9000", "server address")
	cmd.Flags().DurationVar(&c.timeout, "timeout", time.Second*10, "request timeout")
	cmd.Flags().StringVarP(&c.message, "message", "m", "", "send one message and exit")
	return cmd
}

func (c *clientCMD) run(cmd *cobra.Command, args []string) error {
	cli, err := client.Dial(c.addr, client.WithTimeout(c.timeout))
	if err != nil {
		return err
	}
	defer cli.Close()

	out := cmd.OutOrStdout()
	if c.message != "" {
		return c.send(cli, out, c.message)
	}

	fmt.Fprintf(out, "connected to %s, local %s\n", c.addr, cli.LocalAddr())
	return c.loop(cli, cmd.InOrStdin(), out)
}

func (c *clientCMD) loop(cli *client.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := c.send(cli, out, line); err != nil {
			return err
		}
	}
}

func (c *clientCMD) send(cli *client.Client, out io.Writer, text string) error {
	start := time.Now()
	h, payload, err := cli.Request(proto.Data, []byte(text))
	if err != nil {
		return err
	}
	if h.MsgType == proto.Error {
		fmt.Fprintf(out, "[%d] %s(%d): %s (%s)\n", h.RequestID, h.MsgType, h.ErrorCode, payload, time.Since(start))
		return nil
	}
	fmt.Fprintf(out, "[%d] %s: %s (%s)\n", h.RequestID, h.MsgType, payload, time.Since(start))
	return nil
}
