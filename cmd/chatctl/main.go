// Command chatctl is a terminal client for the chat gateway.
//
//	chatctl [-addr URL] [-thread ID] [-key KEY] message...
//	chatctl -threads
//
// The gateway address defaults to $HMS_GATEWAY_URL, then http://localhost:8080.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/intelligentbasedhms/hms-gateway/internal/sysutil"
)

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

type chatResponse struct {
	ThreadID  string `json:"thread_id"`
	Assistant string `json:"assistant"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Detail    string `json:"detail"`
}

type threadsResponse struct {
	Threads []string `json:"threads"`
}

func main() {
	addr := flag.String("addr", sysutil.FirstNonEmpty(os.Getenv("HMS_GATEWAY_URL"), "http://localhost:8080"), "gateway base URL")
	thread := flag.String("thread", "", "continue this thread id")
	key := flag.String("key", "", "Idempotency-Key for the turn")
	listThreads := flag.Bool("threads", false, "list thread ids and exit")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: chatctl [flags] message...\n       chatctl -threads\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if sysutil.IsTruthy(os.Getenv("CHATCTL_NO_COLOR")) {
		color.NoColor = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c := &client{base: strings.TrimRight(*addr, "/"), hc: &http.Client{}}

	var err error
	switch {
	case *listThreads:
		err = cmdThreads(ctx, c)
	case flag.NArg() > 0:
		err = cmdChat(ctx, c, strings.Join(flag.Args(), " "), *thread, *key)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func cmdChat(ctx context.Context, c *client, message, threadID, key string) error {
	var resp chatResponse
	replayed, err := c.postJSON(ctx, "/chat", chatRequest{Message: message, ThreadID: threadID}, key, &resp)
	if err != nil {
		return err
	}

	dim := color.New(color.Faint)
	dim.Printf("thread %s", resp.ThreadID)
	if replayed {
		dim.Print(" (replayed)")
	}
	fmt.Println()
	color.New(color.FgCyan).Println(resp.Assistant)
	return nil
}

func cmdThreads(ctx context.Context, c *client) error {
	var resp threadsResponse
	if err := c.getJSON(ctx, "/threads", &resp); err != nil {
		return err
	}
	if len(resp.Threads) == 0 {
		color.Yellow("no threads yet")
		return nil
	}
	for _, id := range resp.Threads {
		fmt.Println(id)
	}
	return nil
}

type client struct {
	base string
	hc   *http.Client
}

func (c *client) postJSON(ctx context.Context, path string, body any, key string, out any) (bool, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	res, err := c.do(req, out)
	if err != nil {
		return false, err
	}
	return res.Header.Get("Idempotency-Replayed") == "true", nil
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	_, err = c.do(req, out)
	return err
}

func (c *client) do(req *http.Request, out any) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if res.StatusCode/100 != 2 {
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Detail != "" {
			return nil, fmt.Errorf("%s (%d %s, request %s)", er.Detail, res.StatusCode, er.Code, er.RequestID)
		}
		return nil, fmt.Errorf("gateway returned %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return res, nil
}
