// Package device talks to the handlebar display over plain http.
package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const DefaultURL = "http://10.103.207.13/command"

// Command is what the display understands.
type Command string

const (
	Left  Command = "left"
	Right Command = "right"
	Up    Command = "up"
)

func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case Left, Right, Up:
		return c, nil
	}
	return "", fmt.Errorf("unknown device command '%s'", s)
}

type NetworkError struct {
	Detail string
}

func (e *NetworkError) Error() string {
	return "device error: " + e.Detail
}

// Doer sends a request and returns its response. *http.Client is a Doer.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Channel struct {
	url       string
	transport Doer
}

func NewChannel(url string, transport Doer) *Channel {
	if url == "" {
		url = DefaultURL
	}
	if transport == nil {
		transport = http.DefaultClient
	}
	return &Channel{url: url, transport: transport}
}

// Send posts the command as is and returns whatever the display answered.
// The status code is not checked. Concurrent sends are not serialized.
func (c *Channel) Send(ctx context.Context, command Command) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(string(command)))
	if err != nil {
		return "", &NetworkError{Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.transport.Do(req)
	if err != nil {
		return "", &NetworkError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return "", &NetworkError{Detail: "no data"}
	}

	reply := string(data)
	log.WithFields(log.Fields{
		"command": command,
		"status":  resp.StatusCode,
	}).Debugf("Device replied '%s'", reply)

	return reply, nil
}
