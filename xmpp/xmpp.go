// Package xmpp pushes navigation events to a chat contact.
package xmpp

import (
	"crypto/tls"
	"errors"
	"strings"

	"github.com/mattn/go-xmpp"
	log "github.com/sirupsen/logrus"
)

var errMissingConfig = errors.New("missing xmpp config")

type (
	Config struct {
		Host     string
		Jid      string
		Password string
		To       string
	}

	Xmpp struct {
		Config Config
	}
)

// Enabled tells if enough is configured to send messages.
func (c Config) Enabled() bool {
	return len(c.Jid) > 0 && len(c.Password) > 0 && len(c.To) > 0
}

func serverName(jid string) string {
	parts := strings.SplitN(jid, "@", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.SplitN(parts[1], "/", 2)[0]
}

func (x Xmpp) options() (xmpp.Options, error) {
	if !x.Config.Enabled() {
		return xmpp.Options{}, errMissingConfig
	}

	host := x.Config.Host
	if len(host) == 0 {
		host = serverName(x.Config.Jid)
	}
	if len(host) == 0 {
		return xmpp.Options{}, errMissingConfig
	}

	return xmpp.Options{
		Host:          host,
		User:          x.Config.Jid,
		Password:      x.Config.Password,
		NoTLS:         true,
		StartTLS:      true,
		TLSConfig:     &tls.Config{ServerName: strings.Split(host, ":")[0]},
		Debug:         false,
		Session:       false,
		Status:        "xa",
		StatusMessage: "Riding",
	}, nil
}

// Send opens a connection, sends one chat message and closes it.
func (x Xmpp) Send(message string) error {
	options, err := x.options()
	if err != nil {
		return err
	}

	talk, err := options.NewClient()
	if err != nil {
		log.WithError(err).Errorf("Error connecting to '%s'", options.Host)
		return err
	}
	defer talk.Close()

	log.Debugf("Send '%s' to %s", message, x.Config.To)
	_, err = talk.Send(xmpp.Chat{Remote: x.Config.To, Type: "chat", Text: message})
	return err
}
