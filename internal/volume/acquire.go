package volume

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nace/vcmounter/internal/engine"
	"github.com/nace/vcmounter/internal/system"
)

// Reply classifies an operator answer
type Reply int

const (
	ReplyValue Reply = iota
	ReplyRetry
	ReplyAbort
)

var (
	abortWords = []string{"quit", "exit", "skip", "stop"}
	retryWords = []string{"retry", "again", "reset", "restart"}
)

// Prompts shown while acquiring credentials
const (
	PasswordPrompt = "Enter encrypted volumes password:"
	PIMPrompt      = "Enter encrypted volumes PIM:"
)

// Classify sorts a reply into value, retry or abort. Control words match
// case-insensitively; a blank reply asks for a retry.
func Classify(reply []byte) Reply {
	r := bytes.TrimSpace(reply)
	if len(r) == 0 {
		return ReplyRetry
	}
	for _, w := range abortWords {
		if bytes.EqualFold(r, []byte(w)) {
			return ReplyAbort
		}
	}
	for _, w := range retryWords {
		if bytes.EqualFold(r, []byte(w)) {
			return ReplyRetry
		}
	}
	return ReplyValue
}

// acquire fills the credentials: password, PIM, then the optional hash and
// cipher selections. A retry reply wipes what was entered and starts over;
// this repeats until every field is filled or the operator aborts.
func (o *Orchestrator) acquire() (Reply, error) {
	for {
		reply, err := o.acquireOnce()
		if err != nil {
			o.creds.Wipe()
			return ReplyAbort, err
		}
		switch reply {
		case ReplyValue:
			return ReplyValue, nil
		case ReplyAbort:
			o.creds.Wipe()
			return ReplyAbort, nil
		}
		o.creds.Wipe()
		o.log.Info("Restarting credential entry")
	}
}

func (o *Orchestrator) acquireOnce() (Reply, error) {
	if r, err := o.askSecret(PasswordPrompt, "", o.creds.SetPassword); r != ReplyValue || err != nil {
		return r, err
	}
	if r, err := o.askSecret(PIMPrompt, o.opts.PresetPIM, o.creds.SetPIM); r != ReplyValue || err != nil {
		return r, err
	}
	if r, err := o.askAlgorithm("HASH", engine.HashAlgorithms, o.opts.PresetHash, o.opts.SelectHash, o.creds.SetHash); r != ReplyValue || err != nil {
		return r, err
	}
	return o.askAlgorithm("ENC", engine.EncryptionAlgorithms, o.opts.PresetEncryption, o.opts.SelectEncryption, o.creds.SetCipher)
}

// askSecret asks for a mandatory secret unless a preset supplies it
func (o *Orchestrator) askSecret(prompt, preset string, set func([]byte) error) (Reply, error) {
	var reply []byte
	if preset != "" {
		reply = []byte(preset)
	} else {
		var err error
		reply, err = o.prompter.Ask(prompt)
		if err != nil {
			return ReplyAbort, err
		}
	}
	defer system.Zero(reply)

	if r := Classify(reply); r != ReplyValue {
		return r, nil
	}
	if err := set(bytes.TrimSpace(reply)); err != nil {
		if preset == "" && errors.Is(err, system.ErrSecretTooLong) {
			o.log.Warning("Reply is longer than %d bytes", system.SecureBufferSize)
			return ReplyRetry, nil
		}
		return ReplyAbort, err
	}
	return ReplyValue, nil
}

// askAlgorithm resolves an optional algorithm selection. Blank keeps the
// engine default; an invalid choice restarts the sequence.
func (o *Orchestrator) askAlgorithm(label string, choices []string, preset string, ask bool, set func(string) error) (Reply, error) {
	if preset != "" {
		name, err := engine.SelectAlgorithm(choices, preset)
		if err != nil {
			return ReplyAbort, fmt.Errorf("preset %s: %w", label, err)
		}
		return ReplyValue, set(name)
	}
	if !ask {
		return ReplyValue, set("")
	}

	reply, err := o.prompter.Ask(fmt.Sprintf("%s: %s | Num:", label, engine.Menu(choices)))
	if err != nil {
		return ReplyAbort, err
	}
	defer system.Zero(reply)

	if len(bytes.TrimSpace(reply)) == 0 {
		return ReplyValue, set("")
	}
	if r := Classify(reply); r != ReplyValue {
		return r, nil
	}
	name, err := engine.SelectAlgorithm(choices, string(reply))
	if err != nil {
		o.log.Warning("%s: %v", label, err)
		return ReplyRetry, nil
	}
	return ReplyValue, set(name)
}
