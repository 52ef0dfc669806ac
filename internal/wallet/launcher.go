package wallet

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"freetime_shop/internal/apperr"

	"github.com/skip2/go-qrcode"
)

// Launcher hands a deep link to the host so the wallet app opens.
type Launcher interface {
	Open(ctx context.Context, uri string) error
}

var ErrNoHandler = errors.New("no handler for deep link")

// DisabledLauncher is used when the host cannot open links.
type DisabledLauncher struct{}

func (DisabledLauncher) Open(context.Context, string) error {
	return apperr.External("wallet.Open", ErrNoHandler)
}

// CommandLauncher runs an opener command (xdg-open, open, ...) with the URI
// as its last argument.
type CommandLauncher struct {
	Command string
	Args    []string
}

// NewCommandLauncher splits a command line such as "xdg-open" or
// "adb shell am start -a android.intent.action.VIEW -d".
func NewCommandLauncher(cmdline string) Launcher {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return DisabledLauncher{}
	}
	return CommandLauncher{Command: fields[0], Args: fields[1:]}
}

func (l CommandLauncher) Open(ctx context.Context, uri string) error {
	args := append(append([]string(nil), l.Args...), uri)
	out, err := exec.CommandContext(ctx, l.Command, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return apperr.External("wallet.Open", err)
	}
	return nil
}

// QRCode renders uri as a PNG so it can be scanned from a second device.
func QRCode(uri string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("wallet.QRCode: %w", err)
	}
	return png, nil
}
