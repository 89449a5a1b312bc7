package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// SubprocessFileNotifier invokes one fixed command for every hook,
// passing the hook name and serialized message as arguments:
// "<command> <hook> <message>".
type SubprocessFileNotifier struct {
	Command string
	Format  Format
}

func NewSubprocessFileNotifier(command string, format Format) *SubprocessFileNotifier {
	return &SubprocessFileNotifier{Command: command, Format: format}
}

func (n *SubprocessFileNotifier) Name() string { return "subprocess-file" }

func (n *SubprocessFileNotifier) Prepare(ctx context.Context) error { return nil }

func (n *SubprocessFileNotifier) Send(ctx context.Context, hook upload.Hook, message upload.HookMessage) error {
	body, err := FormatMessage(n.Format, message)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, n.Command, string(hook), string(body))
	output, err := cmd.CombinedOutput()
	if err != nil {
		if IsPreHook(hook) {
			return upload.NewHookFailure(500, string(output), "text/plain")
		}
		return fmt.Errorf("subprocess-file notifier: command %q failed: %w (output: %s)", n.Command, err, output)
	}

	return nil
}

// SubprocessDirNotifier executes "<dir>/<hook> <message>". A missing
// executable for a given hook is an error.
type SubprocessDirNotifier struct {
	Directory string
	Format    Format
}

func NewSubprocessDirNotifier(directory string, format Format) *SubprocessDirNotifier {
	return &SubprocessDirNotifier{Directory: directory, Format: format}
}

func (n *SubprocessDirNotifier) Name() string { return "subprocess-dir" }

func (n *SubprocessDirNotifier) Prepare(ctx context.Context) error { return nil }

func (n *SubprocessDirNotifier) Send(ctx context.Context, hook upload.Hook, message upload.HookMessage) error {
	path := filepath.Join(n.Directory, string(hook))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("subprocess-dir notifier: no executable for hook %q at %s", hook, path)
	}

	body, err := FormatMessage(n.Format, message)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, path, string(body))
	output, err := cmd.CombinedOutput()
	if err != nil {
		if IsPreHook(hook) {
			return upload.NewHookFailure(500, string(output), "text/plain")
		}
		return fmt.Errorf("subprocess-dir notifier: hook %q failed: %w (output: %s)", hook, err, output)
	}

	return nil
}
