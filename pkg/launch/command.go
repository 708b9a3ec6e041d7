package launch

import (
	"context"
	"fmt"
	"os/exec"
	"slices"

	"go.uber.org/zap"
)

// URLPlaceholder in a command's arguments is replaced with the launch URL.
// Commands without it get the URL appended.
const URLPlaceholder = "{url}"

// Command launches hosts by running a configured program per scheme, such
// as "xdg-open {url}".
type Command struct {
	argv map[string][]string
	log  *zap.Logger
}

// NewCommand builds a launcher from scheme → argv. Empty commands are
// rejected.
func NewCommand(handlers map[string][]string, log *zap.Logger) (*Command, error) {
	if log == nil {
		log = zap.L()
	}
	c := &Command{argv: make(map[string][]string, len(handlers)), log: log.Named("launch")}
	for id, argv := range handlers {
		if len(argv) == 0 || argv[0] == "" {
			return nil, fmt.Errorf("launch: empty command for %q", id)
		}
		c.argv[Scheme(id)] = slices.Clone(argv)
	}
	return c, nil
}

// CanLaunch reports whether id has a command whose program is on PATH.
func (c *Command) CanLaunch(id string) bool {
	argv, ok := c.argv[Scheme(id)]
	if !ok {
		return false
	}
	_, err := exec.LookPath(argv[0])
	return err == nil
}

// Launch runs the command and waits for it. A non-zero exit is a failure.
func (c *Command) Launch(ctx context.Context, id, hint string) bool {
	argv, ok := c.argv[Scheme(id)]
	if !ok {
		return false
	}
	u := URL(id, hint)
	args := make([]string, 0, len(argv))
	replaced := false
	for _, a := range argv[1:] {
		if a == URLPlaceholder {
			a, replaced = u, true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, u)
	}
	out, err := exec.CommandContext(ctx, argv[0], args...).CombinedOutput()
	if err != nil {
		c.log.Warn("launch command failed",
			zap.String("scheme", Scheme(id)),
			zap.String("program", argv[0]),
			zap.ByteString("output", out),
			zap.Error(err))
		return false
	}
	c.log.Debug("launched host", zap.String("scheme", Scheme(id)), zap.String("url", u))
	return true
}
