package goble

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/groutine"
)

// settingsCommands lists, per GOOS, the commands that open the Bluetooth
// settings, in order of preference.
var settingsCommands = map[string][][]string{
	"windows": {{"cmd", "/c", "start", "ms-settings:bluetooth"}},
	"darwin":  {{"open", "x-apple.systempreferences:com.apple.preferences.Bluetooth"}},
	"linux": {
		{"gnome-control-center", "bluetooth"},
		{"blueman-manager"},
		{"bluedevil-wizard"},
	},
}

// lookPath is overridden in tests.
var lookPath = exec.LookPath

// settingsCommand picks the first available settings command for goos.
func settingsCommand(goos string) ([]string, error) {
	for _, cmd := range settingsCommands[goos] {
		if _, err := lookPath(cmd[0]); err == nil {
			return cmd, nil
		}
	}
	return nil, fmt.Errorf("%w: no bluetooth settings launcher for %s", device.ErrUnsupported, goos)
}

// openSettings launches the settings app and returns without waiting for it.
// The app outlives ctx; ctx only gates the launch.
func openSettings(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	argv, err := settingsCommand(runtime.GOOS)
	if err != nil {
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open bluetooth settings: %w", err)
	}
	groutine.Go(context.Background(), "settings-reaper", func(context.Context) {
		_ = cmd.Wait()
	})
	return nil
}
