package oauth

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommand resolves the platform launcher invocation for an
// authorization URL.
func browserCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "linux":
		return "xdg-open", []string{url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "cmd", []string{"/c", "start", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser hands an authorization URL to the system browser and returns
// without waiting for the launcher process: user consent happens out of band
// and its result arrives through the callback listener, not through this
// call. Callers treat a launch failure as non-fatal and surface the URL for
// manual navigation.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
