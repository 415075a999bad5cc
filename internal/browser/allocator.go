// internal/browser/allocator.go
package browser

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/domq/internal/config"
)

// allocatorFlags computes the command line switches layered over
// chromedp.DefaultExecAllocatorOptions. A false value removes a switch.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		// Hide navigator.webdriver and the automation infobar.
		"enable-automation":      false,
		"disable-blink-features": "AutomationControlled",
		"disable-extensions":     true,
	}

	if !cfg.Headless {
		flags["headless"] = false
	} else {
		flags["disable-gpu"] = true
	}

	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}

	if cfg.DisableCache {
		flags["disk-cache-size"] = "1"
		flags["media-cache-size"] = "1"
		flags["disable-application-cache"] = true
	}

	if cfg.Persona.UserAgent != "" {
		flags["user-agent"] = cfg.Persona.UserAgent
	}
	if cfg.Persona.Width > 0 && cfg.Persona.Height > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", cfg.Persona.Width, cfg.Persona.Height)
	}
	if len(cfg.Persona.Languages) > 0 {
		flags["lang"] = cfg.Persona.Languages[0]
	}

	// Containers rarely provide a usable sandbox or a large /dev/shm.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}

	// User supplied args win over everything above.
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}

// DefaultAllocatorOptions builds the exec allocator options for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	flags := allocatorFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+len(names)+1)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
