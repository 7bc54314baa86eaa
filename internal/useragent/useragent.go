// Package useragent derives coarse browser/OS labels from a User-Agent
// header for session listings. Good-enough token matching; unknown
// agents simply yield empty strings.
package useragent

import "strings"

// Parsed holds the derived device metadata stored on a session.
type Parsed struct {
	Browser string
	OS      string
}

// Parse extracts browser and operating system names from a raw
// User-Agent string. Order matters: Edge and Opera embed "Chrome",
// Chrome embeds "Safari", iOS devices embed "Mac OS X".
func Parse(ua string) Parsed {
	return Parsed{Browser: browser(ua), OS: operatingSystem(ua)}
}

func browser(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"):
		return "Edge"
	case strings.Contains(ua, "OPR/"), strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Firefox/"):
		return "Firefox"
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "CriOS/"):
		return "Chrome"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	case strings.Contains(ua, "MicroMessenger"):
		return "WeChat"
	case strings.Contains(ua, "curl/"):
		return "curl"
	default:
		return ""
	}
}

func operatingSystem(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		return "iOS"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return ""
	}
}
