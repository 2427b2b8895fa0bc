// Package ua categorizes raw User-Agent headers into the coarse labels the
// analytics counters are keyed by.
package ua

import "github.com/mileusna/useragent"

const unknown = "Unknown"

// Fingerprint holds the analytics labels for one request. Fields that
// cannot be determined are "Unknown".
type Fingerprint struct {
	Browser string
	OS      string
	Device  string
}

// Parse never fails; an empty or garbage header yields an all-Unknown
// fingerprint.
func Parse(raw string) Fingerprint {
	agent := useragent.Parse(raw)

	f := Fingerprint{
		Browser: orUnknown(agent.Name),
		OS:      orUnknown(agent.OS),
		Device:  unknown,
	}

	switch {
	case agent.Bot:
		f.Device = "bot"
	case agent.Mobile:
		f.Device = "mobile"
	case agent.Tablet:
		f.Device = "tablet"
	case agent.Desktop:
		f.Device = "desktop"
	}

	return f
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
