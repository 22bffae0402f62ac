// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"

	"github.com/mileusna/useragent"
)

// RequestInfo describes the HTTP request an event originated from.
type RequestInfo struct {
	IP        string
	UserAgent string
	Path      string
}

type requestKey struct{}

// WithRequest attaches request details to ctx for audit events.
func WithRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestKey{}, info)
}

// RequestFrom returns the request details attached to ctx.
func RequestFrom(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestKey{}).(RequestInfo)
	return info, ok
}

// ParsedUA is a user-agent summary stored with audit events.
type ParsedUA struct {
	Browser    string
	OS         string
	DeviceType string
}

// ParseUserAgent extracts browser, OS and device type from a user agent
// string.
func ParseUserAgent(s string) ParsedUA {
	ua := useragent.Parse(s)

	result := ParsedUA{Browser: ua.Name, OS: ua.OS}
	if result.Browser == "" {
		result.Browser = "Unknown"
	}
	if result.OS == "" {
		result.OS = "Unknown"
	}

	switch {
	case ua.Bot:
		result.DeviceType = "bot"
	case ua.Tablet:
		result.DeviceType = "tablet"
	case ua.Mobile:
		result.DeviceType = "mobile"
	default:
		result.DeviceType = "desktop"
	}
	return result
}
