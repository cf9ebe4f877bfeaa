package browser

import (
	"context"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// File extensions that a submission run must never download or execute.
var dangerousExtensions = []string{
	".exe", ".msi", ".dmg", ".pkg", ".apk",
	".bat", ".cmd", ".sh", ".ps1", ".scr", ".vbs", ".jar",
	".zip", ".rar", ".7z", ".tar", ".gz", ".iso",
}

// Resource types not needed for filling and submitting a form. Blocking them
// cuts page weight and keeps the pool responsive.
var blockedResourceTypes = map[network.ResourceType]bool{
	network.ResourceTypeMedia:     true,
	network.ResourceTypeFont:      true,
	network.ResourceTypeWebSocket: true,
}

var blockedURLSchemes = []string{
	"javascript:",
	"vbscript:",
	"data:text/html",
}

// shouldBlockRequest decides whether a paused request is dropped. The URL
// check is case-insensitive and ignores the query string for the extension
// match.
func shouldBlockRequest(url string, resourceType network.ResourceType) bool {
	lower := strings.ToLower(url)

	for _, scheme := range blockedURLSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}

	path := lower
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range dangerousExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return blockedResourceTypes[resourceType]
}

// attachInterceptor enables the fetch domain on a context and installs the
// request filter. Must be attached before the first navigation.
func attachInterceptor(ctx context.Context, logger arbor.ILogger) error {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		event, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(ctx)
			execCtx := cdp.WithExecutor(ctx, c.Target)

			if shouldBlockRequest(event.Request.URL, event.ResourceType) {
				logger.Debug().
					Str("url", event.Request.URL).
					Str("resource_type", string(event.ResourceType)).
					Msg("Blocked request")
				if err := fetch.FailRequest(event.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil {
					logger.Debug().Err(err).Msg("Failed to block request")
				}
				return
			}

			if err := fetch.ContinueRequest(event.RequestID).Do(execCtx); err != nil {
				logger.Debug().Err(err).Msg("Failed to continue request")
			}
		}()
	})

	return chromedp.Run(ctx, fetch.Enable())
}

// attachPopupCloser closes any window a page opens. Popups are never part of
// a legitimate submission flow here and leaving them open leaks targets.
func attachPopupCloser(browserCtx context.Context, logger arbor.ILogger) {
	chromedp.ListenBrowser(browserCtx, func(ev interface{}) {
		event, ok := ev.(*target.EventTargetCreated)
		if !ok {
			return
		}
		info := event.TargetInfo
		if info.Type != "page" || info.OpenerID == "" {
			return
		}
		go func() {
			c := chromedp.FromContext(browserCtx)
			execCtx := cdp.WithExecutor(browserCtx, c.Browser)
			if err := target.CloseTarget(info.TargetID).Do(execCtx); err != nil {
				logger.Debug().Err(err).Str("target_id", string(info.TargetID)).Msg("Failed to close popup")
				return
			}
			logger.Debug().Str("url", info.URL).Msg("Popup closed")
		}()
	})
}
