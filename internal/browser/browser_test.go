package browser

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/common"
)

func TestRandomFingerprint_DrawsFromCuratedPools(t *testing.T) {
	validViewport := func(w, h int64) bool {
		for _, vp := range viewportPool {
			if vp.width == w && vp.height == h {
				return true
			}
		}
		return false
	}

	for i := 0; i < 100; i++ {
		fp := RandomFingerprint()

		assert.True(t, validViewport(fp.ViewportWidth, fp.ViewportHeight),
			"viewport %dx%d not in pool", fp.ViewportWidth, fp.ViewportHeight)
		assert.Contains(t, timezonePool, fp.Timezone)
		assert.Contains(t, localePool, fp.Locale)
		assert.Contains(t, colorSchemePool, fp.ColorScheme)
		assert.Contains(t, scaleFactorPool, fp.DeviceScaleFactor)
		assert.Contains(t, concurrencyPool, fp.HardwareConcurrency)
		assert.Contains(t, deviceMemoryPool, fp.DeviceMemory)
	}
}

func TestMaskingScript_EmbedsFingerprintValues(t *testing.T) {
	fp := Fingerprint{
		HardwareConcurrency: 8,
		DeviceMemory:        16,
		Locale:              "en-GB",
	}
	script := fp.maskingScript()

	assert.Contains(t, script, "'webdriver'")
	assert.Contains(t, script, "get: () => 8")
	assert.Contains(t, script, "get: () => 16")
	assert.Contains(t, script, "'en-GB'")
}

func TestShouldBlockRequest(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		resourceType network.ResourceType
		blocked      bool
	}{
		{"html document", "https://site.example/contact", network.ResourceTypeDocument, false},
		{"stylesheet", "https://site.example/main.css", network.ResourceTypeStylesheet, false},
		{"script", "https://site.example/app.js", network.ResourceTypeScript, false},
		{"xhr", "https://site.example/api/submit", network.ResourceTypeXHR, false},
		{"executable", "https://site.example/setup.exe", network.ResourceTypeDocument, true},
		{"executable uppercase", "https://site.example/SETUP.EXE", network.ResourceTypeDocument, true},
		{"installer with query", "https://site.example/app.msi?v=2", network.ResourceTypeDocument, true},
		{"archive", "https://site.example/bundle.zip", network.ResourceTypeDocument, true},
		{"shell script", "https://site.example/install.sh", network.ResourceTypeDocument, true},
		{"media", "https://site.example/promo.mp4", network.ResourceTypeMedia, true},
		{"font", "https://site.example/font.woff2", network.ResourceTypeFont, true},
		{"websocket", "wss://site.example/live", network.ResourceTypeWebSocket, true},
		{"javascript scheme", "javascript:alert(1)", network.ResourceTypeDocument, true},
		{"vbscript scheme", "vbscript:msgbox(1)", network.ResourceTypeDocument, true},
		{"data html", "data:text/html,<h1>x</h1>", network.ResourceTypeDocument, true},
		{"data image allowed", "data:image/png;base64,AAAA", network.ResourceTypeImage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blocked, shouldBlockRequest(tt.url, tt.resourceType))
		})
	}
}

func TestPickProcess_NeverExceedsBrowserCap(t *testing.T) {
	const maxBrowsers = 2
	const callers = 8

	pool := NewPool(common.BrowserConfig{MaxBrowsers: maxBrowsers, MaxContexts: callers}, arbor.NewLogger())

	// Slow fake launches so concurrent pickProcess calls overlap in the
	// unlocked start window.
	var launches atomic.Int32
	pool.startProc = func(ctx context.Context) (*browserProc, error) {
		launches.Add(1)
		time.Sleep(20 * time.Millisecond)
		procCtx, cancel := context.WithCancel(context.Background())
		return &browserProc{ctx: procCtx, cancel: cancel, allocatorCancel: func() {}}, nil
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			proc, err := pool.pickProcess(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, proc)
		}()
	}
	close(start)
	wg.Wait()

	processes, _, _ := pool.Stats()
	assert.LessOrEqual(t, processes, maxBrowsers, "live process count exceeded the cap")
	assert.LessOrEqual(t, int(launches.Load()), maxBrowsers, "more Chrome launches than the cap allows")

	tabs := 0
	for _, proc := range pool.procs {
		tabs += proc.tabs
	}
	assert.Equal(t, callers, tabs, "every caller must hold a tab slot on some process")
}
