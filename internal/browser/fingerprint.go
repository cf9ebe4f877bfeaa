package browser

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Fingerprint is the set of characteristics a browsing context reports to
// page scripts. Values are always drawn from the curated pools below so a
// context looks like a plausible real visitor.
type Fingerprint struct {
	ViewportWidth       int64
	ViewportHeight      int64
	DeviceScaleFactor   float64
	Timezone            string
	Locale              string
	ColorScheme         string
	HardwareConcurrency int
	DeviceMemory        int
}

type viewport struct {
	width  int64
	height int64
}

// Curated value pools. Entries are common real-world values; anything exotic
// is a fingerprinting signal in itself.
var (
	viewportPool = []viewport{
		{1920, 1080},
		{1536, 864},
		{1440, 900},
		{1366, 768},
		{1280, 800},
		{1680, 1050},
		{2560, 1440},
	}

	timezonePool = []string{
		"America/New_York",
		"America/Chicago",
		"America/Denver",
		"America/Los_Angeles",
		"Europe/London",
		"Europe/Berlin",
		"Europe/Paris",
		"Australia/Sydney",
	}

	localePool = []string{
		"en-US",
		"en-GB",
		"en-AU",
		"de-DE",
		"fr-FR",
	}

	colorSchemePool = []string{"light", "light", "light", "dark"}

	scaleFactorPool = []float64{1, 1, 1.25, 1.5, 2}

	concurrencyPool = []int{4, 4, 8, 8, 12, 16}

	deviceMemoryPool = []int{4, 8, 8, 16}
)

// RandomFingerprint draws one value from each pool
func RandomFingerprint() Fingerprint {
	vp := viewportPool[rand.Intn(len(viewportPool))]
	return Fingerprint{
		ViewportWidth:       vp.width,
		ViewportHeight:      vp.height,
		DeviceScaleFactor:   scaleFactorPool[rand.Intn(len(scaleFactorPool))],
		Timezone:            timezonePool[rand.Intn(len(timezonePool))],
		Locale:              localePool[rand.Intn(len(localePool))],
		ColorScheme:         colorSchemePool[rand.Intn(len(colorSchemePool))],
		HardwareConcurrency: concurrencyPool[rand.Intn(len(concurrencyPool))],
		DeviceMemory:        deviceMemoryPool[rand.Intn(len(deviceMemoryPool))],
	}
}

// apply installs the fingerprint on a fresh context. Must run before the
// first navigation so the overrides are in place when page scripts execute.
func (f Fingerprint) apply() chromedp.Tasks {
	return chromedp.Tasks{
		emulation.SetDeviceMetricsOverride(f.ViewportWidth, f.ViewportHeight, f.DeviceScaleFactor, false),
		emulation.SetTimezoneOverride(f.Timezone),
		emulation.SetLocaleOverride().WithLocale(f.Locale),
		emulation.SetEmulatedMedia().WithFeatures([]*emulation.MediaFeature{
			{Name: "prefers-color-scheme", Value: f.ColorScheme},
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(f.maskingScript()).Do(ctx)
			return err
		}),
	}
}

// maskingScript hides the usual automation markers and adds small per-context
// noise to canvas and WebGL reads. This lowers detectability; it does not
// claim undetectability.
func (f Fingerprint) maskingScript() string {
	noise := rand.Float64() * 0.0001
	return fmt.Sprintf(`
(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
	Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
	Object.defineProperty(navigator, 'languages', { get: () => ['%s'] });

	window.chrome = window.chrome || { runtime: {} };

	const origQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: origQuery(parameters)
	);

	const noise = %f;
	const origToDataURL = HTMLCanvasElement.prototype.toDataURL;
	HTMLCanvasElement.prototype.toDataURL = function (...args) {
		const ctx = this.getContext('2d');
		if (ctx && this.width > 0 && this.height > 0) {
			const img = ctx.getImageData(0, 0, this.width, this.height);
			for (let i = 0; i < img.data.length; i += 97) {
				img.data[i] = img.data[i] ^ (noise * 255 > 0.5 ? 1 : 0);
			}
			ctx.putImageData(img, 0, 0);
		}
		return origToDataURL.apply(this, args);
	};

	const origGetParameter = WebGLRenderingContext.prototype.getParameter;
	WebGLRenderingContext.prototype.getParameter = function (parameter) {
		// UNMASKED_VENDOR_WEBGL / UNMASKED_RENDERER_WEBGL
		if (parameter === 37445) return 'Intel Inc.';
		if (parameter === 37446) return 'Intel Iris OpenGL Engine';
		return origGetParameter.call(this, parameter);
	};
})();`, f.HardwareConcurrency, f.DeviceMemory, f.Locale, noise)
}
