package render

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/ratings-cli/internal/config"
	"github.com/sells-group/ratings-cli/internal/query"
)

const (
	searchBaseURL     = "https://www.google.com/maps/search/"
	maxNodesPerSelect = 25
	readyPollInterval = 250 * time.Millisecond
)

// Browser is a chromedp-backed Renderer. One exec allocator is shared per
// process; each Open creates an isolated tab context so concurrent probes
// never share session state. Navigations are rate-limited and padded with
// randomized delays.
type Browser struct {
	cfg         config.BrowserConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	limiter     *rate.Limiter
}

// NewBrowser starts a headless browser allocator with the configured flags.
func NewBrowser(cfg config.BrowserConfig) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	navPerSec := cfg.NavPerSec
	if navPerSec <= 0 {
		navPerSec = 1
	}

	return &Browser{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: cancel,
		limiter:     rate.NewLimiter(rate.Limit(navPerSec), 1),
	}
}

// Close tears down the allocator and every remaining tab.
func (b *Browser) Close() {
	b.allocCancel()
}

// Open navigates a fresh tab to the search page for the query. The returned
// release func closes the tab; it must run on every exit path.
func (b *Browser) Open(ctx context.Context, q string) (Document, ReleaseFunc, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, nil, eris.Wrap(err, "render: navigation rate limit")
	}

	tabCtx, cancel := chromedp.NewContext(b.allocCtx)

	navCtx, navCancel := boundContext(ctx, tabCtx, 20*time.Second)
	err := chromedp.Run(navCtx,
		chromedp.Navigate(searchBaseURL+query.Encode(q)),
		chromedp.Sleep(b.randomDelay()),
	)
	navCancel()
	if err != nil {
		cancel()
		return nil, nil, eris.Wrapf(err, "render: navigate %q", q)
	}

	zap.L().Debug("render: page opened", zap.String("query", q))
	return &browserDocument{tabCtx: tabCtx, delay: b.randomDelay}, ReleaseFunc(cancel), nil
}

func (b *Browser) randomDelay() time.Duration {
	minMS, maxMS := b.cfg.DelayMinMS, b.cfg.DelayMaxMS
	if maxMS < minMS {
		minMS, maxMS = maxMS, minMS
	}
	if maxMS <= 0 {
		return 0
	}
	spread := maxMS - minMS
	if spread <= 0 {
		return time.Duration(minMS) * time.Millisecond
	}
	return time.Duration(minMS+rand.Intn(spread)) * time.Millisecond
}

type browserDocument struct {
	tabCtx context.Context
	delay  func() time.Duration
}

func (d *browserDocument) WaitReady(ctx context.Context, selectors []string, timeout time.Duration) error {
	if len(selectors) == 0 {
		return nil
	}

	wctx, cancel := boundContext(ctx, d.tabCtx, timeout)
	defer cancel()

	js := anyPresentJS(selectors)
	for {
		var found bool
		if err := chromedp.Run(wctx, chromedp.Evaluate(js, &found)); err != nil {
			if wctx.Err() != nil {
				return eris.New("render: content-ready wait timed out")
			}
			return eris.Wrap(err, "render: content-ready probe")
		}
		if found {
			return nil
		}
		select {
		case <-wctx.Done():
			return eris.New("render: content-ready wait timed out")
		case <-time.After(readyPollInterval):
		}
	}
}

func (d *browserDocument) Select(ctx context.Context, selector string) ([]Node, error) {
	sctx, cancel := boundContext(ctx, d.tabCtx, 5*time.Second)
	defer cancel()

	js := fmt.Sprintf(`JSON.stringify(Array.from(document.querySelectorAll(%s)).slice(0, %d).map(el => ({
		label: el.getAttribute('aria-label') || '',
		text: (el.innerText || el.textContent || '').trim(),
		attrs: Object.fromEntries(Array.from(el.attributes).map(a => [a.name, a.value]))
	})))`, strconv.Quote(selector), maxNodesPerSelect)

	var raw string
	if err := chromedp.Run(sctx, chromedp.Evaluate(js, &raw)); err != nil {
		return nil, eris.Wrapf(err, "render: select %q", selector)
	}

	var nodes []Node
	if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
		return nil, eris.Wrapf(err, "render: decode nodes for %q", selector)
	}
	return nodes, nil
}

func (d *browserDocument) Activate(ctx context.Context, selector string, index int) error {
	actx, cancel := boundContext(ctx, d.tabCtx, 10*time.Second)
	defer cancel()

	js := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%s);
		if (els.length <= %d) return false;
		els[%d].click();
		return true;
	})()`, strconv.Quote(selector), index, index)

	var clicked bool
	if err := chromedp.Run(actx, chromedp.Evaluate(js, &clicked)); err != nil {
		return eris.Wrapf(err, "render: activate %q[%d]", selector, index)
	}
	if !clicked {
		return eris.Errorf("render: no node %d for selector %q", index, selector)
	}

	// Let the revealed structure settle before the caller re-extracts.
	settle := d.delay()
	select {
	case <-actx.Done():
	case <-time.After(settle):
	}
	return nil
}

func (d *browserDocument) HTML(ctx context.Context) (string, error) {
	hctx, cancel := boundContext(ctx, d.tabCtx, 5*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(hctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "render: capture html")
	}
	return html, nil
}

// boundContext derives a chromedp-capable context from the tab context,
// bounded by the caller's deadline when it is tighter than fallback.
func boundContext(caller, tabCtx context.Context, fallback time.Duration) (context.Context, context.CancelFunc) {
	timeout := fallback
	if dl, ok := caller.Deadline(); ok {
		if remaining := time.Until(dl); remaining < timeout {
			timeout = remaining
		}
	}
	return context.WithTimeout(tabCtx, timeout)
}

func anyPresentJS(selectors []string) string {
	terms := make([]string, len(selectors))
	for i, sel := range selectors {
		terms[i] = fmt.Sprintf("!!document.querySelector(%s)", strconv.Quote(sel))
	}
	return strings.Join(terms, " || ")
}
