package threads

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.opentelemetry.io/otel/codes"
)

type SessionOptions struct {
	Headless bool
	// CookiesFile persists the browser session between runs so login
	// can be skipped. Empty disables persistence.
	CookiesFile string
}

// Session drives a Chrome instance over CDP. One Session corresponds
// to one logged-in (or anonymous) account.
type Session struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	cookiesFile string
	loggedIn    bool
}

// threads sniffs navigator.webdriver to degrade automated sessions
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1280, 800),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "ja-JP,ja"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, err
	}

	s := &Session{
		ctx:         tabCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
		cookiesFile: opts.CookiesFile,
	}
	return s, nil
}

func (s *Session) Close() {
	s.cancelTab()
	s.cancelAlloc()
}

func (s *Session) LoggedIn() bool {
	return s.loggedIn
}

// humanDelay sleeps a jittered interval so interaction pacing doesn't
// look mechanical.
func (s *Session) humanDelay(minSec, maxSec float64) {
	delay := minSec + rand.Float64()*(maxSec-minSec)
	select {
	case <-time.After(time.Duration(delay * float64(time.Second))):
	case <-s.ctx.Done():
	}
}

// markup changes frequently, so every lookup walks a fallback list
var usernameFieldSelectors = []string{
	`input[autocomplete='username']`,
	`input[type='text'][autocapitalize='none']`,
	`input[type='text']`,
}

var loginButtonSelectors = []string{
	`div.x1i10hfl[role='button']`,
	`div[role='button']`,
}

const passwordFieldSelector = `input[type='password']`

func (s *Session) waitVisibleAny(ctx context.Context, selectors []string) (string, error) {
	for _, sel := range selectors {
		perSelector, cancel := context.WithTimeout(ctx, time.Second*5)
		err := chromedp.Run(perSelector, chromedp.WaitVisible(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			slog.DebugContext(ctx, "found element", "selector", sel)
			return sel, nil
		}
	}
	return "", fmt.Errorf("no selector matched out of %d candidates", len(selectors))
}

// typeLikeHuman enters text one rune at a time with typing jitter.
func (s *Session) typeLikeHuman(ctx context.Context, selector, text string) error {
	err := chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery))
	if err != nil {
		return err
	}
	for _, c := range text {
		err := chromedp.Run(ctx, chromedp.SendKeys(selector, string(c), chromedp.ByQuery))
		if err != nil {
			return err
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
	return nil
}

// Login authenticates the browser session. Saved cookies are tried
// first; the form flow only runs when they don't produce a session.
func (s *Session) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(s.ctx, "session:Login")
	defer span.End()

	restored, err := s.loadCookies(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to restore cookies", "err", err)
	}
	if restored {
		err := chromedp.Run(ctx, chromedp.Navigate(BaseUrl))
		if err == nil {
			var location string
			s.humanDelay(2.0, 3.0)
			err = chromedp.Run(ctx, chromedp.Location(&location))
			if err == nil && !strings.Contains(strings.ToLower(location), "login") {
				slog.InfoContext(ctx, "restored session from cookies")
				s.loggedIn = true
				return nil
			}
		}
		slog.InfoContext(ctx, "saved cookies no longer valid, logging in")
	}

	err = chromedp.Run(ctx,
		chromedp.Navigate(BaseUrl+LoginPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open login page")
		return err
	}
	s.humanDelay(3.0, 5.0)

	usernameSel, err := s.waitVisibleAny(ctx, usernameFieldSelectors)
	if err != nil {
		span.SetStatus(codes.Error, "failed to find username field")
		return fmt.Errorf("could not find username field: %w", err)
	}
	err = s.typeLikeHuman(ctx, usernameSel, username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enter username")
		return err
	}
	s.humanDelay(1.0, 2.0)

	err = chromedp.Run(ctx, chromedp.WaitVisible(passwordFieldSelector, chromedp.ByQuery))
	if err != nil {
		span.SetStatus(codes.Error, "failed to find password field")
		return err
	}
	err = s.typeLikeHuman(ctx, passwordFieldSelector, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enter password")
		return err
	}

	buttonSel, err := s.waitVisibleAny(ctx, loginButtonSelectors)
	if err == nil {
		err = chromedp.Run(ctx, chromedp.Click(buttonSel, chromedp.ByQuery))
	}
	if err != nil {
		slog.WarnContext(ctx, "could not click login button, submitting with enter", "err", err)
		err = chromedp.Run(ctx, chromedp.SendKeys(passwordFieldSelector, kb.Enter, chromedp.ByQuery))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to submit login form")
			return err
		}
	}

	s.humanDelay(5.0, 8.0)

	var location string
	err = chromedp.Run(ctx, chromedp.Location(&location))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read location after login")
		return err
	}
	if strings.Contains(strings.ToLower(location), "login") {
		span.SetStatus(codes.Error, LoginFailed.Error())
		return LoginFailed
	}

	slog.InfoContext(ctx, "login successful", "url", location)
	s.loggedIn = true

	err = s.saveCookies(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to save cookies", "err", err)
	}
	return nil
}

// NavigateHome opens the timeline. Returns an error when the site
// bounces the session back to the login page.
func (s *Session) NavigateHome(ctx context.Context) error {
	ctx, span := tracer.Start(s.ctx, "session:NavigateHome")
	defer span.End()

	err := chromedp.Run(ctx,
		chromedp.Navigate(BaseUrl),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate to timeline")
		return err
	}

	var location string
	err = chromedp.Run(ctx, chromedp.Location(&location))
	if err != nil {
		span.RecordError(err)
		return err
	}
	if strings.Contains(strings.ToLower(location), "login") {
		span.SetStatus(codes.Error, "redirected to login page")
		return fmt.Errorf("redirected to login page, not logged in")
	}
	return nil
}

// NavigateSearch opens the search results page for a keyword.
func (s *Session) NavigateSearch(ctx context.Context, keyword string) error {
	ctx, span := tracer.Start(s.ctx, "session:NavigateSearch")
	defer span.End()

	link := fmt.Sprintf("%s/search?q=%s&serp_type=default", BaseUrl, keyword)
	err := chromedp.Run(ctx,
		chromedp.Navigate(link),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open search page")
		return err
	}
	s.humanDelay(2.0, 4.0)
	return nil
}

func (s *Session) articleCount(ctx context.Context) int {
	var count int
	err := chromedp.Run(ctx, chromedp.Evaluate(`document.querySelectorAll("article").length`, &count))
	if err != nil {
		return 0
	}
	return count
}

func (s *Session) pageHTML(ctx context.Context) (string, error) {
	var html string
	err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

var endOfFeedMarkers = []string{
	"これ以上の投稿はありません",
	"すべての投稿を見ました",
	"No more posts",
	"End of feed",
}

func atEndOfFeed(html string) bool {
	for _, marker := range endOfFeedMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// progressiveScroll steps down the feed in window-height increments,
// pausing like a reader would, until new articles load or the budget
// runs out. Returns the number of new articles.
func (s *Session) progressiveScroll(ctx context.Context, totalScrolls int) int {
	initial := s.articleCount(ctx)

	for i := 0; i < totalScrolls; i++ {
		var windowHeight int
		err := chromedp.Run(ctx, chromedp.Evaluate(`window.innerHeight`, &windowHeight))
		if err != nil {
			slog.WarnContext(ctx, "failed to read window height", "err", err)
			windowHeight = 800
		}

		// 80% steps keep an overlap so no row is skipped
		scrollAmount := int(float64(windowHeight) * 0.8)
		err = chromedp.Run(ctx, chromedp.Evaluate(
			fmt.Sprintf(`window.scrollBy(0, %d)`, scrollAmount), nil,
		))
		if err != nil {
			slog.WarnContext(ctx, "scroll failed", "err", err)
		}
		s.humanDelay(2.5, 4.0)

		// occasionally back up a little, which also nudges lazy loading
		if i%5 == 4 {
			s.humanDelay(2.0, 5.0)
			chromedp.Run(ctx, chromedp.Evaluate(`window.scrollBy(0, -300)`, nil))
			s.humanDelay(0.8, 1.5)
			chromedp.Run(ctx, chromedp.Evaluate(`window.scrollBy(0, 350)`, nil))
			s.humanDelay(1.0, 2.0)
		}

		html, err := s.pageHTML(ctx)
		if err == nil && atEndOfFeed(html) {
			slog.InfoContext(ctx, "reached end of feed")
			break
		}
	}

	final := s.articleCount(ctx)
	slog.DebugContext(ctx, "progressive scroll complete", "before", initial, "after", final)
	return final - initial
}

func (s *Session) forceScrollToBottom(ctx context.Context) {
	err := chromedp.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
	if err != nil {
		slog.WarnContext(ctx, "forced scroll failed", "err", err)
	}
	s.humanDelay(3.0, 5.0)
}

type CollectOptions struct {
	MaxPosts          int
	ExcludeImagePosts bool
	Target            string
}

// Collect walks the currently open feed until MaxPosts posts survive
// extraction or the retry budget is exhausted.
func (s *Session) Collect(ctx context.Context, opts CollectOptions) ([]Post, error) {
	ctx, span := tracer.Start(s.ctx, "session:Collect")
	defer span.End()

	if opts.MaxPosts <= 0 {
		opts.MaxPosts = 30
	}

	var posts []Post
	seen := map[string]struct{}{}

	const maxRetries = 20
	noNewPosts := 0

	for retry := 0; retry < maxRetries && len(posts) < opts.MaxPosts; retry++ {
		slog.InfoContext(
			ctx, "collecting posts",
			"count", len(posts),
			"max", opts.MaxPosts,
			"retry", retry+1,
		)

		html, err := s.pageHTML(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to snapshot page")
			return posts, err
		}

		extracted, err := ExtractPosts(html, ExtractOptions{
			ExcludeImagePosts: opts.ExcludeImagePosts,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to extract posts")
			return posts, err
		}

		added := 0
		for _, p := range extracted {
			key := dedupeKey(p)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			p.Target = opts.Target
			posts = append(posts, p)
			added++
			if len(posts) >= opts.MaxPosts {
				break
			}
		}

		if added == 0 {
			noNewPosts++
		} else {
			noNewPosts = 0
		}

		if len(posts) >= opts.MaxPosts {
			break
		}

		newArticles := s.progressiveScroll(ctx, 8)
		if newArticles == 0 {
			s.forceScrollToBottom(ctx)
		}

		// a stuck feed sometimes recovers after a reload
		if noNewPosts >= 3 {
			slog.InfoContext(ctx, "feed looks stuck, reloading")
			err := chromedp.Run(ctx, chromedp.Reload())
			if err != nil {
				slog.WarnContext(ctx, "reload failed", "err", err)
			}
			s.humanDelay(5.0, 8.0)
			noNewPosts = 0
		}

		if err := ctx.Err(); err != nil {
			return posts, err
		}
	}

	slog.InfoContext(ctx, "collection finished", "count", len(posts))
	return posts, nil
}

// dedupeKey identifies a post within one collection run by author and
// a 50-rune text prefix, so truncated re-renderings of the same post
// collapse.
func dedupeKey(p Post) string {
	return p.Username + ":" + firstRunes(p.Text, 50)
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
