package threads

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HttpOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
}

func (s *Session) saveCookies(ctx context.Context) error {
	if s.cookiesFile == "" {
		return nil
	}

	var cookies []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return err
	}

	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}

	encoded, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	err = os.WriteFile(s.cookiesFile, encoded, 0600)
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "cookies saved", "file", s.cookiesFile, "count", len(stored))
	return nil
}

// loadCookies restores a previously saved session. Returns false when
// there is nothing to restore.
func (s *Session) loadCookies(ctx context.Context) (bool, error) {
	if s.cookiesFile == "" {
		return false, nil
	}

	contents, err := os.ReadFile(s.cookiesFile)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var stored []storedCookie
	err = json.Unmarshal(contents, &stored)
	if err != nil {
		return false, err
	}
	if len(stored) == 0 {
		return false, nil
	}

	params := make([]*network.CookieParam, 0, len(stored))
	for _, c := range stored {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			expiry := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expiry
		}
		params = append(params, param)
	}

	err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return false, err
	}

	slog.DebugContext(ctx, "cookies restored", "file", s.cookiesFile, "count", len(params))
	return true, nil
}
