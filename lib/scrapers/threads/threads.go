package threads

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"threadsmith-backend/lib/restyutil"
	"threadsmith-backend/lib/telemetry"
)

const BaseUrl = "https://www.threads.net"
const LoginPath = "/login"

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

var LoginFailed = fmt.Errorf("Failed to login to your account.")

// Post is a single extracted feed entry.
type Post struct {
	Username string
	Text     string
	Likes    int64
	Target   string
}

// Client holds the plain HTTP side of a Threads session, used for
// endpoints that don't need a rendered page (profile lookups, the
// availability probe). Page-level collection goes through Session.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

func NewClient(ctx context.Context) (*Client, error) {
	baseUrl, err := url.Parse(BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept-language", "ja-JP,ja;q=0.9")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/threads/http")
	restyutil.InstrumentClient(client, restyInstrumentOutput)

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return c, nil
}

// Probe checks that the site answers at all before a browser session
// is spun up for it.
func (c *Client) Probe(ctx context.Context) error {
	res, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		return err
	}
	if res.StatusCode() >= 500 {
		return fmt.Errorf("threads responded with status %d", res.StatusCode())
	}
	return nil
}
