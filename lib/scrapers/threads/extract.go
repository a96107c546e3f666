package threads

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"threadsmith-backend/lib/htmlutil"
	"threadsmith-backend/lib/textutil"
)

// selector lists mirror the markup variants observed in the wild,
// most specific first
var containerSelectors = []string{
	"div.x1ypdohk.x1n2onr6.xvuun6i",
	"div.xrvj5dj",
	"article",
	"div[role='article']",
}

var usernameSelectors = []string{
	"span.x1lliihq.x193iq5w.x6ikm8r.x10wlt62.xlyipyv.xuxw1ft",
	"a[href^='/@'] span",
	"span[translate='no']",
}

var postTextSelectors = []string{
	"div.x1a6qonq span.x1lliihq.x1plvlek.xryxfnj",
	"span.x1lliihq[dir='auto']",
	"span[dir='auto']:not([translate='no'])",
}

var likesSelectors = []string{
	"span.x17qophe.x10l6tqk.x13vifvy",
	"div[role='button'] span span[dir='auto']",
	"svg[aria-label='「いいね！」'] ~ span span",
}

var avatarAltMarkers = []string{"profile", "プロフィール", "アバター", "avatar"}

type ExtractOptions struct {
	ExcludeImagePosts bool
}

// ExtractPosts pulls posts out of a feed page snapshot. Entries that
// fail hygiene (UI chrome in the text slot, implausible usernames,
// spam) are dropped here rather than downstream.
func ExtractPosts(html string, opts ExtractOptions) ([]Post, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var containers *goquery.Selection
	for _, sel := range containerSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			containers = found
			break
		}
	}
	if containers == nil {
		return nil, nil
	}

	var posts []Post
	containers.Each(func(_ int, container *goquery.Selection) {
		if opts.ExcludeImagePosts && hasContentImages(container) {
			return
		}

		username := extractUsername(container)
		if username == "" {
			return
		}

		text := extractPostText(container)
		if text == "" || text == username {
			return
		}
		if textutil.IsSpam(text) {
			return
		}

		posts = append(posts, Post{
			Username: username,
			Text:     text,
			Likes:    extractLikes(container),
		})
	})

	return posts, nil
}

// hasContentImages reports whether the container holds images beyond
// the avatar. One image may just be the profile picture.
func hasContentImages(container *goquery.Selection) bool {
	count := 0
	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		alt := strings.ToLower(img.AttrOr("alt", ""))
		for _, marker := range avatarAltMarkers {
			if strings.Contains(alt, marker) {
				return
			}
		}
		count++
	})
	return count > 1
}

func extractUsername(container *goquery.Selection) string {
	for _, sel := range usernameSelectors {
		username := ""
		container.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			candidate := htmlutil.CleanText(s.Text())
			if textutil.IsPlausibleUsername(candidate) {
				username = candidate
				return false
			}
			return true
		})
		if username != "" {
			return username
		}
	}
	return ""
}

func extractPostText(container *goquery.Selection) string {
	for _, sel := range postTextSelectors {
		best := ""
		container.Find(sel).Each(func(_ int, s *goquery.Selection) {
			for _, node := range s.Nodes {
				content := htmlutil.CleanText(htmlutil.GetText(node))
				if content == "" || textutil.IsUIText(content) {
					continue
				}
				if len(content) > len(best) {
					best = content
				}
			}
		})
		if best != "" {
			return best
		}
	}
	return ""
}

func extractLikes(container *goquery.Selection) int64 {
	for _, sel := range likesSelectors {
		var likes int64
		container.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			n, ok := textutil.ParseCompactCount(strings.TrimSpace(s.Text()))
			if ok && n > 0 {
				likes = n
				return false
			}
			return true
		})
		if likes > 0 {
			return likes
		}
	}
	return 0
}
