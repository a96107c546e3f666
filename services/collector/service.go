package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"threadsmith-backend/lib/configutil"
	"threadsmith-backend/lib/scrapers/threads"
	"threadsmith-backend/lib/telemetry"
	"threadsmith-backend/lib/textutil"
	"threadsmith-backend/services/collector/db"
)

type Target struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

type Options struct {
	Accounts []configutil.Account
	Headless bool
	// MaxPosts caps how many posts a target collects across all
	// accounts and keywords.
	MaxPosts int
	// MinLikes drops posts at or below this count when positive.
	// Zero disables the filter so posts whose like count could not be
	// extracted still survive.
	MinLikes          int64
	ExcludeImagePosts bool
	CookiesDir        string
	OutputRoot        string
}

type Service struct {
	db      *sql.DB
	qry     *db.Queries
	options Options
}

func NewService(database *sql.DB, options Options) Service {
	if options.MaxPosts <= 0 {
		options.MaxPosts = 30
	}
	if options.OutputRoot == "" {
		options.OutputRoot = "data"
	}
	return Service{
		db:      database,
		qry:     db.New(database),
		options: options,
	}
}

type Result struct {
	Posts   []threads.Post
	CsvPath string
}

// PruneBefore deletes posts collected before the cutoff, the database
// companion to the exporter's date-directory pruning.
func (s Service) PruneBefore(ctx context.Context, cutoff time.Time) error {
	ctx, span := tracer.Start(ctx, "PruneBefore")
	defer span.End()

	err := s.qry.DeletePostsBefore(ctx, cutoff.Unix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to prune old posts")
		return err
	}
	slog.DebugContext(ctx, "pruned posts", "before", cutoff.Format("2006-01-02"))
	return nil
}

// ProbeSite checks that the site answers over plain HTTP before any
// browser session is spent on it.
func (s Service) ProbeSite(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "ProbeSite")
	defer span.End()

	client, err := threads.NewClient(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build http client")
		return err
	}
	err = client.Probe(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "site probe failed")
		return err
	}
	return nil
}

// CollectTarget runs the full collection flow for one target: scrape
// with every account until enough posts survive, sanitize, persist to
// the database and write the raw CSV.
func (s Service) CollectTarget(ctx context.Context, target Target) (Result, error) {
	ctx, span := tracer.Start(ctx, "CollectTarget")
	defer span.End()
	span.SetAttributes(attribute.String("target", target.Name))

	accounts := s.options.Accounts
	if len(accounts) == 0 {
		slog.WarnContext(ctx, "no accounts configured, scraping anonymously")
		accounts = []configutil.Account{{}}
	}

	var merged []threads.Post
	var accountErrs []error

	for idx, account := range accounts {
		if len(merged) >= s.options.MaxPosts {
			break
		}

		posts, err := s.collectWithAccount(ctx, idx, account, target, s.options.MaxPosts-len(merged))
		if err != nil {
			slog.ErrorContext(
				ctx, "account scrape failed",
				"account", account.Redacted(),
				"target", target.Name,
				"err", err,
			)
			accountErrs = append(accountErrs, err)
			continue
		}
		merged = append(merged, posts...)
	}

	merged = Sanitize(merged, s.options.MinLikes)
	if len(merged) == 0 {
		err := errors.Join(accountErrs...)
		if err == nil {
			err = fmt.Errorf("no posts survived filtering for target '%s'", target.Name)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "no posts collected")
		return Result{}, err
	}

	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return Result{}, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	for _, p := range merged {
		err := txqry.CreatePost(ctx, db.CreatePostParams{
			Target:      target.Name,
			Username:    p.Username,
			Text:        p.Text,
			Likes:       p.Likes,
			CollectedAt: now.Unix(),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist post")
			return Result{}, err
		}
	}
	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit posts")
		return Result{}, err
	}

	csvPath := s.rawCsvPath(target, now)
	err = WriteRawCSV(csvPath, merged)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write raw csv")
		return Result{}, err
	}

	telemetry.RecordPostsCollected(ctx, target.Name, int64(len(merged)))
	slog.InfoContext(
		ctx, "target collection complete",
		"target", target.Name,
		"posts", len(merged),
		"csv", csvPath,
	)
	return Result{Posts: merged, CsvPath: csvPath}, nil
}

// rawCsvPath picks the output file for a run. Keyword collections get
// a dated file so runs accumulate; plain timeline collections keep a
// single file per target.
func (s Service) rawCsvPath(target Target, now time.Time) string {
	if len(target.Keywords) == 0 {
		return filepath.Join(s.options.OutputRoot, target.Name+".csv")
	}
	return filepath.Join(
		s.options.OutputRoot, "raw", target.Name,
		now.Format("2006-01-02"),
		fmt.Sprintf("%s_%s.csv", target.Name, now.Format("150405")),
	)
}

func (s Service) collectWithAccount(
	ctx context.Context,
	index int,
	account configutil.Account,
	target Target,
	remaining int,
) ([]threads.Post, error) {
	ctx, span := tracer.Start(ctx, "collectWithAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account", account.Redacted()))

	cookiesFile := ""
	if s.options.CookiesDir != "" && account.Username != "" {
		err := os.MkdirAll(s.options.CookiesDir, 0o700)
		if err != nil {
			slog.WarnContext(ctx, "could not create cookies dir, login will not persist", "err", err)
		} else {
			cookiesFile = filepath.Join(
				s.options.CookiesDir,
				fmt.Sprintf("cookies_account%d.json", index+1),
			)
		}
	}

	session, err := threads.NewSession(ctx, threads.SessionOptions{
		Headless:    s.options.Headless,
		CookiesFile: cookiesFile,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser session")
		return nil, err
	}
	defer session.Close()

	if account.Username != "" {
		err := session.Login(ctx, account.Username, account.Password)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "login failed")
			return nil, err
		}
	}

	collectOpts := threads.CollectOptions{
		MaxPosts:          remaining,
		ExcludeImagePosts: s.options.ExcludeImagePosts,
		Target:            target.Name,
	}

	if len(target.Keywords) == 0 {
		err := session.NavigateHome(ctx)
		if err != nil {
			return nil, err
		}
		return session.Collect(ctx, collectOpts)
	}

	var posts []threads.Post
	var keywordErrs []error
	for _, keyword := range target.Keywords {
		if len(posts) >= remaining {
			break
		}
		err := session.NavigateSearch(ctx, keyword)
		if err != nil {
			keywordErrs = append(keywordErrs, err)
			continue
		}
		collectOpts.MaxPosts = remaining - len(posts)
		found, err := session.Collect(ctx, collectOpts)
		if err != nil {
			keywordErrs = append(keywordErrs, err)
			continue
		}
		slog.InfoContext(ctx, "keyword scraped", "keyword", keyword, "posts", len(found))
		posts = append(posts, found...)
	}

	if len(posts) == 0 && len(keywordErrs) > 0 {
		return nil, errors.Join(keywordErrs...)
	}
	return posts, nil
}

// Sanitize applies the hygiene pass to raw posts: drops UI chrome and
// spam, rejects implausible usernames, removes near-duplicates and,
// when minLikes is positive, keeps only posts with strictly more likes
// than minLikes.
func Sanitize(posts []threads.Post, minLikes int64) []threads.Post {
	var kept []threads.Post
	for _, p := range posts {
		if !textutil.IsPlausibleUsername(p.Username) {
			continue
		}
		if p.Text == "" || p.Text == p.Username {
			continue
		}
		if textutil.IsUIText(p.Text) || textutil.IsSpam(p.Text) {
			continue
		}
		// like counts extract as zero when the volatile selectors
		// miss, so the threshold only applies when one is configured
		if minLikes > 0 && p.Likes <= minLikes {
			continue
		}

		duplicate := false
		for _, existing := range kept {
			if existing.Username == p.Username && textutil.NearDuplicate(existing.Text, p.Text) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
