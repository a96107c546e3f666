package composer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"threadsmith-backend/lib/scrapers/threads"
	"threadsmith-backend/lib/telemetry"
)

const maxCompletionTokens = 4000
const legacyTemperature = 0.7

// Models in these families reject the max_tokens and temperature
// parameters, so requests to them only set max_completion_tokens.
var newGenModels = []string{"o1", "o3", "gpt-4o", "gpt-4-1106-preview", "gpt-4.1"}

func isNewGenModel(model string) bool {
	for _, id := range newGenModels {
		if strings.Contains(model, id) {
			return true
		}
	}
	return false
}

type Options struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
}

type Service struct {
	client openai.Client
	model  string
}

func NewService(options Options) Service {
	requestOpts := []option.RequestOption{option.WithAPIKey(options.APIKey)}
	if options.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(options.BaseURL))
	}
	return Service{
		client: openai.NewClient(requestOpts...),
		model:  options.Model,
	}
}

func (s Service) callModel(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "callModel")
	defer span.End()
	span.SetAttributes(attribute.String("model", s.model))

	telemetry.RecordCompletionCall(ctx, s.model)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(maxCompletionTokens),
	}
	if !isNewGenModel(s.model) {
		params.Temperature = openai.Float(legacyTemperature)
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return "", err
	}
	if len(completion.Choices) == 0 {
		err := fmt.Errorf("chat completion returned no choices")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return completion.Choices[0].Message.Content, nil
}

// AnalyzePost asks the model what made a post take off.
func (s Service) AnalyzePost(ctx context.Context, postText string) (string, error) {
	ctx, span := tracer.Start(ctx, "AnalyzePost")
	defer span.End()

	return s.callModel(ctx, fmt.Sprintf(analysisPrompt, postText))
}

// CreateTemplate turns a post and its analysis into a reusable writing
// template.
func (s Service) CreateTemplate(ctx context.Context, postText, analysis string) (string, error) {
	ctx, span := tracer.Start(ctx, "CreateTemplate")
	defer span.End()

	return s.callModel(ctx, fmt.Sprintf(templatePrompt, postText, analysis))
}

// GenerateFinalPost produces a ready-to-publish post for one target
// from a writing template.
func (s Service) GenerateFinalPost(ctx context.Context, template, target string) (string, error) {
	ctx, span := tracer.Start(ctx, "GenerateFinalPost")
	defer span.End()
	span.SetAttributes(attribute.String("target", target))

	return s.callModel(ctx, fmt.Sprintf(finalPostPrompt, target, template))
}

// Probe sends a trivial completion request to verify credentials and
// model access.
func (s Service) Probe(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "Probe")
	defer span.End()

	return s.callModel(ctx, probePrompt)
}

type FinalPost struct {
	ReferenceUsername string
	Target            string
	Text              string
}

// ProcessPosts runs the three stage flow over every post: analyze,
// template, then one final post per target. A stage failure skips that
// post (or that post/target pair) and the batch keeps going.
func (s Service) ProcessPosts(ctx context.Context, posts []threads.Post, targets []string) []FinalPost {
	ctx, span := tracer.Start(ctx, "ProcessPosts")
	defer span.End()
	span.SetAttributes(
		attribute.Int("posts", len(posts)),
		attribute.Int("targets", len(targets)),
	)

	pw := progress.NewWriter()
	pw.SetOutputWriter(os.Stderr)
	pw.SetUpdateFrequency(time.Millisecond * 250)
	go pw.Render()
	defer pw.Stop()

	tracker := &progress.Tracker{
		Message: "composing posts",
		Total:   int64(len(posts)),
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(tracker)

	var finalPosts []FinalPost
	for _, post := range posts {
		analysis, err := s.AnalyzePost(ctx, post.Text)
		if err != nil {
			slog.WarnContext(ctx, "skipping post, analysis failed", "username", post.Username, "err", err)
			tracker.Increment(1)
			continue
		}

		template, err := s.CreateTemplate(ctx, post.Text, analysis)
		if err != nil {
			slog.WarnContext(ctx, "skipping post, template creation failed", "username", post.Username, "err", err)
			tracker.Increment(1)
			continue
		}

		for _, target := range targets {
			text, err := s.GenerateFinalPost(ctx, template, target)
			if err != nil {
				slog.WarnContext(
					ctx, "final post generation failed",
					"username", post.Username,
					"target", target,
					"err", err,
				)
				continue
			}
			finalPosts = append(finalPosts, FinalPost{
				ReferenceUsername: post.Username,
				Target:            target,
				Text:              text,
			})
		}
		tracker.Increment(1)
	}
	tracker.MarkAsDone()

	slog.InfoContext(ctx, "composition complete", "generated", len(finalPosts))
	return finalPosts
}
