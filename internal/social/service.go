package social

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/profile"
)

// ProfileSource resolves author profiles for feed entries.
type ProfileSource interface {
	GetMany(ctx context.Context, ids []string) (map[string]*profile.Profile, error)
}

// FlagSource exposes the posting switch.
type FlagSource interface {
	SocialPostingDisabled(ctx context.Context) bool
}

// ServiceConfig holds configuration for the feed service.
type ServiceConfig struct {
	Repository Repository
	Profiles   ProfileSource
	// Flags is optional; nil allows posting.
	Flags  FlagSource
	Logger zerolog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service provides feed operations.
type Service struct {
	repo     Repository
	profiles ProfileSource
	flags    FlagSource
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new feed service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     cfg.Repository,
		profiles: cfg.Profiles,
		flags:    cfg.Flags,
		logger:   cfg.Logger,
		now:      now,
	}
}

// ListFeed returns posts newest first with like counts, comments and
// author profiles. viewerID may be empty for anonymous readers.
func (s *Service) ListFeed(ctx context.Context, viewerID string, limit int, cursor string) (*models.Feed, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	limit = min(limit, MaxFeedLimit)

	page, err := s.repo.ListPosts(ctx, ListOptions{Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, err
	}

	postIDs := make([]string, 0, len(page.Items))
	for _, p := range page.Items {
		postIDs = append(postIDs, p.ID)
	}

	var (
		counts   map[string]int
		liked    map[string]bool
		comments map[string][]*Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.LikeCounts(gctx, postIDs)
		return err
	})
	g.Go(func() error {
		if viewerID == "" {
			liked = map[string]bool{}
			return nil
		}
		var err error
		liked, err = s.repo.LikedBy(gctx, postIDs, viewerID)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.repo.ListComments(gctx, postIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var authorIDs []string
	for _, p := range page.Items {
		authorIDs = append(authorIDs, p.UserID)
		for _, c := range comments[p.ID] {
			authorIDs = append(authorIDs, c.UserID)
		}
	}
	authors := s.lookupAuthors(ctx, authorIDs)

	items := make([]models.Post, 0, len(page.Items))
	for _, p := range page.Items {
		post := toAPIPost(p, authors)
		post.LikeCount = counts[p.ID]
		post.LikedByMe = liked[p.ID]
		for _, c := range comments[p.ID] {
			post.Comments = append(post.Comments, toAPIComment(c, authors))
		}
		items = append(items, post)
	}

	var nextCursor *string
	if page.NextCursor != "" {
		nextCursor = &page.NextCursor
	}

	return &models.Feed{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// CreatePost publishes a post. For species posts only the highest-scoring
// prediction is kept.
func (s *Service) CreatePost(ctx context.Context, userID string, input *models.CreatePostRequest) (*models.Post, error) {
	if s.postingDisabled(ctx) {
		return nil, ErrPostingDisabled
	}

	postType := PostType(strings.TrimSpace(input.Type))
	if postType == "" {
		postType = PostTypeTrail
	}

	if fieldErrors := validatePost(postType, input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	post := &Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      postType,
		ImageURL:  strings.TrimSpace(input.ImageURL),
		Caption:   strings.TrimSpace(input.Caption),
		CreatedAt: s.now().UTC(),
	}
	if postType == PostTypeSpecies {
		post.Species = TopPrediction(input.Predictions)
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("post_id", post.ID).
		Str("user_id", userID).
		Str("type", string(post.Type)).
		Msg("post created")

	result := toAPIPost(post, s.lookupAuthors(ctx, []string{userID}))
	return &result, nil
}

// Like records the user's like. Liking an already liked post succeeds.
func (s *Service) Like(ctx context.Context, userID, postID string) (*models.LikeResult, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.repo.AddLike(ctx, postID, userID, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.likeResult(ctx, postID, true)
}

// Unlike removes the user's like. Unliking a post that was not liked succeeds.
func (s *Service) Unlike(ctx context.Context, userID, postID string) (*models.LikeResult, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.repo.RemoveLike(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.likeResult(ctx, postID, false)
}

// AddComment adds a comment to a post.
func (s *Service) AddComment(ctx context.Context, userID, postID string, input *models.CreateCommentRequest) (*models.Comment, error) {
	if s.postingDisabled(ctx) {
		return nil, ErrPostingDisabled
	}

	content := strings.TrimSpace(input.Content)
	switch {
	case content == "":
		return nil, &ValidationError{Errors: []models.FieldError{{Field: "content", Message: "is required", Code: "required"}}}
	case utf8.RuneCountInString(content) > MaxCommentLength:
		return nil, &ValidationError{Errors: []models.FieldError{{Field: "content", Message: "must be at most 1000 characters", Code: "too_long"}}}
	}

	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	result := toAPIComment(comment, s.lookupAuthors(ctx, []string{userID}))
	return &result, nil
}

// TopPrediction returns the highest-scoring usable prediction, or nil.
// Ties keep the first entry.
func TopPrediction(predictions []models.SpeciesPrediction) *Species {
	var top *Species
	for _, p := range predictions {
		label := strings.TrimSpace(p.Label)
		if label == "" || math.IsNaN(p.Score) || math.IsInf(p.Score, 0) {
			continue
		}
		if top == nil || p.Score > top.Score {
			top = &Species{Label: label, Score: p.Score}
		}
	}
	return top
}

func (s *Service) requirePost(ctx context.Context, postID string) error {
	if _, err := uuid.Parse(postID); err != nil {
		return ErrPostNotFound
	}
	_, err := s.repo.GetPost(ctx, postID)
	return err
}

func (s *Service) likeResult(ctx context.Context, postID string, liked bool) (*models.LikeResult, error) {
	counts, err := s.repo.LikeCounts(ctx, []string{postID})
	if err != nil {
		return nil, err
	}
	return &models.LikeResult{PostID: postID, Liked: liked, LikeCount: counts[postID]}, nil
}

func (s *Service) postingDisabled(ctx context.Context) bool {
	return s.flags != nil && s.flags.SocialPostingDisabled(ctx)
}

// lookupAuthors resolves profiles. Lookup failures degrade to the unknown
// user fallback instead of failing the feed.
func (s *Service) lookupAuthors(ctx context.Context, ids []string) map[string]*profile.Profile {
	if s.profiles == nil || len(ids) == 0 {
		return map[string]*profile.Profile{}
	}
	authors, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Int("count", len(ids)).Msg("failed to load author profiles")
		return map[string]*profile.Profile{}
	}
	return authors
}

func toAuthor(userID string, authors map[string]*profile.Profile) models.PostAuthor {
	p := authors[userID]
	author := models.PostAuthor{UserID: userID, Username: p.DisplayName("")}
	if p != nil {
		author.AvatarURL = p.AvatarURL
	}
	return author
}

func toAPIPost(p *Post, authors map[string]*profile.Profile) models.Post {
	post := models.Post{
		ID:        p.ID,
		Type:      string(p.Type),
		Author:    toAuthor(p.UserID, authors),
		ImageURL:  p.ImageURL,
		Caption:   p.Caption,
		Comments:  []models.Comment{},
		CreatedAt: models.Timestamp(p.CreatedAt),
	}
	if p.Species != nil {
		post.Species = &models.SpeciesPrediction{Label: p.Species.Label, Score: p.Species.Score}
	}
	return post
}

func toAPIComment(c *Comment, authors map[string]*profile.Profile) models.Comment {
	return models.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    toAuthor(c.UserID, authors),
		Content:   c.Content,
		CreatedAt: models.Timestamp(c.CreatedAt),
	}
}

func validatePost(postType PostType, input *models.CreatePostRequest) []models.FieldError {
	var errs []models.FieldError

	if !postType.Valid() {
		errs = append(errs, models.FieldError{Field: "type", Message: "must be trail or species", Code: "invalid_value"})
	}

	imageURL := strings.TrimSpace(input.ImageURL)
	if imageURL == "" {
		errs = append(errs, models.FieldError{Field: "imageUrl", Message: "is required", Code: "required"})
	} else if len(imageURL) > MaxImageURLLength {
		errs = append(errs, models.FieldError{Field: "imageUrl", Message: "must be at most 2048 characters", Code: "too_long"})
	} else if u, err := url.Parse(imageURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		errs = append(errs, models.FieldError{Field: "imageUrl", Message: "must be an http or https URL", Code: "invalid_format"})
	}

	if utf8.RuneCountInString(strings.TrimSpace(input.Caption)) > MaxCaptionLength {
		errs = append(errs, models.FieldError{Field: "caption", Message: "must be at most 2000 characters", Code: "too_long"})
	}

	return errs
}
