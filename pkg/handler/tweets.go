package handler

import (
	"context"
	"fmt"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/gocarina/gocsv"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/provider"
	"github.com/xmcp-dev/x-mcp-server/pkg/server/auth"
)

type Tweet struct {
	ID        string `json:"id" csv:"id"`
	Text      string `json:"text" csv:"text"`
	AuthorID  string `json:"authorId" csv:"author_id"`
	CreatedAt string `json:"createdAt" csv:"created_at"`
	Likes     int    `json:"likes" csv:"likes"`
	Retweets  int    `json:"retweets" csv:"retweets"`
	Replies   int    `json:"replies" csv:"replies"`
	Cursor    string `json:"cursor" csv:"cursor"`
}

var tweetFields = []twitter.TweetField{
	twitter.TweetFieldAuthorID,
	twitter.TweetFieldCreatedAt,
	twitter.TweetFieldPublicMetrics,
}

// clientFrom extracts the authorized client injected by the auth middleware.
func clientFrom(ctx context.Context) (*twitter.Client, error) {
	client, ok := auth.ClientFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user context not found")
	}
	return client, nil
}

func tweetRow(t *twitter.TweetObj) Tweet {
	row := Tweet{
		ID:        t.ID,
		Text:      t.Text,
		AuthorID:  t.AuthorID,
		CreatedAt: t.CreatedAt,
	}
	if t.PublicMetrics != nil {
		row.Likes = t.PublicMetrics.Likes
		row.Retweets = t.PublicMetrics.Retweets
		row.Replies = t.PublicMetrics.Replies
	}
	return row
}

func tweetsCSV(tweets []*twitter.TweetObj, nextCursor string) (string, error) {
	rows := make([]Tweet, 0, len(tweets))
	for _, t := range tweets {
		rows = append(rows, tweetRow(t))
	}
	if len(rows) > 0 && nextCursor != "" {
		rows[len(rows)-1].Cursor = nextCursor
	}
	csvBytes, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return "", err
	}
	return string(csvBytes), nil
}

// TweetsHandler implements tweet posting, deletion, lookup, timelines and
// search.
type TweetsHandler struct {
	apiProvider *provider.ApiProvider
	logger      *zap.Logger
}

// NewTweetsHandler creates the tweets handler
func NewTweetsHandler(apiProvider *provider.ApiProvider, logger *zap.Logger) *TweetsHandler {
	return &TweetsHandler{
		apiProvider: apiProvider,
		logger:      logger,
	}
}

func (th *TweetsHandler) PostTweetHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	th.logger.Debug("PostTweetHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	text := request.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	replyTo := request.GetString("in_reply_to_tweet_id", "")

	req := twitter.CreateTweetRequest{Text: text}
	if replyTo != "" {
		req.Reply = &twitter.CreateTweetReply{InReplyToTweetID: replyTo}
	}

	resp, err := client.CreateTweet(ctx, req)
	if err != nil {
		th.logger.Error("Failed to create tweet", zap.Error(err))
		return nil, fmt.Errorf("failed to post tweet: %w", err)
	}

	id := ""
	if resp.Tweet != nil {
		id = resp.Tweet.ID
	}
	th.logger.Info("Tweet posted", zap.String("tweetID", id))
	return mcp.NewToolResultText(fmt.Sprintf("Tweet posted (ID: %s)", id)), nil
}

func (th *TweetsHandler) DeleteTweetHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	th.logger.Debug("DeleteTweetHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	id := request.GetString("tweet_id", "")
	if id == "" {
		return mcp.NewToolResultError("tweet_id is required"), nil
	}

	if _, err := client.DeleteTweet(ctx, id); err != nil {
		th.logger.Error("Failed to delete tweet", zap.String("tweetID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to delete tweet: %w", err)
	}

	th.logger.Info("Tweet deleted", zap.String("tweetID", id))
	return mcp.NewToolResultText(fmt.Sprintf("Tweet %s deleted", id)), nil
}

func (th *TweetsHandler) GetTweetHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	th.logger.Debug("GetTweetHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	id := request.GetString("tweet_id", "")
	if id == "" {
		return mcp.NewToolResultError("tweet_id is required"), nil
	}

	resp, err := client.TweetLookup(ctx, []string{id}, twitter.TweetLookupOpts{
		TweetFields: tweetFields,
	})
	if err != nil {
		th.logger.Error("Tweet lookup failed", zap.String("tweetID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to look up tweet: %w", err)
	}
	if resp.Raw == nil || len(resp.Raw.Tweets) == 0 {
		return mcp.NewToolResultText("Tweet not found."), nil
	}

	out, err := tweetsCSV(resp.Raw.Tweets, "")
	if err != nil {
		th.logger.Error("Failed to marshal tweet to CSV", zap.Error(err))
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

func (th *TweetsHandler) UserTimelineHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	th.logger.Debug("UserTimelineHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	userID := request.GetString("user_id", "")
	if userID == "" {
		userID, err = th.apiProvider.AuthUserID(ctx)
		if err != nil {
			return nil, err
		}
	}
	limit := capLimit(th.logger, request.GetInt("limit", 10), 5, 100)
	cursor := request.GetString("cursor", "")

	th.logger.Debug("Request parameters",
		zap.String("user_id", userID),
		zap.Int("limit", limit),
		zap.String("cursor", cursor),
	)

	resp, err := client.UserTweetTimeline(ctx, userID, twitter.UserTweetTimelineOpts{
		MaxResults:      limit,
		PaginationToken: cursor,
		TweetFields:     tweetFields,
	})
	if err != nil {
		th.logger.Error("Timeline lookup failed", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch timeline: %w", err)
	}

	var tweets []*twitter.TweetObj
	var next string
	if resp.Raw != nil {
		tweets = resp.Raw.Tweets
	}
	if resp.Meta != nil {
		next = resp.Meta.NextToken
	}
	if len(tweets) == 0 {
		return mcp.NewToolResultText("No tweets found."), nil
	}

	out, err := tweetsCSV(tweets, next)
	if err != nil {
		th.logger.Error("Failed to marshal timeline to CSV", zap.Error(err))
		return nil, err
	}

	th.logger.Debug("Returning timeline",
		zap.Int("count", len(tweets)),
		zap.Bool("has_next_page", next != ""),
	)
	return mcp.NewToolResultText(out), nil
}

func (th *TweetsHandler) MentionsTimelineHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	th.logger.Debug("MentionsTimelineHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	userID, err := th.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}
	limit := capLimit(th.logger, request.GetInt("limit", 10), 5, 100)
	cursor := request.GetString("cursor", "")

	resp, err := client.UserMentionTimeline(ctx, userID, twitter.UserMentionTimelineOpts{
		MaxResults:      limit,
		PaginationToken: cursor,
		TweetFields:     tweetFields,
	})
	if err != nil {
		th.logger.Error("Mentions lookup failed", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch mentions: %w", err)
	}

	var tweets []*twitter.TweetObj
	var next string
	if resp.Raw != nil {
		tweets = resp.Raw.Tweets
	}
	if resp.Meta != nil {
		next = resp.Meta.NextToken
	}
	if len(tweets) == 0 {
		return mcp.NewToolResultText("No mentions found."), nil
	}

	out, err := tweetsCSV(tweets, next)
	if err != nil {
		th.logger.Error("Failed to marshal mentions to CSV", zap.Error(err))
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

func (th *TweetsHandler) SearchTweetsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	th.logger.Debug("SearchTweetsHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	limit := capLimit(th.logger, request.GetInt("limit", 10), 10, 100)
	cursor := request.GetString("cursor", "")

	th.logger.Debug("Request parameters",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.String("cursor", cursor),
	)

	resp, err := client.TweetRecentSearch(ctx, query, twitter.TweetRecentSearchOpts{
		MaxResults:  limit,
		NextToken:   cursor,
		TweetFields: tweetFields,
	})
	if err != nil {
		th.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("failed to search tweets: %w", err)
	}

	var tweets []*twitter.TweetObj
	var next string
	if resp.Raw != nil {
		tweets = resp.Raw.Tweets
	}
	if resp.Meta != nil {
		next = resp.Meta.NextToken
	}
	if len(tweets) == 0 {
		return mcp.NewToolResultText("No tweets matched the query."), nil
	}

	out, err := tweetsCSV(tweets, next)
	if err != nil {
		th.logger.Error("Failed to marshal search results to CSV", zap.Error(err))
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// capLimit clamps a requested page size to the API's accepted range.
func capLimit(logger *zap.Logger, limit, min, max int) int {
	if limit < min {
		return min
	}
	if limit > max {
		logger.Warn("Limit exceeds maximum, capping", zap.Int("requested", limit), zap.Int("max", max))
		return max
	}
	return limit
}
