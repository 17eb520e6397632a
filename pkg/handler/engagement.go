package handler

import (
	"context"
	"fmt"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/provider"
)

// EngagementHandler implements likes and bookmarks.
type EngagementHandler struct {
	apiProvider *provider.ApiProvider
	logger      *zap.Logger
}

// NewEngagementHandler creates the engagement handler
func NewEngagementHandler(apiProvider *provider.ApiProvider, logger *zap.Logger) *EngagementHandler {
	return &EngagementHandler{
		apiProvider: apiProvider,
		logger:      logger,
	}
}

func (eh *EngagementHandler) LikeTweetHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eh.logger.Debug("LikeTweetHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	tweetID := request.GetString("tweet_id", "")
	if tweetID == "" {
		return mcp.NewToolResultError("tweet_id is required"), nil
	}

	userID, err := eh.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := client.UserLikes(ctx, userID, tweetID); err != nil {
		eh.logger.Error("Like failed", zap.String("tweetID", tweetID), zap.Error(err))
		return nil, fmt.Errorf("failed to like tweet: %w", err)
	}

	eh.logger.Info("Tweet liked", zap.String("tweetID", tweetID))
	return mcp.NewToolResultText(fmt.Sprintf("Liked tweet %s", tweetID)), nil
}

func (eh *EngagementHandler) UnlikeTweetHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eh.logger.Debug("UnlikeTweetHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	tweetID := request.GetString("tweet_id", "")
	if tweetID == "" {
		return mcp.NewToolResultError("tweet_id is required"), nil
	}

	userID, err := eh.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := client.DeleteUserLikes(ctx, userID, tweetID); err != nil {
		eh.logger.Error("Unlike failed", zap.String("tweetID", tweetID), zap.Error(err))
		return nil, fmt.Errorf("failed to unlike tweet: %w", err)
	}

	eh.logger.Info("Tweet unliked", zap.String("tweetID", tweetID))
	return mcp.NewToolResultText(fmt.Sprintf("Removed like from tweet %s", tweetID)), nil
}

func (eh *EngagementHandler) BookmarkTweetHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eh.logger.Debug("BookmarkTweetHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	tweetID := request.GetString("tweet_id", "")
	if tweetID == "" {
		return mcp.NewToolResultError("tweet_id is required"), nil
	}

	userID, err := eh.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := client.AddTweetBookmark(ctx, userID, tweetID); err != nil {
		eh.logger.Error("Bookmark failed", zap.String("tweetID", tweetID), zap.Error(err))
		return nil, fmt.Errorf("failed to bookmark tweet: %w", err)
	}

	eh.logger.Info("Tweet bookmarked", zap.String("tweetID", tweetID))
	return mcp.NewToolResultText(fmt.Sprintf("Bookmarked tweet %s", tweetID)), nil
}

func (eh *EngagementHandler) RemoveBookmarkHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eh.logger.Debug("RemoveBookmarkHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	tweetID := request.GetString("tweet_id", "")
	if tweetID == "" {
		return mcp.NewToolResultError("tweet_id is required"), nil
	}

	userID, err := eh.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := client.RemoveTweetBookmark(ctx, userID, tweetID); err != nil {
		eh.logger.Error("Bookmark removal failed", zap.String("tweetID", tweetID), zap.Error(err))
		return nil, fmt.Errorf("failed to remove bookmark: %w", err)
	}

	eh.logger.Info("Bookmark removed", zap.String("tweetID", tweetID))
	return mcp.NewToolResultText(fmt.Sprintf("Removed bookmark from tweet %s", tweetID)), nil
}

func (eh *EngagementHandler) GetBookmarksHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eh.logger.Debug("GetBookmarksHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	userID, err := eh.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}
	limit := capLimit(eh.logger, request.GetInt("limit", 10), 1, 100)

	resp, err := client.TweetBookmarksLookup(ctx, userID, twitter.TweetBookmarksLookupOpts{
		MaxResults:  limit,
		TweetFields: tweetFields,
	})
	if err != nil {
		eh.logger.Error("Bookmarks lookup failed", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch bookmarks: %w", err)
	}
	if resp.Raw == nil || len(resp.Raw.Tweets) == 0 {
		return mcp.NewToolResultText("No bookmarks found."), nil
	}

	out, err := tweetsCSV(resp.Raw.Tweets, "")
	if err != nil {
		eh.logger.Error("Failed to marshal bookmarks to CSV", zap.Error(err))
		return nil, err
	}

	eh.logger.Debug("Returning bookmarks", zap.Int("count", len(resp.Raw.Tweets)))
	return mcp.NewToolResultText(out), nil
}
