package handler

import (
	"context"
	"fmt"
	"strings"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/gocarina/gocsv"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/provider"
)

type User struct {
	ID          string `json:"id" csv:"id"`
	UserName    string `json:"userName" csv:"username"`
	Name        string `json:"name" csv:"name"`
	Description string `json:"description" csv:"description"`
	Followers   int    `json:"followers" csv:"followers"`
	Following   int    `json:"following" csv:"following"`
	Tweets      int    `json:"tweets" csv:"tweets"`
}

var userFields = []twitter.UserField{
	twitter.UserFieldDescription,
	twitter.UserFieldPublicMetrics,
}

func userRow(u *twitter.UserObj) User {
	row := User{
		ID:          u.ID,
		UserName:    u.UserName,
		Name:        u.Name,
		Description: u.Description,
	}
	if u.PublicMetrics != nil {
		row.Followers = u.PublicMetrics.Followers
		row.Following = u.PublicMetrics.Following
		row.Tweets = u.PublicMetrics.Tweets
	}
	return row
}

func usersCSV(users []*twitter.UserObj) (string, error) {
	rows := make([]User, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow(u))
	}
	csvBytes, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return "", err
	}
	return string(csvBytes), nil
}

// UsersHandler implements profile lookup and social graph operations.
type UsersHandler struct {
	apiProvider *provider.ApiProvider
	logger      *zap.Logger
}

// NewUsersHandler creates the users handler
func NewUsersHandler(apiProvider *provider.ApiProvider, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		apiProvider: apiProvider,
		logger:      logger,
	}
}

func (uh *UsersHandler) GetUserProfileHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uh.logger.Debug("GetUserProfileHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	username := strings.TrimPrefix(request.GetString("username", ""), "@")
	if username == "" {
		return mcp.NewToolResultError("username is required"), nil
	}

	resp, err := client.UserNameLookup(ctx, []string{username}, twitter.UserLookupOpts{
		UserFields: userFields,
	})
	if err != nil {
		uh.logger.Error("User lookup failed", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if resp.Raw == nil || len(resp.Raw.Users) == 0 {
		return mcp.NewToolResultText("User not found."), nil
	}

	out, err := usersCSV(resp.Raw.Users)
	if err != nil {
		uh.logger.Error("Failed to marshal user to CSV", zap.Error(err))
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

func (uh *UsersHandler) FollowUserHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uh.logger.Debug("FollowUserHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	targetID := request.GetString("user_id", "")
	if targetID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	userID, err := uh.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := client.UserFollows(ctx, userID, targetID); err != nil {
		uh.logger.Error("Follow failed", zap.String("targetID", targetID), zap.Error(err))
		return nil, fmt.Errorf("failed to follow user: %w", err)
	}

	uh.logger.Info("Followed user", zap.String("targetID", targetID))
	return mcp.NewToolResultText(fmt.Sprintf("Now following user %s", targetID)), nil
}

func (uh *UsersHandler) UnfollowUserHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uh.logger.Debug("UnfollowUserHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	targetID := request.GetString("user_id", "")
	if targetID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	userID, err := uh.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := client.DeleteUserFollows(ctx, userID, targetID); err != nil {
		uh.logger.Error("Unfollow failed", zap.String("targetID", targetID), zap.Error(err))
		return nil, fmt.Errorf("failed to unfollow user: %w", err)
	}

	uh.logger.Info("Unfollowed user", zap.String("targetID", targetID))
	return mcp.NewToolResultText(fmt.Sprintf("Unfollowed user %s", targetID)), nil
}

func (uh *UsersHandler) GetFollowersHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uh.logger.Debug("GetFollowersHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	userID := request.GetString("user_id", "")
	if userID == "" {
		userID, err = uh.apiProvider.AuthUserID(ctx)
		if err != nil {
			return nil, err
		}
	}
	limit := capLimit(uh.logger, request.GetInt("limit", 100), 1, 1000)

	resp, err := client.UserFollowersLookup(ctx, userID, twitter.UserFollowersLookupOpts{
		MaxResults: limit,
		UserFields: userFields,
	})
	if err != nil {
		uh.logger.Error("Followers lookup failed", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch followers: %w", err)
	}
	if resp.Raw == nil || len(resp.Raw.Users) == 0 {
		return mcp.NewToolResultText("No followers found."), nil
	}

	out, err := usersCSV(resp.Raw.Users)
	if err != nil {
		uh.logger.Error("Failed to marshal followers to CSV", zap.Error(err))
		return nil, err
	}

	uh.logger.Debug("Returning followers", zap.Int("count", len(resp.Raw.Users)))
	return mcp.NewToolResultText(out), nil
}

func (uh *UsersHandler) GetFollowingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uh.logger.Debug("GetFollowingHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	userID := request.GetString("user_id", "")
	if userID == "" {
		userID, err = uh.apiProvider.AuthUserID(ctx)
		if err != nil {
			return nil, err
		}
	}
	limit := capLimit(uh.logger, request.GetInt("limit", 100), 1, 1000)

	resp, err := client.UserFollowingLookup(ctx, userID, twitter.UserFollowingLookupOpts{
		MaxResults: limit,
		UserFields: userFields,
	})
	if err != nil {
		uh.logger.Error("Following lookup failed", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch following: %w", err)
	}
	if resp.Raw == nil || len(resp.Raw.Users) == 0 {
		return mcp.NewToolResultText("Not following anyone."), nil
	}

	out, err := usersCSV(resp.Raw.Users)
	if err != nil {
		uh.logger.Error("Failed to marshal following to CSV", zap.Error(err))
		return nil, err
	}

	uh.logger.Debug("Returning following", zap.Int("count", len(resp.Raw.Users)))
	return mcp.NewToolResultText(out), nil
}
