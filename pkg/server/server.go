package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/handler"
	"github.com/xmcp-dev/x-mcp-server/pkg/provider"
	"github.com/xmcp-dev/x-mcp-server/pkg/server/auth"
)

// NewMCPServer builds the MCP server with every X tool registered. The auth
// middleware resolves a valid credential per call, so handlers only ever see
// an authorized client.
func NewMCPServer(apiProvider *provider.ApiProvider, version string, logger *zap.Logger) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"x-mcp-server",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithToolHandlerMiddleware(auth.Middleware(apiProvider, logger)),
	)

	tweets := handler.NewTweetsHandler(apiProvider, logger)
	users := handler.NewUsersHandler(apiProvider, logger)
	engagement := handler.NewEngagementHandler(apiProvider, logger)
	lists := handler.NewListsHandler(apiProvider, logger)

	s.AddTool(mcp.NewTool("post_tweet",
		mcp.WithDescription("Post a tweet, optionally as a reply to another tweet"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text of the tweet")),
		mcp.WithString("in_reply_to_tweet_id", mcp.Description("Tweet ID to reply to")),
	), tweets.PostTweetHandler)

	s.AddTool(mcp.NewTool("delete_tweet",
		mcp.WithDescription("Delete one of your tweets"),
		mcp.WithString("tweet_id", mcp.Required(), mcp.Description("ID of the tweet to delete")),
	), tweets.DeleteTweetHandler)

	s.AddTool(mcp.NewTool("get_tweet",
		mcp.WithDescription("Look up a single tweet by ID"),
		mcp.WithString("tweet_id", mcp.Required(), mcp.Description("ID of the tweet")),
	), tweets.GetTweetHandler)

	s.AddTool(mcp.NewTool("user_timeline",
		mcp.WithDescription("Fetch recent tweets from a user's timeline as CSV"),
		mcp.WithString("user_id", mcp.Description("User ID, defaults to the authenticated user")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tweets, 5-100")),
		mcp.WithString("cursor", mcp.Description("Pagination cursor from a previous page")),
	), tweets.UserTimelineHandler)

	s.AddTool(mcp.NewTool("mentions_timeline",
		mcp.WithDescription("Fetch recent tweets mentioning the authenticated user as CSV"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tweets, 5-100")),
		mcp.WithString("cursor", mcp.Description("Pagination cursor from a previous page")),
	), tweets.MentionsTimelineHandler)

	s.AddTool(mcp.NewTool("search_tweets",
		mcp.WithDescription("Search recent tweets matching a query, returned as CSV"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tweets, 10-100")),
		mcp.WithString("cursor", mcp.Description("Pagination cursor from a previous page")),
	), tweets.SearchTweetsHandler)

	s.AddTool(mcp.NewTool("get_user_profile",
		mcp.WithDescription("Look up a user profile by username"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Username, with or without leading @")),
	), users.GetUserProfileHandler)

	s.AddTool(mcp.NewTool("follow_user",
		mcp.WithDescription("Follow a user"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the user to follow")),
	), users.FollowUserHandler)

	s.AddTool(mcp.NewTool("unfollow_user",
		mcp.WithDescription("Unfollow a user"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the user to unfollow")),
	), users.UnfollowUserHandler)

	s.AddTool(mcp.NewTool("get_followers",
		mcp.WithDescription("List a user's followers as CSV"),
		mcp.WithString("user_id", mcp.Description("User ID, defaults to the authenticated user")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of users, 1-1000")),
	), users.GetFollowersHandler)

	s.AddTool(mcp.NewTool("get_following",
		mcp.WithDescription("List who a user follows as CSV"),
		mcp.WithString("user_id", mcp.Description("User ID, defaults to the authenticated user")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of users, 1-1000")),
	), users.GetFollowingHandler)

	s.AddTool(mcp.NewTool("like_tweet",
		mcp.WithDescription("Like a tweet"),
		mcp.WithString("tweet_id", mcp.Required(), mcp.Description("ID of the tweet to like")),
	), engagement.LikeTweetHandler)

	s.AddTool(mcp.NewTool("unlike_tweet",
		mcp.WithDescription("Remove a like from a tweet"),
		mcp.WithString("tweet_id", mcp.Required(), mcp.Description("ID of the tweet to unlike")),
	), engagement.UnlikeTweetHandler)

	s.AddTool(mcp.NewTool("bookmark_tweet",
		mcp.WithDescription("Bookmark a tweet"),
		mcp.WithString("tweet_id", mcp.Required(), mcp.Description("ID of the tweet to bookmark")),
	), engagement.BookmarkTweetHandler)

	s.AddTool(mcp.NewTool("remove_bookmark",
		mcp.WithDescription("Remove a bookmarked tweet"),
		mcp.WithString("tweet_id", mcp.Required(), mcp.Description("ID of the bookmarked tweet")),
	), engagement.RemoveBookmarkHandler)

	s.AddTool(mcp.NewTool("get_bookmarks",
		mcp.WithDescription("List the authenticated user's bookmarked tweets as CSV"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tweets, 1-100")),
	), engagement.GetBookmarksHandler)

	s.AddTool(mcp.NewTool("create_list",
		mcp.WithDescription("Create a list"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the list")),
		mcp.WithString("description", mcp.Description("Description of the list")),
		mcp.WithBoolean("private", mcp.Description("Whether the list is private")),
	), lists.CreateListHandler)

	s.AddTool(mcp.NewTool("delete_list",
		mcp.WithDescription("Delete a list you own"),
		mcp.WithString("list_id", mcp.Required(), mcp.Description("ID of the list to delete")),
	), lists.DeleteListHandler)

	s.AddTool(mcp.NewTool("add_list_member",
		mcp.WithDescription("Add a user to a list you own"),
		mcp.WithString("list_id", mcp.Required(), mcp.Description("ID of the list")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the user to add")),
	), lists.AddListMemberHandler)

	s.AddTool(mcp.NewTool("remove_list_member",
		mcp.WithDescription("Remove a user from a list you own"),
		mcp.WithString("list_id", mcp.Required(), mcp.Description("ID of the list")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the user to remove")),
	), lists.RemoveListMemberHandler)

	s.AddTool(mcp.NewTool("get_owned_lists",
		mcp.WithDescription("List the authenticated user's owned lists as CSV"),
	), lists.GetOwnedListsHandler)

	return s
}
