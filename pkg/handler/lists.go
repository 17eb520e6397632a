package handler

import (
	"context"
	"fmt"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/gocarina/gocsv"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/provider"
)

type List struct {
	ID          string `json:"id" csv:"id"`
	Name        string `json:"name" csv:"name"`
	Description string `json:"description" csv:"description"`
}

// ListsHandler implements list management.
type ListsHandler struct {
	apiProvider *provider.ApiProvider
	logger      *zap.Logger
}

// NewListsHandler creates the lists handler
func NewListsHandler(apiProvider *provider.ApiProvider, logger *zap.Logger) *ListsHandler {
	return &ListsHandler{
		apiProvider: apiProvider,
		logger:      logger,
	}
}

func (lh *ListsHandler) CreateListHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lh.logger.Debug("CreateListHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	name := request.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	description := request.GetString("description", "")
	private := request.GetBool("private", false)

	meta := twitter.ListMetaData{
		Name:    &name,
		Private: &private,
	}
	if description != "" {
		meta.Description = &description
	}

	if _, err := client.CreateList(ctx, meta); err != nil {
		lh.logger.Error("List creation failed", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	lh.logger.Info("List created", zap.String("name", name), zap.Bool("private", private))
	return mcp.NewToolResultText(fmt.Sprintf("List %q created", name)), nil
}

func (lh *ListsHandler) DeleteListHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lh.logger.Debug("DeleteListHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	listID := request.GetString("list_id", "")
	if listID == "" {
		return mcp.NewToolResultError("list_id is required"), nil
	}

	if _, err := client.DeleteList(ctx, listID); err != nil {
		lh.logger.Error("List deletion failed", zap.String("listID", listID), zap.Error(err))
		return nil, fmt.Errorf("failed to delete list: %w", err)
	}

	lh.logger.Info("List deleted", zap.String("listID", listID))
	return mcp.NewToolResultText(fmt.Sprintf("List %s deleted", listID)), nil
}

func (lh *ListsHandler) AddListMemberHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lh.logger.Debug("AddListMemberHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	listID := request.GetString("list_id", "")
	userID := request.GetString("user_id", "")
	if listID == "" || userID == "" {
		return mcp.NewToolResultError("list_id and user_id are required"), nil
	}

	if _, err := client.AddListMember(ctx, listID, userID); err != nil {
		lh.logger.Error("Failed to add list member",
			zap.String("listID", listID),
			zap.String("userID", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to add list member: %w", err)
	}

	lh.logger.Info("List member added", zap.String("listID", listID), zap.String("userID", userID))
	return mcp.NewToolResultText(fmt.Sprintf("Added user %s to list %s", userID, listID)), nil
}

func (lh *ListsHandler) RemoveListMemberHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lh.logger.Debug("RemoveListMemberHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	listID := request.GetString("list_id", "")
	userID := request.GetString("user_id", "")
	if listID == "" || userID == "" {
		return mcp.NewToolResultError("list_id and user_id are required"), nil
	}

	if _, err := client.RemoveListMember(ctx, listID, userID); err != nil {
		lh.logger.Error("Failed to remove list member",
			zap.String("listID", listID),
			zap.String("userID", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to remove list member: %w", err)
	}

	lh.logger.Info("List member removed", zap.String("listID", listID), zap.String("userID", userID))
	return mcp.NewToolResultText(fmt.Sprintf("Removed user %s from list %s", userID, listID)), nil
}

func (lh *ListsHandler) GetOwnedListsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lh.logger.Debug("GetOwnedListsHandler called")

	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	userID, err := lh.apiProvider.AuthUserID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.UserListLookup(ctx, userID, twitter.UserListLookupOpts{})
	if err != nil {
		lh.logger.Error("Owned lists lookup failed", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch owned lists: %w", err)
	}
	if resp.Raw == nil || len(resp.Raw.Lists) == 0 {
		return mcp.NewToolResultText("No lists found."), nil
	}

	rows := make([]List, 0, len(resp.Raw.Lists))
	for _, l := range resp.Raw.Lists {
		rows = append(rows, List{
			ID:          l.ID,
			Name:        l.Name,
			Description: l.Description,
		})
	}

	csvBytes, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		lh.logger.Error("Failed to marshal lists to CSV", zap.Error(err))
		return nil, err
	}

	lh.logger.Debug("Returning owned lists", zap.Int("count", len(rows)))
	return mcp.NewToolResultText(string(csvBytes)), nil
}
